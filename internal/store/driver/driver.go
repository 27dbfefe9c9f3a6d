// Package driver opens the store backend named in store.OpenOptions.
package driver

import (
	"fmt"

	"github.com/ankittk/taskzone/internal/store"
	"github.com/ankittk/taskzone/internal/store/memory"
	"github.com/ankittk/taskzone/internal/store/postgres"
)

// Open returns a Store for opts.Driver: "sqlite" (default), "postgres", or "memory".
func Open(opts store.OpenOptions) (store.Store, error) {
	switch opts.Driver {
	case "", "sqlite":
		return store.OpenWithOptions(opts)
	case "postgres", "postgresql":
		st, err := postgres.Open(opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return st, nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
