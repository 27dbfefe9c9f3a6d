package driver

import (
	"context"
	"testing"

	"github.com/ankittk/taskzone/internal/store"
	"github.com/ankittk/taskzone/internal/store/memory"
)

func TestOpen(t *testing.T) {
	t.Parallel()
	st, err := Open(store.OpenOptions{Driver: "memory"})
	if err != nil {
		t.Fatalf("Open memory: %v", err)
	}
	if _, ok := st.(*memory.Store); !ok {
		t.Fatalf("Open memory: got %T", st)
	}

	st, err = Open(store.OpenOptions{Home: t.TempDir()})
	if err != nil {
		t.Fatalf("Open default sqlite: %v", err)
	}
	defer func() { _ = st.Close() }()
	if _, err := st.ListProjects(context.Background()); err != nil {
		t.Fatalf("ListProjects: %v", err)
	}

	if _, err := Open(store.OpenOptions{Driver: "mysql"}); err == nil {
		t.Fatal("Open mysql: expected error")
	}
}
