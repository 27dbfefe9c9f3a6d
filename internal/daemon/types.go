package daemon

import (
	"log/slog"

	"github.com/ankittk/taskzone/internal/config"
)

// StartOptions configures the server process. Config carries the file and env settings;
// the remaining fields are command-line overrides.
type StartOptions struct {
	Home      string
	Config    config.Config
	Dev       bool
	Seed      bool   // insert demo data into an empty store
	PprofAddr string // if set, serve net/http/pprof here
	Logger    *slog.Logger
}

// StatusInfo is the result of Status (running or not, PID, listen addr).
type StatusInfo struct {
	Running bool
	PID     int
	Addr    string
}
