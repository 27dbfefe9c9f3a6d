package daemon

import (
	"log/slog"
	"net/http"

	_ "net/http/pprof"
)

// startPprof serves the pprof handlers registered on http.DefaultServeMux. The API
// server uses its own router, so profiles are only reachable on addr.
func startPprof(addr string, logger *slog.Logger) {
	if addr == "" {
		return
	}
	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Info("pprof server stopped", "addr", addr, "err", err)
		}
	}()
}
