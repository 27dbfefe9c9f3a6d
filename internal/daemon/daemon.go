// Package daemon runs the taskzone HTTP server as a foreground or detached process and
// tracks it through pid and addr files under <home>/protected.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ankittk/taskzone/internal/config"
	"github.com/ankittk/taskzone/internal/httpapi"
	"github.com/ankittk/taskzone/internal/notify"
	"github.com/ankittk/taskzone/internal/otel"
)

var errNotRunning = errors.New("taskzone is not running")

// shutdownTimeout bounds graceful shutdown; open SSE streams are cut after it.
const shutdownTimeout = 15 * time.Second

// StartForeground serves until ctx is cancelled or the listener fails.
func StartForeground(ctx context.Context, opts StartOptions) error {
	if opts.Home == "" {
		return errors.New("home is required")
	}
	cfg := opts.Config
	if cfg.Addr == "" {
		return errors.New("listen address is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(protectedDir(opts.Home), 0o755); err != nil {
		return err
	}
	lock, err := acquireLock(lockPath(opts.Home))
	if err != nil {
		return err
	}
	defer lock.release()

	startPprof(opts.PprofAddr, logger)

	// Bind before writing pid/addr so Status never reports an address nobody listens on.
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	addr := ln.Addr().String()
	if err := os.WriteFile(pidPath(opts.Home), []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		_ = ln.Close()
		return err
	}
	_ = os.WriteFile(addrPath(opts.Home), []byte(addr+"\n"), 0o644)
	defer func() {
		_ = os.Remove(pidPath(opts.Home))
		_ = os.Remove(addrPath(opts.Home))
	}()

	srvOpts := httpapi.ServerOptions{
		Home:         opts.Home,
		Addr:         addr,
		Dev:          opts.Dev,
		APIKey:       cfg.APIKey,
		DBDriver:     cfg.Store.Driver,
		DBURL:        cfg.Store.DSN,
		Seed:         opts.Seed,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Notifiers:    buildNotifiers(cfg.Webhook.URL, cfg.Webhook.BreakerTimeout, logger),
		Logger:       logger,
	}
	if cfg.Metrics {
		metricsHandler, err := otel.InitMeterProvider(ctx, "taskzone")
		if err != nil {
			logger.Warn("otel init failed, using plain metrics", "err", err)
		} else {
			srvOpts.MetricsHandler = metricsHandler
			srvOpts.UseOtelHTTP = true
		}
	}
	app, err := httpapi.NewApp(srvOpts)
	if err != nil {
		_ = ln.Close()
		return err
	}
	if srvOpts.UseOtelHTTP {
		err := otel.InitMetricsWithZoneCount(ctx, func(ctx context.Context) (map[string]int64, error) {
			counts, err := app.Store.CountTasksByZone(ctx)
			if err != nil {
				return nil, err
			}
			out := make(map[string]int64, len(counts))
			for z, n := range counts {
				out[string(z)] = n
			}
			return out, nil
		})
		if err != nil {
			logger.Warn("otel metrics init failed", "err", err)
		}
	}

	logger.Info("server starting", "addr", addr, "home", opts.Home, "store", storeLabel(cfg.Store.Driver))
	return serve(ctx, app.Server, ln, app.Store, logger)
}

// serve runs srv on ln until ctx is cancelled or Serve fails. The store is closed by
// the server's shutdown hook on cancel, and directly when Serve returns on its own.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, st io.Closer, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		logger.Info("server stopping")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", "err", err)
			_ = srv.Close()
		}
		return nil
	case err := <-errCh:
		if cerr := st.Close(); cerr != nil {
			logger.Warn("close store", "err", cerr)
		}
		if err == nil || errors.Is(err, http.ErrServerClosed) || errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
}

// buildNotifiers registers the webhook notifier, wrapped in a circuit breaker, when url is set.
func buildNotifiers(url string, breakerTimeout time.Duration, logger *slog.Logger) *notify.Registry {
	reg := notify.NewRegistry(logger)
	if url == "" {
		return reg
	}
	reg.Register(notify.NewBreaker(notify.Webhook{URL: url}, breakerTimeout, logger))
	return reg
}

func storeLabel(driver string) string {
	if driver == "" {
		return "sqlite"
	}
	return driver
}

// StartBackground re-executes the current binary as "serve" detached from the terminal
// and waits briefly for it to report running. Output goes to <home>/protected/server.log.
func StartBackground(ctx context.Context, opts StartOptions, extraArgs ...string) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(protectedDir(opts.Home), 0o755); err != nil {
		return 0, err
	}
	if st, _ := Status(ctx, opts.Home); st.Running {
		return 0, fmt.Errorf("taskzone already running (pid %d)", st.PID)
	}

	logFile := filepath.Join(protectedDir(opts.Home), "server.log")
	stderr, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	// The child holds its own descriptor after Start.
	defer stderr.Close()

	args := []string{"serve", "--home", opts.Home}
	if opts.Config.Addr != "" {
		args = append(args, "--addr", opts.Config.Addr)
	}
	if opts.Dev {
		args = append(args, "--dev")
	}
	if opts.PprofAddr != "" {
		args = append(args, "--pprof", opts.PprofAddr)
	}
	args = append(args, extraArgs...)

	cmd := exec.Command(exe, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = stderr
	setDaemonSysProcAttr(cmd)
	if err := cmd.Start(); err != nil {
		return 0, err
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st, _ := Status(ctx, opts.Home); st.Running {
			return st.PID, nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return cmd.Process.Pid, nil
}

// Stop signals the running server and waits for it to exit, killing it after the
// shutdown timeout. It reports whether a server was running.
func Stop(ctx context.Context, home string) (bool, error) {
	st, err := Status(ctx, home)
	if err != nil {
		return false, err
	}
	if !st.Running {
		return false, nil
	}
	proc, err := os.FindProcess(st.PID)
	if err != nil {
		return false, errNotRunning
	}
	if err := signalTerm(proc); err != nil {
		return false, err
	}

	deadline := time.Now().Add(shutdownTimeout)
	for time.Now().Before(deadline) {
		if st2, _ := Status(ctx, home); !st2.Running {
			return true, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	_ = proc.Kill()
	return true, nil
}

// Status reads the pid and addr files. A stale pid file is removed.
func Status(ctx context.Context, home string) (StatusInfo, error) {
	pb, err := os.ReadFile(pidPath(home))
	if err != nil {
		return StatusInfo{Running: false}, nil
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(pb)))
	if err != nil || pid <= 0 {
		return StatusInfo{Running: false}, nil
	}
	if !processExists(pid) {
		_ = os.Remove(pidPath(home))
		return StatusInfo{Running: false}, nil
	}

	addr := ""
	if ab, err := os.ReadFile(addrPath(home)); err == nil {
		addr = strings.TrimSpace(string(ab))
	}
	if addr == "" {
		addr = "unknown"
	}
	return StatusInfo{Running: true, PID: pid, Addr: addr}, nil
}

// BaseURL returns the http URL of a running server's listen address, mapping wildcard
// hosts to loopback.
func BaseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// DefaultBaseURL is the URL of a server listening on config.DefaultAddr.
var DefaultBaseURL = BaseURL(config.DefaultAddr)
