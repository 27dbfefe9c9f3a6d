package cli

import (
	"fmt"

	"github.com/ankittk/taskzone/internal/config"
	"github.com/ankittk/taskzone/internal/daemon"
	"github.com/spf13/cobra"
)

// serverFlags are shared by serve and start.
type serverFlags struct {
	addr      string
	dev       bool
	pprofAddr string
	seed      bool
	noMetrics bool
	apiKey    string
	webhook   string
}

func (f *serverFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.addr, "addr", "", "Listen address (default from config, "+config.DefaultAddr+")")
	cmd.Flags().BoolVar(&f.dev, "dev", false, "Enable dev mode (permissive CORS)")
	cmd.Flags().StringVar(&f.pprofAddr, "pprof", "", "Enable pprof on address (e.g. 127.0.0.1:6060)")
	cmd.Flags().BoolVar(&f.seed, "seed", false, "Insert demo data into an empty store")
	cmd.Flags().BoolVar(&f.noMetrics, "no-metrics", false, "Disable OpenTelemetry metrics and request instrumentation")
	cmd.Flags().StringVar(&f.apiKey, "require-api-key", "", "Require this API key on every request except /health and /metrics")
	cmd.Flags().StringVar(&f.webhook, "webhook-url", "", "POST a notification here when a task becomes ACTIVE")
}

func (f *serverFlags) options(cmd *cobra.Command) daemon.StartOptions {
	e := envFrom(cmd.Context())
	cfg := e.Config
	if f.addr != "" {
		cfg.Addr = f.addr
	}
	if f.noMetrics {
		cfg.Metrics = false
	}
	if f.apiKey != "" {
		cfg.APIKey = f.apiKey
	}
	if f.webhook != "" {
		cfg.Webhook.URL = f.webhook
	}
	return daemon.StartOptions{
		Home:      e.Home,
		Config:    cfg,
		Dev:       f.dev,
		Seed:      f.seed,
		PprofAddr: f.pprofAddr,
		Logger:    e.Logger,
	}
}

// forwardedArgs repeats the flags that the detached child cannot read from config.
func (f *serverFlags) forwardedArgs(cmd *cobra.Command) []string {
	var args []string
	for _, name := range []string{"seed", "no-metrics", "require-api-key", "webhook-url", "db-driver", "db-url", "log-level", "log-format", "env-file"} {
		fl := cmd.Flags().Lookup(name)
		if fl != nil && fl.Changed {
			args = append(args, "--"+name+"="+fl.Value.String())
		}
	}
	return args
}

func newServeCmd() *cobra.Command {
	var f serverFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := f.options(cmd)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Serving taskzone on %s\n", daemon.BaseURL(opts.Config.Addr))
			return daemon.StartForeground(cmd.Context(), opts)
		},
	}
	f.register(cmd)
	return cmd
}

func newStartCmd() *cobra.Command {
	var f serverFlags
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP API in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := f.options(cmd)
			pid, err := daemon.StartBackground(cmd.Context(), opts, f.forwardedArgs(cmd)...)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "taskzone started (pid %d)\n", pid)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "API: %s\n", daemon.BaseURL(opts.Config.Addr))
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the background server",
		RunE: func(cmd *cobra.Command, args []string) error {
			stopped, err := daemon.Stop(cmd.Context(), envFrom(cmd.Context()).Home)
			if err != nil {
				return err
			}
			if !stopped {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "taskzone is not running")
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Stopped")
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := daemon.Status(cmd.Context(), envFrom(cmd.Context()).Home)
			if err != nil {
				return err
			}
			if !st.Running {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "taskzone not running")
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "taskzone running (pid %d, addr %s)\n", st.PID, st.Addr)
			return nil
		},
	}
}
