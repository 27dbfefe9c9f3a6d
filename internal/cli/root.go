package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/ankittk/taskzone/internal/config"
	"github.com/ankittk/taskzone/internal/logging"
	"github.com/spf13/cobra"
)

// globals are the persistent flags shared by every subcommand.
type globals struct {
	home      string
	envFile   string
	logLevel  string
	logFormat string
	dbDriver  string
	dbURL     string
	server    string
	apiKey    string
}

type envKey struct{}

// env is what PersistentPreRunE resolves for subcommands: home, merged config and logger.
type env struct {
	Home   string
	Config config.Config
	Logger *slog.Logger
	Server string // base URL of a running server; empty means local store access
	APIKey string
	closer io.Closer
}

func envFrom(ctx context.Context) *env {
	if e, ok := ctx.Value(envKey{}).(*env); ok {
		return e
	}
	panic("cli env not set (PersistentPreRunE did not run)")
}

func NewRootCmd(version string) *cobra.Command {
	var g globals

	cmd := &cobra.Command{
		Use:          "taskzone",
		Short:        "taskzone: department boards and task workflow",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if g.envFile != "" {
				if err := config.LoadEnvFile(g.envFile); err != nil {
					return err
				}
			}
			home, err := config.ResolveHome(g.home)
			if err != nil {
				return err
			}
			cfg, err := config.Load(home)
			if err != nil {
				return err
			}
			applyGlobalFlags(cmd, g, &cfg)

			logger, closer, err := logging.New(logging.Options{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
				File:   cfg.Log.File,
				Output: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			e := &env{Home: home, Config: cfg, Logger: logger, Server: g.server, APIKey: g.apiKey, closer: closer}
			if e.APIKey == "" {
				e.APIKey = cfg.APIKey
			}
			ctx := config.WithHome(cmd.Context(), home)
			cmd.SetContext(context.WithValue(ctx, envKey{}, e))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if e, ok := cmd.Context().Value(envKey{}).(*env); ok && e.closer != nil {
				return e.closer.Close()
			}
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&g.home, "home", "", "Override taskzone home directory (default: ~/.taskzone, env: TASKZONE_HOME)")
	pf.StringVar(&g.envFile, "env-file", "", "Load env vars from a .env file before reading config")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&g.logFormat, "log-format", "", "Log format: text or json")
	pf.StringVar(&g.dbDriver, "db-driver", "", "Store driver: sqlite, postgres, or memory")
	pf.StringVar(&g.dbURL, "db-url", "", "Store DSN (sqlite file or postgres URL; or set DATABASE_URL)")
	pf.StringVar(&g.server, "server", os.Getenv("TASKZONE_SERVER"), "Talk to a running server at this URL instead of opening the store (env: TASKZONE_SERVER)")
	pf.StringVar(&g.apiKey, "api-key", "", "API key sent to --server (default: config api_key / TASKZONE_API_KEY)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStartCmd())
	cmd.AddCommand(newStopCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newDoctorCmd())

	cmd.AddCommand(newBoardCmd())
	cmd.AddCommand(newTaskCmd())
	cmd.AddCommand(newEmployeeCmd())
	cmd.AddCommand(newProjectCmd())
	cmd.AddCommand(newApikeyCmd())
	cmd.AddCommand(newNukeCmd())

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.SetVersionTemplate("{{.Version}}\n")
	if version != "" {
		cmd.Version = version
	} else {
		cmd.Version = "dev"
	}

	return cmd
}

// applyGlobalFlags lets explicitly set flags win over config file and env values.
func applyGlobalFlags(cmd *cobra.Command, g globals, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = g.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = g.logFormat
	}
	if flags.Changed("db-driver") {
		cfg.Store.Driver = g.dbDriver
	}
	if flags.Changed("db-url") {
		cfg.Store.DSN = g.dbURL
	}
}
