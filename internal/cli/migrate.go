package cli

import (
	"fmt"
	"os"

	"github.com/ankittk/taskzone/internal/config"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the store schema",
		Long: "Opens the configured store, which applies pending migrations, and optionally inserts demo data. " +
			"Writes a default config.yaml into the home directory if there is none.",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			if seed {
				if err := st.SeedDemo(cmd.Context()); err != nil {
					return fmt.Errorf("seed: %w", err)
				}
			}
			e := envFrom(cmd.Context())
			if _, err := os.Stat(config.Path(e.Home)); os.IsNotExist(err) {
				// Defaults only; env-derived secrets stay out of the file.
				if err := config.Save(e.Home, config.Default()); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", config.Path(e.Home))
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Schema up to date (%s)\n", storeName(e.Config.Store.Driver))
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "Insert demo data into an empty store")
	return cmd
}

func storeName(driver string) string {
	if driver == "" {
		return "sqlite"
	}
	return driver
}
