package cli

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/ankittk/taskzone/internal/config"
	"github.com/spf13/cobra"
)

func newApikeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage the key that serve --require-api-key checks on every request",
	}
	cmd.AddCommand(newApikeyGenerateCmd())
	return cmd
}

func newApikeyGenerateCmd() *cobra.Command {
	var (
		save     bool
		writeEnv string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Create a random API key and show how serve and clients use it",
		Long: `Create a random 256-bit API key.

With --save the key becomes api_key in <home>/config.yaml, which serve and
start enforce without further flags. With --write-env the key is appended to
a dotenv file as TASKZONE_API_KEY for use with --env-file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			b := make([]byte, 32)
			if _, err := rand.Read(b); err != nil {
				return fmt.Errorf("generate key: %w", err)
			}
			key := hex.EncodeToString(b)
			e := envFrom(cmd.Context())

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, "API key:")
			_, _ = fmt.Fprintln(out)
			_, _ = fmt.Fprintln(out, "  "+key)
			_, _ = fmt.Fprintln(out)

			switch {
			case save:
				if err := config.SetAPIKey(e.Home, key); err != nil {
					return fmt.Errorf("save api key: %w", err)
				}
				_, _ = fmt.Fprintf(out, "Saved as api_key in %s\n", config.Path(e.Home))
				_, _ = fmt.Fprintln(out, "Restart the server to enforce it: taskzone stop && taskzone start")
			case writeEnv != "":
				if err := appendEnvKey(writeEnv, key); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "Appended TASKZONE_API_KEY to %s\n", writeEnv)
				_, _ = fmt.Fprintf(out, "Serve with it: taskzone --env-file %s serve\n", writeEnv)
			default:
				_, _ = fmt.Fprintln(out, "Enforce it on the server, one of:")
				_, _ = fmt.Fprintln(out, "  taskzone serve --require-api-key "+key)
				_, _ = fmt.Fprintln(out, "  taskzone apikey generate --save   (writes a fresh key to config.yaml)")
			}
			_, _ = fmt.Fprintln(out)
			printClientUsage(out, e.Config.Addr)
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "Store the key as api_key in <home>/config.yaml")
	cmd.Flags().StringVar(&writeEnv, "write-env", "", "Append TASKZONE_API_KEY to this dotenv file")
	cmd.MarkFlagsMutuallyExclusive("save", "write-env")
	return cmd
}

func appendEnvKey(path, key string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if _, err := fmt.Fprintf(f, "TASKZONE_API_KEY=%s\n", key); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func printClientUsage(out io.Writer, addr string) {
	if addr == "" {
		addr = config.DefaultAddr
	}
	_, _ = fmt.Fprintln(out, "Clients:")
	_, _ = fmt.Fprintf(out, "  taskzone --server http://%s --api-key <key> board LAB\n", addr)
	_, _ = fmt.Fprintln(out, "  or export TASKZONE_SERVER and TASKZONE_API_KEY")
	_, _ = fmt.Fprintln(out, "  HTTP: send X-API-Key: <key> (or ?api_key=<key> for SSE in browsers)")
}
