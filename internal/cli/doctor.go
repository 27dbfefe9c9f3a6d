package cli

import (
	"errors"
	"fmt"

	"github.com/ankittk/taskzone/internal/config"
	"github.com/ankittk/taskzone/internal/daemon"
	"github.com/ankittk/taskzone/pkg/client"
	"github.com/ankittk/taskzone/pkg/models"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, store connectivity, and the running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFrom(cmd.Context())
			out := cmd.OutOrStdout()
			var problems []string

			_, _ = fmt.Fprintf(out, "home:   %s\n", e.Home)
			_, _ = fmt.Fprintf(out, "config: %s\n", config.Path(e.Home))

			st, err := openStore(cmd)
			if err != nil {
				problems = append(problems, fmt.Sprintf("store (%s): %v", storeName(e.Config.Store.Driver), err))
			} else {
				counts, err := st.CountTasksByZone(cmd.Context())
				_ = st.Close()
				if err != nil {
					problems = append(problems, fmt.Sprintf("store query: %v", err))
				} else {
					_, _ = fmt.Fprintf(out, "store:  %s ok (%d ACTIVE tasks)\n", storeName(e.Config.Store.Driver), counts[models.ZoneActive])
				}
			}

			status, _ := daemon.Status(cmd.Context(), e.Home)
			if status.Running {
				ok, err := client.New(daemon.BaseURL(status.Addr), e.APIKey).Health(cmd.Context())
				if err != nil || !ok {
					problems = append(problems, fmt.Sprintf("server pid %d at %s not healthy: %v", status.PID, status.Addr, err))
				} else {
					_, _ = fmt.Fprintf(out, "server: running at %s\n", status.Addr)
				}
			} else {
				_, _ = fmt.Fprintln(out, "server: not running")
			}

			if len(problems) > 0 {
				for _, p := range problems {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), p)
				}
				return errors.New("doctor checks failed")
			}
			_, _ = fmt.Fprintln(out, "ok")
			return nil
		},
	}
	return cmd
}
