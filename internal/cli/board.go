package cli

import (
	"errors"

	"github.com/ankittk/taskzone/pkg/models"
	"github.com/spf13/cobra"
)

func newBoardCmd() *cobra.Command {
	var (
		department string
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show a department board grouped by zone",
		RunE: func(cmd *cobra.Command, args []string) error {
			if department == "" {
				return errors.New("--department is required")
			}
			dept, err := models.ParseDepartment(department)
			if err != nil {
				return err
			}
			b, err := openBackend(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = b.Close() }()

			board, err := b.Board(cmd.Context(), dept)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), board)
			}
			printBoard(cmd.OutOrStdout(), board)
			return nil
		},
	}
	cmd.Flags().StringVar(&department, "department", "", "Department (ADMIN, LAB, STUDIO, WORKSHOP, LOGISTICS)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the board as JSON")
	return cmd
}
