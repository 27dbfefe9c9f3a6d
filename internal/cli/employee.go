package cli

import (
	"errors"
	"fmt"

	"github.com/ankittk/taskzone/pkg/models"
	"github.com/spf13/cobra"
)

func newEmployeeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "employee",
		Short: "Manage the employee directory",
	}
	cmd.AddCommand(newEmployeeAddCmd())
	cmd.AddCommand(newEmployeeListCmd())
	cmd.AddCommand(newEmployeeShowCmd())
	cmd.AddCommand(newEmployeeSetDepartmentCmd())
	return cmd
}

// parseOptionalDepartment accepts "" (no department) or a department name.
func parseOptionalDepartment(s string) (models.Department, error) {
	if s == "" {
		return "", nil
	}
	return models.ParseDepartment(s)
}

func newEmployeeAddCmd() *cobra.Command {
	var name, email, department string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an employee",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return errors.New("--name is required")
			}
			dept, err := parseOptionalDepartment(department)
			if err != nil {
				return err
			}
			b, err := openBackend(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = b.Close() }()

			e, err := b.CreateEmployee(cmd.Context(), models.NewEmployee{Name: name, Email: email, Department: dept})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added employee %q (%s)\n", e.Name, e.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Employee name")
	cmd.Flags().StringVar(&email, "email", "", "Email")
	cmd.Flags().StringVar(&department, "department", "", "Department (optional)")
	return cmd
}

func newEmployeeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List employees",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = b.Close() }()

			emps, err := b.ListEmployees(cmd.Context())
			if err != nil {
				return err
			}
			if len(emps) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No employees.")
				return nil
			}
			for _, e := range emps {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "- %s %s (%s)\n", e.ID, e.Name, orDash(string(e.Department)))
			}
			return nil
		},
	}
}

func newEmployeeShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <employee-id>",
		Short: "Show one employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = b.Close() }()

			e, err := b.GetEmployee(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "id:         %s\n", e.ID)
			_, _ = fmt.Fprintf(out, "name:       %s\n", e.Name)
			_, _ = fmt.Fprintf(out, "email:      %s\n", orDash(e.Email))
			_, _ = fmt.Fprintf(out, "department: %s\n", orDash(string(e.Department)))
			return nil
		},
	}
}

func newEmployeeSetDepartmentCmd() *cobra.Command {
	var department string
	cmd := &cobra.Command{
		Use:   "set-department <employee-id>",
		Short: "Change an employee's department (empty clears it)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dept, err := parseOptionalDepartment(department)
			if err != nil {
				return err
			}
			b, err := openBackend(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = b.Close() }()

			e, err := b.SetEmployeeDepartment(cmd.Context(), args[0], dept)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s is now in %s\n", e.Name, orDash(string(e.Department)))
			return nil
		},
	}
	cmd.Flags().StringVar(&department, "department", "", "New department")
	return cmd
}
