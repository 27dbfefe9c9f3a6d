package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/ankittk/taskzone/pkg/models"
	"github.com/spf13/cobra"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Create, triage, assign, and move tasks",
	}
	cmd.AddCommand(newTaskCreateCmd())
	cmd.AddCommand(newTaskShowCmd())
	cmd.AddCommand(newTaskInboxCmd())
	cmd.AddCommand(newTaskTriageCmd())
	cmd.AddCommand(newTaskAssignCmd())
	cmd.AddCommand(newTaskMoveCmd())
	return cmd
}

func newTaskCreateCmd() *cobra.Command {
	var (
		project     string
		title       string
		description string
		priority    string
		due         string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an unplaced task in a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if project == "" || title == "" {
				return errors.New("--project and --title are required")
			}
			in := models.NewTask{ProjectID: project, Title: title}
			if description != "" {
				in.Description = &description
			}
			if priority != "" {
				p, err := models.ParsePriority(priority)
				if err != nil {
					return err
				}
				in.Priority = p
			}
			if due != "" {
				d, err := time.Parse("2006-01-02", due)
				if err != nil {
					return fmt.Errorf("--due: %w", err)
				}
				in.DueDate = &d
			}
			b, err := openBackend(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = b.Close() }()

			t, err := b.CreateTask(cmd.Context(), in)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created task %s\n", t.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Project ID")
	cmd.Flags().StringVar(&title, "title", "", "Task title")
	cmd.Flags().StringVar(&description, "description", "", "Task description")
	cmd.Flags().StringVar(&priority, "priority", "", "LOW, MEDIUM, HIGH, or URGENT (default MEDIUM)")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	return cmd
}

func newTaskShowCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = b.Close() }()

			t, err := b.GetTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), t)
			}
			printTask(cmd.OutOrStdout(), *t)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the task as JSON")
	return cmd
}

func newTaskInboxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inbox",
		Short: "List tasks not yet triaged to a department",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = b.Close() }()

			tasks, err := b.UnplacedTasks(cmd.Context())
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Inbox empty.")
				return nil
			}
			for _, t := range tasks {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), taskLine(t))
			}
			return nil
		},
	}
}

func newTaskTriageCmd() *cobra.Command {
	var department string
	cmd := &cobra.Command{
		Use:   "triage <task-id>",
		Short: "Place a task in a department (lands on SHELF, assignee cleared)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dept, err := models.ParseDepartment(department)
			if err != nil {
				return err
			}
			b, err := openBackend(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = b.Close() }()

			t, err := b.TriageTask(cmd.Context(), args[0], dept)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), taskLine(*t))
			return nil
		},
	}
	cmd.Flags().StringVar(&department, "department", "", "Target department")
	_ = cmd.MarkFlagRequired("department")
	return cmd
}

func newTaskAssignCmd() *cobra.Command {
	var employee string
	cmd := &cobra.Command{
		Use:   "assign <task-id>",
		Short: "Assign a task to an employee of its department",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = b.Close() }()

			t, err := b.AssignTask(cmd.Context(), args[0], employee)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), taskLine(*t))
			return nil
		},
	}
	cmd.Flags().StringVar(&employee, "employee", "", "Employee ID")
	_ = cmd.MarkFlagRequired("employee")
	return cmd
}

func newTaskMoveCmd() *cobra.Command {
	var (
		zone     string
		employee string
	)
	cmd := &cobra.Command{
		Use:   "move <task-id>",
		Short: "Move a task to SHELF, STORAGE, DOCK, or ACTIVE",
		Long:  "Move a task between zones. Moving to ACTIVE requires --employee; the employee may hold only one ACTIVE task.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			z, err := models.ParseZone(zone)
			if err != nil {
				return err
			}
			b, err := openBackend(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = b.Close() }()

			t, err := b.MoveTask(cmd.Context(), args[0], z, employee)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), taskLine(*t))
			return nil
		},
	}
	cmd.Flags().StringVar(&zone, "zone", "", "Target zone")
	cmd.Flags().StringVar(&employee, "employee", "", "Employee ID (required for ACTIVE)")
	_ = cmd.MarkFlagRequired("zone")
	return cmd
}
