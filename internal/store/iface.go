package store

import (
	"context"

	"github.com/ankittk/taskzone/pkg/models"
)

// Store is the persistence interface for projects, the employee directory, and tasks.
// Implementations: SQLite (this package), *postgres.Store, and *memory.Store.
type Store interface {
	// Projects
	ListProjects(ctx context.Context) ([]Project, error)
	CreateProject(ctx context.Context, name string) (Project, error)

	// Employees
	ListEmployees(ctx context.Context) ([]Employee, error)
	CreateEmployee(ctx context.Context, name, email string, dept models.Department) (Employee, error)
	FindEmployee(ctx context.Context, employeeID string) (*Employee, error)
	SetEmployeeDepartment(ctx context.Context, employeeID string, dept models.Department) error

	// Tasks
	CreateTask(ctx context.Context, in NewTask) (Task, error)
	FindTask(ctx context.Context, taskID string) (*Task, error)
	FindTasksByDepartment(ctx context.Context, dept models.Department) ([]Task, error)
	ListUnplacedTasks(ctx context.Context) ([]Task, error)
	CountTasksByZone(ctx context.Context) (map[models.Zone]int64, error)

	// InTx runs fn inside one serialized write transaction. If fn returns an error
	// nothing fn wrote is committed.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// Lifecycle
	SeedDemo(ctx context.Context) error
	Close() error
}

// Tx is the view of the store available inside InTx. Reads observe the
// transaction's own writes.
type Tx interface {
	FindTask(ctx context.Context, taskID string) (*Task, error)
	FindEmployee(ctx context.Context, employeeID string) (*Employee, error)
	// FindActiveTasksForEmployee returns tasks in ACTIVE assigned to employeeID,
	// excluding excludeTaskID (may be empty).
	FindActiveTasksForEmployee(ctx context.Context, employeeID, excludeTaskID string) ([]Task, error)
	// UpdateTask applies patch. It returns ErrActiveSlotTaken if the write would give
	// an employee a second ACTIVE task.
	UpdateTask(ctx context.Context, taskID string, patch TaskPatch) error
}
