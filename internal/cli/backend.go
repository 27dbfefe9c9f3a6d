package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/ankittk/taskzone/internal/store"
	"github.com/ankittk/taskzone/internal/store/driver"
	"github.com/ankittk/taskzone/internal/workflow"
	"github.com/ankittk/taskzone/pkg/client"
	"github.com/ankittk/taskzone/pkg/models"
	"github.com/spf13/cobra"
)

// backend is what the task, board, employee and project commands run against: either
// the store opened in-process or a running server over HTTP.
type backend interface {
	Board(ctx context.Context, dept models.Department) (*models.Board, error)
	UnplacedTasks(ctx context.Context) ([]models.Task, error)
	CreateTask(ctx context.Context, in models.NewTask) (*models.Task, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	MoveTask(ctx context.Context, id string, zone models.Zone, employeeID string) (*models.Task, error)
	AssignTask(ctx context.Context, id, employeeID string) (*models.Task, error)
	TriageTask(ctx context.Context, id string, dept models.Department) (*models.Task, error)

	ListEmployees(ctx context.Context) ([]models.Employee, error)
	GetEmployee(ctx context.Context, id string) (*models.Employee, error)
	CreateEmployee(ctx context.Context, in models.NewEmployee) (*models.Employee, error)
	SetEmployeeDepartment(ctx context.Context, id string, dept models.Department) (*models.Employee, error)

	ListProjects(ctx context.Context) ([]models.Project, error)
	CreateProject(ctx context.Context, name string) (*models.Project, error)

	Close() error
}

// openBackend returns a remote backend when --server is set, else the local store.
func openBackend(cmd *cobra.Command) (backend, error) {
	e := envFrom(cmd.Context())
	if e.Server != "" {
		return remoteBackend{client.New(e.Server, e.APIKey)}, nil
	}
	st, err := openStore(cmd)
	if err != nil {
		return nil, err
	}
	return &localBackend{st: st, eng: workflow.New(st, e.Logger)}, nil
}

func openStore(cmd *cobra.Command) (store.Store, error) {
	e := envFrom(cmd.Context())
	return driver.Open(store.OpenOptions{Driver: e.Config.Store.Driver, Home: e.Home, DSN: e.Config.Store.DSN})
}

type remoteBackend struct{ *client.Client }

func (remoteBackend) Close() error { return nil }

type localBackend struct {
	st  store.Store
	eng *workflow.Engine
}

func (b *localBackend) Close() error { return b.st.Close() }

func (b *localBackend) Board(ctx context.Context, dept models.Department) (*models.Board, error) {
	board, err := b.eng.TasksByDepartment(ctx, dept)
	if err != nil {
		return nil, err
	}
	m := board.Model()
	return &m, nil
}

func (b *localBackend) UnplacedTasks(ctx context.Context) ([]models.Task, error) {
	tasks, err := b.eng.UnplacedTasks(ctx)
	if err != nil {
		return nil, err
	}
	return store.TaskModels(tasks), nil
}

func (b *localBackend) CreateTask(ctx context.Context, in models.NewTask) (*models.Task, error) {
	nt, err := store.ValidateNewTask(store.NewTask{
		ProjectID:   in.ProjectID,
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
	})
	if err != nil {
		return nil, err
	}
	t, err := b.st.CreateTask(ctx, nt)
	if err != nil {
		return nil, err
	}
	m := t.Model()
	return &m, nil
}

func (b *localBackend) GetTask(ctx context.Context, id string) (*models.Task, error) {
	return taskResult(b.eng.Task(ctx, id))
}

func (b *localBackend) MoveTask(ctx context.Context, id string, zone models.Zone, employeeID string) (*models.Task, error) {
	return taskResult(b.eng.MoveTaskToZone(ctx, id, zone, employeeID))
}

func (b *localBackend) AssignTask(ctx context.Context, id, employeeID string) (*models.Task, error) {
	return taskResult(b.eng.AssignTaskToUser(ctx, id, employeeID))
}

func (b *localBackend) TriageTask(ctx context.Context, id string, dept models.Department) (*models.Task, error) {
	return taskResult(b.eng.AssignTaskToDepartment(ctx, id, dept))
}

func taskResult(t *store.Task, err error) (*models.Task, error) {
	if err != nil {
		return nil, err
	}
	m := t.Model()
	return &m, nil
}

func (b *localBackend) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	emps, err := b.st.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Employee, 0, len(emps))
	for _, e := range emps {
		out = append(out, e.Model())
	}
	return out, nil
}

var errEmployeeNotFound = errors.New("employee not found")

func (b *localBackend) GetEmployee(ctx context.Context, id string) (*models.Employee, error) {
	e, err := b.st.FindEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("%w: %s", errEmployeeNotFound, id)
	}
	m := e.Model()
	return &m, nil
}

func (b *localBackend) CreateEmployee(ctx context.Context, in models.NewEmployee) (*models.Employee, error) {
	e, err := b.st.CreateEmployee(ctx, in.Name, in.Email, in.Department)
	if err != nil {
		return nil, err
	}
	m := e.Model()
	return &m, nil
}

func (b *localBackend) SetEmployeeDepartment(ctx context.Context, id string, dept models.Department) (*models.Employee, error) {
	if _, err := b.GetEmployee(ctx, id); err != nil {
		return nil, err
	}
	if err := b.st.SetEmployeeDepartment(ctx, id, dept); err != nil {
		return nil, err
	}
	return b.GetEmployee(ctx, id)
}

func (b *localBackend) ListProjects(ctx context.Context) ([]models.Project, error) {
	projects, err := b.st.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Project, 0, len(projects))
	for _, p := range projects {
		out = append(out, p.Model())
	}
	return out, nil
}

func (b *localBackend) CreateProject(ctx context.Context, name string) (*models.Project, error) {
	p, err := b.st.CreateProject(ctx, name)
	if err != nil {
		return nil, err
	}
	m := p.Model()
	return &m, nil
}
