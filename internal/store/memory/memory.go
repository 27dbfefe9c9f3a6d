// Package memory is an in-process store.Store. InTx holds one store-wide lock for the
// whole callback and publishes its writes only when the callback succeeds.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ankittk/taskzone/internal/store"
	"github.com/ankittk/taskzone/pkg/models"
	"github.com/google/uuid"
)

type taskRecord struct {
	task store.Task
	seq  int64
}

type state struct {
	projects  []store.Project
	employees map[string]store.Employee
	tasks     map[string]taskRecord
}

func (s *state) clone() *state {
	c := &state{
		projects:  append([]store.Project(nil), s.projects...),
		employees: make(map[string]store.Employee, len(s.employees)),
		tasks:     make(map[string]taskRecord, len(s.tasks)),
	}
	for k, v := range s.employees {
		c.employees[k] = v
	}
	for k, v := range s.tasks {
		c.tasks[k] = v
	}
	return c
}

// Store keeps everything in maps guarded by mu.
type Store struct {
	mu  sync.RWMutex
	st  *state
	seq int64
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{st: &state{
		employees: make(map[string]store.Employee),
		tasks:     make(map[string]taskRecord),
	}}
}

func now() time.Time { return time.Now().UTC() }

func (s *Store) ListProjects(ctx context.Context) ([]store.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]store.Project(nil), s.st.projects...), nil
}

func (s *Store) CreateProject(ctx context.Context, name string) (store.Project, error) {
	if name == "" {
		return store.Project{}, errors.New("project name required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.st.projects {
		if p.Name == name {
			return store.Project{}, fmt.Errorf("project %q already exists", name)
		}
	}
	p := store.Project{ProjectID: uuid.NewString(), Name: name, CreatedAt: now()}
	s.st.projects = append(s.st.projects, p)
	return p, nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]store.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Employee, 0, len(s.st.employees))
	for _, e := range s.st.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) CreateEmployee(ctx context.Context, name, email string, dept models.Department) (store.Employee, error) {
	if name == "" {
		return store.Employee{}, errors.New("employee name required")
	}
	if dept.IsSet() && !dept.Valid() {
		return store.Employee{}, fmt.Errorf("invalid department %q", dept)
	}
	e := store.Employee{EmployeeID: uuid.NewString(), Name: name, Email: email, Department: dept, CreatedAt: now()}
	s.mu.Lock()
	s.st.employees[e.EmployeeID] = e
	s.mu.Unlock()
	return e, nil
}

func (s *Store) FindEmployee(ctx context.Context, employeeID string) (*store.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.findEmployee(employeeID), nil
}

func (s *Store) SetEmployeeDepartment(ctx context.Context, employeeID string, dept models.Department) error {
	if dept.IsSet() && !dept.Valid() {
		return fmt.Errorf("invalid department %q", dept)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.st.employees[employeeID]
	if !ok {
		return fmt.Errorf("employee not found: %s", employeeID)
	}
	e.Department = dept
	s.st.employees[employeeID] = e
	return nil
}

func (s *Store) CreateTask(ctx context.Context, in store.NewTask) (store.Task, error) {
	in, err := store.ValidateNewTask(in)
	if err != nil {
		return store.Task{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for _, p := range s.st.projects {
		if p.ProjectID == in.ProjectID {
			found = true
			break
		}
	}
	if !found {
		return store.Task{}, fmt.Errorf("project not found: %s", in.ProjectID)
	}
	ts := now()
	t := store.Task{
		TaskID:      uuid.NewString(),
		ProjectID:   in.ProjectID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	s.seq++
	s.st.tasks[t.TaskID] = taskRecord{task: t, seq: s.seq}
	return *s.st.findTask(t.TaskID), nil
}

func (s *Store) FindTask(ctx context.Context, taskID string) (*store.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.findTask(taskID), nil
}

func (s *Store) FindTasksByDepartment(ctx context.Context, dept models.Department) ([]store.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.filter(func(t *store.Task) bool { return t.Department == dept }), nil
}

func (s *Store) ListUnplacedTasks(ctx context.Context) ([]store.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.filter(func(t *store.Task) bool { return !t.Triaged() }), nil
}

func (s *Store) CountTasksByZone(ctx context.Context) (map[models.Zone]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[models.Zone]int64, len(models.Zones))
	for _, r := range s.st.tasks {
		if r.task.Triaged() {
			out[r.task.BoardZone()]++
		}
	}
	return out, nil
}

// InTx serializes all transactions against each other and against plain writes.
func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(&memTx{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) SeedDemo(ctx context.Context) error { return store.Seed(ctx, s) }

func (s *Store) Close() error { return nil }

type memTx struct {
	st *state
}

func (t *memTx) FindTask(ctx context.Context, taskID string) (*store.Task, error) {
	return t.st.findTask(taskID), nil
}

func (t *memTx) FindEmployee(ctx context.Context, employeeID string) (*store.Employee, error) {
	return t.st.findEmployee(employeeID), nil
}

func (t *memTx) FindActiveTasksForEmployee(ctx context.Context, employeeID, excludeTaskID string) ([]store.Task, error) {
	return t.st.filter(func(task *store.Task) bool {
		return task.Zone == models.ZoneActive && task.AssignedTo(employeeID) && task.TaskID != excludeTaskID
	}), nil
}

// UpdateTask enforces the same constraints as the SQL schema.
func (t *memTx) UpdateTask(ctx context.Context, taskID string, patch store.TaskPatch) error {
	r, ok := t.st.tasks[taskID]
	if !ok || patch.Empty() {
		return nil
	}
	task := r.task
	if patch.Department != nil {
		task.Department = *patch.Department
	}
	if patch.Zone != nil {
		task.Zone = *patch.Zone
	}
	switch {
	case patch.ClearAssignee:
		task.AssigneeID = nil
	case patch.AssigneeID != nil:
		if _, ok := t.st.employees[*patch.AssigneeID]; !ok {
			return fmt.Errorf("assignee %s: foreign key constraint failed", *patch.AssigneeID)
		}
		id := *patch.AssigneeID
		task.AssigneeID = &id
	}
	if task.Zone == models.ZoneActive {
		if task.AssigneeID == nil {
			return errors.New("check constraint failed: ACTIVE task requires an assignee")
		}
		for id, other := range t.st.tasks {
			if id != taskID && other.task.Zone == models.ZoneActive && other.task.AssignedTo(*task.AssigneeID) {
				return store.ErrActiveSlotTaken
			}
		}
	}
	task.AssigneeName = nil
	task.UpdatedAt = now()
	t.st.tasks[taskID] = taskRecord{task: task, seq: r.seq}
	return nil
}

func (s *state) findEmployee(id string) *store.Employee {
	e, ok := s.employees[id]
	if !ok {
		return nil
	}
	return &e
}

// findTask returns a copy with the assignee's name joined.
func (s *state) findTask(id string) *store.Task {
	r, ok := s.tasks[id]
	if !ok {
		return nil
	}
	t := s.joined(r.task)
	return &t
}

func (s *state) joined(t store.Task) store.Task {
	t.AssigneeName = nil
	if t.AssigneeID != nil {
		if e, ok := s.employees[*t.AssigneeID]; ok {
			name := e.Name
			t.AssigneeName = &name
		}
	}
	return t
}

// filter returns matching tasks in board order.
func (s *state) filter(keep func(t *store.Task) bool) []store.Task {
	var recs []taskRecord
	for _, r := range s.tasks {
		if keep(&r.task) {
			recs = append(recs, r)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return boardLess(recs[i], recs[j]) })
	out := make([]store.Task, 0, len(recs))
	for _, r := range recs {
		out = append(out, s.joined(r.task))
	}
	return out
}

func boardLess(a, b taskRecord) bool {
	x, y := a.task, b.task
	if x.Priority != y.Priority {
		return x.Priority > y.Priority
	}
	switch {
	case x.DueDate != nil && y.DueDate == nil:
		return true
	case x.DueDate == nil && y.DueDate != nil:
		return false
	case x.DueDate != nil && !x.DueDate.Equal(*y.DueDate):
		return x.DueDate.Before(*y.DueDate)
	}
	if !x.CreatedAt.Equal(y.CreatedAt) {
		return x.CreatedAt.Before(y.CreatedAt)
	}
	return a.seq < b.seq
}
