package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ankittk/taskzone/internal/store"
	"github.com/ankittk/taskzone/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// maxTxAttempts bounds retries of a serializable transaction that lost a conflict.
const maxTxAttempts = 3

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func nowNano() int64 { return time.Now().UTC().UnixNano() }

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func collectTasks(rows pgx.Rows) ([]store.Task, error) {
	defer rows.Close()
	var out []store.Task
	for rows.Next() {
		task, err := store.ScanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *task)
	}
	return out, rows.Err()
}

func (s *Store) ListProjects(ctx context.Context) ([]store.Project, error) {
	rows, err := s.Pool.Query(ctx, `SELECT project_id, name, created_at FROM projects ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.Project
	for rows.Next() {
		var p store.Project
		var createdAt int64
		if err := rows.Scan(&p.ProjectID, &p.Name, &createdAt); err != nil {
			return nil, err
		}
		p.CreatedAt = time.Unix(0, createdAt).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) CreateProject(ctx context.Context, name string) (store.Project, error) {
	if name == "" {
		return store.Project{}, errors.New("project name required")
	}
	now := nowNano()
	p := store.Project{ProjectID: uuid.NewString(), Name: name, CreatedAt: time.Unix(0, now).UTC()}
	if _, err := s.Pool.Exec(ctx, `INSERT INTO projects(project_id, name, created_at) VALUES($1, $2, $3)`, p.ProjectID, name, now); err != nil {
		return store.Project{}, err
	}
	return p, nil
}

func scanEmployee(row pgx.Row) (*store.Employee, error) {
	var (
		e          store.Employee
		email      *string
		department *string
		createdAt  int64
	)
	if err := row.Scan(&e.EmployeeID, &e.Name, &email, &department, &createdAt); err != nil {
		return nil, err
	}
	if email != nil {
		e.Email = *email
	}
	if department != nil {
		e.Department = models.Department(*department)
	}
	e.CreatedAt = time.Unix(0, createdAt).UTC()
	return &e, nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]store.Employee, error) {
	rows, err := s.Pool.Query(ctx, `SELECT employee_id, name, email, department, created_at FROM employees ORDER BY name ASC, created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (s *Store) CreateEmployee(ctx context.Context, name, email string, dept models.Department) (store.Employee, error) {
	if name == "" {
		return store.Employee{}, errors.New("employee name required")
	}
	if dept.IsSet() && !dept.Valid() {
		return store.Employee{}, fmt.Errorf("invalid department %q", dept)
	}
	now := nowNano()
	e := store.Employee{EmployeeID: uuid.NewString(), Name: name, Email: email, Department: dept, CreatedAt: time.Unix(0, now).UTC()}
	_, err := s.Pool.Exec(ctx, `INSERT INTO employees(employee_id, name, email, department, created_at) VALUES($1, $2, $3, $4, $5)`,
		e.EmployeeID, name, nullString(email), nullString(string(dept)), now)
	if err != nil {
		return store.Employee{}, err
	}
	return e, nil
}

func (s *Store) FindEmployee(ctx context.Context, employeeID string) (*store.Employee, error) {
	return findEmployee(ctx, s.Pool, employeeID)
}

func findEmployee(ctx context.Context, q querier, employeeID string) (*store.Employee, error) {
	row := q.QueryRow(ctx, `SELECT employee_id, name, email, department, created_at FROM employees WHERE employee_id = $1`, employeeID)
	e, err := scanEmployee(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (s *Store) SetEmployeeDepartment(ctx context.Context, employeeID string, dept models.Department) error {
	if dept.IsSet() && !dept.Valid() {
		return fmt.Errorf("invalid department %q", dept)
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE employees SET department = $1 WHERE employee_id = $2`, nullString(string(dept)), employeeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("employee not found: %s", employeeID)
	}
	return nil
}

func (s *Store) CreateTask(ctx context.Context, in store.NewTask) (store.Task, error) {
	in, err := store.ValidateNewTask(in)
	if err != nil {
		return store.Task{}, err
	}
	now := nowNano()
	var due *int64
	if in.DueDate != nil {
		d := in.DueDate.UTC().UnixNano()
		due = &d
	}
	id := uuid.NewString()
	_, err = s.Pool.Exec(ctx, `
INSERT INTO tasks(task_id, project_id, title, description, status, priority, due_date, created_at, updated_at)
VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, in.ProjectID, in.Title, in.Description, in.Status, int64(in.Priority), due, now, now)
	if err != nil {
		return store.Task{}, err
	}
	task, err := s.FindTask(ctx, id)
	if err != nil {
		return store.Task{}, err
	}
	return *task, nil
}

func (s *Store) FindTask(ctx context.Context, taskID string) (*store.Task, error) {
	return findTask(ctx, s.Pool, taskID)
}

func findTask(ctx context.Context, q querier, taskID string) (*store.Task, error) {
	row := q.QueryRow(ctx, `SELECT `+store.TaskColumns+` `+store.TaskFrom+` WHERE t.task_id = $1`, taskID)
	task, err := store.ScanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return task, err
}

func (s *Store) FindTasksByDepartment(ctx context.Context, dept models.Department) ([]store.Task, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+store.TaskColumns+` `+store.TaskFrom+` WHERE t.department = $1 `+store.BoardOrder, string(dept))
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

func (s *Store) ListUnplacedTasks(ctx context.Context) ([]store.Task, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+store.TaskColumns+` `+store.TaskFrom+` WHERE t.department IS NULL `+store.BoardOrder)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

func (s *Store) CountTasksByZone(ctx context.Context) (map[models.Zone]int64, error) {
	rows, err := s.Pool.Query(ctx, `SELECT COALESCE(zone, 'SHELF'), COUNT(*) FROM tasks WHERE department IS NOT NULL GROUP BY COALESCE(zone, 'SHELF')`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[models.Zone]int64, len(models.Zones))
	for rows.Next() {
		var z string
		var n int64
		if err := rows.Scan(&z, &n); err != nil {
			return nil, err
		}
		out[models.Zone(z)] = n
	}
	return out, rows.Err()
}

// InTx runs fn in a SERIALIZABLE transaction, retrying when Postgres aborts it with a
// serialization failure or deadlock.
func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err = s.inTxOnce(ctx, fn)
		if !isRetryable(err) {
			return err
		}
	}
	return err
}

func (s *Store) inTxOnce(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) FindTask(ctx context.Context, taskID string) (*store.Task, error) {
	return findTask(ctx, t.tx, taskID)
}

func (t *pgTx) FindEmployee(ctx context.Context, employeeID string) (*store.Employee, error) {
	return findEmployee(ctx, t.tx, employeeID)
}

// FindActiveTasksForEmployee takes a transaction-scoped advisory lock on the employee
// first, so concurrent activations for the same employee queue behind each other.
func (t *pgTx) FindActiveTasksForEmployee(ctx context.Context, employeeID, excludeTaskID string) ([]store.Task, error) {
	if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, employeeID); err != nil {
		return nil, err
	}
	rows, err := t.tx.Query(ctx, `SELECT `+store.TaskColumns+` `+store.TaskFrom+`
WHERE t.zone = 'ACTIVE' AND t.assignee_id = $1 AND t.task_id <> $2`, employeeID, excludeTaskID)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

func (t *pgTx) UpdateTask(ctx context.Context, taskID string, patch store.TaskPatch) error {
	sets, args := store.PatchAssignments(patch, func(n int) string { return fmt.Sprintf("$%d", n) })
	if len(sets) == 0 {
		return nil
	}
	args = append(args, nowNano())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, taskID)
	_, err := t.tx.Exec(ctx, `UPDATE tasks SET `+strings.Join(sets, ", ")+fmt.Sprintf(` WHERE task_id = $%d`, len(args)), args...)
	if pgCode(err) == "23505" {
		return store.ErrActiveSlotTaken
	}
	return err
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isRetryable reports serialization_failure and deadlock_detected.
func isRetryable(err error) bool {
	switch pgCode(err) {
	case "40001", "40P01":
		return true
	}
	return false
}
