package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ankittk/taskzone/pkg/models"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// queryer is satisfied by *sql.DB and *sql.Tx so reads can run inside or outside InTx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TaskColumns is the joined task projection shared by every task query.
const TaskColumns = `t.task_id, t.project_id, t.title, t.description, t.status, t.priority, t.due_date,
  t.department, t.zone, t.assignee_id, e.name, t.created_at, t.updated_at`

// TaskFrom joins the assignee's name for display.
const TaskFrom = `FROM tasks t LEFT JOIN employees e ON e.employee_id = t.assignee_id`

// BoardOrder sorts by priority desc, due date asc with nulls last, then creation time.
const BoardOrder = `ORDER BY t.priority DESC, (t.due_date IS NULL) ASC, t.due_date ASC, t.created_at ASC, t.task_id ASC`

func unixTime(ns int64) time.Time { return time.Unix(0, ns).UTC() }

func nowNano() int64 { return time.Now().UTC().UnixNano() }

// ScanTask scans one row of TaskColumns.
func ScanTask(row interface{ Scan(dest ...any) error }) (*Task, error) {
	var (
		t            Task
		description  sql.NullString
		priority     int64
		dueDate      sql.NullInt64
		department   sql.NullString
		zone         sql.NullString
		assigneeID   sql.NullString
		assigneeName sql.NullString
		createdAt    int64
		updatedAt    int64
	)
	err := row.Scan(&t.TaskID, &t.ProjectID, &t.Title, &description, &t.Status, &priority, &dueDate,
		&department, &zone, &assigneeID, &assigneeName, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		t.Description = &description.String
	}
	t.Priority = models.Priority(priority)
	if dueDate.Valid {
		d := unixTime(dueDate.Int64)
		t.DueDate = &d
	}
	t.Department = models.Department(department.String)
	t.Zone = models.Zone(zone.String)
	if assigneeID.Valid {
		t.AssigneeID = &assigneeID.String
	}
	if assigneeName.Valid {
		t.AssigneeName = &assigneeName.String
	}
	t.CreatedAt = unixTime(createdAt)
	t.UpdatedAt = unixTime(updatedAt)
	return &t, nil
}

func collectTasks(rows *sql.Rows) ([]Task, error) {
	defer func() { _ = rows.Close() }()
	var out []Task
	for rows.Next() {
		task, err := ScanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *task)
	}
	return out, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (s *sqliteStore) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT project_id, name, created_at FROM projects ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Project
	for rows.Next() {
		var p Project
		var createdAt int64
		if err := rows.Scan(&p.ProjectID, &p.Name, &createdAt); err != nil {
			return nil, err
		}
		p.CreatedAt = unixTime(createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *sqliteStore) CreateProject(ctx context.Context, name string) (Project, error) {
	if name == "" {
		return Project{}, errors.New("project name required")
	}
	p := Project{ProjectID: uuid.NewString(), Name: name}
	now := nowNano()
	if _, err := s.DB.ExecContext(ctx, `INSERT INTO projects(project_id, name, created_at) VALUES(?, ?, ?)`, p.ProjectID, name, now); err != nil {
		return Project{}, err
	}
	p.CreatedAt = unixTime(now)
	return p, nil
}

func (s *sqliteStore) ListEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT employee_id, name, email, department, created_at FROM employees ORDER BY name ASC, created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanEmployee(row interface{ Scan(dest ...any) error }) (*Employee, error) {
	var (
		e          Employee
		email      sql.NullString
		department sql.NullString
		createdAt  int64
	)
	if err := row.Scan(&e.EmployeeID, &e.Name, &email, &department, &createdAt); err != nil {
		return nil, err
	}
	e.Email = email.String
	e.Department = models.Department(department.String)
	e.CreatedAt = unixTime(createdAt)
	return &e, nil
}

func (s *sqliteStore) CreateEmployee(ctx context.Context, name, email string, dept models.Department) (Employee, error) {
	if name == "" {
		return Employee{}, errors.New("employee name required")
	}
	if dept.IsSet() && !dept.Valid() {
		return Employee{}, fmt.Errorf("invalid department %q", dept)
	}
	e := Employee{EmployeeID: uuid.NewString(), Name: name, Email: email, Department: dept}
	now := nowNano()
	_, err := s.DB.ExecContext(ctx, `INSERT INTO employees(employee_id, name, email, department, created_at) VALUES(?, ?, ?, ?, ?)`,
		e.EmployeeID, name, nullString(email), nullString(string(dept)), now)
	if err != nil {
		return Employee{}, err
	}
	e.CreatedAt = unixTime(now)
	return e, nil
}

func (s *sqliteStore) FindEmployee(ctx context.Context, employeeID string) (*Employee, error) {
	return findEmployee(ctx, s.DB, employeeID)
}

func findEmployee(ctx context.Context, q queryer, employeeID string) (*Employee, error) {
	row := q.QueryRowContext(ctx, `SELECT employee_id, name, email, department, created_at FROM employees WHERE employee_id = ?`, employeeID)
	e, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (s *sqliteStore) SetEmployeeDepartment(ctx context.Context, employeeID string, dept models.Department) error {
	if dept.IsSet() && !dept.Valid() {
		return fmt.Errorf("invalid department %q", dept)
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE employees SET department = ? WHERE employee_id = ?`, nullString(string(dept)), employeeID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("employee not found: %s", employeeID)
	}
	return nil
}

func (s *sqliteStore) CreateTask(ctx context.Context, in NewTask) (Task, error) {
	in, err := ValidateNewTask(in)
	if err != nil {
		return Task{}, err
	}
	now := nowNano()
	var due any
	if in.DueDate != nil {
		due = in.DueDate.UTC().UnixNano()
	}
	var desc any
	if in.Description != nil {
		desc = *in.Description
	}
	id := uuid.NewString()
	_, err = s.DB.ExecContext(ctx, `
INSERT INTO tasks(task_id, project_id, title, description, status, priority, due_date, department, zone, assignee_id, created_at, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?, NULL, NULL, NULL, ?, ?)`,
		id, in.ProjectID, in.Title, desc, in.Status, int64(in.Priority), due, now, now)
	if err != nil {
		return Task{}, err
	}
	task, err := s.FindTask(ctx, id)
	if err != nil {
		return Task{}, err
	}
	return *task, nil
}

func (s *sqliteStore) FindTask(ctx context.Context, taskID string) (*Task, error) {
	return findTask(ctx, s.DB, taskID)
}

func findTask(ctx context.Context, q queryer, taskID string) (*Task, error) {
	row := q.QueryRowContext(ctx, `SELECT `+TaskColumns+` `+TaskFrom+` WHERE t.task_id = ?`, taskID)
	task, err := ScanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return task, err
}

func (s *sqliteStore) FindTasksByDepartment(ctx context.Context, dept models.Department) ([]Task, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+TaskColumns+` `+TaskFrom+` WHERE t.department = ? `+BoardOrder, string(dept))
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

func (s *sqliteStore) ListUnplacedTasks(ctx context.Context) ([]Task, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+TaskColumns+` `+TaskFrom+` WHERE t.department IS NULL `+BoardOrder)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

func (s *sqliteStore) CountTasksByZone(ctx context.Context) (map[models.Zone]int64, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT COALESCE(zone, 'SHELF'), COUNT(*) FROM tasks WHERE department IS NOT NULL GROUP BY COALESCE(zone, 'SHELF')`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
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

func (s *sqliteStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// sqliteTx implements Tx over an immediate (write-locked) transaction.
type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) FindTask(ctx context.Context, taskID string) (*Task, error) {
	return findTask(ctx, t.tx, taskID)
}

func (t *sqliteTx) FindEmployee(ctx context.Context, employeeID string) (*Employee, error) {
	return findEmployee(ctx, t.tx, employeeID)
}

func (t *sqliteTx) FindActiveTasksForEmployee(ctx context.Context, employeeID, excludeTaskID string) ([]Task, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+TaskColumns+` `+TaskFrom+`
WHERE t.zone = 'ACTIVE' AND t.assignee_id = ? AND t.task_id != ?`, employeeID, excludeTaskID)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

func (t *sqliteTx) UpdateTask(ctx context.Context, taskID string, patch TaskPatch) error {
	sets, args := PatchAssignments(patch, func(int) string { return "?" })
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, nowNano(), taskID)
	_, err := t.tx.ExecContext(ctx, `UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE task_id = ?`, args...)
	if isUniqueViolation(err) {
		return ErrActiveSlotTaken
	}
	return err
}

// PatchAssignments renders patch as SQL "col = <placeholder>" fragments. placeholder
// receives the 1-based argument position.
func PatchAssignments(patch TaskPatch, placeholder func(n int) string) ([]string, []any) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = "+placeholder(len(args)))
	}
	if patch.Department != nil {
		add("department", nullString(string(*patch.Department)))
	}
	if patch.Zone != nil {
		add("zone", nullString(string(*patch.Zone)))
	}
	switch {
	case patch.ClearAssignee:
		sets = append(sets, "assignee_id = NULL")
	case patch.AssigneeID != nil:
		add("assignee_id", *patch.AssigneeID)
	}
	return sets, args
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		// primary code only when extended result codes are off
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			(se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE"))
	}
	return false
}
