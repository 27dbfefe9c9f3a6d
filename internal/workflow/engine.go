// Package workflow moves tasks between the zones of a department board and enforces
// the assignment rules: an ACTIVE task always has an assignee, an assignee belongs to
// the task's department, and an employee holds at most one ACTIVE task.
package workflow

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ankittk/taskzone/internal/otel"
	"github.com/ankittk/taskzone/internal/store"
	"github.com/ankittk/taskzone/pkg/models"
)

// Operation names used in errors, logs, metrics, and events.
const (
	OpBoard    = "board"
	OpMove     = "move"
	OpAssign   = "assign"
	OpTriage   = "triage"
	OpUnplaced = "unplaced"
	OpGetTask  = "get_task"
)

// Event describes a committed change to a task.
type Event struct {
	Op   string
	Task store.Task
}

// Engine holds no state between calls; every check re-reads the store inside the
// transaction that performs the write.
type Engine struct {
	Store  store.Store
	Logger *slog.Logger
	// OnChange, if set, is called after each successful mutation commits.
	OnChange func(ctx context.Context, ev Event)
}

// New returns an Engine over st.
func New(st store.Store, logger *slog.Logger) *Engine {
	return &Engine{Store: st, Logger: logger}
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// TasksByDepartment returns the department's tasks grouped by zone in board order.
func (e *Engine) TasksByDepartment(ctx context.Context, dept models.Department) (*Board, error) {
	if !dept.Valid() {
		return nil, e.reject(ctx, fail(OpBoard, ErrInvalidDepartment, "%q", dept))
	}
	tasks, err := e.Store.FindTasksByDepartment(ctx, dept)
	if err != nil {
		return nil, e.reject(ctx, storeFailure(OpBoard, err))
	}
	return GroupByZone(dept, tasks), nil
}

// UnplacedTasks returns tasks that have not been triaged into a department.
func (e *Engine) UnplacedTasks(ctx context.Context) ([]store.Task, error) {
	tasks, err := e.Store.ListUnplacedTasks(ctx)
	if err != nil {
		return nil, e.reject(ctx, storeFailure(OpUnplaced, err))
	}
	return tasks, nil
}

// Task returns one task with its assignee's name joined.
func (e *Engine) Task(ctx context.Context, taskID string) (*store.Task, error) {
	task, err := e.Store.FindTask(ctx, taskID)
	if err != nil {
		return nil, e.reject(ctx, storeFailure(OpGetTask, err))
	}
	if task == nil {
		return nil, e.reject(ctx, fail(OpGetTask, ErrTaskNotFound, "%s", taskID))
	}
	return task, nil
}

// MoveTaskToZone moves a task to zone. Entering ACTIVE requires employeeID and makes
// that employee the assignee; any other target keeps the current assignee and ignores
// employeeID.
func (e *Engine) MoveTaskToZone(ctx context.Context, taskID string, zone models.Zone, employeeID string) (*store.Task, error) {
	if !zone.Valid() {
		return nil, e.reject(ctx, fail(OpMove, ErrInvalidZone, "%q", zone))
	}
	if zone == models.ZoneActive && employeeID == "" {
		return nil, e.reject(ctx, fail(OpMove, ErrEmployeeRequired, ""))
	}
	return e.mutate(ctx, OpMove, taskID, func(tx store.Tx, task *store.Task) (store.TaskPatch, error) {
		patch := store.TaskPatch{Zone: &zone}
		if zone != models.ZoneActive {
			return patch, nil
		}
		emp, err := tx.FindEmployee(ctx, employeeID)
		if err != nil {
			return patch, err
		}
		if emp == nil {
			return patch, fail(OpMove, ErrEmployeeNotFound, "%s", employeeID)
		}
		// The current assignee already passed the department check when assigned.
		if !task.AssignedTo(employeeID) && task.Triaged() && emp.Department != task.Department {
			return patch, fail(OpMove, ErrDepartmentMismatch, "task is in %s, employee in %s", task.Department, deptLabel(emp.Department))
		}
		if err := checkExclusive(ctx, tx, OpMove, employeeID, task.TaskID); err != nil {
			return patch, err
		}
		patch.AssigneeID = &employeeID
		return patch, nil
	})
}

// AssignTaskToUser sets the task's assignee. The zone is unchanged; if the task is
// ACTIVE the new assignee must not already hold another ACTIVE task.
func (e *Engine) AssignTaskToUser(ctx context.Context, taskID, employeeID string) (*store.Task, error) {
	return e.mutate(ctx, OpAssign, taskID, func(tx store.Tx, task *store.Task) (store.TaskPatch, error) {
		patch := store.TaskPatch{AssigneeID: &employeeID}
		emp, err := tx.FindEmployee(ctx, employeeID)
		if err != nil {
			return patch, err
		}
		if emp == nil {
			return patch, fail(OpAssign, ErrEmployeeNotFound, "%s", employeeID)
		}
		if task.Triaged() && emp.Department != task.Department {
			return patch, fail(OpAssign, ErrDepartmentMismatch, "task is in %s, employee in %s", task.Department, deptLabel(emp.Department))
		}
		if task.Zone == models.ZoneActive {
			if err := checkExclusive(ctx, tx, OpAssign, employeeID, task.TaskID); err != nil {
				return patch, err
			}
		}
		return patch, nil
	})
}

// AssignTaskToDepartment re-triages a task: department set, zone reset to SHELF,
// assignee cleared.
func (e *Engine) AssignTaskToDepartment(ctx context.Context, taskID string, dept models.Department) (*store.Task, error) {
	if !dept.Valid() {
		return nil, e.reject(ctx, fail(OpTriage, ErrInvalidDepartment, "%q", dept))
	}
	shelf := models.ZoneShelf
	return e.mutate(ctx, OpTriage, taskID, func(store.Tx, *store.Task) (store.TaskPatch, error) {
		return store.TaskPatch{Department: &dept, Zone: &shelf, ClearAssignee: true}, nil
	})
}

// mutate loads the task, asks plan for a patch, applies it and re-reads the task, all in
// one transaction. Any error rolls the whole thing back.
func (e *Engine) mutate(ctx context.Context, op, taskID string, plan func(tx store.Tx, task *store.Task) (store.TaskPatch, error)) (*store.Task, error) {
	var updated *store.Task
	err := e.Store.InTx(ctx, func(tx store.Tx) error {
		task, err := tx.FindTask(ctx, taskID)
		if err != nil {
			return err
		}
		if task == nil {
			return fail(op, ErrTaskNotFound, "%s", taskID)
		}
		patch, err := plan(tx, task)
		if err != nil {
			return err
		}
		if err := tx.UpdateTask(ctx, taskID, patch); err != nil {
			if errors.Is(err, store.ErrActiveSlotTaken) {
				return fail(op, ErrExclusivity, "")
			}
			return err
		}
		updated, err = tx.FindTask(ctx, taskID)
		return err
	})
	if err != nil {
		return nil, e.reject(ctx, storeFailure(op, err))
	}
	if updated == nil {
		return nil, e.reject(ctx, storeFailure(op, errors.New("task vanished after update")))
	}
	e.logger().Info("task updated", "op", op, "task", updated.TaskID,
		"department", updated.Department, "zone", updated.Zone, "assignee", deref(updated.AssigneeID))
	otel.RecordTransition(ctx, op, updated.Department.String(), updated.BoardZone().String())
	if e.OnChange != nil {
		e.OnChange(ctx, Event{Op: op, Task: *updated})
	}
	return updated, nil
}

// checkExclusive fails if employeeID holds an ACTIVE task other than taskID.
func checkExclusive(ctx context.Context, tx store.Tx, op, employeeID, taskID string) error {
	active, err := tx.FindActiveTasksForEmployee(ctx, employeeID, taskID)
	if err != nil {
		return err
	}
	if len(active) > 0 {
		return fail(op, ErrExclusivity, "employee %s is active on %s", employeeID, active[0].TaskID)
	}
	return nil
}

func (e *Engine) reject(ctx context.Context, err error) error {
	var we *Error
	if !errors.As(err, &we) {
		return err
	}
	otel.RecordRejection(ctx, we.Op, string(we.Kind))
	if we.Kind == KindStoreFailure {
		e.logger().Error("workflow store failure", "op", we.Op, "err", err)
	} else {
		e.logger().Info("workflow rejected", "op", we.Op, "kind", we.Kind, "reason", we.Reason)
	}
	return err
}

func deptLabel(d models.Department) string {
	if !d.IsSet() {
		return "no department"
	}
	return d.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
