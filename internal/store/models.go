// Package store defines the persistence interface and shared models for projects,
// employees, and tasks, plus the default SQLite implementation.
package store

import (
	"errors"
	"time"

	"github.com/ankittk/taskzone/pkg/models"
)

// ErrActiveSlotTaken is returned by Tx.UpdateTask when the database rejects a second
// ACTIVE task for the same employee.
var ErrActiveSlotTaken = errors.New("employee already holds an active task")

// Project is the parent work unit of tasks.
type Project struct {
	ProjectID string
	Name      string
	CreatedAt time.Time
}

// Employee is a directory entry. Department is empty when the employee is unaffiliated.
type Employee struct {
	EmployeeID string
	Name       string
	Email      string
	Department models.Department
	CreatedAt  time.Time
}

// Task is a work item. Department and Zone are empty until the task is triaged;
// AssigneeName is joined from the directory for display.
type Task struct {
	TaskID       string
	ProjectID    string
	Title        string
	Description  *string
	Status       string
	Priority     models.Priority
	DueDate      *time.Time
	Department   models.Department
	Zone         models.Zone
	AssigneeID   *string
	AssigneeName *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Triaged reports whether the task has been placed in a department.
func (t *Task) Triaged() bool { return t.Department.IsSet() }

// BoardZone is the zone the task is displayed in; an unset zone shows as SHELF.
func (t *Task) BoardZone() models.Zone {
	if !t.Zone.IsSet() {
		return models.ZoneShelf
	}
	return t.Zone
}

// AssignedTo reports whether employeeID is the current assignee.
func (t *Task) AssignedTo(employeeID string) bool {
	return t.AssigneeID != nil && *t.AssigneeID == employeeID
}

// NewTask holds the fields for CreateTask. New tasks are always unplaced.
type NewTask struct {
	ProjectID   string
	Title       string
	Description *string
	Status      string          // default OPEN
	Priority    models.Priority // default MEDIUM
	DueDate     *time.Time
}

// TaskPatch is a partial update of a task's workflow attributes. Nil fields are left
// unchanged. ClearAssignee takes precedence over AssigneeID.
type TaskPatch struct {
	Department    *models.Department
	Zone          *models.Zone
	AssigneeID    *string
	ClearAssignee bool
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Department == nil && p.Zone == nil && p.AssigneeID == nil && !p.ClearAssignee
}

// ValidateNewTask applies defaults and validates in.
func ValidateNewTask(in NewTask) (NewTask, error) {
	if in.Title == "" {
		return in, errors.New("title required")
	}
	if in.ProjectID == "" {
		return in, errors.New("project_id required")
	}
	if in.Status == "" {
		in.Status = models.StatusOpen
	}
	if !models.ValidStatus(in.Status) {
		return in, errors.New("invalid status: " + in.Status)
	}
	if in.Priority == 0 {
		in.Priority = models.PriorityMedium
	}
	if !in.Priority.Valid() {
		return in, errors.New("invalid priority")
	}
	return in, nil
}

