// Package models provides shared types for the taskzone HTTP API and external tools.
// These types mirror the API JSON and are stable for use by pkg/client and other consumers.
package models

import "time"

// Task is a work item placed (or not yet placed) on a department board.
type Task struct {
	ID           string     `json:"id"`
	ProjectID    string     `json:"project_id"`
	Title        string     `json:"title"`
	Description  *string    `json:"description,omitempty"`
	Status       string     `json:"status"`
	Priority     Priority   `json:"priority"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	Department   Department `json:"department,omitempty"`
	Zone         Zone       `json:"zone,omitempty"`
	AssigneeID   *string    `json:"assignee_id,omitempty"`
	AssigneeName *string    `json:"assignee_name,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Employee is a directory entry with a single department affiliation.
type Employee struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email,omitempty"`
	Department Department `json:"department,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Project is the parent work unit of tasks.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Board is a department's tasks grouped by zone. Unplaced tasks appear under SHELF.
type Board struct {
	Department Department `json:"department"`
	Shelf      []Task     `json:"SHELF"`
	Storage    []Task     `json:"STORAGE"`
	Dock       []Task     `json:"DOCK"`
	Active     []Task     `json:"ACTIVE"`
}

// NewTask is the POST /tasks request body.
type NewTask struct {
	ProjectID   string     `json:"project_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// NewEmployee is the POST /employees request body.
type NewEmployee struct {
	Name       string     `json:"name"`
	Email      string     `json:"email,omitempty"`
	Department Department `json:"department,omitempty"`
}

// MoveRequest is the POST /tasks/{id}/zone request body.
type MoveRequest struct {
	Zone       Zone   `json:"zone"`
	EmployeeID string `json:"employee_id,omitempty"`
}

// AssignRequest is the POST /tasks/{id}/assignee request body.
type AssignRequest struct {
	EmployeeID string `json:"employee_id"`
}

// TriageRequest is the POST /tasks/{id}/department request body.
type TriageRequest struct {
	Department Department `json:"department"`
}

// Error kinds reported in API error bodies.
const (
	ErrorKindNotFound            = "not_found"
	ErrorKindValidation          = "validation"
	ErrorKindConstraintViolation = "constraint_violation"
	ErrorKindStoreFailure        = "store_failure"
)

// APIError is the JSON body of a failed request.
type APIError struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
