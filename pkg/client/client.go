// Package client provides a Go SDK for the taskzone HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/ankittk/taskzone/pkg/models"
)

// Client calls the taskzone HTTP API. It is safe for concurrent use.
type Client struct {
	BaseURL    string       // e.g. "http://localhost:3550"
	APIKey     string       // optional; sent as X-API-Key
	HTTPClient *http.Client // optional; nil uses http.DefaultClient
}

// New returns a client for the given base URL. APIKey is optional.
func New(baseURL, apiKey string) *Client {
	return &Client{BaseURL: baseURL, APIKey: apiKey}
}

// Error is returned for non-2xx responses. Kind mirrors the server's error kind
// (not_found, validation, constraint_violation, store_failure).
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Kind       string
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s %s: %s", e.Method, e.Path, e.Message)
	}
	return fmt.Sprintf("api %s %s: status %d", e.Method, e.Path, e.StatusCode)
}

func (c *Client) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}
	return c.client().Do(req)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody models.APIError
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return &Error{Method: method, Path: path, StatusCode: resp.StatusCode, Kind: errBody.Kind, Message: errBody.Error}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func taskPath(id string, suffix string) string {
	return "/tasks/" + url.PathEscape(id) + suffix
}

// Health returns the /health response (ok: true).
func (c *Client) Health(ctx context.Context) (ok bool, err error) {
	var out struct {
		OK bool `json:"ok"`
	}
	err = c.doJSON(ctx, http.MethodGet, "/health", nil, &out)
	return out.OK, err
}

// Departments returns the fixed department list.
func (c *Client) Departments(ctx context.Context) ([]models.Department, error) {
	var out []models.Department
	err := c.doJSON(ctx, http.MethodGet, "/departments", nil, &out)
	return out, err
}

// Board returns a department's tasks grouped by zone.
func (c *Client) Board(ctx context.Context, dept models.Department) (*models.Board, error) {
	var out models.Board
	err := c.doJSON(ctx, http.MethodGet, "/departments/"+url.PathEscape(string(dept))+"/board", nil, &out)
	return &out, err
}

// CreateTask creates an unplaced task.
func (c *Client) CreateTask(ctx context.Context, in models.NewTask) (*models.Task, error) {
	var out models.Task
	err := c.doJSON(ctx, http.MethodPost, "/tasks", in, &out)
	return &out, err
}

// GetTask returns one task.
func (c *Client) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var out models.Task
	err := c.doJSON(ctx, http.MethodGet, taskPath(id, ""), nil, &out)
	return &out, err
}

// UnplacedTasks returns tasks that have not been triaged to a department.
func (c *Client) UnplacedTasks(ctx context.Context) ([]models.Task, error) {
	var out []models.Task
	err := c.doJSON(ctx, http.MethodGet, "/tasks?unplaced=1", nil, &out)
	return out, err
}

// MoveTask moves a task to a zone. employeeID is required for ACTIVE and ignored otherwise.
func (c *Client) MoveTask(ctx context.Context, id string, zone models.Zone, employeeID string) (*models.Task, error) {
	var out models.Task
	err := c.doJSON(ctx, http.MethodPost, taskPath(id, "/zone"), models.MoveRequest{Zone: zone, EmployeeID: employeeID}, &out)
	return &out, err
}

// AssignTask assigns a task to an employee.
func (c *Client) AssignTask(ctx context.Context, id, employeeID string) (*models.Task, error) {
	var out models.Task
	err := c.doJSON(ctx, http.MethodPost, taskPath(id, "/assignee"), models.AssignRequest{EmployeeID: employeeID}, &out)
	return &out, err
}

// TriageTask places a task in a department's SHELF, clearing its assignee.
func (c *Client) TriageTask(ctx context.Context, id string, dept models.Department) (*models.Task, error) {
	var out models.Task
	err := c.doJSON(ctx, http.MethodPost, taskPath(id, "/department"), models.TriageRequest{Department: dept}, &out)
	return &out, err
}

// ListEmployees returns the employee directory.
func (c *Client) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	var out []models.Employee
	err := c.doJSON(ctx, http.MethodGet, "/employees", nil, &out)
	return out, err
}

// CreateEmployee adds a directory entry.
func (c *Client) CreateEmployee(ctx context.Context, in models.NewEmployee) (*models.Employee, error) {
	var out models.Employee
	err := c.doJSON(ctx, http.MethodPost, "/employees", in, &out)
	return &out, err
}

// GetEmployee returns one employee by ID.
func (c *Client) GetEmployee(ctx context.Context, id string) (*models.Employee, error) {
	var out models.Employee
	if err := c.doJSON(ctx, http.MethodGet, "/employees/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetEmployeeDepartment changes an employee's department affiliation.
func (c *Client) SetEmployeeDepartment(ctx context.Context, id string, dept models.Department) (*models.Employee, error) {
	var out models.Employee
	err := c.doJSON(ctx, http.MethodPatch, "/employees/"+url.PathEscape(id), map[string]any{"department": dept}, &out)
	return &out, err
}

// ListProjects returns all projects.
func (c *Client) ListProjects(ctx context.Context) ([]models.Project, error) {
	var out []models.Project
	err := c.doJSON(ctx, http.MethodGet, "/projects", nil, &out)
	return out, err
}

// CreateProject creates a project.
func (c *Client) CreateProject(ctx context.Context, name string) (*models.Project, error) {
	var out models.Project
	err := c.doJSON(ctx, http.MethodPost, "/projects", map[string]string{"name": name}, &out)
	return &out, err
}
