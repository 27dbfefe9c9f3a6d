package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/ankittk/taskzone/internal/store"
	"github.com/ankittk/taskzone/pkg/models"
	"github.com/gorilla/mux"
)

func (a *App) routes(r *mux.Router) {
	r.HandleFunc("/departments", a.listDepartments).Methods(http.MethodGet)
	r.HandleFunc("/departments/{department}/board", a.getBoard).Methods(http.MethodGet)

	r.HandleFunc("/tasks", a.listTasks).Methods(http.MethodGet)
	r.HandleFunc("/tasks", a.createTask).Methods(http.MethodPost)
	r.HandleFunc("/tasks/{id}", a.getTask).Methods(http.MethodGet)
	r.HandleFunc("/tasks/{id}/zone", a.moveTask).Methods(http.MethodPost)
	r.HandleFunc("/tasks/{id}/assignee", a.assignTask).Methods(http.MethodPost)
	r.HandleFunc("/tasks/{id}/department", a.triageTask).Methods(http.MethodPost)

	r.HandleFunc("/employees", a.listEmployees).Methods(http.MethodGet)
	r.HandleFunc("/employees", a.createEmployee).Methods(http.MethodPost)
	r.HandleFunc("/employees/{id}", a.getEmployee).Methods(http.MethodGet)
	r.HandleFunc("/employees/{id}", a.patchEmployee).Methods(http.MethodPatch)

	r.HandleFunc("/projects", a.listProjects).Methods(http.MethodGet)
	r.HandleFunc("/projects", a.createProject).Methods(http.MethodPost)
}

// decode reads a JSON body into v, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, models.ErrorKindValidation, "invalid json: "+err.Error())
		return false
	}
	return true
}

func (a *App) listDepartments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, models.Departments)
}

func (a *App) getBoard(w http.ResponseWriter, r *http.Request) {
	dept, err := models.ParseDepartment(mux.Vars(r)["department"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, models.ErrorKindValidation, err.Error())
		return
	}
	board, err := a.Engine.TasksByDepartment(r.Context(), dept)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, board.Model())
}

// listTasks serves the triage inbox (?unplaced=1) or a department's tasks in board order
// (?department=LAB).
func (a *App) listTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if d := q.Get("department"); d != "" {
		dept, err := models.ParseDepartment(d)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, models.ErrorKindValidation, err.Error())
			return
		}
		tasks, err := a.Store.FindTasksByDepartment(r.Context(), dept)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, models.ErrorKindStoreFailure, err.Error())
			return
		}
		writeJSON(w, store.TaskModels(tasks))
		return
	}
	if u := q.Get("unplaced"); u != "1" && u != "true" {
		writeJSONError(w, http.StatusBadRequest, models.ErrorKindValidation, "query department=<DEPT> or unplaced=1 required")
		return
	}
	tasks, err := a.Engine.UnplacedTasks(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, store.TaskModels(tasks))
}

func (a *App) createTask(w http.ResponseWriter, r *http.Request) {
	var body models.NewTask
	if !decode(w, r, &body) {
		return
	}
	in, err := store.ValidateNewTask(store.NewTask{
		ProjectID:   body.ProjectID,
		Title:       body.Title,
		Description: body.Description,
		Priority:    body.Priority,
		DueDate:     body.DueDate,
	})
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, models.ErrorKindValidation, err.Error())
		return
	}
	projects, err := a.Store.ListProjects(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, models.ErrorKindStoreFailure, err.Error())
		return
	}
	found := false
	for _, p := range projects {
		if p.ProjectID == in.ProjectID {
			found = true
			break
		}
	}
	if !found {
		writeJSONError(w, http.StatusNotFound, models.ErrorKindNotFound, "project not found")
		return
	}
	task, err := a.Store.CreateTask(r.Context(), in)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, models.ErrorKindStoreFailure, err.Error())
		return
	}
	out := task.Model()
	a.Hub.PublishJSON(map[string]any{"type": "task_update", "op": "create", "task": out})
	writeJSONStatus(w, http.StatusCreated, out)
}

func (a *App) getTask(w http.ResponseWriter, r *http.Request) {
	task, err := a.Engine.Task(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, task.Model())
}

func (a *App) moveTask(w http.ResponseWriter, r *http.Request) {
	var body models.MoveRequest
	if !decode(w, r, &body) {
		return
	}
	task, err := a.Engine.MoveTaskToZone(r.Context(), mux.Vars(r)["id"], body.Zone, body.EmployeeID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, task.Model())
}

func (a *App) assignTask(w http.ResponseWriter, r *http.Request) {
	var body models.AssignRequest
	if !decode(w, r, &body) {
		return
	}
	if body.EmployeeID == "" {
		writeJSONError(w, http.StatusBadRequest, models.ErrorKindValidation, "employee_id required")
		return
	}
	task, err := a.Engine.AssignTaskToUser(r.Context(), mux.Vars(r)["id"], body.EmployeeID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, task.Model())
}

func (a *App) triageTask(w http.ResponseWriter, r *http.Request) {
	var body models.TriageRequest
	if !decode(w, r, &body) {
		return
	}
	task, err := a.Engine.AssignTaskToDepartment(r.Context(), mux.Vars(r)["id"], body.Department)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, task.Model())
}

func (a *App) listEmployees(w http.ResponseWriter, r *http.Request) {
	emps, err := a.Store.ListEmployees(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, models.ErrorKindStoreFailure, err.Error())
		return
	}
	out := make([]models.Employee, 0, len(emps))
	for _, e := range emps {
		out = append(out, e.Model())
	}
	writeJSON(w, out)
}

func (a *App) createEmployee(w http.ResponseWriter, r *http.Request) {
	var body models.NewEmployee
	if !decode(w, r, &body) {
		return
	}
	if body.Name == "" {
		writeJSONError(w, http.StatusBadRequest, models.ErrorKindValidation, "name required")
		return
	}
	e, err := a.Store.CreateEmployee(r.Context(), body.Name, body.Email, body.Department)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, models.ErrorKindStoreFailure, err.Error())
		return
	}
	writeJSONStatus(w, http.StatusCreated, e.Model())
}

func (a *App) findEmployee(w http.ResponseWriter, r *http.Request) *store.Employee {
	e, err := a.Store.FindEmployee(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, models.ErrorKindStoreFailure, err.Error())
		return nil
	}
	if e == nil {
		writeJSONError(w, http.StatusNotFound, models.ErrorKindNotFound, "employee not found")
		return nil
	}
	return e
}

func (a *App) getEmployee(w http.ResponseWriter, r *http.Request) {
	if e := a.findEmployee(w, r); e != nil {
		writeJSON(w, e.Model())
	}
}

// patchEmployee changes the employee's department. Existing assignments are not revisited.
func (a *App) patchEmployee(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Department models.Department `json:"department"`
	}
	if !decode(w, r, &body) {
		return
	}
	e := a.findEmployee(w, r)
	if e == nil {
		return
	}
	if err := a.Store.SetEmployeeDepartment(r.Context(), e.EmployeeID, body.Department); err != nil {
		writeJSONError(w, http.StatusInternalServerError, models.ErrorKindStoreFailure, err.Error())
		return
	}
	e.Department = body.Department
	writeJSON(w, e.Model())
}

func (a *App) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := a.Store.ListProjects(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, models.ErrorKindStoreFailure, err.Error())
		return
	}
	out := make([]models.Project, 0, len(projects))
	for _, p := range projects {
		out = append(out, p.Model())
	}
	writeJSON(w, out)
}

func (a *App) createProject(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if !decode(w, r, &body) {
		return
	}
	if body.Name == "" {
		writeJSONError(w, http.StatusBadRequest, models.ErrorKindValidation, "name required")
		return
	}
	p, err := a.Store.CreateProject(r.Context(), body.Name)
	if err != nil {
		writeJSONError(w, http.StatusConflict, models.ErrorKindConstraintViolation, err.Error())
		return
	}
	writeJSONStatus(w, http.StatusCreated, p.Model())
}
