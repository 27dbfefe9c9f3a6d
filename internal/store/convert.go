package store

import "github.com/ankittk/taskzone/pkg/models"

// Model returns the API representation of t.
func (t Task) Model() models.Task {
	return models.Task{
		ID:           t.TaskID,
		ProjectID:    t.ProjectID,
		Title:        t.Title,
		Description:  t.Description,
		Status:       t.Status,
		Priority:     t.Priority,
		DueDate:      t.DueDate,
		Department:   t.Department,
		Zone:         t.Zone,
		AssigneeID:   t.AssigneeID,
		AssigneeName: t.AssigneeName,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

// TaskModels converts a slice of tasks, returning an empty (not nil) slice for no tasks.
func TaskModels(in []Task) []models.Task {
	out := make([]models.Task, 0, len(in))
	for _, t := range in {
		out = append(out, t.Model())
	}
	return out
}

func (e Employee) Model() models.Employee {
	return models.Employee{ID: e.EmployeeID, Name: e.Name, Email: e.Email, Department: e.Department, CreatedAt: e.CreatedAt}
}

func (p Project) Model() models.Project {
	return models.Project{ID: p.ProjectID, Name: p.Name, CreatedAt: p.CreatedAt}
}
