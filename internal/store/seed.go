package store

import (
	"context"

	"github.com/ankittk/taskzone/pkg/models"
)

// Seed inserts a demo project, a few employees, and unplaced tasks into an empty store.
// It is a no-op once any project exists.
func Seed(ctx context.Context, s Store) error {
	projects, err := s.ListProjects(ctx)
	if err != nil {
		return err
	}
	if len(projects) > 0 {
		return nil
	}
	p, err := s.CreateProject(ctx, "Operations")
	if err != nil {
		return err
	}
	for _, e := range []struct {
		name string
		dept models.Department
	}{
		{"alice", models.DeptLab},
		{"bob", models.DeptLab},
		{"carol", models.DeptStudio},
		{"dave", models.DeptWorkshop},
	} {
		if _, err := s.CreateEmployee(ctx, e.name, e.name+"@example.com", e.dept); err != nil {
			return err
		}
	}
	for _, title := range []string{"Calibrate spectrometer", "Prepare sample kits", "Photograph catalogue"} {
		if _, err := s.CreateTask(ctx, NewTask{ProjectID: p.ProjectID, Title: title}); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteStore) SeedDemo(ctx context.Context) error { return Seed(ctx, s) }
