package workflow

import (
	"github.com/ankittk/taskzone/internal/store"
	"github.com/ankittk/taskzone/pkg/models"
)

// Board is a department's tasks split into the four zones. Each bucket keeps the
// order the tasks were given in.
type Board struct {
	Department models.Department
	Shelf      []store.Task
	Storage    []store.Task
	Dock       []store.Task
	Active     []store.Task
}

// GroupByZone buckets tasks by zone; a task with no zone lands in Shelf. The tasks
// themselves are not modified.
func GroupByZone(dept models.Department, tasks []store.Task) *Board {
	b := &Board{
		Department: dept,
		Shelf:      []store.Task{},
		Storage:    []store.Task{},
		Dock:       []store.Task{},
		Active:     []store.Task{},
	}
	for _, t := range tasks {
		switch t.BoardZone() {
		case models.ZoneStorage:
			b.Storage = append(b.Storage, t)
		case models.ZoneDock:
			b.Dock = append(b.Dock, t)
		case models.ZoneActive:
			b.Active = append(b.Active, t)
		default:
			b.Shelf = append(b.Shelf, t)
		}
	}
	return b
}

// Zone returns the bucket for z.
func (b *Board) Zone(z models.Zone) []store.Task {
	switch z {
	case models.ZoneStorage:
		return b.Storage
	case models.ZoneDock:
		return b.Dock
	case models.ZoneActive:
		return b.Active
	default:
		return b.Shelf
	}
}

// Len is the total number of tasks on the board.
func (b *Board) Len() int {
	return len(b.Shelf) + len(b.Storage) + len(b.Dock) + len(b.Active)
}

// Model returns the API representation of the board.
func (b *Board) Model() models.Board {
	return models.Board{
		Department: b.Department,
		Shelf:      store.TaskModels(b.Shelf),
		Storage:    store.TaskModels(b.Storage),
		Dock:       store.TaskModels(b.Dock),
		Active:     store.TaskModels(b.Active),
	}
}
