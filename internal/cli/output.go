package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ankittk/taskzone/pkg/models"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// taskLine renders one task as "- <id> [PRIORITY] title (zone, @assignee)".
func taskLine(t models.Task) string {
	var meta []string
	if t.Department != "" {
		meta = append(meta, string(t.Department))
	}
	if t.Zone != "" {
		meta = append(meta, string(t.Zone))
	}
	if t.AssigneeName != nil {
		meta = append(meta, "@"+*t.AssigneeName)
	} else if t.AssigneeID != nil {
		meta = append(meta, "@"+*t.AssigneeID)
	}
	s := fmt.Sprintf("- %s [%s] %s", t.ID, t.Priority, t.Title)
	if len(meta) > 0 {
		s += " (" + strings.Join(meta, ", ") + ")"
	}
	return s
}

func printTask(w io.Writer, t models.Task) {
	_, _ = fmt.Fprintf(w, "id:         %s\n", t.ID)
	_, _ = fmt.Fprintf(w, "title:      %s\n", t.Title)
	_, _ = fmt.Fprintf(w, "project:    %s\n", t.ProjectID)
	_, _ = fmt.Fprintf(w, "status:     %s\n", t.Status)
	_, _ = fmt.Fprintf(w, "priority:   %s\n", t.Priority)
	_, _ = fmt.Fprintf(w, "department: %s\n", orDash(string(t.Department)))
	_, _ = fmt.Fprintf(w, "zone:       %s\n", orDash(string(t.Zone)))
	assignee := "-"
	if t.AssigneeName != nil {
		assignee = *t.AssigneeName
	}
	if t.AssigneeID != nil {
		assignee += " (" + *t.AssigneeID + ")"
	}
	_, _ = fmt.Fprintf(w, "assignee:   %s\n", assignee)
	if t.DueDate != nil {
		_, _ = fmt.Fprintf(w, "due:        %s\n", t.DueDate.Format("2006-01-02"))
	}
	if t.Description != nil && *t.Description != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", *t.Description)
	}
}

func printBoard(w io.Writer, b *models.Board) {
	_, _ = fmt.Fprintf(w, "%s board\n", b.Department)
	for _, col := range []struct {
		zone  models.Zone
		tasks []models.Task
	}{
		{models.ZoneShelf, b.Shelf},
		{models.ZoneStorage, b.Storage},
		{models.ZoneDock, b.Dock},
		{models.ZoneActive, b.Active},
	} {
		_, _ = fmt.Fprintf(w, "\n%s (%d)\n", col.zone, len(col.tasks))
		for _, t := range col.tasks {
			_, _ = fmt.Fprintln(w, "  "+taskLine(t))
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
