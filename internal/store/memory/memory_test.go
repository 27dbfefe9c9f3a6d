package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ankittk/taskzone/internal/store"
	"github.com/ankittk/taskzone/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Store, store.Project, store.Employee) {
	t.Helper()
	s := New()
	ctx := context.Background()
	p, err := s.CreateProject(ctx, "ops")
	require.NoError(t, err)
	e, err := s.CreateEmployee(ctx, "alice", "alice@example.com", models.DeptLab)
	require.NoError(t, err)
	return s, p, e
}

func patch(dept models.Department, zone models.Zone, assignee string) store.TaskPatch {
	p := store.TaskPatch{}
	if dept != "" {
		p.Department = &dept
	}
	if zone != "" {
		p.Zone = &zone
	}
	if assignee != "" {
		p.AssigneeID = &assignee
	}
	return p
}

func TestInTx_commitsOnlyOnSuccess(t *testing.T) {
	s, p, _ := setup(t)
	ctx := context.Background()
	task, err := s.CreateTask(ctx, store.NewTask{ProjectID: p.ProjectID, Title: "t"})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.InTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.UpdateTask(ctx, task.TaskID, patch(models.DeptLab, models.ZoneDock, "")))
		seen, _ := tx.FindTask(ctx, task.TaskID)
		assert.Equal(t, models.ZoneDock, seen.Zone)
		return boom
	})
	require.ErrorIs(t, err, boom)
	got, _ := s.FindTask(ctx, task.TaskID)
	assert.False(t, got.Triaged())

	require.NoError(t, s.InTx(ctx, func(tx store.Tx) error {
		return tx.UpdateTask(ctx, task.TaskID, patch(models.DeptLab, models.ZoneDock, ""))
	}))
	got, _ = s.FindTask(ctx, task.TaskID)
	assert.Equal(t, models.DeptLab, got.Department)
	assert.Equal(t, models.ZoneDock, got.Zone)
}

func TestUpdateTask_enforcesSchemaConstraints(t *testing.T) {
	s, p, e := setup(t)
	ctx := context.Background()
	t1, _ := s.CreateTask(ctx, store.NewTask{ProjectID: p.ProjectID, Title: "t1"})
	t2, _ := s.CreateTask(ctx, store.NewTask{ProjectID: p.ProjectID, Title: "t2"})

	update := func(id string, tp store.TaskPatch) error {
		return s.InTx(ctx, func(tx store.Tx) error { return tx.UpdateTask(ctx, id, tp) })
	}
	assert.Error(t, update(t1.TaskID, patch(models.DeptLab, models.ZoneActive, "")), "ACTIVE without assignee")
	assert.Error(t, update(t1.TaskID, patch("", "", "nobody")), "unknown assignee")
	require.NoError(t, update(t1.TaskID, patch(models.DeptLab, models.ZoneActive, e.EmployeeID)))
	assert.ErrorIs(t, update(t2.TaskID, patch(models.DeptLab, models.ZoneActive, e.EmployeeID)), store.ErrActiveSlotTaken)

	got, _ := s.FindTask(ctx, t1.TaskID)
	require.NotNil(t, got.AssigneeName)
	assert.Equal(t, "alice", *got.AssigneeName)

	require.NoError(t, s.InTx(ctx, func(tx store.Tx) error {
		active, err := tx.FindActiveTasksForEmployee(ctx, e.EmployeeID, "")
		require.NoError(t, err)
		assert.Len(t, active, 1)
		excluded, err := tx.FindActiveTasksForEmployee(ctx, e.EmployeeID, t1.TaskID)
		require.NoError(t, err)
		assert.Empty(t, excluded)
		return nil
	}))
}

func TestFindTasksByDepartment_boardOrder(t *testing.T) {
	s, p, _ := setup(t)
	ctx := context.Background()
	soon := time.Now().Add(time.Hour)
	later := time.Now().Add(48 * time.Hour)
	var ids []string
	for _, in := range []store.NewTask{
		{Title: "low", Priority: models.PriorityLow, DueDate: &soon},
		{Title: "high-nodue", Priority: models.PriorityHigh},
		{Title: "high-later", Priority: models.PriorityHigh, DueDate: &later},
		{Title: "high-soon", Priority: models.PriorityHigh, DueDate: &soon},
	} {
		in.ProjectID = p.ProjectID
		task, err := s.CreateTask(ctx, in)
		require.NoError(t, err)
		ids = append(ids, task.TaskID)
	}
	require.NoError(t, s.InTx(ctx, func(tx store.Tx) error {
		for _, id := range ids {
			if err := tx.UpdateTask(ctx, id, patch(models.DeptLab, "", "")); err != nil {
				return err
			}
		}
		return nil
	}))
	tasks, err := s.FindTasksByDepartment(ctx, models.DeptLab)
	require.NoError(t, err)
	var titles []string
	for _, task := range tasks {
		titles = append(titles, task.Title)
	}
	assert.Equal(t, []string{"high-soon", "high-later", "high-nodue", "low"}, titles)

	counts, _ := s.CountTasksByZone(ctx)
	assert.Equal(t, int64(4), counts[models.ZoneShelf])
}

func TestCreateTask_requiresProject(t *testing.T) {
	s := New()
	_, err := s.CreateTask(context.Background(), store.NewTask{ProjectID: "missing", Title: "x"})
	assert.Error(t, err)
}

func TestSeedDemo_idempotency(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.SeedDemo(ctx))
	require.NoError(t, s.SeedDemo(ctx))
	unplaced, _ := s.ListUnplacedTasks(ctx)
	assert.Len(t, unplaced, 3)
	employees, _ := s.ListEmployees(ctx)
	assert.Len(t, employees, 4)
}
