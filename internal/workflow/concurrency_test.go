package workflow

import (
	"context"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ankittk/taskzone/internal/store"
	"github.com/ankittk/taskzone/internal/store/memory"
	"github.com/ankittk/taskzone/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "home"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func backends(t *testing.T) map[string]func() store.Store {
	return map[string]func() store.Store{
		"memory": func() store.Store { return memory.New() },
		"sqlite": func() store.Store { return openSQLite(t) },
	}
}

// Two tasks raced into ACTIVE for the same employee: exactly one wins.
func TestConcurrentActivation_exactlyOneWins(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, open())
			e := f.employee(t, "E", models.DeptLab)
			const n = 8
			ids := make([]string, n)
			for i := range ids {
				ids[i] = f.triaged(t, "T", models.DeptLab).TaskID
			}

			var wg sync.WaitGroup
			errs := make([]error, n)
			start := make(chan struct{})
			for i := range ids {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					<-start
					_, errs[i] = f.eng.MoveTaskToZone(context.Background(), ids[i], models.ZoneActive, e.EmployeeID)
				}(i)
			}
			close(start)
			wg.Wait()

			wins := 0
			for _, err := range errs {
				if err == nil {
					wins++
					continue
				}
				assertKind(t, err, ErrExclusivity, KindConstraintViolation)
			}
			assert.Equal(t, 1, wins)
			assert.Equal(t, 1, f.activeCount(t, e.EmployeeID))
		})
	}
}

// Random interleavings of moves and assignments never give an employee two ACTIVE
// tasks and never leave an ACTIVE task unassigned.
func TestRandomOperations_keepInvariants(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, open())
			ctx := f.ctx
			var emps []store.Employee
			for _, name := range []string{"a", "b", "c"} {
				emps = append(emps, f.employee(t, name, models.DeptLab))
			}
			emps = append(emps, f.employee(t, "s", models.DeptStudio))
			var tasks []string
			for i := 0; i < 6; i++ {
				tasks = append(tasks, f.triaged(t, "T", models.DeptLab).TaskID)
			}

			rng := rand.New(rand.NewSource(42))
			var wg sync.WaitGroup
			for w := 0; w < 4; w++ {
				seed := rng.Int63()
				wg.Add(1)
				go func() {
					defer wg.Done()
					r := rand.New(rand.NewSource(seed))
					for i := 0; i < 40; i++ {
						task := tasks[r.Intn(len(tasks))]
						emp := emps[r.Intn(len(emps))].EmployeeID
						switch r.Intn(4) {
						case 0:
							_, _ = f.eng.MoveTaskToZone(ctx, task, models.ZoneActive, emp)
						case 1:
							_, _ = f.eng.MoveTaskToZone(ctx, task, models.Zones[r.Intn(3)], "")
						case 2:
							got, err := f.eng.AssignTaskToUser(ctx, task, emp)
							if err == nil {
								assert.Equal(t, models.DeptLab, got.Department)
							}
						default:
							_, _ = f.eng.AssignTaskToDepartment(ctx, task, models.DeptLab)
						}
					}
				}()
			}
			wg.Wait()

			for _, e := range emps {
				assert.LessOrEqual(t, f.activeCount(t, e.EmployeeID), 1, "employee %s", e.Name)
			}
			board, err := f.eng.TasksByDepartment(ctx, models.DeptLab)
			require.NoError(t, err)
			for _, task := range board.Active {
				require.NotNil(t, task.AssigneeID)
			}
			for _, z := range models.Zones {
				for _, task := range board.Zone(z) {
					if task.AssigneeID != nil {
						emp, _ := f.st.FindEmployee(ctx, *task.AssigneeID)
						assert.Equal(t, models.DeptLab, emp.Department)
					}
				}
			}
		})
	}
}
