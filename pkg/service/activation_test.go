package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/models"
	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/service"
	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/storage"
)

func TestHandleTaskCompletion(t *testing.T) {
	t.Run("PromotesWaitingDependent", func(t *testing.T) {
		f := newFixture(t)
		t1Task := f.createTask(t, f.edA, f.t1)
		t2Task := f.createTask(t, f.edB, f.t2)
		assert.Equal(t, models.WaitingTaskStatus, t2Task.Status)

		promoted := f.completeTask(t, t1Task.ID)
		assert.Len(t, promoted, 1)
		assert.Equal(t, t2Task.ID, promoted[0].ID)
		assert.Equal(t, models.PendingTaskStatus, promoted[0].Status)
	})

	t.Run("NoopUnlessPersistedStatusIsCompleted", func(t *testing.T) {
		f := newFixture(t)
		t1Task := f.createTask(t, f.edA, f.t1)
		f.createTask(t, f.edB, f.t2)

		// Status was never flipped to completed, so nothing cascades
		promoted, err := f.svc.HandleTaskCompletion(t1Task.ID)
		assert.NoError(t, err)
		assert.Empty(t, promoted)

		tasks, err := f.store.GetTasksByEventDepartment(f.edB)
		assert.NoError(t, err)
		assert.Equal(t, models.WaitingTaskStatus, tasks[0].Status)
	})

	t.Run("MissingTaskIsANoop", func(t *testing.T) {
		f := newFixture(t)
		promoted, err := f.svc.HandleTaskCompletion(9999)
		assert.NoError(t, err)
		assert.Empty(t, promoted)
	})

	t.Run("CascadeIsNotRecursive", func(t *testing.T) {
		f := newFixture(t)
		t1Task := f.createTask(t, f.edA, f.t1)
		f.createTask(t, f.edB, f.t2)
		f.createTask(t, f.edC, f.t3)

		promoted := f.completeTask(t, t1Task.ID)
		assert.Len(t, promoted, 1) // T2's task only; T3's stays waiting

		tasks, err := f.store.GetTasksByEventDepartment(f.edC)
		assert.NoError(t, err)
		assert.Equal(t, models.WaitingTaskStatus, tasks[0].Status)
	})

	t.Run("AllPrerequisitesRechecked", func(t *testing.T) {
		// Two waiting dependents of one completed task; only the dependent
		// whose other prerequisite is already satisfied gets promoted.
		store := storage.NewMockStore()
		svc := service.NewTaskflowService(store, logger{})

		deptA := store.AddDepartment(models.Department{Name: "A"})
		deptB := store.AddDepartment(models.Department{Name: "B"})
		deptC := store.AddDepartment(models.Department{Name: "C"})
		deptD := store.AddDepartment(models.Department{Name: "D"})

		shared := store.AddTemplate(models.RequirementTemplate{DepartmentID: deptA, Title: "shared"})
		other := store.AddTemplate(models.RequirementTemplate{DepartmentID: deptB, Title: "other"})
		ready := store.AddTemplate(models.RequirementTemplate{DepartmentID: deptC, Title: "ready"})
		blocked := store.AddTemplate(models.RequirementTemplate{DepartmentID: deptD, Title: "blocked"})

		for _, edge := range [][2]int64{{ready, shared}, {blocked, shared}, {blocked, other}} {
			ok, err := svc.AddPrerequisite(edge[0], edge[1])
			assert.NoError(t, err)
			assert.True(t, ok)
		}

		event := store.AddEvent(models.Event{Name: "ev"})
		edA := store.AddEventDepartment(models.EventDepartment{EventID: event, DepartmentID: deptA})
		edB := store.AddEventDepartment(models.EventDepartment{EventID: event, DepartmentID: deptB})
		edC := store.AddEventDepartment(models.EventDepartment{EventID: event, DepartmentID: deptC})
		edD := store.AddEventDepartment(models.EventDepartment{EventID: event, DepartmentID: deptD})

		sharedTasks, err := svc.CreateTasksWithWorkflows(event, edA, []int64{shared}, 1)
		assert.NoError(t, err)
		_, err = svc.CreateTasksWithWorkflows(event, edB, []int64{other}, 1)
		assert.NoError(t, err)
		readyTasks, err := svc.CreateTasksWithWorkflows(event, edC, []int64{ready}, 1)
		assert.NoError(t, err)
		blockedTasks, err := svc.CreateTasksWithWorkflows(event, edD, []int64{blocked}, 1)
		assert.NoError(t, err)

		assert.NoError(t, store.UpdateTaskStatus(sharedTasks[0].ID, models.CompletedTaskStatus))
		promoted, err := svc.HandleTaskCompletion(sharedTasks[0].ID)
		assert.NoError(t, err)

		assert.Len(t, promoted, 1)
		assert.Equal(t, readyTasks[0].ID, promoted[0].ID)

		got, err := store.GetTask(blockedTasks[0].ID)
		assert.NoError(t, err)
		assert.Equal(t, models.WaitingTaskStatus, got.Status) // "other" still incomplete
	})
}
