package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/models"
	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/service"
	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/storage"
)

type logger struct{}

func (l logger) Infof(format string, args ...interface{}) {
	// no-op
}

func (l logger) Errorf(format string, args ...interface{}) {
	// no-op
}

// fixture is the T1 -> T2 -> T3 catalog from three departments, plus one
// event all three departments take part in.
type fixture struct {
	store *storage.MockStore
	svc   *service.TaskflowService

	deptA, deptB, deptC int64
	t1, t2, t3          int64
	event               int64
	edA, edB, edC       int64

	start, end time.Time
}

func newFixture(t *testing.T) *fixture {
	store := storage.NewMockStore()
	svc := service.NewTaskflowService(store, logger{})

	f := &fixture{
		store: store,
		svc:   svc,
		start: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		end:   time.Date(2026, 3, 12, 18, 0, 0, 0, time.UTC),
	}

	f.deptA = store.AddDepartment(models.Department{Name: "Logistics"})
	f.deptB = store.AddDepartment(models.Department{Name: "Communications"})
	f.deptC = store.AddDepartment(models.Department{Name: "Protocol"})

	f.t1 = store.AddTemplate(models.RequirementTemplate{
		DepartmentID: f.deptA,
		Title:        "Book venue",
		DueDateBasis: models.EventStartBasis,
	})
	f.t2 = store.AddTemplate(models.RequirementTemplate{
		DepartmentID: f.deptB,
		Title:        "Announce venue",
		DueDateBasis: models.EventStartBasis,
	})
	f.t3 = store.AddTemplate(models.RequirementTemplate{
		DepartmentID: f.deptC,
		Title:        "Prepare guest list",
		DueDateBasis: models.EventEndBasis,
	})

	ok, err := svc.AddPrerequisite(f.t2, f.t1)
	assert.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.AddPrerequisite(f.t3, f.t2)
	assert.NoError(t, err)
	assert.True(t, ok)

	f.event = store.AddEvent(models.Event{Name: "Annual Forum", StartDate: f.start, EndDate: f.end})
	f.edA = store.AddEventDepartment(models.EventDepartment{EventID: f.event, DepartmentID: f.deptA})
	f.edB = store.AddEventDepartment(models.EventDepartment{EventID: f.event, DepartmentID: f.deptB})
	f.edC = store.AddEventDepartment(models.EventDepartment{EventID: f.event, DepartmentID: f.deptC})

	return f
}

// createTask is a shorthand for instantiating a single template's task.
func (f *fixture) createTask(t *testing.T, eventDeptID, templateID int64) models.Task {
	created, err := f.svc.CreateTasksWithWorkflows(f.event, eventDeptID, []int64{templateID}, 7)
	assert.NoError(t, err)
	assert.Len(t, created, 1)
	return created[0]
}

func (f *fixture) completeTask(t *testing.T, taskID int64) []models.Task {
	assert.NoError(t, f.store.UpdateTaskStatus(taskID, models.CompletedTaskStatus))
	promoted, err := f.svc.HandleTaskCompletion(taskID)
	assert.NoError(t, err)
	return promoted
}

func templateIDs(templates []models.RequirementTemplate) []int64 {
	var ids []int64
	for _, t := range templates {
		ids = append(ids, t.ID)
	}
	return ids
}
