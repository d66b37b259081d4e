package storage_test

import (
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	internal_storage "github.com/Amine-Ecssr/event-management-system-sub010/internal/storage"
	"github.com/Amine-Ecssr/event-management-system-sub010/internal/testutil"
	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/models"
	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/storage"
)

func insertDepartment(t *testing.T, db *sqlx.DB, name string) int64 {
	var id int64
	err := db.QueryRowx("INSERT INTO departments (name) VALUES ($1) RETURNING id", name).Scan(&id)
	assert.NoError(t, err)
	return id
}

func insertTemplate(t *testing.T, db *sqlx.DB, departmentID int64, title string) int64 {
	var id int64
	err := db.QueryRowx("INSERT INTO requirement_templates (department_id, title) VALUES ($1, $2) RETURNING id",
		departmentID, title).Scan(&id)
	assert.NoError(t, err)
	return id
}

func insertEvent(t *testing.T, db *sqlx.DB, name string) int64 {
	var id int64
	err := db.QueryRowx("INSERT INTO events (name, start_date, end_date) VALUES ($1, $2, $3) RETURNING id",
		name, time.Now(), time.Now().Add(48*time.Hour)).Scan(&id)
	assert.NoError(t, err)
	return id
}

func insertEventDepartment(t *testing.T, db *sqlx.DB, eventID, departmentID int64) int64 {
	var id int64
	err := db.QueryRowx("INSERT INTO event_departments (event_id, department_id) VALUES ($1, $2) RETURNING id",
		eventID, departmentID).Scan(&id)
	assert.NoError(t, err)
	return id
}

func TestPostgresStore(t *testing.T) {
	testDB := testutil.SetupTestDB(t)
	defer testDB.Teardown(t)

	store, err := internal_storage.NewPostgresStore(testDB.ConnStr)
	assert.NoError(t, err)
	defer store.Close()

	// Shared catalog: T1 (dept A) <- T2 (dept B) <- T3 (dept C)
	deptA := insertDepartment(t, testDB.DB, "Logistics")
	deptB := insertDepartment(t, testDB.DB, "Communications")
	deptC := insertDepartment(t, testDB.DB, "Protocol")
	t1 := insertTemplate(t, testDB.DB, deptA, "Book venue")
	t2 := insertTemplate(t, testDB.DB, deptB, "Announce venue")
	t3 := insertTemplate(t, testDB.DB, deptC, "Prepare guest list")
	_, err = store.SavePrerequisite(models.Prerequisite{TemplateID: t2, PrerequisiteTemplateID: t1})
	assert.NoError(t, err)
	_, err = store.SavePrerequisite(models.Prerequisite{TemplateID: t3, PrerequisiteTemplateID: t2})
	assert.NoError(t, err)

	// newEventScope seeds a fresh event with all three departments, so
	// subtests cannot interfere with each other's tasks.
	type scope struct {
		event, edA, edB, edC int64
	}
	newEventScope := func(t *testing.T, name string) scope {
		event := insertEvent(t, testDB.DB, name)
		return scope{
			event: event,
			edA:   insertEventDepartment(t, testDB.DB, event, deptA),
			edB:   insertEventDepartment(t, testDB.DB, event, deptB),
			edC:   insertEventDepartment(t, testDB.DB, event, deptC),
		}
	}
	saveTask := func(t *testing.T, eventDeptID, templateID int64, title string, status models.TaskStatus) int64 {
		id, err := store.SaveTask(models.Task{
			EventDepartmentID: eventDeptID,
			TemplateID:        &templateID,
			Title:             title,
			Status:            status,
			CreatedByUserID:   1,
			CreatedAt:         time.Now(),
		})
		assert.NoError(t, err)
		return id
	}

	t.Run("GetRequirement", func(t *testing.T) {
		tpl, err := store.GetRequirement(t1)
		assert.NoError(t, err)
		assert.Equal(t, "Book venue", tpl.Title)
		assert.Equal(t, deptA, tpl.DepartmentID)

		_, err = store.GetRequirement(99999)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("ListPrerequisitesInDeclarationOrder", func(t *testing.T) {
		prereqs, err := store.ListPrerequisites()
		assert.NoError(t, err)
		assert.Len(t, prereqs, 2)
		assert.Equal(t, t2, prereqs[0].TemplateID)
		assert.Equal(t, t1, prereqs[0].PrerequisiteTemplateID)
		assert.Equal(t, t3, prereqs[1].TemplateID)
	})

	t.Run("SavePrerequisiteRejectsSelfEdge", func(t *testing.T) {
		_, err := store.SavePrerequisite(models.Prerequisite{TemplateID: t1, PrerequisiteTemplateID: t1})
		assert.Error(t, err) // CHECK constraint
	})

	t.Run("EventDepartmentLookups", func(t *testing.T) {
		sc := newEventScope(t, "lookup-event")
		ed, err := store.GetEventDepartmentByEventAndDepartment(sc.event, deptB)
		assert.NoError(t, err)
		assert.Equal(t, sc.edB, ed.ID)

		_, err = store.GetEventDepartmentByEventAndDepartment(sc.event, 99999)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		eds, err := store.GetEventDepartments(sc.event)
		assert.NoError(t, err)
		assert.Len(t, eds, 3)
	})

	t.Run("TaskLifecycle", func(t *testing.T) {
		sc := newEventScope(t, "task-event")
		id := saveTask(t, sc.edA, t1, "Book venue", models.PendingTaskStatus)

		task, err := store.GetTask(id)
		assert.NoError(t, err)
		assert.Equal(t, models.PendingTaskStatus, task.Status)
		assert.NotNil(t, task.TemplateID)
		assert.Equal(t, t1, *task.TemplateID)

		assert.NoError(t, store.UpdateTaskStatus(id, models.CompletedTaskStatus))
		task, err = store.GetTask(id)
		assert.NoError(t, err)
		assert.Equal(t, models.CompletedTaskStatus, task.Status)

		assert.NoError(t, store.DeleteTask(id))
		_, err = store.GetTask(id)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, store.DeleteTask(id), storage.ErrNotFound)
		assert.ErrorIs(t, store.UpdateTaskStatus(id, models.PendingTaskStatus), storage.ErrNotFound)
	})

	t.Run("WorkflowRoundTrip", func(t *testing.T) {
		sc := newEventScope(t, "workflow-event")
		rootID := saveTask(t, sc.edA, t1, "Book venue", models.CompletedTaskStatus)
		depID := saveTask(t, sc.edB, t2, "Announce venue", models.WaitingTaskStatus)

		wfID, err := store.SaveWorkflow(models.EventWorkflow{EventID: sc.event, CreatedByUserID: 1, CreatedAt: time.Now()})
		assert.NoError(t, err)
		assert.NoError(t, store.AddTaskToWorkflow(models.WorkflowTask{WorkflowID: wfID, TaskID: rootID, OrderIndex: 0}))
		assert.NoError(t, store.AddTaskToWorkflow(models.WorkflowTask{WorkflowID: wfID, TaskID: depID, PrerequisiteTaskID: &rootID, OrderIndex: 1}))

		wf, wts, err := store.GetWorkflowWithTasks(wfID)
		assert.NoError(t, err)
		assert.Equal(t, sc.event, wf.EventID)
		assert.Len(t, wts, 2)
		assert.Equal(t, rootID, wts[0].TaskID)
		assert.Nil(t, wts[0].PrerequisiteTaskID)
		assert.Equal(t, depID, wts[1].TaskID)
		assert.Equal(t, rootID, *wts[1].PrerequisiteTaskID)

		got, err := store.GetTaskWorkflow(depID)
		assert.NoError(t, err)
		assert.Equal(t, wfID, got.ID)

		orphanID := saveTask(t, sc.edC, t3, "Prepare guest list", models.WaitingTaskStatus)
		_, err = store.GetTaskWorkflow(orphanID)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, _, err = store.GetWorkflowWithTasks(99999)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("DependentTasks", func(t *testing.T) {
		sc := newEventScope(t, "dependents-event")
		rootID := saveTask(t, sc.edA, t1, "Book venue", models.PendingTaskStatus)
		depID := saveTask(t, sc.edB, t2, "Announce venue", models.WaitingTaskStatus)

		deps, err := store.GetDependentTasks(rootID)
		assert.NoError(t, err)
		assert.Len(t, deps, 1)
		assert.Equal(t, depID, deps[0].ID)

		isPrereq, err := store.IsTaskPrerequisiteForOthers(rootID)
		assert.NoError(t, err)
		assert.True(t, isPrereq)

		isPrereq, err = store.IsTaskPrerequisiteForOthers(depID)
		assert.NoError(t, err)
		assert.False(t, isPrereq) // T3's task was never created in this event
	})

	t.Run("ActivateWaitingTasks", func(t *testing.T) {
		sc := newEventScope(t, "activation-event")
		rootID := saveTask(t, sc.edA, t1, "Book venue", models.CompletedTaskStatus)
		depID := saveTask(t, sc.edB, t2, "Announce venue", models.WaitingTaskStatus)
		// T3's task waits on T2, which is itself still waiting
		blockedID := saveTask(t, sc.edC, t3, "Prepare guest list", models.WaitingTaskStatus)

		promoted, err := store.ActivateWaitingTasks(rootID)
		assert.NoError(t, err)
		assert.Len(t, promoted, 1)
		assert.Equal(t, depID, promoted[0].ID)
		assert.Equal(t, models.PendingTaskStatus, promoted[0].Status)

		blocked, err := store.GetTask(blockedID)
		assert.NoError(t, err)
		assert.Equal(t, models.WaitingTaskStatus, blocked.Status)
	})

	t.Run("TransactionRollbackDiscardsChanges", func(t *testing.T) {
		sc := newEventScope(t, "tx-event")
		txStore, err := store.Begin()
		assert.NoError(t, err)
		id, err := txStore.SaveTask(models.Task{
			EventDepartmentID: sc.edA,
			Title:             "Book venue",
			Status:            models.PendingTaskStatus,
			CreatedByUserID:   1,
			CreatedAt:         time.Now(),
		})
		assert.NoError(t, err)
		assert.NoError(t, txStore.Rollback())

		_, err = store.GetTask(id)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}
