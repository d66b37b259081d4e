package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/models"
	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/storage"
)

func TestCanDeleteTask(t *testing.T) {
	t.Run("MissingTask", func(t *testing.T) {
		f := newFixture(t)
		decision, err := f.svc.CanDeleteTask(9999, 1, models.SuperadminRole)
		assert.NoError(t, err)
		assert.False(t, decision.CanDelete)
	})

	t.Run("NonDependedTaskDeletableByAnyRole", func(t *testing.T) {
		f := newFixture(t)
		t3Task := f.createTask(t, f.edC, f.t3) // nothing depends on T3's task
		for _, role := range []string{models.AdminRole, models.SuperadminRole, "member", ""} {
			decision, err := f.svc.CanDeleteTask(t3Task.ID, 1, role)
			assert.NoError(t, err)
			assert.True(t, decision.CanDelete, "role %q", role)
			assert.False(t, decision.RequiresChainDeletion)
		}
	})

	t.Run("DependedTaskBlockedForAdmin", func(t *testing.T) {
		f := newFixture(t)
		t1Task := f.createTask(t, f.edA, f.t1)
		t2Task := f.createTask(t, f.edB, f.t2)

		decision, err := f.svc.CanDeleteTask(t1Task.ID, 1, models.AdminRole)
		assert.NoError(t, err)
		assert.False(t, decision.CanDelete)
		assert.True(t, decision.RequiresChainDeletion)
		assert.NotEmpty(t, decision.Reason)
		assert.Len(t, decision.DependentTasks, 1)
		assert.Equal(t, t2Task.ID, decision.DependentTasks[0].ID)
	})

	t.Run("DependedTaskAllowedForSuperadminWithWarning", func(t *testing.T) {
		f := newFixture(t)
		t1Task := f.createTask(t, f.edA, f.t1)
		f.createTask(t, f.edB, f.t2)

		decision, err := f.svc.CanDeleteTask(t1Task.ID, 1, models.SuperadminRole)
		assert.NoError(t, err)
		assert.True(t, decision.CanDelete)
		assert.True(t, decision.RequiresChainDeletion)
		assert.NotEmpty(t, decision.Reason)
		assert.Len(t, decision.DependentTasks, 1)
	})
}

func TestDeleteTaskWithChain(t *testing.T) {
	t.Run("DependentsDeletedBeforeRoot", func(t *testing.T) {
		f := newFixture(t)
		t1Task := f.createTask(t, f.edA, f.t1)
		t2Task := f.createTask(t, f.edB, f.t2)
		t3Task := f.createTask(t, f.edC, f.t3)

		assert.NoError(t, f.svc.DeleteTaskWithChain(t1Task.ID, true))
		assert.Equal(t, []int64{t3Task.ID, t2Task.ID, t1Task.ID}, f.store.DeletedTaskOrder())

		for _, id := range []int64{t1Task.ID, t2Task.ID, t3Task.ID} {
			_, err := f.store.GetTask(id)
			assert.ErrorIs(t, err, storage.ErrNotFound)
		}
	})

	t.Run("WithoutChainOnlyRootIsDeleted", func(t *testing.T) {
		f := newFixture(t)
		t1Task := f.createTask(t, f.edA, f.t1)
		t2Task := f.createTask(t, f.edB, f.t2)

		assert.NoError(t, f.svc.DeleteTaskWithChain(t1Task.ID, false))
		assert.Equal(t, []int64{t1Task.ID}, f.store.DeletedTaskOrder())

		_, err := f.store.GetTask(t2Task.ID)
		assert.NoError(t, err)
	})

	t.Run("MissingTaskIsANoop", func(t *testing.T) {
		f := newFixture(t)
		assert.NoError(t, f.svc.DeleteTaskWithChain(9999, true))
	})
}
