package service

import (
	"github.com/pkg/errors"

	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/models"
	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/storage"
)

// HandleTaskCompletion cascades activation after a task completes. It does
// not flip the task's status itself; unless the persisted status is already
// completed, the call is a no-op. Promotion is delegated to the store, which
// re-checks every prerequisite of each waiting dependent and promotes only
// those whose prerequisites are now all completed.
//
// The returned tasks are the promotions; the caller queues one notification
// per promoted task. The cascade is not recursive: if a promoted task should
// itself unlock further tasks, that happens only once it completes and this
// is called for it.
func (s *TaskflowService) HandleTaskCompletion(taskID int64) ([]models.Task, error) {
	task, err := s.store.GetTask(taskID)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.Infof("Task %d not found, no activation to cascade", taskID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if task.Status != models.CompletedTaskStatus {
		s.logger.Infof("Task %d is '%s', not completed; skipping activation", taskID, task.Status)
		return nil, nil
	}

	promoted, err := s.store.ActivateWaitingTasks(taskID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to activate waiting tasks after task %d", taskID)
	}
	s.logger.Infof("Completion of task %d promoted %d waiting task(s)", taskID, len(promoted))
	return promoted, nil
}
