package service

import (
	"github.com/pkg/errors"

	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/models"
	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/storage"
)

// DeleteDecision is the structured answer to "may this task be deleted?".
// Denial is a result, not an error, so callers can present guidance.
type DeleteDecision struct {
	CanDelete             bool          `json:"can_delete"`
	Reason                string        `json:"reason,omitempty"`
	DependentTasks        []models.Task `json:"dependent_tasks,omitempty"`
	RequiresChainDeletion bool          `json:"requires_chain_deletion,omitempty"`
}

// CanDeleteTask decides whether a task may be deleted. A task nothing
// depends on is deletable by every role. A depended-upon task is deletable
// only by a superadmin, and only together with its dependent chain; the
// decision carries the dependents so the caller can confirm before invoking
// DeleteTaskWithChain.
func (s *TaskflowService) CanDeleteTask(taskID, userID int64, userRole string) (DeleteDecision, error) {
	_ = userID // Authorization beyond the role check is out of this engine's scope

	if _, err := s.store.GetTask(taskID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return DeleteDecision{CanDelete: false, Reason: "task not found"}, nil
		}
		return DeleteDecision{}, err
	}

	isPrereq, err := s.store.IsTaskPrerequisiteForOthers(taskID)
	if err != nil {
		return DeleteDecision{}, err
	}
	if !isPrereq {
		return DeleteDecision{CanDelete: true}, nil
	}

	dependents, err := s.store.GetDependentTasks(taskID)
	if err != nil {
		return DeleteDecision{}, err
	}
	if userRole != models.SuperadminRole {
		return DeleteDecision{
			CanDelete:             false,
			Reason:                "other tasks depend on this task; only a superadmin may delete the whole chain",
			DependentTasks:        dependents,
			RequiresChainDeletion: true,
		}, nil
	}
	return DeleteDecision{
		CanDelete:             true,
		Reason:                "deleting this task also deletes every task that depends on it",
		DependentTasks:        dependents,
		RequiresChainDeletion: true,
	}, nil
}

// DeleteTaskWithChain deletes a task. With deleteChain set, all direct and
// transitive dependents are deleted first, depth-first, so no dependent ever
// outlives its prerequisite. The task-instance graph is assumed acyclic
// (inherited from the template DAG); a visited set still bounds the
// recursion in case that invariant is ever violated.
func (s *TaskflowService) DeleteTaskWithChain(taskID int64, deleteChain bool) error {
	return s.deleteTask(taskID, deleteChain, make(map[int64]struct{}))
}

func (s *TaskflowService) deleteTask(taskID int64, deleteChain bool, visited map[int64]struct{}) error {
	if _, ok := visited[taskID]; ok {
		return nil
	}
	visited[taskID] = struct{}{}

	if deleteChain {
		dependents, err := s.store.GetDependentTasks(taskID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil
			}
			return err
		}
		for _, dep := range dependents {
			if err := s.deleteTask(dep.ID, true, visited); err != nil {
				return err
			}
		}
	}

	if err := s.store.DeleteTask(taskID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return errors.Wrapf(err, "failed to delete task %d", taskID)
	}
	s.logger.Infof("Deleted task %d", taskID)
	return nil
}
