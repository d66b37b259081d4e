package service

import (
	"time"

	"github.com/pkg/errors"

	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/models"
	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/storage"
)

// linkTaskIntoWorkflow finds or creates the workflow joining a task to its
// resolved prerequisite task. Prerequisites are tried in declaration order;
// the first one that resolves to an existing task wins, and additional
// prerequisites of the same task are not separately represented as workflow
// rows (template-level edges remain the source of truth for activation).
//
// If an existing workflow of the event already contains the prerequisite
// task, the new task is appended after the highest order index; otherwise a
// fresh workflow is seeded with the prerequisite at order 0 and the task at
// order 1. When no prerequisite resolves to a task yet, nil is returned and
// linkage is deferred to CreateWorkflowsForEvent.
func (s *TaskflowService) linkTaskIntoWorkflow(eventID int64, task models.Task, prereqTemplateIDs []int64, g *templateGraph, createdByUserID int64) (*models.EventWorkflow, error) {
	for _, pid := range prereqTemplateIDs {
		prereqTask, err := s.findTaskForTemplate(eventID, g, pid)
		if err != nil {
			return nil, err
		}
		if prereqTask == nil {
			continue
		}

		workflows, err := s.store.GetEventWorkflows(eventID)
		if err != nil {
			return nil, err
		}
		for i := range workflows {
			wts, err := s.store.GetWorkflowTasks(workflows[i].ID)
			if err != nil {
				return nil, err
			}
			maxOrder := -1
			contains := false
			for _, wt := range wts {
				if wt.OrderIndex > maxOrder {
					maxOrder = wt.OrderIndex
				}
				if wt.TaskID == prereqTask.ID {
					contains = true
				}
			}
			if !contains {
				continue
			}
			prereqTaskID := prereqTask.ID
			if err := s.store.AddTaskToWorkflow(models.WorkflowTask{
				WorkflowID:         workflows[i].ID,
				TaskID:             task.ID,
				PrerequisiteTaskID: &prereqTaskID,
				OrderIndex:         maxOrder + 1,
			}); err != nil {
				return nil, err
			}
			s.logger.Infof("Appended task %d to workflow %d at order %d", task.ID, workflows[i].ID, maxOrder+1)
			return &workflows[i], nil
		}

		wf := models.EventWorkflow{
			EventID:         eventID,
			CreatedByUserID: createdByUserID,
			CreatedAt:       time.Now(),
		}
		wfID, err := s.store.SaveWorkflow(wf)
		if err != nil {
			return nil, err
		}
		wf.ID = wfID
		if err := s.store.AddTaskToWorkflow(models.WorkflowTask{
			WorkflowID: wfID,
			TaskID:     prereqTask.ID,
			OrderIndex: 0,
		}); err != nil {
			return nil, err
		}
		prereqTaskID := prereqTask.ID
		if err := s.store.AddTaskToWorkflow(models.WorkflowTask{
			WorkflowID:         wfID,
			TaskID:             task.ID,
			PrerequisiteTaskID: &prereqTaskID,
			OrderIndex:         1,
		}); err != nil {
			return nil, err
		}
		s.logger.Infof("Created workflow %d for event %d linking task %d -> task %d", wfID, eventID, prereqTask.ID, task.ID)
		return &wf, nil
	}
	return nil, nil
}

// CreateWorkflowsForEvent is the reconciliation sweep: it walks every task
// of the event, re-derives its template, and attempts linkage again for
// tasks that are not yet part of any workflow. It backfills links that task
// creation could not resolve, e.g. when a dependent department was processed
// before its prerequisite department. The sweep is idempotent; already
// linked tasks are skipped. Returns the number of tasks newly linked.
func (s *TaskflowService) CreateWorkflowsForEvent(eventID, createdByUserID int64) (int, error) {
	unlock := s.lockEvent(eventID)
	defer unlock()

	if _, err := s.store.GetEvent(eventID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Infof("Event %d not found, nothing to reconcile", eventID)
			return 0, nil
		}
		return 0, err
	}
	g, err := s.loadTemplateGraph()
	if err != nil {
		return 0, err
	}
	eventDepts, err := s.store.GetEventDepartments(eventID)
	if err != nil {
		return 0, err
	}

	linked := 0
	for _, ed := range eventDepts {
		tasks, err := s.store.GetTasksByEventDepartment(ed.ID)
		if err != nil {
			return linked, err
		}
		for _, task := range tasks {
			tpl := g.templateFor(task, ed.DepartmentID)
			if tpl == nil {
				continue
			}
			prereqIDs := g.prereqs[tpl.ID]
			if len(prereqIDs) == 0 {
				continue
			}
			if _, err := s.store.GetTaskWorkflow(task.ID); err == nil {
				continue
			} else if !errors.Is(err, storage.ErrNotFound) {
				return linked, err
			}
			wf, err := s.linkTaskIntoWorkflow(eventID, task, prereqIDs, g, createdByUserID)
			if err != nil {
				return linked, err
			}
			if wf != nil {
				linked++
			}
		}
	}
	s.logger.Infof("Reconciliation for event %d linked %d task(s)", eventID, linked)
	return linked, nil
}

// templateFor matches a task back to its originating template, preferring
// the persisted template id over the legacy (title, department) comparison.
func (g *templateGraph) templateFor(task models.Task, departmentID int64) *models.RequirementTemplate {
	if task.TemplateID != nil {
		if t, ok := g.templates[*task.TemplateID]; ok {
			return &t
		}
		return nil
	}
	for id, t := range g.templates {
		if t.DepartmentID == departmentID && t.Title == task.Title {
			tpl := g.templates[id]
			return &tpl
		}
	}
	return nil
}

// WorkflowTaskDetail is one row of the read-only workflow view.
type WorkflowTaskDetail struct {
	Task               models.Task `json:"task"`
	PrerequisiteTaskID *int64      `json:"prerequisite_task_id,omitempty"`
	OrderIndex         int         `json:"order_index"`
	Completed          bool        `json:"completed"`
	Blocked            bool        `json:"blocked"` // Prerequisite task not yet completed
}

// WorkflowDetails composes a workflow, its event and per-task status flags
// for display.
type WorkflowDetails struct {
	Workflow models.EventWorkflow `json:"workflow"`
	Event    models.Event         `json:"event"`
	Tasks    []WorkflowTaskDetail `json:"tasks"`
}

// GetWorkflowDetails returns the composed view of one workflow, or nil when
// the workflow does not exist.
func (s *TaskflowService) GetWorkflowDetails(workflowID int64) (*WorkflowDetails, error) {
	wf, wts, err := s.store.GetWorkflowWithTasks(workflowID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	event, err := s.store.GetEvent(wf.EventID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	details := &WorkflowDetails{Workflow: wf, Event: event}
	statuses := make(map[int64]models.TaskStatus, len(wts))
	for _, wt := range wts {
		task, err := s.store.GetTask(wt.TaskID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		statuses[task.ID] = task.Status
		details.Tasks = append(details.Tasks, WorkflowTaskDetail{
			Task:               task,
			PrerequisiteTaskID: wt.PrerequisiteTaskID,
			OrderIndex:         wt.OrderIndex,
			Completed:          task.Status == models.CompletedTaskStatus,
		})
	}
	for i := range details.Tasks {
		pid := details.Tasks[i].PrerequisiteTaskID
		if pid != nil && statuses[*pid] != models.CompletedTaskStatus {
			details.Tasks[i].Blocked = true
		}
	}
	return details, nil
}
