package service

import (
	"time"

	"github.com/pkg/errors"

	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/models"
	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/storage"
)

// CreateTasksWithWorkflows instantiates concrete tasks for one event and
// department from the selected templates.
//
// Selected templates owned by other departments are skipped: their tasks are
// assumed to be created by the call for their own department, and callers
// are responsible for department-processing order. A task starts waiting
// when any declared prerequisite has no completed task in the event yet, and
// pending otherwise. Templates with prerequisites are linked into a workflow
// regardless of the starting status, so the dependency is recorded either
// way.
//
// A missing event or event department yields an empty result, not an error.
// The call is not idempotent: invoking it twice with the same inputs creates
// duplicate tasks.
func (s *TaskflowService) CreateTasksWithWorkflows(eventID, eventDepartmentID int64, selectedTemplateIDs []int64, createdByUserID int64) ([]models.Task, error) {
	unlock := s.lockEvent(eventID)
	defer unlock()

	event, err := s.store.GetEvent(eventID)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.Infof("Event %d not found, no tasks created", eventID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	eventDept, err := s.store.GetEventDepartment(eventDepartmentID)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.Infof("Event department %d not found, no tasks created", eventDepartmentID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	g, err := s.loadTemplateGraph()
	if err != nil {
		return nil, err
	}

	var created []models.Task
	for _, templateID := range selectedTemplateIDs {
		tpl, ok := g.templates[templateID]
		if !ok || tpl.DepartmentID != eventDept.DepartmentID {
			continue
		}

		prereqIDs := g.prereqs[templateID]
		hasWaitingPrereqs := false
		for _, pid := range prereqIDs {
			prereqTask, err := s.findTaskForTemplate(eventID, g, pid)
			if err != nil {
				return created, err
			}
			if prereqTask == nil || prereqTask.Status != models.CompletedTaskStatus {
				hasWaitingPrereqs = true
			}
		}

		status := models.PendingTaskStatus
		if hasWaitingPrereqs {
			status = models.WaitingTaskStatus
		}
		dueDate := event.EndDate
		if tpl.DueDateBasis == models.EventStartBasis {
			dueDate = event.StartDate
		}

		tplID := tpl.ID
		task := models.Task{
			EventDepartmentID: eventDept.ID,
			TemplateID:        &tplID,
			Title:             tpl.Title,
			TitleTranslation:  tpl.TitleTranslation,
			Status:            status,
			Priority:          tpl.Priority,
			DueDate:           &dueDate,
			CreatedByUserID:   createdByUserID,
			CreatedAt:         time.Now(),
		}
		id, err := s.store.SaveTask(task)
		if err != nil {
			return created, errors.Wrapf(err, "failed to save task for template %d", templateID)
		}
		task.ID = id
		created = append(created, task)
		s.logger.Infof("Created task %d ('%s') with status '%s' for event %d", id, task.Title, status, eventID)

		if len(prereqIDs) > 0 {
			// The task stays created even if the link fails to attach;
			// the reconciliation sweep picks it up later.
			if _, err := s.linkTaskIntoWorkflow(eventID, task, prereqIDs, g, createdByUserID); err != nil {
				s.logger.Errorf("Failed to link task %d into a workflow: %v", id, err)
			}
		}
	}
	return created, nil
}

// findTaskForTemplate locates the concrete task instantiated from a template
// within one event, following the template's own department to its event
// department. Returns nil when the department is not part of the event or
// the task was never created.
func (s *TaskflowService) findTaskForTemplate(eventID int64, g *templateGraph, templateID int64) (*models.Task, error) {
	tpl, ok := g.templates[templateID]
	if !ok {
		return nil, nil
	}
	eventDept, err := s.store.GetEventDepartmentByEventAndDepartment(eventID, tpl.DepartmentID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.GetTasksByEventDepartment(eventDept.ID)
	if err != nil {
		return nil, err
	}
	for i, t := range tasks {
		if t.TemplateID != nil && *t.TemplateID == templateID {
			return &tasks[i], nil
		}
		if t.TemplateID == nil && t.Title == tpl.Title {
			return &tasks[i], nil
		}
	}
	return nil, nil
}
