package storage

import (
	"time"

	"github.com/pkg/errors"

	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/models"
)

// MockStore implements Store with in-memory tables. Used by the service
// tests; seeding goes through the Add* helpers.
type MockStore struct {
	departments      []models.Department
	templates        []models.RequirementTemplate
	prerequisites    []models.Prerequisite
	events           []models.Event
	eventDepartments []models.EventDepartment
	tasks            []models.Task
	workflows        []models.EventWorkflow
	workflowTasks    []models.WorkflowTask
	deletedTasks     []int64
	nextID           int64 // Shared serial across tables
	committed        bool  // Transaction state
}

func NewMockStore() *MockStore {
	return &MockStore{}
}

func (m *MockStore) Begin() (Store, error) {
	return m, nil
}

func (m *MockStore) Commit() error {
	if m.committed {
		return errors.New("already committed")
	}
	m.committed = true
	return nil
}

func (m *MockStore) Rollback() error {
	if m.committed {
		return errors.New("cannot rollback committed transaction")
	}
	return nil
}

func (m *MockStore) Close() error {
	return nil
}

// Seeding helpers

func (m *MockStore) AddDepartment(d models.Department) int64 {
	m.nextID++
	d.ID = m.nextID
	m.departments = append(m.departments, d)
	return d.ID
}

func (m *MockStore) AddTemplate(t models.RequirementTemplate) int64 {
	m.nextID++
	t.ID = m.nextID
	m.templates = append(m.templates, t)
	return t.ID
}

func (m *MockStore) AddEvent(e models.Event) int64 {
	m.nextID++
	e.ID = m.nextID
	m.events = append(m.events, e)
	return e.ID
}

func (m *MockStore) AddEventDepartment(ed models.EventDepartment) int64 {
	m.nextID++
	ed.ID = m.nextID
	m.eventDepartments = append(m.eventDepartments, ed)
	return ed.ID
}

// DeletedTaskOrder returns the task IDs passed to DeleteTask, in call order.
func (m *MockStore) DeletedTaskOrder() []int64 {
	return m.deletedTasks
}

// Template catalog

func (m *MockStore) GetRequirement(id int64) (models.RequirementTemplate, error) {
	for _, t := range m.templates {
		if t.ID == id {
			return t, nil
		}
	}
	return models.RequirementTemplate{}, ErrNotFound
}

func (m *MockStore) ListTemplates() ([]models.RequirementTemplate, error) {
	return append([]models.RequirementTemplate(nil), m.templates...), nil
}

func (m *MockStore) GetDepartmentRequirements(departmentID int64) ([]models.RequirementTemplate, error) {
	var out []models.RequirementTemplate
	for _, t := range m.templates {
		if t.DepartmentID == departmentID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MockStore) GetTemplatePrerequisites(templateID int64) ([]models.Prerequisite, error) {
	var out []models.Prerequisite
	for _, p := range m.prerequisites {
		if p.TemplateID == templateID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockStore) ListPrerequisites() ([]models.Prerequisite, error) {
	return append([]models.Prerequisite(nil), m.prerequisites...), nil
}

func (m *MockStore) SavePrerequisite(p models.Prerequisite) (int64, error) {
	if m.committed {
		return 0, errors.New("transaction already committed")
	}
	for _, existing := range m.prerequisites {
		if existing.TemplateID == p.TemplateID && existing.PrerequisiteTemplateID == p.PrerequisiteTemplateID {
			return 0, errors.New("prerequisite already exists")
		}
	}
	m.nextID++
	p.ID = m.nextID
	m.prerequisites = append(m.prerequisites, p)
	return p.ID, nil
}

func (m *MockStore) ListDepartments() ([]models.Department, error) {
	return append([]models.Department(nil), m.departments...), nil
}

// Events

func (m *MockStore) GetEvent(id int64) (models.Event, error) {
	for _, e := range m.events {
		if e.ID == id {
			return e, nil
		}
	}
	return models.Event{}, ErrNotFound
}

func (m *MockStore) GetEventDepartment(id int64) (models.EventDepartment, error) {
	for _, ed := range m.eventDepartments {
		if ed.ID == id {
			return ed, nil
		}
	}
	return models.EventDepartment{}, ErrNotFound
}

func (m *MockStore) GetEventDepartmentByEventAndDepartment(eventID, departmentID int64) (models.EventDepartment, error) {
	for _, ed := range m.eventDepartments {
		if ed.EventID == eventID && ed.DepartmentID == departmentID {
			return ed, nil
		}
	}
	return models.EventDepartment{}, ErrNotFound
}

func (m *MockStore) GetEventDepartments(eventID int64) ([]models.EventDepartment, error) {
	var out []models.EventDepartment
	for _, ed := range m.eventDepartments {
		if ed.EventID == eventID {
			out = append(out, ed)
		}
	}
	return out, nil
}

// Tasks

func (m *MockStore) GetTask(id int64) (models.Task, error) {
	for _, t := range m.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Task{}, ErrNotFound
}

func (m *MockStore) GetTasksByEventDepartment(eventDepartmentID int64) ([]models.Task, error) {
	var out []models.Task
	for _, t := range m.tasks {
		if t.EventDepartmentID == eventDepartmentID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MockStore) SaveTask(t models.Task) (int64, error) {
	if m.committed {
		return 0, errors.New("transaction already committed")
	}
	m.nextID++
	t.ID = m.nextID
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	m.tasks = append(m.tasks, t)
	return t.ID, nil
}

func (m *MockStore) UpdateTaskStatus(id int64, status models.TaskStatus) error {
	if m.committed {
		return errors.New("transaction already committed")
	}
	for i, t := range m.tasks {
		if t.ID == id {
			m.tasks[i].Status = status
			return nil
		}
	}
	return ErrNotFound
}

func (m *MockStore) DeleteTask(id int64) error {
	if m.committed {
		return errors.New("transaction already committed")
	}
	for i, t := range m.tasks {
		if t.ID == id {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			m.deletedTasks = append(m.deletedTasks, id)
			// Drop its workflow rows as the FK cascade would
			kept := m.workflowTasks[:0]
			for _, wt := range m.workflowTasks {
				if wt.TaskID != id {
					kept = append(kept, wt)
				}
			}
			m.workflowTasks = kept
			return nil
		}
	}
	return ErrNotFound
}

// Workflows

func (m *MockStore) SaveWorkflow(w models.EventWorkflow) (int64, error) {
	if m.committed {
		return 0, errors.New("transaction already committed")
	}
	m.nextID++
	w.ID = m.nextID
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}
	m.workflows = append(m.workflows, w)
	return w.ID, nil
}

func (m *MockStore) GetEventWorkflows(eventID int64) ([]models.EventWorkflow, error) {
	var out []models.EventWorkflow
	for _, w := range m.workflows {
		if w.EventID == eventID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *MockStore) GetWorkflowTasks(workflowID int64) ([]models.WorkflowTask, error) {
	var out []models.WorkflowTask
	for _, wt := range m.workflowTasks {
		if wt.WorkflowID == workflowID {
			out = append(out, wt)
		}
	}
	return out, nil
}

func (m *MockStore) AddTaskToWorkflow(wt models.WorkflowTask) error {
	if m.committed {
		return errors.New("transaction already committed")
	}
	for _, existing := range m.workflowTasks {
		if existing.WorkflowID == wt.WorkflowID && existing.TaskID == wt.TaskID {
			return errors.New("task already in workflow")
		}
	}
	m.workflowTasks = append(m.workflowTasks, wt)
	return nil
}

func (m *MockStore) GetTaskWorkflow(taskID int64) (models.EventWorkflow, error) {
	for _, wt := range m.workflowTasks {
		if wt.TaskID == taskID {
			for _, w := range m.workflows {
				if w.ID == wt.WorkflowID {
					return w, nil
				}
			}
		}
	}
	return models.EventWorkflow{}, ErrNotFound
}

func (m *MockStore) GetWorkflowWithTasks(workflowID int64) (models.EventWorkflow, []models.WorkflowTask, error) {
	for _, w := range m.workflows {
		if w.ID == workflowID {
			wts, _ := m.GetWorkflowTasks(workflowID)
			return w, wts, nil
		}
	}
	return models.EventWorkflow{}, nil, ErrNotFound
}

// Dependency state

func (m *MockStore) ActivateWaitingTasks(completedTaskID int64) ([]models.Task, error) {
	task, err := m.GetTask(completedTaskID)
	if err != nil {
		return nil, err
	}
	ed, err := m.GetEventDepartment(task.EventDepartmentID)
	if err != nil {
		return nil, err
	}
	tpl := m.templateForTask(task, ed.DepartmentID)
	if tpl == nil {
		return nil, nil
	}
	var promoted []models.Task
	for _, p := range m.prerequisites {
		if p.PrerequisiteTemplateID != tpl.ID {
			continue
		}
		dep := m.findTaskForTemplate(ed.EventID, p.TemplateID)
		if dep == nil || dep.Status != models.WaitingTaskStatus {
			continue
		}
		if !m.allPrerequisitesCompleted(ed.EventID, p.TemplateID) {
			continue
		}
		for i := range m.tasks {
			if m.tasks[i].ID == dep.ID {
				m.tasks[i].Status = models.PendingTaskStatus
				promoted = append(promoted, m.tasks[i])
			}
		}
	}
	return promoted, nil
}

func (m *MockStore) IsTaskPrerequisiteForOthers(taskID int64) (bool, error) {
	deps, err := m.GetDependentTasks(taskID)
	if err != nil {
		return false, err
	}
	return len(deps) > 0, nil
}

func (m *MockStore) GetDependentTasks(taskID int64) ([]models.Task, error) {
	task, err := m.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	ed, err := m.GetEventDepartment(task.EventDepartmentID)
	if err != nil {
		return nil, err
	}
	tpl := m.templateForTask(task, ed.DepartmentID)
	if tpl == nil {
		return nil, nil
	}
	var out []models.Task
	for _, p := range m.prerequisites {
		if p.PrerequisiteTemplateID != tpl.ID {
			continue
		}
		if dep := m.findTaskForTemplate(ed.EventID, p.TemplateID); dep != nil {
			out = append(out, *dep)
		}
	}
	return out, nil
}

// templateForTask resolves a task's originating template, preferring the
// persisted template id over the legacy (title, department) match.
func (m *MockStore) templateForTask(task models.Task, departmentID int64) *models.RequirementTemplate {
	for i, t := range m.templates {
		if task.TemplateID != nil && t.ID == *task.TemplateID {
			return &m.templates[i]
		}
		if task.TemplateID == nil && t.DepartmentID == departmentID && t.Title == task.Title {
			return &m.templates[i]
		}
	}
	return nil
}

// findTaskForTemplate locates the concrete task instantiated from a template
// within one event, or nil if it was never created.
func (m *MockStore) findTaskForTemplate(eventID, templateID int64) *models.Task {
	tpl, err := m.GetRequirement(templateID)
	if err != nil {
		return nil
	}
	ed, err := m.GetEventDepartmentByEventAndDepartment(eventID, tpl.DepartmentID)
	if err != nil {
		return nil
	}
	for i, t := range m.tasks {
		if t.EventDepartmentID != ed.ID {
			continue
		}
		if t.TemplateID != nil && *t.TemplateID == templateID {
			return &m.tasks[i]
		}
		if t.TemplateID == nil && t.Title == tpl.Title {
			return &m.tasks[i]
		}
	}
	return nil
}

func (m *MockStore) allPrerequisitesCompleted(eventID, templateID int64) bool {
	for _, p := range m.prerequisites {
		if p.TemplateID != templateID {
			continue
		}
		t := m.findTaskForTemplate(eventID, p.PrerequisiteTemplateID)
		if t == nil || t.Status != models.CompletedTaskStatus {
			return false
		}
	}
	return true
}
