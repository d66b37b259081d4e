package storage

import (
	"github.com/pkg/errors"

	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/models"
)

// ErrNotFound is returned by lookups when the requested row does not exist.
// The service layer converts it into an empty result rather than an error.
var ErrNotFound = errors.New("not found")

// Store defines the storage operations the workflow engine depends on.
type Store interface {
	// Transactions. Begin returns a Store bound to the transaction; Commit
	// and Rollback are only valid on that bound Store.
	Begin() (Store, error)
	Commit() error
	Rollback() error
	Close() error

	// Template catalog
	GetRequirement(id int64) (models.RequirementTemplate, error)
	ListTemplates() ([]models.RequirementTemplate, error)
	GetDepartmentRequirements(departmentID int64) ([]models.RequirementTemplate, error)
	GetTemplatePrerequisites(templateID int64) ([]models.Prerequisite, error)
	ListPrerequisites() ([]models.Prerequisite, error)
	SavePrerequisite(p models.Prerequisite) (int64, error)
	ListDepartments() ([]models.Department, error)

	// Events
	GetEvent(id int64) (models.Event, error)
	GetEventDepartment(id int64) (models.EventDepartment, error)
	GetEventDepartmentByEventAndDepartment(eventID, departmentID int64) (models.EventDepartment, error)
	GetEventDepartments(eventID int64) ([]models.EventDepartment, error)

	// Tasks
	GetTask(id int64) (models.Task, error)
	GetTasksByEventDepartment(eventDepartmentID int64) ([]models.Task, error)
	SaveTask(t models.Task) (int64, error)
	UpdateTaskStatus(id int64, status models.TaskStatus) error
	DeleteTask(id int64) error

	// Workflows
	SaveWorkflow(w models.EventWorkflow) (int64, error)
	GetEventWorkflows(eventID int64) ([]models.EventWorkflow, error)
	GetWorkflowTasks(workflowID int64) ([]models.WorkflowTask, error)
	AddTaskToWorkflow(wt models.WorkflowTask) error
	GetTaskWorkflow(taskID int64) (models.EventWorkflow, error)
	GetWorkflowWithTasks(workflowID int64) (models.EventWorkflow, []models.WorkflowTask, error)

	// Dependency state. ActivateWaitingTasks finds the waiting tasks that
	// list the completed task as a prerequisite, re-checks every
	// prerequisite of each, and promotes to pending only those whose
	// prerequisites are now all completed. Dependents are derived from
	// template-level edges within the same event, so tasks with multiple
	// prerequisites are evaluated correctly even though only their first
	// resolvable prerequisite carries a workflow link row.
	ActivateWaitingTasks(completedTaskID int64) ([]models.Task, error)
	IsTaskPrerequisiteForOthers(taskID int64) (bool, error)
	GetDependentTasks(taskID int64) ([]models.Task, error)
}
