package models

// DueDateBasis selects which event date a task's due date is derived from.
type DueDateBasis string

const (
	EventStartBasis DueDateBasis = "event_start"
	EventEndBasis   DueDateBasis = "event_end"
)

// RequirementTemplate is a department-scoped definition of a recurring task
// type. Templates are long-lived and edited by administrators; tasks are
// instantiated from them once per event and department.
type RequirementTemplate struct {
	ID               int64        `json:"id" db:"id"`
	DepartmentID     int64        `json:"department_id" db:"department_id"`
	Title            string       `json:"title" db:"title"`
	TitleTranslation string       `json:"title_translation,omitempty" db:"title_translation"`
	Description      string       `json:"description,omitempty" db:"description"`
	IsDefault        bool         `json:"is_default" db:"is_default"`             // Pre-selected when a department is added to an event
	NotifyEmails     string       `json:"notify_emails,omitempty" db:"notify_emails"` // Comma-separated notification recipients
	DueDateBasis     DueDateBasis `json:"due_date_basis" db:"due_date_basis"`
	Priority         string       `json:"priority,omitempty" db:"priority"`
}

// Prerequisite is a directed edge between templates: the task instantiated
// from TemplateID may not activate before the task instantiated from
// PrerequisiteTemplateID is completed. The template graph must stay acyclic;
// this is enforced at edge-creation time only.
type Prerequisite struct {
	ID                     int64 `json:"id" db:"id"` // Serial; row order is declaration order
	TemplateID             int64 `json:"template_id" db:"template_id"`
	PrerequisiteTemplateID int64 `json:"prerequisite_template_id" db:"prerequisite_template_id"`
}
