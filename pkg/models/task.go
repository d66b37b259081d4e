package models

import "time"

type TaskStatus string

const (
	WaitingTaskStatus    TaskStatus = "waiting" // Blocked on at least one incomplete prerequisite task
	PendingTaskStatus    TaskStatus = "pending"
	InProgressTaskStatus TaskStatus = "in_progress"
	CompletedTaskStatus  TaskStatus = "completed"
	CancelledTaskStatus  TaskStatus = "cancelled"
)

// User roles as far as this engine cares about them. Anything else is
// treated as least-privileged.
const (
	AdminRole      = "admin"
	SuperadminRole = "superadmin"
)

// Task is a concrete, event-scoped instance of a requirement template.
// TemplateID is persisted at creation and is the primary join back to the
// originating template; rows created before the column existed fall back to
// (title, department) matching during reconciliation.
type Task struct {
	ID                int64      `json:"id" db:"id"`
	EventDepartmentID int64      `json:"event_department_id" db:"event_department_id"`
	TemplateID        *int64     `json:"template_id,omitempty" db:"template_id"`
	Title             string     `json:"title" db:"title"`
	TitleTranslation  string     `json:"title_translation,omitempty" db:"title_translation"`
	Status            TaskStatus `json:"status" db:"status"`
	Priority          string     `json:"priority,omitempty" db:"priority"`
	DueDate           *time.Time `json:"due_date,omitempty" db:"due_date"`
	CreatedByUserID   int64      `json:"created_by" db:"created_by"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
}
