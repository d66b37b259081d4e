package models

import "time"

// EventWorkflow groups a chain of tasks joined by prerequisite links,
// scoped to one event.
type EventWorkflow struct {
	ID              int64     `json:"id" db:"id"`
	EventID         int64     `json:"event_id" db:"event_id"`
	CreatedByUserID int64     `json:"created_by" db:"created_by"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// WorkflowTask is the join row placing one task inside a workflow.
// OrderIndex is strictly increasing per workflow and mirrors insertion
// order, not topological depth; the root entry has order 0 and no
// prerequisite.
type WorkflowTask struct {
	WorkflowID         int64  `json:"workflow_id" db:"workflow_id"`
	TaskID             int64  `json:"task_id" db:"task_id"`
	PrerequisiteTaskID *int64 `json:"prerequisite_task_id,omitempty" db:"prerequisite_task_id"`
	OrderIndex         int    `json:"order_index" db:"order_index"`
}
