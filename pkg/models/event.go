package models

import "time"

// Event is one edition of an event the portal administers.
type Event struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`
}

// EventDepartment scopes one department's participation in one event. It is
// the owning unit for the tasks of that department within that event.
type EventDepartment struct {
	ID           int64 `json:"id" db:"id"`
	EventID      int64 `json:"event_id" db:"event_id"`
	DepartmentID int64 `json:"department_id" db:"department_id"`
}
