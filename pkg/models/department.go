package models

// Department is an organisational unit that owns requirement templates and
// receives a scoped set of tasks per event.
type Department struct {
	ID              int64  `json:"id" db:"id"`
	Name            string `json:"name" db:"name"`
	NameTranslation string `json:"name_translation,omitempty" db:"name_translation"`
}
