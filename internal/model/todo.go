package model

import "time"

// DateLayout is the canonical calendar-day format used for scheduling.
// Days are stored as plain TEXT so equality filters stay trivial.
const DateLayout = "2006-01-02"

// DateOf formats a point in time as its calendar day.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

// TodoRecord is one scheduled task instance bound to an owner and a calendar day.
//
// OriginalTodoID is the lineage pointer: the id of the root record this
// instance was derived from. A freshly created standalone todo points to
// itself. IndependentEdit permanently detaches a record from lineage
// propagation while keeping the historical pointer for grouping.
type TodoRecord struct {
	ID              string    `json:"id" db:"id"`
	OwnerID         string    `json:"owner_id" db:"owner_id"`
	Text            string    `json:"text" db:"text"`
	MoreContent     string    `json:"more_content,omitempty" db:"more_content"`
	ImageRef        *string   `json:"image_ref,omitempty" db:"image_ref"`
	ScheduledDate   string    `json:"scheduled_date" db:"scheduled_date"`
	Completed       bool      `json:"completed" db:"completed"`
	OriginalTodoID  string    `json:"original_todo_id" db:"original_todo_id"`
	IndependentEdit bool      `json:"independent_edit" db:"independent_edit"`
	FromPool        bool      `json:"from_pool" db:"from_pool"`
	OrderIndex      int       `json:"order_index" db:"order_index"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// IsLineageRoot reports whether this record is its own lineage root.
func (t TodoRecord) IsLineageRoot() bool {
	return t.OriginalTodoID == t.ID
}
