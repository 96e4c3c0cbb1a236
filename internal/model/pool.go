package model

import "time"

// PoolKind distinguishes the two unscheduled holding areas.
type PoolKind string

const (
	// PoolDelegated holds todos handed off to be picked up later.
	PoolDelegated PoolKind = "delegated"
	// PoolGlobal holds date-less todos the user keeps around.
	PoolGlobal PoolKind = "global"
)

// Valid reports whether k is one of the known pool kinds.
func (k PoolKind) Valid() bool {
	return k == PoolDelegated || k == PoolGlobal
}

// PoolItem is an unscheduled todo template living in one of the pools.
// It carries the same lineage pointer as TodoRecord and is consumed
// exactly once by assigning it to a calendar day.
type PoolItem struct {
	ID             string    `json:"id" db:"id"`
	OwnerID        string    `json:"owner_id" db:"owner_id"`
	Pool           PoolKind  `json:"pool" db:"pool"`
	Text           string    `json:"text" db:"text"`
	MoreContent    string    `json:"more_content,omitempty" db:"more_content"`
	ImageRef       *string   `json:"image_ref,omitempty" db:"image_ref"`
	Completed      bool      `json:"completed" db:"completed"`
	OriginalTodoID string    `json:"original_todo_id" db:"original_todo_id"`
	OrderIndex     int       `json:"order_index" db:"order_index"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
