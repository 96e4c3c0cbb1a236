package model

import "time"

// Notification is a reminder recorded for an owner, typically "you still
// have incomplete todos today". Delivery is an external concern; the core
// only records and reads them.
type Notification struct {
	ID        string    `json:"id" db:"id"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	Date      string    `json:"date" db:"date"`
	Message   string    `json:"message" db:"message"`
	Read      bool      `json:"read" db:"read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
