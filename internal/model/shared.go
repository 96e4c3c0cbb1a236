package model

import "time"

// SharedTable is a cooperative todo list visible to its owner and all
// accepted members. Deleting a table cascades to its todos and invitations
// at the storage layer.
type SharedTable struct {
	ID          string    `json:"id" db:"id"`
	OwnerID     string    `json:"owner_id" db:"owner_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// SharedMember records one accepted participant of a shared table.
type SharedMember struct {
	SharedTableID string    `json:"shared_table_id" db:"shared_table_id"`
	Email         string    `json:"email" db:"email"`
	JoinedAt      time.Time `json:"joined_at" db:"joined_at"`
}

// InvitationStatus is the stored invitation state. Expiry is never written:
// it is derived at read time from ExpiresAt.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"

	// InvitationExpired is only ever an effective status, never stored.
	InvitationExpired InvitationStatus = "expired"
)

// Invitation asks an email address to join a shared table.
type Invitation struct {
	ID            string           `json:"id" db:"id"`
	SharedTableID string           `json:"shared_table_id" db:"shared_table_id"`
	InviterID     string           `json:"inviter_id" db:"inviter_id"`
	InviteeEmail  string           `json:"invitee_email" db:"invitee_email"`
	Status        InvitationStatus `json:"status" db:"status"`
	ExpiresAt     time.Time        `json:"expires_at" db:"expires_at"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
}

// EffectiveStatus returns the status as seen at the given time: a pending
// invitation past its expiry reads as expired without any write occurring.
func (i Invitation) EffectiveStatus(now time.Time) InvitationStatus {
	if i.Status == InvitationPending && now.After(i.ExpiresAt) {
		return InvitationExpired
	}
	return i.Status
}

// SharedTodo is a todo scoped to a shared table instead of a calendar day.
type SharedTodo struct {
	ID                string     `json:"id" db:"id"`
	SharedTableID     string     `json:"shared_table_id" db:"shared_table_id"`
	CreatorID         string     `json:"creator_id" db:"creator_id"`
	Text              string     `json:"text" db:"text"`
	MoreContent       string     `json:"more_content,omitempty" db:"more_content"`
	ImageRef          *string    `json:"image_ref,omitempty" db:"image_ref"`
	Completed         bool       `json:"completed" db:"completed"`
	CompletedByUserID *string    `json:"completed_by_user_id,omitempty" db:"completed_by_user_id"`
	CompletedAt       *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	OrderIndex        int        `json:"order_index" db:"order_index"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}
