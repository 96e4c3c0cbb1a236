package store

import (
	"context"
	"time"

	"github.com/daylist-io/daylist/internal/model"
)

// Store defines the persistence interface for todos, pools, image
// references, shared tables, and notifications.
type Store interface {
	// === Todo records ===

	CreateTodo(ctx context.Context, todo model.TodoRecord) (*model.TodoRecord, error)
	GetTodoByID(ctx context.Context, id string) (*model.TodoRecord, error)
	ListTodosByOwnerAndDate(ctx context.Context, ownerID, date string) ([]model.TodoRecord, error)
	SetTodoContent(ctx context.Context, id, text, moreContent string, markIndependent bool) error
	SetTodoImageRef(ctx context.Context, id string, imageRef *string) error
	SetTodoCompleted(ctx context.Context, id string, completed bool) error
	DeleteTodo(ctx context.Context, id string) error
	ReorderTodos(ctx context.Context, ownerID, date string, orderedIDs []string) error
	CountIncompleteTodos(ctx context.Context, ownerID, date string) (int, error)

	// === Lineage ===

	// LineageMembers returns all non-independent todos of one owner sharing
	// rootID as their lineage pointer, excluding excludeID.
	LineageMembers(ctx context.Context, ownerID, rootID, excludeID string) ([]model.TodoRecord, error)

	// RepointLineage migrates every non-independent todo and pool item of
	// ownerID from one lineage root to another.
	RepointLineage(ctx context.Context, ownerID, fromRootID, toRootID string) error

	// === Pools ===

	CreatePoolItem(ctx context.Context, item model.PoolItem) (*model.PoolItem, error)
	GetPoolItem(ctx context.Context, id string) (*model.PoolItem, error)
	ListPool(ctx context.Context, ownerID string, pool model.PoolKind) ([]model.PoolItem, error)
	UpdatePoolItem(ctx context.Context, item model.PoolItem) error
	SetPoolItemImageRef(ctx context.Context, id string, imageRef *string) error
	DeletePoolItem(ctx context.Context, id string) error
	ReorderPool(ctx context.Context, ownerID string, pool model.PoolKind, orderedIDs []string) error

	// === Image references ===

	// CountImageRefs counts live todo and pool rows of ownerID whose
	// image_ref equals imageURL, excluding the row with id excludingID.
	CountImageRefs(ctx context.Context, ownerID, imageURL, excludingID string) (int, error)

	// === Shared tables ===

	CreateSharedTable(ctx context.Context, tbl model.SharedTable) (*model.SharedTable, error)
	GetSharedTable(ctx context.Context, id string) (*model.SharedTable, error)
	UpdateSharedTable(ctx context.Context, tbl model.SharedTable) error
	DeleteSharedTable(ctx context.Context, id string) error
	AddMember(ctx context.Context, tableID, email string) error
	RemoveMember(ctx context.Context, tableID, email string) error
	ListMembers(ctx context.Context, tableID string) ([]model.SharedMember, error)
	IsMember(ctx context.Context, tableID, email string) (bool, error)

	CreateInvitation(ctx context.Context, inv model.Invitation) (*model.Invitation, error)
	GetInvitation(ctx context.Context, id string) (*model.Invitation, error)
	ListInvitationsByTable(ctx context.Context, tableID string) ([]model.Invitation, error)
	ListInvitationsByEmail(ctx context.Context, email string) ([]model.Invitation, error)
	SetInvitationStatus(ctx context.Context, id string, status model.InvitationStatus) error

	CreateSharedTodo(ctx context.Context, todo model.SharedTodo) (*model.SharedTodo, error)
	GetSharedTodo(ctx context.Context, id string) (*model.SharedTodo, error)
	ListSharedTodos(ctx context.Context, tableID string) ([]model.SharedTodo, error)
	UpdateSharedTodo(ctx context.Context, todo model.SharedTodo) error
	SetSharedTodoCompleted(ctx context.Context, id string, completed bool, byUserID string, at time.Time) error
	DeleteSharedTodo(ctx context.Context, id string) error
	ReorderSharedTodos(ctx context.Context, tableID string, orderedIDs []string) error

	// === Notifications ===

	CreateNotification(ctx context.Context, n model.Notification) error
	GetUnreadNotifications(ctx context.Context, ownerID string) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	HasNotificationForDate(ctx context.Context, ownerID, date string) (bool, error)
}
