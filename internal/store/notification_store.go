package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/daylist-io/daylist/internal/apperr"
	"github.com/daylist-io/daylist/internal/model"
)

// CreateNotification inserts a new notification record.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, owner_id, date, message, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.OwnerID, n.Date, n.Message, boolToInt(n.Read), n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}
	return nil
}

// GetUnreadNotifications retrieves an owner's unread notifications,
// newest first.
func (s *SQLiteStore) GetUnreadNotifications(ctx context.Context, ownerID string) ([]model.Notification, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM notifications WHERE owner_id = ? AND read = 0 ORDER BY created_at DESC",
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying unread notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var (
			n       model.Notification
			readInt int
		)
		if err := rows.Scan(&n.ID, &n.OwnerID, &n.Date, &n.Message, &readInt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification row: %w", err)
		}
		n.Read = readInt != 0
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead marks a single notification as read.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperr.NotFound(apperr.CodeNotification, "notification", id)
	}
	return nil
}

// HasNotificationForDate reports whether any notification already exists
// for the owner on the given day, read or not.
func (s *SQLiteStore) HasNotificationForDate(ctx context.Context, ownerID, date string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM notifications WHERE owner_id = ? AND date = ?",
		ownerID, date)
	if err != nil {
		return false, fmt.Errorf("checking notifications for %s: %w", date, err)
	}
	return count > 0, nil
}
