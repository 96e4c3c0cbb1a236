package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/daylist-io/daylist/internal/apperr"
	"github.com/daylist-io/daylist/internal/model"
)

// CreatePoolItem inserts a new pool item. Generates a UUID if ID is empty,
// assigns the next order_index within the owner+pool scope, and self-points
// the lineage root when no pointer is supplied.
func (s *SQLiteStore) CreatePoolItem(ctx context.Context, item model.PoolItem) (*model.PoolItem, error) {
	if strings.TrimSpace(item.Text) == "" {
		return nil, apperr.Validation(apperr.CodeCreatePoolItem, "pool item text must not be empty")
	}
	if item.OwnerID == "" {
		return nil, apperr.Validation(apperr.CodeCreatePoolItem, "pool item owner must not be empty")
	}
	if !item.Pool.Valid() {
		return nil, apperr.Validation(apperr.CodeCreatePoolItem, fmt.Sprintf("unknown pool kind %q", item.Pool))
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	if item.OrderIndex == 0 {
		var maxOrder int
		err := s.db.GetContext(ctx, &maxOrder,
			"SELECT COALESCE(MAX(order_index), 0) FROM pool_items WHERE owner_id = ? AND pool = ?",
			item.OwnerID, item.Pool)
		if err != nil {
			return nil, fmt.Errorf("getting max pool order_index: %w", err)
		}
		item.OrderIndex = maxOrder + 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pool_items (
			id, owner_id, pool, text, more_content, image_ref,
			completed, original_todo_id, order_index, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.OwnerID, item.Pool, item.Text, item.MoreContent, item.ImageRef,
		boolToInt(item.Completed), item.OriginalTodoID, item.OrderIndex,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating pool item: %w", err)
	}

	if item.OriginalTodoID == "" {
		if _, err := s.db.ExecContext(ctx,
			"UPDATE pool_items SET original_todo_id = ? WHERE id = ?",
			item.ID, item.ID,
		); err != nil {
			return nil, fmt.Errorf("self-pointing lineage root for pool item %s: %w", item.ID, err)
		}
		item.OriginalTodoID = item.ID
	}

	return &item, nil
}

// GetPoolItem retrieves a single pool item by ID.
func (s *SQLiteStore) GetPoolItem(ctx context.Context, id string) (*model.PoolItem, error) {
	row := s.db.QueryRowxContext(ctx, "SELECT * FROM pool_items WHERE id = ?", id)
	item, err := scanPoolItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound(apperr.CodeGetPoolItem, "pool item", id)
		}
		return nil, fmt.Errorf("getting pool item %s: %w", id, err)
	}
	return &item, nil
}

// ListPool returns the owner's items in one pool, ordered by order_index.
func (s *SQLiteStore) ListPool(ctx context.Context, ownerID string, pool model.PoolKind) ([]model.PoolItem, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM pool_items WHERE owner_id = ? AND pool = ? ORDER BY order_index ASC",
		ownerID, pool)
	if err != nil {
		return nil, fmt.Errorf("querying pool items: %w", err)
	}
	defer rows.Close()

	var items []model.PoolItem
	for rows.Next() {
		item, err := scanPoolItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdatePoolItem updates the mutable fields of an existing pool item.
func (s *SQLiteStore) UpdatePoolItem(ctx context.Context, item model.PoolItem) error {
	if strings.TrimSpace(item.Text) == "" {
		return apperr.Validation(apperr.CodeUpdatePoolItem, "pool item text must not be empty")
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE pool_items SET
			text = ?, more_content = ?, image_ref = ?, completed = ?, updated_at = ?
		WHERE id = ?`,
		item.Text, item.MoreContent, item.ImageRef,
		boolToInt(item.Completed), time.Now().UTC(),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("updating pool item %s: %w", item.ID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperr.NotFound(apperr.CodeUpdatePoolItem, "pool item", item.ID)
	}
	return nil
}

// SetPoolItemImageRef updates the image reference of one pool item.
func (s *SQLiteStore) SetPoolItemImageRef(ctx context.Context, id string, imageRef *string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE pool_items SET image_ref = ?, updated_at = ? WHERE id = ?",
		imageRef, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating pool item %s image ref: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperr.NotFound(apperr.CodeUpdatePoolItem, "pool item", id)
	}
	return nil
}

// DeletePoolItem removes a pool item by ID.
func (s *SQLiteStore) DeletePoolItem(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM pool_items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting pool item %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperr.NotFound(apperr.CodeDeletePoolItem, "pool item", id)
	}
	return nil
}

// ReorderPool rewrites order_index for each id to its 1-based position in
// orderedIDs, scoped to one owner's pool. Failures are reported per id.
func (s *SQLiteStore) ReorderPool(ctx context.Context, ownerID string, pool model.PoolKind, orderedIDs []string) error {
	now := time.Now().UTC()
	var results []apperr.TargetResult
	failed := false
	for i, id := range orderedIDs {
		result, err := s.db.ExecContext(ctx,
			"UPDATE pool_items SET order_index = ?, updated_at = ? WHERE id = ? AND owner_id = ? AND pool = ?",
			i+1, now, id, ownerID, pool)
		if err == nil {
			if rows, _ := result.RowsAffected(); rows == 0 {
				err = apperr.NotFound(apperr.CodeReorderPool, "pool item", id)
			}
		}
		if err != nil {
			failed = true
		}
		results = append(results, apperr.TargetResult{ID: id, Err: err})
	}
	if failed {
		e := apperr.PartialFanout(apperr.CodeReorderPool, results)
		e.Kind = apperr.KindStore
		return e
	}
	return nil
}

// scanPoolItem scans a pool_items row.
func scanPoolItem(row interface{ Scan(dest ...interface{}) error }) (model.PoolItem, error) {
	var (
		item      model.PoolItem
		pool      string
		imageRef  *string
		completed int
	)

	err := row.Scan(
		&item.ID, &item.OwnerID, &pool, &item.Text, &item.MoreContent, &imageRef,
		&completed, &item.OriginalTodoID, &item.OrderIndex,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.PoolItem{}, err
		}
		return model.PoolItem{}, fmt.Errorf("scanning pool item row: %w", err)
	}

	item.Pool = model.PoolKind(pool)
	item.ImageRef = imageRef
	item.Completed = completed != 0

	return item, nil
}
