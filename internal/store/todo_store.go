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

// CreateTodo inserts a new todo record. Generates a UUID if ID is empty and
// assigns the next order_index within the owner+date scope.
//
// When no lineage pointer is supplied, the record becomes its own root via a
// second statement patching original_todo_id to the freshly assigned id, so
// that root records never need a special case in lineage queries.
func (s *SQLiteStore) CreateTodo(ctx context.Context, todo model.TodoRecord) (*model.TodoRecord, error) {
	if strings.TrimSpace(todo.Text) == "" {
		return nil, apperr.Validation(apperr.CodeCreateTodo, "todo text must not be empty")
	}
	if todo.OwnerID == "" {
		return nil, apperr.Validation(apperr.CodeCreateTodo, "todo owner must not be empty")
	}
	if todo.ID == "" {
		todo.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if todo.CreatedAt.IsZero() {
		todo.CreatedAt = now
	}
	todo.UpdatedAt = now

	if todo.OrderIndex == 0 {
		next, err := s.nextTodoOrderIndex(ctx, todo.OwnerID, todo.ScheduledDate)
		if err != nil {
			return nil, err
		}
		todo.OrderIndex = next
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO todos (
			id, owner_id, text, more_content, image_ref,
			scheduled_date, completed, original_todo_id,
			independent_edit, from_pool, order_index,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		todo.ID, todo.OwnerID, todo.Text, todo.MoreContent, todo.ImageRef,
		todo.ScheduledDate, boolToInt(todo.Completed), todo.OriginalTodoID,
		boolToInt(todo.IndependentEdit), boolToInt(todo.FromPool), todo.OrderIndex,
		todo.CreatedAt, todo.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating todo: %w", err)
	}

	if todo.OriginalTodoID == "" {
		if _, err := s.db.ExecContext(ctx,
			"UPDATE todos SET original_todo_id = ? WHERE id = ?",
			todo.ID, todo.ID,
		); err != nil {
			return nil, fmt.Errorf("self-pointing lineage root for todo %s: %w", todo.ID, err)
		}
		todo.OriginalTodoID = todo.ID
	}

	return &todo, nil
}

// nextTodoOrderIndex computes max(order_index)+1 for the owner+date scope,
// starting at 1 when the scope is empty.
func (s *SQLiteStore) nextTodoOrderIndex(ctx context.Context, ownerID, date string) (int, error) {
	var maxOrder int
	err := s.db.GetContext(ctx, &maxOrder,
		"SELECT COALESCE(MAX(order_index), 0) FROM todos WHERE owner_id = ? AND scheduled_date = ?",
		ownerID, date)
	if err != nil {
		return 0, fmt.Errorf("getting max order_index: %w", err)
	}
	return maxOrder + 1, nil
}

// GetTodoByID retrieves a single todo record by ID.
func (s *SQLiteStore) GetTodoByID(ctx context.Context, id string) (*model.TodoRecord, error) {
	row := s.db.QueryRowxContext(ctx, "SELECT * FROM todos WHERE id = ?", id)
	todo, err := scanTodoRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound(apperr.CodeGetTodo, "todo", id)
		}
		return nil, fmt.Errorf("getting todo %s: %w", id, err)
	}
	return &todo, nil
}

// ListTodosByOwnerAndDate returns the owner's todos for one calendar day,
// ordered by order_index ascending.
func (s *SQLiteStore) ListTodosByOwnerAndDate(ctx context.Context, ownerID, date string) ([]model.TodoRecord, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM todos WHERE owner_id = ? AND scheduled_date = ? ORDER BY order_index ASC",
		ownerID, date)
	if err != nil {
		return nil, fmt.Errorf("querying todos: %w", err)
	}
	defer rows.Close()

	var todos []model.TodoRecord
	for rows.Next() {
		todo, err := scanTodoRecord(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}
	return todos, rows.Err()
}

// SetTodoContent updates the user-content fields of one todo. When
// markIndependent is true, the record is detached from lineage propagation
// in the same statement as the field edit.
func (s *SQLiteStore) SetTodoContent(ctx context.Context, id, text, moreContent string, markIndependent bool) error {
	query := "UPDATE todos SET text = ?, more_content = ?, updated_at = ?"
	args := []interface{}{text, moreContent, time.Now().UTC()}
	if markIndependent {
		query += ", independent_edit = 1"
	}
	query += " WHERE id = ?"
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating todo %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperr.NotFound(apperr.CodeUpdateTodo, "todo", id)
	}
	return nil
}

// SetTodoImageRef updates the image reference of one todo. A nil imageRef
// clears it.
func (s *SQLiteStore) SetTodoImageRef(ctx context.Context, id string, imageRef *string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE todos SET image_ref = ?, updated_at = ? WHERE id = ?",
		imageRef, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating todo %s image ref: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperr.NotFound(apperr.CodeUpdateTodo, "todo", id)
	}
	return nil
}

// SetTodoCompleted flips the completion state of one todo.
func (s *SQLiteStore) SetTodoCompleted(ctx context.Context, id string, completed bool) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE todos SET completed = ?, updated_at = ? WHERE id = ?",
		boolToInt(completed), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating todo %s completion: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperr.NotFound(apperr.CodeUpdateTodoCompletion, "todo", id)
	}
	return nil
}

// DeleteTodo removes a todo record by ID.
func (s *SQLiteStore) DeleteTodo(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM todos WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting todo %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperr.NotFound(apperr.CodeDeleteTodo, "todo", id)
	}
	return nil
}

// ReorderTodos rewrites order_index for each id to its 1-based position in
// orderedIDs. Each update is independent; ids that fail are reported
// together so the caller can reconcile.
func (s *SQLiteStore) ReorderTodos(ctx context.Context, ownerID, date string, orderedIDs []string) error {
	now := time.Now().UTC()
	var results []apperr.TargetResult
	failed := false
	for i, id := range orderedIDs {
		result, err := s.db.ExecContext(ctx,
			"UPDATE todos SET order_index = ?, updated_at = ? WHERE id = ? AND owner_id = ? AND scheduled_date = ?",
			i+1, now, id, ownerID, date)
		if err == nil {
			if rows, _ := result.RowsAffected(); rows == 0 {
				err = apperr.NotFound(apperr.CodeReorderTodos, "todo", id)
			}
		}
		if err != nil {
			failed = true
		}
		results = append(results, apperr.TargetResult{ID: id, Err: err})
	}
	if failed {
		e := apperr.PartialFanout(apperr.CodeReorderTodos, results)
		e.Kind = apperr.KindStore
		return e
	}
	return nil
}

// CountIncompleteTodos counts the owner's not-yet-completed todos for one day.
func (s *SQLiteStore) CountIncompleteTodos(ctx context.Context, ownerID, date string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM todos WHERE owner_id = ? AND scheduled_date = ? AND completed = 0",
		ownerID, date)
	if err != nil {
		return 0, fmt.Errorf("counting incomplete todos: %w", err)
	}
	return count, nil
}

// LineageMembers returns all non-independent todos of one owner sharing
// rootID as their lineage pointer, excluding the record excludeID.
func (s *SQLiteStore) LineageMembers(ctx context.Context, ownerID, rootID, excludeID string) ([]model.TodoRecord, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT * FROM todos
		WHERE owner_id = ? AND original_todo_id = ? AND independent_edit = 0 AND id != ?
		ORDER BY scheduled_date, order_index`,
		ownerID, rootID, excludeID)
	if err != nil {
		return nil, fmt.Errorf("querying lineage members: %w", err)
	}
	defer rows.Close()

	var members []model.TodoRecord
	for rows.Next() {
		m, err := scanTodoRecord(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// RepointLineage migrates every non-independent todo and pool item of
// ownerID from fromRootID to toRootID. Both tables carry lineage pointers,
// so both are rewritten.
func (s *SQLiteStore) RepointLineage(ctx context.Context, ownerID, fromRootID, toRootID string) error {
	if _, err := s.db.ExecContext(ctx, `
		UPDATE todos SET original_todo_id = ?, updated_at = ?
		WHERE owner_id = ? AND original_todo_id = ? AND independent_edit = 0`,
		toRootID, time.Now().UTC(), ownerID, fromRootID,
	); err != nil {
		return fmt.Errorf("re-pointing todo lineage %s -> %s: %w", fromRootID, toRootID, err)
	}
	if _, err := s.db.ExecContext(ctx, `
		UPDATE pool_items SET original_todo_id = ?, updated_at = ?
		WHERE owner_id = ? AND original_todo_id = ?`,
		toRootID, time.Now().UTC(), ownerID, fromRootID,
	); err != nil {
		return fmt.Errorf("re-pointing pool lineage %s -> %s: %w", fromRootID, toRootID, err)
	}
	return nil
}

// CountImageRefs counts live todo and pool rows of ownerID whose image_ref
// equals imageURL, excluding the row identified by excludingID. The count is
// computed, never stored.
func (s *SQLiteStore) CountImageRefs(ctx context.Context, ownerID, imageURL, excludingID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT
			(SELECT COUNT(*) FROM todos WHERE owner_id = ? AND image_ref = ? AND id != ?) +
			(SELECT COUNT(*) FROM pool_items WHERE owner_id = ? AND image_ref = ? AND id != ?)`,
		ownerID, imageURL, excludingID,
		ownerID, imageURL, excludingID)
	if err != nil {
		return 0, fmt.Errorf("counting image references: %w", err)
	}
	return count, nil
}

// scanTodoRecord scans a todos row.
func scanTodoRecord(row interface{ Scan(dest ...interface{}) error }) (model.TodoRecord, error) {
	var (
		todo        model.TodoRecord
		imageRef    *string
		completed   int
		independent int
		fromPool    int
	)

	err := row.Scan(
		&todo.ID, &todo.OwnerID, &todo.Text, &todo.MoreContent, &imageRef,
		&todo.ScheduledDate, &completed, &todo.OriginalTodoID,
		&independent, &fromPool, &todo.OrderIndex,
		&todo.CreatedAt, &todo.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.TodoRecord{}, err
		}
		return model.TodoRecord{}, fmt.Errorf("scanning todo row: %w", err)
	}

	todo.ImageRef = imageRef
	todo.Completed = completed != 0
	todo.IndependentEdit = independent != 0
	todo.FromPool = fromPool != 0

	return todo, nil
}
