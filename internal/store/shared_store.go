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

// CreateSharedTable inserts a new shared table and registers its owner's
// email as the first member when provided.
func (s *SQLiteStore) CreateSharedTable(ctx context.Context, tbl model.SharedTable) (*model.SharedTable, error) {
	if strings.TrimSpace(tbl.Name) == "" {
		return nil, apperr.Validation(apperr.CodeCreateSharedTable, "shared table name must not be empty")
	}
	if tbl.OwnerID == "" {
		return nil, apperr.Validation(apperr.CodeCreateSharedTable, "shared table owner must not be empty")
	}
	if tbl.ID == "" {
		tbl.ID = uuid.New().String()
	}
	if tbl.CreatedAt.IsZero() {
		tbl.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shared_tables (id, owner_id, name, description, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		tbl.ID, tbl.OwnerID, tbl.Name, tbl.Description, tbl.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating shared table: %w", err)
	}
	return &tbl, nil
}

// GetSharedTable retrieves a shared table by ID.
func (s *SQLiteStore) GetSharedTable(ctx context.Context, id string) (*model.SharedTable, error) {
	var tbl model.SharedTable
	err := s.db.QueryRowxContext(ctx, "SELECT * FROM shared_tables WHERE id = ?", id).Scan(
		&tbl.ID, &tbl.OwnerID, &tbl.Name, &tbl.Description, &tbl.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound(apperr.CodeUpdateSharedTable, "shared table", id)
		}
		return nil, fmt.Errorf("getting shared table %s: %w", id, err)
	}
	return &tbl, nil
}

// UpdateSharedTable updates a shared table's name and description.
func (s *SQLiteStore) UpdateSharedTable(ctx context.Context, tbl model.SharedTable) error {
	if strings.TrimSpace(tbl.Name) == "" {
		return apperr.Validation(apperr.CodeUpdateSharedTable, "shared table name must not be empty")
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE shared_tables SET name = ?, description = ? WHERE id = ?",
		tbl.Name, tbl.Description, tbl.ID,
	)
	if err != nil {
		return fmt.Errorf("updating shared table %s: %w", tbl.ID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperr.NotFound(apperr.CodeUpdateSharedTable, "shared table", tbl.ID)
	}
	return nil
}

// DeleteSharedTable removes a shared table. Members, invitations, and shared
// todos go with it via ON DELETE CASCADE.
func (s *SQLiteStore) DeleteSharedTable(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM shared_tables WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting shared table %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperr.NotFound(apperr.CodeDeleteSharedTable, "shared table", id)
	}
	return nil
}

// AddMember registers an email as a member of a table. Adding an existing
// member is not an error.
func (s *SQLiteStore) AddMember(ctx context.Context, tableID, email string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO shared_members (shared_table_id, email, joined_at)
		VALUES (?, ?, ?)`,
		tableID, email, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("adding member %s to table %s: %w", email, tableID, err)
	}
	return nil
}

// RemoveMember removes an email from a table's membership.
func (s *SQLiteStore) RemoveMember(ctx context.Context, tableID, email string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM shared_members WHERE shared_table_id = ? AND email = ?",
		tableID, email,
	)
	if err != nil {
		return fmt.Errorf("removing member %s from table %s: %w", email, tableID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperr.NotFound(apperr.CodeLeaveTable, "member", email)
	}
	return nil
}

// ListMembers returns all members of a table ordered by join time.
func (s *SQLiteStore) ListMembers(ctx context.Context, tableID string) ([]model.SharedMember, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM shared_members WHERE shared_table_id = ? ORDER BY joined_at",
		tableID)
	if err != nil {
		return nil, fmt.Errorf("querying members: %w", err)
	}
	defer rows.Close()

	var members []model.SharedMember
	for rows.Next() {
		var m model.SharedMember
		if err := rows.Scan(&m.SharedTableID, &m.Email, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scanning member row: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// IsMember reports whether the email belongs to the table's membership.
func (s *SQLiteStore) IsMember(ctx context.Context, tableID, email string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM shared_members WHERE shared_table_id = ? AND email = ?",
		tableID, email)
	if err != nil {
		return false, fmt.Errorf("checking membership: %w", err)
	}
	return count > 0, nil
}

// CreateInvitation inserts a new invitation row.
func (s *SQLiteStore) CreateInvitation(ctx context.Context, inv model.Invitation) (*model.Invitation, error) {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.Status == "" {
		inv.Status = model.InvitationPending
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invitations (id, shared_table_id, inviter_id, invitee_email, status, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.SharedTableID, inv.InviterID, inv.InviteeEmail,
		inv.Status, inv.ExpiresAt.UTC(), inv.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating invitation: %w", err)
	}
	return &inv, nil
}

// GetInvitation retrieves an invitation by ID.
func (s *SQLiteStore) GetInvitation(ctx context.Context, id string) (*model.Invitation, error) {
	row := s.db.QueryRowxContext(ctx, "SELECT * FROM invitations WHERE id = ?", id)
	inv, err := scanInvitation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound(apperr.CodeInvitationState, "invitation", id)
		}
		return nil, fmt.Errorf("getting invitation %s: %w", id, err)
	}
	return &inv, nil
}

// ListInvitationsByTable returns all invitations for a table, newest first.
func (s *SQLiteStore) ListInvitationsByTable(ctx context.Context, tableID string) ([]model.Invitation, error) {
	return s.listInvitations(ctx,
		"SELECT * FROM invitations WHERE shared_table_id = ? ORDER BY created_at DESC", tableID)
}

// ListInvitationsByEmail returns all invitations addressed to an email,
// newest first.
func (s *SQLiteStore) ListInvitationsByEmail(ctx context.Context, email string) ([]model.Invitation, error) {
	return s.listInvitations(ctx,
		"SELECT * FROM invitations WHERE invitee_email = ? ORDER BY created_at DESC", email)
}

func (s *SQLiteStore) listInvitations(ctx context.Context, query string, arg interface{}) ([]model.Invitation, error) {
	rows, err := s.db.QueryxContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("querying invitations: %w", err)
	}
	defer rows.Close()

	var invs []model.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invs = append(invs, inv)
	}
	return invs, rows.Err()
}

// SetInvitationStatus writes a stored invitation status. Expired is a
// derived status and must never be written.
func (s *SQLiteStore) SetInvitationStatus(ctx context.Context, id string, status model.InvitationStatus) error {
	if status == model.InvitationExpired {
		return apperr.Validation(apperr.CodeInvitationState, "expired is a derived status and cannot be stored")
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE invitations SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("updating invitation %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperr.NotFound(apperr.CodeInvitationState, "invitation", id)
	}
	return nil
}

// CreateSharedTodo inserts a new shared todo with the next order_index in
// its table.
func (s *SQLiteStore) CreateSharedTodo(ctx context.Context, todo model.SharedTodo) (*model.SharedTodo, error) {
	if strings.TrimSpace(todo.Text) == "" {
		return nil, apperr.Validation(apperr.CodeSharedTodo, "shared todo text must not be empty")
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
		var maxOrder int
		err := s.db.GetContext(ctx, &maxOrder,
			"SELECT COALESCE(MAX(order_index), 0) FROM shared_todos WHERE shared_table_id = ?",
			todo.SharedTableID)
		if err != nil {
			return nil, fmt.Errorf("getting max shared order_index: %w", err)
		}
		todo.OrderIndex = maxOrder + 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shared_todos (
			id, shared_table_id, creator_id, text, more_content, image_ref,
			completed, completed_by_user_id, completed_at, order_index,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		todo.ID, todo.SharedTableID, todo.CreatorID, todo.Text, todo.MoreContent, todo.ImageRef,
		boolToInt(todo.Completed), todo.CompletedByUserID, todo.CompletedAt, todo.OrderIndex,
		todo.CreatedAt, todo.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating shared todo: %w", err)
	}
	return &todo, nil
}

// GetSharedTodo retrieves a shared todo by ID.
func (s *SQLiteStore) GetSharedTodo(ctx context.Context, id string) (*model.SharedTodo, error) {
	row := s.db.QueryRowxContext(ctx, "SELECT * FROM shared_todos WHERE id = ?", id)
	todo, err := scanSharedTodo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound(apperr.CodeSharedTodo, "shared todo", id)
		}
		return nil, fmt.Errorf("getting shared todo %s: %w", id, err)
	}
	return &todo, nil
}

// ListSharedTodos returns a table's todos ordered by order_index.
func (s *SQLiteStore) ListSharedTodos(ctx context.Context, tableID string) ([]model.SharedTodo, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM shared_todos WHERE shared_table_id = ? ORDER BY order_index ASC",
		tableID)
	if err != nil {
		return nil, fmt.Errorf("querying shared todos: %w", err)
	}
	defer rows.Close()

	var todos []model.SharedTodo
	for rows.Next() {
		todo, err := scanSharedTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}
	return todos, rows.Err()
}

// UpdateSharedTodo updates the content fields of a shared todo.
func (s *SQLiteStore) UpdateSharedTodo(ctx context.Context, todo model.SharedTodo) error {
	if strings.TrimSpace(todo.Text) == "" {
		return apperr.Validation(apperr.CodeSharedTodo, "shared todo text must not be empty")
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE shared_todos SET text = ?, more_content = ?, image_ref = ?, updated_at = ?
		WHERE id = ?`,
		todo.Text, todo.MoreContent, todo.ImageRef, time.Now().UTC(), todo.ID,
	)
	if err != nil {
		return fmt.Errorf("updating shared todo %s: %w", todo.ID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperr.NotFound(apperr.CodeSharedTodo, "shared todo", todo.ID)
	}
	return nil
}

// SetSharedTodoCompleted records who completed a shared todo and when.
// Un-completing clears both fields.
func (s *SQLiteStore) SetSharedTodoCompleted(ctx context.Context, id string, completed bool, byUserID string, at time.Time) error {
	var completedBy *string
	var completedAt *time.Time
	if completed {
		completedBy = &byUserID
		utc := at.UTC()
		completedAt = &utc
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE shared_todos SET completed = ?, completed_by_user_id = ?, completed_at = ?, updated_at = ?
		WHERE id = ?`,
		boolToInt(completed), completedBy, completedAt, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating shared todo %s completion: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperr.NotFound(apperr.CodeSharedTodo, "shared todo", id)
	}
	return nil
}

// DeleteSharedTodo removes a shared todo by ID.
func (s *SQLiteStore) DeleteSharedTodo(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM shared_todos WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting shared todo %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperr.NotFound(apperr.CodeSharedTodo, "shared todo", id)
	}
	return nil
}

// ReorderSharedTodos rewrites order_index for each id to its 1-based
// position in orderedIDs, scoped to one table. Failures are reported per id.
func (s *SQLiteStore) ReorderSharedTodos(ctx context.Context, tableID string, orderedIDs []string) error {
	now := time.Now().UTC()
	var results []apperr.TargetResult
	failed := false
	for i, id := range orderedIDs {
		result, err := s.db.ExecContext(ctx,
			"UPDATE shared_todos SET order_index = ?, updated_at = ? WHERE id = ? AND shared_table_id = ?",
			i+1, now, id, tableID)
		if err == nil {
			if rows, _ := result.RowsAffected(); rows == 0 {
				err = apperr.NotFound(apperr.CodeSharedTodo, "shared todo", id)
			}
		}
		if err != nil {
			failed = true
		}
		results = append(results, apperr.TargetResult{ID: id, Err: err})
	}
	if failed {
		e := apperr.PartialFanout(apperr.CodeSharedTodo, results)
		e.Kind = apperr.KindStore
		return e
	}
	return nil
}

// scanInvitation scans an invitations row.
func scanInvitation(row interface{ Scan(dest ...interface{}) error }) (model.Invitation, error) {
	var (
		inv    model.Invitation
		status string
	)
	err := row.Scan(
		&inv.ID, &inv.SharedTableID, &inv.InviterID, &inv.InviteeEmail,
		&status, &inv.ExpiresAt, &inv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Invitation{}, err
		}
		return model.Invitation{}, fmt.Errorf("scanning invitation row: %w", err)
	}
	inv.Status = model.InvitationStatus(status)
	return inv, nil
}

// scanSharedTodo scans a shared_todos row.
func scanSharedTodo(row interface{ Scan(dest ...interface{}) error }) (model.SharedTodo, error) {
	var (
		todo        model.SharedTodo
		imageRef    *string
		completed   int
		completedBy *string
		completedAt *time.Time
	)
	err := row.Scan(
		&todo.ID, &todo.SharedTableID, &todo.CreatorID, &todo.Text, &todo.MoreContent, &imageRef,
		&completed, &completedBy, &completedAt, &todo.OrderIndex,
		&todo.CreatedAt, &todo.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.SharedTodo{}, err
		}
		return model.SharedTodo{}, fmt.Errorf("scanning shared todo row: %w", err)
	}
	todo.ImageRef = imageRef
	todo.Completed = completed != 0
	todo.CompletedByUserID = completedBy
	todo.CompletedAt = completedAt
	return todo, nil
}
