// Package share implements cooperative tables: multi-user todo lists with
// an owner, invited members, and an invitation state machine whose expiry
// is computed at read time.
package share

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/daylist-io/daylist/internal/apperr"
	"github.com/daylist-io/daylist/internal/model"
	"github.com/daylist-io/daylist/internal/store"
)

// Service coordinates shared tables, invitations, and shared todos.
type Service struct {
	store     store.Store
	log       *logrus.Logger
	inviteTTL time.Duration
	now       func() time.Time
}

// NewService wires a Service. inviteTTL is how long an invitation stays
// pending before it reads as expired.
func NewService(s store.Store, log *logrus.Logger, inviteTTL time.Duration) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{store: s, log: log, inviteTTL: inviteTTL, now: time.Now}
}

// CreateTable creates a shared table owned by the session user; the owner's
// email becomes the first member.
func (s *Service) CreateTable(ctx context.Context, sess model.Session, name, description string) (*model.SharedTable, error) {
	if !sess.Valid() {
		return nil, apperr.Validation(apperr.CodeCreateSharedTable, "missing session")
	}
	if strings.TrimSpace(name) == "" {
		return nil, apperr.Validation(apperr.CodeCreateSharedTable, "table name must not be empty")
	}
	tbl, err := s.store.CreateSharedTable(ctx, model.SharedTable{
		OwnerID:     sess.UserID,
		Name:        strings.TrimSpace(name),
		Description: description,
	})
	if err != nil {
		return nil, wrapStore(apperr.CodeCreateSharedTable, "creating shared table", err)
	}
	if sess.Email != "" {
		if err := s.store.AddMember(ctx, tbl.ID, sess.Email); err != nil {
			return nil, wrapStore(apperr.CodeCreateSharedTable, "registering owner membership", err)
		}
	}
	return tbl, nil
}

// UpdateTable renames a table. Owner only.
func (s *Service) UpdateTable(ctx context.Context, sess model.Session, tableID, name, description string) error {
	tbl, err := s.ownedTable(ctx, sess, tableID, apperr.CodeUpdateSharedTable)
	if err != nil {
		return err
	}
	tbl.Name = name
	tbl.Description = description
	if err := s.store.UpdateSharedTable(ctx, *tbl); err != nil {
		return wrapStore(apperr.CodeUpdateSharedTable, "updating shared table "+tableID, err)
	}
	return nil
}

// DeleteTable removes a table and, via storage cascade, its members,
// invitations, and todos. Owner only.
func (s *Service) DeleteTable(ctx context.Context, sess model.Session, tableID string) error {
	if _, err := s.ownedTable(ctx, sess, tableID, apperr.CodeDeleteSharedTable); err != nil {
		return err
	}
	if err := s.store.DeleteSharedTable(ctx, tableID); err != nil {
		return wrapStore(apperr.CodeDeleteSharedTable, "deleting shared table "+tableID, err)
	}
	return nil
}

// Invite creates a pending invitation for an email address. Re-inviting an
// email that already holds an effectively pending invitation is rejected
// with ALREADY_INVITED; declined or expired invitations do not block.
func (s *Service) Invite(ctx context.Context, sess model.Session, tableID, email string) (*model.Invitation, error) {
	if _, err := s.ownedTable(ctx, sess, tableID, apperr.CodeInvite); err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.Validation(apperr.CodeInvite, fmt.Sprintf("invalid invitee email %q", email))
	}

	existing, err := s.store.ListInvitationsByTable(ctx, tableID)
	if err != nil {
		return nil, wrapStore(apperr.CodeInvite, "listing invitations for table "+tableID, err)
	}
	now := s.now()
	for _, inv := range existing {
		if inv.InviteeEmail == email && inv.EffectiveStatus(now) == model.InvitationPending {
			return nil, apperr.Validation(apperr.CodeAlreadyInvited, "a pending invitation for "+email+" already exists")
		}
	}

	inv, err := s.store.CreateInvitation(ctx, model.Invitation{
		SharedTableID: tableID,
		InviterID:     sess.UserID,
		InviteeEmail:  email,
		Status:        model.InvitationPending,
		ExpiresAt:     now.Add(s.inviteTTL),
	})
	if err != nil {
		return nil, wrapStore(apperr.CodeInvite, "creating invitation", err)
	}
	return inv, nil
}

// Accept transitions a pending invitation to accepted and adds the invitee
// to the table membership. Only the invitee may accept, and only while the
// effective status is still pending.
func (s *Service) Accept(ctx context.Context, sess model.Session, invitationID string) error {
	inv, err := s.pendingInvitation(ctx, sess, invitationID)
	if err != nil {
		return err
	}
	if err := s.store.SetInvitationStatus(ctx, invitationID, model.InvitationAccepted); err != nil {
		return wrapStore(apperr.CodeInvitationState, "accepting invitation "+invitationID, err)
	}
	if err := s.store.AddMember(ctx, inv.SharedTableID, inv.InviteeEmail); err != nil {
		return wrapStore(apperr.CodeInvitationState, "adding member "+inv.InviteeEmail, err)
	}
	return nil
}

// Decline transitions a pending invitation to declined.
func (s *Service) Decline(ctx context.Context, sess model.Session, invitationID string) error {
	if _, err := s.pendingInvitation(ctx, sess, invitationID); err != nil {
		return err
	}
	if err := s.store.SetInvitationStatus(ctx, invitationID, model.InvitationDeclined); err != nil {
		return wrapStore(apperr.CodeInvitationState, "declining invitation "+invitationID, err)
	}
	return nil
}

// pendingInvitation loads an invitation addressed to the session user and
// verifies its effective status is still pending. Expiry is derived from
// the clock; nothing is written back.
func (s *Service) pendingInvitation(ctx context.Context, sess model.Session, invitationID string) (*model.Invitation, error) {
	if !sess.Valid() {
		return nil, apperr.Validation(apperr.CodeInvitationState, "missing session")
	}
	inv, err := s.store.GetInvitation(ctx, invitationID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, err
		}
		return nil, wrapStore(apperr.CodeInvitationState, "loading invitation "+invitationID, err)
	}
	if !strings.EqualFold(inv.InviteeEmail, sess.Email) {
		return nil, apperr.NotFound(apperr.CodeInvitationState, "invitation", invitationID)
	}
	switch status := inv.EffectiveStatus(s.now()); status {
	case model.InvitationPending:
		return inv, nil
	default:
		return nil, apperr.Validation(apperr.CodeInvitationState,
			fmt.Sprintf("invitation %s is %s, not pending", invitationID, status))
	}
}

// Leave removes a member from a table. A member removes themselves by
// passing their own email or none; the owner may remove a named member but
// cannot leave without deleting or transferring the table.
func (s *Service) Leave(ctx context.Context, sess model.Session, tableID, email string) error {
	if !sess.Valid() {
		return apperr.Validation(apperr.CodeLeaveTable, "missing session")
	}
	tbl, err := s.store.GetSharedTable(ctx, tableID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return err
		}
		return wrapStore(apperr.CodeLeaveTable, "loading shared table "+tableID, err)
	}

	target := strings.ToLower(strings.TrimSpace(email))
	if target == "" {
		target = strings.ToLower(sess.Email)
	}

	isOwner := tbl.OwnerID == sess.UserID
	if isOwner && strings.EqualFold(target, sess.Email) {
		return apperr.Validation(apperr.CodeOwnerCannotLeave,
			"the owner cannot leave; delete or transfer the table instead")
	}
	if !isOwner && !strings.EqualFold(target, sess.Email) {
		return apperr.Validation(apperr.CodeLeaveTable, "members can only remove themselves")
	}

	if err := s.store.RemoveMember(ctx, tableID, target); err != nil {
		return wrapStore(apperr.CodeLeaveTable, "removing member "+target, err)
	}
	return nil
}

// Members lists the table's membership. Visible to any member.
func (s *Service) Members(ctx context.Context, sess model.Session, tableID string) ([]model.SharedMember, error) {
	if _, err := s.memberTable(ctx, sess, tableID); err != nil {
		return nil, err
	}
	members, err := s.store.ListMembers(ctx, tableID)
	if err != nil {
		return nil, wrapStore(apperr.CodeLeaveTable, "listing members of table "+tableID, err)
	}
	return members, nil
}

// CreateTodo adds a todo to a shared table. Visible to all members.
func (s *Service) CreateTodo(ctx context.Context, sess model.Session, tableID, text, moreContent string) (*model.SharedTodo, error) {
	if _, err := s.memberTable(ctx, sess, tableID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Validation(apperr.CodeSharedTodo, "shared todo text must not be empty")
	}
	todo, err := s.store.CreateSharedTodo(ctx, model.SharedTodo{
		SharedTableID: tableID,
		CreatorID:     sess.UserID,
		Text:          strings.TrimSpace(text),
		MoreContent:   moreContent,
	})
	if err != nil {
		return nil, wrapStore(apperr.CodeSharedTodo, "creating shared todo", err)
	}
	return todo, nil
}

// ListTodos returns the table's todos in order.
func (s *Service) ListTodos(ctx context.Context, sess model.Session, tableID string) ([]model.SharedTodo, error) {
	if _, err := s.memberTable(ctx, sess, tableID); err != nil {
		return nil, err
	}
	todos, err := s.store.ListSharedTodos(ctx, tableID)
	if err != nil {
		return nil, wrapStore(apperr.CodeSharedTodo, "listing shared todos", err)
	}
	return todos, nil
}

// UpdateTodo edits a shared todo's content.
func (s *Service) UpdateTodo(ctx context.Context, sess model.Session, todoID, text, moreContent string) error {
	todo, err := s.visibleTodo(ctx, sess, todoID)
	if err != nil {
		return err
	}
	todo.Text = text
	todo.MoreContent = moreContent
	if err := s.store.UpdateSharedTodo(ctx, *todo); err != nil {
		return wrapStore(apperr.CodeSharedTodo, "updating shared todo "+todoID, err)
	}
	return nil
}

// Complete marks a shared todo completed by the session user, or clears
// completion.
func (s *Service) Complete(ctx context.Context, sess model.Session, todoID string, completed bool) error {
	if _, err := s.visibleTodo(ctx, sess, todoID); err != nil {
		return err
	}
	if err := s.store.SetSharedTodoCompleted(ctx, todoID, completed, sess.UserID, s.now()); err != nil {
		return wrapStore(apperr.CodeSharedTodo, "updating shared todo "+todoID+" completion", err)
	}
	return nil
}

// DeleteTodo removes a shared todo.
func (s *Service) DeleteTodo(ctx context.Context, sess model.Session, todoID string) error {
	if _, err := s.visibleTodo(ctx, sess, todoID); err != nil {
		return err
	}
	if err := s.store.DeleteSharedTodo(ctx, todoID); err != nil {
		return wrapStore(apperr.CodeSharedTodo, "deleting shared todo "+todoID, err)
	}
	return nil
}

// ReorderTodos rewrites the table's todo order to match orderedIDs.
func (s *Service) ReorderTodos(ctx context.Context, sess model.Session, tableID string, orderedIDs []string) error {
	if _, err := s.memberTable(ctx, sess, tableID); err != nil {
		return err
	}
	if err := s.store.ReorderSharedTodos(ctx, tableID, orderedIDs); err != nil {
		return wrapStore(apperr.CodeSharedTodo, "reordering shared todos", err)
	}
	return nil
}

// ownedTable loads a table and verifies the session user owns it.
func (s *Service) ownedTable(ctx context.Context, sess model.Session, tableID, code string) (*model.SharedTable, error) {
	if !sess.Valid() {
		return nil, apperr.Validation(code, "missing session")
	}
	tbl, err := s.store.GetSharedTable(ctx, tableID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, err
		}
		return nil, wrapStore(code, "loading shared table "+tableID, err)
	}
	if tbl.OwnerID != sess.UserID {
		return nil, apperr.Validation(apperr.CodeNotTableOwner, "only the table owner may do this")
	}
	return tbl, nil
}

// memberTable loads a table and verifies the session user is the owner or
// an accepted member.
func (s *Service) memberTable(ctx context.Context, sess model.Session, tableID string) (*model.SharedTable, error) {
	if !sess.Valid() {
		return nil, apperr.Validation(apperr.CodeSharedTodo, "missing session")
	}
	tbl, err := s.store.GetSharedTable(ctx, tableID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, err
		}
		return nil, wrapStore(apperr.CodeSharedTodo, "loading shared table "+tableID, err)
	}
	if tbl.OwnerID == sess.UserID {
		return tbl, nil
	}
	ok, err := s.store.IsMember(ctx, tableID, strings.ToLower(sess.Email))
	if err != nil {
		return nil, wrapStore(apperr.CodeSharedTodo, "checking membership", err)
	}
	if !ok {
		return nil, apperr.NotFound(apperr.CodeSharedTodo, "shared table", tableID)
	}
	return tbl, nil
}

// visibleTodo loads a shared todo and verifies the session user can see its
// table.
func (s *Service) visibleTodo(ctx context.Context, sess model.Session, todoID string) (*model.SharedTodo, error) {
	if !sess.Valid() {
		return nil, apperr.Validation(apperr.CodeSharedTodo, "missing session")
	}
	todo, err := s.store.GetSharedTodo(ctx, todoID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, err
		}
		return nil, wrapStore(apperr.CodeSharedTodo, "loading shared todo "+todoID, err)
	}
	if _, err := s.memberTable(ctx, sess, todo.SharedTableID); err != nil {
		return nil, err
	}
	return todo, nil
}

// wrapStore passes apperr values through untouched and wraps anything else
// as a store failure with the operation code.
func wrapStore(code, msg string, err error) error {
	if e, ok := err.(*apperr.Error); ok {
		return e
	}
	return apperr.Store(code, msg, err)
}
