package share

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/daylist-io/daylist/internal/apperr"
	"github.com/daylist-io/daylist/internal/model"
	"github.com/daylist-io/daylist/tests/testutil"
)

var (
	owner   = model.Session{UserID: "owner-1", Email: "owner@example.com"}
	invitee = model.Session{UserID: "guest-1", Email: "guest@example.com"}
)

// newService returns a service with a controllable clock. Moving *clock
// forward simulates the passage of time without writing anything back.
func newService(t *testing.T) (*Service, *time.Time) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	svc := NewService(testutil.NewTestStore(t), log, 72*time.Hour)
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }
	return svc, &clock
}

func TestInviteAcceptAddsMember(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tbl, err := svc.CreateTable(ctx, owner, "Groceries", "weekly run")
	require.NoError(t, err)

	inv, err := svc.Invite(ctx, owner, tbl.ID, "Guest@Example.com ")
	require.NoError(t, err)
	require.Equal(t, "guest@example.com", inv.InviteeEmail)
	require.Equal(t, model.InvitationPending, inv.Status)

	require.NoError(t, svc.Accept(ctx, invitee, inv.ID))

	members, err := svc.Members(ctx, invitee, tbl.ID)
	require.NoError(t, err)
	emails := make([]string, 0, len(members))
	for _, m := range members {
		emails = append(emails, m.Email)
	}
	require.Contains(t, emails, owner.Email)
	require.Contains(t, emails, invitee.Email)
}

func TestInviteRejectsDuplicatePending(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tbl, err := svc.CreateTable(ctx, owner, "Trip", "")
	require.NoError(t, err)
	_, err = svc.Invite(ctx, owner, tbl.ID, invitee.Email)
	require.NoError(t, err)

	_, err = svc.Invite(ctx, owner, tbl.ID, invitee.Email)
	require.True(t, apperr.IsValidation(err))
	require.Equal(t, apperr.CodeAlreadyInvited, apperr.CodeOf(err))
}

func TestInviteValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tbl, err := svc.CreateTable(ctx, owner, "Chores", "")
	require.NoError(t, err)

	_, err = svc.Invite(ctx, owner, tbl.ID, "not-an-email")
	require.True(t, apperr.IsValidation(err))

	// Only the owner may invite.
	_, err = svc.Invite(ctx, invitee, tbl.ID, "third@example.com")
	require.Error(t, err)
}

func TestExpiryIsComputedNotStored(t *testing.T) {
	svc, clock := newService(t)
	ctx := context.Background()

	tbl, err := svc.CreateTable(ctx, owner, "Projects", "")
	require.NoError(t, err)
	inv, err := svc.Invite(ctx, owner, tbl.ID, invitee.Email)
	require.NoError(t, err)

	*clock = clock.Add(73 * time.Hour)

	// Accepting past the deadline fails, but the row still says pending.
	err = svc.Accept(ctx, invitee, inv.ID)
	require.True(t, apperr.IsValidation(err))
	stored, err := svc.store.GetInvitation(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, model.InvitationPending, stored.Status)
	require.Equal(t, model.InvitationExpired, stored.EffectiveStatus(*clock))

	// The lapsed invitation no longer blocks a fresh one.
	_, err = svc.Invite(ctx, owner, tbl.ID, invitee.Email)
	require.NoError(t, err)
}

func TestDeclineFreesTheEmail(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tbl, err := svc.CreateTable(ctx, owner, "Garden", "")
	require.NoError(t, err)
	inv, err := svc.Invite(ctx, owner, tbl.ID, invitee.Email)
	require.NoError(t, err)

	require.NoError(t, svc.Decline(ctx, invitee, inv.ID))

	// A declined invitation is terminal.
	err = svc.Accept(ctx, invitee, inv.ID)
	require.True(t, apperr.IsValidation(err))

	_, err = svc.Invite(ctx, owner, tbl.ID, invitee.Email)
	require.NoError(t, err)
}

func TestOnlyInviteeMayRespond(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tbl, err := svc.CreateTable(ctx, owner, "Books", "")
	require.NoError(t, err)
	inv, err := svc.Invite(ctx, owner, tbl.ID, invitee.Email)
	require.NoError(t, err)

	other := model.Session{UserID: "other-1", Email: "other@example.com"}
	require.True(t, apperr.IsNotFound(svc.Accept(ctx, other, inv.ID)))
	require.True(t, apperr.IsNotFound(svc.Decline(ctx, other, inv.ID)))
}

func TestLeaveRules(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tbl, err := svc.CreateTable(ctx, owner, "Meals", "")
	require.NoError(t, err)
	inv, err := svc.Invite(ctx, owner, tbl.ID, invitee.Email)
	require.NoError(t, err)
	require.NoError(t, svc.Accept(ctx, invitee, inv.ID))

	// The owner cannot walk away from their own table.
	err = svc.Leave(ctx, owner, tbl.ID, "")
	require.True(t, apperr.IsValidation(err))
	require.Equal(t, apperr.CodeOwnerCannotLeave, apperr.CodeOf(err))

	// A member cannot remove someone else.
	err = svc.Leave(ctx, invitee, tbl.ID, owner.Email)
	require.True(t, apperr.IsValidation(err))

	// The owner may remove a named member; a member may remove themselves.
	require.NoError(t, svc.Leave(ctx, owner, tbl.ID, invitee.Email))
	_, err = svc.Members(ctx, invitee, tbl.ID)
	require.True(t, apperr.IsNotFound(err))
}

func TestSharedTodosVisibleToMembersOnly(t *testing.T) {
	svc, clock := newService(t)
	ctx := context.Background()

	tbl, err := svc.CreateTable(ctx, owner, "Renovation", "")
	require.NoError(t, err)
	inv, err := svc.Invite(ctx, owner, tbl.ID, invitee.Email)
	require.NoError(t, err)
	require.NoError(t, svc.Accept(ctx, invitee, inv.ID))

	todo, err := svc.CreateTodo(ctx, owner, tbl.ID, "Paint hallway", "two coats")
	require.NoError(t, err)

	// The member completes it; completion is attributed to them.
	require.NoError(t, svc.Complete(ctx, invitee, todo.ID, true))
	todos, err := svc.ListTodos(ctx, invitee, tbl.ID)
	require.NoError(t, err)
	require.Len(t, todos, 1)
	require.True(t, todos[0].Completed)
	require.NotNil(t, todos[0].CompletedByUserID)
	require.Equal(t, invitee.UserID, *todos[0].CompletedByUserID)
	require.NotNil(t, todos[0].CompletedAt)
	require.Equal(t, clock.Unix(), todos[0].CompletedAt.Unix())

	// Outsiders see nothing.
	outsider := model.Session{UserID: "outsider-1", Email: "outsider@example.com"}
	_, err = svc.ListTodos(ctx, outsider, tbl.ID)
	require.True(t, apperr.IsNotFound(err))
	require.True(t, apperr.IsNotFound(svc.DeleteTodo(ctx, outsider, todo.ID)))
}

func TestUpdateAndDeleteTableOwnerOnly(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tbl, err := svc.CreateTable(ctx, owner, "Old name", "")
	require.NoError(t, err)
	inv, err := svc.Invite(ctx, owner, tbl.ID, invitee.Email)
	require.NoError(t, err)
	require.NoError(t, svc.Accept(ctx, invitee, inv.ID))

	err = svc.UpdateTable(ctx, invitee, tbl.ID, "Hijacked", "")
	require.True(t, apperr.IsValidation(err))
	require.Equal(t, apperr.CodeNotTableOwner, apperr.CodeOf(err))

	require.NoError(t, svc.UpdateTable(ctx, owner, tbl.ID, "New name", "fresh"))
	got, err := svc.store.GetSharedTable(ctx, tbl.ID)
	require.NoError(t, err)
	require.Equal(t, "New name", got.Name)

	require.True(t, apperr.IsValidation(svc.DeleteTable(ctx, invitee, tbl.ID)))
	require.NoError(t, svc.DeleteTable(ctx, owner, tbl.ID))
	_, err = svc.store.GetSharedTable(ctx, tbl.ID)
	require.True(t, apperr.IsNotFound(err))
}
