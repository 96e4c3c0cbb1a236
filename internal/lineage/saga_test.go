package lineage_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/daylist-io/daylist/internal/apperr"
	"github.com/daylist-io/daylist/internal/lineage"
	"github.com/daylist-io/daylist/internal/model"
	"github.com/daylist-io/daylist/internal/store"
)

func TestAssignPoolItemMigratesLineageRoot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Root R on a day, pool item P and sibling C both linked under R.
	root, err := f.engine.Create(ctx, sess, lineage.CreateParams{Text: "Call dentist", Date: "2024-01-01"})
	require.NoError(t, err)
	item, err := f.store.CreatePoolItem(ctx, model.PoolItem{
		OwnerID: sess.UserID, Pool: model.PoolDelegated,
		Text: "Call dentist", OriginalTodoID: root.ID,
	})
	require.NoError(t, err)
	copies, err := f.engine.Repeat(ctx, sess, root.ID, []string{"2024-01-02"})
	require.NoError(t, err)
	sibling := copies[0]

	dest, err := f.engine.AssignPoolItemToDay(ctx, sess, item.ID, "2024-01-05")
	require.NoError(t, err)

	// The new record is the lineage root now.
	require.Equal(t, dest.ID, dest.OriginalTodoID)
	require.Equal(t, "2024-01-05", dest.ScheduledDate)
	require.True(t, dest.FromPool)

	// Every linked record follows, the old root included.
	gotSibling, err := f.store.GetTodoByID(ctx, sibling.ID)
	require.NoError(t, err)
	require.Equal(t, dest.ID, gotSibling.OriginalTodoID)
	gotRoot, err := f.store.GetTodoByID(ctx, root.ID)
	require.NoError(t, err)
	require.Equal(t, dest.ID, gotRoot.OriginalTodoID)

	// The pool item is consumed.
	_, err = f.store.GetPoolItem(ctx, item.ID)
	require.True(t, apperr.IsNotFound(err))
}

func TestAssignRootPoolItemKeepsLineagePointer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.store.CreatePoolItem(ctx, model.PoolItem{
		OwnerID: sess.UserID, Pool: model.PoolGlobal, Text: "Someday",
	})
	require.NoError(t, err)
	require.Equal(t, item.ID, item.OriginalTodoID)

	dest, err := f.engine.AssignPoolItemToDay(ctx, sess, item.ID, "2024-02-01")
	require.NoError(t, err)

	// A root item had no members to migrate; the historical pointer is
	// carried over even though the source row is gone.
	require.Equal(t, item.ID, dest.OriginalTodoID)
	require.False(t, dest.FromPool)
}

func TestAssignCopiesCompletionAndContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	url := "user-1/receipt.png"
	item, err := f.store.CreatePoolItem(ctx, model.PoolItem{
		OwnerID: sess.UserID, Pool: model.PoolDelegated,
		Text: "Expense report", MoreContent: "attach receipts",
		ImageRef: &url, Completed: true,
	})
	require.NoError(t, err)

	dest, err := f.engine.AssignPoolItemToDay(ctx, sess, item.ID, "2024-02-02")
	require.NoError(t, err)
	require.Equal(t, "Expense report", dest.Text)
	require.Equal(t, "attach receipts", dest.MoreContent)
	require.NotNil(t, dest.ImageRef)
	require.Equal(t, url, *dest.ImageRef)
	require.True(t, dest.Completed)
}

func TestMoveTodoToPoolMigratesLineage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root, err := f.engine.Create(ctx, sess, lineage.CreateParams{Text: "Tidy desk", Date: "2024-03-01"})
	require.NoError(t, err)
	copies, err := f.engine.Repeat(ctx, sess, root.ID, []string{"2024-03-02"})
	require.NoError(t, err)
	mover := copies[0]

	dest, err := f.engine.MoveTodoToPool(ctx, sess, mover.ID, model.PoolGlobal)
	require.NoError(t, err)
	require.Equal(t, model.PoolGlobal, dest.Pool)
	require.Equal(t, dest.ID, dest.OriginalTodoID)

	gotRoot, err := f.store.GetTodoByID(ctx, root.ID)
	require.NoError(t, err)
	require.Equal(t, dest.ID, gotRoot.OriginalTodoID)

	_, err = f.store.GetTodoByID(ctx, mover.ID)
	require.True(t, apperr.IsNotFound(err))
}

func TestMoveTodoToPoolRejectsUnknownPool(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.MoveTodoToPool(context.Background(), sess, "any", model.PoolKind("archive"))
	require.True(t, apperr.IsValidation(err))
}

// sagaStore injects delete failures so the saga's undo paths run.
type sagaStore struct {
	store.Store
	failPoolDelete bool
	failTodoDelete bool
}

func (s *sagaStore) DeletePoolItem(ctx context.Context, id string) error {
	if s.failPoolDelete {
		return errors.New("injected pool delete failure")
	}
	return s.Store.DeletePoolItem(ctx, id)
}

func (s *sagaStore) DeleteTodo(ctx context.Context, id string) error {
	if s.failTodoDelete {
		return errors.New("injected todo delete failure")
	}
	return s.Store.DeleteTodo(ctx, id)
}

func TestAssignCompensatesWhenSourceDeleteFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root, err := f.engine.Create(ctx, sess, lineage.CreateParams{Text: "Pay rent", Date: "2024-04-01"})
	require.NoError(t, err)
	item, err := f.store.CreatePoolItem(ctx, model.PoolItem{
		OwnerID: sess.UserID, Pool: model.PoolDelegated,
		Text: "Pay rent", OriginalTodoID: root.ID,
	})
	require.NoError(t, err)

	engine := f.engineOn(&sagaStore{Store: f.store, failPoolDelete: true})
	_, err = engine.AssignPoolItemToDay(ctx, sess, item.ID, "2024-04-05")
	require.Error(t, err)
	require.Equal(t, apperr.KindStore, apperr.KindOf(err))

	// The copy was rolled back and the lineage points back at the old root.
	todos, err := f.store.ListTodosByOwnerAndDate(ctx, sess.UserID, "2024-04-05")
	require.NoError(t, err)
	require.Empty(t, todos)
	gotRoot, err := f.store.GetTodoByID(ctx, root.ID)
	require.NoError(t, err)
	require.Equal(t, root.ID, gotRoot.OriginalTodoID)

	// The source item is still in the pool.
	gotItem, err := f.store.GetPoolItem(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, root.ID, gotItem.OriginalTodoID)
}

func TestAssignReportsFailedCompensation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.store.CreatePoolItem(ctx, model.PoolItem{
		OwnerID: sess.UserID, Pool: model.PoolGlobal, Text: "Backup laptop",
	})
	require.NoError(t, err)

	engine := f.engineOn(&sagaStore{Store: f.store, failPoolDelete: true, failTodoDelete: true})
	_, err = engine.AssignPoolItemToDay(ctx, sess, item.ID, "2024-04-06")
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperr.KindSagaCompensation, appErr.Kind)
	require.Contains(t, appErr.LeftoverIDs, item.ID)

	// Both records survive and need reconciliation.
	todos, err := f.store.ListTodosByOwnerAndDate(ctx, sess.UserID, "2024-04-06")
	require.NoError(t, err)
	require.Len(t, todos, 1)
	_, err = f.store.GetPoolItem(ctx, item.ID)
	require.NoError(t, err)
}
