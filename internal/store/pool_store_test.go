package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daylist-io/daylist/internal/apperr"
	"github.com/daylist-io/daylist/internal/model"
	"github.com/daylist-io/daylist/tests/testutil"
)

func TestCreatePoolItemSelfPointsAndOrders(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	first, err := s.CreatePoolItem(ctx, model.PoolItem{OwnerID: owner, Pool: model.PoolDelegated, Text: "a"})
	require.NoError(t, err)
	require.Equal(t, first.ID, first.OriginalTodoID)
	require.Equal(t, 1, first.OrderIndex)

	second, err := s.CreatePoolItem(ctx, model.PoolItem{OwnerID: owner, Pool: model.PoolDelegated, Text: "b"})
	require.NoError(t, err)
	require.Equal(t, 2, second.OrderIndex)

	// The global pool is a separate ordering scope.
	global, err := s.CreatePoolItem(ctx, model.PoolItem{OwnerID: owner, Pool: model.PoolGlobal, Text: "c"})
	require.NoError(t, err)
	require.Equal(t, 1, global.OrderIndex)
}

func TestCreatePoolItemRejectsUnknownPool(t *testing.T) {
	s := testutil.NewTestStore(t)

	_, err := s.CreatePoolItem(context.Background(), model.PoolItem{OwnerID: owner, Pool: "someday", Text: "a"})
	require.True(t, apperr.IsValidation(err))
}

func TestListPoolScopedByOwnerAndKind(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	mine, err := s.CreatePoolItem(ctx, model.PoolItem{OwnerID: owner, Pool: model.PoolDelegated, Text: "mine"})
	require.NoError(t, err)
	_, err = s.CreatePoolItem(ctx, model.PoolItem{OwnerID: owner, Pool: model.PoolGlobal, Text: "other pool"})
	require.NoError(t, err)
	_, err = s.CreatePoolItem(ctx, model.PoolItem{OwnerID: "user-2", Pool: model.PoolDelegated, Text: "other owner"})
	require.NoError(t, err)

	items, err := s.ListPool(ctx, owner, model.PoolDelegated)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, mine.ID, items[0].ID)
}

func TestReorderPool(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	var ids []string
	for _, text := range []string{"a", "b", "c"} {
		item, err := s.CreatePoolItem(ctx, model.PoolItem{OwnerID: owner, Pool: model.PoolGlobal, Text: text})
		require.NoError(t, err)
		ids = append(ids, item.ID)
	}

	want := []string{ids[1], ids[2], ids[0]}
	require.NoError(t, s.ReorderPool(ctx, owner, model.PoolGlobal, want))

	items, err := s.ListPool(ctx, owner, model.PoolGlobal)
	require.NoError(t, err)
	require.Len(t, items, 3)
	for i, item := range items {
		require.Equal(t, want[i], item.ID)
	}
}

func TestUpdateAndDeletePoolItem(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	item, err := s.CreatePoolItem(ctx, model.PoolItem{OwnerID: owner, Pool: model.PoolDelegated, Text: "a"})
	require.NoError(t, err)

	item.Text = "edited"
	item.Completed = true
	require.NoError(t, s.UpdatePoolItem(ctx, *item))

	stored, err := s.GetPoolItem(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, "edited", stored.Text)
	require.True(t, stored.Completed)

	require.NoError(t, s.DeletePoolItem(ctx, item.ID))
	_, err = s.GetPoolItem(ctx, item.ID)
	require.True(t, apperr.IsNotFound(err))
}
