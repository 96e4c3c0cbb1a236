package lineage

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/daylist-io/daylist/internal/apperr"
	"github.com/daylist-io/daylist/internal/model"
)

// Moving an item between a pool and the day store spans two tables without
// a shared transaction, so both directions run as a saga: copy to the
// destination, migrate the lineage root if needed, delete the source, and
// on a failed delete undo the copy. A failed undo is reported as a
// SagaCompensation error since it leaves a duplicated record behind.

// AssignPoolItemToDay consumes a pool item and creates a todo record on the
// target date carrying the same content and lineage.
//
// When the item was a non-root lineage member, the new record becomes the
// lineage root and every linked record is re-pointed to it, so the root
// never disappears into a scope it no longer represents.
func (e *Engine) AssignPoolItemToDay(ctx context.Context, sess model.Session, itemID, date string) (*model.TodoRecord, error) {
	src, err := e.ownedPoolItem(ctx, sess, itemID, apperr.CodeAssignPoolItem)
	if err != nil {
		return nil, err
	}

	dest, err := e.store.CreateTodo(ctx, model.TodoRecord{
		OwnerID:        src.OwnerID,
		Text:           src.Text,
		MoreContent:    src.MoreContent,
		ImageRef:       src.ImageRef,
		ScheduledDate:  date,
		Completed:      src.Completed,
		OriginalTodoID: src.OriginalTodoID,
		FromPool:       src.Pool == model.PoolDelegated,
		CreatedAt:      src.CreatedAt,
	})
	if err != nil {
		return nil, wrapStore(apperr.CodeAssignPoolItem, "creating day record for pool item "+itemID, err)
	}

	repointed, err := e.migrateRoot(ctx, src.OwnerID, src.ID, src.OriginalTodoID, dest.ID)
	if err != nil {
		return nil, e.compensateTodo(ctx, apperr.CodeAssignPoolItem, src.OwnerID, src.ID, dest.ID, repointed, src.OriginalTodoID, err)
	}
	if repointed {
		dest.OriginalTodoID = dest.ID
	}

	if err := e.store.DeletePoolItem(ctx, src.ID); err != nil {
		return nil, e.compensateTodo(ctx, apperr.CodeAssignPoolItem, src.OwnerID, src.ID, dest.ID, repointed, src.OriginalTodoID, err)
	}
	return dest, nil
}

// MoveTodoToPool is the mirror move: a scheduled todo becomes a pool item.
func (e *Engine) MoveTodoToPool(ctx context.Context, sess model.Session, todoID string, pool model.PoolKind) (*model.PoolItem, error) {
	if !pool.Valid() {
		return nil, apperr.Validation(apperr.CodeMoveTodoToPool, "unknown pool kind")
	}
	src, err := e.ownedTodo(ctx, sess, todoID, apperr.CodeMoveTodoToPool)
	if err != nil {
		return nil, err
	}

	dest, err := e.store.CreatePoolItem(ctx, model.PoolItem{
		OwnerID:        src.OwnerID,
		Pool:           pool,
		Text:           src.Text,
		MoreContent:    src.MoreContent,
		ImageRef:       src.ImageRef,
		Completed:      src.Completed,
		OriginalTodoID: src.OriginalTodoID,
		CreatedAt:      src.CreatedAt,
	})
	if err != nil {
		return nil, wrapStore(apperr.CodeMoveTodoToPool, "creating pool item for todo "+todoID, err)
	}

	repointed, err := e.migrateRoot(ctx, src.OwnerID, src.ID, src.OriginalTodoID, dest.ID)
	if err != nil {
		return nil, e.compensatePoolItem(ctx, apperr.CodeMoveTodoToPool, src.OwnerID, src.ID, dest.ID, repointed, src.OriginalTodoID, err)
	}
	if repointed {
		dest.OriginalTodoID = dest.ID
	}

	if err := e.store.DeleteTodo(ctx, src.ID); err != nil {
		return nil, e.compensatePoolItem(ctx, apperr.CodeMoveTodoToPool, src.OwnerID, src.ID, dest.ID, repointed, src.OriginalTodoID, err)
	}
	return dest, nil
}

// migrateRoot re-points a lineage onto the destination record when the
// source was a non-root member. Returns whether a migration happened.
func (e *Engine) migrateRoot(ctx context.Context, ownerID, srcID, srcRootID, destID string) (bool, error) {
	if srcRootID == srcID || srcRootID == destID {
		return false, nil
	}
	if err := e.store.RepointLineage(ctx, ownerID, srcRootID, destID); err != nil {
		return false, err
	}
	return true, nil
}

// compensateTodo undoes a half-finished pool-to-day move: the lineage is
// pointed back at its old root and the destination todo is deleted.
func (e *Engine) compensateTodo(ctx context.Context, code, ownerID, srcID, destID string, repointed bool, oldRootID string, cause error) error {
	if repointed {
		if err := e.store.RepointLineage(ctx, ownerID, destID, oldRootID); err != nil {
			e.logCompensationFailure(code, srcID, destID, err)
			return apperr.SagaCompensation(code, srcID, destID, err)
		}
	}
	if err := e.store.DeleteTodo(ctx, destID); err != nil {
		e.logCompensationFailure(code, srcID, destID, err)
		return apperr.SagaCompensation(code, srcID, destID, err)
	}
	return wrapStore(code, "moving record "+srcID, cause)
}

// compensatePoolItem undoes a half-finished day-to-pool move.
func (e *Engine) compensatePoolItem(ctx context.Context, code, ownerID, srcID, destID string, repointed bool, oldRootID string, cause error) error {
	if repointed {
		if err := e.store.RepointLineage(ctx, ownerID, destID, oldRootID); err != nil {
			e.logCompensationFailure(code, srcID, destID, err)
			return apperr.SagaCompensation(code, srcID, destID, err)
		}
	}
	if err := e.store.DeletePoolItem(ctx, destID); err != nil {
		e.logCompensationFailure(code, srcID, destID, err)
		return apperr.SagaCompensation(code, srcID, destID, err)
	}
	return wrapStore(code, "moving record "+srcID, cause)
}

func (e *Engine) logCompensationFailure(code, srcID, destID string, err error) {
	e.log.WithFields(logrus.Fields{
		"code":   code,
		"source": srcID,
		"dest":   destID,
	}).WithError(err).Error("saga compensation failed; duplicated records need manual reconciliation")
}
