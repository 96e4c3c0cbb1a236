package lineage

import (
	"context"
	"strings"

	"github.com/daylist-io/daylist/internal/apperr"
	"github.com/daylist-io/daylist/internal/model"
)

// Pool items do not fan out: edits stay local to the item. They still hold
// image references, so the image paths below run through the same
// HandleImageDeletion entry point as the todo paths.

// EditPoolItem applies a text/moreContent edit to one pool item.
func (e *Engine) EditPoolItem(ctx context.Context, sess model.Session, itemID, text, moreContent string) (*model.PoolItem, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation(apperr.CodeUpdatePoolItem, "pool item text must not be empty")
	}
	src, err := e.ownedPoolItem(ctx, sess, itemID, apperr.CodeUpdatePoolItem)
	if err != nil {
		return nil, err
	}

	updated := *src
	updated.Text = text
	updated.MoreContent = moreContent
	if err := e.store.UpdatePoolItem(ctx, updated); err != nil {
		return nil, wrapStore(apperr.CodeUpdatePoolItem, "updating pool item "+itemID, err)
	}
	return &updated, nil
}

// ChangePoolItemImage replaces (or clears, when newRef is nil) a pool item's
// image. The old image is garbage-collected once no other live record of the
// owner references it.
func (e *Engine) ChangePoolItemImage(ctx context.Context, sess model.Session, itemID string, newRef *string) (*model.PoolItem, error) {
	src, err := e.ownedPoolItem(ctx, sess, itemID, apperr.CodeUpdatePoolItem)
	if err != nil {
		return nil, err
	}

	origURL := derefImage(src.ImageRef)
	newURL := derefImage(newRef)
	if origURL == newURL {
		return src, nil
	}

	if err := e.store.SetPoolItemImageRef(ctx, itemID, newRef); err != nil {
		return nil, wrapStore(apperr.CodeUpdatePoolItem, "updating image of pool item "+itemID, err)
	}
	updated := *src
	updated.ImageRef = newRef

	if origURL != "" {
		if err := e.images.HandleImageDeletion(ctx, src.OwnerID, origURL, src.ID); err != nil {
			return &updated, apperr.Store(apperr.CodeImageCleanup, "collecting image "+origURL, err)
		}
	}
	return &updated, nil
}

// DeletePoolItem removes one pool item. Its image is garbage-collected
// first; lineage members are untouched.
func (e *Engine) DeletePoolItem(ctx context.Context, sess model.Session, itemID string) error {
	src, err := e.ownedPoolItem(ctx, sess, itemID, apperr.CodeDeletePoolItem)
	if err != nil {
		return err
	}
	if url := derefImage(src.ImageRef); url != "" {
		if err := e.images.HandleImageDeletion(ctx, src.OwnerID, url, src.ID); err != nil {
			return apperr.Store(apperr.CodeImageCleanup, "collecting image "+url, err)
		}
	}
	if err := e.store.DeletePoolItem(ctx, itemID); err != nil {
		return wrapStore(apperr.CodeDeletePoolItem, "deleting pool item "+itemID, err)
	}
	return nil
}
