// Package lineage implements the todo propagation model: a todo created
// once can be repeated across days, independently edited, parked in a pool
// and reassigned, while edits and image changes flow to every record that
// still shares its lineage root.
//
// The engine is stateless between calls; all state lives in the stores.
package lineage

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/daylist-io/daylist/internal/apperr"
	"github.com/daylist-io/daylist/internal/imageref"
	"github.com/daylist-io/daylist/internal/model"
	"github.com/daylist-io/daylist/internal/store"
)

// defaultFanout bounds how many propagation updates run concurrently.
const defaultFanout = 8

// Engine coordinates lineage propagation across the todo and pool stores
// and garbage-collects images through the reference manager.
type Engine struct {
	store  store.Store
	images *imageref.Manager
	log    *logrus.Logger
	fanout int
}

// NewEngine wires an Engine. A nil logger falls back to the standard one.
func NewEngine(s store.Store, images *imageref.Manager, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{store: s, images: images, log: log, fanout: defaultFanout}
}

// CreateParams carries the user-supplied fields for a new todo.
type CreateParams struct {
	Text        string
	MoreContent string
	ImageRef    *string
	Date        string
}

// Create inserts a standalone todo scheduled on the given day. The new
// record becomes its own lineage root.
func (e *Engine) Create(ctx context.Context, sess model.Session, p CreateParams) (*model.TodoRecord, error) {
	if !sess.Valid() {
		return nil, apperr.Validation(apperr.CodeCreateTodo, "missing session")
	}
	if strings.TrimSpace(p.Text) == "" {
		return nil, apperr.Validation(apperr.CodeCreateTodo, "todo text must not be empty")
	}
	todo, err := e.store.CreateTodo(ctx, model.TodoRecord{
		OwnerID:       sess.UserID,
		Text:          strings.TrimSpace(p.Text),
		MoreContent:   p.MoreContent,
		ImageRef:      p.ImageRef,
		ScheduledDate: p.Date,
	})
	if err != nil {
		return nil, wrapStore(apperr.CodeCreateTodo, "creating todo", err)
	}
	return todo, nil
}

// Repeat creates one linked copy of the todo per target date. Copies share
// the source's lineage root and start uncompleted.
func (e *Engine) Repeat(ctx context.Context, sess model.Session, todoID string, dates []string) ([]model.TodoRecord, error) {
	src, err := e.ownedTodo(ctx, sess, todoID, apperr.CodeRepeatTodo)
	if err != nil {
		return nil, err
	}
	var copies []model.TodoRecord
	for _, date := range dates {
		copy, err := e.store.CreateTodo(ctx, model.TodoRecord{
			OwnerID:        src.OwnerID,
			Text:           src.Text,
			MoreContent:    src.MoreContent,
			ImageRef:       src.ImageRef,
			ScheduledDate:  date,
			OriginalTodoID: src.OriginalTodoID,
		})
		if err != nil {
			return copies, wrapStore(apperr.CodeRepeatTodo, "repeating todo "+todoID, err)
		}
		copies = append(copies, *copy)
	}
	return copies, nil
}

// EditContent applies a text/moreContent edit to one todo and, unless the
// record is (or is being made) independent, propagates the same change to
// every linked lineage member.
//
// The fan-out is best effort: the triggering record's own edit is never
// rolled back. When some targets fail, the updated record is returned
// together with a PartialFanout error carrying per-target results.
func (e *Engine) EditContent(ctx context.Context, sess model.Session, todoID, text, moreContent string, makeIndependent bool) (*model.TodoRecord, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation(apperr.CodeUpdateTodo, "todo text must not be empty")
	}
	src, err := e.ownedTodo(ctx, sess, todoID, apperr.CodeUpdateTodo)
	if err != nil {
		return nil, err
	}

	if err := e.store.SetTodoContent(ctx, todoID, text, moreContent, makeIndependent); err != nil {
		return nil, wrapStore(apperr.CodeUpdateTodo, "updating todo "+todoID, err)
	}

	updated := *src
	updated.Text = text
	updated.MoreContent = moreContent
	updated.IndependentEdit = src.IndependentEdit || makeIndependent

	// Independent records neither receive nor emit propagation.
	if updated.IndependentEdit {
		return &updated, nil
	}

	members, err := e.store.LineageMembers(ctx, src.OwnerID, src.OriginalTodoID, src.ID)
	if err != nil {
		return &updated, wrapStore(apperr.CodeUpdateTodo, "resolving lineage of todo "+todoID, err)
	}
	if len(members) == 0 {
		return &updated, nil
	}

	results := e.fanoutContent(ctx, members, text, moreContent)
	if failed := failedTargets(results); len(failed) > 0 {
		e.logFanoutFailures("edit propagation", src, results)
		return &updated, apperr.PartialFanout(apperr.CodeUpdateTodo, results)
	}
	return &updated, nil
}

// fanoutContent pushes a content edit to all members concurrently and
// collects per-target results in input order.
func (e *Engine) fanoutContent(ctx context.Context, members []model.TodoRecord, text, moreContent string) []apperr.TargetResult {
	results := make([]apperr.TargetResult, len(members))
	sem := make(chan struct{}, e.fanout)
	var wg sync.WaitGroup
	for i, m := range members {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			err := e.store.SetTodoContent(ctx, id, text, moreContent, false)
			results[i] = apperr.TargetResult{ID: id, Err: err}
		}(i, m.ID)
	}
	wg.Wait()
	return results
}

// SetCompleted flips one todo's completion state. Completion never
// propagates to lineage members.
func (e *Engine) SetCompleted(ctx context.Context, sess model.Session, todoID string, completed bool) error {
	if _, err := e.ownedTodo(ctx, sess, todoID, apperr.CodeUpdateTodoCompletion); err != nil {
		return err
	}
	if err := e.store.SetTodoCompleted(ctx, todoID, completed); err != nil {
		return wrapStore(apperr.CodeUpdateTodoCompletion, "updating completion of todo "+todoID, err)
	}
	return nil
}

// ChangeImage replaces (or clears, when newRef is nil) a todo's image and
// propagates the change to linked lineage members.
//
// The triggering row's old image is garbage-collected through the single
// HandleImageDeletion entry point; excluding the row itself from the count
// makes the call safe after the row has already been updated. Sibling
// updates run sequentially because reference counts are dynamic during the
// fan-out: each sibling's old image is re-counted only after that sibling's
// row has been rewritten.
func (e *Engine) ChangeImage(ctx context.Context, sess model.Session, todoID string, newRef *string) (*model.TodoRecord, error) {
	src, err := e.ownedTodo(ctx, sess, todoID, apperr.CodeUpdateTodo)
	if err != nil {
		return nil, err
	}

	origURL := derefImage(src.ImageRef)
	newURL := derefImage(newRef)
	if origURL == newURL {
		return src, nil
	}

	if err := e.store.SetTodoImageRef(ctx, todoID, newRef); err != nil {
		return nil, wrapStore(apperr.CodeUpdateTodo, "updating image of todo "+todoID, err)
	}
	updated := *src
	updated.ImageRef = newRef

	var results []apperr.TargetResult
	if origURL != "" {
		if err := e.images.HandleImageDeletion(ctx, src.OwnerID, origURL, src.ID); err != nil {
			results = append(results, apperr.TargetResult{
				ID:  src.ID,
				Err: apperr.Store(apperr.CodeImageCleanup, "collecting image "+origURL, err),
			})
		}
	}

	if !src.IndependentEdit {
		members, err := e.store.LineageMembers(ctx, src.OwnerID, src.OriginalTodoID, src.ID)
		if err != nil {
			return &updated, wrapStore(apperr.CodeUpdateTodo, "resolving lineage of todo "+todoID, err)
		}
		for _, m := range members {
			memberOld := derefImage(m.ImageRef)
			if memberOld == newURL {
				continue
			}
			if err := e.store.SetTodoImageRef(ctx, m.ID, newRef); err != nil {
				results = append(results, apperr.TargetResult{ID: m.ID, Err: err})
				continue
			}
			if memberOld != "" {
				if err := e.images.HandleImageDeletion(ctx, m.OwnerID, memberOld, m.ID); err != nil {
					results = append(results, apperr.TargetResult{
						ID:  m.ID,
						Err: apperr.Store(apperr.CodeImageCleanup, "collecting image "+memberOld, err),
					})
					continue
				}
			}
			results = append(results, apperr.TargetResult{ID: m.ID})
		}
	}

	if failed := failedTargets(results); len(failed) > 0 {
		e.logFanoutFailures("image propagation", src, results)
		return &updated, apperr.PartialFanout(apperr.CodeUpdateTodo, results)
	}
	return &updated, nil
}

// Delete removes one todo. Its image is garbage-collected first; lineage
// members are untouched, deletion never propagates.
func (e *Engine) Delete(ctx context.Context, sess model.Session, todoID string) error {
	src, err := e.ownedTodo(ctx, sess, todoID, apperr.CodeDeleteTodo)
	if err != nil {
		return err
	}
	if url := derefImage(src.ImageRef); url != "" {
		if err := e.images.HandleImageDeletion(ctx, src.OwnerID, url, src.ID); err != nil {
			return apperr.Store(apperr.CodeImageCleanup, "collecting image "+url, err)
		}
	}
	if err := e.store.DeleteTodo(ctx, todoID); err != nil {
		return wrapStore(apperr.CodeDeleteTodo, "deleting todo "+todoID, err)
	}
	return nil
}

// ownedTodo loads a todo and verifies it belongs to the session user.
// Records of other owners read as not found.
func (e *Engine) ownedTodo(ctx context.Context, sess model.Session, todoID, code string) (*model.TodoRecord, error) {
	if !sess.Valid() {
		return nil, apperr.Validation(code, "missing session")
	}
	todo, err := e.store.GetTodoByID(ctx, todoID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, err
		}
		return nil, wrapStore(code, "loading todo "+todoID, err)
	}
	if todo.OwnerID != sess.UserID {
		return nil, apperr.NotFound(code, "todo", todoID)
	}
	return todo, nil
}

// ownedPoolItem loads a pool item and verifies it belongs to the session user.
func (e *Engine) ownedPoolItem(ctx context.Context, sess model.Session, itemID, code string) (*model.PoolItem, error) {
	if !sess.Valid() {
		return nil, apperr.Validation(code, "missing session")
	}
	item, err := e.store.GetPoolItem(ctx, itemID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, err
		}
		return nil, wrapStore(code, "loading pool item "+itemID, err)
	}
	if item.OwnerID != sess.UserID {
		return nil, apperr.NotFound(code, "pool item", itemID)
	}
	return item, nil
}

func (e *Engine) logFanoutFailures(op string, src *model.TodoRecord, results []apperr.TargetResult) {
	for _, r := range results {
		if r.Err == nil {
			continue
		}
		e.log.WithFields(logrus.Fields{
			"op":     op,
			"source": src.ID,
			"target": r.ID,
		}).WithError(r.Err).Warn("propagation target failed")
	}
}

func failedTargets(results []apperr.TargetResult) []string {
	var ids []string
	for _, r := range results {
		if r.Err != nil {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

func derefImage(ref *string) string {
	if ref == nil {
		return ""
	}
	return *ref
}

// wrapStore passes apperr values through untouched and wraps anything else
// as a store failure with the operation code.
func wrapStore(code, msg string, err error) error {
	if e, ok := err.(*apperr.Error); ok {
		return e
	}
	return apperr.Store(code, msg, err)
}
