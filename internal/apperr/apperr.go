// Package apperr defines the closed error taxonomy for the daylist core.
// Every public operation fails with exactly one of these kinds; the
// operation-specific code travels as data so callers can branch on it
// without string matching.
package apperr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an error.
type Kind int

const (
	// KindNotFound means a requested id did not resolve.
	KindNotFound Kind = iota
	// KindValidation means malformed input was rejected before any store call.
	KindValidation
	// KindStore means the relational or object store reported a failure.
	KindStore
	// KindPartialFanout means one or more propagation targets failed while
	// the triggering record's own change succeeded.
	KindPartialFanout
	// KindSagaCompensation means a cross-store move's compensating delete
	// itself failed, leaving a duplicated record behind.
	KindSagaCompensation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindStore:
		return "store"
	case KindPartialFanout:
		return "partial_fanout"
	case KindSagaCompensation:
		return "saga_compensation"
	}
	return "unknown"
}

// Operation codes carried on store failures. The underlying store message is
// preserved in the cause chain for diagnostics only.
const (
	CodeCreateTodo           = "CREATE_TODO_ERROR"
	CodeGetTodo              = "GET_TODO_ERROR"
	CodeListTodos            = "LIST_TODOS_ERROR"
	CodeUpdateTodo           = "UPDATE_TODO_ERROR"
	CodeUpdateTodoCompletion = "UPDATE_TODO_COMPLETION_STATUS_ERROR"
	CodeDeleteTodo           = "DELETE_TODO_ERROR"
	CodeReorderTodos         = "REORDER_TODOS_ERROR"
	CodeCreatePoolItem       = "CREATE_POOL_ITEM_ERROR"
	CodeGetPoolItem          = "GET_POOL_ITEM_ERROR"
	CodeUpdatePoolItem       = "UPDATE_POOL_ITEM_ERROR"
	CodeDeletePoolItem       = "DELETE_POOL_ITEM_ERROR"
	CodeReorderPool          = "REORDER_POOL_ERROR"
	CodeAssignPoolItem       = "ASSIGN_POOL_ITEM_ERROR"
	CodeMoveTodoToPool       = "MOVE_TODO_TO_POOL_ERROR"
	CodeRepeatTodo           = "REPEAT_TODO_ERROR"
	CodeImageCleanup         = "IMAGE_CLEANUP_ERROR"
	CodeCreateSharedTable    = "CREATE_SHARED_TABLE_ERROR"
	CodeUpdateSharedTable    = "UPDATE_SHARED_TABLE_ERROR"
	CodeDeleteSharedTable    = "DELETE_SHARED_TABLE_ERROR"
	CodeInvite               = "INVITE_ERROR"
	CodeAlreadyInvited       = "ALREADY_INVITED"
	CodeInvitationState      = "INVITATION_STATE_ERROR"
	CodeLeaveTable           = "LEAVE_TABLE_ERROR"
	CodeOwnerCannotLeave     = "OWNER_CANNOT_LEAVE"
	CodeNotTableOwner        = "NOT_TABLE_OWNER"
	CodeSharedTodo           = "SHARED_TODO_ERROR"
	CodeNotification         = "NOTIFICATION_ERROR"
)

// TargetResult records the outcome of one propagation target during fan-out.
type TargetResult struct {
	ID  string
	Err error
}

// Error is the single error type returned by the core.
type Error struct {
	Kind Kind
	Code string
	Msg  string

	// Targets holds per-target outcomes for partial fan-out failures.
	Targets []TargetResult

	// LeftoverIDs names the duplicated records after a failed compensation
	// (source first, then destination).
	LeftoverIDs []string

	cause error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s [%s]: %s", e.Kind, e.Code, e.Msg)
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Unwrap exposes the cause chain to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// FailedTargetIDs lists the ids of targets that failed during fan-out.
func (e *Error) FailedTargetIDs() []string {
	var ids []string
	for _, t := range e.Targets {
		if t.Err != nil {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// NotFound builds a not-found error for the given entity id.
func NotFound(code, entity, id string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Msg: fmt.Sprintf("%s %s not found", entity, id)}
}

// Validation builds a validation error. No store call may have been made.
func Validation(code, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Msg: msg}
}

// Store wraps an underlying store failure with an operation code.
func Store(code, msg string, cause error) *Error {
	return &Error{Kind: KindStore, Code: code, Msg: msg, cause: errors.WithStack(cause)}
}

// PartialFanout reports a best-effort fan-out that lost some targets.
func PartialFanout(code string, targets []TargetResult) *Error {
	e := &Error{Kind: KindPartialFanout, Code: code, Targets: targets}
	e.Msg = fmt.Sprintf("%d of %d propagation targets failed", len(e.FailedTargetIDs()), len(targets))
	return e
}

// SagaCompensation reports a failed compensating delete: both the source and
// the destination record are still present and need manual reconciliation.
func SagaCompensation(code, sourceID, destID string, cause error) *Error {
	return &Error{
		Kind:        KindSagaCompensation,
		Code:        code,
		Msg:         fmt.Sprintf("compensating delete failed; records %s and %s both persist", sourceID, destID),
		LeftoverIDs: []string{sourceID, destID},
		cause:       errors.WithStack(cause),
	}
}

// KindOf extracts the Kind from err, or KindStore if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStore
}

// CodeOf extracts the operation code from err, or "" if err is not an *Error.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindNotFound
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindValidation
}
