package gateway

import (
	"context"
	"errors"

	"github.com/taskchat/taskchat-api/internal/agent"
	"github.com/taskchat/taskchat-api/internal/domain"
	"github.com/taskchat/taskchat-api/internal/history"
	"github.com/taskchat/taskchat-api/internal/store"
)

// Error kinds reported to clients on the event stream. Retryable kinds
// mean the same request may succeed later; the rest need a changed
// request or operator attention.
const (
	ErrorKindValidation   = "validation"
	ErrorKindAccessDenied = "access_denied"
	ErrorKindNotFound     = "not_found"
	ErrorKindTimeout      = "timeout"
	ErrorKindTransient    = "transient"
	ErrorKindTool         = "tool"
	ErrorKindInternal     = "internal"
)

// ErrQueueFull is returned when a thread already has the maximum number
// of turns waiting behind the in-flight one.
var ErrQueueFull = errors.New("thread queue is full")

// ClassifyError maps an error from turn processing onto the public
// error taxonomy: a stable kind plus a message safe to send to the
// client. Raw error text never crosses this boundary.
func ClassifyError(err error) (kind, message string) {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrEmptyContent),
		errors.Is(err, domain.ErrContentTooLong):
		return ErrorKindValidation, "invalid message"
	case errors.Is(err, history.ErrAccessDenied):
		return ErrorKindAccessDenied, "thread belongs to another account"
	case errors.Is(err, store.ErrNotFound):
		return ErrorKindNotFound, "not found"
	case errors.Is(err, agent.ErrTurnTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return ErrorKindTimeout, "the request took too long to process"
	case errors.Is(err, ErrQueueFull):
		return ErrorKindTransient, "too many pending requests for this thread, try again shortly"
	case store.IsTransientError(err):
		return ErrorKindTransient, "a temporary storage problem occurred, try again shortly"
	case errors.Is(err, agent.ErrToolLimitExceeded):
		return ErrorKindTool, "the request required too many tool operations"
	case errors.Is(err, agent.ErrModelFailure):
		return ErrorKindInternal, "the assistant is temporarily unavailable"
	default:
		return ErrorKindInternal, "an internal error occurred"
	}
}
