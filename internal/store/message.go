package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/taskchat/taskchat-api/internal/domain"
)

// MessageStore defines the interface for message persistence.
type MessageStore interface {
	// Create saves a new message to the store.
	// It handles domain validation internally.
	Create(ctx context.Context, message *domain.Message) error

	// ListByConversation retrieves the complete message history of a
	// conversation in chronological order. The history is never
	// paginated or truncated: the orchestrator requires full context
	// for correct decisions.
	// Returns an empty slice if the conversation has no messages.
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]*domain.Message, error)

	// DeleteExpired deletes all messages whose expires_at is at or
	// before the given instant and returns the number deleted. The
	// deletion is a single predicate with no read-then-decide step, so
	// it is idempotent and safe to run concurrently with live traffic.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	// WithTx returns a new MessageStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) MessageStore
}
