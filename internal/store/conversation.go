package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/taskchat/taskchat-api/internal/domain"
)

// ConversationStore defines the interface for conversation persistence.
type ConversationStore interface {
	// Create saves a new conversation to the store.
	// It handles domain validation internally.
	// Returns ErrThreadRefExists if the thread reference is already taken.
	Create(ctx context.Context, conversation *domain.Conversation) error

	// GetByThreadRef retrieves a conversation by its caller-assigned
	// thread reference, regardless of owner. The caller is responsible
	// for the ownership check; this keeps the access decision in one
	// place (the conversation loader) and out of SQL.
	// Returns ErrConversationNotFound if no conversation has that reference.
	GetByThreadRef(ctx context.Context, threadRef string) (*domain.Conversation, error)

	// CountActiveByOwner returns the number of active conversations
	// the owner currently has.
	CountActiveByOwner(ctx context.Context, ownerID uuid.UUID) (int, error)

	// OldestActiveByOwner returns the owner's active conversation with
	// the earliest created_at. Used for FIFO eviction when the owner is
	// at the conversation limit.
	// Returns ErrConversationNotFound if the owner has no active conversations.
	OldestActiveByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Conversation, error)

	// Archive clears the active flag on a conversation. Conversations
	// are never hard-deleted by this subsystem.
	// Returns ErrConversationNotFound if the conversation does not exist.
	Archive(ctx context.Context, id uuid.UUID) error

	// Touch updates the conversation title (when non-empty) and its
	// updated_at timestamp.
	// Returns ErrConversationNotFound if the conversation does not exist.
	Touch(ctx context.Context, id uuid.UUID, title string) error

	// WithTx returns a new ConversationStore instance that uses the
	// provided transaction.
	WithTx(tx *sql.Tx) ConversationStore
}
