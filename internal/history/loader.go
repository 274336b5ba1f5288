// Package history reconstructs conversation context from durable
// storage. Every turn starts here: there is no process-wide cache of
// conversations, so any worker can service any request.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/taskchat/taskchat-api/internal/domain"
	"github.com/taskchat/taskchat-api/internal/platform/logger"
	"github.com/taskchat/taskchat-api/internal/store"
)

// ErrAccessDenied is returned when the stored conversation for a
// thread reference belongs to a different owner. No information about
// the other owner or their conversation is disclosed alongside it.
var ErrAccessDenied = errors.New("access denied")

// Loader loads or creates the conversation for a thread reference and
// returns its complete ordered history.
type Loader struct {
	conversations store.ConversationStore
	messages      store.MessageStore
	maxActive     int
	logger        *slog.Logger
}

// NewLoader creates a Loader. maxActive is the per-owner active
// conversation limit enforced by FIFO eviction.
func NewLoader(
	conversations store.ConversationStore,
	messages store.MessageStore,
	maxActive int,
	logger *slog.Logger,
) *Loader {
	if logger == nil {
		logger = slog.Default()
	}

	return &Loader{
		conversations: conversations,
		messages:      messages,
		maxActive:     maxActive,
		logger:        logger.With(slog.String("component", "conversation_loader")),
	}
}

// LoadOrCreate returns the conversation for (ownerID, threadRef) and
// its complete, chronologically ordered message history. The history is
// never paginated or truncated: the orchestrator needs full context.
//
// A missing thread reference creates a new conversation, evicting the
// owner's oldest active conversations first when the owner is at or
// over the limit. An existing reference owned by someone else fails
// with ErrAccessDenied.
//
// title is applied to the conversation on create, and refreshes the
// stored title on subsequent turns.
func (l *Loader) LoadOrCreate(
	ctx context.Context,
	ownerID uuid.UUID,
	threadRef, title string,
) (*domain.Conversation, []*domain.Message, error) {
	log := logger.FromContextOrDefault(ctx, l.logger)

	conversation, err := l.conversations.GetByThreadRef(ctx, threadRef)
	switch {
	case err == nil:
		if conversation.OwnerID != ownerID {
			// Log with the requesting owner only; the stored owner is
			// deliberately left out of the error path.
			log.Warn("thread reference owned by another owner",
				slog.String("owner_id", ownerID.String()))
			return nil, nil, ErrAccessDenied
		}

		if err := l.conversations.Touch(ctx, conversation.ID, title); err != nil {
			return nil, nil, fmt.Errorf("failed to touch conversation: %w", err)
		}
		conversation.Touch(title)

	case errors.Is(err, store.ErrConversationNotFound):
		conversation, err = l.create(ctx, ownerID, threadRef, title)
		if err != nil {
			return nil, nil, err
		}

	default:
		return nil, nil, fmt.Errorf("failed to look up conversation: %w", err)
	}

	messages, err := l.messages.ListByConversation(ctx, conversation.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load history: %w", err)
	}

	log.Debug("conversation context loaded",
		slog.String("conversation_id", conversation.ID.String()),
		slog.Int("history_len", len(messages)))
	return conversation, messages, nil
}

// create makes a new conversation, evicting oldest-first while the
// owner is at or over the active limit.
func (l *Loader) create(
	ctx context.Context,
	ownerID uuid.UUID,
	threadRef, title string,
) (*domain.Conversation, error) {
	log := logger.FromContextOrDefault(ctx, l.logger)

	count, err := l.conversations.CountActiveByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count conversations: %w", err)
	}

	for count >= l.maxActive {
		oldest, err := l.conversations.OldestActiveByOwner(ctx, ownerID)
		if err != nil {
			return nil, fmt.Errorf("failed to find eviction candidate: %w", err)
		}

		if err := l.conversations.Archive(ctx, oldest.ID); err != nil {
			return nil, fmt.Errorf("failed to archive conversation: %w", err)
		}

		log.Info("evicted oldest conversation",
			slog.String("owner_id", ownerID.String()),
			slog.String("conversation_id", oldest.ID.String()))
		count--
	}

	conversation, err := domain.NewConversation(ownerID, threadRef, title)
	if err != nil {
		return nil, err
	}

	if err := l.conversations.Create(ctx, conversation); err != nil {
		// A concurrent first turn on the same reference can win the
		// insert; fall back to the stored conversation.
		if errors.Is(err, store.ErrThreadRefExists) {
			stored, getErr := l.conversations.GetByThreadRef(ctx, threadRef)
			if getErr != nil {
				return nil, fmt.Errorf("failed to reload conversation: %w", getErr)
			}
			if stored.OwnerID != ownerID {
				return nil, ErrAccessDenied
			}
			return stored, nil
		}
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	log.Info("conversation created",
		slog.String("conversation_id", conversation.ID.String()),
		slog.String("owner_id", ownerID.String()))
	return conversation, nil
}
