package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/taskchat/taskchat-api/internal/domain"
	"github.com/taskchat/taskchat-api/internal/platform/logger"
	"github.com/taskchat/taskchat-api/internal/store"
)

// PostgresMessageStore implements the store.MessageStore interface
// using a PostgreSQL database as the storage backend.
type PostgresMessageStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresMessageStore creates a new PostgreSQL implementation of the
// MessageStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresMessageStore(db store.DBTX, logger *slog.Logger) *PostgresMessageStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresMessageStore{
		db:     db,
		logger: logger.With(slog.String("component", "message_store")),
	}
}

// Ensure PostgresMessageStore implements store.MessageStore
var _ store.MessageStore = (*PostgresMessageStore)(nil)

// Create implements store.MessageStore.Create
// It saves a new message to the database, handling domain validation.
// Returns store.ErrInvalidEntity if the conversation ID doesn't exist
// (foreign key violation).
func (s *PostgresMessageStore) Create(ctx context.Context, message *domain.Message) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := message.Validate(); err != nil {
		log.Warn("message validation failed during create",
			slog.String("error", err.Error()),
			slog.String("message_id", message.ID.String()))
		return err
	}

	var toolCalls []byte
	if len(message.ToolCalls) > 0 {
		var err error
		toolCalls, err = json.Marshal(message.ToolCalls)
		if err != nil {
			return fmt.Errorf("failed to marshal tool calls: %w", err)
		}
	}

	query := `
		INSERT INTO messages
			(id, conversation_id, external_ref, owner_id, role, content, tool_calls, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		message.ID,
		message.ConversationID,
		message.ExternalRef,
		message.OwnerID,
		message.Role,
		message.Content,
		toolCalls,
		message.CreatedAt,
		message.ExpiresAt,
	)

	if err != nil {
		log.Error("failed to create message",
			slog.String("error", err.Error()),
			slog.String("message_id", message.ID.String()),
			slog.String("conversation_id", message.ConversationID.String()))
		return MapError(err)
	}

	log.Debug("message created",
		slog.String("message_id", message.ID.String()),
		slog.String("conversation_id", message.ConversationID.String()),
		slog.String("role", string(message.Role)))
	return nil
}

// ListByConversation implements store.MessageStore.ListByConversation
// It retrieves the full message history in chronological order; the
// composite (conversation_id, created_at) index serves this read.
func (s *PostgresMessageStore) ListByConversation(
	ctx context.Context,
	conversationID uuid.UUID,
) ([]*domain.Message, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, conversation_id, external_ref, owner_id, role, content, tool_calls, created_at, expires_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		log.Error("failed to query messages",
			slog.String("error", err.Error()),
			slog.String("conversation_id", conversationID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var messages []*domain.Message
	for rows.Next() {
		var message domain.Message
		var role string
		var toolCalls []byte

		err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.ExternalRef,
			&message.OwnerID,
			&role,
			&message.Content,
			&toolCalls,
			&message.CreatedAt,
			&message.ExpiresAt,
		)
		if err != nil {
			log.Error("failed to scan message row",
				slog.String("error", err.Error()))
			return nil, MapError(err)
		}

		message.Role = domain.MessageRole(role)
		if len(toolCalls) > 0 {
			if err := json.Unmarshal(toolCalls, &message.ToolCalls); err != nil {
				return nil, fmt.Errorf("failed to unmarshal tool calls: %w", err)
			}
		}
		messages = append(messages, &message)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	// Return empty slice instead of nil if no messages found
	if messages == nil {
		messages = []*domain.Message{}
	}

	log.Debug("listed conversation messages",
		slog.String("conversation_id", conversationID.String()),
		slog.Int("count", len(messages)))
	return messages, nil
}

// DeleteExpired implements store.MessageStore.DeleteExpired
// The single-predicate DELETE makes the sweep idempotent and safe to
// run concurrently with live traffic; the expires_at index serves it.
func (s *PostgresMessageStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		DELETE FROM messages
		WHERE expires_at <= $1
	`

	result, err := s.db.ExecContext(ctx, query, now)
	if err != nil {
		log.Error("failed to delete expired messages",
			slog.String("error", err.Error()))
		return 0, MapError(err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

// WithTx implements store.MessageStore.WithTx
func (s *PostgresMessageStore) WithTx(tx *sql.Tx) store.MessageStore {
	return &PostgresMessageStore{
		db:     tx,
		logger: s.logger,
	}
}
