package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/taskchat/taskchat-api/internal/domain"
	"github.com/taskchat/taskchat-api/internal/platform/logger"
	"github.com/taskchat/taskchat-api/internal/store"
)

// PostgresConversationStore implements the store.ConversationStore
// interface using a PostgreSQL database as the storage backend.
type PostgresConversationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresConversationStore creates a new PostgreSQL implementation of the
// ConversationStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresConversationStore(db store.DBTX, logger *slog.Logger) *PostgresConversationStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresConversationStore{
		db:     db,
		logger: logger.With(slog.String("component", "conversation_store")),
	}
}

// Ensure PostgresConversationStore implements store.ConversationStore
var _ store.ConversationStore = (*PostgresConversationStore)(nil)

// Create implements store.ConversationStore.Create
// Returns store.ErrThreadRefExists if the thread reference is already taken.
func (s *PostgresConversationStore) Create(ctx context.Context, conversation *domain.Conversation) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := conversation.Validate(); err != nil {
		log.Warn("conversation validation failed during create",
			slog.String("error", err.Error()),
			slog.String("conversation_id", conversation.ID.String()))
		return err
	}

	query := `
		INSERT INTO conversations (id, thread_ref, owner_id, title, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		conversation.ID,
		conversation.ThreadRef,
		conversation.OwnerID,
		conversation.Title,
		conversation.Active,
		conversation.CreatedAt,
		conversation.UpdatedAt,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("thread reference already exists",
				slog.String("conversation_id", conversation.ID.String()))
			return fmt.Errorf("%w: %v", store.ErrThreadRefExists, err)
		}

		log.Error("failed to create conversation",
			slog.String("error", err.Error()),
			slog.String("conversation_id", conversation.ID.String()),
			slog.String("owner_id", conversation.OwnerID.String()))
		return MapError(err)
	}

	log.Info("conversation created",
		slog.String("conversation_id", conversation.ID.String()),
		slog.String("owner_id", conversation.OwnerID.String()))
	return nil
}

// GetByThreadRef implements store.ConversationStore.GetByThreadRef
// Returns store.ErrConversationNotFound if no conversation has that reference.
func (s *PostgresConversationStore) GetByThreadRef(ctx context.Context, threadRef string) (*domain.Conversation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, thread_ref, owner_id, title, active, created_at, updated_at
		FROM conversations
		WHERE thread_ref = $1
	`

	conversation, err := s.scanConversation(s.db.QueryRowContext(ctx, query, threadRef))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrConversationNotFound
		}
		log.Error("failed to get conversation by thread reference",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return conversation, nil
}

// CountActiveByOwner implements store.ConversationStore.CountActiveByOwner
func (s *PostgresConversationStore) CountActiveByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT COUNT(*)
		FROM conversations
		WHERE owner_id = $1 AND active
	`

	var count int
	if err := s.db.QueryRowContext(ctx, query, ownerID).Scan(&count); err != nil {
		log.Error("failed to count active conversations",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()))
		return 0, MapError(err)
	}

	return count, nil
}

// OldestActiveByOwner implements store.ConversationStore.OldestActiveByOwner
// Returns store.ErrConversationNotFound if the owner has no active conversations.
func (s *PostgresConversationStore) OldestActiveByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Conversation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, thread_ref, owner_id, title, active, created_at, updated_at
		FROM conversations
		WHERE owner_id = $1 AND active
		ORDER BY created_at ASC
		LIMIT 1
	`

	conversation, err := s.scanConversation(s.db.QueryRowContext(ctx, query, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrConversationNotFound
		}
		log.Error("failed to get oldest active conversation",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()))
		return nil, MapError(err)
	}

	return conversation, nil
}

// Archive implements store.ConversationStore.Archive
// Returns store.ErrConversationNotFound if the conversation does not exist.
func (s *PostgresConversationStore) Archive(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE conversations
		SET active = FALSE, updated_at = $1
		WHERE id = $2
	`

	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to archive conversation",
			slog.String("error", err.Error()),
			slog.String("conversation_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "conversation"); err != nil {
		return store.ErrConversationNotFound
	}

	log.Info("conversation archived",
		slog.String("conversation_id", id.String()))
	return nil
}

// Touch implements store.ConversationStore.Touch
// Returns store.ErrConversationNotFound if the conversation does not exist.
func (s *PostgresConversationStore) Touch(ctx context.Context, id uuid.UUID, title string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// An empty title keeps the existing one.
	query := `
		UPDATE conversations
		SET title = COALESCE(NULLIF($1, ''), title), updated_at = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, title, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to touch conversation",
			slog.String("error", err.Error()),
			slog.String("conversation_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "conversation"); err != nil {
		return store.ErrConversationNotFound
	}

	return nil
}

// WithTx implements store.ConversationStore.WithTx
func (s *PostgresConversationStore) WithTx(tx *sql.Tx) store.ConversationStore {
	return &PostgresConversationStore{
		db:     tx,
		logger: s.logger,
	}
}

// rowScanner abstracts *sql.Row for single-row scans.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresConversationStore) scanConversation(row rowScanner) (*domain.Conversation, error) {
	var conversation domain.Conversation
	err := row.Scan(
		&conversation.ID,
		&conversation.ThreadRef,
		&conversation.OwnerID,
		&conversation.Title,
		&conversation.Active,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}
