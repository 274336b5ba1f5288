package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/taskchat/taskchat-api/internal/domain"
	"github.com/taskchat/taskchat-api/internal/platform/logger"
	"github.com/taskchat/taskchat-api/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface using a
// PostgreSQL database as the storage backend. Every query is scoped to
// the owner ID so another owner's task is indistinguishable from a
// missing one.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		INSERT INTO tasks (id, owner_id, title, description, completed, priority, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.OwnerID,
		task.Title,
		task.Description,
		task.Completed,
		task.Priority,
		task.CreatedAt,
		task.UpdatedAt,
	)

	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()),
			slog.String("owner_id", task.OwnerID.String()))
		return MapError(err)
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("owner_id", task.OwnerID.String()),
		slog.String("priority", string(task.Priority)))
	return nil
}

// GetForOwner implements store.TaskStore.GetForOwner
// Returns store.ErrTaskNotFound if the task does not exist for the owner.
func (s *PostgresTaskStore) GetForOwner(ctx context.Context, ownerID, taskID uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, owner_id, title, description, completed, priority, created_at, updated_at
		FROM tasks
		WHERE id = $1 AND owner_id = $2
	`

	var task domain.Task
	var priority string

	err := s.db.QueryRowContext(ctx, query, taskID, ownerID).Scan(
		&task.ID,
		&task.OwnerID,
		&task.Title,
		&task.Description,
		&task.Completed,
		&priority,
		&task.CreatedAt,
		&task.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return nil, MapError(err)
	}

	task.Priority = domain.Priority(priority)
	return &task, nil
}

// ListByOwner implements store.TaskStore.ListByOwner
// A non-nil completed filter restricts the result to that completion state.
func (s *PostgresTaskStore) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	completed *bool,
) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, owner_id, title, description, completed, priority, created_at, updated_at
		FROM tasks
		WHERE owner_id = $1 AND ($2::boolean IS NULL OR completed = $2)
		ORDER BY created_at ASC
	`

	var filter sql.NullBool
	if completed != nil {
		filter = sql.NullBool{Bool: *completed, Valid: true}
	}

	rows, err := s.db.QueryContext(ctx, query, ownerID, filter)
	if err != nil {
		log.Error("failed to query tasks",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var tasks []*domain.Task
	for rows.Next() {
		var task domain.Task
		var priority string

		err := rows.Scan(
			&task.ID,
			&task.OwnerID,
			&task.Title,
			&task.Description,
			&task.Completed,
			&priority,
			&task.CreatedAt,
			&task.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to scan task row",
				slog.String("error", err.Error()))
			return nil, MapError(err)
		}

		task.Priority = domain.Priority(priority)
		tasks = append(tasks, &task)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	if tasks == nil {
		tasks = []*domain.Task{}
	}

	return tasks, nil
}

// Update implements store.TaskStore.Update
// Returns store.ErrTaskNotFound if the task does not exist for the owner.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during update",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		UPDATE tasks
		SET title = $1, description = $2, completed = $3, priority = $4, updated_at = $5
		WHERE id = $6 AND owner_id = $7
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		task.Title,
		task.Description,
		task.Completed,
		task.Priority,
		task.UpdatedAt,
		task.ID,
		task.OwnerID,
	)

	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "task"); err != nil {
		return store.ErrTaskNotFound
	}

	log.Info("task updated",
		slog.String("task_id", task.ID.String()),
		slog.String("owner_id", task.OwnerID.String()))
	return nil
}

// Delete implements store.TaskStore.Delete
// Returns store.ErrTaskNotFound if the task does not exist for the owner.
func (s *PostgresTaskStore) Delete(ctx context.Context, ownerID, taskID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		DELETE FROM tasks
		WHERE id = $1 AND owner_id = $2
	`

	result, err := s.db.ExecContext(ctx, query, taskID, ownerID)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "task"); err != nil {
		return store.ErrTaskNotFound
	}

	log.Info("task deleted",
		slog.String("task_id", taskID.String()),
		slog.String("owner_id", ownerID.String()))
	return nil
}

// BulkSetCompleted implements store.TaskStore.BulkSetCompleted
// IDs that don't exist for the owner are skipped, not errors.
func (s *PostgresTaskStore) BulkSetCompleted(
	ctx context.Context,
	ownerID uuid.UUID,
	taskIDs []uuid.UUID,
	completed bool,
) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(taskIDs) == 0 {
		return 0, nil
	}

	query := `
		UPDATE tasks
		SET completed = $1, updated_at = NOW()
		WHERE owner_id = $2 AND id = ANY($3::uuid[])
	`

	ids := make([]string, len(taskIDs))
	for i, id := range taskIDs {
		ids[i] = id.String()
	}

	result, err := s.db.ExecContext(ctx, query, completed, ownerID, ids)
	if err != nil {
		log.Error("failed to bulk update tasks",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()),
			slog.Int("task_count", len(taskIDs)))
		return 0, MapError(err)
	}

	updated, err := result.RowsAffected()
	if err != nil {
		return 0, MapError(err)
	}

	log.Info("tasks bulk updated",
		slog.String("owner_id", ownerID.String()),
		slog.Int64("updated", updated),
		slog.Bool("completed", completed))
	return updated, nil
}

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}
