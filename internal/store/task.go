package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/taskchat/taskchat-api/internal/domain"
)

// TaskStore defines the interface for task persistence. Every read and
// mutation is scoped to an owner ID inside the query itself, so a task
// belonging to another owner is indistinguishable from a missing one.
type TaskStore interface {
	// Create saves a new task to the store.
	// It handles domain validation internally.
	Create(ctx context.Context, task *domain.Task) error

	// GetForOwner retrieves a task by ID, scoped to the owner.
	// Returns ErrTaskNotFound if the task does not exist or belongs to
	// a different owner.
	GetForOwner(ctx context.Context, ownerID, taskID uuid.UUID) (*domain.Task, error)

	// ListByOwner retrieves all of an owner's tasks in creation order.
	// A non-nil completed filter restricts the result to tasks with
	// that completion state.
	ListByOwner(ctx context.Context, ownerID uuid.UUID, completed *bool) ([]*domain.Task, error)

	// Update saves changes to an existing task's title, description,
	// completion state and priority.
	// Returns ErrTaskNotFound if the task does not exist for the owner.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task, scoped to the owner.
	// Returns ErrTaskNotFound if the task does not exist for the owner.
	Delete(ctx context.Context, ownerID, taskID uuid.UUID) error

	// BulkSetCompleted updates the completion state of the given tasks,
	// scoped to the owner, and returns the number actually updated.
	// IDs that don't exist for the owner are skipped, not errors.
	BulkSetCompleted(ctx context.Context, ownerID uuid.UUID, taskIDs []uuid.UUID, completed bool) (int64, error)

	// WithTx returns a new TaskStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) TaskStore
}
