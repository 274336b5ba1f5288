package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// This is a generic version of the entity-specific not found errors
	// (e.g., ErrTaskNotFound, ErrConversationNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a second conversation with the same
	// thread reference).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransientFailure is returned for storage failures that are worth
	// retrying: connection loss, timeouts, pool exhaustion. The gateway's
	// retry policy keys off this sentinel.
	ErrTransientFailure = errors.New("transient storage failure")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors

	// ErrConversationNotFound indicates that the requested conversation does not exist.
	ErrConversationNotFound = fmt.Errorf("%w: conversation", ErrNotFound)

	// ErrMessageNotFound indicates that the requested message does not exist.
	ErrMessageNotFound = fmt.Errorf("%w: message", ErrNotFound)

	// ErrTaskNotFound indicates that the requested task does not exist.
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

	// ErrThreadRefExists indicates that a conversation with the given
	// thread reference already exists.
	ErrThreadRefExists = fmt.Errorf("%w: thread reference", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTransientError checks if the error represents a retryable storage
// failure.
func IsTransientError(err error) bool {
	return errors.Is(err, ErrTransientFailure)
}
