// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrContentTooLong is returned when message content exceeds the
	// length bound for its role.
	ErrContentTooLong = errors.New("content exceeds maximum length")

	// ErrInvalidRole is returned when a message role is not one of
	// user, assistant or system.
	ErrInvalidRole = errors.New("invalid message role")

	// ErrInvalidPriority is returned when a task priority is not one of
	// high, medium or low.
	ErrInvalidPriority = errors.New("invalid task priority")

	// ErrUnauthorized is returned when an operation is not permitted
	// for the authenticated owner.
	ErrUnauthorized = errors.New("unauthorized operation")
)
