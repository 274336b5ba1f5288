package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrInvalidConfig is returned when the client configuration is incomplete.
	ErrInvalidConfig = errors.New("invalid gemini configuration")

	// ErrInvalidResponse is returned when the API returns a response the
	// client cannot interpret.
	ErrInvalidResponse = errors.New("invalid gemini response")

	// ErrContentBlocked is returned when the model refuses to answer due
	// to safety filtering.
	ErrContentBlocked = errors.New("content blocked by safety filters")

	// ErrTransientFailure is returned when all retry attempts against the
	// API are exhausted.
	ErrTransientFailure = errors.New("transient gemini failure")
)
