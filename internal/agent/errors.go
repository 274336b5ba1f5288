package agent

import "errors"

// Errors surfaced by the orchestrator.
var (
	// ErrTurnTimeout is returned when a turn exceeds its wall-clock
	// budget. The user message is already persisted by then; the
	// assistant message is not, and no retry is issued automatically.
	ErrTurnTimeout = errors.New("turn exceeded time budget")

	// ErrModelFailure is returned when the model cannot produce a next
	// action. The provider's raw error is logged, never forwarded.
	ErrModelFailure = errors.New("model call failed")

	// ErrToolLimitExceeded is returned when a turn requests more tool
	// rounds than the configured bound without producing a response.
	ErrToolLimitExceeded = errors.New("tool iteration limit exceeded")
)
