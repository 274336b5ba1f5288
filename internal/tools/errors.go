package tools

import "errors"

// Errors returned by the dispatcher. The orchestrator distinguishes
// tool-level failures (fed back to the model) from dispatch-level
// failures (which terminate the call).
var (
	// ErrUnknownTool is returned when a call names a tool outside the
	// closed set. Unknown names fail at this boundary; they are never
	// forwarded anywhere.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrPermissionDenied is returned when a call's owner_id does not
	// equal the authenticated owner of the current request. Never
	// retried or silently corrected.
	ErrPermissionDenied = errors.New("tool call owner mismatch")

	// ErrInvalidArguments is returned when a call's arguments fail to
	// parse or are missing required fields.
	ErrInvalidArguments = errors.New("invalid tool arguments")

	// ErrToolExecution wraps a failure inside an otherwise valid tool
	// call. It does not abort the turn; the result is reported back to
	// the model.
	ErrToolExecution = errors.New("tool execution failed")
)
