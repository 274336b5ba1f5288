package agent

import (
	"context"
	"encoding/json"

	"github.com/taskchat/taskchat-api/internal/domain"
	"github.com/taskchat/taskchat-api/internal/tools"
)

// State identifies where a turn is in its lifecycle. Transitions are
// strictly forward: Received → ContextLoaded → Thinking →
// (ToolCall → ToolResult)* → Responding → Done, with Error reachable
// from any state.
type State string

// Turn states
const (
	StateReceived      State = "received"
	StateContextLoaded State = "context_loaded"
	StateThinking      State = "thinking"
	StateToolCall      State = "tool_call"
	StateToolResult    State = "tool_result"
	StateResponding    State = "responding"
	StateDone          State = "done"
	StateError         State = "error"
)

// EventKind identifies the type of a protocol stream event.
type EventKind string

// Protocol event kinds, emitted in order over one turn's stream. The
// terminal event is always done or error.
const (
	EventQueued     EventKind = "queued"
	EventChunk      EventKind = "chunk"
	EventToolCall   EventKind = "tool_call"
	EventToolResult EventKind = "tool_result"
	EventDone       EventKind = "done"
	EventError      EventKind = "error"
)

// Event is one element of a turn's ordered response stream. Fields are
// populated according to Kind.
type Event struct {
	Kind EventKind `json:"type"`

	// Content is set for chunk events.
	Content string `json:"content,omitempty"`

	// ToolName and ToolInput are set for tool_call events; ToolOutput
	// or ToolError additionally for tool_result events.
	ToolName   string          `json:"tool_name,omitempty"`
	ToolInput  json.RawMessage `json:"tool_input,omitempty"`
	ToolOutput json.RawMessage `json:"tool_output,omitempty"`
	ToolError  string          `json:"tool_error,omitempty"`

	// ErrorKind and Message are set for error events. Message is a
	// short, actionable description; internal details never appear
	// here.
	ErrorKind string `json:"error_kind,omitempty"`
	Message   string `json:"message,omitempty"`
}

// EventSink receives stream events as the orchestrator produces them.
type EventSink func(Event)

// ToolRequest is one tool invocation requested by the model.
type ToolRequest struct {
	Name string
	Args json.RawMessage
}

// ToolOutcome pairs a request with its result for feeding back into
// model context.
type ToolOutcome struct {
	Request ToolRequest
	Output  json.RawMessage
	Err     string
}

// Prompt is the full model context for one reasoning step: the
// conversation history reconstructed from durable storage plus the
// tool outcomes accumulated so far within this turn. Tool selection
// must be a function of this value and the fixed toolset alone.
type Prompt struct {
	System   string
	History  []*domain.Message
	Outcomes []ToolOutcome
}

// ModelTurn is the model's next action: tool calls to execute, or
// final response text when ToolCalls is empty.
type ModelTurn struct {
	Text      string
	ToolCalls []ToolRequest
}

// ModelClient abstracts the language model. Implementations must be
// stateless across calls; everything the model needs arrives in the
// prompt.
type ModelClient interface {
	Complete(ctx context.Context, prompt *Prompt, defs []tools.Definition) (*ModelTurn, error)
}

// Result is the outcome of a successfully completed turn.
type Result struct {
	// Content is the assistant's final response text.
	Content string

	// ToolCalls records the tool invocations made during the turn, in
	// execution order, for persistence with the assistant message.
	ToolCalls []domain.ToolCallRecord
}
