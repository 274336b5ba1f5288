// Package agent implements the per-turn orchestration loop: ask the
// model for its next action, execute requested tool calls through the
// dispatcher, feed results back, and stream the final response. The
// loop is an explicit state machine so timeout and cancellation
// semantics are independently testable.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/taskchat/taskchat-api/internal/domain"
	"github.com/taskchat/taskchat-api/internal/history"
	"github.com/taskchat/taskchat-api/internal/platform/logger"
	"github.com/taskchat/taskchat-api/internal/tools"
)

// chunkSize is the number of bytes of response text per chunk event.
const chunkSize = 256

// toolCallGrace bounds how long an in-flight tool call may keep running
// after the turn deadline expires.
const toolCallGrace = 5 * time.Second

// Orchestrator drives the tool-calling loop for one turn. It holds no
// per-turn state: every fact a turn needs arrives as an argument, so
// any worker can run any turn.
type Orchestrator struct {
	model         ModelClient
	dispatcher    *tools.Dispatcher
	turnTimeout   time.Duration
	maxIterations int
	logger        *slog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(
	model ModelClient,
	dispatcher *tools.Dispatcher,
	turnTimeout time.Duration,
	maxIterations int,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		model:         model,
		dispatcher:    dispatcher,
		turnTimeout:   turnTimeout,
		maxIterations: maxIterations,
		logger:        logger.With(slog.String("component", "orchestrator")),
	}
}

// RunTurn executes the tool-calling loop for one turn and streams
// events to emit. The caller has already persisted the user message
// (the last element of historyMessages); on success the returned
// Result carries the assistant content to persist.
//
// A hard wall-clock deadline covers the whole loop. When it expires,
// an in-flight tool call is allowed to finish but no further model
// calls are issued.
func (o *Orchestrator) RunTurn(
	ctx context.Context,
	ownerID uuid.UUID,
	conversation *domain.Conversation,
	historyMessages []*domain.Message,
	emit EventSink,
) (*Result, error) {
	log := logger.FromContextOrDefault(ctx, o.logger).With(
		slog.String("conversation_id", conversation.ID.String()))

	ctx, cancel := context.WithTimeout(ctx, o.turnTimeout)
	defer cancel()

	state := StateContextLoaded
	log.Debug("turn state", slog.String("state", string(state)))

	prompt := &Prompt{
		System:  systemPrompt(ownerID),
		History: historyMessages,
	}
	defs := tools.Definitions()

	var records []domain.ToolCallRecord

	for iteration := 0; iteration < o.maxIterations; iteration++ {
		state = StateThinking
		log.Debug("turn state",
			slog.String("state", string(state)),
			slog.Int("iteration", iteration))

		turn, err := o.model.Complete(ctx, prompt, defs)
		if err != nil {
			if ctx.Err() != nil {
				log.Warn("turn timed out during model call")
				return nil, ErrTurnTimeout
			}
			log.Error("model call failed", slog.String("error", err.Error()))
			return nil, fmt.Errorf("%w: %v", ErrModelFailure, err)
		}

		if len(turn.ToolCalls) == 0 {
			state = StateResponding
			log.Debug("turn state", slog.String("state", string(state)))

			streamText(turn.Text, emit)

			log.Info("turn completed",
				slog.Int("tool_calls", len(records)),
				slog.Int("response_len", len(turn.Text)))
			return &Result{Content: turn.Text, ToolCalls: records}, nil
		}

		for _, call := range turn.ToolCalls {
			state = StateToolCall
			log.Debug("turn state",
				slog.String("state", string(state)),
				slog.String("tool", call.Name))

			emit(Event{Kind: EventToolCall, ToolName: call.Name, ToolInput: call.Args})

			outcome := o.invokeTool(ctx, ownerID, call)
			if outcome == nil {
				// Owner mismatch aborts the turn outright.
				return nil, history.ErrAccessDenied
			}

			state = StateToolResult
			emit(Event{
				Kind:       EventToolResult,
				ToolName:   call.Name,
				ToolInput:  call.Args,
				ToolOutput: outcome.Output,
				ToolError:  outcome.Err,
			})

			prompt.Outcomes = append(prompt.Outcomes, *outcome)
			records = append(records, domain.ToolCallRecord{
				Name:   call.Name,
				Input:  string(call.Args),
				Output: string(outcome.Output),
				Error:  outcome.Err,
			})
		}

		// In-flight tool calls were allowed to finish; past the
		// deadline no further model calls are issued.
		if ctx.Err() != nil {
			log.Warn("turn timed out after tool execution")
			return nil, ErrTurnTimeout
		}
	}

	log.Warn("tool iteration limit reached",
		slog.Int("max_iterations", o.maxIterations))
	return nil, ErrToolLimitExceeded
}

// invokeTool executes one tool call as its own atomic unit against the
// store. The call runs on a context detached from the turn deadline so
// an invocation in flight when the deadline expires still completes.
// Returns nil only for an owner mismatch, which aborts the turn.
func (o *Orchestrator) invokeTool(ctx context.Context, ownerID uuid.UUID, call ToolRequest) *ToolOutcome {
	log := logger.FromContextOrDefault(ctx, o.logger)

	toolCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), toolCallGrace)
	defer cancel()

	output, err := o.dispatcher.Dispatch(toolCtx, ownerID, call.Name, call.Args)
	if err != nil {
		if errors.Is(err, tools.ErrPermissionDenied) {
			log.Warn("tool call owner mismatch; aborting turn",
				slog.String("tool", call.Name))
			return nil
		}

		// Unknown tools, bad arguments and execution failures are fed
		// back to the model as failed results; independent operations
		// that already succeeded stand.
		log.Warn("tool call failed",
			slog.String("tool", call.Name),
			slog.String("error", err.Error()))
		return &ToolOutcome{Request: call, Err: safeToolError(err)}
	}

	payload, err := json.Marshal(output)
	if err != nil {
		log.Error("failed to marshal tool output",
			slog.String("tool", call.Name),
			slog.String("error", err.Error()))
		return &ToolOutcome{Request: call, Err: "tool produced an unserializable result"}
	}

	return &ToolOutcome{Request: call, Output: payload}
}

// safeToolError reduces a dispatch error to a message safe to show the
// model and the caller.
func safeToolError(err error) string {
	switch {
	case errors.Is(err, tools.ErrUnknownTool):
		return "unknown tool"
	case errors.Is(err, tools.ErrInvalidArguments):
		return "invalid tool arguments"
	case tools.IsNotFound(err):
		return "task not found"
	default:
		return "tool execution failed"
	}
}

// streamText emits response text incrementally as chunk events. Chunks
// break on rune boundaries so each one is valid UTF-8 on its own.
func streamText(text string, emit EventSink) {
	for len(text) > 0 {
		n := chunkSize
		if n >= len(text) {
			n = len(text)
		} else {
			for n > 0 && !utf8.RuneStart(text[n]) {
				n--
			}
			if n == 0 {
				n = chunkSize
			}
		}
		emit(Event{Kind: EventChunk, Content: text[:n]})
		text = text[n:]
	}
}

// systemPrompt fixes the assistant's role and binds every tool call to
// the authenticated owner.
func systemPrompt(ownerID uuid.UUID) string {
	return fmt.Sprintf(
		"You are a task management assistant. You help the user create, list, "+
			"complete, update, delete and prioritize their tasks using the provided tools. "+
			"The user's owner_id is %s; pass it as owner_id on every tool call. "+
			"When the user implies urgency choose priority high; when they imply it can "+
			"wait choose low; otherwise omit the priority. Be concise.",
		ownerID,
	)
}
