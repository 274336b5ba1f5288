// Package gateway is the protocol edge of the conversation subsystem.
// It validates inbound turns, serializes them per thread, persists the
// user message before any processing happens, runs the agent loop, and
// persists the assistant reply once the turn completes.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/taskchat/taskchat-api/internal/agent"
	"github.com/taskchat/taskchat-api/internal/domain"
	"github.com/taskchat/taskchat-api/internal/platform/logger"
	"github.com/taskchat/taskchat-api/internal/store"
)

// ConversationLoader resolves a thread reference to its conversation
// and full history, creating the conversation when the reference is new.
type ConversationLoader interface {
	LoadOrCreate(
		ctx context.Context,
		ownerID uuid.UUID,
		threadRef, title string,
	) (*domain.Conversation, []*domain.Message, error)
}

// TurnRunner executes the agent loop for one turn.
type TurnRunner interface {
	RunTurn(
		ctx context.Context,
		ownerID uuid.UUID,
		conversation *domain.Conversation,
		historyMessages []*domain.Message,
		emit agent.EventSink,
	) (*agent.Result, error)
}

// TurnInput carries one validated inbound turn.
type TurnInput struct {
	OwnerID     uuid.UUID
	ThreadRef   string
	Title       string
	Content     string
	ExternalRef string
}

// TurnService processes turns end to end. Transient storage failures
// around the durable writes are retried with doubling delays before the
// turn fails with a retryable error.
type TurnService struct {
	messages  store.MessageStore
	loader    ConversationLoader
	runner    TurnRunner
	queue     *ThreadQueue
	retention time.Duration

	retries        int
	retryBaseDelay time.Duration

	// sleep is injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error

	logger *slog.Logger
}

// NewTurnService creates a TurnService.
func NewTurnService(
	messages store.MessageStore,
	loader ConversationLoader,
	runner TurnRunner,
	queue *ThreadQueue,
	retention time.Duration,
	retries int,
	retryBaseDelay time.Duration,
	log *slog.Logger,
) *TurnService {
	if log == nil {
		log = slog.Default()
	}

	return &TurnService{
		messages:       messages,
		loader:         loader,
		runner:         runner,
		queue:          queue,
		retention:      retention,
		retries:        retries,
		retryBaseDelay: retryBaseDelay,
		sleep:          sleepContext,
		logger:         log.With(slog.String("component", "turn_service")),
	}
}

// ValidateContent checks an inbound message body against the hard
// bounds. Called before anything touches storage: a turn that fails
// validation leaves no trace.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrEmptyContent)
	}
	if utf8.RuneCountInString(content) > domain.MaxUserContentLength {
		return fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrContentTooLong)
	}
	return nil
}

// ProcessTurn runs one turn: wait for the thread slot, load or create
// the conversation, persist the user message, run the agent loop, and
// persist the assistant reply. Streaming events are forwarded to emit
// as they happen; the assistant message is persisted only when the turn
// reaches a successful end.
func (s *TurnService) ProcessTurn(ctx context.Context, input TurnInput, emit agent.EventSink) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("thread_ref", input.ThreadRef))

	// The queued event goes out only when another turn for the thread
	// is actually in flight ahead of this one.
	release, err := s.queue.Acquire(ctx, input.ThreadRef, func() {
		emit(agent.Event{Kind: agent.EventQueued})
	})
	if err != nil {
		log.Warn("turn rejected at queue", slog.String("error", err.Error()))
		return err
	}
	defer release()

	conversation, historyMessages, err := s.loadWithRetry(ctx, input)
	if err != nil {
		return err
	}

	userMessage, err := domain.NewMessage(
		conversation.ID, input.OwnerID, domain.RoleUser, input.Content, s.retention)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	userMessage.ExternalRef = input.ExternalRef

	// The user message is durable before any model or tool work starts,
	// so a crash mid-turn never loses what the user said.
	if err := s.createWithRetry(ctx, userMessage); err != nil {
		log.Error("failed to persist user message", slog.String("error", err.Error()))
		return err
	}

	historyMessages = append(historyMessages, userMessage)

	result, err := s.runner.RunTurn(ctx, input.OwnerID, conversation, historyMessages, emit)
	if err != nil {
		return err
	}

	// Oversized replies are clipped before validation; rejecting a
	// generated reply over length would lose the whole turn.
	assistantMessage, err := domain.NewMessage(
		conversation.ID, input.OwnerID, domain.RoleAssistant,
		domain.ClipContent(domain.RoleAssistant, assistantContent(result)), s.retention)
	if err != nil {
		return err
	}
	assistantMessage.ToolCalls = result.ToolCalls

	if err := s.createWithRetry(ctx, assistantMessage); err != nil {
		log.Error("failed to persist assistant message", slog.String("error", err.Error()))
		return err
	}

	return nil
}

// loadWithRetry loads or creates the conversation, retrying transient
// storage failures.
func (s *TurnService) loadWithRetry(
	ctx context.Context,
	input TurnInput,
) (*domain.Conversation, []*domain.Message, error) {
	var conversation *domain.Conversation
	var historyMessages []*domain.Message

	err := s.withRetry(ctx, "load_conversation", func(ctx context.Context) error {
		var err error
		conversation, historyMessages, err = s.loader.LoadOrCreate(
			ctx, input.OwnerID, input.ThreadRef, input.Title)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	return conversation, historyMessages, nil
}

// createWithRetry persists one message, retrying transient failures.
func (s *TurnService) createWithRetry(ctx context.Context, message *domain.Message) error {
	return s.withRetry(ctx, "create_message", func(ctx context.Context) error {
		return s.messages.Create(ctx, message)
	})
}

// withRetry runs fn, retrying transient storage failures up to
// s.retries times with doubling delays starting at s.retryBaseDelay.
// Non-transient errors return immediately.
func (s *TurnService) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	log := logger.FromContextOrDefault(ctx, s.logger)
	delay := s.retryBaseDelay

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		if !store.IsTransientError(err) || attempt >= s.retries {
			return err
		}

		log.Warn("transient storage failure, retrying",
			slog.String("op", op),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		if err := s.sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2
	}
}

// assistantContent returns the text to persist for a completed turn. A
// turn that produced only tool activity still stores a short
// placeholder so the history stays pairwise complete.
func assistantContent(result *agent.Result) string {
	if result.Content != "" {
		return result.Content
	}
	return "(no response)"
}

// sleepContext waits for d or until ctx ends.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
