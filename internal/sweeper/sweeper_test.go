package sweeper

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskchat/taskchat-api/internal/domain"
	"github.com/taskchat/taskchat-api/internal/store"
)

// countingMessageStore records DeleteExpired calls.
type countingMessageStore struct {
	mu      sync.Mutex
	calls   []time.Time
	deleted int64
	err     error
}

func (s *countingMessageStore) Create(context.Context, *domain.Message) error { return nil }

func (s *countingMessageStore) ListByConversation(context.Context, uuid.UUID) ([]*domain.Message, error) {
	return nil, nil
}

func (s *countingMessageStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, now)
	return s.deleted, s.err
}

func (s *countingMessageStore) WithTx(*sql.Tx) store.MessageStore { return s }

func (s *countingMessageStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func TestSweeperRunsImmediatelyAndOnTicks(t *testing.T) {
	messages := &countingMessageStore{deleted: 2}
	sweeper := New(messages, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	// One immediate pass plus at least one tick.
	require.Eventually(t, func() bool {
		return messages.callCount() >= 2
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on context cancellation")
	}
}

func TestSweeperPassesUTCNow(t *testing.T) {
	messages := &countingMessageStore{}
	sweeper := New(messages, time.Hour, nil)

	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	sweeper.now = func() time.Time { return fixed }

	sweeper.sweep(context.Background())

	require.Len(t, messages.calls, 1)
	assert.Equal(t, time.UTC, messages.calls[0].Location())
	assert.True(t, messages.calls[0].Equal(fixed))
}

func TestSweeperSurvivesStoreErrors(t *testing.T) {
	messages := &countingMessageStore{err: assert.AnError}
	sweeper := New(messages, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	// Failed passes do not stop the loop.
	require.Eventually(t, func() bool {
		return messages.callCount() >= 3
	}, time.Second, time.Millisecond)

	cancel()
	<-done
}
