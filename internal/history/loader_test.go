package history

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskchat/taskchat-api/internal/domain"
	"github.com/taskchat/taskchat-api/internal/store"
)

// memConversationStore is an in-memory ConversationStore for loader tests.
type memConversationStore struct {
	byThreadRef map[string]*domain.Conversation
	byID        map[uuid.UUID]*domain.Conversation

	createErr   error
	archived    []uuid.UUID
	missLookups int
}

func newMemConversationStore() *memConversationStore {
	return &memConversationStore{
		byThreadRef: make(map[string]*domain.Conversation),
		byID:        make(map[uuid.UUID]*domain.Conversation),
	}
}

func (s *memConversationStore) Create(_ context.Context, conversation *domain.Conversation) error {
	if s.createErr != nil {
		return s.createErr
	}
	if _, exists := s.byThreadRef[conversation.ThreadRef]; exists {
		return store.ErrThreadRefExists
	}
	copied := *conversation
	s.byThreadRef[conversation.ThreadRef] = &copied
	s.byID[conversation.ID] = &copied
	return nil
}

func (s *memConversationStore) GetByThreadRef(_ context.Context, threadRef string) (*domain.Conversation, error) {
	if s.missLookups > 0 {
		s.missLookups--
		return nil, store.ErrConversationNotFound
	}
	conversation, ok := s.byThreadRef[threadRef]
	if !ok {
		return nil, store.ErrConversationNotFound
	}
	copied := *conversation
	return &copied, nil
}

func (s *memConversationStore) CountActiveByOwner(_ context.Context, ownerID uuid.UUID) (int, error) {
	count := 0
	for _, conversation := range s.byID {
		if conversation.OwnerID == ownerID && conversation.Active {
			count++
		}
	}
	return count, nil
}

func (s *memConversationStore) OldestActiveByOwner(_ context.Context, ownerID uuid.UUID) (*domain.Conversation, error) {
	var oldest *domain.Conversation
	for _, conversation := range s.byID {
		if conversation.OwnerID != ownerID || !conversation.Active {
			continue
		}
		if oldest == nil || conversation.CreatedAt.Before(oldest.CreatedAt) {
			oldest = conversation
		}
	}
	if oldest == nil {
		return nil, store.ErrConversationNotFound
	}
	copied := *oldest
	return &copied, nil
}

func (s *memConversationStore) Archive(_ context.Context, id uuid.UUID) error {
	conversation, ok := s.byID[id]
	if !ok {
		return store.ErrConversationNotFound
	}
	conversation.Active = false
	s.archived = append(s.archived, id)
	return nil
}

func (s *memConversationStore) Touch(_ context.Context, id uuid.UUID, title string) error {
	conversation, ok := s.byID[id]
	if !ok {
		return store.ErrConversationNotFound
	}
	if title != "" {
		conversation.Title = title
	}
	conversation.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memConversationStore) WithTx(_ *sql.Tx) store.ConversationStore { return s }

// memMessageStore is an in-memory MessageStore for loader tests.
type memMessageStore struct {
	messages map[uuid.UUID][]*domain.Message
}

func newMemMessageStore() *memMessageStore {
	return &memMessageStore{messages: make(map[uuid.UUID][]*domain.Message)}
}

func (s *memMessageStore) Create(_ context.Context, message *domain.Message) error {
	copied := *message
	s.messages[message.ConversationID] = append(s.messages[message.ConversationID], &copied)
	return nil
}

func (s *memMessageStore) ListByConversation(_ context.Context, conversationID uuid.UUID) ([]*domain.Message, error) {
	return append([]*domain.Message{}, s.messages[conversationID]...), nil
}

func (s *memMessageStore) DeleteExpired(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (s *memMessageStore) WithTx(_ *sql.Tx) store.MessageStore { return s }

func TestLoadOrCreateNewThread(t *testing.T) {
	conversations := newMemConversationStore()
	messages := newMemMessageStore()
	loader := NewLoader(conversations, messages, 50, nil)
	owner := uuid.New()

	conversation, history, err := loader.LoadOrCreate(context.Background(), owner, "thread-1", "groceries")
	require.NoError(t, err)

	assert.Equal(t, "thread-1", conversation.ThreadRef)
	assert.Equal(t, owner, conversation.OwnerID)
	assert.True(t, conversation.Active)
	assert.Empty(t, history)
	assert.Contains(t, conversations.byThreadRef, "thread-1")
}

func TestLoadOrCreateExistingThread(t *testing.T) {
	conversations := newMemConversationStore()
	messages := newMemMessageStore()
	loader := NewLoader(conversations, messages, 50, nil)
	owner := uuid.New()

	first, _, err := loader.LoadOrCreate(context.Background(), owner, "thread-1", "groceries")
	require.NoError(t, err)

	msg, err := domain.NewMessage(first.ID, owner, domain.RoleUser, "hello", time.Hour)
	require.NoError(t, err)
	require.NoError(t, messages.Create(context.Background(), msg))

	second, history, err := loader.LoadOrCreate(context.Background(), owner, "thread-1", "renamed")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "renamed", second.Title)
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].Content)
}

func TestLoadOrCreateAccessDenied(t *testing.T) {
	conversations := newMemConversationStore()
	messages := newMemMessageStore()
	loader := NewLoader(conversations, messages, 50, nil)
	owner := uuid.New()
	intruder := uuid.New()

	_, _, err := loader.LoadOrCreate(context.Background(), owner, "thread-1", "groceries")
	require.NoError(t, err)

	_, _, err = loader.LoadOrCreate(context.Background(), intruder, "thread-1", "")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestLoadOrCreateEvictsOldestAtLimit(t *testing.T) {
	conversations := newMemConversationStore()
	messages := newMemMessageStore()
	loader := NewLoader(conversations, messages, 3, nil)
	owner := uuid.New()

	var first *domain.Conversation
	for i := 0; i < 3; i++ {
		conversation, _, err := loader.LoadOrCreate(
			context.Background(), owner, fmt.Sprintf("thread-%d", i), "")
		require.NoError(t, err)
		if i == 0 {
			first = conversation
		}
		// Distinct creation timestamps so eviction order is deterministic.
		time.Sleep(time.Millisecond)
	}

	// The fourth conversation evicts exactly the oldest one.
	_, _, err := loader.LoadOrCreate(context.Background(), owner, "thread-3", "")
	require.NoError(t, err)

	require.Len(t, conversations.archived, 1)
	assert.Equal(t, first.ID, conversations.archived[0])

	count, err := conversations.CountActiveByOwner(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// Archived conversations keep their rows; nothing is deleted.
	assert.Len(t, conversations.byID, 4)
}

func TestLoadOrCreateEvictionIsPerOwner(t *testing.T) {
	conversations := newMemConversationStore()
	messages := newMemMessageStore()
	loader := NewLoader(conversations, messages, 1, nil)
	ownerA := uuid.New()
	ownerB := uuid.New()

	_, _, err := loader.LoadOrCreate(context.Background(), ownerA, "a-1", "")
	require.NoError(t, err)

	// Owner B at their own limit does not evict owner A's conversation.
	_, _, err = loader.LoadOrCreate(context.Background(), ownerB, "b-1", "")
	require.NoError(t, err)
	assert.Empty(t, conversations.archived)

	_, _, err = loader.LoadOrCreate(context.Background(), ownerB, "b-2", "")
	require.NoError(t, err)
	require.Len(t, conversations.archived, 1)

	countA, err := conversations.CountActiveByOwner(context.Background(), ownerA)
	require.NoError(t, err)
	assert.Equal(t, 1, countA)
}

func TestLoadOrCreateRaceFallsBackToStored(t *testing.T) {
	conversations := newMemConversationStore()
	messages := newMemMessageStore()
	loader := NewLoader(conversations, messages, 50, nil)
	owner := uuid.New()

	// Simulate a concurrent first turn winning the insert: the initial
	// lookup misses, the insert collides, and the reload finds the row
	// the other turn stored.
	stored, err := domain.NewConversation(owner, "thread-1", "groceries")
	require.NoError(t, err)
	conversations.byThreadRef["thread-1"] = stored
	conversations.byID[stored.ID] = stored
	conversations.missLookups = 1

	conversation, _, err := loader.LoadOrCreate(context.Background(), owner, "thread-1", "groceries")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, conversation.ID)
}
