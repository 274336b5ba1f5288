package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Conversation
var (
	ErrEmptyConversationID      = errors.New("conversation ID cannot be empty")
	ErrEmptyConversationOwnerID = errors.New("conversation owner ID cannot be empty")
	ErrEmptyThreadRef           = errors.New("conversation thread reference cannot be empty")
)

// Conversation represents one chat thread between an owner and the
// assistant. The thread reference is an opaque, caller-assigned
// correlation ID that identifies the conversation across turns; it is
// never interpreted by this service.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	ThreadRef string    `json:"thread_ref"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Title     string    `json:"title"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversation creates a new active Conversation for the given owner
// and thread reference. It generates a new UUID for the conversation ID
// and sets the creation/update timestamps.
// Returns an error if validation fails.
func NewConversation(ownerID uuid.UUID, threadRef, title string) (*Conversation, error) {
	now := time.Now().UTC()
	conversation := &Conversation{
		ID:        uuid.New(),
		ThreadRef: threadRef,
		OwnerID:   ownerID,
		Title:     title,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := conversation.Validate(); err != nil {
		return nil, err
	}

	return conversation, nil
}

// Validate checks if the Conversation has valid data.
// Returns an error if any field fails validation.
func (c *Conversation) Validate() error {
	if c.ID == uuid.Nil {
		return ErrEmptyConversationID
	}

	if c.OwnerID == uuid.Nil {
		return ErrEmptyConversationOwnerID
	}

	if c.ThreadRef == "" {
		return ErrEmptyThreadRef
	}

	return nil
}

// Touch updates the conversation title (when non-empty) and bumps the
// UpdatedAt timestamp. Called on every subsequent turn of the thread.
func (c *Conversation) Touch(title string) {
	if title != "" {
		c.Title = title
	}
	c.UpdatedAt = time.Now().UTC()
}
