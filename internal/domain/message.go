package domain

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MessageRole identifies who produced a message.
type MessageRole string

// Possible message roles
const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Content length bounds per role. Inbound user text is capped hard at
// the gateway; assistant output is generated so it gets a larger bound
// and is truncated rather than rejected.
const (
	MaxUserContentLength      = 2000
	MaxAssistantContentLength = 20000
)

// Common validation errors for Message
var (
	ErrEmptyMessageID             = errors.New("message ID cannot be empty")
	ErrEmptyMessageConversationID = errors.New("message conversation ID cannot be empty")
	ErrEmptyMessageOwnerID        = errors.New("message owner ID cannot be empty")
	ErrExpiryBeforeCreation       = errors.New("message expiry cannot precede creation time")
)

// ToolCallRecord captures one tool invocation made while producing an
// assistant message. It is stored alongside the message so a turn's
// tool activity can be reconstructed from durable storage alone.
type ToolCallRecord struct {
	Name   string `json:"name"`
	Input  string `json:"input"`
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

// Message represents a single chat message within a conversation.
// The owner ID is denormalized from the conversation so isolation
// checks never need a join. ExternalRef preserves the caller-assigned
// item ID to avoid duplicate rendering on the client.
type Message struct {
	ID             uuid.UUID        `json:"id"`
	ConversationID uuid.UUID        `json:"conversation_id"`
	ExternalRef    string           `json:"external_ref,omitempty"`
	OwnerID        uuid.UUID        `json:"owner_id"`
	Role           MessageRole      `json:"role"`
	Content        string           `json:"content"`
	ToolCalls      []ToolCallRecord `json:"tool_calls,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	ExpiresAt      time.Time        `json:"expires_at"`
}

// NewMessage creates a new Message in the given conversation. The
// expiry is computed from the retention window; messages become
// eligible for deletion by the sweeper once it passes.
// Returns an error if validation fails.
func NewMessage(
	conversationID, ownerID uuid.UUID,
	role MessageRole,
	content string,
	retention time.Duration,
) (*Message, error) {
	now := time.Now().UTC()
	message := &Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		OwnerID:        ownerID,
		Role:           role,
		Content:        content,
		CreatedAt:      now,
		ExpiresAt:      now.Add(retention),
	}

	if err := message.Validate(); err != nil {
		return nil, err
	}

	return message, nil
}

// Validate checks if the Message has valid data.
// Returns an error if any field fails validation.
func (m *Message) Validate() error {
	if m.ID == uuid.Nil {
		return ErrEmptyMessageID
	}

	if m.ConversationID == uuid.Nil {
		return ErrEmptyMessageConversationID
	}

	if m.OwnerID == uuid.Nil {
		return ErrEmptyMessageOwnerID
	}

	if !isValidMessageRole(m.Role) {
		return ErrInvalidRole
	}

	if m.Content == "" {
		return ErrEmptyContent
	}

	if limit := maxContentLength(m.Role); utf8.RuneCountInString(m.Content) > limit {
		return ErrContentTooLong
	}

	if m.ExpiresAt.Before(m.CreatedAt) {
		return ErrExpiryBeforeCreation
	}

	return nil
}

// ClipContent returns content clipped to the length bound for role,
// replacing the tail with a marker when clipping occurred. The cut
// lands on a rune boundary so the result stays valid UTF-8. Used for
// assistant output, where dropping the turn over length would be worse
// than clipping it.
func ClipContent(role MessageRole, content string) string {
	limit := maxContentLength(role)
	if utf8.RuneCountInString(content) <= limit {
		return content
	}

	const marker = " [truncated]"
	keep := limit - len(marker) // ASCII marker, bytes == runes

	cut := len(content)
	seen := 0
	for i := range content {
		if seen == keep {
			cut = i
			break
		}
		seen++
	}

	return content[:cut] + marker
}

// TruncateContent clips the message content to the bound for its role.
func (m *Message) TruncateContent() {
	m.Content = ClipContent(m.Role, m.Content)
}

// isValidMessageRole checks if the given role is a valid MessageRole.
func isValidMessageRole(role MessageRole) bool {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

// maxContentLength returns the content length bound for a role.
func maxContentLength(role MessageRole) int {
	if role == RoleUser {
		return MaxUserContentLength
	}
	return MaxAssistantContentLength
}
