package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Priority represents the urgency classification of a task.
type Priority string

// Possible task priority values
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Common validation errors for Task
var (
	ErrEmptyTaskID      = errors.New("task ID cannot be empty")
	ErrEmptyTaskOwnerID = errors.New("task owner ID cannot be empty")
	ErrEmptyTaskTitle   = errors.New("task title cannot be empty")
)

// Task represents a single to-do item owned by one authenticated
// identity. Tasks are only ever mutated through the named tool
// operations of the dispatcher.
type Task struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	Priority    Priority  `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewTask creates a new incomplete Task for the given owner.
// An empty priority defaults to medium. Returns an error if
// validation fails.
func NewTask(ownerID uuid.UUID, title, description string, priority Priority) (*Task, error) {
	if priority == "" {
		priority = PriorityMedium
	}

	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		Completed:   false,
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if t.OwnerID == uuid.Nil {
		return ErrEmptyTaskOwnerID
	}

	if t.Title == "" {
		return ErrEmptyTaskTitle
	}

	if !t.Priority.IsValid() {
		return ErrInvalidPriority
	}

	return nil
}

// IsValid reports whether the priority is one of the three known values.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// NormalizePriority validates an untrusted priority value, silently
// substituting medium for anything outside the three-value enum.
// Classifier hints and model-provided values pass through here before
// reaching the store.
func NormalizePriority(value string) Priority {
	p := Priority(value)
	if !p.IsValid() {
		return PriorityMedium
	}
	return p
}
