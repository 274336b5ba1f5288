package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewTask(t *testing.T) {
	ownerID := uuid.New()

	task, err := NewTask(ownerID, "buy milk", "from the corner shop", PriorityHigh)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if task.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}

	if task.OwnerID != ownerID {
		t.Errorf("Expected owner %s, got %s", ownerID, task.OwnerID)
	}

	if task.Completed {
		t.Error("Expected new task to be incomplete")
	}

	if task.Priority != PriorityHigh {
		t.Errorf("Expected priority high, got %s", task.Priority)
	}

	if task.CreatedAt.IsZero() {
		t.Error("Expected non-zero CreatedAt time")
	}

	// Empty priority defaults to medium
	task, err = NewTask(ownerID, "buy milk", "", "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if task.Priority != PriorityMedium {
		t.Errorf("Expected priority medium, got %s", task.Priority)
	}

	// Missing title
	_, err = NewTask(ownerID, "", "", PriorityLow)
	if err != ErrEmptyTaskTitle {
		t.Errorf("Expected error %v, got %v", ErrEmptyTaskTitle, err)
	}

	// Missing owner
	_, err = NewTask(uuid.Nil, "buy milk", "", PriorityLow)
	if err != ErrEmptyTaskOwnerID {
		t.Errorf("Expected error %v, got %v", ErrEmptyTaskOwnerID, err)
	}
}

func TestTaskValidate(t *testing.T) {
	validTask := Task{
		ID:       uuid.New(),
		OwnerID:  uuid.New(),
		Title:    "buy milk",
		Priority: PriorityMedium,
	}

	if err := validTask.Validate(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	invalidPriority := validTask
	invalidPriority.Priority = "urgent"
	if err := invalidPriority.Validate(); err != ErrInvalidPriority {
		t.Errorf("Expected error %v, got %v", ErrInvalidPriority, err)
	}

	missingID := validTask
	missingID.ID = uuid.Nil
	if err := missingID.Validate(); err != ErrEmptyTaskID {
		t.Errorf("Expected error %v, got %v", ErrEmptyTaskID, err)
	}
}

func TestPriorityIsValid(t *testing.T) {
	for _, p := range []Priority{PriorityHigh, PriorityMedium, PriorityLow} {
		if !p.IsValid() {
			t.Errorf("Expected %s to be valid", p)
		}
	}

	for _, p := range []Priority{"", "urgent", "HIGH", "critical"} {
		if p.IsValid() {
			t.Errorf("Expected %s to be invalid", p)
		}
	}
}

func TestNormalizePriority(t *testing.T) {
	cases := map[string]Priority{
		"high":     PriorityHigh,
		"medium":   PriorityMedium,
		"low":      PriorityLow,
		"":         PriorityMedium,
		"urgent":   PriorityMedium,
		"HIGH":     PriorityMedium,
		"whatever": PriorityMedium,
	}

	for input, want := range cases {
		if got := NormalizePriority(input); got != want {
			t.Errorf("NormalizePriority(%q) = %s, want %s", input, got, want)
		}
	}
}
