// Package tools implements the tool dispatcher: the closed set of
// eight owner-validated task operations the agent may invoke mid-turn.
// Tools are pure delegations to the task store with no additional side
// effects; each invocation is its own atomic unit against the store.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/taskchat/taskchat-api/internal/classify"
	"github.com/taskchat/taskchat-api/internal/domain"
	"github.com/taskchat/taskchat-api/internal/platform/logger"
	"github.com/taskchat/taskchat-api/internal/store"
)

// Dispatcher validates and executes tool calls against the task store.
type Dispatcher struct {
	tasks      store.TaskStore
	classifier classify.Classifier
	logger     *slog.Logger
}

// NewDispatcher creates a Dispatcher. The classifier supplies priority
// hints for add_task calls that carry none; it may be nil, in which
// case absent priorities simply default to medium.
func NewDispatcher(tasks store.TaskStore, classifier classify.Classifier, logger *slog.Logger) *Dispatcher {
	if tasks == nil {
		panic("tasks store cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		tasks:      tasks,
		classifier: classifier,
		logger:     logger.With(slog.String("component", "tool_dispatcher")),
	}
}

// Dispatch executes the named tool with the given JSON arguments on
// behalf of authOwner. The owner_id inside the arguments must equal
// authOwner or the call fails with ErrPermissionDenied. The returned
// value is the tool's flat output record.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	authOwner uuid.UUID,
	name string,
	args json.RawMessage,
) (any, error) {
	log := logger.FromContextOrDefault(ctx, d.logger)

	log.Debug("dispatching tool call",
		slog.String("tool", name),
		slog.String("owner_id", authOwner.String()))

	switch name {
	case ToolAddTask:
		return d.addTask(ctx, authOwner, args)
	case ToolListTasks:
		return d.listTasks(ctx, authOwner, args)
	case ToolCompleteTask:
		return d.completeTask(ctx, authOwner, args)
	case ToolDeleteTask:
		return d.deleteTask(ctx, authOwner, args)
	case ToolUpdateTask:
		return d.updateTask(ctx, authOwner, args)
	case ToolSetPriority:
		return d.setPriority(ctx, authOwner, args)
	case ToolListTasksByPriority:
		return d.listTasksByPriority(ctx, authOwner, args)
	case ToolBulkUpdateTasks:
		return d.bulkUpdateTasks(ctx, authOwner, args)
	default:
		log.Warn("unknown tool requested", slog.String("tool", name))
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
}

// decodeInput parses the arguments and enforces the ownership contract:
// the explicit owner_id in the call must equal the authenticated owner.
func decodeInput[T any](args json.RawMessage, authOwner uuid.UUID, ownerField func(*T) string) (*T, error) {
	var input T
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}

	claimed, err := uuid.Parse(ownerField(&input))
	if err != nil {
		return nil, fmt.Errorf("%w: owner_id: %v", ErrInvalidArguments, err)
	}

	if claimed != authOwner {
		return nil, ErrPermissionDenied
	}

	return &input, nil
}

func parseTaskID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: task_id: %v", ErrInvalidArguments, err)
	}
	return id, nil
}

// execErr wraps store failures as tool execution errors so the
// orchestrator can report them to the model without aborting the turn.
// Not-found and transient sentinels stay visible through the wrap.
func execErr(err error) error {
	return fmt.Errorf("%w: %w", ErrToolExecution, err)
}

func (d *Dispatcher) addTask(ctx context.Context, authOwner uuid.UUID, args json.RawMessage) (any, error) {
	input, err := decodeInput(args, authOwner, func(i *AddTaskInput) string { return i.OwnerID })
	if err != nil {
		return nil, err
	}

	if input.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidArguments)
	}

	priority := input.Priority
	if priority == "" && d.classifier != nil {
		hint, err := d.classifier.Classify(ctx, input.Title+" "+input.Description)
		if err != nil {
			// Classification is best effort; fall through to the default.
			d.logger.Warn("priority classification failed",
				slog.String("error", err.Error()))
		} else {
			priority = string(hint)
		}
	}

	// Classifier output and model-provided values are untrusted; an
	// invalid value silently becomes medium.
	task, err := domain.NewTask(authOwner, input.Title, input.Description, domain.NormalizePriority(priority))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}

	if err := d.tasks.Create(ctx, task); err != nil {
		return nil, execErr(err)
	}

	return &TaskResult{TaskID: task.ID.String(), Status: StatusCreated, Title: task.Title}, nil
}

func (d *Dispatcher) listTasks(ctx context.Context, authOwner uuid.UUID, args json.RawMessage) (any, error) {
	input, err := decodeInput(args, authOwner, func(i *ListTasksInput) string { return i.OwnerID })
	if err != nil {
		return nil, err
	}

	var completed *bool
	switch input.StatusFilter {
	case "", "all":
	case StatusCompleted:
		v := true
		completed = &v
	case StatusPending:
		v := false
		completed = &v
	default:
		return nil, fmt.Errorf("%w: status_filter must be pending, completed or all", ErrInvalidArguments)
	}

	tasks, err := d.tasks.ListByOwner(ctx, authOwner, completed)
	if err != nil {
		return nil, execErr(err)
	}

	records := make([]TaskRecord, 0, len(tasks))
	for _, task := range tasks {
		records = append(records, toRecord(task))
	}

	return &ListResult{Tasks: records, Count: len(records)}, nil
}

func (d *Dispatcher) completeTask(ctx context.Context, authOwner uuid.UUID, args json.RawMessage) (any, error) {
	input, err := decodeInput(args, authOwner, func(i *TaskIDInput) string { return i.OwnerID })
	if err != nil {
		return nil, err
	}

	taskID, err := parseTaskID(input.TaskID)
	if err != nil {
		return nil, err
	}

	task, err := d.tasks.GetForOwner(ctx, authOwner, taskID)
	if err != nil {
		return nil, execErr(err)
	}

	// Completing an already-completed task succeeds without side effects.
	if !task.Completed {
		task.Completed = true
		task.UpdatedAt = time.Now().UTC()
		if err := d.tasks.Update(ctx, task); err != nil {
			return nil, execErr(err)
		}
	}

	return &TaskResult{TaskID: task.ID.String(), Status: StatusCompleted, Title: task.Title}, nil
}

func (d *Dispatcher) deleteTask(ctx context.Context, authOwner uuid.UUID, args json.RawMessage) (any, error) {
	input, err := decodeInput(args, authOwner, func(i *TaskIDInput) string { return i.OwnerID })
	if err != nil {
		return nil, err
	}

	taskID, err := parseTaskID(input.TaskID)
	if err != nil {
		return nil, err
	}

	task, err := d.tasks.GetForOwner(ctx, authOwner, taskID)
	if err != nil {
		return nil, execErr(err)
	}

	if err := d.tasks.Delete(ctx, authOwner, taskID); err != nil {
		return nil, execErr(err)
	}

	return &TaskResult{TaskID: task.ID.String(), Status: StatusDeleted, Title: task.Title}, nil
}

func (d *Dispatcher) updateTask(ctx context.Context, authOwner uuid.UUID, args json.RawMessage) (any, error) {
	input, err := decodeInput(args, authOwner, func(i *UpdateTaskInput) string { return i.OwnerID })
	if err != nil {
		return nil, err
	}

	taskID, err := parseTaskID(input.TaskID)
	if err != nil {
		return nil, err
	}

	task, err := d.tasks.GetForOwner(ctx, authOwner, taskID)
	if err != nil {
		return nil, execErr(err)
	}

	if input.Title != nil {
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	task.UpdatedAt = time.Now().UTC()

	if err := d.tasks.Update(ctx, task); err != nil {
		return nil, execErr(err)
	}

	return &TaskResult{TaskID: task.ID.String(), Status: StatusUpdated, Title: task.Title}, nil
}

func (d *Dispatcher) setPriority(ctx context.Context, authOwner uuid.UUID, args json.RawMessage) (any, error) {
	input, err := decodeInput(args, authOwner, func(i *SetPriorityInput) string { return i.OwnerID })
	if err != nil {
		return nil, err
	}

	taskID, err := parseTaskID(input.TaskID)
	if err != nil {
		return nil, err
	}

	// set_priority carries an explicit priority, not a hint: an invalid
	// value is a caller error, not something to silently correct.
	priority := domain.Priority(input.Priority)
	if !priority.IsValid() {
		return nil, fmt.Errorf("%w: priority must be high, medium or low", ErrInvalidArguments)
	}

	task, err := d.tasks.GetForOwner(ctx, authOwner, taskID)
	if err != nil {
		return nil, execErr(err)
	}

	task.Priority = priority
	task.UpdatedAt = time.Now().UTC()

	if err := d.tasks.Update(ctx, task); err != nil {
		return nil, execErr(err)
	}

	return &PriorityResult{TaskID: task.ID.String(), Status: StatusUpdated, Priority: string(priority)}, nil
}

func (d *Dispatcher) listTasksByPriority(ctx context.Context, authOwner uuid.UUID, args json.RawMessage) (any, error) {
	if _, err := decodeInput(args, authOwner, func(i *OwnerInput) string { return i.OwnerID }); err != nil {
		return nil, err
	}

	tasks, err := d.tasks.ListByOwner(ctx, authOwner, nil)
	if err != nil {
		return nil, execErr(err)
	}

	buckets := &PriorityBuckets{
		High:   []TaskRecord{},
		Medium: []TaskRecord{},
		Low:    []TaskRecord{},
	}
	for _, task := range tasks {
		record := toRecord(task)
		switch task.Priority {
		case domain.PriorityHigh:
			buckets.High = append(buckets.High, record)
		case domain.PriorityLow:
			buckets.Low = append(buckets.Low, record)
		default:
			buckets.Medium = append(buckets.Medium, record)
		}
	}

	return buckets, nil
}

func (d *Dispatcher) bulkUpdateTasks(ctx context.Context, authOwner uuid.UUID, args json.RawMessage) (any, error) {
	input, err := decodeInput(args, authOwner, func(i *BulkUpdateInput) string { return i.OwnerID })
	if err != nil {
		return nil, err
	}

	var completed bool
	switch input.Status {
	case StatusCompleted:
		completed = true
	case StatusPending:
		completed = false
	default:
		return nil, fmt.Errorf("%w: status must be completed or pending", ErrInvalidArguments)
	}

	taskIDs := make([]uuid.UUID, 0, len(input.TaskIDs))
	for _, raw := range input.TaskIDs {
		id, err := parseTaskID(raw)
		if err != nil {
			return nil, err
		}
		taskIDs = append(taskIDs, id)
	}

	updated, err := d.tasks.BulkSetCompleted(ctx, authOwner, taskIDs, completed)
	if err != nil {
		return nil, execErr(err)
	}

	return &BulkResult{UpdatedCount: updated, Status: input.Status}, nil
}

func toRecord(task *domain.Task) TaskRecord {
	return TaskRecord{
		TaskID:      task.ID.String(),
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		Priority:    string(task.Priority),
	}
}

// IsNotFound reports whether a dispatch error stems from a missing
// task, letting the gateway map it without unwrapping manually.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
