package tools

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskchat/taskchat-api/internal/classify"
	"github.com/taskchat/taskchat-api/internal/domain"
	"github.com/taskchat/taskchat-api/internal/store"
)

// memTaskStore is an in-memory TaskStore for dispatcher tests.
type memTaskStore struct {
	tasks map[uuid.UUID]*domain.Task
	order []uuid.UUID

	createErr error
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (s *memTaskStore) Create(_ context.Context, task *domain.Task) error {
	if s.createErr != nil {
		return s.createErr
	}
	copied := *task
	s.tasks[task.ID] = &copied
	s.order = append(s.order, task.ID)
	return nil
}

func (s *memTaskStore) GetForOwner(_ context.Context, ownerID, taskID uuid.UUID) (*domain.Task, error) {
	task, ok := s.tasks[taskID]
	if !ok || task.OwnerID != ownerID {
		return nil, store.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (s *memTaskStore) ListByOwner(_ context.Context, ownerID uuid.UUID, completed *bool) ([]*domain.Task, error) {
	var result []*domain.Task
	for _, id := range s.order {
		task, ok := s.tasks[id]
		if !ok || task.OwnerID != ownerID {
			continue
		}
		if completed != nil && task.Completed != *completed {
			continue
		}
		copied := *task
		result = append(result, &copied)
	}
	return result, nil
}

func (s *memTaskStore) Update(_ context.Context, task *domain.Task) error {
	existing, ok := s.tasks[task.ID]
	if !ok || existing.OwnerID != task.OwnerID {
		return store.ErrTaskNotFound
	}
	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

func (s *memTaskStore) Delete(_ context.Context, ownerID, taskID uuid.UUID) error {
	task, ok := s.tasks[taskID]
	if !ok || task.OwnerID != ownerID {
		return store.ErrTaskNotFound
	}
	delete(s.tasks, taskID)
	return nil
}

func (s *memTaskStore) BulkSetCompleted(
	_ context.Context,
	ownerID uuid.UUID,
	taskIDs []uuid.UUID,
	completed bool,
) (int64, error) {
	var updated int64
	for _, id := range taskIDs {
		task, ok := s.tasks[id]
		if !ok || task.OwnerID != ownerID {
			continue
		}
		task.Completed = completed
		updated++
	}
	return updated, nil
}

func (s *memTaskStore) WithTx(_ *sql.Tx) store.TaskStore { return s }

func newTestDispatcher(t *testing.T) (*Dispatcher, *memTaskStore) {
	t.Helper()
	tasks := newMemTaskStore()
	return NewDispatcher(tasks, classify.NewKeywordClassifier(), nil), tasks
}

func args(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestDispatchUnknownTool(t *testing.T) {
	dispatcher, _ := newTestDispatcher(t)

	_, err := dispatcher.Dispatch(context.Background(), uuid.New(), "drop_database", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestDispatchOwnerMismatch(t *testing.T) {
	dispatcher, _ := newTestDispatcher(t)
	authOwner := uuid.New()
	otherOwner := uuid.New()

	_, err := dispatcher.Dispatch(context.Background(), authOwner, ToolAddTask,
		args(t, AddTaskInput{OwnerID: otherOwner.String(), Title: "buy milk"}))
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = dispatcher.Dispatch(context.Background(), authOwner, ToolListTasks,
		args(t, ListTasksInput{OwnerID: otherOwner.String()}))
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestDispatchInvalidArguments(t *testing.T) {
	dispatcher, _ := newTestDispatcher(t)
	owner := uuid.New()

	// Malformed JSON
	_, err := dispatcher.Dispatch(context.Background(), owner, ToolAddTask, json.RawMessage(`{`))
	assert.ErrorIs(t, err, ErrInvalidArguments)

	// Unparsable owner
	_, err = dispatcher.Dispatch(context.Background(), owner, ToolAddTask,
		args(t, AddTaskInput{OwnerID: "not-a-uuid", Title: "buy milk"}))
	assert.ErrorIs(t, err, ErrInvalidArguments)

	// Missing title
	_, err = dispatcher.Dispatch(context.Background(), owner, ToolAddTask,
		args(t, AddTaskInput{OwnerID: owner.String()}))
	assert.ErrorIs(t, err, ErrInvalidArguments)

	// Bad task ID
	_, err = dispatcher.Dispatch(context.Background(), owner, ToolCompleteTask,
		args(t, TaskIDInput{OwnerID: owner.String(), TaskID: "nope"}))
	assert.ErrorIs(t, err, ErrInvalidArguments)
}

func TestAddTaskAndList(t *testing.T) {
	dispatcher, _ := newTestDispatcher(t)
	owner := uuid.New()

	out, err := dispatcher.Dispatch(context.Background(), owner, ToolAddTask,
		args(t, AddTaskInput{OwnerID: owner.String(), Title: "buy milk", Priority: "low"}))
	require.NoError(t, err)

	created, ok := out.(*TaskResult)
	require.True(t, ok)
	assert.Equal(t, StatusCreated, created.Status)
	assert.Equal(t, "buy milk", created.Title)
	assert.NotEmpty(t, created.TaskID)

	out, err = dispatcher.Dispatch(context.Background(), owner, ToolListTasks,
		args(t, ListTasksInput{OwnerID: owner.String()}))
	require.NoError(t, err)

	list, ok := out.(*ListResult)
	require.True(t, ok)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, created.TaskID, list.Tasks[0].TaskID)
	assert.Equal(t, "low", list.Tasks[0].Priority)
	assert.False(t, list.Tasks[0].Completed)
}

func TestAddTaskPriorityHandling(t *testing.T) {
	dispatcher, tasks := newTestDispatcher(t)
	owner := uuid.New()

	cases := []struct {
		name     string
		input    AddTaskInput
		expected domain.Priority
	}{
		{
			name:     "explicit priority wins",
			input:    AddTaskInput{Title: "urgent fix bug", Priority: "low"},
			expected: domain.PriorityLow,
		},
		{
			name:     "classifier supplies hint for urgent text",
			input:    AddTaskInput{Title: "urgent fix bug"},
			expected: domain.PriorityHigh,
		},
		{
			name:     "classifier supplies hint for deferred text",
			input:    AddTaskInput{Title: "read article later"},
			expected: domain.PriorityLow,
		},
		{
			name:     "neutral text defaults to medium",
			input:    AddTaskInput{Title: "buy milk"},
			expected: domain.PriorityMedium,
		},
		{
			name:     "invalid value is silently normalized",
			input:    AddTaskInput{Title: "buy milk", Priority: "super-urgent"},
			expected: domain.PriorityMedium,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.input.OwnerID = owner.String()
			out, err := dispatcher.Dispatch(context.Background(), owner, ToolAddTask, args(t, tc.input))
			require.NoError(t, err)

			created := out.(*TaskResult)
			taskID, err := uuid.Parse(created.TaskID)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, tasks.tasks[taskID].Priority)
		})
	}
}

func TestCompleteTaskIsIdempotent(t *testing.T) {
	dispatcher, tasks := newTestDispatcher(t)
	owner := uuid.New()

	task, err := domain.NewTask(owner, "buy milk", "", domain.PriorityMedium)
	require.NoError(t, err)
	require.NoError(t, tasks.Create(context.Background(), task))

	input := args(t, TaskIDInput{OwnerID: owner.String(), TaskID: task.ID.String()})

	out, err := dispatcher.Dispatch(context.Background(), owner, ToolCompleteTask, input)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, out.(*TaskResult).Status)
	assert.True(t, tasks.tasks[task.ID].Completed)

	// Completing again succeeds with the same result.
	out, err = dispatcher.Dispatch(context.Background(), owner, ToolCompleteTask, input)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, out.(*TaskResult).Status)
}

func TestCompleteTaskNotFound(t *testing.T) {
	dispatcher, _ := newTestDispatcher(t)
	owner := uuid.New()

	_, err := dispatcher.Dispatch(context.Background(), owner, ToolCompleteTask,
		args(t, TaskIDInput{OwnerID: owner.String(), TaskID: uuid.New().String()}))
	assert.ErrorIs(t, err, ErrToolExecution)
	assert.True(t, IsNotFound(err))
}

func TestCompleteTaskCrossOwnerLooksMissing(t *testing.T) {
	dispatcher, tasks := newTestDispatcher(t)
	owner := uuid.New()
	victim := uuid.New()

	task, err := domain.NewTask(victim, "victim's task", "", domain.PriorityMedium)
	require.NoError(t, err)
	require.NoError(t, tasks.Create(context.Background(), task))

	// The caller's own owner check passes; the store never reveals the
	// other owner's task.
	_, err = dispatcher.Dispatch(context.Background(), owner, ToolCompleteTask,
		args(t, TaskIDInput{OwnerID: owner.String(), TaskID: task.ID.String()}))
	assert.True(t, IsNotFound(err))
	assert.False(t, tasks.tasks[task.ID].Completed)
}

func TestDeleteTask(t *testing.T) {
	dispatcher, tasks := newTestDispatcher(t)
	owner := uuid.New()

	task, err := domain.NewTask(owner, "buy milk", "", domain.PriorityMedium)
	require.NoError(t, err)
	require.NoError(t, tasks.Create(context.Background(), task))

	out, err := dispatcher.Dispatch(context.Background(), owner, ToolDeleteTask,
		args(t, TaskIDInput{OwnerID: owner.String(), TaskID: task.ID.String()}))
	require.NoError(t, err)
	assert.Equal(t, StatusDeleted, out.(*TaskResult).Status)
	assert.NotContains(t, tasks.tasks, task.ID)
}

func TestUpdateTaskPartialFields(t *testing.T) {
	dispatcher, tasks := newTestDispatcher(t)
	owner := uuid.New()

	task, err := domain.NewTask(owner, "buy milk", "semi-skimmed", domain.PriorityMedium)
	require.NoError(t, err)
	require.NoError(t, tasks.Create(context.Background(), task))

	newTitle := "buy oat milk"
	out, err := dispatcher.Dispatch(context.Background(), owner, ToolUpdateTask,
		args(t, UpdateTaskInput{OwnerID: owner.String(), TaskID: task.ID.String(), Title: &newTitle}))
	require.NoError(t, err)
	assert.Equal(t, StatusUpdated, out.(*TaskResult).Status)

	updated := tasks.tasks[task.ID]
	assert.Equal(t, "buy oat milk", updated.Title)
	assert.Equal(t, "semi-skimmed", updated.Description)
}

func TestSetPriorityRejectsInvalidValue(t *testing.T) {
	dispatcher, tasks := newTestDispatcher(t)
	owner := uuid.New()

	task, err := domain.NewTask(owner, "buy milk", "", domain.PriorityMedium)
	require.NoError(t, err)
	require.NoError(t, tasks.Create(context.Background(), task))

	// Unlike add_task hints, explicit priorities are validated strictly.
	_, err = dispatcher.Dispatch(context.Background(), owner, ToolSetPriority,
		args(t, SetPriorityInput{OwnerID: owner.String(), TaskID: task.ID.String(), Priority: "urgent"}))
	assert.ErrorIs(t, err, ErrInvalidArguments)
	assert.Equal(t, domain.PriorityMedium, tasks.tasks[task.ID].Priority)

	out, err := dispatcher.Dispatch(context.Background(), owner, ToolSetPriority,
		args(t, SetPriorityInput{OwnerID: owner.String(), TaskID: task.ID.String(), Priority: "high"}))
	require.NoError(t, err)
	assert.Equal(t, "high", out.(*PriorityResult).Priority)
	assert.Equal(t, domain.PriorityHigh, tasks.tasks[task.ID].Priority)
}

func TestListTasksStatusFilter(t *testing.T) {
	dispatcher, tasks := newTestDispatcher(t)
	owner := uuid.New()

	for i, completed := range []bool{false, true, false} {
		task, err := domain.NewTask(owner, fmt.Sprintf("task %d", i), "", domain.PriorityMedium)
		require.NoError(t, err)
		task.Completed = completed
		require.NoError(t, tasks.Create(context.Background(), task))
	}

	out, err := dispatcher.Dispatch(context.Background(), owner, ToolListTasks,
		args(t, ListTasksInput{OwnerID: owner.String(), StatusFilter: StatusPending}))
	require.NoError(t, err)
	assert.Equal(t, 2, out.(*ListResult).Count)

	out, err = dispatcher.Dispatch(context.Background(), owner, ToolListTasks,
		args(t, ListTasksInput{OwnerID: owner.String(), StatusFilter: StatusCompleted}))
	require.NoError(t, err)
	assert.Equal(t, 1, out.(*ListResult).Count)

	_, err = dispatcher.Dispatch(context.Background(), owner, ToolListTasks,
		args(t, ListTasksInput{OwnerID: owner.String(), StatusFilter: "done"}))
	assert.ErrorIs(t, err, ErrInvalidArguments)
}

func TestListTasksByPriority(t *testing.T) {
	dispatcher, tasks := newTestDispatcher(t)
	owner := uuid.New()

	for title, priority := range map[string]domain.Priority{
		"fix prod":   domain.PriorityHigh,
		"buy milk":   domain.PriorityMedium,
		"read later": domain.PriorityLow,
	} {
		task, err := domain.NewTask(owner, title, "", priority)
		require.NoError(t, err)
		require.NoError(t, tasks.Create(context.Background(), task))
	}

	out, err := dispatcher.Dispatch(context.Background(), owner, ToolListTasksByPriority,
		args(t, OwnerInput{OwnerID: owner.String()}))
	require.NoError(t, err)

	buckets := out.(*PriorityBuckets)
	assert.Len(t, buckets.High, 1)
	assert.Len(t, buckets.Medium, 1)
	assert.Len(t, buckets.Low, 1)
	assert.Equal(t, "fix prod", buckets.High[0].Title)
}

func TestBulkUpdateTasks(t *testing.T) {
	dispatcher, tasks := newTestDispatcher(t)
	owner := uuid.New()

	var ids []string
	for i := 0; i < 3; i++ {
		task, err := domain.NewTask(owner, fmt.Sprintf("task %d", i), "", domain.PriorityMedium)
		require.NoError(t, err)
		require.NoError(t, tasks.Create(context.Background(), task))
		ids = append(ids, task.ID.String())
	}

	// One unknown ID is skipped, not an error.
	ids = append(ids, uuid.New().String())

	out, err := dispatcher.Dispatch(context.Background(), owner, ToolBulkUpdateTasks,
		args(t, BulkUpdateInput{OwnerID: owner.String(), TaskIDs: ids, Status: StatusCompleted}))
	require.NoError(t, err)

	bulk := out.(*BulkResult)
	assert.Equal(t, int64(3), bulk.UpdatedCount)
	assert.Equal(t, StatusCompleted, bulk.Status)

	_, err = dispatcher.Dispatch(context.Background(), owner, ToolBulkUpdateTasks,
		args(t, BulkUpdateInput{OwnerID: owner.String(), TaskIDs: ids, Status: "archived"}))
	assert.ErrorIs(t, err, ErrInvalidArguments)
}

func TestDefinitionsCoverEveryTool(t *testing.T) {
	names := make(map[string]bool)
	for _, def := range Definitions() {
		assert.NotEmpty(t, def.Description)
		assert.NotNil(t, def.Parameters)
		names[def.Name] = true
	}

	for _, tool := range []string{
		ToolAddTask, ToolListTasks, ToolCompleteTask, ToolDeleteTask,
		ToolUpdateTask, ToolSetPriority, ToolListTasksByPriority, ToolBulkUpdateTasks,
	} {
		assert.True(t, names[tool], "missing definition for %s", tool)
	}
	assert.Len(t, names, 8)
}
