package tools

// Tool names form a closed set; dispatch is a switch over these
// constants so an unknown name fails at the boundary.
const (
	ToolAddTask             = "add_task"
	ToolListTasks           = "list_tasks"
	ToolCompleteTask        = "complete_task"
	ToolDeleteTask          = "delete_task"
	ToolUpdateTask          = "update_task"
	ToolSetPriority         = "set_priority"
	ToolListTasksByPriority = "list_tasks_by_priority"
	ToolBulkUpdateTasks     = "bulk_update_tasks"
)

// Task status strings reported in tool outputs.
const (
	StatusCreated   = "created"
	StatusCompleted = "completed"
	StatusDeleted   = "deleted"
	StatusUpdated   = "updated"
	StatusPending   = "pending"
)

// Tool inputs. Every input carries an explicit owner_id which the
// dispatcher verifies against the authenticated owner before
// delegating.

// AddTaskInput is the input for add_task.
type AddTaskInput struct {
	OwnerID     string `json:"owner_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

// ListTasksInput is the input for list_tasks. StatusFilter is one of
// "pending", "completed" or empty/"all".
type ListTasksInput struct {
	OwnerID      string `json:"owner_id"`
	StatusFilter string `json:"status_filter,omitempty"`
}

// TaskIDInput is the input shared by complete_task and delete_task.
type TaskIDInput struct {
	OwnerID string `json:"owner_id"`
	TaskID  string `json:"task_id"`
}

// UpdateTaskInput is the input for update_task. Nil fields are left
// unchanged.
type UpdateTaskInput struct {
	OwnerID     string  `json:"owner_id"`
	TaskID      string  `json:"task_id"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// SetPriorityInput is the input for set_priority.
type SetPriorityInput struct {
	OwnerID  string `json:"owner_id"`
	TaskID   string `json:"task_id"`
	Priority string `json:"priority"`
}

// OwnerInput is the input for list_tasks_by_priority.
type OwnerInput struct {
	OwnerID string `json:"owner_id"`
}

// BulkUpdateInput is the input for bulk_update_tasks. Status is
// "completed" or "pending".
type BulkUpdateInput struct {
	OwnerID string   `json:"owner_id"`
	TaskIDs []string `json:"task_ids"`
	Status  string   `json:"status"`
}

// Tool outputs. All outputs are flat, serializable records with no
// nested object graphs so they can cross the agent boundary safely.

// TaskResult is the output of add_task, complete_task, delete_task and
// update_task.
type TaskResult struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Title  string `json:"title"`
}

// PriorityResult is the output of set_priority.
type PriorityResult struct {
	TaskID   string `json:"task_id"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

// TaskRecord is one task in a listing output.
type TaskRecord struct {
	TaskID      string `json:"task_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Completed   bool   `json:"completed"`
	Priority    string `json:"priority"`
}

// ListResult is the output of list_tasks.
type ListResult struct {
	Tasks []TaskRecord `json:"tasks"`
	Count int          `json:"count"`
}

// PriorityBuckets is the output of list_tasks_by_priority.
type PriorityBuckets struct {
	High   []TaskRecord `json:"high"`
	Medium []TaskRecord `json:"medium"`
	Low    []TaskRecord `json:"low"`
}

// BulkResult is the output of bulk_update_tasks.
type BulkResult struct {
	UpdatedCount int64  `json:"updated_count"`
	Status       string `json:"status"`
}
