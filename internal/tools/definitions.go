package tools

// Definition describes one tool for the model: its name, what it does,
// and a JSON-schema parameter description. The same closed set that
// drives Dispatch generates these declarations, so the model can never
// be offered a tool the dispatcher won't execute.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ownerProperty is the owner_id parameter every tool carries. The
// dispatcher verifies it against the authenticated owner on each call.
func ownerProperty() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "The UUID of the task owner. Must be the authenticated user's ID.",
	}
}

func priorityProperty(description string) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": description,
		"enum":        []string{"high", "medium", "low"},
	}
}

// Definitions returns the declarations for all eight tools, in a
// stable order.
func Definitions() []Definition {
	return []Definition{
		{
			Name:        ToolAddTask,
			Description: "Create a new task for the user. Infer priority from the user's wording: urgent or time-critical requests are high, things to do someday are low, everything else medium.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"owner_id": ownerProperty(),
					"title": map[string]any{
						"type":        "string",
						"description": "Short title of the task.",
					},
					"description": map[string]any{
						"type":        "string",
						"description": "Optional longer description.",
					},
					"priority": priorityProperty("Optional priority. Omit to let the service classify it."),
				},
				"required": []string{"owner_id", "title"},
			},
		},
		{
			Name:        ToolListTasks,
			Description: "List the user's tasks, optionally filtered by completion status.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"owner_id": ownerProperty(),
					"status_filter": map[string]any{
						"type":        "string",
						"description": "Optional filter.",
						"enum":        []string{"pending", "completed", "all"},
					},
				},
				"required": []string{"owner_id"},
			},
		},
		{
			Name:        ToolCompleteTask,
			Description: "Mark a task as completed. Completing an already-completed task succeeds.",
			Parameters:  taskIDParameters(),
		},
		{
			Name:        ToolDeleteTask,
			Description: "Delete a task permanently.",
			Parameters:  taskIDParameters(),
		},
		{
			Name:        ToolUpdateTask,
			Description: "Update a task's title and/or description.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"owner_id": ownerProperty(),
					"task_id": map[string]any{
						"type":        "string",
						"description": "The UUID of the task.",
					},
					"title": map[string]any{
						"type":        "string",
						"description": "New title.",
					},
					"description": map[string]any{
						"type":        "string",
						"description": "New description.",
					},
				},
				"required": []string{"owner_id", "task_id"},
			},
		},
		{
			Name:        ToolSetPriority,
			Description: "Set a task's priority.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"owner_id": ownerProperty(),
					"task_id": map[string]any{
						"type":        "string",
						"description": "The UUID of the task.",
					},
					"priority": priorityProperty("The new priority."),
				},
				"required": []string{"owner_id", "task_id", "priority"},
			},
		},
		{
			Name:        ToolListTasksByPriority,
			Description: "List the user's tasks grouped into high, medium and low priority buckets.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"owner_id": ownerProperty(),
				},
				"required": []string{"owner_id"},
			},
		},
		{
			Name:        ToolBulkUpdateTasks,
			Description: "Set the completion status of several tasks at once.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"owner_id": ownerProperty(),
					"task_ids": map[string]any{
						"type":        "array",
						"description": "UUIDs of the tasks to update.",
						"items":       map[string]any{"type": "string"},
					},
					"status": map[string]any{
						"type":        "string",
						"description": "Target completion status.",
						"enum":        []string{"completed", "pending"},
					},
				},
				"required": []string{"owner_id", "task_ids", "status"},
			},
		},
	}
}

func taskIDParameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"owner_id": ownerProperty(),
			"task_id": map[string]any{
				"type":        "string",
				"description": "The UUID of the task.",
			},
		},
		"required": []string{"owner_id", "task_id"},
	}
}
