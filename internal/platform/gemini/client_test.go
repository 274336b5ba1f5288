package gemini

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/taskchat/taskchat-api/internal/agent"
	"github.com/taskchat/taskchat-api/internal/config"
	"github.com/taskchat/taskchat-api/internal/domain"
	"github.com/taskchat/taskchat-api/internal/tools"
)

func TestNewClientValidation(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	_, err := NewClient(ctx, nil, config.LLMConfig{GeminiAPIKey: "key", ModelName: "model"})
	assert.Error(t, err)

	_, err = NewClient(ctx, logger, config.LLMConfig{ModelName: "model"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewClient(ctx, logger, config.LLMConfig{GeminiAPIKey: "key"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestBuildContentsMapsRoles(t *testing.T) {
	prompt := &agent.Prompt{
		History: []*domain.Message{
			{Role: domain.RoleUser, Content: "add a task"},
			{Role: domain.RoleAssistant, Content: "done"},
		},
	}

	contents := buildContents(prompt)
	require.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "add a task", contents[0].Parts[0].Text)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "done", contents[1].Parts[0].Text)
}

func TestBuildContentsReplaysToolOutcomes(t *testing.T) {
	prompt := &agent.Prompt{
		History: []*domain.Message{{Role: domain.RoleUser, Content: "add milk"}},
		Outcomes: []agent.ToolOutcome{
			{
				Request: agent.ToolRequest{Name: "add_task", Args: json.RawMessage(`{"title":"milk"}`)},
				Output:  json.RawMessage(`{"status":"created"}`),
			},
			{
				Request: agent.ToolRequest{Name: "complete_task", Args: json.RawMessage(`{}`)},
				Err:     "task not found",
			},
		},
	}

	contents := buildContents(prompt)
	require.Len(t, contents, 5)

	call := contents[1]
	assert.Equal(t, "model", call.Role)
	require.NotNil(t, call.Parts[0].FunctionCall)
	assert.Equal(t, "add_task", call.Parts[0].FunctionCall.Name)
	assert.Equal(t, "milk", call.Parts[0].FunctionCall.Args["title"])

	response := contents[2]
	assert.Equal(t, "user", response.Role)
	require.NotNil(t, response.Parts[0].FunctionResponse)
	assert.Equal(t, "created", response.Parts[0].FunctionResponse.Response["status"])

	// A failed outcome is replayed with an error key, not dropped.
	failed := contents[4]
	require.NotNil(t, failed.Parts[0].FunctionResponse)
	assert.Equal(t, "task not found", failed.Parts[0].FunctionResponse.Response["error"])
}

func TestParseCandidateText(t *testing.T) {
	candidate := &genai.Candidate{
		Content: &genai.Content{
			Parts: []*genai.Part{{Text: "Added "}, {Text: "it."}},
		},
	}

	turn, err := parseCandidate(candidate)
	require.NoError(t, err)
	assert.Equal(t, "Added it.", turn.Text)
	assert.Empty(t, turn.ToolCalls)
}

func TestParseCandidateFunctionCalls(t *testing.T) {
	candidate := &genai.Candidate{
		Content: &genai.Content{
			Parts: []*genai.Part{
				{FunctionCall: &genai.FunctionCall{
					Name: "add_task",
					Args: map[string]any{"title": "buy milk"},
				}},
			},
		},
	}

	turn, err := parseCandidate(candidate)
	require.NoError(t, err)
	require.Len(t, turn.ToolCalls, 1)
	assert.Equal(t, "add_task", turn.ToolCalls[0].Name)
	assert.JSONEq(t, `{"title":"buy milk"}`, string(turn.ToolCalls[0].Args))
}

func TestParseCandidateEmpty(t *testing.T) {
	candidate := &genai.Candidate{Content: &genai.Content{}}

	_, err := parseCandidate(candidate)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestBuildDeclarationsCoversAllTools(t *testing.T) {
	declarations := buildDeclarations(tools.Definitions())
	require.Len(t, declarations, 8)

	for _, decl := range declarations {
		assert.NotEmpty(t, decl.Name)
		assert.NotEmpty(t, decl.Description)
		require.NotNil(t, decl.Parameters, "tool %s has no parameter schema", decl.Name)
		assert.Equal(t, genai.TypeObject, decl.Parameters.Type)
		assert.Contains(t, decl.Parameters.Properties, "owner_id")
	}
}

func TestToSchemaConversion(t *testing.T) {
	schema := toSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"priority": map[string]any{
				"type":        "string",
				"description": "task priority",
				"enum":        []string{"high", "medium", "low"},
			},
			"task_ids": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required": []string{"priority"},
	})

	require.NotNil(t, schema)
	assert.Equal(t, genai.TypeObject, schema.Type)
	assert.Equal(t, []string{"priority"}, schema.Required)

	priority := schema.Properties["priority"]
	require.NotNil(t, priority)
	assert.Equal(t, genai.TypeString, priority.Type)
	assert.Equal(t, []string{"high", "medium", "low"}, priority.Enum)

	taskIDs := schema.Properties["task_ids"]
	require.NotNil(t, taskIDs)
	assert.Equal(t, genai.TypeArray, taskIDs.Type)
	require.NotNil(t, taskIDs.Items)
	assert.Equal(t, genai.TypeString, taskIDs.Items.Type)

	assert.Nil(t, toSchema(nil))
}
