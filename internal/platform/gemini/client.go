package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"google.golang.org/genai"

	"github.com/taskchat/taskchat-api/internal/agent"
	"github.com/taskchat/taskchat-api/internal/config"
	"github.com/taskchat/taskchat-api/internal/domain"
	"github.com/taskchat/taskchat-api/internal/tools"
)

// Client implements the agent.ModelClient interface using Google's
// Gemini API with function calling for the task tools.
type Client struct {
	// logger is used for structured logging
	logger *slog.Logger

	// config contains LLM-specific configuration
	config config.LLMConfig

	// client is the Gemini API client for making requests
	client *genai.Client

	// model is the name of the Gemini model to use
	model string
}

// Compile-time check that Client satisfies agent.ModelClient.
var _ agent.ModelClient = (*Client)(nil)

// NewClient creates a new Gemini-backed model client with the provided
// dependencies.
func NewClient(ctx context.Context, logger *slog.Logger, config config.LLMConfig) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if config.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}

	if config.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrInvalidConfig, err)
	}

	return &Client{
		logger: logger,
		config: config,
		client: client,
		model:  config.ModelName,
	}, nil
}

// Complete sends the prompt to the Gemini API and returns the model's
// next turn: response text, requested tool calls, or both.
//
// Transient API errors are retried with exponential backoff and jitter
// up to config.MaxRetries times. Permanent errors (blocked content,
// malformed responses) are returned immediately.
func (c *Client) Complete(
	ctx context.Context,
	prompt *agent.Prompt,
	defs []tools.Definition,
) (*agent.ModelTurn, error) {
	if prompt == nil {
		return nil, fmt.Errorf("%w: prompt is nil", ErrInvalidConfig)
	}

	contents := buildContents(prompt)

	generateConfig := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: prompt.System}},
		},
	}
	if declarations := buildDeclarations(defs); len(declarations) > 0 {
		generateConfig.Tools = []*genai.Tool{{FunctionDeclarations: declarations}}
	}

	maxRetries := c.config.MaxRetries
	baseDelaySeconds := c.config.RetryDelaySeconds
	attempt := 0
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	if maxRetries < 0 {
		c.logger.WarnContext(ctx, "Invalid max retries value, using default", "max_retries", 3)
		maxRetries = 3
	}

	if baseDelaySeconds < 1 {
		c.logger.WarnContext(ctx, "Invalid retry delay value, using default", "base_delay_seconds", 2)
		baseDelaySeconds = 2
	}

	for attempt <= maxRetries {
		attemptNum := attempt + 1
		c.logger.InfoContext(ctx, "Making Gemini API call",
			"attempt", attemptNum,
			"max_attempts", maxRetries+1)

		var turn *agent.ModelTurn
		var err error
		var isTransientError bool

		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, generateConfig)
		if err != nil {
			isTransientError = true // Assume transient error by default
			c.logger.ErrorContext(ctx, "Gemini API call error",
				"error", err,
				"attempt", attemptNum)
		} else if resp == nil {
			err = fmt.Errorf("%w: nil response", ErrInvalidResponse)
			isTransientError = false
		} else if len(resp.Candidates) == 0 {
			err = fmt.Errorf("%w: no content generated", ErrInvalidResponse)
			isTransientError = false
		} else if resp.Candidates[0].Content == nil {
			err = fmt.Errorf("%w: empty content in response", ErrInvalidResponse)
			isTransientError = false
		} else if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
			err = fmt.Errorf("%w: response blocked", ErrContentBlocked)
			isTransientError = false
		} else {
			turn, err = parseCandidate(resp.Candidates[0])
			isTransientError = false
		}

		if err == nil {
			c.logger.InfoContext(ctx, "Gemini API call successful",
				"attempt", attemptNum,
				"tool_calls", len(turn.ToolCalls),
				"text_length", len(turn.Text))
			return turn, nil
		}

		c.logger.ErrorContext(ctx, "Gemini API call failed",
			"attempt", attemptNum,
			"error", err)

		if errors.Is(err, ErrContentBlocked) || errors.Is(err, ErrInvalidResponse) {
			c.logger.WarnContext(ctx, "Permanent error occurred, not retrying",
				"error_type", err)
			return nil, err
		}

		if attempt >= maxRetries {
			c.logger.WarnContext(ctx, "Maximum retry attempts reached",
				"max_retries", maxRetries)
			return nil, fmt.Errorf("%w: exceeded maximum retry attempts (%d)",
				ErrTransientFailure, maxRetries)
		}

		if !isTransientError {
			c.logger.WarnContext(ctx, "Non-transient error occurred, not retrying")
			return nil, err
		}

		// delay = baseDelay * (2^attempt) * (0.5 + rand(0, 0.5))
		backoffSeconds := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		jitterFactor := 0.5 + rng.Float64()*0.5
		delaySeconds := backoffSeconds * jitterFactor
		delay := time.Duration(delaySeconds * float64(time.Second))

		c.logger.InfoContext(ctx, "Retrying after delay",
			"attempt", attemptNum,
			"delay_seconds", delaySeconds)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			c.logger.WarnContext(ctx, "API call cancelled during retry delay",
				"attempt", attemptNum,
				"ctx_err", ctx.Err())
			return nil, fmt.Errorf("%w: %v", ErrTransientFailure, ctx.Err())
		}

		attempt++
	}

	return nil, fmt.Errorf("%w: failed after %d attempts", ErrTransientFailure, attempt)
}

// buildContents converts the prompt history and tool outcomes into the
// alternating user/model content slices the API expects.
func buildContents(prompt *agent.Prompt) []*genai.Content {
	contents := make([]*genai.Content, 0, len(prompt.History)+2*len(prompt.Outcomes))

	for _, msg := range prompt.History {
		role := "user"
		if msg.Role == domain.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}

	// Tool outcomes from earlier iterations of the current turn are
	// replayed as call/response pairs so the model sees its own calls.
	for _, outcome := range prompt.Outcomes {
		args := map[string]any{}
		if len(outcome.Request.Args) > 0 {
			// Best effort; an unparsable echo still keeps the pair aligned.
			_ = json.Unmarshal(outcome.Request.Args, &args)
		}
		contents = append(contents, &genai.Content{
			Role: "model",
			Parts: []*genai.Part{{
				FunctionCall: &genai.FunctionCall{Name: outcome.Request.Name, Args: args},
			}},
		})

		response := map[string]any{}
		if outcome.Err != "" {
			response["error"] = outcome.Err
		} else if len(outcome.Output) > 0 {
			var decoded map[string]any
			if err := json.Unmarshal(outcome.Output, &decoded); err == nil {
				response = decoded
			} else {
				response["result"] = string(outcome.Output)
			}
		}
		contents = append(contents, &genai.Content{
			Role: "user",
			Parts: []*genai.Part{{
				FunctionResponse: &genai.FunctionResponse{Name: outcome.Request.Name, Response: response},
			}},
		})
	}

	return contents
}

// parseCandidate extracts text and function calls from a response
// candidate into an agent.ModelTurn.
func parseCandidate(candidate *genai.Candidate) (*agent.ModelTurn, error) {
	turn := &agent.ModelTurn{}

	for _, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" {
			turn.Text += part.Text
		}
		if part.FunctionCall != nil {
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return nil, fmt.Errorf("%w: unserializable function call arguments: %v",
					ErrInvalidResponse, err)
			}
			turn.ToolCalls = append(turn.ToolCalls, agent.ToolRequest{
				Name: part.FunctionCall.Name,
				Args: args,
			})
		}
	}

	if turn.Text == "" && len(turn.ToolCalls) == 0 {
		return nil, fmt.Errorf("%w: candidate carried neither text nor function calls",
			ErrInvalidResponse)
	}

	return turn, nil
}

// buildDeclarations converts tool definitions into genai function
// declarations.
func buildDeclarations(defs []tools.Definition) []*genai.FunctionDeclaration {
	declarations := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, def := range defs {
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  toSchema(def.Parameters),
		})
	}
	return declarations
}

// toSchema converts a JSON-schema-shaped map into a genai.Schema.
// Only the subset of the schema vocabulary the tool definitions use is
// supported: type, description, enum, properties, required, items.
func toSchema(node map[string]any) *genai.Schema {
	if node == nil {
		return nil
	}

	schema := &genai.Schema{}

	if t, ok := node["type"].(string); ok {
		schema.Type = schemaType(t)
	}
	if desc, ok := node["description"].(string); ok {
		schema.Description = desc
	}
	if enum, ok := node["enum"].([]string); ok {
		schema.Enum = enum
	} else if enumAny, ok := node["enum"].([]any); ok {
		for _, v := range enumAny {
			if s, ok := v.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	}
	if props, ok := node["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if child, ok := raw.(map[string]any); ok {
				schema.Properties[name] = toSchema(child)
			}
		}
	}
	if required, ok := node["required"].([]string); ok {
		schema.Required = required
	} else if requiredAny, ok := node["required"].([]any); ok {
		for _, v := range requiredAny {
			if s, ok := v.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}
	if items, ok := node["items"].(map[string]any); ok {
		schema.Items = toSchema(items)
	}

	return schema
}

func schemaType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}
