package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Chat     ChatConfig     `mapstructure:"chat"     validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
// Tokens are issued by the external identity provider; this service
// only verifies them and extracts the owner ID.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// LLMConfig contains all model integration related settings.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName    string `mapstructure:"model_name"     validate:"required"`

	// MaxRetries is the number of times a transient API error is retried.
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0"`

	// RetryDelaySeconds is the base delay for exponential backoff between
	// retries.
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds" validate:"gte=0"`
}

// ChatConfig contains the resource policy for the conversation
// subsystem: message size, conversation count, retention, timeouts,
// retries and queueing.
type ChatConfig struct {
	// MaxActiveConversations is the per-owner active conversation
	// limit; the oldest conversation is archived when it is exceeded.
	MaxActiveConversations int `mapstructure:"max_active_conversations" validate:"required,gt=0"`

	// RetentionWindow is how long messages live before the sweeper
	// deletes them.
	RetentionWindow time.Duration `mapstructure:"retention_window" validate:"required"`

	// SweepInterval is how often the retention sweeper runs.
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"required"`

	// TurnTimeout is the hard wall-clock budget for one turn, from
	// accepting the user message to the final event on the stream.
	TurnTimeout time.Duration `mapstructure:"turn_timeout" validate:"required"`

	// MaxToolIterations bounds the tool-calling loop within a turn.
	MaxToolIterations int `mapstructure:"max_tool_iterations" validate:"required,gt=0"`

	// StoreRetries is how many times a transient storage failure is
	// retried before surfacing a retryable error.
	StoreRetries int `mapstructure:"store_retries" validate:"required,gte=0"`

	// StoreRetryBaseDelay is the first retry delay; subsequent delays
	// double (1s, 2s, 4s with the defaults).
	StoreRetryBaseDelay time.Duration `mapstructure:"store_retry_base_delay" validate:"required"`

	// ThreadQueueDepth is how many turns may wait behind an in-flight
	// turn on the same thread reference before new turns are rejected.
	ThreadQueueDepth int `mapstructure:"thread_queue_depth" validate:"required,gt=0"`
}
