package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optional config file in the working directory.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables with the TASKCHAT_ prefix override file
	// values, e.g. TASKCHAT_DATABASE_URL, TASKCHAT_CHAT_TURN_TIMEOUT.
	v.SetEnvPrefix("TASKCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without defaults must be bound explicitly or Unmarshal never
	// sees their environment values.
	for _, key := range []string{"database.url", "auth.jwt_secret", "llm.gemini_api_key"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults installs the resource-policy defaults. Only settings
// without a safe default (database URL, JWT secret, API key) must be
// provided externally.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)

	v.SetDefault("chat.max_active_conversations", 50)
	v.SetDefault("chat.retention_window", 720*time.Hour)
	v.SetDefault("chat.sweep_interval", 10*time.Minute)
	v.SetDefault("chat.turn_timeout", 30*time.Second)
	v.SetDefault("chat.max_tool_iterations", 10)
	v.SetDefault("chat.store_retries", 3)
	v.SetDefault("chat.store_retry_base_delay", time.Second)
	v.SetDefault("chat.thread_queue_depth", 16)
}
