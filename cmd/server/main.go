// Package main implements the entry point for the taskchat API server,
// the conversational task-management service: it accepts chat turns,
// runs the model-driven tool loop against the caller's task list, and
// streams the results back.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/taskchat/taskchat-api/internal/config"
	"github.com/taskchat/taskchat-api/internal/platform/logger"
)

// main initializes configuration, logging, the database, and the
// service graph, then runs the HTTP server until a shutdown signal.
func main() {
	app, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.run(context.Background()); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}

// initializeApp loads configuration, sets up logging and builds the
// application dependency graph.
func initializeApp() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(logger.LoggerConfig{Level: cfg.Server.LogLevel})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"max_active_conversations", cfg.Chat.MaxActiveConversations,
		"retention_window", cfg.Chat.RetentionWindow,
		"turn_timeout", cfg.Chat.TurnTimeout)

	app, err := newApplication(cfg, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to build application: %w", err)
	}

	return app, nil
}
