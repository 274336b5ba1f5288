package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/taskchat/taskchat-api/internal/agent"
	"github.com/taskchat/taskchat-api/internal/classify"
	"github.com/taskchat/taskchat-api/internal/config"
	"github.com/taskchat/taskchat-api/internal/gateway"
	"github.com/taskchat/taskchat-api/internal/history"
	"github.com/taskchat/taskchat-api/internal/platform/gemini"
	"github.com/taskchat/taskchat-api/internal/platform/postgres"
	"github.com/taskchat/taskchat-api/internal/service/auth"
	"github.com/taskchat/taskchat-api/internal/sweeper"
	"github.com/taskchat/taskchat-api/internal/tools"
)

// application holds the fully wired dependency graph for the server.
type application struct {
	config *config.Config
	logger *slog.Logger

	db *sql.DB

	jwtService  auth.JWTService
	turnService *gateway.TurnService
	sweeper     *sweeper.Sweeper
}

// newApplication builds the dependency graph: database, stores,
// classifier, tool dispatcher, agent loop, and the gateway service.
// Migrations run before any store is used.
func newApplication(cfg *config.Config, appLogger *slog.Logger) (*application, error) {
	db, err := setupAppDatabase(cfg, appLogger)
	if err != nil {
		return nil, err
	}

	if err := postgres.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}

	conversationStore := postgres.NewPostgresConversationStore(db, appLogger)
	messageStore := postgres.NewPostgresMessageStore(db, appLogger)
	taskStore := postgres.NewPostgresTaskStore(db, appLogger)

	classifier := classify.NewKeywordClassifier()
	dispatcher := tools.NewDispatcher(taskStore, classifier, appLogger)

	modelClient, err := gemini.NewClient(context.Background(), appLogger, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	orchestrator := agent.NewOrchestrator(
		modelClient,
		dispatcher,
		cfg.Chat.TurnTimeout,
		cfg.Chat.MaxToolIterations,
		appLogger,
	)

	loader := history.NewLoader(
		conversationStore,
		messageStore,
		cfg.Chat.MaxActiveConversations,
		appLogger,
	)

	turnService := gateway.NewTurnService(
		messageStore,
		loader,
		orchestrator,
		gateway.NewThreadQueue(cfg.Chat.ThreadQueueDepth),
		cfg.Chat.RetentionWindow,
		cfg.Chat.StoreRetries,
		cfg.Chat.StoreRetryBaseDelay,
		appLogger,
	)

	retentionSweeper := sweeper.New(messageStore, cfg.Chat.SweepInterval, appLogger)

	return &application{
		config:      cfg,
		logger:      appLogger,
		db:          db,
		jwtService:  jwtService,
		turnService: turnService,
		sweeper:     retentionSweeper,
	}, nil
}

// run starts the retention sweeper and the HTTP server, blocking until
// shutdown completes.
func (app *application) run(ctx context.Context) error {
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go app.sweeper.Run(sweepCtx)

	return app.startHTTPServer(ctx, app.setupRouter())
}

// cleanup releases resources held by the application.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Failed to close database connection", "error", err)
		}
	}
}
