package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/fiszki-api/internal/config"
	"github.com/phrazzld/fiszki-api/internal/events"
	"github.com/phrazzld/fiszki-api/internal/generation"
	"github.com/phrazzld/fiszki-api/internal/llm"
	"github.com/phrazzld/fiszki-api/internal/platform/gemini"
	"github.com/phrazzld/fiszki-api/internal/platform/openrouter"
	"github.com/phrazzld/fiszki-api/internal/platform/postgres"
	"github.com/phrazzld/fiszki-api/internal/service"
	"github.com/phrazzld/fiszki-api/internal/service/auth"
	"github.com/phrazzld/fiszki-api/internal/service/review"
	"github.com/phrazzld/fiszki-api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// application holds the shared dependencies and owns their shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	jwtService        auth.JWTService
	authService       auth.Service
	flashcardService  service.FlashcardService
	generationService generation.Service
	reviewService     review.Service
	eventEmitter      events.EventEmitter
}

// newApplication wires stores, services and the LLM client.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(events.NewLoggingHandler(logger))
	app.eventEmitter = emitter

	tx := store.NewTransactor(db)
	userStore := postgres.NewPostgresUserStore(db, logger)
	flashcardStore := postgres.NewPostgresFlashcardStore(db, logger)
	generationStore := postgres.NewPostgresGenerationStore(db, logger)
	errorLogStore := postgres.NewPostgresGenerationErrorLogStore(db, logger)

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		slog.Int("token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes))

	app.authService, err = auth.NewService(tx, userStore, auth.NewBcryptHasher(bcrypt.DefaultCost), app.jwtService, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth service: %w", err)
	}

	app.flashcardService, err = service.NewFlashcardService(tx, flashcardStore, emitter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create flashcard service: %w", err)
	}

	client, err := newLLMClient(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, err
	}

	app.generationService, err = generation.NewService(
		client,
		tx,
		generationStore,
		errorLogStore,
		emitter,
		generation.Config{
			MinInputLength: cfg.Generation.MinInputLength,
			MaxInputLength: cfg.Generation.MaxInputLength,
			Model:          cfg.LLM.Model,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation service: %w", err)
	}

	app.reviewService, err = review.NewService(tx, generationStore, flashcardStore, emitter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create review service: %w", err)
	}

	logger.Info("application initialized")
	return app, nil
}

// newLLMClient builds the configured provider client. A missing API key is
// not fatal: the server starts and generation answers SERVICE_UNAVAILABLE.
func newLLMClient(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (llm.ChatClient, error) {
	params := map[string]any{"temperature": cfg.Temperature}
	if cfg.MaxTokens > 0 {
		params["max_tokens"] = cfg.MaxTokens
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	var (
		client llm.ChatClient
		err    error
	)
	switch cfg.Provider {
	case "gemini":
		client, err = gemini.NewClient(ctx, gemini.Config{
			APIKey:        cfg.APIKey,
			Model:         cfg.Model,
			Timeout:       timeout,
			DefaultParams: params,
		}, logger)
	default:
		client, err = openrouter.NewClient(openrouter.Config{
			APIKey:        cfg.APIKey,
			BaseURL:       cfg.BaseURL,
			Model:         cfg.Model,
			Timeout:       timeout,
			DefaultParams: params,
			HTTPReferer:   cfg.HTTPReferer,
			AppTitle:      cfg.AppTitle,
		}, logger)
	}
	if errors.Is(err, llm.ErrNotConfigured) && cfg.APIKey == "" {
		logger.Warn("LLM provider has no API key; flashcard generation is disabled",
			slog.String("provider", cfg.Provider))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s client: %w", cfg.Provider, err)
	}
	logger.Info("LLM client initialized",
		slog.String("provider", cfg.Provider),
		slog.String("model", cfg.Model))
	return client, nil
}

// Run serves HTTP until ctx is canceled, then shuts down.
func (app *application) Run(ctx context.Context) error {
	router, err := app.setupRouter()
	if err != nil {
		return fmt.Errorf("failed to set up router: %w", err)
	}
	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}
	app.logger.Info("application shutdown completed")
}
