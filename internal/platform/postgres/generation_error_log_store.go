package postgres

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/fiszki-api/internal/domain"
	"github.com/phrazzld/fiszki-api/internal/platform/logger"
	"github.com/phrazzld/fiszki-api/internal/store"
)

// PostgresGenerationErrorLogStore implements store.GenerationErrorLogStore.
type PostgresGenerationErrorLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresGenerationErrorLogStore creates an error log store on db.
func NewPostgresGenerationErrorLogStore(db store.DBTX, logger *slog.Logger) *PostgresGenerationErrorLogStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresGenerationErrorLogStore{
		db:     db,
		logger: logger.With(slog.String("component", "generation_error_log_store")),
	}
}

var _ store.GenerationErrorLogStore = (*PostgresGenerationErrorLogStore)(nil)

// Create implements store.GenerationErrorLogStore.
func (s *PostgresGenerationErrorLogStore) Create(ctx context.Context, entry *domain.GenerationErrorLog) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO generation_error_logs (
			user_id, error_code, error_message, source_text_hash, source_text_length, model
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`,
		entry.UserID, entry.ErrorCode, entry.ErrorMessage,
		entry.SourceTextHash, entry.SourceTextLength, entry.Model,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		log.Error("failed to write generation error log",
			slog.String("error", err.Error()),
			slog.String("error_code", entry.ErrorCode))
		return store.NewStoreError("generation_error_log", "create", "insert failed", MapError(err))
	}
	return nil
}

// ListByUser implements store.GenerationErrorLogStore.
func (s *PostgresGenerationErrorLogStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
) ([]*domain.GenerationErrorLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, error_code, error_message, source_text_hash,
			source_text_length, model, created_at
		FROM generation_error_logs
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, store.NewStoreError("generation_error_log", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var entries []*domain.GenerationErrorLog
	for rows.Next() {
		var e domain.GenerationErrorLog
		if err := rows.Scan(&e.ID, &e.UserID, &e.ErrorCode, &e.ErrorMessage,
			&e.SourceTextHash, &e.SourceTextLength, &e.Model, &e.CreatedAt); err != nil {
			return nil, store.NewStoreError("generation_error_log", "list", "scan failed", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("generation_error_log", "list", "iteration failed", MapError(err))
	}
	return entries, nil
}
