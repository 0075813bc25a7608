package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/fiszki-api/internal/domain"
	"github.com/phrazzld/fiszki-api/internal/platform/logger"
	"github.com/phrazzld/fiszki-api/internal/store"
)

// PostgresGenerationStore implements store.GenerationStore.
type PostgresGenerationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresGenerationStore creates a generation store on db. A nil logger falls back to slog.Default().
func NewPostgresGenerationStore(db store.DBTX, logger *slog.Logger) *PostgresGenerationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresGenerationStore{
		db:     db,
		logger: logger.With(slog.String("component", "generation_store")),
	}
}

var _ store.GenerationStore = (*PostgresGenerationStore)(nil)

// WithTx implements store.GenerationStore.
func (s *PostgresGenerationStore) WithTx(tx *sql.Tx) store.GenerationStore {
	return &PostgresGenerationStore{db: tx, logger: s.logger}
}

// Create implements store.GenerationStore.
func (s *PostgresGenerationStore) Create(ctx context.Context, g *domain.Generation) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO generations (
			user_id, source_text_hash, source_text_length, model,
			generated_count, accepted_unedited_count, accepted_edited_count,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`,
		g.UserID, g.SourceTextHash, g.SourceTextLength, g.Model,
		g.GeneratedCount, g.AcceptedUneditedCount, g.AcceptedEditedCount,
		g.CreatedAt, g.UpdatedAt,
	).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		log.Error("failed to create generation",
			slog.String("error", err.Error()),
			slog.String("user_id", g.UserID.String()))
		return store.NewStoreError("generation", "create", "insert failed", MapError(err))
	}

	for i := range g.Candidates {
		c := &g.Candidates[i]
		c.GenerationID = g.ID
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO generation_candidates (generation_id, position, front, back, status)
			VALUES ($1, $2, $3, $4, $5)
		`, c.GenerationID, c.Position, c.Front, c.Back, string(c.Status)); err != nil {
			log.Error("failed to create generation candidate",
				slog.String("error", err.Error()),
				slog.Int64("generation_id", g.ID),
				slog.Int("position", c.Position))
			return store.NewStoreError("candidate", "create", "insert failed", MapError(err))
		}
	}

	log.Info("generation created",
		slog.Int64("generation_id", g.ID),
		slog.Int("generated_count", g.GeneratedCount))
	return nil
}

// GetByID implements store.GenerationStore.
func (s *PostgresGenerationStore) GetByID(ctx context.Context, id int64, userID uuid.UUID) (*domain.Generation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var g domain.Generation
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, source_text_hash, source_text_length, model,
			generated_count, accepted_unedited_count, accepted_edited_count,
			created_at, updated_at
		FROM generations
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(
		&g.ID, &g.UserID, &g.SourceTextHash, &g.SourceTextLength, &g.Model,
		&g.GeneratedCount, &g.AcceptedUneditedCount, &g.AcceptedEditedCount,
		&g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrGenerationNotFound
		}
		log.Error("failed to get generation",
			slog.String("error", err.Error()),
			slog.Int64("generation_id", id))
		return nil, store.NewStoreError("generation", "get", "query failed", MapError(err))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT generation_id, position, front, back, status, flashcard_id
		FROM generation_candidates
		WHERE generation_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, store.NewStoreError("candidate", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	g.Candidates = make([]domain.Candidate, 0, g.GeneratedCount)
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, store.NewStoreError("candidate", "list", "scan failed", err)
		}
		g.Candidates = append(g.Candidates, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("candidate", "list", "iteration failed", MapError(err))
	}
	return &g, nil
}

func scanCandidate(row rowScanner) (*domain.Candidate, error) {
	var (
		c           domain.Candidate
		status      string
		flashcardID sql.NullInt64
	)
	if err := row.Scan(&c.GenerationID, &c.Position, &c.Front, &c.Back, &status, &flashcardID); err != nil {
		return nil, err
	}
	c.Status = domain.CandidateStatus(status)
	if flashcardID.Valid {
		id := flashcardID.Int64
		c.FlashcardID = &id
	}
	return &c, nil
}

// GetCandidateForUpdate implements store.GenerationStore.
func (s *PostgresGenerationStore) GetCandidateForUpdate(
	ctx context.Context,
	generationID int64,
	position int,
) (*domain.Candidate, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	c, err := scanCandidate(s.db.QueryRowContext(ctx, `
		SELECT generation_id, position, front, back, status, flashcard_id
		FROM generation_candidates
		WHERE generation_id = $1 AND position = $2
		FOR UPDATE
	`, generationID, position))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCandidateNotFound
		}
		log.Error("failed to lock candidate",
			slog.String("error", err.Error()),
			slog.Int64("generation_id", generationID),
			slog.Int("position", position))
		return nil, store.NewStoreError("candidate", "get", "query failed", MapError(err))
	}
	return c, nil
}

// UpdateCandidate implements store.GenerationStore.
func (s *PostgresGenerationStore) UpdateCandidate(ctx context.Context, c *domain.Candidate) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !c.Status.Valid() {
		return store.NewStoreError("candidate", "update", "invalid status", store.ErrInvalidEntity)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE generation_candidates
		SET status = $1, flashcard_id = $2, updated_at = $3
		WHERE generation_id = $4 AND position = $5
	`, string(c.Status), c.FlashcardID, time.Now().UTC(), c.GenerationID, c.Position)
	if err != nil {
		log.Error("failed to update candidate",
			slog.String("error", err.Error()),
			slog.Int64("generation_id", c.GenerationID),
			slog.Int("position", c.Position))
		return store.NewStoreError("candidate", "update", "update failed", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrCandidateNotFound)
}

// AdjustCounters implements store.GenerationStore.
func (s *PostgresGenerationStore) AdjustCounters(
	ctx context.Context,
	generationID int64,
	uneditedDelta, editedDelta int,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE generations
		SET accepted_unedited_count = accepted_unedited_count + $1,
			accepted_edited_count = accepted_edited_count + $2,
			updated_at = $3
		WHERE id = $4
	`, uneditedDelta, editedDelta, time.Now().UTC(), generationID)
	if err != nil {
		log.Error("failed to adjust generation counters",
			slog.String("error", err.Error()),
			slog.Int64("generation_id", generationID),
			slog.Int("unedited_delta", uneditedDelta),
			slog.Int("edited_delta", editedDelta))
		return store.NewStoreError("generation", "update", "counter update failed", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrGenerationNotFound)
}
