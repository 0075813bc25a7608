package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/fiszki-api/internal/domain"
	"github.com/phrazzld/fiszki-api/internal/platform/logger"
	"github.com/phrazzld/fiszki-api/internal/store"
)

const flashcardColumns = `id, user_id, front, back, source, generation_id, created_at, updated_at`

// PostgresFlashcardStore implements store.FlashcardStore.
type PostgresFlashcardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresFlashcardStore creates a flashcard store on db. A nil logger falls back to slog.Default().
func NewPostgresFlashcardStore(db store.DBTX, logger *slog.Logger) *PostgresFlashcardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresFlashcardStore{
		db:     db,
		logger: logger.With(slog.String("component", "flashcard_store")),
	}
}

var _ store.FlashcardStore = (*PostgresFlashcardStore)(nil)

// WithTx implements store.FlashcardStore.
func (s *PostgresFlashcardStore) WithTx(tx *sql.Tx) store.FlashcardStore {
	return &PostgresFlashcardStore{db: tx, logger: s.logger}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlashcard(row rowScanner) (*domain.Flashcard, error) {
	var (
		f            domain.Flashcard
		source       string
		generationID sql.NullInt64
	)
	if err := row.Scan(&f.ID, &f.UserID, &f.Front, &f.Back, &source,
		&generationID, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	f.Source = domain.Source(source)
	if generationID.Valid {
		id := generationID.Int64
		f.GenerationID = &id
	}
	return &f, nil
}

// Create implements store.FlashcardStore.
func (s *PostgresFlashcardStore) Create(ctx context.Context, f *domain.Flashcard) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := f.Validate(); err != nil {
		log.Warn("flashcard validation failed during create", slog.String("error", err.Error()))
		return err
	}

	query := `
		INSERT INTO flashcards (user_id, front, back, source, generation_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		f.UserID, f.Front, f.Back, string(f.Source), f.GenerationID, f.CreatedAt, f.UpdatedAt,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		log.Error("failed to create flashcard",
			slog.String("error", err.Error()),
			slog.String("user_id", f.UserID.String()),
			slog.String("source", string(f.Source)))
		return store.NewStoreError("flashcard", "create", "insert failed", MapError(err))
	}

	log.Debug("flashcard created",
		slog.Int64("flashcard_id", f.ID),
		slog.String("source", string(f.Source)))
	return nil
}

// GetByID implements store.FlashcardStore.
func (s *PostgresFlashcardStore) GetByID(ctx context.Context, id int64, userID uuid.UUID) (*domain.Flashcard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + flashcardColumns + ` FROM flashcards WHERE id = $1 AND user_id = $2`
	f, err := scanFlashcard(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrFlashcardNotFound
		}
		log.Error("failed to get flashcard",
			slog.String("error", err.Error()),
			slog.Int64("flashcard_id", id))
		return nil, store.NewStoreError("flashcard", "get", "query failed", MapError(err))
	}
	return f, nil
}

// filterClause builds the WHERE clause shared by List and Count.
func filterClause(userID uuid.UUID, filter store.FlashcardFilter) (string, []any) {
	conds := []string{"user_id = $1"}
	args := []any{userID}
	if filter.Source != nil {
		args = append(args, string(*filter.Source))
		conds = append(conds, fmt.Sprintf("source = $%d", len(args)))
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List implements store.FlashcardStore.
func (s *PostgresFlashcardStore) List(
	ctx context.Context,
	userID uuid.UUID,
	q store.FlashcardQuery,
) ([]*domain.Flashcard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// The sort column is interpolated, so it must come from the whitelist.
	if !q.SortBy.Valid() {
		return nil, fmt.Errorf("%w: unknown sort column %q", store.ErrInvalidEntity, q.SortBy)
	}
	if q.Limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", store.ErrInvalidEntity)
	}

	where, args := filterClause(userID, q.Filter)
	args = append(args, q.Limit, q.Offset())
	query := fmt.Sprintf(`SELECT %s FROM flashcards%s ORDER BY %s DESC, id DESC LIMIT $%d OFFSET $%d`,
		flashcardColumns, where, q.SortBy, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list flashcards",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, store.NewStoreError("flashcard", "list", "query failed", MapError(err))
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			log.Warn("failed to close rows", slog.String("error", cerr.Error()))
		}
	}()

	cards := make([]*domain.Flashcard, 0, q.Limit)
	for rows.Next() {
		f, err := scanFlashcard(rows)
		if err != nil {
			return nil, store.NewStoreError("flashcard", "list", "scan failed", err)
		}
		cards = append(cards, f)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("flashcard", "list", "iteration failed", MapError(err))
	}
	return cards, nil
}

// Count implements store.FlashcardStore.
func (s *PostgresFlashcardStore) Count(ctx context.Context, userID uuid.UUID, filter store.FlashcardFilter) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	where, args := filterClause(userID, filter)
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM flashcards`+where, args...).Scan(&total); err != nil {
		log.Error("failed to count flashcards",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return 0, store.NewStoreError("flashcard", "count", "query failed", MapError(err))
	}
	return total, nil
}

// CountBySource implements store.FlashcardStore.
func (s *PostgresFlashcardStore) CountBySource(ctx context.Context, userID uuid.UUID) (map[domain.Source]int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx,
		`SELECT source, COUNT(*) FROM flashcards WHERE user_id = $1 GROUP BY source`, userID)
	if err != nil {
		log.Error("failed to count flashcards by source", slog.String("error", err.Error()))
		return nil, store.NewStoreError("flashcard", "stats", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[domain.Source]int, 3)
	for rows.Next() {
		var (
			source string
			n      int
		)
		if err := rows.Scan(&source, &n); err != nil {
			return nil, store.NewStoreError("flashcard", "stats", "scan failed", err)
		}
		counts[domain.Source(source)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("flashcard", "stats", "iteration failed", MapError(err))
	}
	return counts, nil
}

// Update implements store.FlashcardStore.
func (s *PostgresFlashcardStore) Update(ctx context.Context, f *domain.Flashcard) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := f.Validate(); err != nil {
		return err
	}
	if f.UpdatedAt.IsZero() {
		f.UpdatedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE flashcards
		SET front = $1, back = $2, updated_at = $3
		WHERE id = $4 AND user_id = $5
	`, f.Front, f.Back, f.UpdatedAt, f.ID, f.UserID)
	if err != nil {
		log.Error("failed to update flashcard",
			slog.String("error", err.Error()),
			slog.Int64("flashcard_id", f.ID))
		return store.NewStoreError("flashcard", "update", "update failed", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrFlashcardNotFound)
}

// Delete implements store.FlashcardStore.
func (s *PostgresFlashcardStore) Delete(ctx context.Context, id int64, userID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM flashcards WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		log.Error("failed to delete flashcard",
			slog.String("error", err.Error()),
			slog.Int64("flashcard_id", id))
		return store.NewStoreError("flashcard", "delete", "delete failed", MapError(err))
	}
	if err := CheckRowsAffected(result, store.ErrFlashcardNotFound); err != nil {
		return err
	}
	log.Debug("flashcard deleted", slog.Int64("flashcard_id", id))
	return nil
}
