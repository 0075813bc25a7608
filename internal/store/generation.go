package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/fiszki-api/internal/domain"
)

// GenerationStore persists generations, their candidates and acceptance counters.
type GenerationStore interface {
	// Create inserts g and its candidates, setting g.ID and each candidate's
	// GenerationID. Callers wrap it in a transaction so both land together.
	Create(ctx context.Context, g *domain.Generation) error

	// GetByID returns the generation with its candidates ordered by position.
	// Returns ErrGenerationNotFound if absent or owned by someone else.
	GetByID(ctx context.Context, id int64, userID uuid.UUID) (*domain.Generation, error)

	// GetCandidateForUpdate reads a candidate and locks its row until the
	// enclosing transaction ends. Returns ErrCandidateNotFound if absent.
	GetCandidateForUpdate(ctx context.Context, generationID int64, position int) (*domain.Candidate, error)

	// UpdateCandidate writes the candidate's status and flashcard reference.
	UpdateCandidate(ctx context.Context, c *domain.Candidate) error

	// AdjustCounters adds the deltas to the acceptance counters in a single
	// statement so concurrent reviews never lose an increment.
	AdjustCounters(ctx context.Context, generationID int64, uneditedDelta, editedDelta int) error

	// WithTx returns a GenerationStore bound to tx.
	WithTx(tx *sql.Tx) GenerationStore
}

// GenerationErrorLogStore appends generation failure records.
type GenerationErrorLogStore interface {
	// Create inserts entry and sets its ID and CreatedAt.
	Create(ctx context.Context, entry *domain.GenerationErrorLog) error

	// ListByUser returns the user's most recent entries, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.GenerationErrorLog, error)
}
