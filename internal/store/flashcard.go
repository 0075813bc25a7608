package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/fiszki-api/internal/domain"
)

// SortField is a column flashcards may be ordered by.
type SortField string

const (
	SortByID        SortField = "id"
	SortByFront     SortField = "front"
	SortByBack      SortField = "back"
	SortByCreatedAt SortField = "created_at"
	SortByUpdatedAt SortField = "updated_at"
)

// Valid reports whether f is an allowed sort column.
func (f SortField) Valid() bool {
	switch f {
	case SortByID, SortByFront, SortByBack, SortByCreatedAt, SortByUpdatedAt:
		return true
	}
	return false
}

// FlashcardFilter narrows a listing. A nil Source matches every source.
type FlashcardFilter struct {
	Source *domain.Source
}

// FlashcardQuery is a validated page request. Results are always ordered
// descending on SortBy, with id as the tie breaker.
type FlashcardQuery struct {
	Page   int
	Limit  int
	SortBy SortField
	Filter FlashcardFilter
}

// Offset is the number of rows skipped for q.Page.
func (q FlashcardQuery) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

// FlashcardStore persists flashcards. Every read and write is scoped to the owner.
type FlashcardStore interface {
	// Create inserts f and sets its ID and timestamps.
	Create(ctx context.Context, f *domain.Flashcard) error

	// GetByID returns ErrFlashcardNotFound if the card is absent or owned by someone else.
	GetByID(ctx context.Context, id int64, userID uuid.UUID) (*domain.Flashcard, error)

	// List returns one page of the owner's cards.
	List(ctx context.Context, userID uuid.UUID, q FlashcardQuery) ([]*domain.Flashcard, error)

	// Count returns the number of the owner's cards matching filter.
	Count(ctx context.Context, userID uuid.UUID, filter FlashcardFilter) (int, error)

	// CountBySource returns the owner's card counts keyed by source.
	CountBySource(ctx context.Context, userID uuid.UUID) (map[domain.Source]int, error)

	// Update writes front and back. Returns ErrFlashcardNotFound if the card
	// is absent or owned by someone else.
	Update(ctx context.Context, f *domain.Flashcard) error

	// Delete hard-deletes a card. Returns ErrFlashcardNotFound if nothing was deleted.
	Delete(ctx context.Context, id int64, userID uuid.UUID) error

	// WithTx returns a FlashcardStore bound to tx.
	WithTx(tx *sql.Tx) FlashcardStore
}
