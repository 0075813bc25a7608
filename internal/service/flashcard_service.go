package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/fiszki-api/internal/domain"
	"github.com/phrazzld/fiszki-api/internal/events"
	"github.com/phrazzld/fiszki-api/internal/platform/logger"
	"github.com/phrazzld/fiszki-api/internal/store"
)

// List defaults and bounds.
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
	DefaultSort  = store.SortByCreatedAt

	// MaxPage keeps (page-1)*limit well inside a Postgres integer OFFSET.
	MaxPage = 1_000_000
)

// ListParams selects a page of flashcards. Zero values take the defaults.
type ListParams struct {
	Page   int
	Limit  int
	SortBy store.SortField
	Source *domain.Source
}

// Pagination describes the returned page.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// FlashcardPage is one page of a listing.
type FlashcardPage struct {
	Flashcards []*domain.Flashcard `json:"flashcards"`
	Pagination Pagination          `json:"pagination"`
}

// FlashcardService manages a user's flashcard collection.
type FlashcardService interface {
	// Create stores a manual flashcard.
	Create(ctx context.Context, userID uuid.UUID, front, back string) (*domain.Flashcard, error)

	// List returns one page of the user's flashcards, newest first on the sort key.
	List(ctx context.Context, userID uuid.UUID, params ListParams) (*FlashcardPage, error)

	// Get returns ErrFlashcardNotFound for missing or foreign cards.
	Get(ctx context.Context, userID uuid.UUID, id int64) (*domain.Flashcard, error)

	// Update changes front and/or back; nil leaves a side unchanged.
	Update(ctx context.Context, userID uuid.UUID, id int64, front, back *string) (*domain.Flashcard, error)

	// Delete hard-deletes the card.
	Delete(ctx context.Context, userID uuid.UUID, id int64) error

	// Stats summarizes the user's collection.
	Stats(ctx context.Context, userID uuid.UUID) (domain.FlashcardStats, error)
}

type flashcardService struct {
	tx         store.Transactor
	flashcards store.FlashcardStore
	emitter    events.EventEmitter
	logger     *slog.Logger
}

// NewFlashcardService creates a FlashcardService. It returns an error if a
// required dependency is nil.
func NewFlashcardService(
	tx store.Transactor,
	flashcards store.FlashcardStore,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (FlashcardService, error) {
	if tx == nil {
		return nil, domain.NewValidationError("tx", "cannot be nil")
	}
	if flashcards == nil {
		return nil, domain.NewValidationError("flashcards", "cannot be nil")
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &flashcardService{
		tx:         tx,
		flashcards: flashcards,
		emitter:    emitter,
		logger:     logger.With(slog.String("component", "flashcard_service")),
	}, nil
}

// Create implements FlashcardService.
func (s *flashcardService) Create(ctx context.Context, userID uuid.UUID, front, back string) (*domain.Flashcard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	card, err := domain.NewManualFlashcard(userID, front, back)
	if err != nil {
		return nil, err
	}

	if err := s.flashcards.Create(ctx, card); err != nil {
		log.Error("failed to create flashcard",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, NewFlashcardServiceError("create", "failed to save flashcard", err)
	}

	log.Debug("flashcard created", slog.Int64("flashcard_id", card.ID))
	events.Emit(ctx, s.emitter, events.TypeFlashcardCreated, userID,
		events.FlashcardPayload{FlashcardID: card.ID, Source: string(card.Source)})
	return card, nil
}

// normalize applies defaults and checks bounds.
func (p ListParams) normalize() (store.FlashcardQuery, error) {
	q := store.FlashcardQuery{Page: p.Page, Limit: p.Limit, SortBy: p.SortBy}
	if q.Page == 0 {
		q.Page = DefaultPage
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.SortBy == "" {
		q.SortBy = DefaultSort
	}
	switch {
	case q.Page < 1 || q.Page > MaxPage:
		return q, domain.NewValidationError("page", fmt.Sprintf("must be between 1 and %d", MaxPage))
	case q.Limit < 1 || q.Limit > MaxLimit:
		return q, domain.NewValidationError("limit", fmt.Sprintf("must be between 1 and %d", MaxLimit))
	case !q.SortBy.Valid():
		return q, domain.NewValidationError("sort_by", fmt.Sprintf("unknown sort field %q", q.SortBy))
	}
	if p.Source != nil {
		if !p.Source.Valid() {
			return q, domain.NewValidationError("filter[source]", fmt.Sprintf("unknown source %q", *p.Source))
		}
		source := *p.Source
		q.Filter.Source = &source
	}
	return q, nil
}

// List implements FlashcardService.
func (s *flashcardService) List(ctx context.Context, userID uuid.UUID, params ListParams) (*FlashcardPage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	q, err := params.normalize()
	if err != nil {
		return nil, err
	}

	cards, err := s.flashcards.List(ctx, userID, q)
	if err != nil {
		log.Error("failed to list flashcards",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, NewFlashcardServiceError("list", "failed to list flashcards", err)
	}

	total, err := s.flashcards.Count(ctx, userID, q.Filter)
	if err != nil {
		log.Error("failed to count flashcards",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, NewFlashcardServiceError("list", "failed to count flashcards", err)
	}

	if cards == nil {
		cards = []*domain.Flashcard{}
	}
	return &FlashcardPage{
		Flashcards: cards,
		Pagination: Pagination{Page: q.Page, Limit: q.Limit, Total: total},
	}, nil
}

// Get implements FlashcardService.
func (s *flashcardService) Get(ctx context.Context, userID uuid.UUID, id int64) (*domain.Flashcard, error) {
	card, err := s.flashcards.GetByID(ctx, id, userID)
	if err != nil {
		return nil, s.mapStoreError(ctx, "get", id, err)
	}
	return card, nil
}

// Update implements FlashcardService.
func (s *flashcardService) Update(
	ctx context.Context,
	userID uuid.UUID,
	id int64,
	front, back *string,
) (*domain.Flashcard, error) {
	if front == nil && back == nil {
		return nil, domain.NewValidationError("", "at least one of front or back must be provided")
	}

	var card *domain.Flashcard
	err := s.tx.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.flashcards.WithTx(tx)

		current, err := txStore.GetByID(ctx, id, userID)
		if err != nil {
			return err
		}
		if err := current.ApplyUpdate(front, back); err != nil {
			return err
		}
		if err := txStore.Update(ctx, current); err != nil {
			return err
		}
		card = current
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return nil, err
		}
		return nil, s.mapStoreError(ctx, "update", id, err)
	}

	events.Emit(ctx, s.emitter, events.TypeFlashcardUpdated, userID,
		events.FlashcardPayload{FlashcardID: card.ID, Source: string(card.Source)})
	return card, nil
}

// Delete implements FlashcardService.
func (s *flashcardService) Delete(ctx context.Context, userID uuid.UUID, id int64) error {
	if err := s.flashcards.Delete(ctx, id, userID); err != nil {
		return s.mapStoreError(ctx, "delete", id, err)
	}
	events.Emit(ctx, s.emitter, events.TypeFlashcardDeleted, userID,
		events.FlashcardPayload{FlashcardID: id})
	return nil
}

// Stats implements FlashcardService.
func (s *flashcardService) Stats(ctx context.Context, userID uuid.UUID) (domain.FlashcardStats, error) {
	counts, err := s.flashcards.CountBySource(ctx, userID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to count flashcards by source",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return domain.FlashcardStats{}, NewFlashcardServiceError("stats", "failed to count flashcards", err)
	}
	return domain.NewFlashcardStats(counts), nil
}

func (s *flashcardService) mapStoreError(ctx context.Context, op string, id int64, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrFlashcardNotFound
	}
	logger.FromContextOrDefault(ctx, s.logger).Error("flashcard store failure",
		slog.String("operation", op),
		slog.Int64("flashcard_id", id),
		slog.String("error", err.Error()))
	return NewFlashcardServiceError(op, "store failure", err)
}

var _ FlashcardService = (*flashcardService)(nil)
