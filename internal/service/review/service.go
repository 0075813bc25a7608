package review

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

// Outcome is the result of a review action.
type Outcome struct {
	Status    domain.CandidateStatus `json:"status"`
	Message   string                 `json:"message"`
	Flashcard *domain.Flashcard      `json:"flashcard,omitempty"`
}

// Service reviews generated candidates.
type Service interface {
	// Apply performs action on the candidate at position in the user's generation.
	//
	// Returns ErrGenerationNotFound or ErrCandidateNotFound when the target does
	// not exist for userID, domain.ErrCandidateAlreadyReviewed when the action is
	// not allowed from the candidate's status, and domain.ErrCandidateMismatch
	// when an accept payload differs from the generated text.
	Apply(
		ctx context.Context,
		userID uuid.UUID,
		generationID int64,
		position int,
		action domain.ReviewAction,
	) (*Outcome, error)
}

type service struct {
	tx          store.Transactor
	generations store.GenerationStore
	flashcards  store.FlashcardStore
	emitter     events.EventEmitter
	logger      *slog.Logger
}

// NewService creates a review Service. It returns an error if a required
// dependency is nil.
func NewService(
	tx store.Transactor,
	generations store.GenerationStore,
	flashcards store.FlashcardStore,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (Service, error) {
	switch {
	case tx == nil:
		return nil, domain.NewValidationError("tx", "cannot be nil")
	case generations == nil:
		return nil, domain.NewValidationError("generations", "cannot be nil")
	case flashcards == nil:
		return nil, domain.NewValidationError("flashcards", "cannot be nil")
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		tx:          tx,
		generations: generations,
		flashcards:  flashcards,
		emitter:     emitter,
		logger:      logger.With(slog.String("component", "review_service")),
	}, nil
}

// Apply implements Service.
func (s *service) Apply(
	ctx context.Context,
	userID uuid.UUID,
	generationID int64,
	position int,
	action domain.ReviewAction,
) (*Outcome, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("user_id", userID.String()),
		slog.Int64("generation_id", generationID),
		slog.Int("position", position))

	if action == nil {
		return nil, domain.NewValidationError("action", "is required")
	}
	if position < 0 {
		return nil, ErrCandidateNotFound
	}

	var outcome *Outcome
	err := s.tx.Run(ctx, func(ctx context.Context, tx *sql.Tx) error {
		generations := s.generations.WithTx(tx)
		flashcards := s.flashcards.WithTx(tx)

		if _, err := generations.GetByID(ctx, generationID, userID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrGenerationNotFound
			}
			return fmt.Errorf("failed to load generation: %w", err)
		}

		candidate, err := generations.GetCandidateForUpdate(ctx, generationID, position)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrCandidateNotFound
			}
			return fmt.Errorf("failed to lock candidate: %w", err)
		}
		if err := candidate.Allows(action.Kind()); err != nil {
			return err
		}

		r := &reviewTx{
			userID:       userID,
			generationID: generationID,
			candidate:    candidate,
			generations:  generations,
			flashcards:   flashcards,
		}
		switch a := action.(type) {
		case domain.AcceptAction:
			outcome, err = r.accept(ctx, a)
		case domain.EditAction:
			outcome, err = r.edit(ctx, a)
		case domain.RejectAction:
			outcome, err = r.reject(ctx)
		default:
			err = domain.NewValidationError("action", fmt.Sprintf("unsupported action %q", action.Kind()))
		}
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrGenerationNotFound),
			errors.Is(err, ErrCandidateNotFound),
			errors.Is(err, domain.ErrCandidateAlreadyReviewed),
			errors.Is(err, domain.ErrCandidateMismatch),
			errors.Is(err, domain.ErrValidation):
			log.Debug("review action refused",
				slog.String("action", string(action.Kind())),
				slog.String("reason", err.Error()))
			return nil, err
		}
		log.Error("review action failed",
			slog.String("action", string(action.Kind())),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to apply %s: %w", action.Kind(), err)
	}

	log.Info("candidate reviewed",
		slog.String("action", string(action.Kind())),
		slog.String("status", string(outcome.Status)))

	payload := events.CandidateReviewedPayload{
		GenerationID: generationID,
		Position:     position,
		Action:       string(action.Kind()),
	}
	if outcome.Flashcard != nil {
		id := outcome.Flashcard.ID
		payload.FlashcardID = &id
	}
	events.Emit(ctx, s.emitter, events.TypeCandidateReviewed, userID, payload)
	return outcome, nil
}

// reviewTx holds the transaction-bound state of one Apply call.
type reviewTx struct {
	userID       uuid.UUID
	generationID int64
	candidate    *domain.Candidate
	generations  store.GenerationStore
	flashcards   store.FlashcardStore
}

func (r *reviewTx) accept(ctx context.Context, a domain.AcceptAction) (*Outcome, error) {
	if !r.candidate.Matches(a.Front, a.Back) {
		return nil, fmt.Errorf("%w: position %d", domain.ErrCandidateMismatch, r.candidate.Position)
	}

	card, err := r.saveCard(ctx, domain.SourceAIFull, a.Front, a.Back)
	if err != nil {
		return nil, err
	}
	if err := r.candidate.Accept(card.ID); err != nil {
		return nil, err
	}
	if err := r.finish(ctx, 1, 0); err != nil {
		return nil, err
	}
	return &Outcome{Status: domain.CandidateAccepted, Message: "Flashcard accepted", Flashcard: card}, nil
}

// edit saves the edited text as a new card. Editing an accepted candidate
// moves it from the unedited to the edited counter; the card saved by the
// earlier accept stays in the user's collection.
func (r *reviewTx) edit(ctx context.Context, a domain.EditAction) (*Outcome, error) {
	card, err := r.saveCard(ctx, domain.SourceAIEdited, a.Front, a.Back)
	if err != nil {
		return nil, err
	}
	previous, err := r.candidate.Edit(card.ID)
	if err != nil {
		return nil, err
	}

	uneditedDelta := 0
	if previous == domain.CandidateAccepted {
		uneditedDelta = -1
	}
	if err := r.finish(ctx, uneditedDelta, 1); err != nil {
		return nil, err
	}
	return &Outcome{Status: domain.CandidateEdited, Message: "Flashcard edited and saved", Flashcard: card}, nil
}

func (r *reviewTx) reject(ctx context.Context) (*Outcome, error) {
	if err := r.candidate.Reject(); err != nil {
		return nil, err
	}
	if err := r.generations.UpdateCandidate(ctx, r.candidate); err != nil {
		return nil, fmt.Errorf("failed to update candidate: %w", err)
	}
	return &Outcome{Status: domain.CandidateRejected, Message: "Flashcard rejected"}, nil
}

func (r *reviewTx) saveCard(ctx context.Context, source domain.Source, front, back string) (*domain.Flashcard, error) {
	card, err := domain.NewGeneratedFlashcard(r.userID, r.generationID, source, front, back)
	if err != nil {
		return nil, err
	}
	if err := r.flashcards.Create(ctx, card); err != nil {
		return nil, fmt.Errorf("failed to save flashcard: %w", err)
	}
	return card, nil
}

// finish persists the candidate transition and applies the counter deltas.
func (r *reviewTx) finish(ctx context.Context, uneditedDelta, editedDelta int) error {
	if err := r.generations.UpdateCandidate(ctx, r.candidate); err != nil {
		return fmt.Errorf("failed to update candidate: %w", err)
	}
	if err := r.generations.AdjustCounters(ctx, r.generationID, uneditedDelta, editedDelta); err != nil {
		return fmt.Errorf("failed to adjust counters: %w", err)
	}
	return nil
}

var _ Service = (*service)(nil)
