package domain

import (
	"time"

	"github.com/google/uuid"
)

// Generation is one run of the AI pipeline and the aggregate of its review outcomes.
type Generation struct {
	ID                    int64       `json:"id"`
	UserID                uuid.UUID   `json:"user_id"`
	SourceTextHash        string      `json:"source_text_hash"`
	SourceTextLength      int         `json:"source_text_length"`
	Model                 string      `json:"model"`
	GeneratedCount        int         `json:"generated_count"`
	AcceptedUneditedCount int         `json:"accepted_unedited_count"`
	AcceptedEditedCount   int         `json:"accepted_edited_count"`
	Candidates            []Candidate `json:"candidates,omitempty"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

// ReviewState is derived from a generation's counters and is advisory only.
type ReviewState string

const (
	ReviewStatePending    ReviewState = "pending_review"
	ReviewStateInProgress ReviewState = "in_review"
	ReviewStateReviewed   ReviewState = "reviewed"
)

// NewGeneration builds a generation whose candidates are all pending.
// Counters start at zero and GeneratedCount equals the number of cards.
func NewGeneration(
	userID uuid.UUID,
	sourceTextHash string,
	sourceTextLength int,
	model string,
	cards []CardText,
) (*Generation, error) {
	if userID == uuid.Nil {
		return nil, NewValidationError("user_id", "cannot be empty")
	}
	if sourceTextHash == "" {
		return nil, NewValidationError("source_text_hash", "cannot be empty")
	}
	if len(cards) == 0 {
		return nil, NewValidationError("candidates", "at least one candidate is required")
	}

	now := time.Now().UTC()
	g := &Generation{
		UserID:           userID,
		SourceTextHash:   sourceTextHash,
		SourceTextLength: sourceTextLength,
		Model:            model,
		GeneratedCount:   len(cards),
		Candidates:       make([]Candidate, 0, len(cards)),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	for i, c := range cards {
		candidate, err := NewCandidate(i, c)
		if err != nil {
			return nil, err
		}
		g.Candidates = append(g.Candidates, *candidate)
	}
	return g, nil
}

// ReviewedCount is the number of candidates saved as flashcards.
func (g *Generation) ReviewedCount() int {
	return g.AcceptedUneditedCount + g.AcceptedEditedCount
}

// ReviewState infers where the generation stands in review.
// Rejections are not counted, so a generation with rejected cards may stay in_review.
func (g *Generation) ReviewState() ReviewState {
	switch reviewed := g.ReviewedCount(); {
	case reviewed == 0:
		return ReviewStatePending
	case reviewed >= g.GeneratedCount:
		return ReviewStateReviewed
	default:
		return ReviewStateInProgress
	}
}
