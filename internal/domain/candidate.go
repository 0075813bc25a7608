package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Candidate review errors.
var (
	// ErrCandidateAlreadyReviewed is returned when an action is not allowed
	// from the candidate's current status.
	ErrCandidateAlreadyReviewed = errors.New("candidate already reviewed")

	// ErrCandidateMismatch is returned when an accept payload differs from the
	// generated text. Changed text must be submitted as an edit.
	ErrCandidateMismatch = errors.New("candidate text does not match generated card")
)

// CandidateStatus is the review status of one generated card.
type CandidateStatus string

const (
	CandidatePending  CandidateStatus = "pending"
	CandidateAccepted CandidateStatus = "accepted"
	CandidateRejected CandidateStatus = "rejected"
	CandidateEdited   CandidateStatus = "edited"
)

// Valid reports whether s is a known status.
func (s CandidateStatus) Valid() bool {
	switch s {
	case CandidatePending, CandidateAccepted, CandidateRejected, CandidateEdited:
		return true
	}
	return false
}

// CardText is a front/back pair as produced by the model.
type CardText struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// Candidate is a generated card identified by its position within a generation.
type Candidate struct {
	GenerationID int64           `json:"generation_id"`
	Position     int             `json:"position"`
	Front        string          `json:"front"`
	Back         string          `json:"back"`
	Status       CandidateStatus `json:"status"`
	FlashcardID  *int64          `json:"flashcard_id"`
}

// NewCandidate validates generated text and returns a pending candidate.
func NewCandidate(position int, text CardText) (*Candidate, error) {
	if position < 0 {
		return nil, NewValidationError("position", "cannot be negative")
	}
	front := strings.TrimSpace(text.Front)
	back := strings.TrimSpace(text.Back)
	if err := ValidateText("front", front, AIFrontMaxLength); err != nil {
		return nil, err
	}
	if err := ValidateText("back", back, AIBackMaxLength); err != nil {
		return nil, err
	}
	return &Candidate{
		Position: position,
		Front:    front,
		Back:     back,
		Status:   CandidatePending,
	}, nil
}

// Matches reports whether front and back equal the generated text.
func (c *Candidate) Matches(front, back string) bool {
	return c.Front == front && c.Back == back
}

// Accept marks a pending candidate as saved verbatim.
func (c *Candidate) Accept(flashcardID int64) error {
	if c.Status != CandidatePending {
		return c.transitionError(CandidateAccepted)
	}
	c.Status = CandidateAccepted
	c.FlashcardID = &flashcardID
	return nil
}

// Reject marks a pending candidate as discarded.
func (c *Candidate) Reject() error {
	if c.Status != CandidatePending {
		return c.transitionError(CandidateRejected)
	}
	c.Status = CandidateRejected
	c.FlashcardID = nil
	return nil
}

// Edit marks a candidate as saved with changes and points it at the new
// card. A previously accepted candidate may be edited; its earlier card is
// left alone. The status before the transition is returned.
func (c *Candidate) Edit(flashcardID int64) (CandidateStatus, error) {
	previous := c.Status
	if previous != CandidatePending && previous != CandidateAccepted {
		return previous, c.transitionError(CandidateEdited)
	}
	c.Status = CandidateEdited
	c.FlashcardID = &flashcardID
	return previous, nil
}

// Allows returns ErrCandidateAlreadyReviewed if kind cannot be applied from
// the current status.
func (c *Candidate) Allows(kind ReviewActionKind) error {
	switch kind {
	case ActionAccept:
		if c.Status != CandidatePending {
			return c.transitionError(CandidateAccepted)
		}
	case ActionReject:
		if c.Status != CandidatePending {
			return c.transitionError(CandidateRejected)
		}
	case ActionEdit:
		if c.Status != CandidatePending && c.Status != CandidateAccepted {
			return c.transitionError(CandidateEdited)
		}
	default:
		return NewValidationError("action", fmt.Sprintf("unknown action %q", kind))
	}
	return nil
}

func (c *Candidate) transitionError(to CandidateStatus) error {
	return fmt.Errorf("%w: position %d is %s, cannot become %s",
		ErrCandidateAlreadyReviewed, c.Position, c.Status, to)
}
