package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Source is the provenance tag of a flashcard.
type Source string

const (
	// SourceManual marks a card written by the user.
	SourceManual Source = "manual"
	// SourceAIFull marks a generated card accepted without changes.
	SourceAIFull Source = "ai-full"
	// SourceAIEdited marks a generated card modified before acceptance.
	SourceAIEdited Source = "ai-edited"
)

// Field length limits, counted in characters.
const (
	ManualFrontMaxLength = 200
	ManualBackMaxLength  = 500
	AIFrontMaxLength     = 1000
	AIBackMaxLength      = 1000
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceAIFull, SourceAIEdited:
		return true
	}
	return false
}

// IsAI reports whether s marks a generated card.
func (s Source) IsAI() bool {
	return s == SourceAIFull || s == SourceAIEdited
}

// ParseSource converts a raw value into a Source.
func ParseSource(raw string) (Source, error) {
	s := Source(raw)
	if !s.Valid() {
		return "", NewValidationError("source", fmt.Sprintf("must be one of manual, ai-full, ai-edited; got %q", raw))
	}
	return s, nil
}

// Limits returns the maximum front and back lengths allowed for cards of source s.
func (s Source) Limits() (front, back int) {
	if s.IsAI() {
		return AIFrontMaxLength, AIBackMaxLength
	}
	return ManualFrontMaxLength, ManualBackMaxLength
}

// Flashcard is a persisted question/answer pair owned by one user.
type Flashcard struct {
	ID           int64     `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	Front        string    `json:"front"`
	Back         string    `json:"back"`
	Source       Source    `json:"source"`
	GenerationID *int64    `json:"generation_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewManualFlashcard builds a user-authored card. Source is always manual.
func NewManualFlashcard(userID uuid.UUID, front, back string) (*Flashcard, error) {
	now := time.Now().UTC()
	f := &Flashcard{
		UserID:    userID,
		Front:     front,
		Back:      back,
		Source:    SourceManual,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// NewGeneratedFlashcard builds a card produced by reviewing a generation candidate.
func NewGeneratedFlashcard(
	userID uuid.UUID,
	generationID int64,
	source Source,
	front, back string,
) (*Flashcard, error) {
	if !source.IsAI() {
		return nil, NewValidationError("source", "generated cards must be ai-full or ai-edited")
	}
	now := time.Now().UTC()
	f := &Flashcard{
		UserID:       userID,
		Front:        front,
		Back:         back,
		Source:       source,
		GenerationID: &generationID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks ownership, provenance and text limits.
func (f *Flashcard) Validate() error {
	if f.UserID == uuid.Nil {
		return NewValidationError("user_id", "cannot be empty")
	}
	if !f.Source.Valid() {
		return NewValidationError("source", fmt.Sprintf("unknown source %q", f.Source))
	}
	if f.Source == SourceManual && f.GenerationID != nil {
		return NewValidationError("generation_id", "must be empty for manual cards")
	}
	if f.Source.IsAI() && f.GenerationID == nil {
		return NewValidationError("generation_id", "is required for generated cards")
	}
	frontMax, backMax := f.Source.Limits()
	if err := ValidateText("front", f.Front, frontMax); err != nil {
		return err
	}
	return ValidateText("back", f.Back, backMax)
}

// ApplyUpdate changes front and/or back. Source and ownership never change.
func (f *Flashcard) ApplyUpdate(front, back *string) error {
	if front == nil && back == nil {
		return NewValidationError("", "at least one of front or back must be provided")
	}
	updated := *f
	if front != nil {
		updated.Front = *front
	}
	if back != nil {
		updated.Back = *back
	}
	if err := updated.Validate(); err != nil {
		return err
	}
	updated.UpdatedAt = time.Now().UTC()
	*f = updated
	return nil
}

// ValidateText checks that value is not blank and has at most max characters.
func ValidateText(field, value string, max int) error {
	if strings.TrimSpace(value) == "" {
		return NewValidationError(field, "cannot be empty")
	}
	if utf8.RuneCountInString(value) > max {
		return NewValidationError(field, fmt.Sprintf("must be %d characters or less", max))
	}
	return nil
}
