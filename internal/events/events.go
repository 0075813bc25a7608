package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types published by the services.
const (
	TypeGenerationCreated = "generation.created"
	TypeCandidateReviewed = "candidate.reviewed"
	TypeFlashcardCreated  = "flashcard.created"
	TypeFlashcardUpdated  = "flashcard.updated"
	TypeFlashcardDeleted  = "flashcard.deleted"
)

// Event is a notification about something that happened to a user's data.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	UserID    uuid.UUID       `json:"user_id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEvent creates an Event with payload serialized as JSON.
func NewEvent(eventType string, userID uuid.UUID, payload any) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		UserID:    userID,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// UnmarshalPayload decodes the event payload into v.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// GenerationCreatedPayload accompanies TypeGenerationCreated.
type GenerationCreatedPayload struct {
	GenerationID   int64  `json:"generation_id"`
	Model          string `json:"model"`
	GeneratedCount int    `json:"generated_count"`
}

// CandidateReviewedPayload accompanies TypeCandidateReviewed.
type CandidateReviewedPayload struct {
	GenerationID int64  `json:"generation_id"`
	Position     int    `json:"position"`
	Action       string `json:"action"`
	FlashcardID  *int64 `json:"flashcard_id,omitempty"`
}

// FlashcardPayload accompanies the flashcard event types.
type FlashcardPayload struct {
	FlashcardID int64  `json:"flashcard_id"`
	Source      string `json:"source,omitempty"`
}

// EventHandler consumes events.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *Event) error
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent implements EventHandler.
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// EventEmitter publishes events to interested handlers.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *Event) error
}

// NopEmitter discards every event.
type NopEmitter struct{}

// EmitEvent implements EventEmitter.
func (NopEmitter) EmitEvent(context.Context, *Event) error { return nil }
