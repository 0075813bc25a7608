package domain

import (
	"time"

	"github.com/google/uuid"
)

// GenerationErrorLog is an append-only record of a failed generation attempt.
type GenerationErrorLog struct {
	ID               int64     `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	ErrorCode        string    `json:"error_code"`
	ErrorMessage     string    `json:"error_message"`
	SourceTextHash   string    `json:"source_text_hash"`
	SourceTextLength int       `json:"source_text_length"`
	Model            string    `json:"model"`
	CreatedAt        time.Time `json:"created_at"`
}
