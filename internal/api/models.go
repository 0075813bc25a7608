package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/fiszki-api/internal/domain"
)

// RegisterRequest is the body of POST /api/users/register.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest is the body of POST /api/users/login.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

func userToResponse(u *domain.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

// CreateFlashcardRequest is the body of POST /api/flashcards.
// Source may be omitted; when present it must be manual.
type CreateFlashcardRequest struct {
	Front  string `json:"front"  validate:"required"`
	Back   string `json:"back"   validate:"required"`
	Source string `json:"source" validate:"omitempty,oneof=manual"`
}

// UpdateFlashcardRequest is the body of PUT /api/flashcards/{id}. Omitted
// fields are left unchanged.
type UpdateFlashcardRequest struct {
	Front *string `json:"front"`
	Back  *string `json:"back"`
}

// GenerateRequest is the body of POST /api/generations.
type GenerateRequest struct {
	InputText string `json:"input_text"`
}

// ReviewRequest is the body of PATCH /api/generations/{generationId}/flashcards/{flashcardId}.
type ReviewRequest struct {
	Action string  `json:"action"`
	Front  *string `json:"front"`
	Back   *string `json:"back"`
}

// GenerationResponse describes a generation and the review state of its candidates.
type GenerationResponse struct {
	*domain.Generation
	ReviewState domain.ReviewState `json:"review_state"`
}

// GenerationErrorsResponse lists recent failed generation attempts.
type GenerationErrorsResponse struct {
	Errors []*domain.GenerationErrorLog `json:"errors"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}
