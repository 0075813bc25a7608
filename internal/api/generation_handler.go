package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/fiszki-api/internal/api/shared"
	"github.com/phrazzld/fiszki-api/internal/domain"
	"github.com/phrazzld/fiszki-api/internal/generation"
	"github.com/phrazzld/fiszki-api/internal/platform/logger"
	"github.com/phrazzld/fiszki-api/internal/service/review"
)

// Error-log listing bounds.
const (
	DefaultErrorLogLimit = 20
	MaxErrorLogLimit     = 100
)

// GenerationHandler serves generation and candidate review endpoints.
type GenerationHandler struct {
	generations generation.Service
	reviews     review.Service
	logger      *slog.Logger
}

// NewGenerationHandler creates a GenerationHandler.
func NewGenerationHandler(
	generations generation.Service,
	reviews review.Service,
	logger *slog.Logger,
) *GenerationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerationHandler{
		generations: generations,
		reviews:     reviews,
		logger:      logger.With(slog.String("component", "generation_handler")),
	}
}

// Generate handles POST /api/generations.
func (h *GenerationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req GenerateRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	result, err := h.generations.Generate(r.Context(), userID, req.InputText)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("generation created",
		slog.Int64("generation_id", result.GenerationID),
		slog.Int("generated_count", len(result.Flashcards)))
	shared.RespondWithJSON(w, r, http.StatusCreated, result)
}

// Get handles GET /api/generations/{generationId}.
func (h *GenerationHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := handleUserIDAndPathID(w, r, "generationId")
	if !ok {
		return
	}

	g, err := h.generations.Get(r.Context(), userID, id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, GenerationResponse{Generation: g, ReviewState: g.ReviewState()})
}

// ListErrors handles GET /api/generations/errors?limit.
func (h *GenerationHandler) ListErrors(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	limit, err := queryPositiveInt(r.URL.Query(), "limit")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	switch {
	case limit == 0:
		limit = DefaultErrorLogLimit
	case limit > MaxErrorLogLimit:
		HandleAPIError(w, r, domain.NewValidationError("limit", "must be at most 100"), "")
		return
	}

	entries, err := h.generations.ListErrors(r.Context(), userID, limit)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if entries == nil {
		entries = []*domain.GenerationErrorLog{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, GenerationErrorsResponse{Errors: entries})
}

// Review handles PATCH /api/generations/{generationId}/flashcards/{flashcardId}.
// flashcardId is the candidate's zero-based position in the generation.
func (h *GenerationHandler) Review(w http.ResponseWriter, r *http.Request) {
	userID, generationID, ok := handleUserIDAndPathID(w, r, "generationId")
	if !ok {
		return
	}
	position, err := getPathPosition(r, "flashcardId")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req ReviewRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	action, err := domain.NewReviewAction(req.Action, req.Front, req.Back)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	outcome, err := h.reviews.Apply(r.Context(), userID, generationID, position, action)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, outcome)
}
