package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/fiszki-api/internal/api/shared"
	"github.com/phrazzld/fiszki-api/internal/domain"
	"github.com/phrazzld/fiszki-api/internal/platform/logger"
	"github.com/phrazzld/fiszki-api/internal/service"
	"github.com/phrazzld/fiszki-api/internal/store"
)

// FlashcardHandler serves the flashcard collection endpoints.
type FlashcardHandler struct {
	flashcards service.FlashcardService
	logger     *slog.Logger
}

// NewFlashcardHandler creates a FlashcardHandler.
func NewFlashcardHandler(flashcards service.FlashcardService, logger *slog.Logger) *FlashcardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FlashcardHandler{
		flashcards: flashcards,
		logger:     logger.With(slog.String("component", "flashcard_handler")),
	}
}

// List handles GET /api/flashcards?page&limit&sort_by&filter[source].
func (h *FlashcardHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	params, err := listParamsFromQuery(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	page, err := h.flashcards.List(r.Context(), userID, params)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, page)
}

func listParamsFromQuery(r *http.Request) (service.ListParams, error) {
	q := r.URL.Query()
	var params service.ListParams
	var err error

	if params.Page, err = queryPositiveInt(q, "page"); err != nil {
		return params, err
	}
	if params.Limit, err = queryPositiveInt(q, "limit"); err != nil {
		return params, err
	}
	if q.Has("sort_by") {
		params.SortBy = store.SortField(q.Get("sort_by"))
		if !params.SortBy.Valid() {
			return params, domain.NewValidationError("sort_by", "must be one of id, front, back, created_at, updated_at")
		}
	}
	if q.Has("filter[source]") {
		source, err := domain.ParseSource(q.Get("filter[source]"))
		if err != nil {
			return params, err
		}
		params.Source = &source
	}
	return params, nil
}

// Create handles POST /api/flashcards.
func (h *FlashcardHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req CreateFlashcardRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	card, err := h.flashcards.Create(r.Context(), userID, req.Front, req.Back)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("flashcard created",
		slog.Int64("flashcard_id", card.ID))
	shared.RespondWithJSON(w, r, http.StatusCreated, card)
}

// Get handles GET /api/flashcards/{id}.
func (h *FlashcardHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := handleUserIDAndPathID(w, r, "id")
	if !ok {
		return
	}

	card, err := h.flashcards.Get(r.Context(), userID, id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, card)
}

// Update handles PUT /api/flashcards/{id}.
func (h *FlashcardHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := handleUserIDAndPathID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateFlashcardRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	card, err := h.flashcards.Update(r.Context(), userID, id, req.Front, req.Back)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, card)
}

// Delete handles DELETE /api/flashcards/{id}.
func (h *FlashcardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := handleUserIDAndPathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.flashcards.Delete(r.Context(), userID, id); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/flashcards/stats.
func (h *FlashcardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	stats, err := h.flashcards.Stats(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}
