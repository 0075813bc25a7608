package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/fiszki-api/internal/api/shared"
	"github.com/phrazzld/fiszki-api/internal/domain"
	"github.com/phrazzld/fiszki-api/internal/platform/logger"
)

// getUserIDFromContext returns the user placed in the context by the auth middleware.
func getUserIDFromContext(r *http.Request) (uuid.UUID, bool) {
	return shared.UserIDFromContext(r.Context())
}

// requireUserID writes a 401 and returns false when the request is not authenticated.
func requireUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		logger.FromContext(r.Context()).Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return uuid.Nil, false
	}
	return userID, true
}

// getPathID parses a positive integer path parameter.
func getPathID(r *http.Request, paramName string) (int64, error) {
	raw := chi.URLParam(r, paramName)
	if raw == "" {
		return 0, domain.NewValidationError(paramName, "is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalidIDError(paramName)
	}
	return id, nil
}

// getPathPosition parses a zero-based candidate position.
func getPathPosition(r *http.Request, paramName string) (int, error) {
	raw := chi.URLParam(r, paramName)
	pos, err := strconv.Atoi(raw)
	if err != nil || pos < 0 {
		return 0, invalidIDError(paramName)
	}
	return pos, nil
}

func invalidIDError(paramName string) error {
	return &invalidID{field: paramName}
}

// invalidID matches both domain.ErrInvalidID and domain.ErrValidation so it
// renders as INVALID_ID with the field name in the message.
type invalidID struct {
	field string
}

func (e *invalidID) Error() string {
	return domain.ErrInvalidID.Error() + ": " + e.field + " has invalid format"
}

func (e *invalidID) Unwrap() []error {
	return []error{domain.ErrInvalidID, domain.NewValidationError(e.field, "has invalid format")}
}

// handleUserIDAndPathID extracts the user and an integer path ID, writing an
// error response and returning false if either is missing or malformed.
func handleUserIDAndPathID(
	w http.ResponseWriter,
	r *http.Request,
	paramName string,
) (uuid.UUID, int64, bool) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return uuid.Nil, 0, false
	}
	id, err := getPathID(r, paramName)
	if err != nil {
		logger.FromContext(r.Context()).Debug("invalid path parameter",
			slog.String("param_name", paramName),
			slog.String("value", chi.URLParam(r, paramName)))
		HandleAPIError(w, r, err, "")
		return uuid.Nil, 0, false
	}
	return userID, id, true
}

// queryPositiveInt parses an optional query parameter that must be at least 1
// when present. Absent yields 0.
func queryPositiveInt(q url.Values, name string) (int, error) {
	if !q.Has(name) {
		return 0, nil
	}
	n, err := strconv.Atoi(q.Get(name))
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer")
	}
	if n < 1 {
		return 0, domain.NewValidationError(name, "must be at least 1")
	}
	return n, nil
}
