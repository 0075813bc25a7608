package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/fiszki-api/internal/api/shared"
	"github.com/phrazzld/fiszki-api/internal/domain"
	"github.com/phrazzld/fiszki-api/internal/generation"
	"github.com/phrazzld/fiszki-api/internal/llm"
	"github.com/phrazzld/fiszki-api/internal/service"
	"github.com/phrazzld/fiszki-api/internal/service/auth"
	"github.com/phrazzld/fiszki-api/internal/service/review"
	"github.com/phrazzld/fiszki-api/internal/store"
)

// Error codes returned in ErrorResponse.Code besides the generation codes.
const (
	CodeValidation               = "VALIDATION_ERROR"
	CodeInvalidJSON              = "INVALID_JSON"
	CodeInvalidID                = "INVALID_ID"
	CodeUnauthorized             = "UNAUTHORIZED"
	CodeInvalidCredentials       = "INVALID_CREDENTIALS"
	CodeEmailTaken               = "EMAIL_TAKEN"
	CodeUserNotFound             = "USER_NOT_FOUND"
	CodeFlashcardNotFound        = "FLASHCARD_NOT_FOUND"
	CodeGenerationNotFound       = "GENERATION_NOT_FOUND"
	CodeCandidateNotFound        = "CANDIDATE_NOT_FOUND"
	CodeCandidateAlreadyReviewed = "CANDIDATE_ALREADY_REVIEWED"
	CodeCandidateMismatch        = "CANDIDATE_MISMATCH"
	CodeInternal                 = "INTERNAL_ERROR"
)

const genericErrorMessage = "An unexpected error occurred"

// APIError is the HTTP rendering of an error.
type APIError struct {
	Status  int
	Code    string
	Message string
	// RetryAfter is sent as the Retry-After header in seconds when positive.
	RetryAfter int
}

// MapError classifies err into a status code, a stable code and a message
// that is safe to show to clients.
func MapError(err error) APIError {
	var genErr *generation.Error
	var verr *domain.ValidationError
	var fieldErrs validator.ValidationErrors
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var tooLarge *http.MaxBytesError

	switch {
	case err == nil:
		return APIError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: genericErrorMessage}

	case errors.As(err, &genErr):
		return mapGenerationError(genErr)

	case errors.Is(err, shared.ErrEmptyBody):
		return APIError{Status: http.StatusBadRequest, Code: CodeInvalidJSON, Message: "Request body is required"}
	case errors.Is(err, shared.ErrInvalidJSON),
		errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.As(err, &tooLarge):
		return APIError{Status: http.StatusBadRequest, Code: CodeInvalidJSON, Message: "Invalid request format"}
	case errors.As(err, &fieldErrs):
		return APIError{Status: http.StatusBadRequest, Code: CodeValidation, Message: SanitizeValidationError(err)}

	case errors.Is(err, domain.ErrCandidateMismatch):
		return APIError{Status: http.StatusBadRequest, Code: CodeCandidateMismatch,
			Message: "Accepted text must match the generated flashcard; submit changes as an edit"}
	case errors.Is(err, domain.ErrCandidateAlreadyReviewed):
		return APIError{Status: http.StatusConflict, Code: CodeCandidateAlreadyReviewed,
			Message: "This flashcard has already been reviewed"}
	case errors.Is(err, domain.ErrInvalidID):
		return APIError{Status: http.StatusBadRequest, Code: CodeInvalidID, Message: validationMessage(err)}
	case errors.As(err, &verr):
		return APIError{Status: http.StatusBadRequest, Code: CodeValidation, Message: validationMessage(err)}
	case errors.Is(err, domain.ErrValidation):
		return APIError{Status: http.StatusBadRequest, Code: CodeValidation, Message: "Validation error"}

	case errors.Is(err, auth.ErrInvalidCredentials):
		return APIError{Status: http.StatusUnauthorized, Code: CodeInvalidCredentials, Message: "Invalid email or password"}
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, domain.ErrUnauthorized):
		return APIError{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: "Authentication required"}
	case errors.Is(err, auth.ErrEmailTaken), errors.Is(err, store.ErrEmailExists):
		return APIError{Status: http.StatusConflict, Code: CodeEmailTaken, Message: "Email already exists"}

	case errors.Is(err, service.ErrFlashcardNotFound):
		return APIError{Status: http.StatusNotFound, Code: CodeFlashcardNotFound, Message: "Flashcard not found"}
	case errors.Is(err, generation.ErrGenerationNotFound), errors.Is(err, review.ErrGenerationNotFound):
		return APIError{Status: http.StatusNotFound, Code: CodeGenerationNotFound, Message: "Generation not found"}
	case errors.Is(err, review.ErrCandidateNotFound):
		return APIError{Status: http.StatusNotFound, Code: CodeCandidateNotFound, Message: "Flashcard candidate not found"}
	case errors.Is(err, store.ErrUserNotFound):
		return APIError{Status: http.StatusNotFound, Code: CodeUserNotFound, Message: "User not found"}

	default:
		return APIError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: genericErrorMessage}
	}
}

func mapGenerationError(e *generation.Error) APIError {
	out := APIError{Code: string(e.Code), Message: e.Message}
	switch e.Code {
	case generation.CodeMissingUserID:
		out.Status = http.StatusUnauthorized
	case generation.CodeMissingInputText, generation.CodeInputTooShort, generation.CodeInputTooLong:
		out.Status = http.StatusBadRequest
	case generation.CodeServiceUnavailable:
		out.Status = http.StatusServiceUnavailable
	case generation.CodeLLMRateLimited:
		out.Status = http.StatusServiceUnavailable
		var llmErr *llm.Error
		if errors.As(e, &llmErr) && llmErr.RetryAfter > 0 {
			out.RetryAfter = int(math.Ceil(llmErr.RetryAfter.Seconds()))
		}
	case generation.CodeLLMTimeout:
		out.Status = http.StatusGatewayTimeout
	default:
		out.Status = http.StatusInternalServerError
	}
	return out
}

// MapErrorToStatusCode returns the HTTP status for err.
func MapErrorToStatusCode(err error) int {
	return MapError(err).Status
}

// HandleAPIError writes the mapped error response for err and logs err.
// A non-empty message replaces the mapped one.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	mapped := MapError(err)
	if message != "" {
		mapped.Message = message
	}
	if mapped.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(mapped.RetryAfter))
	}
	shared.RespondWithErrorAndLog(w, r, mapped.Status, mapped.Code, mapped.Message, err)
}

// validationMessage strips the generic prefix from a domain validation error.
func validationMessage(err error) string {
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		return "Validation error"
	}
	if verr.Field == "" {
		return capitalize(verr.Message)
	}
	return capitalize(verr.Field + " " + verr.Message)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// SanitizeValidationError turns validator errors into a short message that
// names the first failing field without exposing Go type names.
func SanitizeValidationError(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "Validation error"
	}
	fe := fieldErrs[0]
	return fmt.Sprintf("Invalid %s: %s", strings.ToLower(fe.Field()), validationTagMessage(fe.Tag(), fe.Param()))
}

func validationTagMessage(tag, param string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min":
		return "must be at least " + param + " characters"
	case "max":
		return "must be at most " + param + " characters"
	case "oneof":
		return "must be one of " + param
	default:
		return "validation failed"
	}
}
