package generation

import (
	"errors"
	"fmt"
)

// Code identifies a generation failure in API responses and the error log.
type Code string

const (
	CodeMissingUserID          Code = "MISSING_USER_ID"
	CodeMissingInputText       Code = "MISSING_INPUT_TEXT"
	CodeInputTooShort          Code = "INPUT_TOO_SHORT"
	CodeInputTooLong           Code = "INPUT_TOO_LONG"
	CodeServiceUnavailable     Code = "SERVICE_UNAVAILABLE"
	CodeLLMError               Code = "LLM_ERROR"
	CodeLLMRateLimited         Code = "LLM_RATE_LIMITED"
	CodeLLMTimeout             Code = "LLM_TIMEOUT"
	CodeInvalidResponse        Code = "INVALID_RESPONSE"
	CodeEmptyFlashcards        Code = "EMPTY_FLASHCARDS"
	CodeInvalidFlashcardFormat Code = "INVALID_FLASHCARD_FORMAT"
	CodePersistenceError       Code = "PERSISTENCE_ERROR"
)

// IsValidation reports whether the code describes a user-correctable input problem.
func (c Code) IsValidation() bool {
	switch c {
	case CodeMissingUserID, CodeMissingInputText, CodeInputTooShort, CodeInputTooLong:
		return true
	}
	return false
}

// ErrGenerationFailed is matched by every *Error.
var ErrGenerationFailed = errors.New("flashcard generation failed")

// Error is a classified generation failure.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches ErrGenerationFailed and any *Error with the same Code.
func (e *Error) Is(target error) bool {
	if target == ErrGenerationFailed {
		return true
	}
	var other *Error
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

func newError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

// CodeOf returns the Code carried by err, or "" if err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
