package service

import (
	"errors"
	"fmt"
)

// ErrFlashcardNotFound is returned when a flashcard does not exist or is
// owned by another user. The two cases are indistinguishable to callers.
var ErrFlashcardNotFound = errors.New("flashcard not found")

// FlashcardServiceError wraps unexpected failures with the operation that hit them.
type FlashcardServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *FlashcardServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("flashcard service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("flashcard service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *FlashcardServiceError) Unwrap() error {
	return e.Err
}

// NewFlashcardServiceError creates a FlashcardServiceError.
func NewFlashcardServiceError(operation, message string, err error) *FlashcardServiceError {
	return &FlashcardServiceError{Operation: operation, Message: message, Err: err}
}
