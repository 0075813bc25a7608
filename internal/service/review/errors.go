package review

import "errors"

var (
	// ErrGenerationNotFound is returned for missing or foreign generations.
	ErrGenerationNotFound = errors.New("generation not found")

	// ErrCandidateNotFound is returned when the generation has no candidate
	// at the requested position.
	ErrCandidateNotFound = errors.New("candidate not found")
)
