// Package service implements the flashcard collection use cases on top of
// the store interfaces: manual creation, filtered and paginated listing,
// owner-scoped reads, updates and deletes, and dashboard statistics.
//
// Expected conditions are reported with sentinel errors (ErrFlashcardNotFound,
// domain.ErrValidation) that callers test with errors.Is. Store failures are
// wrapped in *FlashcardServiceError so the operation is visible in logs.
//
// The review of generated candidates lives in the review subpackage.
package service
