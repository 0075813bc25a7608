// Package api handles incoming HTTP requests, request validation and
// response formatting. It adapts the flashcard, generation, review and
// user services to JSON over HTTP and maps their errors to status codes
// and stable error codes in one place.
package api
