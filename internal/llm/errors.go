package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Error kinds. Every error returned by a ChatClient wraps exactly one of them.
var (
	ErrAuthentication = errors.New("llm authentication failed")
	ErrForbidden      = errors.New("llm access forbidden")
	ErrRateLimited    = errors.New("llm rate limit exceeded")
	// ErrRequestTimeout is the provider reporting HTTP 408.
	ErrRequestTimeout = errors.New("llm provider request timeout")
	// ErrTimeout is the client deadline expiring before a reply arrived.
	ErrTimeout     = errors.New("llm request timed out")
	ErrServer      = errors.New("llm provider server error")
	ErrUnavailable = errors.New("llm provider unreachable")
	ErrProvider    = errors.New("llm provider error")
	ErrValidation  = errors.New("llm response validation failed")
	// ErrNotConfigured means no credential or client is available.
	ErrNotConfigured = errors.New("llm client not configured")
)

// Error is a classified provider failure.
type Error struct {
	Kind       error
	StatusCode int
	RetryAfter time.Duration
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewError creates an Error of kind.
func NewError(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// ErrorFromStatus classifies a non-2xx HTTP status.
func ErrorFromStatus(status int, retryAfter time.Duration, detail string) *Error {
	e := &Error{StatusCode: status, Message: detail}
	switch {
	case status == http.StatusUnauthorized:
		e.Kind = ErrAuthentication
	case status == http.StatusForbidden:
		e.Kind = ErrForbidden
	case status == http.StatusTooManyRequests:
		e.Kind = ErrRateLimited
		e.RetryAfter = retryAfter
	case status == http.StatusRequestTimeout:
		e.Kind = ErrRequestTimeout
	case status >= 500 && status <= 599:
		e.Kind = ErrServer
	default:
		e.Kind = ErrProvider
	}
	return e
}

// RetryAfterOf returns the retry hint carried by err, if any.
func RetryAfterOf(err error) (time.Duration, bool) {
	var e *Error
	if errors.As(err, &e) && e.RetryAfter > 0 {
		return e.RetryAfter, true
	}
	return 0, false
}

// ParseRetryAfter reads a Retry-After header given as seconds or an HTTP date.
// Unparseable or past values yield zero.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d.Round(time.Second)
		}
	}
	return 0
}
