package biz

import (
	"errors"
	"fmt"

	kerrors "github.com/go-kratos/kratos/v2/errors"
)

// ErrBreakerOpen is returned when the circuit breaker rejects a call without
// attempting it. It is never retried: retrying while the breaker is open would
// defeat its purpose.
var ErrBreakerOpen = errors.New("generation service is temporarily unavailable, circuit breaker is open")

// TransientError marks a dependency fault as retriable (transport errors,
// timeouts, upstream rate limits). The retry policy backs off and re-attempts,
// and each occurrence is recorded as a breaker failure.
type TransientError struct {
	Err error
}

// Error implements the error interface.
func (e *TransientError) Error() string {
	return fmt.Sprintf("transient fault: %v", e.Err)
}

// Unwrap returns the underlying error for errors.Is and errors.As compatibility.
func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transientf creates a TransientError from a format string.
func Transientf(format string, args ...interface{}) error {
	return &TransientError{Err: fmt.Errorf(format, args...)}
}

// FatalError marks a fault as unrecoverable (misconfiguration, malformed
// request, programming error). It propagates immediately without consuming
// retry budget and without tripping the breaker.
type FatalError struct {
	Err error
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal fault: %v", e.Err)
}

// Unwrap returns the underlying error for errors.Is and errors.As compatibility.
func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatalf creates a FatalError from a format string.
func Fatalf(format string, args ...interface{}) error {
	return &FatalError{Err: fmt.Errorf(format, args...)}
}

// IsTransient reports whether err is classified as retriable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsFatal reports whether err is classified as unrecoverable.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// Transport-boundary error constructors. The service layer returns these so
// Kratos maps them to the right HTTP status codes.

// ErrorRateLimited creates a 429 error for inbound quota rejections.
func ErrorRateLimited(retryAfter int64) error {
	return kerrors.New(
		429,
		"RATE_LIMIT_EXCEEDED",
		fmt.Sprintf("too many requests, please try again in %d seconds", retryAfter),
	)
}

// ErrorJobNotFound creates a 404 error for unknown job identifiers.
func ErrorJobNotFound(jobID string) error {
	return kerrors.New(
		404,
		"JOB_NOT_FOUND",
		fmt.Sprintf("job not found: %s", jobID),
	)
}

// ErrorInvalidPrompt creates a 400 error for malformed generation requests.
func ErrorInvalidPrompt(reason string) error {
	return kerrors.New(
		400,
		"INVALID_PROMPT",
		reason,
	)
}
