package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the framework.
type ErrorCode string

const (
	// ErrConfiguration marks invalid thresholds, iteration bounds or an
	// embedding-dimension mismatch. Always fatal before any session work.
	ErrConfiguration ErrorCode = "CONFIGURATION"

	// ErrProvider marks transport, timeout or rate-limit failures from a
	// completion or embedding call. Retried, then degraded to an abstention.
	ErrProvider ErrorCode = "PROVIDER"

	// ErrMalformedVote marks a ranking that is not a permutation of the
	// arguments visible at vote time. Treated as an abstention.
	ErrMalformedVote ErrorCode = "MALFORMED_VOTE"

	// ErrQuorum marks fewer than two active participants remaining.
	// Fatal; the session terminates in a failed state.
	ErrQuorum ErrorCode = "QUORUM"

	// Provider sub-codes aligned with HTTP status and retryability.
	ErrRateLimited     ErrorCode = "RATE_LIMITED"
	ErrUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrUpstreamTimeout ErrorCode = "UPSTREAM_TIMEOUT"
	ErrUpstreamError   ErrorCode = "UPSTREAM_ERROR"
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorf creates a new Error with a formatted message.
func NewErrorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Retryable
}

// CodeOf returns the error code of err, or empty when err does not wrap an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Code
}
