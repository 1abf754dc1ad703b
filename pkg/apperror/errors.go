package apperror

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrBadRequest        = errors.New("bad request")
	ErrInternal          = errors.New("internal server error")
	ErrInvalidInput      = errors.New("invalid input")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// Outcomes reported to clients next to the error message.
const (
	OutcomeNotFound          = "not_found"
	OutcomeUnauthorized      = "unauthorized"
	OutcomeForbidden         = "forbidden"
	OutcomeInvalidInput      = "invalid_input"
	OutcomeRateLimitExceeded = "rate_limit_exceeded"
	OutcomeInternal          = "internal"
)

// AppError is a custom error type that can hold an HTTP status code and a
// machine readable outcome.
type AppError struct {
	Code    int
	Outcome string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches two AppErrors carrying the same outcome, so a wrapped copy of a
// sentinel still compares equal to it.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Outcome != "" && e.Outcome == t.Outcome
}

// New creates a new AppError
func New(code int, outcome, message string) *AppError {
	return &AppError{
		Code:    code,
		Outcome: outcome,
		Message: message,
	}
}

// Wrap returns a copy of e carrying err as its cause.
func (e *AppError) Wrap(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Outcome: e.Outcome,
		Message: e.Message,
		Err:     err,
	}
}

// MapErrorToStatus maps common errors to HTTP status codes
func MapErrorToStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrInvalidInput) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrRateLimitExceeded) {
		return http.StatusTooManyRequests
	}
	// Default to internal server error
	return http.StatusInternalServerError
}

// OutcomeOf returns the outcome string reported for err.
func OutcomeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Outcome != "" {
		return appErr.Outcome
	}
	switch MapErrorToStatus(err) {
	case http.StatusNotFound:
		return OutcomeNotFound
	case http.StatusUnauthorized:
		return OutcomeUnauthorized
	case http.StatusForbidden:
		return OutcomeForbidden
	case http.StatusBadRequest:
		return OutcomeInvalidInput
	case http.StatusTooManyRequests:
		return OutcomeRateLimitExceeded
	default:
		return OutcomeInternal
	}
}
