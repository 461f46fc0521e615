// Package errors defines structured error types for the HNWI platform
// gateway. Errors carry a stable machine code and an HTTP status so handlers
// can translate failures uniformly.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes used across the service.
const (
	ErrCodeInternal            = "internal_error"
	ErrCodeInvalidRequest      = "invalid_request"
	ErrCodeUnauthorized        = "unauthorized"
	ErrCodeForbidden           = "forbidden"
	ErrCodeNotFound            = "not_found"
	ErrCodeConflict            = "conflict"
	ErrCodeRateLimitExceeded   = "rate_limit_exceeded"
	ErrCodeUpstreamUnavailable = "upstream_unavailable"
	ErrCodeSignatureInvalid    = "signature_invalid"
)

// AppError represents a structured application error.
type AppError struct {
	Code    string
	Status  int
	Message string
	Details map[string]string
	cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithError returns a copy of the error with the given cause attached.
// Predefined errors are never mutated.
func (e *AppError) WithError(cause error) *AppError {
	dup := *e
	dup.cause = cause
	return &dup
}

// WithDetail returns a copy of the error with an extra detail entry.
func (e *AppError) WithDetail(key, value string) *AppError {
	dup := *e
	dup.Details = make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		dup.Details[k] = v
	}
	dup.Details[key] = value
	return &dup
}

// WithMessage returns a copy of the error with a more specific message.
func (e *AppError) WithMessage(format string, args ...interface{}) *AppError {
	dup := *e
	dup.Message = fmt.Sprintf(format, args...)
	return &dup
}

// New creates a new AppError.
func New(code string, status int, message string) *AppError {
	return &AppError{Code: code, Status: status, Message: message}
}

// Wrap converts any error into an AppError, preserving an existing one.
func Wrap(err error, code string, message string) *AppError {
	var app *AppError
	if errors.As(err, &app) {
		return app
	}
	return &AppError{Code: code, Status: statusFor(code), Message: message, cause: err}
}

// Predefined errors. Always derive with WithError/WithMessage rather than
// mutating these.
var (
	ErrInternal            = New(ErrCodeInternal, http.StatusInternalServerError, "internal server error")
	ErrInvalidRequest      = New(ErrCodeInvalidRequest, http.StatusBadRequest, "invalid request")
	ErrUnauthorized        = New(ErrCodeUnauthorized, http.StatusUnauthorized, "authentication required")
	ErrForbidden           = New(ErrCodeForbidden, http.StatusForbidden, "access denied")
	ErrNotFound            = New(ErrCodeNotFound, http.StatusNotFound, "resource not found")
	ErrConflict            = New(ErrCodeConflict, http.StatusConflict, "resource conflict")
	ErrRateLimitExceeded   = New(ErrCodeRateLimitExceeded, http.StatusTooManyRequests, "rate limit exceeded")
	ErrUpstreamUnavailable = New(ErrCodeUpstreamUnavailable, http.StatusServiceUnavailable, "backend service unavailable")
	ErrSignatureInvalid    = New(ErrCodeSignatureInvalid, http.StatusUnauthorized, "signature verification failed")
)

// UpstreamStatus creates an AppError that mirrors an upstream response status.
// Client errors keep their status; everything at or above 500 collapses to
// upstream_unavailable so backend internals do not leak.
func UpstreamStatus(status int, body string) *AppError {
	if status >= http.StatusInternalServerError {
		return ErrUpstreamUnavailable.WithDetail("upstream_status", fmt.Sprintf("%d", status))
	}
	code := ErrCodeInvalidRequest
	switch status {
	case http.StatusUnauthorized:
		code = ErrCodeUnauthorized
	case http.StatusForbidden:
		code = ErrCodeForbidden
	case http.StatusNotFound:
		code = ErrCodeNotFound
	case http.StatusConflict:
		code = ErrCodeConflict
	case http.StatusTooManyRequests:
		code = ErrCodeRateLimitExceeded
	}
	return &AppError{
		Code:    code,
		Status:  status,
		Message: "upstream rejected request",
		Details: map[string]string{"upstream_body": truncate(body, 256)},
	}
}

func statusFor(code string) int {
	switch code {
	case ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case ErrCodeUnauthorized, ErrCodeSignatureInvalid:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeUpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// AsAppError attempts to cast an error to *AppError.
func AsAppError(err error) (*AppError, bool) {
	var app *AppError
	ok := errors.As(err, &app)
	return app, ok
}

// IsNotFound reports whether the error carries the not_found code.
func IsNotFound(err error) bool {
	app, ok := AsAppError(err)
	return ok && app.Code == ErrCodeNotFound
}

// IsConflict reports whether the error carries the conflict code.
func IsConflict(err error) bool {
	app, ok := AsAppError(err)
	return ok && app.Code == ErrCodeConflict
}

// IsUpstreamUnavailable reports whether the error indicates the backend is down.
func IsUpstreamUnavailable(err error) bool {
	app, ok := AsAppError(err)
	return ok && app.Code == ErrCodeUpstreamUnavailable
}

// ShouldLog reports whether an error is worth logging at error level.
// Client errors below 500 are noise except rate limiting.
func ShouldLog(err error) bool {
	app, ok := AsAppError(err)
	if !ok {
		return true
	}
	return app.Status >= http.StatusInternalServerError || app.Status == http.StatusTooManyRequests
}
