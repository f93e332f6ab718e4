// Package errors defines the storefront's error vocabulary. Every failure
// that crosses the API boundary is normalized into an *AppError wrapping one
// of the sentinels below, so callers branch with errors.Is.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInternal     = errors.New("internal error")
	ErrConflict     = errors.New("conflict")
	ErrNetwork      = errors.New("network failure")
	ErrRateLimited  = errors.New("rate limited")
)

// statusOf is consulted for errors that carry no explicit status.
var statusOf = []struct {
	sentinel error
	status   int
}{
	{ErrNotFound, http.StatusNotFound},
	{ErrConflict, http.StatusConflict},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrUnauthorized, http.StatusUnauthorized},
	{ErrForbidden, http.StatusForbidden},
	{ErrRateLimited, http.StatusTooManyRequests},
}

// AppError is a failure normalized at the client boundary. Fields holds
// per-field validation messages; Raw keeps the backend body when there was one.
type AppError struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Status  int                 `json:"status,omitempty"`
	Fields  map[string][]string `json:"fields,omitempty"`
	Raw     json.RawMessage     `json:"-"`
	Err     error               `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// FieldMessage returns the first message for field, or "".
func (e *AppError) FieldMessage(field string) string {
	if msgs := e.Fields[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

func build(code string, status int, cause error, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: status, Err: cause}
}

func NotFound(resource, id string) *AppError {
	return build("NOT_FOUND", http.StatusNotFound, ErrNotFound,
		fmt.Sprintf("%s with id %s not found", resource, id))
}

func InvalidInput(message string) *AppError {
	return build("INVALID_INPUT", http.StatusBadRequest, ErrInvalidInput, message)
}

// Validation is a 400 carrying field-keyed messages.
func Validation(message string, fields map[string][]string) *AppError {
	e := build("VALIDATION_ERROR", http.StatusBadRequest, ErrInvalidInput, message)
	e.Fields = fields
	return e
}

func Unauthorized(message string) *AppError {
	return build("UNAUTHORIZED", http.StatusUnauthorized, ErrUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return build("FORBIDDEN", http.StatusForbidden, ErrForbidden, message)
}

func Conflict(message string) *AppError {
	return build("CONFLICT", http.StatusConflict, ErrConflict, message)
}

func RateLimited(message string) *AppError {
	return build("RATE_LIMITED", http.StatusTooManyRequests, ErrRateLimited, message)
}

// Network reports a request that never produced a response: a timeout, a
// refused connection or an open circuit breaker. It carries no status.
func Network(err error) *AppError {
	msg := "unable to reach the server, check your connection and try again"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "the request timed out, try again"
	}
	return build("NETWORK_ERROR", 0, fmt.Errorf("%w: %w", ErrNetwork, err), msg)
}

// Internal hides err behind a generic message.
func Internal(err error) *AppError {
	return build("INTERNAL_ERROR", http.StatusInternalServerError,
		fmt.Errorf("%w: %w", ErrInternal, err), "an internal error occurred")
}

// HTTPStatus picks the status an error maps to, defaulting to 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	for _, s := range statusOf {
		if errors.Is(err, s.sentinel) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

// Retryable reports whether retrying the same action may succeed: lost
// connectivity, throttling, or a 5xx from the backend.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrNetwork), errors.Is(err, ErrRateLimited):
		return true
	}
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Status >= http.StatusInternalServerError
}

// UserMessage renders err for display. Field errors are listed in key order.
func UserMessage(err error) string {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return "something went wrong, please try again"
	}
	if len(appErr.Fields) == 0 {
		return appErr.Message
	}

	keys := make([]string, 0, len(appErr.Fields))
	for k := range appErr.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(strings.Join(appErr.Fields[k], ", "))
	}
	return b.String()
}
