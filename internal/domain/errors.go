// Package domain defines the core types and errors for exporting helpdesk access logs.
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField is matched by every MissingFieldError.
	ErrMissingField = errors.New("missing field")
	// ErrRetriesExhausted is returned when a retry ceiling is configured and reached.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// MissingFieldError indicates a successful API response that lacks the
// expected top-level list field. It is never retried.
type MissingFieldError struct {
	Field  string
	URL    string
	Reason string // "absent" or "not an array"
}

func (e *MissingFieldError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "absent"
	}
	return fmt.Sprintf("response from %s: field %q %s", e.URL, e.Field, reason)
}

// Is reports whether target is ErrMissingField.
func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }

// APIError describes a non-200 response from the helpdesk API.
type APIError struct {
	HTTPStatus int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (HTTP %d): %s", e.HTTPStatus, e.Body)
}

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
