// Package apperr defines the error taxonomy surfaced by the HTTP layer.
// Lower layers return plain errors or repository sentinels; handlers wrap
// them into an Error carrying a Kind so a single boundary can pick the
// response status.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the response boundary.
type Kind int

const (
	// Internal is the fallback for unclassified failures.
	Internal Kind = iota
	// InvalidInput marks missing or malformed request fields.
	InvalidInput
	// Unauthenticated marks missing, forged, expired or superseded credentials.
	Unauthenticated
	// Forbidden marks an authenticated caller acting on a resource it does not own.
	Forbidden
	// NotFound marks a referenced entity that does not exist.
	NotFound
	// Conflict marks a uniqueness violation such as a duplicate username.
	Conflict
	// Upstream marks a blob-store or database write that unexpectedly failed.
	Upstream
)

// Error pairs a Kind with a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an Error with the provided kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf constructs an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from err, defaulting to Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// MessageOf returns the user-facing message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
