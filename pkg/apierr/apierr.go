// Package apierr defines the typed error taxonomy shared by the resource
// client, the mutation coordinator, and the tracking generator.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies an API failure for caller-side handling.
type Kind string

const (
	// KindValidation is a non-conflict 4xx. Never retried; shown to the user.
	KindValidation Kind = "validation"
	// KindConflict is a 409 or duplicate-key rejection. Retried only by the
	// tracking generator.
	KindConflict Kind = "conflict"
	// KindNotFound is a 404 for a specific resource.
	KindNotFound Kind = "not_found"
	// KindUnreachable means no response arrived (network failure or timeout).
	// Safe to retry manually.
	KindUnreachable Kind = "unreachable"
	// KindInternal is any 5xx.
	KindInternal Kind = "internal"
)

// duplicateKeyMarker is the secondary duplicate-key signal: some proxies
// rewrite 409 responses, so the server contract also guarantees this marker
// in the problem detail of uniqueness violations.
const duplicateKeyMarker = "duplicate key"

// Error is a typed API failure carrying the HTTP status code and the
// server-supplied human-readable message.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	err        error
}

// New builds an Error of the given kind.
func New(kind Kind, statusCode int, message string) *Error {
	return &Error{Kind: kind, StatusCode: statusCode, Message: message}
}

// Unreachable wraps a transport-level failure that produced no response.
func Unreachable(err error) *Error {
	return &Error{
		Kind:    KindUnreachable,
		Message: "service unreachable",
		err:     err,
	}
}

// FromResponse classifies a non-2xx response by status code and message.
func FromResponse(statusCode int, message string) *Error {
	kind := KindInternal
	switch {
	case statusCode == http.StatusConflict:
		kind = KindConflict
	case statusCode == http.StatusNotFound:
		kind = KindNotFound
	case statusCode >= 400 && statusCode < 500:
		kind = KindValidation
		if strings.Contains(strings.ToLower(message), duplicateKeyMarker) {
			kind = KindConflict
		}
	}
	return &Error{Kind: kind, StatusCode: statusCode, Message: message}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("api error (%s): %s: %v", e.Kind, e.Message, e.err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("api error (%s, status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error (%s): %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying transport error, if any.
func (e *Error) Unwrap() error {
	return e.err
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Kind == kind
}

// IsConflict reports whether err is a uniqueness-conflict rejection.
func IsConflict(err error) bool {
	return IsKind(err, KindConflict)
}

// IsUnreachable reports whether err means the service gave no response.
func IsUnreachable(err error) bool {
	return IsKind(err, KindUnreachable)
}

// MessageFor returns the user-facing message for err. Typed errors surface
// the server-supplied message verbatim; anything else falls back to the
// plain error text.
func MessageFor(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
