// Package errors provides the domain error taxonomy for the futures
// data pipeline. Every failure that can reach a command boundary is
// classified into one of a small set of kinds so the boundary can
// decide between an immediate rejection, a no-data message, or a
// partial-success continuation, and always render a JSON envelope
// instead of crashing.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error.
type Kind string

const (
	// KindConfiguration covers misconfiguration detected before any
	// fetch is attempted, e.g. a symbol with no positioning coverage.
	KindConfiguration Kind = "configuration"

	// KindNoData means the remote source returned nothing or the local
	// store has no rows in the requested window. Distinct from the
	// zero-new-rows case, which is a success.
	KindNoData Kind = "no_data"

	// KindTransientFetch marks a single-range fetch failure that the
	// caller may tolerate when other ranges succeed.
	KindTransientFetch Kind = "transient_fetch"

	// KindIO covers unreadable or malformed local store files.
	KindIO Kind = "io"

	// KindComputation covers failures inside the metrics engine.
	KindComputation Kind = "computation"
)

// Error is a classified domain error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches two classified errors by kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// New creates a classified error with a message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error with additional context.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from an error chain. Unclassified errors
// report KindComputation, the catch-all for the command boundary.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindComputation
}

// IsNoData reports whether the error chain contains a no-data error.
func IsNoData(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindNoData
}

// IsConfiguration reports whether the error chain contains a
// configuration error.
func IsConfiguration(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindConfiguration
}

// Message returns the user-facing message for an error chain: the
// classified message when present, otherwise the raw error text.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
