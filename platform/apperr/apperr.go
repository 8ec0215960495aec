// Package apperr provides standardized domain error types for the application.
// Domain services return these typed errors; the orchestrator boundary maps
// them to the single user-facing message each failure mode allows.
package apperr

import (
	"errors"
	"fmt"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindInput indicates unusable user input (no photo, gate rejection).
	// The attempt aborts with a user-facing message; no retry is scheduled.
	KindInput
	// KindCapability indicates an unavailable model, classifier, or renderer.
	// The attempt aborts; the rest of the service is unaffected.
	KindCapability
	// KindCollaborator indicates a failed lookup against an external service
	// during an attempt. Callers degrade to a fallback value instead of aborting.
	KindCollaborator
	// KindNotFound indicates a record was not found.
	KindNotFound
	// KindInternal indicates an unexpected internal error.
	KindInternal
)

// Error is a domain error with a typed Kind.
type Error struct {
	Kind    Kind
	Message string
	Op      string // Operation that failed (optional)
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp returns the error with the operation set.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// Convenience constructors for common error types.

// Input creates an input error (bad or missing user-provided data).
func Input(message string) *Error {
	return New(KindInput, message)
}

// Capability creates a capability error (model/service unavailable).
func Capability(message string) *Error {
	return New(KindCapability, message)
}

// Collaborator creates a collaborator error (single external lookup failed).
func Collaborator(message string) *Error {
	return New(KindCollaborator, message)
}

// NotFound creates a not found error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Internal creates an internal error.
func Internal(message string) *Error {
	return New(KindInternal, message)
}

// GetKind extracts the kind from err, unwrapping as needed.
// Returns KindUnknown when no *Error is in the chain.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
