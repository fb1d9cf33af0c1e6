// Package apperror defines the error taxonomy shared by services and transports.
package apperror

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError reports an unknown identifier.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s '%s' not found", e.Resource, e.ID)
}

// ConflictError reports a duplicate create or an illegal state transition.
// CurrentStatus is set when the conflict comes from the mission state machine.
type ConflictError struct {
	Message       string
	CurrentStatus string
}

func (e *ConflictError) Error() string { return e.Message }

// UnauthenticatedError reports missing or rejected credentials.
type UnauthenticatedError struct {
	Message string
}

func (e *UnauthenticatedError) Error() string { return e.Message }

// UpstreamError wraps a failure of the store or the notifier.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *UpstreamError) Unwrap() error { return e.Err }

// Validation returns a ValidationError with a formatted message.
func Validation(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a NotFoundError for resource id.
func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// Conflict returns a ConflictError with message msg.
func Conflict(msg string) error {
	return &ConflictError{Message: msg}
}

// Unauthenticated returns an UnauthenticatedError with message msg.
func Unauthenticated(msg string) error {
	return &UnauthenticatedError{Message: msg}
}

// Upstream wraps err as an UpstreamError for operation op. A nil err yields nil.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Op: op, Err: err}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

// IsUnauthenticated reports whether err is an UnauthenticatedError.
func IsUnauthenticated(err error) bool {
	var e *UnauthenticatedError
	return errors.As(err, &e)
}
