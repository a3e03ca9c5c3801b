package models

import (
	"errors"
	"fmt"
)

// ErrConcurrencyConflict is wrapped by repositories when a write targets a
// version other than the one currently stored.
var ErrConcurrencyConflict = errors.New("breeding record was modified by another process")

// Kind classifies domain errors for callers that map them to responses.
type Kind string

const (
	KindValidation Kind = "VALIDATION"
	KindConflict   Kind = "CONFLICT"
	KindNotFound   Kind = "NOT_FOUND"
	KindInfra      Kind = "INFRA"
	KindUnknown    Kind = "UNKNOWN"
)

const genericRetryMessage = "Something went wrong on our side, please try again later."

// ValidationError reports input the caller must correct.
type ValidationError struct {
	Message string
	Field   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConflictError reports a write that clashes with existing state.
type ConflictError struct {
	Message string
	Cause   error
}

func (e *ConflictError) Error() string { return e.Message }
func (e *ConflictError) Unwrap() error { return e.Cause }

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// InfraError wraps a storage or transport failure. It is the only kind a
// caller may retry.
type InfraError struct {
	Message string
	Cause   error
}

func (e *InfraError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *InfraError) Unwrap() error { return e.Cause }

// NewValidationError builds a ValidationError.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...), Field: field}
}

// NewNotFoundError builds a NotFoundError for a numeric identifier.
func NewNotFoundError(entity string, id int64) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: fmt.Sprintf("%d", id)}
}

// WrapInfra wraps err in an InfraError unless it already carries a domain
// classification.
func WrapInfra(message string, err error) error {
	if err == nil {
		return nil
	}
	if ErrorKind(err) != KindUnknown {
		return err
	}
	return &InfraError{Message: message, Cause: err}
}

// ErrorKind returns the classification of err.
func ErrorKind(err error) Kind {
	var (
		validationErr *ValidationError
		conflictErr   *ConflictError
		notFoundErr   *NotFoundError
		infraErr      *InfraError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &validationErr):
		return KindValidation
	case errors.As(err, &conflictErr):
		return KindConflict
	case errors.As(err, &notFoundErr):
		return KindNotFound
	case errors.As(err, &infraErr):
		return KindInfra
	default:
		return KindUnknown
	}
}

// IsRetryable reports whether a caller may retry the failed operation.
func IsRetryable(err error) bool {
	return ErrorKind(err) == KindInfra
}

// UserMessage returns the text that may be shown to a farmer.
func UserMessage(err error) string {
	switch ErrorKind(err) {
	case KindValidation, KindConflict, KindNotFound:
		return err.Error()
	default:
		return genericRetryMessage
	}
}
