package models

import (
	"errors"
	"fmt"
)

// Standard domain error kinds. Services and transport layers compare with
// errors.Is and never match on message text.
var (
	// ErrValidation indicates input that violates a domain invariant.
	ErrValidation = errors.New("validation failed")

	// ErrStepNotInProcess indicates a step id that is not part of the
	// aggregate's in-memory step collection.
	ErrStepNotInProcess = errors.New("step not found in process")
)

// ValidationError wraps an invariant violation with the field it concerns.
type ValidationError struct {
	Field   string // field or argument that failed, empty for cross-field rules
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}

	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a validation error for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError checks if an error is a domain validation failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}
