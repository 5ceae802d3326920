// Package services provides standardized error types for service layer
// operations.
package services

import (
	"errors"
	"fmt"

	"github.com/calvora/stepflow/pkg/models"
	"github.com/calvora/stepflow/pkg/persistence"
)

// Referenced-entity errors surface unchanged from the persistence layer.
var (
	ErrProcessNotFound    = persistence.ErrProcessNotFound
	ErrStepNotFound       = persistence.ErrStepNotFound
	ErrExecutionNotFound  = persistence.ErrExecutionNotFound
	ErrDepartmentNotFound = persistence.ErrDepartmentNotFound
	ErrUserNotFound       = persistence.ErrUserNotFound
	ErrRoleNotFound       = persistence.ErrRoleNotFound

	// ErrDuplicateStepOrder indicates a step order collision (409 Conflict).
	ErrDuplicateStepOrder = persistence.ErrDuplicateStepOrder
)

// Query validation errors (400 Bad Request).
var (
	ErrInvalidSortField = errors.New("invalid sort field")
	ErrInvalidSortOrder = errors.New("invalid sort order")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // operation name
	Code    string // error code for API responses
	Message string // human-readable message
	Err     error  // underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewServiceError creates a new service error with context.
func NewServiceError(op, code, message string, err error) *ServiceError {
	return &ServiceError{Op: op, Code: code, Message: message, Err: err}
}

// IsValidationError checks if an error is a validation failure that should
// return HTTP 400.
func IsValidationError(err error) bool {
	return models.IsValidationError(err) ||
		errors.Is(err, ErrInvalidSortField) ||
		errors.Is(err, ErrInvalidSortOrder)
}

// IsConflictError checks if an error is a uniqueness conflict that should
// return HTTP 409.
func IsConflictError(err error) bool {
	return persistence.IsDuplicateStepOrder(err)
}

// IsNotFoundError checks if an error indicates a missing entity that should
// return HTTP 404.
func IsNotFoundError(err error) bool {
	return persistence.IsNotFound(err) || errors.Is(err, models.ErrStepNotInProcess)
}
