// Package persistence provides standardized error types for persistence
// operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrProcessNotFound indicates a process was not found by the given identifier.
	ErrProcessNotFound = errors.New("process not found")

	// ErrStepNotFound indicates a step was not found by the given identifier.
	ErrStepNotFound = errors.New("step not found")

	// ErrExecutionNotFound indicates an execution was not found by the given identifier.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrDepartmentNotFound indicates a department was not found by the given identifier.
	ErrDepartmentNotFound = errors.New("department not found")

	// ErrUserNotFound indicates a user was not found by the given identifier.
	ErrUserNotFound = errors.New("user not found")

	// ErrRoleNotFound indicates a role was not found by the given identifier.
	ErrRoleNotFound = errors.New("role not found")

	// ErrDuplicateStepOrder indicates a step order value is already used
	// within the same process.
	ErrDuplicateStepOrder = errors.New("duplicate step order")
)

// EntityError wraps a storage error with the operation and entity it
// concerns.
type EntityError struct {
	Op     string // operation being performed, e.g. "GetByID", "Insert"
	Entity string // entity kind, e.g. "process", "step"
	ID     int64  // entity id if applicable
	Err    error  // underlying error
}

func (e *EntityError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("%s operation failed for %s %d: %v", e.Op, e.Entity, e.ID, e.Err)
	}

	return fmt.Sprintf("%s operation failed for %s: %v", e.Op, e.Entity, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for entity errors.
func (e *EntityError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewEntityError creates a new entity error with context.
func NewEntityError(op, entity string, id int64, err error) *EntityError {
	return &EntityError{Op: op, Entity: entity, ID: id, Err: err}
}

// IsNotFound checks if an error indicates any referenced entity was not
// found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProcessNotFound) ||
		errors.Is(err, ErrStepNotFound) ||
		errors.Is(err, ErrExecutionNotFound) ||
		errors.Is(err, ErrDepartmentNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrRoleNotFound)
}

// IsDuplicateStepOrder checks if an error indicates a step order collision.
func IsDuplicateStepOrder(err error) bool {
	return errors.Is(err, ErrDuplicateStepOrder)
}
