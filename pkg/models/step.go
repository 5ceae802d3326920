package models

import (
	"fmt"
	"strings"
	"time"
)

// ProcessStep is one ordered unit of work inside a process definition. The
// owning process id is fixed at construction; name, order, and role
// assignment are mutable through re-validating setters. A step carries no
// lifecycle of its own.
type ProcessStep struct {
	Entity
	ProcessID      int64  `json:"process_id"`
	Name           string `json:"name"`
	StepOrder      int    `json:"step_order"`
	AssignedRoleID *int64 `json:"assigned_role_id,omitempty"`
}

// NewProcessStep constructs a step bound to the given process.
func NewProcessStep(processID int64, name string, order int, assignedRoleID *int64) (*ProcessStep, error) {
	if processID <= 0 {
		return nil, NewValidationError("process_id", fmt.Sprintf("owning process id must be positive, got %d", processID))
	}

	trimmed, err := validateStepName(name)
	if err != nil {
		return nil, err
	}

	if err := validateStepOrder(order); err != nil {
		return nil, err
	}

	if err := validateRoleID(assignedRoleID); err != nil {
		return nil, err
	}

	return &ProcessStep{
		Entity:         newEntity(time.Now().UTC()),
		ProcessID:      processID,
		Name:           trimmed,
		StepOrder:      order,
		AssignedRoleID: assignedRoleID,
	}, nil
}

// ReconstituteStep rebuilds a step from storage without re-validating.
func ReconstituteStep(id, processID int64, name string, order int, assignedRoleID *int64, createdAt time.Time, updatedAt *time.Time) *ProcessStep {
	return &ProcessStep{
		Entity:         Entity{ID: id, CreatedAt: createdAt, UpdatedAt: updatedAt},
		ProcessID:      processID,
		Name:           name,
		StepOrder:      order,
		AssignedRoleID: assignedRoleID,
	}
}

// SetName renames the step.
func (s *ProcessStep) SetName(name string) error {
	trimmed, err := validateStepName(name)
	if err != nil {
		return err
	}

	s.Name = trimmed
	s.Touch(time.Now().UTC())

	return nil
}

// SetOrder changes the step's position. Uniqueness against sibling steps is
// the owning aggregate's concern, not the step's.
func (s *ProcessStep) SetOrder(order int) error {
	if err := validateStepOrder(order); err != nil {
		return err
	}

	s.StepOrder = order
	s.Touch(time.Now().UTC())

	return nil
}

// SetAssignedRole assigns or clears the required role.
func (s *ProcessStep) SetAssignedRole(roleID *int64) error {
	if err := validateRoleID(roleID); err != nil {
		return err
	}

	s.AssignedRoleID = roleID
	s.Touch(time.Now().UTC())

	return nil
}

func validateStepName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", NewValidationError("name", "step name is required")
	}

	return trimmed, nil
}

func validateStepOrder(order int) error {
	if order < 0 {
		return NewValidationError("step_order", fmt.Sprintf("step order must not be negative, got %d", order))
	}

	return nil
}

func validateRoleID(roleID *int64) error {
	if roleID != nil && *roleID <= 0 {
		return NewValidationError("assigned_role_id", fmt.Sprintf("assigned role id must be positive, got %d", *roleID))
	}

	return nil
}
