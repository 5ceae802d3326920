package models

import (
	"fmt"
	"strings"
	"time"
)

// Process is an ordered definition of steps to be executed. It owns its
// step collection and enforces order uniqueness within it. Cross-entity
// references (department, creator, role) are plain ids resolved through the
// persistence boundary, never object pointers.
type Process struct {
	Entity
	Name         string         `json:"name"`
	DepartmentID *int64         `json:"department_id,omitempty"`
	Description  string         `json:"description,omitempty"`
	CreatedByID  *int64         `json:"created_by_id,omitempty"`
	Steps        []*ProcessStep `json:"steps,omitempty"`
}

// NewProcess constructs a process definition with no steps.
func NewProcess(name string, departmentID *int64, description string, createdByID *int64) (*Process, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, NewValidationError("name", "process name is required")
	}

	return &Process{
		Entity:       newEntity(time.Now().UTC()),
		Name:         trimmed,
		DepartmentID: departmentID,
		Description:  description,
		CreatedByID:  createdByID,
	}, nil
}

// ReconstituteProcess rebuilds a process from storage without re-validating.
func ReconstituteProcess(id int64, name string, departmentID *int64, description string, createdByID *int64, createdAt time.Time, updatedAt *time.Time) *Process {
	return &Process{
		Entity:       Entity{ID: id, CreatedAt: createdAt, UpdatedAt: updatedAt},
		Name:         name,
		DepartmentID: departmentID,
		Description:  description,
		CreatedByID:  createdByID,
	}
}

// SetDescription replaces the free-text description.
func (p *Process) SetDescription(description string) {
	p.Description = description
	p.Touch(time.Now().UTC())
}

// SetDepartment assigns or clears the department reference.
func (p *Process) SetDepartment(departmentID *int64) {
	p.DepartmentID = departmentID
	p.Touch(time.Now().UTC())
}

// AddStep appends a new step bound to this process. The order value must be
// unused among the in-memory steps; callers racing against concurrent
// writers need the orchestrator path, which re-checks against persisted
// state.
func (p *Process) AddStep(name string, order int, assignedRoleID *int64) (*ProcessStep, error) {
	for _, existing := range p.Steps {
		if existing.StepOrder == order {
			return nil, NewValidationError("step_order", fmt.Sprintf("order %d is already used by step %q", order, existing.Name))
		}
	}

	step, err := NewProcessStep(p.ID, name, order, assignedRoleID)
	if err != nil {
		return nil, err
	}

	p.Steps = append(p.Steps, step)
	p.Touch(time.Now().UTC())

	return step, nil
}

// RemoveStep removes the step with the given id from the in-memory
// collection.
func (p *Process) RemoveStep(stepID int64) error {
	for i, step := range p.Steps {
		if step.ID == stepID {
			p.Steps = append(p.Steps[:i], p.Steps[i+1:]...)
			p.Touch(time.Now().UTC())

			return nil
		}
	}

	return fmt.Errorf("step %d: %w", stepID, ErrStepNotInProcess)
}

// StepByID returns the step with the given id, or nil.
func (p *Process) StepByID(stepID int64) *ProcessStep {
	for _, step := range p.Steps {
		if step.ID == stepID {
			return step
		}
	}

	return nil
}

// StartExecution constructs a pending execution for one of this process's
// steps. This is a convenience path for callers holding a loaded aggregate;
// external callers should go through the orchestrator, which performs the
// same check against persisted state.
func (p *Process) StartExecution(stepID int64, userID *int64) (*ProcessExecution, error) {
	if p.StepByID(stepID) == nil {
		return nil, fmt.Errorf("step %d: %w", stepID, ErrStepNotInProcess)
	}

	execution, err := NewProcessExecution(p.ID, stepID, userID)
	if err != nil {
		return nil, err
	}

	p.Touch(time.Now().UTC())

	return execution, nil
}
