// Package web provides HTTP request and response types for the process API.
package web

// CreateProcessRequest represents the request body for creating a new
// process definition.
type CreateProcessRequest struct {
	Name         string `json:"name"                    validate:"required,min=1"`
	DepartmentID *int64 `json:"department_id,omitempty" validate:"omitempty,gt=0"`
	Description  string `json:"description,omitempty"`
	CreatedByID  *int64 `json:"created_by_id,omitempty" validate:"omitempty,gt=0"`
}

// AddStepRequest represents the request body for appending a step to a
// process definition.
type AddStepRequest struct {
	Name           string `json:"name"                       validate:"required,min=1"`
	StepOrder      int    `json:"step_order"                 validate:"gte=0"`
	AssignedRoleID *int64 `json:"assigned_role_id,omitempty" validate:"omitempty,gt=0"`
}

// StartExecutionRequest represents the request body for starting an
// execution of a process step.
type StartExecutionRequest struct {
	StepID int64  `json:"step_id"           validate:"required,gt=0"`
	UserID *int64 `json:"user_id,omitempty" validate:"omitempty,gt=0"`
}

// CompleteExecutionRequest carries the remarks recorded when completing or
// cancelling an execution.
type CompleteExecutionRequest struct {
	Remarks string `json:"remarks,omitempty"`
}

// AdvanceExecutionRequest represents the request body for completing an
// execution and moving the run to the next step.
type AdvanceExecutionRequest struct {
	UserID  *int64 `json:"user_id,omitempty" validate:"omitempty,gt=0"`
	Remarks string `json:"remarks,omitempty"`
}
