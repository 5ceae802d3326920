package models

import (
	"fmt"
	"time"
)

// ProcessExecution is one stateful traversal of a single step by a process
// run. Transitions follow a fixed machine:
//
//	Pending -> Started -> Completed | Cancelled
//
// Completed and Cancelled are terminal. Completing an execution that was
// never explicitly started backfills StartedAt with the completion moment;
// this leniency is deliberate, completing implies starting. Cancellation
// records its time in CompletedAt: cancellation and completion share the
// terminal timestamp slot.
type ProcessExecution struct {
	Entity
	ProcessID   int64           `json:"process_id"`
	StepID      int64           `json:"step_id"`
	UserID      *int64          `json:"user_id,omitempty"`
	Status      ExecutionStatus `json:"status"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Remarks     string          `json:"remarks,omitempty"`
}

// NewProcessExecution constructs a pending execution for the given process
// and step.
func NewProcessExecution(processID, stepID int64, userID *int64) (*ProcessExecution, error) {
	if processID <= 0 {
		return nil, NewValidationError("process_id", fmt.Sprintf("process id must be positive, got %d", processID))
	}

	if stepID <= 0 {
		return nil, NewValidationError("step_id", fmt.Sprintf("step id must be positive, got %d", stepID))
	}

	if userID != nil && *userID <= 0 {
		return nil, NewValidationError("user_id", fmt.Sprintf("user id must be positive, got %d", *userID))
	}

	return &ProcessExecution{
		Entity:    newEntity(time.Now().UTC()),
		ProcessID: processID,
		StepID:    stepID,
		UserID:    userID,
		Status:    ExecutionPending,
	}, nil
}

// ReconstituteExecution rebuilds an execution from storage without
// re-validating.
func ReconstituteExecution(
	id, processID, stepID int64,
	userID *int64,
	status ExecutionStatus,
	startedAt, completedAt *time.Time,
	remarks string,
	createdAt time.Time,
	updatedAt *time.Time,
) *ProcessExecution {
	return &ProcessExecution{
		Entity:      Entity{ID: id, CreatedAt: createdAt, UpdatedAt: updatedAt},
		ProcessID:   processID,
		StepID:      stepID,
		UserID:      userID,
		Status:      status,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Remarks:     remarks,
	}
}

// Start moves the execution to Started. StartedAt is set to the given time,
// or now when nil, and only if it was unset. Starting a terminal execution
// is rejected.
func (e *ProcessExecution) Start(at *time.Time) error {
	if e.Status.Terminal() {
		return NewValidationError("status", fmt.Sprintf("cannot start a %s execution", e.Status))
	}

	now := resolveTime(at)

	if e.StartedAt == nil {
		e.StartedAt = &now
	}

	e.Status = ExecutionStarted
	e.Touch(now)

	return nil
}

// Complete moves the execution to Completed, backfilling StartedAt with the
// completion time when it was never started. Completing a cancelled
// execution is rejected, as is a completion time before the start time.
func (e *ProcessExecution) Complete(remarks string, at *time.Time) error {
	if e.Status == ExecutionCancelled {
		return NewValidationError("status", "cannot complete a cancelled execution")
	}

	now := resolveTime(at)

	if e.StartedAt != nil && now.Before(*e.StartedAt) {
		return NewValidationError("completed_at", "completion time must not precede start time")
	}

	if e.StartedAt == nil {
		// Started on the fly.
		e.StartedAt = &now
	}

	e.Status = ExecutionCompleted
	e.CompletedAt = &now
	e.Remarks = remarks
	e.Touch(now)

	return nil
}

// Cancel moves the execution to Cancelled, recording the cancellation time
// in CompletedAt. Cancelling a completed execution is rejected.
func (e *ProcessExecution) Cancel(remarks string, at *time.Time) error {
	if e.Status == ExecutionCompleted {
		return NewValidationError("status", "cannot cancel a completed execution")
	}

	now := resolveTime(at)

	if e.StartedAt != nil && now.Before(*e.StartedAt) {
		return NewValidationError("completed_at", "cancellation time must not precede start time")
	}

	e.Status = ExecutionCancelled
	e.CompletedAt = &now
	e.Remarks = remarks
	e.Touch(now)

	return nil
}

// SetStatus mutates the status directly, guarding against silently
// reopening finished work: once Completed, only Completed is accepted.
func (e *ProcessExecution) SetStatus(status ExecutionStatus) error {
	if !status.Valid() {
		return NewValidationError("status", fmt.Sprintf("invalid execution status ordinal %d", int(status)))
	}

	if e.Status == ExecutionCompleted && status != ExecutionCompleted {
		return NewValidationError("status", "completed execution cannot be reopened")
	}

	e.Status = status
	e.Touch(time.Now().UTC())

	return nil
}

// SetTimes sets both lifecycle timestamps, enforcing their ordering when
// both are present.
func (e *ProcessExecution) SetTimes(startedAt, completedAt *time.Time) error {
	if startedAt != nil && completedAt != nil && completedAt.Before(*startedAt) {
		return NewValidationError("completed_at", "completion time must not precede start time")
	}

	e.StartedAt = startedAt
	e.CompletedAt = completedAt
	e.Touch(time.Now().UTC())

	return nil
}

func resolveTime(at *time.Time) time.Time {
	if at != nil {
		return at.UTC()
	}

	return time.Now().UTC()
}
