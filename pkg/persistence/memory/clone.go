package memory

import (
	"time"

	"github.com/calvora/stepflow/pkg/models"
)

// Clones keep callers from mutating committed state through shared
// pointers. Step rows live in the step repository, so a stored process
// never carries its Steps slice.

func cloneProcess(process *models.Process) *models.Process {
	clone := *process
	clone.Steps = nil
	clone.UpdatedAt = cloneTime(process.UpdatedAt)
	clone.DepartmentID = cloneID(process.DepartmentID)
	clone.CreatedByID = cloneID(process.CreatedByID)

	return &clone
}

func cloneStep(step *models.ProcessStep) *models.ProcessStep {
	clone := *step
	clone.UpdatedAt = cloneTime(step.UpdatedAt)
	clone.AssignedRoleID = cloneID(step.AssignedRoleID)

	return &clone
}

func cloneExecution(execution *models.ProcessExecution) *models.ProcessExecution {
	clone := *execution
	clone.UpdatedAt = cloneTime(execution.UpdatedAt)
	clone.UserID = cloneID(execution.UserID)
	clone.StartedAt = cloneTime(execution.StartedAt)
	clone.CompletedAt = cloneTime(execution.CompletedAt)

	return &clone
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	clone := *t

	return &clone
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}

	clone := *id

	return &clone
}
