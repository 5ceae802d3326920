package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/calvora/stepflow/pkg/models"
	"github.com/calvora/stepflow/pkg/persistence"
)

// Orchestrator coordinates process definition and execution lifecycle
// operations. It is stateless: every call loads what it needs, validates,
// stages the writes on a unit of work and commits. All intermediate state
// lives in the entities themselves.
type Orchestrator struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

// NewOrchestrator creates an orchestrator bound to a persistence backend.
func NewOrchestrator(p persistence.Persistence, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		persistence: p,
		logger:      logger.With("module", "orchestrator"),
	}
}

// CreateProcessRequest carries the inputs for a new process definition.
type CreateProcessRequest struct {
	Name         string
	DepartmentID *int64
	Description  string
	CreatedByID  *int64
}

// CreateProcess persists a new process definition with no steps. Department
// and creator references are resolved before anything is written.
func (o *Orchestrator) CreateProcess(ctx context.Context, req CreateProcessRequest) (*models.Process, error) {
	process, err := models.NewProcess(req.Name, req.DepartmentID, req.Description, req.CreatedByID)
	if err != nil {
		return nil, err
	}

	if req.DepartmentID != nil {
		department, err := o.persistence.Departments().GetByID(ctx, *req.DepartmentID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve department: %w", err)
		}

		if department == nil {
			return nil, persistence.NewEntityError("CreateProcess", "department", *req.DepartmentID, ErrDepartmentNotFound)
		}
	}

	if req.CreatedByID != nil {
		user, err := o.persistence.Users().GetByID(ctx, *req.CreatedByID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve creating user: %w", err)
		}

		if user == nil {
			return nil, persistence.NewEntityError("CreateProcess", "user", *req.CreatedByID, ErrUserNotFound)
		}
	}

	uow, err := o.persistence.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}

	defer func() { _ = uow.Rollback(ctx) }()

	err = uow.Processes().Insert(ctx, process)
	if err != nil {
		return nil, fmt.Errorf("failed to insert process: %w", err)
	}

	_, err = uow.Commit(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to commit process: %w", err)
	}

	o.logger.InfoContext(ctx, "process created", "process_id", process.ID, "name", process.Name)

	return process, nil
}

// AddStep appends a step to an existing process. The step order must be
// unused among the process's persisted steps; a collision is reported as
// ErrDuplicateStepOrder. The storage-level unique index backs this check up
// against concurrent writers.
func (o *Orchestrator) AddStep(ctx context.Context, processID int64, stepName string, stepOrder int, assignedRoleID *int64) (*models.ProcessStep, error) {
	step, err := models.NewProcessStep(processID, stepName, stepOrder, assignedRoleID)
	if err != nil {
		return nil, err
	}

	process, err := o.persistence.Processes().GetByID(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("failed to load process: %w", err)
	}

	if process == nil {
		return nil, persistence.NewEntityError("AddStep", "process", processID, ErrProcessNotFound)
	}

	if assignedRoleID != nil {
		role, err := o.persistence.Roles().GetByID(ctx, *assignedRoleID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve role: %w", err)
		}

		if role == nil {
			return nil, persistence.NewEntityError("AddStep", "role", *assignedRoleID, ErrRoleNotFound)
		}
	}

	existing, err := o.persistence.Steps().GetByProcess(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("failed to load steps: %w", err)
	}

	for _, other := range existing {
		if other.StepOrder == stepOrder {
			return nil, NewServiceError("AddStep", "DUPLICATE_STEP_ORDER",
				fmt.Sprintf("order %d is already used by step %q", stepOrder, other.Name),
				ErrDuplicateStepOrder)
		}
	}

	uow, err := o.persistence.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}

	defer func() { _ = uow.Rollback(ctx) }()

	err = uow.Steps().Insert(ctx, step)
	if err != nil {
		return nil, fmt.Errorf("failed to insert step: %w", err)
	}

	_, err = uow.Commit(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to commit step: %w", err)
	}

	o.logger.InfoContext(ctx, "step added", "process_id", processID, "step_id", step.ID, "step_order", stepOrder)

	return step, nil
}

// RemoveStep deletes a step from a process definition. Existing executions
// referencing the step keep their history; only the definition changes.
func (o *Orchestrator) RemoveStep(ctx context.Context, processID, stepID int64) error {
	step, err := o.persistence.Steps().GetByID(ctx, stepID)
	if err != nil {
		return fmt.Errorf("failed to load step: %w", err)
	}

	if step == nil || step.ProcessID != processID {
		return persistence.NewEntityError("RemoveStep", "step", stepID, ErrStepNotFound)
	}

	uow, err := o.persistence.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin unit of work: %w", err)
	}

	defer func() { _ = uow.Rollback(ctx) }()

	err = uow.Steps().Delete(ctx, stepID)
	if err != nil {
		return fmt.Errorf("failed to delete step: %w", err)
	}

	_, err = uow.Commit(ctx)
	if err != nil {
		return fmt.Errorf("failed to commit step delete: %w", err)
	}

	o.logger.InfoContext(ctx, "step removed", "process_id", processID, "step_id", stepID)

	return nil
}

// StartExecution begins a new execution of a process at the given step. The
// step must belong to the process and the acting user, when given, must be
// active.
func (o *Orchestrator) StartExecution(ctx context.Context, processID, stepID int64, userID *int64) (*models.ProcessExecution, error) {
	process, err := o.persistence.Processes().GetByID(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("failed to load process: %w", err)
	}

	if process == nil {
		return nil, persistence.NewEntityError("StartExecution", "process", processID, ErrProcessNotFound)
	}

	step, err := o.persistence.Steps().GetByID(ctx, stepID)
	if err != nil {
		return nil, fmt.Errorf("failed to load step: %w", err)
	}

	if step == nil {
		return nil, persistence.NewEntityError("StartExecution", "step", stepID, ErrStepNotFound)
	}

	if step.ProcessID != processID {
		return nil, models.NewValidationError("step_id", fmt.Sprintf("step %d does not belong to process %d", stepID, processID))
	}

	if userID != nil {
		user, err := o.persistence.Users().GetByID(ctx, *userID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve user: %w", err)
		}

		if user == nil {
			return nil, persistence.NewEntityError("StartExecution", "user", *userID, ErrUserNotFound)
		}

		if !user.Active {
			return nil, models.NewValidationError("user_id", "User is inactive.")
		}
	}

	execution, err := models.NewProcessExecution(processID, stepID, userID)
	if err != nil {
		return nil, err
	}

	err = execution.Start(nil)
	if err != nil {
		return nil, err
	}

	uow, err := o.persistence.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}

	defer func() { _ = uow.Rollback(ctx) }()

	err = uow.Executions().Insert(ctx, execution)
	if err != nil {
		return nil, fmt.Errorf("failed to insert execution: %w", err)
	}

	_, err = uow.Commit(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to commit execution: %w", err)
	}

	o.logger.InfoContext(ctx, "execution started",
		"execution_id", execution.ID, "process_id", processID, "step_id", stepID)

	return execution, nil
}

// CompleteExecution moves an execution to the Completed state, recording the
// given remarks. An execution that was never explicitly started is started
// on the fly.
func (o *Orchestrator) CompleteExecution(ctx context.Context, executionID int64, remarks string) (*models.ProcessExecution, error) {
	uow, err := o.persistence.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}

	defer func() { _ = uow.Rollback(ctx) }()

	execution, err := uow.Executions().GetByID(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load execution: %w", err)
	}

	if execution == nil {
		return nil, persistence.NewEntityError("CompleteExecution", "execution", executionID, ErrExecutionNotFound)
	}

	err = execution.Complete(remarks, nil)
	if err != nil {
		return nil, err
	}

	err = uow.Executions().Update(ctx, execution)
	if err != nil {
		return nil, fmt.Errorf("failed to update execution: %w", err)
	}

	_, err = uow.Commit(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to commit execution: %w", err)
	}

	o.logger.InfoContext(ctx, "execution completed", "execution_id", executionID)

	return execution, nil
}

// CancelExecution moves an execution to the Cancelled state, recording the
// given remarks.
func (o *Orchestrator) CancelExecution(ctx context.Context, executionID int64, remarks string) (*models.ProcessExecution, error) {
	uow, err := o.persistence.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}

	defer func() { _ = uow.Rollback(ctx) }()

	execution, err := uow.Executions().GetByID(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load execution: %w", err)
	}

	if execution == nil {
		return nil, persistence.NewEntityError("CancelExecution", "execution", executionID, ErrExecutionNotFound)
	}

	err = execution.Cancel(remarks, nil)
	if err != nil {
		return nil, err
	}

	err = uow.Executions().Update(ctx, execution)
	if err != nil {
		return nil, fmt.Errorf("failed to update execution: %w", err)
	}

	_, err = uow.Commit(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to commit execution: %w", err)
	}

	o.logger.InfoContext(ctx, "execution cancelled", "execution_id", executionID)

	return execution, nil
}

// AdvanceToNextStep completes the given execution and, in the same unit of
// work, starts a new execution at the process's next step: the first step
// whose order is strictly greater than the current one. When the current
// step was the last, only the completion is committed and (nil, nil) is
// returned, signalling the normal end of the process.
func (o *Orchestrator) AdvanceToNextStep(ctx context.Context, executionID int64, userID *int64, remarks string) (*models.ProcessExecution, error) {
	uow, err := o.persistence.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}

	defer func() { _ = uow.Rollback(ctx) }()

	execution, err := uow.Executions().GetByID(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load execution: %w", err)
	}

	if execution == nil {
		return nil, persistence.NewEntityError("AdvanceToNextStep", "execution", executionID, ErrExecutionNotFound)
	}

	if userID != nil {
		user, err := o.persistence.Users().GetByID(ctx, *userID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve user: %w", err)
		}

		if user == nil {
			return nil, persistence.NewEntityError("AdvanceToNextStep", "user", *userID, ErrUserNotFound)
		}

		if !user.Active {
			return nil, models.NewValidationError("user_id", "User is inactive.")
		}
	}

	steps, err := uow.Steps().GetByProcess(ctx, execution.ProcessID)
	if err != nil {
		return nil, fmt.Errorf("failed to load steps: %w", err)
	}

	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].StepOrder < steps[j].StepOrder
	})

	var current *models.ProcessStep

	for _, step := range steps {
		if step.ID == execution.StepID {
			current = step

			break
		}
	}

	if current == nil {
		return nil, NewServiceError("AdvanceToNextStep", "CURRENT_STEP_MISSING",
			"current step not found in process definition", ErrStepNotFound)
	}

	err = execution.Complete(remarks, nil)
	if err != nil {
		return nil, err
	}

	err = uow.Executions().Update(ctx, execution)
	if err != nil {
		return nil, fmt.Errorf("failed to update execution: %w", err)
	}

	var next *models.ProcessStep

	for _, step := range steps {
		if step.StepOrder > current.StepOrder {
			next = step

			break
		}
	}

	if next == nil {
		// Last step: the process run ends here.
		_, err = uow.Commit(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to commit execution: %w", err)
		}

		o.logger.InfoContext(ctx, "execution completed at final step",
			"execution_id", executionID, "process_id", execution.ProcessID)

		return nil, nil
	}

	nextUser := userID
	if nextUser == nil {
		nextUser = execution.UserID
	}

	nextExecution, err := models.NewProcessExecution(execution.ProcessID, next.ID, nextUser)
	if err != nil {
		return nil, err
	}

	err = nextExecution.Start(nil)
	if err != nil {
		return nil, err
	}

	err = uow.Executions().Insert(ctx, nextExecution)
	if err != nil {
		return nil, fmt.Errorf("failed to insert execution: %w", err)
	}

	_, err = uow.Commit(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to commit executions: %w", err)
	}

	o.logger.InfoContext(ctx, "execution advanced",
		"completed_execution_id", executionID,
		"next_execution_id", nextExecution.ID,
		"next_step_id", next.ID)

	return nextExecution, nil
}
