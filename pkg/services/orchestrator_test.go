package services

import (
	"testing"

	"github.com/calvora/stepflow/pkg/models"
	"github.com/calvora/stepflow/pkg/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 {
	return &v
}

type testFixture struct {
	store        *memory.Persistence
	orchestrator *Orchestrator
	department   *models.Department
	user         *models.User
	inactive     *models.User
	role         *models.Role
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()

	store := memory.NewPersistence(nil)

	return &testFixture{
		store:        store,
		orchestrator: NewOrchestrator(store, nil),
		department:   store.SeedDepartment(&models.Department{Name: "Finance"}),
		user:         store.SeedUser(&models.User{Name: "Dana", Active: true}),
		inactive:     store.SeedUser(&models.User{Name: "Sam", Active: false}),
		role:         store.SeedRole(&models.Role{Name: "Approver"}),
	}
}

func (f *testFixture) createProcess(t *testing.T, name string) *models.Process {
	t.Helper()

	process, err := f.orchestrator.CreateProcess(t.Context(), CreateProcessRequest{Name: name})
	require.NoError(t, err)

	return process
}

func (f *testFixture) addStep(t *testing.T, processID int64, name string, order int) *models.ProcessStep {
	t.Helper()

	step, err := f.orchestrator.AddStep(t.Context(), processID, name, order, nil)
	require.NoError(t, err)

	return step
}

func TestOrchestrator_CreateProcess(t *testing.T) {
	t.Parallel()

	t.Run("creates and persists", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)

		process, err := f.orchestrator.CreateProcess(t.Context(), CreateProcessRequest{
			Name:         "Expense Approval",
			DepartmentID: int64Ptr(f.department.ID),
			Description:  "reimbursements",
			CreatedByID:  int64Ptr(f.user.ID),
		})
		require.NoError(t, err)
		assert.Positive(t, process.ID)

		loaded, err := f.store.Processes().GetByID(t.Context(), process.ID)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, "Expense Approval", loaded.Name)
		assert.Equal(t, f.department.ID, *loaded.DepartmentID)
	})

	t.Run("rejects a blank name", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)

		_, err := f.orchestrator.CreateProcess(t.Context(), CreateProcessRequest{Name: "  "})
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})

	t.Run("rejects an unknown department", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)

		_, err := f.orchestrator.CreateProcess(t.Context(), CreateProcessRequest{
			Name:         "Expense Approval",
			DepartmentID: int64Ptr(9999),
		})
		require.ErrorIs(t, err, ErrDepartmentNotFound)
		assert.True(t, IsNotFoundError(err))
	})

	t.Run("rejects an unknown creator", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)

		_, err := f.orchestrator.CreateProcess(t.Context(), CreateProcessRequest{
			Name:        "Expense Approval",
			CreatedByID: int64Ptr(9999),
		})
		require.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestOrchestrator_AddStep(t *testing.T) {
	t.Parallel()

	t.Run("appends steps", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		process := f.createProcess(t, "Onboarding")

		step, err := f.orchestrator.AddStep(t.Context(), process.ID, "Collect documents", 0, int64Ptr(f.role.ID))
		require.NoError(t, err)
		assert.Positive(t, step.ID)
		assert.Equal(t, process.ID, step.ProcessID)

		steps, err := f.store.Steps().GetByProcess(t.Context(), process.ID)
		require.NoError(t, err)
		require.Len(t, steps, 1)
	})

	t.Run("rejects a duplicate order", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		process := f.createProcess(t, "Onboarding")
		f.addStep(t, process.ID, "Collect documents", 5)

		_, err := f.orchestrator.AddStep(t.Context(), process.ID, "Create accounts", 5, nil)
		require.Error(t, err)
		assert.True(t, IsConflictError(err))
		assert.Contains(t, err.Error(), "Collect documents")

		steps, err := f.store.Steps().GetByProcess(t.Context(), process.ID)
		require.NoError(t, err)
		assert.Len(t, steps, 1)
	})

	t.Run("rejects an unknown process", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)

		_, err := f.orchestrator.AddStep(t.Context(), 9999, "Review", 0, nil)
		require.ErrorIs(t, err, ErrProcessNotFound)
	})

	t.Run("rejects an unknown role", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		process := f.createProcess(t, "Onboarding")

		_, err := f.orchestrator.AddStep(t.Context(), process.ID, "Review", 0, int64Ptr(9999))
		require.ErrorIs(t, err, ErrRoleNotFound)
	})

	t.Run("rejects an invalid name before loading anything", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)

		_, err := f.orchestrator.AddStep(t.Context(), 9999, "  ", 0, nil)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})
}

func TestOrchestrator_RemoveStep(t *testing.T) {
	t.Parallel()

	t.Run("removes a step", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		process := f.createProcess(t, "Onboarding")
		step := f.addStep(t, process.ID, "Collect documents", 0)

		require.NoError(t, f.orchestrator.RemoveStep(t.Context(), process.ID, step.ID))

		steps, err := f.store.Steps().GetByProcess(t.Context(), process.ID)
		require.NoError(t, err)
		assert.Empty(t, steps)
	})

	t.Run("rejects a step from another process", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		process := f.createProcess(t, "Onboarding")
		other := f.createProcess(t, "Offboarding")
		step := f.addStep(t, other.ID, "Revoke access", 0)

		err := f.orchestrator.RemoveStep(t.Context(), process.ID, step.ID)
		require.ErrorIs(t, err, ErrStepNotFound)
	})

	t.Run("rejects an unknown step", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		process := f.createProcess(t, "Onboarding")

		err := f.orchestrator.RemoveStep(t.Context(), process.ID, 9999)
		require.ErrorIs(t, err, ErrStepNotFound)
	})
}

func TestOrchestrator_StartExecution(t *testing.T) {
	t.Parallel()

	t.Run("starts at the given step", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		process := f.createProcess(t, "Onboarding")
		step := f.addStep(t, process.ID, "Collect documents", 0)

		execution, err := f.orchestrator.StartExecution(t.Context(), process.ID, step.ID, int64Ptr(f.user.ID))
		require.NoError(t, err)

		assert.Positive(t, execution.ID)
		assert.Equal(t, models.ExecutionStarted, execution.Status)
		assert.NotNil(t, execution.StartedAt)
		assert.Equal(t, f.user.ID, *execution.UserID)

		loaded, err := f.store.Executions().GetByID(t.Context(), execution.ID)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, models.ExecutionStarted, loaded.Status)
	})

	t.Run("rejects an inactive user", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		process := f.createProcess(t, "Onboarding")
		step := f.addStep(t, process.ID, "Collect documents", 0)

		_, err := f.orchestrator.StartExecution(t.Context(), process.ID, step.ID, int64Ptr(f.inactive.ID))
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Contains(t, err.Error(), "User is inactive.")

		executions, err := f.store.Executions().GetByProcess(t.Context(), process.ID)
		require.NoError(t, err)
		assert.Empty(t, executions)
	})

	t.Run("rejects a step from another process", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		process := f.createProcess(t, "Onboarding")
		other := f.createProcess(t, "Offboarding")
		foreignStep := f.addStep(t, other.ID, "Revoke access", 0)

		_, err := f.orchestrator.StartExecution(t.Context(), process.ID, foreignStep.ID, nil)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})

	t.Run("rejects unknown references", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		process := f.createProcess(t, "Onboarding")
		step := f.addStep(t, process.ID, "Collect documents", 0)

		_, err := f.orchestrator.StartExecution(t.Context(), 9999, step.ID, nil)
		require.ErrorIs(t, err, ErrProcessNotFound)

		_, err = f.orchestrator.StartExecution(t.Context(), process.ID, 9999, nil)
		require.ErrorIs(t, err, ErrStepNotFound)

		_, err = f.orchestrator.StartExecution(t.Context(), process.ID, step.ID, int64Ptr(9999))
		require.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestOrchestrator_CompleteExecution(t *testing.T) {
	t.Parallel()

	t.Run("completes a started execution", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		process := f.createProcess(t, "Onboarding")
		step := f.addStep(t, process.ID, "Collect documents", 0)

		execution, err := f.orchestrator.StartExecution(t.Context(), process.ID, step.ID, nil)
		require.NoError(t, err)

		completed, err := f.orchestrator.CompleteExecution(t.Context(), execution.ID, "all done")
		require.NoError(t, err)
		assert.Equal(t, models.ExecutionCompleted, completed.Status)
		assert.Equal(t, "all done", completed.Remarks)
		assert.NotNil(t, completed.CompletedAt)

		loaded, err := f.store.Executions().GetByID(t.Context(), execution.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ExecutionCompleted, loaded.Status)
	})

	t.Run("rejects a cancelled execution", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		process := f.createProcess(t, "Onboarding")
		step := f.addStep(t, process.ID, "Collect documents", 0)

		execution, err := f.orchestrator.StartExecution(t.Context(), process.ID, step.ID, nil)
		require.NoError(t, err)

		_, err = f.orchestrator.CancelExecution(t.Context(), execution.ID, "abandoned")
		require.NoError(t, err)

		_, err = f.orchestrator.CompleteExecution(t.Context(), execution.ID, "too late")
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})

	t.Run("rejects an unknown execution", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)

		_, err := f.orchestrator.CompleteExecution(t.Context(), 9999, "")
		require.ErrorIs(t, err, ErrExecutionNotFound)
	})
}

func TestOrchestrator_CancelExecution(t *testing.T) {
	t.Parallel()

	f := newTestFixture(t)
	process := f.createProcess(t, "Onboarding")
	step := f.addStep(t, process.ID, "Collect documents", 0)

	execution, err := f.orchestrator.StartExecution(t.Context(), process.ID, step.ID, nil)
	require.NoError(t, err)

	cancelled, err := f.orchestrator.CancelExecution(t.Context(), execution.ID, "position withdrawn")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CompletedAt)

	// Completed executions cannot be cancelled.
	other, err := f.orchestrator.StartExecution(t.Context(), process.ID, step.ID, nil)
	require.NoError(t, err)
	_, err = f.orchestrator.CompleteExecution(t.Context(), other.ID, "")
	require.NoError(t, err)

	_, err = f.orchestrator.CancelExecution(t.Context(), other.ID, "")
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestOrchestrator_AdvanceToNextStep(t *testing.T) {
	t.Parallel()

	t.Run("completes current and starts the next", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		process := f.createProcess(t, "Onboarding")
		first := f.addStep(t, process.ID, "Collect documents", 0)
		second := f.addStep(t, process.ID, "Create accounts", 10)

		execution, err := f.orchestrator.StartExecution(t.Context(), process.ID, first.ID, int64Ptr(f.user.ID))
		require.NoError(t, err)

		next, err := f.orchestrator.AdvanceToNextStep(t.Context(), execution.ID, nil, "documents in")
		require.NoError(t, err)
		require.NotNil(t, next)

		assert.Equal(t, second.ID, next.StepID)
		assert.Equal(t, models.ExecutionStarted, next.Status)
		assert.Equal(t, f.user.ID, *next.UserID, "user carries over when none is given")

		previous, err := f.store.Executions().GetByID(t.Context(), execution.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ExecutionCompleted, previous.Status)
		assert.Equal(t, "documents in", previous.Remarks)
	})

	t.Run("skips gaps in the order sequence", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		process := f.createProcess(t, "Onboarding")
		f.addStep(t, process.ID, "Collect documents", 0)
		middle := f.addStep(t, process.ID, "Create accounts", 50)
		f.addStep(t, process.ID, "Grant access", 100)

		execution, err := f.orchestrator.StartExecution(t.Context(), process.ID, middle.ID, nil)
		require.NoError(t, err)

		next, err := f.orchestrator.AdvanceToNextStep(t.Context(), execution.ID, nil, "")
		require.NoError(t, err)
		require.NotNil(t, next)
		assert.Equal(t, "Grant access", mustStepName(t, f, next.StepID))
	})

	t.Run("returns nil at the last step", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		process := f.createProcess(t, "Onboarding")
		f.addStep(t, process.ID, "Collect documents", 0)
		last := f.addStep(t, process.ID, "Create accounts", 10)

		execution, err := f.orchestrator.StartExecution(t.Context(), process.ID, last.ID, nil)
		require.NoError(t, err)

		next, err := f.orchestrator.AdvanceToNextStep(t.Context(), execution.ID, nil, "wrapped up")
		require.NoError(t, err)
		assert.Nil(t, next)

		// The completion itself was committed.
		previous, err := f.store.Executions().GetByID(t.Context(), execution.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ExecutionCompleted, previous.Status)

		executions, err := f.store.Executions().GetByProcess(t.Context(), process.ID)
		require.NoError(t, err)
		assert.Len(t, executions, 1)
	})

	t.Run("fails when the current step left the definition", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		process := f.createProcess(t, "Onboarding")
		step := f.addStep(t, process.ID, "Collect documents", 0)

		execution, err := f.orchestrator.StartExecution(t.Context(), process.ID, step.ID, nil)
		require.NoError(t, err)

		require.NoError(t, f.store.Steps().Delete(t.Context(), step.ID))

		_, err = f.orchestrator.AdvanceToNextStep(t.Context(), execution.ID, nil, "")
		require.Error(t, err)
		assert.True(t, IsNotFoundError(err))
		assert.Contains(t, err.Error(), "current step not found in process definition")

		// Nothing was committed: the execution is still started.
		loaded, err := f.store.Executions().GetByID(t.Context(), execution.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ExecutionStarted, loaded.Status)
	})

	t.Run("rejects an inactive user", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		process := f.createProcess(t, "Onboarding")
		first := f.addStep(t, process.ID, "Collect documents", 0)
		f.addStep(t, process.ID, "Create accounts", 10)

		execution, err := f.orchestrator.StartExecution(t.Context(), process.ID, first.ID, nil)
		require.NoError(t, err)

		_, err = f.orchestrator.AdvanceToNextStep(t.Context(), execution.ID, int64Ptr(f.inactive.ID), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "User is inactive.")
	})

	t.Run("rejects an unknown execution", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)

		_, err := f.orchestrator.AdvanceToNextStep(t.Context(), 9999, nil, "")
		require.ErrorIs(t, err, ErrExecutionNotFound)
	})
}

func mustStepName(t *testing.T, f *testFixture, stepID int64) string {
	t.Helper()

	step, err := f.store.Steps().GetByID(t.Context(), stepID)
	require.NoError(t, err)
	require.NotNil(t, step)

	return step.Name
}
