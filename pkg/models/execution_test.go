package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 {
	return &v
}

func timePtr(v time.Time) *time.Time {
	return &v
}

func TestNewProcessExecution(t *testing.T) {
	t.Parallel()

	t.Run("starts pending", func(t *testing.T) {
		t.Parallel()

		execution, err := NewProcessExecution(1, 2, int64Ptr(3))
		require.NoError(t, err)

		assert.Equal(t, ExecutionPending, execution.Status)
		assert.Equal(t, int64(1), execution.ProcessID)
		assert.Equal(t, int64(2), execution.StepID)
		assert.Nil(t, execution.StartedAt)
		assert.Nil(t, execution.CompletedAt)
		assert.False(t, execution.CreatedAt.IsZero())
	})

	t.Run("rejects invalid references", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name      string
			processID int64
			stepID    int64
			userID    *int64
		}{
			{name: "zero process", processID: 0, stepID: 1},
			{name: "negative step", processID: 1, stepID: -1},
			{name: "zero user", processID: 1, stepID: 1, userID: int64Ptr(0)},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				_, err := NewProcessExecution(tt.processID, tt.stepID, tt.userID)
				require.Error(t, err)
				assert.True(t, IsValidationError(err))
			})
		}
	})
}

func TestProcessExecution_Start(t *testing.T) {
	t.Parallel()

	t.Run("sets started at once", func(t *testing.T) {
		t.Parallel()

		execution, err := NewProcessExecution(1, 2, nil)
		require.NoError(t, err)

		first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		require.NoError(t, execution.Start(timePtr(first)))
		assert.Equal(t, ExecutionStarted, execution.Status)
		require.NotNil(t, execution.StartedAt)
		assert.Equal(t, first, *execution.StartedAt)

		// A second start keeps the original timestamp.
		later := first.Add(time.Hour)
		require.NoError(t, execution.Start(timePtr(later)))
		assert.Equal(t, first, *execution.StartedAt)
	})

	t.Run("rejects terminal states", func(t *testing.T) {
		t.Parallel()

		execution, err := NewProcessExecution(1, 2, nil)
		require.NoError(t, err)
		require.NoError(t, execution.Complete("done", nil))

		err = execution.Start(nil)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})
}

func TestProcessExecution_Complete(t *testing.T) {
	t.Parallel()

	t.Run("completes a started execution", func(t *testing.T) {
		t.Parallel()

		execution, err := NewProcessExecution(1, 2, nil)
		require.NoError(t, err)

		started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		completed := started.Add(30 * time.Minute)
		require.NoError(t, execution.Start(timePtr(started)))
		require.NoError(t, execution.Complete("all good", timePtr(completed)))

		assert.Equal(t, ExecutionCompleted, execution.Status)
		assert.Equal(t, "all good", execution.Remarks)
		require.NotNil(t, execution.CompletedAt)
		assert.Equal(t, completed, *execution.CompletedAt)
	})

	t.Run("backfills started at when never started", func(t *testing.T) {
		t.Parallel()

		execution, err := NewProcessExecution(1, 2, nil)
		require.NoError(t, err)

		completed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		require.NoError(t, execution.Complete("", timePtr(completed)))

		require.NotNil(t, execution.StartedAt)
		assert.Equal(t, completed, *execution.StartedAt)
		assert.Equal(t, completed, *execution.CompletedAt)
	})

	t.Run("rejects completion before start", func(t *testing.T) {
		t.Parallel()

		execution, err := NewProcessExecution(1, 2, nil)
		require.NoError(t, err)

		started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		require.NoError(t, execution.Start(timePtr(started)))

		err = execution.Complete("", timePtr(started.Add(-time.Minute)))
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Equal(t, ExecutionStarted, execution.Status)
	})

	t.Run("rejects completing a cancelled execution", func(t *testing.T) {
		t.Parallel()

		execution, err := NewProcessExecution(1, 2, nil)
		require.NoError(t, err)
		require.NoError(t, execution.Cancel("abandoned", nil))

		err = execution.Complete("", nil)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Equal(t, ExecutionCancelled, execution.Status)
	})

	t.Run("completing twice is allowed", func(t *testing.T) {
		t.Parallel()

		execution, err := NewProcessExecution(1, 2, nil)
		require.NoError(t, err)
		require.NoError(t, execution.Complete("first", nil))
		require.NoError(t, execution.Complete("second", nil))
		assert.Equal(t, "second", execution.Remarks)
	})
}

func TestProcessExecution_Cancel(t *testing.T) {
	t.Parallel()

	t.Run("records cancellation time in completed at", func(t *testing.T) {
		t.Parallel()

		execution, err := NewProcessExecution(1, 2, nil)
		require.NoError(t, err)

		cancelled := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
		require.NoError(t, execution.Cancel("not needed", timePtr(cancelled)))

		assert.Equal(t, ExecutionCancelled, execution.Status)
		require.NotNil(t, execution.CompletedAt)
		assert.Equal(t, cancelled, *execution.CompletedAt)
		assert.Equal(t, "not needed", execution.Remarks)
	})

	t.Run("rejects cancelling a completed execution", func(t *testing.T) {
		t.Parallel()

		execution, err := NewProcessExecution(1, 2, nil)
		require.NoError(t, err)
		require.NoError(t, execution.Complete("done", nil))

		err = execution.Cancel("", nil)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Equal(t, ExecutionCompleted, execution.Status)
	})
}

func TestProcessExecution_SetStatus(t *testing.T) {
	t.Parallel()

	execution, err := NewProcessExecution(1, 2, nil)
	require.NoError(t, err)

	require.NoError(t, execution.SetStatus(ExecutionStarted))
	assert.Equal(t, ExecutionStarted, execution.Status)

	err = execution.SetStatus(ExecutionStatus(9))
	require.Error(t, err)

	require.NoError(t, execution.SetStatus(ExecutionCompleted))

	err = execution.SetStatus(ExecutionPending)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Equal(t, ExecutionCompleted, execution.Status)
}

func TestProcessExecution_SetTimes(t *testing.T) {
	t.Parallel()

	execution, err := NewProcessExecution(1, 2, nil)
	require.NoError(t, err)

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	err = execution.SetTimes(timePtr(started), timePtr(started.Add(-time.Second)))
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	require.NoError(t, execution.SetTimes(timePtr(started), timePtr(started.Add(time.Hour))))
	assert.Equal(t, started, *execution.StartedAt)
}

func TestEntity_TouchStrictlyIncreases(t *testing.T) {
	t.Parallel()

	execution, err := NewProcessExecution(1, 2, nil)
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	execution.Touch(at)
	first := *execution.UpdatedAt

	// Same clock reading: the timestamp still moves forward.
	execution.Touch(at)
	second := *execution.UpdatedAt
	assert.True(t, second.After(first))

	// An earlier clock reading never moves it backwards.
	execution.Touch(at.Add(-time.Hour))
	assert.True(t, execution.UpdatedAt.After(second))
}
