package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/calvora/stepflow/pkg/models"
)

// ExecutionRepository handles execution-related database operations.
type ExecutionRepository struct {
	q      querier
	logger *slog.Logger
	uow    *unitOfWork
}

const executionColumns = `
	id
  , process_id
  , step_id
  , user_id
  , status
  , started_at
  , completed_at
  , remarks
  , created_at
  , updated_at
`

// GetAll returns all executions ordered by id.
func (r *ExecutionRepository) GetAll(ctx context.Context) ([]*models.ProcessExecution, error) {
	query := `SELECT ` + executionColumns + ` FROM process_executions ORDER BY id`

	return r.queryExecutions(ctx, query)
}

// GetByID returns an execution by its id, or nil when none exists.
func (r *ExecutionRepository) GetByID(ctx context.Context, id int64) (*models.ProcessExecution, error) {
	query := `SELECT ` + executionColumns + ` FROM process_executions WHERE id = $1`

	row := r.q.QueryRowContext(ctx, query, id)

	execution, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	return execution, nil
}

// GetByProcess returns all executions of a process ordered by id.
func (r *ExecutionRepository) GetByProcess(ctx context.Context, processID int64) ([]*models.ProcessExecution, error) {
	query := `SELECT ` + executionColumns + ` FROM process_executions WHERE process_id = $1 ORDER BY id`

	return r.queryExecutions(ctx, query, processID)
}

// Insert persists a new execution and assigns its id.
func (r *ExecutionRepository) Insert(ctx context.Context, execution *models.ProcessExecution) error {
	query := `
		INSERT INTO process_executions (process_id, step_id, user_id, status, started_at, completed_at, remarks, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.q.QueryRowContext(ctx, query,
		execution.ProcessID,
		execution.StepID,
		execution.UserID,
		int(execution.Status),
		execution.StartedAt,
		execution.CompletedAt,
		execution.Remarks,
		execution.CreatedAt,
		execution.UpdatedAt,
	).Scan(&execution.ID)
	if err != nil {
		return fmt.Errorf("failed to insert execution: %w", err)
	}

	if r.uow != nil {
		r.uow.affected++
	}

	return nil
}

// Update rewrites an execution's mutable fields.
func (r *ExecutionRepository) Update(ctx context.Context, execution *models.ProcessExecution) error {
	query := `
		UPDATE process_executions
		SET status = $2, started_at = $3, completed_at = $4, remarks = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query,
		execution.ID,
		int(execution.Status),
		execution.StartedAt,
		execution.CompletedAt,
		execution.Remarks,
		execution.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update execution: %w", err)
	}

	if r.uow != nil {
		r.uow.track(result)
	}

	return nil
}

// Delete removes an execution.
func (r *ExecutionRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM process_executions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete execution: %w", err)
	}

	if r.uow != nil {
		r.uow.track(result)
	}

	return nil
}

func (r *ExecutionRepository) queryExecutions(ctx context.Context, query string, args ...any) ([]*models.ProcessExecution, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	executions := make([]*models.ProcessExecution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func scanExecution(scanner interface{ Scan(dest ...any) error }) (*models.ProcessExecution, error) {
	var (
		id          int64
		processID   int64
		stepID      int64
		userID      sql.NullInt64
		status      int
		startedAt   sql.NullTime
		completedAt sql.NullTime
		remarks     string
		createdAt   time.Time
		updatedAt   sql.NullTime
	)

	err := scanner.Scan(&id, &processID, &stepID, &userID, &status, &startedAt, &completedAt, &remarks, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	return models.ReconstituteExecution(
		id,
		processID,
		stepID,
		nullableID(userID),
		models.ExecutionStatus(status),
		nullableTime(startedAt),
		nullableTime(completedAt),
		remarks,
		createdAt,
		nullableTime(updatedAt),
	), nil
}
