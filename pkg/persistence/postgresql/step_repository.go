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

// StepRepository handles step-related database operations.
type StepRepository struct {
	q      querier
	logger *slog.Logger
	uow    *unitOfWork
}

const stepColumns = `
	id
  , process_id
  , name
  , step_order
  , assigned_role_id
  , created_at
  , updated_at
`

// GetAll returns all steps ordered by id.
func (r *StepRepository) GetAll(ctx context.Context) ([]*models.ProcessStep, error) {
	query := `SELECT ` + stepColumns + ` FROM process_steps ORDER BY id`

	return r.querySteps(ctx, query)
}

// GetByID returns a step by its id, or nil when none exists.
func (r *StepRepository) GetByID(ctx context.Context, id int64) (*models.ProcessStep, error) {
	query := `SELECT ` + stepColumns + ` FROM process_steps WHERE id = $1`

	row := r.q.QueryRowContext(ctx, query, id)

	step, err := scanStep(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan step: %w", err)
	}

	return step, nil
}

// GetByProcess returns a process's steps ordered by step order ascending.
func (r *StepRepository) GetByProcess(ctx context.Context, processID int64) ([]*models.ProcessStep, error) {
	query := `SELECT ` + stepColumns + ` FROM process_steps WHERE process_id = $1 ORDER BY step_order, id`

	return r.querySteps(ctx, query, processID)
}

// Insert persists a new step and assigns its id. A duplicate order within
// the process surfaces as ErrDuplicateStepOrder from the unique index.
func (r *StepRepository) Insert(ctx context.Context, step *models.ProcessStep) error {
	query := `
		INSERT INTO process_steps (process_id, name, step_order, assigned_role_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.q.QueryRowContext(ctx, query,
		step.ProcessID,
		step.Name,
		step.StepOrder,
		step.AssignedRoleID,
		step.CreatedAt,
		step.UpdatedAt,
	).Scan(&step.ID)
	if err != nil {
		return fmt.Errorf("failed to insert step: %w", mapConstraintError(err))
	}

	if r.uow != nil {
		r.uow.affected++
	}

	return nil
}

// Update rewrites a step's mutable fields.
func (r *StepRepository) Update(ctx context.Context, step *models.ProcessStep) error {
	query := `
		UPDATE process_steps
		SET name = $2, step_order = $3, assigned_role_id = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query,
		step.ID,
		step.Name,
		step.StepOrder,
		step.AssignedRoleID,
		step.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update step: %w", mapConstraintError(err))
	}

	if r.uow != nil {
		r.uow.track(result)
	}

	return nil
}

// Delete removes a step.
func (r *StepRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM process_steps WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete step: %w", err)
	}

	if r.uow != nil {
		r.uow.track(result)
	}

	return nil
}

func (r *StepRepository) querySteps(ctx context.Context, query string, args ...any) ([]*models.ProcessStep, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	steps := make([]*models.ProcessStep, 0)

	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}

		steps = append(steps, step)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating steps: %w", err)
	}

	return steps, nil
}

func scanStep(scanner interface{ Scan(dest ...any) error }) (*models.ProcessStep, error) {
	var (
		id             int64
		processID      int64
		name           string
		stepOrder      int
		assignedRoleID sql.NullInt64
		createdAt      time.Time
		updatedAt      sql.NullTime
	)

	err := scanner.Scan(&id, &processID, &name, &stepOrder, &assignedRoleID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	return models.ReconstituteStep(
		id,
		processID,
		name,
		stepOrder,
		nullableID(assignedRoleID),
		createdAt,
		nullableTime(updatedAt),
	), nil
}
