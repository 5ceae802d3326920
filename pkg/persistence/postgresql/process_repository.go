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

// ProcessRepository handles process-related database operations.
type ProcessRepository struct {
	q      querier
	logger *slog.Logger
	uow    *unitOfWork
}

const processColumns = `
	id
  , name
  , department_id
  , description
  , created_by_id
  , created_at
  , updated_at
`

// GetAll returns all processes ordered by id.
func (r *ProcessRepository) GetAll(ctx context.Context) ([]*models.Process, error) {
	query := `SELECT ` + processColumns + ` FROM processes ORDER BY id`

	return r.queryProcesses(ctx, query)
}

// GetByID returns a process by its id, or nil when none exists.
func (r *ProcessRepository) GetByID(ctx context.Context, id int64) (*models.Process, error) {
	query := `SELECT ` + processColumns + ` FROM processes WHERE id = $1`

	row := r.q.QueryRowContext(ctx, query, id)

	process, err := scanProcess(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan process: %w", err)
	}

	return process, nil
}

// GetByDepartment returns the processes assigned to a department.
func (r *ProcessRepository) GetByDepartment(ctx context.Context, departmentID int64) ([]*models.Process, error) {
	query := `SELECT ` + processColumns + ` FROM processes WHERE department_id = $1 ORDER BY id`

	return r.queryProcesses(ctx, query, departmentID)
}

// Insert persists a new process and assigns its id.
func (r *ProcessRepository) Insert(ctx context.Context, process *models.Process) error {
	query := `
		INSERT INTO processes (name, department_id, description, created_by_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.q.QueryRowContext(ctx, query,
		process.Name,
		process.DepartmentID,
		process.Description,
		process.CreatedByID,
		process.CreatedAt,
		process.UpdatedAt,
	).Scan(&process.ID)
	if err != nil {
		return fmt.Errorf("failed to insert process: %w", err)
	}

	if r.uow != nil {
		r.uow.affected++
	}

	return nil
}

// Update rewrites a process's mutable fields.
func (r *ProcessRepository) Update(ctx context.Context, process *models.Process) error {
	query := `
		UPDATE processes
		SET name = $2, department_id = $3, description = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query,
		process.ID,
		process.Name,
		process.DepartmentID,
		process.Description,
		process.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update process: %w", err)
	}

	if r.uow != nil {
		r.uow.track(result)
	}

	return nil
}

// Delete removes a process. Steps cascade at the schema level.
func (r *ProcessRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM processes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete process: %w", err)
	}

	if r.uow != nil {
		r.uow.track(result)
	}

	return nil
}

func (r *ProcessRepository) queryProcesses(ctx context.Context, query string, args ...any) ([]*models.Process, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query processes: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	processes := make([]*models.Process, 0)

	for rows.Next() {
		process, err := scanProcess(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan process: %w", err)
		}

		processes = append(processes, process)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating processes: %w", err)
	}

	return processes, nil
}

func scanProcess(scanner interface{ Scan(dest ...any) error }) (*models.Process, error) {
	var (
		id           int64
		name         string
		departmentID sql.NullInt64
		description  string
		createdByID  sql.NullInt64
		createdAt    time.Time
		updatedAt    sql.NullTime
	)

	err := scanner.Scan(&id, &name, &departmentID, &description, &createdByID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	return models.ReconstituteProcess(
		id,
		name,
		nullableID(departmentID),
		description,
		nullableID(createdByID),
		createdAt,
		nullableTime(updatedAt),
	), nil
}

func nullableID(value sql.NullInt64) *int64 {
	if !value.Valid {
		return nil
	}

	return &value.Int64
}

func nullableTime(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}

	return &value.Time
}
