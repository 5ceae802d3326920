package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/calvora/stepflow/pkg/persistence"
	"github.com/lib/pq"
)

// pq error code for unique constraint violations.
const uniqueViolation = "23505"

// unitOfWork wraps a database transaction. Repository writes execute
// immediately within the transaction but stay invisible to other
// connections until Commit; the affected-row count accumulates as writes
// execute.
type unitOfWork struct {
	tx       *sql.Tx
	logger   *slog.Logger
	affected int64
	done     bool
}

func newUnitOfWork(tx *sql.Tx, logger *slog.Logger) *unitOfWork {
	return &unitOfWork{tx: tx, logger: logger}
}

func (u *unitOfWork) Processes() persistence.ProcessRepository {
	return &ProcessRepository{q: u.tx, logger: u.logger, uow: u}
}

func (u *unitOfWork) Steps() persistence.StepRepository {
	return &StepRepository{q: u.tx, logger: u.logger, uow: u}
}

func (u *unitOfWork) Executions() persistence.ExecutionRepository {
	return &ExecutionRepository{q: u.tx, logger: u.logger, uow: u}
}

func (u *unitOfWork) track(result sql.Result) {
	if result == nil {
		return
	}

	if n, err := result.RowsAffected(); err == nil {
		u.affected += n
	}
}

// Commit commits the transaction and returns the accumulated affected-row
// count.
func (u *unitOfWork) Commit(_ context.Context) (int64, error) {
	if u.done {
		return 0, fmt.Errorf("unit of work already finished")
	}

	u.done = true

	err := u.tx.Commit()
	if err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", mapConstraintError(err))
	}

	return u.affected, nil
}

// Rollback aborts the transaction. After Commit it is a no-op.
func (u *unitOfWork) Rollback(_ context.Context) error {
	if u.done {
		return nil
	}

	u.done = true

	err := u.tx.Rollback()
	if err != nil {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}

	return nil
}

// mapConstraintError translates the step-order unique index violation into
// the portable sentinel so callers never match on driver error types.
func mapConstraintError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == "process_steps_process_order_key" {
		return fmt.Errorf("%v: %w", pqErr.Detail, persistence.ErrDuplicateStepOrder)
	}

	return err
}
