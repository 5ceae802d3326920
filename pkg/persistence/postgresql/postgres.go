// Package postgresql provides the PostgreSQL persistence implementation for
// processes, steps, and executions.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/calvora/stepflow/pkg/persistence"
	_ "github.com/lib/pq" // postgres driver
)

// querier is satisfied by both *sql.DB and *sql.Tx so repositories can run
// against the pool or inside a unit of work.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPersistence connects to PostgreSQL and runs pending migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	if logger == nil {
		logger = slog.Default()
	}

	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := newMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{db: database, logger: logger}, nil
}

// Begin opens a database transaction wrapped as a unit of work.
func (p *Persistence) Begin(ctx context.Context) (persistence.UnitOfWork, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return newUnitOfWork(tx, p.logger), nil
}

// Processes returns the process repository bound to the connection pool.
func (p *Persistence) Processes() persistence.ProcessRepository {
	return &ProcessRepository{q: p.db, logger: p.logger}
}

// Steps returns the step repository bound to the connection pool.
func (p *Persistence) Steps() persistence.StepRepository {
	return &StepRepository{q: p.db, logger: p.logger}
}

// Executions returns the execution repository bound to the connection pool.
func (p *Persistence) Executions() persistence.ExecutionRepository {
	return &ExecutionRepository{q: p.db, logger: p.logger}
}

// Departments returns the department lookup.
func (p *Persistence) Departments() persistence.DepartmentRepository {
	return &DepartmentRepository{q: p.db}
}

// Users returns the user lookup.
func (p *Persistence) Users() persistence.UserRepository {
	return &UserRepository{q: p.db}
}

// Roles returns the role lookup.
func (p *Persistence) Roles() persistence.RoleRepository {
	return &RoleRepository{q: p.db}
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
