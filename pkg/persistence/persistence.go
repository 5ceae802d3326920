// Package persistence provides the data storage abstraction for processes,
// steps, and executions.
package persistence

import (
	"context"

	"github.com/calvora/stepflow/pkg/models"
)

// ProcessRepository stores process definitions. GetByID returns (nil, nil)
// when no process exists for the id.
type ProcessRepository interface {
	GetAll(ctx context.Context) ([]*models.Process, error)
	GetByID(ctx context.Context, id int64) (*models.Process, error)
	GetByDepartment(ctx context.Context, departmentID int64) ([]*models.Process, error)
	Insert(ctx context.Context, process *models.Process) error
	Update(ctx context.Context, process *models.Process) error
	Delete(ctx context.Context, id int64) error
}

// StepRepository stores process steps. GetByProcess returns the steps of a
// process ordered by step order ascending.
type StepRepository interface {
	GetAll(ctx context.Context) ([]*models.ProcessStep, error)
	GetByID(ctx context.Context, id int64) (*models.ProcessStep, error)
	GetByProcess(ctx context.Context, processID int64) ([]*models.ProcessStep, error)
	Insert(ctx context.Context, step *models.ProcessStep) error
	Update(ctx context.Context, step *models.ProcessStep) error
	Delete(ctx context.Context, id int64) error
}

// ExecutionRepository stores process executions.
type ExecutionRepository interface {
	GetAll(ctx context.Context) ([]*models.ProcessExecution, error)
	GetByID(ctx context.Context, id int64) (*models.ProcessExecution, error)
	GetByProcess(ctx context.Context, processID int64) ([]*models.ProcessExecution, error)
	Insert(ctx context.Context, execution *models.ProcessExecution) error
	Update(ctx context.Context, execution *models.ProcessExecution) error
	Delete(ctx context.Context, id int64) error
}

// DepartmentRepository resolves department references.
type DepartmentRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Department, error)
}

// UserRepository resolves user references.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// RoleRepository resolves role references.
type RoleRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Role, error)
}

// UnitOfWork scopes repository access to one logical transaction. Inserts
// and updates are staged; nothing becomes visible to other readers before
// Commit. Insert assigns the entity's id immediately so callers can
// cross-reference entities created in the same transaction.
type UnitOfWork interface {
	Processes() ProcessRepository
	Steps() StepRepository
	Executions() ExecutionRepository

	// Commit atomically persists all staged writes and returns the number
	// of affected rows. The count is informational only.
	Commit(ctx context.Context) (int64, error)

	// Rollback discards all staged writes. Calling it after a successful
	// Commit is a no-op.
	Rollback(ctx context.Context) error
}

// Persistence is the storage entry point. The top-level repositories read
// committed state; mutations go through a UnitOfWork.
type Persistence interface {
	Begin(ctx context.Context) (UnitOfWork, error)

	Processes() ProcessRepository
	Steps() StepRepository
	Executions() ExecutionRepository
	Departments() DepartmentRepository
	Users() UserRepository
	Roles() RoleRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
