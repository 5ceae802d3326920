// Package memory provides an in-memory persistence implementation with
// staged, atomically committed writes. It backs tests and local development;
// reads always observe committed state, matching the read-committed
// isolation the orchestrator assumes.
package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/calvora/stepflow/pkg/models"
	"github.com/calvora/stepflow/pkg/persistence"
)

// Persistence implements persistence.Persistence over plain maps guarded by
// a single mutex. Identity values come from a shared counter, assigned at
// Insert so entities created in one transaction can reference each other
// before Commit.
type Persistence struct {
	logger *slog.Logger

	mu          sync.RWMutex
	processes   map[int64]*models.Process
	steps       map[int64]*models.ProcessStep
	executions  map[int64]*models.ProcessExecution
	departments map[int64]*models.Department
	users       map[int64]*models.User
	roles       map[int64]*models.Role
	nextID      int64
}

// NewPersistence creates an empty in-memory store.
func NewPersistence(logger *slog.Logger) *Persistence {
	if logger == nil {
		logger = slog.Default()
	}

	return &Persistence{
		logger:      logger,
		processes:   make(map[int64]*models.Process),
		steps:       make(map[int64]*models.ProcessStep),
		executions:  make(map[int64]*models.ProcessExecution),
		departments: make(map[int64]*models.Department),
		users:       make(map[int64]*models.User),
		roles:       make(map[int64]*models.Role),
	}
}

// Begin opens a new unit of work.
func (p *Persistence) Begin(_ context.Context) (persistence.UnitOfWork, error) {
	return newUnitOfWork(p), nil
}

// Processes returns the committed-state process repository.
func (p *Persistence) Processes() persistence.ProcessRepository {
	return &processRepository{store: p}
}

// Steps returns the committed-state step repository.
func (p *Persistence) Steps() persistence.StepRepository {
	return &stepRepository{store: p}
}

// Executions returns the committed-state execution repository.
func (p *Persistence) Executions() persistence.ExecutionRepository {
	return &executionRepository{store: p}
}

// Departments returns the department lookup.
func (p *Persistence) Departments() persistence.DepartmentRepository {
	return &departmentRepository{store: p}
}

// Users returns the user lookup.
func (p *Persistence) Users() persistence.UserRepository {
	return &userRepository{store: p}
}

// Roles returns the role lookup.
func (p *Persistence) Roles() persistence.RoleRepository {
	return &roleRepository{store: p}
}

// HealthCheck always succeeds for the in-memory store.
func (p *Persistence) HealthCheck(_ context.Context) error {
	return nil
}

// Close discards nothing; the store lives and dies with the process.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

func (p *Persistence) allocateID() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++

	return p.nextID
}

// SeedDepartment stores a department directly, assigning an id when unset.
// Directory entities are read-only collaborators for the orchestrator, so
// seeding bypasses the unit of work.
func (p *Persistence) SeedDepartment(department *models.Department) *models.Department {
	if department.ID == 0 {
		department.ID = p.allocateID()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.departments[department.ID] = department

	return department
}

// SeedUser stores a user directly, assigning an id when unset.
func (p *Persistence) SeedUser(user *models.User) *models.User {
	if user.ID == 0 {
		user.ID = p.allocateID()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.users[user.ID] = user

	return user
}

// SeedRole stores a role directly, assigning an id when unset.
func (p *Persistence) SeedRole(role *models.Role) *models.Role {
	if role.ID == 0 {
		role.ID = p.allocateID()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.roles[role.ID] = role

	return role
}
