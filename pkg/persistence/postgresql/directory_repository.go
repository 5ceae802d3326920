package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/calvora/stepflow/pkg/models"
)

// Directory repositories are read-only lookups; the orchestrator resolves
// references through them but never writes. Rows are managed by whatever
// system owns the organizational data.

// DepartmentRepository resolves departments by id.
type DepartmentRepository struct {
	q querier
}

// GetByID returns a department by its id, or nil when none exists.
func (r *DepartmentRepository) GetByID(ctx context.Context, id int64) (*models.Department, error) {
	query := `SELECT id, name, created_at, updated_at FROM departments WHERE id = $1`

	var (
		department models.Department
		updatedAt  sql.NullTime
	)

	err := r.q.QueryRowContext(ctx, query, id).Scan(&department.ID, &department.Name, &department.CreatedAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan department: %w", err)
	}

	department.UpdatedAt = nullableTime(updatedAt)

	return &department, nil
}

// UserRepository resolves users by id.
type UserRepository struct {
	q querier
}

// GetByID returns a user by its id, or nil when none exists.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, name, active, created_at, updated_at FROM users WHERE id = $1`

	var (
		user      models.User
		updatedAt sql.NullTime
	)

	err := r.q.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Name, &user.Active, &user.CreatedAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	user.UpdatedAt = nullableTime(updatedAt)

	return &user, nil
}

// RoleRepository resolves roles by id.
type RoleRepository struct {
	q querier
}

// GetByID returns a role by its id, or nil when none exists.
func (r *RoleRepository) GetByID(ctx context.Context, id int64) (*models.Role, error) {
	query := `SELECT id, name, created_at, updated_at FROM roles WHERE id = $1`

	var (
		role      models.Role
		updatedAt sql.NullTime
	)

	err := r.q.QueryRowContext(ctx, query, id).Scan(&role.ID, &role.Name, &role.CreatedAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan role: %w", err)
	}

	role.UpdatedAt = nullableTime(updatedAt)

	return &role, nil
}
