package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
)

const currentSchemaVersion = 1

// migrations returns the schema by version. The unique index on
// (process_id, step_order) backs the application-level duplicate-order
// check: two concurrent AddStep calls can both pass the in-memory check,
// and only the index catches the second committer.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS departments (
				id BIGSERIAL PRIMARY KEY,
				name TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ
			);

			CREATE TABLE IF NOT EXISTS users (
				id BIGSERIAL PRIMARY KEY,
				name TEXT NOT NULL,
				active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ
			);

			CREATE TABLE IF NOT EXISTS roles (
				id BIGSERIAL PRIMARY KEY,
				name TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ
			);

			CREATE TABLE IF NOT EXISTS processes (
				id BIGSERIAL PRIMARY KEY,
				name TEXT NOT NULL,
				department_id BIGINT REFERENCES departments(id),
				description TEXT NOT NULL DEFAULT '',
				created_by_id BIGINT REFERENCES users(id),
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ
			);

			CREATE TABLE IF NOT EXISTS process_steps (
				id BIGSERIAL PRIMARY KEY,
				process_id BIGINT NOT NULL REFERENCES processes(id) ON DELETE CASCADE,
				name TEXT NOT NULL,
				step_order INTEGER NOT NULL CHECK (step_order >= 0),
				assigned_role_id BIGINT REFERENCES roles(id),
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ,
				CONSTRAINT process_steps_process_order_key UNIQUE (process_id, step_order)
			);

			CREATE TABLE IF NOT EXISTS process_executions (
				id BIGSERIAL PRIMARY KEY,
				process_id BIGINT NOT NULL REFERENCES processes(id),
				step_id BIGINT NOT NULL REFERENCES process_steps(id),
				user_id BIGINT REFERENCES users(id),
				status SMALLINT NOT NULL DEFAULT 0,
				started_at TIMESTAMPTZ,
				completed_at TIMESTAMPTZ,
				remarks TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ
			);

			CREATE INDEX IF NOT EXISTS process_executions_process_idx
				ON process_executions (process_id);
		`,
	}
}

// migrationManager handles database schema migrations.
type migrationManager struct {
	db         *sql.DB
	logger     *slog.Logger
	migrations map[int]string
}

func newMigrationManager(logger *slog.Logger, db *sql.DB, migrations map[int]string) *migrationManager {
	return &migrationManager{db: db, logger: logger, migrations: migrations}
}

// RunMigrations handles database schema creation and updates.
func (m *migrationManager) RunMigrations(ctx context.Context) error {
	m.logger.InfoContext(ctx, "Starting database migrations")

	err := m.createMigrationsTable(ctx)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := m.getCurrentSchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	m.logger.InfoContext(ctx, "Current schema version", "version", currentVersion)

	if currentVersion < currentSchemaVersion {
		err := m.applyMigrations(ctx, currentVersion)
		if err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	m.logger.InfoContext(ctx, "Database migrations completed", "version", currentSchemaVersion)

	return nil
}

func (m *migrationManager) createMigrationsTable(ctx context.Context) error {
	createMigrationsSQL := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`

	_, err := m.db.ExecContext(ctx, createMigrationsSQL)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	return nil
}

func (m *migrationManager) getCurrentSchemaVersion(ctx context.Context) (int, error) {
	var version int

	err := m.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to query current schema version: %w", err)
	}

	return version, nil
}

// applyMigrations applies all migrations above the current version in
// ascending order.
func (m *migrationManager) applyMigrations(ctx context.Context, fromVersion int) error {
	versions := make([]int, 0, len(m.migrations))
	for version := range m.migrations {
		if version > fromVersion {
			versions = append(versions, version)
		}
	}

	sort.Ints(versions)

	for _, version := range versions {
		m.logger.InfoContext(ctx, "Applying migration", "version", version)

		transaction, err := m.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", version, err)
		}

		_, err = transaction.ExecContext(ctx, m.migrations[version])
		if err != nil {
			_ = transaction.Rollback()

			return fmt.Errorf("failed to execute migration %d: %w", version, err)
		}

		_, err = transaction.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version)
		if err != nil {
			_ = transaction.Rollback()

			return fmt.Errorf("failed to record migration %d: %w", version, err)
		}

		err = transaction.Commit()
		if err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", version, err)
		}

		m.logger.InfoContext(ctx, "Migration applied successfully", "version", version)
	}

	return nil
}
