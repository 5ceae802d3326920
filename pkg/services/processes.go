package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/calvora/stepflow/pkg/models"
	"github.com/calvora/stepflow/pkg/persistence"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

var allowedSortFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"name":       true,
}

// ProcessQuery serves read-side operations over process definitions and
// their executions, plus process deletion.
type ProcessQuery struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

// NewProcessQuery creates a query service bound to a persistence backend.
func NewProcessQuery(p persistence.Persistence, logger *slog.Logger) *ProcessQuery {
	if logger == nil {
		logger = slog.Default()
	}

	return &ProcessQuery{
		persistence: p,
		logger:      logger.With("module", "process_query"),
	}
}

// ListProcessesRequest carries pagination, sorting and filter parameters.
type ListProcessesRequest struct {
	DepartmentID *int64
	Limit        int
	Offset       int
	SortBy       string // created_at, updated_at or name
	SortOrder    string // asc or desc
}

// ListProcessesResponse is a page of processes plus paging metadata.
type ListProcessesResponse struct {
	Processes   []*models.Process `json:"processes"`
	TotalCount  int               `json:"total_count"`
	HasNextPage bool              `json:"has_next_page"`
}

// List returns a page of process definitions. Sorting is restricted to an
// allowlist of fields; unknown fields or orders are rejected rather than
// silently ignored.
func (s *ProcessQuery) List(ctx context.Context, req ListProcessesRequest) (*ListProcessesResponse, error) {
	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}

	if !allowedSortFields[sortBy] {
		return nil, fmt.Errorf("sort field %q: %w", sortBy, ErrInvalidSortField)
	}

	sortOrder := strings.ToLower(req.SortOrder)
	if sortOrder == "" {
		sortOrder = "asc"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		return nil, fmt.Errorf("sort order %q: %w", req.SortOrder, ErrInvalidSortOrder)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}

	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	var (
		processes []*models.Process
		err       error
	)

	if req.DepartmentID != nil {
		processes, err = s.persistence.Processes().GetByDepartment(ctx, *req.DepartmentID)
	} else {
		processes, err = s.persistence.Processes().GetAll(ctx)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	sortProcesses(processes, sortBy, sortOrder == "desc")

	total := len(processes)

	if offset >= total {
		processes = nil
	} else {
		end := offset + limit
		if end > total {
			end = total
		}

		processes = processes[offset:end]
	}

	return &ListProcessesResponse{
		Processes:   processes,
		TotalCount:  total,
		HasNextPage: offset+len(processes) < total,
	}, nil
}

// FetchByID returns a process definition with its steps attached, ordered by
// step order ascending.
func (s *ProcessQuery) FetchByID(ctx context.Context, id int64) (*models.Process, error) {
	process, err := s.persistence.Processes().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load process: %w", err)
	}

	if process == nil {
		return nil, persistence.NewEntityError("FetchByID", "process", id, ErrProcessNotFound)
	}

	steps, err := s.persistence.Steps().GetByProcess(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load steps: %w", err)
	}

	process.Steps = steps

	return process, nil
}

// ListExecutions returns all executions of a process.
func (s *ProcessQuery) ListExecutions(ctx context.Context, processID int64) ([]*models.ProcessExecution, error) {
	process, err := s.persistence.Processes().GetByID(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("failed to load process: %w", err)
	}

	if process == nil {
		return nil, persistence.NewEntityError("ListExecutions", "process", processID, ErrProcessNotFound)
	}

	executions, err := s.persistence.Executions().GetByProcess(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("failed to load executions: %w", err)
	}

	return executions, nil
}

// Delete removes a process definition together with its steps and
// executions, atomically.
func (s *ProcessQuery) Delete(ctx context.Context, id int64) error {
	process, err := s.persistence.Processes().GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load process: %w", err)
	}

	if process == nil {
		return persistence.NewEntityError("Delete", "process", id, ErrProcessNotFound)
	}

	steps, err := s.persistence.Steps().GetByProcess(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load steps: %w", err)
	}

	executions, err := s.persistence.Executions().GetByProcess(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load executions: %w", err)
	}

	uow, err := s.persistence.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin unit of work: %w", err)
	}

	defer func() { _ = uow.Rollback(ctx) }()

	for _, execution := range executions {
		err = uow.Executions().Delete(ctx, execution.ID)
		if err != nil {
			return fmt.Errorf("failed to delete execution: %w", err)
		}
	}

	for _, step := range steps {
		err = uow.Steps().Delete(ctx, step.ID)
		if err != nil {
			return fmt.Errorf("failed to delete step: %w", err)
		}
	}

	err = uow.Processes().Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete process: %w", err)
	}

	_, err = uow.Commit(ctx)
	if err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}

	s.logger.InfoContext(ctx, "process deleted",
		"process_id", id, "steps", len(steps), "executions", len(executions))

	return nil
}

// HealthCheck reports whether the persistence backend is reachable.
func (s *ProcessQuery) HealthCheck(ctx context.Context) error {
	return s.persistence.HealthCheck(ctx)
}

func sortProcesses(processes []*models.Process, field string, desc bool) {
	less := func(i, j int) bool {
		a, b := processes[i], processes[j]

		switch field {
		case "name":
			if a.Name != b.Name {
				return a.Name < b.Name
			}
		case "updated_at":
			at, bt := a.CreatedAt, b.CreatedAt
			if a.UpdatedAt != nil {
				at = *a.UpdatedAt
			}

			if b.UpdatedAt != nil {
				bt = *b.UpdatedAt
			}

			if !at.Equal(bt) {
				return at.Before(bt)
			}
		default: // created_at
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		}

		return a.ID < b.ID
	}

	if desc {
		sort.SliceStable(processes, func(i, j int) bool { return less(j, i) })
	} else {
		sort.SliceStable(processes, less)
	}
}
