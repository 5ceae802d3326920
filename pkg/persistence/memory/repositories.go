package memory

import (
	"context"
	"sort"

	"github.com/calvora/stepflow/pkg/models"
)

// Repositories read committed state. When bound to a unit of work they
// stage writes on it; unbound repositories commit each write as its own
// single-mutation transaction.

type processRepository struct {
	store *Persistence
	uow   *unitOfWork
}

func (r *processRepository) GetAll(_ context.Context) ([]*models.Process, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	processes := make([]*models.Process, 0, len(r.store.processes))
	for _, process := range r.store.processes {
		processes = append(processes, cloneProcess(process))
	}

	sort.Slice(processes, func(i, j int) bool { return processes[i].ID < processes[j].ID })

	return processes, nil
}

func (r *processRepository) GetByID(_ context.Context, id int64) (*models.Process, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	process, ok := r.store.processes[id]
	if !ok {
		return nil, nil
	}

	return cloneProcess(process), nil
}

func (r *processRepository) GetByDepartment(_ context.Context, departmentID int64) ([]*models.Process, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var processes []*models.Process

	for _, process := range r.store.processes {
		if process.DepartmentID != nil && *process.DepartmentID == departmentID {
			processes = append(processes, cloneProcess(process))
		}
	}

	sort.Slice(processes, func(i, j int) bool { return processes[i].ID < processes[j].ID })

	return processes, nil
}

func (r *processRepository) Insert(ctx context.Context, process *models.Process) error {
	if process.ID == 0 {
		process.ID = r.store.allocateID()
	}

	return r.write(ctx, mutation{op: opInsert, table: tableProcess, id: process.ID, entity: cloneProcess(process)})
}

func (r *processRepository) Update(ctx context.Context, process *models.Process) error {
	return r.write(ctx, mutation{op: opUpdate, table: tableProcess, id: process.ID, entity: cloneProcess(process)})
}

func (r *processRepository) Delete(ctx context.Context, id int64) error {
	return r.write(ctx, mutation{op: opDelete, table: tableProcess, id: id})
}

func (r *processRepository) write(ctx context.Context, m mutation) error {
	if r.uow != nil {
		return r.uow.stage(m)
	}

	uow := newUnitOfWork(r.store)
	if err := uow.stage(m); err != nil {
		return err
	}

	_, err := uow.Commit(ctx)

	return err
}

type stepRepository struct {
	store *Persistence
	uow   *unitOfWork
}

func (r *stepRepository) GetAll(_ context.Context) ([]*models.ProcessStep, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	steps := make([]*models.ProcessStep, 0, len(r.store.steps))
	for _, step := range r.store.steps {
		steps = append(steps, cloneStep(step))
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].ID < steps[j].ID })

	return steps, nil
}

func (r *stepRepository) GetByID(_ context.Context, id int64) (*models.ProcessStep, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	step, ok := r.store.steps[id]
	if !ok {
		return nil, nil
	}

	return cloneStep(step), nil
}

func (r *stepRepository) GetByProcess(_ context.Context, processID int64) ([]*models.ProcessStep, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var steps []*models.ProcessStep

	for _, step := range r.store.steps {
		if step.ProcessID == processID {
			steps = append(steps, cloneStep(step))
		}
	}

	sort.Slice(steps, func(i, j int) bool {
		if steps[i].StepOrder != steps[j].StepOrder {
			return steps[i].StepOrder < steps[j].StepOrder
		}

		return steps[i].ID < steps[j].ID
	})

	return steps, nil
}

func (r *stepRepository) Insert(ctx context.Context, step *models.ProcessStep) error {
	if step.ID == 0 {
		step.ID = r.store.allocateID()
	}

	return r.write(ctx, mutation{op: opInsert, table: tableStep, id: step.ID, entity: cloneStep(step)})
}

func (r *stepRepository) Update(ctx context.Context, step *models.ProcessStep) error {
	return r.write(ctx, mutation{op: opUpdate, table: tableStep, id: step.ID, entity: cloneStep(step)})
}

func (r *stepRepository) Delete(ctx context.Context, id int64) error {
	return r.write(ctx, mutation{op: opDelete, table: tableStep, id: id})
}

func (r *stepRepository) write(ctx context.Context, m mutation) error {
	if r.uow != nil {
		return r.uow.stage(m)
	}

	uow := newUnitOfWork(r.store)
	if err := uow.stage(m); err != nil {
		return err
	}

	_, err := uow.Commit(ctx)

	return err
}

type executionRepository struct {
	store *Persistence
	uow   *unitOfWork
}

func (r *executionRepository) GetAll(_ context.Context) ([]*models.ProcessExecution, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	executions := make([]*models.ProcessExecution, 0, len(r.store.executions))
	for _, execution := range r.store.executions {
		executions = append(executions, cloneExecution(execution))
	}

	sort.Slice(executions, func(i, j int) bool { return executions[i].ID < executions[j].ID })

	return executions, nil
}

func (r *executionRepository) GetByID(_ context.Context, id int64) (*models.ProcessExecution, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	execution, ok := r.store.executions[id]
	if !ok {
		return nil, nil
	}

	return cloneExecution(execution), nil
}

func (r *executionRepository) GetByProcess(_ context.Context, processID int64) ([]*models.ProcessExecution, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var executions []*models.ProcessExecution

	for _, execution := range r.store.executions {
		if execution.ProcessID == processID {
			executions = append(executions, cloneExecution(execution))
		}
	}

	sort.Slice(executions, func(i, j int) bool { return executions[i].ID < executions[j].ID })

	return executions, nil
}

func (r *executionRepository) Insert(ctx context.Context, execution *models.ProcessExecution) error {
	if execution.ID == 0 {
		execution.ID = r.store.allocateID()
	}

	return r.write(ctx, mutation{op: opInsert, table: tableExecution, id: execution.ID, entity: cloneExecution(execution)})
}

func (r *executionRepository) Update(ctx context.Context, execution *models.ProcessExecution) error {
	return r.write(ctx, mutation{op: opUpdate, table: tableExecution, id: execution.ID, entity: cloneExecution(execution)})
}

func (r *executionRepository) Delete(ctx context.Context, id int64) error {
	return r.write(ctx, mutation{op: opDelete, table: tableExecution, id: id})
}

func (r *executionRepository) write(ctx context.Context, m mutation) error {
	if r.uow != nil {
		return r.uow.stage(m)
	}

	uow := newUnitOfWork(r.store)
	if err := uow.stage(m); err != nil {
		return err
	}

	_, err := uow.Commit(ctx)

	return err
}

type departmentRepository struct {
	store *Persistence
}

func (r *departmentRepository) GetByID(_ context.Context, id int64) (*models.Department, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	department, ok := r.store.departments[id]
	if !ok {
		return nil, nil
	}

	clone := *department

	return &clone, nil
}

type userRepository struct {
	store *Persistence
}

func (r *userRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	user, ok := r.store.users[id]
	if !ok {
		return nil, nil
	}

	clone := *user

	return &clone, nil
}

type roleRepository struct {
	store *Persistence
}

func (r *roleRepository) GetByID(_ context.Context, id int64) (*models.Role, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	role, ok := r.store.roles[id]
	if !ok {
		return nil, nil
	}

	clone := *role

	return &clone, nil
}
