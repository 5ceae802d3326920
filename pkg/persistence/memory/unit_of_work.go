package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/calvora/stepflow/pkg/models"
	"github.com/calvora/stepflow/pkg/persistence"
	"github.com/google/uuid"
)

var errFinished = errors.New("unit of work already finished")

const (
	opInsert = iota
	opUpdate
	opDelete
)

const (
	tableProcess = iota
	tableStep
	tableExecution
)

type mutation struct {
	op     int
	table  int
	id     int64
	entity any // cloned at staging time, nil for deletes
}

// unitOfWork stages mutations and applies them under the store lock at
// Commit. Reads through its repositories observe committed state only.
type unitOfWork struct {
	id    string
	store *Persistence

	mu     sync.Mutex
	staged []mutation
	done   bool
}

func newUnitOfWork(store *Persistence) *unitOfWork {
	return &unitOfWork{id: uuid.NewString(), store: store}
}

func (u *unitOfWork) Processes() persistence.ProcessRepository {
	return &processRepository{store: u.store, uow: u}
}

func (u *unitOfWork) Steps() persistence.StepRepository {
	return &stepRepository{store: u.store, uow: u}
}

func (u *unitOfWork) Executions() persistence.ExecutionRepository {
	return &executionRepository{store: u.store, uow: u}
}

func (u *unitOfWork) stage(m mutation) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.done {
		return errFinished
	}

	u.staged = append(u.staged, m)

	return nil
}

// Commit applies all staged mutations atomically. The duplicate-step-order
// check mirrors the unique index a SQL backend carries on
// (process_id, step_order); on violation nothing is applied.
func (u *unitOfWork) Commit(_ context.Context) (int64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.done {
		return 0, errFinished
	}

	u.done = true

	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	if err := u.checkStepOrders(); err != nil {
		u.staged = nil

		return 0, err
	}

	var affected int64
	for _, m := range u.staged {
		affected += u.apply(m)
	}

	u.staged = nil
	u.store.logger.Debug("unit of work committed", "tx", u.id, "affected", affected)

	return affected, nil
}

// Rollback discards staged mutations. After Commit it is a no-op.
func (u *unitOfWork) Rollback(_ context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.done {
		return nil
	}

	u.done = true
	u.staged = nil

	return nil
}

// checkStepOrders replays the staged step mutations against a working copy
// of the committed step set, rejecting any (process, order) collision.
// Caller holds the store lock.
func (u *unitOfWork) checkStepOrders() error {
	working := make(map[int64]*models.ProcessStep, len(u.store.steps))
	for id, step := range u.store.steps {
		working[id] = step
	}

	for _, m := range u.staged {
		if m.table != tableStep {
			continue
		}

		switch m.op {
		case opDelete:
			delete(working, m.id)
		case opInsert, opUpdate:
			step, ok := m.entity.(*models.ProcessStep)
			if !ok {
				continue
			}

			for id, other := range working {
				if id != step.ID && other.ProcessID == step.ProcessID && other.StepOrder == step.StepOrder {
					return fmt.Errorf("process %d already has a step at order %d: %w",
						step.ProcessID, step.StepOrder, persistence.ErrDuplicateStepOrder)
				}
			}

			working[step.ID] = step
		}
	}

	return nil
}

// apply writes one mutation into the committed maps and returns the number
// of rows it affected. Caller holds the store lock.
func (u *unitOfWork) apply(m mutation) int64 {
	switch m.table {
	case tableProcess:
		return applyTo(u.store.processes, m)
	case tableStep:
		return applyTo(u.store.steps, m)
	case tableExecution:
		return applyTo(u.store.executions, m)
	}

	return 0
}

func applyTo[T any](table map[int64]*T, m mutation) int64 {
	switch m.op {
	case opInsert:
		table[m.id] = m.entity.(*T)

		return 1
	case opUpdate:
		if _, ok := table[m.id]; !ok {
			return 0
		}

		table[m.id] = m.entity.(*T)

		return 1
	case opDelete:
		if _, ok := table[m.id]; !ok {
			return 0
		}

		delete(table, m.id)

		return 1
	}

	return 0
}
