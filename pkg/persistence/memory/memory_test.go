package memory

import (
	"testing"
	"time"

	"github.com/calvora/stepflow/pkg/models"
	"github.com/calvora/stepflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 {
	return &v
}

func newTestProcess(t *testing.T, name string) *models.Process {
	t.Helper()

	process, err := models.NewProcess(name, nil, "", nil)
	require.NoError(t, err)

	return process
}

func TestPersistence_InsertAssignsID(t *testing.T) {
	t.Parallel()

	store := NewPersistence(nil)
	ctx := t.Context()

	process := newTestProcess(t, "Onboarding")
	require.NoError(t, store.Processes().Insert(ctx, process))
	assert.Positive(t, process.ID)

	loaded, err := store.Processes().GetByID(ctx, process.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Onboarding", loaded.Name)
}

func TestPersistence_GetByIDMissingReturnsNil(t *testing.T) {
	t.Parallel()

	store := NewPersistence(nil)

	process, err := store.Processes().GetByID(t.Context(), 42)
	require.NoError(t, err)
	assert.Nil(t, process)

	step, err := store.Steps().GetByID(t.Context(), 42)
	require.NoError(t, err)
	assert.Nil(t, step)

	execution, err := store.Executions().GetByID(t.Context(), 42)
	require.NoError(t, err)
	assert.Nil(t, execution)
}

func TestPersistence_GetByDepartment(t *testing.T) {
	t.Parallel()

	store := NewPersistence(nil)
	ctx := t.Context()

	inDept, err := models.NewProcess("Hiring", int64Ptr(7), "", nil)
	require.NoError(t, err)
	require.NoError(t, store.Processes().Insert(ctx, inDept))

	outDept := newTestProcess(t, "Procurement")
	require.NoError(t, store.Processes().Insert(ctx, outDept))

	processes, err := store.Processes().GetByDepartment(ctx, 7)
	require.NoError(t, err)
	require.Len(t, processes, 1)
	assert.Equal(t, "Hiring", processes[0].Name)
}

func TestStepRepository_GetByProcessOrdering(t *testing.T) {
	t.Parallel()

	store := NewPersistence(nil)
	ctx := t.Context()

	process := newTestProcess(t, "Onboarding")
	require.NoError(t, store.Processes().Insert(ctx, process))

	for _, order := range []int{20, 0, 10} {
		step, err := models.NewProcessStep(process.ID, "Step", order, nil)
		require.NoError(t, err)
		require.NoError(t, store.Steps().Insert(ctx, step))
	}

	steps, err := store.Steps().GetByProcess(ctx, process.ID)
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, 0, steps[0].StepOrder)
	assert.Equal(t, 10, steps[1].StepOrder)
	assert.Equal(t, 20, steps[2].StepOrder)
}

func TestUnitOfWork_StagedWritesInvisibleBeforeCommit(t *testing.T) {
	t.Parallel()

	store := NewPersistence(nil)
	ctx := t.Context()

	uow, err := store.Begin(ctx)
	require.NoError(t, err)

	process := newTestProcess(t, "Onboarding")
	require.NoError(t, uow.Processes().Insert(ctx, process))
	assert.Positive(t, process.ID, "id is assigned at insert, before commit")

	// Not visible through the committed-state repositories yet.
	loaded, err := store.Processes().GetByID(ctx, process.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	affected, err := uow.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	loaded, err = store.Processes().GetByID(ctx, process.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
}

func TestUnitOfWork_RollbackDiscardsStagedWrites(t *testing.T) {
	t.Parallel()

	store := NewPersistence(nil)
	ctx := t.Context()

	uow, err := store.Begin(ctx)
	require.NoError(t, err)

	process := newTestProcess(t, "Onboarding")
	require.NoError(t, uow.Processes().Insert(ctx, process))
	require.NoError(t, uow.Rollback(ctx))

	loaded, err := store.Processes().GetByID(ctx, process.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// The unit of work is finished; further use fails.
	require.Error(t, uow.Processes().Insert(ctx, newTestProcess(t, "Other")))
}

func TestUnitOfWork_RollbackAfterCommitIsNoop(t *testing.T) {
	t.Parallel()

	store := NewPersistence(nil)
	ctx := t.Context()

	uow, err := store.Begin(ctx)
	require.NoError(t, err)

	process := newTestProcess(t, "Onboarding")
	require.NoError(t, uow.Processes().Insert(ctx, process))

	_, err = uow.Commit(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.Rollback(ctx))

	loaded, err := store.Processes().GetByID(ctx, process.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
}

func TestUnitOfWork_DuplicateStepOrderRejectedAtCommit(t *testing.T) {
	t.Parallel()

	store := NewPersistence(nil)
	ctx := t.Context()

	process := newTestProcess(t, "Onboarding")
	require.NoError(t, store.Processes().Insert(ctx, process))

	existing, err := models.NewProcessStep(process.ID, "Collect documents", 5, nil)
	require.NoError(t, err)
	require.NoError(t, store.Steps().Insert(ctx, existing))

	uow, err := store.Begin(ctx)
	require.NoError(t, err)

	colliding, err := models.NewProcessStep(process.ID, "Create accounts", 5, nil)
	require.NoError(t, err)
	require.NoError(t, uow.Steps().Insert(ctx, colliding))

	// Something unrelated staged alongside must not survive either.
	other := newTestProcess(t, "Procurement")
	require.NoError(t, uow.Processes().Insert(ctx, other))

	_, err = uow.Commit(ctx)
	require.Error(t, err)
	assert.True(t, persistence.IsDuplicateStepOrder(err))

	loaded, err := store.Steps().GetByID(ctx, colliding.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	loadedProcess, err := store.Processes().GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Nil(t, loadedProcess, "commit is all or nothing")
}

func TestUnitOfWork_SameOrderAcrossProcessesIsFine(t *testing.T) {
	t.Parallel()

	store := NewPersistence(nil)
	ctx := t.Context()

	first := newTestProcess(t, "Onboarding")
	require.NoError(t, store.Processes().Insert(ctx, first))

	second := newTestProcess(t, "Offboarding")
	require.NoError(t, store.Processes().Insert(ctx, second))

	uow, err := store.Begin(ctx)
	require.NoError(t, err)

	for _, processID := range []int64{first.ID, second.ID} {
		step, err := models.NewProcessStep(processID, "Review", 1, nil)
		require.NoError(t, err)
		require.NoError(t, uow.Steps().Insert(ctx, step))
	}

	affected, err := uow.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
}

func TestUnitOfWork_AffectedCountsMissingRowsAsZero(t *testing.T) {
	t.Parallel()

	store := NewPersistence(nil)
	ctx := t.Context()

	uow, err := store.Begin(ctx)
	require.NoError(t, err)

	ghost := models.ReconstituteProcess(999, "Ghost", nil, "", nil, time.Now().UTC(), nil)
	require.NoError(t, uow.Processes().Update(ctx, ghost))
	require.NoError(t, uow.Processes().Delete(ctx, 998))

	affected, err := uow.Commit(ctx)
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestSeedDirectoryEntities(t *testing.T) {
	t.Parallel()

	store := NewPersistence(nil)
	ctx := t.Context()

	department := store.SeedDepartment(&models.Department{Name: "Finance"})
	user := store.SeedUser(&models.User{Name: "Dana", Active: true})
	role := store.SeedRole(&models.Role{Name: "Approver"})

	gotDepartment, err := store.Departments().GetByID(ctx, department.ID)
	require.NoError(t, err)
	require.NotNil(t, gotDepartment)
	assert.Equal(t, "Finance", gotDepartment.Name)

	gotUser, err := store.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, gotUser)
	assert.True(t, gotUser.Active)

	gotRole, err := store.Roles().GetByID(ctx, role.ID)
	require.NoError(t, err)
	require.NotNil(t, gotRole)

	missing, err := store.Users().GetByID(ctx, 12345)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
