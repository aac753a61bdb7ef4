package payroll_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/comp-engine/calendar"
	"github.com/warp/comp-engine/payroll"
	"github.com/warp/comp-engine/scoring"
	"github.com/warp/comp-engine/store/memory"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

// testCycle is Nov 19 - Dec 18 2025: 22 working days without holidays.
func testCycle() scoring.BillingCycle {
	return scoring.ResolveCycle(time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC))
}

func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	ctx := context.Background()

	users := []payroll.User{
		{ID: "alice", Name: "Alice", Email: "alice@example.com", BaseCompensationINR: decimal.NewFromInt(150_000)},
		{ID: "bob", Name: "Bob", Email: "bob@example.com", BaseCompensationINR: decimal.NewFromInt(120_000)},
	}
	for _, u := range users {
		require.NoError(t, store.SaveUser(ctx, u))
	}
	return store
}

func newCalculator(store payroll.Store) *payroll.Calculator {
	return payroll.NewCalculator(payroll.Sources{
		Compensation: store,
		Exceptions:   store,
		Tasks:        store,
		Incidents:    store,
	}, calendar.New(nil))
}

// =============================================================================
// LIVE PATH
// =============================================================================

func TestLiveUser_ComputesScoresAndPayout(t *testing.T) {
	// GIVEN: A user with a full-day leave inside the cycle
	// WHEN: Computing live scores
	// THEN: Availability drops by one working day's weight and the
	//       payout reflects the multiplicative formula

	ctx := context.Background()
	store := seedStore(t)
	cycle := testCycle()

	require.NoError(t, store.SaveException(ctx, scoring.WorkException{
		ID:        "exc-1",
		UserID:    "alice",
		Type:      scoring.FullDayLeave,
		Date:      time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt: time.Now().UTC(),
	}))

	live, err := newCalculator(store).LiveUser(ctx, cycle, "alice")
	require.NoError(t, err)

	assert.Equal(t, 22, live.WorkingDaysInCycle)
	assert.InDelta(t, 100.0-100.0/22.0, live.Scores.AvailabilityScore, 1e-9)
	assert.InDelta(t, 100.0, live.Scores.StabilityScore, 1e-9)
	assert.InDelta(t, 100.0, live.Scores.MonthlyOutputScore, 1e-9)

	want := scoring.ComputePayout(decimal.NewFromInt(150_000), live.Scores)
	assert.True(t, live.Payout.ExpectedINR.Equal(want.ExpectedINR))
}

func TestLiveUser_MissingCompensation(t *testing.T) {
	// GIVEN: A user with no configured compensation
	// WHEN: Computing live scores
	// THEN: A payout-step error naming the user, never a silent zero

	ctx := context.Background()
	store := seedStore(t)
	require.NoError(t, store.SaveUser(ctx, payroll.User{ID: "carol", Name: "Carol", Email: "carol@example.com"}))

	_, err := newCalculator(store).LiveUser(ctx, testCycle(), "carol")

	require.Error(t, err)
	assert.ErrorIs(t, err, scoring.ErrMissingCompensation)

	var serr *scoring.ScoreError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, scoring.UserID("carol"), serr.UserID)
	assert.Equal(t, scoring.StepPayout, serr.Step)
}

func TestLive_FailsFastOnFirstUserError(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	require.NoError(t, store.SaveUser(ctx, payroll.User{ID: "carol", Name: "Carol"}))

	_, err := newCalculator(store).Live(ctx, testCycle(), []scoring.UserID{"alice", "carol", "bob"})
	assert.ErrorIs(t, err, scoring.ErrMissingCompensation)
}

// =============================================================================
// SYNC: FREEZE SEMANTICS
// =============================================================================

func TestSync_WritesOneSnapshotPerUser(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	cycle := testCycle()

	sync := payroll.NewSynchronizer(newCalculator(store), store, nil)
	result, err := sync.Sync(ctx, cycle, []scoring.UserID{"alice", "bob"}, "admin-1")

	require.NoError(t, err)
	assert.Empty(t, result.Failures)
	require.Len(t, result.Snapshots, 2)

	stored, err := store.ListByCycle(ctx, cycle.Start)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, snap := range stored {
		assert.NotEmpty(t, snap.ID)
		assert.Equal(t, cycle.Start, snap.CycleStart)
		assert.Equal(t, cycle.End, snap.CycleEnd)
		assert.Equal(t, 22, snap.WorkingDaysInCycle)
		assert.Equal(t, "admin-1", snap.SyncedByID)
		assert.InDelta(t, 100.0, snap.AvailabilityScore, 1e-9)
	}
}

func TestSync_Idempotent_OverwritesInsteadOfAppending(t *testing.T) {
	// GIVEN: A cycle already synced once
	// WHEN: Syncing again over unchanged source data
	// THEN: Still one record per user, same ID, identical computed
	//       fields; only SnapshotDate and SyncedByID move

	ctx := context.Background()
	store := seedStore(t)
	cycle := testCycle()

	require.NoError(t, store.SaveException(ctx, scoring.WorkException{
		ID:        "exc-1",
		UserID:    "alice",
		Type:      scoring.HalfDayLeave,
		Date:      time.Date(2025, time.November, 24, 0, 0, 0, 0, time.UTC),
		CreatedAt: time.Now().UTC(),
	}))

	sync := payroll.NewSynchronizer(newCalculator(store), store, nil)
	t1 := time.Date(2025, time.December, 19, 6, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)

	sync.Now = func() time.Time { return t1 }
	_, err := sync.Sync(ctx, cycle, []scoring.UserID{"alice"}, "admin-1")
	require.NoError(t, err)

	first, err := store.Get(ctx, "alice", cycle.Start)
	require.NoError(t, err)
	require.NotNil(t, first)

	sync.Now = func() time.Time { return t2 }
	_, err = sync.Sync(ctx, cycle, []scoring.UserID{"alice"}, "admin-2")
	require.NoError(t, err)

	second, err := store.Get(ctx, "alice", cycle.Start)
	require.NoError(t, err)
	require.NotNil(t, second)

	stored, err := store.ListByCycle(ctx, cycle.Start)
	require.NoError(t, err)
	assert.Len(t, stored, 1, "re-sync must overwrite, not append")

	assert.Equal(t, first.ID, second.ID, "record identity survives re-sync")
	assert.Equal(t, first.AvailabilityScore, second.AvailabilityScore)
	assert.Equal(t, first.StabilityScore, second.StabilityScore)
	assert.Equal(t, first.MonthlyOutputScore, second.MonthlyOutputScore)
	assert.True(t, first.ExpectedPayoutINR.Equal(second.ExpectedPayoutINR))
	assert.True(t, first.DifferenceINR.Equal(second.DifferenceINR))
	assert.Equal(t, first.WorkingDaysInCycle, second.WorkingDaysInCycle)

	assert.Equal(t, t1, first.SnapshotDate)
	assert.Equal(t, t2, second.SnapshotDate)
	assert.Equal(t, "admin-1", first.SyncedByID)
	assert.Equal(t, "admin-2", second.SyncedByID)
}

func TestSync_RejectsPreEpochCycles(t *testing.T) {
	// GIVEN: A cycle starting before the November 2025 adoption epoch
	// WHEN: Syncing
	// THEN: The whole call is rejected up front

	store := seedStore(t)
	sync := payroll.NewSynchronizer(newCalculator(store), store, nil)

	preEpoch := scoring.ResolveCycle(time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC))
	_, err := sync.Sync(context.Background(), preEpoch, []scoring.UserID{"alice"}, "admin-1")

	assert.ErrorIs(t, err, scoring.ErrCycleBeforeEpoch)
}

// =============================================================================
// SYNC: PARTIAL-FAILURE ISOLATION
// =============================================================================

func TestSync_OneUserFailing_DoesNotAbortOthers(t *testing.T) {
	// GIVEN: Three users, one without configured compensation
	// WHEN: Syncing all of them
	// THEN: Two snapshots are written; the failing user is reported
	//       in Failures and the call-level error stays nil

	ctx := context.Background()
	store := seedStore(t)
	require.NoError(t, store.SaveUser(ctx, payroll.User{ID: "carol", Name: "Carol"}))
	cycle := testCycle()

	sync := payroll.NewSynchronizer(newCalculator(store), store, nil)
	result, err := sync.Sync(ctx, cycle, []scoring.UserID{"alice", "carol", "bob"}, "admin-1")

	require.NoError(t, err)
	assert.Len(t, result.Snapshots, 2)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, scoring.UserID("carol"), result.Failures[0].UserID)
	assert.ErrorIs(t, result.Failures[0], scoring.ErrMissingCompensation)

	stored, err := store.ListByCycle(ctx, cycle.Start)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

// failingSnapshotStore wraps a real store and fails upserts for one user.
type failingSnapshotStore struct {
	payroll.SnapshotStore
	failFor scoring.UserID
}

var errDiskFull = errors.New("disk full")

func (f *failingSnapshotStore) Upsert(ctx context.Context, snap payroll.PayoutSnapshot) (payroll.PayoutSnapshot, error) {
	if snap.UserID == f.failFor {
		return payroll.PayoutSnapshot{}, errDiskFull
	}
	return f.SnapshotStore.Upsert(ctx, snap)
}

func TestSync_StorageFailure_IsolatedPerUser(t *testing.T) {
	// GIVEN: A snapshot store that fails persisting one user's record
	// WHEN: Syncing both users
	// THEN: The other user's snapshot is written; the failure is
	//       attributed to the snapshot step

	ctx := context.Background()
	store := seedStore(t)
	cycle := testCycle()
	flaky := &failingSnapshotStore{SnapshotStore: store, failFor: "bob"}

	sync := payroll.NewSynchronizer(newCalculator(store), flaky, nil)
	result, err := sync.Sync(ctx, cycle, []scoring.UserID{"alice", "bob"}, "admin-1")

	require.NoError(t, err)
	require.Len(t, result.Snapshots, 1)
	assert.Equal(t, scoring.UserID("alice"), result.Snapshots[0].UserID)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, scoring.UserID("bob"), result.Failures[0].UserID)
	assert.Equal(t, scoring.StepSnapshot, result.Failures[0].Step)
	assert.ErrorIs(t, result.Failures[0], errDiskFull)

	aliceSnap, err := store.Get(ctx, "alice", cycle.Start)
	require.NoError(t, err)
	assert.NotNil(t, aliceSnap)
	bobSnap, err := store.Get(ctx, "bob", cycle.Start)
	require.NoError(t, err)
	assert.Nil(t, bobSnap)
}

// =============================================================================
// LIVE VS FROZEN DIVERGENCE
// =============================================================================

func TestSync_SnapshotStaysFrozenWhenRecordsChange(t *testing.T) {
	// GIVEN: A synced cycle
	// WHEN: An exception is added afterwards
	// THEN: The live path reflects the change while the frozen snapshot
	//       keeps its values until an explicit re-sync

	ctx := context.Background()
	store := seedStore(t)
	cycle := testCycle()
	calc := newCalculator(store)

	sync := payroll.NewSynchronizer(calc, store, nil)
	_, err := sync.Sync(ctx, cycle, []scoring.UserID{"alice"}, "admin-1")
	require.NoError(t, err)

	frozen, err := store.Get(ctx, "alice", cycle.Start)
	require.NoError(t, err)
	require.NotNil(t, frozen)
	assert.InDelta(t, 100.0, frozen.AvailabilityScore, 1e-9)

	require.NoError(t, store.SaveException(ctx, scoring.WorkException{
		ID:        "exc-late",
		UserID:    "alice",
		Type:      scoring.FullDayLeave,
		Date:      time.Date(2025, time.December, 10, 0, 0, 0, 0, time.UTC),
		CreatedAt: time.Now().UTC(),
	}))

	live, err := calc.LiveUser(ctx, cycle, "alice")
	require.NoError(t, err)
	assert.InDelta(t, 100.0-100.0/22.0, live.Scores.AvailabilityScore, 1e-9)

	stillFrozen, err := store.Get(ctx, "alice", cycle.Start)
	require.NoError(t, err)
	require.NotNil(t, stillFrozen)
	assert.InDelta(t, 100.0, stillFrozen.AvailabilityScore, 1e-9,
		"snapshot must not move until re-sync")

	_, err = sync.Sync(ctx, cycle, []scoring.UserID{"alice"}, "admin-1")
	require.NoError(t, err)

	refrozen, err := store.Get(ctx, "alice", cycle.Start)
	require.NoError(t, err)
	require.NotNil(t, refrozen)
	assert.InDelta(t, live.Scores.AvailabilityScore, refrozen.AvailabilityScore, 1e-9)
	assert.Equal(t, frozen.ID, refrozen.ID)
}
