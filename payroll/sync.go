/*
sync.go - Snapshot synchronizer (the only write path in the engine)

PURPOSE:
  Freezes a cycle's computation: for each requested user, re-derive
  scores and payout exactly as the live path would, then upsert a
  PayoutSnapshot keyed by (userID, cycleStart).

INVARIANTS:
  - Idempotent: syncing twice over unchanged source data produces
    byte-identical snapshot fields except SnapshotDate/SyncedByID.
  - Overwrite, not append: one record per (userID, cycleStart).
  - Partial-failure isolation: each user's upsert is an independent
    unit of work. One user failing never aborts or corrupts snapshots
    already written for other users in the same call; failures are
    reported per-user and the caller decides whether to retry the
    failed subset.

CONCURRENCY:
  Users are independent by key, so the fan-out runs concurrently
  (bounded errgroup). Mutual exclusion for concurrent syncs of the
  SAME user+cycle is delegated to the storage layer's unique-key
  upsert, not provided here.
*/
package payroll

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/warp/comp-engine/scoring"
)

// defaultSyncConcurrency bounds the per-user fan-out.
const defaultSyncConcurrency = 8

// =============================================================================
// SYNC RESULT - Per-user outcome reporting
// =============================================================================

// SyncResult reports a multi-user sync. Snapshots holds the records
// written; Failures holds one ScoreError per user that could not be
// synced. Both can be non-empty in the same result.
type SyncResult struct {
	Snapshots []PayoutSnapshot
	Failures  []*scoring.ScoreError
}

// =============================================================================
// SYNCHRONIZER
// =============================================================================

// Synchronizer freezes live computations into snapshot records.
type Synchronizer struct {
	Calc        *Calculator
	Snapshots   SnapshotStore
	Logger      *zap.Logger
	Concurrency int

	// Now is injected for deterministic tests; defaults to time.Now.
	Now func() time.Time
}

func NewSynchronizer(calc *Calculator, snapshots SnapshotStore, logger *zap.Logger) *Synchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synchronizer{
		Calc:        calc,
		Snapshots:   snapshots,
		Logger:      logger,
		Concurrency: defaultSyncConcurrency,
		Now:         time.Now,
	}
}

// Sync computes and upserts snapshots for the given users and cycle.
// The returned error is only non-nil for caller-level cancellation;
// per-user computation and storage failures land in SyncResult.Failures.
func (s *Synchronizer) Sync(ctx context.Context, cycle scoring.BillingCycle, userIDs []scoring.UserID, syncedByID string) (SyncResult, error) {
	if cycle.Start.Before(scoring.Epoch) {
		return SyncResult{}, scoring.ErrCycleBeforeEpoch
	}

	var (
		mu     sync.Mutex
		result SyncResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency())

	for _, userID := range userIDs {
		userID := userID
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			snap, err := s.syncUser(gctx, cycle, userID, syncedByID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				serr := asScoreError(err, userID, cycle)
				result.Failures = append(result.Failures, serr)
				s.Logger.Warn("snapshot sync failed",
					zap.String("user", string(userID)),
					zap.String("cycle", cycle.Key()),
					zap.Error(err))
				// Other users keep going.
				return nil
			}
			result.Snapshots = append(result.Snapshots, snap)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}

	s.Logger.Info("snapshot sync complete",
		zap.String("cycle", cycle.Key()),
		zap.Int("synced", len(result.Snapshots)),
		zap.Int("failed", len(result.Failures)))
	return result, nil
}

// syncUser is one independent unit of work: live computation plus a
// single keyed upsert.
func (s *Synchronizer) syncUser(ctx context.Context, cycle scoring.BillingCycle, userID scoring.UserID, syncedByID string) (PayoutSnapshot, error) {
	live, err := s.Calc.LiveUser(ctx, cycle, userID)
	if err != nil {
		return PayoutSnapshot{}, err
	}

	snap := PayoutSnapshot{
		ID:                  uuid.NewString(),
		UserID:              userID,
		CycleStart:          cycle.Start,
		CycleEnd:            cycle.End,
		MonthlyOutputScore:  live.Scores.MonthlyOutputScore,
		AvailabilityScore:   live.Scores.AvailabilityScore,
		StabilityScore:      live.Scores.StabilityScore,
		BaseCompensationINR: live.BaseCompensationINR,
		ExpectedPayoutINR:   live.Payout.ExpectedINR,
		DifferenceINR:       live.Payout.DifferenceINR,
		WorkingDaysInCycle:  live.WorkingDaysInCycle,
		SnapshotDate:        s.Now().UTC(),
		SyncedByID:          syncedByID,
	}

	stored, err := s.Snapshots.Upsert(ctx, snap)
	if err != nil {
		return PayoutSnapshot{}, scoring.NewScoreError(userID, cycle, scoring.StepSnapshot, err)
	}
	return stored, nil
}

func (s *Synchronizer) concurrency() int {
	if s.Concurrency > 0 {
		return s.Concurrency
	}
	return defaultSyncConcurrency
}

func asScoreError(err error, userID scoring.UserID, cycle scoring.BillingCycle) *scoring.ScoreError {
	if serr, ok := err.(*scoring.ScoreError); ok {
		return serr
	}
	return scoring.NewScoreError(userID, cycle, scoring.StepSnapshot, err)
}
