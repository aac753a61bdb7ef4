/*
Package payroll orchestrates the scoring engine over stored records.

PURPOSE:
  The scoring package is pure; this package feeds it. It owns the two
  explicit read paths the product exposes as separate tabs:

    LIVE:   Calculator recomputes scores from current records on
            every call. Always reflects the current formula and data.

    FROZEN: Synchronizer persists point-in-time PayoutSnapshot records
            via an explicit sync action. Snapshots are the
            system-of-record for historical payout reporting and are
            never touched by later formula or data changes until an
            explicit re-sync.

  Live and frozen values diverge over time by design (audit trail vs.
  current formula). There is deliberately no shared cache between the
  two paths.

KEY CONCEPTS IN THIS FILE (snapshot.go):
  - PayoutSnapshot: The frozen per-user-per-cycle record
  - SnapshotStore: Upsert-keyed persistence interface

SEE ALSO:
  - live.go: The recompute-on-demand path
  - sync.go: The freeze path
  - store/sqlite: Production persistence
*/
package payroll

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/comp-engine/scoring"
)

// =============================================================================
// PAYOUT SNAPSHOT - Frozen computation for one user and cycle
// =============================================================================

// PayoutSnapshot is the immutable record of a cycle's computed scores
// and payout for one user. Created only via Synchronizer.Sync; exactly
// one conceptual record exists per (UserID, CycleStart), and re-sync
// overwrites it rather than appending.
type PayoutSnapshot struct {
	ID                  string
	UserID              scoring.UserID
	CycleStart          time.Time
	CycleEnd            time.Time
	MonthlyOutputScore  float64
	AvailabilityScore   float64
	StabilityScore      float64
	BaseCompensationINR decimal.Decimal
	ExpectedPayoutINR   decimal.Decimal
	DifferenceINR       decimal.Decimal
	WorkingDaysInCycle  int
	SnapshotDate        time.Time
	SyncedByID          string
}

// =============================================================================
// SNAPSHOT STORE - Upsert-keyed persistence
// =============================================================================

// SnapshotStore persists payout snapshots. Upsert is keyed by
// (UserID, CycleStart): the storage layer's unique constraint on that
// pair is the concurrency boundary for concurrent syncs of the same
// user+cycle (last writer wins). Implementations must preserve the
// existing record ID on overwrite.
type SnapshotStore interface {
	Upsert(ctx context.Context, snap PayoutSnapshot) (PayoutSnapshot, error)

	// Get returns the frozen record, or nil when the cycle was never
	// synced for the user.
	Get(ctx context.Context, userID scoring.UserID, cycleStart time.Time) (*PayoutSnapshot, error)

	// ListByCycle returns all frozen records for a cycle.
	ListByCycle(ctx context.Context, cycleStart time.Time) ([]PayoutSnapshot, error)
}
