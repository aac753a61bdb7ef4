package payroll

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/warp/comp-engine/scoring"
)

// =============================================================================
// RECORD SOURCES - Read access to already-stored activity
// =============================================================================
// The engine consumes plain records; it does not own how they are
// fetched. These interfaces are the seams to the surrounding
// application (store/sqlite in this repo, Prisma-equivalents when
// embedded elsewhere). All queries are scoped to a resolved cycle
// window.

// CompensationSource resolves a user's base compensation.
type CompensationSource interface {
	// BaseCompensation returns (amount, true) when configured. A user
	// without compensation is reported as (zero, false), never as a
	// silent zero amount.
	BaseCompensation(ctx context.Context, userID scoring.UserID) (decimal.Decimal, bool, error)
}

// ExceptionSource reads work exceptions dated within a cycle.
type ExceptionSource interface {
	ExceptionsInCycle(ctx context.Context, userID scoring.UserID, cycle scoring.BillingCycle) ([]scoring.WorkException, error)
}

// TaskSource reads tasks completed within a cycle.
type TaskSource interface {
	TasksInCycle(ctx context.Context, userID scoring.UserID, cycle scoring.BillingCycle) ([]scoring.TaskRecord, error)
}

// IncidentSource reads stability incidents attributed within a cycle.
type IncidentSource interface {
	IncidentsInCycle(ctx context.Context, userID scoring.UserID, cycle scoring.BillingCycle) ([]scoring.StabilityIncident, error)
}

// Sources bundles the record sources the calculator needs. A single
// store usually satisfies all four.
type Sources struct {
	Compensation CompensationSource
	Exceptions   ExceptionSource
	Tasks        TaskSource
	Incidents    IncidentSource
}

// WorkingDayCounter is the external calendar collaborator. The engine
// validates the returned count but never computes calendars itself.
type WorkingDayCounter interface {
	WorkingDays(cycle scoring.BillingCycle) int
}
