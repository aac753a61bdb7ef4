/*
Package scoring provides the compensation scoring engine.

PURPOSE:
  This package contains the pure computation core for cycle-based
  compensation: billing-cycle resolution, attendance-exception
  penalties, score aggregation, and expected-payout calculation.
  Everything here is deterministic and side-effect-free; persistence
  and orchestration live in the payroll package.

KEY CONCEPTS IN THIS FILE (types.go):
  - WorkException: An attendance exception (leave, late arrival, ...)
  - TaskRecord: A completed task with an optional quality rating
  - StabilityIncident: A production issue attributed to a user
  - ScoreComponents: The three percentage scores for a user+cycle
  - Payout: Expected payout derived from base compensation and scores

DESIGN PRINCIPLES:
  1. Determinism: Same inputs always produce the same scores
  2. Precision: decimal.Decimal for money, float64 for scores
     (scores are unbounded signed percentages, never rounded here)
  3. Explicit time: Reference dates are always passed in, never read
     from a global clock inside the engine

SEE ALSO:
  - cycle.go: Billing-cycle resolution (19th-to-18th windows)
  - penalty.go: Exception-to-penalty conversion
  - aggregate.go: Score aggregation over a cycle
  - payout.go: Multiplicative payout formula
*/
package scoring

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string

// =============================================================================
// WORK EXCEPTION - Attendance exception record
// =============================================================================

type ExceptionType string

const (
	FullDayLeave   ExceptionType = "FULL_DAY_LEAVE"
	HalfDayLeave   ExceptionType = "HALF_DAY_LEAVE"
	LateArrival    ExceptionType = "LATE_ARRIVAL"
	EarlyExit      ExceptionType = "EARLY_EXIT"
	WorkFromHome   ExceptionType = "WORK_FROM_HOME"
	SickLeave      ExceptionType = "SICK_LEAVE"
	EmergencyLeave ExceptionType = "EMERGENCY_LEAVE"
)

// IsTimeBased reports whether the exception is measured as a clock
// deviation rather than a fixed day fraction.
func (t ExceptionType) IsTimeBased() bool {
	return t == LateArrival || t == EarlyExit
}

// WorkException records a single attendance exception.
//
// ScheduledTimeEpoch/ActualTimeEpoch are unix seconds and are populated
// only for LATE_ARRIVAL and EARLY_EXIT. CompensationDate marks that the
// exception was offset by makeup work on another day; it is
// informational and does not reduce the penalty.
type WorkException struct {
	ID                 string
	UserID             UserID
	Type               ExceptionType
	Date               time.Time // calendar day of the exception (UTC)
	ScheduledTimeEpoch int64
	ActualTimeEpoch    int64
	CompensationDate   *time.Time
	CreatedAt          time.Time
}

// Day returns the exception's calendar day truncated to midnight UTC.
// Same-day penalty accumulation groups by this value.
func (e WorkException) Day() time.Time {
	return time.Date(e.Date.Year(), e.Date.Month(), e.Date.Day(), 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// TASK RECORD - Completed task feeding the monthly output score
// =============================================================================

// DefaultTaskScore is used when a completed task was never rated.
const DefaultTaskScore = 100.0

// TaskRecord is a completed task. Score ranges 0-200 where 100 means
// "met expectations"; Rated is false when no rating was given.
type TaskRecord struct {
	ID          string
	UserID      UserID
	Score       float64
	Rated       bool
	CompletedAt time.Time
}

// EffectiveScore returns the rating, or DefaultTaskScore when unrated.
func (t TaskRecord) EffectiveScore() float64 {
	if !t.Rated {
		return DefaultTaskScore
	}
	return t.Score
}

// =============================================================================
// STABILITY INCIDENT - Production issue attributed to a user
// =============================================================================

type IncidentSeverity string

const (
	SeverityLow      IncidentSeverity = "low"
	SeverityMedium   IncidentSeverity = "medium"
	SeverityHigh     IncidentSeverity = "high"
	SeverityCritical IncidentSeverity = "critical"
)

type StabilityIncident struct {
	ID         string
	UserID     UserID
	Severity   IncidentSeverity
	OccurredAt time.Time
}

// =============================================================================
// SCORE COMPONENTS - Derived per user per cycle
// =============================================================================

// ScoreComponents holds the three percentage scores that feed the
// multiplicative payout formula. All three are signed: availability in
// particular is NOT floor-clamped at zero, so severe attendance
// patterns surface as negative values instead of being hidden.
type ScoreComponents struct {
	AvailabilityScore  float64
	StabilityScore     float64
	MonthlyOutputScore float64
}

// PerfectScores is the neutral baseline for a user with no activity.
func PerfectScores() ScoreComponents {
	return ScoreComponents{AvailabilityScore: 100, StabilityScore: 100, MonthlyOutputScore: 100}
}

// =============================================================================
// PAYOUT - Expected payout for a user+cycle
// =============================================================================

// Payout is the result of applying ScoreComponents to a base
// compensation. Difference is signed; negative means a net deduction.
// Expected payout is deliberately unclamped: a negative value is a
// data-quality signal for callers, not a literal negative payment.
type Payout struct {
	ExpectedINR   decimal.Decimal
	DifferenceINR decimal.Decimal
}
