/*
errors.go - Centralized error types for the scoring engine

PURPOSE:
  All engine error types in one place. Validation errors are raised
  BEFORE any penalty/payout arithmetic runs; the engine never silently
  substitutes a default divisor or a zero score, since that would
  misrepresent compensation.

ERROR CATEGORIES:
  1. Input validation - bad working-day count, missing compensation
  2. Computation context - ScoreError wraps a failure with the user,
     cycle, and formula step so callers can render a useful message

USAGE:
  Callers match with errors.Is / errors.As:

    var serr *scoring.ScoreError
    if errors.As(err, &serr) {
        log.Warn("score failed", zap.String("user", string(serr.UserID)))
    }
*/
package scoring

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidWorkingDays is returned when the working-day count for a
	// cycle is zero or negative. Penalty math divides by this count, so
	// it is rejected before any arithmetic runs.
	ErrInvalidWorkingDays = errors.New("working days in cycle must be positive")

	// ErrMissingCompensation is returned when a user has no base
	// compensation configured for the cycle being computed.
	ErrMissingCompensation = errors.New("base compensation not configured")

	// ErrMissingTimestamps is returned when a time-based exception
	// (late arrival / early exit) lacks scheduled or actual timestamps.
	ErrMissingTimestamps = errors.New("time-based exception missing scheduled/actual timestamps")

	// ErrCycleBeforeEpoch is returned when a caller asks for a cycle
	// that predates the system's adoption epoch.
	ErrCycleBeforeEpoch = errors.New("cycle predates adoption epoch")
)

// =============================================================================
// SCORE ERROR - Computation failure with full context
// =============================================================================

// Step identifies which part of the formula failed.
type Step string

const (
	StepPenalty     Step = "penalty"
	StepAggregation Step = "aggregation"
	StepPayout      Step = "payout"
	StepSnapshot    Step = "snapshot"
)

// ScoreError wraps a computation failure with the offending user,
// cycle, and formula step. Sync and live paths report failures
// per-user with this type so the surrounding surface (resolver, cron,
// CLI) can render which user and which step went wrong.
type ScoreError struct {
	UserID     UserID
	CycleStart time.Time
	Step       Step
	Err        error
}

func (e *ScoreError) Error() string {
	return fmt.Sprintf("scoring %s failed for user %s in cycle starting %s: %v",
		e.Step, e.UserID, e.CycleStart.Format("2006-01-02"), e.Err)
}

func (e *ScoreError) Unwrap() error { return e.Err }

// NewScoreError attaches user/cycle/step context to err.
func NewScoreError(userID UserID, cycle BillingCycle, step Step, err error) *ScoreError {
	return &ScoreError{UserID: userID, CycleStart: cycle.Start, Step: step, Err: err}
}
