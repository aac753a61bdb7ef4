/*
penalty.go - Exception-to-penalty conversion

PURPOSE:
  Converts attendance exceptions into availability-score penalties.
  The unit of account is the "working day": a cycle with N working
  days gives each day a weight of 100/N percentage points.

FORMULA:
  valuePerDay = 100 / workingDaysInCycle

  Time-based exceptions (late arrival, early exit):
    timeDiffMinutes    = |actual - scheduled| / 60
    halfHourUnits      = timeDiffMinutes / 30
    exceptionDaysImpact = halfHourUnits * 0.01      (1% of a day per 30min)

  Day-fraction exceptions:
    full-day leave kinds = 1.0 day, half-day = 0.5, work-from-home = 0

  SAME-DATE ACCUMULATION:
    Multiple exceptions on one calendar date accumulate: each
    exception's penalty days = its own impact + the days already
    accumulated for that date, and its score contribution = penalty
    days * valuePerDay. Additive and uncapped. Implemented as an
    explicit fold in creation order, never mutable shared state, so
    the calculator stays pure and parallel-safe.

NUMERIC SEMANTICS:
  All arithmetic is float64 with no mid-calculation rounding. Display
  rounding belongs to presentation layers.

SEE ALSO:
  - aggregate.go: Sums penalties into the availability score
*/
package scoring

import "sort"

// halfHourDayImpact is the fraction of a working day each 30-minute
// unit of clock deviation costs.
const halfHourDayImpact = 0.01

// =============================================================================
// VALUE PER DAY - Percentage weight of one working day
// =============================================================================

// ValuePerDay returns the availability-budget weight of a single
// working day within the cycle. A non-positive working-day count is a
// contract violation and is rejected before any division happens.
func ValuePerDay(workingDaysInCycle int) (float64, error) {
	if workingDaysInCycle <= 0 {
		return 0, ErrInvalidWorkingDays
	}
	return 100.0 / float64(workingDaysInCycle), nil
}

// =============================================================================
// DAY IMPACT - How much of a working day an exception consumes
// =============================================================================

// DayImpact returns the fraction of a working day the exception costs,
// before same-date accumulation.
func DayImpact(e WorkException) (float64, error) {
	switch e.Type {
	case FullDayLeave, SickLeave, EmergencyLeave:
		return 1.0, nil
	case HalfDayLeave:
		return 0.5, nil
	case WorkFromHome:
		return 0, nil
	case LateArrival, EarlyExit:
		if e.ScheduledTimeEpoch == 0 || e.ActualTimeEpoch == 0 {
			return 0, ErrMissingTimestamps
		}
		diffSeconds := e.ActualTimeEpoch - e.ScheduledTimeEpoch
		if diffSeconds < 0 {
			diffSeconds = -diffSeconds
		}
		timeDiffMinutes := float64(diffSeconds) / 60.0
		halfHourUnits := timeDiffMinutes / 30.0
		return halfHourUnits * halfHourDayImpact, nil
	default:
		// Unknown types carry no penalty rather than guessing a weight.
		return 0, nil
	}
}

// =============================================================================
// PENALTY BREAKDOWN - Per-exception penalties with accumulation
// =============================================================================

// ExceptionPenalty is the computed penalty for one exception,
// including the same-date accumulation in effect when it was applied.
type ExceptionPenalty struct {
	ExceptionID  string
	DayImpact    float64 // this exception's own day fraction
	PenaltyDays  float64 // impact + days already accumulated on the date
	PenaltyScore float64 // PenaltyDays * valuePerDay
}

// PenaltyBreakdown folds a user's exceptions into per-exception
// penalties. Exceptions sharing a calendar date accumulate in
// creation order; dates are independent of each other.
//
// The returned slice preserves the creation-order fold, so summing
// PenaltyScore over it reproduces the total availability deduction.
func PenaltyBreakdown(exceptions []WorkException, workingDaysInCycle int) ([]ExceptionPenalty, error) {
	valuePerDay, err := ValuePerDay(workingDaysInCycle)
	if err != nil {
		return nil, err
	}

	ordered := make([]WorkException, len(exceptions))
	copy(ordered, exceptions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	accumulated := make(map[string]float64) // date -> penalty days so far
	penalties := make([]ExceptionPenalty, 0, len(ordered))

	for _, exc := range ordered {
		impact, err := DayImpact(exc)
		if err != nil {
			return nil, err
		}
		day := exc.Day().Format("2006-01-02")
		penaltyDays := impact + accumulated[day]
		accumulated[day] = penaltyDays

		penalties = append(penalties, ExceptionPenalty{
			ExceptionID:  exc.ID,
			DayImpact:    impact,
			PenaltyDays:  penaltyDays,
			PenaltyScore: penaltyDays * valuePerDay,
		})
	}
	return penalties, nil
}

// TotalPenalty sums the penalty scores of a breakdown.
func TotalPenalty(penalties []ExceptionPenalty) float64 {
	var total float64
	for _, p := range penalties {
		total += p.PenaltyScore
	}
	return total
}
