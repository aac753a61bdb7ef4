package scoring

import (
	"fmt"
	"time"
)

// =============================================================================
// BILLING CYCLE - The 19th-to-18th monthly compensation window
// =============================================================================

// Epoch is the start of the first billing cycle the system recognizes.
// Cycles before the November 2025 adoption do not exist.
var Epoch = time.Date(2025, time.November, 19, 0, 0, 0, 0, time.UTC)

// cycleStartDay is the day of month on which every cycle begins.
const cycleStartDay = 19

// BillingCycle is the fixed monthly compensation window. Start is the
// 19th of some month at 00:00:00.000 UTC; End is the 18th of the
// following month at 23:59:59.999 UTC. Both ends are inclusive: the
// entire end day belongs to the cycle.
//
// BillingCycle is a value object and is never persisted; snapshots
// reference cycles by their Start instant.
type BillingCycle struct {
	Start time.Time
	End   time.Time
}

// ResolveCycle returns the billing cycle containing the reference date.
// All arithmetic is UTC to avoid local-timezone drift across
// deployment regions.
func ResolveCycle(ref time.Time) BillingCycle {
	ref = ref.UTC()
	year, month := ref.Year(), ref.Month()
	if ref.Day() < cycleStartDay {
		// Before the 19th: cycle started on the 19th of the previous month.
		// time.Date normalizes month 0 to December of the prior year.
		month--
	}
	start := time.Date(year, month, cycleStartDay, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, month+1, cycleStartDay-1, 23, 59, 59, 999_000_000, time.UTC)
	return BillingCycle{Start: start, End: end}
}

// ResolvePastCycles returns up to max cycles ending with the one that
// contains ref, newest first. Cycles whose start predates Epoch are
// excluded, so the result may be shorter than max (or empty when ref
// itself predates the adoption epoch).
func ResolvePastCycles(ref time.Time, max int) []BillingCycle {
	var cycles []BillingCycle
	current := ResolveCycle(ref)
	for i := 0; i < max; i++ {
		if current.Start.Before(Epoch) {
			break
		}
		cycles = append(cycles, current)
		current = ResolveCycle(current.Start.AddDate(0, 0, -1))
	}
	return cycles
}

// Contains reports whether t falls within the cycle (both ends inclusive).
func (c BillingCycle) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(c.Start) && !t.After(c.End)
}

// Key is the canonical identity of the cycle, used as the snapshot
// upsert key together with the user ID.
func (c BillingCycle) Key() string {
	return c.Start.Format(time.RFC3339)
}

// Label renders the cycle for selector UIs, e.g.
// "Nov 19, 2025 - Dec 18, 2025".
func (c BillingCycle) Label() string {
	return fmt.Sprintf("%s - %s", c.Start.Format("Jan 2, 2006"), c.End.Format("Jan 2, 2006"))
}

func (c BillingCycle) String() string {
	return c.Label()
}
