package scoring_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/comp-engine/scoring"
)

// =============================================================================
// NEUTRAL BASELINE
// =============================================================================

func TestAggregate_NoActivity_YieldsNeutralScores(t *testing.T) {
	// GIVEN: A user with zero exceptions, tasks, and incidents
	// WHEN: Aggregating a cycle
	// THEN: All three scores are the neutral 100, never an error

	agg := scoring.NewAggregator(nil)
	scores, err := agg.Aggregate(scoring.AggregateInput{
		UserID:             "u1",
		Cycle:              scoring.ResolveCycle(date(2025, time.December, 1)),
		WorkingDaysInCycle: 22,
	})

	require.NoError(t, err)
	assert.Equal(t, scoring.PerfectScores(), scores)
}

func TestAggregate_RejectsInvalidWorkingDays(t *testing.T) {
	agg := scoring.NewAggregator(nil)
	_, err := agg.Aggregate(scoring.AggregateInput{
		UserID: "u1",
		Cycle:  scoring.ResolveCycle(date(2025, time.December, 1)),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, scoring.ErrInvalidWorkingDays)

	var scoreErr *scoring.ScoreError
	require.ErrorAs(t, err, &scoreErr)
	assert.Equal(t, scoring.UserID("u1"), scoreErr.UserID)
	assert.Equal(t, scoring.StepAggregation, scoreErr.Step)
}

// =============================================================================
// AVAILABILITY
// =============================================================================

func TestAggregate_Availability_FortyMinutesLate(t *testing.T) {
	// GIVEN: One 40-minute late arrival in a 23-working-day cycle
	// WHEN: Aggregating
	// THEN: Availability = 100 - ~0.05797 = ~99.94203

	cycle := scoring.ResolveCycle(date(2025, time.December, 1))
	agg := scoring.NewAggregator(nil)

	scores, err := agg.Aggregate(scoring.AggregateInput{
		UserID:             "u1",
		Cycle:              cycle,
		WorkingDaysInCycle: 23,
		Exceptions: []scoring.WorkException{
			lateBy("e1", date(2025, time.December, 1), 40, time.Now()),
		},
	})

	require.NoError(t, err)
	assert.InDelta(t, 99.9420290, scores.AvailabilityScore, 1e-6)
}

func TestAggregate_Availability_CanGoNegative(t *testing.T) {
	// GIVEN: More full-day leaves than the cycle has working days
	// WHEN: Aggregating
	// THEN: Availability goes negative; it is never floor-clamped

	cycle := scoring.ResolveCycle(date(2025, time.December, 1))
	var exceptions []scoring.WorkException
	for i := 0; i < 25; i++ {
		d := cycle.Start.AddDate(0, 0, i)
		exceptions = append(exceptions, leave(d.Format("2006-01-02"), scoring.FullDayLeave, d, d))
	}

	agg := scoring.NewAggregator(nil)
	scores, err := agg.Aggregate(scoring.AggregateInput{
		UserID:             "u1",
		Cycle:              cycle,
		WorkingDaysInCycle: 20,
		Exceptions:         exceptions,
	})

	require.NoError(t, err)
	// 25 days at 5 points each = 125 points deducted.
	assert.InDelta(t, -25.0, scores.AvailabilityScore, 1e-9)
}

func TestAggregate_IgnoresRecordsOutsideCycle(t *testing.T) {
	// GIVEN: Exceptions, tasks, and incidents dated outside the cycle
	// WHEN: Aggregating
	// THEN: They contribute nothing; callers need not pre-filter

	cycle := scoring.ResolveCycle(date(2025, time.December, 1)) // Nov 19 - Dec 18
	outside := date(2026, time.February, 2)

	agg := scoring.NewAggregator(nil)
	scores, err := agg.Aggregate(scoring.AggregateInput{
		UserID:             "u1",
		Cycle:              cycle,
		WorkingDaysInCycle: 22,
		Exceptions:         []scoring.WorkException{leave("e1", scoring.FullDayLeave, outside, outside)},
		Tasks:              []scoring.TaskRecord{{ID: "t1", Score: 10, Rated: true, CompletedAt: outside}},
		Incidents:          []scoring.StabilityIncident{{ID: "i1", Severity: scoring.SeverityCritical, OccurredAt: outside}},
	})

	require.NoError(t, err)
	assert.Equal(t, scoring.PerfectScores(), scores)
}

// =============================================================================
// MONTHLY OUTPUT
// =============================================================================

func TestAggregate_Output_MeanOfRatedTasks(t *testing.T) {
	cycle := scoring.ResolveCycle(date(2025, time.December, 1))
	inCycle := date(2025, time.December, 5)

	agg := scoring.NewAggregator(nil)
	scores, err := agg.Aggregate(scoring.AggregateInput{
		UserID:             "u1",
		Cycle:              cycle,
		WorkingDaysInCycle: 22,
		Tasks: []scoring.TaskRecord{
			{ID: "t1", Score: 80, Rated: true, CompletedAt: inCycle},
			{ID: "t2", Score: 120, Rated: true, CompletedAt: inCycle},
			{ID: "t3", Rated: false, CompletedAt: inCycle}, // unrated counts as 100
		},
	})

	require.NoError(t, err)
	assert.InDelta(t, 100.0, scores.MonthlyOutputScore, 1e-9)
}

func TestAggregate_Output_DefaultsWithoutTasks(t *testing.T) {
	agg := scoring.NewAggregator(nil)
	scores, err := agg.Aggregate(scoring.AggregateInput{
		UserID:             "u1",
		Cycle:              scoring.ResolveCycle(date(2025, time.December, 1)),
		WorkingDaysInCycle: 22,
	})

	require.NoError(t, err)
	assert.Equal(t, scoring.DefaultTaskScore, scores.MonthlyOutputScore)
}

// =============================================================================
// STABILITY
// =============================================================================

func TestAggregate_Stability_SeverityWeights(t *testing.T) {
	// GIVEN: One incident of each severity inside the cycle
	// WHEN: Aggregating with the default scorer
	// THEN: 100 - (2 + 5 + 10 + 20) = 63

	cycle := scoring.ResolveCycle(date(2025, time.December, 1))
	inCycle := date(2025, time.December, 10)

	agg := scoring.NewAggregator(nil)
	scores, err := agg.Aggregate(scoring.AggregateInput{
		UserID:             "u1",
		Cycle:              cycle,
		WorkingDaysInCycle: 22,
		Incidents: []scoring.StabilityIncident{
			{ID: "i1", Severity: scoring.SeverityLow, OccurredAt: inCycle},
			{ID: "i2", Severity: scoring.SeverityMedium, OccurredAt: inCycle},
			{ID: "i3", Severity: scoring.SeverityHigh, OccurredAt: inCycle},
			{ID: "i4", Severity: scoring.SeverityCritical, OccurredAt: inCycle},
		},
	})

	require.NoError(t, err)
	assert.InDelta(t, 63.0, scores.StabilityScore, 1e-9)
}

type fixedScorer struct{ score float64 }

func (f fixedScorer) StabilityScore([]scoring.StabilityIncident) float64 { return f.score }

func TestAggregate_Stability_PluggableScorer(t *testing.T) {
	agg := scoring.NewAggregator(fixedScorer{score: 87.5})
	scores, err := agg.Aggregate(scoring.AggregateInput{
		UserID:             "u1",
		Cycle:              scoring.ResolveCycle(date(2025, time.December, 1)),
		WorkingDaysInCycle: 22,
	})

	require.NoError(t, err)
	assert.Equal(t, 87.5, scores.StabilityScore)
}
