package payroll

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/warp/comp-engine/scoring"
)

// =============================================================================
// LIVE CALCULATOR - Recompute-on-demand read path
// =============================================================================

// LiveScore is the per-user result of a live computation.
type LiveScore struct {
	UserID              scoring.UserID
	Cycle               scoring.BillingCycle
	Scores              scoring.ScoreComponents
	BaseCompensationINR decimal.Decimal
	Payout              scoring.Payout
	WorkingDaysInCycle  int
}

// Calculator derives live scores from current records. It holds no
// state beyond its collaborators and performs no writes.
type Calculator struct {
	Sources    Sources
	Calendar   WorkingDayCounter
	Aggregator *scoring.Aggregator
}

func NewCalculator(sources Sources, cal WorkingDayCounter) *Calculator {
	return &Calculator{
		Sources:    sources,
		Calendar:   cal,
		Aggregator: scoring.NewAggregator(nil),
	}
}

// LiveUser computes one user's scores and payout for a cycle exactly
// as a snapshot would freeze them. Errors carry the user, cycle, and
// formula step.
func (c *Calculator) LiveUser(ctx context.Context, cycle scoring.BillingCycle, userID scoring.UserID) (LiveScore, error) {
	base, ok, err := c.Sources.Compensation.BaseCompensation(ctx, userID)
	if err != nil {
		return LiveScore{}, scoring.NewScoreError(userID, cycle, scoring.StepPayout, err)
	}
	if !ok {
		return LiveScore{}, scoring.NewScoreError(userID, cycle, scoring.StepPayout, scoring.ErrMissingCompensation)
	}

	exceptions, err := c.Sources.Exceptions.ExceptionsInCycle(ctx, userID, cycle)
	if err != nil {
		return LiveScore{}, scoring.NewScoreError(userID, cycle, scoring.StepAggregation, err)
	}
	tasks, err := c.Sources.Tasks.TasksInCycle(ctx, userID, cycle)
	if err != nil {
		return LiveScore{}, scoring.NewScoreError(userID, cycle, scoring.StepAggregation, err)
	}
	incidents, err := c.Sources.Incidents.IncidentsInCycle(ctx, userID, cycle)
	if err != nil {
		return LiveScore{}, scoring.NewScoreError(userID, cycle, scoring.StepAggregation, err)
	}

	workingDays := c.Calendar.WorkingDays(cycle)
	components, err := c.Aggregator.Aggregate(scoring.AggregateInput{
		UserID:             userID,
		Cycle:              cycle,
		WorkingDaysInCycle: workingDays,
		Exceptions:         exceptions,
		Tasks:              tasks,
		Incidents:          incidents,
	})
	if err != nil {
		return LiveScore{}, err
	}

	return LiveScore{
		UserID:              userID,
		Cycle:               cycle,
		Scores:              components,
		BaseCompensationINR: base,
		Payout:              scoring.ComputePayout(base, components),
		WorkingDaysInCycle:  workingDays,
	}, nil
}

// Live computes scores for a set of users, failing on the first
// user-level error. Callers that need partial results use the sync
// path's per-user reporting instead.
func (c *Calculator) Live(ctx context.Context, cycle scoring.BillingCycle, userIDs []scoring.UserID) ([]LiveScore, error) {
	results := make([]LiveScore, 0, len(userIDs))
	for _, userID := range userIDs {
		score, err := c.LiveUser(ctx, cycle, userID)
		if err != nil {
			return nil, err
		}
		results = append(results, score)
	}
	return results, nil
}
