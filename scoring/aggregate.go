/*
aggregate.go - Score aggregation over a billing cycle

PURPOSE:
  Combines a user's raw activity in a cycle (attendance exceptions,
  completed-task ratings, stability incidents) into the three bounded
  percentage scores that feed the payout formula.

SCORES:
  availability = 100 - sum of exception penalties in the cycle
  output       = mean of per-task effective scores (neutral 100 when
                 no tasks completed)
  stability    = produced by a pluggable StabilityScorer; the default
                 deducts per-incident severity weights from 100

  Availability is NOT floor-clamped at zero. A user with severe
  attendance patterns goes visibly negative instead of being hidden
  by a clamp; callers treat that as a flag, not a literal percentage.

EDGE CASES:
  A user with zero exceptions/tasks/incidents is valid and yields the
  neutral 100/100/100, never an error.
*/
package scoring

// =============================================================================
// STABILITY SCORER - Pluggable incident-to-percentage derivation
// =============================================================================

// StabilityScorer turns a cycle's incidents into a stability
// percentage consistent with the other two scores. Upstream systems
// that already aggregate incidents can substitute their own scorer.
type StabilityScorer interface {
	StabilityScore(incidents []StabilityIncident) float64
}

// SeverityWeightScorer is the default scorer: each incident deducts a
// fixed weight by severity.
type SeverityWeightScorer struct {
	Weights map[IncidentSeverity]float64
}

// DefaultStabilityScorer returns the standard severity weighting.
func DefaultStabilityScorer() *SeverityWeightScorer {
	return &SeverityWeightScorer{
		Weights: map[IncidentSeverity]float64{
			SeverityLow:      2,
			SeverityMedium:   5,
			SeverityHigh:     10,
			SeverityCritical: 20,
		},
	}
}

func (s *SeverityWeightScorer) StabilityScore(incidents []StabilityIncident) float64 {
	score := 100.0
	for _, inc := range incidents {
		score -= s.Weights[inc.Severity]
	}
	return score
}

// =============================================================================
// AGGREGATOR - Raw activity to ScoreComponents
// =============================================================================

// Aggregator computes ScoreComponents for a user+cycle. Zero value is
// not usable; construct with NewAggregator.
type Aggregator struct {
	Stability StabilityScorer
}

func NewAggregator(stability StabilityScorer) *Aggregator {
	if stability == nil {
		stability = DefaultStabilityScorer()
	}
	return &Aggregator{Stability: stability}
}

// AggregateInput carries one user's raw activity for a cycle. Records
// outside the cycle window are ignored, so callers may pass broader
// result sets without pre-filtering.
type AggregateInput struct {
	UserID             UserID
	Cycle              BillingCycle
	WorkingDaysInCycle int
	Exceptions         []WorkException
	Tasks              []TaskRecord
	Incidents          []StabilityIncident
}

// Aggregate derives the three scores. The working-day count must be
// positive; it comes from an external calendar collaborator and is
// validated here before any penalty division runs.
func (a *Aggregator) Aggregate(in AggregateInput) (ScoreComponents, error) {
	if in.WorkingDaysInCycle <= 0 {
		return ScoreComponents{}, NewScoreError(in.UserID, in.Cycle, StepAggregation, ErrInvalidWorkingDays)
	}

	availability, err := a.availability(in)
	if err != nil {
		return ScoreComponents{}, NewScoreError(in.UserID, in.Cycle, StepPenalty, err)
	}

	return ScoreComponents{
		AvailabilityScore:  availability,
		MonthlyOutputScore: a.monthlyOutput(in),
		StabilityScore:     a.stability(in),
	}, nil
}

func (a *Aggregator) availability(in AggregateInput) (float64, error) {
	var inCycle []WorkException
	for _, exc := range in.Exceptions {
		if in.Cycle.Contains(exc.Date) {
			inCycle = append(inCycle, exc)
		}
	}
	penalties, err := PenaltyBreakdown(inCycle, in.WorkingDaysInCycle)
	if err != nil {
		return 0, err
	}
	return 100.0 - TotalPenalty(penalties), nil
}

func (a *Aggregator) monthlyOutput(in AggregateInput) float64 {
	var sum float64
	var count int
	for _, task := range in.Tasks {
		if !in.Cycle.Contains(task.CompletedAt) {
			continue
		}
		sum += task.EffectiveScore()
		count++
	}
	if count == 0 {
		return DefaultTaskScore
	}
	return sum / float64(count)
}

func (a *Aggregator) stability(in AggregateInput) float64 {
	var inCycle []StabilityIncident
	for _, inc := range in.Incidents {
		if in.Cycle.Contains(inc.OccurredAt) {
			inCycle = append(inCycle, inc)
		}
	}
	return a.Stability.StabilityScore(inCycle)
}
