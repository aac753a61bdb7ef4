package scoring

import "github.com/shopspring/decimal"

// =============================================================================
// PAYOUT CALCULATOR - Multiplicative payout formula
// =============================================================================

var hundred = decimal.NewFromInt(100)

// ComputePayout combines base compensation with the three scores:
//
//	expected   = base * (output/100) * (availability/100) * (stability/100)
//	difference = expected - base
//
// Deterministic and side-effect-free; invoked both for live display
// and for the value frozen into a snapshot. No floor or ceiling is
// applied: a negative availability score yields a negative expected
// payout, which callers treat as a data-quality signal.
func ComputePayout(baseINR decimal.Decimal, scores ScoreComponents) Payout {
	expected := baseINR.
		Mul(decimal.NewFromFloat(scores.MonthlyOutputScore)).Div(hundred).
		Mul(decimal.NewFromFloat(scores.AvailabilityScore)).Div(hundred).
		Mul(decimal.NewFromFloat(scores.StabilityScore)).Div(hundred)

	return Payout{
		ExpectedINR:   expected,
		DifferenceINR: expected.Sub(baseINR),
	}
}
