package domain

import "math"

// ComputeSuccessRate scores a proposed deal's repayment likelihood on a scale
// of 1..100. Longer terms score better, higher rates and fines score worse,
// and deals that forbid early payment or capitalization are penalized.
// Deterministic and side-effect free.
func ComputeSuccessRate(d *Deal) int {
	successRate := 100.0

	// bigger term - bigger successRate
	const termModifier = 20

	termRate := d.Term / termModifier
	if termRate < termModifier {
		successRate -= float64(termModifier - termRate)
	}

	// bigger rate - lesser successRate
	multiplier := rateMultiplier(d.PaymentEvery)

	percent, _ := d.Percent.Float64()
	successRate -= multiplier * percent

	if d.Fine.IsPositive() {
		fine, _ := d.Fine.Float64()
		successRate -= (multiplier + 9) * fine
	}

	if !d.AllowEarlyPayment {
		successRate -= 5
	}

	if !d.AllowCapitalization {
		successRate -= 19
	}

	rate := int(math.Ceil(successRate))
	if rate < 1 {
		rate = 1
	}

	return rate
}

// rateMultiplier weights the interest rate penalty by settlement frequency:
// the more often a deal settles, the harder a high rate hits the debtor.
func rateMultiplier(every PaymentInterval) float64 {
	switch every {
	case IntervalDay:
		return 18
	case IntervalMonth:
		return 2
	case IntervalYear:
		return 1.5
	default:
		return 1
	}
}
