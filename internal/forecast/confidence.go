package forecast

import "math"

const negligibleMean = 1e-9

// coefficientOfVariation is stddev/|mean| capped at 1. An empty series or a
// mean indistinguishable from zero counts as maximum variability.
func coefficientOfVariation(series []float64) float64 {
	if len(series) == 0 {
		return 1
	}
	avg := mean(series)
	if math.Abs(avg) < negligibleMean {
		return 1
	}
	var sq float64
	for _, v := range series {
		sq += (v - avg) * (v - avg)
	}
	stddev := math.Sqrt(sq / float64(len(series)))
	return math.Min(stddev/math.Abs(avg), 1)
}

// confidenceScore maps the average variability of the expense and revenue
// growth series onto 0..100, higher meaning more consistent history.
func confidenceScore(expenseGrowth []float64, revenueGrowth []float64) float64 {
	variability := (coefficientOfVariation(expenseGrowth) + coefficientOfVariation(revenueGrowth)) / 2
	return clamp(100-variability*100, 0, 100)
}
