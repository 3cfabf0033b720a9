package forecast

type growthRates struct {
	expense    []float64
	revenue    []float64
	categories [][]float64

	avgExpense  float64
	avgRevenue  float64
	avgCategory []float64
}

// growthSeries returns the month-over-month ratios of values. A transition
// whose previous value is not strictly positive contributes no point.
func growthSeries(values []float64) []float64 {
	series := make([]float64, 0, max(0, len(values)-1))
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		if prev <= 0 {
			continue
		}
		series = append(series, (values[i]-prev)/prev)
	}
	return series
}

func mean(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum float64
	for _, v := range series {
		sum += v
	}
	return sum / float64(len(series))
}

func estimateGrowth(h history) growthRates {
	g := growthRates{
		expense:     growthSeries(h.expenseSeries()),
		revenue:     growthSeries(h.revenueSeries()),
		categories:  make([][]float64, len(h.categories)),
		avgCategory: make([]float64, len(h.categories)),
	}
	g.avgExpense = mean(g.expense)
	g.avgRevenue = mean(g.revenue)
	for c := range h.categories {
		g.categories[c] = growthSeries(h.categorySeries(c))
		g.avgCategory[c] = mean(g.categories[c])
	}
	return g
}
