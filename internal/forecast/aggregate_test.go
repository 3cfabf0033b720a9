package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cellarpos/backend/internal/domain"
)

func TestAggregateBucketsWindow(t *testing.T) {
	cats := []domain.ExpenseCategory{{ID: "cat-rent", Name: "Rent"}, {ID: "cat-stock", Name: "Stock"}}
	expenses := []domain.ExpenseRecord{
		expense("e1", "cat-rent", 500, monthsAgo(0)),
		expense("e2", "cat-ghost", 70, monthsAgo(0)),
		expense("e3", "cat-stock", 300, monthsAgo(2)),
		expense("old", "cat-stock", 9999, monthsAgo(14)),
	}
	sales := []domain.SalesRecord{
		sale("s1", 800, "completed", monthsAgo(0)),
		sale("s2", 400, domain.SalesStatusCancelled, monthsAgo(0)),
		sale("s3", 250, "completed", monthsAgo(2)),
	}

	h := aggregate(cats, expenses, sales, 3, anchor)
	require.Len(t, h.buckets, 3)
	assert.Equal(t, "2026-01", h.buckets[0].key)
	assert.Equal(t, "2026-03", h.buckets[2].key)

	latest, ok := h.latest()
	require.True(t, ok)
	assert.Equal(t, 570.0, latest.expenseTotal())
	assert.Equal(t, 500.0, latest.categoryAmount(0))
	assert.Equal(t, 0.0, latest.categoryAmount(1))
	assert.Equal(t, 800.0, latest.revenueTotal())
	assert.Equal(t, 230.0, latest.profit())

	assert.Equal(t, 300.0, h.buckets[0].expenseTotal())
	assert.Equal(t, 0.0, h.buckets[1].expenseTotal())
	require.Len(t, h.buckets[1].categories, 2)
}

func TestAggregateIsIdempotent(t *testing.T) {
	in := multiCategoryInput()
	first := aggregate(in.Categories, in.Expenses, in.Sales, in.HistoryMonths, in.Now)
	second := aggregate(in.Categories, in.Expenses, in.Sales, in.HistoryMonths, in.Now)
	assert.Equal(t, first.summaries(), second.summaries())
	assert.Equal(t, first.averageProfitMargin(), second.averageProfitMargin())
}

func TestSummariesAreMostRecentFirst(t *testing.T) {
	in := rentOnlyInput()
	h := aggregate(in.Categories, in.Expenses, in.Sales, in.HistoryMonths, in.Now)
	out := h.summaries()
	require.Len(t, out, 2)
	assert.Equal(t, "2026-03", out[0].Month)
	assert.Equal(t, 1200.0, out[0].Expenses)
	assert.Equal(t, 100.0, out[0].Categories[0].Percentage)
}

func TestGrowthSeriesSkipsNonPositivePrevious(t *testing.T) {
	assert.Equal(t, []float64{-1}, growthSeries([]float64{100, 0, 50}))
	assert.Empty(t, growthSeries([]float64{0, 500}))
	assert.Empty(t, growthSeries([]float64{42}))
	assert.Empty(t, growthSeries(nil))
	assert.Equal(t, 0.0, mean(nil))
}

func TestNewCategoryHasNoGrowthPoints(t *testing.T) {
	cats := []domain.ExpenseCategory{{ID: "cat-rent", Name: "Rent"}, {ID: "cat-events", Name: "Tasting Events"}}
	expenses := []domain.ExpenseRecord{
		expense("e1", "cat-rent", 1000, monthsAgo(1)),
		expense("e2", "cat-rent", 1000, monthsAgo(0)),
		expense("e3", "cat-events", 500, monthsAgo(0)),
	}
	h := aggregate(cats, expenses, nil, 2, anchor)
	g := estimateGrowth(h)

	assert.Empty(t, g.categories[1])
	assert.Equal(t, 0.0, g.avgCategory[1])
	assert.InDelta(t, 0.5, g.avgExpense, 1e-9)
}

func TestZeroMonthInHistoryLeavesOnePoint(t *testing.T) {
	cats := []domain.ExpenseCategory{{ID: "cat-rent", Name: "Rent"}}
	expenses := []domain.ExpenseRecord{
		expense("e1", "cat-rent", 100, monthsAgo(2)),
		expense("e3", "cat-rent", 50, monthsAgo(0)),
	}
	g := estimateGrowth(aggregate(cats, expenses, nil, 3, anchor))
	require.Len(t, g.expense, 1)
	assert.InDelta(t, -1.0, g.expense[0], 1e-9)
}

func TestCoefficientOfVariation(t *testing.T) {
	assert.Equal(t, 1.0, coefficientOfVariation(nil))
	assert.Equal(t, 1.0, coefficientOfVariation([]float64{0, 0}))
	assert.Equal(t, 1.0, coefficientOfVariation([]float64{0.1, -0.1}))
	assert.InDelta(t, 0.0, coefficientOfVariation([]float64{0.1, 0.1}), 1e-12)
	assert.InDelta(t, 0.5, coefficientOfVariation([]float64{0.1, 0.3}), 1e-9)
	assert.Equal(t, 1.0, coefficientOfVariation([]float64{0.01, 0.5, -0.4}))

	assert.Equal(t, 0.0, confidenceScore(nil, nil))
	assert.InDelta(t, 75.0, confidenceScore([]float64{0.1, 0.1}, []float64{0.1, 0.3}), 1e-9)
}

func TestCashFlowAlertCountsNegativeMonths(t *testing.T) {
	projected := []projectedMonth{
		{key: "2026-04", expenses: 900, revenue: 1000, profit: 100},
		{key: "2026-05", expenses: 1050, revenue: 1000, profit: -50},
		{key: "2026-06", expenses: 980, revenue: 1000, profit: 20},
	}
	insights := generateInsights(history{}, projected, anchor)

	require.Len(t, insights, 1)
	assert.Equal(t, domain.InsightAlert, insights[0].Type)
	assert.Equal(t, "Cash Flow Alert", insights[0].Title)
	assert.Contains(t, insights[0].Description, "1 of 3")
}

func TestRevenueDeclineAndMarginSqueeze(t *testing.T) {
	cats := []domain.ExpenseCategory{{ID: "cat-rent", Name: "Rent"}}
	h := aggregate(cats,
		[]domain.ExpenseRecord{expense("e1", "cat-rent", 600, monthsAgo(0))},
		[]domain.SalesRecord{sale("s1", 1000, "completed", monthsAgo(0))},
		1, anchor)
	projected := []projectedMonth{{key: "2026-04", expenses: 600, revenue: 900, profit: 300, categories: []float64{600}}}

	insights := generateInsights(h, projected, anchor)
	decline, ok := findInsight(insights, "Revenue Decline Alert")
	require.True(t, ok)
	assert.Contains(t, decline.Description, "10.0%")

	squeeze, ok := findInsight(insights, "Profit Margin Squeeze")
	require.True(t, ok)
	assert.Equal(t, domain.InsightWarning, squeeze.Type)

	_, ok = findInsight(insights, "Cash Flow Alert")
	assert.False(t, ok)
}

func TestFastGrowingCategoryPicksFastest(t *testing.T) {
	in := Input{
		Categories: []domain.ExpenseCategory{{ID: "cat-stock", Name: "Stock Purchases"}, {ID: "cat-rent", Name: "Rent"}},
		Expenses: []domain.ExpenseRecord{
			expense("e1", "cat-stock", 100, monthsAgo(1)),
			expense("e2", "cat-stock", 200, monthsAgo(0)),
			expense("e3", "cat-rent", 1000, monthsAgo(1)),
			expense("e4", "cat-rent", 1000, monthsAgo(0)),
		},
		Months:        1,
		HistoryMonths: 2,
		Now:           anchor,
	}
	res := fixedEngine(1, 1).Forecast(in)

	insight, ok := findInsight(res.Insights, "Fast-Growing Expense Category")
	require.True(t, ok, "insights: %+v", res.Insights)
	assert.Contains(t, insight.Description, "Stock Purchases")
}

func seasonalInput(historyMonths int) Input {
	cats := []domain.ExpenseCategory{{ID: "cat-stock", Name: "Stock Purchases"}}
	var expenses []domain.ExpenseRecord
	for i := 12; i >= 0; i-- {
		amount := int64(1000)
		if i == 11 {
			amount = 2000
		}
		expenses = append(expenses, expense("e", "cat-stock", amount, monthsAgo(i)))
	}
	return Input{Categories: cats, Expenses: expenses, Months: 3, HistoryMonths: historyMonths, Now: anchor}
}

func TestSeasonalPatternFlagsUnderestimate(t *testing.T) {
	res := fixedEngine(1, 1).Forecast(seasonalInput(13))

	insight, ok := findInsight(res.Insights, "Seasonal Pattern")
	require.True(t, ok, "insights: %+v", res.Insights)
	assert.Equal(t, domain.InsightInfo, insight.Type)
	assert.Contains(t, insight.Description, "below")
	assert.Contains(t, insight.Description, "2025-04")
}

func TestSeasonalPatternNeedsMatchingMonth(t *testing.T) {
	res := fixedEngine(1, 1).Forecast(seasonalInput(6))
	_, ok := findInsight(res.Insights, "Seasonal Pattern")
	assert.False(t, ok)
}
