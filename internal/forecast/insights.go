package forecast

import (
	"fmt"
	"math"
	"time"

	"cellarpos/backend/internal/domain"
)

const (
	expenseIncreaseThreshold = 1.10
	revenueDeclineThreshold  = 0.95
	marginSqueezeThreshold   = 0.90
	fastCategoryGrowth       = 0.15
	seasonalDivergencePoints = 10.0
)

// generateInsights evaluates every rule against the first forecasted month and
// the latest historical month. Rules that cannot be evaluated are skipped.
func generateInsights(h history, projected []projectedMonth, now time.Time) []domain.Insight {
	insights := make([]domain.Insight, 0, 6)
	if len(projected) == 0 {
		return insights
	}
	next := projected[0]
	last, hasHistory := h.latest()

	if hasHistory {
		lastExpense := last.expenseTotal()
		lastRevenue := last.revenueTotal()

		if lastExpense > 0 && next.expenses > lastExpense*expenseIncreaseThreshold {
			increase := (next.expenses/lastExpense - 1) * 100
			insights = append(insights, domain.Insight{
				Type:        domain.InsightWarning,
				Title:       "Expense Increase Warning",
				Description: fmt.Sprintf("Expenses are forecast to rise %.1f%% in %s compared with %s.", increase, next.key, last.key),
				Action:      "Review upcoming purchase orders and discretionary spend before the month starts.",
			})
		}

		if lastRevenue > 0 && next.revenue < lastRevenue*revenueDeclineThreshold {
			decline := (1 - next.revenue/lastRevenue) * 100
			insights = append(insights, domain.Insight{
				Type:        domain.InsightAlert,
				Title:       "Revenue Decline Alert",
				Description: fmt.Sprintf("Revenue is forecast to fall %.1f%% in %s compared with %s.", decline, next.key, last.key),
				Action:      "Plan promotions or restock best sellers to protect sales volume.",
			})
		}

		lastMargin := margin(last.profit(), lastRevenue)
		nextMargin := margin(next.profit, next.revenue)
		if nextMargin < lastMargin*marginSqueezeThreshold {
			insights = append(insights, domain.Insight{
				Type:        domain.InsightWarning,
				Title:       "Profit Margin Squeeze",
				Description: fmt.Sprintf("Profit margin is forecast at %.1f%%, down from %.1f%% in %s.", nextMargin*100, lastMargin*100, last.key),
				Action:      "Check supplier pricing and shelf prices on low-margin lines.",
			})
		}

		if name, growth, ok := fastestCategory(h.categories, last, next); ok {
			insights = append(insights, domain.Insight{
				Type:        domain.InsightInfo,
				Title:       "Fast-Growing Expense Category",
				Description: fmt.Sprintf("%s spending is forecast to grow %.1f%% next month.", name, growth*100),
				Action:      fmt.Sprintf("Set a budget cap for %s or confirm the increase is planned.", name),
			})
		}

		if insight, ok := seasonalInsight(h, last, next, now); ok {
			insights = append(insights, insight)
		}
	}

	negative := 0
	for _, p := range projected {
		if p.profit < 0 {
			negative++
		}
	}
	if negative > 0 {
		insights = append(insights, domain.Insight{
			Type:        domain.InsightAlert,
			Title:       "Cash Flow Alert",
			Description: fmt.Sprintf("%d of %d forecasted months show negative profit.", negative, len(projected)),
			Action:      "Build a cash reserve or defer non-essential expenses for those months.",
		})
	}

	return insights
}

func margin(profit float64, revenue float64) float64 {
	if revenue == 0 {
		return 0
	}
	return profit / revenue
}

func fastestCategory(categories []domain.ExpenseCategory, last monthBucket, next projectedMonth) (string, float64, bool) {
	bestIdx := -1
	bestGrowth := fastCategoryGrowth
	for c := range categories {
		prev := last.categoryAmount(c)
		if prev <= 0 {
			continue
		}
		growth := (next.categories[c] - prev) / prev
		if growth > bestGrowth {
			bestGrowth = growth
			bestIdx = c
		}
	}
	if bestIdx < 0 {
		return "", 0, false
	}
	return categories[bestIdx].Name, bestGrowth, true
}

// seasonalInsight compares the first forecast against the oldest history
// month sharing next month's calendar month. Only the retrieved window is
// searched, so the match is not guaranteed to be from last year.
func seasonalInsight(h history, last monthBucket, next projectedMonth, now time.Time) (domain.Insight, bool) {
	lastExpense := last.expenseTotal()
	if lastExpense <= 0 {
		return domain.Insight{}, false
	}
	target := firstOfMonth(now).AddDate(0, 1, 0).Month()

	var match *monthBucket
	for i := range h.buckets {
		if h.buckets[i].month == target {
			match = &h.buckets[i]
			break
		}
	}
	if match == nil {
		return domain.Insight{}, false
	}

	seasonalRatio := match.expenseTotal() / lastExpense
	forecastRatio := next.expenses / lastExpense
	divergence := (forecastRatio - seasonalRatio) * 100
	if math.Abs(divergence) <= seasonalDivergencePoints {
		return domain.Insight{}, false
	}

	direction := "above"
	action := "Forecast may be overestimating; confirm whether last season's drivers still apply."
	if divergence < 0 {
		direction = "below"
		action = "Forecast may be underestimating seasonal spend; reserve budget for the seasonal peak."
	}
	return domain.Insight{
		Type:        domain.InsightInfo,
		Title:       "Seasonal Pattern",
		Description: fmt.Sprintf("Forecast expenses for %s are %.1f points %s the pattern seen in %s.", next.key, math.Abs(divergence), direction, match.key),
		Action:      action,
	}, true
}
