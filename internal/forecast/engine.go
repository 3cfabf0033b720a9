package forecast

import (
	"math"
	"time"

	"cellarpos/backend/internal/domain"
)

const (
	DefaultMonths        = 3
	DefaultHistoryMonths = 6
	MaxMonths            = 36

	monthKeyLayout = "2006-01"
)

type Input struct {
	Categories    []domain.ExpenseCategory
	Expenses      []domain.ExpenseRecord
	Sales         []domain.SalesRecord
	Months        int
	HistoryMonths int
	Now           time.Time
}

type Result struct {
	History   []domain.HistoryMonth
	Forecasts []domain.ForecastMonth
	Metrics   domain.ForecastMetrics
	Insights  []domain.Insight
}

// Engine runs the aggregate, estimate, project and score pipeline. It holds no
// per-run state; every call to Forecast draws a fresh Jitter.
type Engine struct {
	newJitter func() Jitter
}

func NewEngine(newJitter func() Jitter) *Engine {
	if newJitter == nil {
		newJitter = func() Jitter { return NewRandomJitter(uint64(time.Now().UnixNano())) }
	}
	return &Engine{newJitter: newJitter}
}

func (e *Engine) Forecast(in Input) Result {
	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}
	months := max(0, in.Months)
	historyMonths := max(0, in.HistoryMonths)

	hist := aggregate(in.Categories, in.Expenses, in.Sales, historyMonths, in.Now)
	growth := estimateGrowth(hist)
	projected := project(hist, growth, months, in.Now, e.newJitter())

	return Result{
		History:   hist.summaries(),
		Forecasts: forecastMonths(hist.categories, projected),
		Metrics: domain.ForecastMetrics{
			AvgExpenseGrowth: round2(growth.avgExpense * 100),
			AvgRevenueGrowth: round2(growth.avgRevenue * 100),
			AvgProfitMargin:  round2(hist.averageProfitMargin()),
			ConfidenceScore:  round2(confidenceScore(growth.expense, growth.revenue)),
		},
		Insights: generateInsights(hist, projected, in.Now),
	}
}

// HistoryWindow returns the record query range covering historyMonths calendar
// months ending with now's month.
func HistoryWindow(now time.Time, historyMonths int) (time.Time, time.Time) {
	keys := monthStarts(now, max(1, historyMonths))
	return keys[0], now
}

// ForecastEnd is the last instant of the final forecasted month.
func ForecastEnd(now time.Time, months int) time.Time {
	start := firstOfMonth(now).AddDate(0, max(0, months)+1, 0)
	return start.Add(-time.Nanosecond)
}

// ClampMonths bounds a caller-supplied window to 1..MaxMonths, using fallback
// when the value is unset.
func ClampMonths(value int, fallback int) int {
	if value < 1 {
		value = fallback
	}
	if value > MaxMonths {
		return MaxMonths
	}
	return value
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func percentOf(part float64, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}

func clamp(val float64, minVal float64, maxVal float64) float64 {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

func round2(val float64) float64 {
	return math.Round(val*100) / 100
}
