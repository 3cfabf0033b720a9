package forecast

import (
	"math/rand/v2"
	"time"

	"cellarpos/backend/internal/domain"
)

// Jitter supplies the multiplicative noise applied to average growth rates.
// Overall is drawn once per forecasted month and shared by expenses and
// revenue; Category is drawn once per category per month.
type Jitter interface {
	Overall() float64
	Category() float64
}

const (
	overallJitterMin  = 0.8
	overallJitterMax  = 1.2
	categoryJitterMin = 0.85
	categoryJitterMax = 1.15
)

type randomJitter struct {
	rng *rand.Rand
}

func NewRandomJitter(seed uint64) Jitter {
	return &randomJitter{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (j *randomJitter) Overall() float64 {
	return overallJitterMin + j.rng.Float64()*(overallJitterMax-overallJitterMin)
}

func (j *randomJitter) Category() float64 {
	return categoryJitterMin + j.rng.Float64()*(categoryJitterMax-categoryJitterMin)
}

// FixedJitter always returns the same factors. Values outside the documented
// ranges are clamped.
type FixedJitter struct {
	OverallFactor  float64
	CategoryFactor float64
}

func (f FixedJitter) Overall() float64 {
	return clamp(f.OverallFactor, overallJitterMin, overallJitterMax)
}

func (f FixedJitter) Category() float64 {
	return clamp(f.CategoryFactor, categoryJitterMin, categoryJitterMax)
}

type projectedMonth struct {
	key        string
	month      time.Month
	expenses   float64
	revenue    float64
	profit     float64
	categories []float64
}

func project(h history, g growthRates, months int, now time.Time, jitter Jitter) []projectedMonth {
	prevExpense, prevRevenue := 0.0, 0.0
	prevCategories := make([]float64, len(h.categories))
	if last, ok := h.latest(); ok {
		prevExpense = last.expenseTotal()
		prevRevenue = last.revenueTotal()
		for c := range prevCategories {
			prevCategories[c] = last.categoryAmount(c)
		}
	}

	start := firstOfMonth(now)
	out := make([]projectedMonth, 0, months)
	for i := 1; i <= months; i++ {
		target := start.AddDate(0, i, 0)

		factor := jitter.Overall()
		expense := prevExpense * (1 + g.avgExpense*factor)
		revenue := prevRevenue * (1 + g.avgRevenue*factor)

		cats := make([]float64, len(prevCategories))
		var rawSum float64
		for c, prev := range prevCategories {
			cats[c] = prev * (1 + g.avgCategory[c]*jitter.Category())
			rawSum += cats[c]
		}
		if rawSum > 0 {
			scale := expense / rawSum
			for c := range cats {
				cats[c] *= scale
			}
		}

		out = append(out, projectedMonth{
			key:        target.Format(monthKeyLayout),
			month:      target.Month(),
			expenses:   expense,
			revenue:    revenue,
			profit:     revenue - expense,
			categories: cats,
		})

		prevExpense = expense
		prevRevenue = revenue
		prevCategories = cats
	}
	return out
}

func forecastMonths(categories []domain.ExpenseCategory, projected []projectedMonth) []domain.ForecastMonth {
	out := make([]domain.ForecastMonth, 0, len(projected))
	for _, p := range projected {
		cats := make([]domain.CategoryAmount, len(categories))
		for c, cat := range categories {
			cats[c] = domain.CategoryAmount{
				CategoryID: cat.ID,
				Name:       cat.Name,
				Amount:     p.categories[c],
				Percentage: percentOf(p.categories[c], p.expenses),
			}
		}
		out = append(out, domain.ForecastMonth{
			Month:      p.key,
			Expenses:   p.expenses,
			Revenue:    p.revenue,
			Profit:     p.profit,
			Categories: cats,
		})
	}
	return out
}
