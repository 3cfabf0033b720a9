package forecast

import (
	"time"

	"github.com/shopspring/decimal"

	"cellarpos/backend/internal/domain"
)

type monthBucket struct {
	key      string
	month    time.Month
	expenses decimal.Decimal
	revenue  decimal.Decimal
	// categories is indexed by position in history.categories.
	categories []decimal.Decimal
}

func (b monthBucket) expenseTotal() float64 { return b.expenses.InexactFloat64() }
func (b monthBucket) revenueTotal() float64 { return b.revenue.InexactFloat64() }
func (b monthBucket) profit() float64       { return b.revenue.Sub(b.expenses).InexactFloat64() }

func (b monthBucket) categoryAmount(idx int) float64 {
	return b.categories[idx].InexactFloat64()
}

type history struct {
	categories []domain.ExpenseCategory
	// buckets are chronological, oldest first.
	buckets []monthBucket
}

func monthStarts(now time.Time, historyMonths int) []time.Time {
	start := firstOfMonth(now)
	starts := make([]time.Time, 0, historyMonths)
	for i := historyMonths - 1; i >= 0; i-- {
		starts = append(starts, start.AddDate(0, -i, 0))
	}
	return starts
}

func aggregate(
	categories []domain.ExpenseCategory,
	expenses []domain.ExpenseRecord,
	sales []domain.SalesRecord,
	historyMonths int,
	now time.Time,
) history {
	cats := make([]domain.ExpenseCategory, len(categories))
	copy(cats, categories)
	catIndex := make(map[string]int, len(cats))
	for i, cat := range cats {
		catIndex[cat.ID] = i
	}

	starts := monthStarts(now, historyMonths)
	buckets := make([]monthBucket, len(starts))
	byKey := make(map[string]int, len(starts))
	for i, start := range starts {
		key := start.Format(monthKeyLayout)
		buckets[i] = monthBucket{
			key:        key,
			month:      start.Month(),
			expenses:   decimal.Zero,
			revenue:    decimal.Zero,
			categories: make([]decimal.Decimal, len(cats)),
		}
		for c := range buckets[i].categories {
			buckets[i].categories[c] = decimal.Zero
		}
		byKey[key] = i
	}

	loc := now.Location()
	for _, expense := range expenses {
		idx, ok := byKey[expense.IncurredAt.In(loc).Format(monthKeyLayout)]
		if !ok {
			continue
		}
		bucket := &buckets[idx]
		bucket.expenses = bucket.expenses.Add(expense.Amount)
		if c, known := catIndex[expense.CategoryID]; known {
			bucket.categories[c] = bucket.categories[c].Add(expense.Amount)
		}
	}

	for _, sale := range sales {
		if sale.Status == domain.SalesStatusCancelled {
			continue
		}
		idx, ok := byKey[sale.OrderedAt.In(loc).Format(monthKeyLayout)]
		if !ok {
			continue
		}
		buckets[idx].revenue = buckets[idx].revenue.Add(sale.Total)
	}

	return history{categories: cats, buckets: buckets}
}

func (h history) latest() (monthBucket, bool) {
	if len(h.buckets) == 0 {
		return monthBucket{}, false
	}
	return h.buckets[len(h.buckets)-1], true
}

func (h history) expenseSeries() []float64 {
	values := make([]float64, len(h.buckets))
	for i, b := range h.buckets {
		values[i] = b.expenseTotal()
	}
	return values
}

func (h history) revenueSeries() []float64 {
	values := make([]float64, len(h.buckets))
	for i, b := range h.buckets {
		values[i] = b.revenueTotal()
	}
	return values
}

func (h history) categorySeries(idx int) []float64 {
	values := make([]float64, len(h.buckets))
	for i, b := range h.buckets {
		values[i] = b.categoryAmount(idx)
	}
	return values
}

// averageProfitMargin is the mean monthly profit margin in percent over months
// that had revenue.
func (h history) averageProfitMargin() float64 {
	var sum float64
	var count int
	for _, b := range h.buckets {
		revenue := b.revenueTotal()
		if revenue <= 0 {
			continue
		}
		sum += b.profit() / revenue * 100
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// summaries renders the buckets most-recent-first.
func (h history) summaries() []domain.HistoryMonth {
	out := make([]domain.HistoryMonth, 0, len(h.buckets))
	for i := len(h.buckets) - 1; i >= 0; i-- {
		b := h.buckets[i]
		expenses := b.expenseTotal()
		cats := make([]domain.CategoryAmount, len(h.categories))
		for c, cat := range h.categories {
			amount := b.categoryAmount(c)
			cats[c] = domain.CategoryAmount{
				CategoryID: cat.ID,
				Name:       cat.Name,
				Amount:     amount,
				Percentage: percentOf(amount, expenses),
			}
		}
		out = append(out, domain.HistoryMonth{
			Month:      b.key,
			Expenses:   expenses,
			Revenue:    b.revenueTotal(),
			Profit:     b.profit(),
			Categories: cats,
		})
	}
	return out
}
