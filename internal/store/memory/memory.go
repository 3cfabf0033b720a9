package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"cellarpos/backend/internal/domain"
	"cellarpos/backend/internal/store"
	"cellarpos/backend/internal/xid"
)

// DemoOrganizationID is the tenant NewSeeded fills with a year of books.
const DemoOrganizationID = "org-cellar-demo"

type Store struct {
	mu         sync.RWMutex
	categories map[string][]domain.ExpenseCategory
	expenses   map[string][]domain.ExpenseRecord
	sales      map[string][]domain.SalesRecord
	forecasts  map[string][]domain.BudgetForecastRecord
}

func New() *Store {
	return &Store{
		categories: make(map[string][]domain.ExpenseCategory),
		expenses:   make(map[string][]domain.ExpenseRecord),
		sales:      make(map[string][]domain.SalesRecord),
		forecasts:  make(map[string][]domain.BudgetForecastRecord),
	}
}

func NewSeeded() *Store {
	return NewSeededAt(time.Now().UTC())
}

// NewSeededAt seeds the demo liquor store with twelve months of expenses and
// orders ending in now's month. December carries the holiday stock-up.
func NewSeededAt(now time.Time) *Store {
	s := New()
	org := DemoOrganizationID

	categories := []domain.ExpenseCategory{
		{ID: "cat-stock", Name: "Stock Purchases", OrganizationID: org},
		{ID: "cat-rent", Name: "Rent", OrganizationID: org},
		{ID: "cat-wages", Name: "Wages", OrganizationID: org},
		{ID: "cat-utilities", Name: "Utilities", OrganizationID: org},
		{ID: "cat-marketing", Name: "Marketing", OrganizationID: org},
	}
	for _, cat := range categories {
		s.AddCategory(cat)
	}

	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := 11; i >= 0; i-- {
		month := start.AddDate(0, -i, 0)
		step := int64(11 - i)
		holiday := month.Month() == time.December
		winter := month.Month() == time.December || month.Month() == time.January || month.Month() == time.February

		stock := 1_800_000 + step*45_000
		if holiday {
			stock += 600_000
		}
		utilities := int64(85_000)
		if winter {
			utilities += 15_000
		}
		marketing := int64(120_000)
		if step%2 == 1 {
			marketing = 60_000
		}

		lines := []struct {
			categoryID string
			cents      int64
			day        int
		}{
			{"cat-stock", stock, 3},
			{"cat-rent", 450_000, 1},
			{"cat-wages", 900_000 + step*12_000, 25},
			{"cat-utilities", utilities, 12},
			{"cat-marketing", marketing, 8},
		}
		for _, line := range lines {
			s.AddExpense(domain.ExpenseRecord{
				ID:             xid.New("exp"),
				OrganizationID: org,
				CategoryID:     line.categoryID,
				Amount:         decimal.New(line.cents, -2),
				IncurredAt:     month.AddDate(0, 0, line.day-1).Add(10 * time.Hour),
			})
		}

		revenue := 4_200_000 + step*90_000
		if holiday {
			revenue += 1_200_000
		}
		for j, share := range []int64{40, 35, 25} {
			s.AddSale(domain.SalesRecord{
				ID:             xid.New("so"),
				OrganizationID: org,
				Total:          decimal.New(revenue*share/100, -2),
				Status:         "completed",
				OrderedAt:      month.AddDate(0, 0, 5+j*9).Add(18 * time.Hour),
			})
		}
		s.AddSale(domain.SalesRecord{
			ID:             xid.New("so"),
			OrganizationID: org,
			Total:          decimal.New(150_000, -2),
			Status:         domain.SalesStatusCancelled,
			OrderedAt:      month.AddDate(0, 0, 20).Add(15 * time.Hour),
		})
	}
	return s
}

func (s *Store) AddCategory(cat domain.ExpenseCategory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[cat.OrganizationID] = append(s.categories[cat.OrganizationID], cat)
}

func (s *Store) AddExpense(record domain.ExpenseRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses[record.OrganizationID] = append(s.expenses[record.OrganizationID], record)
}

func (s *Store) AddSale(record domain.SalesRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales[record.OrganizationID] = append(s.sales[record.OrganizationID], record)
}

func (s *Store) ListExpenseCategories(_ context.Context, organizationID string) ([]domain.ExpenseCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := slices.Clone(s.categories[organizationID])
	slices.SortFunc(result, func(a, b domain.ExpenseCategory) int {
		if a.Name == b.Name {
			return strings.Compare(a.ID, b.ID)
		}
		return strings.Compare(a.Name, b.Name)
	})
	return result, nil
}

func (s *Store) ListExpenses(_ context.Context, organizationID string, from time.Time, to time.Time) ([]domain.ExpenseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.ExpenseRecord, 0, 64)
	for _, record := range s.expenses[organizationID] {
		if record.IncurredAt.Before(from) || record.IncurredAt.After(to) {
			continue
		}
		result = append(result, record)
	}
	slices.SortFunc(result, func(a, b domain.ExpenseRecord) int { return a.IncurredAt.Compare(b.IncurredAt) })
	return result, nil
}

func (s *Store) ListSales(_ context.Context, organizationID string, from time.Time, to time.Time) ([]domain.SalesRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.SalesRecord, 0, 64)
	for _, record := range s.sales[organizationID] {
		if record.OrderedAt.Before(from) || record.OrderedAt.After(to) {
			continue
		}
		result = append(result, record)
	}
	slices.SortFunc(result, func(a, b domain.SalesRecord) int { return a.OrderedAt.Compare(b.OrderedAt) })
	return result, nil
}

func (s *Store) CreateBudgetForecast(_ context.Context, record domain.BudgetForecastRecord) (*domain.BudgetForecastRecord, error) {
	if strings.TrimSpace(record.OrganizationID) == "" {
		return nil, fmt.Errorf("%w: organization id is required", store.ErrInvalidRequest)
	}
	if record.ForecastMonths < 1 || record.HistoryMonths < 0 {
		return nil, fmt.Errorf("%w: forecast months must be positive", store.ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if record.ID == "" {
		record.ID = xid.New("bf")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	record.Items = slices.Clone(record.Items)
	for i := range record.Items {
		if record.Items[i].ID == "" {
			record.Items[i].ID = xid.New("bfi")
		}
	}
	record.Insights = slices.Clone(record.Insights)

	s.forecasts[record.OrganizationID] = append(s.forecasts[record.OrganizationID], record)
	stored := record
	return &stored, nil
}

func (s *Store) ListBudgetForecasts(_ context.Context, organizationID string, limit int) ([]domain.BudgetForecastRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := slices.Clone(s.forecasts[organizationID])
	slices.Reverse(result)
	slices.SortStableFunc(result, func(a, b domain.BudgetForecastRecord) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
