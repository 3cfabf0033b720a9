package store

import (
	"context"
	"errors"
	"time"

	"cellarpos/backend/internal/domain"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
)

// Repository is the read side of an organization's books plus the append-only
// log of budget forecasts. Every method is scoped to a single organization.
type Repository interface {
	ListExpenseCategories(ctx context.Context, organizationID string) ([]domain.ExpenseCategory, error)
	// ListExpenses returns expenses incurred within [from, to].
	ListExpenses(ctx context.Context, organizationID string, from time.Time, to time.Time) ([]domain.ExpenseRecord, error)
	// ListSales returns orders placed within [from, to], cancelled ones included.
	ListSales(ctx context.Context, organizationID string, from time.Time, to time.Time) ([]domain.SalesRecord, error)
	CreateBudgetForecast(ctx context.Context, record domain.BudgetForecastRecord) (*domain.BudgetForecastRecord, error)
	// ListBudgetForecasts returns the newest records first.
	ListBudgetForecasts(ctx context.Context, organizationID string, limit int) ([]domain.BudgetForecastRecord, error)
}
