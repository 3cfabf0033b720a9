package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"cellarpos/backend/internal/domain"
)

const integrationSchema = `
CREATE TABLE IF NOT EXISTS expense_categories (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	organization_id TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS expenses (
	id TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	category_id TEXT,
	amount NUMERIC(14,2) NOT NULL,
	incurred_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS sales_orders (
	id TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	total NUMERIC(14,2) NOT NULL,
	status TEXT NOT NULL,
	ordered_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS budget_forecasts (
	id TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	start_date TIMESTAMPTZ NOT NULL,
	end_date TIMESTAMPTZ NOT NULL,
	forecast_months INT NOT NULL,
	history_months INT NOT NULL,
	confidence_score DOUBLE PRECISION NOT NULL,
	avg_expense_growth DOUBLE PRECISION NOT NULL,
	avg_revenue_growth DOUBLE PRECISION NOT NULL,
	avg_profit_margin DOUBLE PRECISION NOT NULL,
	insights JSONB NOT NULL,
	created_by TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS budget_forecast_items (
	id TEXT PRIMARY KEY,
	forecast_id TEXT NOT NULL REFERENCES budget_forecasts(id) ON DELETE CASCADE,
	month TEXT NOT NULL,
	category_id TEXT NOT NULL,
	category_name TEXT NOT NULL,
	amount DOUBLE PRECISION NOT NULL,
	percentage DOUBLE PRECISION NOT NULL,
	month_expenses DOUBLE PRECISION NOT NULL,
	month_revenue DOUBLE PRECISION NOT NULL,
	month_profit DOUBLE PRECISION NOT NULL
);
`

func TestBudgetForecastRoundTrip(t *testing.T) {
	databaseURL := os.Getenv("CELLARPOS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set CELLARPOS_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	if _, err := s.db.ExecContext(ctx, integrationSchema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	stamp := time.Now().UnixNano()
	orgID := fmt.Sprintf("org-it-%d", stamp)
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM budget_forecasts WHERE organization_id = $1`, orgID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM expenses WHERE organization_id = $1`, orgID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM expense_categories WHERE organization_id = $1`, orgID)
	})

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO expense_categories (id, name, organization_id) VALUES ($1, 'Rent', $2)
	`, fmt.Sprintf("cat-it-%d", stamp), orgID); err != nil {
		t.Fatalf("insert category: %v", err)
	}
	incurred := time.Date(2026, time.February, 3, 10, 0, 0, 0, time.UTC)
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, organization_id, category_id, amount, incurred_at)
		VALUES ($1, $2, $3, 4500.25, $4)
	`, fmt.Sprintf("exp-it-%d", stamp), orgID, fmt.Sprintf("cat-it-%d", stamp), incurred); err != nil {
		t.Fatalf("insert expense: %v", err)
	}

	expenses, err := s.ListExpenses(ctx, orgID, incurred.AddDate(0, 0, -2), incurred.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	if len(expenses) != 1 || expenses[0].Amount.StringFixed(2) != "4500.25" {
		t.Fatalf("unexpected expenses: %+v", expenses)
	}

	created, err := s.CreateBudgetForecast(ctx, domain.BudgetForecastRecord{
		OrganizationID:  orgID,
		StartDate:       time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2026, time.June, 30, 23, 59, 59, 0, time.UTC),
		ForecastMonths:  3,
		HistoryMonths:   6,
		ConfidenceScore: 72.5,
		Items: []domain.BudgetForecastItem{
			{Month: "2026-04", CategoryID: "cat-rent", CategoryName: "Rent", Amount: 4500, Percentage: 100, MonthExpenses: 4500},
		},
		Insights:  []domain.Insight{{Type: domain.InsightWarning, Title: "Expense Increase Warning"}},
		CreatedBy: "it",
	})
	if err != nil {
		t.Fatalf("create forecast: %v", err)
	}

	list, err := s.ListBudgetForecasts(ctx, orgID, 10)
	if err != nil {
		t.Fatalf("list forecasts: %v", err)
	}
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("expected created forecast in list, got %+v", list)
	}
	if len(list[0].Items) != 1 || len(list[0].Insights) != 1 {
		t.Fatalf("expected items and insights to round-trip, got %+v", list[0])
	}
}
