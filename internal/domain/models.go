package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Actor struct {
	Username string
	Role     string
}

type ExpenseCategory struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	OrganizationID string `json:"organization_id"`
}

type ExpenseRecord struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	CategoryID     string          `json:"category_id"`
	Amount         decimal.Decimal `json:"amount"`
	IncurredAt     time.Time       `json:"incurred_at"`
}

type SalesRecord struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	Total          decimal.Decimal `json:"total"`
	Status         string          `json:"status"`
	OrderedAt      time.Time       `json:"ordered_at"`
}

type ForecastRequest struct {
	OrganizationID string `json:"organization_id"`
	Months         int    `json:"months"`
	HistoryMonths  int    `json:"history_months"`
}

type CategoryAmount struct {
	CategoryID string  `json:"category_id"`
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
}

type HistoryMonth struct {
	Month      string           `json:"month"`
	Expenses   float64          `json:"expenses"`
	Revenue    float64          `json:"revenue"`
	Profit     float64          `json:"profit"`
	Categories []CategoryAmount `json:"categories"`
}

type ForecastMonth struct {
	Month      string           `json:"month"`
	Expenses   float64          `json:"expenses"`
	Revenue    float64          `json:"revenue"`
	Profit     float64          `json:"profit"`
	Categories []CategoryAmount `json:"categories"`
}

type ForecastMetrics struct {
	AvgExpenseGrowth float64 `json:"avg_expense_growth"`
	AvgRevenueGrowth float64 `json:"avg_revenue_growth"`
	AvgProfitMargin  float64 `json:"avg_profit_margin"`
	ConfidenceScore  float64 `json:"confidence_score"`
}

type Insight struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Action      string `json:"action"`
}

type ForecastResponse struct {
	OrganizationID string          `json:"organization_id"`
	Months         int             `json:"months"`
	HistoryMonths  int             `json:"history_months"`
	GeneratedAt    string          `json:"generated_at"`
	History        []HistoryMonth  `json:"history"`
	Forecasts      []ForecastMonth `json:"forecasts"`
	Metrics        ForecastMetrics `json:"metrics"`
	Insights       []Insight       `json:"insights"`
}

// BudgetForecastItem is one category line of one forecasted month, with the
// month totals denormalized onto it.
type BudgetForecastItem struct {
	ID            string  `json:"id"`
	Month         string  `json:"month"`
	CategoryID    string  `json:"category_id"`
	CategoryName  string  `json:"category_name"`
	Amount        float64 `json:"amount"`
	Percentage    float64 `json:"percentage"`
	MonthExpenses float64 `json:"month_expenses"`
	MonthRevenue  float64 `json:"month_revenue"`
	MonthProfit   float64 `json:"month_profit"`
}

type BudgetForecastRecord struct {
	ID               string               `json:"id"`
	OrganizationID   string               `json:"organization_id"`
	StartDate        time.Time            `json:"start_date"`
	EndDate          time.Time            `json:"end_date"`
	ForecastMonths   int                  `json:"forecast_months"`
	HistoryMonths    int                  `json:"history_months"`
	ConfidenceScore  float64              `json:"confidence_score"`
	AvgExpenseGrowth float64              `json:"avg_expense_growth"`
	AvgRevenueGrowth float64              `json:"avg_revenue_growth"`
	AvgProfitMargin  float64              `json:"avg_profit_margin"`
	Items            []BudgetForecastItem `json:"items"`
	Insights         []Insight            `json:"insights"`
	CreatedBy        string               `json:"created_by"`
	CreatedAt        time.Time            `json:"created_at"`
}

type BudgetForecastListResponse struct {
	OrganizationID string                 `json:"organization_id"`
	Forecasts      []BudgetForecastRecord `json:"forecasts"`
}

const (
	SalesStatusCancelled = "cancelled"
)

const (
	InsightInfo    = "info"
	InsightWarning = "warning"
	InsightAlert   = "alert"
)
