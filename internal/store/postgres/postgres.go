package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"cellarpos/backend/internal/domain"
	"cellarpos/backend/internal/store"
	"cellarpos/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// NewFromDB wraps an already opened handle. The caller keeps ownership of
// pool settings.
func NewFromDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListExpenseCategories(ctx context.Context, organizationID string) ([]domain.ExpenseCategory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, organization_id
		FROM expense_categories
		WHERE organization_id = $1
		ORDER BY name, id
	`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.ExpenseCategory, 0, 16)
	for rows.Next() {
		var c domain.ExpenseCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.OrganizationID); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) ListExpenses(ctx context.Context, organizationID string, from time.Time, to time.Time) ([]domain.ExpenseRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organization_id, category_id, amount, incurred_at
		FROM expenses
		WHERE organization_id = $1 AND incurred_at >= $2 AND incurred_at <= $3
		ORDER BY incurred_at, id
	`, organizationID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.ExpenseRecord, 0, 256)
	for rows.Next() {
		var e domain.ExpenseRecord
		var categoryID sql.NullString
		if err := rows.Scan(&e.ID, &e.OrganizationID, &categoryID, &e.Amount, &e.IncurredAt); err != nil {
			return nil, err
		}
		e.CategoryID = categoryID.String
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (s *Store) ListSales(ctx context.Context, organizationID string, from time.Time, to time.Time) ([]domain.SalesRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organization_id, total, status, ordered_at
		FROM sales_orders
		WHERE organization_id = $1 AND ordered_at >= $2 AND ordered_at <= $3
		ORDER BY ordered_at, id
	`, organizationID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.SalesRecord, 0, 256)
	for rows.Next() {
		var o domain.SalesRecord
		if err := rows.Scan(&o.ID, &o.OrganizationID, &o.Total, &o.Status, &o.OrderedAt); err != nil {
			return nil, err
		}
		o.Status = strings.ToLower(strings.TrimSpace(o.Status))
		sales = append(sales, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) CreateBudgetForecast(ctx context.Context, record domain.BudgetForecastRecord) (*domain.BudgetForecastRecord, error) {
	if strings.TrimSpace(record.OrganizationID) == "" {
		return nil, fmt.Errorf("%w: organization id is required", store.ErrInvalidRequest)
	}
	if record.ForecastMonths < 1 || record.HistoryMonths < 0 {
		return nil, fmt.Errorf("%w: forecast months must be positive", store.ErrInvalidRequest)
	}

	if record.ID == "" {
		record.ID = xid.New("bf")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if record.Insights == nil {
		record.Insights = []domain.Insight{}
	}
	insights, err := json.Marshal(record.Insights)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO budget_forecasts (
			id, organization_id, start_date, end_date, forecast_months, history_months,
			confidence_score, avg_expense_growth, avg_revenue_growth, avg_profit_margin,
			insights, created_by, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
		record.ID, record.OrganizationID, record.StartDate, record.EndDate, record.ForecastMonths, record.HistoryMonths,
		record.ConfidenceScore, record.AvgExpenseGrowth, record.AvgRevenueGrowth, record.AvgProfitMargin,
		insights, record.CreatedBy, record.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: duplicate forecast id", store.ErrInvalidRequest)
		}
		return nil, err
	}

	items := make([]domain.BudgetForecastItem, len(record.Items))
	copy(items, record.Items)
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = xid.New("bfi")
		}
		item := items[i]
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO budget_forecast_items (
				id, forecast_id, month, category_id, category_name, amount, percentage,
				month_expenses, month_revenue, month_profit
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`,
			item.ID, record.ID, item.Month, item.CategoryID, item.CategoryName, item.Amount, item.Percentage,
			item.MonthExpenses, item.MonthRevenue, item.MonthProfit,
		); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	record.Items = items
	return &record, nil
}

func (s *Store) ListBudgetForecasts(ctx context.Context, organizationID string, limit int) ([]domain.BudgetForecastRecord, error) {
	if limit < 1 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organization_id, start_date, end_date, forecast_months, history_months,
		       confidence_score, avg_expense_growth, avg_revenue_growth, avg_profit_margin,
		       insights, created_by, created_at
		FROM budget_forecasts
		WHERE organization_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, organizationID, limit)
	if err != nil {
		return nil, err
	}

	records := make([]domain.BudgetForecastRecord, 0, limit)
	index := make(map[string]int, limit)
	for rows.Next() {
		var r domain.BudgetForecastRecord
		var insights []byte
		if err := rows.Scan(
			&r.ID, &r.OrganizationID, &r.StartDate, &r.EndDate, &r.ForecastMonths, &r.HistoryMonths,
			&r.ConfidenceScore, &r.AvgExpenseGrowth, &r.AvgRevenueGrowth, &r.AvgProfitMargin,
			&insights, &r.CreatedBy, &r.CreatedAt,
		); err != nil {
			_ = rows.Close()
			return nil, err
		}
		r.Insights = []domain.Insight{}
		if len(insights) > 0 {
			if err := json.Unmarshal(insights, &r.Insights); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("decode insights for forecast %s: %w", r.ID, err)
			}
		}
		r.Items = []domain.BudgetForecastItem{}
		index[r.ID] = len(records)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if len(records) == 0 {
		return records, nil
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT id, forecast_id, month, category_id, category_name, amount, percentage,
		       month_expenses, month_revenue, month_profit
		FROM budget_forecast_items
		WHERE forecast_id IN (
			SELECT id FROM budget_forecasts
			WHERE organization_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		)
		ORDER BY forecast_id, month, category_name
	`, organizationID, limit)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item domain.BudgetForecastItem
		var forecastID string
		if err := itemRows.Scan(
			&item.ID, &forecastID, &item.Month, &item.CategoryID, &item.CategoryName, &item.Amount, &item.Percentage,
			&item.MonthExpenses, &item.MonthRevenue, &item.MonthProfit,
		); err != nil {
			return nil, err
		}
		idx, ok := index[forecastID]
		if !ok {
			continue
		}
		records[idx].Items = append(records[idx].Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
