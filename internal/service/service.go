package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"cellarpos/backend/internal/cache"
	"cellarpos/backend/internal/domain"
	"cellarpos/backend/internal/forecast"
	"cellarpos/backend/internal/store"
)

var (
	ErrOrganizationRequired = errors.New("organization id is required")
	ErrUnauthenticated      = errors.New("unauthenticated")
)

const (
	defaultPersistTimeout = 5 * time.Second
	defaultListLimit      = 20
	maxListLimit          = 100
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	CacheTTL       time.Duration
	PersistTimeout time.Duration
	// MaxMonths caps both the forecast horizon and the history window.
	MaxMonths int
	Now       func() time.Time
}

type Service struct {
	repo           store.Repository
	cache          cache.ForecastCache
	engine         *forecast.Engine
	cacheTTL       time.Duration
	persistTimeout time.Duration
	maxMonths      int
	now            func() time.Time

	pending sync.WaitGroup
}

func New(repo store.Repository, forecastCache cache.ForecastCache, engine *forecast.Engine, opts Options) *Service {
	if forecastCache == nil {
		forecastCache = cache.NoopForecastCache{}
	}
	if engine == nil {
		engine = forecast.NewEngine(nil)
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = cache.DefaultForecastTTL
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = defaultPersistTimeout
	}
	if opts.MaxMonths < 1 || opts.MaxMonths > forecast.MaxMonths {
		opts.MaxMonths = forecast.MaxMonths
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		repo:           repo,
		cache:          forecastCache,
		engine:         engine,
		cacheTTL:       opts.CacheTTL,
		persistTimeout: opts.PersistTimeout,
		maxMonths:      opts.MaxMonths,
		now:            opts.Now,
	}
}

// Forecast returns the budget forecast for one organization. The boolean
// reports whether the response was served from cache.
func (s *Service) Forecast(ctx context.Context, req domain.ForecastRequest) (domain.ForecastResponse, bool, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Username == "" {
		return domain.ForecastResponse{}, false, ErrUnauthenticated
	}

	req.OrganizationID = strings.TrimSpace(req.OrganizationID)
	if req.OrganizationID == "" {
		return domain.ForecastResponse{}, false, ErrOrganizationRequired
	}
	req.Months = min(forecast.ClampMonths(req.Months, forecast.DefaultMonths), s.maxMonths)
	req.HistoryMonths = min(forecast.ClampMonths(req.HistoryMonths, forecast.DefaultHistoryMonths), s.maxMonths)

	logger := zerolog.Ctx(ctx).With().
		Str("organization_id", req.OrganizationID).
		Int("months", req.Months).
		Int("history_months", req.HistoryMonths).
		Logger()

	key := cache.ForecastKey(req.OrganizationID, req.Months, req.HistoryMonths)
	cached, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		return domain.ForecastResponse{}, false, fmt.Errorf("forecast cache: %w", err)
	}
	if hit && cached != nil {
		logger.Debug().Msg("budget forecast served from cache")
		return *cached, true, nil
	}

	now := s.now().UTC()
	from, to := forecast.HistoryWindow(now, req.HistoryMonths)

	var (
		categories []domain.ExpenseCategory
		expenses   []domain.ExpenseRecord
		sales      []domain.SalesRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = s.repo.ListExpenseCategories(gctx, req.OrganizationID)
		if err != nil {
			return fmt.Errorf("list expense categories: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		expenses, err = s.repo.ListExpenses(gctx, req.OrganizationID, from, to)
		if err != nil {
			return fmt.Errorf("list expenses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		sales, err = s.repo.ListSales(gctx, req.OrganizationID, from, to)
		if err != nil {
			return fmt.Errorf("list sales: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.ForecastResponse{}, false, err
	}

	result := s.engine.Forecast(forecast.Input{
		Categories:    categories,
		Expenses:      expenses,
		Sales:         sales,
		Months:        req.Months,
		HistoryMonths: req.HistoryMonths,
		Now:           now,
	})

	resp := domain.ForecastResponse{
		OrganizationID: req.OrganizationID,
		Months:         req.Months,
		HistoryMonths:  req.HistoryMonths,
		GeneratedAt:    now.Format(time.RFC3339),
		History:        result.History,
		Forecasts:      result.Forecasts,
		Metrics:        result.Metrics,
		Insights:       result.Insights,
	}

	logger.Info().
		Int("expenses", len(expenses)).
		Int("sales", len(sales)).
		Float64("confidence_score", resp.Metrics.ConfidenceScore).
		Int("insights", len(resp.Insights)).
		Msg("budget forecast computed")

	s.persist(ctx, logger, buildRecord(resp, from, forecast.ForecastEnd(now, req.Months), actor, now))

	if err := s.cache.Set(ctx, key, &resp, s.cacheTTL); err != nil {
		logger.Warn().Err(err).Msg("failed to cache budget forecast")
	}

	return resp, false, nil
}

func (s *Service) ListForecasts(ctx context.Context, organizationID string, limit int) (domain.BudgetForecastListResponse, error) {
	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return domain.BudgetForecastListResponse{}, ErrOrganizationRequired
	}
	if limit < 1 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	records, err := s.repo.ListBudgetForecasts(ctx, organizationID, limit)
	if err != nil {
		return domain.BudgetForecastListResponse{}, err
	}
	if records == nil {
		records = []domain.BudgetForecastRecord{}
	}
	return domain.BudgetForecastListResponse{OrganizationID: organizationID, Forecasts: records}, nil
}

// Wait blocks until detached forecast writes finish or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// persist writes the record in the background. The write outlives the request
// but not the persist timeout, and failures only reach the log.
func (s *Service) persist(ctx context.Context, logger zerolog.Logger, record domain.BudgetForecastRecord) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()
		saved, err := s.repo.CreateBudgetForecast(writeCtx, record)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to persist budget forecast")
			return
		}
		logger.Debug().Str("forecast_id", saved.ID).Int("items", len(saved.Items)).Msg("budget forecast persisted")
	}()
}

func buildRecord(resp domain.ForecastResponse, start time.Time, end time.Time, actor domain.Actor, now time.Time) domain.BudgetForecastRecord {
	items := make([]domain.BudgetForecastItem, 0, len(resp.Forecasts)*4)
	for _, month := range resp.Forecasts {
		for _, cat := range month.Categories {
			items = append(items, domain.BudgetForecastItem{
				Month:         month.Month,
				CategoryID:    cat.CategoryID,
				CategoryName:  cat.Name,
				Amount:        cat.Amount,
				Percentage:    cat.Percentage,
				MonthExpenses: month.Expenses,
				MonthRevenue:  month.Revenue,
				MonthProfit:   month.Profit,
			})
		}
	}

	return domain.BudgetForecastRecord{
		OrganizationID:   resp.OrganizationID,
		StartDate:        start,
		EndDate:          end,
		ForecastMonths:   resp.Months,
		HistoryMonths:    resp.HistoryMonths,
		ConfidenceScore:  resp.Metrics.ConfidenceScore,
		AvgExpenseGrowth: resp.Metrics.AvgExpenseGrowth,
		AvgRevenueGrowth: resp.Metrics.AvgRevenueGrowth,
		AvgProfitMargin:  resp.Metrics.AvgProfitMargin,
		Items:            items,
		Insights:         resp.Insights,
		CreatedBy:        actor.Username,
		CreatedAt:        now,
	}
}
