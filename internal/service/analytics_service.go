package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/sync/errgroup"

	"github.com/castlemilk/pfinance/analytics/internal/auth"
	"github.com/castlemilk/pfinance/analytics/internal/cache"
	"github.com/castlemilk/pfinance/analytics/internal/forecast"
	"github.com/castlemilk/pfinance/analytics/internal/insights"
	"github.com/castlemilk/pfinance/analytics/internal/logger"
	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/notify"
	"github.com/castlemilk/pfinance/analytics/internal/recurring"
	"github.com/castlemilk/pfinance/analytics/internal/store"
)

// ServiceName is the fully-qualified connect service name.
const ServiceName = "pfinance.analytics.v1.AnalyticsService"

const (
	ComputeRecurringChargesProcedure = "/" + ServiceName + "/ComputeRecurringCharges"
	ForecastGoalProcedure            = "/" + ServiceName + "/ForecastGoal"
	RankInsightsProcedure            = "/" + ServiceName + "/RankInsights"
	InvestmentCapacityProcedure      = "/" + ServiceName + "/InvestmentCapacity"
)

// maxFeedSize bounds top_n + buffer on a single request.
const maxFeedSize = 50

// Config wires the analysis components behind the service.
type Config struct {
	Recurring recurring.Config
	Forecast  forecast.Config
	Insights  insights.Config
	CacheSize int
	CacheTTL  time.Duration
	// Now is the clock every component shares; nil uses time.Now.
	Now func() time.Time
}

// AnalyticsService exposes recurring-charge detection, goal forecasting,
// insight ranking and investment capacity over the caller's stored ledger.
type AnalyticsService struct {
	store    store.Store
	detector *recurring.Detector
	engine   *forecast.Engine
	pipeline *insights.Pipeline
	notifier *notify.Notifier
	now      func() time.Time

	recurringCache *cache.LRUCache[*recurring.Result]
	forecastCache  *cache.LRUCache[*forecast.GoalForecast]
	insightCache   *cache.LRUCache[[]insights.Insight]
}

// NewAnalyticsService creates the service. notifier may be nil, in which
// case no alerts are published.
func NewAnalyticsService(st store.Store, cfg Config, notifier *notify.Notifier) *AnalyticsService {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	detector := recurring.NewDetector(cfg.Recurring)

	return &AnalyticsService{
		store:          st,
		detector:       detector,
		engine:         forecast.NewEngine(cfg.Forecast, detector, now),
		pipeline:       insights.NewPipeline(cfg.Insights, detector, now),
		notifier:       notifier,
		now:            now,
		recurringCache: cache.NewLRUCache[*recurring.Result](cfg.CacheSize, cfg.CacheTTL),
		forecastCache:  cache.NewLRUCache[*forecast.GoalForecast](cfg.CacheSize, cfg.CacheTTL),
		insightCache:   cache.NewLRUCache[[]insights.Insight](cfg.CacheSize, cfg.CacheTTL),
	}
}

// Handler mounts the service's procedures and returns the path prefix to
// register them under.
func (s *AnalyticsService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{Codec()}, opts...)
	mux := http.NewServeMux()
	mux.Handle(ComputeRecurringChargesProcedure, connect.NewUnaryHandler(ComputeRecurringChargesProcedure, s.ComputeRecurringCharges, opts...))
	mux.Handle(ForecastGoalProcedure, connect.NewUnaryHandler(ForecastGoalProcedure, s.ForecastGoal, opts...))
	mux.Handle(RankInsightsProcedure, connect.NewUnaryHandler(RankInsightsProcedure, s.RankInsights, opts...))
	mux.Handle(InvestmentCapacityProcedure, connect.NewUnaryHandler(InvestmentCapacityProcedure, s.InvestmentCapacity, opts...))
	return "/" + ServiceName + "/", mux
}

// ComputeRecurringCharges detects subscriptions in the caller's ledger.
func (s *AnalyticsService) ComputeRecurringCharges(ctx context.Context, req *connect.Request[ComputeRecurringChargesRequest]) (*connect.Response[ComputeRecurringChargesResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	log := logger.Component(ctx, "Service").With().Str("user_id", claims.UID).Logger()

	txns, err := store.AllTransactions(ctx, s.store, claims.UID)
	if err != nil {
		return nil, toConnectError("list transactions", err)
	}

	key, err := cache.Key("recurring", s.asOf(), txns)
	if err != nil {
		return nil, toConnectError("hash inputs", err)
	}
	result, ok := s.recurringCache.Get(key)
	if !ok {
		result, err = s.detector.Detect(ctx, txns)
		if err != nil {
			return nil, toConnectError("detect recurring charges", err)
		}
		s.recurringCache.Set(key, result)
	}
	log.Debug().Bool("cached", ok).Int("subscriptions", result.Summary.Count).Msg("computed recurring charges")

	return connect.NewResponse(&ComputeRecurringChargesResponse{
		Subscriptions: result.Subscriptions,
		Summary:       result.Summary,
	}), nil
}

// ForecastGoal projects one of the caller's goals against the others.
func (s *AnalyticsService) ForecastGoal(ctx context.Context, req *connect.Request[ForecastGoalRequest]) (*connect.Response[ForecastGoalResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.GoalID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("goal_id is required"))
	}
	log := logger.Component(ctx, "Service").With().Str("user_id", claims.UID).Str("goal_id", req.Msg.GoalID).Logger()

	var (
		goal  *model.Goal
		goals []model.Goal
		txns  []model.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		goal, err = s.store.GetGoal(gctx, req.Msg.GoalID)
		if err != nil {
			return fmt.Errorf("get goal: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		goals, err = store.AllGoals(gctx, s.store, claims.UID)
		return err
	})
	g.Go(func() error {
		var err error
		txns, err = store.AllTransactions(gctx, s.store, claims.UID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, toConnectError("load forecast inputs", err)
	}
	if _, err := auth.RequireUserAccess(ctx, goal.UserID); err != nil {
		return nil, err
	}

	siblings := make([]model.Goal, 0, len(goals))
	for _, other := range goals {
		if other.ID != goal.ID {
			siblings = append(siblings, other)
		}
	}

	key, err := cache.Key("forecast", s.asOf(), goal, siblings, txns)
	if err != nil {
		return nil, toConnectError("hash inputs", err)
	}
	fc, ok := s.forecastCache.Get(key)
	if !ok {
		fc, err = s.engine.ForecastGoal(ctx, *goal, siblings, txns)
		if err != nil {
			return nil, toConnectError("forecast goal", err)
		}
		s.forecastCache.Set(key, fc)
	}
	log.Debug().Bool("cached", ok).Str("status", string(fc.Status)).Msg("forecast goal")

	return connect.NewResponse(&ForecastGoalResponse{Forecast: fc}), nil
}

// RankInsights returns the caller's ranked insight feed and publishes urgent
// alerts the first time a feed is computed.
func (s *AnalyticsService) RankInsights(ctx context.Context, req *connect.Request[RankInsightsRequest]) (*connect.Response[RankInsightsResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.TopN < 0 || req.Msg.Buffer < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("top_n and buffer must not be negative"))
	}
	if int64(req.Msg.TopN)+int64(req.Msg.Buffer) > maxFeedSize {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("top_n + buffer must not exceed %d", maxFeedSize))
	}
	log := logger.Component(ctx, "Service").With().Str("user_id", claims.UID).Logger()

	var (
		goals []model.Goal
		txns  []model.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		goals, err = store.AllGoals(gctx, s.store, claims.UID)
		return err
	})
	g.Go(func() error {
		var err error
		txns, err = store.AllTransactions(gctx, s.store, claims.UID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, toConnectError("load insight inputs", err)
	}

	topN, buffer := int(req.Msg.TopN), int(req.Msg.Buffer)
	key, err := cache.Key("insights", s.asOf(), topN, buffer, goals, txns)
	if err != nil {
		return nil, toConnectError("hash inputs", err)
	}
	feed, ok := s.insightCache.Get(key)
	if !ok {
		feed, err = s.pipeline.RankInsights(ctx, txns, nil, goals, topN, buffer)
		if err != nil {
			return nil, toConnectError("rank insights", err)
		}
		s.insightCache.Set(key, feed)
		if s.notifier != nil {
			s.notifier.Notify(ctx, claims.UID, feed)
		}
	}
	log.Debug().Bool("cached", ok).Int("insights", len(feed)).Msg("ranked insights")

	visible := 0
	for _, ins := range feed {
		if !ins.IsReserve {
			visible++
		}
	}
	return connect.NewResponse(&RankInsightsResponse{Insights: feed, Visible: visible}), nil
}

// InvestmentCapacity reports how much the caller could invest each month once
// spending and goal commitments are covered.
func (s *AnalyticsService) InvestmentCapacity(ctx context.Context, req *connect.Request[InvestmentCapacityRequest]) (*connect.Response[InvestmentCapacityResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.MonthlyIncome < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("monthly_income must not be negative"))
	}
	log := logger.Component(ctx, "Service").With().Str("user_id", claims.UID).Logger()

	var (
		goals []model.Goal
		txns  []model.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		goals, err = store.AllGoals(gctx, s.store, claims.UID)
		return err
	})
	g.Go(func() error {
		var err error
		txns, err = store.AllTransactions(gctx, s.store, claims.UID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, toConnectError("load capacity inputs", err)
	}

	capacity, err := s.engine.InvestmentCapacity(ctx, forecast.CapacityRequest{
		MonthlyIncome: req.Msg.MonthlyIncome,
		Gross:         req.Msg.Gross,
	}, goals, txns)
	if err != nil {
		return nil, toConnectError("compute investment capacity", err)
	}
	log.Debug().
		Str("income_source", string(capacity.IncomeSource)).
		Float64("investable_surplus", capacity.InvestableSurplus).
		Msg("computed investment capacity")

	return connect.NewResponse(&InvestmentCapacityResponse{Capacity: capacity}), nil
}

// RunCacheCleanup drops expired results every interval until ctx is done.
func (s *AnalyticsService) RunCacheCleanup(ctx context.Context, interval time.Duration) {
	log := logger.Component(ctx, "Service")
	cache.RunCleanup(ctx, interval, func(removed int) {
		hits, misses := s.insightCache.Stats()
		log.Debug().
			Int("removed", removed).
			Int("insight_entries", s.insightCache.Size()).
			Uint64("insight_hits", hits).
			Uint64("insight_misses", misses).
			Msg("cache cleanup")
	}, s.recurringCache, s.forecastCache, s.insightCache)
}

func (s *AnalyticsService) asOf() string {
	return model.Day(s.now()).Format(model.DateLayout)
}
