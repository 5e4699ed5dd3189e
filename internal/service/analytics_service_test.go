package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/castlemilk/pfinance/analytics/internal/auth"
	"github.com/castlemilk/pfinance/analytics/internal/forecast"
	"github.com/castlemilk/pfinance/analytics/internal/insights"
	"github.com/castlemilk/pfinance/analytics/internal/logger"
	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/notify"
	"github.com/castlemilk/pfinance/analytics/internal/recurring"
	"github.com/castlemilk/pfinance/analytics/internal/store"
)

const userID = "user-1"

var asOf = time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)

// ledger is six steady months with a dining spike in June.
func ledger() []model.Transaction {
	var txns []model.Transaction
	for m := time.January; m <= time.June; m++ {
		d := func(day int) time.Time { return time.Date(2025, m, day, 0, 0, 0, 0, time.UTC) }
		id := func(s string) string { return fmt.Sprintf("%s-%02d", s, int(m)) }
		txns = append(txns,
			model.Transaction{ID: id("pay"), UserID: userID, Date: d(1), Amount: 3000, Merchant: "Employer", Categories: []string{"INCOME"}},
			model.Transaction{ID: id("rent"), UserID: userID, Date: d(2), Amount: -1500, Merchant: "Landlord", Categories: []string{"RENT_AND_UTILITIES"}},
			model.Transaction{ID: id("netflix"), UserID: userID, Date: d(5), Amount: -15.99, Merchant: "Netflix", Categories: []string{"ENTERTAINMENT"}},
			model.Transaction{ID: id("food"), UserID: userID, Date: d(10), Amount: -400, Merchant: "Corner Bistro", Categories: []string{"FOOD_AND_DRINK"}},
		)
	}
	txns = append(txns, model.Transaction{
		ID: "sushi-06", UserID: userID, Date: time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC),
		Amount: -400, Merchant: "Sushi Place", Categories: []string{"FOOD_AND_DRINK"},
	})
	return txns
}

func tripGoal() *model.Goal {
	return &model.Goal{
		ID:             "trip",
		UserID:         userID,
		Name:           "Trip",
		TargetAmount:   5000,
		CurrentSavings: 1000,
		Deadline:       time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Priority:       model.PriorityHigh,
	}
}

func carGoal() model.Goal {
	return model.Goal{
		ID:             "car",
		UserID:         userID,
		Name:           "Car",
		TargetAmount:   8000,
		CurrentSavings: 0,
		Deadline:       time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC),
		Priority:       model.PriorityLow,
	}
}

func newTestService(st store.Store, notifier *notify.Notifier) *AnalyticsService {
	return NewAnalyticsService(st, Config{
		Recurring: recurring.DefaultConfig(),
		Forecast:  forecast.DefaultConfig(),
		Insights:  insights.DefaultConfig(),
		CacheSize: 10,
		CacheTTL:  time.Hour,
		Now:       func() time.Time { return asOf },
	}, notifier)
}

func expectLedger(mockStore *store.MockStore, txns []model.Transaction) {
	mockStore.EXPECT().
		ListTransactions(gomock.Any(), userID, gomock.Nil(), gomock.Nil(), gomock.Any(), "").
		Return(txns, "", nil).AnyTimes()
}

func expectGoals(mockStore *store.MockStore, goals ...model.Goal) {
	mockStore.EXPECT().
		ListGoals(gomock.Any(), userID, gomock.Any(), "").
		Return(goals, "", nil).AnyTimes()
}

func TestComputeRecurringCharges(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := store.NewMockStore(ctrl)
	svc := newTestService(mockStore, nil)
	expectLedger(mockStore, ledger())

	t.Run("detects subscriptions", func(t *testing.T) {
		resp, err := svc.ComputeRecurringCharges(testContextWithUser(userID), connect.NewRequest(&ComputeRecurringChargesRequest{}))
		require.NoError(t, err)

		keys := make([]string, 0, len(resp.Msg.Subscriptions))
		for _, sub := range resp.Msg.Subscriptions {
			keys = append(keys, sub.MerchantKey)
		}
		assert.Contains(t, keys, "netflix")
		assert.Equal(t, len(resp.Msg.Subscriptions), resp.Msg.Summary.Count)
	})

	t.Run("second call is served from cache", func(t *testing.T) {
		_, err := svc.ComputeRecurringCharges(testContextWithUser(userID), connect.NewRequest(&ComputeRecurringChargesRequest{}))
		require.NoError(t, err)
		hits, _ := svc.recurringCache.Stats()
		assert.Equal(t, uint64(1), hits)
	})

	t.Run("requires auth", func(t *testing.T) {
		_, err := svc.ComputeRecurringCharges(context.Background(), connect.NewRequest(&ComputeRecurringChargesRequest{}))
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})
}

func TestComputeRecurringChargesErrors(t *testing.T) {
	t.Run("malformed ledger is a failed precondition", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockStore := store.NewMockStore(ctrl)
		svc := newTestService(mockStore, nil)

		txns := ledger()
		txns[1].ID = txns[0].ID
		expectLedger(mockStore, txns)

		_, err := svc.ComputeRecurringCharges(testContextWithUser(userID), connect.NewRequest(&ComputeRecurringChargesRequest{}))
		assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))
	})

	t.Run("store failure is internal", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockStore := store.NewMockStore(ctrl)
		svc := newTestService(mockStore, nil)

		mockStore.EXPECT().
			ListTransactions(gomock.Any(), userID, gomock.Nil(), gomock.Nil(), gomock.Any(), "").
			Return(nil, "", errors.New("firestore unavailable"))

		_, err := svc.ComputeRecurringCharges(testContextWithUser(userID), connect.NewRequest(&ComputeRecurringChargesRequest{}))
		assert.Equal(t, connect.CodeInternal, connect.CodeOf(err))
		assert.Contains(t, err.Error(), "failed to list transactions")
	})
}

func TestForecastGoal(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := store.NewMockStore(ctrl)
	svc := newTestService(mockStore, nil)

	expectLedger(mockStore, ledger())
	expectGoals(mockStore, *tripGoal(), carGoal())
	mockStore.EXPECT().GetGoal(gomock.Any(), "trip").Return(tripGoal(), nil).AnyTimes()

	resp, err := svc.ForecastGoal(testContextWithUser(userID), connect.NewRequest(&ForecastGoalRequest{GoalID: "trip"}))
	require.NoError(t, err)

	fc := resp.Msg.Forecast
	require.NotNil(t, fc)
	assert.Equal(t, "trip", fc.GoalID)
	assert.Equal(t, 6, fc.MonthsRemaining)
	assert.Equal(t, forecast.TerminalNone, fc.TerminalState)
	require.NotNil(t, fc.Competition)
	require.Len(t, fc.Competition.CompetingGoals, 1)
	assert.Equal(t, "car", fc.Competition.CompetingGoals[0].GoalID)
}

func TestForecastGoalErrors(t *testing.T) {
	tests := []struct {
		name     string
		ctx      context.Context
		goalID   string
		setup    func(*store.MockStore)
		wantCode connect.Code
	}{
		{
			name:     "requires auth",
			ctx:      context.Background(),
			goalID:   "trip",
			setup:    func(*store.MockStore) {},
			wantCode: connect.CodeUnauthenticated,
		},
		{
			name:     "requires goal id",
			ctx:      testContextWithUser(userID),
			setup:    func(*store.MockStore) {},
			wantCode: connect.CodeInvalidArgument,
		},
		{
			name:   "unknown goal",
			ctx:    testContextWithUser(userID),
			goalID: "missing",
			setup: func(m *store.MockStore) {
				expectLedger(m, ledger())
				expectGoals(m)
				m.EXPECT().GetGoal(gomock.Any(), "missing").Return(nil, store.ErrNotFound)
			},
			wantCode: connect.CodeNotFound,
		},
		{
			name:   "another user's goal",
			ctx:    testContextWithUser(userID),
			goalID: "theirs",
			setup: func(m *store.MockStore) {
				expectLedger(m, ledger())
				expectGoals(m)
				m.EXPECT().GetGoal(gomock.Any(), "theirs").Return(&model.Goal{ID: "theirs", UserID: "user-2"}, nil)
			},
			wantCode: connect.CodePermissionDenied,
		},
		{
			name:   "malformed goal",
			ctx:    testContextWithUser(userID),
			goalID: "trip",
			setup: func(m *store.MockStore) {
				expectLedger(m, ledger())
				expectGoals(m)
				bad := tripGoal()
				bad.Priority = "urgent"
				m.EXPECT().GetGoal(gomock.Any(), "trip").Return(bad, nil)
			},
			wantCode: connect.CodeFailedPrecondition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockStore := store.NewMockStore(ctrl)
			tt.setup(mockStore)
			svc := newTestService(mockStore, nil)

			_, err := svc.ForecastGoal(tt.ctx, connect.NewRequest(&ForecastGoalRequest{GoalID: tt.goalID}))
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, connect.CodeOf(err))
		})
	}
}

func TestRankInsights(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := store.NewMockStore(ctrl)
	publisher := notify.NewMockPublisher(ctrl)

	var published []notify.AlertEvent
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ev notify.AlertEvent) error {
			published = append(published, ev)
			return nil
		}).AnyTimes()

	svc := newTestService(mockStore, notify.NewNotifier(publisher, insights.LevelHigh, notify.DefaultRetryConfig))
	expectLedger(mockStore, ledger())
	expectGoals(mockStore, *tripGoal())

	req := connect.NewRequest(&RankInsightsRequest{TopN: 3, Buffer: 2})
	resp, err := svc.RankInsights(testContextWithUser(userID), req)
	require.NoError(t, err)

	feed := resp.Msg.Insights
	require.NotEmpty(t, feed)
	assert.LessOrEqual(t, len(feed), 5)
	assert.LessOrEqual(t, resp.Msg.Visible, 3)
	for i, ins := range feed {
		assert.Equal(t, i >= resp.Msg.Visible, ins.IsReserve, "item %d", i)
	}

	var spike *insights.Insight
	for i := range feed {
		if feed[i].TriggerType == insights.TriggerSpendSpike {
			spike = &feed[i]
		}
	}
	require.NotNil(t, spike, "june dining doubled")
	assert.Equal(t, insights.LevelCritical, spike.PriorityLevel)

	require.NotEmpty(t, published)
	assert.Equal(t, userID, published[0].UserID)
	sent := len(published)

	again, err := svc.RankInsights(testContextWithUser(userID), req)
	require.NoError(t, err)
	assert.Equal(t, feed, again.Msg.Insights)
	assert.Len(t, published, sent, "cached feeds are not re-published")
}

func TestRankInsightsValidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := newTestService(store.NewMockStore(ctrl), nil)
	ctx := testContextWithUser(userID)

	for _, msg := range []*RankInsightsRequest{
		{TopN: -1},
		{Buffer: -2},
		{TopN: 40, Buffer: 20},
		{TopN: math.MaxInt32, Buffer: 1},
	} {
		_, err := svc.RankInsights(ctx, connect.NewRequest(msg))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err), "%+v", msg)
	}

	_, err := svc.RankInsights(context.Background(), connect.NewRequest(&RankInsightsRequest{}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}

func TestInvestmentCapacity(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := store.NewMockStore(ctrl)
	svc := newTestService(mockStore, nil)
	expectLedger(mockStore, ledger())
	expectGoals(mockStore, *tripGoal(), carGoal())

	resp, err := svc.InvestmentCapacity(testContextWithUser(userID), connect.NewRequest(&InvestmentCapacityRequest{MonthlyIncome: 4000}))
	require.NoError(t, err)

	c := resp.Msg.Capacity
	require.NotNil(t, c)
	assert.Equal(t, forecast.IncomeDeclared, c.IncomeSource)
	assert.Equal(t, 2, c.ActiveGoals)
	assert.Equal(t, 2049.32, c.AverageMonthlySpending)
	assert.Greater(t, c.InvestableSurplus, 0.0)
	assert.Zero(t, c.Shortfall)
}

func TestInvestmentCapacityErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := store.NewMockStore(ctrl)
	svc := newTestService(mockStore, nil)

	_, err := svc.InvestmentCapacity(testContextWithUser(userID), connect.NewRequest(&InvestmentCapacityRequest{MonthlyIncome: -1}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = svc.InvestmentCapacity(context.Background(), connect.NewRequest(&InvestmentCapacityRequest{}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	expectLedger(mockStore, ledger())
	expectGoals(mockStore, model.Goal{ID: "broken", UserID: userID})
	_, err = svc.InvestmentCapacity(testContextWithUser(userID), connect.NewRequest(&InvestmentCapacityRequest{MonthlyIncome: 100}))
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))
}

func TestRunCacheCleanup(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := store.NewMockStore(ctrl)
	expectLedger(mockStore, ledger())
	svc := NewAnalyticsService(mockStore, Config{
		Recurring: recurring.DefaultConfig(),
		Forecast:  forecast.DefaultConfig(),
		Insights:  insights.DefaultConfig(),
		CacheSize: 10,
		CacheTTL:  time.Millisecond,
		Now:       func() time.Time { return asOf },
	}, nil)

	_, err := svc.ComputeRecurringCharges(testContextWithUser(userID), connect.NewRequest(&ComputeRecurringChargesRequest{}))
	require.NoError(t, err)
	require.Equal(t, 1, svc.recurringCache.Size())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.RunCacheCleanup(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return svc.recurringCache.Size() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHandlerOverHTTP(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := store.NewMockStore(ctrl)
	svc := newTestService(mockStore, nil)
	expectLedger(mockStore, ledger())
	expectGoals(mockStore, *tripGoal())

	var logs bytes.Buffer
	path, handler := svc.Handler(connect.WithInterceptors(
		LoggingInterceptor(logger.NewWithWriter(&logs)),
		auth.DevInterceptor(userID),
	))
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := connect.NewClient[RankInsightsRequest, RankInsightsResponse](
		srv.Client(), srv.URL+RankInsightsProcedure, Codec(),
	)
	resp, err := client.CallUnary(context.Background(), connect.NewRequest(&RankInsightsRequest{TopN: 2}))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Msg.Insights)
	assert.LessOrEqual(t, resp.Msg.Visible, 2)

	assert.Contains(t, logs.String(), RankInsightsProcedure)
	assert.Contains(t, logs.String(), `"code":"ok"`)

	bad := connect.NewClient[ForecastGoalRequest, ForecastGoalResponse](
		srv.Client(), srv.URL+ForecastGoalProcedure, Codec(),
	)
	_, err = bad.CallUnary(context.Background(), connect.NewRequest(&ForecastGoalRequest{}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	assert.Contains(t, logs.String(), `"code":"invalid_argument"`)
}

func TestToConnectError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want connect.Code
	}{
		{"upstream", model.NewUpstreamError("date", "bad"), connect.CodeFailedPrecondition},
		{"wrapped not found", fmt.Errorf("get goal: %w", store.ErrNotFound), connect.CodeNotFound},
		{"cancelled", context.Canceled, connect.CodeCanceled},
		{"deadline", context.DeadlineExceeded, connect.CodeDeadlineExceeded},
		{"connect error kept", connect.NewError(connect.CodePermissionDenied, errors.New("no")), connect.CodePermissionDenied},
		{"anything else", errors.New("boom"), connect.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, connect.CodeOf(toConnectError("op", tt.err)))
		})
	}
	assert.NoError(t, toConnectError("op", nil))
}

func TestJSONCodec(t *testing.T) {
	c := jsonCodec{}
	assert.Equal(t, "json", c.Name())

	data, err := c.Marshal(&RankInsightsRequest{TopN: 3, Buffer: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"top_n":3,"buffer":1}`, string(data))

	var req RankInsightsRequest
	require.NoError(t, c.Unmarshal(nil, &req))
	require.NoError(t, c.Unmarshal([]byte(`{"top_n":4}`), &req))
	assert.Equal(t, int32(4), req.TopN)
}
