package forecast

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/recurring"
)

var asOf = time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)

func clock() time.Time { return asOf }

func newTestEngine() *Engine {
	return NewEngine(DefaultConfig(), recurring.NewDetector(recurring.DefaultConfig()), clock)
}

// steadyHistory yields six months (Jan-Jun 2025) of 3000 income against 2500 spend.
func steadyHistory() []model.Transaction {
	var txns []model.Transaction
	for m := time.January; m <= time.June; m++ {
		d := func(day int) time.Time { return time.Date(2025, m, day, 0, 0, 0, 0, time.UTC) }
		id := func(s string) string { return fmt.Sprintf("%s-%02d", s, int(m)) }
		txns = append(txns,
			model.Transaction{ID: id("pay"), Date: d(1), Amount: 3000, Merchant: "Employer", Categories: []string{"INCOME"}},
			model.Transaction{ID: id("rent"), Date: d(2), Amount: -1500, Merchant: "Landlord", Categories: []string{"RENT_AND_UTILITIES"}},
			model.Transaction{ID: id("food"), Date: d(10), Amount: -400, Merchant: "Corner Bistro", Categories: []string{"FOOD_AND_DRINK"}},
			model.Transaction{ID: id("fun"), Date: d(12), Amount: -200, Merchant: "Cinema", Categories: []string{"ENTERTAINMENT"}},
			model.Transaction{ID: id("shop"), Date: d(20), Amount: -400, Merchant: "Department Store", Categories: []string{"GENERAL_MERCHANDISE"}},
		)
	}
	return txns
}

func goal(id string, target, current float64, monthsOut int, priority model.Priority) model.Goal {
	return model.Goal{
		ID:             id,
		Name:           "Goal " + id,
		TargetAmount:   target,
		CurrentSavings: current,
		Deadline:       asOf.AddDate(0, monthsOut, 0),
		Priority:       priority,
	}
}

func TestForecastGapScenario(t *testing.T) {
	e := newTestEngine()
	g := goal("trip", 5000, 1000, 6, model.PriorityMedium)

	fc, err := e.ForecastGoal(context.Background(), g, nil, steadyHistory())
	require.NoError(t, err)

	assert.Equal(t, 6, fc.MonthsRemaining)
	assert.Equal(t, 500.0, fc.Projection.ExpectedMonthlySavings)
	assert.Equal(t, 4000.0, fc.Projection.ExpectedTotal)
	assert.Equal(t, StatusLikely, fc.Status)
	assert.Equal(t, StateOnTrack, fc.State)
	assert.Equal(t, "60-80% chance", fc.ProbabilityText)

	require.NotNil(t, fc.GapAnalysis)
	assert.Equal(t, 1000.0, fc.GapAnalysis.Shortfall)
	assert.InDelta(t, 666.67, fc.GapAnalysis.RequiredMonthlySavings, 0.01)
	assert.InDelta(t, 166.67, fc.GapAnalysis.MonthlyGap, 0.01)
	assert.Equal(t, 500.0, fc.GapAnalysis.CurrentMonthlySavings)
	assert.False(t, fc.GapAnalysis.Expired)
	assert.Nil(t, fc.Competition)
	assert.False(t, fc.DataQuality.InsufficientHistory)
	assert.Equal(t, 6, fc.DataQuality.MonthsOfHistory)
}

func TestForecastPath(t *testing.T) {
	e := newTestEngine()
	fc, err := e.ForecastGoal(context.Background(), goal("trip", 5000, 1000, 6, model.PriorityMedium), nil, steadyHistory())
	require.NoError(t, err)

	require.Len(t, fc.ForecastPath, 7)
	first := fc.ForecastPath[0]
	assert.Equal(t, "2025-07", first.Month)
	assert.Equal(t, PathPoint{Month: "2025-07", Expected: 1000, Lower: 1000, Upper: 1000}, first)
	assert.Equal(t, "2026-01", fc.ForecastPath[6].Month)

	for i := 1; i < len(fc.ForecastPath); i++ {
		prev, cur := fc.ForecastPath[i-1], fc.ForecastPath[i]
		assert.GreaterOrEqual(t, cur.Expected, prev.Expected)
		assert.LessOrEqual(t, cur.Lower, cur.Expected)
		assert.GreaterOrEqual(t, cur.Upper, cur.Expected)
	}
	assert.Equal(t, fc.Projection.PessimisticTotal, fc.ForecastPath[6].Lower)
	assert.Equal(t, fc.Projection.OptimisticTotal, fc.ForecastPath[6].Upper)
}

func TestForecastNeverProjectsNegativeContribution(t *testing.T) {
	e := newTestEngine()
	var txns []model.Transaction
	// Income 1000/month, spending 1500/month: average net is -500.
	for m := time.January; m <= time.June; m++ {
		txns = append(txns,
			model.Transaction{ID: fmt.Sprintf("in-%d", m), Date: time.Date(2025, m, 1, 0, 0, 0, 0, time.UTC), Amount: 1000, Merchant: "Employer"},
			model.Transaction{ID: fmt.Sprintf("out-%d", m), Date: time.Date(2025, m, 3, 0, 0, 0, 0, time.UTC), Amount: -1500, Merchant: "Landlord", Categories: []string{"RENT"}},
		)
	}

	fc, err := e.ForecastGoal(context.Background(), goal("car", 3000, 500, 4, model.PriorityHigh), nil, txns)
	require.NoError(t, err)

	assert.Equal(t, -500.0, fc.Projection.ExpectedMonthlySavings)
	for _, p := range fc.ForecastPath {
		assert.Equal(t, 500.0, p.Expected)
		assert.Equal(t, 500.0, p.Lower)
	}
	assert.Equal(t, StatusUnlikely, fc.Status)
	require.NotNil(t, fc.GapAnalysis)
	assert.Equal(t, 0.0, fc.GapAnalysis.CurrentMonthlySavings)
	assert.Equal(t, fc.GapAnalysis.RequiredMonthlySavings, fc.GapAnalysis.MonthlyGap)
}

func TestForecastGoalAlreadyMet(t *testing.T) {
	e := newTestEngine()
	histories := map[string][]model.Transaction{
		"steady":     steadyHistory(),
		"no history": nil,
	}
	for name, txns := range histories {
		for _, current := range []float64{5000, 7500} {
			t.Run(fmt.Sprintf("%s current=%v", name, current), func(t *testing.T) {
				fc, err := e.ForecastGoal(context.Background(), goal("done", 5000, current, 3, model.PriorityLow), nil, txns)
				require.NoError(t, err)
				assert.Equal(t, StatusVeryLikely, fc.Status)
				assert.Equal(t, TerminalGoalMet, fc.TerminalState)
				assert.Nil(t, fc.GapAnalysis)
				assert.Empty(t, fc.Recommendations)
			})
		}
	}
}

func TestForecastDeadlinePassed(t *testing.T) {
	e := newTestEngine()
	g := goal("late", 2000, 1500, 0, model.PriorityMedium)
	g.Deadline = asOf.AddDate(0, 0, -10)

	fc, err := e.ForecastGoal(context.Background(), g, nil, steadyHistory())
	require.NoError(t, err)

	assert.Equal(t, TerminalExpired, fc.TerminalState)
	assert.Equal(t, 0, fc.MonthsRemaining)
	assert.Equal(t, StatusUnlikely, fc.Status)
	require.NotNil(t, fc.GapAnalysis)
	assert.True(t, fc.GapAnalysis.Expired)
	assert.Equal(t, 500.0, fc.GapAnalysis.Shortfall)
	assert.Equal(t, 0.0, fc.GapAnalysis.RequiredMonthlySavings)
	assert.Len(t, fc.ForecastPath, 1)
	assert.Nil(t, fc.Competition)
}

func TestForecastZeroHistoryFallsBackToZeroRate(t *testing.T) {
	e := newTestEngine()
	fc, err := e.ForecastGoal(context.Background(), goal("fund", 5000, 1000, 6, model.PriorityMedium), nil, nil)
	require.NoError(t, err)

	assert.True(t, fc.DataQuality.InsufficientHistory)
	assert.Equal(t, 0.0, fc.Projection.ExpectedMonthlySavings)
	assert.Equal(t, 1000.0, fc.Projection.ExpectedTotal)
	assert.Equal(t, StatusUnlikely, fc.Status)
	require.NotNil(t, fc.GapAnalysis)
	assert.Equal(t, 4000.0, fc.GapAnalysis.Shortfall)
	require.NotNil(t, fc.Feasibility)
	assert.Equal(t, "unrealistic", fc.Feasibility.Level)
}

func TestForecastDeclaredIncomeWhenHistoryHasNoIncome(t *testing.T) {
	e := newTestEngine()
	var spendsOnly []model.Transaction
	for _, txn := range steadyHistory() {
		if txn.IsSpend() {
			spendsOnly = append(spendsOnly, txn)
		}
	}
	g := goal("fund", 5000, 1000, 6, model.PriorityMedium)
	g.MonthlyIncome = 3200

	fc, err := e.ForecastGoal(context.Background(), g, nil, spendsOnly)
	require.NoError(t, err)
	assert.True(t, fc.DataQuality.UsedDeclaredIncome)
	assert.Equal(t, 700.0, fc.Projection.ExpectedMonthlySavings)
}

func TestForecastVariableIncomeWidensBand(t *testing.T) {
	e := newTestEngine()
	fixed := goal("a", 9000, 0, 12, model.PriorityMedium)
	variable := fixed
	variable.IncomeType = model.IncomeVariable

	f1, err := e.ForecastGoal(context.Background(), fixed, nil, steadyHistory())
	require.NoError(t, err)
	f2, err := e.ForecastGoal(context.Background(), variable, nil, steadyHistory())
	require.NoError(t, err)

	assert.Greater(t, f2.Projection.SpreadDown, f1.Projection.SpreadDown)
	assert.Greater(t, f2.Projection.SpreadUp, f1.Projection.SpreadUp)
	assert.Less(t, f2.Projection.PessimisticMonthlySavings, f1.Projection.PessimisticMonthlySavings)
	assert.Greater(t, f2.Projection.OptimisticMonthlySavings, f1.Projection.OptimisticMonthlySavings)
	assert.Less(t, f2.Projection.PessimisticTotal, f1.Projection.PessimisticTotal)
	assert.Greater(t, f2.Projection.OptimisticTotal, f1.Projection.OptimisticTotal)
	assert.Equal(t, f1.Projection.ExpectedTotal, f2.Projection.ExpectedTotal)
}

func TestForecastRecommendations(t *testing.T) {
	e := newTestEngine()
	fc, err := e.ForecastGoal(context.Background(), goal("trip", 5000, 1000, 6, model.PriorityMedium), nil, steadyHistory())
	require.NoError(t, err)

	require.NotNil(t, fc.SpendingBreakdown)
	assert.Equal(t, 1500.0, fc.SpendingBreakdown.NecessaryMonthly)
	assert.Equal(t, 1000.0, fc.SpendingBreakdown.DiscretionaryMonthly)
	assert.Equal(t, 700.0, fc.SpendingBreakdown.MaxRealisticCuts)
	require.NotNil(t, fc.Feasibility)
	assert.Equal(t, "realistic", fc.Feasibility.Level)

	require.Len(t, fc.Recommendations, 1)
	rec := fc.Recommendations[0]
	assert.Equal(t, 1, rec.Rank)
	assert.Equal(t, "FOOD_AND_DRINK", rec.Category)
	assert.Equal(t, "Reduce dining out by 50%", rec.Action)
	assert.Equal(t, 200.0, rec.EstimatedMonthlySavings)
	assert.Equal(t, "Closes gap with $33.33 buffer", rec.Impact)
}

func TestForecastRejectsMalformedGoal(t *testing.T) {
	e := newTestEngine()
	bad := goal("x", 100, 0, 3, "urgent")
	_, err := e.ForecastGoal(context.Background(), bad, nil, nil)
	require.Error(t, err)
	assert.True(t, model.IsUpstream(err))

	_, err = e.ForecastGoal(context.Background(), goal("y", 100, 0, 3, model.PriorityLow), []model.Goal{{Name: "no id"}}, nil)
	require.Error(t, err)
	assert.True(t, model.IsUpstream(err))
}

func TestForecastIncludesCompetitionWithSiblings(t *testing.T) {
	e := newTestEngine()
	// 300/month for the target against 400/month for the higher tier.
	target := goal("low", 1800, 0, 6, model.PriorityLow)
	sibling := goal("high", 2400, 0, 6, model.PriorityHigh)
	met := goal("done", 100, 100, 6, model.PriorityHigh)
	expired := goal("old", 900, 0, 0, model.PriorityHigh)
	expired.Deadline = asOf.AddDate(0, -1, 0)

	fc, err := e.ForecastGoal(context.Background(), target, []model.Goal{target, sibling, met, expired}, steadyHistory())
	require.NoError(t, err)

	require.NotNil(t, fc.Competition)
	c := fc.Competition
	assert.Equal(t, 500.0, c.TotalAvailableSavings)
	require.Len(t, c.CompetingGoals, 1)
	assert.Equal(t, "high", c.CompetingGoals[0].GoalID)
	assert.True(t, c.CompetingGoals[0].CommitsAhead)
	assert.Equal(t, 400.0, c.TotalCommittedSavings)
	assert.Equal(t, 100.0, c.RemainingAvailableSavings)
	assert.True(t, c.IsOvercommitted)
	assert.Equal(t, 200.0, c.OvercommitmentAmount)
}

func TestMonthsRemaining(t *testing.T) {
	assert.Equal(t, 6, MonthsRemaining(asOf, asOf.AddDate(0, 6, 0)))
	assert.Equal(t, 0, MonthsRemaining(asOf, asOf.AddDate(0, 0, 5)))
	assert.Equal(t, 0, MonthsRemaining(asOf, asOf.AddDate(0, 0, -1)))
	assert.Equal(t, 0, MonthsRemaining(asOf, asOf.AddDate(-1, 0, 0)))
}
