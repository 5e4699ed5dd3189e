package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/aggregate"
	"github.com/castlemilk/pfinance/analytics/internal/logger"
	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/money"
	"github.com/castlemilk/pfinance/analytics/internal/stats"
)

// IncomeSource records where the income behind a capacity figure came from.
type IncomeSource string

const (
	IncomeDeclared IncomeSource = "declared"
	IncomeFromGoal IncomeSource = "goal"
	IncomeObserved IncomeSource = "history"
)

// CapacityRequest is the caller's stated income. A zero MonthlyIncome falls
// back to the income declared on a goal, then to observed deposits.
type CapacityRequest struct {
	MonthlyIncome float64 `json:"monthly_income"`
	Gross         bool    `json:"is_gross_income"`
}

// InvestmentCapacity is what is left each month after spending and goal commitments.
type InvestmentCapacity struct {
	AsOf                   time.Time    `json:"as_of"`
	MonthlyIncome          float64      `json:"monthly_income"`
	TakeHomeIncome         float64      `json:"take_home_income"`
	IncomeSource           IncomeSource `json:"income_source"`
	AverageMonthlySpending float64      `json:"average_monthly_spending"`
	GoalCommitments        float64      `json:"total_goal_commitments"`
	// InvestableSurplus is floored at zero; Shortfall carries the deficit.
	InvestableSurplus float64 `json:"investable_surplus"`
	Shortfall         float64 `json:"shortfall"`
	ActiveGoals       int     `json:"active_goals_count"`
	MonthsAnalyzed    int     `json:"months_analyzed"`
	CalculationPeriod string  `json:"calculation_period"`
}

// InvestmentCapacity validates its inputs and computes the monthly investable surplus.
func (e *Engine) InvestmentCapacity(ctx context.Context, req CapacityRequest, goals []model.Goal, txns []model.Transaction) (*InvestmentCapacity, error) {
	if math.IsNaN(req.MonthlyIncome) || math.IsInf(req.MonthlyIncome, 0) || req.MonthlyIncome < 0 {
		return nil, model.NewUpstreamError("monthly_income", "must be a finite, non-negative number")
	}
	normalized := make([]model.Goal, 0, len(goals))
	for _, g := range goals {
		g = g.Normalize()
		if err := g.Validate(); err != nil {
			return nil, err
		}
		normalized = append(normalized, g)
	}
	if err := model.ValidateTransactions(txns); err != nil {
		return nil, err
	}
	return e.Capacity(ctx, req, normalized, aggregate.New(txns)), nil
}

// Capacity computes take-home income minus average monthly spend minus the
// monthly savings every active goal still requires. Inputs must already be validated.
func (e *Engine) Capacity(ctx context.Context, req CapacityRequest, goals []model.Goal, agg *aggregate.Aggregator) *InvestmentCapacity {
	log := logger.Component(ctx, "Capacity")
	asOf := model.Day(e.now())

	months := agg.TrailingNetSavings(asOf, e.cfg.CapacityLookbackMonths)
	c := &InvestmentCapacity{
		AsOf:              asOf,
		MonthsAnalyzed:    len(months),
		CalculationPeriod: fmt.Sprintf("Based on the last %d month(s) of spending", len(months)),
	}

	income, source := req.MonthlyIncome, IncomeDeclared
	if income == 0 {
		income, source = declaredGoalIncome(goals), IncomeFromGoal
	}
	if income == 0 {
		incomes := make([]float64, len(months))
		for i, m := range months {
			incomes[i] = m.Income
		}
		income, source = stats.Mean(incomes), IncomeObserved
	}
	c.MonthlyIncome = money.Round(income)
	c.IncomeSource = source
	c.TakeHomeIncome = c.MonthlyIncome
	if req.Gross && source == IncomeDeclared {
		c.TakeHomeIncome = money.Round(income * (1 - e.cfg.GrossTaxRate))
	}

	c.AverageMonthlySpending = money.Round(agg.AverageMonthlySpend(asOf, len(months)))

	var commitments []float64
	for _, g := range goals {
		required := RequiredMonthlySavings(g, asOf)
		if required <= 0 {
			continue
		}
		commitments = append(commitments, required)
		c.ActiveGoals++
	}
	c.GoalCommitments = money.Sum(commitments...)

	surplus := money.Sum(c.TakeHomeIncome, -c.AverageMonthlySpending, -c.GoalCommitments)
	c.InvestableSurplus = math.Max(0, surplus)
	c.Shortfall = math.Max(0, -surplus)

	log.Debug().
		Str("income_source", string(source)).
		Int("months", c.MonthsAnalyzed).
		Int("active_goals", c.ActiveGoals).
		Float64("surplus", surplus).
		Msg("investment capacity")
	return c
}

// declaredGoalIncome is the largest monthly income declared on any goal.
func declaredGoalIncome(goals []model.Goal) float64 {
	var income float64
	for _, g := range goals {
		income = math.Max(income, g.MonthlyIncome)
	}
	return income
}
