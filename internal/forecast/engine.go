// Package forecast projects savings goals forward from transaction history,
// resolves competition between concurrent goals and proposes spending cuts.
package forecast

import (
	"context"
	"math"
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/aggregate"
	"github.com/castlemilk/pfinance/analytics/internal/logger"
	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/money"
	"github.com/castlemilk/pfinance/analytics/internal/recurring"
	"github.com/castlemilk/pfinance/analytics/internal/stats"
)

const confidenceLevel = "80%"

// Engine produces goal forecasts. It is safe for concurrent use.
type Engine struct {
	cfg      Config
	detector *recurring.Detector
	now      func() time.Time
}

// NewEngine creates a forecast engine. A nil clock uses time.Now.
func NewEngine(cfg Config, detector *recurring.Detector, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	if detector == nil {
		detector = recurring.NewDetector(recurring.DefaultConfig())
	}
	return &Engine{cfg: cfg.withDefaults(), detector: detector, now: now}
}

// Rate is the savings rate derived from history.
type Rate struct {
	Expected     float64
	Volatility   float64
	Months       int
	Insufficient bool
	Declared     bool
}

// ForecastGoal validates its inputs and forecasts goal against its siblings.
// Only malformed input returns an error; sparse data degrades inside the result.
func (e *Engine) ForecastGoal(ctx context.Context, goal model.Goal, siblings []model.Goal, txns []model.Transaction) (*GoalForecast, error) {
	goal = goal.Normalize()
	if err := goal.Validate(); err != nil {
		return nil, err
	}
	normalized := make([]model.Goal, 0, len(siblings))
	for _, s := range siblings {
		s = s.Normalize()
		if err := s.Validate(); err != nil {
			return nil, err
		}
		normalized = append(normalized, s)
	}
	if err := model.ValidateTransactions(txns); err != nil {
		return nil, err
	}

	agg := aggregate.New(txns)
	subs := e.detector.DetectAggregate(ctx, agg)
	return e.Forecast(ctx, goal, normalized, agg, subs), nil
}

// Forecast runs the projection over prepared inputs. Inputs must already be validated.
func (e *Engine) Forecast(ctx context.Context, goal model.Goal, siblings []model.Goal, agg *aggregate.Aggregator, subs *recurring.Result) *GoalForecast {
	log := logger.Component(ctx, "Forecast")
	asOf := model.Day(e.now())

	rate := e.SavingsRate(agg, goal, asOf)
	contribution := math.Max(0, rate.Expected)

	fc := &GoalForecast{
		GoalID:          goal.ID,
		GoalName:        goal.Name,
		TargetAmount:    goal.TargetAmount,
		CurrentSavings:  goal.CurrentSavings,
		Deadline:        goal.Deadline,
		AsOf:            asOf,
		MonthsRemaining: MonthsRemaining(asOf, goal.Deadline),
		Recommendations: []Recommendation{},
		DataQuality: DataQuality{
			MonthsOfHistory:     rate.Months,
			InsufficientHistory: rate.Insufficient,
			UsedDeclaredIncome:  rate.Declared,
		},
	}

	up, down := e.spreads(goal.IncomeType, rate.Volatility)
	optimistic := math.Max(0, rate.Expected+math.Abs(rate.Expected)*up)
	pessimistic := math.Max(0, rate.Expected-math.Abs(rate.Expected)*down)
	fc.Projection = Projection{
		ExpectedMonthlySavings:    money.Round(rate.Expected),
		OptimisticMonthlySavings:  money.Round(optimistic),
		PessimisticMonthlySavings: money.Round(pessimistic),
		SpreadUp:                  stats.Round(up, 3),
		SpreadDown:                stats.Round(down, 3),
		ConfidenceLevel:           confidenceLevel,
	}

	months := fc.MonthsRemaining
	if months < 0 {
		months = 0
	}
	fc.ForecastPath = buildPath(asOf, goal.CurrentSavings, months, contribution, pessimistic, optimistic)
	final := fc.ForecastPath[len(fc.ForecastPath)-1]
	fc.Projection.ExpectedTotal = final.Expected
	fc.Projection.PessimisticTotal = final.Lower
	fc.Projection.OptimisticTotal = final.Upper

	met := goal.CurrentSavings >= goal.TargetAmount
	switch {
	case met:
		fc.TerminalState = TerminalGoalMet
		fc.Status = StatusVeryLikely
	case fc.MonthsRemaining <= 0:
		fc.TerminalState = TerminalExpired
		fc.Status = StatusUnlikely
		fc.GapAnalysis = &GapAnalysis{
			Shortfall:             money.Sum(goal.TargetAmount, -goal.CurrentSavings),
			CurrentMonthlySavings: money.Round(contribution),
			Expired:               true,
		}
	default:
		fc.Status = e.status(final.Expected, goal.TargetAmount)
		if final.Expected < goal.TargetAmount {
			fc.GapAnalysis = gapAnalysis(goal, final.Expected, contribution, fc.MonthsRemaining)
		}
	}
	fc.State = stateFor(fc.Status)
	fc.ProbabilityText = probabilityText(fc.Status)

	if !met && fc.TerminalState != TerminalExpired {
		required := RequiredMonthlySavings(goal, asOf)
		if c := e.competition(goal, required, siblings, contribution, asOf); c != nil {
			fc.Competition = c
		}
	}

	if fc.GapAnalysis != nil && !fc.GapAnalysis.Expired {
		breakdown := e.spendingBreakdown(agg, asOf)
		fc.SpendingBreakdown = breakdown
		fc.Feasibility = feasibility(fc.GapAnalysis.MonthlyGap, breakdown.MaxRealisticCuts)
		fc.Recommendations = e.recommend(fc.GapAnalysis.MonthlyGap, breakdown, subs)
	}

	log.Debug().
		Str("goal_id", goal.ID).
		Str("status", string(fc.Status)).
		Int("months_remaining", fc.MonthsRemaining).
		Float64("expected_rate", rate.Expected).
		Msg("goal forecast computed")
	return fc
}

// SavingsRate derives the expected monthly net savings from the trailing
// history. With no history the rate is zero and flagged insufficient. When
// history has no income but the goal declares a monthly income, the rate is
// declared income minus average spend.
func (e *Engine) SavingsRate(agg *aggregate.Aggregator, goal model.Goal, asOf time.Time) Rate {
	months := agg.TrailingNetSavings(asOf, e.cfg.LookbackMonths)
	if len(months) == 0 {
		return Rate{Insufficient: true}
	}

	nets := make([]float64, len(months))
	spends := make([]float64, len(months))
	var income float64
	for i, m := range months {
		nets[i] = m.Net
		spends[i] = m.Spend
		income += m.Income
	}

	r := Rate{Months: len(months)}
	if income == 0 && goal.MonthlyIncome > 0 {
		r.Declared = true
		r.Expected = goal.MonthlyIncome - stats.Mean(spends)
		r.Volatility = stats.CV(spends)
		return r
	}
	r.Expected = stats.Mean(nets)
	r.Volatility = stats.CV(nets)
	return r
}

// spreads returns the optimistic and pessimistic fractions for an income type,
// widened by historical volatility.
func (e *Engine) spreads(income model.IncomeType, volatility float64) (float64, float64) {
	up, down := e.cfg.FixedOptimisticSpread, e.cfg.FixedPessimisticSpread
	if income == model.IncomeVariable {
		up, down = e.cfg.VariableOptimisticSpread, e.cfg.VariablePessimisticSpread
	}
	scale := 1 + math.Min(volatility, e.cfg.VolatilityCap)
	return up * scale, math.Min(1, down*scale)
}

func (e *Engine) status(projected, target float64) Status {
	if target <= 0 {
		return StatusVeryLikely
	}
	ratio := projected / target
	switch {
	case ratio >= e.cfg.VeryLikelyRatio:
		return StatusVeryLikely
	case ratio >= e.cfg.LikelyRatio:
		return StatusLikely
	case ratio >= e.cfg.PossibleRatio:
		return StatusPossible
	default:
		return StatusUnlikely
	}
}

// MonthsRemaining counts calendar months from asOf to the deadline.
func MonthsRemaining(asOf, deadline time.Time) int {
	if deadline.Before(model.Day(asOf)) {
		return 0
	}
	return aggregate.MonthsBetween(asOf, deadline)
}

// RequiredMonthlySavings is what the goal needs per remaining month; 0 when met or expired.
func RequiredMonthlySavings(goal model.Goal, asOf time.Time) float64 {
	remaining := goal.TargetAmount - goal.CurrentSavings
	months := MonthsRemaining(asOf, goal.Deadline)
	if remaining <= 0 || months <= 0 {
		return 0
	}
	return money.Div(remaining, float64(months))
}

func buildPath(asOf time.Time, current float64, months int, expected, lower, upper float64) []PathPoint {
	path := make([]PathPoint, 0, months+1)
	start := aggregate.MonthStart(asOf)
	for i := 0; i <= months; i++ {
		n := float64(i)
		path = append(path, PathPoint{
			Month:    aggregate.MonthKey(start.AddDate(0, i, 0)),
			Expected: money.Round(current + n*expected),
			Lower:    money.Round(current + n*lower),
			Upper:    money.Round(current + n*upper),
		})
	}
	return path
}

func gapAnalysis(goal model.Goal, projected, contribution float64, months int) *GapAnalysis {
	required := money.Div(goal.TargetAmount-goal.CurrentSavings, float64(months))
	return &GapAnalysis{
		Shortfall:              money.Sum(goal.TargetAmount, -projected),
		RequiredMonthlySavings: required,
		CurrentMonthlySavings:  money.Round(contribution),
		MonthlyGap:             money.Sum(required, -contribution),
	}
}

func stateFor(s Status) State {
	switch s {
	case StatusVeryLikely, StatusLikely:
		return StateOnTrack
	case StatusPossible:
		return StateAtRisk
	default:
		return StateOffTrack
	}
}

func probabilityText(s Status) string {
	switch s {
	case StatusVeryLikely:
		return "90%+ chance"
	case StatusLikely:
		return "60-80% chance"
	case StatusPossible:
		return "30-50% chance"
	default:
		return "<30% chance"
	}
}

