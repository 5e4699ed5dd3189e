package forecast

import (
	"sort"
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/money"
)

// Requirement is a goal with its required monthly savings.
type Requirement struct {
	Goal            model.Goal
	RequiredMonthly float64
}

// AnalyzeCompetition runs the priority waterfall for target. Money flows to
// strictly higher tiers first; equal and lower tiers never commit against
// the target. available is the shared monthly savings pool.
func AnalyzeCompetition(target Requirement, siblings []Requirement, available float64) *CompetitionAnalysis {
	analysis := &CompetitionAnalysis{
		TotalAvailableSavings:  money.Round(available),
		CompetingGoals:         make([]CompetingGoal, 0, len(siblings)),
		RequiredMonthlySavings: money.Round(target.RequiredMonthly),
	}

	var committed []float64
	for _, s := range siblings {
		required := s.RequiredMonthly
		if required < 0 {
			required = 0
		}
		ahead := s.Goal.Priority.Outranks(target.Goal.Priority)
		if ahead {
			committed = append(committed, required)
		}
		analysis.CompetingGoals = append(analysis.CompetingGoals, CompetingGoal{
			GoalID:                 s.Goal.ID,
			GoalName:               s.Goal.Name,
			TargetAmount:           s.Goal.TargetAmount,
			Deadline:               s.Goal.Deadline,
			RequiredMonthlySavings: money.Round(required),
			PriorityLevel:          string(s.Goal.Priority),
			CommitsAhead:           ahead,
		})
	}

	sort.SliceStable(analysis.CompetingGoals, func(i, j int) bool {
		a, b := analysis.CompetingGoals[i], analysis.CompetingGoals[j]
		ra, rb := model.Priority(a.PriorityLevel).Rank(), model.Priority(b.PriorityLevel).Rank()
		if ra != rb {
			return ra > rb
		}
		if !a.Deadline.Equal(b.Deadline) {
			return a.Deadline.Before(b.Deadline)
		}
		return a.GoalID < b.GoalID
	})

	analysis.TotalCommittedSavings = money.Sum(committed...)
	analysis.RemainingAvailableSavings = money.Sum(analysis.TotalAvailableSavings, -analysis.TotalCommittedSavings)
	if analysis.RequiredMonthlySavings > analysis.RemainingAvailableSavings {
		analysis.IsOvercommitted = true
		analysis.OvercommitmentAmount = money.Sum(analysis.RequiredMonthlySavings, -analysis.RemainingAvailableSavings)
	}
	return analysis
}

// competition builds requirements for the active siblings of goal. Siblings
// that are met, expired or the goal itself are skipped. Returns nil when no
// sibling competes.
func (e *Engine) competition(goal model.Goal, required float64, siblings []model.Goal, available float64, asOf time.Time) *CompetitionAnalysis {
	var reqs []Requirement
	for _, s := range siblings {
		if s.ID == goal.ID {
			continue
		}
		if s.CurrentSavings >= s.TargetAmount || MonthsRemaining(asOf, s.Deadline) <= 0 {
			continue
		}
		reqs = append(reqs, Requirement{Goal: s, RequiredMonthly: RequiredMonthlySavings(s, asOf)})
	}
	if len(reqs) == 0 {
		return nil
	}
	return AnalyzeCompetition(Requirement{Goal: goal, RequiredMonthly: required}, reqs, available)
}
