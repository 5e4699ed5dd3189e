package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castlemilk/pfinance/analytics/internal/model"
)

func req(id string, p model.Priority, monthly float64) Requirement {
	return Requirement{Goal: goal(id, 1000, 0, 6, p), RequiredMonthly: monthly}
}

func TestAnalyzeCompetition(t *testing.T) {
	t.Run("higher tier commits first", func(t *testing.T) {
		c := AnalyzeCompetition(req("low", model.PriorityLow, 300), []Requirement{req("high", model.PriorityHigh, 400)}, 500)
		assert.Equal(t, 400.0, c.TotalCommittedSavings)
		assert.Equal(t, 100.0, c.RemainingAvailableSavings)
		assert.True(t, c.IsOvercommitted)
		assert.Equal(t, 200.0, c.OvercommitmentAmount)
	})

	t.Run("equal tier does not commit", func(t *testing.T) {
		c := AnalyzeCompetition(req("a", model.PriorityMedium, 300), []Requirement{req("b", model.PriorityMedium, 400)}, 500)
		assert.Equal(t, 0.0, c.TotalCommittedSavings)
		assert.Equal(t, 500.0, c.RemainingAvailableSavings)
		assert.False(t, c.IsOvercommitted)
		require.Len(t, c.CompetingGoals, 1)
		assert.False(t, c.CompetingGoals[0].CommitsAhead)
	})

	t.Run("lower tier does not commit", func(t *testing.T) {
		c := AnalyzeCompetition(req("h", model.PriorityHigh, 300), []Requirement{req("l", model.PriorityLow, 900)}, 500)
		assert.Equal(t, 0.0, c.TotalCommittedSavings)
		assert.False(t, c.IsOvercommitted)
	})

	t.Run("remaining may go negative", func(t *testing.T) {
		c := AnalyzeCompetition(req("low", model.PriorityLow, 100), []Requirement{
			req("h1", model.PriorityHigh, 400),
			req("m1", model.PriorityMedium, 300),
		}, 500)
		assert.Equal(t, 700.0, c.TotalCommittedSavings)
		assert.Equal(t, -200.0, c.RemainingAvailableSavings)
		assert.Equal(t, 300.0, c.OvercommitmentAmount)
	})

	t.Run("competing goals ordered by priority then deadline", func(t *testing.T) {
		later := req("m-late", model.PriorityMedium, 50)
		later.Goal.Deadline = later.Goal.Deadline.AddDate(0, 3, 0)
		c := AnalyzeCompetition(req("t", model.PriorityLow, 10), []Requirement{
			later,
			req("m-soon", model.PriorityMedium, 50),
			req("h", model.PriorityHigh, 50),
		}, 1000)
		ids := make([]string, 0, len(c.CompetingGoals))
		for _, g := range c.CompetingGoals {
			ids = append(ids, g.GoalID)
		}
		assert.Equal(t, []string{"h", "m-soon", "m-late"}, ids)
	})
}

func TestAnalyzeCompetitionMonotonicInHigherTiers(t *testing.T) {
	target := req("target", model.PriorityLow, 200)
	var siblings []Requirement
	prevRemaining := 2000.0
	prevOver := 0.0
	for i, monthly := range []float64{100, 250, 0, 400, 600} {
		siblings = append(siblings, req(string(rune('a'+i)), model.PriorityHigh, monthly))
		c := AnalyzeCompetition(target, siblings, 2000)
		assert.LessOrEqual(t, c.RemainingAvailableSavings, prevRemaining)
		assert.GreaterOrEqual(t, c.OvercommitmentAmount, prevOver)
		prevRemaining, prevOver = c.RemainingAvailableSavings, c.OvercommitmentAmount
	}
	assert.Equal(t, 650.0, prevRemaining)
}
