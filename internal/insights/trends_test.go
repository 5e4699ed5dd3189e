package insights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rollingLedger has its latest activity on July 10, so the current 30 days
// are June 11 to July 10 and the 30 before start on May 12.
func rollingLedger(previous, current float64, withHistory bool) *ledger {
	l := &ledger{}
	if withHistory {
		l.add(time.January, 5, 3000, "Employer", "INCOME")
	}
	l.add(time.May, 20, -previous/2, l.unique("Store"), "GENERAL_MERCHANDISE")
	l.add(time.June, 1, -previous/2, l.unique("Store"), "GENERAL_MERCHANDISE")
	l.add(time.June, 15, -1500, "Landlord", "RENT_AND_UTILITIES")
	l.add(time.June, 20, -current/2, l.unique("Bistro"), "FOOD_AND_DRINK")
	l.add(time.July, 10, -current/2, l.unique("Store"), "GENERAL_MERCHANDISE")
	// Past the evaluation date.
	l.add(time.July, 20, -900, l.unique("Store"), "GENERAL_MERCHANDISE")
	return l
}

func TestRolling30DaySpike(t *testing.T) {
	l := rollingLedger(200, 300, true)

	c := rolling30Day(DefaultConfig(), inputFor(l.txns))
	require.NotNil(t, c)
	assert.Equal(t, KindAlert, c.Kind)
	assert.Equal(t, LevelHigh, c.Level)
	assert.Equal(t, "You spent $300.00 over the last 30 days, 50% more than the 30 days before", c.Headline)
	assert.Equal(t, "Food And Drink drove most of the increase, up $150.00.", c.Narrative)
	assert.Contains(t, c.Context, "May 12, 2025 - Jun 10, 2025")
	require.Len(t, c.Supporting, 2, "rent is not actionable")
	assert.Equal(t, 200.0, c.RawValues["baseline_previous_total"])
	assert.Equal(t, 50.0, c.RawValues["change_pct"])
	assert.Equal(t, 30.0, c.RawValues["window_days"])

	cfg := DefaultConfig()
	cfg.RollingSpikePercent = 60
	assert.Nil(t, rolling30Day(cfg, inputFor(l.txns)))

	cfg = DefaultConfig()
	cfg.RollingMinDelta = 150
	assert.Nil(t, rolling30Day(cfg, inputFor(l.txns)))
}

func TestRolling30DayWin(t *testing.T) {
	c := rolling30Day(DefaultConfig(), inputFor(rollingLedger(600, 300, true).txns))
	require.NotNil(t, c)
	assert.Equal(t, KindWin, c.Kind)
	assert.Equal(t, "You spent $300.00 over the last 30 days, 50% less than the 30 days before", c.Headline)
	assert.Equal(t, 50.0, c.Percent)
	assert.Equal(t, 300.0, c.Dollars)
}

func TestRolling30DayNeedsCoveredHistory(t *testing.T) {
	assert.Nil(t, rolling30Day(DefaultConfig(), inputFor(rollingLedger(200, 300, false).txns)))
	assert.Nil(t, rolling30Day(DefaultConfig(), inputFor(nil)))

	// Small changes in either direction are not news.
	assert.Nil(t, rolling30Day(DefaultConfig(), inputFor(rollingLedger(300, 310, true).txns)))
}

func yearOverYearLedger(lastYear float64) *ledger {
	l := &ledger{}
	l.at(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 3000, "Employer", "INCOME")
	l.at(time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC), -lastYear/2, l.unique("Store"), "GENERAL_MERCHANDISE")
	l.at(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), -lastYear/2, l.unique("Store"), "GENERAL_MERCHANDISE")
	l.add(time.June, 20, -150, l.unique("Bistro"), "FOOD_AND_DRINK")
	l.add(time.July, 10, -150, l.unique("Store"), "GENERAL_MERCHANDISE")
	return l
}

func TestYearOverYear(t *testing.T) {
	t.Run("increase", func(t *testing.T) {
		c := yearOverYear(DefaultConfig(), inputFor(yearOverYearLedger(200).txns))
		require.NotNil(t, c)
		assert.Equal(t, KindAlert, c.Kind)
		assert.Equal(t, "You spent $300.00 over the last 30 days, 50% more than this time last year", c.Headline)
		assert.Contains(t, c.Context, "Jun 11, 2024 - Jul 10, 2024")
		assert.Equal(t, 200.0, c.RawValues["baseline_last_year_total"])
	})

	t.Run("decrease", func(t *testing.T) {
		c := yearOverYear(DefaultConfig(), inputFor(yearOverYearLedger(500).txns))
		require.NotNil(t, c)
		assert.Equal(t, KindWin, c.Kind)
		assert.Equal(t, "You spent $300.00 over the last 30 days, 40% less than this time last year", c.Headline)
		assert.Equal(t, -40.0, c.RawValues["change_pct"])
	})

	t.Run("within threshold", func(t *testing.T) {
		assert.Nil(t, yearOverYear(DefaultConfig(), inputFor(yearOverYearLedger(400).txns)))
	})

	t.Run("no history a year back", func(t *testing.T) {
		assert.Nil(t, yearOverYear(DefaultConfig(), inputFor(householdLedger())))
	})
}

// streakLedger books one spend per month starting in January.
func streakLedger(months ...float64) *ledger {
	l := &ledger{}
	for i, spend := range months {
		l.add(time.January+time.Month(i), 10, -spend, l.unique("Store"), "GENERAL_MERCHANDISE")
	}
	return l
}

func TestSavingsStreak(t *testing.T) {
	l := streakLedger(1000, 1000, 1000, 1000, 600, 500)

	c := savingsStreak(DefaultConfig(), inputFor(l.txns))
	require.NotNil(t, c)
	assert.Equal(t, KindWin, c.Kind)
	assert.Equal(t, "2 months in a row under your average: $1,100.00 spent since May", c.Headline)
	assert.Len(t, c.Supporting, 2)
	assert.Equal(t, 2.0, c.RawValues["streak_months"])
	assert.Equal(t, 600.0, c.RawValues["saved_usd"])
	assert.Equal(t, 850.0, c.RawValues["baseline_monthly_average"])

	cfg := DefaultConfig()
	cfg.StreakMinMonths = 3
	assert.Nil(t, savingsStreak(cfg, inputFor(l.txns)))
}

func TestSavingsStreakEndsLastMonth(t *testing.T) {
	// April and May were cheap but June broke the run.
	assert.Nil(t, savingsStreak(DefaultConfig(), inputFor(streakLedger(1000, 1000, 1000, 500, 500, 1200).txns)))
	assert.Nil(t, savingsStreak(DefaultConfig(), inputFor(householdLedger())))
}

func TestSavingsStreakNeedsHistory(t *testing.T) {
	l := &ledger{}
	l.add(time.May, 10, -1000, l.unique("Store"), "GENERAL_MERCHANDISE")
	l.add(time.June, 10, -200, l.unique("Store"), "GENERAL_MERCHANDISE")
	assert.Nil(t, savingsStreak(DefaultConfig(), inputFor(l.txns)))
}
