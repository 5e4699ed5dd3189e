package insights

import (
	"fmt"
	"math"
	"sort"

	"github.com/castlemilk/pfinance/analytics/internal/aggregate"
	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/money"
	"github.com/castlemilk/pfinance/analytics/internal/stats"
)

const rollingDays = 30

// rollingCurrent is the 30 days ending at the latest activity on or before
// asOf, so a ledger that stops early does not read as a drop in spending.
func rollingCurrent(in *Input) (aggregate.Window, bool) {
	last, ok := in.Agg.LatestOnOrBefore(in.AsOf)
	if !ok {
		return aggregate.Window{}, false
	}
	return aggregate.DaysBefore(model.Day(last).AddDate(0, 0, 1), rollingDays), true
}

// covers reports whether history starts on or before w.
func covers(in *Input, w aggregate.Window) bool {
	first, _, ok := in.Agg.HistoryRange()
	return ok && !first.After(w.Start)
}

func actionableSpends(cfg Config, in *Input, w aggregate.Window) []model.Transaction {
	return in.Agg.Spends(w, func(t model.Transaction) bool { return cfg.Actionable(t.PrimaryCategory()) })
}

func spendTotal(txns []model.Transaction) float64 {
	return money.SumBy(txns, model.Transaction.SpendAmount)
}

func categoryTotals(txns []model.Transaction) map[string]float64 {
	amounts := make(map[string][]float64)
	for _, t := range txns {
		amounts[t.PrimaryCategory()] = append(amounts[t.PrimaryCategory()], t.SpendAmount())
	}
	out := make(map[string]float64, len(amounts))
	for c, a := range amounts {
		out[c] = money.Sum(a...)
	}
	return out
}

// largestIncrease names the category that grew most from before to now.
func largestIncrease(now, before map[string]float64) (string, float64) {
	categories := make([]string, 0, len(now))
	for c := range now {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	best, delta := "", 0.0
	for _, c := range categories {
		if d := money.Sum(now[c], -before[c]); d > delta {
			best, delta = c, d
		}
	}
	return best, delta
}

func periodLabel(w aggregate.Window) string {
	return fmt.Sprintf("%s - %s", w.Start.Format("Jan 2, 2006"), w.End.AddDate(0, 0, -1).Format("Jan 2, 2006"))
}

func rolling30Day(cfg Config, in *Input) *Candidate {
	current, ok := rollingCurrent(in)
	if !ok {
		return nil
	}
	previous := aggregate.DaysBefore(current.Start, rollingDays)
	if !covers(in, previous) {
		return nil
	}
	txns := actionableSpends(cfg, in, current)
	prior := actionableSpends(cfg, in, previous)
	cur, prev := spendTotal(txns), spendTotal(prior)
	if len(txns) == 0 || prev < cfg.RollingMinBaseline {
		return nil
	}
	pct := (cur - prev) / prev * 100

	c := &Candidate{
		Type:    TriggerRolling30Day,
		Method:  "Discretionary spend in the latest 30 days of activity compared with the 30 days before it.",
		Context: fmt.Sprintf("The previous 30 days (%s) came to %s.", periodLabel(previous), money.Format(prev)),
		RawValues: map[string]float64{
			"baseline_previous_total": prev,
			"change_pct":              stats.Round(pct, 1),
			"window_days":             rollingDays,
		},
		Supporting: txns,
		Percent:    math.Abs(pct),
		Dollars:    math.Abs(cur - prev),
	}
	switch {
	case pct > cfg.RollingSpikePercent && cur-prev >= cfg.RollingMinDelta:
		c.Kind, c.Level = KindAlert, LevelHigh
		c.Headline = fmt.Sprintf("You spent %s over the last 30 days, %s more than the 30 days before",
			quoted(txns), money.Percent(pct))
		c.Narrative = "Spending picked up across the month."
		if top, delta := largestIncrease(categoryTotals(txns), categoryTotals(prior)); top != "" {
			c.Narrative = fmt.Sprintf("%s drove most of the increase, up %s.", categoryName(top), money.Format(delta))
		}
	case pct < -cfg.RollingWinPercent:
		c.Kind, c.Level = KindWin, LevelMedium
		c.Headline = fmt.Sprintf("You spent %s over the last 30 days, %s less than the 30 days before",
			quoted(txns), money.Percent(-pct))
		c.Narrative = fmt.Sprintf("That is %s back in your pocket compared with the month before.", money.Format(prev-cur))
	default:
		return nil
	}
	return c
}

func yearOverYear(cfg Config, in *Input) *Candidate {
	current, ok := rollingCurrent(in)
	if !ok {
		return nil
	}
	lastYear := current.YearEarlier()
	if !covers(in, lastYear) {
		return nil
	}
	txns := actionableSpends(cfg, in, current)
	cur, prev := spendTotal(txns), spendTotal(actionableSpends(cfg, in, lastYear))
	if len(txns) == 0 || prev < cfg.YearOverYearMinBaseline {
		return nil
	}
	pct := (cur - prev) / prev * 100
	if math.Abs(pct) <= cfg.YearOverYearPercent {
		return nil
	}

	c := &Candidate{
		Type:    TriggerYearOverYear,
		Kind:    KindAlert,
		Level:   LevelMedium,
		Method:  "Discretionary spend in the latest 30 days of activity compared with the same 30 days one year earlier.",
		Context: fmt.Sprintf("The same period last year (%s) came to %s.", periodLabel(lastYear), money.Format(prev)),
		RawValues: map[string]float64{
			"baseline_last_year_total": prev,
			"change_pct":               stats.Round(pct, 1),
			"window_days":              rollingDays,
		},
		Supporting: txns,
		Percent:    math.Abs(pct),
		Dollars:    math.Abs(cur - prev),
	}
	if pct > 0 {
		c.Headline = fmt.Sprintf("You spent %s over the last 30 days, %s more than this time last year",
			quoted(txns), money.Percent(pct))
		c.Narrative = fmt.Sprintf("That is %s more than the same stretch a year ago.", money.Format(cur-prev))
	} else {
		c.Kind = KindWin
		c.Headline = fmt.Sprintf("You spent %s over the last 30 days, %s less than this time last year",
			quoted(txns), money.Percent(-pct))
		c.Narrative = fmt.Sprintf("You are %s ahead of where you were a year ago.", money.Format(prev-cur))
	}
	return c
}

func savingsStreak(cfg Config, in *Input) *Candidate {
	first, _, ok := in.Agg.HistoryRange()
	if !ok {
		return nil
	}
	current := currentMonth(in.AsOf)
	months := in.Agg.MonthlyNetSavings(first, current.Start)
	if len(months) < cfg.StreakMinHistory {
		return nil
	}

	spends := make([]float64, len(months))
	for i, m := range months {
		spends[i] = m.Spend
	}
	avg := stats.Mean(spends)
	if avg <= 0 {
		return nil
	}

	streak := 0
	for _, spend := range spends[max(0, len(spends)-cfg.StreakLookbackMonths):] {
		if spend < avg {
			streak++
		} else {
			streak = 0
		}
	}
	if streak < cfg.StreakMinMonths {
		return nil
	}

	saved := make([]float64, 0, streak)
	for _, spend := range spends[len(spends)-streak:] {
		saved = append(saved, avg-spend)
	}
	total := money.Sum(saved...)
	w := aggregate.Window{Start: aggregate.AddMonths(current.Start, 1-streak), End: current.End}
	txns := in.Agg.Spends(w, nil)
	if len(txns) == 0 {
		return nil
	}

	return &Candidate{
		Type:  TriggerSavingsStreak,
		Kind:  KindWin,
		Level: LevelMedium,
		Headline: fmt.Sprintf("%d months in a row under your average: %s spent since %s",
			streak, quoted(txns), w.Start.Format("January")),
		Narrative: fmt.Sprintf("Keeping spend below your usual month has saved about %s so far.", money.Format(total)),
		Method:    "Monthly spend compared with your average month across all history, counting consecutive months below it up to last month.",
		Context:   fmt.Sprintf("Your average month costs %s.", money.Format(avg)),
		RawValues: map[string]float64{
			"baseline_monthly_average": money.Round(avg),
			"streak_months":            float64(streak),
			"saved_usd":                total,
		},
		Supporting: txns,
		Percent:    total / (avg * float64(streak)) * 100,
		Dollars:    total,
	}
}
