package insights

import (
	"fmt"
	"math"
	"sort"

	"github.com/castlemilk/pfinance/analytics/internal/aggregate"
	"github.com/castlemilk/pfinance/analytics/internal/forecast"
	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/money"
	"github.com/castlemilk/pfinance/analytics/internal/recurring"
	"github.com/castlemilk/pfinance/analytics/internal/stats"
)

// DefaultTriggers is the full detector set, in no meaningful order.
func DefaultTriggers() []Trigger {
	return []Trigger{
		{TriggerSpendSpike, spendSpike},
		{TriggerSpendDown, spendDown},
		{TriggerAnomalyCharge, anomalyCharge},
		{TriggerPriceIncrease, priceIncrease},
		{TriggerBillDueSoon, billDueSoon},
		{TriggerGrayCharge, grayCharge},
		{TriggerIncomeBump, incomeBump},
		{TriggerSavingsRecord, savingsRecord},
		{TriggerFrequentMerchant, frequentMerchant},
		{TriggerWeekendHeavy, weekendHeavy},
		{TriggerGoalBehind, goalBehind},
		{TriggerRolling30Day, rolling30Day},
		{TriggerYearOverYear, yearOverYear},
		{TriggerSavingsStreak, savingsStreak},
	}
}

// categoryChange is one category's current month against its baseline average.
type categoryChange struct {
	category string
	current  float64
	average  float64
	months   int
	pct      float64
}

func categoryChanges(cfg Config, in *Input) ([]categoryChange, aggregate.Window) {
	current := currentMonth(in.AsOf)
	base, n, ok := baseline(in.Agg, current, cfg.BaselineMonths)
	if !ok {
		return nil, current
	}
	now := in.Agg.Spend(current).ByCategory
	prior := in.Agg.Spend(base).ByCategory

	var out []categoryChange
	for category, total := range prior {
		if !cfg.Actionable(category) {
			continue
		}
		avg := money.Div(total, float64(n))
		if avg <= 0 {
			continue
		}
		cur := now[category]
		out = append(out, categoryChange{
			category: category,
			current:  cur,
			average:  avg,
			months:   n,
			pct:      (cur - avg) / avg * 100,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].category < out[j].category })
	return out, current
}

func categorySpends(in *Input, w aggregate.Window, category string) []model.Transaction {
	return in.Agg.Spends(w, func(t model.Transaction) bool { return t.PrimaryCategory() == category })
}

func spendSpike(cfg Config, in *Input) *Candidate {
	changes, current := categoryChanges(cfg, in)
	var best *categoryChange
	for i, ch := range changes {
		if ch.pct <= cfg.SpikePercent || ch.current-ch.average < cfg.SpikeMinDelta {
			continue
		}
		if best == nil || ch.pct > best.pct {
			best = &changes[i]
		}
	}
	if best == nil {
		return nil
	}

	txns := categorySpends(in, current, best.category)
	name := categoryName(best.category)
	level := LevelHigh
	if best.pct > cfg.CriticalSpikePercent {
		level = LevelCritical
	}
	return &Candidate{
		Type:     TriggerSpendSpike,
		Kind:     KindAlert,
		Level:    level,
		Category: best.category,
		Headline: fmt.Sprintf("You spent %s on %s in %s, %s above usual",
			quoted(txns), name, monthName(current), money.Percent(best.pct)),
		Narrative: fmt.Sprintf("%s spending ran well ahead of your recent months. %d transactions made up the total.",
			name, len(txns)),
		Method: fmt.Sprintf("Total %s spend for %s compared with the average of the previous %d month(s).",
			name, monthName(current), best.months),
		Context: fmt.Sprintf("You usually spend about %s a month on %s.", money.Format(best.average), name),
		RawValues: map[string]float64{
			"baseline_monthly_average": best.average,
			"baseline_months":          float64(best.months),
			"change_pct":               stats.Round(best.pct, 1),
		},
		Supporting: txns,
		Percent:    best.pct,
		Dollars:    best.current - best.average,
	}
}

func spendDown(cfg Config, in *Input) *Candidate {
	changes, current := categoryChanges(cfg, in)
	var best *categoryChange
	for i, ch := range changes {
		if ch.current <= 0 || ch.average < cfg.SpendDownMinBaseline || ch.pct >= -cfg.SpendDownPercent {
			continue
		}
		if best == nil || ch.pct < best.pct {
			best = &changes[i]
		}
	}
	if best == nil {
		return nil
	}

	txns := categorySpends(in, current, best.category)
	name := categoryName(best.category)
	return &Candidate{
		Type:     TriggerSpendDown,
		Kind:     KindWin,
		Level:    LevelMedium,
		Category: best.category,
		Headline: fmt.Sprintf("%s spending fell %s to %s in %s",
			name, money.Percent(-best.pct), quoted(txns), monthName(current)),
		Narrative: fmt.Sprintf("Nice work keeping %s down. That is %s less than a typical month.",
			name, money.Format(best.average-best.current)),
		Method: fmt.Sprintf("Total %s spend for %s compared with the average of the previous %d month(s).",
			name, monthName(current), best.months),
		Context: fmt.Sprintf("You usually spend about %s a month on %s.", money.Format(best.average), name),
		RawValues: map[string]float64{
			"baseline_monthly_average": best.average,
			"baseline_months":          float64(best.months),
			"change_pct":               stats.Round(best.pct, 1),
		},
		Supporting: txns,
		Percent:    -best.pct,
		Dollars:    best.average - best.current,
	}
}

func anomalyCharge(cfg Config, in *Input) *Candidate {
	current := currentMonth(in.AsOf)
	base, _, ok := baseline(in.Agg, current, cfg.BaselineMonths)
	if !ok {
		return nil
	}

	medians := make(map[string]float64)
	samples := make(map[string]int)
	byCategory := make(map[string][]float64)
	for _, t := range in.Agg.Spends(base, nil) {
		byCategory[t.PrimaryCategory()] = append(byCategory[t.PrimaryCategory()], t.SpendAmount())
	}
	for c, amounts := range byCategory {
		medians[c] = stats.Median(amounts)
		samples[c] = len(amounts)
	}

	var (
		best      *model.Transaction
		bestRatio float64
	)
	for _, t := range in.Agg.Spends(current, nil) {
		c := t.PrimaryCategory()
		if !cfg.Actionable(c) || samples[c] < cfg.AnomalyMinSamples || medians[c] <= 0 {
			continue
		}
		amount := t.SpendAmount()
		if amount < cfg.AnomalyMinAmount || amount <= cfg.AnomalyMultiple*medians[c] {
			continue
		}
		ratio := amount / medians[c]
		if best == nil || ratio > bestRatio || (ratio == bestRatio && t.ID < best.ID) {
			picked := t
			best, bestRatio = &picked, ratio
		}
	}
	if best == nil {
		return nil
	}

	c := best.PrimaryCategory()
	name := categoryName(c)
	txns := []model.Transaction{*best}
	return &Candidate{
		Type:     TriggerAnomalyCharge,
		Kind:     KindAnomaly,
		Level:    LevelHigh,
		Category: c,
		Merchant: aggregate.MerchantKey(best.Merchant),
		Headline: fmt.Sprintf("Unusual %s charge of %s at %s", name, quoted(txns), best.Merchant),
		Narrative: fmt.Sprintf("This charge on %s is %.1fx your typical %s purchase. Check it was expected.",
			best.Date.Format("Jan 2"), bestRatio, name),
		Method: fmt.Sprintf("Single spend compared with %.0fx the median %s spend over the baseline months.",
			cfg.AnomalyMultiple, name),
		Context: fmt.Sprintf("A typical %s purchase is around %s.", name, money.Format(medians[c])),
		RawValues: map[string]float64{
			"baseline_median":    money.Round(medians[c]),
			"baseline_samples":   float64(samples[c]),
			"charge_multiple":    stats.Round(bestRatio, 1),
			"threshold_multiple": cfg.AnomalyMultiple,
		},
		Supporting: txns,
		Percent:    (bestRatio - 1) * 100,
		Dollars:    best.SpendAmount(),
	}
}

// chargeTransactions resolves a recurring charge's history to ledger entries.
func chargeTransactions(in *Input, charges []recurring.Charge) []model.Transaction {
	byID := make(map[string]model.Transaction, in.Agg.Len())
	for _, t := range in.Agg.Transactions() {
		byID[t.ID] = t
	}
	out := make([]model.Transaction, 0, len(charges))
	for _, ch := range charges {
		if t, ok := byID[ch.TransactionID]; ok {
			out = append(out, t)
		}
	}
	return out
}

func subscriptions(in *Input) []recurring.RecurringCharge {
	if in.Subs == nil {
		return nil
	}
	return in.Subs.Subscriptions
}

func priceIncrease(_ Config, in *Input) *Candidate {
	var best *recurring.RecurringCharge
	for i, rc := range subscriptions(in) {
		if !rc.HasPriceIncrease || rc.PriceIncrease == nil || len(rc.Charges) == 0 {
			continue
		}
		if best == nil || rc.PriceIncrease.PercentChange > best.PriceIncrease.PercentChange {
			best = &in.Subs.Subscriptions[i]
		}
	}
	if best == nil {
		return nil
	}

	txns := chargeTransactions(in, best.Charges[len(best.Charges)-1:])
	pi := best.PriceIncrease
	return &Candidate{
		Type:     TriggerPriceIncrease,
		Kind:     KindAlert,
		Level:    LevelHigh,
		Category: best.Category,
		Merchant: best.MerchantKey,
		Headline: fmt.Sprintf("%s raised its price to %s (+%s)", best.Merchant, quoted(txns), money.Percent(pi.PercentChange)),
		Narrative: fmt.Sprintf("That adds about %s a year at the new price.",
			money.Format((pi.NewPrice-pi.OldPrice)*12*recurring.MonthlyMultiplier(best.Frequency))),
		Method:  "Latest recurring charge compared with the average of earlier charges from the same merchant.",
		Context: fmt.Sprintf("You previously paid about %s per charge.", money.Format(pi.OldPrice)),
		RawValues: map[string]float64{
			"baseline_old_price": pi.OldPrice,
			"change_pct":         pi.PercentChange,
		},
		Supporting: txns,
		Percent:    pi.PercentChange,
		Dollars:    (pi.NewPrice - pi.OldPrice) * 12 * recurring.MonthlyMultiplier(best.Frequency),
	}
}

func billDueSoon(cfg Config, in *Input) *Candidate {
	asOf := model.Day(in.AsOf)
	var (
		best     *recurring.RecurringCharge
		bestDays int
	)
	for i, rc := range subscriptions(in) {
		if rc.NextChargeDate == nil || len(rc.Charges) == 0 {
			continue
		}
		days := int(model.Day(*rc.NextChargeDate).Sub(asOf).Hours() / 24)
		if days < 0 || days > cfg.BillDueDays {
			continue
		}
		if best == nil || days < bestDays || (days == bestDays && rc.LatestAmount > best.LatestAmount) {
			best, bestDays = &in.Subs.Subscriptions[i], days
		}
	}
	if best == nil {
		return nil
	}

	txns := chargeTransactions(in, best.Charges[len(best.Charges)-1:])
	return &Candidate{
		Type:     TriggerBillDueSoon,
		Kind:     KindAlert,
		Level:    LevelMedium,
		Category: best.Category,
		Merchant: best.MerchantKey,
		Headline: fmt.Sprintf("%s (%s) is due %s", best.Merchant, quoted(txns), dueIn(bestDays)),
		Narrative: fmt.Sprintf("Expected on %s based on your %s billing pattern.",
			best.NextChargeDate.Format("Jan 2"), best.Frequency),
		Method:  "Last charge date plus the detected billing interval.",
		Context: fmt.Sprintf("You have paid %s %d time(s) so far.", best.Merchant, best.ChargeCount),
		RawValues: map[string]float64{
			"due_in_days":    float64(bestDays),
			"frequency_days": float64(best.FrequencyDays),
		},
		Supporting: txns,
		Dollars:    best.LatestAmount,
	}
}

func dueIn(days int) string {
	switch days {
	case 0:
		return "today"
	case 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", days)
	}
}

func grayCharge(_ Config, in *Input) *Candidate {
	var best *recurring.RecurringCharge
	for i, rc := range subscriptions(in) {
		if !rc.IsGrayCharge {
			continue
		}
		if best == nil || rc.AnnualCost > best.AnnualCost {
			best = &in.Subs.Subscriptions[i]
		}
	}
	if best == nil {
		return nil
	}

	txns := chargeTransactions(in, best.Charges)
	return &Candidate{
		Type:     TriggerGrayCharge,
		Kind:     KindAnomaly,
		Level:    LevelMedium,
		Category: best.Category,
		Merchant: best.MerchantKey,
		Headline: fmt.Sprintf("You've paid %s to %s across %d small charges", quoted(txns), best.Merchant, len(txns)),
		Narrative: fmt.Sprintf("Small recurring charges are easy to forget. This one costs about %s a year.",
			money.Format(best.AnnualCost)),
		Method:  "Low-value charges recurring at a regular interval from a merchant that is not a well-known service.",
		Context: fmt.Sprintf("It bills roughly %s.", best.Frequency),
		RawValues: map[string]float64{
			"monthly_cost_usd": best.MonthlyCost,
			"charge_count":     float64(len(txns)),
		},
		Supporting: txns,
		Dollars:    best.AnnualCost,
	}
}

func incomeBump(cfg Config, in *Input) *Candidate {
	current := currentMonth(in.AsOf)
	base, n, ok := baseline(in.Agg, current, cfg.BaselineMonths)
	if !ok {
		return nil
	}
	prior := money.SumBy(in.Agg.Income(base), func(t model.Transaction) float64 { return t.Amount })
	avg := money.Div(prior, float64(n))
	if avg <= 0 {
		return nil
	}
	txns := in.Agg.Income(current)
	cur := signedTotal(txns)
	pct := (cur - avg) / avg * 100
	if pct <= cfg.IncomeBumpPercent || cur-avg < cfg.IncomeBumpMinDelta {
		return nil
	}

	return &Candidate{
		Type:      TriggerIncomeBump,
		Kind:      KindWin,
		Level:     LevelHigh,
		Headline:  fmt.Sprintf("Income rose to %s in %s, %s above average", quoted(txns), monthName(current), money.Percent(pct)),
		Narrative: fmt.Sprintf("That's %s more than a typical month. Consider routing the extra to a goal.", money.Format(cur-avg)),
		Method:    fmt.Sprintf("Total deposits for %s compared with the average of the previous %d month(s).", monthName(current), n),
		Context:   fmt.Sprintf("Your typical monthly income is %s.", money.Format(avg)),
		RawValues: map[string]float64{
			"baseline_monthly_average": avg,
			"baseline_months":          float64(n),
			"change_pct":               stats.Round(pct, 1),
		},
		Supporting: txns,
		Percent:    pct,
		Dollars:    cur - avg,
	}
}

func savingsRecord(cfg Config, in *Input) *Candidate {
	first, _, ok := in.Agg.HistoryRange()
	if !ok {
		return nil
	}
	current := currentMonth(in.AsOf)
	if !first.Before(current.Start) {
		return nil
	}
	months := in.Agg.MonthlyNetSavings(first, current.Start)
	if len(months) < cfg.RecordMinMonths {
		return nil
	}
	last := months[len(months)-1]
	if last.Net <= 0 || last.Count == 0 {
		return nil
	}
	previousBest := math.Inf(-1)
	for _, m := range months[:len(months)-1] {
		previousBest = math.Max(previousBest, m.Net)
	}
	if last.Net <= previousBest {
		return nil
	}

	txns := in.Agg.InWindow(current)
	return &Candidate{
		Type:      TriggerSavingsRecord,
		Kind:      KindWin,
		Level:     LevelHigh,
		Headline:  fmt.Sprintf("Record month: you saved %s in %s", quoted(txns), monthName(current)),
		Narrative: fmt.Sprintf("Your best month in %d months of history, %s ahead of the previous best.", len(months), money.Format(last.Net-previousBest)),
		Method:    "Income minus spend for the month, compared with every earlier month of history.",
		Context:   fmt.Sprintf("Your previous best month saved %s.", money.Format(previousBest)),
		RawValues: map[string]float64{
			"baseline_previous_best": previousBest,
			"history_months":         float64(len(months)),
		},
		Supporting: txns,
		Dollars:    last.Net,
		Record:     true,
	}
}

func frequentMerchant(cfg Config, in *Input) *Candidate {
	current := currentMonth(in.AsOf)
	visits := in.Agg.MerchantVisits(current)

	keys := make([]string, 0, len(visits))
	for k := range visits {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best := ""
	for _, k := range keys {
		if visits[k] <= cfg.FrequentVisits {
			continue
		}
		if best == "" || visits[k] > visits[best] {
			best = k
		}
	}
	if best == "" {
		return nil
	}

	txns := in.Agg.Spends(current, func(t model.Transaction) bool { return aggregate.MerchantKey(t.Merchant) == best })
	name := aggregate.DisplayName(best)
	return &Candidate{
		Type:      TriggerFrequentMerchant,
		Kind:      KindAlert,
		Level:     LevelLow,
		Merchant:  best,
		Headline:  fmt.Sprintf("%d visits to %s in %s added up to %s", len(txns), name, monthName(current), quoted(txns)),
		Narrative: fmt.Sprintf("That's about %s per visit.", money.Format(math.Abs(signedTotal(txns))/float64(len(txns)))),
		Method:    "Count of spends at the same merchant during the month.",
		Context:   fmt.Sprintf("More than %d visits in a month counts as frequent.", cfg.FrequentVisits),
		RawValues: map[string]float64{
			"visit_count":      float64(len(txns)),
			"threshold_visits": float64(cfg.FrequentVisits),
		},
		Supporting: txns,
		Dollars:    math.Abs(signedTotal(txns)),
		Visits:     len(txns),
	}
}

func weekendHeavy(cfg Config, in *Input) *Candidate {
	current := currentMonth(in.AsOf)
	weekend, weekday := in.Agg.WeekendWeekdaySplit(current)
	weekendTotal := math.Abs(signedTotal(weekend))
	weekdayTotal := math.Abs(signedTotal(weekday))
	if weekendTotal < cfg.WeekendMinSpend || weekdayTotal <= 0 {
		return nil
	}
	weekendDaily := weekendTotal / float64(daysIn(current, true))
	weekdayDaily := weekdayTotal / float64(daysIn(current, false))
	ratio := weekendDaily / weekdayDaily
	if ratio < cfg.WeekendRatio {
		return nil
	}

	return &Candidate{
		Type:      TriggerWeekendHeavy,
		Kind:      KindAlert,
		Level:     LevelMedium,
		Headline:  fmt.Sprintf("Weekend spending reached %s in %s", quoted(weekend), monthName(current)),
		Narrative: fmt.Sprintf("You spend %.1fx more per weekend day than on weekdays.", ratio),
		Method:    "Average spend per weekend day compared with average spend per weekday in the month.",
		Context:   fmt.Sprintf("A typical weekday costs you about %s.", money.Format(weekdayDaily)),
		RawValues: map[string]float64{
			"baseline_weekday_daily": money.Round(weekdayDaily),
			"weekend_daily_usd":      money.Round(weekendDaily),
			"weekend_ratio":          stats.Round(ratio, 1),
		},
		Supporting: weekend,
		Percent:    (ratio - 1) * 100,
		Dollars:    weekendTotal,
	}
}

func goalBehind(_ Config, in *Input) *Candidate {
	current := currentMonth(in.AsOf)
	txns := in.Agg.InWindow(current)
	if len(txns) == 0 {
		return nil
	}
	net := signedTotal(txns)

	var (
		best          *model.Goal
		bestRequired  float64
		bestShortfall float64
	)
	for i, g := range in.Goals {
		if g.CurrentSavings >= g.TargetAmount || forecast.MonthsRemaining(in.AsOf, g.Deadline) <= 0 {
			continue
		}
		required := forecast.RequiredMonthlySavings(g, in.AsOf)
		shortfall := money.Sum(required, -net)
		if shortfall <= 0 {
			continue
		}
		if best == nil || g.Priority.Outranks(best.Priority) ||
			(g.Priority == best.Priority && (shortfall > bestShortfall || (shortfall == bestShortfall && g.ID < best.ID))) {
			best, bestRequired, bestShortfall = &in.Goals[i], required, shortfall
		}
	}
	if best == nil {
		return nil
	}

	headline := fmt.Sprintf("You saved %s in %s, behind the pace for %s", quoted(txns), monthName(current), best.Name)
	if net < 0 {
		headline = fmt.Sprintf("You overspent by %s in %s, putting %s behind", quoted(txns), monthName(current), best.Name)
	}
	level := LevelMedium
	if best.Priority == model.PriorityHigh {
		level = LevelHigh
	}
	return &Candidate{
		Type:      TriggerGoalBehind,
		Kind:      KindAlert,
		Level:     level,
		Headline:  headline,
		Narrative: fmt.Sprintf("%s needs %s a month to finish on time.", best.Name, money.Format(bestRequired)),
		Method:    "Income minus spend for the month compared with the goal's remaining amount divided by months left.",
		Context:   fmt.Sprintf("You are %s a month short of that pace.", money.Format(bestShortfall)),
		RawValues: map[string]float64{
			"baseline_required_monthly": bestRequired,
			"monthly_shortfall_usd":     bestShortfall,
		},
		Supporting: txns,
		Dollars:    bestShortfall,
	}
}
