package forecast

import (
	"fmt"
	"math"
	"strings"

	"github.com/castlemilk/pfinance/analytics/internal/money"
	"github.com/castlemilk/pfinance/analytics/internal/recurring"
)

// cuttable is a discretionary category in ease order.
type cuttable struct {
	labels       []string
	display      string
	minReduction float64
	maxReduction float64
}

var cuttables = []cuttable{
	{[]string{"GENERAL_SERVICES", "SUBSCRIPTION", "SOFTWARE"}, "subscriptions and services", 0.30, 1.0},
	{[]string{"FOOD_AND_DRINK", "DINING", "RESTAURANTS"}, "dining out", 0.20, 0.50},
	{[]string{"ENTERTAINMENT"}, "entertainment", 0.30, 0.60},
	{[]string{"GENERAL_MERCHANDISE", "SHOPPING"}, "shopping", 0.20, 0.40},
	{[]string{"TRANSPORTATION", "RIDESHARE"}, "rideshare and transportation", 0.30, 0.50},
}

var nicePercentages = []float64{0.25, 0.30, 0.35, 0.40, 0.50, 0.60, 0.75, 1.0}

// snapReduction rounds a needed reduction up to a readable percentage within [lo, hi].
func snapReduction(needed, lo, hi float64) float64 {
	pct := math.Max(lo, math.Min(needed, hi))
	for _, nice := range nicePercentages {
		if nice >= pct-1e-9 {
			return math.Min(nice, hi)
		}
	}
	return hi
}

// recommend sizes cuts to close some or all of monthlyGap. Forgotten
// subscriptions come first, then discretionary categories in ease order.
func (e *Engine) recommend(monthlyGap float64, breakdown *SpendingBreakdown, subs *recurring.Result) []Recommendation {
	recs := []Recommendation{}
	if monthlyGap <= 0 {
		return recs
	}

	var saved []float64
	remaining := monthlyGap

	if subs != nil {
		var gray []float64
		var merchants []string
		for _, rc := range subs.Subscriptions {
			if rc.IsGrayCharge && rc.MonthlyCost > 0 {
				gray = append(gray, rc.MonthlyCost)
				merchants = append(merchants, rc.Merchant)
			}
		}
		if len(gray) > 0 {
			total := money.Sum(gray...)
			saved = append(saved, total)
			remaining = money.Sum(remaining, -total)
			recs = append(recs, Recommendation{
				Category:                "RECURRING",
				DisplayName:             "forgotten subscriptions",
				Action:                  fmt.Sprintf("Review %d forgotten subscription%s", len(gray), plural(len(gray))),
				CurrentMonthlySpend:     total,
				ReductionPercent:        100,
				EstimatedMonthlySavings: total,
				Impact:                  impactText(money.Sum(saved...), monthlyGap),
				Merchants:               merchants,
			})
		}
	}

	monthly := make(map[string]float64)
	if breakdown != nil {
		for _, cs := range breakdown.Categories {
			monthly[strings.ToUpper(cs.Category)] = cs.Monthly
		}
	}

	categoryRecs := 0
	for _, c := range cuttables {
		if remaining <= 0 || categoryRecs >= e.cfg.MaxRecommendations {
			break
		}
		label, spend := c.match(monthly)
		if spend < e.cfg.MinCategorySpend {
			continue
		}
		pct := snapReduction(remaining/spend, c.minReduction, c.maxReduction)
		savings := money.Round(spend * pct)
		saved = append(saved, savings)
		remaining = money.Sum(remaining, -savings)
		categoryRecs++

		recs = append(recs, Recommendation{
			Category:                label,
			DisplayName:             c.display,
			Action:                  actionText(c.display, pct),
			CurrentMonthlySpend:     spend,
			ReductionPercent:        math.Round(pct * 100),
			EstimatedMonthlySavings: savings,
			Impact:                  impactText(money.Sum(saved...), monthlyGap),
		})
	}

	for i := range recs {
		recs[i].Rank = i + 1
	}
	return recs
}

// match returns the first label of c with recorded spend.
func (c cuttable) match(monthly map[string]float64) (string, float64) {
	for _, l := range c.labels {
		if v, ok := monthly[l]; ok {
			return l, v
		}
	}
	return c.labels[0], 0
}

func actionText(display string, pct float64) string {
	if pct >= 0.9 {
		return "Cancel or eliminate " + display
	}
	return fmt.Sprintf("Reduce %s by %.0f%%", display, pct*100)
}

func impactText(cumulative, gap float64) string {
	if cumulative >= gap {
		return "Closes gap with " + money.Format(cumulative-gap) + " buffer"
	}
	return fmt.Sprintf("Achieves %.0f%% of needed savings", cumulative/gap*100)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
