package forecast

import (
	"sort"
	"strings"
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/aggregate"
	"github.com/castlemilk/pfinance/analytics/internal/money"
)

// necessaryKeywords mark categories treated as non-negotiable spend.
// Anything unmatched is discretionary.
var necessaryKeywords = []string{
	"RENT", "MORTGAGE", "HOUSING", "UTILIT", "INTERNET", "PHONE",
	"GROCER", "INSURANCE", "MEDICAL", "HEALTH", "LOAN", "TAX",
	"CHILDCARE", "EDUCATION", "GAS",
}

// IsNecessary reports whether a category label is essential spend.
func IsNecessary(category string) bool {
	upper := strings.ToUpper(category)
	for _, kw := range necessaryKeywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

// historyMonths is the number of trailing months actually covered by history.
func (e *Engine) historyMonths(agg *aggregate.Aggregator, asOf time.Time) int {
	return len(agg.TrailingNetSavings(asOf, e.cfg.LookbackMonths))
}

func (e *Engine) spendingBreakdown(agg *aggregate.Aggregator, asOf time.Time) *SpendingBreakdown {
	months := e.historyMonths(agg, asOf)
	b := &SpendingBreakdown{MonthsAnalyzed: months, Categories: []CategorySpend{}}
	if months == 0 {
		return b
	}

	var necessary, discretionary []float64
	for category, monthly := range agg.CategoryMonthlyAverage(asOf, months) {
		cs := CategorySpend{Category: category, Monthly: monthly, Necessary: IsNecessary(category)}
		b.Categories = append(b.Categories, cs)
		if cs.Necessary {
			necessary = append(necessary, monthly)
		} else {
			discretionary = append(discretionary, monthly)
		}
	}
	sort.Slice(b.Categories, func(i, j int) bool {
		if b.Categories[i].Monthly != b.Categories[j].Monthly {
			return b.Categories[i].Monthly > b.Categories[j].Monthly
		}
		return b.Categories[i].Category < b.Categories[j].Category
	})

	b.NecessaryMonthly = money.Sum(necessary...)
	b.DiscretionaryMonthly = money.Sum(discretionary...)
	b.MaxRealisticCuts = money.Round(b.DiscretionaryMonthly * e.cfg.DiscretionaryCutShare)
	return b
}

// feasibility grades a monthly gap against what discretionary cuts could cover.
func feasibility(monthlyGap, maxCuts float64) *Feasibility {
	switch {
	case monthlyGap <= 0:
		return &Feasibility{Level: "realistic", Message: "Current savings rate already covers the required pace."}
	case maxCuts > 0 && monthlyGap <= maxCuts/2:
		return &Feasibility{Level: "realistic", Message: "The gap fits comfortably within discretionary spending."}
	case monthlyGap <= maxCuts:
		return &Feasibility{Level: "difficult", Message: "Closing the gap needs most of your realistic discretionary cuts."}
	default:
		return &Feasibility{Level: "unrealistic", Message: "The gap exceeds realistic discretionary cuts; consider a later deadline or a smaller target."}
	}
}
