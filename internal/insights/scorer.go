package insights

import (
	"math"
	"sort"
)

const (
	maxPercentScore = 200
	maxDollarScore  = 200
	maxVisitScore   = 50
	recordBonus     = 100
)

// score is (5 - level) * 1000 plus a capped magnitude, so the level always
// dominates and magnitude orders insights within a level.
func score(c *Candidate) float64 {
	magnitude := math.Min(math.Abs(c.Percent), maxPercentScore) +
		math.Min(math.Abs(c.Dollars)/10, maxDollarScore) +
		math.Min(float64(c.Visits)*2, maxVisitScore)
	if c.Record {
		magnitude += recordBonus
	}
	return math.Round((float64(5-c.Level)*1000+magnitude)*100) / 100
}

// sortInsights orders by score descending, then trigger type and ID so equal
// scores always land in the same order.
func sortInsights(items []Insight) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.PriorityScore != b.PriorityScore {
			return a.PriorityScore > b.PriorityScore
		}
		if a.TriggerType != b.TriggerType {
			return a.TriggerType < b.TriggerType
		}
		return a.ID < b.ID
	})
}

// diversify drops items that would exceed the per-category or per-merchant caps.
// items must already be sorted.
func diversify(items []Insight, maxPerCategory, maxPerMerchant int) []Insight {
	byCategory := make(map[string]int)
	byMerchant := make(map[string]int)
	out := make([]Insight, 0, len(items))
	for _, it := range items {
		if it.SpendCategory != "" && byCategory[it.SpendCategory] >= maxPerCategory {
			continue
		}
		if it.MerchantKey != "" && byMerchant[it.MerchantKey] >= maxPerMerchant {
			continue
		}
		if it.SpendCategory != "" {
			byCategory[it.SpendCategory]++
		}
		if it.MerchantKey != "" {
			byMerchant[it.MerchantKey]++
		}
		out = append(out, it)
	}
	return out
}

// promoteWin makes sure the first topN items include a win when any exists.
// The best win outside the window replaces the last visible item, which
// becomes the first item past the window.
func promoteWin(items []Insight, topN int) []Insight {
	if topN <= 0 || len(items) <= topN {
		return items
	}
	for _, it := range items[:topN] {
		if it.Kind == KindWin {
			return items
		}
	}
	for i := topN; i < len(items); i++ {
		if items[i].Kind != KindWin {
			continue
		}
		win := items[i]
		out := make([]Insight, 0, len(items))
		out = append(out, items[:topN-1]...)
		out = append(out, win, items[topN-1])
		out = append(out, items[topN:i]...)
		out = append(out, items[i+1:]...)
		return out
	}
	return items
}
