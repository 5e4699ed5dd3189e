// Package aggregate computes the monetary aggregates every analysis reads:
// per-category and per-merchant spend, trailing monthly averages and the
// monthly net savings series. It is a pure function of the transactions it
// was built from.
package aggregate

import (
	"sort"
	"strings"
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/money"
)

// SpendSummary is the spend inside one window.
type SpendSummary struct {
	Window     Window             `json:"-"`
	Total      float64            `json:"total"`
	Count      int                `json:"count"`
	ByCategory map[string]float64 `json:"by_category"`
	ByMerchant map[string]float64 `json:"by_merchant"`
}

// MonthlyNet is one calendar month of income against spend.
type MonthlyNet struct {
	Month  string  `json:"month"`
	Income float64 `json:"income"`
	Spend  float64 `json:"spend"`
	Net    float64 `json:"net"`
	Count  int     `json:"count"`
}

// Aggregator holds the finalized corpus in date order.
type Aggregator struct {
	txns    []model.Transaction
	pending int
}

// New builds an aggregator over the finalized (non-pending) transactions.
// The input slice is not modified.
func New(txns []model.Transaction) *Aggregator {
	a := &Aggregator{txns: make([]model.Transaction, 0, len(txns))}
	for _, t := range txns {
		if t.Pending {
			a.pending++
			continue
		}
		a.txns = append(a.txns, t)
	}
	sort.SliceStable(a.txns, func(i, j int) bool {
		if !a.txns[i].Date.Equal(a.txns[j].Date) {
			return a.txns[i].Date.Before(a.txns[j].Date)
		}
		return a.txns[i].ID < a.txns[j].ID
	})
	return a
}

// Transactions returns a copy of the finalized corpus.
func (a *Aggregator) Transactions() []model.Transaction {
	out := make([]model.Transaction, len(a.txns))
	copy(out, a.txns)
	return out
}

// Len is the number of finalized transactions.
func (a *Aggregator) Len() int { return len(a.txns) }

// PendingExcluded is the number of pending transactions left out.
func (a *Aggregator) PendingExcluded() int { return a.pending }

// HistoryRange returns the first and last transaction dates.
func (a *Aggregator) HistoryRange() (first, last time.Time, ok bool) {
	if len(a.txns) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return a.txns[0].Date, a.txns[len(a.txns)-1].Date, true
}

// LatestOnOrBefore returns the date of the last transaction not after t.
func (a *Aggregator) LatestOnOrBefore(t time.Time) (time.Time, bool) {
	for i := len(a.txns) - 1; i >= 0; i-- {
		if !a.txns[i].Date.After(t) {
			return a.txns[i].Date, true
		}
	}
	return time.Time{}, false
}

// Spends returns spends inside w that satisfy match (nil matches all), in date order.
func (a *Aggregator) Spends(w Window, match func(model.Transaction) bool) []model.Transaction {
	var out []model.Transaction
	for _, t := range a.txns {
		if t.IsSpend() && w.Contains(t.Date) && (match == nil || match(t)) {
			out = append(out, t)
		}
	}
	return out
}

// Income returns income transactions inside w in date order.
func (a *Aggregator) Income(w Window) []model.Transaction {
	var out []model.Transaction
	for _, t := range a.txns {
		if t.IsIncome() && w.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out
}

// InWindow returns every finalized transaction inside w.
func (a *Aggregator) InWindow(w Window) []model.Transaction {
	var out []model.Transaction
	for _, t := range a.txns {
		if w.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out
}

// Spend totals spend inside w overall, per category and per merchant key.
func (a *Aggregator) Spend(w Window) SpendSummary {
	spends := a.Spends(w, nil)
	byCategory := make(map[string][]float64)
	byMerchant := make(map[string][]float64)
	for _, t := range spends {
		byCategory[t.PrimaryCategory()] = append(byCategory[t.PrimaryCategory()], t.SpendAmount())
		key := MerchantKey(t.Merchant)
		byMerchant[key] = append(byMerchant[key], t.SpendAmount())
	}

	summary := SpendSummary{
		Window:     w,
		Total:      money.SumBy(spends, model.Transaction.SpendAmount),
		Count:      len(spends),
		ByCategory: make(map[string]float64, len(byCategory)),
		ByMerchant: make(map[string]float64, len(byMerchant)),
	}
	for c, amounts := range byCategory {
		summary.ByCategory[c] = money.Sum(amounts...)
	}
	for m, amounts := range byMerchant {
		summary.ByMerchant[m] = money.Sum(amounts...)
	}
	return summary
}

// MonthlyNetSavings returns one entry per calendar month from 'from' to 'to'
// inclusive. Months without transactions are present with zero values.
func (a *Aggregator) MonthlyNetSavings(from, to time.Time) []MonthlyNet {
	start, end := MonthStart(from), MonthStart(to)
	if end.Before(start) {
		return nil
	}

	type bucket struct {
		income, spend []float64
		count         int
	}
	buckets := make(map[string]*bucket)
	w := Window{Start: start, End: end.AddDate(0, 1, 0)}
	for _, t := range a.txns {
		if !w.Contains(t.Date) {
			continue
		}
		key := MonthKey(t.Date)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		b.count++
		switch {
		case t.IsIncome():
			b.income = append(b.income, t.Amount)
		case t.IsSpend():
			b.spend = append(b.spend, t.SpendAmount())
		}
	}

	var out []MonthlyNet
	for m := start; !m.After(end); m = m.AddDate(0, 1, 0) {
		entry := MonthlyNet{Month: MonthKey(m)}
		if b, ok := buckets[entry.Month]; ok {
			entry.Income = money.Sum(b.income...)
			entry.Spend = money.Sum(b.spend...)
			entry.Count = b.count
		}
		entry.Net = money.Sum(entry.Income, -entry.Spend)
		out = append(out, entry)
	}
	return out
}

// TrailingNetSavings returns the zero-filled monthly series for the n
// complete months before asOf, clipped so it never starts before the first
// month of history. It is empty when there is no history in range.
func (a *Aggregator) TrailingNetSavings(asOf time.Time, n int) []MonthlyNet {
	first, _, ok := a.HistoryRange()
	if !ok || n <= 0 {
		return nil
	}
	w := TrailingWindow(asOf, n)
	start := w.Start
	if fm := MonthStart(first); fm.After(start) {
		start = fm
	}
	if !start.Before(w.End) {
		return nil
	}
	return a.MonthlyNetSavings(start, w.End.AddDate(0, -1, 0))
}

// AverageMonthlySpend averages spend over the n complete months before asOf.
// Empty months count as zero. Returns 0 when n <= 0.
func (a *Aggregator) AverageMonthlySpend(asOf time.Time, n int) float64 {
	if n <= 0 {
		return 0
	}
	return money.Div(a.Spend(TrailingWindow(asOf, n)).Total, float64(n))
}

// CategoryMonthlyAverage averages per-category spend over the n complete
// months before asOf.
func (a *Aggregator) CategoryMonthlyAverage(asOf time.Time, n int) map[string]float64 {
	out := make(map[string]float64)
	if n <= 0 {
		return out
	}
	for c, total := range a.Spend(TrailingWindow(asOf, n)).ByCategory {
		out[c] = money.Div(total, float64(n))
	}
	return out
}

// SpendsByMerchant groups every finalized spend by merchant key, each series in
// date order. Zero-amount charges (free trials) stay in the series of a named
// merchant that also has real spends.
func (a *Aggregator) SpendsByMerchant() map[string][]model.Transaction {
	out := make(map[string][]model.Transaction)
	paid := make(map[string]bool)
	for _, t := range a.txns {
		if t.IsIncome() || (t.Amount == 0 && strings.TrimSpace(t.Merchant) == "") {
			continue
		}
		key := MerchantKey(t.Merchant)
		out[key] = append(out[key], t)
		if t.IsSpend() {
			paid[key] = true
		}
	}
	for key := range out {
		if !paid[key] {
			delete(out, key)
		}
	}
	return out
}

// MerchantVisits counts spends per merchant key inside w.
func (a *Aggregator) MerchantVisits(w Window) map[string]int {
	out := make(map[string]int)
	for _, t := range a.Spends(w, nil) {
		out[MerchantKey(t.Merchant)]++
	}
	return out
}

// WeekendWeekdaySplit partitions spends inside w by day of week.
func (a *Aggregator) WeekendWeekdaySplit(w Window) (weekend, weekday []model.Transaction) {
	for _, t := range a.Spends(w, nil) {
		if t.IsWeekend() {
			weekend = append(weekend, t)
		} else {
			weekday = append(weekday, t)
		}
	}
	return weekend, weekday
}
