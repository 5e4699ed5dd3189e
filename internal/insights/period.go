package insights

import (
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/aggregate"
)

// currentMonth is the last complete calendar month before asOf. Triggers
// compare it against the baseline months that precede it.
func currentMonth(asOf time.Time) aggregate.Window {
	return aggregate.MonthWindow(aggregate.AddMonths(asOf, -1))
}

// baseline returns the window of up to n months before current that history
// actually covers, with its month count. ok is false with no prior history.
func baseline(agg *aggregate.Aggregator, current aggregate.Window, n int) (aggregate.Window, int, bool) {
	first, _, ok := agg.HistoryRange()
	if !ok {
		return aggregate.Window{}, 0, false
	}
	covered := aggregate.MonthsBetween(first, current.Start)
	if covered < n {
		n = covered
	}
	if n <= 0 {
		return aggregate.Window{}, 0, false
	}
	return aggregate.TrailingWindow(current.Start, n), n, true
}

func monthName(w aggregate.Window) string {
	return w.Start.Format("January")
}

func daysIn(w aggregate.Window, weekend bool) int {
	n := 0
	for d := w.Start; d.Before(w.End); d = d.AddDate(0, 0, 1) {
		wd := d.Weekday()
		if (wd == time.Saturday || wd == time.Sunday) == weekend {
			n++
		}
	}
	return n
}
