package aggregate

import "time"

// MonthLayout is the key format for calendar months.
const MonthLayout = "2006-01"

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// MonthStart returns midnight UTC on the first day of t's month.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths shifts a month start by n calendar months.
func AddMonths(month time.Time, n int) time.Time {
	return MonthStart(month).AddDate(0, n, 0)
}

// MonthWindow returns the window covering t's calendar month.
func MonthWindow(t time.Time) Window {
	start := MonthStart(t)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}

// TrailingWindow covers the n complete months before asOf's month.
func TrailingWindow(asOf time.Time, n int) Window {
	end := MonthStart(asOf)
	return Window{Start: end.AddDate(0, -n, 0), End: end}
}

// DaysBefore covers the n days ending just before end.
func DaysBefore(end time.Time, n int) Window {
	return Window{Start: end.AddDate(0, 0, -n), End: end}
}

// YearEarlier shifts w back one calendar year.
func (w Window) YearEarlier() Window {
	return Window{Start: w.Start.AddDate(-1, 0, 0), End: w.End.AddDate(-1, 0, 0)}
}

// MonthKey formats t's month as YYYY-MM.
func MonthKey(t time.Time) string {
	return t.UTC().Format(MonthLayout)
}

// MonthsBetween counts calendar months from a to b, ignoring days.
func MonthsBetween(a, b time.Time) int {
	ay, am, _ := a.UTC().Date()
	by, bm, _ := b.UTC().Date()
	return (by-ay)*12 + int(bm-am)
}
