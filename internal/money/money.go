// Package money keeps cent-level arithmetic exact and formats amounts for narratives.
package money

import (
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// Round rounds v to whole cents, half away from zero.
func Round(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// Sum adds values exactly in decimal and returns the cent-rounded result.
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	f, _ := total.Round(2).Float64()
	return f
}

// SumBy sums f over items exactly.
func SumBy[T any](items []T, f func(T) float64) float64 {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(decimal.NewFromFloat(f(it)))
	}
	out, _ := total.Round(2).Float64()
	return out
}

// Div divides a by b in decimal and rounds to cents. b must be non-zero.
func Div(a, b float64) float64 {
	q := decimal.NewFromFloat(a).Div(decimal.NewFromFloat(b))
	f, _ := q.Round(2).Float64()
	return f
}

// Format renders v as US dollars with grouping, e.g. "$1,234.50" or "-$12.00".
func Format(v float64) string {
	v = Round(v)
	if v < 0 {
		return "-" + printer.Sprintf("$%.2f", -v)
	}
	return printer.Sprintf("$%.2f", v)
}

// FormatWhole renders v as whole dollars, e.g. "$1,235".
func FormatWhole(v float64) string {
	if v < 0 {
		return "-" + printer.Sprintf("$%.0f", math.Round(-v))
	}
	return printer.Sprintf("$%.0f", math.Round(v))
}

// Percent renders p (already in percent units) with no decimals, e.g. "44%".
func Percent(p float64) string {
	return printer.Sprintf("%.0f%%", p)
}
