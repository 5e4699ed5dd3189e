// Package stats holds the descriptive statistics shared by the detector,
// forecaster and insight triggers. Empty and single-value inputs return 0
// instead of NaN.
package stats

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/stat"
)

// Mean is the arithmetic mean; 0 for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// Median is the middle value, averaging the two middle values of an even-length input.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return stat.Mean(sorted[mid-1:mid+1], nil)
}

// StdDev is the sample standard deviation (n-1); 0 for fewer than two values.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// CV is the coefficient of variation, StdDev over |Mean|. Fewer than two
// values or identical values give 0; spread around a zero mean is +Inf.
func CV(values []float64) float64 {
	sd := StdDev(values)
	if sd == 0 {
		return 0
	}
	m := Mean(values)
	if m == 0 {
		return math.Inf(1)
	}
	return sd / math.Abs(m)
}

// Consistency maps a coefficient of variation onto [0,1], where no spread is 1.
func Consistency(cv float64) float64 {
	return Clamp01(1 - cv)
}

// Clamp01 limits v to [0,1].
func Clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// Round rounds v to the given number of decimal places, half away from zero.
func Round(v float64, places int) float64 {
	return scalar.Round(v, places)
}
