// Package formulas holds the numeric helpers shared by grading and reporting.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// MeanSquaredError is the mean of the squared element-wise differences.
// Slices of different length are compared over the shorter prefix.
func MeanSquaredError(a, b []float64) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	diff := make([]float64, n)
	floats.SubTo(diff, a[:n], b[:n])
	floats.Mul(diff, diff)
	return stat.Mean(diff, nil)
}

// Scaled returns a copy of data multiplied by factor
func Scaled(data []float64, factor float64) []float64 {
	out := make([]float64, len(data))
	copy(out, data)
	floats.Scale(factor, out)
	return out
}

// CostDiscount is base^exponent, the multiplicative penalty applied to a score
// per unit of cost
func CostDiscount(base, exponent float64) float64 {
	return math.Pow(base, exponent)
}
