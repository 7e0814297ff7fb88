// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/rodrigomagnidea-lab/EzValuation/pkg/constants"
)

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// SafeDivide returns numerator/denominator, or 0 when the denominator is 0.
func SafeDivide(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// PercentToDecimal converts a percentage (4.5) to a decimal fraction (0.045).
func PercentToDecimal(percent float64) float64 {
	return percent / constants.PercentageMultiplier
}

// DecimalToPercent converts a decimal fraction (0.045) to a percentage (4.5).
func DecimalToPercent(decimal float64) float64 {
	return decimal * constants.PercentageMultiplier
}

// DiscountFactor returns 1/(1+rate)^periods.
func DiscountFactor(rate float64, periods int) float64 {
	return 1 / math.Pow(1+rate, float64(periods))
}
