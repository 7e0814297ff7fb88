// Package format renders amounts in Brazilian notation.
package format

import (
	"fmt"
	"math"
	"strings"

	"github.com/rodrigomagnidea-lab/EzValuation/pkg/constants"
)

// Currency returns a BRL string with thousands separators (e.g., "-R$ 1.234,56").
func Currency(amount float64) string {
	formatted := formatPositive(math.Abs(amount), 2)
	if amount < 0 && formatted != "0,00" {
		return "-R$ " + formatted
	}
	return "R$ " + formatted
}

// Number returns amount with the given decimals and Brazilian separators (e.g., "1.234,5").
func Number(amount float64, decimals int) string {
	formatted := formatPositive(math.Abs(amount), decimals)
	if amount < 0 && strings.Trim(formatted, "0,.") != "" {
		return "-" + formatted
	}
	return formatted
}

// Percent renders a decimal fraction as a percentage (0.085 -> "8,50%").
func Percent(fraction float64) string {
	return Number(fraction*constants.PercentageMultiplier, 2) + "%"
}

func formatPositive(value float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	formatted := fmt.Sprintf("%.*f", decimals, value)
	parts := strings.SplitN(formatted, ".", 2)
	intPart := parts[0]

	if len(intPart) > 3 {
		var builder strings.Builder
		for i, digit := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				builder.WriteByte('.')
			}
			builder.WriteRune(digit)
		}
		intPart = builder.String()
	}

	if len(parts) == 2 {
		return intPart + "," + parts[1]
	}
	return intPart
}
