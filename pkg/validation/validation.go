// Package validation provides common validation utilities.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rodrigomagnidea-lab/EzValuation/pkg/constants"
)

// B3 fund tickers: four letters, a one or two digit class, optional ".SA".
var tickerPattern = regexp.MustCompile(`^[A-Z]{4}[0-9]{1,2}(\.SA)?$`)

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	if format != constants.OutputFormatPretty && format != constants.OutputFormatCSV {
		return fmt.Errorf("expected output format of %s or %s, got %s",
			constants.OutputFormatPretty, constants.OutputFormatCSV, format)
	}
	return nil
}

// ValidateTicker checks that ticker looks like a B3 listed fund code.
// Matching is case-insensitive and ignores surrounding spaces.
func ValidateTicker(ticker string) error {
	normalized := strings.ToUpper(strings.TrimSpace(ticker))
	if normalized == "" {
		return fmt.Errorf("ticker is required")
	}
	if !tickerPattern.MatchString(normalized) {
		return fmt.Errorf("invalid ticker %q, expected a B3 code such as HGLG11", ticker)
	}
	return nil
}
