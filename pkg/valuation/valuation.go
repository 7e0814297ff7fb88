// Package valuation holds the closed-form fair value models used for
// real-estate funds: Gordon growth, FCFE, IPCA+ perpetuity, and the usual
// indicators (cap rate, P/VP, vacancy, NTN-B spread).
//
// Rates are decimal fractions (0.10 for 10%).
package valuation

import (
	"errors"
	"fmt"
	"math"

	"github.com/rodrigomagnidea-lab/EzValuation/pkg/constants"
	"github.com/rodrigomagnidea-lab/EzValuation/pkg/mathutil"
	"gonum.org/v1/gonum/floats"
)

// ErrInvalidParameter is returned when the inputs would make a model diverge
// or are out of the domain the model accepts.
var ErrInvalidParameter = errors.New("invalid valuation parameter")

// Gordon returns the perpetuity value D/(r-g). The discount rate must be
// strictly greater than the growth rate.
func Gordon(dividend, growth, discount float64) (float64, error) {
	if discount <= growth {
		return 0, fmt.Errorf("%w: discount rate %.4f must be greater than growth rate %.4f",
			ErrInvalidParameter, discount, growth)
	}
	return dividend / (discount - growth), nil
}

// FCFEResult breaks down an FCFE valuation.
type FCFEResult struct {
	FairValue       float64   `json:"fair_value"`
	PresentValues   []float64 `json:"present_values"`
	TerminalValue   float64   `json:"terminal_value"`
	TerminalPresent float64   `json:"terminal_present_value"`
}

// FCFE discounts the projected flows at the discount rate and adds a Gordon
// terminal value grown from the last flow.
func FCFE(flows []float64, discount, terminalGrowth float64) (FCFEResult, error) {
	if len(flows) == 0 {
		return FCFEResult{}, fmt.Errorf("%w: at least one projected flow is required", ErrInvalidParameter)
	}
	if discount <= terminalGrowth {
		return FCFEResult{}, fmt.Errorf("%w: discount rate %.4f must be greater than terminal growth %.4f",
			ErrInvalidParameter, discount, terminalGrowth)
	}

	pvs := make([]float64, len(flows))
	for i, flow := range flows {
		pvs[i] = flow * mathutil.DiscountFactor(discount, i+1)
	}

	n := len(flows)
	terminal := flows[n-1] * (1 + terminalGrowth) / (discount - terminalGrowth)
	terminalPV := terminal * mathutil.DiscountFactor(discount, n)

	return FCFEResult{
		FairValue:       floats.Sum(pvs) + terminalPV,
		PresentValues:   pvs,
		TerminalValue:   terminal,
		TerminalPresent: terminalPV,
	}, nil
}

// IPCAPlusResult is the outcome of an IPCA+ valuation.
type IPCAPlusResult struct {
	FairValue          float64   `json:"fair_value"`
	AnnualReturn       float64   `json:"annual_return"`
	ProjectedDividends []float64 `json:"projected_dividends"`
	TerminalValue      float64   `json:"terminal_value"`
}

// IPCAPlus values a fund whose dividends grow with inflation, discounted at
// IPCA plus a real premium. monthlyDividend is annualised before projection.
func IPCAPlus(monthlyDividend, ipca, premium float64, years int) (IPCAPlusResult, error) {
	if premium <= 0 {
		return IPCAPlusResult{}, fmt.Errorf("%w: premium over IPCA must be positive, got %.4f",
			ErrInvalidParameter, premium)
	}
	if years < 1 {
		return IPCAPlusResult{}, fmt.Errorf("%w: projection horizon must be at least one year, got %d",
			ErrInvalidParameter, years)
	}

	discount := ipca + premium
	annual := monthlyDividend * constants.MonthsPerYear

	projected := make([]float64, years)
	pvs := make([]float64, years)
	for y := 1; y <= years; y++ {
		projected[y-1] = annual * math.Pow(1+ipca, float64(y))
		pvs[y-1] = projected[y-1] * mathutil.DiscountFactor(discount, y)
	}

	// premium > 0 keeps discount - ipca positive
	terminal := projected[years-1] * (1 + ipca) / premium
	terminalPV := terminal * mathutil.DiscountFactor(discount, years)

	return IPCAPlusResult{
		FairValue:          floats.Sum(pvs) + terminalPV,
		AnnualReturn:       discount,
		ProjectedDividends: projected,
		TerminalValue:      terminal,
	}, nil
}

// CapRate is NOI over property value, 0 when the value is 0.
func CapRate(noi, propertyValue float64) float64 {
	return mathutil.SafeDivide(noi, propertyValue)
}

// PVP is the price to book multiple, 0 when the book value is 0.
func PVP(price, netWorthPerShare float64) float64 {
	return mathutil.SafeDivide(price, netWorthPerShare)
}

// VacancyLevel buckets financial vacancy.
type VacancyLevel string

const (
	VacancyLow    VacancyLevel = "low"
	VacancyMedium VacancyLevel = "medium"
	VacancyHigh   VacancyLevel = "high"
)

// VacancyReport summarises physical and financial vacancy.
type VacancyReport struct {
	Physical  float64      `json:"physical_vacancy"`
	Financial float64      `json:"financial_vacancy"`
	Spread    float64      `json:"spread"`
	Healthy   bool         `json:"is_healthy"`
	Level     VacancyLevel `json:"level"`
}

// Vacancy classifies vacancy by its financial component.
func Vacancy(physical, financial float64) VacancyReport {
	level := VacancyHigh
	switch {
	case financial < constants.VacancyLowThreshold:
		level = VacancyLow
	case financial < constants.VacancyMediumThreshold:
		level = VacancyMedium
	}
	return VacancyReport{
		Physical:  physical,
		Financial: financial,
		Spread:    financial - physical,
		Healthy:   financial < constants.VacancyHealthyThreshold,
		Level:     level,
	}
}

// NTNBSpread returns the fund yield over the NTN-B yield in percentage points.
func NTNBSpread(fiiYield, ntnbYield float64) float64 {
	return mathutil.DecimalToPercent(fiiYield - ntnbYield)
}
