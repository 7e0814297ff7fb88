// Package market models the global market indices (IPCA, NTN-B, CDI, SELIC)
// that the admin maintains and the valuation helpers read.
package market

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rodrigomagnidea-lab/EzValuation/pkg/constants"
	"github.com/rodrigomagnidea-lab/EzValuation/pkg/mathutil"
)

// ErrUnknownUnit is returned when an index carries a unit Decimal cannot convert.
var ErrUnknownUnit = errors.New("unknown index unit")

// Index is a named market rate.
type Index struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Value       float64   `json:"value"`
	Unit        string    `json:"unit"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Decimal returns the index as a decimal fraction according to its unit.
func (i Index) Decimal() (float64, error) {
	switch strings.ToLower(strings.TrimSpace(i.Unit)) {
	case constants.UnitPercent:
		return mathutil.PercentToDecimal(i.Value), nil
	case constants.UnitDecimal:
		return i.Value, nil
	case constants.UnitBasisPoints:
		return i.Value / constants.BasisPointsDivisor, nil
	default:
		return 0, fmt.Errorf("%w %q for index %s", ErrUnknownUnit, i.Unit, i.Name)
	}
}

// ValidUnit reports whether unit is one Decimal understands.
func ValidUnit(unit string) bool {
	_, err := Index{Unit: unit}.Decimal()
	return err == nil
}

// DefaultIndices is the seed set written on first start.
func DefaultIndices() []Index {
	return []Index{
		{Name: constants.IndexIPCA, Value: 4.5, Unit: constants.UnitPercent, Description: "Expectativa de inflação (IPCA) 12 meses"},
		{Name: constants.IndexNTNB, Value: 6.0, Unit: constants.UnitPercent, Description: "Taxa real da NTN-B (Tesouro IPCA+)"},
		{Name: constants.IndexCDI, Value: 10.5, Unit: constants.UnitPercent, Description: "Taxa DI anual"},
		{Name: constants.IndexSELIC, Value: 10.75, Unit: constants.UnitPercent, Description: "Taxa Selic meta"},
	}
}
