package market

import (
	"errors"
	"testing"

	"github.com/rodrigomagnidea-lab/EzValuation/pkg/constants"
	"github.com/rodrigomagnidea-lab/EzValuation/pkg/mathutil"
)

func TestIndexDecimal(t *testing.T) {
	tests := []struct {
		name    string
		index   Index
		want    float64
		wantErr bool
	}{
		{"percent", Index{Name: "IPCA", Value: 4.5, Unit: "%"}, 0.045, false},
		{"decimal", Index{Name: "NTN-B", Value: 0.06, Unit: "decimal"}, 0.06, false},
		{"decimal mixed case", Index{Name: "NTN-B", Value: 0.06, Unit: " Decimal "}, 0.06, false},
		{"basis points", Index{Name: "spread", Value: 250, Unit: "bps"}, 0.025, false},
		{"small percent stays percent", Index{Name: "CDI", Value: 0.5, Unit: "%"}, 0.005, false},
		{"unknown unit", Index{Name: "X", Value: 1, Unit: "pp"}, 0, true},
		{"empty unit", Index{Name: "X", Value: 1}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.index.Decimal()
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownUnit) {
					t.Fatalf("expected ErrUnknownUnit, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !mathutil.WithinTolerance(got, tt.want, 1e-12) {
				t.Errorf("Decimal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultIndices(t *testing.T) {
	indices := DefaultIndices()
	want := map[string]float64{
		constants.IndexIPCA:  4.5,
		constants.IndexNTNB:  6.0,
		constants.IndexCDI:   10.5,
		constants.IndexSELIC: 10.75,
	}
	if len(indices) != len(want) {
		t.Fatalf("expected %d indices, got %d", len(want), len(indices))
	}
	for _, idx := range indices {
		if want[idx.Name] != idx.Value {
			t.Errorf("%s = %v, want %v", idx.Name, idx.Value, want[idx.Name])
		}
		if !ValidUnit(idx.Unit) {
			t.Errorf("%s has invalid unit %q", idx.Name, idx.Unit)
		}
	}
}
