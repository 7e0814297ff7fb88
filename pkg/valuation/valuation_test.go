package valuation

import (
	"errors"
	"math"
	"testing"

	"github.com/rodrigomagnidea-lab/EzValuation/pkg/mathutil"
)

func TestGordon(t *testing.T) {
	tests := []struct {
		name     string
		dividend float64
		growth   float64
		discount float64
		want     float64
		wantErr  bool
	}{
		{"typical", 120, 0.03, 0.10, 1714.2857142857, false},
		{"zero growth", 10, 0, 0.08, 125, false},
		{"growth above discount", 120, 0.10, 0.05, 0, true},
		{"growth equal discount", 120, 0.08, 0.08, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Gordon(tt.dividend, tt.growth, tt.discount)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidParameter) {
					t.Fatalf("expected ErrInvalidParameter, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !mathutil.WithinTolerance(got, tt.want, 1e-6) {
				t.Errorf("Gordon() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFCFE(t *testing.T) {
	flows := []float64{100, 110, 121}
	r, g := 0.10, 0.03

	got, err := FCFE(flows, r, g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := 100/1.1 + 110/math.Pow(1.1, 2) + 121/math.Pow(1.1, 3)
	terminal := 121 * 1.03 / (r - g)
	want += terminal / math.Pow(1.1, 3)

	if !mathutil.WithinTolerance(got.FairValue, want, 1e-9) {
		t.Errorf("FairValue = %v, want %v", got.FairValue, want)
	}
	if !mathutil.WithinTolerance(got.TerminalValue, terminal, 1e-9) {
		t.Errorf("TerminalValue = %v, want %v", got.TerminalValue, terminal)
	}
	if len(got.PresentValues) != len(flows) {
		t.Errorf("expected %d present values, got %d", len(flows), len(got.PresentValues))
	}
}

func TestFCFEInvalid(t *testing.T) {
	if _, err := FCFE(nil, 0.1, 0.03); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("empty flows: expected ErrInvalidParameter, got %v", err)
	}
	if _, err := FCFE([]float64{100}, 0.03, 0.03); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("r == g: expected ErrInvalidParameter, got %v", err)
	}
}

func TestIPCAPlus(t *testing.T) {
	monthly, ipca, premium, years := 100.0/12, 0.045, 0.06, 10

	got, err := IPCAPlus(monthly, ipca, premium, years)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got.ProjectedDividends) != years {
		t.Fatalf("expected %d projected dividends, got %d", years, len(got.ProjectedDividends))
	}
	if !mathutil.WithinTolerance(got.ProjectedDividends[0], 100*1.045, 1e-9) {
		t.Errorf("first projected dividend = %v, want %v", got.ProjectedDividends[0], 100*1.045)
	}
	for i := 1; i < years; i++ {
		ratio := got.ProjectedDividends[i] / got.ProjectedDividends[i-1]
		if !mathutil.WithinTolerance(ratio, 1+ipca, 1e-12) {
			t.Errorf("dividend ratio at year %d = %v, want %v", i+1, ratio, 1+ipca)
		}
	}
	if !mathutil.WithinTolerance(got.AnnualReturn, 0.105, 1e-12) {
		t.Errorf("AnnualReturn = %v, want 0.105", got.AnnualReturn)
	}

	r := ipca + premium
	want := 0.0
	for y := 1; y <= years; y++ {
		want += 100 * math.Pow(1+ipca, float64(y)) / math.Pow(1+r, float64(y))
	}
	last := 100 * math.Pow(1+ipca, float64(years))
	terminal := last * (1 + ipca) / (r - ipca)
	want += terminal / math.Pow(1+r, float64(years))

	if !mathutil.WithinTolerance(got.TerminalValue, terminal, 1e-6) {
		t.Errorf("TerminalValue = %v, want %v", got.TerminalValue, terminal)
	}
	if !mathutil.WithinTolerance(got.FairValue, want, 1e-6) {
		t.Errorf("FairValue = %v, want %v", got.FairValue, want)
	}
}

func TestIPCAPlusInvalid(t *testing.T) {
	tests := []struct {
		name    string
		premium float64
		years   int
	}{
		{"zero premium", 0, 10},
		{"negative premium", -0.01, 10},
		{"zero years", 0.06, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := IPCAPlus(1, 0.045, tt.premium, tt.years); !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter, got %v", err)
			}
		})
	}
}

func TestRatios(t *testing.T) {
	if got := CapRate(8, 100); got != 0.08 {
		t.Errorf("CapRate = %v, want 0.08", got)
	}
	if got := CapRate(8, 0); got != 0 {
		t.Errorf("CapRate with zero value = %v, want 0", got)
	}
	if got := PVP(95, 100); got != 0.95 {
		t.Errorf("PVP = %v, want 0.95", got)
	}
	if got := PVP(95, 0); got != 0 {
		t.Errorf("PVP with zero book = %v, want 0", got)
	}
}

func TestVacancy(t *testing.T) {
	tests := []struct {
		financial   float64
		wantLevel   VacancyLevel
		wantHealthy bool
	}{
		{0.0, VacancyLow, true},
		{0.049, VacancyLow, true},
		{0.05, VacancyMedium, true},
		{0.10, VacancyMedium, false},
		{0.149, VacancyMedium, false},
		{0.15, VacancyHigh, false},
	}

	for _, tt := range tests {
		got := Vacancy(0.02, tt.financial)
		if got.Level != tt.wantLevel {
			t.Errorf("Vacancy(%v).Level = %q, want %q", tt.financial, got.Level, tt.wantLevel)
		}
		if got.Healthy != tt.wantHealthy {
			t.Errorf("Vacancy(%v).Healthy = %v, want %v", tt.financial, got.Healthy, tt.wantHealthy)
		}
		if !mathutil.WithinTolerance(got.Spread, tt.financial-0.02, 1e-12) {
			t.Errorf("Vacancy(%v).Spread = %v", tt.financial, got.Spread)
		}
	}
}

func TestNTNBSpread(t *testing.T) {
	if got := NTNBSpread(0.10, 0.06); !mathutil.WithinTolerance(got, 4, 1e-9) {
		t.Errorf("NTNBSpread = %v, want 4", got)
	}
	if got := NTNBSpread(0.05, 0.06); !mathutil.WithinTolerance(got, -1, 1e-9) {
		t.Errorf("NTNBSpread = %v, want -1", got)
	}
}
