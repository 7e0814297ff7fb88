package scoring

import (
	"encoding/json"
	"testing"
)

func TestParseCriterionValue(t *testing.T) {
	tests := []struct {
		name     string
		typ      CriterionType
		raw      interface{}
		wantKind Kind
		wantStr  string
		wantErr  bool
	}{
		{"numeric float", TypeNumeric, 0.95, KindNumeric, "0.95", false},
		{"numeric json number", TypeNumeric, json.Number("12.5"), KindNumeric, "12.5", false},
		{"numeric string", TypeNumeric, " 7.25 ", KindNumeric, "7.25", false},
		{"numeric comma decimal", TypePercent, "4,5", KindNumeric, "4.5", false},
		{"numeric garbage", TypeNumeric, "abc", KindNone, "", true},
		{"numeric bool rejected", TypeNumeric, true, KindNone, "", true},
		{"boolean native", TypeBoolean, true, KindBoolean, "true", false},
		{"boolean sim", TypeBoolean, "Sim", KindBoolean, "true", false},
		{"boolean nao", TypeBoolean, "não", KindBoolean, "false", false},
		{"boolean garbage", TypeBoolean, "talvez", KindNone, "", true},
		{"categorical label", TypeCategorical, " Multi ", KindCategorical, "Multi", false},
		{"categorical number", TypeCategorical, 3.0, KindCategorical, "3", false},
		{"nil unanswered", TypeNumeric, nil, KindNone, "", false},
		{"blank unanswered", TypeCategorical, "   ", KindNone, "", false},
		{"unknown type", CriterionType("date"), "2024", KindNone, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCriterionValue(tt.typ, tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCriterionValue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", got.Kind, tt.wantKind)
			}
			if got.String() != tt.wantStr {
				t.Errorf("String() = %q, want %q", got.String(), tt.wantStr)
			}
		})
	}
}

func TestDeclaredTypeDecidesBranch(t *testing.T) {
	// A numeric-looking string on a categorical criterion must match by label,
	// not by interval.
	ranges := []Range{
		{ID: "interval", Label: "Band", Min: strPtr("0"), Max: strPtr("10")},
		{ID: "label", Label: "5"},
	}

	value, err := ParseCriterionValue(TypeCategorical, "5")
	if err != nil {
		t.Fatalf("ParseCriterionValue error: %v", err)
	}
	got, ok := Evaluate(value, ranges)
	if !ok || got.ID != "label" {
		t.Fatalf("Evaluate(categorical \"5\") = %q (ok=%v), want label", got.ID, ok)
	}

	value, err = ParseCriterionValue(TypeNumeric, "5")
	if err != nil {
		t.Fatalf("ParseCriterionValue error: %v", err)
	}
	got, ok = Evaluate(value, ranges)
	if !ok || got.ID != "interval" {
		t.Fatalf("Evaluate(numeric 5) = %q (ok=%v), want interval", got.ID, ok)
	}
}

func TestCriterionValueRaw(t *testing.T) {
	if Numeric(2.5).Raw() != 2.5 {
		t.Error("Numeric raw mismatch")
	}
	if Boolean(true).Raw() != true {
		t.Error("Boolean raw mismatch")
	}
	if Categorical("x").Raw() != "x" {
		t.Error("Categorical raw mismatch")
	}
	if (CriterionValue{}).Raw() != nil {
		t.Error("unanswered raw should be nil")
	}
}

func TestCriterionTypeValid(t *testing.T) {
	for _, typ := range []CriterionType{TypeNumeric, TypePercent, TypeBoolean, TypeCategorical} {
		if !typ.Valid() {
			t.Errorf("%q should be valid", typ)
		}
	}
	if CriterionType("text").Valid() {
		t.Error("text should not be valid")
	}
}
