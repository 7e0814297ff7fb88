// Package scoring implements the checklist scoring engine: matching a criterion
// value against its threshold bands and rolling matched points up through the
// weighted pillars of a methodology.
package scoring

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CriterionType is the declared input type of a criterion.
type CriterionType string

const (
	TypeNumeric     CriterionType = "numeric"
	TypePercent     CriterionType = "percent"
	TypeBoolean     CriterionType = "boolean"
	TypeCategorical CriterionType = "categorical"
)

// Valid reports whether t is one of the supported criterion types.
func (t CriterionType) Valid() bool {
	switch t {
	case TypeNumeric, TypePercent, TypeBoolean, TypeCategorical:
		return true
	}
	return false
}

// Kind tags the variant held by a CriterionValue.
type Kind int

const (
	// KindNone marks an unanswered criterion.
	KindNone Kind = iota
	KindNumeric
	KindBoolean
	KindCategorical
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindBoolean:
		return "boolean"
	case KindCategorical:
		return "categorical"
	default:
		return "none"
	}
}

// CriterionValue is a tagged union of the three value shapes a criterion can
// receive. Only the field selected by Kind is meaningful.
type CriterionValue struct {
	Kind   Kind
	Number float64
	Bool   bool
	Label  string
}

// Numeric wraps a numeric answer.
func Numeric(v float64) CriterionValue { return CriterionValue{Kind: KindNumeric, Number: v} }

// Boolean wraps a yes/no answer.
func Boolean(v bool) CriterionValue { return CriterionValue{Kind: KindBoolean, Bool: v} }

// Categorical wraps a label answer.
func Categorical(v string) CriterionValue { return CriterionValue{Kind: KindCategorical, Label: v} }

// Answered reports whether the value carries an answer.
func (v CriterionValue) Answered() bool { return v.Kind != KindNone }

// Raw returns the value as a plain Go value for persistence.
func (v CriterionValue) Raw() interface{} {
	switch v.Kind {
	case KindNumeric:
		return v.Number
	case KindBoolean:
		return v.Bool
	case KindCategorical:
		return v.Label
	default:
		return nil
	}
}

func (v CriterionValue) String() string {
	switch v.Kind {
	case KindNumeric:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindBoolean:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindCategorical:
		return v.Label
	default:
		return ""
	}
}

// ParseCriterionValue builds the CriterionValue variant dictated by the
// criterion's declared type from a raw decoded input. A nil or blank raw value
// yields an unanswered value without error.
func ParseCriterionValue(criterionType CriterionType, raw interface{}) (CriterionValue, error) {
	if raw == nil {
		return CriterionValue{}, nil
	}
	if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" {
		return CriterionValue{}, nil
	}

	switch criterionType {
	case TypeNumeric, TypePercent:
		n, err := coerceNumber(raw)
		if err != nil {
			return CriterionValue{}, fmt.Errorf("invalid %s value %v: %w", criterionType, raw, err)
		}
		return Numeric(n), nil
	case TypeBoolean:
		b, err := coerceBool(raw)
		if err != nil {
			return CriterionValue{}, fmt.Errorf("invalid boolean value %v: %w", raw, err)
		}
		return Boolean(b), nil
	case TypeCategorical:
		return Categorical(coerceLabel(raw)), nil
	default:
		return CriterionValue{}, fmt.Errorf("unsupported criterion type %q", criterionType)
	}
}

func coerceNumber(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return parseDecimal(v)
	default:
		return 0, fmt.Errorf("expected a number, got %T", raw)
	}
}

// parseDecimal accepts both "4.5" and the Brazilian "4,5" notation.
func parseDecimal(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	if strings.Contains(trimmed, ",") && !strings.Contains(trimmed, ".") {
		trimmed = strings.Replace(trimmed, ",", ".", 1)
	}
	return strconv.ParseFloat(trimmed, 64)
}

func coerceBool(raw interface{}) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "sim", "s", "yes", "y", "true", "1":
			return true, nil
		case "não", "nao", "n", "no", "false", "0":
			return false, nil
		}
		return false, fmt.Errorf("unrecognised answer %q", v)
	case float64:
		return v != 0, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return false, err
		}
		return f != 0, nil
	default:
		return false, fmt.Errorf("expected a boolean, got %T", raw)
	}
}

func coerceLabel(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(v)
	}
}
