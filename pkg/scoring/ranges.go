package scoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rodrigomagnidea-lab/EzValuation/pkg/constants"
)

// Color is the traffic-light colour of a range.
type Color string

const (
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorRed    Color = "red"
)

// Valid reports whether c is a supported colour.
func (c Color) Valid() bool {
	return c == ColorGreen || c == ColorYellow || c == ColorRed
}

// Impact describes how a matched range weighs on the thesis.
type Impact string

const (
	ImpactNeutral           Impact = "neutral"
	ImpactPenaltyLight      Impact = "penalty_light"
	ImpactPenaltyStructural Impact = "penalty_structural"
)

// Valid reports whether i is a supported impact.
func (i Impact) Valid() bool {
	return i == ImpactNeutral || i == ImpactPenaltyLight || i == ImpactPenaltyStructural
}

// Range is one threshold band of a criterion. Min and Max are stored as raw
// strings; nil, "" and "null" mean unbounded on that side.
type Range struct {
	ID          string  `json:"id" yaml:"-"`
	CriterionID string  `json:"criterion_id" yaml:"-"`
	Min         *string `json:"min" yaml:"min,omitempty"`
	Max         *string `json:"max" yaml:"max,omitempty"`
	Label       string  `json:"label" yaml:"label"`
	Points      float64 `json:"points" yaml:"points"`
	Color       Color   `json:"color" yaml:"color"`
	Impact      Impact  `json:"impact" yaml:"impact"`
	Position    int     `json:"position" yaml:"-"`
}

// UnmarshalJSON accepts bounds as JSON numbers, strings or null and keeps
// their raw text, so {"min": 5} and {"min": "5"} decode alike.
func (r *Range) UnmarshalJSON(data []byte) error {
	type plain Range
	aux := struct {
		*plain
		Min json.RawMessage `json:"min"`
		Max json.RawMessage `json:"max"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if r.Min, err = decodeBound(aux.Min); err != nil {
		return fmt.Errorf("range %q min: %w", r.Label, err)
	}
	if r.Max, err = decodeBound(aux.Max); err != nil {
		return fmt.Errorf("range %q max: %w", r.Label, err)
	}
	return nil
}

func decodeBound(raw json.RawMessage) (*string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, err
		}
		return &s, nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return nil, fmt.Errorf("expected a number, string or null, got %s", trimmed)
	}
	s := n.String()
	return &s, nil
}

// Bounds resolves the numeric interval of the range. Missing bounds become
// -Inf/+Inf; a non-numeric bound is an error.
func (r Range) Bounds() (float64, float64, error) {
	lo, err := parseBound(r.Min, math.Inf(-1))
	if err != nil {
		return 0, 0, fmt.Errorf("range %q min: %w", r.Label, err)
	}
	hi, err := parseBound(r.Max, math.Inf(1))
	if err != nil {
		return 0, 0, fmt.Errorf("range %q max: %w", r.Label, err)
	}
	return lo, hi, nil
}

func parseBound(bound *string, unbounded float64) (float64, error) {
	if bound == nil {
		return unbounded, nil
	}
	trimmed := strings.TrimSpace(*bound)
	if trimmed == "" || strings.EqualFold(trimmed, "null") {
		return unbounded, nil
	}
	return strconv.ParseFloat(trimmed, 64)
}

// Evaluate returns the first range, in stored order, that matches value.
// Booleans match the "Sim"/"Não" labels, numbers match the closed interval
// [min, max], and categorical labels match by case-insensitive equality.
// The second result is false when nothing matches, when the value is
// unanswered, or when a numeric range carries a malformed bound.
func Evaluate(value CriterionValue, ranges []Range) (Range, bool) {
	switch value.Kind {
	case KindBoolean:
		token := constants.BooleanFalseLabel
		if value.Bool {
			token = constants.BooleanTrueLabel
		}
		return matchLabel(token, ranges)
	case KindNumeric:
		for _, r := range ranges {
			lo, hi, err := r.Bounds()
			if err != nil {
				return Range{}, false
			}
			if lo <= value.Number && value.Number <= hi {
				return r, true
			}
		}
		return Range{}, false
	case KindCategorical:
		return matchLabel(value.Label, ranges)
	default:
		return Range{}, false
	}
}

func matchLabel(label string, ranges []Range) (Range, bool) {
	for _, r := range ranges {
		if strings.EqualFold(r.Label, label) {
			return r, true
		}
	}
	return Range{}, false
}

// FindRange returns the range with the given id.
func FindRange(id string, ranges []Range) (Range, bool) {
	for _, r := range ranges {
		if r.ID == id {
			return r, true
		}
	}
	return Range{}, false
}

// CheckOverlaps returns a warning for every pair of numeric bands whose
// intervals intersect. It only makes sense for numeric and percent criteria.
// Evaluation order is not affected: the earlier band keeps winning.
func CheckOverlaps(ranges []Range) []string {
	type interval struct {
		label  string
		lo, hi float64
	}

	var warnings []string
	intervals := make([]interval, 0, len(ranges))
	for _, r := range ranges {
		lo, hi, err := r.Bounds()
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("Range '%s' has a malformed bound: %v", r.Label, err))
			continue
		}
		if lo > hi {
			warnings = append(warnings, fmt.Sprintf("Range '%s' has min greater than max (%g > %g)", r.Label, lo, hi))
		}
		intervals = append(intervals, interval{label: r.Label, lo: lo, hi: hi})
	}

	for i := 0; i < len(intervals); i++ {
		for j := i + 1; j < len(intervals); j++ {
			a, b := intervals[i], intervals[j]
			if a.lo <= b.hi && b.lo <= a.hi {
				warnings = append(warnings, fmt.Sprintf("Ranges '%s' and '%s' overlap; '%s' wins for shared values",
					a.label, b.label, a.label))
			}
		}
	}
	return warnings
}
