// Package analysis scores a fund against a methodology tree and manages the
// saved analyses of each user.
package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/rodrigomagnidea-lab/EzValuation/internal/fund"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/methodology"
	"github.com/rodrigomagnidea-lab/EzValuation/pkg/scoring"
)

// ErrInvalidInput is returned when an input or override cannot be applied to
// the criterion it targets.
var ErrInvalidInput = errors.New("invalid analysis input")

// CriterionStatus is the outcome of scoring one criterion.
type CriterionStatus string

const (
	// StatusScored means a range was matched or chosen by override.
	StatusScored CriterionStatus = "scored"
	// StatusUnscored means a value was given but no range matched. The caller
	// should ask for an override.
	StatusUnscored CriterionStatus = "unscored"
	// StatusUnanswered means no value was given.
	StatusUnanswered CriterionStatus = "unanswered"
)

// CriterionResult is the per-criterion detail of a scoring run.
type CriterionResult struct {
	CriterionID string          `json:"criterion_id"`
	Name        string          `json:"name"`
	PillarID    string          `json:"pillar_id"`
	Value       interface{}     `json:"value,omitempty"`
	Status      CriterionStatus `json:"status"`
	RangeID     string          `json:"range_id,omitempty"`
	Label       string          `json:"label,omitempty"`
	Points      float64         `json:"points"`
	Color       scoring.Color   `json:"color,omitempty"`
	Impact      scoring.Impact  `json:"impact,omitempty"`
	Overridden  bool            `json:"overridden"`
}

// Result is the scored snapshot stored with an analysis. FinalScore is nil
// when no pillar had a scored criterion.
type Result struct {
	FinalScore     *float64              `json:"final_score"`
	Classification string                `json:"classification,omitempty"`
	TotalWeight    float64               `json:"total_weight"`
	ByPillar       []scoring.PillarScore `json:"by_pillar"`
	Criteria       []CriterionResult     `json:"criteria"`
	Unscored       []string              `json:"unscored"`
	Warnings       []string              `json:"warnings,omitempty"`
	FundData       *fund.Quote           `json:"fund_data,omitempty"`
}

// Scored reports whether the result carries a final score.
func (r *Result) Scored() bool {
	return r != nil && r.FinalScore != nil
}

// Encode serialises the result for storage.
func (r *Result) Encode() (json.RawMessage, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis result: %w", err)
	}
	return data, nil
}

// DecodeResult parses a stored result. Empty input yields nil.
func DecodeResult(raw json.RawMessage) (*Result, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var r Result
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("failed to decode analysis result: %w", err)
	}
	return &r, nil
}

// Score evaluates every criterion of tree against inputs, applies manual
// overrides (criterion id to range id) and aggregates the pillars.
//
// Criteria without a match are reported as unscored and left out of their
// pillar's mean. When nothing at all can be scored the returned Result still
// carries the per-criterion detail and the error is scoring.ErrNoScore.
func Score(tree methodology.Tree, inputs map[string]interface{}, overrides map[string]string) (Result, error) {
	result := Result{Unscored: []string{}}
	pillarInputs := make([]scoring.PillarInput, 0, len(tree.Pillars))

	for _, p := range tree.Pillars {
		in := scoring.PillarInput{ID: p.ID, Name: p.Name, Weight: p.Weight}

		for _, c := range p.Criteria {
			cr, err := scoreCriterion(p, c, inputs[c.ID], overrides[c.ID])
			if err != nil {
				return Result{}, err
			}
			switch cr.Status {
			case StatusScored:
				in.Points = append(in.Points, cr.Points)
			case StatusUnscored:
				result.Unscored = append(result.Unscored, c.ID)
			}
			result.Criteria = append(result.Criteria, cr)
		}
		pillarInputs = append(pillarInputs, in)
	}

	result.Warnings = unknownKeys(tree, inputs, overrides)

	score, err := scoring.Aggregate(pillarInputs)
	result.ByPillar = score.Pillars
	result.TotalWeight = score.TotalWeight
	if err != nil {
		return result, err
	}
	final := score.Final
	result.FinalScore = &final
	result.Classification = score.Classification
	return result, nil
}

func scoreCriterion(p methodology.Pillar, c methodology.Criterion, raw interface{}, overrideID string) (CriterionResult, error) {
	cr := CriterionResult{CriterionID: c.ID, Name: c.Name, PillarID: p.ID, Status: StatusUnanswered}

	value, err := scoring.ParseCriterionValue(c.Type, raw)
	if err != nil {
		return cr, fmt.Errorf("%w: criterion %q: %v", ErrInvalidInput, c.Name, err)
	}
	cr.Value = value.Raw()

	var (
		matched scoring.Range
		ok      bool
	)
	if overrideID != "" {
		matched, ok = scoring.FindRange(overrideID, c.Ranges)
		if !ok {
			return cr, fmt.Errorf("%w: range %s does not belong to criterion %q", ErrInvalidInput, overrideID, c.Name)
		}
		cr.Overridden = true
	} else if value.Answered() {
		matched, ok = scoring.Evaluate(value, c.Ranges)
		if !ok {
			cr.Status = StatusUnscored
			return cr, nil
		}
	} else {
		return cr, nil
	}

	cr.Status = StatusScored
	cr.RangeID = matched.ID
	cr.Label = matched.Label
	cr.Points = matched.Points
	cr.Color = matched.Color
	cr.Impact = matched.Impact
	return cr, nil
}

func unknownKeys(tree methodology.Tree, inputs map[string]interface{}, overrides map[string]string) []string {
	var warnings []string
	for id := range inputs {
		if _, _, ok := tree.Criterion(id); !ok {
			warnings = append(warnings, fmt.Sprintf("input for unknown criterion %s ignored", id))
		}
	}
	for id := range overrides {
		if _, _, ok := tree.Criterion(id); !ok {
			warnings = append(warnings, fmt.Sprintf("override for unknown criterion %s ignored", id))
		}
	}
	sort.Strings(warnings)
	return warnings
}
