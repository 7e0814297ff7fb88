// Package methodology defines the scoring methodology tree (methodology,
// pillars, criteria and their ranges) and the authoring rules applied before
// any part of it is persisted.
package methodology

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rodrigomagnidea-lab/EzValuation/pkg/scoring"
)

// ErrInvalid marks a tree element that violates an authoring rule.
var ErrInvalid = errors.New("invalid methodology")

// Methodology is a named, versioned scoring configuration.
type Methodology struct {
	ID        string             `json:"id" yaml:"-"`
	Version   string             `json:"version" yaml:"version"`
	IsActive  bool               `json:"is_active" yaml:"-"`
	Indices   map[string]float64 `json:"indices,omitempty" yaml:"indices,omitempty"`
	CreatedAt time.Time          `json:"created_at" yaml:"-"`
}

// Pillar is a weighted group of criteria.
type Pillar struct {
	ID            string      `json:"id" yaml:"-"`
	MethodologyID string      `json:"methodology_id" yaml:"-"`
	Name          string      `json:"name" yaml:"name"`
	Weight        float64     `json:"weight" yaml:"weight"`
	Description   string      `json:"description" yaml:"description,omitempty"`
	Position      int         `json:"position" yaml:"-"`
	Criteria      []Criterion `json:"criteria,omitempty" yaml:"criteria,omitempty"`
}

// Criterion is a single checklist question scored by its ranges.
type Criterion struct {
	ID              string                `json:"id" yaml:"-"`
	PillarID        string                `json:"pillar_id" yaml:"-"`
	Name            string                `json:"name" yaml:"name"`
	Type            scoring.CriterionType `json:"type" yaml:"type"`
	Unit            string                `json:"unit" yaml:"unit,omitempty"`
	RuleDescription string                `json:"rule_description" yaml:"rule,omitempty"`
	Position        int                   `json:"position" yaml:"-"`
	Ranges          []scoring.Range       `json:"ranges,omitempty" yaml:"ranges,omitempty"`
}

// Tree is a methodology with its pillars, criteria and ranges loaded in
// persisted order.
type Tree struct {
	Methodology `yaml:",inline"`
	Pillars     []Pillar `json:"pillars" yaml:"pillars"`
}

// Criterion looks a criterion up by id anywhere in the tree.
func (t *Tree) Criterion(id string) (*Criterion, *Pillar, bool) {
	for pi := range t.Pillars {
		p := &t.Pillars[pi]
		for ci := range p.Criteria {
			if p.Criteria[ci].ID == id {
				return &p.Criteria[ci], p, true
			}
		}
	}
	return nil, nil, false
}

// CriterionCount returns the number of criteria across all pillars.
func (t *Tree) CriterionCount() int {
	n := 0
	for _, p := range t.Pillars {
		n += len(p.Criteria)
	}
	return n
}

// ValidateMethodology checks a methodology header.
func ValidateMethodology(m Methodology) error {
	if strings.TrimSpace(m.Version) == "" {
		return fmt.Errorf("%w: version is required", ErrInvalid)
	}
	return nil
}

// ValidatePillar checks name and weight.
func ValidatePillar(p Pillar) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: pillar name is required", ErrInvalid)
	}
	if p.Weight <= 0 {
		return fmt.Errorf("%w: pillar %q weight must be positive, got %g", ErrInvalid, p.Name, p.Weight)
	}
	return nil
}

// ValidateCriterion checks name and declared type.
func ValidateCriterion(c Criterion) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: criterion name is required", ErrInvalid)
	}
	if !c.Type.Valid() {
		return fmt.Errorf("%w: criterion %q has unsupported type %q", ErrInvalid, c.Name, c.Type)
	}
	return nil
}

// ValidateRange checks a range against the type of the criterion it belongs
// to. Numeric and percent criteria need parseable bounds.
func ValidateRange(criterionType scoring.CriterionType, r scoring.Range) error {
	if strings.TrimSpace(r.Label) == "" {
		return fmt.Errorf("%w: range label is required", ErrInvalid)
	}
	if !r.Color.Valid() {
		return fmt.Errorf("%w: range %q has unsupported color %q", ErrInvalid, r.Label, r.Color)
	}
	if !r.Impact.Valid() {
		return fmt.Errorf("%w: range %q has unsupported impact %q", ErrInvalid, r.Label, r.Impact)
	}
	if criterionType == scoring.TypeNumeric || criterionType == scoring.TypePercent {
		lo, hi, err := r.Bounds()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		if lo > hi {
			return fmt.Errorf("%w: range %q min is greater than max", ErrInvalid, r.Label)
		}
	}
	return nil
}

// Warnings lists non-fatal authoring issues across the tree: overlapping
// numeric ranges, criteria without ranges and pillars without criteria.
func (t *Tree) Warnings() []string {
	var warnings []string
	for _, p := range t.Pillars {
		if len(p.Criteria) == 0 {
			warnings = append(warnings, fmt.Sprintf("Pillar '%s' has no criteria", p.Name))
		}
		for _, c := range p.Criteria {
			if len(c.Ranges) == 0 {
				warnings = append(warnings, fmt.Sprintf("Criterion '%s' has no ranges and can only be scored by override", c.Name))
				continue
			}
			if c.Type == scoring.TypeNumeric || c.Type == scoring.TypePercent {
				for _, w := range scoring.CheckOverlaps(c.Ranges) {
					warnings = append(warnings, fmt.Sprintf("Criterion '%s': %s", c.Name, w))
				}
			}
		}
	}
	return warnings
}
