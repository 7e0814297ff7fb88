// Package testutil provides common fixtures and lookups for tests.
package testutil

import (
	"github.com/rodrigomagnidea-lab/EzValuation/internal/methodology"
	"github.com/rodrigomagnidea-lab/EzValuation/pkg/scoring"
)

// Bound returns a pointer to s, for range bounds in literals.
func Bound(s string) *string {
	return &s
}

// FindPillar finds a pillar score by name.
// Returns a pointer to the score if found, nil otherwise.
func FindPillar(scores []scoring.PillarScore, name string) *scoring.PillarScore {
	for i := range scores {
		if scores[i].Name == name {
			return &scores[i]
		}
	}
	return nil
}

// SampleTree returns a small two-pillar methodology without ids, ready to be
// imported into a store. The Gestão pillar has a numeric and a boolean
// criterion; Portfólio has one categorical criterion.
func SampleTree() methodology.Tree {
	return methodology.Tree{
		Methodology: methodology.Methodology{Version: "teste-v1"},
		Pillars: []methodology.Pillar{
			{
				Name: "Gestão", Weight: 1,
				Criteria: []methodology.Criterion{
					{Name: "P/VP", Type: scoring.TypeNumeric, Ranges: []scoring.Range{
						{Label: "Descontado", Max: Bound("0.95"), Points: 8, Color: scoring.ColorGreen, Impact: scoring.ImpactNeutral},
						{Label: "Justo", Min: Bound("0.95"), Max: Bound("1.05"), Points: 6, Color: scoring.ColorYellow, Impact: scoring.ImpactNeutral},
						{Label: "Caro", Min: Bound("1.05"), Points: 2, Color: scoring.ColorRed, Impact: scoring.ImpactPenaltyLight},
					}},
					{Name: "Gestora independente", Type: scoring.TypeBoolean, Ranges: []scoring.Range{
						{Label: "Sim", Points: 6, Color: scoring.ColorGreen, Impact: scoring.ImpactNeutral},
						{Label: "Não", Points: 2, Color: scoring.ColorRed, Impact: scoring.ImpactPenaltyStructural},
					}},
				},
			},
			{
				Name: "Portfólio", Weight: 2,
				Criteria: []methodology.Criterion{
					{Name: "Inquilinos", Type: scoring.TypeCategorical, Ranges: []scoring.Range{
						{Label: "Multi", Points: 9, Color: scoring.ColorGreen, Impact: scoring.ImpactNeutral},
						{Label: "Mono", Points: 3, Color: scoring.ColorRed, Impact: scoring.ImpactPenaltyLight},
					}},
				},
			},
		},
	}
}
