package scoring

import (
	"errors"

	"github.com/rodrigomagnidea-lab/EzValuation/pkg/constants"
	"gonum.org/v1/gonum/stat"
)

// ErrNoScore is returned when no pillar has an answered criterion, so there is
// no weight to normalise by. It is distinct from a legitimate score of zero.
var ErrNoScore = errors.New("no score computable: no pillar has an answered criterion")

// PillarInput carries the matched points of one pillar's answered criteria.
type PillarInput struct {
	ID     string
	Name   string
	Weight float64
	Points []float64
}

// PillarScore is the per-pillar breakdown of an aggregation.
type PillarScore struct {
	ID            string  `json:"id,omitempty"`
	Name          string  `json:"name"`
	Weight        float64 `json:"weight"`
	Score         float64 `json:"score"`
	WeightedScore float64 `json:"weighted_score"`
	Answered      int     `json:"answered"`
	Contributed   bool    `json:"contributed"`
}

// Score is the aggregated result across all pillars.
type Score struct {
	Final          float64       `json:"final_score"`
	Classification string        `json:"classification"`
	TotalWeight    float64       `json:"total_weight"`
	Pillars        []PillarScore `json:"by_pillar"`
}

// Aggregate averages each pillar's points, weights the averages and
// normalises by the weight of the pillars that had at least one answer.
// Pillars without answers appear in the breakdown but do not contribute.
func Aggregate(pillars []PillarInput) (Score, error) {
	var result Score
	weightedSum := 0.0

	for _, p := range pillars {
		ps := PillarScore{ID: p.ID, Name: p.Name, Weight: p.Weight, Answered: len(p.Points)}
		if len(p.Points) > 0 {
			ps.Score = stat.Mean(p.Points, nil)
			ps.WeightedScore = ps.Score * p.Weight
			ps.Contributed = true
			weightedSum += ps.WeightedScore
			result.TotalWeight += p.Weight
		}
		result.Pillars = append(result.Pillars, ps)
	}

	if result.TotalWeight <= 0 {
		return result, ErrNoScore
	}

	result.Final = weightedSum / result.TotalWeight
	result.Classification = Classify(result.Final)
	return result, nil
}

// Classify maps a 0-10 final score to its ordinal label. Each band includes
// its lower bound.
func Classify(score float64) string {
	switch {
	case score >= constants.ExcellentThreshold:
		return constants.ClassificationExcellent
	case score >= constants.GoodThreshold:
		return constants.ClassificationGood
	case score >= constants.MediumThreshold:
		return constants.ClassificationMedium
	default:
		return constants.ClassificationWeak
	}
}
