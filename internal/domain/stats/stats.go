// Package stats derives dashboard figures from consolidated results.
package stats

import (
	"github.com/okian/inkscore/internal/domain/consolidation"
	"github.com/okian/inkscore/internal/domain/model"
	"github.com/okian/inkscore/internal/domain/scoring"
	"github.com/okian/inkscore/internal/domain/types"
)

// Project summarises results. OverallAverage is the mean of per-entry
// averages, not a mean over raw evaluations. Empty input yields zeros.
func Project(results []consolidation.Result) types.Summary {
	if len(results) == 0 {
		return types.Summary{}
	}
	categories := make(map[string]struct{})
	var sum, top float64
	for i, r := range results {
		avg := r.AverageScore()
		sum += avg
		if i == 0 || avg > top {
			top = avg
		}
		categories[r.Category] = struct{}{}
	}
	return types.Summary{
		OverallAverage:           scoring.Round2(sum / float64(len(results))),
		TopScore:                 scoring.Round2(top),
		TotalConsolidatedEntries: len(results),
		DistinctCategoryCount:    len(categories),
	}
}

// CriteriaAverages averages each criterion over the evaluations of the
// contestant called contestantName in category. Matching is by name, so
// two same-named contestants in one category are merged; use
// CriteriaAveragesByID when the id is known.
func CriteriaAverages(evaluations []model.Evaluation, contestantName, category string) map[string]float64 {
	return criteriaAverages(evaluations, func(e model.Evaluation) bool {
		return e.ContestantName == contestantName && e.Category == category
	})
}

// CriteriaAveragesByID is CriteriaAverages keyed by contestant id.
func CriteriaAveragesByID(evaluations []model.Evaluation, contestantID, category string) map[string]float64 {
	return criteriaAverages(evaluations, func(e model.Evaluation) bool {
		return e.ContestantID == contestantID && e.Category == category
	})
}

func criteriaAverages(evaluations []model.Evaluation, match func(model.Evaluation) bool) map[string]float64 {
	values := make(map[string][]float64)
	for _, e := range evaluations {
		if !match(e) {
			continue
		}
		for c, v := range e.CriteriaScores {
			values[c] = append(values[c], v)
		}
	}
	out := make(map[string]float64, len(values))
	for c, vs := range values {
		out[c] = scoring.Mean(vs)
	}
	return out
}
