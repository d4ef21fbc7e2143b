// Package scoring validates a judge's criterion scores and computes the
// evaluation total.
package scoring

import (
	"math"
	"sort"
	"strings"

	"github.com/okian/inkscore/internal/domain/model"
	"github.com/okian/inkscore/internal/domain/rules"
)

// centsPerPoint is the fixed-point scale used for totals and sums.
const centsPerPoint = 100

// Result contains the accepted scores and their rounded mean.
type Result struct {
	// Criteria holds only the criteria defined for the category.
	Criteria map[string]float64
	Total    float64
}

// Scorer checks scores against a rule set.
type Scorer struct {
	rules *rules.Set
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithRules replaces the default rule set.
func WithRules(set *rules.Set) Option {
	return func(s *Scorer) {
		if set != nil {
			s.rules = set
		}
	}
}

// New creates a Scorer using the built-in rules unless WithRules is given.
func New(opts ...Option) *Scorer {
	s := &Scorer{rules: rules.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rules returns the rule set in use.
func (s *Scorer) Rules() *rules.Set { return s.rules }

// Score validates scores for category. Every criterion must be present
// (ErrIncompleteCriteria) before any value is range-checked
// (ErrInvalidScore). Keys outside the category's criteria are ignored.
func (s *Scorer) Score(category string, scores map[string]float64) (Result, error) {
	const op = "scoring.score"

	criteria, ok := s.rules.Criteria(category)
	if !ok {
		return Result{}, model.Reject(op, model.ErrValidation, "category %q has no rules", category)
	}

	var missing []string
	for _, c := range criteria {
		if _, ok := scores[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return Result{}, model.Reject(op, model.ErrIncompleteCriteria, "missing %s", strings.Join(missing, ", "))
	}

	ceiling := s.rules.MaxScore()
	accepted := make(map[string]float64, len(criteria))
	values := make([]float64, 0, len(criteria))
	for _, c := range criteria {
		v := scores[c]
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 || v > ceiling {
			return Result{}, model.Reject(op, model.ErrInvalidScore, "%s=%v must be in (0, %v]", c, v, ceiling)
		}
		accepted[c] = v
		values = append(values, v)
	}

	return Result{Criteria: accepted, Total: Mean(values)}, nil
}

// Mean returns the arithmetic mean rounded to two decimals. Empty input is 0.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return Round2(sum / float64(len(values)))
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return FromCents(ToCents(v))
}

// ToCents converts a score to integer hundredths.
func ToCents(v float64) int64 {
	return int64(math.Round(v * centsPerPoint))
}

// FromCents converts integer hundredths back to a score.
func FromCents(c int64) float64 {
	return float64(c) / centsPerPoint
}

// SortedKeys returns the keys of scores in ascending order.
func SortedKeys(scores map[string]float64) []string {
	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
