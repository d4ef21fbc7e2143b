// Package consolidation groups evaluations by (contestant, category) and
// ranks the groups.
//
// A group's AggregateScore is the sum of its evaluation totals, not their
// mean, so contestants with more evaluations rank higher. Every output also
// carries AverageScore (aggregate / count) so displays stay comparable.
package consolidation

import (
	"slices"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/okian/inkscore/internal/domain/model"
	"github.com/okian/inkscore/internal/domain/scoring"
	"github.com/okian/inkscore/internal/domain/types"
)

// Result aggregates every evaluation of one contestant in one category.
// Judges holds the distinct judge names in ascending order.
type Result struct {
	ContestantID    string
	ContestantName  string
	Category        string
	AggregateScore  float64
	EvaluationCount int
	Judges          []string
	LastEvaluatedAt time.Time
}

// AverageScore is the aggregate divided by the evaluation count.
func (r Result) AverageScore() float64 {
	if r.EvaluationCount == 0 {
		return 0
	}
	return float64(r.cents()) / float64(100*int64(r.EvaluationCount))
}

func (r Result) cents() int64 { return scoring.ToCents(r.AggregateScore) }

type options struct {
	category string
}

// Option narrows the evaluations considered.
type Option func(*options)

// WithCategory keeps only evaluations of category. Empty means all.
func WithCategory(category string) Option {
	return func(o *options) { o.category = category }
}

type groupKey struct {
	contestantID string
	category     string
}

// Consolidate groups evaluations and returns the groups ordered by
// AggregateScore descending. Ties are broken by case-folded contestant
// name, then contestant id, then category, all ascending, so the order
// does not depend on input order.
func Consolidate(evaluations []model.Evaluation, opts ...Option) []Result {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	groups := make(map[groupKey]*Result)
	cents := make(map[groupKey]int64)
	judges := make(map[groupKey]map[string]struct{})
	for _, e := range evaluations {
		if o.category != "" && e.Category != o.category {
			continue
		}
		k := groupKey{contestantID: e.ContestantID, category: e.Category}
		g, ok := groups[k]
		if !ok {
			g = &Result{
				ContestantID:   e.ContestantID,
				ContestantName: e.ContestantName,
				Category:       e.Category,
			}
			groups[k] = g
			judges[k] = make(map[string]struct{})
		}
		cents[k] += scoring.ToCents(e.TotalScore)
		g.EvaluationCount++
		if e.Timestamp.After(g.LastEvaluatedAt) {
			g.LastEvaluatedAt = e.Timestamp
		}
		judges[k][e.JudgeName] = struct{}{}
	}

	out := make([]Result, 0, len(groups))
	for k, g := range groups {
		g.AggregateScore = scoring.FromCents(cents[k])
		g.Judges = make([]string, 0, len(judges[k]))
		for name := range judges[k] {
			g.Judges = append(g.Judges, name)
		}
		sort.Strings(g.Judges)
		out = append(out, *g)
	}
	Sort(out)
	return out
}

// Sort orders results the way Consolidate returns them.
func Sort(rs []Result) {
	fold := cases.Fold()
	names := make(map[string]string, len(rs))
	for _, r := range rs {
		if _, ok := names[r.ContestantName]; !ok {
			names[r.ContestantName] = fold.String(strings.TrimSpace(r.ContestantName))
		}
	}
	sort.Slice(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if ac, bc := a.cents(), b.cents(); ac != bc {
			return ac > bc
		}
		if an, bn := names[a.ContestantName], names[b.ContestantName]; an != bn {
			return an < bn
		}
		if a.ContestantID != b.ContestantID {
			return a.ContestantID < b.ContestantID
		}
		return a.Category < b.Category
	})
}

// Rank converts ordered results into leaderboard entries. Equal aggregates
// share a rank and the next distinct aggregate takes the following rank.
func Rank(results []Result) []types.Entry {
	entries := make([]types.Entry, len(results))
	rank := 0
	for i, r := range results {
		if i == 0 || r.cents() != results[i-1].cents() {
			rank++
		}
		entries[i] = types.Entry{
			Rank:            rank,
			ContestantID:    r.ContestantID,
			ContestantName:  r.ContestantName,
			Category:        r.Category,
			AggregateScore:  r.AggregateScore,
			AverageScore:    scoring.Round2(r.AverageScore()),
			EvaluationCount: r.EvaluationCount,
			Judges:          slices.Clone(r.Judges),
			LastEvaluatedAt: r.LastEvaluatedAt,
		}
	}
	return entries
}

// Leaderboard consolidates, ranks and truncates to limit (<= 0 means all).
func Leaderboard(evaluations []model.Evaluation, limit int, opts ...Option) []types.Entry {
	entries := Rank(Consolidate(evaluations, opts...))
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
