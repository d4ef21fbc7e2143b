package service

import (
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/okian/inkscore/internal/adapters/repository"
	"github.com/okian/inkscore/internal/domain/consolidation"
	"github.com/okian/inkscore/internal/domain/model"
	"github.com/okian/inkscore/internal/domain/section"
	"github.com/okian/inkscore/internal/domain/stats"
	"github.com/okian/inkscore/internal/domain/types"
	"github.com/okian/inkscore/internal/export"
	"github.com/okian/inkscore/pkg/metrics"
)

// checkCategory accepts "" (all categories) or a known category.
func (s *Service) checkCategory(op, category string) error {
	if category == "" || s.rules.HasCategory(category) {
		return nil
	}
	return model.Reject(op, model.ErrValidation, "unknown category %q", category)
}

// Results consolidates the evaluations of category ("" for all).
func (s *Service) Results(ctx context.Context, category string) ([]consolidation.Result, error) {
	const op = "service.results"
	ctx, span := s.span(ctx, op, attribute.String("category", category))
	defer span.End()

	if err := s.checkCategory(op, category); err != nil {
		return nil, s.fail(ctx, span, section.Results, op, err)
	}
	return s.consolidate(ctx, category), nil
}

func (s *Service) consolidate(ctx context.Context, category string) []consolidation.Result {
	start := time.Now()
	evals := s.store.Evaluations(ctx, repository.EvaluationFilter{})
	results := consolidation.Consolidate(evals, consolidation.WithCategory(category))
	metrics.RecordConsolidateLatency(metrics.Since(start))
	return results
}

// Limit clamps a requested leaderboard length to the configured maximum.
// Non-positive values select the maximum.
func (s *Service) Limit(n int) int {
	if n <= 0 || n > s.maxLeaderboardLimit {
		return s.maxLeaderboardLimit
	}
	return n
}

// Leaderboard ranks consolidated results, best first.
func (s *Service) Leaderboard(ctx context.Context, category string, limit int) ([]types.Entry, error) {
	const op = "service.leaderboard"
	ctx, span := s.span(ctx, op, attribute.String("category", category), attribute.Int("limit", limit))
	defer span.End()

	if err := s.checkCategory(op, category); err != nil {
		return nil, s.fail(ctx, span, section.Results, op, err)
	}
	entries := consolidation.Rank(s.consolidate(ctx, category))
	if n := s.Limit(limit); len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// Stats summarises the consolidated results of category ("" for all).
func (s *Service) Stats(ctx context.Context, category string) (types.Summary, error) {
	const op = "service.stats"
	ctx, span := s.span(ctx, op, attribute.String("category", category))
	defer span.End()

	if err := s.checkCategory(op, category); err != nil {
		return types.Summary{}, s.fail(ctx, span, section.Results, op, err)
	}
	return stats.Project(s.consolidate(ctx, category)), nil
}

// CriteriaAverages averages each criterion for the contestant named
// contestantName in category. Same-named contestants in one category are
// merged; CriteriaAveragesByID avoids that.
func (s *Service) CriteriaAverages(ctx context.Context, contestantName, category string) (map[string]float64, error) {
	const op = "service.criteria_averages"
	ctx, span := s.span(ctx, op, attribute.String("category", category))
	defer span.End()

	if err := s.checkCategory(op, category); err != nil {
		return nil, s.fail(ctx, span, section.Results, op, err)
	}
	evals := s.store.Evaluations(ctx, repository.EvaluationFilter{Category: category})
	return stats.CriteriaAverages(evals, contestantName, category), nil
}

// CriteriaAveragesByID averages each criterion for one contestant. Without
// a category the contestant's own category is used.
func (s *Service) CriteriaAveragesByID(ctx context.Context, contestantID, category string) (map[string]float64, error) {
	const op = "service.criteria_averages"
	ctx, span := s.span(ctx, op, attribute.String("contestant_id", contestantID))
	defer span.End()

	c, err := s.store.Contestant(ctx, contestantID)
	if err != nil {
		return nil, s.fail(ctx, span, section.Results, op, model.Reject(op, model.ErrNotFound, "contestant %s", contestantID))
	}
	if category == "" {
		category = c.Category
	}
	if err := s.checkCategory(op, category); err != nil {
		return nil, s.fail(ctx, span, section.Results, op, err)
	}
	evals := s.store.Evaluations(ctx, repository.EvaluationFilter{ContestantID: contestantID, Category: category})
	return stats.CriteriaAveragesByID(evals, contestantID, category), nil
}

// Export writes the full ranked leaderboard of category to w.
func (s *Service) Export(ctx context.Context, w io.Writer, format export.Format, category string) error {
	const op = "service.export"
	ctx, span := s.span(ctx, op, attribute.String("format", string(format)), attribute.String("category", category))
	defer span.End()

	if err := s.checkCategory(op, category); err != nil {
		return s.fail(ctx, span, section.Results, op, err)
	}
	entries := consolidation.Rank(s.consolidate(ctx, category))
	if err := export.Write(w, format, entries); err != nil {
		return s.fail(ctx, span, section.Results, op, err)
	}
	return nil
}
