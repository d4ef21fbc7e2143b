package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/okian/inkscore/internal/adapters/repository"
	"github.com/okian/inkscore/internal/domain/model"
	"github.com/okian/inkscore/internal/domain/section"
	"github.com/okian/inkscore/internal/notify"
	"github.com/okian/inkscore/pkg/logger"
	"github.com/okian/inkscore/pkg/metrics"
)

// SubmitEvaluation admits one judge's scores for one contestant. The
// category is taken from the contestant.
func (s *Service) SubmitEvaluation(ctx context.Context, judgeID, contestantID string, scores map[string]float64) (model.Evaluation, error) {
	const op = "service.submit_evaluation"
	ctx, span := s.span(ctx, op,
		attribute.String("judge_id", judgeID),
		attribute.String("contestant_id", contestantID),
	)
	defer span.End()

	start := time.Now()
	e, err := s.recorder.Submit(ctx, judgeID, contestantID, scores)
	metrics.RecordSubmitLatency(metrics.Since(start))
	if err != nil {
		metrics.RecordEvaluationRejected(model.Reason(err))
		return model.Evaluation{}, s.fail(ctx, span, section.Evaluation, op, err)
	}

	metrics.RecordEvaluationAdmitted(e.Category)
	span.SetAttributes(attribute.String("category", e.Category), attribute.Float64("total", e.TotalScore))
	s.logger.Info(ctx, "evaluation admitted",
		logger.String("id", e.ID),
		logger.String("judge", e.JudgeID),
		logger.String("contestant", e.ContestantID),
		logger.String("category", e.Category),
		logger.Float64("total", e.TotalScore),
	)
	s.notify(ctx, section.Evaluation, notify.Success,
		fmt.Sprintf("%s scored %s in %s: %.2f", e.JudgeName, e.ContestantName, e.Category, e.TotalScore))
	return e, nil
}

// Evaluations lists evaluations in admission order, narrowed by f.
func (s *Service) Evaluations(ctx context.Context, f repository.EvaluationFilter) []model.Evaluation {
	return s.store.Evaluations(ctx, f)
}

// Evaluation returns one evaluation or model.ErrNotFound.
func (s *Service) Evaluation(ctx context.Context, id string) (model.Evaluation, error) {
	return s.store.Evaluation(ctx, id)
}
