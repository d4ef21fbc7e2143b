package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/okian/inkscore/internal/domain/model"
	"github.com/okian/inkscore/internal/domain/section"
	"github.com/okian/inkscore/internal/notify"
	"github.com/okian/inkscore/pkg/logger"
)

// DeleteContestant removes a contestant and every evaluation of it.
func (s *Service) DeleteContestant(ctx context.Context, id string) ([]model.Evaluation, error) {
	const op = "service.delete_contestant"
	ctx, span := s.span(ctx, op, attribute.String("id", id))
	defer span.End()

	c, err := s.store.Contestant(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, span, section.Administration, op, fmt.Errorf("contestant %s: %w", id, err))
	}
	removed, err := s.store.DeleteContestant(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, span, section.Administration, op, fmt.Errorf("contestant %s: %w", id, err))
	}
	s.recorder.Forget(ctx, removed...)

	s.logger.Info(ctx, "contestant deleted", logger.String("id", id), logger.Int("evaluations", len(removed)))
	s.notify(ctx, section.Administration, notify.Success,
		fmt.Sprintf("contestant %s deleted with %d evaluations", c.Name, len(removed)))
	return removed, nil
}

// DeleteJudge removes a judge and every evaluation by that judge.
func (s *Service) DeleteJudge(ctx context.Context, id string) ([]model.Evaluation, error) {
	const op = "service.delete_judge"
	ctx, span := s.span(ctx, op, attribute.String("id", id))
	defer span.End()

	j, err := s.store.Judge(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, span, section.Administration, op, fmt.Errorf("judge %s: %w", id, err))
	}
	removed, err := s.store.DeleteJudge(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, span, section.Administration, op, fmt.Errorf("judge %s: %w", id, err))
	}
	s.recorder.Forget(ctx, removed...)

	s.logger.Info(ctx, "judge deleted", logger.String("id", id), logger.Int("evaluations", len(removed)))
	s.notify(ctx, section.Administration, notify.Success,
		fmt.Sprintf("judge %s deleted with %d evaluations", j.Name, len(removed)))
	return removed, nil
}

// DeleteEvaluation removes one evaluation, freeing its triple.
func (s *Service) DeleteEvaluation(ctx context.Context, id string) (model.Evaluation, error) {
	const op = "service.delete_evaluation"
	ctx, span := s.span(ctx, op, attribute.String("id", id))
	defer span.End()

	e, err := s.store.DeleteEvaluation(ctx, id)
	if err != nil {
		return model.Evaluation{}, s.fail(ctx, span, section.Administration, op, fmt.Errorf("evaluation %s: %w", id, err))
	}
	s.recorder.Forget(ctx, e)

	s.logger.Info(ctx, "evaluation deleted", logger.String("id", id))
	s.notify(ctx, section.Administration, notify.Success,
		fmt.Sprintf("evaluation of %s by %s deleted", e.ContestantName, e.JudgeName))
	return e, nil
}

// Reset empties all collections at once.
func (s *Service) Reset(ctx context.Context) {
	const op = "service.reset"
	ctx, span := s.span(ctx, op)
	defer span.End()

	before := s.store.Counts(ctx)
	s.store.Reset(ctx)
	s.recorder.Rebuild(ctx, nil)

	s.logger.Info(ctx, "contest reset",
		logger.Int("contestants", before.Contestants),
		logger.Int("judges", before.Judges),
		logger.Int("evaluations", before.Evaluations),
	)
	s.notify(ctx, section.Administration, notify.Success, "all records were deleted")
}
