// Package recorder admits evaluations. It resolves the judge and the
// contestant, refuses a second evaluation of the same triple, validates
// the criterion scores and appends the result to the store.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/inkscore/internal/domain/dedupe"
	"github.com/okian/inkscore/internal/domain/model"
	"github.com/okian/inkscore/internal/domain/scoring"
)

// Store is the subset of the entity store the recorder needs.
type Store interface {
	Judge(ctx context.Context, id string) (model.Judge, error)
	Contestant(ctx context.Context, id string) (model.Contestant, error)
	AddEvaluation(ctx context.Context, e model.Evaluation) error
}

// Recorder validates and admits evaluations.
type Recorder struct {
	store  Store
	index  dedupe.Index
	scorer *scoring.Scorer
	now    func() time.Time
	newID  func() string
}

// Option applies a configuration option to the Recorder.
type Option func(*Recorder)

// WithScorer replaces the default scorer.
func WithScorer(s *scoring.Scorer) Option {
	return func(r *Recorder) {
		if s != nil {
			r.scorer = s
		}
	}
}

// WithClock sets the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator sets the evaluation id source.
func WithIDGenerator(gen func() string) Option {
	return func(r *Recorder) {
		if gen != nil {
			r.newID = gen
		}
	}
}

// New creates a Recorder over store and index.
func New(store Store, index dedupe.Index, opts ...Option) *Recorder {
	r := &Recorder{
		store:  store,
		index:  index,
		scorer: scoring.New(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Scorer returns the scorer in use.
func (r *Recorder) Scorer() *scoring.Scorer { return r.scorer }

// Submit checks, in order: both references resolve (ErrUnknownReference),
// the triple is free (DuplicateEvaluationError), every criterion is present
// (ErrIncompleteCriteria) and every value is in range (ErrInvalidScore).
// The triple is claimed atomically before the evaluation is appended, so
// concurrent submissions for one triple admit exactly one.
func (r *Recorder) Submit(ctx context.Context, judgeID, contestantID string, scores map[string]float64) (model.Evaluation, error) {
	const op = "recorder.submit"

	judge, err := r.store.Judge(ctx, judgeID)
	if err != nil {
		return model.Evaluation{}, unknown(op, "judge", judgeID, err)
	}
	contestant, err := r.store.Contestant(ctx, contestantID)
	if err != nil {
		return model.Evaluation{}, unknown(op, "contestant", contestantID, err)
	}

	key := model.Key{JudgeID: judge.ID, ContestantID: contestant.ID, Category: contestant.Category}
	if r.index.Seen(ctx, key) {
		return model.Evaluation{}, duplicate(judge, contestant)
	}

	res, err := r.scorer.Score(contestant.Category, scores)
	if err != nil {
		return model.Evaluation{}, err
	}

	if r.index.SeenAndRecord(ctx, key) {
		return model.Evaluation{}, duplicate(judge, contestant)
	}

	e := model.Evaluation{
		ID:             r.newID(),
		JudgeID:        judge.ID,
		JudgeName:      judge.Name,
		ContestantID:   contestant.ID,
		ContestantName: contestant.Name,
		Category:       contestant.Category,
		CriteriaScores: res.Criteria,
		TotalScore:     res.Total,
		Timestamp:      r.now(),
	}
	if err := r.store.AddEvaluation(ctx, e); err != nil {
		r.index.Unrecord(ctx, key)
		return model.Evaluation{}, fmt.Errorf("%s: %w", op, err)
	}
	return e, nil
}

// Forget frees the triples of evaluations removed from the store.
func (r *Recorder) Forget(ctx context.Context, removed ...model.Evaluation) {
	for _, e := range removed {
		r.index.Unrecord(ctx, e.Key())
	}
}

// Rebuild resets the triple index to match evaluations.
func (r *Recorder) Rebuild(ctx context.Context, evaluations []model.Evaluation) {
	keys := make([]model.Key, len(evaluations))
	for i, e := range evaluations {
		keys[i] = e.Key()
	}
	r.index.Rebuild(ctx, keys)
}

func unknown(op, what, id string, err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return model.Reject(op, model.ErrUnknownReference, "%s %s", what, id)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func duplicate(j model.Judge, c model.Contestant) error {
	return &model.DuplicateEvaluationError{
		JudgeID:        j.ID,
		JudgeName:      j.Name,
		ContestantID:   c.ID,
		ContestantName: c.Name,
		Category:       c.Category,
	}
}
