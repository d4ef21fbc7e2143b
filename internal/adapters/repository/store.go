// Package repository holds the entity store: contestants, judges and
// evaluations with their uniqueness and cascade rules.
package repository

import (
	"context"

	"github.com/okian/inkscore/internal/domain/model"
)

// EvaluationFilter narrows Evaluations. Empty fields match everything.
type EvaluationFilter struct {
	Category     string
	JudgeID      string
	ContestantID string
}

// Counts is the number of records per collection.
type Counts struct {
	Contestants int `json:"contestants"`
	Judges      int `json:"judges"`
	Evaluations int `json:"evaluations"`
}

// RestoreReport describes what Restore kept.
type RestoreReport struct {
	Counts
	// DroppedEvaluations are evaluations that referenced a missing judge or
	// contestant or repeated an occupied triple.
	DroppedEvaluations int
}

// Persister receives a deep copy of the state after every mutation.
// Version increases by one per mutation; Enqueue must not block.
type Persister interface {
	Enqueue(version uint64, state model.State)
}

// Store provides read/write access to the contest records.
type Store interface {
	// AddContestant fails with ErrDuplicateEntity when the id or the
	// case-folded email is already registered.
	AddContestant(ctx context.Context, c model.Contestant) error
	// AddJudge has the same uniqueness rules as AddContestant.
	AddJudge(ctx context.Context, j model.Judge) error
	// AddEvaluation fails with ErrUnknownReference when the judge or the
	// contestant no longer exists.
	AddEvaluation(ctx context.Context, e model.Evaluation) error

	Contestant(ctx context.Context, id string) (model.Contestant, error)
	Judge(ctx context.Context, id string) (model.Judge, error)
	Evaluation(ctx context.Context, id string) (model.Evaluation, error)

	// Contestants, Judges and Evaluations list records in insertion order.
	Contestants(ctx context.Context) []model.Contestant
	Judges(ctx context.Context) []model.Judge
	Evaluations(ctx context.Context, f EvaluationFilter) []model.Evaluation

	// DeleteContestant and DeleteJudge remove the entity and every
	// evaluation that references it, returning the removed evaluations.
	DeleteContestant(ctx context.Context, id string) ([]model.Evaluation, error)
	DeleteJudge(ctx context.Context, id string) ([]model.Evaluation, error)
	DeleteEvaluation(ctx context.Context, id string) (model.Evaluation, error)

	// Reset empties all three collections at once.
	Reset(ctx context.Context)

	// Snapshot returns a deep copy of the state and its version.
	Snapshot(ctx context.Context) (model.State, uint64)
	// Restore replaces the content with state without notifying the persister.
	Restore(ctx context.Context, state model.State) (RestoreReport, error)

	Counts(ctx context.Context) Counts
}
