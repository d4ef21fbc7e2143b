package recorder_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/inkscore/internal/domain/dedupe"
	"github.com/okian/inkscore/internal/domain/model"
	"github.com/okian/inkscore/internal/domain/recorder"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeStore struct {
	mu          sync.Mutex
	judges      map[string]model.Judge
	contestants map[string]model.Contestant
	evaluations []model.Evaluation
	failAdd     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		judges: map[string]model.Judge{
			"j1": {ID: "j1", Name: "J1"},
			"j2": {ID: "j2", Name: "J2"},
		},
		contestants: map[string]model.Contestant{
			"c1": {ID: "c1", Name: "C1", Category: "color"},
		},
	}
}

func (f *fakeStore) Judge(_ context.Context, id string) (model.Judge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.judges[id]
	if !ok {
		return model.Judge{}, model.ErrNotFound
	}
	return j, nil
}

func (f *fakeStore) Contestant(_ context.Context, id string) (model.Contestant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contestants[id]
	if !ok {
		return model.Contestant{}, model.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) AddEvaluation(_ context.Context, e model.Evaluation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAdd != nil {
		return f.failAdd
	}
	f.evaluations = append(f.evaluations, e)
	return nil
}

func scores(vals ...float64) map[string]float64 {
	names := []string{"technique", "creativity", "composition", "color", "difficulty"}
	out := map[string]float64{}
	for i, v := range vals {
		out[names[i]] = v
	}
	return out
}

func TestRecorderSubmit(t *testing.T) {
	Convey("Given a recorder with a fixed clock and ids", t, func() {
		ctx := context.Background()
		store := newFakeStore()
		at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		var seq int
		r := recorder.New(store, dedupe.NewInMemoryIndex(),
			recorder.WithClock(func() time.Time { return at }),
			recorder.WithIDGenerator(func() string { seq++; return fmt.Sprintf("e%d", seq) }),
		)

		Convey("When J1 scores C1 in color", func() {
			e, err := r.Submit(ctx, "j1", "c1", scores(8, 7, 9, 6, 8))

			Convey("Then the evaluation is admitted with a 7.60 total", func() {
				So(err, ShouldBeNil)
				So(e.ID, ShouldEqual, "e1")
				So(e.TotalScore, ShouldEqual, 7.60)
				So(e.Category, ShouldEqual, "color")
				So(e.JudgeName, ShouldEqual, "J1")
				So(e.ContestantName, ShouldEqual, "C1")
				So(e.Timestamp, ShouldEqual, at)
				So(len(store.evaluations), ShouldEqual, 1)
			})

			Convey("And a second submission by J1 is a duplicate", func() {
				_, err := r.Submit(ctx, "j1", "c1", scores(9, 9, 9, 9, 9))
				So(errors.Is(err, model.ErrDuplicateEvaluation), ShouldBeTrue)
				var dup *model.DuplicateEvaluationError
				So(errors.As(err, &dup), ShouldBeTrue)
				So(dup.JudgeName, ShouldEqual, "J1")
				So(dup.ContestantName, ShouldEqual, "C1")
				So(dup.Category, ShouldEqual, "color")
				So(len(store.evaluations), ShouldEqual, 1)
			})

			Convey("And a duplicate wins over incomplete criteria", func() {
				_, err := r.Submit(ctx, "j1", "c1", map[string]float64{})
				So(errors.Is(err, model.ErrDuplicateEvaluation), ShouldBeTrue)
			})

			Convey("And forgetting it frees the triple", func() {
				r.Forget(ctx, e)
				_, err := r.Submit(ctx, "j1", "c1", scores(5, 5, 5, 5, 5))
				So(err, ShouldBeNil)
			})
		})

		Convey("When references are unknown", func() {
			_, errJ := r.Submit(ctx, "ghost", "c1", scores(8, 7, 9, 6, 8))
			_, errC := r.Submit(ctx, "j1", "ghost", scores(8, 7, 9, 6, 8))
			_, errBoth := r.Submit(ctx, "ghost", "ghost", nil)

			Convey("Then the submission is rejected before any other check", func() {
				So(errors.Is(errJ, model.ErrUnknownReference), ShouldBeTrue)
				So(errors.Is(errC, model.ErrUnknownReference), ShouldBeTrue)
				So(errors.Is(errBoth, model.ErrUnknownReference), ShouldBeTrue)
				So(store.evaluations, ShouldBeEmpty)
			})
		})

		Convey("When a criterion is missing", func() {
			_, err := r.Submit(ctx, "j1", "c1", scores(8, 7, 9, 6))
			So(errors.Is(err, model.ErrIncompleteCriteria), ShouldBeTrue)

			Convey("Then the triple stays free", func() {
				_, err := r.Submit(ctx, "j1", "c1", scores(8, 7, 9, 6, 8))
				So(err, ShouldBeNil)
			})
		})

		Convey("When a score is zero", func() {
			_, err := r.Submit(ctx, "j1", "c1", scores(8, 0, 9, 6, 8))
			So(errors.Is(err, model.ErrInvalidScore), ShouldBeTrue)
			So(store.evaluations, ShouldBeEmpty)
		})

		Convey("When the store refuses the append", func() {
			store.failAdd = errors.New("contestant vanished")
			_, err := r.Submit(ctx, "j1", "c1", scores(8, 7, 9, 6, 8))
			So(err, ShouldNotBeNil)

			Convey("Then the triple is released for a retry", func() {
				store.failAdd = nil
				_, err := r.Submit(ctx, "j1", "c1", scores(8, 7, 9, 6, 8))
				So(err, ShouldBeNil)
			})
		})

		Convey("When the index is rebuilt from loaded evaluations", func() {
			r.Rebuild(ctx, []model.Evaluation{{JudgeID: "j2", ContestantID: "c1", Category: "color"}})
			_, err := r.Submit(ctx, "j2", "c1", scores(8, 7, 9, 6, 8))
			So(errors.Is(err, model.ErrDuplicateEvaluation), ShouldBeTrue)
		})
	})
}

func TestRecorderConcurrentSubmit(t *testing.T) {
	Convey("Given many concurrent submissions for one triple", t, func() {
		ctx := context.Background()
		store := newFakeStore()
		r := recorder.New(store, dedupe.NewInMemoryIndex())

		var admitted, duplicates atomic.Int64
		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := r.Submit(ctx, "j1", "c1", scores(8, 7, 9, 6, 8))
				switch {
				case err == nil:
					admitted.Add(1)
				case errors.Is(err, model.ErrDuplicateEvaluation):
					duplicates.Add(1)
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one is admitted", func() {
			So(admitted.Load(), ShouldEqual, 1)
			So(duplicates.Load(), ShouldEqual, 31)
			So(len(store.evaluations), ShouldEqual, 1)
		})
	})
}
