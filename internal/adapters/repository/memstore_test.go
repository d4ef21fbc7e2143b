package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/inkscore/internal/adapters/repository"
	"github.com/okian/inkscore/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type capturePersister struct {
	mu       sync.Mutex
	versions []uint64
	states   []model.State
}

func (p *capturePersister) Enqueue(version uint64, state model.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.versions = append(p.versions, version)
	p.states = append(p.states, state)
}

func evaluation(id, judge, contestant, category string) model.Evaluation {
	return model.Evaluation{
		ID: id, JudgeID: judge, ContestantID: contestant, Category: category,
		CriteriaScores: map[string]float64{"technique": 8},
		TotalScore:     8,
		Timestamp:      time.Unix(100, 0),
	}
}

func seeded(ctx context.Context, opts ...repository.Option) *repository.MemoryStore {
	s := repository.NewMemoryStore(opts...)
	So(s.AddContestant(ctx, model.Contestant{ID: "c1", Name: "Ana", Category: "color", Email: "ana@example.com"}), ShouldBeNil)
	So(s.AddContestant(ctx, model.Contestant{ID: "c2", Name: "Bo", Category: "realism", Email: "bo@example.com"}), ShouldBeNil)
	So(s.AddJudge(ctx, model.Judge{ID: "j1", Name: "J1", Email: "j1@example.com", YearsExperience: 3}), ShouldBeNil)
	So(s.AddJudge(ctx, model.Judge{ID: "j2", Name: "J2", Email: "j2@example.com", YearsExperience: 5}), ShouldBeNil)
	So(s.AddEvaluation(ctx, evaluation("e1", "j1", "c1", "color")), ShouldBeNil)
	So(s.AddEvaluation(ctx, evaluation("e2", "j2", "c1", "color")), ShouldBeNil)
	So(s.AddEvaluation(ctx, evaluation("e3", "j1", "c2", "realism")), ShouldBeNil)
	return s
}

func TestMemoryStoreRegistration(t *testing.T) {
	Convey("Given a store with registered entities", t, func() {
		ctx := context.Background()
		s := seeded(ctx)

		Convey("When an email is reused with different case", func() {
			err := s.AddContestant(ctx, model.Contestant{ID: "c3", Name: "Cy", Email: "  ANA@Example.com"})

			Convey("Then it is a duplicate entity", func() {
				So(errors.Is(err, model.ErrDuplicateEntity), ShouldBeTrue)
				So(s.Counts(ctx).Contestants, ShouldEqual, 2)
			})
		})

		Convey("When a judge reuses a contestant's email", func() {
			err := s.AddJudge(ctx, model.Judge{ID: "j3", Name: "J3", Email: "ana@example.com", YearsExperience: 1})

			Convey("Then it is accepted since the namespaces are separate", func() {
				So(err, ShouldBeNil)
			})
		})

		Convey("When a judge email is reused", func() {
			err := s.AddJudge(ctx, model.Judge{ID: "j9", Email: "J1@example.com"})
			So(errors.Is(err, model.ErrDuplicateEntity), ShouldBeTrue)
		})

		Convey("When an evaluation references a missing judge", func() {
			err := s.AddEvaluation(ctx, evaluation("e9", "ghost", "c1", "color"))
			So(errors.Is(err, model.ErrUnknownReference), ShouldBeTrue)
		})

		Convey("Then lookups return records or not found", func() {
			c, err := s.Contestant(ctx, "c1")
			So(err, ShouldBeNil)
			So(c.Name, ShouldEqual, "Ana")
			_, err = s.Judge(ctx, "nobody")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			_, err = s.Evaluation(ctx, "nothing")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then listings keep insertion order and honour filters", func() {
			So(len(s.Contestants(ctx)), ShouldEqual, 2)
			So(s.Judges(ctx)[1].ID, ShouldEqual, "j2")
			So(len(s.Evaluations(ctx, repository.EvaluationFilter{})), ShouldEqual, 3)
			So(len(s.Evaluations(ctx, repository.EvaluationFilter{Category: "color"})), ShouldEqual, 2)
			So(len(s.Evaluations(ctx, repository.EvaluationFilter{JudgeID: "j1"})), ShouldEqual, 2)
			So(len(s.Evaluations(ctx, repository.EvaluationFilter{JudgeID: "j1", ContestantID: "c2"})), ShouldEqual, 1)
		})

		Convey("Then returned evaluations do not alias the store", func() {
			e, _ := s.Evaluation(ctx, "e1")
			e.CriteriaScores["technique"] = 1
			again, _ := s.Evaluation(ctx, "e1")
			So(again.CriteriaScores["technique"], ShouldEqual, 8)
		})
	})
}

func TestMemoryStoreCascade(t *testing.T) {
	Convey("Given a store with evaluations", t, func() {
		ctx := context.Background()
		s := seeded(ctx)
		before := s.Counts(ctx).Evaluations

		Convey("When a contestant is deleted", func() {
			removed, err := s.DeleteContestant(ctx, "c1")

			Convey("Then its evaluations go with it", func() {
				So(err, ShouldBeNil)
				So(len(removed), ShouldEqual, 2)
				So(s.Counts(ctx).Evaluations, ShouldEqual, before-len(removed))
				So(s.Evaluations(ctx, repository.EvaluationFilter{ContestantID: "c1"}), ShouldBeEmpty)
			})

			Convey("And the email can be registered again", func() {
				So(s.AddContestant(ctx, model.Contestant{ID: "c9", Email: "ana@example.com"}), ShouldBeNil)
			})
		})

		Convey("When a judge is deleted", func() {
			removed, err := s.DeleteJudge(ctx, "j1")

			Convey("Then every evaluation by that judge is removed", func() {
				So(err, ShouldBeNil)
				So(len(removed), ShouldEqual, 2)
				So(s.Counts(ctx).Evaluations, ShouldEqual, before-2)
				left := s.Evaluations(ctx, repository.EvaluationFilter{})
				So(len(left), ShouldEqual, 1)
				So(left[0].ID, ShouldEqual, "e2")
			})
		})

		Convey("When a single evaluation is deleted", func() {
			e, err := s.DeleteEvaluation(ctx, "e2")
			So(err, ShouldBeNil)
			So(e.JudgeID, ShouldEqual, "j2")
			So(s.Counts(ctx).Evaluations, ShouldEqual, before-1)
		})

		Convey("When deleting something unknown", func() {
			_, err := s.DeleteContestant(ctx, "nope")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			_, err = s.DeleteJudge(ctx, "nope")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			_, err = s.DeleteEvaluation(ctx, "nope")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("When the store is reset", func() {
			s.Reset(ctx)
			So(s.Counts(ctx), ShouldResemble, repository.Counts{})
		})
	})
}

func TestMemoryStorePersistence(t *testing.T) {
	Convey("Given a store with a persister", t, func() {
		ctx := context.Background()
		p := &capturePersister{}
		s := seeded(ctx, repository.WithPersister(p))

		Convey("Then every mutation enqueues a newer version", func() {
			So(p.versions, ShouldResemble, []uint64{1, 2, 3, 4, 5, 6, 7})
			last := p.states[len(p.states)-1]
			So(len(last.Evaluations), ShouldEqual, 3)
		})

		Convey("Then failed mutations enqueue nothing", func() {
			_ = s.AddJudge(ctx, model.Judge{ID: "j1"})
			So(len(p.versions), ShouldEqual, 7)
		})

		Convey("When snapshotting", func() {
			state, version := s.Snapshot(ctx)
			So(version, ShouldEqual, 7)

			Convey("Then restoring it into a new store reproduces the content", func() {
				other := repository.NewMemoryStore()
				report, err := other.Restore(ctx, state)
				So(err, ShouldBeNil)
				So(report.DroppedEvaluations, ShouldEqual, 0)
				So(report.Counts, ShouldResemble, s.Counts(ctx))
				again, _ := other.Snapshot(ctx)
				So(again, ShouldResemble, state)
			})
		})
	})
}

func TestMemoryStoreRestore(t *testing.T) {
	Convey("Given states to restore", t, func() {
		ctx := context.Background()
		s := repository.NewMemoryStore()

		Convey("When evaluations dangle or collide", func() {
			state := model.State{
				Contestants: []model.Contestant{{ID: "c1", Email: "a@x.io"}},
				Judges:      []model.Judge{{ID: "j1", Email: "j@x.io"}},
				Evaluations: []model.Evaluation{
					evaluation("e1", "j1", "c1", "color"),
					evaluation("e2", "j1", "c1", "color"),
					evaluation("e3", "ghost", "c1", "color"),
				},
			}
			report, err := s.Restore(ctx, state)

			Convey("Then they are dropped and the rest is kept", func() {
				So(err, ShouldBeNil)
				So(report.DroppedEvaluations, ShouldEqual, 2)
				So(report.Evaluations, ShouldEqual, 1)
			})
		})

		Convey("When identities collide", func() {
			_, err := s.Restore(ctx, model.State{Contestants: []model.Contestant{
				{ID: "c1", Email: "a@x.io"}, {ID: "c2", Email: "A@x.io"},
			}})

			Convey("Then the state is rejected and nothing changes", func() {
				So(errors.Is(err, repository.ErrInvalidState), ShouldBeTrue)
				So(s.Counts(ctx), ShouldResemble, repository.Counts{})
			})
		})
	})
}
