package model_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	model "github.com/okian/inkscore/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestStateClone(t *testing.T) {
	convey.Convey("Given a state with one evaluation", t, func() {
		s := model.State{
			Contestants: []model.Contestant{{ID: "c1", Name: "Ana", Category: "color"}},
			Evaluations: []model.Evaluation{{
				ID: "e1", JudgeID: "j1", ContestantID: "c1", Category: "color",
				CriteriaScores: map[string]float64{"technique": 8},
				Timestamp:      time.Unix(10, 0),
			}},
		}

		convey.Convey("When it is cloned and the clone is mutated", func() {
			c := s.Clone()
			c.Evaluations[0].CriteriaScores["technique"] = 1
			c.Contestants[0].Name = "Other"

			convey.Convey("Then the original is untouched", func() {
				convey.So(s.Evaluations[0].CriteriaScores["technique"], convey.ShouldEqual, 8)
				convey.So(s.Contestants[0].Name, convey.ShouldEqual, "Ana")
				convey.So(c.Judges, convey.ShouldNotBeNil)
				convey.So(c.Judges, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("Then Empty and Key reflect the content", func() {
			convey.So(s.Empty(), convey.ShouldBeFalse)
			convey.So(model.State{}.Empty(), convey.ShouldBeTrue)
			convey.So(s.Evaluations[0].Key(), convey.ShouldResemble,
				model.Key{JudgeID: "j1", ContestantID: "c1", Category: "color"})
		})
	})
}

func TestRejectionErrors(t *testing.T) {
	convey.Convey("Given rejection errors", t, func() {
		convey.Convey("When a RejectionError is wrapped", func() {
			err := fmt.Errorf("submit: %w", model.Reject("recorder.submit", model.ErrInvalidScore, "technique=%v", 0))

			convey.Convey("Then it unwraps to its kind", func() {
				convey.So(errors.Is(err, model.ErrInvalidScore), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "technique=0")
				convey.So(model.Reason(err), convey.ShouldEqual, "invalid_score")
			})
		})

		convey.Convey("When a duplicate evaluation is reported", func() {
			var err error = &model.DuplicateEvaluationError{JudgeName: "J1", ContestantName: "C1", Category: "color"}

			convey.Convey("Then it names the collision and matches the kind", func() {
				convey.So(err.Error(), convey.ShouldEqual, "judge J1 already evaluated C1 in category color")
				convey.So(errors.Is(err, model.ErrDuplicateEvaluation), convey.ShouldBeTrue)
				var dup *model.DuplicateEvaluationError
				convey.So(errors.As(err, &dup), convey.ShouldBeTrue)
				convey.So(model.Reason(err), convey.ShouldEqual, "duplicate_evaluation")
			})
		})

		convey.Convey("Then unknown errors map to internal", func() {
			convey.So(model.Reason(errors.New("x")), convey.ShouldEqual, "internal")
			convey.So(model.Reason(nil), convey.ShouldEqual, "")
			convey.So(model.Reason(model.ErrNotFound), convey.ShouldEqual, "not_found")
		})
	})
}
