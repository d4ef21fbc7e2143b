package seed

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/inkscore/internal/adapters/http/api"
	service "github.com/okian/inkscore/internal/app"
	"github.com/okian/inkscore/internal/domain/rules"
	"github.com/okian/inkscore/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func newServer(ctx context.Context) (*httptest.Server, *service.Service) {
	svc := service.New(service.WithPersistRate(0, 0))
	if err := svc.Start(ctx); err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc).Register(ctx, mux)
	return httptest.NewServer(mux), svc
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	Convey("Given a running server", t, func() {
		srv, svc := newServer(ctx)
		defer srv.Close()
		defer func() { _ = svc.Stop(ctx) }()

		cfg := &Config{BaseURL: srv.URL, Contestants: 6, Judges: 3, Duplicates: 4, Workers: 4, Seed: 42}

		Convey("When a seed run completes", func() {
			stats, err := Run(ctx, cfg)
			So(err, ShouldBeNil)

			Convey("Then every evaluation should be admitted once", func() {
				So(stats.ContestantsRegistered, ShouldEqual, 6)
				So(stats.JudgesRegistered, ShouldEqual, 3)
				So(stats.EvaluationsSubmitted, ShouldEqual, 18)
				So(stats.EvaluationsAdmitted, ShouldEqual, 18)
				So(stats.EvaluationsFailed, ShouldEqual, 0)
				So(svc.Counts(ctx).Evaluations, ShouldEqual, 18)
			})

			Convey("Then every duplicate should be rejected", func() {
				So(stats.DuplicatesRejected, ShouldEqual, 4)
				So(stats.DuplicatesAccepted, ShouldEqual, 0)
			})

			Convey("Then the served leaderboard should match the local ranking", func() {
				So(stats.EntriesVerified, ShouldEqual, 6)
			})

			Convey("And a second run should verify alongside the first", func() {
				again, err := Run(ctx, cfg)
				So(err, ShouldBeNil)
				So(again.EntriesVerified, ShouldEqual, 6)
				So(svc.Counts(ctx).Contestants, ShouldEqual, 12)
			})

			Convey("And a reset run should start from an empty contest", func() {
				reset := *cfg
				reset.Reset = true
				_, err := Run(ctx, &reset)
				So(err, ShouldBeNil)
				So(svc.Counts(ctx).Contestants, ShouldEqual, 6)
			})
		})
	})

	Convey("Given no server", t, func() {
		srv, svc := newServer(ctx)
		_ = svc.Stop(ctx)
		srv.Close()

		Convey("Then the health check should fail", func() {
			_, err := Run(ctx, &Config{BaseURL: srv.URL, Contestants: 1, Judges: 1})
			So(errors.Is(err, ErrUnhealthy), ShouldBeTrue)
		})
	})
}

func TestGenerator(t *testing.T) {
	Convey("Given a generator over the default rules", t, func() {
		set := rules.Default()
		gen := newGenerator(7, set.Document(), set.Categories())

		Convey("Then scores should cover every criterion within bounds", func() {
			for _, cat := range set.Categories() {
				criteria, _ := set.Criteria(cat)
				scores := gen.scores(cat)
				So(scores, ShouldHaveLength, len(criteria))
				for _, v := range scores {
					So(v, ShouldBeGreaterThanOrEqualTo, 1.0)
					So(v, ShouldBeLessThanOrEqualTo, set.MaxScore())
				}
			}
		})

		Convey("Then contestants should rotate through categories with unique emails", func() {
			cs := gen.contestants(len(set.Categories()) * 2)
			emails := map[string]bool{}
			for i, c := range cs {
				So(c.Category, ShouldEqual, set.Categories()[i%len(set.Categories())])
				emails[c.Email] = true
			}
			So(emails, ShouldHaveLength, len(cs))
		})

		Convey("Then pick should return distinct indexes", func() {
			picks := gen.pick(5, 3)
			So(picks, ShouldHaveLength, 3)
			seen := map[int]bool{}
			for _, p := range picks {
				So(p, ShouldBeBetweenOrEqual, 0, 2)
				seen[p] = true
			}
			So(seen, ShouldHaveLength, 3)
		})
	})
}

func TestConfigDefaults(t *testing.T) {
	Convey("Given an empty config", t, func() {
		c := (&Config{}).withDefaults()

		Convey("Then defaults should be applied", func() {
			So(c.BaseURL, ShouldEqual, DefaultBaseURL)
			So(c.Contestants, ShouldEqual, DefaultContestants)
			So(c.Judges, ShouldEqual, DefaultJudges)
			So(c.Workers, ShouldEqual, DefaultWorkers)
			So(c.Timeout, ShouldEqual, DefaultTimeout)
			So(c.Seed, ShouldNotEqual, uint64(0))
		})
	})
}
