package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/inkscore/internal/adapters/http/api"
	service "github.com/okian/inkscore/internal/app"
	"github.com/okian/inkscore/internal/domain/model"
	"github.com/okian/inkscore/internal/domain/types"
	"github.com/okian/inkscore/internal/notify"
	"github.com/okian/inkscore/pkg/logger"
	"github.com/okian/inkscore/pkg/retry"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newMux(ctx context.Context) (*http.ServeMux, *service.Service) {
	var seq atomic.Int64
	svc := service.New(
		service.WithClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }),
		service.WithIDGenerator(func() string { return fmt.Sprintf("id-%d", seq.Add(1)) }),
		service.WithRetryPolicy(retry.Policy{MaxAttempts: 1, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, Multiplier: 1}),
		service.WithPersistRate(0, 0),
		service.WithMaxLeaderboardLimit(2),
	)
	if err := svc.Start(ctx); err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc).Register(ctx, mux)
	return mux, svc
}

func do(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader = http.NoBody
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.NewDecoder(w.Body).Decode(&v), ShouldBeNil)
	return v
}

func contestantBody(name, category, email string) string {
	return fmt.Sprintf(`{"name":%q,"category":%q,"email":%q,"phone":"+1 555 0100"}`, name, category, email)
}

func judgeBody(name, email string) string {
	return fmt.Sprintf(`{"name":%q,"email":%q,"years_experience":5}`, name, email)
}

func evaluationBody(judgeID, contestantID string, v float64) string {
	return fmt.Sprintf(`{"judge_id":%q,"contestant_id":%q,"scores":{"technique":%[3]v,"creativity":%[3]v,"composition":%[3]v,"color":%[3]v,"difficulty":%[3]v}}`,
		judgeID, contestantID, v)
}

func TestServer_Register(t *testing.T) {
	Convey("Given a nil mux", t, func() {
		server := api.NewServer(service.New())

		Convey("Then Register should panic", func() {
			So(func() { server.Register(context.Background(), nil) }, ShouldPanic)
		})
	})

	Convey("Given a registered API server", t, func() {
		mux, svc := newMux(context.Background())
		defer func() { _ = svc.Stop(context.Background()) }()

		Convey("Then health endpoint should serve metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "inkscore")
		})

		Convey("And status endpoint should report counts", func() {
			w := do(mux, http.MethodGet, "/status", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			status := decode[map[string]any](w)
			So(status["started"], ShouldEqual, true)
			So(status["contestants"], ShouldEqual, float64(0))
		})

		Convey("And rules endpoint should list the categories", func() {
			w := do(mux, http.MethodGet, "/rules", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "realism")
			So(w.Body.String(), ShouldContainSubstring, "max_score")
		})

		Convey("And unsupported methods should be rejected", func() {
			w := do(mux, http.MethodPut, "/contestants", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestRegistrationRoutes(t *testing.T) {
	Convey("Given an empty contest", t, func() {
		mux, svc := newMux(context.Background())
		defer func() { _ = svc.Stop(context.Background()) }()

		Convey("When a contestant is registered", func() {
			w := do(mux, http.MethodPost, "/contestants", contestantBody("Ana Ruiz", "color", "ana@example.com"))
			So(w.Code, ShouldEqual, http.StatusCreated)
			c := decode[model.Contestant](w)
			So(c.ID, ShouldEqual, "id-1")
			So(c.Category, ShouldEqual, "color")

			Convey("Then it can be fetched and listed", func() {
				w := do(mux, http.MethodGet, "/contestants/"+c.ID, "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[model.Contestant](w).Name, ShouldEqual, "Ana Ruiz")

				w = do(mux, http.MethodGet, "/contestants", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[[]model.Contestant](w), ShouldHaveLength, 1)
			})

			Convey("Then the same email in another case should conflict", func() {
				w := do(mux, http.MethodPost, "/contestants", contestantBody("Other", "color", "ANA@example.com"))
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decode[errorBody](w).Code, ShouldEqual, "duplicate_entity")
			})
		})

		Convey("When a judge is registered", func() {
			w := do(mux, http.MethodPost, "/judges", judgeBody("Mei", "mei@example.com"))
			So(w.Code, ShouldEqual, http.StatusCreated)
			j := decode[model.Judge](w)

			Convey("Then it can be fetched and listed", func() {
				So(do(mux, http.MethodGet, "/judges/"+j.ID, "").Code, ShouldEqual, http.StatusOK)
				w := do(mux, http.MethodGet, "/judges", "")
				So(decode[[]model.Judge](w), ShouldHaveLength, 1)
			})
		})

		cases := []struct {
			name   string
			path   string
			body   string
			status int
			code   string
		}{
			{"an invalid email", "/contestants", contestantBody("Ana", "color", "not-an-email"), http.StatusBadRequest, "validation_error"},
			{"an unknown category", "/contestants", contestantBody("Ana", "watercolor", "a@example.com"), http.StatusBadRequest, "validation_error"},
			{"an unknown field", "/contestants", `{"name":"Ana","nickname":"A"}`, http.StatusBadRequest, "bad_request"},
			{"malformed JSON", "/judges", `{"name":`, http.StatusBadRequest, "bad_request"},
			{"no experience", "/judges", `{"name":"Mei","email":"mei@example.com","years_experience":0}`, http.StatusBadRequest, "validation_error"},
		}
		for _, tc := range cases {
			Convey("When registering with "+tc.name, func() {
				w := do(mux, http.MethodPost, tc.path, tc.body)

				Convey("Then the request should be rejected", func() {
					So(w.Code, ShouldEqual, tc.status)
					So(decode[errorBody](w).Code, ShouldEqual, tc.code)
				})
			})
		}

		Convey("When fetching unknown records", func() {
			Convey("Then a 404 should be returned", func() {
				w := do(mux, http.MethodGet, "/contestants/ghost", "")
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decode[errorBody](w).Code, ShouldEqual, "not_found")
				So(do(mux, http.MethodGet, "/judges/ghost", "").Code, ShouldEqual, http.StatusNotFound)
				So(do(mux, http.MethodGet, "/evaluations/ghost", "").Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestEvaluationAndResultsRoutes(t *testing.T) {
	Convey("Given two contestants and two judges", t, func() {
		mux, svc := newMux(context.Background())
		defer func() { _ = svc.Stop(context.Background()) }()

		c1 := decode[model.Contestant](do(mux, http.MethodPost, "/contestants", contestantBody("Ana", "color", "ana@example.com")))
		c2 := decode[model.Contestant](do(mux, http.MethodPost, "/contestants", contestantBody("Bo", "color", "bo@example.com")))
		j1 := decode[model.Judge](do(mux, http.MethodPost, "/judges", judgeBody("J1", "j1@example.com")))
		j2 := decode[model.Judge](do(mux, http.MethodPost, "/judges", judgeBody("J2", "j2@example.com")))

		Convey("When a criterion is sent as null", func() {
			body := fmt.Sprintf(`{"judge_id":%q,"contestant_id":%q,"scores":{"technique":8,"creativity":8,"composition":8,"color":8,"difficulty":null}}`, j1.ID, c1.ID)
			w := do(mux, http.MethodPost, "/evaluations", body)

			Convey("Then it counts as missing, not as a zero score", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				resp := decode[errorBody](w)
				So(resp.Code, ShouldEqual, "incomplete_criteria")
				So(resp.Message, ShouldContainSubstring, "difficulty")
			})
		})

		Convey("When both judges score both contestants", func() {
			for _, body := range []string{
				evaluationBody(j1.ID, c1.ID, 8),
				evaluationBody(j2.ID, c1.ID, 9),
				evaluationBody(j1.ID, c2.ID, 7),
				evaluationBody(j2.ID, c2.ID, 6),
			} {
				So(do(mux, http.MethodPost, "/evaluations", body).Code, ShouldEqual, http.StatusCreated)
			}

			Convey("Then a repeated submission should conflict with a readable message", func() {
				w := do(mux, http.MethodPost, "/evaluations", evaluationBody(j1.ID, c1.ID, 5))
				So(w.Code, ShouldEqual, http.StatusConflict)
				body := decode[errorBody](w)
				So(body.Code, ShouldEqual, "duplicate_evaluation")
				So(body.Message, ShouldEqual, "judge J1 already evaluated Ana in category color")
			})

			Convey("Then the leaderboard should rank by aggregate score", func() {
				w := do(mux, http.MethodGet, "/leaderboard?category=color", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				entries := decode[[]types.Entry](w)
				So(entries, ShouldHaveLength, 2)
				So(entries[0].ContestantName, ShouldEqual, "Ana")
				So(entries[0].AggregateScore, ShouldEqual, 17.0)
				So(entries[0].AverageScore, ShouldEqual, 8.5)
				So(entries[1].Rank, ShouldEqual, 2)
			})

			Convey("Then the leaderboard limit should be honoured and capped", func() {
				So(decode[[]types.Entry](do(mux, http.MethodGet, "/leaderboard?limit=1", "")), ShouldHaveLength, 1)
				So(decode[[]types.Entry](do(mux, http.MethodGet, "/leaderboard?limit=50", "")), ShouldHaveLength, 2)
				So(do(mux, http.MethodGet, "/leaderboard?limit=abc", "").Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then stats should summarise the consolidated entries", func() {
				w := do(mux, http.MethodGet, "/stats", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				summary := decode[types.Summary](w)
				So(summary.TopScore, ShouldEqual, 8.5)
				So(summary.TotalConsolidatedEntries, ShouldEqual, 2)
				So(summary.DistinctCategoryCount, ShouldEqual, 1)
			})

			Convey("Then criteria averages should be served by name and by id", func() {
				w := do(mux, http.MethodGet, "/criteria-averages?contestant=Ana&category=color", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				byName := decode[map[string]any](w)
				So(byName["averages"].(map[string]any)["technique"], ShouldEqual, 8.5)

				w = do(mux, http.MethodGet, "/criteria-averages?contestant_id="+c2.ID, "")
				So(w.Code, ShouldEqual, http.StatusOK)
				byID := decode[map[string]any](w)
				So(byID["averages"].(map[string]any)["difficulty"], ShouldEqual, 6.5)

				So(do(mux, http.MethodGet, "/criteria-averages", "").Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then the export should be downloadable as CSV and JSON", func() {
				w := do(mux, http.MethodGet, "/export?format=csv", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "text/csv")
				So(w.Body.String(), ShouldContainSubstring, "1,Ana,color,17.00,8.50,2,J1; J2")

				w = do(mux, http.MethodGet, "/export?format=json", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/json")

				So(do(mux, http.MethodGet, "/export?format=xml", "").Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then evaluations can be filtered", func() {
				w := do(mux, http.MethodGet, "/evaluations?judge_id="+j2.ID, "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[[]model.Evaluation](w), ShouldHaveLength, 2)
			})
		})

		cases := []struct {
			name   string
			body   string
			status int
			code   string
		}{
			{"an unknown judge", evaluationBody("ghost", c1.ID, 8), http.StatusNotFound, "unknown_reference"},
			{"a score above the maximum", evaluationBody(j1.ID, c1.ID, 11), http.StatusBadRequest, "invalid_score"},
			{"a missing criterion", fmt.Sprintf(`{"judge_id":%q,"contestant_id":%q,"scores":{"technique":8}}`, j1.ID, c1.ID), http.StatusBadRequest, "incomplete_criteria"},
			{"no judge", fmt.Sprintf(`{"contestant_id":%q}`, c1.ID), http.StatusBadRequest, "bad_request"},
		}
		for _, tc := range cases {
			Convey("When submitting "+tc.name, func() {
				w := do(mux, http.MethodPost, "/evaluations", tc.body)

				Convey("Then the submission should be rejected", func() {
					So(w.Code, ShouldEqual, tc.status)
					So(decode[errorBody](w).Code, ShouldEqual, tc.code)
				})
			})
		}

		Convey("When asking for an unknown category", func() {
			w := do(mux, http.MethodGet, "/leaderboard?category=watercolor", "")

			Convey("Then a validation error should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[errorBody](w).Code, ShouldEqual, "validation_error")
			})
		})
	})
}

func TestAdministrationRoutes(t *testing.T) {
	Convey("Given a scored contestant", t, func() {
		mux, svc := newMux(context.Background())
		defer func() { _ = svc.Stop(context.Background()) }()

		c := decode[model.Contestant](do(mux, http.MethodPost, "/contestants", contestantBody("Ana", "color", "ana@example.com")))
		j := decode[model.Judge](do(mux, http.MethodPost, "/judges", judgeBody("J1", "j1@example.com")))
		e := decode[model.Evaluation](do(mux, http.MethodPost, "/evaluations", evaluationBody(j.ID, c.ID, 8)))

		Convey("When the evaluation is deleted", func() {
			w := do(mux, http.MethodDelete, "/evaluations/"+e.ID, "")
			So(w.Code, ShouldEqual, http.StatusOK)

			Convey("Then the judge may score the contestant again", func() {
				So(do(mux, http.MethodPost, "/evaluations", evaluationBody(j.ID, c.ID, 9)).Code, ShouldEqual, http.StatusCreated)
			})
		})

		Convey("When the contestant is deleted", func() {
			w := do(mux, http.MethodDelete, "/contestants/"+c.ID, "")
			So(w.Code, ShouldEqual, http.StatusOK)

			Convey("Then its evaluations should be returned and gone", func() {
				So(w.Body.String(), ShouldContainSubstring, e.ID)
				So(decode[[]types.Entry](do(mux, http.MethodGet, "/leaderboard", "")), ShouldBeEmpty)
				So(do(mux, http.MethodDelete, "/contestants/"+c.ID, "").Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the judge is deleted", func() {
			So(do(mux, http.MethodDelete, "/judges/"+j.ID, "").Code, ShouldEqual, http.StatusOK)

			Convey("Then the evaluation list should be empty", func() {
				So(decode[[]model.Evaluation](do(mux, http.MethodGet, "/evaluations", "")), ShouldBeEmpty)
			})
		})

		Convey("When the contest is reset", func() {
			So(do(mux, http.MethodPost, "/reset", "").Code, ShouldEqual, http.StatusOK)

			Convey("Then every collection should be empty", func() {
				So(decode[[]model.Contestant](do(mux, http.MethodGet, "/contestants", "")), ShouldBeEmpty)
				So(decode[[]model.Judge](do(mux, http.MethodGet, "/judges", "")), ShouldBeEmpty)
				So(decode[[]model.Evaluation](do(mux, http.MethodGet, "/evaluations", "")), ShouldBeEmpty)
			})
		})

		Convey("When reading notifications", func() {
			w := do(mux, http.MethodGet, "/notifications?limit=2", "")

			Convey("Then the newest come first", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				feed := decode[[]notify.Notification](w)
				So(feed, ShouldHaveLength, 2)
				So(feed[0].Severity, ShouldEqual, notify.Success)
				So(feed[0].Message, ShouldStartWith, "Evaluation: ")
				So(do(mux, http.MethodGet, "/notifications?limit=-1", "").Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

// panickingStatus serves the real service but fails every status read.
type panickingStatus struct {
	*service.Service
}

func (panickingStatus) GetStats(context.Context) map[string]any {
	panic("stats unavailable")
}

func TestStatusRecovers(t *testing.T) {
	Convey("Given a status provider that panics", t, func() {
		_, svc := newMux(context.Background())
		defer func() { _ = svc.Stop(context.Background()) }()

		mux := http.NewServeMux()
		api.NewServer(panickingStatus{svc}).Register(context.Background(), mux)

		Convey("When /status is requested", func() {
			w := do(mux, http.MethodGet, "/status", "")

			Convey("Then the panic becomes an internal error response", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(decode[errorBody](w).Code, ShouldEqual, "internal_error")
			})
		})

		Convey("Then /healthz is still served", func() {
			So(do(mux, http.MethodGet, "/healthz", "").Code, ShouldEqual, http.StatusOK)
		})
	})
}
