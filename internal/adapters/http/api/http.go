// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/okian/inkscore/internal/adapters/repository"
	service "github.com/okian/inkscore/internal/app"
	"github.com/okian/inkscore/internal/domain/model"
	"github.com/okian/inkscore/internal/domain/rules"
	"github.com/okian/inkscore/internal/domain/section"
	"github.com/okian/inkscore/internal/domain/types"
	"github.com/okian/inkscore/internal/export"
	"github.com/okian/inkscore/internal/notify"
	"github.com/okian/inkscore/pkg/logger"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Registrar covers the registration section.
type Registrar interface {
	RegisterContestant(ctx context.Context, in service.ContestantInput) (model.Contestant, error)
	RegisterJudge(ctx context.Context, in service.JudgeInput) (model.Judge, error)
	Contestants(ctx context.Context) []model.Contestant
	Contestant(ctx context.Context, id string) (model.Contestant, error)
	Judges(ctx context.Context) []model.Judge
	Judge(ctx context.Context, id string) (model.Judge, error)
	Rules() *rules.Set
}

// Evaluator covers the evaluation section.
type Evaluator interface {
	SubmitEvaluation(ctx context.Context, judgeID, contestantID string, scores map[string]float64) (model.Evaluation, error)
	Evaluations(ctx context.Context, f repository.EvaluationFilter) []model.Evaluation
	Evaluation(ctx context.Context, id string) (model.Evaluation, error)
}

// Reporter covers the results section.
type Reporter interface {
	Leaderboard(ctx context.Context, category string, limit int) ([]types.Entry, error)
	Stats(ctx context.Context, category string) (types.Summary, error)
	CriteriaAverages(ctx context.Context, contestantName, category string) (map[string]float64, error)
	CriteriaAveragesByID(ctx context.Context, contestantID, category string) (map[string]float64, error)
	Export(ctx context.Context, w io.Writer, format export.Format, category string) error
}

// Administrator covers the administration section.
type Administrator interface {
	DeleteContestant(ctx context.Context, id string) ([]model.Evaluation, error)
	DeleteJudge(ctx context.Context, id string) ([]model.Evaluation, error)
	DeleteEvaluation(ctx context.Context, id string) (model.Evaluation, error)
	Reset(ctx context.Context)
	Notifications(limit int) []notify.Notification
}

// Dependencies required by HTTP handlers.
type Dependencies interface {
	Registrar
	Evaluator
	Reporter
	Administrator
	StatusProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler         *HealthHandler
	registrationHandler   *RegistrationHandler
	evaluationHandler     *EvaluationHandler
	resultsHandler        *ResultsHandler
	administrationHandler *AdministrationHandler
	logger                logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for panics.
func WithLogger(log logger.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.logger = log
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		healthHandler:         NewHealthHandler(deps),
		registrationHandler:   NewRegistrationHandler(deps),
		evaluationHandler:     NewEvaluationHandler(deps),
		resultsHandler:        NewResultsHandler(deps),
		administrationHandler: NewAdministrationHandler(deps),
		logger:                logger.Get(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type route struct {
	pattern  string
	endpoint string
	handler  http.HandlerFunc
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("GET /healthz", RecoverMiddleware(MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"), s.logger))
	mux.Handle("GET /status", RecoverMiddleware(MetricsMiddleware(s.healthHandler.HandleStatus, "status"), s.logger))
	for _, sec := range section.All() {
		for _, rt := range s.routes(sec) {
			mux.Handle(rt.pattern, RecoverMiddleware(MetricsMiddleware(rt.handler, rt.endpoint), s.logger))
		}
	}
}

func (s *Server) routes(sec section.Section) []route {
	switch sec {
	case section.Registration:
		h := s.registrationHandler
		return []route{
			{"POST /contestants", "contestants", h.HandleRegisterContestant},
			{"GET /contestants", "contestants", h.HandleListContestants},
			{"GET /contestants/{id}", "contestant", h.HandleGetContestant},
			{"POST /judges", "judges", h.HandleRegisterJudge},
			{"GET /judges", "judges", h.HandleListJudges},
			{"GET /judges/{id}", "judge", h.HandleGetJudge},
			{"GET /rules", "rules", h.HandleRules},
		}
	case section.Evaluation:
		h := s.evaluationHandler
		return []route{
			{"POST /evaluations", "evaluations", h.HandleSubmit},
			{"GET /evaluations", "evaluations", h.HandleList},
			{"GET /evaluations/{id}", "evaluation", h.HandleGet},
		}
	case section.Results:
		h := s.resultsHandler
		return []route{
			{"GET /leaderboard", "leaderboard", h.HandleLeaderboard},
			{"GET /stats", "stats", h.HandleStats},
			{"GET /criteria-averages", "criteria_averages", h.HandleCriteriaAverages},
			{"GET /export", "export", h.HandleExport},
		}
	case section.Administration:
		h := s.administrationHandler
		return []route{
			{"DELETE /contestants/{id}", "contestant", h.HandleDeleteContestant},
			{"DELETE /judges/{id}", "judge", h.HandleDeleteJudge},
			{"DELETE /evaluations/{id}", "evaluation", h.HandleDeleteEvaluation},
			{"POST /reset", "reset", h.HandleReset},
			{"GET /notifications", "notifications", h.HandleNotifications},
		}
	default:
		panic(fmt.Sprintf("api: no routes for %s", sec))
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	var dup *model.DuplicateEvaluationError
	if errors.As(err, &dup) {
		msg = dup.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeJSON reads a single JSON object from the request body into v.
func decodeJSON(op string, r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(op string, r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, WrapKind(op, ErrBadRequest, fmt.Errorf("%s must be a non-negative integer", name))
	}
	return n, nil
}
