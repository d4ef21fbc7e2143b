package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/okian/inkscore/internal/adapters/repository"
)

// evaluationRequest is the body of POST /evaluations.
type evaluationRequest struct {
	JudgeID      string              `json:"judge_id"`
	ContestantID string              `json:"contestant_id"`
	Scores       map[string]*float64 `json:"scores"`
}

// criteria drops null values so they count as missing criteria.
func (e evaluationRequest) criteria() map[string]float64 {
	out := make(map[string]float64, len(e.Scores))
	for name, v := range e.Scores {
		if v != nil {
			out[name] = *v
		}
	}
	return out
}

func (e evaluationRequest) validate() error {
	switch {
	case strings.TrimSpace(e.JudgeID) == "":
		return errors.New("missing judge_id")
	case strings.TrimSpace(e.ContestantID) == "":
		return errors.New("missing contestant_id")
	}
	return nil
}

// EvaluationHandler serves evaluation submission and lookup.
type EvaluationHandler struct {
	deps Evaluator
}

// NewEvaluationHandler creates a new evaluation handler.
func NewEvaluationHandler(deps Evaluator) *EvaluationHandler {
	return &EvaluationHandler{deps: deps}
}

// HandleSubmit handles POST /evaluations.
func (h *EvaluationHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_evaluation"
	var req evaluationRequest
	if err := decodeJSON(op, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	e, err := h.deps.SubmitEvaluation(r.Context(), req.JudgeID, req.ContestantID, req.criteria())
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// HandleList handles GET /evaluations?category=&judge_id=&contestant_id=.
func (h *EvaluationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, h.deps.Evaluations(r.Context(), repository.EvaluationFilter{
		Category:     q.Get("category"),
		JudgeID:      q.Get("judge_id"),
		ContestantID: q.Get("contestant_id"),
	}))
}

// HandleGet handles GET /evaluations/{id}.
func (h *EvaluationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_evaluation"
	e, err := h.deps.Evaluation(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, e)
}
