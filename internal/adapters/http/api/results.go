package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/inkscore/internal/export"
)

// ResultsHandler serves the leaderboard and its projections.
type ResultsHandler struct {
	deps Reporter
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(deps Reporter) *ResultsHandler {
	return &ResultsHandler{deps: deps}
}

// HandleLeaderboard handles GET /leaderboard?category=&limit=.
// A missing or zero limit returns the configured maximum.
func (h *ResultsHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	limit, err := queryInt(op, r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	entries, err := h.deps.Leaderboard(r.Context(), r.URL.Query().Get("category"), limit)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleStats handles GET /stats?category=.
func (h *ResultsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_stats"
	summary, err := h.deps.Stats(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type criteriaAveragesResponse struct {
	Contestant   string             `json:"contestant,omitempty"`
	ContestantID string             `json:"contestant_id,omitempty"`
	Category     string             `json:"category"`
	Averages     map[string]float64 `json:"averages"`
}

// HandleCriteriaAverages handles
// GET /criteria-averages?contestant=&contestant_id=&category=.
// contestant_id takes precedence over the name.
func (h *ResultsHandler) HandleCriteriaAverages(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_criteria_averages"
	q := r.URL.Query()
	resp := criteriaAveragesResponse{
		Contestant:   q.Get("contestant"),
		ContestantID: q.Get("contestant_id"),
		Category:     q.Get("category"),
	}

	var err error
	switch {
	case resp.ContestantID != "":
		resp.Contestant = ""
		resp.Averages, err = h.deps.CriteriaAveragesByID(r.Context(), resp.ContestantID, resp.Category)
	case resp.Contestant != "":
		resp.Averages, err = h.deps.CriteriaAverages(r.Context(), resp.Contestant, resp.Category)
	default:
		writeError(w, WrapKind(op, ErrBadRequest, errors.New("contestant or contestant_id is required")))
		return
	}
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleExport handles GET /export?format=csv|json&category=.
func (h *ResultsHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export"
	q := r.URL.Query()
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	var buf bytes.Buffer
	if err := h.deps.Export(r.Context(), &buf, format, q.Get("category")); err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "leaderboard."+string(format)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
