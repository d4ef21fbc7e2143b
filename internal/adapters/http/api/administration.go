package api

import (
	"net/http"

	"github.com/okian/inkscore/internal/domain/model"
)

// defaultNotificationLimit is used when ?limit is absent.
const defaultNotificationLimit = 50

type deleteResponse struct {
	Deleted     string             `json:"deleted"`
	Evaluations []model.Evaluation `json:"evaluations"`
}

type resetResponse struct {
	Status string `json:"status"`
}

// AdministrationHandler serves deletions, reset and the notification feed.
type AdministrationHandler struct {
	deps Administrator
}

// NewAdministrationHandler creates a new administration handler.
func NewAdministrationHandler(deps Administrator) *AdministrationHandler {
	return &AdministrationHandler{deps: deps}
}

// HandleDeleteContestant handles DELETE /contestants/{id}.
func (h *AdministrationHandler) HandleDeleteContestant(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_contestant"
	id := r.PathValue("id")
	removed, err := h.deps.DeleteContestant(r.Context(), id)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: id, Evaluations: nonNil(removed)})
}

// HandleDeleteJudge handles DELETE /judges/{id}.
func (h *AdministrationHandler) HandleDeleteJudge(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_judge"
	id := r.PathValue("id")
	removed, err := h.deps.DeleteJudge(r.Context(), id)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: id, Evaluations: nonNil(removed)})
}

// HandleDeleteEvaluation handles DELETE /evaluations/{id}.
func (h *AdministrationHandler) HandleDeleteEvaluation(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_evaluation"
	id := r.PathValue("id")
	e, err := h.deps.DeleteEvaluation(r.Context(), id)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: id, Evaluations: []model.Evaluation{e}})
}

// HandleReset handles POST /reset.
func (h *AdministrationHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.deps.Reset(r.Context())
	writeJSON(w, http.StatusOK, resetResponse{Status: "reset"})
}

// HandleNotifications handles GET /notifications?limit=, newest first.
func (h *AdministrationHandler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_notifications"
	limit, err := queryInt(op, r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	if limit == 0 {
		limit = defaultNotificationLimit
	}
	writeJSON(w, http.StatusOK, h.deps.Notifications(limit))
}

func nonNil(evals []model.Evaluation) []model.Evaluation {
	if evals == nil {
		return []model.Evaluation{}
	}
	return evals
}
