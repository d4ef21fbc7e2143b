package api

import (
	"net/http"

	service "github.com/okian/inkscore/internal/app"
)

// RegistrationHandler serves contestant and judge registration.
type RegistrationHandler struct {
	deps Registrar
}

// NewRegistrationHandler creates a new registration handler.
func NewRegistrationHandler(deps Registrar) *RegistrationHandler {
	return &RegistrationHandler{deps: deps}
}

// HandleRegisterContestant handles POST /contestants.
func (h *RegistrationHandler) HandleRegisterContestant(w http.ResponseWriter, r *http.Request) {
	const op = "api.register_contestant"
	var in service.ContestantInput
	if err := decodeJSON(op, r, &in); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.deps.RegisterContestant(r.Context(), in)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// HandleListContestants handles GET /contestants.
func (h *RegistrationHandler) HandleListContestants(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Contestants(r.Context()))
}

// HandleGetContestant handles GET /contestants/{id}.
func (h *RegistrationHandler) HandleGetContestant(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_contestant"
	c, err := h.deps.Contestant(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleRegisterJudge handles POST /judges.
func (h *RegistrationHandler) HandleRegisterJudge(w http.ResponseWriter, r *http.Request) {
	const op = "api.register_judge"
	var in service.JudgeInput
	if err := decodeJSON(op, r, &in); err != nil {
		writeError(w, err)
		return
	}
	j, err := h.deps.RegisterJudge(r.Context(), in)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, j)
}

// HandleListJudges handles GET /judges.
func (h *RegistrationHandler) HandleListJudges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Judges(r.Context()))
}

// HandleGetJudge handles GET /judges/{id}.
func (h *RegistrationHandler) HandleGetJudge(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_judge"
	j, err := h.deps.Judge(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, j)
}

// HandleRules handles GET /rules.
func (h *RegistrationHandler) HandleRules(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Rules().Document())
}
