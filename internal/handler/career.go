package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/careerdeck/internal/service"
)

// CareerHandler serves member-owned goals and references. Both follow the
// same list/create/patch/delete shape; the last successful write wins.
type CareerHandler struct {
	goals  *service.GoalService
	refs   *service.ReferenceService
	logger *slog.Logger
}

func NewCareerHandler(goals *service.GoalService, refs *service.ReferenceService, logger *slog.Logger) *CareerHandler {
	return &CareerHandler{goals: goals, refs: refs, logger: logger}
}

// GET /api/goals
func (h *CareerHandler) HandleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.goals.List(r.Context(), callerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"goals": goals})
}

// POST /api/goals
func (h *CareerHandler) HandleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var in service.GoalInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	g, err := h.goals.Create(r.Context(), callerID(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// PATCH /api/goals/{id}
func (h *CareerHandler) HandleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	var in service.GoalInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	g, err := h.goals.Update(r.Context(), callerID(r), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// DELETE /api/goals/{id}
func (h *CareerHandler) HandleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := h.goals.Delete(r.Context(), callerID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/references
func (h *CareerHandler) HandleListReferences(w http.ResponseWriter, r *http.Request) {
	refs, err := h.refs.List(r.Context(), callerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"references": refs})
}

// POST /api/references
func (h *CareerHandler) HandleCreateReference(w http.ResponseWriter, r *http.Request) {
	var in service.ReferenceInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	ref, err := h.refs.Create(r.Context(), callerID(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ref)
}

// PATCH /api/references/{id}
func (h *CareerHandler) HandleUpdateReference(w http.ResponseWriter, r *http.Request) {
	var in service.ReferenceInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	ref, err := h.refs.Update(r.Context(), callerID(r), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

// DELETE /api/references/{id}
func (h *CareerHandler) HandleDeleteReference(w http.ResponseWriter, r *http.Request) {
	if err := h.refs.Delete(r.Context(), callerID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
