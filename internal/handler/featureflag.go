package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/careerdeck/internal/service"
)

// FeatureFlagHandler serves flag evaluation and the admin flag CRUD.
type FeatureFlagHandler struct {
	svc    *service.FeatureFlagService
	logger *slog.Logger
}

func NewFeatureFlagHandler(svc *service.FeatureFlagService, logger *slog.Logger) *FeatureFlagHandler {
	return &FeatureFlagHandler{svc: svc, logger: logger}
}

// HandleEvaluate returns {key: enabled} for the caller.
//
// HTTP: GET /api/feature-flags (optional auth)
func (h *FeatureFlagHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	flags, err := h.svc.Evaluate(r.Context(), callerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"flags": flags})
}

// GET /api/admin/feature-flags
func (h *FeatureFlagHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	flags, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"flags": flags})
}

// PUT /api/admin/feature-flags/{key}
func (h *FeatureFlagHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	var in service.FlagInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	f, err := h.svc.Save(r.Context(), chi.URLParam(r, "key"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// DELETE /api/admin/feature-flags/{key}
func (h *FeatureFlagHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "key")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
