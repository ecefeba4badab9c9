package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/careerdeck/internal/model"
	"github.com/sakif/careerdeck/internal/service"
)

// MatchHandler serves the pre-apply match feed.
type MatchHandler struct {
	svc    *service.MatchService
	logger *slog.Logger
}

func NewMatchHandler(svc *service.MatchService, logger *slog.Logger) *MatchHandler {
	return &MatchHandler{svc: svc, logger: logger}
}

type matchesResponse struct {
	Matches []model.Match `json:"matches"`
}

// HandleList returns the caller's active matches in server order.
//
// HTTP: GET /api/pre-apply/matches?limit=N&offset=M
func (h *MatchHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, err)
		return
	}

	matches, err := h.svc.List(r.Context(), callerID(r), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	if matches == nil {
		matches = []model.Match{}
	}
	writeJSON(w, http.StatusOK, matchesResponse{Matches: matches})
}

// HandleDismiss hides a match. HTTP: POST /api/pre-apply/{jobId}/dismiss
func (h *MatchHandler) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Dismiss(r.Context(), callerID(r), chi.URLParam(r, "jobId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleApplied records an application. HTTP: POST /api/pre-apply/{jobId}/applied
func (h *MatchHandler) HandleApplied(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.MarkApplied(r.Context(), callerID(r), chi.URLParam(r, "jobId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type ingestRequest struct {
	MemberID string    `json:"memberId"`
	Job      model.Job `json:"job"`
	Score    int       `json:"matchScore"`
}

// HandleIngest accepts a pairing from the matching engine. Protected by the
// service token, not by a member session.
//
// HTTP: POST /api/internal/matches → 201 when created, 200 when it existed.
func (h *MatchHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	m, created, err := h.svc.Ingest(r.Context(), service.IngestRequest{
		MemberID: req.MemberID,
		Job:      req.Job,
		Score:    req.Score,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, m)
}
