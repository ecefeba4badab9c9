package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/careerdeck/internal/apperror"
	"github.com/sakif/careerdeck/internal/model"
	"github.com/sakif/careerdeck/internal/service"
)

// CoachingHandler serves coaches, availability and bookings.
type CoachingHandler struct {
	svc    *service.CoachingService
	logger *slog.Logger
}

func NewCoachingHandler(svc *service.CoachingService, logger *slog.Logger) *CoachingHandler {
	return &CoachingHandler{svc: svc, logger: logger}
}

// HandleCoaches lists coaches. HTTP: GET /api/coaching/coaches
func (h *CoachingHandler) HandleCoaches(w http.ResponseWriter, r *http.Request) {
	coaches, err := h.svc.Coaches(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"coaches": coaches})
}

// HandleCoach returns one coach. HTTP: GET /api/coaching/coaches/{id}
func (h *CoachingHandler) HandleCoach(w http.ResponseWriter, r *http.Request) {
	coach, err := h.svc.Coach(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, coach)
}

type availabilityResponse struct {
	Slots []model.TimeSlot `json:"slots"`
}

// HandleAvailability lists a day's slots.
//
// HTTP: GET /api/coaching/coaches/{id}/availability?date=YYYY-MM-DD
func (h *CoachingHandler) HandleAvailability(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, apperror.ValidationFailed("date", "date is required"))
		return
	}
	slots, err := h.svc.Availability(r.Context(), chi.URLParam(r, "id"), date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, availabilityResponse{Slots: slots})
}

type bookRequest struct {
	CoachID  string              `json:"coachId"`
	Date     string              `json:"date"`
	Time     string              `json:"time"`
	Duration int                 `json:"duration"`
	Type     model.SessionMedium `json:"type"`
	Topic    string              `json:"topic"`
}

// HandleBook books a session. HTTP: POST /api/coaching/sessions → 201, or
// 409 when the slot was taken first.
func (h *CoachingHandler) HandleBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	session, err := h.svc.Book(r.Context(), callerID(r), service.BookRequest{
		CoachID:  req.CoachID,
		Date:     req.Date,
		Time:     req.Time,
		Duration: req.Duration,
		Type:     req.Type,
		Topic:    req.Topic,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// HandleMySessions lists the caller's bookings. HTTP: GET /api/coaching/sessions
func (h *CoachingHandler) HandleMySessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.svc.MySessions(r.Context(), callerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// HandleCancel cancels the caller's booking. HTTP: POST /api/coaching/sessions/{id}/cancel
func (h *CoachingHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.Cancel(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// HandleComplete marks a session held (admin). HTTP: POST /api/coaching/sessions/{id}/complete
func (h *CoachingHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.CompleteSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}
