package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/careerdeck/internal/apperror"
	"github.com/sakif/careerdeck/internal/model"
	"github.com/sakif/careerdeck/internal/repository"
	"github.com/sakif/careerdeck/internal/service"
)

// InterviewHandler serves the question bank and practice sessions.
type InterviewHandler struct {
	svc    *service.InterviewService
	logger *slog.Logger
}

func NewInterviewHandler(svc *service.InterviewService, logger *slog.Logger) *InterviewHandler {
	return &InterviewHandler{svc: svc, logger: logger}
}

// HandleQuestions lists the bank. Anonymous callers get no bookmarks.
//
// HTTP: GET /api/interview/questions?category=&difficulty=&tag=
func (h *InterviewHandler) HandleQuestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repository.QuestionFilter{Tag: q.Get("tag")}
	if c := q.Get("category"); c != "" {
		cat, err := model.ParseCategory(c)
		if err != nil {
			writeError(w, apperror.ValidationFailed("category", err.Error()))
			return
		}
		f.Category = cat
	}
	if d := q.Get("difficulty"); d != "" {
		diff, err := model.ParseDifficulty(d)
		if err != nil {
			writeError(w, apperror.ValidationFailed("difficulty", err.Error()))
			return
		}
		f.Difficulty = diff
	}

	questions, err := h.svc.Questions(r.Context(), callerID(r), f)
	if err != nil {
		writeError(w, err)
		return
	}
	if questions == nil {
		questions = []model.Question{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

// HandleBookmark toggles a bookmark. HTTP: POST /api/interview/questions/{id}/bookmark
func (h *InterviewHandler) HandleBookmark(w http.ResponseWriter, r *http.Request) {
	on, err := h.svc.ToggleBookmark(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"bookmarked": on})
}

type startSessionRequest struct {
	Type          model.SessionType `json:"type"`
	Categories    []model.Category  `json:"categories"`
	QuestionCount int               `json:"questionCount"`
	Company       string            `json:"company"`
}

// HandleStart opens a practice session. HTTP: POST /api/interview/sessions
func (h *InterviewHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	session, err := h.svc.StartSession(r.Context(), callerID(r), service.StartRequest{
		Type:          req.Type,
		Categories:    req.Categories,
		QuestionCount: req.QuestionCount,
		Company:       req.Company,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// HandleList returns the caller's history. HTTP: GET /api/interview/sessions
func (h *InterviewHandler) HandleList(w http.ResponseWriter, r *http.Request) {
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
	sessions, err := h.svc.List(r.Context(), callerID(r), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []model.PracticeSession{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// HandleGet returns one session. HTTP: GET /api/interview/sessions/{id}
func (h *InterviewHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.Get(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

type answerRequest struct {
	QuestionID string `json:"questionId"`
	Text       string `json:"text"`
	AudioURL   string `json:"audioUrl"`
	VideoURL   string `json:"videoUrl"`
}

// HandleAnswer stores an answer. HTTP: POST /api/interview/sessions/{id}/answers
func (h *InterviewHandler) HandleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	err := h.svc.SubmitAnswer(r.Context(), callerID(r), chi.URLParam(r, "id"), model.Answer{
		QuestionID: req.QuestionID,
		Text:       req.Text,
		AudioURL:   req.AudioURL,
		VideoURL:   req.VideoURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleClearAnswer removes an answer.
// HTTP: DELETE /api/interview/sessions/{id}/answers/{questionId}
func (h *InterviewHandler) HandleClearAnswer(w http.ResponseWriter, r *http.Request) {
	err := h.svc.ClearAnswer(r.Context(), callerID(r), chi.URLParam(r, "id"), chi.URLParam(r, "questionId"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleComplete finalises a session. HTTP: POST /api/interview/sessions/{id}/complete
func (h *InterviewHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	fb, err := h.svc.Complete(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fb)
}
