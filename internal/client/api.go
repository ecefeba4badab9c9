package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sakif/careerdeck/internal/model"
)

// Matches returns the member's active matches in server order.
func (c *Client) Matches(ctx context.Context, limit int) ([]model.Match, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var res struct {
		Matches []model.Match `json:"matches"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/pre-apply/matches", q, nil, &res); err != nil {
		return nil, err
	}
	if res.Matches == nil {
		res.Matches = []model.Match{}
	}
	return res.Matches, nil
}

// DismissMatch hides a match. HTTP: POST /api/pre-apply/{jobId}/dismiss
func (c *Client) DismissMatch(ctx context.Context, jobID string) error {
	return c.do(ctx, http.MethodPost, "/api/pre-apply/"+url.PathEscape(jobID)+"/dismiss", nil, nil, nil)
}

// MarkApplied records an application. HTTP: POST /api/pre-apply/{jobId}/applied
func (c *Client) MarkApplied(ctx context.Context, jobID string) error {
	return c.do(ctx, http.MethodPost, "/api/pre-apply/"+url.PathEscape(jobID)+"/applied", nil, nil, nil)
}

// QuestionFilter narrows Questions. Empty fields match everything.
type QuestionFilter struct {
	Category   model.Category
	Difficulty model.Difficulty
	Tag        string
}

// Questions lists the question bank with the caller's bookmarks.
func (c *Client) Questions(ctx context.Context, f QuestionFilter) ([]model.Question, error) {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", string(f.Category))
	}
	if f.Difficulty != "" {
		q.Set("difficulty", string(f.Difficulty))
	}
	if f.Tag != "" {
		q.Set("tag", f.Tag)
	}
	var res struct {
		Questions []model.Question `json:"questions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/interview/questions", q, nil, &res); err != nil {
		return nil, err
	}
	for i := range res.Questions {
		normalizeQuestion(&res.Questions[i])
	}
	if res.Questions == nil {
		res.Questions = []model.Question{}
	}
	return res.Questions, nil
}

// ToggleBookmark flips the bookmark and returns the new state.
func (c *Client) ToggleBookmark(ctx context.Context, questionID string) (bool, error) {
	var res struct {
		Bookmarked bool `json:"bookmarked"`
	}
	err := c.do(ctx, http.MethodPost, "/api/interview/questions/"+url.PathEscape(questionID)+"/bookmark", nil, nil, &res)
	return res.Bookmarked, err
}

// StartSessionRequest asks the server to allocate a practice session.
// Zero QuestionCount uses the type's default.
type StartSessionRequest struct {
	Type          model.SessionType `json:"type"`
	Categories    []model.Category  `json:"categories,omitempty"`
	QuestionCount int               `json:"questionCount,omitempty"`
	Company       string            `json:"company,omitempty"`
}

// StartSession asks the server to allocate a practice session.
func (c *Client) StartSession(ctx context.Context, req StartSessionRequest) (*model.PracticeSession, error) {
	var s model.PracticeSession
	if err := c.do(ctx, http.MethodPost, "/api/interview/sessions", nil, req, &s); err != nil {
		return nil, err
	}
	normalizeSession(&s)
	return &s, nil
}

// PracticeSession fetches one session with its questions and answers.
func (c *Client) PracticeSession(ctx context.Context, id string) (*model.PracticeSession, error) {
	var s model.PracticeSession
	if err := c.do(ctx, http.MethodGet, "/api/interview/sessions/"+url.PathEscape(id), nil, nil, &s); err != nil {
		return nil, err
	}
	normalizeSession(&s)
	return &s, nil
}

// PracticeHistory lists past sessions, newest first.
func (c *Client) PracticeHistory(ctx context.Context, limit int) ([]model.PracticeSession, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var res struct {
		Sessions []model.PracticeSession `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/interview/sessions", q, nil, &res); err != nil {
		return nil, err
	}
	for i := range res.Sessions {
		normalizeSession(&res.Sessions[i])
	}
	if res.Sessions == nil {
		res.Sessions = []model.PracticeSession{}
	}
	return res.Sessions, nil
}

type answerRequest struct {
	QuestionID string `json:"questionId"`
	Text       string `json:"text"`
	AudioURL   string `json:"audioUrl,omitempty"`
	VideoURL   string `json:"videoUrl,omitempty"`
}

// SubmitAnswer saves or replaces the answer to one question.
func (c *Client) SubmitAnswer(ctx context.Context, sessionID string, a model.Answer) error {
	return c.do(ctx, http.MethodPost, "/api/interview/sessions/"+url.PathEscape(sessionID)+"/answers", nil,
		answerRequest{QuestionID: a.QuestionID, Text: a.Text, AudioURL: a.AudioURL, VideoURL: a.VideoURL}, nil)
}

// ClearAnswer deletes the saved answer to one question.
func (c *Client) ClearAnswer(ctx context.Context, sessionID, questionID string) error {
	return c.do(ctx, http.MethodDelete,
		"/api/interview/sessions/"+url.PathEscape(sessionID)+"/answers/"+url.PathEscape(questionID), nil, nil, nil)
}

// CompleteSession scores the session. A second call fails with 409.
func (c *Client) CompleteSession(ctx context.Context, sessionID string) (*model.SessionFeedback, error) {
	var fb model.SessionFeedback
	if err := c.do(ctx, http.MethodPost, "/api/interview/sessions/"+url.PathEscape(sessionID)+"/complete", nil, nil, &fb); err != nil {
		return nil, err
	}
	normalizeFeedback(&fb)
	return &fb, nil
}

func (c *Client) Coaches(ctx context.Context) ([]model.Coach, error) {
	var res struct {
		Coaches []model.Coach `json:"coaches"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/coaching/coaches", nil, nil, &res); err != nil {
		return nil, err
	}
	if res.Coaches == nil {
		res.Coaches = []model.Coach{}
	}
	return res.Coaches, nil
}

func (c *Client) Coach(ctx context.Context, id string) (*model.Coach, error) {
	var coach model.Coach
	if err := c.do(ctx, http.MethodGet, "/api/coaching/coaches/"+url.PathEscape(id), nil, nil, &coach); err != nil {
		return nil, err
	}
	return &coach, nil
}

// Availability lists a coach's slots on date (YYYY-MM-DD).
func (c *Client) Availability(ctx context.Context, coachID, date string) ([]model.TimeSlot, error) {
	var res struct {
		Slots []model.TimeSlot `json:"slots"`
	}
	q := url.Values{"date": {date}}
	if err := c.do(ctx, http.MethodGet, "/api/coaching/coaches/"+url.PathEscape(coachID)+"/availability", q, nil, &res); err != nil {
		return nil, err
	}
	if res.Slots == nil {
		res.Slots = []model.TimeSlot{}
	}
	return res.Slots, nil
}

// BookRequest is the body of a coaching booking.
type BookRequest struct {
	CoachID  string              `json:"coachId"`
	Date     string              `json:"date"`
	Time     string              `json:"time"`
	Duration int                 `json:"duration"`
	Type     model.SessionMedium `json:"type"`
	Topic    string              `json:"topic,omitempty"`
}

// BookSession books a coaching slot. A taken slot fails with 409.
func (c *Client) BookSession(ctx context.Context, req BookRequest) (*model.CoachingSession, error) {
	var s model.CoachingSession
	if err := c.do(ctx, http.MethodPost, "/api/coaching/sessions", nil, req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CoachingSessions lists the caller's bookings.
func (c *Client) CoachingSessions(ctx context.Context) ([]model.CoachingSession, error) {
	var res struct {
		Sessions []model.CoachingSession `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/coaching/sessions", nil, nil, &res); err != nil {
		return nil, err
	}
	if res.Sessions == nil {
		res.Sessions = []model.CoachingSession{}
	}
	return res.Sessions, nil
}

// CancelCoachingSession cancels a scheduled booking.
func (c *Client) CancelCoachingSession(ctx context.Context, id string) (*model.CoachingSession, error) {
	var s model.CoachingSession
	if err := c.do(ctx, http.MethodPost, "/api/coaching/sessions/"+url.PathEscape(id)+"/cancel", nil, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// EvaluateFlags returns every flag that is on for the caller.
func (c *Client) EvaluateFlags(ctx context.Context) (map[string]bool, error) {
	var res struct {
		Flags map[string]bool `json:"flags"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/feature-flags", nil, nil, &res); err != nil {
		return nil, err
	}
	if res.Flags == nil {
		res.Flags = map[string]bool{}
	}
	return res.Flags, nil
}

func normalizeQuestion(q *model.Question) {
	if q.Tips == nil {
		q.Tips = []string{}
	}
	if q.Tags == nil {
		q.Tags = []string{}
	}
}

func normalizeSession(s *model.PracticeSession) {
	if s.Questions == nil {
		s.Questions = []model.Question{}
	}
	for i := range s.Questions {
		normalizeQuestion(&s.Questions[i])
	}
	if s.Answers == nil {
		s.Answers = []model.Answer{}
	}
	if s.Feedback != nil {
		normalizeFeedback(s.Feedback)
	}
}

func normalizeFeedback(fb *model.SessionFeedback) {
	if fb.Strengths == nil {
		fb.Strengths = []string{}
	}
	if fb.Improvements == nil {
		fb.Improvements = []string{}
	}
	if fb.Questions == nil {
		fb.Questions = []model.QuestionFeedback{}
	}
}
