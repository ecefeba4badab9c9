package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/careerdeck/internal/auth"
	"github.com/sakif/careerdeck/internal/model"
)

const (
	testSecret       = "integration-secret-0123456789"
	testServiceToken = "svc-token"
)

// api is a tiny client over the test server that remembers a bearer token.
type api struct {
	t     *testing.T
	base  string
	token string
}

func newTestServer(t *testing.T) (*Server, *api) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(context.Background(), Config{
		DBPath:        ":memory:",
		JWTSecret:     testSecret,
		ServiceToken:  testServiceToken,
		AuthRateLimit: 100,
		AuthBurst:     100,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, &api{t: t, base: ts.URL}
}

func (a *api) do(method, path string, body any, header ...string) (int, []byte) {
	a.t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.base+path, rd)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return resp.StatusCode, out
}

func (a *api) decode(raw []byte, v any) {
	a.t.Helper()
	require.NoError(a.t, json.Unmarshal(raw, v), string(raw))
}

// register signs up a fresh member and returns their user ID.
func (a *api) register(email string) string {
	a.t.Helper()
	status, body := a.do(http.MethodPost, "/auth/register", map[string]string{
		"email": email, "password": "correct horse battery",
	})
	require.Equal(a.t, http.StatusCreated, status, string(body))
	var res struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}
	a.decode(body, &res)
	a.token = res.Token
	return res.User.ID
}

func TestHealth(t *testing.T) {
	_, a := newTestServer(t)
	status, body := a.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestAuth_RegisterLoginMe(t *testing.T) {
	_, a := newTestServer(t)

	status, _ := a.do(http.MethodGet, "/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	id := a.register("ada@example.com")

	a.token = ""
	status, body := a.do(http.MethodPost, "/auth/login", map[string]string{
		"email": "ada@example.com", "password": "wrong password",
	})
	assert.Equal(t, http.StatusUnauthorized, status, string(body))

	status, body = a.do(http.MethodPost, "/auth/login", map[string]string{
		"email": "ada@example.com", "password": "correct horse battery",
	})
	require.Equal(t, http.StatusOK, status, string(body))
	var res struct {
		Token string `json:"token"`
	}
	a.decode(body, &res)
	a.token = res.Token

	status, body = a.do(http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, status)
	var me struct {
		ID    string `json:"id"`
		Badge string `json:"badge"`
	}
	a.decode(body, &me)
	assert.Equal(t, id, me.ID)
	assert.Equal(t, "new", me.Badge)
}

func TestMatches_IngestListDismiss(t *testing.T) {
	_, a := newTestServer(t)
	member := a.register("m@example.com")

	ingest := func(jobID string, score int, token string) int {
		status, _ := a.do(http.MethodPost, "/api/internal/matches", map[string]any{
			"memberId":   member,
			"job":        map[string]any{"id": jobID, "title": "Backend " + jobID, "company": "Acme"},
			"matchScore": score,
		}, auth.ServiceTokenHeader, token)
		return status
	}
	assert.Equal(t, http.StatusUnauthorized, ingest("j0", 50, "wrong"))
	require.Equal(t, http.StatusCreated, ingest("j1", 45, testServiceToken))
	require.Equal(t, http.StatusCreated, ingest("j2", 85, testServiceToken))
	assert.Equal(t, http.StatusOK, ingest("j2", 85, testServiceToken), "re-ingest returns the existing match")

	status, body := a.do(http.MethodGet, "/api/pre-apply/matches?limit=10", nil)
	require.Equal(t, http.StatusOK, status)
	var feed struct {
		Matches []model.Match `json:"matches"`
	}
	a.decode(body, &feed)
	require.Len(t, feed.Matches, 2)
	assert.Equal(t, "j2", feed.Matches[0].Job.ID)
	assert.Equal(t, "j1", feed.Matches[1].Job.ID)

	status, _ = a.do(http.MethodPost, "/api/pre-apply/j2/dismiss", nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = a.do(http.MethodPost, "/api/pre-apply/j2/dismiss", nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = a.do(http.MethodPost, "/api/pre-apply/j1/applied", nil)
	assert.Equal(t, http.StatusNoContent, status)

	_, body = a.do(http.MethodGet, "/api/pre-apply/matches", nil)
	assert.JSONEq(t, `{"matches":[]}`, string(body))

	status, _ = a.do(http.MethodGet, "/api/pre-apply/matches?limit=ten", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestInterview_QuickSessionEndToEnd(t *testing.T) {
	_, a := newTestServer(t)
	a.register("i@example.com")

	status, body := a.do(http.MethodPost, "/api/interview/sessions", map[string]any{"type": "quick"})
	require.Equal(t, http.StatusCreated, status, string(body))
	var session model.PracticeSession
	a.decode(body, &session)
	require.Len(t, session.Questions, 5)

	for _, q := range session.Questions {
		status, body = a.do(http.MethodPost, "/api/interview/sessions/"+session.ID+"/answers", map[string]any{
			"questionId": q.ID,
			"text":       "In my last role I led a migration. The result was a 30% cost cut.",
		})
		require.Equal(t, http.StatusNoContent, status, string(body))
	}

	status, body = a.do(http.MethodPost, "/api/interview/sessions/"+session.ID+"/complete", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var fb map[string]any
	a.decode(body, &fb)
	score, ok := fb["overallScore"].(float64)
	require.True(t, ok)
	assert.Equal(t, float64(int(score)), score, "overallScore is an integer")

	status, _ = a.do(http.MethodPost, "/api/interview/sessions/"+session.ID+"/complete", nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = a.do(http.MethodPost, "/api/interview/sessions/"+session.ID+"/answers", map[string]any{
		"questionId": session.Questions[0].ID,
		"text":       "edited after completion",
	})
	assert.Equal(t, http.StatusConflict, status, "completed sessions are frozen")
	status, _ = a.do(http.MethodDelete, "/api/interview/sessions/"+session.ID+"/answers/"+session.Questions[0].ID, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = a.do(http.MethodPost, "/api/interview/sessions", map[string]any{"type": "quick", "extra": 1})
	assert.Equal(t, http.StatusBadRequest, status, "unknown fields are rejected")
}

func TestInterview_ClearAnswer(t *testing.T) {
	_, a := newTestServer(t)
	a.register("clear@example.com")

	status, body := a.do(http.MethodPost, "/api/interview/sessions", map[string]any{"type": "quick", "questionCount": 1})
	require.Equal(t, http.StatusCreated, status, string(body))
	var session model.PracticeSession
	a.decode(body, &session)
	qid := session.Questions[0].ID

	status, body = a.do(http.MethodPost, "/api/interview/sessions/"+session.ID+"/answers", map[string]any{
		"questionId": qid, "text": "a draft I will delete",
	})
	require.Equal(t, http.StatusNoContent, status, string(body))
	status, body = a.do(http.MethodDelete, "/api/interview/sessions/"+session.ID+"/answers/"+qid, nil)
	require.Equal(t, http.StatusNoContent, status, string(body))

	status, body = a.do(http.MethodGet, "/api/interview/sessions/"+session.ID, nil)
	require.Equal(t, http.StatusOK, status)
	a.decode(body, &session)
	assert.Empty(t, session.Answers)
}

func TestInterview_QuestionsArePublic(t *testing.T) {
	_, a := newTestServer(t)

	status, body := a.do(http.MethodGet, "/api/interview/questions?category=behavioral", nil)
	require.Equal(t, http.StatusOK, status)
	var res struct {
		Questions []model.Question `json:"questions"`
	}
	a.decode(body, &res)
	require.NotEmpty(t, res.Questions)
	for _, q := range res.Questions {
		assert.Equal(t, model.CategoryBehavioral, q.Category)
	}

	status, _ = a.do(http.MethodGet, "/api/interview/questions?difficulty=impossible", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

// nextWeekday returns a date at least a week out that falls on d.
func nextWeekday(d time.Weekday) string {
	day := time.Now().AddDate(0, 0, 7)
	for day.Weekday() != d {
		day = day.AddDate(0, 0, 1)
	}
	return day.Format("2006-01-02")
}

func TestCoaching_BookConflictCancel(t *testing.T) {
	_, a := newTestServer(t)
	date := nextWeekday(time.Monday)

	status, body := a.do(http.MethodGet, "/api/coaching/coaches/coach-maya/availability?date="+date, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var avail struct {
		Slots []model.TimeSlot `json:"slots"`
	}
	a.decode(body, &avail)
	require.Len(t, avail.Slots, 16)
	assert.True(t, avail.Slots[2].Available)

	a.register("c1@example.com")
	book := map[string]any{"coachId": "coach-maya", "date": date, "time": "10:00", "duration": 60, "type": "video"}
	status, body = a.do(http.MethodPost, "/api/coaching/sessions", book)
	require.Equal(t, http.StatusCreated, status, string(body))
	var booked model.CoachingSession
	a.decode(body, &booked)

	other := &api{t: t, base: a.base}
	other.register("c2@example.com")
	book["time"] = "10:30"
	book["duration"] = 30
	status, _ = other.do(http.MethodPost, "/api/coaching/sessions", book)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = other.do(http.MethodPost, "/api/coaching/sessions/"+booked.ID+"/cancel", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = a.do(http.MethodPost, "/api/coaching/sessions/"+booked.ID+"/cancel", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = other.do(http.MethodPost, "/api/coaching/sessions", book)
	assert.Equal(t, http.StatusCreated, status)
}

func TestAdminRoutes(t *testing.T) {
	s, a := newTestServer(t)
	a.register("member@example.com")

	status, _ := a.do(http.MethodPut, "/api/admin/feature-flags/video_answers", map[string]any{"enabled": true})
	assert.Equal(t, http.StatusForbidden, status)

	admin := &model.User{Login: "root", Email: "root@example.com", Role: model.RoleAdmin}
	require.NoError(t, s.db.CreateUser(context.Background(), admin))
	tokens, err := auth.NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)
	adminToken, err := tokens.Generate(admin.ID, string(model.RoleAdmin))
	require.NoError(t, err)
	memberToken := a.token

	a.token = adminToken
	status, body := a.do(http.MethodPut, "/api/admin/feature-flags/video_answers", map[string]any{"enabled": true})
	require.Equal(t, http.StatusOK, status, string(body))

	a.token = memberToken
	status, body = a.do(http.MethodGet, "/api/feature-flags", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"flags":{"video_answers":true}}`, string(body))
}

func TestCareer_GoalsAndReferences(t *testing.T) {
	_, a := newTestServer(t)
	a.register("g@example.com")

	status, body := a.do(http.MethodPost, "/api/goals", map[string]any{"title": "Get promoted"})
	require.Equal(t, http.StatusCreated, status, string(body))
	var goal model.CareerGoal
	a.decode(body, &goal)

	status, body = a.do(http.MethodPatch, "/api/goals/"+goal.ID, map[string]any{"progress": 100})
	require.Equal(t, http.StatusOK, status, string(body))
	a.decode(body, &goal)
	assert.Equal(t, model.GoalCompleted, goal.Status)

	status, _ = a.do(http.MethodDelete, "/api/goals/"+goal.ID, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, body = a.do(http.MethodPost, "/api/references", map[string]any{"name": "Grace", "email": "grace@example.com"})
	require.Equal(t, http.StatusCreated, status, string(body))
	var ref model.Reference
	a.decode(body, &ref)

	status, _ = a.do(http.MethodPatch, "/api/references/"+ref.ID, map[string]any{"status": "received"})
	assert.Equal(t, http.StatusConflict, status)
}
