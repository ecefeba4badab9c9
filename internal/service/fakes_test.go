package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/sakif/careerdeck/internal/apperror"
	"github.com/sakif/careerdeck/internal/model"
	"github.com/sakif/careerdeck/internal/notify"
	"github.com/sakif/careerdeck/internal/repository"
)

// In-memory fakes for the repository interfaces. Hand-written rather than
// generated so each test can see exactly what the storage layer does and
// inject failures through the *Err fields.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// =========================================================================
// Users
// =========================================================================

type fakeUserRepo struct {
	users  map[string]*model.User
	byGHID map[int64]*model.User
	nextID int

	upsertErr  error
	getByIDErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[string]*model.User),
		byGHID: make(map[int64]*model.User),
	}
}

func (f *fakeUserRepo) Upsert(ctx context.Context, user *model.User) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if existing, ok := f.byGHID[user.GitHubID]; ok {
		existing.Login = user.Login
		existing.Email = user.Email
		existing.AvatarURL = user.AvatarURL
		*user = *existing
		return nil
	}
	if err := f.CreateUser(ctx, user); err != nil {
		return err
	}
	f.byGHID[user.GitHubID] = f.users[user.ID]
	return nil
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *model.User) error {
	if user.PasswordHash != "" {
		for _, u := range f.users {
			if u.PasswordHash != "" && u.Email == user.Email {
				return apperror.Conflict("an account with this email already exists")
			}
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	if user.Role == "" {
		user.Role = model.RoleMember
	}
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if f.getByIDErr != nil {
		return nil, f.getByIDErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email && u.PasswordHash != "" {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

// =========================================================================
// Matches
// =========================================================================

type fakeMatchRepo struct {
	mu      sync.Mutex
	jobs    map[string]model.Job
	matches []*model.Match
	nextID  int

	markErr error
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{jobs: make(map[string]model.Job)}
}

func (f *fakeMatchRepo) UpsertJob(_ context.Context, job *model.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.ID] = *job
	return nil
}

func (f *fakeMatchRepo) CreateMatch(_ context.Context, m *model.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.matches {
		if existing.MemberID == m.MemberID && existing.Job.ID == m.Job.ID {
			return apperror.Conflict("match already exists")
		}
	}
	f.nextID++
	m.ID = fmt.Sprintf("match-%d", f.nextID)
	m.CreatedAt = time.Now().Add(time.Duration(f.nextID) * time.Millisecond)
	copied := *m
	f.matches = append(f.matches, &copied)
	return nil
}

func (f *fakeMatchRepo) ListActive(_ context.Context, memberID string, opts repository.ListOptions) ([]model.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Match
	for _, m := range f.matches {
		if m.MemberID == memberID && m.Status == model.MatchActive {
			out = append(out, *m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MatchScore != out[j].MatchScore {
			return out[i].MatchScore > out[j].MatchScore
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if opts.Offset >= len(out) {
		return []model.Match{}, nil
	}
	out = out[opts.Offset:]
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *fakeMatchRepo) GetByJob(_ context.Context, memberID, jobID string) (*model.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.matches {
		if m.MemberID == memberID && m.Job.ID == jobID {
			copied := *m
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("match for job", jobID)
}

func (f *fakeMatchRepo) SetStatus(_ context.Context, matchID string, from, to model.MatchStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.matches {
		if m.ID == matchID {
			if m.Status != from {
				return apperror.Conflict("match status changed")
			}
			m.Status = to
			return nil
		}
	}
	return apperror.NotFound("match", matchID)
}

func (f *fakeMatchRepo) PendingNotifications(_ context.Context, minScore, limit int) ([]model.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Match
	for _, m := range f.matches {
		if m.Status == model.MatchActive && m.NotifiedAt == nil && m.MatchScore >= minScore {
			out = append(out, *m)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMatchRepo) MarkNotified(_ context.Context, matchID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	for _, m := range f.matches {
		if m.ID == matchID {
			m.NotifiedAt = &at
			return nil
		}
	}
	return apperror.NotFound("match", matchID)
}

// fakePublisher records events and fails for match IDs listed in failFor.
type fakePublisher struct {
	mu      sync.Mutex
	events  []notify.MatchEvent
	failFor map[string]bool
}

func (p *fakePublisher) Publish(_ context.Context, ev notify.MatchEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failFor[ev.MatchID] {
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, ev)
	return nil
}

// =========================================================================
// Interview
// =========================================================================

type fakeInterviewRepo struct {
	questions []model.Question
	bookmarks map[string]bool // userID + "/" + questionID
	sessions  map[string]*model.PracticeSession
	nextID    int

	createErr error
}

func newFakeInterviewRepo(questions ...model.Question) *fakeInterviewRepo {
	return &fakeInterviewRepo{
		questions: questions,
		bookmarks: make(map[string]bool),
		sessions:  make(map[string]*model.PracticeSession),
	}
}

func (f *fakeInterviewRepo) UpsertQuestion(_ context.Context, q *model.Question) error {
	f.questions = append(f.questions, *q)
	return nil
}

func (f *fakeInterviewRepo) ListQuestions(_ context.Context, userID string, fl repository.QuestionFilter) ([]model.Question, error) {
	out := []model.Question{}
	for _, q := range f.questions {
		if fl.Category != "" && q.Category != fl.Category {
			continue
		}
		if fl.Difficulty != "" && q.Difficulty != fl.Difficulty {
			continue
		}
		if fl.Tag != "" && !hasTag(q, fl.Tag) {
			continue
		}
		q.Bookmarked = f.bookmarks[userID+"/"+q.ID]
		out = append(out, q)
	}
	return out, nil
}

func (f *fakeInterviewRepo) GetQuestion(_ context.Context, id string) (*model.Question, error) {
	for _, q := range f.questions {
		if q.ID == id {
			return &q, nil
		}
	}
	return nil, apperror.NotFound("question", id)
}

func (f *fakeInterviewRepo) ToggleBookmark(_ context.Context, userID, questionID string) (bool, error) {
	key := userID + "/" + questionID
	f.bookmarks[key] = !f.bookmarks[key]
	return f.bookmarks[key], nil
}

func (f *fakeInterviewRepo) CreateSession(_ context.Context, s *model.PracticeSession) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	s.ID = fmt.Sprintf("ps-%d", f.nextID)
	copied := *s
	copied.Answers = append([]model.Answer{}, s.Answers...)
	f.sessions[s.ID] = &copied
	return nil
}

func (f *fakeInterviewRepo) GetSession(_ context.Context, id string) (*model.PracticeSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, apperror.NotFound("practice session", id)
	}
	copied := *s
	copied.Answers = append([]model.Answer{}, s.Answers...)
	return &copied, nil
}

func (f *fakeInterviewRepo) ListSessions(_ context.Context, userID string, _ repository.ListOptions) ([]model.PracticeSession, error) {
	out := []model.PracticeSession{}
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeInterviewRepo) SaveAnswer(_ context.Context, sessionID string, a *model.Answer) error {
	s := f.sessions[sessionID]
	if s.Completed() {
		return apperror.Conflict("practice session already completed")
	}
	for i := range s.Answers {
		if s.Answers[i].QuestionID == a.QuestionID {
			s.Answers[i] = *a
			return nil
		}
	}
	s.Answers = append(s.Answers, *a)
	return nil
}

func (f *fakeInterviewRepo) DeleteAnswer(_ context.Context, sessionID, questionID string) error {
	s := f.sessions[sessionID]
	if s.Completed() {
		return apperror.Conflict("practice session already completed")
	}
	s.Answers = slices.DeleteFunc(s.Answers, func(a model.Answer) bool { return a.QuestionID == questionID })
	return nil
}

func (f *fakeInterviewRepo) CompleteSession(_ context.Context, sessionID string, fb *model.SessionFeedback, duration int, at time.Time) error {
	s, ok := f.sessions[sessionID]
	if !ok {
		return apperror.NotFound("practice session", sessionID)
	}
	if s.CompletedAt != nil {
		return apperror.Conflict("practice session is already completed")
	}
	score := fb.OverallScore
	s.Score = &score
	s.Feedback = fb
	s.DurationSeconds = duration
	s.CompletedAt = &at
	return nil
}

// stubFeedback returns a fixed score and records what it was given.
type stubFeedback struct {
	score     int
	err       error
	gotAnswer int
}

func (g *stubFeedback) Generate(_ context.Context, _ []model.Question, answers []model.Answer) (*model.SessionFeedback, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.gotAnswer = len(answers)
	return &model.SessionFeedback{OverallScore: g.score, Strengths: []string{}, Improvements: []string{}}, nil
}

// =========================================================================
// Coaching
// =========================================================================

type fakeCoachingRepo struct {
	coaches  map[string]*model.Coach
	bookings []*model.CoachingSession
	nextID   int
}

func newFakeCoachingRepo(coaches ...model.Coach) *fakeCoachingRepo {
	f := &fakeCoachingRepo{coaches: make(map[string]*model.Coach)}
	for i := range coaches {
		c := coaches[i]
		f.coaches[c.ID] = &c
	}
	return f
}

func (f *fakeCoachingRepo) UpsertCoach(_ context.Context, c *model.Coach) error {
	copied := *c
	f.coaches[c.ID] = &copied
	return nil
}

func (f *fakeCoachingRepo) ListCoaches(_ context.Context) ([]model.Coach, error) {
	out := []model.Coach{}
	for _, c := range f.coaches {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeCoachingRepo) GetCoach(_ context.Context, id string) (*model.Coach, error) {
	c, ok := f.coaches[id]
	if !ok {
		return nil, apperror.NotFound("coach", id)
	}
	copied := *c
	return &copied, nil
}

func (f *fakeCoachingRepo) ScheduledOn(_ context.Context, coachID, date string) ([]model.CoachingSession, error) {
	out := []model.CoachingSession{}
	for _, b := range f.bookings {
		if b.CoachID == coachID && b.Date == date && b.Status == model.CoachingScheduled {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeCoachingRepo) CreateBooking(ctx context.Context, s *model.CoachingSession) error {
	start, err := model.ParseClock(s.Time)
	if err != nil {
		return apperror.ValidationFailed("time", err.Error())
	}
	booked, _ := f.ScheduledOn(ctx, s.CoachID, s.Date)
	if overlapsAny(start, s.Duration, booked) {
		return apperror.Conflict("the selected time is no longer available")
	}
	f.nextID++
	s.ID = fmt.Sprintf("cs-%d", f.nextID)
	s.Status = model.CoachingScheduled
	copied := *s
	f.bookings = append(f.bookings, &copied)
	return nil
}

func (f *fakeCoachingRepo) GetBooking(_ context.Context, id string) (*model.CoachingSession, error) {
	for _, b := range f.bookings {
		if b.ID == id {
			copied := *b
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("coaching session", id)
}

func (f *fakeCoachingRepo) ListBookingsByUser(_ context.Context, userID string) ([]model.CoachingSession, error) {
	out := []model.CoachingSession{}
	for _, b := range f.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeCoachingRepo) SetBookingStatus(_ context.Context, id string, from, to model.CoachingStatus) error {
	for _, b := range f.bookings {
		if b.ID == id {
			if b.Status != from {
				return apperror.Conflict("coaching session is no longer " + string(from))
			}
			b.Status = to
			return nil
		}
	}
	return apperror.NotFound("coaching session", id)
}

// =========================================================================
// Goals, references, flags
// =========================================================================

type fakeGoalRepo struct {
	goals  map[string]*model.CareerGoal
	nextID int
}

func newFakeGoalRepo() *fakeGoalRepo {
	return &fakeGoalRepo{goals: make(map[string]*model.CareerGoal)}
}

func (f *fakeGoalRepo) CreateGoal(_ context.Context, g *model.CareerGoal) error {
	f.nextID++
	g.ID = fmt.Sprintf("goal-%d", f.nextID)
	copied := *g
	f.goals[g.ID] = &copied
	return nil
}

func (f *fakeGoalRepo) GetGoal(_ context.Context, id string) (*model.CareerGoal, error) {
	g, ok := f.goals[id]
	if !ok {
		return nil, apperror.NotFound("goal", id)
	}
	copied := *g
	return &copied, nil
}

func (f *fakeGoalRepo) ListGoals(_ context.Context, userID string) ([]model.CareerGoal, error) {
	out := []model.CareerGoal{}
	for _, g := range f.goals {
		if g.UserID == userID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (f *fakeGoalRepo) UpdateGoal(_ context.Context, g *model.CareerGoal) error {
	if _, ok := f.goals[g.ID]; !ok {
		return apperror.NotFound("goal", g.ID)
	}
	copied := *g
	f.goals[g.ID] = &copied
	return nil
}

func (f *fakeGoalRepo) DeleteGoal(_ context.Context, id string) error {
	if _, ok := f.goals[id]; !ok {
		return apperror.NotFound("goal", id)
	}
	delete(f.goals, id)
	return nil
}

type fakeReferenceRepo struct {
	refs     map[string]*model.Reference
	nextID   int
	countErr error
}

func newFakeReferenceRepo() *fakeReferenceRepo {
	return &fakeReferenceRepo{refs: make(map[string]*model.Reference)}
}

func (f *fakeReferenceRepo) CreateReference(_ context.Context, r *model.Reference) error {
	f.nextID++
	r.ID = fmt.Sprintf("ref-%d", f.nextID)
	copied := *r
	f.refs[r.ID] = &copied
	return nil
}

func (f *fakeReferenceRepo) GetReference(_ context.Context, id string) (*model.Reference, error) {
	r, ok := f.refs[id]
	if !ok {
		return nil, apperror.NotFound("reference", id)
	}
	copied := *r
	return &copied, nil
}

func (f *fakeReferenceRepo) ListReferences(_ context.Context, userID string) ([]model.Reference, error) {
	out := []model.Reference{}
	for _, r := range f.refs {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReferenceRepo) UpdateReference(_ context.Context, r *model.Reference) error {
	copied := *r
	f.refs[r.ID] = &copied
	return nil
}

func (f *fakeReferenceRepo) DeleteReference(_ context.Context, id string) error {
	if _, ok := f.refs[id]; !ok {
		return apperror.NotFound("reference", id)
	}
	delete(f.refs, id)
	return nil
}

func (f *fakeReferenceRepo) CountReceived(_ context.Context, userID string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	n := 0
	for _, r := range f.refs {
		if r.UserID == userID && r.Status == model.ReferenceReceived {
			n++
		}
	}
	return n, nil
}

type fakeFlagRepo struct {
	flags map[string]*model.FeatureFlag
}

func newFakeFlagRepo() *fakeFlagRepo {
	return &fakeFlagRepo{flags: make(map[string]*model.FeatureFlag)}
}

func (f *fakeFlagRepo) ListFlags(_ context.Context) ([]model.FeatureFlag, error) {
	out := []model.FeatureFlag{}
	for _, fl := range f.flags {
		out = append(out, *fl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (f *fakeFlagRepo) GetFlag(_ context.Context, key string) (*model.FeatureFlag, error) {
	fl, ok := f.flags[key]
	if !ok {
		return nil, apperror.NotFound("feature flag", key)
	}
	copied := *fl
	return &copied, nil
}

func (f *fakeFlagRepo) SaveFlag(_ context.Context, fl *model.FeatureFlag) error {
	copied := *fl
	f.flags[fl.Key] = &copied
	return nil
}

func (f *fakeFlagRepo) DeleteFlag(_ context.Context, key string) error {
	if _, ok := f.flags[key]; !ok {
		return apperror.NotFound("feature flag", key)
	}
	delete(f.flags, key)
	return nil
}
