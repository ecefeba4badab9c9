// Package repository declares the storage interfaces the service layer
// depends on. The sqlite subpackage implements all of them on one *DB.
package repository

import (
	"context"
	"time"

	"github.com/sakif/careerdeck/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	Upsert(ctx context.Context, user *model.User) error
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

type MatchRepository interface {
	// UpsertJob inserts or refreshes a job posting by ID.
	UpsertJob(ctx context.Context, job *model.Job) error
	// CreateMatch inserts a new pairing. Returns apperror.ErrConflict when the
	// member already has a match for the job.
	CreateMatch(ctx context.Context, m *model.Match) error
	// ListActive returns active matches ordered by score DESC, newest first on ties.
	ListActive(ctx context.Context, memberID string, opts ListOptions) ([]model.Match, error)
	GetByJob(ctx context.Context, memberID, jobID string) (*model.Match, error)
	SetStatus(ctx context.Context, matchID string, from, to model.MatchStatus) error
	// PendingNotifications returns active, un-notified matches with score >= minScore.
	PendingNotifications(ctx context.Context, minScore, limit int) ([]model.Match, error)
	MarkNotified(ctx context.Context, matchID string, at time.Time) error
}

type QuestionFilter struct {
	Category   model.Category
	Difficulty model.Difficulty
	Tag        string
}

type InterviewRepository interface {
	UpsertQuestion(ctx context.Context, q *model.Question) error
	ListQuestions(ctx context.Context, userID string, f QuestionFilter) ([]model.Question, error)
	GetQuestion(ctx context.Context, id string) (*model.Question, error)
	// ToggleBookmark flips the caller's bookmark and returns the new value.
	ToggleBookmark(ctx context.Context, userID, questionID string) (bool, error)

	CreateSession(ctx context.Context, s *model.PracticeSession) error
	GetSession(ctx context.Context, id string) (*model.PracticeSession, error)
	ListSessions(ctx context.Context, userID string, opts ListOptions) ([]model.PracticeSession, error)
	// SaveAnswer replaces any earlier answer for the same question.
	SaveAnswer(ctx context.Context, sessionID string, a *model.Answer) error
	// DeleteAnswer clears the answer to one question of an open session.
	DeleteAnswer(ctx context.Context, sessionID, questionID string) error
	// CompleteSession stores score and feedback once. Returns
	// apperror.ErrConflict if the session was already completed.
	CompleteSession(ctx context.Context, sessionID string, fb *model.SessionFeedback, durationSeconds int, at time.Time) error
}

type CoachingRepository interface {
	UpsertCoach(ctx context.Context, c *model.Coach) error
	ListCoaches(ctx context.Context) ([]model.Coach, error)
	GetCoach(ctx context.Context, id string) (*model.Coach, error)
	// ScheduledOn returns the coach's scheduled (not cancelled) sessions on date.
	ScheduledOn(ctx context.Context, coachID, date string) ([]model.CoachingSession, error)
	// CreateBooking inserts a session after re-checking overlap inside a
	// transaction. Returns apperror.ErrConflict when the time is taken.
	CreateBooking(ctx context.Context, s *model.CoachingSession) error
	GetBooking(ctx context.Context, id string) (*model.CoachingSession, error)
	ListBookingsByUser(ctx context.Context, userID string) ([]model.CoachingSession, error)
	SetBookingStatus(ctx context.Context, id string, from, to model.CoachingStatus) error
}

type GoalRepository interface {
	CreateGoal(ctx context.Context, g *model.CareerGoal) error
	GetGoal(ctx context.Context, id string) (*model.CareerGoal, error)
	ListGoals(ctx context.Context, userID string) ([]model.CareerGoal, error)
	UpdateGoal(ctx context.Context, g *model.CareerGoal) error
	DeleteGoal(ctx context.Context, id string) error
}

type ReferenceRepository interface {
	CreateReference(ctx context.Context, r *model.Reference) error
	GetReference(ctx context.Context, id string) (*model.Reference, error)
	ListReferences(ctx context.Context, userID string) ([]model.Reference, error)
	UpdateReference(ctx context.Context, r *model.Reference) error
	DeleteReference(ctx context.Context, id string) error
	CountReceived(ctx context.Context, userID string) (int, error)
}

type FeatureFlagRepository interface {
	ListFlags(ctx context.Context) ([]model.FeatureFlag, error)
	GetFlag(ctx context.Context, key string) (*model.FeatureFlag, error)
	// SaveFlag inserts or replaces the flag by key.
	SaveFlag(ctx context.Context, f *model.FeatureFlag) error
	DeleteFlag(ctx context.Context, key string) error
}
