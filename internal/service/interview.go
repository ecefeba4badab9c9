package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/sakif/careerdeck/internal/apperror"
	"github.com/sakif/careerdeck/internal/model"
	"github.com/sakif/careerdeck/internal/repository"
)

const (
	MaxQuestionCount = 20
	MaxAnswerLength  = 10000
	MaxCompanyLength = 100
)

// FeedbackGenerator turns a finished session into scored feedback. The
// default is feedback.Generator; a model-backed one can be swapped in.
type FeedbackGenerator interface {
	Generate(ctx context.Context, questions []model.Question, answers []model.Answer) (*model.SessionFeedback, error)
}

// InterviewService runs practice sessions over the question bank.
type InterviewService struct {
	repo     repository.InterviewRepository
	feedback FeedbackGenerator
	logger   *slog.Logger
	now      func() time.Time
}

// NewInterviewService creates a new InterviewService.
func NewInterviewService(repo repository.InterviewRepository, feedback FeedbackGenerator, logger *slog.Logger) *InterviewService {
	return &InterviewService{
		repo:     repo,
		feedback: feedback,
		logger:   logger,
		now:      time.Now,
	}
}

// Questions lists the bank with the caller's bookmarks. userID may be empty.
func (s *InterviewService) Questions(ctx context.Context, userID string, f repository.QuestionFilter) ([]model.Question, error) {
	f.Tag = strings.ToLower(strings.TrimSpace(f.Tag))
	return s.repo.ListQuestions(ctx, userID, f)
}

// ToggleBookmark flips the caller's bookmark on a question.
func (s *InterviewService) ToggleBookmark(ctx context.Context, userID, questionID string) (bool, error) {
	questionID, err := requireID("questionId", questionID)
	if err != nil {
		return false, err
	}
	if _, err := s.repo.GetQuestion(ctx, questionID); err != nil {
		return false, err
	}
	return s.repo.ToggleBookmark(ctx, userID, questionID)
}

// StartRequest configures a new practice session. Zero QuestionCount means
// the type's default.
type StartRequest struct {
	Type          model.SessionType
	Categories    []model.Category
	QuestionCount int
	Company       string
}

// StartSession allocates questions and opens a session.
//
// Selection is deterministic. For company-specific sessions, questions
// tagged with the company come first. The rest are taken round-robin
// across categories, easiest first inside each category, so a short
// session still spans several kinds of question.
func (s *InterviewService) StartSession(ctx context.Context, userID string, req StartRequest) (*model.PracticeSession, error) {
	typ, err := model.ParseSessionType(string(req.Type))
	if err != nil {
		return nil, apperror.ValidationFailed("type", "type must be quick, full or company-specific")
	}

	count := req.QuestionCount
	if count == 0 {
		count = typ.DefaultQuestionCount()
	}
	if count < 1 || count > MaxQuestionCount {
		return nil, apperror.ValidationFailed("questionCount",
			fmt.Sprintf("questionCount must be between 1 and %d", MaxQuestionCount))
	}

	company, err := checkLength("company", req.Company, MaxCompanyLength, typ == model.SessionCompanySpecific)
	if err != nil {
		return nil, err
	}

	wanted := make(map[model.Category]bool, len(req.Categories))
	for _, c := range req.Categories {
		if _, err := model.ParseCategory(string(c)); err != nil {
			return nil, apperror.ValidationFailed("categories", err.Error())
		}
		wanted[c] = true
	}

	bank, err := s.repo.ListQuestions(ctx, userID, repository.QuestionFilter{})
	if err != nil {
		return nil, fmt.Errorf("loading question bank: %w", err)
	}

	var pool []model.Question
	for _, q := range bank {
		if len(wanted) == 0 || wanted[q.Category] {
			q.Bookmarked = false
			pool = append(pool, q)
		}
	}

	chosen := selectQuestions(pool, count, companyTag(company))
	if len(chosen) == 0 {
		return nil, apperror.ValidationFailed("categories", "no questions match the requested categories")
	}

	session := &model.PracticeSession{
		UserID:    userID,
		Type:      typ,
		Company:   company,
		Questions: chosen,
		Answers:   []model.Answer{},
		StartedAt: s.now(),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		s.logger.Error("failed to create practice session", slog.String("error", err.Error()))
		return nil, fmt.Errorf("creating practice session: %w", err)
	}

	s.logger.Info("practice session started",
		slog.String("sessionID", session.ID),
		slog.String("type", string(typ)),
		slog.Int("questions", len(chosen)),
	)
	return session, nil
}

// companyTag turns "Acme Corp" into the tag form "acme-corp".
func companyTag(company string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(company)), " ", "-")
}

func selectQuestions(pool []model.Question, count int, tag string) []model.Question {
	var first, rest []model.Question
	for _, q := range pool {
		if tag != "" && hasTag(q, tag) {
			first = append(first, q)
		} else {
			rest = append(rest, q)
		}
	}
	sortByDifficulty(first)

	chosen := make([]model.Question, 0, count)
	for _, q := range first {
		if len(chosen) == count {
			return chosen
		}
		chosen = append(chosen, q)
	}

	// Group the remainder by category, keeping category order stable.
	var order []model.Category
	groups := make(map[model.Category][]model.Question)
	for _, q := range rest {
		if _, ok := groups[q.Category]; !ok {
			order = append(order, q.Category)
		}
		groups[q.Category] = append(groups[q.Category], q)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	for _, c := range order {
		sortByDifficulty(groups[c])
	}

	for len(chosen) < count {
		progressed := false
		for _, c := range order {
			if len(groups[c]) == 0 {
				continue
			}
			chosen = append(chosen, groups[c][0])
			groups[c] = groups[c][1:]
			progressed = true
			if len(chosen) == count {
				break
			}
		}
		if !progressed {
			break
		}
	}
	return chosen
}

func sortByDifficulty(qs []model.Question) {
	sort.SliceStable(qs, func(i, j int) bool {
		if qs[i].Difficulty.Rank() != qs[j].Difficulty.Rank() {
			return qs[i].Difficulty.Rank() < qs[j].Difficulty.Rank()
		}
		return qs[i].ID < qs[j].ID
	})
}

func hasTag(q model.Question, tag string) bool {
	for _, t := range q.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// SubmitAnswer stores (or replaces) the answer to one question.
func (s *InterviewService) SubmitAnswer(ctx context.Context, userID, sessionID string, a model.Answer) error {
	session, err := s.owned(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if session.Completed() {
		return apperror.Conflict("practice session is already completed")
	}
	if !session.HasQuestion(a.QuestionID) {
		return apperror.ValidationFailed("questionId", "question is not part of this session")
	}

	a.Text = strings.TrimSpace(a.Text)
	if a.Text == "" && a.AudioURL == "" && a.VideoURL == "" {
		return apperror.ValidationFailed("text", "answer text is required")
	}
	if len(a.Text) > MaxAnswerLength {
		return apperror.ValidationFailed("text", fmt.Sprintf("answer must be %d characters or less", MaxAnswerLength))
	}
	a.SubmittedAt = s.now()

	if err := s.repo.SaveAnswer(ctx, session.ID, &a); err != nil {
		return fmt.Errorf("saving answer: %w", err)
	}
	return nil
}

// ClearAnswer removes the answer to one question, for a member who deleted
// what they had typed. Clearing an unanswered question is a no-op.
func (s *InterviewService) ClearAnswer(ctx context.Context, userID, sessionID, questionID string) error {
	session, err := s.owned(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if session.Completed() {
		return apperror.Conflict("practice session is already completed")
	}
	if !session.HasQuestion(questionID) {
		return apperror.ValidationFailed("questionId", "question is not part of this session")
	}
	if err := s.repo.DeleteAnswer(ctx, session.ID, questionID); err != nil {
		return fmt.Errorf("clearing answer: %w", err)
	}
	return nil
}

// Complete scores the session and freezes it. A second call is a Conflict.
func (s *InterviewService) Complete(ctx context.Context, userID, sessionID string) (*model.SessionFeedback, error) {
	session, err := s.owned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Completed() {
		return nil, apperror.Conflict("practice session is already completed")
	}

	fb, err := s.feedback.Generate(ctx, session.Questions, session.Answers)
	if err != nil {
		s.logger.Error("feedback generation failed",
			slog.String("sessionID", session.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("generating feedback: %w", err)
	}

	now := s.now()
	duration := int(now.Sub(session.StartedAt).Seconds())
	if duration < 0 {
		duration = 0
	}
	if err := s.repo.CompleteSession(ctx, session.ID, fb, duration, now); err != nil {
		return nil, err
	}

	s.logger.Info("practice session completed",
		slog.String("sessionID", session.ID),
		slog.Int("score", fb.OverallScore),
		slog.Int("answered", len(session.Answers)),
	)
	return fb, nil
}

// Get returns one of the caller's sessions.
func (s *InterviewService) Get(ctx context.Context, userID, sessionID string) (*model.PracticeSession, error) {
	return s.owned(ctx, userID, sessionID)
}

// List returns the caller's session history, newest first.
func (s *InterviewService) List(ctx context.Context, userID string, limit, offset int) ([]model.PracticeSession, error) {
	return s.repo.ListSessions(ctx, userID, listOptions(limit, offset))
}

// owned loads a session and hides other members' sessions behind NotFound.
func (s *InterviewService) owned(ctx context.Context, userID, sessionID string) (*model.PracticeSession, error) {
	sessionID, err := requireID("sessionId", sessionID)
	if err != nil {
		return nil, err
	}
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, apperror.NotFound("practice session", sessionID)
	}
	return session, nil
}
