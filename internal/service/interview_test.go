package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/careerdeck/internal/apperror"
	"github.com/sakif/careerdeck/internal/model"
	"github.com/sakif/careerdeck/internal/repository"
)

// questionBank builds three questions per category with mixed difficulty,
// plus two tagged for acme.
func questionBank() []model.Question {
	cats := []model.Category{
		model.CategoryBehavioral, model.CategoryTechnical, model.CategorySituational,
		model.CategoryCultural, model.CategoryRoleSpecific,
	}
	diffs := []model.Difficulty{model.DifficultyHard, model.DifficultyEasy, model.DifficultyMedium}
	var out []model.Question
	for _, c := range cats {
		for i, d := range diffs {
			out = append(out, model.Question{
				ID:               fmt.Sprintf("%s-%d", c, i),
				Text:             "question",
				Category:         c,
				Difficulty:       d,
				Tags:             []string{},
				TimeLimitSeconds: d.DefaultTimeLimit(),
			})
		}
	}
	out = append(out,
		model.Question{ID: "acme-1", Category: model.CategoryTechnical, Difficulty: model.DifficultyHard, Tags: []string{"acme"}},
		model.Question{ID: "acme-2", Category: model.CategoryCultural, Difficulty: model.DifficultyEasy, Tags: []string{"Acme"}},
	)
	return out
}

func newTestInterviewService(repo *fakeInterviewRepo, fb FeedbackGenerator) *InterviewService {
	return NewInterviewService(repo, fb, testLogger())
}

func TestStartSession_DefaultCounts(t *testing.T) {
	tests := []struct {
		typ     model.SessionType
		company string
		want    int
	}{
		{model.SessionQuick, "", 5},
		{model.SessionFull, "", 10},
		{model.SessionCompanySpecific, "Acme", 8},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			svc := newTestInterviewService(newFakeInterviewRepo(questionBank()...), &stubFeedback{})

			s, err := svc.StartSession(context.Background(), "u1", StartRequest{Type: tt.typ, Company: tt.company})

			require.NoError(t, err)
			assert.Len(t, s.Questions, tt.want)
			assert.NotEmpty(t, s.ID)
			assert.False(t, s.Completed())
		})
	}
}

func TestStartSession_RoundRobinEasiestFirst(t *testing.T) {
	svc := newTestInterviewService(newFakeInterviewRepo(questionBank()...), &stubFeedback{})

	s, err := svc.StartSession(context.Background(), "u1", StartRequest{Type: model.SessionQuick})
	require.NoError(t, err)

	seen := map[model.Category]bool{}
	for _, q := range s.Questions {
		assert.False(t, seen[q.Category], "category %s picked twice before every category had one", q.Category)
		seen[q.Category] = true
		if q.ID != "acme-2" {
			assert.Equal(t, model.DifficultyEasy, q.Difficulty)
		}
	}
}

func TestStartSession_CompanyQuestionsFirst(t *testing.T) {
	svc := newTestInterviewService(newFakeInterviewRepo(questionBank()...), &stubFeedback{})

	s, err := svc.StartSession(context.Background(), "u1", StartRequest{
		Type:    model.SessionCompanySpecific,
		Company: " acme ",
	})

	require.NoError(t, err)
	assert.Equal(t, "acme", s.Company)
	assert.Equal(t, "acme-2", s.Questions[0].ID, "easy company question first")
	assert.Equal(t, "acme-1", s.Questions[1].ID)
}

func TestStartSession_CategoryFilter(t *testing.T) {
	svc := newTestInterviewService(newFakeInterviewRepo(questionBank()...), &stubFeedback{})

	s, err := svc.StartSession(context.Background(), "u1", StartRequest{
		Type:       model.SessionFull,
		Categories: []model.Category{model.CategoryBehavioral},
	})

	require.NoError(t, err)
	assert.Len(t, s.Questions, 3, "only three behavioral questions exist")
	for _, q := range s.Questions {
		assert.Equal(t, model.CategoryBehavioral, q.Category)
	}
}

func TestStartSession_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  StartRequest
	}{
		{"unknown type", StartRequest{Type: "marathon"}},
		{"count too large", StartRequest{Type: model.SessionQuick, QuestionCount: MaxQuestionCount + 1}},
		{"negative count", StartRequest{Type: model.SessionQuick, QuestionCount: -1}},
		{"company missing", StartRequest{Type: model.SessionCompanySpecific}},
		{"unknown category", StartRequest{Type: model.SessionQuick, Categories: []model.Category{"trivia"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestInterviewService(newFakeInterviewRepo(questionBank()...), &stubFeedback{})
			_, err := svc.StartSession(context.Background(), "u1", tt.req)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}
}

func TestStartSession_EmptyBank(t *testing.T) {
	svc := newTestInterviewService(newFakeInterviewRepo(), &stubFeedback{})

	_, err := svc.StartSession(context.Background(), "u1", StartRequest{Type: model.SessionQuick})

	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestStartSession_RepositoryError(t *testing.T) {
	repo := newFakeInterviewRepo(questionBank()...)
	repo.createErr = errors.New("database is on fire")
	svc := newTestInterviewService(repo, &stubFeedback{})

	_, err := svc.StartSession(context.Background(), "u1", StartRequest{Type: model.SessionQuick})

	assert.ErrorContains(t, err, "database is on fire")
}

func startQuick(t *testing.T, svc *InterviewService, user string) *model.PracticeSession {
	t.Helper()
	s, err := svc.StartSession(context.Background(), user, StartRequest{Type: model.SessionQuick})
	require.NoError(t, err)
	return s
}

func TestSubmitAnswer(t *testing.T) {
	repo := newFakeInterviewRepo(questionBank()...)
	svc := newTestInterviewService(repo, &stubFeedback{})
	s := startQuick(t, svc, "u1")
	qid := s.Questions[0].ID

	require.NoError(t, svc.SubmitAnswer(context.Background(), "u1", s.ID, model.Answer{QuestionID: qid, Text: " first "}))
	require.NoError(t, svc.SubmitAnswer(context.Background(), "u1", s.ID, model.Answer{QuestionID: qid, Text: "second"}))

	got, err := svc.Get(context.Background(), "u1", s.ID)
	require.NoError(t, err)
	require.Len(t, got.Answers, 1, "resubmitting replaces the answer")
	assert.Equal(t, "second", got.Answers[0].Text)
	assert.False(t, got.Answers[0].SubmittedAt.IsZero())
}

func TestSubmitAnswer_Errors(t *testing.T) {
	repo := newFakeInterviewRepo(questionBank()...)
	svc := newTestInterviewService(repo, &stubFeedback{})
	s := startQuick(t, svc, "u1")
	qid := s.Questions[0].ID

	tests := []struct {
		name    string
		user    string
		session string
		answer  model.Answer
		want    error
	}{
		{"other member", "u2", s.ID, model.Answer{QuestionID: qid, Text: "x"}, apperror.ErrNotFound},
		{"unknown session", "u1", "nope", model.Answer{QuestionID: qid, Text: "x"}, apperror.ErrNotFound},
		{"foreign question", "u1", s.ID, model.Answer{QuestionID: "acme-1", Text: "x"}, apperror.ErrValidation},
		{"blank answer", "u1", s.ID, model.Answer{QuestionID: qid, Text: "   "}, apperror.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.SubmitAnswer(context.Background(), tt.user, tt.session, tt.answer)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSubmitAnswer_MediaOnlyIsAccepted(t *testing.T) {
	svc := newTestInterviewService(newFakeInterviewRepo(questionBank()...), &stubFeedback{})
	s := startQuick(t, svc, "u1")

	err := svc.SubmitAnswer(context.Background(), "u1", s.ID, model.Answer{
		QuestionID: s.Questions[0].ID,
		AudioURL:   "https://cdn.example.com/a.webm",
	})

	assert.NoError(t, err)
}

func TestClearAnswer(t *testing.T) {
	repo := newFakeInterviewRepo(questionBank()...)
	svc := newTestInterviewService(repo, &stubFeedback{})
	s := startQuick(t, svc, "u1")
	qid := s.Questions[0].ID
	ctx := context.Background()

	require.NoError(t, svc.SubmitAnswer(ctx, "u1", s.ID, model.Answer{QuestionID: qid, Text: "draft"}))
	require.NoError(t, svc.ClearAnswer(ctx, "u1", s.ID, qid))
	require.NoError(t, svc.ClearAnswer(ctx, "u1", s.ID, qid), "clearing twice is a no-op")

	got, err := svc.Get(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Answers)

	assert.ErrorIs(t, svc.ClearAnswer(ctx, "u2", s.ID, qid), apperror.ErrNotFound)
	assert.ErrorIs(t, svc.ClearAnswer(ctx, "u1", s.ID, "acme-1"), apperror.ErrValidation)

	_, err = svc.Complete(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.ClearAnswer(ctx, "u1", s.ID, qid), apperror.ErrConflict)
	assert.ErrorIs(t, svc.SubmitAnswer(ctx, "u1", s.ID, model.Answer{QuestionID: qid, Text: "late"}), apperror.ErrConflict)
}

func TestComplete_FullQuickSession(t *testing.T) {
	repo := newFakeInterviewRepo(questionBank()...)
	fb := &stubFeedback{score: 72}
	svc := newTestInterviewService(repo, fb)
	start := time.Date(2030, 1, 7, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }
	s := startQuick(t, svc, "u1")

	for _, q := range s.Questions {
		require.NoError(t, svc.SubmitAnswer(context.Background(), "u1", s.ID, model.Answer{QuestionID: q.ID, Text: "answer"}))
	}
	svc.now = func() time.Time { return start.Add(4 * time.Minute) }

	got, err := svc.Complete(context.Background(), "u1", s.ID)
	require.NoError(t, err)
	assert.Equal(t, 72, got.OverallScore)
	assert.Equal(t, 5, fb.gotAnswer)

	stored, err := svc.Get(context.Background(), "u1", s.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Score)
	assert.Equal(t, 72, *stored.Score)
	assert.Equal(t, 240, stored.DurationSeconds)
}

func TestComplete_IsFinal(t *testing.T) {
	svc := newTestInterviewService(newFakeInterviewRepo(questionBank()...), &stubFeedback{score: 50})
	s := startQuick(t, svc, "u1")
	_, err := svc.Complete(context.Background(), "u1", s.ID)
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), "u1", s.ID)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	err = svc.SubmitAnswer(context.Background(), "u1", s.ID, model.Answer{QuestionID: s.Questions[0].ID, Text: "late"})
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestComplete_GeneratorFailureLeavesSessionOpen(t *testing.T) {
	fb := &stubFeedback{err: errors.New("model timeout")}
	svc := newTestInterviewService(newFakeInterviewRepo(questionBank()...), fb)
	s := startQuick(t, svc, "u1")

	_, err := svc.Complete(context.Background(), "u1", s.ID)
	require.Error(t, err)

	got, err := svc.Get(context.Background(), "u1", s.ID)
	require.NoError(t, err)
	assert.False(t, got.Completed())
}

func TestToggleBookmark(t *testing.T) {
	svc := newTestInterviewService(newFakeInterviewRepo(questionBank()...), &stubFeedback{})

	on, err := svc.ToggleBookmark(context.Background(), "u1", "acme-1")
	require.NoError(t, err)
	assert.True(t, on)

	qs, err := svc.Questions(context.Background(), "u1", repository.QuestionFilter{Tag: "ACME"})
	require.NoError(t, err)
	require.Len(t, qs, 2)
	for _, q := range qs {
		assert.Equal(t, q.ID == "acme-1", q.Bookmarked)
	}

	_, err = svc.ToggleBookmark(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
