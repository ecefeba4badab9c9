package seed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/careerdeck/internal/model"
)

type recordingStore struct {
	questions []string
	coaches   []string
	failOn    string
}

func (s *recordingStore) UpsertQuestion(_ context.Context, q *model.Question) error {
	if q.ID == s.failOn {
		return errors.New("boom")
	}
	s.questions = append(s.questions, q.ID)
	return nil
}

func (s *recordingStore) UpsertCoach(_ context.Context, c *model.Coach) error {
	s.coaches = append(s.coaches, c.ID)
	return nil
}

func TestLoad_EmbeddedDataIsValid(t *testing.T) {
	data, err := Load("")
	require.NoError(t, err)

	// The full session type needs ten questions.
	assert.GreaterOrEqual(t, len(data.Questions), model.SessionFull.DefaultQuestionCount())
	assert.NotEmpty(t, data.Coaches)

	for _, q := range data.Questions {
		assert.Positive(t, q.TimeLimitSeconds, q.ID)
		if q.Category == model.CategoryBehavioral {
			assert.NotNil(t, q.STARGuidance, "behavioral question %s lacks STAR guidance", q.ID)
		}
	}
	for _, c := range data.Coaches {
		assert.NotEmpty(t, c.Weekdays, c.ID)
		assert.NotEmpty(t, c.SessionTypes, c.ID)
	}
}

func TestLoad_MissingOverrideIgnored(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.NoError(t, err)
}

func TestLoad_OverrideReplacesBank(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
questions:
  - id: only
    text: The only question.
    category: technical
    difficulty: hard
`), 0o600))

	data, err := Load(path)
	require.NoError(t, err)
	require.Len(t, data.Questions, 1)
	assert.Equal(t, 240, data.Questions[0].TimeLimitSeconds, "difficulty default applies")
	assert.Equal(t, []string{}, data.Questions[0].Tags)
}

func TestParse_Rejects(t *testing.T) {
	validCoach := []byte(`coaches: []`)
	tests := []struct {
		name      string
		questions string
		coaches   string
	}{
		{"bad category", `questions: [{id: a, text: t, category: cooking, difficulty: easy}]`, string(validCoach)},
		{"bad difficulty", `questions: [{id: a, text: t, category: technical, difficulty: brutal}]`, string(validCoach)},
		{"duplicate id", `questions: [{id: a, text: t, category: technical, difficulty: easy}, {id: a, text: u, category: technical, difficulty: easy}]`, string(validCoach)},
		{"missing text", `questions: [{id: a, category: technical, difficulty: easy}]`, string(validCoach)},
		{"bad weekday", `questions: []`, `coaches: [{id: c, name: C, session_types: [video], work_start: "09:00", work_end: "10:00", weekdays: [funday]}]`},
		{"bad medium", `questions: []`, `coaches: [{id: c, name: C, session_types: [fax], work_start: "09:00", work_end: "10:00"}]`},
		{"window too short", `questions: []`, `coaches: [{id: c, name: C, session_types: [video], work_start: "09:00", work_end: "09:15"}]`},
		{"not yaml", `questions: [`, string(validCoach)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.questions), []byte(tt.coaches))
			assert.Error(t, err)
		})
	}
}

func TestParse_CoachWeekdays(t *testing.T) {
	data, err := Parse([]byte(`questions: []`), []byte(`
coaches:
  - id: c
    name: C
    session_types: [chat]
    work_start: "10:00"
    work_end: "12:00"
    weekdays: [Monday, friday]
`))
	require.NoError(t, err)
	require.Len(t, data.Coaches, 1)
	assert.Equal(t, []time.Weekday{time.Monday, time.Friday}, data.Coaches[0].Weekdays)
	assert.Equal(t, []model.SessionMedium{model.MediumChat}, data.Coaches[0].SessionTypes)
}

func TestApply(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	data := &Data{
		Questions: []model.Question{{ID: "q1"}, {ID: "q2"}},
		Coaches:   []model.Coach{{ID: "c1"}},
	}

	store := &recordingStore{}
	require.NoError(t, Apply(context.Background(), store, data, logger))
	assert.Equal(t, []string{"q1", "q2"}, store.questions)
	assert.Equal(t, []string{"c1"}, store.coaches)

	failing := &recordingStore{failOn: "q2"}
	err := Apply(context.Background(), failing, data, logger)
	assert.ErrorContains(t, err, "q2")
}
