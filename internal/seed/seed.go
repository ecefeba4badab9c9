// Package seed loads the reference data the API serves read-only: the
// interview question bank and the coaching roster. Both ship embedded as
// YAML and are upserted on every start, so editing the files and restarting
// is the whole update workflow.
package seed

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sakif/careerdeck/internal/model"
)

//go:embed data/*.yaml
var embedded embed.FS

// Store is the subset of the repositories the seeder writes to.
type Store interface {
	UpsertQuestion(ctx context.Context, q *model.Question) error
	UpsertCoach(ctx context.Context, c *model.Coach) error
}

type questionFile struct {
	Questions []questionEntry `yaml:"questions"`
}

type questionEntry struct {
	ID         string              `yaml:"id"`
	Text       string              `yaml:"text"`
	Category   string              `yaml:"category"`
	Difficulty string              `yaml:"difficulty"`
	Tips       []string            `yaml:"tips"`
	Tags       []string            `yaml:"tags"`
	TimeLimit  int                 `yaml:"time_limit"`
	STAR       *model.STARGuidance `yaml:"star"`
}

type coachFile struct {
	Coaches []coachEntry `yaml:"coaches"`
}

type coachEntry struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Headline     string   `yaml:"headline"`
	Specialties  []string `yaml:"specialties"`
	SessionTypes []string `yaml:"session_types"`
	HourlyRate   int      `yaml:"hourly_rate"`
	WorkStart    string   `yaml:"work_start"`
	WorkEnd      string   `yaml:"work_end"`
	Weekdays     []string `yaml:"weekdays"`
}

// Data is the parsed, validated seed set.
type Data struct {
	Questions []model.Question
	Coaches   []model.Coach
}

// Load parses the embedded seed files. questionsOverride, when non-empty,
// names a YAML file that replaces the embedded question bank; a missing
// override file is ignored so a bad path never blocks startup.
func Load(questionsOverride string) (*Data, error) {
	qb, err := embedded.ReadFile("data/questions.yaml")
	if err != nil {
		return nil, fmt.Errorf("seed: reading embedded questions: %w", err)
	}
	if questionsOverride != "" {
		b, err := os.ReadFile(questionsOverride)
		switch {
		case err == nil:
			qb = b
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("seed: reading %s: %w", questionsOverride, err)
		}
	}
	cb, err := embedded.ReadFile("data/coaches.yaml")
	if err != nil {
		return nil, fmt.Errorf("seed: reading embedded coaches: %w", err)
	}
	return Parse(qb, cb)
}

// Parse decodes and validates raw question and coach YAML.
func Parse(questionsYAML, coachesYAML []byte) (*Data, error) {
	var qf questionFile
	if err := yaml.Unmarshal(questionsYAML, &qf); err != nil {
		return nil, fmt.Errorf("seed: parsing questions: %w", err)
	}
	var cf coachFile
	if err := yaml.Unmarshal(coachesYAML, &cf); err != nil {
		return nil, fmt.Errorf("seed: parsing coaches: %w", err)
	}

	data := &Data{}
	seen := make(map[string]bool, len(qf.Questions))
	for i, e := range qf.Questions {
		q, err := e.toModel()
		if err != nil {
			return nil, fmt.Errorf("seed: question #%d (%s): %w", i+1, e.ID, err)
		}
		if seen[q.ID] {
			return nil, fmt.Errorf("seed: duplicate question id %q", q.ID)
		}
		seen[q.ID] = true
		data.Questions = append(data.Questions, q)
	}
	for i, e := range cf.Coaches {
		c, err := e.toModel()
		if err != nil {
			return nil, fmt.Errorf("seed: coach #%d (%s): %w", i+1, e.ID, err)
		}
		data.Coaches = append(data.Coaches, c)
	}
	return data, nil
}

// Apply upserts every question and coach.
func Apply(ctx context.Context, store Store, data *Data, logger *slog.Logger) error {
	for i := range data.Questions {
		if err := store.UpsertQuestion(ctx, &data.Questions[i]); err != nil {
			return fmt.Errorf("seed: upserting question %s: %w", data.Questions[i].ID, err)
		}
	}
	for i := range data.Coaches {
		if err := store.UpsertCoach(ctx, &data.Coaches[i]); err != nil {
			return fmt.Errorf("seed: upserting coach %s: %w", data.Coaches[i].ID, err)
		}
	}
	logger.Info("seed data applied",
		slog.Int("questions", len(data.Questions)),
		slog.Int("coaches", len(data.Coaches)),
	)
	return nil
}

func (e questionEntry) toModel() (model.Question, error) {
	if e.ID == "" || strings.TrimSpace(e.Text) == "" {
		return model.Question{}, errors.New("id and text are required")
	}
	cat, err := model.ParseCategory(e.Category)
	if err != nil {
		return model.Question{}, err
	}
	diff, err := model.ParseDifficulty(e.Difficulty)
	if err != nil {
		return model.Question{}, err
	}
	limit := e.TimeLimit
	if limit <= 0 {
		limit = diff.DefaultTimeLimit()
	}
	tips, tags := e.Tips, e.Tags
	if tips == nil {
		tips = []string{}
	}
	if tags == nil {
		tags = []string{}
	}
	return model.Question{
		ID:               e.ID,
		Text:             strings.TrimSpace(e.Text),
		Category:         cat,
		Difficulty:       diff,
		Tips:             tips,
		STARGuidance:     e.STAR,
		Tags:             tags,
		TimeLimitSeconds: limit,
	}, nil
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func (e coachEntry) toModel() (model.Coach, error) {
	if e.ID == "" || e.Name == "" {
		return model.Coach{}, errors.New("id and name are required")
	}
	start, err := model.ParseClock(e.WorkStart)
	if err != nil {
		return model.Coach{}, fmt.Errorf("work_start: %w", err)
	}
	end, err := model.ParseClock(e.WorkEnd)
	if err != nil {
		return model.Coach{}, fmt.Errorf("work_end: %w", err)
	}
	if end-start < model.SlotMinutes {
		return model.Coach{}, fmt.Errorf("working window %s-%s is shorter than one slot", e.WorkStart, e.WorkEnd)
	}

	c := model.Coach{
		ID:          e.ID,
		Name:        e.Name,
		Headline:    e.Headline,
		Specialties: e.Specialties,
		HourlyRate:  e.HourlyRate,
		WorkStart:   e.WorkStart,
		WorkEnd:     e.WorkEnd,
	}
	if c.Specialties == nil {
		c.Specialties = []string{}
	}
	for _, raw := range e.SessionTypes {
		m, err := model.ParseSessionMedium(raw)
		if err != nil {
			return model.Coach{}, err
		}
		c.SessionTypes = append(c.SessionTypes, m)
	}
	if len(c.SessionTypes) == 0 {
		return model.Coach{}, errors.New("at least one session type is required")
	}
	for _, raw := range e.Weekdays {
		d, ok := weekdayNames[strings.ToLower(raw)]
		if !ok {
			return model.Coach{}, fmt.Errorf("unknown weekday %q", raw)
		}
		c.Weekdays = append(c.Weekdays, d)
	}
	return c, nil
}
