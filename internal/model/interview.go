package model

import (
	"fmt"
	"time"
)

// SessionType selects how many questions a practice session gets and where
// they come from.
type SessionType string

const (
	SessionQuick           SessionType = "quick"
	SessionFull            SessionType = "full"
	SessionCompanySpecific SessionType = "company-specific"
)

// ParseSessionType converts a raw string to a SessionType.
func ParseSessionType(s string) (SessionType, error) {
	switch t := SessionType(s); t {
	case SessionQuick, SessionFull, SessionCompanySpecific:
		return t, nil
	}
	return "", fmt.Errorf("unknown session type %q", s)
}

// DefaultQuestionCount is the number of questions allocated when the
// request does not set one.
func (t SessionType) DefaultQuestionCount() int {
	switch t {
	case SessionQuick:
		return 5
	case SessionFull:
		return 10
	case SessionCompanySpecific:
		return 8
	}
	return 0
}

type Category string

const (
	CategoryBehavioral   Category = "behavioral"
	CategoryTechnical    Category = "technical"
	CategorySituational  Category = "situational"
	CategoryCultural     Category = "cultural"
	CategoryRoleSpecific Category = "role-specific"
)

// ParseCategory converts a raw string to a Category.
func ParseCategory(s string) (Category, error) {
	switch c := Category(s); c {
	case CategoryBehavioral, CategoryTechnical, CategorySituational, CategoryCultural, CategoryRoleSpecific:
		return c, nil
	}
	return "", fmt.Errorf("unknown question category %q", s)
}

// WantsSTAR reports whether answers in this category are expected to follow
// the Situation/Task/Action/Result structure.
func (c Category) WantsSTAR() bool {
	switch c {
	case CategoryBehavioral, CategorySituational:
		return true
	case CategoryTechnical, CategoryCultural, CategoryRoleSpecific:
		return false
	}
	return false
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty converts a raw string to a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(s); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

// DefaultTimeLimit is used when a bank entry does not carry its own limit.
func (d Difficulty) DefaultTimeLimit() int {
	switch d {
	case DifficultyEasy:
		return 120
	case DifficultyMedium:
		return 180
	case DifficultyHard:
		return 240
	}
	return 180
}

// Rank orders difficulties easy < medium < hard.
func (d Difficulty) Rank() int {
	switch d {
	case DifficultyEasy:
		return 0
	case DifficultyMedium:
		return 1
	case DifficultyHard:
		return 2
	}
	return 3
}

// STARGuidance gives a hint per STAR step for behavioral questions.
type STARGuidance struct {
	Situation string `json:"situation" yaml:"situation"`
	Task      string `json:"task" yaml:"task"`
	Action    string `json:"action" yaml:"action"`
	Result    string `json:"result" yaml:"result"`
}

// Question is read-only reference data from the question bank. Bookmarked is
// filled per caller and is the only user-mutable bit.
type Question struct {
	ID               string        `json:"id"`
	Text             string        `json:"text"`
	Category         Category      `json:"category"`
	Difficulty       Difficulty    `json:"difficulty"`
	Tips             []string      `json:"tips"`
	STARGuidance     *STARGuidance `json:"starGuidance,omitempty"`
	Tags             []string      `json:"tags"`
	TimeLimitSeconds int           `json:"timeLimitSeconds"`
	Bookmarked       bool          `json:"bookmarked"`
}

// Answer is one submitted response inside a practice session.
type Answer struct {
	QuestionID  string    `json:"questionId"`
	Text        string    `json:"text"`
	AudioURL    string    `json:"audioUrl,omitempty"`
	VideoURL    string    `json:"videoUrl,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// QuestionFeedback is the per-question part of SessionFeedback.
type QuestionFeedback struct {
	QuestionID string `json:"questionId"`
	Score      int    `json:"score"`
	Feedback   string `json:"feedback"`
}

// SessionFeedback is produced once, atomically, when a session completes.
type SessionFeedback struct {
	OverallScore int                `json:"overallScore"`
	Strengths    []string           `json:"strengths"`
	Improvements []string           `json:"improvements"`
	Questions    []QuestionFeedback `json:"questions"`
}

// PracticeSession is a timed sequence of interview questions.
// Score, Feedback and CompletedAt are nil until completion and never change
// afterwards.
type PracticeSession struct {
	ID              string           `json:"id"`
	UserID          string           `json:"-"`
	Type            SessionType      `json:"type"`
	Company         string           `json:"company,omitempty"`
	Questions       []Question       `json:"questions"`
	Answers         []Answer         `json:"answers"`
	DurationSeconds int              `json:"duration"`
	StartedAt       time.Time        `json:"startedAt"`
	CompletedAt     *time.Time       `json:"completedAt"`
	Score           *int             `json:"score"`
	Feedback        *SessionFeedback `json:"feedback"`
}

// Completed reports whether the session has been finalised.
func (s *PracticeSession) Completed() bool {
	return s.CompletedAt != nil
}

// HasQuestion reports whether questionID is part of this session.
func (s *PracticeSession) HasQuestion(questionID string) bool {
	for _, q := range s.Questions {
		if q.ID == questionID {
			return true
		}
	}
	return false
}
