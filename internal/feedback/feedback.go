// Package feedback scores a finished practice session.
//
// Generator is deterministic and rule based: the same answers always get
// the same score. It looks at three things per question:
//
//   - length band of the answer (too short, developing, solid, rambling)
//   - STAR coverage for behavioral and situational questions
//   - overlap with the question's tags for everything else
//
// The service layer depends on an interface, so a model-backed generator
// can replace this one without touching the interview flow.
package feedback

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/sakif/careerdeck/internal/model"
)

// Rule awards Weight when the answer contains any of the cue phrases.
type Rule struct {
	Tag    string
	Any    []string
	Weight int
}

// starRules detect the four STAR steps by their usual phrasing.
var starRules = []Rule{
	{Tag: "situation", Weight: 6, Any: []string{"when i was", "at my last", "at my previous", "the situation", "we were", "our team was", "context"}},
	{Tag: "task", Weight: 6, Any: []string{"my role", "i was responsible", "my task", "i needed to", "the goal was", "i had to"}},
	{Tag: "action", Weight: 6, Any: []string{"i decided", "i started", "i led", "i built", "i created", "i organized", "i proposed", "i spoke", "so i"}},
	{Tag: "result", Weight: 6, Any: []string{"as a result", "in the end", "which led to", "we reduced", "we increased", "outcome", "%", "saved", "improved"}},
}

const (
	tagMatchWeight = 8
	tagMatchCap    = 24
)

// lengthBand returns the base score for an answer of n words.
func lengthBand(n int) (score int, note string) {
	switch {
	case n < 20:
		return 20, "too short"
	case n < 60:
		return 45, "developing"
	case n < 150:
		return 65, "solid"
	case n <= 300:
		return 75, "thorough"
	default:
		return 60, "rambling"
	}
}

// Generator is the rule-based feedback generator.
type Generator struct{}

// New returns the rule-based generator.
func New() *Generator {
	return &Generator{}
}

// Generate scores every question in order. Questions without an answer (or
// with a blank one) score zero.
func (g *Generator) Generate(_ context.Context, questions []model.Question, answers []model.Answer) (*model.SessionFeedback, error) {
	byQuestion := make(map[string]model.Answer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	fb := &model.SessionFeedback{
		Strengths:    []string{},
		Improvements: []string{},
		Questions:    make([]model.QuestionFeedback, 0, len(questions)),
	}
	var strengths, improvements []string
	total := 0

	for _, q := range questions {
		a, ok := byQuestion[q.ID]
		text := strings.TrimSpace(a.Text)
		if !ok || (text == "" && a.AudioURL == "" && a.VideoURL == "") {
			fb.Questions = append(fb.Questions, model.QuestionFeedback{
				QuestionID: q.ID,
				Score:      0,
				Feedback:   "No answer was recorded for this question.",
			})
			improvements = append(improvements, "Answer every question, even briefly.")
			continue
		}

		qf, s, i := scoreAnswer(q, text)
		total += qf.Score
		fb.Questions = append(fb.Questions, qf)
		strengths = append(strengths, s...)
		improvements = append(improvements, i...)
	}

	if len(questions) > 0 {
		fb.OverallScore = int(math.Round(float64(total) / float64(len(questions))))
	}
	fb.Strengths = append(fb.Strengths, uniq(strengths)...)
	fb.Improvements = append(fb.Improvements, uniq(improvements)...)
	return fb, nil
}

func scoreAnswer(q model.Question, text string) (model.QuestionFeedback, []string, []string) {
	var strengths, improvements, notes []string
	lower := strings.ToLower(text)

	score, band := lengthBand(wordCount(text))
	switch band {
	case "too short":
		improvements = append(improvements, "Give fuller answers; aim for at least a minute of detail.")
		notes = append(notes, "The answer is very short.")
	case "rambling":
		improvements = append(improvements, "Tighten long answers around one clear example.")
		notes = append(notes, "The answer runs long.")
	case "solid", "thorough":
		strengths = append(strengths, "Answers are well developed.")
	}

	if q.Category.WantsSTAR() {
		hit := applyRules(lower, starRules)
		for _, r := range hit {
			score += r.Weight
		}
		switch {
		case len(hit) == len(starRules):
			strengths = append(strengths, "Uses the STAR structure clearly.")
			notes = append(notes, "Covers situation, task, action and result.")
		case len(hit) == 0:
			improvements = append(improvements, "Structure behavioral answers with STAR.")
			notes = append(notes, "Try framing this answer as Situation, Task, Action, Result.")
		default:
			missing := missingTags(hit, starRules)
			improvements = append(improvements, "Cover every STAR step, especially the "+missing[0]+".")
			notes = append(notes, "Missing STAR steps: "+strings.Join(missing, ", ")+".")
		}
	} else {
		matched := 0
		for _, tag := range q.Tags {
			if mentionsTag(lower, tag) {
				matched++
			}
		}
		score += min(matched*tagMatchWeight, tagMatchCap)
		if matched > 0 {
			strengths = append(strengths, "Uses relevant terminology.")
		} else if len(q.Tags) > 0 {
			improvements = append(improvements, "Reference the key concepts the question is probing.")
			notes = append(notes, "Consider mentioning: "+strings.Join(q.Tags, ", ")+".")
		}
	}

	score = max(0, min(score, 100))
	if len(notes) == 0 {
		notes = append(notes, "Good answer.")
	}
	return model.QuestionFeedback{
		QuestionID: q.ID,
		Score:      score,
		Feedback:   strings.Join(notes, " "),
	}, strengths, improvements
}

// applyRules returns the rules with at least one cue in text, in rule order.
func applyRules(text string, rules []Rule) []Rule {
	var hit []Rule
	for _, r := range rules {
		for _, needle := range r.Any {
			if strings.Contains(text, needle) {
				hit = append(hit, r)
				break
			}
		}
	}
	return hit
}

func missingTags(hit, all []Rule) []string {
	got := make(map[string]bool, len(hit))
	for _, r := range hit {
		got[r.Tag] = true
	}
	var out []string
	for _, r := range all {
		if !got[r.Tag] {
			out = append(out, r.Tag)
		}
	}
	return out
}

// mentionsTag matches "system-design" against "system design" too.
func mentionsTag(text, tag string) bool {
	tag = strings.ToLower(tag)
	if strings.Contains(text, tag) {
		return true
	}
	return strings.Contains(text, strings.ReplaceAll(tag, "-", " "))
}

func wordCount(s string) int {
	return len(strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == '.'
	}))
}

func uniq(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
