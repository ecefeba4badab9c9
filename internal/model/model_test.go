package model_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/careerdeck/internal/model"
)

// ── Match transitions ──────────────────────────────────────────────────────

func TestMatchStatus_Transitions(t *testing.T) {
	cases := []struct {
		from, to model.MatchStatus
		want     bool
	}{
		{model.MatchActive, model.MatchDismissed, true},
		{model.MatchActive, model.MatchApplied, true},
		{model.MatchDismissed, model.MatchActive, false},
		{model.MatchApplied, model.MatchDismissed, false},
		{model.MatchDismissed, model.MatchApplied, false},
		{model.MatchActive, model.MatchActive, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.want {
			t.Errorf("CanTransition(%s → %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestParseMatchStatus_Invalid(t *testing.T) {
	_, err := model.ParseMatchStatus("archived")
	assert.Error(t, err)
}

// ── Coaching transitions ───────────────────────────────────────────────────

func TestCoachingStatus_TerminalStates(t *testing.T) {
	for _, terminal := range []model.CoachingStatus{model.CoachingCompleted, model.CoachingCancelled} {
		for _, to := range []model.CoachingStatus{model.CoachingScheduled, model.CoachingCompleted, model.CoachingCancelled} {
			assert.False(t, terminal.CanTransition(to), "%s → %s should be rejected", terminal, to)
		}
	}
	assert.True(t, model.CoachingScheduled.CanTransition(model.CoachingCancelled))
	assert.True(t, model.CoachingScheduled.CanTransition(model.CoachingCompleted))
}

func TestValidDuration(t *testing.T) {
	for _, d := range []int{30, 60, 90} {
		assert.True(t, model.ValidDuration(d), "duration %d", d)
	}
	for _, d := range []int{0, 15, 45, 120, -30} {
		assert.False(t, model.ValidDuration(d), "duration %d", d)
	}
}

func TestCoach_OffersAndWorksOn(t *testing.T) {
	c := model.Coach{
		SessionTypes: []model.SessionMedium{model.MediumVideo, model.MediumChat},
		Weekdays:     []time.Weekday{time.Monday, time.Wednesday},
	}
	assert.True(t, c.Offers(model.MediumVideo))
	assert.False(t, c.Offers(model.MediumAudio))
	assert.True(t, c.WorksOn(time.Wednesday))
	assert.False(t, c.WorksOn(time.Sunday))
}

// ── Goals and references ───────────────────────────────────────────────────

func TestGoalStatus_Transitions(t *testing.T) {
	assert.True(t, model.GoalActive.CanTransition(model.GoalCompleted))
	assert.True(t, model.GoalCompleted.CanTransition(model.GoalActive))
	assert.True(t, model.GoalCancelled.CanTransition(model.GoalCancelled))
	assert.False(t, model.GoalCancelled.CanTransition(model.GoalActive))
}

func TestReferenceStatus_Transitions(t *testing.T) {
	assert.True(t, model.ReferencePending.CanTransition(model.ReferenceRequested))
	assert.False(t, model.ReferencePending.CanTransition(model.ReferenceReceived))
	assert.True(t, model.ReferenceRequested.CanTransition(model.ReferenceDeclined))
	assert.False(t, model.ReferenceDeclined.CanTransition(model.ReferenceRequested))
}

// ── Interview enums ────────────────────────────────────────────────────────

func TestSessionType_DefaultQuestionCount(t *testing.T) {
	assert.Equal(t, 5, model.SessionQuick.DefaultQuestionCount())
	assert.Equal(t, 10, model.SessionFull.DefaultQuestionCount())
	assert.Equal(t, 8, model.SessionCompanySpecific.DefaultQuestionCount())
}

func TestParseCategory(t *testing.T) {
	for _, s := range []string{"behavioral", "technical", "situational", "cultural", "role-specific"} {
		got, err := model.ParseCategory(s)
		assert.NoError(t, err)
		assert.Equal(t, s, string(got))
	}
	_, err := model.ParseCategory("trivia")
	assert.Error(t, err)
}

// ── Feature flags ──────────────────────────────────────────────────────────

func TestFeatureFlag_EnabledFor(t *testing.T) {
	off := model.FeatureFlag{Key: "resume-builder", Enabled: false, RolloutPercent: 100}
	assert.False(t, off.EnabledFor("u1"))

	full := model.FeatureFlag{Key: "resume-builder", Enabled: true, RolloutPercent: 100}
	assert.True(t, full.EnabledFor("u1"))

	zero := model.FeatureFlag{Key: "resume-builder", Enabled: true, RolloutPercent: 0}
	assert.False(t, zero.EnabledFor("u1"))
}

func TestFeatureFlag_RolloutIsStableAndPartial(t *testing.T) {
	f := model.FeatureFlag{Key: "social-feed", Enabled: true, RolloutPercent: 50}

	on := 0
	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("user-%d", i)
		first := f.EnabledFor(id)
		assert.Equal(t, first, f.EnabledFor(id), "bucket must be stable for %s", id)
		if first {
			on++
		}
	}
	assert.Greater(t, on, 300)
	assert.Less(t, on, 700)
}

// ── Trust badge ────────────────────────────────────────────────────────────

func TestTrustBadgeFor(t *testing.T) {
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	cases := []struct {
		name string
		user model.User
		refs int
		want model.TrustBadge
	}{
		{"brand new", model.User{CreatedAt: now.Add(-day)}, 0, model.BadgeNew},
		{"one week", model.User{CreatedAt: now.Add(-8 * day)}, 0, model.BadgeBasic},
		{"one reference", model.User{CreatedAt: now.Add(-day)}, 1, model.BadgeEstablished},
		{"old account", model.User{CreatedAt: now.Add(-100 * day)}, 0, model.BadgeEstablished},
		{"two references", model.User{CreatedAt: now}, 2, model.BadgeTrusted},
		{"github and references", model.User{GitHubID: 42, CreatedAt: now}, 3, model.BadgeVerified},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := model.TrustBadgeFor(&c.user, c.refs, now)
			assert.Equal(t, c.want, got)
			assert.NotEqual(t, "Unknown", got.Label())
		})
	}
}
