package model

import (
	"fmt"
	"hash/fnv"
	"time"
)

// GoalStatus: active ──► completed | cancelled. Completed goals may be
// reopened; cancelled is terminal.
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalCancelled GoalStatus = "cancelled"
)

var goalTransitions = map[GoalStatus][]GoalStatus{
	GoalActive:    {GoalCompleted, GoalCancelled},
	GoalCompleted: {GoalActive},
}

func ParseGoalStatus(s string) (GoalStatus, error) {
	switch st := GoalStatus(s); st {
	case GoalActive, GoalCompleted, GoalCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown goal status %q", s)
}

// CanTransition reports whether a goal may move from → to. Staying in the
// same status is always allowed.
func (from GoalStatus) CanTransition(to GoalStatus) bool {
	if from == to {
		return true
	}
	for _, s := range goalTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CareerGoal is a member-owned goal with a 0–100 progress indicator.
type CareerGoal struct {
	ID          string     `json:"id"`
	UserID      string     `json:"-"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	TargetDate  string     `json:"targetDate,omitempty"`
	Progress    int        `json:"progress"`
	Status      GoalStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ReferenceStatus tracks a professional reference request.
//
//	pending ──► requested ──► received
//	                └───────► declined
type ReferenceStatus string

const (
	ReferencePending   ReferenceStatus = "pending"
	ReferenceRequested ReferenceStatus = "requested"
	ReferenceReceived  ReferenceStatus = "received"
	ReferenceDeclined  ReferenceStatus = "declined"
)

var referenceTransitions = map[ReferenceStatus][]ReferenceStatus{
	ReferencePending:   {ReferenceRequested},
	ReferenceRequested: {ReferenceReceived, ReferenceDeclined},
}

func ParseReferenceStatus(s string) (ReferenceStatus, error) {
	switch st := ReferenceStatus(s); st {
	case ReferencePending, ReferenceRequested, ReferenceReceived, ReferenceDeclined:
		return st, nil
	}
	return "", fmt.Errorf("unknown reference status %q", s)
}

func (from ReferenceStatus) CanTransition(to ReferenceStatus) bool {
	if from == to {
		return true
	}
	for _, s := range referenceTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Reference struct {
	ID           string          `json:"id"`
	UserID       string          `json:"-"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Relationship string          `json:"relationship"`
	Company      string          `json:"company"`
	Status       ReferenceStatus `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// FeatureFlag gates a feature globally (Enabled) and optionally for a
// percentage of users (RolloutPercent < 100).
type FeatureFlag struct {
	Key            string    `json:"key"`
	Description    string    `json:"description"`
	Enabled        bool      `json:"enabled"`
	RolloutPercent int       `json:"rolloutPercent"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// EnabledFor evaluates the flag for one user. The bucket is a stable hash of
// key+userID so a user keeps the same answer as the rollout grows.
func (f *FeatureFlag) EnabledFor(userID string) bool {
	if !f.Enabled {
		return false
	}
	if f.RolloutPercent >= 100 {
		return true
	}
	if f.RolloutPercent <= 0 {
		return false
	}
	h := fnv.New32a()
	h.Write([]byte(f.Key + ":" + userID))
	return int(h.Sum32()%100) < f.RolloutPercent
}
