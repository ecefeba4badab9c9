package model

import (
	"fmt"
	"time"
)

// Job is a posting the matching engine paired with a member.
// SalaryLow/SalaryHigh are annual amounts; 0 means "not disclosed".
type Job struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Location       string    `json:"location"`
	EmploymentType string    `json:"employmentType"`
	SalaryLow      int       `json:"salaryLow,omitempty"`
	SalaryHigh     int       `json:"salaryHigh,omitempty"`
	Company        string    `json:"company"`
	PostedAt       time.Time `json:"postedAt"`
}

// MatchStatus is the lifecycle of a pre-apply match.
//
//	active ──► dismissed
//	   └─────► applied
//
// dismissed and applied are terminal; the match leaves the active feed.
type MatchStatus string

const (
	MatchActive    MatchStatus = "active"
	MatchDismissed MatchStatus = "dismissed"
	MatchApplied   MatchStatus = "applied"
)

var matchTransitions = map[MatchStatus][]MatchStatus{
	MatchActive: {MatchDismissed, MatchApplied},
}

// ParseMatchStatus converts a raw string to a MatchStatus.
func ParseMatchStatus(s string) (MatchStatus, error) {
	switch st := MatchStatus(s); st {
	case MatchActive, MatchDismissed, MatchApplied:
		return st, nil
	}
	return "", fmt.Errorf("unknown match status %q", s)
}

// CanTransition reports whether a match may move from → to.
func (from MatchStatus) CanTransition(to MatchStatus) bool {
	for _, s := range matchTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Match is a server-computed pairing between a member and a job posting.
// MatchScore is 0–100. NotifiedAt is nil until the notification sweep has
// announced the match to the member.
type Match struct {
	ID         string      `json:"id"`
	MemberID   string      `json:"-"`
	MatchScore int         `json:"matchScore"`
	Job        Job         `json:"job"`
	Status     MatchStatus `json:"status"`
	NotifiedAt *time.Time  `json:"notifiedAt"`
	CreatedAt  time.Time   `json:"createdAt"`
}
