package model

import (
	"fmt"
	"time"
)

// SessionMedium is how a coaching session is held.
type SessionMedium string

const (
	MediumVideo SessionMedium = "video"
	MediumAudio SessionMedium = "audio"
	MediumChat  SessionMedium = "chat"
)

// ParseSessionMedium converts a raw string to a SessionMedium.
func ParseSessionMedium(s string) (SessionMedium, error) {
	switch m := SessionMedium(s); m {
	case MediumVideo, MediumAudio, MediumChat:
		return m, nil
	}
	return "", fmt.Errorf("unknown session type %q", s)
}

// AllowedDurations are the only coaching session lengths, in minutes.
var AllowedDurations = []int{30, 60, 90}

// ValidDuration reports whether minutes is one of AllowedDurations.
func ValidDuration(minutes int) bool {
	for _, d := range AllowedDurations {
		if d == minutes {
			return true
		}
	}
	return false
}

// SlotMinutes is the granularity of coach availability.
const SlotMinutes = 30

// Coach offers bookable sessions inside a daily window on given weekdays.
// WorkStart and WorkEnd are "HH:MM" in the server's time zone.
type Coach struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Headline     string          `json:"headline"`
	Specialties  []string        `json:"specialties"`
	SessionTypes []SessionMedium `json:"sessionTypes"`
	HourlyRate   int             `json:"hourlyRate"`
	WorkStart    string          `json:"workStart"`
	WorkEnd      string          `json:"workEnd"`
	Weekdays     []time.Weekday  `json:"weekdays"`
}

// Offers reports whether the coach advertises the given medium.
func (c *Coach) Offers(m SessionMedium) bool {
	for _, t := range c.SessionTypes {
		if t == m {
			return true
		}
	}
	return false
}

// WorksOn reports whether the coach takes bookings on d.
func (c *Coach) WorksOn(d time.Weekday) bool {
	for _, w := range c.Weekdays {
		if w == d {
			return true
		}
	}
	return false
}

// TimeSlot is one bookable start time on a given date.
type TimeSlot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// CoachingStatus is the lifecycle of a booked session.
//
//	scheduled ──► completed
//	    └───────► cancelled
type CoachingStatus string

const (
	CoachingScheduled CoachingStatus = "scheduled"
	CoachingCompleted CoachingStatus = "completed"
	CoachingCancelled CoachingStatus = "cancelled"
)

var coachingTransitions = map[CoachingStatus][]CoachingStatus{
	CoachingScheduled: {CoachingCompleted, CoachingCancelled},
}

// ParseCoachingStatus converts a raw string to a CoachingStatus.
func ParseCoachingStatus(s string) (CoachingStatus, error) {
	switch st := CoachingStatus(s); st {
	case CoachingScheduled, CoachingCompleted, CoachingCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown coaching status %q", s)
}

// CanTransition reports whether a coaching session may move from → to.
func (from CoachingStatus) CanTransition(to CoachingStatus) bool {
	for _, s := range coachingTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CoachingSession is a confirmed booking. Date is "YYYY-MM-DD", Time is
// "HH:MM", Duration is minutes.
type CoachingSession struct {
	ID        string         `json:"id"`
	CoachID   string         `json:"coachId"`
	UserID    string         `json:"-"`
	Date      string         `json:"date"`
	Time      string         `json:"time"`
	Duration  int            `json:"duration"`
	Type      SessionMedium  `json:"type"`
	Topic     string         `json:"topic,omitempty"`
	Status    CoachingStatus `json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// ParseClock converts "HH:MM" to minutes after midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock is the inverse of ParseClock.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Overlaps reports whether [aStart, aStart+aLen) and [bStart, bStart+bLen)
// intersect. All values are minutes.
func Overlaps(aStart, aLen, bStart, bLen int) bool {
	return aStart < bStart+bLen && bStart < aStart+aLen
}
