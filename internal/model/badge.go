package model

import "time"

// TrustBadge is a cosmetic tier shown next to a profile.
type TrustBadge string

const (
	BadgeNew         TrustBadge = "new"
	BadgeBasic       TrustBadge = "basic"
	BadgeEstablished TrustBadge = "established"
	BadgeTrusted     TrustBadge = "trusted"
	BadgeVerified    TrustBadge = "verified"
)

// Label is the display text for the badge.
func (b TrustBadge) Label() string {
	switch b {
	case BadgeNew:
		return "New member"
	case BadgeBasic:
		return "Basic"
	case BadgeEstablished:
		return "Established"
	case BadgeTrusted:
		return "Trusted"
	case BadgeVerified:
		return "Verified"
	}
	return "Unknown"
}

// TrustBadgeFor derives the badge from account age and received references.
// A linked GitHub identity plus two received references is "verified".
func TrustBadgeFor(u *User, receivedReferences int, now time.Time) TrustBadge {
	age := now.Sub(u.CreatedAt)
	switch {
	case u.GitHubID != 0 && receivedReferences >= 2:
		return BadgeVerified
	case receivedReferences >= 2:
		return BadgeTrusted
	case age >= 90*24*time.Hour || receivedReferences == 1:
		return BadgeEstablished
	case age >= 7*24*time.Hour:
		return BadgeBasic
	default:
		return BadgeNew
	}
}
