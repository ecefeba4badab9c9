// Package model defines the data structures used throughout the application.
package model

import (
	"fmt"
	"time"
)

// Role controls access to admin-only routes (feature flags, coaching
// session completion).
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// ParseRole converts a raw string to a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleMember, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// User represents a registered account.
//
// An account is created either through GitHub OAuth (GitHubID set) or through
// email/password registration (PasswordHash set). GitHubID is a pointer-free
// int64 where 0 means "not linked"; the DB stores it as NULL in that case so
// the UNIQUE constraint only applies to linked accounts.
//
// PasswordHash is never serialised: the `json:"-"` tag keeps the bcrypt hash
// out of every API response, including /api/me.
type User struct {
	ID           string    `json:"id"`
	GitHubID     int64     `json:"githubId,omitempty"`
	Login        string    `json:"login"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	AvatarURL    string    `json:"avatarUrl"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsAdmin reports whether the user may call admin routes.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
