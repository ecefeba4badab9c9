package client

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"net/http"
	"sync"

	"github.com/sakif/careerdeck/internal/model"
)

// ErrNotLoggedIn is returned by Session calls that need a member.
var ErrNotLoggedIn = errors.New("not logged in")

// Profile is the caller as returned by /api/me.
type Profile struct {
	model.User
	Badge      model.TrustBadge `json:"badge"`
	BadgeLabel string           `json:"badgeLabel"`
}

// Session holds everything that is scoped to one signed-in member: the
// bearer token, the profile and the feature-flag cache. It starts signed
// out; Login or LoginWithToken fill it and Logout empties it again.
// Components receive the Session (or its API) at construction instead of
// reaching for globals.
type Session struct {
	api    *Client
	logger *slog.Logger

	mu      sync.RWMutex
	profile *Profile
	flags   map[string]bool
}

// NewSession returns a signed-out session over api.
func NewSession(api *Client, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{api: api, logger: logger}
}

// API is the client the session authenticates.
func (s *Session) API() *Client { return s.api }

// Login signs in with email and password.
func (s *Session) Login(ctx context.Context, email, password string) error {
	var res authResponse
	err := s.api.do(ctx, http.MethodPost, "/auth/login", nil, credentials{Email: email, Password: password}, &res)
	if err != nil {
		return err
	}
	return s.LoginWithToken(ctx, res.Token)
}

// Register creates a password account and signs in with it.
func (s *Session) Register(ctx context.Context, email, password, login string) error {
	var res authResponse
	err := s.api.do(ctx, http.MethodPost, "/auth/register", nil,
		credentials{Email: email, Password: password, Login: login}, &res)
	if err != nil {
		return err
	}
	return s.LoginWithToken(ctx, res.Token)
}

// LoginWithToken adopts an existing token, loads the profile and primes the
// flag cache. On failure the session is left signed out.
func (s *Session) LoginWithToken(ctx context.Context, token string) error {
	s.api.SetToken(token)

	var p Profile
	if err := s.api.do(ctx, http.MethodGet, "/api/me", nil, nil, &p); err != nil {
		s.reset()
		return err
	}
	flags, err := s.api.EvaluateFlags(ctx)
	if err != nil {
		s.reset()
		return err
	}

	s.mu.Lock()
	s.profile = &p
	s.flags = flags
	s.mu.Unlock()

	s.logger.Info("signed in", slog.String("userID", p.ID), slog.Int("flags", len(flags)))
	return nil
}

// Logout tells the server to drop the cookie and clears local state. The
// local state is cleared even when the server call fails.
func (s *Session) Logout(ctx context.Context) error {
	err := s.api.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
	s.reset()
	if err != nil {
		s.logger.Warn("logout request failed", slog.String("error", err.Error()))
	}
	return err
}

func (s *Session) reset() {
	s.api.SetToken("")
	s.mu.Lock()
	s.profile = nil
	s.flags = nil
	s.mu.Unlock()
}

// RefreshFlags reloads the flag cache.
func (s *Session) RefreshFlags(ctx context.Context) error {
	if !s.LoggedIn() {
		return ErrNotLoggedIn
	}
	flags, err := s.api.EvaluateFlags(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.flags = flags
	s.mu.Unlock()
	return nil
}

// LoggedIn reports whether a profile is loaded.
func (s *Session) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile != nil
}

// Profile returns a copy of the signed-in member, or nil.
func (s *Session) Profile() *Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil
	}
	p := *s.profile
	return &p
}

// Enabled reports a cached flag. Unknown flags and signed-out sessions are off.
func (s *Session) Enabled(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags[key]
}

// Flags returns a copy of the flag cache.
func (s *Session) Flags() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.flags)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Login    string `json:"login,omitempty"`
}

type authResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}
