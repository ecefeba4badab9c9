// Package auth issues and checks the credentials the API accepts.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. A member signs in, either through GitHub (/auth/github/login →
//     /auth/github/callback) or with email and password (/auth/login).
//  2. The server issues a signed JWT carrying the member's ID and role.
//  3. Browsers get it as an HttpOnly "token" cookie; API clients (careerctl,
//     mobile) receive it in the JSON body and send it back as
//     "Authorization: Bearer <token>".
//  4. Middleware validates either form and puts the identity in the request
//     context.
//
// The token is stateless: the server verifies the HMAC signature with
// JWT_SECRET and never looks the token up.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "careerdeck"

// DefaultTokenTTL is how long an access token stays valid when the server
// config does not override it.
const DefaultTokenTTL = 24 * time.Hour

var (
	ErrTokenExpired = errors.New("auth: token expired")
	ErrTokenInvalid = errors.New("auth: invalid token")
)

// Identity is what a validated token tells us about the caller.
type Identity struct {
	UserID string
	Role   string
}

// TokenService signs and verifies access tokens with one HMAC secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. ttl <= 0 selects DefaultTokenTTL.
// Generate a production secret with: openssl rand -hex 32
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// claims is the JWT payload: the registered claims plus the member's role,
// so RequireAdmin does not need a database round-trip.
type claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TTL is the lifetime of tokens issued by Generate.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Generate signs an access token for userID with the service's TTL.
func (s *TokenService) Generate(userID, role string) (string, error) {
	return s.GenerateWithDuration(userID, role, s.ttl)
}

// GenerateWithDuration signs a token with a custom lifetime. Tests use a
// negative duration to produce an already-expired token.
func (s *TokenService) GenerateWithDuration(userID, role string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token and returns the identity it carries.
//
// Only HS256 is accepted, which rules out "alg: none" and key-confusion
// tricks. The issuer must be ours and an expiry must be present.
func (s *TokenService) Validate(tokenStr string) (Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("%w: bad claims", ErrTokenInvalid)
	}
	if c.Subject == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", ErrTokenInvalid)
	}

	return Identity{UserID: c.Subject, Role: c.Role}, nil
}
