package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrSessionExpired = errors.New("session expired, sign in again")

// Session is the credential bundle handed out by a SessionProvider.
type Session struct {
	AccessToken string
}

// SessionProvider returns the current session. A nil session with a nil
// error means nobody is signed in.
type SessionProvider interface {
	Session(ctx context.Context) (*Session, error)
}

// SessionFunc adapts a function to SessionProvider.
type SessionFunc func(ctx context.Context) (*Session, error)

func (f SessionFunc) Session(ctx context.Context) (*Session, error) {
	return f(ctx)
}

// TokenSession serves a single bearer token, typically read from the
// environment. JWTs are checked for expiry locally so an expired token never
// reaches the network; opaque tokens are passed through untouched.
type TokenSession struct {
	token string
	now   func() time.Time
}

func NewTokenSession(token string) *TokenSession {
	return &TokenSession{token: token, now: time.Now}
}

func (s *TokenSession) Session(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.token == "" {
		return nil, nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.token, claims); err == nil {
		exp, err := claims.GetExpirationTime()
		if err == nil && exp != nil && !s.now().Before(exp.Time) {
			return nil, ErrSessionExpired
		}
	}
	return &Session{AccessToken: s.token}, nil
}
