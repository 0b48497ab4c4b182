// Package auth holds the signed-in session tokens.
package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/duetapp/duet/internal/keys"
	"github.com/duetapp/duet/internal/kv"
	"github.com/duetapp/duet/internal/persist"
	"github.com/duetapp/duet/internal/store"
)

// Session is the persisted token pair. IsLoggedIn is true exactly when an
// access token is present.
type Session struct {
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	IsLoggedIn   bool   `json:"isLoggedIn"`
}

// Store owns the Session.
type Store struct {
	state *store.Store[Session]
}

// New returns a signed-out store.
func New() *Store {
	return &Store{state: store.New(func() Session { return Session{} })}
}

func (s *Store) Get() Session { return s.state.Get() }

func (s *Store) Subscribe(fn store.Listener[Session]) func() { return s.state.Subscribe(fn) }

// Persist rehydrates the session and keeps it under keys.Auth. A blob that
// claims to be logged in without a token is normalised on load.
func (s *Store) Persist(ctx context.Context, engine kv.KV, opts ...persist.Option) *persist.Persister[Session] {
	strategy := persist.SnapshotOf(
		func(st Session) Session { return st },
		func(_ Session, st Session) Session { return newSession(st.AccessToken, st.RefreshToken) },
	)
	return persist.Attach(ctx, s.state, engine, keys.Auth, strategy, opts...)
}

// SetTokens stores a fresh token pair. An empty access token signs out.
func (s *Store) SetTokens(access, refresh string) {
	s.state.Replace(newSession(access, refresh))
}

// Clear signs out.
func (s *Store) Clear() { s.state.Reset() }

// IsLoggedIn reports whether an access token is held.
func (s *Store) IsLoggedIn() bool { return s.state.Get().IsLoggedIn }

// ExpiresAt reads the exp claim of the access token. The signature is not
// checked; the server remains the authority.
func (s *Store) ExpiresAt() (time.Time, bool) {
	return TokenExpiry(s.state.Get().AccessToken)
}

// TokenExpiry extracts exp from a JWT without verifying it.
func TokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func newSession(access, refresh string) Session {
	if access == "" {
		return Session{}
	}
	return Session{AccessToken: access, RefreshToken: refresh, IsLoggedIn: true}
}
