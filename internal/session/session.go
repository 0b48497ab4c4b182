// Package session signs users in and out and runs authenticated calls,
// refreshing the access token once when the server rejects it.
package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/duetapp/duet/internal/api"
	"github.com/duetapp/duet/internal/auth"
	"github.com/duetapp/duet/internal/errors"
	"github.com/duetapp/duet/internal/profile"
	"github.com/duetapp/duet/internal/workspace"
)

var (
	// ErrNotLoggedIn is returned by Do when no access token is held.
	ErrNotLoggedIn = stderrors.New("session: not logged in")
	// ErrSessionExpired is returned when the refresh token was rejected and
	// the session has been cleared.
	ErrSessionExpired = stderrors.New("session: expired, sign in again")
	// ErrInvalidCredentials wraps credential validation failures.
	ErrInvalidCredentials = stderrors.New("session: invalid credentials")
)

// DefaultRefreshSkew is how close to expiry a token is refreshed before use.
const DefaultRefreshSkew = 30 * time.Second

var validate = validator.New(validator.WithRequiredStructEnabled())

// API is the part of the backend client the manager needs.
type API interface {
	Login(ctx context.Context, creds api.Credentials) (api.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (api.Tokens, error)
	Logout(ctx context.Context, accessToken string) error
	Me(ctx context.Context, accessToken string) (api.User, error)
	Workspaces(ctx context.Context, accessToken string) ([]workspace.Workspace, error)
}

type Config struct {
	API        API
	Auth       *auth.Store
	Profile    *profile.Store
	Workspaces *workspace.Store
	Logger     zerolog.Logger
	// OnSignOut runs after the session stores are cleared, to reset the
	// remaining user data.
	OnSignOut   func(ctx context.Context)
	RefreshSkew time.Duration
	Now         func() time.Time
}

type Manager struct {
	cfg Config
	log zerolog.Logger

	refreshMu sync.Mutex
}

func New(cfg Config) *Manager {
	if cfg.RefreshSkew <= 0 {
		cfg.RefreshSkew = DefaultRefreshSkew
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{cfg: cfg, log: cfg.Logger.With().Str("component", "session").Logger()}
}

// Login validates creds, signs in and stores tokens and profile. A failed
// workspace sync after a successful sign-in is logged, not returned.
func (m *Manager) Login(ctx context.Context, creds api.Credentials) error {
	creds.Email = strings.TrimSpace(creds.Email)
	if err := validate.Struct(creds); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	out, err := m.cfg.API.Login(ctx, creds)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	m.cfg.Auth.SetTokens(out.AccessToken, out.RefreshToken)
	m.cfg.Profile.Set(toProfile(out.User))
	m.log.Info().Str("user_id", out.User.ID).Msg("signed in")

	if err := m.SyncWorkspaces(ctx); err != nil {
		m.log.Warn().Err(err).Msg("workspace sync after login failed")
	}
	return nil
}

// Logout revokes the session server-side (best effort) and clears local
// user state.
func (m *Manager) Logout(ctx context.Context) {
	if tok := m.cfg.Auth.Get().AccessToken; tok != "" {
		if err := m.cfg.API.Logout(ctx, tok); err != nil {
			m.log.Warn().Err(err).Msg("server logout failed, clearing locally")
		}
	}
	m.signOut(ctx)
	m.log.Info().Msg("signed out")
}

// Do runs fn with the current access token. A token close to expiry is
// refreshed first. If fn fails with 401 the token is refreshed once and fn
// retried once; if the refresh token is rejected the session is cleared and
// ErrSessionExpired returned.
func (m *Manager) Do(ctx context.Context, fn func(ctx context.Context, accessToken string) error) error {
	tok := m.cfg.Auth.Get().AccessToken
	if tok == "" {
		return ErrNotLoggedIn
	}

	// At most one refresh per call; a failed proactive one is not repeated.
	var proactiveErr error
	if exp, ok := auth.TokenExpiry(tok); ok && m.cfg.Now().Add(m.cfg.RefreshSkew).After(exp) {
		fresh, err := m.refresh(ctx, tok)
		switch {
		case err == nil:
			tok = fresh
		case stderrors.Is(err, ErrSessionExpired):
			return err
		default:
			// The server may still accept the old token.
			m.log.Debug().Err(err).Msg("proactive refresh failed")
			proactiveErr = err
		}
	}

	err := fn(ctx, tok)
	if !errors.IsUnauthorized(err) {
		return err
	}
	if proactiveErr != nil {
		return proactiveErr
	}

	fresh, rerr := m.refresh(ctx, tok)
	if rerr != nil {
		return rerr
	}
	return fn(ctx, fresh)
}

// SyncProfile fetches the user and replaces the stored profile.
func (m *Manager) SyncProfile(ctx context.Context) error {
	return m.Do(ctx, func(ctx context.Context, tok string) error {
		u, err := m.cfg.API.Me(ctx, tok)
		if err != nil {
			return err
		}
		m.cfg.Profile.Set(toProfile(u))
		return nil
	})
}

// SyncWorkspaces fetches the workspace list and replaces the stored one.
func (m *Manager) SyncWorkspaces(ctx context.Context) error {
	return m.Do(ctx, func(ctx context.Context, tok string) error {
		list, err := m.cfg.API.Workspaces(ctx, tok)
		if err != nil {
			return err
		}
		m.cfg.Workspaces.SetWorkspaces(list)
		return nil
	})
}

// refresh exchanges the refresh token, once per stale access token: callers
// that lost the race reuse the token the winner obtained.
func (m *Manager) refresh(ctx context.Context, stale string) (string, error) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	cur := m.cfg.Auth.Get()
	if !cur.IsLoggedIn {
		return "", ErrSessionExpired
	}
	if cur.AccessToken != stale {
		return cur.AccessToken, nil
	}

	m.log.Debug().Msg("refreshing access token")
	tokens, err := m.cfg.API.Refresh(ctx, cur.RefreshToken)
	if err != nil {
		if errors.IsIrrecoverable(err) {
			m.log.Warn().Err(err).Msg("refresh token rejected, signing out")
			m.signOut(ctx)
			return "", fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}
		return "", fmt.Errorf("refresh: %w", err)
	}
	m.cfg.Auth.SetTokens(tokens.AccessToken, tokens.RefreshToken)
	return tokens.AccessToken, nil
}

func (m *Manager) signOut(ctx context.Context) {
	m.cfg.Auth.Clear()
	m.cfg.Profile.Clear()
	m.cfg.Workspaces.Clear()
	if m.cfg.OnSignOut != nil {
		m.cfg.OnSignOut(ctx)
	}
}

func toProfile(u api.User) profile.UserProfile {
	return profile.UserProfile{ID: u.ID, Name: u.Name, Email: u.Email, ProfileImage: u.ProfileImage}
}
