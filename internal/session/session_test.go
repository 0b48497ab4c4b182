package session

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duetapp/duet/internal/api"
	"github.com/duetapp/duet/internal/auth"
	"github.com/duetapp/duet/internal/errors"
	"github.com/duetapp/duet/internal/profile"
	"github.com/duetapp/duet/internal/workspace"
)

type fakeAPI struct {
	mu          sync.Mutex
	refreshErr  error
	refreshes   atomic.Int32
	logouts     atomic.Int32
	nextAccess  string
	workspaces  []workspace.Workspace
	loginErr    error
	validTokens map[string]bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{nextAccess: "a2", validTokens: map[string]bool{}}
}

func (f *fakeAPI) accept(tok string) {
	f.mu.Lock()
	f.validTokens[tok] = true
	f.mu.Unlock()
}

func (f *fakeAPI) ok(tok string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validTokens[tok]
}

func (f *fakeAPI) Login(_ context.Context, creds api.Credentials) (api.LoginResponse, error) {
	if f.loginErr != nil {
		return api.LoginResponse{}, f.loginErr
	}
	f.accept("a1")
	return api.LoginResponse{
		Tokens: api.Tokens{AccessToken: "a1", RefreshToken: "r1"},
		User:   api.User{ID: "u1", Name: "Mina", Email: creds.Email},
	}, nil
}

func (f *fakeAPI) Refresh(_ context.Context, refresh string) (api.Tokens, error) {
	f.refreshes.Add(1)
	time.Sleep(5 * time.Millisecond)
	if f.refreshErr != nil {
		return api.Tokens{}, f.refreshErr
	}
	f.accept(f.nextAccess)
	return api.Tokens{AccessToken: f.nextAccess, RefreshToken: "r2"}, nil
}

func (f *fakeAPI) Logout(context.Context, string) error {
	f.logouts.Add(1)
	return nil
}

func (f *fakeAPI) Me(_ context.Context, tok string) (api.User, error) {
	if !f.ok(tok) {
		return api.User{}, errors.NewHTTPError(401, "", "get profile")
	}
	return api.User{ID: "u1", Name: "Mina Kim"}, nil
}

func (f *fakeAPI) Workspaces(_ context.Context, tok string) ([]workspace.Workspace, error) {
	if !f.ok(tok) {
		return nil, errors.NewHTTPError(401, "", "list workspaces")
	}
	return f.workspaces, nil
}

type harness struct {
	m         *Manager
	api       *fakeAPI
	auth      *auth.Store
	profile   *profile.Store
	ws        *workspace.Store
	signedOut atomic.Int32
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{api: newFakeAPI(), auth: auth.New(), profile: profile.New(), ws: workspace.New()}
	h.m = New(Config{
		API:        h.api,
		Auth:       h.auth,
		Profile:    h.profile,
		Workspaces: h.ws,
		Logger:     zerolog.Nop(),
		OnSignOut:  func(context.Context) { h.signedOut.Add(1) },
	})
	return h
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	h.api.workspaces = []workspace.Workspace{{ID: "w1", Name: "Us"}}

	err := h.m.Login(context.Background(), api.Credentials{Email: "bad", Password: "longenough"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	err = h.m.Login(context.Background(), api.Credentials{Email: "mina@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.False(t, h.auth.IsLoggedIn())

	require.NoError(t, h.m.Login(context.Background(), api.Credentials{Email: " mina@example.com ", Password: "longenough"}))
	assert.Equal(t, auth.Session{AccessToken: "a1", RefreshToken: "r1", IsLoggedIn: true}, h.auth.Get())
	assert.Equal(t, "mina@example.com", h.profile.Get().User.Email)
	assert.Equal(t, "w1", h.ws.Get().CurrentWorkspaceID)
}

func TestLogin_ServerRejects(t *testing.T) {
	h := newHarness(t)
	h.api.loginErr = errors.NewHTTPError(401, "", "login")
	err := h.m.Login(context.Background(), api.Credentials{Email: "mina@example.com", Password: "longenough"})
	assert.True(t, errors.IsUnauthorized(err))
	assert.False(t, h.auth.IsLoggedIn())
}

func TestDo_NotLoggedIn(t *testing.T) {
	h := newHarness(t)
	err := h.m.Do(context.Background(), func(context.Context, string) error {
		t.Fatal("fn must not run")
		return nil
	})
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestDo_RefreshesOnceAndRetries(t *testing.T) {
	h := newHarness(t)
	h.auth.SetTokens("stale", "r1")

	var seen []string
	err := h.m.Do(context.Background(), func(_ context.Context, tok string) error {
		seen = append(seen, tok)
		if !h.api.ok(tok) {
			return errors.NewHTTPError(401, "", "call")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"stale", "a2"}, seen)
	assert.Equal(t, int32(1), h.api.refreshes.Load())
	assert.Equal(t, auth.Session{AccessToken: "a2", RefreshToken: "r2", IsLoggedIn: true}, h.auth.Get())
}

func TestDo_SecondUnauthorizedIsReturned(t *testing.T) {
	h := newHarness(t)
	h.auth.SetTokens("stale", "r1")

	calls := 0
	err := h.m.Do(context.Background(), func(context.Context, string) error {
		calls++
		return errors.NewHTTPError(401, "", "call")
	})
	assert.True(t, errors.IsUnauthorized(err))
	assert.Equal(t, 2, calls, "retried exactly once")
	assert.True(t, h.auth.IsLoggedIn(), "refresh succeeded, so the session stays")
}

func TestDo_RejectedRefreshClearsSession(t *testing.T) {
	h := newHarness(t)
	h.auth.SetTokens("stale", "r1")
	h.profile.Set(profile.UserProfile{ID: "u1"})
	h.ws.Add(workspace.Workspace{ID: "w1"})
	h.api.refreshErr = errors.NewHTTPError(401, "", "refresh")

	err := h.m.SyncProfile(context.Background())
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, auth.Session{}, h.auth.Get())
	assert.Nil(t, h.profile.Get().User)
	assert.Empty(t, h.ws.Get().Workspaces)
	assert.Equal(t, int32(1), h.signedOut.Load())
}

func TestDo_TransientRefreshFailureKeepsSession(t *testing.T) {
	h := newHarness(t)
	h.auth.SetTokens("stale", "r1")
	h.api.refreshErr = errors.NewNetworkError("refresh", stderrors.New("offline"))

	err := h.m.SyncWorkspaces(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionExpired)
	assert.True(t, h.auth.IsLoggedIn())
	assert.Zero(t, h.signedOut.Load())
}

func TestDo_FailedProactiveRefreshIsNotRepeated(t *testing.T) {
	h := newHarness(t)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	h.m.cfg.Now = func() time.Time { return now }

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Second))})
	expiring, err := tok.SignedString([]byte("k"))
	require.NoError(t, err)
	h.auth.SetTokens(expiring, "r1")
	h.api.refreshErr = errors.NewHTTPError(503, "", "refresh")

	calls := 0
	err = h.m.Do(context.Background(), func(context.Context, string) error {
		calls++
		return errors.NewHTTPError(401, "", "call")
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int32(1), h.api.refreshes.Load())
	assert.Equal(t, 1, calls)
	assert.True(t, h.auth.IsLoggedIn())
}

func TestDo_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	h := newHarness(t)
	h.auth.SetTokens("stale", "r1")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.m.Do(context.Background(), func(_ context.Context, tok string) error {
				if !h.api.ok(tok) {
					return errors.NewHTTPError(401, "", "call")
				}
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), h.api.refreshes.Load())
}

func TestDo_ProactiveRefreshNearExpiry(t *testing.T) {
	h := newHarness(t)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	h.m.cfg.Now = func() time.Time { return now }

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Second))})
	expiring, err := tok.SignedString([]byte("k"))
	require.NoError(t, err)
	h.auth.SetTokens(expiring, "r1")

	var used string
	require.NoError(t, h.m.Do(context.Background(), func(_ context.Context, tok string) error {
		used = tok
		return nil
	}))
	assert.Equal(t, "a2", used)
	assert.Equal(t, int32(1), h.api.refreshes.Load())

	fresh := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))})
	long, _ := fresh.SignedString([]byte("k"))
	h.auth.SetTokens(long, "r1")
	require.NoError(t, h.m.Do(context.Background(), func(context.Context, string) error { return nil }))
	assert.Equal(t, int32(1), h.api.refreshes.Load(), "no refresh when far from expiry")
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.m.Login(context.Background(), api.Credentials{Email: "mina@example.com", Password: "longenough"}))

	h.m.Logout(context.Background())
	assert.Equal(t, int32(1), h.api.logouts.Load())
	assert.False(t, h.auth.IsLoggedIn())
	assert.Nil(t, h.profile.Get().User)
	assert.Equal(t, int32(1), h.signedOut.Load())

	h.m.Logout(context.Background())
	assert.Equal(t, int32(1), h.api.logouts.Load(), "no server call without a token")
}
