package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duetapp/duet/internal/keys"
	"github.com/duetapp/duet/internal/kv"
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestSetTokens_LoggedInFollowsAccessToken(t *testing.T) {
	s := New()
	assert.False(t, s.IsLoggedIn())

	s.SetTokens("a1", "r1")
	assert.Equal(t, Session{AccessToken: "a1", RefreshToken: "r1", IsLoggedIn: true}, s.Get())

	s.SetTokens("", "r2")
	assert.Equal(t, Session{}, s.Get(), "no access token means signed out, refresh dropped")

	s.SetTokens("a3", "r3")
	s.Clear()
	assert.Equal(t, Session{}, s.Get())
}

func TestExpiresAt(t *testing.T) {
	s := New()
	_, ok := s.ExpiresAt()
	assert.False(t, ok)

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	s.SetTokens(signed(t, exp), "r")
	got, ok := s.ExpiresAt()
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	s.SetTokens("not-a-jwt", "r")
	_, ok = s.ExpiresAt()
	assert.False(t, ok)
}

func TestPersist_RoundTripAndNormalise(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()

	s := New()
	p := s.Persist(ctx, mem)
	s.SetTokens("a1", "r1")
	require.NoError(t, p.Flush(ctx))
	p.Detach()

	restored := New()
	restored.Persist(ctx, mem.Reopen()).Detach()
	assert.Equal(t, s.Get(), restored.Get())

	require.NoError(t, mem.Set(ctx, keys.Auth.String(), `{"isLoggedIn":true}`))
	odd := New()
	odd.Persist(ctx, mem).Detach()
	assert.False(t, odd.IsLoggedIn())
}
