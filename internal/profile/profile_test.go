package profile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duetapp/duet/internal/kv"
)

func TestUpdates(t *testing.T) {
	s := New()
	assert.False(t, s.UpdateName("nobody"), "signed out")
	assert.Nil(t, s.Get().User)

	s.Set(UserProfile{ID: "u1", Name: "Mina", Email: "mina@example.com"})
	before := s.Get().User

	require.True(t, s.UpdateName("Mina K"))
	require.True(t, s.UpdateImage("file:///avatar.png"))
	assert.Equal(t, &UserProfile{ID: "u1", Name: "Mina K", Email: "mina@example.com", ProfileImage: "file:///avatar.png"}, s.Get().User)
	assert.Equal(t, "Mina", before.Name, "earlier snapshots are never mutated")

	s.Clear()
	assert.Nil(t, s.Get().User)
}

func TestPersist_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	s := New()
	p := s.Persist(ctx, mem)
	s.Set(UserProfile{ID: "u1", Name: "Mina"})
	require.NoError(t, p.Flush(ctx))
	p.Detach()

	restored := New()
	restored.Persist(ctx, mem).Detach()
	assert.Equal(t, s.Get(), restored.Get())
}
