// Package profile holds the signed-in user's profile.
package profile

import (
	"context"

	"github.com/duetapp/duet/internal/keys"
	"github.com/duetapp/duet/internal/kv"
	"github.com/duetapp/duet/internal/persist"
	"github.com/duetapp/duet/internal/store"
)

// UserProfile is the single current user.
type UserProfile struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// State holds the profile; User is nil while signed out.
type State struct {
	User *UserProfile `json:"user"`
}

type Store struct {
	state *store.Store[State]
}

func New() *Store {
	return &Store{state: store.New(func() State { return State{} })}
}

func (s *Store) Get() State { return s.state.Get() }

func (s *Store) Subscribe(fn store.Listener[State]) func() { return s.state.Subscribe(fn) }

func (s *Store) Persist(ctx context.Context, engine kv.KV, opts ...persist.Option) *persist.Persister[State] {
	return persist.Attach(ctx, s.state, engine, keys.Profile, persist.Snapshot[State](), opts...)
}

// Set replaces the profile, typically after login or a profile fetch.
func (s *Store) Set(u UserProfile) {
	s.state.Replace(State{User: &u})
}

// UpdateName renames the user. It is a no-op while signed out.
func (s *Store) UpdateName(name string) bool {
	return s.update(func(u *UserProfile) { u.Name = name })
}

// UpdateImage changes the avatar. It is a no-op while signed out.
func (s *Store) UpdateImage(uri string) bool {
	return s.update(func(u *UserProfile) { u.ProfileImage = uri })
}

func (s *Store) Clear() { s.state.Reset() }

func (s *Store) update(fn func(*UserProfile)) bool {
	applied := false
	s.state.Set(func(st State) State {
		if st.User == nil {
			return st
		}
		next := *st.User
		fn(&next)
		applied = true
		return State{User: &next}
	})
	return applied
}
