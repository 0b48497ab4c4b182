// Package chat holds workspace chat messages.
package chat

import (
	"context"
	"slices"
	"time"

	"github.com/duetapp/duet/internal/ids"
	"github.com/duetapp/duet/internal/keys"
	"github.com/duetapp/duet/internal/kv"
	"github.com/duetapp/duet/internal/persist"
	"github.com/duetapp/duet/internal/store"
)

type Message struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	SenderID    string    `json:"senderId"`
	Body        string    `json:"body"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	SentAt      time.Time `json:"sentAt"`
	Read        bool      `json:"read"`
}

type State struct {
	Messages []Message `json:"messages"`
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
	strategy := persist.Entities(
		func(st State) []Message { return st.Messages },
		func(st State, msgs []Message) State { st.Messages = msgs; return st },
		func(m Message) string { return m.ID },
	)
	return persist.Attach(ctx, s.state, engine, keys.Chat, strategy, opts...)
}

// Append adds m, filling in ID and SentAt when blank. A message whose ID is
// already known (a server echo of a local send) is ignored.
func (s *Store) Append(m Message) (Message, bool) {
	if m.ID == "" {
		m.ID = ids.New()
	}
	if m.SentAt.IsZero() {
		m.SentAt = time.Now().UTC()
	}
	added := false
	s.state.Set(func(st State) State {
		if slices.ContainsFunc(st.Messages, func(x Message) bool { return x.ID == m.ID }) {
			return st
		}
		st.Messages = append(slices.Clip(st.Messages), m)
		added = true
		return st
	})
	return m, added
}

func (s *Store) Remove(id string) bool {
	applied := false
	s.state.Set(func(st State) State {
		next := slices.DeleteFunc(slices.Clone(st.Messages), func(m Message) bool { return m.ID == id })
		if len(next) == len(st.Messages) {
			return st
		}
		st.Messages = next
		applied = true
		return st
	})
	return applied
}

// MarkRead marks every message in the workspace sent at or before upTo as
// read and returns how many changed.
func (s *Store) MarkRead(workspaceID string, upTo time.Time) int {
	changed := 0
	s.state.Set(func(st State) State {
		var next []Message
		for i, m := range st.Messages {
			if m.WorkspaceID != workspaceID || m.Read || m.SentAt.After(upTo) {
				continue
			}
			if next == nil {
				next = slices.Clone(st.Messages)
			}
			next[i].Read = true
			changed++
		}
		if next == nil {
			return st
		}
		st.Messages = next
		return st
	})
	return changed
}

func (s *Store) Clear() { s.state.Reset() }

// ForWorkspace returns a workspace's messages oldest first.
func ForWorkspace(st State, workspaceID string) []Message {
	var out []Message
	for _, m := range st.Messages {
		if m.WorkspaceID == workspaceID {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b Message) int { return a.SentAt.Compare(b.SentAt) })
	return out
}

// Unread returns unread messages in the workspace not sent by selfID.
func Unread(st State, workspaceID, selfID string) []Message {
	var out []Message
	for _, m := range ForWorkspace(st, workspaceID) {
		if !m.Read && m.SenderID != selfID {
			out = append(out, m)
		}
	}
	return out
}
