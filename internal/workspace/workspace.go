// Package workspace holds the user's workspaces, their members and the
// invitations that create new memberships.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/duetapp/duet/internal/ids"
	"github.com/duetapp/duet/internal/keys"
	"github.com/duetapp/duet/internal/kv"
	"github.com/duetapp/duet/internal/persist"
	"github.com/duetapp/duet/internal/store"
)

var (
	// ErrInvalidInvite is returned when an invitation cannot be created.
	ErrInvalidInvite = errors.New("workspace: invalid invitation")
	// ErrNotFound is returned when an action names an unknown workspace.
	ErrNotFound = errors.New("workspace: not found")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type Store struct {
	state *store.Store[State]
}

func New() *Store {
	return &Store{state: store.New(func() State { return State{} })}
}

func (s *Store) Get() State { return s.state.Get() }

func (s *Store) Subscribe(fn store.Listener[State]) func() { return s.state.Subscribe(fn) }

func (s *Store) Persist(ctx context.Context, engine kv.KV, opts ...persist.Option) *persist.Persister[State] {
	return persist.Attach(ctx, s.state, engine, keys.Workspace, persist.Snapshot[State](), opts...)
}

// SetWorkspaces replaces the list, e.g. after a server sync. The current id
// survives when still present; otherwise the first workspace becomes current.
func (s *Store) SetWorkspaces(list []Workspace) {
	s.state.Set(func(st State) State {
		st.Workspaces = slices.Clone(list)
		if _, ok := st.Current(); !ok {
			st.CurrentWorkspaceID = firstID(st.Workspaces)
		}
		return st
	})
}

// Add appends ws, assigning an id when it has none. The first workspace
// becomes current. Adding an id that already exists is a no-op.
func (s *Store) Add(ws Workspace) (Workspace, bool) {
	if ws.ID == "" {
		ws.ID = ids.New()
	}
	if ws.Type == "" {
		ws.Type = KindCouple
	}
	ws.Members = slices.Clone(ws.Members)
	added := false
	s.state.Set(func(st State) State {
		if _, exists := st.Find(ws.ID); exists {
			return st
		}
		st.Workspaces = append(slices.Clip(st.Workspaces), ws)
		if st.CurrentWorkspaceID == "" {
			st.CurrentWorkspaceID = ws.ID
		}
		added = true
		return st
	})
	return ws, added
}

// SetCurrent switches the active workspace. Unknown ids are ignored.
func (s *Store) SetCurrent(id string) bool {
	applied := false
	s.state.Set(func(st State) State {
		if _, ok := st.Find(id); !ok {
			return st
		}
		applied = st.CurrentWorkspaceID != id
		st.CurrentWorkspaceID = id
		return st
	})
	return applied
}

func (s *Store) UpdateName(id, name string) bool {
	return s.updateWorkspace(id, func(ws *Workspace) bool {
		ws.Name = name
		return true
	})
}

func (s *Store) UpdateBackground(id, image string) bool {
	return s.updateWorkspace(id, func(ws *Workspace) bool {
		ws.BackgroundImage = image
		return true
	})
}

func (s *Store) UpdateStartDate(id string, day time.Time) bool {
	return s.updateWorkspace(id, func(ws *Workspace) bool {
		ws.StartDate = day.UTC()
		return true
	})
}

// AddMember adds m to the workspace. It reports false, leaving the state
// untouched, when the workspace is unknown or already has a member with m's id.
func (s *Store) AddMember(workspaceID string, m Member) bool {
	return s.updateWorkspace(workspaceID, func(ws *Workspace) bool {
		if slices.ContainsFunc(ws.Members, func(x Member) bool { return x.ID == m.ID }) {
			return false
		}
		ws.Members = append(slices.Clip(ws.Members), m)
		return true
	})
}

// RemoveMember reports false when the workspace or the member is unknown.
func (s *Store) RemoveMember(workspaceID, memberID string) bool {
	return s.updateWorkspace(workspaceID, func(ws *Workspace) bool {
		idx := slices.IndexFunc(ws.Members, func(x Member) bool { return x.ID == memberID })
		if idx < 0 {
			return false
		}
		ws.Members = slices.Delete(slices.Clone(ws.Members), idx, idx+1)
		return true
	})
}

// UpdateMemberProfile applies patch to the member in every workspace they
// belong to. It reports whether any workspace changed.
func (s *Store) UpdateMemberProfile(memberID string, patch MemberPatch) bool {
	applied := false
	s.state.Set(func(st State) State {
		next := make([]Workspace, len(st.Workspaces))
		for i, ws := range st.Workspaces {
			idx := slices.IndexFunc(ws.Members, func(m Member) bool { return m.ID == memberID })
			if idx < 0 {
				next[i] = ws
				continue
			}
			members := slices.Clone(ws.Members)
			patch.apply(&members[idx])
			ws.Members = members
			next[i] = ws
			applied = true
		}
		if !applied {
			return st
		}
		st.Workspaces = next
		return st
	})
	return applied
}

// Remove deletes a workspace. If it was current, the first remaining one
// takes its place.
func (s *Store) Remove(id string) bool {
	applied := false
	s.state.Set(func(st State) State {
		next := slices.DeleteFunc(slices.Clone(st.Workspaces), func(ws Workspace) bool { return ws.ID == id })
		if len(next) == len(st.Workspaces) {
			return st
		}
		applied = true
		st.Workspaces = next
		if st.CurrentWorkspaceID == id {
			st.CurrentWorkspaceID = firstID(next)
		}
		return st
	})
	return applied
}

type inviteInput struct {
	WorkspaceID  string `validate:"required"`
	InviterEmail string `validate:"required,email"`
	InviteeEmail string `validate:"required,email,nefield=InviterEmail"`
}

// Invite records an outgoing invitation to join workspaceID.
func (s *Store) Invite(workspaceID, inviterEmail, inviteeEmail string) (Invitation, error) {
	in := inviteInput{
		WorkspaceID:  workspaceID,
		InviterEmail: strings.TrimSpace(inviterEmail),
		InviteeEmail: strings.TrimSpace(inviteeEmail),
	}
	if err := validate.Struct(in); err != nil {
		return Invitation{}, fmt.Errorf("%w: %s", ErrInvalidInvite, describe(err))
	}

	var (
		inv Invitation
		err error
	)
	s.state.Set(func(st State) State {
		ws, ok := st.Find(workspaceID)
		if !ok {
			err = fmt.Errorf("%w: %w", ErrInvalidInvite, ErrNotFound)
			return st
		}
		for _, existing := range st.Invitations {
			if existing.WorkspaceID == ws.ID && existing.Status == StatusPending &&
				strings.EqualFold(existing.InviteeEmail, in.InviteeEmail) {
				inv = existing
				return st
			}
		}
		inv = Invitation{
			ID:            ids.New(),
			WorkspaceID:   ws.ID,
			WorkspaceName: ws.Name,
			InviterEmail:  in.InviterEmail,
			InviteeEmail:  in.InviteeEmail,
			Status:        StatusPending,
			CreatedAt:     time.Now().UTC(),
		}
		st.Invitations = append(slices.Clip(st.Invitations), inv)
		return st
	})
	return inv, err
}

// Receive records an invitation addressed to this user. Known ids are
// ignored.
func (s *Store) Receive(inv Invitation) bool {
	if inv.Status == "" {
		inv.Status = StatusPending
	}
	applied := false
	s.state.Set(func(st State) State {
		if slices.ContainsFunc(st.Invitations, func(x Invitation) bool { return x.ID == inv.ID }) {
			return st
		}
		st.Invitations = append(slices.Clip(st.Invitations), inv)
		applied = true
		return st
	})
	return applied
}

// Respond moves a pending invitation to accepted or declined. Anything else
// (unknown id, already answered, invalid status) leaves state unchanged and
// returns false. Accepting adds the invited workspace, making it current if
// none is.
func (s *Store) Respond(id string, status Status) bool {
	if status != StatusAccepted && status != StatusDeclined {
		return false
	}
	applied := false
	s.state.Set(func(st State) State {
		idx := slices.IndexFunc(st.Invitations, func(x Invitation) bool { return x.ID == id })
		if idx < 0 || st.Invitations[idx].Status != StatusPending {
			return st
		}
		invs := slices.Clone(st.Invitations)
		invs[idx].Status = status
		st.Invitations = invs
		applied = true

		if status == StatusAccepted {
			inv := invs[idx]
			if _, exists := st.Find(inv.WorkspaceID); !exists {
				st.Workspaces = append(slices.Clip(st.Workspaces), Workspace{
					ID:   inv.WorkspaceID,
					Name: inv.WorkspaceName,
					Type: KindCouple,
				})
			}
			if st.CurrentWorkspaceID == "" {
				st.CurrentWorkspaceID = inv.WorkspaceID
			}
		}
		return st
	})
	return applied
}

func (s *Store) Clear() { s.state.Reset() }

// updateWorkspace runs fn on a copy of workspace id. The state keeps its
// Workspaces slice when fn reports no change.
func (s *Store) updateWorkspace(id string, fn func(*Workspace) bool) bool {
	applied := false
	s.state.Set(func(st State) State {
		idx := slices.IndexFunc(st.Workspaces, func(ws Workspace) bool { return ws.ID == id })
		if idx < 0 {
			return st
		}
		ws := st.Workspaces[idx]
		if !fn(&ws) {
			return st
		}
		next := slices.Clone(st.Workspaces)
		next[idx] = ws
		st.Workspaces = next
		applied = true
		return st
	})
	return applied
}

func (p MemberPatch) apply(m *Member) {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Email != nil {
		m.Email = *p.Email
	}
	if p.Avatar != nil {
		m.Avatar = *p.Avatar
	}
}

func firstID(list []Workspace) string {
	if len(list) == 0 {
		return ""
	}
	return list[0].ID
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "email":
			parts = append(parts, fe.Field()+" must be a valid email")
		case "nefield":
			parts = append(parts, fe.Field()+" must differ from "+fe.Param())
		default:
			parts = append(parts, fe.Field()+" is invalid")
		}
	}
	return strings.Join(parts, ", ")
}
