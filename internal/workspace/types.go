package workspace

import "time"

// Kind distinguishes two-person spaces from larger groups.
type Kind string

const (
	KindCouple Kind = "couple"
	KindGroup  Kind = "group"
)

type Member struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

// Workspace is a shared context that scopes calendar, to-do and membership
// data.
type Workspace struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Type            Kind      `json:"type"`
	StartDate       time.Time `json:"startDate,omitzero"`
	BackgroundImage string    `json:"backgroundImage,omitempty"`
	Members         []Member  `json:"members"`
}

// Status of an invitation. Pending is the only non-terminal state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

type Invitation struct {
	ID            string    `json:"id"`
	WorkspaceID   string    `json:"workspaceId"`
	WorkspaceName string    `json:"workspaceName"`
	InviterEmail  string    `json:"inviterEmail"`
	InviteeEmail  string    `json:"inviteeEmail"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

// MemberPatch changes the non-nil fields of a member's profile.
type MemberPatch struct {
	Name   *string
	Email  *string
	Avatar *string
}

// State is the workspace list, the id of the active workspace and the known
// invitations. The active workspace is always looked up in Workspaces, so
// there is no second copy to keep in sync.
type State struct {
	Workspaces         []Workspace  `json:"workspaces"`
	CurrentWorkspaceID string       `json:"currentWorkspaceId,omitempty"`
	Invitations        []Invitation `json:"invitations"`
}

// Current returns the active workspace.
func (st State) Current() (Workspace, bool) {
	return st.Find(st.CurrentWorkspaceID)
}

// Find returns the workspace with id.
func (st State) Find(id string) (Workspace, bool) {
	if id == "" {
		return Workspace{}, false
	}
	for _, ws := range st.Workspaces {
		if ws.ID == id {
			return ws, true
		}
	}
	return Workspace{}, false
}

// Pending returns the invitations still awaiting a response.
func (st State) Pending() []Invitation {
	var out []Invitation
	for _, inv := range st.Invitations {
		if inv.Status == StatusPending {
			out = append(out, inv)
		}
	}
	return out
}
