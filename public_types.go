package duet

import (
	"github.com/duetapp/duet/internal/api"
	"github.com/duetapp/duet/internal/auth"
	"github.com/duetapp/duet/internal/calendar"
	"github.com/duetapp/duet/internal/chat"
	"github.com/duetapp/duet/internal/config"
	"github.com/duetapp/duet/internal/keys"
	"github.com/duetapp/duet/internal/kv"
	"github.com/duetapp/duet/internal/location"
	"github.com/duetapp/duet/internal/profile"
	"github.com/duetapp/duet/internal/story"
	"github.com/duetapp/duet/internal/todo"
	"github.com/duetapp/duet/internal/ui"
	"github.com/duetapp/duet/internal/workspace"
)

// Public aliases so callers never import internal packages.
type (
	Config = config.Config
	Key    = keys.Key
	KV     = kv.KV

	Session     = auth.Session
	Credentials = api.Credentials
	UserProfile = profile.UserProfile

	Workspace     = workspace.Workspace
	WorkspaceKind = workspace.Kind
	Member        = workspace.Member
	MemberPatch   = workspace.MemberPatch
	Invitation    = workspace.Invitation
	InviteStatus  = workspace.Status

	Event      = calendar.Event
	EventInput = calendar.EventInput
	EventPatch = calendar.EventPatch
	DayMark    = calendar.DayMark

	Todo      = todo.Todo
	TodoInput = todo.Input
	TodoPatch = todo.Patch

	Record        = story.Record
	RecordMeta    = story.Meta
	RecordPatch   = story.Patch
	LocationPoint = story.LocationPoint

	Message = chat.Message

	Coords      = location.Coords
	Fix         = location.Fix
	Geolocation = location.Geolocation

	ToastType    = ui.ToastType
	ModalOptions = ui.ModalOptions
)

// Persisted keys.
const (
	KeyAuth      = keys.Auth
	KeyProfile   = keys.Profile
	KeyWorkspace = keys.Workspace
	KeyCalendar  = keys.Calendar
	KeyTodos     = keys.Todos
	KeyStories   = keys.Stories
	KeyMemories  = keys.Memories
	KeyChat      = keys.Chat
)

const (
	WorkspaceCouple = workspace.KindCouple
	WorkspaceGroup  = workspace.KindGroup

	InvitePending  = workspace.StatusPending
	InviteAccepted = workspace.StatusAccepted
	InviteDeclined = workspace.StatusDeclined

	ToastInfo    = ui.ToastInfo
	ToastSuccess = ui.ToastSuccess
	ToastError   = ui.ToastError
)

// NewMemoryKV returns a process-local engine, for tests and previews.
func NewMemoryKV() *kv.Memory { return kv.NewMemory() }
