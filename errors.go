package duet

import (
	"errors"

	internalerrors "github.com/duetapp/duet/internal/errors"
	"github.com/duetapp/duet/internal/kv"
	"github.com/duetapp/duet/internal/session"
	"github.com/duetapp/duet/internal/shardqueue"
	"github.com/duetapp/duet/internal/workspace"
)

var (
	// ErrClosed is returned by App methods after Close.
	ErrClosed = errors.New("duet: app closed")
	// ErrUnknownKey is returned for a key no store owns.
	ErrUnknownKey = errors.New("duet: unknown state key")
)

// Re-export package errors so callers compare against a single symbol.
var (
	ErrNotFound           = kv.ErrNotFound
	ErrNotLoggedIn        = session.ErrNotLoggedIn
	ErrSessionExpired     = session.ErrSessionExpired
	ErrInvalidCredentials = session.ErrInvalidCredentials
	ErrInvalidInvite      = workspace.ErrInvalidInvite
	ErrBackPressure       = shardqueue.ErrQueueFull
)

// IsBackPressure reports whether err is a full write queue.
func IsBackPressure(err error) bool { return errors.Is(err, ErrBackPressure) }

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool { return internalerrors.IsUnauthorized(err) }
