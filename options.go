package duet

// Functional options for New. Options run before the environment is read, so
// an explicit option always wins over DUET_* variables.

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/duetapp/duet/internal/config"
	"github.com/duetapp/duet/internal/kv"
	"github.com/duetapp/duet/internal/location"
	"github.com/duetapp/duet/internal/session"
	"github.com/duetapp/duet/internal/shardqueue"
	"github.com/duetapp/duet/internal/ui"
)

// Option configures an App during construction in New.
type Option func(*App) error

// WithConfig uses cfg instead of reading the environment. Only the backend
// name is defaulted; New rejects a copy whose recording cap, HTTP timeout or
// toast duration is unset.
func WithConfig(cfg config.Config) Option {
	return func(a *App) error {
		a.cfg = &cfg
		return nil
	}
}

// WithKV persists through engine. The caller keeps ownership; Close does not
// close it.
func WithKV(engine kv.KV) Option {
	return func(a *App) error {
		if engine == nil {
			return fmt.Errorf("kv engine must not be nil")
		}
		a.engine = engine
		return nil
	}
}

// WithExecutor shares an existing write queue. The caller stops it.
func WithExecutor(exec *shardqueue.ShardExecutor) Option {
	return func(a *App) error {
		if exec == nil {
			return fmt.Errorf("executor must not be nil")
		}
		a.exec = exec
		return nil
	}
}

// WithLogger sets the logger handed to every persisted store and the write
// queue New creates.
func WithLogger(log zerolog.Logger) Option {
	return func(a *App) error {
		a.log = log
		return nil
	}
}

// WithGeolocation enables App.Tracker. Fixes it delivers update the location
// store and extend any active story or memory recording.
func WithGeolocation(geo location.Geolocation) Option {
	return func(a *App) error {
		a.geo = geo
		return nil
	}
}

// WithAPI enables App.Session against api instead of the HTTP client built
// from API_BASE_URL.
func WithAPI(api session.API) Option {
	return func(a *App) error {
		a.api = api
		return nil
	}
}

// WithAfterFunc replaces time.AfterFunc for toast expiry.
func WithAfterFunc(fn ui.AfterFunc) Option {
	return func(a *App) error {
		a.afterFunc = fn
		return nil
	}
}

// WithMaxRecordingPoints caps the recording buffer of stories and memories.
func WithMaxRecordingPoints(n int) Option {
	return func(a *App) error {
		if n < 2 {
			return fmt.Errorf("max recording points must be >= 2")
		}
		a.maxPoints = n
		return nil
	}
}

// WithStoryPersistence turns persistence of saved stories and memories on or
// off. It is off unless PERSIST_STORIES is set.
func WithStoryPersistence(enabled bool) Option {
	return func(a *App) error {
		a.persistStories = &enabled
		return nil
	}
}
