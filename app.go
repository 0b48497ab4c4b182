// Package duet is the on-device state layer of the duet app. New wires every
// store to its persisted key, the shared write queue and, when configured,
// the backend session and the device's location provider.
package duet

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/duetapp/duet/internal/api"
	"github.com/duetapp/duet/internal/auth"
	"github.com/duetapp/duet/internal/calendar"
	"github.com/duetapp/duet/internal/chat"
	"github.com/duetapp/duet/internal/config"
	"github.com/duetapp/duet/internal/keys"
	"github.com/duetapp/duet/internal/kv"
	"github.com/duetapp/duet/internal/kv/boltkv"
	"github.com/duetapp/duet/internal/kv/sqlitekv"
	"github.com/duetapp/duet/internal/localstate"
	"github.com/duetapp/duet/internal/location"
	"github.com/duetapp/duet/internal/logger"
	"github.com/duetapp/duet/internal/persist"
	"github.com/duetapp/duet/internal/profile"
	"github.com/duetapp/duet/internal/session"
	"github.com/duetapp/duet/internal/shardqueue"
	"github.com/duetapp/duet/internal/story"
	"github.com/duetapp/duet/internal/todo"
	"github.com/duetapp/duet/internal/ui"
	"github.com/duetapp/duet/internal/workspace"
)

// closeFlushTimeout bounds how long Close waits for queued writes.
const closeFlushTimeout = 5 * time.Second

// persisted is the type-erased view of a persist.Persister.
type persisted interface {
	Key() keys.Key
	Flush(ctx context.Context) error
	Clear(ctx context.Context) error
	Detach()
}

// App holds every store. Fields are safe for concurrent use; the App itself
// must be closed to release the engine and write queue.
type App struct {
	Auth       *auth.Store
	Profile    *profile.Store
	Workspaces *workspace.Store
	Calendar   *calendar.Store
	Todos      *todo.Store
	Stories    *story.Store
	Memories   *story.Store
	Chat       *chat.Store
	Location   *location.Store
	UI         *ui.Store

	// Tracker is nil unless a geolocation provider was supplied.
	Tracker *location.Tracker
	// Session is nil unless an API base URL or WithAPI was supplied.
	Session *session.Manager

	cfg    *config.Config
	log    zerolog.Logger
	engine kv.KV
	exec   *shardqueue.ShardExecutor
	geo    location.Geolocation
	api    session.API

	ownsKV   bool
	ownsExec bool

	// option overrides applied on top of cfg
	maxPoints      int
	persistStories *bool
	afterFunc      ui.AfterFunc

	registry  *keys.Registry
	persisted []persisted
	resets    map[keys.Key]func()
	snapshots map[keys.Key]func() any

	closedOnce uint32
}

// New builds an App. Without WithConfig the settings come from DUET_*
// environment variables; without WithKV the engine named by KV_BACKEND is
// opened under the data directory. Every persisted store has been rehydrated
// when New returns.
func New(ctx context.Context, opts ...Option) (*App, error) {
	start := time.Now()
	a := &App{log: logger.New("duet")}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	if a.cfg == nil {
		cfg, err := config.New()
		if err != nil {
			return nil, err
		}
		a.cfg = cfg
	}
	if a.maxPoints > 0 {
		a.cfg.MaxRecordingPoints = a.maxPoints
	}
	if a.persistStories != nil {
		a.cfg.PersistStories = *a.persistStories
	}
	if err := a.cfg.ResolveDefaults(); err != nil {
		return nil, err
	}
	a.cfg.Log(a.log)

	if a.engine == nil {
		engine, err := openKV(a.cfg)
		if err != nil {
			return nil, err
		}
		a.engine, a.ownsKV = engine, true
	}
	if a.exec == nil {
		qcfg, err := shardqueue.LoadConfig()
		if err != nil {
			a.release()
			return nil, err
		}
		a.exec, a.ownsExec = persist.NewExecutor(qcfg, a.log), true
	}

	if err := a.build(ctx); err != nil {
		a.release()
		return nil, err
	}
	openSeconds.Observe(time.Since(start).Seconds())
	return a, nil
}

func openKV(cfg *config.Config) (kv.KV, error) {
	if cfg.KVBackend == config.BackendMemory {
		return kv.NewMemory(), nil
	}
	dir, err := localstate.DataDir(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	path, err := localstate.StatePath(dir, cfg.KVBackend)
	if err != nil {
		return nil, err
	}
	switch cfg.KVBackend {
	case config.BackendSQLite:
		return sqlitekv.Open(path)
	default:
		return boltkv.Open(path)
	}
}

// --------------------------------------------------------------------
// Wiring
// --------------------------------------------------------------------

func (a *App) build(ctx context.Context) error {
	a.registry = keys.NewRegistry()
	a.resets = make(map[keys.Key]func())
	a.snapshots = make(map[keys.Key]func() any)
	popts := []persist.Option{persist.WithExecutor(a.exec), persist.WithLogger(a.log)}

	a.Auth = auth.New()
	a.Profile = profile.New()
	a.Workspaces = workspace.New()
	a.Calendar = calendar.New()
	a.Todos = todo.New()
	a.Stories = story.New(keys.Stories, a.cfg.MaxRecordingPoints)
	a.Memories = story.New(keys.Memories, a.cfg.MaxRecordingPoints)
	a.Chat = chat.New()
	a.Location = location.New()

	uiOpts := []ui.Option{ui.WithToastDuration(a.cfg.ToastDuration)}
	if a.afterFunc != nil {
		uiOpts = append(uiOpts, ui.WithAfterFunc(a.afterFunc))
	}
	a.UI = ui.New(uiOpts...)

	type binding struct {
		key      keys.Key
		owner    string
		persist  bool
		attach   func() persisted
		reset    func()
		snapshot func() any
	}
	bindings := []binding{
		{keys.Auth, "auth", true,
			func() persisted { return a.Auth.Persist(ctx, a.engine, popts...) },
			a.Auth.Clear, func() any { return a.Auth.Get() }},
		{keys.Profile, "profile", true,
			func() persisted { return a.Profile.Persist(ctx, a.engine, popts...) },
			a.Profile.Clear, func() any { return a.Profile.Get() }},
		{keys.Workspace, "workspace", true,
			func() persisted { return a.Workspaces.Persist(ctx, a.engine, popts...) },
			a.Workspaces.Clear, func() any { return a.Workspaces.Get() }},
		{keys.Calendar, "calendar", true,
			func() persisted { return a.Calendar.Persist(ctx, a.engine, popts...) },
			a.Calendar.Clear, func() any { return a.Calendar.Get() }},
		{keys.Todos, "todo", true,
			func() persisted { return a.Todos.Persist(ctx, a.engine, popts...) },
			a.Todos.Clear, func() any { return a.Todos.Get() }},
		{keys.Stories, "stories", a.cfg.PersistStories,
			func() persisted { return a.Stories.Persist(ctx, a.engine, popts...) },
			a.Stories.Clear, func() any { return a.Stories.Get() }},
		{keys.Memories, "memories", a.cfg.PersistStories,
			func() persisted { return a.Memories.Persist(ctx, a.engine, popts...) },
			a.Memories.Clear, func() any { return a.Memories.Get() }},
		{keys.Chat, "chat", true,
			func() persisted { return a.Chat.Persist(ctx, a.engine, popts...) },
			a.Chat.Clear, func() any { return a.Chat.Get() }},
	}
	for _, b := range bindings {
		if err := a.registry.Claim(b.key, b.owner); err != nil {
			return err
		}
		a.resets[b.key] = b.reset
		a.snapshots[b.key] = b.snapshot
		if b.persist {
			a.persisted = append(a.persisted, b.attach())
		}
	}
	persistedStores.Set(float64(len(a.persisted)))

	if a.geo != nil {
		a.Tracker = location.NewTracker(a.Location, a.geo, a.log, a.recordFix)
	}

	if a.api == nil && a.cfg.APIBaseURL != "" {
		a.api = api.New(api.Config{
			BaseURL: a.cfg.APIBaseURL,
			Timeout: a.cfg.HTTPTimeout,
			Retries: a.cfg.HTTPRetries,
			Debug:   a.cfg.Debug,
			Logger:  a.log,
		})
	}
	if a.api != nil {
		a.Session = session.New(session.Config{
			API:        a.api,
			Auth:       a.Auth,
			Profile:    a.Profile,
			Workspaces: a.Workspaces,
			Logger:     a.log,
			OnSignOut:  a.clearUserData,
		})
	}
	return nil
}

// recordFix forwards a location fix to whichever recording is active. Idle
// stores ignore it.
func (a *App) recordFix(f location.Fix) {
	p := story.LocationPoint{Latitude: f.Latitude, Longitude: f.Longitude, Timestamp: f.Timestamp}
	a.Stories.AddPoint(p)
	a.Memories.AddPoint(p)
}

// clearUserData runs after a sign-out has reset the session stores. It
// resets everything else the user owned and removes every persisted blob.
func (a *App) clearUserData(ctx context.Context) {
	signOutsTotal.Inc()
	a.Calendar.Clear()
	a.Todos.Clear()
	a.Chat.Clear()
	a.Stories.Clear()
	a.Memories.Clear()
	a.Location.Clear()
	for _, p := range a.persisted {
		if err := p.Clear(ctx); err != nil {
			a.log.Error().Err(err).Str("key", p.Key().String()).Msg("failed to clear persisted state")
		}
	}
}

// --------------------------------------------------------------------
// State access
// --------------------------------------------------------------------

// Config returns the effective settings.
func (a *App) Config() config.Config { return *a.cfg }

// Persisted lists the keys mirrored to the engine, in wiring order.
func (a *App) Persisted() []keys.Key {
	out := make([]keys.Key, 0, len(a.persisted))
	for _, p := range a.persisted {
		out = append(out, p.Key())
	}
	return out
}

// Snapshot returns the current state of the store owning key.
func (a *App) Snapshot(key keys.Key) (any, error) {
	fn, ok := a.snapshots[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return fn(), nil
}

// Reset restores the store owning key to its initial state and removes its
// persisted data, waiting for the removal to reach the engine.
func (a *App) Reset(ctx context.Context, key keys.Key) error {
	reset, ok := a.resets[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	reset()
	for _, p := range a.persisted {
		if p.Key() == key {
			return p.Clear(ctx)
		}
	}
	return nil
}

// AwaitPersisted blocks until every write queued before the call has reached
// the engine, or ctx is done.
func (a *App) AwaitPersisted(ctx context.Context) error {
	if atomic.LoadUint32(&a.closedOnce) == 1 {
		return ErrClosed
	}
	for _, p := range a.persisted {
		if err := p.Flush(ctx); err != nil {
			return fmt.Errorf("await %s: %w", p.Key(), err)
		}
	}
	return nil
}

// Close stops the tracker, drains pending writes and releases the engine.
// It is safe to call more than once.
func (a *App) Close() error {
	if !atomic.CompareAndSwapUint32(&a.closedOnce, 0, 1) {
		return nil
	}
	if a.Tracker != nil {
		a.Tracker.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), closeFlushTimeout)
	defer cancel()
	for _, p := range a.persisted {
		if err := p.Flush(ctx); err != nil {
			a.log.Warn().Err(err).Str("key", p.Key().String()).Msg("pending writes not flushed on close")
		}
		p.Detach()
	}
	return a.release()
}

// release stops the owned executor, which drains queued writes, and closes
// the owned engine.
func (a *App) release() error {
	if a.ownsExec && a.exec != nil {
		a.exec.Stop()
	}
	if a.ownsKV && a.engine != nil {
		return a.engine.Close()
	}
	return nil
}
