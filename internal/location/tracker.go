package location

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// ErrTrackerRunning is returned by Start when a watch is already active.
var ErrTrackerRunning = errors.New("location: tracker already running")

// Geolocation is the platform provider.
type Geolocation interface {
	// CurrentPosition returns one fix.
	CurrentPosition(ctx context.Context) (Fix, error)
	// Watch delivers fixes until cancel is called.
	Watch(onFix func(Fix), onErr func(error)) (cancel func())
}

// Sink receives every fix after the store has been updated.
type Sink func(Fix)

// Tracker feeds a Store from a Geolocation provider. The watch it holds is
// released by Stop or when the context passed to Start is done.
type Tracker struct {
	store *Store
	geo   Geolocation
	log   zerolog.Logger
	sinks []Sink

	mu     sync.Mutex
	cancel func()
	stopCh chan struct{}
}

func NewTracker(s *Store, geo Geolocation, log zerolog.Logger, sinks ...Sink) *Tracker {
	return &Tracker{
		store: s,
		geo:   geo,
		log:   log.With().Str("component", "location").Logger(),
		sinks: sinks,
	}
}

// Refresh asks the provider for one fix.
func (t *Tracker) Refresh(ctx context.Context) error {
	t.store.SetLoading()
	fix, err := t.geo.CurrentPosition(ctx)
	if err != nil {
		t.onErr(err)
		return err
	}
	t.onFix(fix)
	return nil
}

// Start takes an initial fix and then watches for updates until Stop or
// until ctx is done. A failed initial fix is recorded in the store but does
// not prevent watching.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.cancel != nil {
		t.mu.Unlock()
		return ErrTrackerRunning
	}
	stop := make(chan struct{})
	t.stopCh = stop
	t.cancel = t.geo.Watch(t.onFix, t.onErr)
	t.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			t.Stop()
		case <-stop:
		}
	}()

	if err := t.Refresh(ctx); err != nil {
		t.log.Debug().Err(err).Msg("initial fix failed, watching anyway")
	}
	t.log.Debug().Msg("tracking started")
	return nil
}

// Stop releases the provider watch. It is safe to call when not running.
func (t *Tracker) Stop() {
	t.mu.Lock()
	cancel, stop := t.cancel, t.stopCh
	t.cancel, t.stopCh = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	close(stop)
	t.log.Debug().Msg("tracking stopped")
}

// Running reports whether a watch is active.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

func (t *Tracker) onFix(f Fix) {
	t.store.SetFix(f)
	for _, sink := range t.sinks {
		sink(f)
	}
}

func (t *Tracker) onErr(err error) {
	t.log.Warn().Err(err).Msg("location error")
	t.store.SetError(err)
}
