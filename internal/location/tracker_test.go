package location

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGeo struct {
	mu       sync.Mutex
	current  Fix
	err      error
	onFix    func(Fix)
	onErr    func(error)
	watching int
	cancels  int
}

func (f *fakeGeo) CurrentPosition(ctx context.Context) (Fix, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, f.err
}

func (f *fakeGeo) Watch(onFix func(Fix), onErr func(error)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onFix, f.onErr = onFix, onErr
	f.watching++
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.watching--
		f.cancels++
		f.onFix, f.onErr = nil, nil
	}
}

func (f *fakeGeo) emit(fix Fix) {
	f.mu.Lock()
	cb := f.onFix
	f.mu.Unlock()
	if cb != nil {
		cb(fix)
	}
}

func (f *fakeGeo) fail(err error) {
	f.mu.Lock()
	cb := f.onErr
	f.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

func (f *fakeGeo) active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.watching
}

var t0 = time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC)

func fix(lat, lng float64) Fix {
	return Fix{Coords: Coords{Latitude: lat, Longitude: lng}, Timestamp: t0}
}

func TestRefresh(t *testing.T) {
	s := New()
	geo := &fakeGeo{current: fix(37.5, 127.0)}
	tr := NewTracker(s, geo, zerolog.Nop())

	require.NoError(t, tr.Refresh(context.Background()))
	st := s.Get()
	assert.Equal(t, &Coords{Latitude: 37.5, Longitude: 127.0}, st.Coords)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Err)

	geo.err = errors.New("permission denied")
	assert.Error(t, tr.Refresh(context.Background()))
	st = s.Get()
	assert.Equal(t, "permission denied", st.Err)
	assert.False(t, st.Loading)
	assert.NotNil(t, st.Coords, "last fix kept")
}

func TestStartWatchesAndForwards(t *testing.T) {
	s := New()
	geo := &fakeGeo{current: fix(1, 1)}
	var (
		mu  sync.Mutex
		got []Fix
	)
	tr := NewTracker(s, geo, zerolog.Nop(), func(f Fix) {
		mu.Lock()
		got = append(got, f)
		mu.Unlock()
	})

	require.NoError(t, tr.Start(context.Background()))
	assert.ErrorIs(t, tr.Start(context.Background()), ErrTrackerRunning)
	assert.True(t, tr.Running())

	geo.emit(fix(2, 2))
	geo.emit(fix(3, 3))
	assert.Equal(t, 3.0, s.Get().Coords.Latitude, "last write wins")

	geo.fail(errors.New("signal lost"))
	assert.Equal(t, "signal lost", s.Get().Err)
	geo.emit(fix(4, 4))
	assert.Empty(t, s.Get().Err, "a fresh fix clears the error")

	tr.Stop()
	tr.Stop()
	assert.False(t, tr.Running())
	assert.Zero(t, geo.active())
	geo.emit(fix(9, 9))
	assert.Equal(t, 4.0, s.Get().Coords.Latitude)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, got, 4, "initial fix plus three watched fixes")
}

func TestStartStopsWithContext(t *testing.T) {
	geo := &fakeGeo{current: fix(1, 1)}
	tr := NewTracker(New(), geo, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, tr.Start(ctx))
	cancel()

	require.Eventually(t, func() bool { return geo.active() == 0 }, time.Second, 5*time.Millisecond)
	assert.False(t, tr.Running())

	require.NoError(t, tr.Start(context.Background()), "restartable")
	tr.Stop()
}

func TestStartWithFailedInitialFixStillWatches(t *testing.T) {
	s := New()
	geo := &fakeGeo{err: errors.New("timeout")}
	tr := NewTracker(s, geo, zerolog.Nop())
	require.NoError(t, tr.Start(context.Background()))
	defer tr.Stop()

	assert.Equal(t, "timeout", s.Get().Err)
	geo.emit(fix(5, 5))
	assert.Equal(t, 5.0, s.Get().Coords.Latitude)
}
