// Package location holds the device's latest position and drives it from a
// platform geolocation provider. Nothing here is persisted.
package location

import (
	"time"

	"github.com/duetapp/duet/internal/store"
)

type Coords struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy,omitempty"`
}

// Fix is one reading from the provider.
type Fix struct {
	Coords
	Timestamp time.Time
}

// State is the latest known position. Coords stays set when a later
// reading fails so the map keeps showing the last fix.
type State struct {
	Coords    *Coords
	Err       string
	Loading   bool
	UpdatedAt time.Time
}

type Store struct {
	state *store.Store[State]
}

func New() *Store {
	return &Store{state: store.New(func() State { return State{} })}
}

func (s *Store) Get() State { return s.state.Get() }

func (s *Store) Subscribe(fn store.Listener[State]) func() { return s.state.Subscribe(fn) }

func (s *Store) SetLoading() {
	s.state.Set(func(st State) State {
		st.Loading = true
		return st
	})
}

// SetFix records f. Readings are applied in arrival order.
func (s *Store) SetFix(f Fix) {
	c := f.Coords
	s.state.Replace(State{Coords: &c, UpdatedAt: f.Timestamp})
}

func (s *Store) SetError(err error) {
	s.state.Set(func(st State) State {
		st.Loading = false
		st.Err = err.Error()
		return st
	})
}

func (s *Store) Clear() { s.state.Reset() }
