// Package calendar holds shared calendar events.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/duetapp/duet/internal/ids"
	"github.com/duetapp/duet/internal/keys"
	"github.com/duetapp/duet/internal/kv"
	"github.com/duetapp/duet/internal/persist"
	"github.com/duetapp/duet/internal/store"
)

// DefaultColor is used for events created without one.
const DefaultColor = "#FF6B8A"

// ErrInvalidEvent wraps validation failures from Add and Update.
var ErrInvalidEvent = errors.New("calendar: invalid event")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Event spans whole days from StartDate to EndDate inclusive; StartTime and
// EndTime ("15:04") refine it unless IsAllDay.
type Event struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	StartTime   string    `json:"startTime,omitempty"`
	EndTime     string    `json:"endTime,omitempty"`
	IsAllDay    bool      `json:"isAllDay"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"createdAt"`
}

// EventInput is what callers supply to Add.
type EventInput struct {
	WorkspaceID string    `validate:"required"`
	Title       string    `validate:"required,max=200"`
	Description string    `validate:"max=2000"`
	StartDate   time.Time `validate:"required"`
	EndDate     time.Time
	StartTime   string `validate:"omitempty,datetime=15:04"`
	EndTime     string `validate:"omitempty,datetime=15:04"`
	IsAllDay    bool
	Color       string `validate:"omitempty,hexcolor"`
}

// EventPatch changes the non-nil fields of an event.
type EventPatch struct {
	Title       *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
	StartTime   *string
	EndTime     *string
	IsAllDay    *bool
	Color       *string
}

type State struct {
	Events []Event `json:"events"`
}

type Store struct {
	state *store.Store[State]
}

func New() *Store {
	return &Store{state: store.New(func() State { return State{} })}
}

func (s *Store) Get() State { return s.state.Get() }

func (s *Store) Subscribe(fn store.Listener[State]) func() { return s.state.Subscribe(fn) }

// Persist stores each event as its own record under keys.Calendar.
func (s *Store) Persist(ctx context.Context, engine kv.KV, opts ...persist.Option) *persist.Persister[State] {
	strategy := persist.Entities(
		func(st State) []Event { return st.Events },
		func(st State, events []Event) State { st.Events = events; return st },
		func(e Event) string { return e.ID },
	)
	return persist.Attach(ctx, s.state, engine, keys.Calendar, strategy, opts...)
}

// Add validates in and appends a new event.
func (s *Store) Add(in EventInput) (Event, error) {
	if err := validate.Struct(in); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	ev := Event{
		ID:          ids.New(),
		WorkspaceID: in.WorkspaceID,
		Title:       in.Title,
		Description: in.Description,
		StartDate:   Day(in.StartDate),
		EndDate:     Day(in.EndDate),
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		IsAllDay:    in.IsAllDay,
		Color:       in.Color,
		CreatedAt:   time.Now().UTC(),
	}
	normalise(&ev)
	s.state.Set(func(st State) State {
		st.Events = append(slices.Clip(st.Events), ev)
		return st
	})
	return ev, nil
}

// Update applies patch to the event with id. It reports false for an unknown
// id; a patch that leaves the event invalid is rejected with ErrInvalidEvent
// and the state is unchanged.
func (s *Store) Update(id string, patch EventPatch) (bool, error) {
	var (
		applied bool
		verr    error
	)
	s.state.Set(func(st State) State {
		idx := slices.IndexFunc(st.Events, func(e Event) bool { return e.ID == id })
		if idx < 0 {
			return st
		}
		ev := st.Events[idx]
		patch.apply(&ev)
		if err := validate.Struct(ev.input()); err != nil {
			verr = fmt.Errorf("%w: %v", ErrInvalidEvent, err)
			return st
		}
		normalise(&ev)
		next := slices.Clone(st.Events)
		next[idx] = ev
		st.Events = next
		applied = true
		return st
	})
	return applied, verr
}

func (s *Store) Remove(id string) bool {
	applied := false
	s.state.Set(func(st State) State {
		next := slices.DeleteFunc(slices.Clone(st.Events), func(e Event) bool { return e.ID == id })
		if len(next) == len(st.Events) {
			return st
		}
		st.Events = next
		applied = true
		return st
	})
	return applied
}

// ClearWorkspace drops every event of a workspace and returns how many.
func (s *Store) ClearWorkspace(workspaceID string) int {
	removed := 0
	s.state.Set(func(st State) State {
		next := slices.DeleteFunc(slices.Clone(st.Events), func(e Event) bool { return e.WorkspaceID == workspaceID })
		removed = len(st.Events) - len(next)
		if removed == 0 {
			return st
		}
		st.Events = next
		return st
	})
	return removed
}

func (s *Store) Clear() { s.state.Reset() }

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// input is the form Add validates, used to recheck a patched event.
func (e Event) input() EventInput {
	return EventInput{
		WorkspaceID: e.WorkspaceID,
		Title:       e.Title,
		Description: e.Description,
		StartDate:   e.StartDate,
		EndDate:     e.EndDate,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		IsAllDay:    e.IsAllDay,
		Color:       e.Color,
	}
}

func normalise(e *Event) {
	e.StartDate = Day(e.StartDate)
	e.EndDate = Day(e.EndDate)
	if e.EndDate.IsZero() || e.EndDate.Before(e.StartDate) {
		e.EndDate = e.StartDate
	}
	if e.IsAllDay {
		e.StartTime, e.EndTime = "", ""
	}
	if e.Color == "" {
		e.Color = DefaultColor
	}
}

func (p EventPatch) apply(e *Event) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.StartDate != nil {
		e.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		e.EndDate = *p.EndDate
	}
	if p.StartTime != nil {
		e.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		e.EndTime = *p.EndTime
	}
	if p.IsAllDay != nil {
		e.IsAllDay = *p.IsAllDay
	}
	if p.Color != nil {
		e.Color = *p.Color
	}
}
