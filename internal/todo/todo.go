// Package todo holds shared to-do items.
package todo

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

// ErrInvalidTodo wraps validation failures from Add and Update.
var ErrInvalidTodo = errors.New("todo: invalid item")

var validate = validator.New(validator.WithRequiredStructEnabled())

type Todo struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	IsCompleted bool      `json:"isCompleted"`
	AssigneeID  string    `json:"assigneeId,omitempty"`
	DueDate     time.Time `json:"dueDate,omitzero"`
	CreatedAt   time.Time `json:"createdAt"`
	CompletedAt time.Time `json:"completedAt,omitzero"`
}

type Input struct {
	WorkspaceID string `validate:"required"`
	Title       string `validate:"required,max=200"`
	Description string `validate:"max=2000"`
	AssigneeID  string
	DueDate     time.Time
}

// Patch changes the non-nil fields of a to-do.
type Patch struct {
	Title       *string
	Description *string
	DueDate     *time.Time
}

type State struct {
	Todos []Todo `json:"todos"`
}

type Store struct {
	state *store.Store[State]
	now   func() time.Time
}

func New() *Store {
	return &Store{
		state: store.New(func() State { return State{} }),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Get() State { return s.state.Get() }

func (s *Store) Subscribe(fn store.Listener[State]) func() { return s.state.Subscribe(fn) }

// Persist stores each to-do as its own record under keys.Todos.
func (s *Store) Persist(ctx context.Context, engine kv.KV, opts ...persist.Option) *persist.Persister[State] {
	strategy := persist.Entities(
		func(st State) []Todo { return st.Todos },
		func(st State, todos []Todo) State { st.Todos = todos; return st },
		func(t Todo) string { return t.ID },
	)
	return persist.Attach(ctx, s.state, engine, keys.Todos, strategy, opts...)
}

func (s *Store) Add(in Input) (Todo, error) {
	if err := validate.Struct(in); err != nil {
		return Todo{}, fmt.Errorf("%w: %v", ErrInvalidTodo, err)
	}
	t := Todo{
		ID:          ids.New(),
		WorkspaceID: in.WorkspaceID,
		Title:       in.Title,
		Description: in.Description,
		AssigneeID:  in.AssigneeID,
		DueDate:     dueDay(in.DueDate),
		CreatedAt:   s.now(),
	}
	s.state.Set(func(st State) State {
		st.Todos = append(slices.Clip(st.Todos), t)
		return st
	})
	return t, nil
}

// Update applies p to the to-do with id. A patch that leaves the item invalid
// is rejected with ErrInvalidTodo and the state is unchanged.
func (s *Store) Update(id string, p Patch) (bool, error) {
	var (
		applied bool
		verr    error
	)
	s.state.Set(func(st State) State {
		idx := slices.IndexFunc(st.Todos, func(t Todo) bool { return t.ID == id })
		if idx < 0 {
			return st
		}
		t := st.Todos[idx]
		if p.Title != nil {
			t.Title = *p.Title
		}
		if p.Description != nil {
			t.Description = *p.Description
		}
		if p.DueDate != nil {
			t.DueDate = dueDay(*p.DueDate)
		}
		if err := validate.Struct(t.input()); err != nil {
			verr = fmt.Errorf("%w: %v", ErrInvalidTodo, err)
			return st
		}
		next := slices.Clone(st.Todos)
		next[idx] = t
		st.Todos = next
		applied = true
		return st
	})
	return applied, verr
}

// Toggle flips completion.
func (s *Store) Toggle(id string) bool {
	now := s.now()
	return s.update(id, func(t *Todo) {
		t.IsCompleted = !t.IsCompleted
		if t.IsCompleted {
			t.CompletedAt = now
		} else {
			t.CompletedAt = time.Time{}
		}
	})
}

// Assign sets the assignee; an empty memberID unassigns.
func (s *Store) Assign(id, memberID string) bool {
	return s.update(id, func(t *Todo) { t.AssigneeID = memberID })
}

func (s *Store) Remove(id string) bool {
	applied := false
	s.state.Set(func(st State) State {
		next := slices.DeleteFunc(slices.Clone(st.Todos), func(t Todo) bool { return t.ID == id })
		if len(next) == len(st.Todos) {
			return st
		}
		st.Todos = next
		applied = true
		return st
	})
	return applied
}

// ClearCompleted removes the completed items of a workspace and returns how
// many were removed.
func (s *Store) ClearCompleted(workspaceID string) int {
	removed := 0
	s.state.Set(func(st State) State {
		next := slices.DeleteFunc(slices.Clone(st.Todos), func(t Todo) bool {
			return t.WorkspaceID == workspaceID && t.IsCompleted
		})
		removed = len(st.Todos) - len(next)
		if removed == 0 {
			return st
		}
		st.Todos = next
		return st
	})
	return removed
}

func (s *Store) Clear() { s.state.Reset() }

func (s *Store) update(id string, fn func(*Todo)) bool {
	applied := false
	s.state.Set(func(st State) State {
		idx := slices.IndexFunc(st.Todos, func(t Todo) bool { return t.ID == id })
		if idx < 0 {
			return st
		}
		next := slices.Clone(st.Todos)
		fn(&next[idx])
		st.Todos = next
		applied = true
		return st
	})
	return applied
}

func (t Todo) input() Input {
	return Input{
		WorkspaceID: t.WorkspaceID,
		Title:       t.Title,
		Description: t.Description,
		AssigneeID:  t.AssigneeID,
		DueDate:     t.DueDate,
	}
}

func dueDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ForWorkspace returns a workspace's to-dos in creation order.
func ForWorkspace(st State, workspaceID string) []Todo {
	return filter(st.Todos, func(t Todo) bool { return t.WorkspaceID == workspaceID })
}

func Pending(st State, workspaceID string) []Todo {
	return filter(st.Todos, func(t Todo) bool { return t.WorkspaceID == workspaceID && !t.IsCompleted })
}

func Completed(st State, workspaceID string) []Todo {
	return filter(st.Todos, func(t Todo) bool { return t.WorkspaceID == workspaceID && t.IsCompleted })
}

// DueOn returns the workspace's to-dos due on day's calendar date.
func DueOn(st State, workspaceID string, day time.Time) []Todo {
	d := dueDay(day)
	return filter(st.Todos, func(t Todo) bool { return t.WorkspaceID == workspaceID && !t.DueDate.IsZero() && t.DueDate.Equal(d) })
}

func filter(in []Todo, keep func(Todo) bool) []Todo {
	var out []Todo
	for _, t := range in {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
