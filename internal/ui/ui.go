// Package ui holds transient modal and toast requests. At most one of each
// is visible; a new request replaces the current one.
package ui

import (
	"time"

	"github.com/duetapp/duet/internal/store"
)

// DefaultToastDuration applies when neither the store nor the call sets one.
const DefaultToastDuration = 3 * time.Second

type ToastType string

const (
	ToastInfo    ToastType = "info"
	ToastSuccess ToastType = "success"
	ToastError   ToastType = "error"
)

type ModalOptions struct {
	Title       string
	Message     string
	ConfirmText string
	CancelText  string
	OnConfirm   func()
	OnCancel    func()
}

type ModalState struct {
	Visible bool
	Options ModalOptions
}

// ToastState carries Seq, which increases with every toast so a timer can
// tell whether the toast it was started for is still the one showing.
type ToastState struct {
	Visible  bool
	Message  string
	Type     ToastType
	Duration time.Duration
	Seq      uint64
}

type State struct {
	Modal ModalState
	Toast ToastState
}

// Timer is the part of *time.Timer the store uses.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer

type Option func(*Store)

// WithAfterFunc replaces time.AfterFunc, for tests.
func WithAfterFunc(fn AfterFunc) Option {
	return func(s *Store) { s.afterFunc = fn }
}

// WithToastDuration sets the duration used when ShowToast gets zero.
func WithToastDuration(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.toastDuration = d
		}
	}
}

type Store struct {
	state         *store.Store[State]
	afterFunc     AfterFunc
	toastDuration time.Duration

	// timer is only touched inside state.Set callbacks, which serialise it.
	timer Timer
}

func New(opts ...Option) *Store {
	s := &Store{
		state: store.New(func() State { return State{} }),
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
		toastDuration: DefaultToastDuration,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Get() State { return s.state.Get() }

func (s *Store) Subscribe(fn store.Listener[State]) func() { return s.state.Subscribe(fn) }

// ShowModal displays opts, replacing any visible modal.
func (s *Store) ShowModal(opts ModalOptions) {
	s.state.Set(func(st State) State {
		st.Modal = ModalState{Visible: true, Options: opts}
		return st
	})
}

func (s *Store) HideModal() {
	s.state.Set(func(st State) State {
		st.Modal = ModalState{}
		return st
	})
}

// Confirm hides the modal and then runs its OnConfirm callback.
func (s *Store) Confirm() bool {
	opts, ok := s.dismiss()
	if ok && opts.OnConfirm != nil {
		opts.OnConfirm()
	}
	return ok
}

// Cancel hides the modal and then runs its OnCancel callback.
func (s *Store) Cancel() bool {
	opts, ok := s.dismiss()
	if ok && opts.OnCancel != nil {
		opts.OnCancel()
	}
	return ok
}

func (s *Store) dismiss() (ModalOptions, bool) {
	var (
		opts    ModalOptions
		visible bool
	)
	s.state.Set(func(st State) State {
		opts, visible = st.Modal.Options, st.Modal.Visible
		st.Modal = ModalState{}
		return st
	})
	return opts, visible
}

// ShowToast displays message for d (or the store default when d is zero).
// Any visible toast is replaced and its timer stopped; only one timer is
// ever pending.
func (s *Store) ShowToast(message string, typ ToastType, d time.Duration) {
	if d <= 0 {
		d = s.toastDuration
	}
	if typ == "" {
		typ = ToastInfo
	}
	s.state.Set(func(st State) State {
		if s.timer != nil {
			s.timer.Stop()
		}
		seq := st.Toast.Seq + 1
		st.Toast = ToastState{Visible: true, Message: message, Type: typ, Duration: d, Seq: seq}
		s.timer = s.afterFunc(d, func() { s.expire(seq) })
		return st
	})
}

// HideToast hides the toast now and cancels its timer.
func (s *Store) HideToast() {
	s.state.Set(func(st State) State {
		if s.timer != nil {
			s.timer.Stop()
			s.timer = nil
		}
		st.Toast.Visible = false
		return st
	})
}

func (s *Store) expire(seq uint64) {
	s.state.Set(func(st State) State {
		if st.Toast.Seq != seq || !st.Toast.Visible {
			return st
		}
		s.timer = nil
		st.Toast.Visible = false
		return st
	})
}
