// Package story records walks as location paths and keeps the saved
// results. Stories and memories are two instances of the same store.
package story

import (
	"context"
	"slices"
	"time"

	"github.com/duetapp/duet/internal/ids"
	"github.com/duetapp/duet/internal/keys"
	"github.com/duetapp/duet/internal/kv"
	"github.com/duetapp/duet/internal/persist"
	"github.com/duetapp/duet/internal/store"
)

// DefaultMaxPoints caps the recording buffer when no limit is given.
const DefaultMaxPoints = 5000

type LocationPoint struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// Record is a saved story or memory. Its Path is never modified after Save.
type Record struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	Date         time.Time       `json:"date"`
	Path         []LocationPoint `json:"path"`
	ThumbnailURL string          `json:"thumbnailUrl,omitempty"`
	UserID       string          `json:"userId"`
	WorkspaceID  string          `json:"workspaceId"`
}

// Meta describes a record being saved. A blank ID is generated and a zero
// Date defaults to now.
type Meta struct {
	ID           string
	Title        string
	Description  string
	Date         time.Time
	ThumbnailURL string
	UserID       string
	WorkspaceID  string
}

// Patch changes the non-nil fields of a saved record.
type Patch struct {
	Title        *string
	Description  *string
	ThumbnailURL *string
}

// State is the saved records plus the in-progress recording.
//
// While recording, points are sampled every Stride-th fix. When the buffer
// exceeds its cap every other buffered point is dropped and Stride doubles,
// so a long walk keeps its full extent at a coarser resolution.
type State struct {
	Records       []Record
	IsRecording   bool
	RecordingPath []LocationPoint
	Stride        int

	sinceKept int
}

type Store struct {
	key       keys.Key
	maxPoints int
	state     *store.Store[State]
}

// New returns an empty store persisted (if at all) under key. maxPoints <= 0
// selects DefaultMaxPoints.
func New(key keys.Key, maxPoints int) *Store {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	return &Store{
		key:       key,
		maxPoints: maxPoints,
		state:     store.New(func() State { return State{Stride: 1} }),
	}
}

func (s *Store) Key() keys.Key { return s.key }

func (s *Store) Get() State { return s.state.Get() }

func (s *Store) Subscribe(fn store.Listener[State]) func() { return s.state.Subscribe(fn) }

// Persist keeps saved records under the store's key. The recording buffer
// is never persisted.
func (s *Store) Persist(ctx context.Context, engine kv.KV, opts ...persist.Option) *persist.Persister[State] {
	strategy := persist.SnapshotOf(
		func(st State) []Record { return st.Records },
		func(st State, recs []Record) State { st.Records = recs; return st },
	)
	return persist.Attach(ctx, s.state, engine, s.key, strategy, opts...)
}

// StartRecording discards any stale buffer and begins a new recording.
func (s *Store) StartRecording() {
	s.state.Set(func(st State) State {
		st.IsRecording = true
		st.RecordingPath = nil
		st.Stride = 1
		st.sinceKept = 0
		return st
	})
}

// AddPoint appends p to the buffer. Points arriving while idle are dropped
// and reported as false.
func (s *Store) AddPoint(p LocationPoint) bool {
	recording := false
	s.state.Set(func(st State) State {
		if !st.IsRecording {
			return st
		}
		recording = true
		return st.withPoint(p, s.maxPoints)
	})
	return recording
}

// StopRecording ends the recording and discards the buffer.
func (s *Store) StopRecording() {
	s.state.Set(func(st State) State {
		st.IsRecording = false
		st.RecordingPath = nil
		st.Stride = 1
		st.sinceKept = 0
		return st
	})
}

// Save turns the buffer into a new record and ends the recording. It
// returns false, leaving state unchanged, if a record with meta.ID exists.
func (s *Store) Save(meta Meta) (Record, bool) {
	if meta.ID == "" {
		meta.ID = ids.New()
	}
	if meta.Date.IsZero() {
		meta.Date = time.Now().UTC()
	}
	var (
		rec   Record
		saved bool
	)
	s.state.Set(func(st State) State {
		if slices.ContainsFunc(st.Records, func(r Record) bool { return r.ID == meta.ID }) {
			return st
		}
		rec = Record{
			ID:           meta.ID,
			Title:        meta.Title,
			Description:  meta.Description,
			Date:         meta.Date,
			Path:         slices.Clip(st.RecordingPath),
			ThumbnailURL: meta.ThumbnailURL,
			UserID:       meta.UserID,
			WorkspaceID:  meta.WorkspaceID,
		}
		if rec.Path == nil {
			rec.Path = []LocationPoint{}
		}
		st.Records = append(slices.Clip(st.Records), rec)
		st.IsRecording = false
		st.RecordingPath = nil
		st.Stride = 1
		st.sinceKept = 0
		saved = true
		return st
	})
	return rec, saved
}

func (s *Store) Update(id string, p Patch) bool {
	applied := false
	s.state.Set(func(st State) State {
		idx := slices.IndexFunc(st.Records, func(r Record) bool { return r.ID == id })
		if idx < 0 {
			return st
		}
		recs := slices.Clone(st.Records)
		if p.Title != nil {
			recs[idx].Title = *p.Title
		}
		if p.Description != nil {
			recs[idx].Description = *p.Description
		}
		if p.ThumbnailURL != nil {
			recs[idx].ThumbnailURL = *p.ThumbnailURL
		}
		st.Records = recs
		applied = true
		return st
	})
	return applied
}

func (s *Store) Remove(id string) bool {
	applied := false
	s.state.Set(func(st State) State {
		next := slices.DeleteFunc(slices.Clone(st.Records), func(r Record) bool { return r.ID == id })
		if len(next) == len(st.Records) {
			return st
		}
		st.Records = next
		applied = true
		return st
	})
	return applied
}

// Clear drops saved records and any recording.
func (s *Store) Clear() { s.state.Reset() }

func (st State) withPoint(p LocationPoint, maxPoints int) State {
	if st.Stride < 1 {
		st.Stride = 1
	}
	st.sinceKept++
	if st.RecordingPath != nil && st.sinceKept < st.Stride {
		return st
	}
	st.sinceKept = 0
	path := append(slices.Clip(st.RecordingPath), p)
	if len(path) > maxPoints {
		path = decimate(path)
		st.Stride *= 2
	}
	st.RecordingPath = path
	return st
}

// decimate keeps every other point, starting with the first.
func decimate(path []LocationPoint) []LocationPoint {
	out := make([]LocationPoint, 0, (len(path)+1)/2)
	for i := 0; i < len(path); i += 2 {
		out = append(out, path[i])
	}
	return out
}

// ForWorkspace returns the workspace's records, newest first.
func ForWorkspace(st State, workspaceID string) []Record {
	var out []Record
	for _, r := range st.Records {
		if r.WorkspaceID == workspaceID {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b Record) int { return b.Date.Compare(a.Date) })
	return out
}
