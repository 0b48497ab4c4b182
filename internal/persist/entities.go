package persist

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/duetapp/duet/internal/errors"
	"github.com/duetapp/duet/internal/keys"
	"github.com/duetapp/duet/internal/kv"
)

// Entities persists one collection of S as individual records: each entity
// lives under key/<id> and the ordered id list under key itself. A save only
// touches records whose entity changed, so write cost follows the size of
// the change rather than the size of the collection.
//
// E must be comparable; an entity counts as changed when it is != to the
// last version written.
func Entities[S any, E comparable](items func(S) []E, withItems func(S, []E) S, id func(E) string) Strategy[S] {
	return &entities[S, E]{
		items:     items,
		withItems: withItems,
		id:        id,
		written:   make(map[string]E),
	}
}

type entities[S any, E comparable] struct {
	items     func(S) []E
	withItems func(S, []E) S
	id        func(E) string

	mu      sync.Mutex
	index   []string
	written map[string]E
}

func (e *entities[S, E]) Load(ctx context.Context, engine kv.KV, key keys.Key, base S, log zerolog.Logger) (S, error) {
	raw, err := engine.Get(ctx, key.String())
	if err != nil {
		return base, err
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return base, fmt.Errorf("decode %s index: %w", key, err)
	}

	loaded := make([]E, 0, len(ids))
	index := make([]string, 0, len(ids))
	written := make(map[string]E, len(ids))
	for _, id := range ids {
		rec, err := engine.Get(ctx, key.Entity(id))
		if stderrors.Is(err, kv.ErrNotFound) {
			// Index written ahead of a record that never landed.
			log.Warn().Str("key", key.String()).Str("id", id).Msg("indexed record missing, skipping")
			continue
		}
		if err != nil {
			return base, fmt.Errorf("read %s: %w", key.Entity(id), err)
		}
		var item E
		if err := json.Unmarshal([]byte(rec), &item); err != nil {
			log.Warn().Err(err).Str("key", key.String()).Str("id", id).Msg("corrupt record, skipping")
			continue
		}
		loaded = append(loaded, item)
		index = append(index, id)
		written[id] = item
	}

	e.mu.Lock()
	e.index = index
	e.written = written
	e.mu.Unlock()

	return e.withItems(base, loaded), nil
}

func (e *entities[S, E]) Save(ctx context.Context, engine kv.KV, key keys.Key, state S) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	items := e.items(state)
	ids := make([]string, 0, len(items))
	live := make(map[string]struct{}, len(items))

	// Records first, then the index, then stale records: a crash in between
	// leaves at worst an orphaned record, never an index entry without data.
	for _, item := range items {
		id := e.id(item)
		ids = append(ids, id)
		live[id] = struct{}{}
		if prev, ok := e.written[id]; ok && prev == item {
			continue
		}
		blob, err := json.Marshal(item)
		if err != nil {
			return errors.AsIrrecoverable(fmt.Errorf("encode %s: %w", key.Entity(id), err))
		}
		if err := engine.Set(ctx, key.Entity(id), string(blob)); err != nil {
			return err
		}
		e.written[id] = item
	}

	if !slices.Equal(ids, e.index) {
		blob, err := json.Marshal(ids)
		if err != nil {
			return errors.AsIrrecoverable(fmt.Errorf("encode %s index: %w", key, err))
		}
		if err := engine.Set(ctx, key.String(), string(blob)); err != nil {
			return err
		}
		e.index = ids
	}

	for id := range e.written {
		if _, ok := live[id]; ok {
			continue
		}
		if err := engine.Remove(ctx, key.Entity(id)); err != nil {
			return err
		}
		delete(e.written, id)
	}
	return nil
}

func (e *entities[S, E]) Clear(ctx context.Context, engine kv.KV, key keys.Key) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make(map[string]struct{}, len(e.written))
	for id := range e.written {
		ids[id] = struct{}{}
	}
	// Also pick up records written by an earlier process.
	if raw, err := engine.Get(ctx, key.String()); err == nil {
		var stored []string
		if json.Unmarshal([]byte(raw), &stored) == nil {
			for _, id := range stored {
				ids[id] = struct{}{}
			}
		}
	}

	for id := range ids {
		if err := engine.Remove(ctx, key.Entity(id)); err != nil {
			return err
		}
		delete(e.written, id)
	}
	if err := engine.Remove(ctx, key.String()); err != nil {
		return err
	}
	e.index = nil
	return nil
}
