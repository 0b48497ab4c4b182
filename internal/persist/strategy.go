package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/duetapp/duet/internal/errors"
	"github.com/duetapp/duet/internal/keys"
	"github.com/duetapp/duet/internal/kv"
)

// Strategy maps a store's state onto KV records and back.
//
// Load returns kv.ErrNotFound (possibly wrapped) when nothing is stored,
// any other error when the stored data cannot be used. Save and Clear are
// only ever called from the key's write queue, one at a time.
type Strategy[S any] interface {
	Load(ctx context.Context, engine kv.KV, key keys.Key, base S, log zerolog.Logger) (S, error)
	Save(ctx context.Context, engine kv.KV, key keys.Key, state S) error
	Clear(ctx context.Context, engine kv.KV, key keys.Key) error
}

// Snapshot persists the whole state as one JSON blob under the key.
func Snapshot[S any]() Strategy[S] {
	return SnapshotOf(
		func(s S) S { return s },
		func(_ S, p S) S { return p },
	)
}

// SnapshotOf persists only the part of the state returned by pick. On load
// the stored blob is merged over pick(defaults) and folded back with apply,
// so fields missing from an older blob keep their default values.
func SnapshotOf[S, P any](pick func(S) P, apply func(S, P) S) Strategy[S] {
	return &snapshot[S, P]{pick: pick, apply: apply}
}

type snapshot[S, P any] struct {
	pick  func(S) P
	apply func(S, P) S
}

func (s *snapshot[S, P]) Load(ctx context.Context, engine kv.KV, key keys.Key, base S, _ zerolog.Logger) (S, error) {
	raw, err := engine.Get(ctx, key.String())
	if err != nil {
		return base, err
	}

	// Seed from a deep copy of the defaults so decoding never writes into
	// collections shared with the initial state.
	seed, err := json.Marshal(s.pick(base))
	if err != nil {
		return base, fmt.Errorf("encode defaults: %w", err)
	}
	part := new(P)
	if err := json.Unmarshal(seed, part); err != nil {
		return base, fmt.Errorf("decode defaults: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), part); err != nil {
		return base, fmt.Errorf("decode %s: %w", key, err)
	}
	return s.apply(base, *part), nil
}

func (s *snapshot[S, P]) Save(ctx context.Context, engine kv.KV, key keys.Key, state S) error {
	blob, err := json.Marshal(s.pick(state))
	if err != nil {
		return errors.AsIrrecoverable(fmt.Errorf("encode %s: %w", key, err))
	}
	return engine.Set(ctx, key.String(), string(blob))
}

func (s *snapshot[S, P]) Clear(ctx context.Context, engine kv.KV, key keys.Key) error {
	return engine.Remove(ctx, key.String())
}
