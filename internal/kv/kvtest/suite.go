// Package kvtest holds a compliance suite shared by every kv.KV engine.
package kvtest

import (
	"context"
	"errors"
	"testing"

	"github.com/duetapp/duet/internal/kv"
)

// Run exercises get/set/remove semantics against a fresh engine returned by makeKV.
func Run(t *testing.T, makeKV func(t *testing.T) kv.KV) {
	t.Helper()
	ctx := context.Background()
	s := makeKV(t)

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Get missing: expected ErrNotFound, got %v", err)
	}

	if err := s.Set(ctx, "auth", `{"accessToken":"a"}`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, "auth")
	if err != nil || got != `{"accessToken":"a"}` {
		t.Fatalf("Get after Set: got=%q err=%v", got, err)
	}

	// overwrite
	if err := s.Set(ctx, "auth", `{}`); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	if got, _ := s.Get(ctx, "auth"); got != `{}` {
		t.Fatalf("overwrite not applied: %q", got)
	}

	// empty values are legal and distinct from missing
	if err := s.Set(ctx, "empty", ""); err != nil {
		t.Fatalf("Set empty: %v", err)
	}
	if got, err := s.Get(ctx, "empty"); err != nil || got != "" {
		t.Fatalf("Get empty: got=%q err=%v", got, err)
	}

	// keys are disjoint
	if err := s.Set(ctx, "todos", `[]`); err != nil {
		t.Fatalf("Set todos: %v", err)
	}
	if got, _ := s.Get(ctx, "auth"); got != `{}` {
		t.Fatalf("unrelated key clobbered: %q", got)
	}

	if err := s.Remove(ctx, "auth"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := s.Get(ctx, "auth"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Get after Remove: expected ErrNotFound, got %v", err)
	}
	if err := s.Remove(ctx, "auth"); err != nil {
		t.Fatalf("Remove missing key should be a no-op, got %v", err)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if err := s.Set(cctx, "x", "y"); err == nil {
		t.Fatalf("Set with cancelled context: expected error")
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
