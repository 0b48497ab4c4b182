// Package persist keeps a store's state in a kv.KV engine.
//
// Attach rehydrates the store synchronously and then mirrors every mutation
// to the engine through a write-behind queue. Writes for one key are FIFO
// and coalesce: while a write is pending, further mutations ride along with
// it, since the queued job serialises whatever the state is when it runs.
// Unusable persisted data never fails Attach; the store keeps its defaults.
package persist

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/duetapp/duet/internal/keys"
	"github.com/duetapp/duet/internal/kv"
	"github.com/duetapp/duet/internal/shardqueue"
	"github.com/duetapp/duet/internal/store"
)

// Option configures a Persister.
type Option func(*options)

type options struct {
	exec *shardqueue.ShardExecutor
	log  zerolog.Logger
}

// WithExecutor shares a write queue between persisters. Without it each
// Persister starts and owns a private one.
func WithExecutor(exec *shardqueue.ShardExecutor) Option {
	return func(o *options) { o.exec = exec }
}

// WithLogger sets the logger for rehydration and write diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// Persister mirrors one store under one key.
type Persister[S any] struct {
	store    *store.Store[S]
	engine   kv.KV
	key      keys.Key
	strategy Strategy[S]
	exec     *shardqueue.ShardExecutor
	ownsExec bool
	log      zerolog.Logger

	pending atomic.Bool
	unsub   func()
	once    sync.Once
}

// Attach rehydrates s from engine under key and starts persisting every
// subsequent mutation. The store is ready when Attach returns.
func Attach[S any](ctx context.Context, s *store.Store[S], engine kv.KV, key keys.Key, strategy Strategy[S], opts ...Option) *Persister[S] {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Persister[S]{
		store:    s,
		engine:   engine,
		key:      key,
		strategy: strategy,
		exec:     o.exec,
		log:      o.log.With().Str("key", key.String()).Logger(),
	}
	if p.exec == nil {
		p.exec = NewExecutor(shardqueue.Config{Shards: 1}, o.log)
		p.ownsExec = true
	}

	p.rehydrate(ctx)
	p.unsub = s.Subscribe(func(_, _ S) { p.schedule() })
	return p
}

// Key returns the persistence key.
func (p *Persister[S]) Key() keys.Key { return p.key }

func (p *Persister[S]) rehydrate(ctx context.Context) {
	base := p.store.Get()
	loaded, err := p.strategy.Load(ctx, p.engine, p.key, base, p.log)
	switch {
	case err == nil:
		rehydrateTotal.WithLabelValues(p.key.String(), "restored").Inc()
		p.store.Replace(loaded)
		p.log.Debug().Msg("state rehydrated")
	case stderrors.Is(err, kv.ErrNotFound):
		rehydrateTotal.WithLabelValues(p.key.String(), "empty").Inc()
	default:
		rehydrateTotal.WithLabelValues(p.key.String(), "fallback").Inc()
		p.log.Warn().Err(err).Msg("persisted state unusable, using defaults")
	}
}

func (p *Persister[S]) schedule() {
	if !p.pending.CompareAndSwap(false, true) {
		return
	}
	err := p.exec.Submit(context.Background(), p.key.String(), shardqueue.JobFunc(p.write))
	if err != nil {
		p.pending.Store(false)
		writeFailuresTotal.WithLabelValues(p.key.String()).Inc()
		p.log.Error().Err(err).Msg("persist write not queued, dropping")
	}
}

func (p *Persister[S]) write(ctx context.Context) error {
	// Clear before reading so a mutation that lands during Save queues a
	// fresh write instead of being lost.
	p.pending.Store(false)
	state := p.store.Get()
	if err := p.strategy.Save(ctx, p.engine, p.key, state); err != nil {
		return &WriteError{Key: p.key, Err: err}
	}
	writesTotal.WithLabelValues(p.key.String()).Inc()
	return nil
}

// Flush blocks until every write queued so far for this key has finished.
func (p *Persister[S]) Flush(ctx context.Context) error {
	return p.exec.Barrier(ctx, p.key.String())
}

// Clear removes the persisted state once queued writes have finished. The
// in-memory store is left alone; a later mutation persists again.
func (p *Persister[S]) Clear(ctx context.Context) error {
	errc := make(chan error, 1)
	job := shardqueue.JobFunc(func(ctx context.Context) error {
		err := p.strategy.Clear(ctx, p.engine, p.key)
		if err == nil {
			errc <- nil
		}
		return err
	})
	if err := p.exec.Submit(ctx, p.key.String(), job); err != nil {
		return fmt.Errorf("clear %s: %w", p.key, err)
	}
	// A clear that keeps failing is reported through the executor's error
	// handler; the barrier lets us notice it without waiting on errc forever.
	if err := p.exec.Barrier(ctx, p.key.String()); err != nil {
		return fmt.Errorf("clear %s: %w", p.key, err)
	}
	select {
	case err := <-errc:
		if err == nil {
			p.log.Debug().Msg("persisted state cleared")
		}
		return err
	default:
		return fmt.Errorf("clear %s: gave up after retries", p.key)
	}
}

// Detach stops persisting. Queued writes still run. If the Persister owns its
// executor, Detach drains and stops it.
func (p *Persister[S]) Detach() {
	p.once.Do(func() {
		p.unsub()
		if p.ownsExec {
			p.exec.Stop()
		}
	})
}
