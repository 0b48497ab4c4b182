// Package shardqueue provides a lightweight sharded work-queue that guarantees
// FIFO order *per key* while allowing parallelism across shards.
//
// The persistence layer uses it as a write-behind queue: each persisted store
// submits under its own key, so writes for one store never reorder while
// different stores flush in parallel.
//
// **Contract**: FIFO ordering for a key holds only for Submit calls that are
// themselves ordered (happen-before) by the caller.
package shardqueue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/duetapp/duet/internal/errors"
)

type queuedJob struct {
	ctx context.Context
	job Job
}

// ShardExecutor executes Jobs on worker goroutines partitioned by a stable hash
// of the key. FIFO ordering is preserved within a shard; jobs with different
// keys may run in parallel.
type ShardExecutor struct {
	cfg    Config
	log    zerolog.Logger
	queues []chan queuedJob // len == cfg.Shards

	done   chan struct{} // closed in Stop()
	closed uint32        // 0 → running, 1 → closed

	wg sync.WaitGroup
}

// NewShardExecutor constructs the executor and starts its shard workers.
func NewShardExecutor(cfg Config) *ShardExecutor {
	cfg = cfg.withDefaults()

	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = cfg.Logger.With().Str("component", "shardqueue").Logger()
	}

	p := &ShardExecutor{
		cfg:    cfg,
		log:    log,
		queues: make([]chan queuedJob, cfg.Shards),
		done:   make(chan struct{}),
	}
	for i := 0; i < cfg.Shards; i++ {
		ch := make(chan queuedJob, cfg.QueueSize)
		p.queues[i] = ch
		p.wg.Add(1)
		go p.runWorker(i, ch)
	}
	return p
}

// Submit enqueues job for the shard derived from key.
//
//   - Returns nil on success.
//   - Returns ErrExecutorClosed if the executor is stopped.
//   - Returns ErrQueueFull (wrapped in *QueueFullError) if the shard is full
//     after EnqueueTimeout elapses.
//   - Returns ctx.Err() if the caller-provided context is cancelled first.
func (p *ShardExecutor) Submit(ctx context.Context, key string, job Job) error {
	if atomic.LoadUint32(&p.closed) == 1 {
		return ErrExecutorClosed
	}
	select {
	case <-p.done:
		return ErrExecutorClosed
	default:
	}

	qj := queuedJob{ctx: ctx, job: job}
	shard := p.shardFor(key)
	ch := p.queues[shard]

	timer := time.NewTimer(p.cfg.EnqueueTimeout)
	defer timer.Stop()

	select {
	case ch <- qj:
		submissionsTotal.WithLabelValues(labelFor(shard)).Inc()
		return nil

	case <-p.done: // Stop() may be called while waiting for space
		return ErrExecutorClosed

	case <-ctx.Done():
		return ctx.Err()

	case <-timer.C:
		queueFullTotal.WithLabelValues(labelFor(shard)).Inc()
		return &QueueFullError{
			Shard:    shard,
			Length:   len(ch),
			Capacity: cap(ch),
		}
	}
}

// Barrier enqueues a no-op job on the shard for key and waits until it runs,
// ensuring all previously submitted jobs for that key have completed.
func (p *ShardExecutor) Barrier(ctx context.Context, key string) error {
	done := make(chan struct{})
	j := JobFunc(func(context.Context) error {
		close(done)
		return nil
	})
	if err := p.Submit(ctx, key, j); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Stop signals every worker to finish draining its current queue, waits for
// them to terminate, and then returns. It is idempotent and safe for
// concurrent use.
func (p *ShardExecutor) Stop() {
	if !atomic.CompareAndSwapUint32(&p.closed, 0, 1) {
		return
	}

	p.log.Debug().Int("shards", p.cfg.Shards).Msg("stopping executor, draining shards")
	close(p.done)
	p.wg.Wait()
	p.log.Debug().Msg("executor stopped, all queues drained")
}

// Close lets ShardExecutor satisfy io.Closer.
func (p *ShardExecutor) Close() error {
	p.Stop()
	return nil
}

// ------------------------- internals -------------------------

func (p *ShardExecutor) runWorker(idx int, ch <-chan queuedJob) {
	defer p.wg.Done()
	label := labelFor(idx)

	for {
		var qj queuedJob
		select {
		case qj = <-ch:
		case <-p.done:
			p.drain(idx, label, ch)
			return
		}
		if qj.job == nil {
			continue
		}
		if err := qj.ctx.Err(); err != nil {
			// The submitter gave up; skip the write.
			p.safeHandleError(err)
		} else if p.runWithRetry(idx, label, qj) {
			return
		}
		queueDepth.WithLabelValues(label).Set(float64(len(ch)))
	}
}

// drain runs what is left in ch once, in order. Retries are skipped so Stop
// always returns.
func (p *ShardExecutor) drain(idx int, label string, ch <-chan queuedJob) {
	defer queueDepth.WithLabelValues(label).Set(0)
	n := 0
	for {
		select {
		case qj := <-ch:
			if qj.job == nil {
				continue
			}
			n++
			if err := p.runOnce(idx, qj); err != nil {
				p.safeHandleError(err)
			}
		default:
			if n > 0 {
				p.log.Debug().Int("worker", idx).Int("drained", n).Msg("flushed queued writes on stop")
			}
			return
		}
	}
}

// runWithRetry runs qj until it succeeds, fails irrecoverably or exhausts
// MaxAttempts. It reports true when the executor stopped mid-backoff.
func (p *ShardExecutor) runWithRetry(idx int, label string, qj queuedJob) bool {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.cfg.BaseBackoff
	exp.Multiplier = 2
	exp.MaxInterval = p.cfg.MaxInterval
	exp.Reset()

	for attempt := 1; ; attempt++ {
		start := time.Now()
		err := p.runOnce(idx, qj)
		runDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
		if err == nil {
			return false
		}
		if errors.IsIrrecoverable(err) || attempt >= p.cfg.MaxAttempts {
			p.safeHandleError(err)
			return false
		}

		retriesTotal.WithLabelValues(label).Inc()
		select {
		case <-time.After(exp.NextBackOff()):
		case <-p.done:
			// Give the job one last chance during shutdown.
			if err := p.runOnce(idx, qj); err != nil {
				p.safeHandleError(err)
			}
			return false
		case <-qj.ctx.Done():
			p.safeHandleError(qj.ctx.Err())
			return false
		}
	}
}

// runOnce runs the job, converting a panic into an irrecoverable error so one
// bad job never takes the shard down.
func (p *ShardExecutor) runOnce(idx int, qj queuedJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Int("worker", idx).Interface("panic", r).Msg("job panic")
			err = errors.Irrecoverablef("job panic: %v", r)
		}
	}()
	return qj.job.Run(qj.ctx)
}

func (p *ShardExecutor) safeHandleError(err error) {
	if err == nil || p.cfg.ErrorHandler == nil {
		return
	}
	func() {
		// Guard against panics in the user-supplied handler.
		defer func() {
			if r := recover(); r != nil {
				p.log.Error().Interface("panic", r).Msg("error handler panic")
			}
		}()
		p.cfg.ErrorHandler(err)
	}()
}

func (p *ShardExecutor) shardFor(key string) int {
	h := fnv.New32a() // fast and sufficient at our scale
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(p.cfg.Shards))
}

func labelFor(shard int) string { return strconv.Itoa(shard) }
