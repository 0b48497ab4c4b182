package persist

import (
	stderrors "errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/duetapp/duet/internal/keys"
	"github.com/duetapp/duet/internal/shardqueue"
)

// WriteError is a failed persistence write for one key.
type WriteError struct {
	Key keys.Key
	Err error
}

func (e *WriteError) Error() string { return fmt.Sprintf("persist %s: %v", e.Key, e.Err) }

func (e *WriteError) Unwrap() error { return e.Err }

// NewExecutor starts a write queue whose exhausted writes are logged and
// counted, then dropped. The in-memory state stays correct; only durability
// for the session is lost.
func NewExecutor(cfg shardqueue.Config, log zerolog.Logger) *shardqueue.ShardExecutor {
	prev := cfg.ErrorHandler
	cfg.ErrorHandler = func(err error) {
		var we *WriteError
		if stderrors.As(err, &we) {
			writeFailuresTotal.WithLabelValues(we.Key.String()).Inc()
			log.Error().Err(we.Err).Str("key", we.Key.String()).Msg("persist write dropped")
		} else {
			log.Error().Err(err).Msg("write queue job failed")
		}
		if prev != nil {
			prev(err)
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = &log
	}
	return shardqueue.NewShardExecutor(cfg)
}
