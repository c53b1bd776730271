package eventstore

import (
	"github.com/rs/zerolog"

	"github.com/dshills/deskkit/internal/eventstore/async"
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for overwrites and swallowed failures.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) {
		s.log = log.With().Str("component", "eventstore").Logger()
	}
}

// WithCatch sets a hook that receives every failure swallowed by a dispatch
// through the store. A panicking hook is ignored.
func WithCatch(fn func(err error)) Option {
	return func(s *Store) {
		s.catch = fn
	}
}

// WithAsyncPool runs async handlers on pool instead of one goroutine each.
// The caller owns the pool's lifecycle.
func WithAsyncPool(pool *async.Pool) Option {
	return func(s *Store) {
		s.pool = pool
	}
}
