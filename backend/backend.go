// Package backend executes Redis administration commands.
//
// Every command takes a typed argument record and returns a result.Result.
// Logical failures, such as a missing key or an unreachable server, are
// reported as failed results; Go errors are reserved for the dispatcher's
// transport tier.
package backend

import (
	"log/slog"
	"time"

	"github.com/dracory/weeredis/shared/result"
	"github.com/redis/go-redis/v9"
)

// DefaultScanBatchSize is the COUNT hint of each SCAN round trip.
const DefaultScanBatchSize = 500

// Backend runs commands against the connections of a Registry.
type Backend struct {
	registry  *Registry
	scanBatch int64
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Backend.
type Option func(*Backend)

// WithScanBatchSize sets the SCAN COUNT hint.
func WithScanBatchSize(n int) Option {
	return func(b *Backend) {
		if n > 0 {
			b.scanBatch = int64(n)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// WithClock replaces the clock used when the server cannot report a save time.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) { b.now = now }
}

// New creates a Backend over registry.
func New(registry *Registry, options ...Option) *Backend {
	b := &Backend{
		registry:  registry,
		scanBatch: DefaultScanBatchSize,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, option := range options {
		option(b)
	}
	return b
}

// client resolves the client of the selected database of a connection.
func (b *Backend) client(id string) (*redis.Client, error) {
	c, err := b.registry.get(id)
	if err != nil {
		return nil, err
	}
	return c.current()
}

func fail[T any](err error) result.Result[T] {
	return result.Failure[T](err.Error())
}
