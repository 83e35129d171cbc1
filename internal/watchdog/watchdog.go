// Package watchdog invalidates keys that have been idle for too long.
package watchdog

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	cryptoDomain "github.com/allisson/keymanager/internal/crypto/domain"
	"github.com/allisson/keymanager/internal/events"
	"github.com/allisson/keymanager/internal/metrics"
	"github.com/allisson/keymanager/internal/registry"
)

// DefaultInterval is the time between two ticks.
const DefaultInterval = time.Second

// Watchdog periodically scans a registry and moves keys idle for longer than the
// threshold to Timed-Out.
//
// Each tick publishes an invalidate event for every key it timed out, followed by
// one status event carrying the current key (or nil). Events are delivered in
// order with the registry's events, normally on the goroutine running the tick.
type Watchdog struct {
	registry  *registry.Registry
	clock     clockwork.Clock
	interval  time.Duration
	threshold atomic.Int64
	logger    *slog.Logger
	metrics   metrics.BusinessMetrics

	invalidate events.Topic[*cryptoDomain.Key]
	status     events.Topic[*cryptoDomain.Key]

	startOnce sync.Once
	done      chan struct{}
}

// Option configures a Watchdog.
type Option func(*Watchdog)

// WithClock sets the clock driving ticks and idle computations.
func WithClock(clock clockwork.Clock) Option {
	return func(w *Watchdog) {
		w.clock = clock
	}
}

// WithInterval sets the time between ticks. Non-positive values are ignored.
func WithInterval(interval time.Duration) Option {
	return func(w *Watchdog) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

// WithLogger sets the logger used to report timeouts.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watchdog) {
		w.logger = logger
	}
}

// WithMetrics records a key_timeout operation for every key the watchdog times out.
func WithMetrics(m metrics.BusinessMetrics) Option {
	return func(w *Watchdog) {
		w.metrics = m
	}
}

// New creates a stopped Watchdog over reg.
func New(reg *registry.Registry, threshold time.Duration, opts ...Option) *Watchdog {
	w := &Watchdog{
		registry: reg,
		clock:    clockwork.NewRealClock(),
		interval: DefaultInterval,
		logger:   slog.New(slog.DiscardHandler),
		metrics:  metrics.NewNoOpBusinessMetrics(),
		done:     make(chan struct{}),
	}
	w.threshold.Store(int64(threshold))
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SetThreshold changes the idle threshold. It may be called while running and
// takes effect on the next tick.
func (w *Watchdog) SetThreshold(threshold time.Duration) {
	w.threshold.Store(int64(threshold))
}

// Threshold returns the idle threshold.
func (w *Watchdog) Threshold() time.Duration {
	return time.Duration(w.threshold.Load())
}

// OnInvalidate subscribes fn to keys being timed out.
func (w *Watchdog) OnInvalidate(fn func(*cryptoDomain.Key)) (unsubscribe func()) {
	return w.invalidate.Subscribe(fn)
}

// OnStatus subscribes fn to the per-tick status report. The key is nil when no
// key is current.
func (w *Watchdog) OnStatus(fn func(*cryptoDomain.Key)) (unsubscribe func()) {
	return w.status.Subscribe(fn)
}

// Start launches the tick loop, which runs until ctx is done. Only the first call
// has any effect.
func (w *Watchdog) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		go w.run(ctx)
	})
}

// Done is closed once a started watchdog has stopped. It is never closed for a
// watchdog that was not started.
func (w *Watchdog) Done() <-chan struct{} {
	return w.done
}

func (w *Watchdog) run(ctx context.Context) {
	defer close(w.done)

	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Debug("watchdog started",
		slog.Duration("interval", w.interval),
		slog.Duration("threshold", w.Threshold()),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("watchdog stopped")
			return
		case <-ticker.Chan():
			w.Tick(ctx)
		}
	}
}

// Tick runs one scan and returns the keys it timed out. The scan holds the
// registry lock, so a key removed concurrently is either timed out and reported
// before its removal event, or not touched at all.
func (w *Watchdog) Tick(ctx context.Context) []*cryptoDomain.Key {
	now := w.clock.Now()
	threshold := w.Threshold()

	return w.registry.Sweep(
		func(key *cryptoDomain.Key) bool {
			return key.ExpireIfIdle(now, threshold)
		},
		func(key *cryptoDomain.Key) {
			w.logger.Info("key timed out",
				slog.String("key_id", key.ID()),
				slog.String("path", key.Path()),
				slog.Duration("threshold", threshold),
			)
			w.metrics.RecordOperation(ctx, "keys", "key_timeout", "success")
			w.invalidate.Publish(key)
		},
		w.status.Publish,
	)
}
