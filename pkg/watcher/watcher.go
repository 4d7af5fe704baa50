// Package watcher drives the heartbeat cadence: each tick atomically drains
// the shared counter into a snapshot and submits it through the merge
// emitter, surviving store failures and flushing residual activity on
// shutdown.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/offlinefirst/inputpulse/pkg/heartbeat"
	"github.com/offlinefirst/inputpulse/pkg/metrics"
)

// State names the watcher lifecycle phases.
type State string

const (
	StateIdle         State = "idle"
	StateRunning      State = "running"
	StateShuttingDown State = "shutting_down"
	StateStopped      State = "stopped"
)

const defaultFlushTimeout = 5 * time.Second

// Drainer yields an atomic snapshot of accumulated activity, resetting the
// underlying accumulator in the same critical section.
type Drainer interface {
	Drain() heartbeat.Data
}

// Options configure a Watcher.
type Options struct {
	Interval time.Duration
	Counter  Drainer
	Emitter  *heartbeat.Emitter
	Logger   *slog.Logger
	Clock    func() time.Time
	Recorder heartbeat.Recorder
	Metrics  *metrics.Metrics

	// FlushTimeout bounds the final drain-and-submit performed after the
	// run context is canceled.
	FlushTimeout time.Duration
}

// Watcher owns the tick loop. Heartbeats reach the emitter in strictly
// increasing timestamp order because a single goroutine performs both the
// periodic ticks and the shutdown flush.
type Watcher struct {
	interval     time.Duration
	counter      Drainer
	emitter      *heartbeat.Emitter
	logger       *slog.Logger
	clock        func() time.Time
	recorder     heartbeat.Recorder
	metrics      *metrics.Metrics
	flushTimeout time.Duration

	mu    sync.Mutex
	state State
}

// New validates options and returns a watcher in the idle state.
func New(opts Options) (*Watcher, error) {
	if opts.Interval <= 0 {
		return nil, errors.New("poll interval must be positive")
	}
	if opts.Counter == nil {
		return nil, errors.New("counter must be provided")
	}
	if opts.Emitter == nil {
		return nil, errors.New("emitter must be provided")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger must be provided")
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	flushTimeout := opts.FlushTimeout
	if flushTimeout <= 0 {
		flushTimeout = defaultFlushTimeout
	}
	return &Watcher{
		interval:     opts.Interval,
		counter:      opts.Counter,
		emitter:      opts.Emitter,
		logger:       opts.Logger,
		clock:        clock,
		recorder:     opts.Recorder,
		metrics:      opts.Metrics,
		flushTimeout: flushTimeout,
		state:        StateIdle,
	}, nil
}

// State reports the current lifecycle phase.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Watcher) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// Run ticks at the configured interval until ctx is done, then performs one
// final drain-and-flush so activity accumulated mid-interval is never
// silently dropped. It always returns nil after a clean shutdown; store
// failures never terminate monitoring.
func (w *Watcher) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	w.setState(StateRunning)
	w.logger.Info("watcher running", "bucket", w.emitter.BucketID(), "interval", w.interval.String())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.setState(StateShuttingDown)
			w.flush()
			w.setState(StateStopped)
			w.logger.Info("watcher stopped")
			return nil
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick drains the counter and submits a point-in-time heartbeat anchored at
// the actual wall clock, so delayed ticks and process suspends surface as
// large gaps rather than windows covering time that never elapsed.
func (w *Watcher) tick(ctx context.Context) {
	hb := heartbeat.Heartbeat{
		Timestamp: w.clock().UTC(),
		Data:      w.counter.Drain(),
	}
	w.submit(ctx, hb)
}

// flush performs the final drain with its own deadline; the run context is
// already canceled by the time it executes.
func (w *Watcher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), w.flushTimeout)
	defer cancel()

	hb := heartbeat.Heartbeat{
		Timestamp: w.clock().UTC(),
		Data:      w.counter.Drain(),
	}
	w.logger.Info("flushing final heartbeat", "presses", hb.Data.Presses, "clicks", hb.Data.Clicks)
	w.submit(ctx, hb)
}

func (w *Watcher) submit(ctx context.Context, hb heartbeat.Heartbeat) {
	merged, err := w.emitter.Submit(ctx, hb)
	if err != nil {
		// The drained snapshot is dropped at the boundary; the counter has
		// already moved on and merge state was not advanced.
		w.metrics.ObserveStoreError()
		w.logger.Warn("heartbeat dropped", "error", err,
			"presses", hb.Data.Presses, "clicks", hb.Data.Clicks)
		return
	}

	w.metrics.ObserveHeartbeat(merged)
	w.logger.Debug("heartbeat submitted", "merged", merged,
		"presses", hb.Data.Presses, "clicks", hb.Data.Clicks,
		"delta_x", hb.Data.DeltaX, "delta_y", hb.Data.DeltaY,
		"scroll_x", hb.Data.ScrollX, "scroll_y", hb.Data.ScrollY)

	if w.recorder == nil {
		return
	}
	if emitted, ok := w.emitter.Last(); ok {
		if err := w.recorder.Record(ctx, w.emitter.BucketID(), emitted, merged); err != nil {
			w.logger.Warn("journal write failed", "error", err)
		}
	}
}
