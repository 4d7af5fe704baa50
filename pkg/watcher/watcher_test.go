package watcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offlinefirst/inputpulse/pkg/heartbeat"
)

type fakeSink struct {
	mu   sync.Mutex
	sent []heartbeat.Heartbeat
	errs []error
}

func (s *fakeSink) SendHeartbeat(_ context.Context, _ string, hb heartbeat.Heartbeat, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return err
		}
	}
	s.sent = append(s.sent, hb)
	return nil
}

func (s *fakeSink) heartbeats() []heartbeat.Heartbeat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]heartbeat.Heartbeat(nil), s.sent...)
}

type stubCounter struct {
	mu      sync.Mutex
	pending heartbeat.Data
}

func (c *stubCounter) set(data heartbeat.Data) {
	c.mu.Lock()
	c.pending = data
	c.mu.Unlock()
}

func (c *stubCounter) Drain() heartbeat.Data {
	c.mu.Lock()
	defer c.mu.Unlock()
	data := c.pending
	c.pending = heartbeat.Data{}
	return data
}

type recordedEntry struct {
	hb     heartbeat.Heartbeat
	merged bool
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []recordedEntry
	err     error
}

func (r *fakeRecorder) Record(_ context.Context, _ string, hb heartbeat.Heartbeat, merged bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, recordedEntry{hb: hb, merged: merged})
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestWatcher(t *testing.T, sink heartbeat.Sink, counter Drainer, extra func(*Options)) *Watcher {
	t.Helper()
	emitter, err := heartbeat.NewEmitter(heartbeat.Options{
		BucketID:  "inputpulse_host",
		Pulsetime: time.Hour,
		Sink:      sink,
	})
	require.NoError(t, err)

	opts := Options{
		Interval: 10 * time.Millisecond,
		Counter:  counter,
		Emitter:  emitter,
		Logger:   discardLogger(),
	}
	if extra != nil {
		extra(&opts)
	}
	w, err := New(opts)
	require.NoError(t, err)
	return w
}

func TestNewValidation(t *testing.T) {
	sink := &fakeSink{}
	emitter, err := heartbeat.NewEmitter(heartbeat.Options{BucketID: "b", Pulsetime: time.Second, Sink: sink})
	require.NoError(t, err)
	counter := &stubCounter{}
	logger := discardLogger()

	_, err = New(Options{Counter: counter, Emitter: emitter, Logger: logger})
	require.Error(t, err)

	_, err = New(Options{Interval: time.Second, Emitter: emitter, Logger: logger})
	require.Error(t, err)

	_, err = New(Options{Interval: time.Second, Counter: counter, Logger: logger})
	require.Error(t, err)

	_, err = New(Options{Interval: time.Second, Counter: counter, Emitter: emitter})
	require.Error(t, err)
}

func TestRunFlushesResidualActivityOnStop(t *testing.T) {
	sink := &fakeSink{}
	counter := &stubCounter{}
	counter.set(heartbeat.Data{Presses: 2})

	w := newTestWatcher(t, sink, counter, func(o *Options) {
		o.Interval = time.Hour // no periodic tick fires during the test
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))

	sent := sink.heartbeats()
	require.Len(t, sent, 1)
	assert.Equal(t, uint64(2), sent[0].Data.Presses)
	assert.Zero(t, sent[0].Duration)
	assert.Equal(t, StateStopped, w.State())
}

func TestRunTicksAndMerges(t *testing.T) {
	sink := &fakeSink{}
	counter := &stubCounter{}
	counter.set(heartbeat.Data{Presses: 1})

	w := newTestWatcher(t, sink, counter, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(sink.heartbeats()) >= 2
	}, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	sent := sink.heartbeats()
	// All samples fall within the hour-wide pulsetime, so every send after
	// the first extends the same heartbeat.
	first := sent[0]
	last := sent[len(sent)-1]
	assert.Equal(t, first.Timestamp, last.Timestamp)
	assert.Equal(t, uint64(1), last.Data.Presses)
	assert.GreaterOrEqual(t, last.Duration, time.Duration(0))
}

func TestRunSurvivesStoreFailures(t *testing.T) {
	sink := &fakeSink{errs: []error{errors.New("store down")}}
	counter := &stubCounter{}
	counter.set(heartbeat.Data{Presses: 3})

	w := newTestWatcher(t, sink, counter, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// The first submission fails; the loop keeps ticking and later sends go
	// through.
	require.Eventually(t, func() bool {
		return len(sink.heartbeats()) >= 1
	}, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, StateStopped, w.State())
}

func TestRunRecordsEmittedHeartbeats(t *testing.T) {
	sink := &fakeSink{}
	counter := &stubCounter{}
	counter.set(heartbeat.Data{Clicks: 4})
	recorder := &fakeRecorder{}

	w := newTestWatcher(t, sink, counter, func(o *Options) {
		o.Interval = time.Hour
		o.Recorder = recorder
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	require.Len(t, recorder.entries, 1)
	assert.Equal(t, uint64(4), recorder.entries[0].hb.Data.Clicks)
	assert.False(t, recorder.entries[0].merged)
}

func TestRunRecorderFailureDoesNotStopWatcher(t *testing.T) {
	sink := &fakeSink{}
	counter := &stubCounter{}
	counter.set(heartbeat.Data{Presses: 1})
	recorder := &fakeRecorder{err: errors.New("disk full")}

	w := newTestWatcher(t, sink, counter, func(o *Options) {
		o.Interval = time.Hour
		o.Recorder = recorder
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))
	require.Len(t, sink.heartbeats(), 1)
}

func TestStateTransitions(t *testing.T) {
	sink := &fakeSink{}
	counter := &stubCounter{}
	w := newTestWatcher(t, sink, counter, nil)
	assert.Equal(t, StateIdle, w.State())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return w.State() == StateRunning
	}, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, StateStopped, w.State())
}
