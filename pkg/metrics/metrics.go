// Package metrics exposes optional Prometheus self-metrics for the watcher
// process. All observers are nil-safe so callers never branch on whether
// metrics collection is enabled.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics aggregates the watcher's instrumentation counters.
type Metrics struct {
	registry *prometheus.Registry

	events      *prometheus.CounterVec
	sent        prometheus.Counter
	merged      prometheus.Counter
	storeErrors prometheus.Counter
}

// New builds the counter set on an independent registry so repeated
// construction never trips duplicate-collector registration.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inputpulse",
			Subsystem: "ingress",
			Name:      "events_total",
			Help:      "Raw input events applied to the counter, by kind.",
		}, []string{"kind"}),
		sent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "inputpulse",
			Subsystem: "emitter",
			Name:      "heartbeats_sent_total",
			Help:      "Heartbeats forwarded to the store as new records.",
		}),
		merged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "inputpulse",
			Subsystem: "emitter",
			Name:      "heartbeats_merged_total",
			Help:      "Heartbeats folded into the previous record before forwarding.",
		}),
		storeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "inputpulse",
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Failed store submissions.",
		}),
	}
}

// ObserveEvent counts one classified input event.
func (m *Metrics) ObserveEvent(kind string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind).Inc()
}

// ObserveHeartbeat counts one accepted heartbeat submission.
func (m *Metrics) ObserveHeartbeat(merged bool) {
	if m == nil {
		return
	}
	if merged {
		m.merged.Inc()
		return
	}
	m.sent.Inc()
}

// ObserveStoreError counts one failed store submission.
func (m *Metrics) ObserveStoreError() {
	if m == nil {
		return
	}
	m.storeErrors.Inc()
}

// Handler serves the Prometheus scrape endpoint for this instance.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
