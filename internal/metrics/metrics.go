// Package metrics exposes Prometheus collectors for the discussion service.
//
// All methods are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "debate"

// Outbox overflow outcomes.
const (
	DropCoalesced    = "coalesced"
	DropDiscarded    = "discarded"
	DropSlowConsumer = "slow_consumer"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	sessionsStarted prometheus.Counter
	sessionsEnded   *prometheus.CounterVec
	activeSessions  prometheus.Gauge
	modelErrors     *prometheus.CounterVec
	outboxDrops     *prometheus.CounterVec
	connections     prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Sessions that entered the running state.",
		}),
		sessionsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Sessions that reached a terminal state, by status.",
		}, []string{"status"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions currently owned by an orchestrator.",
		}),
		modelErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_errors_total",
			Help:      "Participant and summarizer failures, by provider and failure kind.",
		}, []string{"provider", "kind"}),
		outboxDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_overflow_total",
			Help:      "Events affected by a full connection outbox, by outcome.",
		}, []string{"outcome"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Open websocket connections.",
		}),
	}
	m.registry.MustRegister(
		m.sessionsStarted,
		m.sessionsEnded,
		m.activeSessions,
		m.modelErrors,
		m.outboxDrops,
		m.connections,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// SessionStarted records a session entering the running state.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
	m.activeSessions.Inc()
}

// SessionEnded records a running session reaching status.
func (m *Metrics) SessionEnded(status string) {
	if m == nil {
		return
	}
	m.sessionsEnded.WithLabelValues(status).Inc()
	m.activeSessions.Dec()
}

// ModelError records a classified provider failure.
func (m *Metrics) ModelError(provider, kind string) {
	if m == nil {
		return
	}
	m.modelErrors.WithLabelValues(provider, kind).Inc()
}

// OutboxOverflow records what happened to an event that found its outbox full.
func (m *Metrics) OutboxOverflow(outcome string) {
	if m == nil {
		return
	}
	m.outboxDrops.WithLabelValues(outcome).Inc()
}

// ConnectionOpened records a new websocket connection.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

// ConnectionClosed records a closed websocket connection.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}
