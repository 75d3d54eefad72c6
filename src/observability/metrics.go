// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	registry *prometheus.Registry

	// Tick pipeline
	TicksProcessed   prometheus.Counter
	TicksMalformed   prometheus.Counter
	SpikesDetected   *prometheus.CounterVec
	SpikesSuppressed prometheus.Counter
	SinkResults      *prometheus.CounterVec
	DispatchDropped  prometheus.Counter
	SinkLatency      *prometheus.HistogramVec

	// Supervisor
	SessionStarts   prometheus.Counter
	SessionStops    *prometheus.CounterVec
	SessionFailures *prometheus.CounterVec
	SupervisorState *prometheus.GaugeVec
}

// NewMetrics creates a Metrics instance registered on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "volume_spike_detector"
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		TicksProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ticks",
			Name:      "processed_total",
			Help:      "Total well-formed ticks processed",
		}),
		TicksMalformed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ticks",
			Name:      "malformed_total",
			Help:      "Total ticks dropped as malformed",
		}),
		SpikesDetected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "spikes",
			Name:      "detected_total",
			Help:      "Spike events forwarded to sinks by severity",
		}, []string{"severity"}),
		SpikesSuppressed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "spikes",
			Name:      "suppressed_total",
			Help:      "Spike events dropped by the cool-down gate",
		}),
		SinkResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sinks",
			Name:      "results_total",
			Help:      "Sink call outcomes",
		}, []string{"sink", "result"}),
		DispatchDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sinks",
			Name:      "dispatch_dropped_total",
			Help:      "Spike events dropped because the dispatch queue was full",
		}),
		SinkLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sinks",
			Name:      "latency_seconds",
			Help:      "Sink call latency",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"sink"}),

		SessionStarts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "starts_total",
			Help:      "Streaming sessions started",
		}),
		SessionStops: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "stops_total",
			Help:      "Streaming sessions stopped by reason",
		}, []string{"reason"}),
		SessionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "failures_total",
			Help:      "Failed session start attempts by cause",
		}, []string{"cause"}),
		SupervisorState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "supervisor",
			Name:      "state",
			Help:      "1 for the current supervisor state, 0 otherwise",
		}, []string{"state"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler serving this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SetState marks state as current among the known states.
func (m *Metrics) SetState(current string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1
		}
		m.SupervisorState.WithLabelValues(s).Set(v)
	}
}
