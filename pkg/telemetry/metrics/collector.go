// Package metrics exposes Prometheus instrumentation for the front door:
// probe outcomes, gate transitions, pool membership and proxied traffic.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config contains configuration for the metrics collector.
type Config struct {
	// Namespace is the metric name prefix (default "drawbridge").
	Namespace string
}

// Collector owns the Prometheus registry and every collector the front
// door exports. It is created once and passed to the components that
// record into it, keeping instrumentation points auditable.
type Collector struct {
	registry *prometheus.Registry

	// Probe instrumentation.
	probeAttempts *prometheus.CounterVec
	probeLatency  *prometheus.HistogramVec

	// Gate instrumentation.
	gateState       *prometheus.GaugeVec
	gateTransitions *prometheus.CounterVec

	// Pool instrumentation.
	poolSize prometheus.Gauge

	// Proxy instrumentation.
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewCollector creates a collector with its own registry.
func NewCollector(cfg Config) *Collector {
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "drawbridge"
	}

	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,

		probeAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "probe",
				Name:      "attempts_total",
				Help:      "Total readiness probe attempts by probe and outcome",
			},
			[]string{"probe", "outcome"},
		),
		probeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "probe",
				Name:      "latency_seconds",
				Help:      "Readiness probe latency",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"probe"},
		),

		gateState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "gate",
				Name:      "state",
				Help:      "Startup gate state (0=waiting, 1=ready, 2=failed)",
			},
			[]string{"gate"},
		),
		gateTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gate",
				Name:      "transitions_total",
				Help:      "Startup gate state transitions",
			},
			[]string{"gate", "to"},
		),

		poolSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "pool_size",
				Help:      "Number of registered upstream endpoints",
			},
		),

		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "proxy",
				Name:      "requests_total",
				Help:      "Total requests handled by the front door",
			},
			[]string{"route", "method", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "proxy",
				Name:      "request_duration_seconds",
				Help:      "Front door request duration",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	registry.MustRegister(
		c.probeAttempts,
		c.probeLatency,
		c.gateState,
		c.gateTransitions,
		c.poolSize,
		c.requestsTotal,
		c.requestDuration,
	)

	return c
}

// Registry returns the underlying registry (used by tests and the
// exposition handler).
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveProbe records one probe attempt.
func (c *Collector) ObserveProbe(probe string, err error, latency time.Duration) {
	outcome := "ready"
	if err != nil {
		outcome = "unready"
	}
	c.probeAttempts.WithLabelValues(probe, outcome).Inc()
	c.probeLatency.WithLabelValues(probe).Observe(latency.Seconds())
}

// SetGateState records the gate's current state.
func (c *Collector) SetGateState(gate string, state int) {
	c.gateState.WithLabelValues(gate).Set(float64(state))
}

// ObserveGateTransition records a transition into the named state.
func (c *Collector) ObserveGateTransition(gate, to string) {
	c.gateTransitions.WithLabelValues(gate, to).Inc()
}

// SetPoolSize records the current upstream pool size.
func (c *Collector) SetPoolSize(size int) {
	c.poolSize.Set(float64(size))
}

// ObserveRequest records one handled request.
func (c *Collector) ObserveRequest(route, method string, status int, duration time.Duration) {
	c.requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}
