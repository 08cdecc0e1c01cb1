package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Titouaaaan/tutormesh/core"
	"github.com/Titouaaaan/tutormesh/handoff"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "tutormesh"

// Collector records engine and HTTP metrics. Safe for concurrent use.
type Collector struct {
	registry *prometheus.Registry

	// engine
	nodeActivations *prometheus.CounterVec
	nodeDuration    *prometheus.HistogramVec
	toolCalls       *prometheus.CounterVec
	toolDuration    *prometheus.HistogramVec
	violations      *prometheus.CounterVec
	handoffWaits    *prometheus.HistogramVec
	handoffStalls   *prometheus.CounterVec
	sessions        *prometheus.CounterVec
	activeSessions  prometheus.Gauge

	// http
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

var _ core.Observer = (*Collector)(nil)

// NewCollector registers all metrics on a fresh registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		registry: reg,

		nodeActivations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_activations_total",
				Help:      "Node activations by node and resulting decision kind",
			},
			[]string{"node", "decision"},
		),
		nodeDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "node_duration_seconds",
				Help:      "Node run time in seconds, including learner waits",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 30, 120, 600},
			},
			[]string{"node"},
		),
		toolCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Tool invocations by tool and result code",
			},
			[]string{"tool", "code"},
		),
		toolDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_duration_seconds",
				Help:      "Tool execution time in seconds",
				Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"tool"},
		),
		violations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "protocol_violations_total",
				Help:      "Worker turns that skipped chunk retrieval",
			},
			[]string{"role"},
		),
		handoffWaits: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "handoff_wait_seconds",
				Help:      "Time the engine waited on the learner",
				Buckets:   []float64{0.1, 1, 5, 15, 60, 300, 1800},
			},
			[]string{"phase"},
		),
		handoffStalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "handoff_stalls_total",
				Help:      "Handoff waits that hit the stall timeout",
			},
			[]string{"phase"},
		),
		sessions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_total",
				Help:      "Ended sessions by terminal status",
			},
			[]string{"status"},
		),
		activeSessions: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Sessions currently running",
			},
		),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// Registry exposes the underlying registry, mostly for tests.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// NodeCompleted implements core.Observer.
func (c *Collector) NodeCompleted(node string, d core.Decision, dur time.Duration) {
	c.nodeActivations.WithLabelValues(node, string(d.Kind)).Inc()
	c.nodeDuration.WithLabelValues(node).Observe(dur.Seconds())
}

// ToolCompleted implements core.Observer. An empty code means success.
func (c *Collector) ToolCompleted(tool, code string, dur time.Duration) {
	if code == "" {
		code = "ok"
	}
	c.toolCalls.WithLabelValues(tool, code).Inc()
	c.toolDuration.WithLabelValues(tool).Observe(dur.Seconds())
}

// ProtocolViolation implements core.Observer.
func (c *Collector) ProtocolViolation(role core.Role) {
	c.violations.WithLabelValues(string(role)).Inc()
}

// HandoffWaited implements core.Observer.
func (c *Collector) HandoffWaited(phase string, dur time.Duration, err error) {
	c.handoffWaits.WithLabelValues(phase).Observe(dur.Seconds())
	if errors.Is(err, handoff.ErrStalled) {
		c.handoffStalls.WithLabelValues(phase).Inc()
	}
}

// SessionStarted increments the active session gauge.
func (c *Collector) SessionStarted() { c.activeSessions.Inc() }

// SessionEnded implements core.Observer.
func (c *Collector) SessionEnded(status string) {
	c.sessions.WithLabelValues(status).Inc()
	c.activeSessions.Dec()
}

// RecordHTTPRequest records one served request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, dur time.Duration) {
	c.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, path).Observe(dur.Seconds())
}
