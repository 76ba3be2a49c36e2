// Package stats tracks per-endpoint request counts and latencies, the
// same "counter"/"latency" pair the teacher's own stats package tracked
// per core stat (ProxyCoreStats/Trunner's KindCounter/KindLatency split),
// rewired here onto github.com/prometheus/client_golang rather than the
// teacher's hand-rolled StatsD client -- there is no statsd dependency
// anywhere in the rest of the pack, whereas prometheus/client_golang is
// already a teacher go.mod entry with no code exercising it yet.
package stats

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the process-wide registry of request counters/latencies,
// labelled the way the teacher's Tracker keyed every stat by name: request
// counts by (endpoint, status), latencies by endpoint, node counts by target.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	nodes    *prometheus.HistogramVec
}

// NewMetrics builds a fresh registry with the subconverterd metric
// family registered.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subconverter_requests_total",
			Help: "Requests handled, by endpoint and response status.",
		}, []string{"endpoint", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "subconverter_request_duration_seconds",
			Help:    "Request handling latency, by endpoint.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		nodes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "subconverter_nodes_emitted",
			Help:    "Node count in a successful /sub response, by target.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}, []string{"target"}),
	}
	reg.MustRegister(m.requests, m.latency, m.nodes)
	return m
}

// Observe records one handled request's outcome.
func (m *Metrics) Observe(endpoint string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(endpoint, statusBucket(status)).Inc()
	m.latency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObserveNodes records the node count a /sub-family response carried for
// the given target.
func (m *Metrics) ObserveNodes(target string, count int) {
	m.nodes.WithLabelValues(target).Observe(float64(count))
}

// Handler exposes the registry in the Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func statusBucket(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}
