package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "clinic"

// HTTPMetrics exposes request counters and latencies per route.
type HTTPMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration)
	return m
}

func (m *HTTPMetrics) ObserveRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, route, status).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(seconds)
}

// ChronologyMetrics counts writes refused because a child record would
// predate its parent, or because the parent does not exist.
type ChronologyMetrics struct {
	rejectionsTotal *prometheus.CounterVec
}

func NewChronologyMetrics(reg prometheus.Registerer) *ChronologyMetrics {
	m := &ChronologyMetrics{
		rejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chronology",
			Name:      "rejections_total",
			Help:      "Dependent writes rejected by the parent date rule",
		}, []string{"parent", "reason"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.rejectionsTotal)
	return m
}

// Rejected records one refusal; reason is "not_found", "too_early" or
// "too_late".
func (m *ChronologyMetrics) Rejected(parent, reason string) {
	if m == nil {
		return
	}
	m.rejectionsTotal.WithLabelValues(parent, reason).Inc()
}
