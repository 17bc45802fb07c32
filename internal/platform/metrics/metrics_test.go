package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.ObserveRequest("GET", "/api/patient/:cin", "200", 0.01)
	m.ObserveRequest("GET", "/api/patient/:cin", "200", 0.02)
	m.ObserveRequest("GET", "/api/patient/:cin", "404", 0.01)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/api/patient/:cin", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/api/patient/:cin", "404")))
}

func TestChronologyMetricsRejected(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChronologyMetrics(reg)
	m.Rejected("rendezVous", "too_early")
	m.Rejected("rendezVous", "too_early")
	m.Rejected("prescription", "not_found")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.rejectionsTotal.WithLabelValues("rendezVous", "too_early")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.rejectionsTotal.WithLabelValues("prescription", "not_found")))
}

func TestMetricsDefaultRegistry(t *testing.T) {
	// Registering twice on the default registry would panic, so only once here.
	m := NewChronologyMetrics(nil)
	m.Rejected("consultation", "too_early")
}

func TestMetricsNilSafe(t *testing.T) {
	var h *HTTPMetrics
	h.ObserveRequest("GET", "/", "200", 0.1)

	var c *ChronologyMetrics
	c.Rejected("rendezVous", "not_found")
}
