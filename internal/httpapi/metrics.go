package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects request counters and latencies on a private registry.
// They back the /api/health payload only; the server never exposes a
// public /metrics scrape endpoint, so route shapes and traffic volume
// never leak off-box.
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics builds a Metrics instance on its own registry, independent of
// the global prometheus.DefaultRegisterer.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	requestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gnosis_http_requests_total",
		Help: "Total HTTP requests handled, labeled by route and status class.",
	}, []string{"route", "status"})
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gnosis_http_request_duration_seconds",
		Help:    "HTTP request handling latency in seconds, labeled by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	reg.MustRegister(requestsTotal, requestDuration)
	return &Metrics{registry: reg, requestsTotal: requestsTotal, requestDuration: requestDuration}
}

func (m *Metrics) observe(route, statusClass string, seconds float64) {
	m.requestsTotal.WithLabelValues(route, statusClass).Inc()
	m.requestDuration.WithLabelValues(route).Observe(seconds)
}

// Snapshot reduces the gathered families into the small summary
// /api/health reports: total requests handled and how many were non-2xx.
func (m *Metrics) Snapshot() (total, errorCount int) {
	families, err := m.registry.Gather()
	if err != nil {
		return 0, 0
	}
	for _, f := range families {
		if f.GetName() != "gnosis_http_requests_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			count := int(metric.GetCounter().GetValue())
			total += count
			for _, lbl := range metric.GetLabel() {
				if lbl.GetName() == "status" && lbl.GetValue() != "2xx" {
					errorCount += count
				}
			}
		}
	}
	return total, errorCount
}
