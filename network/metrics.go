package network

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of a MeshClient.
// A nil *Metrics records nothing.
type Metrics struct {
	RequestCount   *prometheus.CounterVec
	RequestLatency *prometheus.HistogramVec
	ErrorCount     *prometheus.CounterVec
}

// NewMetrics initializes unregistered collectors labelled by gateway method.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcm_mesh_request_count",
				Help: "Number of Mesh API requests sent",
			},
			[]string{"method"},
		),
		RequestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mcm_mesh_request_latency_seconds",
				Help:    "Latency of Mesh API requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		ErrorCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcm_mesh_error_count",
				Help: "Number of failed Mesh API requests",
			},
			[]string{"method"},
		),
	}
}

// Register adds the collectors to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.RequestCount, m.RequestLatency, m.ErrorCount} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// observe records one request. err may be nil.
func (m *Metrics) observe(method string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.RequestCount.WithLabelValues(method).Inc()
	m.RequestLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		m.ErrorCount.WithLabelValues(method).Inc()
	}
}
