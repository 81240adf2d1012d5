package collector

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks upstream request volume and latency per data source.
type Metrics struct {
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

// NewMetrics registers collector metrics on the provided registerer. A nil
// registerer uses the default one.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proteincore_collector_requests_total",
			Help: "Upstream API requests issued by the collector, by source and HTTP status.",
		}, []string{"source", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "proteincore_collector_request_duration_seconds",
			Help:    "Upstream API request latency by source.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
	}
	if err := reg.Register(m.requests); err != nil {
		return nil, err
	}
	if err := reg.Register(m.durations); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) observe(source string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(source, strconv.Itoa(status)).Inc()
	m.durations.WithLabelValues(source).Observe(duration.Seconds())
}
