package api

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the portfolio client.
//
// Metrics:
//   - portfolio_client_requests_total{operation,status} - requests by outcome; status is the HTTP code or "error"
//   - portfolio_client_request_duration_seconds{operation} - round trip latency
//   - portfolio_client_unauthorized_total - rejected or missing credentials
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	UnauthorizedTotal prometheus.Counter
}

// NewMetrics creates the client metrics and registers them on reg. A nil reg
// leaves them unregistered, which is useful in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_client_requests_total",
				Help: "Total number of requests sent to the portfolio service",
			},
			[]string{"operation", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portfolio_client_request_duration_seconds",
				Help:    "Duration of portfolio service requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		UnauthorizedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "portfolio_client_unauthorized_total",
				Help: "Total number of requests rejected for a missing or invalid credential",
			},
		),
	}
}

func (m *Metrics) observe(operation string, status int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.RequestsTotal.WithLabelValues(operation, label).Inc()
	if d > 0 {
		m.RequestDuration.WithLabelValues(operation).Observe(d.Seconds())
	}
}

func (m *Metrics) unauthorized() {
	if m == nil {
		return
	}
	m.UnauthorizedTotal.Inc()
}
