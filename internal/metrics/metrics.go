package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Session operations
const (
	OpResolve = "resolve"
	OpRefresh = "refresh"
	OpBegin   = "begin"
)

// Operation outcomes
const (
	OutcomeOK            = "ok"
	OutcomeNoSession     = "no_session"
	OutcomeProviderError = "provider_error"
	OutcomeStoreError    = "store_error"
	OutcomeError         = "error"
)

// Metrics holds the relay's prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	SessionOpsTotal     *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates the collectors on their own registry so several instances can coexist in tests
func New(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		registry: reg,
		SessionOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "relay_session_operations_total",
				Help:        "Session manager operations by outcome",
				ConstLabels: labels,
			},
			[]string{"op", "outcome"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: labels,
			},
			[]string{"method", "page", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "Histogram of HTTP request latency",
				ConstLabels: labels,
				Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "page"},
		),
	}

	reg.MustRegister(
		m.SessionOpsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// SessionOp counts one session manager operation
func (m *Metrics) SessionOp(op, outcome string) {
	if m == nil {
		return
	}
	m.SessionOpsTotal.WithLabelValues(op, outcome).Inc()
}

// ObserveRequest records one served HTTP request
func (m *Metrics) ObserveRequest(method, page string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, page, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, page).Observe(elapsed.Seconds())
}

// Handler serves the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
