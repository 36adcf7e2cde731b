package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway collectors. A nil *Metrics records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	httpRequests  *prometheus.CounterVec
}

// New registers the gateway collectors on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "querygw_queries_total",
				Help: "Total number of queries executed, by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "querygw_query_duration_seconds",
				Help:    "Query duration in seconds, connection setup included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "querygw_http_requests_total",
				Help: "Total number of HTTP requests served",
			},
			[]string{"method", "route", "status"},
		),
	}

	reg.MustRegister(m.queries, m.queryDuration, m.httpRequests)

	return m
}

// ObserveQuery records one gateway call.
func (m *Metrics) ObserveQuery(mode string, outcome string, took time.Duration) {
	if m == nil {
		return
	}

	m.queries.WithLabelValues(mode, outcome).Inc()
	m.queryDuration.WithLabelValues(mode).Observe(took.Seconds())
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method string, route string, status int) {
	if m == nil {
		return
	}

	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
