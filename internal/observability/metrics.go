// Package observability defines the Prometheus metrics the server exports.
package observability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"treemark/internal/domain"
	"treemark/internal/domain/models/bookmarks"
)

const metricsNamespace = "treemark"

// Metrics holds the collectors. A nil *Metrics is valid and records nothing,
// so tests and tools can skip registration.
type Metrics struct {
	registry prometheus.Gatherer

	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	mutationsTotal    *prometheus.CounterVec
	cascadeSize       prometheus.Histogram
	consistencyIssues *prometheus.GaugeVec
}

// NewMetrics registers the collectors on reg. Pass prometheus.NewRegistry()
// in tests to keep them isolated.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// Labels: method, route (mux pattern), status
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"method", "route", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route"}),

		// Labels: op (create, update, move, delete, repair), result (ok, not_found, invalid, error)
		mutationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "tree",
			Name:      "mutations_total",
			Help:      "Tree mutations by operation and result",
		}, []string{"op", "result"}),

		cascadeSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "tree",
			Name:      "cascade_delete_records",
			Help:      "Records removed per delete, including the target",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 1000},
		}),

		// Labels: kind (bookmarks.IssueKind)
		consistencyIssues: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "tree",
			Name:      "consistency_issues",
			Help:      "Issues found by the last consistency check, by kind",
		}, []string{"kind"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest records one served HTTP request.
func (m *Metrics) RecordRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordMutation records the outcome of a tree mutation.
func (m *Metrics) RecordMutation(op string, err error) {
	if m == nil {
		return
	}
	m.mutationsTotal.WithLabelValues(op, resultLabel(err)).Inc()
}

// ObserveCascade records how many records one delete removed.
func (m *Metrics) ObserveCascade(removed int) {
	if m == nil {
		return
	}
	m.cascadeSize.Observe(float64(removed))
}

// SetConsistency publishes the issue counts of a consistency report.
func (m *Metrics) SetConsistency(report *bookmarks.Report) {
	if m == nil || report == nil {
		return
	}
	m.consistencyIssues.Reset()
	for _, issue := range report.Issues {
		m.consistencyIssues.WithLabelValues(string(issue.Kind)).Inc()
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
