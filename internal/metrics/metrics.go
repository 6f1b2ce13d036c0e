package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Backtest metrics
	submissionsTotal   *prometheus.CounterVec
	submissionDuration prometheus.Histogram
	staleResults       prometheus.Counter
	sessionsActive     prometheus.Gauge
	reportsArchived    *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtester_submissions_total",
			Help: "Total number of backtest submissions by outcome",
		},
		[]string{"outcome"},
	)
	r.submissionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backtester_submission_duration_seconds",
			Help:    "Round trip time of backtest submissions in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
	)
	r.staleResults = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "backtester_stale_results_total",
			Help: "Completed submissions discarded because a newer one was issued",
		},
	)
	r.sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "backtester_sessions_active",
			Help: "Number of live UI sessions",
		},
	)
	r.reportsArchived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtester_reports_archived_total",
			Help: "Total number of archived reports by status",
		},
		[]string{"status"},
	)

	reg.MustRegister(r.submissionsTotal)
	reg.MustRegister(r.submissionDuration)
	reg.MustRegister(r.staleResults)
	reg.MustRegister(r.sessionsActive)
	reg.MustRegister(r.reportsArchived)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordSubmission records one call to the backtest service.
func (r *Registry) RecordSubmission(outcome string, duration float64) {
	r.submissionsTotal.WithLabelValues(outcome).Inc()
	r.submissionDuration.Observe(duration)
}

// RecordStale records a result dropped in favour of a newer submission.
func (r *Registry) RecordStale() {
	r.staleResults.Inc()
}

// SetSessionsActive sets the number of live sessions.
func (r *Registry) SetSessionsActive(count int) {
	r.sessionsActive.Set(float64(count))
}

// RecordArchive records a report archive attempt.
func (r *Registry) RecordArchive(status string) {
	r.reportsArchived.WithLabelValues(status).Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
