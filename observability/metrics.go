package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Billing metrics
	BillingRunsTotal     *prometheus.CounterVec
	BillingRunDuration   *prometheus.HistogramVec
	StudentsBilledTotal  prometheus.Counter
	StudentsSkippedTotal prometheus.Counter
	LedgerEntriesTotal   prometheus.Counter

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
	DBConnectionsTotal  prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termbilling_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "termbilling_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Billing metrics
		BillingRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termbilling_billing_runs_total",
				Help: "Total number of billing runs by outcome",
			},
			[]string{"outcome"},
		),
		BillingRunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "termbilling_billing_run_duration_seconds",
				Help:    "Billing run duration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"outcome"},
		),
		StudentsBilledTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "termbilling_students_billed_total",
				Help: "Total number of student balances updated by billing runs",
			},
		),
		StudentsSkippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "termbilling_students_skipped_total",
				Help: "Total number of active students skipped for lack of a fee tier",
			},
		),
		LedgerEntriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "termbilling_ledger_entries_total",
				Help: "Total number of fee ledger entries written",
			},
		),

		// Database metrics
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "termbilling_db_connections_active",
				Help: "Number of acquired database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "termbilling_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		DBConnectionsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "termbilling_db_connections_total",
				Help: "Total number of database connections in the pool",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BillingRunsTotal,
		m.BillingRunDuration,
		m.StudentsBilledTotal,
		m.StudentsSkippedTotal,
		m.LedgerEntriesTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.DBConnectionsTotal,
	)

	return m
}

// RecordRun counts a finished billing run and its duration
func (m *Metrics) RecordRun(outcome string, duration time.Duration) {
	m.BillingRunsTotal.WithLabelValues(outcome).Inc()
	m.BillingRunDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordStudents counts billed and skipped students of a committed run
func (m *Metrics) RecordStudents(billed, skipped int) {
	m.StudentsBilledTotal.Add(float64(billed))
	m.StudentsSkippedTotal.Add(float64(skipped))
}

// RecordLedgerEntries counts ledger rows written by a committed run
func (m *Metrics) RecordLedgerEntries(count int) {
	m.LedgerEntriesTotal.Add(float64(count))
}

// ObservePool copies the pool statistics into the database gauges
func (m *Metrics) ObservePool(stat *pgxpool.Stat) {
	m.DBConnectionsActive.Set(float64(stat.AcquiredConns()))
	m.DBConnectionsIdle.Set(float64(stat.IdleConns()))
	m.DBConnectionsTotal.Set(float64(stat.TotalConns()))
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// Requests are labelled with the matched route template, not the raw path.
func HTTPMetricsMiddleware(metrics *Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			path := routeTemplate(r)
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
		})
	}
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(router *mux.Router, registry *prometheus.Registry) {
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}
