package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "civictriage"

// PrometheusMetrics implements Metrics on a private registry.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	verdicts       *prometheus.CounterVec
	classifierCall *prometheus.CounterVec
	classifierTime prometheus.Histogram
	duplicates     prometheus.Histogram
	reports        *prometheus.CounterVec
	dbConnections  prometheus.Gauge
	dbQueries      *prometheus.CounterVec
}

// NewPrometheus registers all collectors on a fresh registry.
func NewPrometheus() *PrometheusMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &PrometheusMetrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "endpoint", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triage_verdicts_total",
			Help:      "Triage verdicts by decision method and spam outcome",
		}, []string{"method", "spam"}),
		classifierCall: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_calls_total",
			Help:      "Zero-shot classifier calls by status",
		}, []string{"status"}),
		classifierTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classifier_call_duration_seconds",
			Help:      "Zero-shot classifier round trip time",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		duplicates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "duplicates_found",
			Help:      "Nearby same-category reports found per submission",
			Buckets:   []float64{0, 1, 2, 3, 5, 10},
		}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_processed_total",
			Help:      "Reports processed by the intake pipeline",
		}, []string{"status"}),
		dbConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_active",
			Help:      "Acquired database connections",
		}),
		dbQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_queries_total",
			Help:      "Database operations by kind and status",
		}, []string{"operation", "status"}),
	}

	reg.MustRegister(
		m.httpRequests, m.httpDuration, m.verdicts, m.classifierCall, m.classifierTime,
		m.duplicates, m.reports, m.dbConnections, m.dbQueries,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *PrometheusMetrics) Registry() *prometheus.Registry { return m.registry }

func (m *PrometheusMetrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordVerdict(method string, spam bool) {
	m.verdicts.WithLabelValues(method, strconv.FormatBool(spam)).Inc()
}

func (m *PrometheusMetrics) RecordClassifierCall(status string, duration time.Duration) {
	m.classifierCall.WithLabelValues(status).Inc()
	m.classifierTime.Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordDuplicatesFound(count int) {
	m.duplicates.Observe(float64(count))
}

func (m *PrometheusMetrics) RecordReportProcessed(status string) {
	m.reports.WithLabelValues(status).Inc()
}

func (m *PrometheusMetrics) SetDBConnectionsActive(count float64) {
	m.dbConnections.Set(count)
}

func (m *PrometheusMetrics) RecordDBQuery(operation, status string) {
	m.dbQueries.WithLabelValues(operation, status).Inc()
}

func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
