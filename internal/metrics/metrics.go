package metrics

import (
	"net/http"
	"time"
)

// Metrics interface for dependency injection
type Metrics interface {
	RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration)
	RecordVerdict(method string, spam bool)
	RecordClassifierCall(status string, duration time.Duration)
	RecordDuplicatesFound(count int)
	RecordReportProcessed(status string)
	SetDBConnectionsActive(count float64)
	RecordDBQuery(operation, status string)
	Handler() http.Handler
}

// NoOpMetrics provides a no-op implementation
type NoOpMetrics struct{}

func (m *NoOpMetrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
}
func (m *NoOpMetrics) RecordVerdict(method string, spam bool)                     {}
func (m *NoOpMetrics) RecordClassifierCall(status string, duration time.Duration) {}
func (m *NoOpMetrics) RecordDuplicatesFound(count int)                            {}
func (m *NoOpMetrics) RecordReportProcessed(status string)                        {}
func (m *NoOpMetrics) SetDBConnectionsActive(count float64)                       {}
func (m *NoOpMetrics) RecordDBQuery(operation, status string)                     {}
func (m *NoOpMetrics) Handler() http.Handler                                      { return http.NotFoundHandler() }

// Global metrics instance
var globalMetrics Metrics = &NoOpMetrics{}

// Init switches the global instance to Prometheus
func Init() {
	globalMetrics = NewPrometheus()
}

// Set replaces the global instance. Tests use it to install a private registry.
func Set(m Metrics) {
	if m == nil {
		m = &NoOpMetrics{}
	}
	globalMetrics = m
}

// Handler returns the metrics handler
func Handler() http.Handler {
	return globalMetrics.Handler()
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	globalMetrics.RecordHTTPRequest(method, endpoint, statusCode, duration)
}

// RecordVerdict counts a triage verdict by decision method
func RecordVerdict(method string, spam bool) {
	globalMetrics.RecordVerdict(method, spam)
}

// RecordClassifierCall records a zero-shot classifier round trip
func RecordClassifierCall(status string, duration time.Duration) {
	globalMetrics.RecordClassifierCall(status, duration)
}

// RecordDuplicatesFound observes the nearby same-category count for a report
func RecordDuplicatesFound(count int) {
	globalMetrics.RecordDuplicatesFound(count)
}

// RecordReportProcessed counts intake pipeline outcomes
func RecordReportProcessed(status string) {
	globalMetrics.RecordReportProcessed(status)
}

// SetDBConnectionsActive sets the number of active database connections
func SetDBConnectionsActive(count float64) {
	globalMetrics.SetDBConnectionsActive(count)
}

// RecordDBQuery records database query metrics
func RecordDBQuery(operation, status string) {
	globalMetrics.RecordDBQuery(operation, status)
}
