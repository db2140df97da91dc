package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds all ContractKeeper metrics.
type AppMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Auth
	AuthAttemptsTotal CounterVec
	PermissionDenied  CounterVec

	// Sweeps
	SweepRunsTotal   CounterVec
	SweepDuration    HistogramVec
	SweepItemsTotal  CounterVec
	SweepLastSuccess GaugeVec

	// Reminders
	RemindersRecordedTotal CounterVec
	TransportAttemptsTotal CounterVec
	TransportSendDuration  HistogramVec

	// Infrastructure
	DBQueryDuration     HistogramVec
	EventsPublished     CounterVec
	LockAcquireFailures CounterVec
	ErrorsTotal         CounterVec
}

var (
	DefaultHTTPDurationBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultSweepDurationBuckets = []float64{.1, .5, 1, 5, 10, 30, 60, 300, 900}
	DefaultDBDurationBuckets    = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
)

// NewAppMetrics registers all metrics on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "route", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "route")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "In-flight HTTP requests", "method")

	m.AuthAttemptsTotal = collector.RegisterCounter("auth_attempts_total", "Bearer token validations", "result", "failure_reason")
	m.PermissionDenied = collector.RegisterCounter("permission_denied_total", "Requests rejected by the permission evaluator", "operation")

	m.SweepRunsTotal = collector.RegisterCounter("sweep_runs_total", "Sweep runs", "sweep", "status")
	m.SweepDuration = collector.RegisterHistogram("sweep_duration_seconds", "Sweep duration", DefaultSweepDurationBuckets, "sweep")
	m.SweepItemsTotal = collector.RegisterCounter("sweep_items_total", "Items handled by sweeps", "sweep", "outcome")
	m.SweepLastSuccess = collector.RegisterGauge("sweep_last_success_timestamp_seconds", "Unix time of the last successful sweep", "sweep")

	m.RemindersRecordedTotal = collector.RegisterCounter("reminders_recorded_total", "Reminder stages recorded in the ledger", "stage")
	m.TransportAttemptsTotal = collector.RegisterCounter("transport_attempts_total", "Notification transport attempts", "transport", "result")
	m.TransportSendDuration = collector.RegisterHistogram("transport_send_duration_seconds", "Notification transport latency", DefaultHTTPDurationBuckets, "transport")

	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultDBDurationBuckets, "operation")
	m.EventsPublished = collector.RegisterCounter("events_published_total", "Domain events published", "topic", "status")
	m.LockAcquireFailures = collector.RegisterCounter("lock_acquire_failures_total", "Distributed lock contention", "lock")

	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "error_type", "severity")

	return m
}

// NewNoopMetrics returns metrics that record nothing.
func NewNoopMetrics() *AppMetrics {
	return NewAppMetrics(NewNoopCollector())
}

// Helpers.  All accept a nil *AppMetrics.

func RecordHTTPRequest(m *AppMetrics, method, route string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackInFlight increments the in-flight gauge and returns its decrement.
func TrackInFlight(m *AppMetrics, method string) func() {
	if m == nil {
		return func() {}
	}
	g := m.HTTPActiveRequests.WithLabelValues(method)
	g.Inc()
	return g.Dec
}

func RecordAuthAttempt(m *AppMetrics, success bool, failureReason string) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.AuthAttemptsTotal.WithLabelValues(result, failureReason).Inc()
}

func RecordPermissionDenied(m *AppMetrics, operation string) {
	if m == nil {
		return
	}
	m.PermissionDenied.WithLabelValues(operation).Inc()
}

// RecordSweep records a finished sweep run.  A nil err also advances the
// last-success gauge.
func RecordSweep(m *AppMetrics, sweep string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.SweepRunsTotal.WithLabelValues(sweep, status).Inc()
	m.SweepDuration.WithLabelValues(sweep).Observe(duration.Seconds())
	if err == nil {
		m.SweepLastSuccess.WithLabelValues(sweep).Set(float64(time.Now().Unix()))
	}
}

func RecordSweepItem(m *AppMetrics, sweep, outcome string) {
	if m == nil {
		return
	}
	m.SweepItemsTotal.WithLabelValues(sweep, outcome).Inc()
}

func RecordReminder(m *AppMetrics, stage string) {
	if m == nil {
		return
	}
	m.RemindersRecordedTotal.WithLabelValues(stage).Inc()
}

func RecordTransportAttempt(m *AppMetrics, transport string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.TransportAttemptsTotal.WithLabelValues(transport, result).Inc()
	m.TransportSendDuration.WithLabelValues(transport).Observe(duration.Seconds())
}

func RecordDBQuery(m *AppMetrics, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.ErrorsTotal.WithLabelValues("postgres", "query_error", "error").Inc()
	}
}

func RecordEventPublished(m *AppMetrics, topic string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.EventsPublished.WithLabelValues(topic, status).Inc()
}

func RecordLockContention(m *AppMetrics, lock string) {
	if m == nil {
		return
	}
	m.LockAcquireFailures.WithLabelValues(lock).Inc()
}

//Personal.AI order the ending
