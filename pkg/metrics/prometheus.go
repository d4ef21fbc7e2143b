// Package metrics provides Prometheus metrics for the inkscore service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultSystemInterval = 10 * time.Second
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	systemInterval time.Duration
	registry       prometheus.Registerer

	// Scoring
	evaluationsAdmitted *prometheus.CounterVec
	evaluationsRejected *prometheus.CounterVec
	submitLatency       prometheus.Histogram
	consolidateLatency  prometheus.Histogram

	// Entity store
	registrations *prometheus.CounterVec
	deletions     *prometheus.CounterVec
	entityCount   *prometheus.GaugeVec
	resets        prometheus.Counter

	// Persistence and sync
	persistAttempts  prometheus.Counter
	persistFailures  prometheus.Counter
	persistLatency   prometheus.Histogram
	persistSkipped   prometheus.Counter
	syncQueueSize    prometheus.Gauge
	syncQueueDropped prometheus.Counter
	loadFailures     prometheus.Counter

	// Notifications
	notifications *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "inkscore",
		subsystem:      "contest",
		latencyBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		systemInterval: defaultSystemInterval,
		registry:       prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// SystemInterval reports how often callers should sample runtime gauges.
func (m *Manager) SystemInterval() time.Duration { return m.systemInterval }

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   m.latencyBuckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.evaluationsAdmitted = m.counterVec("evaluations_admitted_total",
		"Evaluations admitted by the recorder", "category")
	m.evaluationsRejected = m.counterVec("evaluations_rejected_total",
		"Evaluation submissions rejected by reason", "reason")
	m.submitLatency = m.histogram("submit_latency_milliseconds",
		"Time spent validating and admitting an evaluation")
	m.consolidateLatency = m.histogram("consolidate_latency_milliseconds",
		"Time spent grouping and ranking evaluations")

	m.registrations = m.counterVec("registrations_total",
		"Entities registered by kind", "entity")
	m.deletions = m.counterVec("deletions_total",
		"Entities deleted by kind", "entity")
	m.entityCount = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "entities",
		Help:      "Entities currently held by the store",
	}, []string{"entity"})
	m.resets = m.counter("resets_total", "Full store resets")

	m.persistAttempts = m.counter("persist_attempts_total",
		"Backend save attempts, retries included")
	m.persistFailures = m.counter("persist_failures_total",
		"Snapshots that could not be saved after all retries")
	m.persistLatency = m.histogram("persist_latency_milliseconds",
		"Backend save latency per attempt")
	m.persistSkipped = m.counter("persist_skipped_total",
		"Snapshots skipped because a newer one was already saved")
	m.syncQueueSize = m.gauge("sync_queue_size", "Snapshots waiting to be persisted")
	m.syncQueueDropped = m.counter("sync_queue_dropped_total",
		"Pending snapshots superseded while the queue was full")
	m.loadFailures = m.counter("load_failures_total", "State loads that fell back to empty state")

	m.notifications = m.counterVec("notifications_total",
		"User-facing notifications by severity", "severity")

	m.httpRequests = m.counterVec("http_requests_total",
		"HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.latencyBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_total",
		"Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordEvaluationAdmitted counts an admitted evaluation.
func RecordEvaluationAdmitted(category string) {
	globalManager.evaluationsAdmitted.WithLabelValues(category).Inc()
}

// RecordEvaluationRejected counts a rejected submission.
func RecordEvaluationRejected(reason string) {
	globalManager.evaluationsRejected.WithLabelValues(reason).Inc()
}

// RecordSubmitLatency observes admission latency in milliseconds.
func RecordSubmitLatency(ms float64) {
	globalManager.submitLatency.Observe(ms)
}

// RecordConsolidateLatency observes consolidation latency in milliseconds.
func RecordConsolidateLatency(ms float64) {
	globalManager.consolidateLatency.Observe(ms)
}

// RecordRegistration counts a registered entity ("contestant", "judge").
func RecordRegistration(entity string) {
	globalManager.registrations.WithLabelValues(entity).Inc()
}

// RecordDeletion counts deleted entities of a kind.
func RecordDeletion(entity string, n int) {
	if n > 0 {
		globalManager.deletions.WithLabelValues(entity).Add(float64(n))
	}
}

// UpdateEntityCount sets the current number of entities of a kind.
func UpdateEntityCount(entity string, n int) {
	globalManager.entityCount.WithLabelValues(entity).Set(float64(n))
}

// RecordReset counts a full reset.
func RecordReset() {
	globalManager.resets.Inc()
}

// RecordPersistAttempt counts a backend save attempt.
func RecordPersistAttempt() {
	globalManager.persistAttempts.Inc()
}

// RecordPersistFailure counts a snapshot given up on.
func RecordPersistFailure() {
	globalManager.persistFailures.Inc()
}

// RecordPersistLatency observes a save attempt in milliseconds.
func RecordPersistLatency(ms float64) {
	globalManager.persistLatency.Observe(ms)
}

// RecordPersistSkipped counts a stale snapshot that was not saved.
func RecordPersistSkipped() {
	globalManager.persistSkipped.Inc()
}

// UpdateSyncQueueSize sets the number of pending snapshots.
func UpdateSyncQueueSize(n int) {
	globalManager.syncQueueSize.Set(float64(n))
}

// RecordSyncQueueDropped counts a superseded snapshot.
func RecordSyncQueueDropped() {
	globalManager.syncQueueDropped.Inc()
}

// RecordLoadFailure counts a failed state load.
func RecordLoadFailure() {
	globalManager.loadFailures.Inc()
}

// RecordNotification counts a user-facing message.
func RecordNotification(severity string) {
	globalManager.notifications.WithLabelValues(severity).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// SystemInterval reports the sampling interval of the global manager.
func SystemInterval() time.Duration {
	return globalManager.SystemInterval()
}

// Since returns the elapsed milliseconds since start as a float.
func Since(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
