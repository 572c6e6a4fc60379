// Package metrics provides Prometheus metrics for the recap leaderboard.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector used by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Board metrics
	intentsTotal    *prometheus.CounterVec
	intentLatency   *prometheus.HistogramVec
	publishesTotal  prometheus.Counter
	entries         prometheus.Gauge
	totalUnits      prometheus.Gauge
	pendingRemovals prometheus.Gauge
	importFailures  prometheus.Counter

	// Intent queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	streamClients       prometheus.Gauge

	// Error metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "recap",
		subsystem:        "board",
		histogramBuckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.intentsTotal = m.counterVec("intents_total", "Intents handled, by kind and result", "kind", "result")
	m.intentLatency = m.histogramVec("intent_latency_milliseconds", "Time from dequeue to reply, by kind", "kind")
	m.publishesTotal = m.counter("publishes_total", "Ranked views published to renderers")
	m.entries = m.gauge("entries", "Entries in the last published view")
	m.totalUnits = m.gauge("total_units", "Sum of units in the last published view")
	m.pendingRemovals = m.gauge("pending_removals", "Entries waiting for their exit delay")
	m.importFailures = m.counter("import_failures_total", "Import payloads discarded as malformed")

	m.queueSize = m.gauge("queue_size", "Intents waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queued intents")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Intents enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Intents dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Intents rejected by the queue")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration",
		"endpoint", "method", "status_code")
	m.streamClients = m.gauge("stream_clients", "Open server-sent event streams")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Allocated heap bytes")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: "system_gc_pause_milliseconds",
		Help: "Average GC pause", ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	})
}

// Board Metrics Functions.

// RecordIntent counts one handled intent.
func RecordIntent(kind, result string) {
	globalManager.intentsTotal.WithLabelValues(kind, result).Inc()
}

// RecordIntentLatency observes how long an intent took to apply.
func RecordIntentLatency(kind string, latencyMs float64) {
	globalManager.intentLatency.WithLabelValues(kind).Observe(latencyMs)
}

// RecordPublish counts a publish and updates the board gauges.
func RecordPublish(entries int, totalUnits float64, pending int) {
	globalManager.publishesTotal.Inc()
	globalManager.entries.Set(float64(entries))
	globalManager.totalUnits.Set(totalUnits)
	globalManager.pendingRemovals.Set(float64(pending))
}

// RecordImportFailure counts a discarded import payload.
func RecordImportFailure() {
	globalManager.importFailures.Inc()
}

// Queue Metrics Functions.

// UpdateQueueSize sets the number of queued intents.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest increments the HTTP requests counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes an HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// StreamOpened and StreamClosed track open SSE streams.
func StreamOpened() { globalManager.streamClients.Inc() }
func StreamClosed() { globalManager.streamClients.Dec() }

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Performance Metrics Functions.

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
