// Package metrics provides Prometheus metrics for the proctoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the proctoring service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Frame analysis
	framesAnalyzed      prometheus.Counter
	framesDegraded      prometheus.Counter
	analysisLatency     prometheus.Histogram
	recognitionFailures *prometheus.CounterVec
	eventsDetected      *prometheus.CounterVec
	eventsLogged        *prometheus.CounterVec
	eventsSuppressed    *prometheus.CounterVec
	frameScore          prometheus.Histogram
	activeSessions      prometheus.Gauge
	framesRateLimited   prometheus.Counter

	// Event sink
	sinkDropped       prometheus.Counter
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueUtilization  prometheus.Gauge
	queueEnqueued     prometheus.Counter
	queueDequeued     prometheus.Counter
	queueEnqueueError *prometheus.CounterVec

	// Workers and store
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	storeWriteErrors        prometheus.Counter
	totalCandidates         prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "proctor",
		subsystem:        "monitor",
		histogramBuckets: prometheus.DefBuckets,
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
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	m.framesAnalyzed = m.counter("frames_analyzed_total", "Total number of frames run through the focus engine")
	m.framesDegraded = m.counter("frames_degraded_total", "Frames answered with a degraded result because recognition was unavailable")
	m.analysisLatency = m.histogram("frame_analysis_latency_milliseconds", "Frame analysis latency in milliseconds", m.histogramBuckets)
	m.recognitionFailures = m.counterVec("recognition_failures_total", "Recognition provider failures by stage", "stage")
	m.eventsDetected = m.counterVec("events_detected_total", "Events present in analyzed frames by label", "label")
	m.eventsLogged = m.counterVec("events_logged_total", "Events passed through the cooldown gate to the sink by label", "label")
	m.eventsSuppressed = m.counterVec("events_suppressed_total", "Events held back by the cooldown gate by label", "label")
	m.frameScore = m.histogram("frame_integrity_score", "Per-frame integrity score", []float64{0, 25, 50, 60, 70, 80, 85, 90, 95, 100})
	m.activeSessions = m.gauge("active_sessions", "Number of candidate sessions held in the registry")
	m.framesRateLimited = m.counter("frames_rate_limited_total", "Frames rejected by the per-candidate rate limiter")

	m.sinkDropped = m.counter("sink_dropped_total", "Event records dropped because the sink queue rejected them")
	m.queueSize = m.gauge("queue_size", "Current size of the event sink queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum capacity of the event sink queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Event sink queue utilization ratio (0-1)")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Total number of records enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Total number of records dequeued")
	m.queueEnqueueError = m.counterVec("queue_enqueue_errors_total", "Enqueue failures by reason", "reason")

	m.workerCount = m.gauge("worker_count", "Number of sink workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Time to persist one event record", m.histogramBuckets)
	m.storeWriteErrors = m.counter("store_write_errors_total", "Event records the store failed to persist")
	m.totalCandidates = m.gauge("total_candidates", "Number of candidates known to the store")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint, method and error type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordFrameAnalyzed records one analyzed frame with its latency and score.
func RecordFrameAnalyzed(latencyMs, score float64) {
	globalManager.framesAnalyzed.Inc()
	globalManager.analysisLatency.Observe(latencyMs)
	globalManager.frameScore.Observe(score)
}

// RecordFrameDegraded increments the degraded frame counter.
func RecordFrameDegraded() {
	globalManager.framesDegraded.Inc()
}

// RecordRecognitionFailure records a provider failure for the given stage (faces, objects).
func RecordRecognitionFailure(stage string) {
	globalManager.recognitionFailures.WithLabelValues(stage).Inc()
}

// RecordEventDetected increments the detected counter for label.
func RecordEventDetected(label string) {
	globalManager.eventsDetected.WithLabelValues(label).Inc()
}

// RecordEventLogged increments the logged counter for label.
func RecordEventLogged(label string) {
	globalManager.eventsLogged.WithLabelValues(label).Inc()
}

// RecordEventSuppressed increments the suppressed counter for label.
func RecordEventSuppressed(label string) {
	globalManager.eventsSuppressed.WithLabelValues(label).Inc()
}

// UpdateActiveSessions sets the number of live sessions.
func UpdateActiveSessions(count int) {
	globalManager.activeSessions.Set(float64(count))
}

// RecordFrameRateLimited increments the rate-limited frame counter.
func RecordFrameRateLimited() {
	globalManager.framesRateLimited.Inc()
}

// RecordSinkDropped increments the dropped sink record counter.
func RecordSinkDropped() {
	globalManager.sinkDropped.Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter for reason.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueError.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordStoreWriteError increments the store write error counter.
func RecordStoreWriteError() {
	globalManager.storeWriteErrors.Inc()
}

// UpdateTotalCandidates sets the total candidates count.
func UpdateTotalCandidates(count int) {
	globalManager.totalCandidates.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
