// Package metrics provides Prometheus metrics for the order triage service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Scoring
	ordersScored   *prometheus.CounterVec
	scoringErrors  *prometheus.CounterVec
	scoringLatency prometheus.Histogram
	geofenceChecks *prometheus.CounterVec

	// Board
	boardOrders   *prometheus.GaugeVec
	boardUpserts  prometheus.Counter
	boardRemovals prometheus.Counter

	// Updates
	updatesApplied   *prometheus.CounterVec
	updatesDuplicate prometheus.Counter
	noticesReceived  *prometheus.CounterVec

	// Backend polling
	pollRuns    *prometheus.CounterVec
	pollLatency prometheus.Histogram

	// Push feed
	feedConnected  prometheus.Gauge
	feedReconnects prometheus.Counter
	feedMessages   *prometheus.CounterVec

	reportsExported *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerActiveCount       prometheus.Gauge
	workerMessagesPerSecond prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	errorsByComponent *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton behind the package-level helpers

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out of /healthz

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ordertriage",
		subsystem:        "service",
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() {
	m.ordersScored = m.counterVec("orders_scored_total", "Orders scored per role", "role")
	m.scoringErrors = m.counterVec("scoring_errors_total", "Orders skipped because they could not be scored", "role", "reason")
	m.scoringLatency = m.histogram("ranking_latency_milliseconds", "Time to score and sort one queue")
	m.geofenceChecks = m.counterVec("geofence_checks_total", "Geofence evaluations by confidence", "confidence")

	m.boardOrders = m.gaugeVec("board_orders", "Orders currently on the board", "role")
	m.boardUpserts = m.counter("board_upserts_total", "Orders inserted or replaced on the board")
	m.boardRemovals = m.counter("board_removals_total", "Orders removed from the board")

	m.updatesApplied = m.counterVec("updates_applied_total", "Push updates applied by kind", "kind")
	m.updatesDuplicate = m.counter("updates_duplicate_total", "Push updates dropped as duplicates")
	m.noticesReceived = m.counterVec("notices_received_total", "System and emergency messages received", "kind")

	m.pollRuns = m.counterVec("poll_runs_total", "Backend polls by outcome", "outcome")
	m.pollLatency = m.histogram("poll_latency_milliseconds", "Backend poll duration")

	m.feedConnected = m.gauge("feed_connected", "1 while the push feed is connected")
	m.feedReconnects = m.counter("feed_reconnects_total", "Push feed reconnect attempts")
	m.feedMessages = m.counterVec("feed_messages_total", "Push feed messages by type", "type")

	m.reportsExported = m.counterVec("reports_exported_total", "Queue reports exported", "role")

	m.httpRequests = promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "http_requests_total", Help: "HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "http_request_duration_milliseconds", Help: "HTTP request duration",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.queueSize = m.gauge("queue_size", "Current size of the update queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum update queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size / capacity")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Updates enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Updates dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Updates rejected by the queue")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds", "Enqueue latency")

	m.workerActiveCount = m.gauge("worker_active_count", "Number of board workers")
	m.workerMessagesPerSecond = m.gauge("worker_messages_per_second", "Updates applied per second")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Time to apply one update")
	m.workerErrors = m.counter("worker_errors_total", "Updates a worker failed to apply")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
}

// RecordOrderScored counts one successfully scored order.
func RecordOrderScored(role string) { globalManager.ordersScored.WithLabelValues(role).Inc() }

// RecordScoringError counts an order skipped during ranking.
func RecordScoringError(role, reason string) {
	globalManager.scoringErrors.WithLabelValues(role, reason).Inc()
}

// RecordScoringLatency records how long one ranking pass took.
func RecordScoringLatency(latencyMs float64) { globalManager.scoringLatency.Observe(latencyMs) }

// RecordGeofenceCheck counts a geofence evaluation.
func RecordGeofenceCheck(confidence string) {
	globalManager.geofenceChecks.WithLabelValues(confidence).Inc()
}

// UpdateBoardOrders sets the number of orders on the board for a role.
func UpdateBoardOrders(role string, count int) {
	globalManager.boardOrders.WithLabelValues(role).Set(float64(count))
}

func RecordBoardUpsert()  { globalManager.boardUpserts.Inc() }
func RecordBoardRemoval() { globalManager.boardRemovals.Inc() }

// RecordUpdateApplied counts a push update the workers applied.
func RecordUpdateApplied(kind string) { globalManager.updatesApplied.WithLabelValues(kind).Inc() }

// RecordUpdateDuplicate counts a push update dropped by the deduper.
func RecordUpdateDuplicate() { globalManager.updatesDuplicate.Inc() }

// RecordNotice counts a system or emergency message.
func RecordNotice(kind string) { globalManager.noticesReceived.WithLabelValues(kind).Inc() }

// RecordPoll records one backend poll and its outcome ("ok" or "error").
func RecordPoll(outcome string, latencyMs float64) {
	globalManager.pollRuns.WithLabelValues(outcome).Inc()
	globalManager.pollLatency.Observe(latencyMs)
}

// UpdateFeedConnected flips the feed connection gauge.
func UpdateFeedConnected(connected bool) {
	v := 0.0
	if connected {
		v = 1
	}
	globalManager.feedConnected.Set(v)
}

func RecordFeedReconnect() { globalManager.feedReconnects.Inc() }

// RecordFeedMessage counts a decoded push message by type.
func RecordFeedMessage(kind string) { globalManager.feedMessages.WithLabelValues(kind).Inc() }

// RecordReportExported counts a generated spreadsheet.
func RecordReportExported(role string) { globalManager.reportsExported.WithLabelValues(role).Inc() }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Queue Metrics Functions.

func UpdateQueueSize(size int)                { globalManager.queueSize.Set(float64(size)) }
func UpdateQueueCapacity(capacity int)        { globalManager.queueCapacity.Set(float64(capacity)) }
func UpdateQueueUtilization(ratio float64)    { globalManager.queueUtilization.Set(ratio) }
func RecordQueueEnqueue()                     { globalManager.queueEnqueued.Inc() }
func RecordQueueDequeue()                     { globalManager.queueDequeued.Inc() }
func RecordQueueEnqueueError()                { globalManager.queueEnqueueErrors.Inc() }
func RecordQueueProcessingLatency(ms float64) { globalManager.queueProcessingLatency.Observe(ms) }

// Worker Metrics Functions.

func UpdateWorkerActiveCount(count int)        { globalManager.workerActiveCount.Set(float64(count)) }
func UpdateWorkerMessagesPerSecond(r float64)  { globalManager.workerMessagesPerSecond.Set(r) }
func RecordWorkerProcessingLatency(ms float64) { globalManager.workerProcessingLatency.Observe(ms) }
func RecordWorkerError()                       { globalManager.workerErrors.Inc() }

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
