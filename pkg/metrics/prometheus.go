// Package metrics provides Prometheus metrics for the roundledger engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ingestion metrics - the acceptance pipeline.
	eventsAccepted  prometheus.Counter
	eventsDuplicate prometheus.Counter
	eventsRejected  *prometheus.CounterVec
	acceptLatency   prometheus.Histogram

	// Ledger metrics - chain integrity.
	chainVerifications *prometheus.CounterVec
	roundsLocked       prometheus.Counter
	lockFailures       *prometheus.CounterVec
	overridesRecorded  prometheus.Counter

	// Fusion metrics.
	fusionRuns        prometheus.Counter
	fusionClusters    prometheus.Counter
	fusionConflicts   prometheus.Counter
	momentumSwings    prometheus.Counter
	fusionRunLatency  prometheus.Histogram

	// Scoring metrics.
	scoresComputed prometheus.Counter
	scoreCacheHits prometheus.Counter
	scoringLatency prometheus.Histogram

	// Operational health.
	roundsTracked    prometheus.Gauge
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueueErrs prometheus.Counter
	workerCount      prometheus.Gauge
	workerErrors     prometheus.Counter
	workerLatency    prometheus.Histogram

	// HTTP performance.
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System performance.
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "roundledger",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.eventsAccepted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_accepted_total",
		Help:      "Total number of events accepted into round ledgers",
	})

	m.eventsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_duplicate_total",
		Help:      "Total number of duplicate submissions resolved by fingerprint",
	})

	m.eventsRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_rejected_total",
		Help:      "Total number of submissions rejected before entering the ledger",
	}, []string{"reason"})

	m.acceptLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "accept_latency_milliseconds",
		Help:      "Histogram of event acceptance latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.chainVerifications = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "chain_verifications_total",
		Help:      "Total number of chain verifications by outcome",
	}, []string{"outcome"})

	m.roundsLocked = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rounds_locked_total",
		Help:      "Total number of rounds locked",
	})

	m.lockFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "lock_failures_total",
		Help:      "Total number of refused lock attempts by reason",
	}, []string{"reason"})

	m.overridesRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "overrides_recorded_total",
		Help:      "Total number of post-lock supervisor overrides recorded",
	})

	m.fusionRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fusion_runs_total",
		Help:      "Total number of fusion resolver passes",
	})

	m.fusionClusters = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fusion_clusters_total",
		Help:      "Total number of multi-member fusion clusters merged",
	})

	m.fusionConflicts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fusion_conflicts_total",
		Help:      "Total number of clusters flagged for manual review",
	})

	m.momentumSwings = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "momentum_swings_total",
		Help:      "Total number of synthesized momentum-swing events",
	})

	m.fusionRunLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fusion_run_latency_milliseconds",
		Help:      "Histogram of fusion resolver pass latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.scoresComputed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scores_computed_total",
		Help:      "Total number of score snapshots computed from canonical events",
	})

	m.scoreCacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_cache_hits_total",
		Help:      "Total number of score reads served from the cached snapshot",
	})

	m.scoringLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scoring_latency_milliseconds",
		Help:      "Histogram of scoring latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.roundsTracked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rounds_tracked",
		Help:      "Current number of rounds held in the store",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fusion_queue_size",
		Help:      "Current number of queued fusion jobs",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fusion_queue_capacity",
		Help:      "Configured fusion queue capacity",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fusion_queue_utilization",
		Help:      "Fusion queue utilization ratio (0-1)",
	})

	m.queueEnqueueErrs = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fusion_queue_enqueue_errors_total",
		Help:      "Total number of fusion jobs dropped at enqueue",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fusion_workers",
		Help:      "Number of background fusion workers",
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fusion_worker_errors_total",
		Help:      "Total number of fusion worker processing errors",
	})

	m.workerLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fusion_worker_latency_milliseconds",
		Help:      "Histogram of fusion job processing latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "Histogram of HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Current allocated heap bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Current number of goroutines",
	})
}

// Package-level helpers operating on the global manager.

func RecordEventAccepted()  { globalManager.eventsAccepted.Inc() }
func RecordEventDuplicate() { globalManager.eventsDuplicate.Inc() }

func RecordEventRejected(reason string) {
	globalManager.eventsRejected.WithLabelValues(reason).Inc()
}

func RecordAcceptLatency(latencyMs float64) {
	globalManager.acceptLatency.Observe(latencyMs)
}

func RecordChainVerification(valid bool) {
	outcome := "valid"
	if !valid {
		outcome = "broken"
	}
	globalManager.chainVerifications.WithLabelValues(outcome).Inc()
}

func RecordRoundLocked() { globalManager.roundsLocked.Inc() }

func RecordLockFailure(reason string) {
	globalManager.lockFailures.WithLabelValues(reason).Inc()
}

func RecordOverride() { globalManager.overridesRecorded.Inc() }

func RecordFusionRun(clusters, conflicts, swings int) {
	globalManager.fusionRuns.Inc()
	globalManager.fusionClusters.Add(float64(clusters))
	globalManager.fusionConflicts.Add(float64(conflicts))
	globalManager.momentumSwings.Add(float64(swings))
}

func RecordFusionRunLatency(latencyMs float64) {
	globalManager.fusionRunLatency.Observe(latencyMs)
}

func RecordScoreComputed() { globalManager.scoresComputed.Inc() }
func RecordScoreCacheHit() { globalManager.scoreCacheHits.Inc() }

func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

func UpdateRoundsTracked(count int) {
	globalManager.roundsTracked.Set(float64(count))
}

func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

func RecordQueueEnqueueError() { globalManager.queueEnqueueErrs.Inc() }

func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

func RecordWorkerError() { globalManager.workerErrors.Inc() }

func RecordWorkerLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, status string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(durationMs)
}

func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom registry used by the global manager, for
// HTTP exposition.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
