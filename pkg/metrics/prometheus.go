// Package metrics provides Prometheus metrics for the attribution engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Prediction Metrics
	predictions          *prometheus.CounterVec
	predictionLatency    *prometheus.HistogramVec
	candidatesScored     prometheus.Counter
	evidenceSkipped      *prometheus.CounterVec
	noConfidentLocations prometheus.Counter

	// Artifact Metrics
	artifactsLoaded      *prometheus.GaugeVec
	transitionGraphEdges prometheus.Gauge

	// Training Metrics
	trainingRuns     *prometheus.CounterVec
	trainingDuration *prometheus.HistogramVec
	trainingSamples  *prometheus.GaugeVec
	modelAccuracy    *prometheus.GaugeVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Init replaces the global manager with one built from opts on a fresh
// registry. Call it during start-up, before handlers capture GetRegistry.
func Init(opts ...Option) {
	registry := prometheus.NewRegistry()
	m := NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry = registry
	globalManager = m
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "attrib",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
		Buckets:     buckets,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	// Prediction Metrics
	m.predictions = auto.NewCounterVec(
		m.counterOpts("predictions_total", "Total number of predictions by kind and outcome"),
		[]string{"kind", "outcome"},
	)
	m.predictionLatency = auto.NewHistogramVec(
		m.histogramOpts("prediction_latency_milliseconds", "Prediction latency in milliseconds", m.histogramBuckets),
		[]string{"kind"},
	)
	m.candidatesScored = auto.NewCounter(
		m.counterOpts("candidates_scored_total", "Total number of owner candidates scored"),
	)
	m.evidenceSkipped = auto.NewCounterVec(
		m.counterOpts("evidence_records_skipped_total", "Evidence records ignored because they were malformed"),
		[]string{"kind"},
	)
	m.noConfidentLocations = auto.NewCounter(
		m.counterOpts("no_confident_prediction_total", "Location predictions that ended without a confident location"),
	)

	// Artifact Metrics
	m.artifactsLoaded = auto.NewGaugeVec(
		m.gaugeOpts("artifacts_loaded", "Whether each trained artifact is loaded (1) or missing (0)"),
		[]string{"artifact"},
	)
	m.transitionGraphEdges = auto.NewGauge(
		m.gaugeOpts("transition_graph_edges", "Number of distinct edges in the loaded transition graph"),
	)

	// Training Metrics
	m.trainingRuns = auto.NewCounterVec(
		m.counterOpts("training_runs_total", "Training pipeline runs by outcome"),
		[]string{"pipeline", "outcome"},
	)
	m.trainingDuration = auto.NewHistogramVec(
		m.histogramOpts("training_duration_milliseconds", "Training pipeline duration in milliseconds",
			[]float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000}),
		[]string{"pipeline"},
	)
	m.trainingSamples = auto.NewGaugeVec(
		m.gaugeOpts("training_samples", "Rows in the last training set"),
		[]string{"pipeline"},
	)
	m.modelAccuracy = auto.NewGaugeVec(
		m.gaugeOpts("model_accuracy_ratio", "Held-out accuracy of the last trained model"),
		[]string{"pipeline"},
	)

	// HTTP Performance Metrics
	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(
		m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"),
	)
	m.systemGoroutineCount = auto.NewGauge(
		m.gaugeOpts("system_goroutine_count", "Number of goroutines"),
	)
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

// Prediction Metrics Functions.

// RecordPrediction counts one prediction of kind ("owner" or "location").
func RecordPrediction(kind, outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.predictions.WithLabelValues(kind, outcome).Inc()
}

// RecordPredictionLatency records prediction latency in milliseconds.
func RecordPredictionLatency(kind string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.predictionLatency.WithLabelValues(kind).Observe(latencyMs)
}

// RecordCandidatesScored adds n scored owner candidates.
func RecordCandidatesScored(n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.candidatesScored.Add(float64(n))
}

// RecordEvidenceSkipped counts one malformed evidence record of kind.
func RecordEvidenceSkipped(kind string) {
	if !globalManager.enabled {
		return
	}
	globalManager.evidenceSkipped.WithLabelValues(kind).Inc()
}

// RecordNoConfidentPrediction counts a location prediction with a null result.
func RecordNoConfidentPrediction() {
	if !globalManager.enabled {
		return
	}
	globalManager.noConfidentLocations.Inc()
}

// Artifact Metrics Functions.

// SetArtifactLoaded flags whether artifact is loaded.
func SetArtifactLoaded(artifact string, loaded bool) {
	if !globalManager.enabled {
		return
	}
	v := 0.0
	if loaded {
		v = 1
	}
	globalManager.artifactsLoaded.WithLabelValues(artifact).Set(v)
}

// UpdateTransitionGraphEdges sets the loaded graph's edge count.
func UpdateTransitionGraphEdges(n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.transitionGraphEdges.Set(float64(n))
}

// Training Metrics Functions.

// RecordTrainingRun counts a pipeline run.
func RecordTrainingRun(pipeline, outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.trainingRuns.WithLabelValues(pipeline, outcome).Inc()
}

// RecordTrainingDuration records a pipeline duration in milliseconds.
func RecordTrainingDuration(pipeline string, durationMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.trainingDuration.WithLabelValues(pipeline).Observe(durationMs)
}

// UpdateTrainingSamples sets the training-set size for pipeline.
func UpdateTrainingSamples(pipeline string, n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.trainingSamples.WithLabelValues(pipeline).Set(float64(n))
}

// UpdateModelAccuracy sets the held-out accuracy for pipeline.
func UpdateModelAccuracy(pipeline string, accuracy float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.modelAccuracy.WithLabelValues(pipeline).Set(accuracy)
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// RefreshInterval is how often the system gauges should be sampled.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// SetEnabled toggles recording on the global manager.
func SetEnabled(enabled bool) {
	globalManager.enabled = enabled
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
