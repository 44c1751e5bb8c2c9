// Package metrics provides Prometheus metrics for the vitals assessment runner.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Default metrics configuration constants.
const (
	defaultNamespace = "vitals"
	defaultSubsystem = "assessment"
	pushJobName      = "vitals_assessment"
)

// Label values for the bucket gauge.
const (
	BucketHighRisk          = "high_risk"
	BucketFever             = "fever"
	BucketDataQualityIssues = "data_quality_issues"
)

// riskScoreBuckets puts every possible total (0..7) in its own bucket.
var riskScoreBuckets = []float64{0, 1, 2, 3, 4, 5, 6, 7}

// Manager owns the Prometheus collectors for one registry.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         *prometheus.Registry

	// Roster fetch
	pagesFetched      *prometheus.CounterVec
	pageFetchFailures prometheus.Counter
	patientsFetched   prometheus.Counter
	recordsSkipped    prometheus.Counter
	fetchComplete     prometheus.Gauge

	// Transport
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRetries         *prometheus.CounterVec

	// Assessment
	patientsScored prometheus.Counter
	riskScores     prometheus.Histogram
	bucketSize     *prometheus.GaugeVec
	submissions    *prometheus.CounterVec
	runDuration    prometheus.Gauge

	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Init replaces the global manager with one built from opts on a fresh
// registry, which GetRegistry returns from then on. Call it once at startup,
// before any metric is recorded.
func Init(opts ...Option) {
	customRegistry = prometheus.NewRegistry()
	globalManager = NewManager(append([]Option{WithPrometheusRegistry(customRegistry)}, opts...)...)
}

// NewManager creates a new metrics manager. Without WithPrometheusRegistry
// it registers on a fresh private registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        defaultNamespace,
		subsystem:        defaultSubsystem,
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		customLabels:     make(map[string]string),
	}

	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.pagesFetched = auto.NewCounterVec(
		m.counterOpts("pages_fetched_total", "Roster pages fetched, by detected response shape"),
		[]string{"shape"},
	)
	m.pageFetchFailures = auto.NewCounter(
		m.counterOpts("page_fetch_failures_total", "Roster page fetches that failed after retries"),
	)
	m.patientsFetched = auto.NewCounter(
		m.counterOpts("patients_fetched_total", "Patient records received from the roster"),
	)
	m.recordsSkipped = auto.NewCounter(
		m.counterOpts("records_skipped_total", "Roster entries dropped because they were not records"),
	)
	m.fetchComplete = auto.NewGauge(
		m.gaugeOpts("fetch_complete", "1 when the last roster fetch drained every page, 0 when it was truncated"),
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Outbound HTTP attempts by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "Outbound HTTP attempt duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRetries = auto.NewCounterVec(
		m.counterOpts("http_retries_total", "Outbound HTTP retries by endpoint and reason"),
		[]string{"endpoint", "reason"},
	)

	m.patientsScored = auto.NewCounter(
		m.counterOpts("patients_scored_total", "Patients normalized and scored"),
	)
	m.riskScores = auto.NewHistogram(
		m.histogramOpts("risk_score", "Distribution of total risk scores", riskScoreBuckets),
	)
	m.bucketSize = auto.NewGaugeVec(
		m.gaugeOpts("bucket_size", "Patients in each submitted bucket for the last run"),
		[]string{"bucket"},
	)
	m.submissions = auto.NewCounterVec(
		m.counterOpts("submissions_total", "Assessment submissions by outcome"),
		[]string{"outcome"},
	)
	m.runDuration = auto.NewGauge(
		m.gaugeOpts("run_duration_seconds", "Wall time of the last assessment run"),
	)

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
}

// Registry returns the registry this manager registers on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Push sends the current state of the registry to a Prometheus Pushgateway,
// grouped by run id. client may be nil.
func (m *Manager) Push(ctx context.Context, url, runID string, client *http.Client) error {
	p := push.New(url, pushJobName).Gatherer(m.registry)
	if runID != "" {
		p = p.Grouping("run_id", runID)
	}
	if client != nil {
		p = p.Client(client)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrPushFailed, err)
	}
	return nil
}

// Manager recording methods. All are no-ops when metrics are disabled.

// RecordPageFetched counts one fetched page and its records.
func (m *Manager) RecordPageFetched(shape string, records, skipped int) {
	if !m.enabled {
		return
	}
	m.pagesFetched.WithLabelValues(shape).Inc()
	m.patientsFetched.Add(float64(records))
	m.recordsSkipped.Add(float64(skipped))
}

// RecordPageFetchFailure counts a terminal page failure.
func (m *Manager) RecordPageFetchFailure() {
	if !m.enabled {
		return
	}
	m.pageFetchFailures.Inc()
}

// SetFetchComplete records whether the last fetch drained the roster.
func (m *Manager) SetFetchComplete(complete bool) {
	if !m.enabled {
		return
	}
	if complete {
		m.fetchComplete.Set(1)
	} else {
		m.fetchComplete.Set(0)
	}
}

// RecordHTTPRequest records one outbound attempt.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPRetry counts a scheduled retry.
func (m *Manager) RecordHTTPRetry(endpoint, reason string) {
	if !m.enabled {
		return
	}
	m.httpRetries.WithLabelValues(endpoint, reason).Inc()
}

// RecordPatientScored counts one scored patient and its total.
func (m *Manager) RecordPatientScored(total int) {
	if !m.enabled {
		return
	}
	m.patientsScored.Inc()
	m.riskScores.Observe(float64(total))
}

// SetBucketSizes records the bucket sizes of the last run.
func (m *Manager) SetBucketSizes(highRisk, fever, dataQuality int) {
	if !m.enabled {
		return
	}
	m.bucketSize.WithLabelValues(BucketHighRisk).Set(float64(highRisk))
	m.bucketSize.WithLabelValues(BucketFever).Set(float64(fever))
	m.bucketSize.WithLabelValues(BucketDataQualityIssues).Set(float64(dataQuality))
}

// RecordSubmission counts a submission outcome: success, failure or skipped.
func (m *Manager) RecordSubmission(outcome string) {
	if !m.enabled {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

// SetRunDuration records the last run's wall time.
func (m *Manager) SetRunDuration(seconds float64) {
	if !m.enabled {
		return
	}
	m.runDuration.Set(seconds)
}

// RecordErrorByComponent records an error with component and type labels.
func (m *Manager) RecordErrorByComponent(component, errorType string) {
	if !m.enabled {
		return
	}
	m.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// Package-level helpers recording on the global manager.

// RecordPageFetched counts one fetched page and its records.
func RecordPageFetched(shape string, records, skipped int) {
	globalManager.RecordPageFetched(shape, records, skipped)
}

// RecordPageFetchFailure counts a terminal page failure.
func RecordPageFetchFailure() { globalManager.RecordPageFetchFailure() }

// SetFetchComplete records whether the last fetch drained the roster.
func SetFetchComplete(complete bool) { globalManager.SetFetchComplete(complete) }

// RecordHTTPRequest records one outbound attempt.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordHTTPRetry counts a scheduled retry.
func RecordHTTPRetry(endpoint, reason string) { globalManager.RecordHTTPRetry(endpoint, reason) }

// RecordPatientScored counts one scored patient and its total.
func RecordPatientScored(total int) { globalManager.RecordPatientScored(total) }

// SetBucketSizes records the bucket sizes of the last run.
func SetBucketSizes(highRisk, fever, dataQuality int) {
	globalManager.SetBucketSizes(highRisk, fever, dataQuality)
}

// RecordSubmission counts a submission outcome.
func RecordSubmission(outcome string) { globalManager.RecordSubmission(outcome) }

// SetRunDuration records the last run's wall time.
func SetRunDuration(seconds float64) { globalManager.SetRunDuration(seconds) }

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.RecordErrorByComponent(component, errorType)
}

// Push sends the global registry to a Pushgateway.
func Push(ctx context.Context, url, runID string) error {
	return globalManager.Push(ctx, url, runID, nil)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
