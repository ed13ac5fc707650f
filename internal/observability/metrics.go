// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Crawl metrics
	PagesFetched     *prometheus.CounterVec
	RecordsFetched   prometheus.Counter
	MalformedRecords prometheus.Counter
	BlocksDetected   prometheus.Counter
	TransientRetries prometheus.Counter

	// Clearance metrics
	RefreshAttempts *prometheus.CounterVec

	// Latency metrics
	PageFetchLatency prometheus.Histogram
	CrawlDuration    *prometheus.HistogramVec
	RefreshLatency   prometheus.Histogram

	// Analysis metrics
	ReportsGenerated    prometheus.Counter
	AddressesAggregated prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulCrawl prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "token_flow"
	}

	return &Metrics{
		// Crawl metrics
		PagesFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crawl",
			Name:      "pages_fetched_total",
			Help:      "Total number of transfer pages fetched by outcome",
		}, []string{"outcome"}),
		RecordsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crawl",
			Name:      "records_fetched_total",
			Help:      "Total number of transfer records fetched",
		}),
		MalformedRecords: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crawl",
			Name:      "malformed_records_total",
			Help:      "Total number of records dropped as malformed",
		}),
		BlocksDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crawl",
			Name:      "blocks_detected_total",
			Help:      "Total number of anti-bot block responses detected",
		}),
		TransientRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crawl",
			Name:      "transient_retries_total",
			Help:      "Total number of transient-error retries",
		}),

		// Clearance metrics
		RefreshAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clearance",
			Name:      "refresh_attempts_total",
			Help:      "Total number of clearance refresh attempts by status",
		}, []string{"status"}),

		// Latency metrics
		PageFetchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "crawl",
			Name:      "page_fetch_seconds",
			Help:      "Latency of single page fetches",
			Buckets:   prometheus.DefBuckets,
		}),
		CrawlDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "crawl",
			Name:      "duration_seconds",
			Help:      "Duration of complete crawls by outcome",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"outcome"}),
		RefreshLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "clearance",
			Name:      "refresh_seconds",
			Help:      "Latency of clearance refresh attempts",
			Buckets:   prometheus.DefBuckets,
		}),

		// Analysis metrics
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "reports_generated_total",
			Help:      "Total number of flow reports generated",
		}),
		AddressesAggregated: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "addresses_aggregated",
			Help:      "Number of unique addresses in the last flow report",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulCrawl: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_crawl_timestamp",
			Help:      "Unix timestamp of last successful crawl",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPageFetched records a fetched page by outcome ("ok", "blocked",
// "transient", "malformed").
func RecordPageFetched(outcome string, seconds float64) {
	DefaultMetrics.PagesFetched.WithLabelValues(outcome).Inc()
	DefaultMetrics.PageFetchLatency.Observe(seconds)
}

// RecordRecordsFetched adds to the fetched record counter.
func RecordRecordsFetched(n int) {
	DefaultMetrics.RecordsFetched.Add(float64(n))
}

// RecordMalformed increments the malformed record counter.
func RecordMalformed() {
	DefaultMetrics.MalformedRecords.Inc()
}

// RecordBlockDetected increments the block detection counter.
func RecordBlockDetected() {
	DefaultMetrics.BlocksDetected.Inc()
}

// RecordTransientRetry increments the transient retry counter.
func RecordTransientRetry() {
	DefaultMetrics.TransientRetries.Inc()
}

// RecordRefresh records a clearance refresh attempt by status ("ok",
// "failed", "unavailable").
func RecordRefresh(status string, seconds float64) {
	DefaultMetrics.RefreshAttempts.WithLabelValues(status).Inc()
	DefaultMetrics.RefreshLatency.Observe(seconds)
}

// RecordCrawl records a completed crawl by outcome ("complete", "partial",
// "failed").
func RecordCrawl(outcome string, durationSeconds float64) {
	DefaultMetrics.CrawlDuration.WithLabelValues(outcome).Observe(durationSeconds)
	if outcome == "complete" {
		DefaultMetrics.LastSuccessfulCrawl.SetToCurrentTime()
	}
}

// RecordReport records a generated flow report.
func RecordReport(addresses int) {
	DefaultMetrics.ReportsGenerated.Inc()
	DefaultMetrics.AddressesAggregated.Set(float64(addresses))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
