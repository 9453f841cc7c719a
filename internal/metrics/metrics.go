// Package metrics exposes Prometheus counters for report jobs and ingestion.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "uptime_"

var (
	registerOnce sync.Once

	reportJobs        *prometheus.CounterVec
	reportJobDuration prometheus.Histogram
	reportStoreRows   *prometheus.CounterVec

	ingestRows          *prometheus.CounterVec
	ingestBatchFailures *prometheus.CounterVec
)

// Init registers the collectors with the default registry. Recording helpers
// are no-ops until it has been called.
func Init() {
	registerOnce.Do(func() {
		reportJobs = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_jobs_total",
				Help: "Report jobs reaching a terminal state, by status",
			},
			[]string{"status"},
		)
		reportJobDuration = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_job_duration_seconds",
				Help:    "Wall time spent generating a report",
				Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
		)
		reportStoreRows = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_store_rows_total",
				Help: "Report rows produced, by result (computed or zero_filled)",
			},
			[]string{"result"},
		)
		ingestRows = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_rows_total",
				Help: "Ingested feed rows, by feed and result",
			},
			[]string{"feed", "result"},
		)
		ingestBatchFailures = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_batch_failures_total",
				Help: "Ingest batches that failed to write, by feed",
			},
			[]string{"feed"},
		)

		prometheus.MustRegister(
			reportJobs,
			reportJobDuration,
			reportStoreRows,
			ingestRows,
			ingestBatchFailures,
		)
	})
}

// ObserveReportJob records a finished job.
func ObserveReportJob(status string, elapsed time.Duration) {
	if reportJobs == nil {
		return
	}
	reportJobs.WithLabelValues(status).Inc()
	reportJobDuration.Observe(elapsed.Seconds())
}

// AddReportRows counts report rows by result.
func AddReportRows(result string, n int) {
	if reportStoreRows == nil || n <= 0 {
		return
	}
	reportStoreRows.WithLabelValues(result).Add(float64(n))
}

// AddIngestRows counts feed rows by result (accepted or rejected).
func AddIngestRows(feed, result string, n int) {
	if ingestRows == nil || n <= 0 {
		return
	}
	ingestRows.WithLabelValues(feed, result).Add(float64(n))
}

// IncIngestBatchFailure counts a batch that could not be written.
func IncIngestBatchFailure(feed string) {
	if ingestBatchFailures == nil {
		return
	}
	ingestBatchFailures.WithLabelValues(feed).Inc()
}
