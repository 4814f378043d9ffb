// Package observability registers the Prometheus collectors exposed on
// /metrics and offers small helpers for recording them.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestCount counts handled HTTP requests.
	RequestCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schwinn",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "endpoint", "status_code"})

	// RequestLatency observes HTTP request latency.
	RequestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "schwinn",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
	}, []string{"method", "endpoint"})

	// ImportLatency observes end-to-end DAT/CSV import duration by source.
	ImportLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "schwinn",
		Name:      "file_import_duration_seconds",
		Help:      "Time spent importing workout files.",
	}, []string{"source"})

	workoutsExtracted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "schwinn",
		Name:      "workouts_extracted_total",
		Help:      "Workout blocks successfully extracted from export files.",
	})

	blocksSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "schwinn",
		Name:      "workout_blocks_skipped_total",
		Help:      "Malformed workout blocks skipped during extraction.",
	})

	historyRows = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "schwinn",
		Name:      "history_rows",
		Help:      "Rows in the historical workout log after the last save.",
	})

	lastImportGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "schwinn",
		Name:      "last_import_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful import.",
	})
)

func init() {
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		ImportLatency,
		workoutsExtracted,
		blocksSkipped,
		historyRows,
		lastImportGauge,
	)
}

// RecordExtraction counts the outcome of one extraction pass.
func RecordExtraction(extracted, skipped int) {
	workoutsExtracted.Add(float64(extracted))
	blocksSkipped.Add(float64(skipped))
}

// RecordHistorySize updates the log-size gauge after a save.
func RecordHistorySize(rows int) {
	historyRows.Set(float64(rows))
}

// RecordImportCompleted stamps the last-import watermark.
func RecordImportCompleted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastImportGauge.Set(float64(ts.Unix()))
}
