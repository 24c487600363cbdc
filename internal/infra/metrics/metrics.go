// internal/infra/metrics/metrics.go
package metrics

import (
	"net/http"

	"obligation_engine/internal/domain/report"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// GenerationRuns counts finished generation runs by outcome.
	GenerationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obligation_generation_runs_total",
			Help: "Total number of obligation generation runs",
		},
		[]string{"result"}, // result: ok, failed
	)

	// ObligationsCreated counts work-items materialized by generation runs.
	ObligationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "obligation_rows_created_total",
			Help: "Total number of monthly obligations created by generation runs",
		},
	)

	// ObligationsSkipped counts pairs whose row already existed.
	ObligationsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "obligation_rows_skipped_total",
			Help: "Total number of pairs skipped because their row already existed",
		},
	)

	// PairErrors counts isolated per-pair failures inside generation runs.
	PairErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "obligation_pair_errors_total",
			Help: "Total number of client/type pairs that failed during generation",
		},
	)

	// GenerationDuration observes wall-clock duration of generation runs.
	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "obligation_generation_duration_seconds",
			Help:    "Obligation generation run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1min
		},
	)

	// OverdueFlagged counts rows flagged by the daily overdue sweep.
	OverdueFlagged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "obligation_overdue_flagged_total",
			Help: "Total number of obligations flagged overdue by the sweep",
		},
	)
)

// ObserveRun records the outcome of one generation run. Dry runs only count
// toward the run totals; their row counters would describe writes that were
// rolled back.
func ObserveRun(summary *report.RunSummary, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	GenerationRuns.WithLabelValues(result).Inc()

	if summary == nil || summary.DryRun {
		return
	}
	ObligationsCreated.Add(float64(summary.Created))
	ObligationsSkipped.Add(float64(summary.Skipped))
	PairErrors.Add(float64(len(summary.Errors)))
	GenerationDuration.Observe(summary.Duration.Seconds())
}

// ObserveSweep records how many rows one overdue sweep flagged.
func ObserveSweep(flagged int64) {
	OverdueFlagged.Add(float64(flagged))
}

// Handler exposes the collectors for Prometheus scraping; the schedule
// daemon mounts it on METRICS_ADDR.
func Handler() http.Handler {
	return promhttp.Handler()
}
