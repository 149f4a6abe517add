package reporter

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// metricsOnce ensures metrics are registered only once
	metricsOnce sync.Once

	// incidentsCreatedTotal counts incidents created on the platform
	incidentsCreatedTotal prometheus.Counter

	// indicatorUploadsTotal counts indicator upload attempts by evidence
	// category and outcome
	indicatorUploadsTotal *prometheus.CounterVec

	// commitDuration tracks latency of platform commit calls
	commitDuration prometheus.Histogram

	// reportsTotal counts processed analysis reports by outcome
	reportsTotal *prometheus.CounterVec
)

// InitMetrics registers all Prometheus metrics for the reporting pipeline.
// This should be called once at application startup.
func InitMetrics() {
	metricsOnce.Do(func() {
		incidentsCreatedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "threatbridge_incidents_created_total",
				Help: "Total number of incidents created on the intel platform",
			},
		)

		indicatorUploadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threatbridge_indicator_uploads_total",
				Help: "Total number of indicator upload attempts by category and status",
			},
			[]string{"category", "status"},
		)

		commitDuration = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "threatbridge_commit_duration_seconds",
				Help:    "Duration of platform commit calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
			},
		)

		reportsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threatbridge_reports_total",
				Help: "Total number of processed analysis reports by status",
			},
			[]string{"status"},
		)
	})
}

// recordUpload records one indicator upload attempt.
// status: "success", "excluded", "failed"
func recordUpload(category, status string) {
	if indicatorUploadsTotal != nil {
		indicatorUploadsTotal.WithLabelValues(category, status).Inc()
	}
}

func recordIncident() {
	if incidentsCreatedTotal != nil {
		incidentsCreatedTotal.Inc()
	}
}

// recordReport records one finished pipeline run.
// status: "published", "failed"
func recordReport(status string) {
	if reportsTotal != nil {
		reportsTotal.WithLabelValues(status).Inc()
	}
}

func recordCommitDuration(d time.Duration) {
	if commitDuration != nil {
		commitDuration.Observe(d.Seconds())
	}
}
