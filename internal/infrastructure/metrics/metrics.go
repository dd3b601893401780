package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all prometheus metrics for yujo.
// uses a custom registry to avoid polluting the global namespace.
type Metrics struct {
	Registry *prometheus.Registry

	// http_request_duration_seconds - histogram for api latency
	HTTPRequestDuration *prometheus.HistogramVec

	// yujo_reports_submitted_total - counter by submission outcome
	ReportsSubmittedTotal *prometheus.CounterVec

	// yujo_ingest_buffer_size - reports waiting to be written
	BufferSize prometheus.Gauge

	// yujo_snapshot_load_duration_seconds - full store reads feeding aggregation
	SnapshotLoadDuration *prometheus.HistogramVec

	// yujo_snapshot_records - records in the last loaded snapshot
	SnapshotRecords prometheus.Gauge

	// yujo_leaderboard_refresh_duration_seconds - background refresh cycles
	LeaderboardRefreshDuration prometheus.Histogram

	// yujo_leaderboard_refresh_failures_total - congregations that failed to refresh
	LeaderboardRefreshFailures prometheus.Counter

	// yujo_webhook_deliveries_total - notification webhooks by outcome
	WebhookDeliveriesTotal *prometheus.CounterVec
}

// New creates and registers all prometheus metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),

		ReportsSubmittedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yujo_reports_submitted_total",
				Help: "Total number of ministry reports submitted, by outcome",
			},
			[]string{"outcome"},
		),

		BufferSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "yujo_ingest_buffer_size",
			Help: "Current number of reports waiting in the ingestion buffer",
		}),

		SnapshotLoadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "yujo_snapshot_load_duration_seconds",
				Help:    "Duration of report store snapshot loads in seconds",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
			[]string{"outcome"},
		),

		SnapshotRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "yujo_snapshot_records",
			Help: "Number of raw records in the most recently loaded snapshot",
		}),

		LeaderboardRefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "yujo_leaderboard_refresh_duration_seconds",
			Help:    "Duration of leaderboard refresh cycles in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),

		LeaderboardRefreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "yujo_leaderboard_refresh_failures_total",
			Help: "Total number of congregations whose leaderboard refresh failed",
		}),

		WebhookDeliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yujo_webhook_deliveries_total",
				Help: "Total number of notification webhook deliveries, by outcome",
			},
			[]string{"outcome"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestDuration,
		m.ReportsSubmittedTotal,
		m.BufferSize,
		m.SnapshotLoadDuration,
		m.SnapshotRecords,
		m.LeaderboardRefreshDuration,
		m.LeaderboardRefreshFailures,
		m.WebhookDeliveriesTotal,
	)

	return m
}

// RecordHTTPRequest records the duration of an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, durationSeconds float64) {
	m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
}

// ReportSubmitted counts one submission. implements application.SubmissionRecorder.
func (m *Metrics) ReportSubmitted(outcome string) {
	m.ReportsSubmittedTotal.WithLabelValues(outcome).Inc()
}

// SetBufferSize sets the current buffer size gauge.
func (m *Metrics) SetBufferSize(size int) {
	m.BufferSize.Set(float64(size))
}

// SnapshotLoaded records a store read. implements application.AggregationRecorder.
func (m *Metrics) SnapshotLoaded(duration time.Duration, records int, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	} else {
		m.SnapshotRecords.Set(float64(records))
	}
	m.SnapshotLoadDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordLeaderboardRefresh records one refresh cycle and its failed congregations.
func (m *Metrics) RecordLeaderboardRefresh(duration time.Duration, failed int) {
	m.LeaderboardRefreshDuration.Observe(duration.Seconds())
	m.LeaderboardRefreshFailures.Add(float64(failed))
}

// WebhookDelivered counts one webhook delivery attempt.
func (m *Metrics) WebhookDelivered(outcome string) {
	m.WebhookDeliveriesTotal.WithLabelValues(outcome).Inc()
}
