package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReminderCycles counts evaluation cycles by result (success|partial|skipped).
	ReminderCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cabinet_reminder_cycles_total",
			Help: "Total number of reminder evaluation cycles",
		},
		[]string{"result"},
	)

	// ReminderCandidates counts candidate alerts by evaluator and outcome
	// (created|suppressed|failed|invalid).
	ReminderCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cabinet_reminder_candidates_total",
			Help: "Candidate alerts processed by the reminder engine",
		},
		[]string{"evaluator", "outcome"},
	)

	// ReminderEmails counts email delivery attempts by result (sent|failed|skipped).
	ReminderEmails = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cabinet_reminder_emails_total",
			Help: "Reminder email delivery attempts",
		},
		[]string{"result"},
	)

	// ReminderCycleDuration measures how long a full evaluation cycle takes.
	ReminderCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cabinet_reminder_cycle_duration_seconds",
			Help:    "Reminder evaluation cycle duration",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	// ReminderLastSuccess records the unix time of the last cycle that completed without evaluator failures.
	ReminderLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cabinet_reminder_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful reminder cycle",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cabinet_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// ObserveCycle records the duration and result of a finished cycle.
func ObserveCycle(result string, started, finished time.Time) {
	ReminderCycles.WithLabelValues(result).Inc()
	ReminderCycleDuration.Observe(finished.Sub(started).Seconds())
	if result == "success" {
		ReminderLastSuccess.Set(float64(finished.Unix()))
	}
}
