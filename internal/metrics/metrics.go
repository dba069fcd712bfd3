// Package metrics exposes Prometheus collectors for the backup pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "clinicguard"

var (
	// BackupRuns counts cascade outcomes by trigger and status.
	BackupRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backup_runs_total",
		Help:      "Backup runs by trigger and resulting status.",
	}, []string{"trigger", "status"})

	// BackupDuration observes full cascade runs.
	BackupDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backup_duration_seconds",
		Help:      "Duration of backup runs.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"trigger"})

	// SnapshotRecords is the record count of the last built snapshot.
	SnapshotRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "snapshot_records",
		Help:      "Total records in the most recent snapshot.",
	})

	// LocationWrites counts location write outcomes.
	LocationWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "location_writes_total",
		Help:      "Snapshot writes per location and result.",
	}, []string{"location", "result"})

	// AuditIssues counts integrity issues by type and severity.
	AuditIssues = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_issues_total",
		Help:      "Integrity issues found by audits.",
	}, []string{"type", "severity"})

	// AuditRuns counts audits by resulting status.
	AuditRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_runs_total",
		Help:      "Integrity audits by status.",
	}, []string{"status"})

	// RestoreRecords counts per-record restore outcomes.
	RestoreRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "restore_records_total",
		Help:      "Records processed by restores, by collection and outcome.",
	}, []string{"collection", "outcome"})

	// SchedulerSkips counts scheduled runs skipped by reason.
	SchedulerSkips = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scheduler_skipped_runs_total",
		Help:      "Scheduled task runs skipped, by task and reason.",
	}, []string{"task", "reason"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
