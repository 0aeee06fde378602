package cleanup

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cleanupRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_cleanup_runs_total",
			Help: "Total number of cleanup runs, by operation type and mode",
		},
		[]string{"type", "dry_run"},
	)

	filesDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_cleanup_files_deleted_total",
			Help: "Total number of media files deleted by cleanup runs",
		},
	)

	bytesFreedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_cleanup_bytes_freed_total",
			Help: "Total bytes freed in the object store by cleanup runs",
		},
	)

	itemFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_cleanup_item_failures_total",
			Help: "Per-item cleanup failures, by error code",
		},
		[]string{"code"},
	)
)
