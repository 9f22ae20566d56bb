package recovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var snapshotRows = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "recovery_snapshot_rows_total",
	Help: "Number of backup rows written by snapshots",
}, []string{"kind"})

var restoredCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "recovery_restored_total",
	Help: "Number of roles and channels recreated by restores",
}, []string{"kind"})

var restoreErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "recovery_restore_errors_total",
	Help: "Number of entities a restore failed to recreate",
})

var cleanupRows = promauto.NewCounter(prometheus.CounterOpts{
	Name: "recovery_cleanup_rows_total",
	Help: "Number of backup rows removed by retention cleanup",
})
