// Package ratewindow counts recent events per subject key over a sliding
// time window.
package ratewindow

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tracker records an event for key at now and returns how many events for
// that key fall inside the window ending at now.
type Tracker interface {
	Record(ctx context.Context, key string, now time.Time, window time.Duration) (int, error)
	Reset(ctx context.Context, key string) error
}

// Key builds the subject key for one author in one guild.
func Key(guildID, userID string) string {
	return guildID + ":" + userID
}

var sweepEvictions = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ratewindow_sweep_evictions_total",
	Help: "Number of idle rate window subjects evicted by the sweep",
})

var trackedSubjects = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "ratewindow_tracked_subjects",
	Help: "Number of subjects held by the in-memory rate window tracker",
})
