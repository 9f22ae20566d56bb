package ratewindow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTrackerWindow(t *testing.T) {
	tracker := NewMemoryTracker(time.Minute)
	ctx := context.Background()
	now := time.Unix(1000, 0)

	count, err := tracker.Record(ctx, "g1:u1", now, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, _ = tracker.Record(ctx, "g1:u1", now.Add(500*time.Millisecond), 2*time.Second)
	assert.Equal(t, 2, count)

	// the first hit sits exactly on the cutoff and is dropped
	count, _ = tracker.Record(ctx, "g1:u1", now.Add(2*time.Second), 2*time.Second)
	assert.Equal(t, 2, count)

	count, _ = tracker.Record(ctx, "g1:u1", now.Add(10*time.Second), 2*time.Second)
	assert.Equal(t, 1, count)

	count, _ = tracker.Record(ctx, "g1:u2", now, 2*time.Second)
	assert.Equal(t, 1, count)
}

func TestMemoryTrackerReset(t *testing.T) {
	tracker := NewMemoryTracker(time.Minute)
	ctx := context.Background()
	now := time.Unix(1000, 0)

	for i := 0; i < 4; i++ {
		_, _ = tracker.Record(ctx, "g1:u1", now.Add(time.Duration(i)*time.Millisecond), 5*time.Second)
	}
	require.NoError(t, tracker.Reset(ctx, "g1:u1"))

	count, _ := tracker.Record(ctx, "g1:u1", now.Add(10*time.Millisecond), 5*time.Second)
	assert.Equal(t, 1, count)
}

func TestMemoryTrackerSweep(t *testing.T) {
	tracker := NewMemoryTracker(60 * time.Second)
	ctx := context.Background()
	now := time.Unix(1000, 0)

	_, _ = tracker.Record(ctx, "idle", now, 5*time.Second)
	_, _ = tracker.Record(ctx, "active", now.Add(50*time.Second), 5*time.Second)
	require.Equal(t, 2, tracker.Len())

	evicted := tracker.Sweep(now.Add(61 * time.Second))
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, tracker.Len())

	evicted = tracker.Sweep(now.Add(200 * time.Second))
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 0, tracker.Len())
}

func TestMemoryTrackerRunStops(t *testing.T) {
	tracker := NewMemoryTracker(time.Millisecond)
	_, _ = tracker.Record(context.Background(), "k", time.Now().Add(-time.Hour), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tracker.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return tracker.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not stop")
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "g1:u1", Key("g1", "u1"))
}
