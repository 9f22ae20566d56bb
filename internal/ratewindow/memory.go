package ratewindow

import (
	"context"
	"sync"
	"time"
)

const DefaultIdleTTL = 60 * time.Second

type window struct {
	hits []time.Time
}

// MemoryTracker keeps windows in process memory. Idle subjects are only
// released by Sweep.
type MemoryTracker struct {
	mu      sync.Mutex
	idleTTL time.Duration
	windows map[string]*window
}

func NewMemoryTracker(idleTTL time.Duration) *MemoryTracker {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &MemoryTracker{
		idleTTL: idleTTL,
		windows: make(map[string]*window),
	}
}

func (t *MemoryTracker) Record(_ context.Context, key string, now time.Time, span time.Duration) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w := t.windows[key]
	if w == nil {
		w = &window{}
		t.windows[key] = w
	}

	cutoff := now.Add(-span)
	idx := 0
	for _, hit := range w.hits {
		if hit.After(cutoff) {
			break
		}
		idx++
	}
	w.hits = append(w.hits[idx:], now)
	return len(w.hits), nil
}

func (t *MemoryTracker) Reset(_ context.Context, key string) error {
	t.mu.Lock()
	delete(t.windows, key)
	t.mu.Unlock()
	return nil
}

// Sweep drops every subject whose newest hit is older than the idle TTL and
// returns how many were dropped.
func (t *MemoryTracker) Sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := now.Add(-t.idleTTL)
	evicted := 0
	for key, w := range t.windows {
		if len(w.hits) == 0 || w.hits[len(w.hits)-1].Before(cutoff) {
			delete(t.windows, key)
			evicted++
		}
	}
	sweepEvictions.Add(float64(evicted))
	trackedSubjects.Set(float64(len(t.windows)))
	return evicted
}

func (t *MemoryTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.windows)
}

// Run sweeps every interval until ctx is done.
func (t *MemoryTracker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultIdleTTL
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.Sweep(now)
		}
	}
}
