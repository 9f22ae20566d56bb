// Package analytics summarises a guild's audit trail.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"modbot/internal/storage"
)

type Store interface {
	ListAuditLogs(ctx context.Context, guildID string, since time.Time) ([]storage.AuditLog, error)
}

type Service struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// EventCount is one row of a report's event breakdown.
type EventCount struct {
	Event string
	Count int
}

type Report struct {
	Since   time.Time
	Total   int
	ByLevel map[string]int
	ByEvent map[string]int
	// AutoMod counts the moderation entries written by AutoMod.
	AutoMod int
}

// TopEvents returns the n most frequent events, ties broken by name.
func (r Report) TopEvents(n int) []EventCount {
	out := make([]EventCount, 0, len(r.ByEvent))
	for event, count := range r.ByEvent {
		out = append(out, EventCount{Event: event, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Event < out[j].Event
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// PeriodStart maps "day" or "week" to the start of that period, counted
// back from now.
func (s *Service) PeriodStart(period string) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "", "day":
		return s.now().Add(-24 * time.Hour), nil
	case "week":
		return s.now().Add(-7 * 24 * time.Hour), nil
	}
	return time.Time{}, fmt.Errorf("unknown period %q", period)
}

func (s *Service) Report(ctx context.Context, guildID string, since time.Time) (Report, error) {
	logs, err := s.store.ListAuditLogs(ctx, guildID, since)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		Since:   since,
		ByLevel: make(map[string]int),
		ByEvent: make(map[string]int),
	}
	for _, log := range logs {
		report.Total++
		report.ByLevel[log.Level]++
		report.ByEvent[log.Event]++
		if strings.HasPrefix(log.Event, "moderation_automod_") {
			report.AutoMod++
		}
	}
	return report, nil
}
