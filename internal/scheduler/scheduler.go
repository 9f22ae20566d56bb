// Package scheduler runs delayed jobs that can be replaced or cancelled by key.
package scheduler

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	Stop() bool
}

type realClock struct{}

type realTimer struct{ t *time.Timer }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{t: time.AfterFunc(d, f)}
}

func (t realTimer) Stop() bool { return t.t.Stop() }

// RealClock is backed by the time package.
func RealClock() Clock { return realClock{} }

type job struct {
	seq   uint64
	due   time.Time
	timer Timer
}

type Scheduler struct {
	mu     sync.Mutex
	clock  Clock
	logger *zap.Logger
	seq    uint64
	jobs   map[string]*job
}

func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		clock:  realClock{},
		logger: logger,
		jobs:   make(map[string]*job),
	}
}

func (s *Scheduler) WithClock(clock Clock) {
	s.clock = clock
}

// UnbanKey identifies the pending unban of one member.
func UnbanKey(guildID, userID string) string {
	return "unban:" + guildID + ":" + userID
}

// Schedule runs fn after delay. A job already pending under key is cancelled first.
func (s *Scheduler) Schedule(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.jobs[key]; existing != nil {
		existing.timer.Stop()
		s.logger.Debug("scheduled job replaced", zap.String("key", key))
	}

	s.seq++
	seq := s.seq
	j := &job{seq: seq, due: s.clock.Now().Add(delay)}
	j.timer = s.clock.AfterFunc(delay, func() {
		s.mu.Lock()
		current := s.jobs[key]
		if current == nil || current.seq != seq {
			s.mu.Unlock()
			return
		}
		delete(s.jobs, key)
		s.mu.Unlock()

		s.logger.Debug("scheduled job running", zap.String("key", key))
		fn()
	})
	s.jobs[key] = j
}

// Cancel stops the job under key and reports whether one was pending.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.jobs[key]
	if existing == nil {
		return false
	}
	existing.timer.Stop()
	delete(s.jobs, key)
	return true
}

// Pending returns when the job under key is due.
func (s *Scheduler) Pending(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.jobs[key]
	if existing == nil {
		return time.Time{}, false
	}
	return existing.due, true
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Stop cancels every pending job.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, existing := range s.jobs {
		existing.timer.Stop()
		delete(s.jobs, key)
	}
}
