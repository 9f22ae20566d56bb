package automod

import (
	"context"
	"errors"
	"sync"
	"time"

	"modbot/internal/modules/audit"
	"modbot/internal/scheduler"
	"modbot/internal/storage"
)

type gatewayCall struct {
	op       string
	target   string
	duration time.Duration
	content  string
}

type fakeGateway struct {
	mu       sync.Mutex
	calls    []gatewayCall
	caps     Capabilities
	capsErr  error
	dmErr    error
	delErr   error
	punErr   error
	noticeID string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		caps:     Capabilities{Moderatable: true, Kickable: true, Bannable: true},
		noticeID: "notice-1",
	}
}

func (g *fakeGateway) record(c gatewayCall) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, c)
}

func (g *fakeGateway) ops() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.calls))
	for _, c := range g.calls {
		out = append(out, c.op)
	}
	return out
}

func (g *fakeGateway) find(op string) (gatewayCall, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range g.calls {
		if c.op == op {
			return c, true
		}
	}
	return gatewayCall{}, false
}

func (g *fakeGateway) BotUserID() string { return "bot" }

func (g *fakeGateway) DeleteMessage(_ context.Context, channelID, messageID string) error {
	g.record(gatewayCall{op: "delete", target: messageID})
	return g.delErr
}

func (g *fakeGateway) SendChannelMessage(_ context.Context, channelID, content string) (string, error) {
	g.record(gatewayCall{op: "notice", target: channelID, content: content})
	return g.noticeID, nil
}

func (g *fakeGateway) SendDirectMessage(_ context.Context, userID, content string) error {
	g.record(gatewayCall{op: "dm", target: userID, content: content})
	return g.dmErr
}

func (g *fakeGateway) Timeout(_ context.Context, guildID, userID string, d time.Duration, reason string) error {
	g.record(gatewayCall{op: "timeout", target: userID, duration: d, content: reason})
	return g.punErr
}

func (g *fakeGateway) Kick(_ context.Context, guildID, userID, reason string) error {
	g.record(gatewayCall{op: "kick", target: userID, content: reason})
	return g.punErr
}

func (g *fakeGateway) Ban(_ context.Context, guildID, userID, reason string) error {
	g.record(gatewayCall{op: "ban", target: userID, content: reason})
	return g.punErr
}

func (g *fakeGateway) Capabilities(_ context.Context, guildID, userID string) (Capabilities, error) {
	return g.caps, g.capsErr
}

type fakeWarnings struct {
	mu       sync.Mutex
	warnings []storage.Warning
	err      error
}

func (f *fakeWarnings) AddWarning(_ context.Context, w storage.Warning) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.warnings = append(f.warnings, w)
	return int64(len(f.warnings)), nil
}

type fakeCases struct {
	mu    sync.Mutex
	cases []storage.NewCase
}

func (f *fakeCases) CreateCase(_ context.Context, c storage.NewCase) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cases = append(f.cases, c)
	return len(f.cases), nil
}

type fakeModLog struct {
	mu      sync.Mutex
	entries []audit.ModerationEntry
}

func (f *fakeModLog) Moderation(_ context.Context, _ string, entry audit.ModerationEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
}

type fakeTimer struct {
	stopped bool
	due     time.Time
	fn      func()
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) AfterFunc(d time.Duration, fn func()) scheduler.Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{due: f.now.Add(d), fn: fn}
	f.timers = append(f.timers, t)
	return t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	var due, rest []*fakeTimer
	for _, t := range f.timers {
		switch {
		case t.stopped:
		case !t.due.After(f.now):
			due = append(due, t)
		default:
			rest = append(rest, t)
		}
	}
	f.timers = rest
	f.mu.Unlock()
	for _, t := range due {
		t.stopped = true
		t.fn()
	}
}

type memWhitelistStore struct {
	mu      sync.Mutex
	entries []storage.WhitelistEntry
	loads   int
	err     error
}

func (s *memWhitelistStore) GetAllWhitelists(_ context.Context, guildID, feature string) ([]storage.WhitelistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	var out []storage.WhitelistEntry
	for _, e := range s.entries {
		if e.GuildID == guildID && (e.Feature == feature || e.Feature == ScopeGlobal || e.Feature == ScopeAll) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memWhitelistStore) ListGuildWhitelists(_ context.Context, guildID string) ([]storage.WhitelistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.WhitelistEntry
	for _, e := range s.entries {
		if e.GuildID == guildID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memWhitelistStore) AddWhitelist(_ context.Context, entry storage.WhitelistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.GuildID == entry.GuildID && e.Feature == entry.Feature && e.TargetID == entry.TargetID {
			s.entries[i] = entry
			return nil
		}
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memWhitelistStore) RemoveWhitelist(_ context.Context, guildID, feature, targetID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.GuildID == guildID && e.Feature == feature && e.TargetID == targetID {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type memConfigStore struct {
	mu    sync.Mutex
	recs  map[string]storage.FeatureConfigRecord
	loads int
	err   error
}

func newMemConfigStore() *memConfigStore {
	return &memConfigStore{recs: make(map[string]storage.FeatureConfigRecord)}
}

func (s *memConfigStore) GetFeatureConfig(_ context.Context, guildID, feature string) (*storage.FeatureConfigRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	rec, ok := s.recs[guildID+"/"+feature]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *memConfigStore) UpsertFeatureConfig(_ context.Context, rec storage.FeatureConfigRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.GuildID+"/"+rec.Feature] = rec
	return nil
}

var errBoom = errors.New("boom")

func intPtr(v int) *int { return &v }
