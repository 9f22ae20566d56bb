package automod

import (
	"context"
	"sync"
	"testing"
	"time"

	"modbot/internal/ratewindow"
	"modbot/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticConfigs struct {
	configs map[Feature]*FeatureConfig
	errs    map[Feature]error
}

func (s staticConfigs) Get(_ context.Context, _ string, feature Feature) (*FeatureConfig, error) {
	if err := s.errs[feature]; err != nil {
		return nil, err
	}
	return s.configs[feature], nil
}

func enabled(feature Feature, mutate func(*FeatureConfig)) *FeatureConfig {
	cfg := DefaultFeatureDefaults.Apply(feature, nil)
	cfg.Enabled = true
	if mutate != nil {
		mutate(&cfg)
	}
	return &cfg
}

type noExemptions struct{}

func (noExemptions) IsExempt(context.Context, Feature, Subject) (bool, error) { return false, nil }

type panickyResolver struct{ feature Feature }

func (p panickyResolver) IsExempt(_ context.Context, feature Feature, _ Subject) (bool, error) {
	if feature == p.feature {
		panic("resolver exploded")
	}
	return false, nil
}

type recordingResponder struct {
	mu         sync.Mutex
	violations []Violation
}

func (r *recordingResponder) Respond(_ context.Context, _ Message, v Violation) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.violations = append(r.violations, v)
	return Outcome{}
}

func (r *recordingResponder) features() []Feature {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Feature, 0, len(r.violations))
	for _, v := range r.violations {
		out = append(out, v.Feature)
	}
	return out
}

type countingTracker struct {
	*ratewindow.MemoryTracker
	records int
}

func (c *countingTracker) Record(ctx context.Context, key string, now time.Time, span time.Duration) (int, error) {
	c.records++
	return c.MemoryTracker.Record(ctx, key, now, span)
}

func storageEntry(guildID, scope, targetID string, kind TargetType) storage.WhitelistEntry {
	return storage.WhitelistEntry{GuildID: guildID, Feature: scope, TargetID: targetID, TargetType: string(kind)}
}

func spamMessage(at time.Time) Message {
	return Message{ID: "m", GuildID: "g1", ChannelID: "c1", AuthorID: "u1", Content: "hi", CreatedAt: at}
}

func TestMonitorBurstTriggersOnceThenResets(t *testing.T) {
	configs := staticConfigs{configs: map[Feature]*FeatureConfig{
		FeatureAntiSpam: enabled(FeatureAntiSpam, func(c *FeatureConfig) {
			c.MaxMessages = 3
			c.TimeSpan = 5 * time.Second
		}),
	}}
	tracker := ratewindow.NewMemoryTracker(0)
	responder := &recordingResponder{}
	monitor := NewMonitor(configs, noExemptions{}, tracker, responder, zap.NewNop())

	start := time.Unix(1_700_000_000, 0)
	for i := 0; i < 4; i++ {
		monitor.HandleMessage(context.Background(), spamMessage(start.Add(time.Duration(i)*500*time.Millisecond)))
	}
	require.Len(t, responder.violations, 1)
	assert.Contains(t, responder.violations[0].Reason, "more than 3 in 5.0s")

	count, err := tracker.Record(context.Background(), ratewindow.Key("g1", "u1"), start.Add(2500*time.Millisecond), 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	for i := 0; i < 2; i++ {
		monitor.HandleMessage(context.Background(), spamMessage(start.Add(3*time.Second+time.Duration(i)*100*time.Millisecond)))
	}
	assert.Len(t, responder.violations, 1)
}

func TestMonitorMessagesOutsideWindowDoNotCount(t *testing.T) {
	configs := staticConfigs{configs: map[Feature]*FeatureConfig{
		FeatureAntiSpam: enabled(FeatureAntiSpam, func(c *FeatureConfig) {
			c.MaxMessages = 2
			c.TimeSpan = time.Second
		}),
	}}
	responder := &recordingResponder{}
	monitor := NewMonitor(configs, noExemptions{}, ratewindow.NewMemoryTracker(0), responder, zap.NewNop())

	start := time.Unix(1_700_000_000, 0)
	for i := 0; i < 6; i++ {
		monitor.HandleMessage(context.Background(), spamMessage(start.Add(time.Duration(i)*700*time.Millisecond)))
	}
	assert.Empty(t, responder.violations)
}

func TestMonitorBurstEndToEnd(t *testing.T) {
	configs := staticConfigs{configs: map[Feature]*FeatureConfig{
		FeatureAntiSpam: enabled(FeatureAntiSpam, func(c *FeatureConfig) {
			c.MaxMessages = 3
			c.TimeSpan = 5 * time.Second
			c.PunishmentDuration = 10 * time.Minute
		}),
	}}
	gateway := newFakeGateway()
	modLog := &fakeModLog{}
	responder := NewResponder(gateway, &fakeWarnings{}, &fakeCases{}, modLog, zap.NewNop(), 0)
	responder.WithClock(&fakeClock{})
	monitor := NewMonitor(configs, noExemptions{}, ratewindow.NewMemoryTracker(0), responder, zap.NewNop())

	start := time.Unix(1_700_000_000, 0)
	for i := 0; i < 4; i++ {
		msg := spamMessage(start.Add(time.Duration(i) * 500 * time.Millisecond))
		msg.ID = string(rune('a' + i))
		monitor.HandleMessage(context.Background(), msg)
	}

	deleted, ok := gateway.find("delete")
	require.True(t, ok)
	assert.Equal(t, "d", deleted.target)
	timeout, ok := gateway.find("timeout")
	require.True(t, ok)
	assert.Equal(t, 10*time.Minute, timeout.duration)
	assert.Contains(t, timeout.content, "more than 3 in 5.0s")
	require.Len(t, modLog.entries, 1)
	assert.Equal(t, "AutoMod Timeout", modLog.entries[0].Action)
}

func TestMonitorIgnoresBotsAndDirectMessages(t *testing.T) {
	configs := staticConfigs{configs: map[Feature]*FeatureConfig{
		FeatureAntiLink: enabled(FeatureAntiLink, nil),
	}}
	responder := &recordingResponder{}
	monitor := NewMonitor(configs, noExemptions{}, ratewindow.NewMemoryTracker(0), responder, zap.NewNop())

	msg := Message{ID: "m", GuildID: "g1", ChannelID: "c1", AuthorID: "u1", Content: "https://example.com", IsBot: true}
	monitor.HandleMessage(context.Background(), msg)
	msg.IsBot = false
	msg.GuildID = ""
	monitor.HandleMessage(context.Background(), msg)
	assert.Empty(t, responder.violations)
}

func TestMonitorSkipsDisabledAndExempt(t *testing.T) {
	disabled := enabled(FeatureAntiLink, nil)
	disabled.Enabled = false
	configs := staticConfigs{configs: map[Feature]*FeatureConfig{
		FeatureAntiLink:     disabled,
		FeatureServerInvite: enabled(FeatureServerInvite, nil),
		FeatureAntiSpam:     enabled(FeatureAntiSpam, nil),
	}}
	store := &memWhitelistStore{}
	resolver := NewResolver(store, 0, time.Minute)
	require.NoError(t, resolver.Add(context.Background(), storageEntry("g1", string(FeatureServerInvite), "c1", TargetChannel)))
	require.NoError(t, resolver.Add(context.Background(), storageEntry("g1", string(FeatureAntiSpam), "u1", TargetUser)))

	tracker := &countingTracker{MemoryTracker: ratewindow.NewMemoryTracker(0)}
	responder := &recordingResponder{}
	monitor := NewMonitor(configs, resolver, tracker, responder, zap.NewNop())

	monitor.HandleMessage(context.Background(), Message{
		ID: "m", GuildID: "g1", ChannelID: "c1", AuthorID: "u1",
		Content: "discord.gg/abcdef and https://example.com",
	})
	assert.Empty(t, responder.violations)
	assert.Zero(t, tracker.records)
}

func TestMonitorIsolatesFeatureFailures(t *testing.T) {
	configs := staticConfigs{
		configs: map[Feature]*FeatureConfig{
			FeatureMassMention:  enabled(FeatureMassMention, func(c *FeatureConfig) { c.MaxMentions = 1 }),
			FeatureServerInvite: enabled(FeatureServerInvite, nil),
			FeatureAntiLink:     enabled(FeatureAntiLink, nil),
		},
		errs: map[Feature]error{FeatureAntiSpam: errBoom},
	}
	responder := &recordingResponder{}
	monitor := NewMonitor(configs, panickyResolver{feature: FeatureMassMention}, ratewindow.NewMemoryTracker(0), responder, zap.NewNop())

	monitor.HandleMessage(context.Background(), Message{
		ID: "m", GuildID: "g1", ChannelID: "c1", AuthorID: "u1",
		Content:        "join discord.gg/abcdef",
		MentionUserIDs: []string{"a", "b", "c"},
	})
	assert.Equal(t, []Feature{FeatureServerInvite}, responder.features())
}

func TestMonitorInviteAndLinkBothEnabled(t *testing.T) {
	configs := staticConfigs{configs: map[Feature]*FeatureConfig{
		FeatureServerInvite: enabled(FeatureServerInvite, nil),
		FeatureAntiLink:     enabled(FeatureAntiLink, nil),
	}}
	responder := &recordingResponder{}
	monitor := NewMonitor(configs, noExemptions{}, ratewindow.NewMemoryTracker(0), responder, zap.NewNop())

	monitor.HandleMessage(context.Background(), Message{ID: "m", GuildID: "g1", ChannelID: "c1", AuthorID: "u1", Content: "https://discord.gg/abcdef https://example.com"})
	monitor.HandleMessage(context.Background(), Message{ID: "n", GuildID: "g1", ChannelID: "c1", AuthorID: "u1", Content: "https://example.com"})
	assert.Equal(t, []Feature{FeatureServerInvite, FeatureAntiLink}, responder.features())
}
