package automod

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type responderFixture struct {
	gateway  *fakeGateway
	warnings *fakeWarnings
	cases    *fakeCases
	modLog   *fakeModLog
	clock    *fakeClock
	r        *Responder
}

func newResponderFixture() *responderFixture {
	f := &responderFixture{
		gateway:  newFakeGateway(),
		warnings: &fakeWarnings{},
		cases:    &fakeCases{},
		modLog:   &fakeModLog{},
		clock:    &fakeClock{now: time.Unix(1_700_000_000, 0)},
	}
	f.r = NewResponder(f.gateway, f.warnings, f.cases, f.modLog, zap.NewNop(), 0)
	f.r.WithClock(f.clock)
	return f
}

func testMessage() Message {
	return Message{ID: "m1", GuildID: "g1", ChannelID: "c1", AuthorID: "u1", Content: "hello"}
}

func TestRespondDeleteAndTimeout(t *testing.T) {
	f := newResponderFixture()
	out := f.r.Respond(context.Background(), testMessage(), Violation{
		Feature:    FeatureAntiSpam,
		Reason:     "Sending messages too fast (more than 3 in 5.0s)",
		Action:     ActionDelete,
		Punishment: PunishTimeout,
		Duration:   10 * time.Minute,
	})

	assert.True(t, out.Deleted)
	assert.False(t, out.Warned)
	assert.True(t, out.Punished)
	assert.Equal(t, 1, out.CaseNumber)
	assert.Equal(t, "notice-1", out.NoticeID)
	assert.Equal(t, []string{"delete", "dm", "timeout", "notice"}, f.gateway.ops())

	timeout, ok := f.gateway.find("timeout")
	require.True(t, ok)
	assert.Equal(t, 10*time.Minute, timeout.duration)
	assert.Contains(t, timeout.content, "AutoMod:")

	require.Len(t, f.cases.cases, 1)
	assert.Equal(t, "timeout", f.cases.cases[0].Action)
	require.Len(t, f.modLog.entries, 1)
	assert.Equal(t, "AutoMod Timeout", f.modLog.entries[0].Action)
	assert.Equal(t, 10*time.Minute, f.modLog.entries[0].Duration)
	assert.Empty(t, f.warnings.warnings)

	notice, _ := f.gateway.find("notice")
	assert.Contains(t, notice.content, "<@u1> broke the Anti-Spam rule")
	assert.Contains(t, notice.content, "timed out for 10m")
}

func TestRespondNoticeRemovedAfterTTL(t *testing.T) {
	f := newResponderFixture()
	f.r.Respond(context.Background(), testMessage(), Violation{Feature: FeatureAntiLink, Reason: "Posting links", Action: ActionWarn})

	assert.Equal(t, []string{"dm", "notice"}, f.gateway.ops())
	f.clock.Advance(4 * time.Second)
	assert.Len(t, f.gateway.ops(), 2)
	f.clock.Advance(time.Second)
	assert.Equal(t, []string{"dm", "notice", "delete"}, f.gateway.ops())
}

func TestRespondWarnOnly(t *testing.T) {
	f := newResponderFixture()
	out := f.r.Respond(context.Background(), testMessage(), Violation{
		Feature:    FeatureServerInvite,
		Reason:     "Posting server invites",
		Action:     ActionWarn,
		Punishment: PunishBan,
	})

	assert.False(t, out.Deleted)
	assert.True(t, out.Warned)
	assert.False(t, out.Punished)
	_, banned := f.gateway.find("ban")
	assert.False(t, banned)

	require.Len(t, f.warnings.warnings, 1)
	assert.Equal(t, "AutoMod: Posting server invites", f.warnings.warnings[0].Reason)
	assert.Equal(t, "bot", f.warnings.warnings[0].ModeratorID)
	require.Len(t, f.cases.cases, 1)
	assert.Equal(t, "warn", f.cases.cases[0].Action)
	require.Len(t, f.modLog.entries, 1)
	assert.Equal(t, "AutoMod Warn", f.modLog.entries[0].Action)
}

func TestRespondDeleteWarnAndKick(t *testing.T) {
	f := newResponderFixture()
	out := f.r.Respond(context.Background(), testMessage(), Violation{
		Feature:    FeatureMassMention,
		Reason:     "Too many mentions (6, max 5)",
		Action:     ActionDeleteWarn,
		Punishment: PunishKick,
	})

	assert.True(t, out.Deleted)
	assert.True(t, out.Warned)
	assert.True(t, out.Punished)
	assert.Equal(t, []string{"delete", "dm", "dm", "kick", "notice"}, f.gateway.ops())
	require.Len(t, f.cases.cases, 2)
	assert.Equal(t, "kick", f.cases.cases[1].Action)
	assert.Equal(t, 2, out.CaseNumber)
}

func TestRespondSkipsPunishmentWithoutCapability(t *testing.T) {
	f := newResponderFixture()
	f.gateway.caps = Capabilities{}
	out := f.r.Respond(context.Background(), testMessage(), Violation{
		Feature:    FeatureAntiSpam,
		Reason:     "Message too long (12 lines, max 10)",
		Action:     ActionDelete,
		Punishment: PunishTimeout,
		Duration:   time.Minute,
	})

	assert.True(t, out.Deleted)
	assert.False(t, out.Punished)
	assert.Equal(t, []string{"delete", "notice"}, f.gateway.ops())
	assert.Empty(t, f.cases.cases)
	require.Len(t, f.modLog.entries, 1)
	assert.Equal(t, "AutoMod Anti-Spam", f.modLog.entries[0].Action)
}

func TestRespondDMFailureDoesNotBlockPunishment(t *testing.T) {
	f := newResponderFixture()
	f.gateway.dmErr = errBoom
	f.gateway.delErr = errBoom
	out := f.r.Respond(context.Background(), testMessage(), Violation{
		Feature:    FeatureAntiSpam,
		Reason:     "spam",
		Action:     ActionDelete,
		Punishment: PunishBan,
	})

	assert.False(t, out.Deleted)
	assert.True(t, out.Punished)
	_, banned := f.gateway.find("ban")
	assert.True(t, banned)
}

func TestRespondPunishmentFailureIsLogged(t *testing.T) {
	f := newResponderFixture()
	f.gateway.punErr = errBoom
	out := f.r.Respond(context.Background(), testMessage(), Violation{
		Feature:    FeatureAntiLink,
		Reason:     "Posting links",
		Action:     ActionDelete,
		Punishment: PunishTimeout,
		Duration:   time.Minute,
	})

	assert.False(t, out.Punished)
	assert.Empty(t, f.cases.cases)
	require.Len(t, f.modLog.entries, 1)
	assert.Equal(t, "AutoMod Anti-Link", f.modLog.entries[0].Action)
}

func TestRespondClampsTimeout(t *testing.T) {
	f := newResponderFixture()
	f.r.Respond(context.Background(), testMessage(), Violation{
		Feature:    FeatureAntiSpam,
		Reason:     "spam",
		Action:     ActionDelete,
		Punishment: PunishTimeout,
		Duration:   60 * 24 * time.Hour,
	})
	timeout, ok := f.gateway.find("timeout")
	require.True(t, ok)
	assert.Equal(t, MaxTimeout, timeout.duration)
}

func TestRespondWarningStoreFailureKeepsOtherSteps(t *testing.T) {
	f := newResponderFixture()
	f.warnings.err = assert.AnError
	out := f.r.Respond(context.Background(), testMessage(), Violation{
		Feature: FeatureMassMention,
		Reason:  "Too many mentions (6, max 5)",
		Action:  ActionWarn,
	})

	assert.False(t, out.Warned)
	assert.Equal(t, []string{"dm", "notice"}, f.gateway.ops())
	assert.Empty(t, f.warnings.warnings)
	require.Len(t, f.cases.cases, 1)
	assert.Equal(t, "warn", f.cases.cases[0].Action)
	require.Len(t, f.modLog.entries, 1)
	assert.Equal(t, "AutoMod Warn", f.modLog.entries[0].Action)
}
