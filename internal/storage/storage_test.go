package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.Migrate())
	return store
}

func intPtr(v int) *int { return &v }

func TestMigrateIsRepeatable(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Migrate())
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := New("mysql", "")
	assert.Error(t, err)
}

func TestUpsertGuildSettings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	settings := GuildSettings{GuildID: "g1", ModLogChannel: "m1", SecurityLogChannel: "c1"}
	require.NoError(t, store.UpsertGuildSettings(ctx, settings))

	settings.SecurityLogChannel = "c2"
	require.NoError(t, store.UpsertGuildSettings(ctx, settings))

	got, err := store.GetGuildSettings(ctx, "g1", GuildSettings{})
	require.NoError(t, err)
	assert.Equal(t, "c2", got.SecurityLogChannel)
	assert.Equal(t, "m1", got.ModLogChannel)

	fallback, err := store.GetGuildSettings(ctx, "missing", GuildSettings{ModLogChannel: "default"})
	require.NoError(t, err)
	assert.Equal(t, "missing", fallback.GuildID)
	assert.Equal(t, "default", fallback.ModLogChannel)
}

func TestFeatureConfigAbsentAndUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := store.GetFeatureConfig(ctx, "g1", "anti_spam")
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.NoError(t, store.UpsertFeatureConfig(ctx, FeatureConfigRecord{
		GuildID: "g1", Feature: "anti_spam", Enabled: true, ActionType: "delete", MaxMessages: intPtr(3),
	}))
	require.NoError(t, store.UpsertFeatureConfig(ctx, FeatureConfigRecord{
		GuildID: "g1", Feature: "anti_spam", Enabled: false, ActionType: "warn", MaxMessages: intPtr(4),
	}))

	rec, err = store.GetFeatureConfig(ctx, "g1", "anti_spam")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.False(t, rec.Enabled)
	assert.Equal(t, "warn", rec.ActionType)
	require.NotNil(t, rec.MaxMessages)
	assert.Equal(t, 4, *rec.MaxMessages)
	assert.Nil(t, rec.TimeSpanMs)

	all, err := store.ListFeatureConfigs(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestWhitelistUpsertAndUnion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := WhitelistEntry{GuildID: "g1", Feature: "anti_link", TargetID: "u1", TargetType: "user", CreatedBy: "mod"}
	require.NoError(t, store.AddWhitelist(ctx, entry))
	require.NoError(t, store.AddWhitelist(ctx, entry))
	require.NoError(t, store.AddWhitelist(ctx, WhitelistEntry{GuildID: "g1", Feature: "global", TargetID: "r1", TargetType: "role"}))
	require.NoError(t, store.AddWhitelist(ctx, WhitelistEntry{GuildID: "g1", Feature: "all", TargetID: "c1", TargetType: "channel"}))
	require.NoError(t, store.AddWhitelist(ctx, WhitelistEntry{GuildID: "g1", Feature: "anti_spam", TargetID: "u2", TargetType: "user"}))

	own, err := store.GetWhitelists(ctx, "g1", "anti_link")
	require.NoError(t, err)
	assert.Len(t, own, 1)

	union, err := store.GetAllWhitelists(ctx, "g1", "anti_link")
	require.NoError(t, err)
	targets := make([]string, 0, len(union))
	for _, e := range union {
		targets = append(targets, e.TargetID)
	}
	assert.ElementsMatch(t, []string{"u1", "r1", "c1"}, targets)

	removed, err := store.RemoveWhitelist(ctx, "g1", "anti_link", "u1")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = store.RemoveWhitelist(ctx, "g1", "anti_link", "u1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestCaseNumbersArePerGuild(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.CreateCase(ctx, NewCase{GuildID: "g1", TargetID: "u1", ModeratorID: "bot", Action: "timeout", Metadata: map[string]any{"feature": "anti_spam"}})
	require.NoError(t, err)
	second, err := store.CreateCase(ctx, NewCase{GuildID: "g1", TargetID: "u2", ModeratorID: "bot", Action: "kick"})
	require.NoError(t, err)
	other, err := store.CreateCase(ctx, NewCase{GuildID: "g2", TargetID: "u1", ModeratorID: "bot", Action: "ban"})
	require.NoError(t, err)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
	assert.Equal(t, 1, other)

	c, err := store.GetCase(ctx, "g1", 1)
	require.NoError(t, err)
	assert.JSONEq(t, `{"feature":"anti_spam"}`, c.Metadata)
	assert.False(t, c.Overturned)

	require.NoError(t, store.OverturnCase(ctx, "g1", 1, "admin", time.Unix(100, 0)))
	c, err = store.GetCase(ctx, "g1", 1)
	require.NoError(t, err)
	assert.True(t, c.Overturned)
	assert.Equal(t, "admin", c.OverturnedBy)
	require.NotNil(t, c.OverturnedAt)
	assert.Equal(t, int64(100), *c.OverturnedAt)

	assert.ErrorIs(t, store.OverturnCase(ctx, "g1", 1, "admin", time.Now()), ErrNotFound)
	_, err = store.GetCase(ctx, "g1", 42)
	assert.ErrorIs(t, err, ErrNotFound)

	cases, err := store.ListCases(ctx, "g1", "", 10)
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, 2, cases[0].CaseNumber)
}

func TestWarnings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddWarning(ctx, Warning{GuildID: "g1", UserID: "u1", ModeratorID: "bot", Reason: "AutoMod: spam"})
	require.NoError(t, err)
	_, err = store.AddWarning(ctx, Warning{GuildID: "g1", UserID: "u1", ModeratorID: "bot", Reason: "AutoMod: links"})
	require.NoError(t, err)

	count, err := store.CountWarnings(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	list, err := store.ListWarnings(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestSnapshotsAppendAndCleanup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := time.Now().AddDate(0, 0, -10).Unix()
	recent := time.Now().Unix()

	require.NoError(t, store.InsertSnapshot(ctx,
		[]RoleBackup{{GuildID: "g1", RoleID: "r1", Name: "Mods", Position: 1, CreatedAt: old}},
		[]ChannelBackup{{GuildID: "g1", ChannelID: "c1", Name: "general", CreatedAt: old}},
	))
	require.NoError(t, store.InsertSnapshot(ctx,
		[]RoleBackup{{GuildID: "g1", RoleID: "r1", Name: "Moderators", Position: 2, CreatedAt: recent}},
		[]ChannelBackup{{GuildID: "g1", ChannelID: "c1", Name: "chat", CreatedAt: recent, PermissionOverwrites: `[{"id":"r1"}]`}},
	))

	roles, channels, err := store.CountBackups(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 2, roles)
	assert.Equal(t, 2, channels)

	roleRows, err := store.ListRoleBackups(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, roleRows, 2)
	assert.Equal(t, "Moderators", roleRows[0].Name)

	channelRows, err := store.ListChannelBackups(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, channelRows, 2)
	assert.Equal(t, "chat", channelRows[0].Name)
	assert.Equal(t, "[]", channelRows[1].PermissionOverwrites)

	deleted, err := store.DeleteBackupsBefore(ctx, time.Now().AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	roles, channels, err = store.CountBackups(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 1, roles)
	assert.Equal(t, 1, channels)
}

func TestAuditLogs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddAuditLog(ctx, AuditLog{GuildID: "g1", Level: "WARN", Event: "automod_anti_spam", CreatedAt: time.Now()}))
	require.NoError(t, store.AddAuditLog(ctx, AuditLog{GuildID: "g1", Level: "INFO", Event: "old", CreatedAt: time.Now().AddDate(0, 0, -30)}))

	logs, err := store.ListAuditLogs(ctx, "g1", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "automod_anti_spam", logs[0].Event)

	require.NoError(t, store.CleanupAuditLogs(ctx, 7))
	logs, err = store.ListAuditLogs(ctx, "g1", time.Unix(0, 0))
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}
