package automod

import (
	"context"
	"testing"
	"time"

	"modbot/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subject() Subject {
	return Subject{
		GuildID:       "g1",
		GuildOwnerID:  "owner",
		AuthorID:      "u1",
		AuthorRoleIDs: []string{"r1", "r2"},
		ChannelID:     "c1",
	}
}

func TestOwnerIsAlwaysExempt(t *testing.T) {
	store := &memWhitelistStore{err: errBoom}
	resolver := NewResolver(store, 0, time.Minute)

	s := subject()
	s.AuthorID = "owner"
	exempt, err := resolver.IsExempt(context.Background(), FeatureAntiSpam, s)
	require.NoError(t, err)
	assert.True(t, exempt)
	assert.Equal(t, 0, store.loads)
}

func TestGlobalEntryExemptsEveryFeature(t *testing.T) {
	ctx := context.Background()
	for _, target := range []storage.WhitelistEntry{
		{GuildID: "g1", Feature: ScopeGlobal, TargetID: "u1", TargetType: "user"},
		{GuildID: "g1", Feature: ScopeAll, TargetID: "r2", TargetType: "role"},
		{GuildID: "g1", Feature: ScopeGlobal, TargetID: "c1", TargetType: "channel"},
	} {
		store := &memWhitelistStore{entries: []storage.WhitelistEntry{target}}
		resolver := NewResolver(store, 0, time.Minute)
		for _, feature := range Features {
			exempt, err := resolver.IsExempt(ctx, feature, subject())
			require.NoError(t, err)
			assert.True(t, exempt, "%s via %s", feature, target.TargetType)
		}
	}
}

func TestFeatureEntryOnlyCoversItsFeature(t *testing.T) {
	ctx := context.Background()
	store := &memWhitelistStore{entries: []storage.WhitelistEntry{
		{GuildID: "g1", Feature: string(FeatureAntiLink), TargetID: "u1", TargetType: "user"},
	}}
	resolver := NewResolver(store, 0, time.Minute)

	exempt, err := resolver.IsExempt(ctx, FeatureAntiLink, subject())
	require.NoError(t, err)
	assert.True(t, exempt)

	exempt, err = resolver.IsExempt(ctx, FeatureAntiSpam, subject())
	require.NoError(t, err)
	assert.False(t, exempt)
}

func TestAdministratorIsNotExempt(t *testing.T) {
	resolver := NewResolver(&memWhitelistStore{}, 0, time.Minute)
	s := subject()
	s.AuthorRoleIDs = []string{"admin-role"}
	exempt, err := resolver.IsExempt(context.Background(), FeatureAntiSpam, s)
	require.NoError(t, err)
	assert.False(t, exempt)
}

func TestResolverCachesAndInvalidates(t *testing.T) {
	ctx := context.Background()
	store := &memWhitelistStore{}
	resolver := NewResolver(store, 0, time.Minute)

	for i := 0; i < 3; i++ {
		exempt, err := resolver.IsExempt(ctx, FeatureAntiSpam, subject())
		require.NoError(t, err)
		assert.False(t, exempt)
	}
	assert.Equal(t, 1, store.loads)

	require.NoError(t, resolver.Add(ctx, storage.WhitelistEntry{GuildID: "g1", Feature: ScopeGlobal, TargetID: "u1", TargetType: "user"}))
	exempt, err := resolver.IsExempt(ctx, FeatureAntiSpam, subject())
	require.NoError(t, err)
	assert.True(t, exempt)
	assert.Equal(t, 2, store.loads)

	removed, err := resolver.Remove(ctx, "g1", ScopeGlobal, "u1")
	require.NoError(t, err)
	assert.True(t, removed)
	exempt, err = resolver.IsExempt(ctx, FeatureAntiSpam, subject())
	require.NoError(t, err)
	assert.False(t, exempt)

	entries, err := resolver.List(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResolverPropagatesStoreErrors(t *testing.T) {
	resolver := NewResolver(&memWhitelistStore{err: errBoom}, 0, time.Minute)
	_, err := resolver.IsExempt(context.Background(), FeatureAntiSpam, subject())
	assert.ErrorIs(t, err, errBoom)
}
