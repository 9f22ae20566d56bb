package automod

import (
	"context"
	"time"

	"modbot/internal/storage"
)

type WhitelistStore interface {
	GetAllWhitelists(ctx context.Context, guildID, feature string) ([]storage.WhitelistEntry, error)
	ListGuildWhitelists(ctx context.Context, guildID string) ([]storage.WhitelistEntry, error)
	AddWhitelist(ctx context.Context, entry storage.WhitelistEntry) error
	RemoveWhitelist(ctx context.Context, guildID, feature, targetID string) (bool, error)
}

// Subject is who posted a message and where.
type Subject struct {
	GuildID       string
	GuildOwnerID  string
	AuthorID      string
	AuthorRoleIDs []string
	ChannelID     string
}

func SubjectOf(msg Message) Subject {
	return Subject{
		GuildID:       msg.GuildID,
		GuildOwnerID:  msg.GuildOwnerID,
		AuthorID:      msg.AuthorID,
		AuthorRoleIDs: msg.AuthorRoleIDs,
		ChannelID:     msg.ChannelID,
	}
}

type whitelistSet struct {
	users    map[string]struct{}
	roles    map[string]struct{}
	channels map[string]struct{}
}

func buildWhitelistSet(entries []storage.WhitelistEntry) *whitelistSet {
	set := &whitelistSet{
		users:    make(map[string]struct{}),
		roles:    make(map[string]struct{}),
		channels: make(map[string]struct{}),
	}
	for _, entry := range entries {
		switch TargetType(entry.TargetType) {
		case TargetUser:
			set.users[entry.TargetID] = struct{}{}
		case TargetRole:
			set.roles[entry.TargetID] = struct{}{}
		case TargetChannel:
			set.channels[entry.TargetID] = struct{}{}
		}
	}
	return set
}

// Resolver decides whether a message author is exempt from a feature.
type Resolver struct {
	store WhitelistStore
	cache *guildCache[*whitelistSet]
}

func NewResolver(store WhitelistStore, cacheSize int, cacheTTL time.Duration) *Resolver {
	return &Resolver{
		store: store,
		cache: newGuildCache[*whitelistSet](cacheSize, cacheTTL),
	}
}

// IsExempt checks, in order: guild owner, whitelisted user, whitelisted
// role, whitelisted channel. Entries under the global scopes count for
// every feature. Administrators get no implicit exemption.
func (r *Resolver) IsExempt(ctx context.Context, feature Feature, subject Subject) (bool, error) {
	if subject.GuildOwnerID != "" && subject.AuthorID == subject.GuildOwnerID {
		return true, nil
	}

	set, err := r.cache.get(ctx, subject.GuildID, string(feature), func(ctx context.Context) (*whitelistSet, error) {
		entries, err := r.store.GetAllWhitelists(ctx, subject.GuildID, string(feature))
		if err != nil {
			return nil, err
		}
		return buildWhitelistSet(entries), nil
	})
	if err != nil {
		return false, err
	}

	if _, ok := set.users[subject.AuthorID]; ok {
		return true, nil
	}
	for _, roleID := range subject.AuthorRoleIDs {
		if _, ok := set.roles[roleID]; ok {
			return true, nil
		}
	}
	if _, ok := set.channels[subject.ChannelID]; ok {
		return true, nil
	}
	return false, nil
}

func (r *Resolver) Add(ctx context.Context, entry storage.WhitelistEntry) error {
	if err := r.store.AddWhitelist(ctx, entry); err != nil {
		return err
	}
	r.Invalidate(entry.GuildID)
	return nil
}

func (r *Resolver) Remove(ctx context.Context, guildID, scope, targetID string) (bool, error) {
	removed, err := r.store.RemoveWhitelist(ctx, guildID, scope, targetID)
	if err != nil {
		return false, err
	}
	r.Invalidate(guildID)
	return removed, nil
}

func (r *Resolver) List(ctx context.Context, guildID string) ([]storage.WhitelistEntry, error) {
	return r.store.ListGuildWhitelists(ctx, guildID)
}

// Invalidate drops every cached feature set of the guild. A change to a
// global scope affects all of them.
func (r *Resolver) Invalidate(guildID string) {
	names := make([]string, 0, len(Features))
	for _, f := range Features {
		names = append(names, string(f))
	}
	r.cache.invalidate(guildID, names...)
}
