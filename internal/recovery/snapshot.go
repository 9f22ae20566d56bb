package recovery

import (
	"context"
	"fmt"
	"sort"

	"modbot/internal/storage"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

type SnapshotResult struct {
	Roles    int
	Channels int
}

// Snapshot appends the guild's current roles and channels to the backup
// tables. The @everyone role and threads are left out. Earlier snapshots
// are never modified.
func (m *Manager) Snapshot(ctx context.Context, guildID string) (SnapshotResult, error) {
	guild, err := m.platform.FetchGuild(ctx, guildID)
	if err != nil {
		return SnapshotResult{}, fmt.Errorf("%w: %w", ErrGuildUnavailable, err)
	}
	createdAt := m.clock.Now().Unix()

	roles := make([]Role, 0, len(guild.Roles))
	for _, r := range guild.Roles {
		if r.ID == guildID {
			continue
		}
		roles = append(roles, r)
	}
	sort.SliceStable(roles, func(i, j int) bool { return roles[i].Position < roles[j].Position })

	channels := make([]Channel, 0, len(guild.Channels))
	for _, c := range guild.Channels {
		if c.IsThread() {
			continue
		}
		channels = append(channels, c)
	}
	sort.SliceStable(channels, func(i, j int) bool { return channels[i].Position < channels[j].Position })

	roleRows := make([]storage.RoleBackup, 0, len(roles))
	for _, r := range roles {
		roleRows = append(roleRows, storage.RoleBackup{
			GuildID:      guildID,
			RoleID:       r.ID,
			Name:         r.Name,
			Color:        r.Color,
			Position:     r.Position,
			Permissions:  r.Permissions,
			Hoist:        r.Hoist,
			Mentionable:  r.Mentionable,
			Icon:         r.Icon,
			UnicodeEmoji: r.UnicodeEmoji,
			CreatedAt:    createdAt,
		})
	}

	channelRows := make([]storage.ChannelBackup, 0, len(channels))
	for _, c := range channels {
		overwrites := c.Overwrites
		if overwrites == nil {
			overwrites = []Overwrite{}
		}
		encoded, err := json.Marshal(overwrites)
		if err != nil {
			return SnapshotResult{}, fmt.Errorf("encode overwrites of %s: %w", c.ID, err)
		}
		channelRows = append(channelRows, storage.ChannelBackup{
			GuildID:              guildID,
			ChannelID:            c.ID,
			Name:                 c.Name,
			Type:                 c.Type,
			Position:             c.Position,
			ParentID:             c.ParentID,
			Topic:                c.Topic,
			NSFW:                 c.NSFW,
			RateLimitPerUser:     c.RateLimitPerUser,
			Bitrate:              c.Bitrate,
			UserLimit:            c.UserLimit,
			PermissionOverwrites: string(encoded),
			CreatedAt:            createdAt,
		})
	}

	if err := m.store.InsertSnapshot(ctx, roleRows, channelRows); err != nil {
		return SnapshotResult{}, fmt.Errorf("store snapshot: %w", err)
	}

	snapshotRows.WithLabelValues("role").Add(float64(len(roleRows)))
	snapshotRows.WithLabelValues("channel").Add(float64(len(channelRows)))
	m.logger.Info("guild snapshot stored",
		zap.String("guild_id", guildID),
		zap.Int("roles", len(roleRows)),
		zap.Int("channels", len(channelRows)),
	)
	return SnapshotResult{Roles: len(roleRows), Channels: len(channelRows)}, nil
}
