package storage

import (
	"context"
	"time"
)

type RoleBackup struct {
	ID           int64  `db:"id"`
	GuildID      string `db:"guild_id"`
	RoleID       string `db:"role_id"`
	Name         string `db:"name"`
	Color        int    `db:"color"`
	Position     int    `db:"position"`
	Permissions  int64  `db:"permissions"`
	Hoist        bool   `db:"hoist"`
	Mentionable  bool   `db:"mentionable"`
	Icon         string `db:"icon"`
	UnicodeEmoji string `db:"unicode_emoji"`
	CreatedAt    int64  `db:"created_at"`
}

// ChannelBackup keeps permission overwrites as a JSON document.
type ChannelBackup struct {
	ID                   int64  `db:"id"`
	GuildID              string `db:"guild_id"`
	ChannelID            string `db:"channel_id"`
	Name                 string `db:"name"`
	Type                 int    `db:"type"`
	Position             int    `db:"position"`
	ParentID             string `db:"parent_id"`
	Topic                string `db:"topic"`
	NSFW                 bool   `db:"nsfw"`
	RateLimitPerUser     int    `db:"rate_limit_per_user"`
	Bitrate              int    `db:"bitrate"`
	UserLimit            int    `db:"user_limit"`
	PermissionOverwrites string `db:"permission_overwrites"`
	CreatedAt            int64  `db:"created_at"`
}

const roleBackupColumns = `id, guild_id, role_id, name, color, position, permissions, hoist, mentionable,
	icon, unicode_emoji, created_at`

const channelBackupColumns = `id, guild_id, channel_id, name, type, position, parent_id, topic, nsfw,
	rate_limit_per_user, bitrate, user_limit, permission_overwrites, created_at`

// InsertSnapshot appends one snapshot worth of rows. Existing rows are never touched.
func (s *Store) InsertSnapshot(ctx context.Context, roles []RoleBackup, channels []ChannelBackup) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	roleStmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO role_backups (guild_id, role_id, name, color, position, permissions, hoist, mentionable,
			icon, unicode_emoji, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`))
	if err != nil {
		return err
	}
	defer roleStmt.Close()
	for _, r := range roles {
		if _, err = roleStmt.ExecContext(ctx, r.GuildID, r.RoleID, r.Name, r.Color, r.Position, r.Permissions,
			r.Hoist, r.Mentionable, r.Icon, r.UnicodeEmoji, r.CreatedAt); err != nil {
			return err
		}
	}

	channelStmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO channel_backups (guild_id, channel_id, name, type, position, parent_id, topic, nsfw,
			rate_limit_per_user, bitrate, user_limit, permission_overwrites, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`))
	if err != nil {
		return err
	}
	defer channelStmt.Close()
	for _, c := range channels {
		overwrites := c.PermissionOverwrites
		if overwrites == "" {
			overwrites = "[]"
		}
		if _, err = channelStmt.ExecContext(ctx, c.GuildID, c.ChannelID, c.Name, c.Type, c.Position, c.ParentID,
			c.Topic, c.NSFW, c.RateLimitPerUser, c.Bitrate, c.UserLimit, overwrites, c.CreatedAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListRoleBackups returns every stored row for the guild, newest first.
func (s *Store) ListRoleBackups(ctx context.Context, guildID string) ([]RoleBackup, error) {
	var rows []RoleBackup
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`SELECT `+roleBackupColumns+`
		FROM role_backups WHERE guild_id = ? ORDER BY created_at DESC, id DESC`), guildID)
	return rows, err
}

// ListChannelBackups returns every stored row for the guild, newest first.
func (s *Store) ListChannelBackups(ctx context.Context, guildID string) ([]ChannelBackup, error) {
	var rows []ChannelBackup
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`SELECT `+channelBackupColumns+`
		FROM channel_backups WHERE guild_id = ? ORDER BY created_at DESC, id DESC`), guildID)
	return rows, err
}

func (s *Store) CountBackups(ctx context.Context, guildID string) (roles int, channels int, err error) {
	if err = s.db.GetContext(ctx, &roles, s.db.Rebind(`SELECT COUNT(*) FROM role_backups WHERE guild_id = ?`), guildID); err != nil {
		return 0, 0, err
	}
	if err = s.db.GetContext(ctx, &channels, s.db.Rebind(`SELECT COUNT(*) FROM channel_backups WHERE guild_id = ?`), guildID); err != nil {
		return 0, 0, err
	}
	return roles, channels, nil
}

// DeleteBackupsBefore removes role and channel rows created before cutoff
// and reports how many rows went.
func (s *Store) DeleteBackupsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	for _, table := range []string{"role_backups", "channel_backups"} {
		res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM `+table+` WHERE created_at < ?`), cutoff.Unix())
		if err != nil {
			return total, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
