package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// FeatureConfigRecord is the stored form of one guild's feature settings.
// Nil tunables mean "use the default".
type FeatureConfigRecord struct {
	GuildID            string `db:"guild_id"`
	Feature            string `db:"feature"`
	Enabled            bool   `db:"enabled"`
	ActionType         string `db:"action_type"`
	PunishmentType     string `db:"punishment_type"`
	PunishmentDuration *int   `db:"punishment_duration"`
	MaxMessages        *int   `db:"max_messages"`
	TimeSpanMs         *int   `db:"time_span_ms"`
	MaxLines           *int   `db:"max_lines"`
	MaxMentions        *int   `db:"max_mentions"`
	UpdatedAt          int64  `db:"updated_at"`
}

const featureConfigColumns = `guild_id, feature, enabled, action_type, punishment_type, punishment_duration,
	max_messages, time_span_ms, max_lines, max_mentions, updated_at`

// GetFeatureConfig returns nil without error when the guild never configured the feature.
func (s *Store) GetFeatureConfig(ctx context.Context, guildID, feature string) (*FeatureConfigRecord, error) {
	var rec FeatureConfigRecord
	err := s.db.GetContext(ctx, &rec, s.db.Rebind(`SELECT `+featureConfigColumns+`
		FROM automod_configs WHERE guild_id = ? AND feature = ?`), guildID, feature)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (s *Store) ListFeatureConfigs(ctx context.Context, guildID string) ([]FeatureConfigRecord, error) {
	var recs []FeatureConfigRecord
	err := s.db.SelectContext(ctx, &recs, s.db.Rebind(`SELECT `+featureConfigColumns+`
		FROM automod_configs WHERE guild_id = ? ORDER BY feature`), guildID)
	return recs, err
}

func (s *Store) UpsertFeatureConfig(ctx context.Context, rec FeatureConfigRecord) error {
	if rec.UpdatedAt == 0 {
		rec.UpdatedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO automod_configs (`+featureConfigColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, feature) DO UPDATE SET
			enabled = excluded.enabled,
			action_type = excluded.action_type,
			punishment_type = excluded.punishment_type,
			punishment_duration = excluded.punishment_duration,
			max_messages = excluded.max_messages,
			time_span_ms = excluded.time_span_ms,
			max_lines = excluded.max_lines,
			max_mentions = excluded.max_mentions,
			updated_at = excluded.updated_at
	`),
		rec.GuildID,
		rec.Feature,
		rec.Enabled,
		rec.ActionType,
		rec.PunishmentType,
		rec.PunishmentDuration,
		rec.MaxMessages,
		rec.TimeSpanMs,
		rec.MaxLines,
		rec.MaxMentions,
		rec.UpdatedAt,
	)
	return err
}

type WhitelistEntry struct {
	ID         int64  `db:"id"`
	GuildID    string `db:"guild_id"`
	Feature    string `db:"feature"`
	TargetID   string `db:"target_id"`
	TargetType string `db:"target_type"`
	CreatedBy  string `db:"created_by"`
	CreatedAt  int64  `db:"created_at"`
}

const whitelistColumns = `id, guild_id, feature, target_id, target_type, created_by, created_at`

// AddWhitelist is idempotent on (guild, feature, target).
func (s *Store) AddWhitelist(ctx context.Context, entry WhitelistEntry) error {
	if entry.CreatedAt == 0 {
		entry.CreatedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO automod_whitelists (guild_id, feature, target_id, target_type, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, feature, target_id) DO UPDATE SET
			target_type = excluded.target_type,
			created_by = excluded.created_by
	`), entry.GuildID, entry.Feature, entry.TargetID, entry.TargetType, entry.CreatedBy, entry.CreatedAt)
	return err
}

func (s *Store) RemoveWhitelist(ctx context.Context, guildID, feature, targetID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		DELETE FROM automod_whitelists WHERE guild_id = ? AND feature = ? AND target_id = ?
	`), guildID, feature, targetID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Store) GetWhitelists(ctx context.Context, guildID, feature string) ([]WhitelistEntry, error) {
	var entries []WhitelistEntry
	err := s.db.SelectContext(ctx, &entries, s.db.Rebind(`SELECT `+whitelistColumns+`
		FROM automod_whitelists WHERE guild_id = ? AND feature = ? ORDER BY id`), guildID, feature)
	return entries, err
}

// GetAllWhitelists returns the entries for feature plus the guild-wide
// "global" and "all" entries.
func (s *Store) GetAllWhitelists(ctx context.Context, guildID, feature string) ([]WhitelistEntry, error) {
	var entries []WhitelistEntry
	err := s.db.SelectContext(ctx, &entries, s.db.Rebind(`SELECT `+whitelistColumns+`
		FROM automod_whitelists
		WHERE guild_id = ? AND feature IN (?, 'global', 'all')
		ORDER BY id`), guildID, feature)
	return entries, err
}

func (s *Store) ListGuildWhitelists(ctx context.Context, guildID string) ([]WhitelistEntry, error) {
	var entries []WhitelistEntry
	err := s.db.SelectContext(ctx, &entries, s.db.Rebind(`SELECT `+whitelistColumns+`
		FROM automod_whitelists WHERE guild_id = ? ORDER BY feature, id`), guildID)
	return entries, err
}
