package storage

import (
	"context"
	"time"
)

type Warning struct {
	ID          int64  `db:"id"`
	GuildID     string `db:"guild_id"`
	UserID      string `db:"user_id"`
	ModeratorID string `db:"moderator_id"`
	Reason      string `db:"reason"`
	CreatedAt   int64  `db:"created_at"`
}

func (s *Store) AddWarning(ctx context.Context, w Warning) (int64, error) {
	if w.CreatedAt == 0 {
		w.CreatedAt = time.Now().Unix()
	}
	var id int64
	err := s.db.GetContext(ctx, &id, s.db.Rebind(`
		INSERT INTO warnings (guild_id, user_id, moderator_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`), w.GuildID, w.UserID, w.ModeratorID, w.Reason, w.CreatedAt)
	return id, err
}

func (s *Store) CountWarnings(ctx context.Context, guildID, userID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, s.db.Rebind(`
		SELECT COUNT(*) FROM warnings WHERE guild_id = ? AND user_id = ?
	`), guildID, userID)
	return count, err
}

func (s *Store) ListWarnings(ctx context.Context, guildID, userID string) ([]Warning, error) {
	var warnings []Warning
	err := s.db.SelectContext(ctx, &warnings, s.db.Rebind(`
		SELECT id, guild_id, user_id, moderator_id, reason, created_at
		FROM warnings WHERE guild_id = ? AND user_id = ?
		ORDER BY created_at DESC, id DESC
	`), guildID, userID)
	return warnings, err
}
