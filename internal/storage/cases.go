package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Case is an audit record of a moderation action. Only the overturn
// columns change after creation.
type Case struct {
	ID           int64  `db:"id"`
	GuildID      string `db:"guild_id"`
	CaseNumber   int    `db:"case_number"`
	TargetID     string `db:"target_id"`
	ModeratorID  string `db:"moderator_id"`
	Action       string `db:"action"`
	Reason       string `db:"reason"`
	Metadata     string `db:"metadata"`
	CreatedAt    int64  `db:"created_at"`
	Overturned   bool   `db:"overturned"`
	OverturnedAt *int64 `db:"overturned_at"`
	OverturnedBy string `db:"overturned_by"`
}

type NewCase struct {
	GuildID     string
	TargetID    string
	ModeratorID string
	Action      string
	Reason      string
	Metadata    map[string]any
}

const caseColumns = `id, guild_id, case_number, target_id, moderator_id, action, reason, metadata,
	created_at, overturned, overturned_at, overturned_by`

const createCaseAttempts = 3

// CreateCase stores the case under the next per-guild case number and
// returns that number.
func (s *Store) CreateCase(ctx context.Context, c NewCase) (int, error) {
	metadata := []byte("{}")
	if len(c.Metadata) > 0 {
		encoded, err := json.Marshal(c.Metadata)
		if err != nil {
			return 0, fmt.Errorf("encode case metadata: %w", err)
		}
		metadata = encoded
	}

	var err error
	for attempt := 0; attempt < createCaseAttempts; attempt++ {
		var number int
		number, err = s.createCase(ctx, c, string(metadata))
		if err == nil {
			return number, nil
		}
		if !isUniqueViolation(err) {
			return 0, err
		}
	}
	return 0, err
}

func (s *Store) createCase(ctx context.Context, c NewCase, metadata string) (number int, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = tx.GetContext(ctx, &number, tx.Rebind(`
		SELECT COALESCE(MAX(case_number), 0) + 1 FROM mod_cases WHERE guild_id = ?
	`), c.GuildID); err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO mod_cases (guild_id, case_number, target_id, moderator_id, action, reason, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), c.GuildID, number, c.TargetID, c.ModeratorID, c.Action, c.Reason, metadata, time.Now().Unix())
	if err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return number, nil
}

func (s *Store) GetCase(ctx context.Context, guildID string, number int) (Case, error) {
	var c Case
	err := s.db.GetContext(ctx, &c, s.db.Rebind(`SELECT `+caseColumns+`
		FROM mod_cases WHERE guild_id = ? AND case_number = ?`), guildID, number)
	if errors.Is(err, sql.ErrNoRows) {
		return Case{}, ErrNotFound
	}
	return c, err
}

// ListCases returns the newest cases first. An empty targetID lists every target.
func (s *Store) ListCases(ctx context.Context, guildID, targetID string, limit int) ([]Case, error) {
	if limit <= 0 {
		limit = 25
	}
	query := `SELECT ` + caseColumns + ` FROM mod_cases WHERE guild_id = ?`
	args := []any{guildID}
	if targetID != "" {
		query += ` AND target_id = ?`
		args = append(args, targetID)
	}
	query += ` ORDER BY case_number DESC LIMIT ?`
	args = append(args, limit)

	var cases []Case
	err := s.db.SelectContext(ctx, &cases, s.db.Rebind(query), args...)
	return cases, err
}

func (s *Store) OverturnCase(ctx context.Context, guildID string, number int, actorID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE mod_cases SET overturned = ?, overturned_at = ?, overturned_by = ?
		WHERE guild_id = ? AND case_number = ? AND overturned = ?
	`), true, at.Unix(), actorID, guildID, number, false)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
