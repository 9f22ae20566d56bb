// Package recovery keeps append-only snapshots of a guild's roles and
// channels and replays them onto the live guild.
package recovery

import (
	"context"
	"errors"
	"time"

	"modbot/internal/modules/audit"
	"modbot/internal/scheduler"
	"modbot/internal/storage"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Permission bits that make a role critical.
const (
	PermAdministrator int64 = 1 << 3
	PermManageGuild   int64 = 1 << 5
	PermManageRoles   int64 = 1 << 28
)

const DefaultRetentionDays = 7

// ErrGuildUnavailable wraps failures to read the live guild.
var ErrGuildUnavailable = errors.New("recovery: guild unavailable")

// Channel types the snapshot treats specially.
const (
	ChannelCategory      = 4
	ChannelNewsThread    = 10
	ChannelPublicThread  = 11
	ChannelPrivateThread = 12
)

// Overwrite target types.
const (
	OverwriteRole   = 0
	OverwriteMember = 1
)

type Overwrite struct {
	ID    string `json:"id"`
	Type  int    `json:"type"`
	Allow int64  `json:"allow"`
	Deny  int64  `json:"deny"`
}

type Role struct {
	ID           string
	Name         string
	Color        int
	Position     int
	Permissions  int64
	Hoist        bool
	Mentionable  bool
	Icon         string
	UnicodeEmoji string
}

// Critical reports whether the role holds a permission that lets it
// administer the guild.
func (r Role) Critical() bool {
	return r.Permissions&(PermAdministrator|PermManageGuild|PermManageRoles) != 0
}

type Channel struct {
	ID               string
	Name             string
	Type             int
	Position         int
	ParentID         string
	Topic            string
	NSFW             bool
	RateLimitPerUser int
	Bitrate          int
	UserLimit        int
	Overwrites       []Overwrite
}

func (c Channel) IsThread() bool {
	return c.Type == ChannelNewsThread || c.Type == ChannelPublicThread || c.Type == ChannelPrivateThread
}

func (c Channel) IsCategory() bool {
	return c.Type == ChannelCategory
}

// RolePosition places a role in the guild's hierarchy. Higher positions
// rank above lower ones.
type RolePosition struct {
	ID       string
	Position int
}

// GuildState is the live structure of a guild as the platform reports it.
type GuildState struct {
	ID       string
	Name     string
	Roles    []Role
	Channels []Channel
}

// Platform is the part of the chat platform the recovery code mutates.
// CreateRole ignores Role.Position; created roles are placed afterwards
// with one ReorderRoles call. CreateChannel ignores Channel.Overwrites;
// those go through SetPermissionOverwrite one by one.
type Platform interface {
	FetchGuild(ctx context.Context, guildID string) (GuildState, error)
	CreateRole(ctx context.Context, guildID string, role Role) (string, error)
	ReorderRoles(ctx context.Context, guildID string, positions []RolePosition) error
	CreateChannel(ctx context.Context, guildID string, channel Channel) (string, error)
	SetPermissionOverwrite(ctx context.Context, channelID string, overwrite Overwrite) error
}

type Store interface {
	InsertSnapshot(ctx context.Context, roles []storage.RoleBackup, channels []storage.ChannelBackup) error
	ListRoleBackups(ctx context.Context, guildID string) ([]storage.RoleBackup, error)
	ListChannelBackups(ctx context.Context, guildID string) ([]storage.ChannelBackup, error)
	CountBackups(ctx context.Context, guildID string) (int, int, error)
	DeleteBackupsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type CaseStore interface {
	CreateCase(ctx context.Context, c storage.NewCase) (int, error)
}

type SecurityLog interface {
	Security(ctx context.Context, guildID string, report audit.SecurityReport)
}

// Manager takes snapshots, restores them and prunes old ones.
type Manager struct {
	platform Platform
	store    Store
	cases    CaseStore
	security SecurityLog
	logger   *zap.Logger
	limiter  *rate.Limiter
	clock    scheduler.Clock
}

// NewManager builds a Manager. ratePerSecond bounds platform creations
// during a restore; zero or less means unlimited.
func NewManager(platform Platform, store Store, cases CaseStore, security SecurityLog, logger *zap.Logger, ratePerSecond float64) *Manager {
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	return &Manager{
		platform: platform,
		store:    store,
		cases:    cases,
		security: security,
		logger:   logger,
		limiter:  rate.NewLimiter(limit, 1),
		clock:    scheduler.RealClock(),
	}
}

func (m *Manager) WithClock(clock scheduler.Clock) {
	m.clock = clock
}

// Cleanup deletes backup rows older than retentionDays.
func (m *Manager) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	cutoff := m.clock.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour)
	removed, err := m.store.DeleteBackupsBefore(ctx, cutoff)
	if err != nil {
		return removed, err
	}
	cleanupRows.Add(float64(removed))
	m.logger.Info("backup cleanup", zap.Int("retention_days", retentionDays), zap.Int64("removed", removed))
	return removed, nil
}
