package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"modbot/internal/storage"
	"modbot/internal/utils"

	"go.uber.org/zap"
)

const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
	LevelCrit = "CRIT"
)

type Store interface {
	AddAuditLog(ctx context.Context, log storage.AuditLog) error
}

// ModerationEntry is one record for the moderation log. CaseNumber and
// Duration are zero when they do not apply.
type ModerationEntry struct {
	Action      string
	TargetID    string
	ModeratorID string
	Reason      string
	CaseNumber  int
	Duration    time.Duration
}

func (e ModerationEntry) Summary() string {
	parts := []string{"action=" + e.Action, "target=" + e.TargetID, "moderator=" + e.ModeratorID}
	if e.CaseNumber > 0 {
		parts = append(parts, fmt.Sprintf("case=%d", e.CaseNumber))
	}
	if e.Duration > 0 {
		parts = append(parts, "duration="+utils.FormatDuration(e.Duration))
	}
	if e.Reason != "" {
		parts = append(parts, "reason="+e.Reason)
	}
	return strings.Join(parts, " ")
}

type Field struct {
	Name  string
	Value string
}

// SecurityReport is rendered into the security log channel.
type SecurityReport struct {
	Level       string
	Title       string
	Description string
	Fields      []Field
	Lines       []string
}

// Notifier delivers entries to the guild's log channels.
type Notifier interface {
	NotifyModeration(ctx context.Context, guildID string, entry ModerationEntry)
	NotifySecurity(ctx context.Context, guildID string, report SecurityReport)
}

type Logger struct {
	store  Store
	logger *zap.Logger
	notify Notifier
	now    func() time.Time
}

func NewLogger(store Store, logger *zap.Logger) *Logger {
	return &Logger{store: store, logger: logger, now: time.Now}
}

func (l *Logger) SetNotifier(notify Notifier) {
	l.notify = notify
}

// Log persists an audit row and writes it to the process log.
func (l *Logger) Log(ctx context.Context, level, guildID, userID, event, details string) {
	entry := storage.AuditLog{
		GuildID:   guildID,
		UserID:    userID,
		Level:     level,
		Event:     event,
		Details:   details,
		CreatedAt: l.now(),
	}
	if l.store != nil {
		if err := l.store.AddAuditLog(ctx, entry); err != nil {
			l.logger.Warn("audit persist failed", zap.String("guild_id", guildID), zap.String("event", event), zap.Error(err))
		}
	}
	l.logger.Info("audit", zap.String("level", level), zap.String("guild_id", guildID), zap.String("user_id", userID), zap.String("event", event), zap.String("details", details))
}

func (l *Logger) Moderation(ctx context.Context, guildID string, entry ModerationEntry) {
	l.Log(ctx, LevelWarn, guildID, entry.TargetID, ModerationEvent(entry.Action), entry.Summary())
	if l.notify != nil {
		l.notify.NotifyModeration(ctx, guildID, entry)
	}
}

func (l *Logger) Security(ctx context.Context, guildID string, report SecurityReport) {
	level := report.Level
	if level == "" {
		level = LevelCrit
	}
	details := report.Title
	if report.Description != "" {
		details += ": " + report.Description
	}
	if len(report.Lines) > 0 {
		details += " | " + strings.Join(report.Lines, " | ")
	}
	l.Log(ctx, level, guildID, "", "security", details)
	if l.notify != nil {
		l.notify.NotifySecurity(ctx, guildID, report)
	}
}

// ModerationEvent maps an action label such as "AutoMod Timeout" to the
// audit event name "moderation_automod_timeout".
func ModerationEvent(action string) string {
	slug := strings.ToLower(strings.Join(strings.Fields(action), "_"))
	if slug == "" {
		slug = "unknown"
	}
	return "moderation_" + slug
}
