package automod

import (
	"context"
	"fmt"
	"strings"
	"time"

	"modbot/internal/modules/audit"
	"modbot/internal/scheduler"
	"modbot/internal/storage"
	"modbot/internal/utils"

	"go.uber.org/zap"
)

const DefaultNoticeTTL = 5 * time.Second

// Capabilities reports what the bot may do to a member, as judged by the
// platform's permission and hierarchy rules.
type Capabilities struct {
	Moderatable bool
	Kickable    bool
	Bannable    bool
}

// Gateway is the moderation surface of the chat platform.
type Gateway interface {
	BotUserID() string
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	SendChannelMessage(ctx context.Context, channelID, content string) (string, error)
	SendDirectMessage(ctx context.Context, userID, content string) error
	Timeout(ctx context.Context, guildID, userID string, d time.Duration, reason string) error
	Kick(ctx context.Context, guildID, userID, reason string) error
	Ban(ctx context.Context, guildID, userID, reason string) error
	Capabilities(ctx context.Context, guildID, userID string) (Capabilities, error)
}

type WarningStore interface {
	AddWarning(ctx context.Context, w storage.Warning) (int64, error)
}

type CaseStore interface {
	CreateCase(ctx context.Context, c storage.NewCase) (int, error)
}

type ModLog interface {
	Moderation(ctx context.Context, guildID string, entry audit.ModerationEntry)
}

// Outcome summarises what a response did.
type Outcome struct {
	Deleted    bool
	Warned     bool
	Punished   bool
	CaseNumber int
	NoticeID   string
}

type Responder struct {
	gateway   Gateway
	warnings  WarningStore
	cases     CaseStore
	modLog    ModLog
	logger    *zap.Logger
	clock     scheduler.Clock
	noticeTTL time.Duration
}

func NewResponder(gateway Gateway, warnings WarningStore, cases CaseStore, modLog ModLog, logger *zap.Logger, noticeTTL time.Duration) *Responder {
	if noticeTTL <= 0 {
		noticeTTL = DefaultNoticeTTL
	}
	return &Responder{
		gateway:   gateway,
		warnings:  warnings,
		cases:     cases,
		modLog:    modLog,
		logger:    logger,
		clock:     scheduler.RealClock(),
		noticeTTL: noticeTTL,
	}
}

func (r *Responder) WithClock(clock scheduler.Clock) {
	r.clock = clock
}

// Respond carries out the violation's action: delete then punish, warn
// only, or delete, warn and punish. Failures of single steps are logged
// and never stop the remaining steps.
func (r *Responder) Respond(ctx context.Context, msg Message, v Violation) Outcome {
	log := r.logger.With(
		zap.String("guild_id", msg.GuildID),
		zap.String("user_id", msg.AuthorID),
		zap.String("feature", string(v.Feature)),
	)
	violationCount.WithLabelValues(string(v.Feature), v.Action.String()).Inc()

	var out Outcome
	if v.Action.deletes() {
		if err := r.gateway.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
			log.Debug("automod delete failed", zap.Error(err))
		} else {
			out.Deleted = true
		}
	}
	if v.Action.warns() {
		out.Warned = r.warn(ctx, log, msg, v, &out)
	}
	if v.Action.punishes() {
		r.punish(ctx, log, msg, v, &out)
	}

	out.NoticeID = r.postNotice(ctx, log, msg, v, out)
	return out
}

func (r *Responder) warn(ctx context.Context, log *zap.Logger, msg Message, v Violation, out *Outcome) bool {
	reason := "AutoMod: " + v.Reason
	stored := true
	if _, err := r.warnings.AddWarning(ctx, storage.Warning{
		GuildID:     msg.GuildID,
		UserID:      msg.AuthorID,
		ModeratorID: r.gateway.BotUserID(),
		Reason:      reason,
	}); err != nil {
		log.Warn("automod warning not recorded", zap.Error(err))
		stored = false
	}

	if err := r.gateway.SendDirectMessage(ctx, msg.AuthorID, fmt.Sprintf("You have been warned by AutoMod (%s): %s", v.Feature.Label(), v.Reason)); err != nil {
		log.Debug("automod warning dm failed", zap.Error(err))
	}

	caseNumber := r.createCase(ctx, log, msg, v, "warn", reason)
	if caseNumber > 0 {
		out.CaseNumber = caseNumber
	}
	r.modLog.Moderation(ctx, msg.GuildID, audit.ModerationEntry{
		Action:      "AutoMod Warn",
		TargetID:    msg.AuthorID,
		ModeratorID: r.gateway.BotUserID(),
		Reason:      reason,
		CaseNumber:  caseNumber,
	})
	return stored
}

func (r *Responder) punish(ctx context.Context, log *zap.Logger, msg Message, v Violation, out *Outcome) {
	reason := "AutoMod: " + v.Reason
	entry := audit.ModerationEntry{
		Action:      "AutoMod " + v.Feature.Label(),
		TargetID:    msg.AuthorID,
		ModeratorID: r.gateway.BotUserID(),
		Reason:      reason,
	}

	caps, err := r.gateway.Capabilities(ctx, msg.GuildID, msg.AuthorID)
	if err != nil {
		log.Debug("automod capability lookup failed", zap.Error(err))
	}

	duration := v.Duration
	if duration > MaxTimeout {
		duration = MaxTimeout
	}

	allowed := false
	switch v.Punishment {
	case PunishTimeout:
		allowed = caps.Moderatable && duration > 0
	case PunishKick:
		allowed = caps.Kickable
	case PunishBan:
		allowed = caps.Bannable
	}

	if !allowed {
		punishmentCount.WithLabelValues(v.Punishment.String(), "skipped").Inc()
		log.Debug("automod punishment skipped", zap.String("punishment", v.Punishment.String()))
		r.modLog.Moderation(ctx, msg.GuildID, entry)
		return
	}

	if err := r.gateway.SendDirectMessage(ctx, msg.AuthorID, punishmentNotice(v, duration)); err != nil {
		log.Debug("automod punishment dm failed", zap.Error(err))
	}

	switch v.Punishment {
	case PunishTimeout:
		err = r.gateway.Timeout(ctx, msg.GuildID, msg.AuthorID, duration, reason)
	case PunishKick:
		err = r.gateway.Kick(ctx, msg.GuildID, msg.AuthorID, reason)
	case PunishBan:
		err = r.gateway.Ban(ctx, msg.GuildID, msg.AuthorID, reason)
	}
	if err != nil {
		punishmentCount.WithLabelValues(v.Punishment.String(), "failed").Inc()
		log.Warn("automod punishment failed", zap.String("punishment", v.Punishment.String()), zap.Error(err))
		r.modLog.Moderation(ctx, msg.GuildID, entry)
		return
	}

	punishmentCount.WithLabelValues(v.Punishment.String(), "applied").Inc()
	out.Punished = true
	entry.Action = "AutoMod " + v.Punishment.Label()
	if v.Punishment == PunishTimeout {
		entry.Duration = duration
	}
	entry.CaseNumber = r.createCase(ctx, log, msg, v, v.Punishment.String(), reason)
	if entry.CaseNumber > 0 {
		out.CaseNumber = entry.CaseNumber
	}
	r.modLog.Moderation(ctx, msg.GuildID, entry)
}

func (r *Responder) createCase(ctx context.Context, log *zap.Logger, msg Message, v Violation, action, reason string) int {
	metadata := map[string]any{"feature": string(v.Feature), "automod": true}
	if action == PunishTimeout.String() {
		metadata["duration_seconds"] = int(v.Duration / time.Second)
	}
	number, err := r.cases.CreateCase(ctx, storage.NewCase{
		GuildID:     msg.GuildID,
		TargetID:    msg.AuthorID,
		ModeratorID: r.gateway.BotUserID(),
		Action:      action,
		Reason:      reason,
		Metadata:    metadata,
	})
	if err != nil {
		log.Warn("automod case not recorded", zap.String("action", action), zap.Error(err))
		return 0
	}
	return number
}

// postNotice posts the transient in-channel notice and schedules its removal.
func (r *Responder) postNotice(ctx context.Context, log *zap.Logger, msg Message, v Violation, out Outcome) string {
	content := fmt.Sprintf("<@%s> broke the %s rule: %s. Action taken: %s.", msg.AuthorID, v.Feature.Label(), v.Reason, actionSummary(v, out))
	id, err := r.gateway.SendChannelMessage(ctx, msg.ChannelID, content)
	if err != nil || id == "" {
		if err != nil {
			log.Debug("automod notice failed", zap.Error(err))
		}
		return ""
	}
	channelID := msg.ChannelID
	r.clock.AfterFunc(r.noticeTTL, func() {
		if err := r.gateway.DeleteMessage(context.Background(), channelID, id); err != nil {
			log.Debug("automod notice cleanup failed", zap.Error(err))
		}
	})
	return id
}

func actionSummary(v Violation, out Outcome) string {
	var parts []string
	if out.Deleted {
		parts = append(parts, "message deleted")
	}
	if out.Warned {
		parts = append(parts, "warned")
	}
	if out.Punished {
		switch v.Punishment {
		case PunishTimeout:
			d := v.Duration
			if d > MaxTimeout {
				d = MaxTimeout
			}
			parts = append(parts, "timed out for "+utils.FormatDuration(d))
		case PunishKick:
			parts = append(parts, "kicked")
		case PunishBan:
			parts = append(parts, "banned")
		}
	}
	if len(parts) == 0 {
		return "flagged"
	}
	return strings.Join(parts, ", ")
}

func punishmentNotice(v Violation, duration time.Duration) string {
	switch v.Punishment {
	case PunishKick:
		return fmt.Sprintf("You have been kicked by AutoMod (%s): %s", v.Feature.Label(), v.Reason)
	case PunishBan:
		return fmt.Sprintf("You have been banned by AutoMod (%s): %s", v.Feature.Label(), v.Reason)
	default:
		return fmt.Sprintf("You have been timed out for %s by AutoMod (%s): %s", utils.FormatDuration(duration), v.Feature.Label(), v.Reason)
	}
}
