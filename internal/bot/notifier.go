package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"modbot/internal/config"
	"modbot/internal/modules/audit"
	"modbot/internal/storage"
	"modbot/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type settingsStore interface {
	GetGuildSettings(ctx context.Context, guildID string, defaults storage.GuildSettings) (storage.GuildSettings, error)
}

// embedSender is the slice of the session the notifier posts through.
type embedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// channelNotifier renders audit entries into the guild's log channels.
type channelNotifier struct {
	cfg      config.Config
	settings settingsStore
	sender   embedSender
	logger   *zap.Logger
}

func (n *channelNotifier) NotifyModeration(ctx context.Context, guildID string, entry audit.ModerationEntry) {
	settings := n.guildSettings(ctx, guildID)
	n.send(ctx, guildID, settings.ModLogChannel, moderationEmbed(entry, n.cfg.Notifications.EmbedColors))
}

func (n *channelNotifier) NotifySecurity(ctx context.Context, guildID string, report audit.SecurityReport) {
	settings := n.guildSettings(ctx, guildID)
	n.send(ctx, guildID, settings.SecurityLogChannel, securityEmbed(report, n.cfg.Notifications.EmbedColors))
}

func (n *channelNotifier) guildSettings(ctx context.Context, guildID string) storage.GuildSettings {
	defaults := storage.GuildSettings{
		GuildID:            guildID,
		ModLogChannel:      n.cfg.DefaultModLogChannel,
		SecurityLogChannel: n.cfg.DefaultSecurityLogChannel,
	}
	settings, err := n.settings.GetGuildSettings(ctx, guildID, defaults)
	if err != nil {
		n.logger.Warn("guild settings fallback", zap.String("guild_id", guildID), zap.Error(err))
		return defaults
	}
	if settings.ModLogChannel == "" {
		settings.ModLogChannel = defaults.ModLogChannel
	}
	if settings.SecurityLogChannel == "" {
		settings.SecurityLogChannel = defaults.SecurityLogChannel
	}
	return settings
}

func (n *channelNotifier) send(ctx context.Context, guildID, channelID string, embed *discordgo.MessageEmbed) {
	if channelID == "" {
		return
	}
	if _, err := n.sender.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx)); err != nil {
		n.logger.Debug("log channel post failed", zap.String("guild_id", guildID), zap.String("channel_id", channelID), zap.Error(err))
	}
}

func moderationEmbed(entry audit.ModerationEntry, colors config.EmbedColors) *discordgo.MessageEmbed {
	moderator := "<@" + entry.ModeratorID + ">"
	if entry.ModeratorID == "" {
		moderator = "AutoMod"
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "User", Value: "<@" + entry.TargetID + ">", Inline: true},
		{Name: "Moderator", Value: moderator, Inline: true},
	}
	if entry.Duration > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Duration", Value: utils.FormatDuration(entry.Duration), Inline: true})
	}
	reason := entry.Reason
	if reason == "" {
		reason = "No reason provided"
	}
	fields = append(fields, &discordgo.MessageEmbedField{Name: "Reason", Value: reason})

	embed := &discordgo.MessageEmbed{
		Title:     entry.Action,
		Color:     colors.Action,
		Fields:    fields,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if entry.CaseNumber > 0 {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Case #%d", entry.CaseNumber)}
	}
	return embed
}

func securityEmbed(report audit.SecurityReport, colors config.EmbedColors) *discordgo.MessageEmbed {
	color := colors.Warning
	switch report.Level {
	case audit.LevelInfo:
		color = colors.Action
	case audit.LevelWarn:
		color = colors.Error
	}
	embed := &discordgo.MessageEmbed{
		Title:       report.Title,
		Description: report.Description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	for _, f := range report.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: true})
	}
	if len(report.Lines) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Details",
			Value: truncate("• "+strings.Join(report.Lines, "\n• "), 1024),
		})
	}
	return embed
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-3]) + "..."
}
