package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"modbot/internal/analytics"
	"modbot/internal/automod"
	"modbot/internal/modules/audit"
	"modbot/internal/recovery"
	"modbot/internal/scheduler"
	"modbot/internal/storage"
	"modbot/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type optionMap map[string]*discordgo.ApplicationCommandInteractionDataOption

func toOptionMap(options []*discordgo.ApplicationCommandInteractionDataOption) optionMap {
	out := make(optionMap, len(options))
	for _, opt := range options {
		out[opt.Name] = opt
	}
	return out
}

func (m optionMap) stringValue(name string) string {
	if opt, ok := m[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func (m optionMap) intValue(name string) (int, bool) {
	if opt, ok := m[name]; ok {
		return int(opt.IntValue()), true
	}
	return 0, false
}

func (m optionMap) intPtr(name string) *int {
	if v, ok := m.intValue(name); ok {
		return &v
	}
	return nil
}

// id returns the snowflake of a user, role or channel option.
func (m optionMap) id(name string) string {
	if opt, ok := m[name]; ok {
		if id, ok := opt.Value.(string); ok {
			return id
		}
	}
	return ""
}

// whitelistTarget picks the first of user, role or channel that was given.
func whitelistTarget(m optionMap) (string, automod.TargetType, bool) {
	if id := m.id("user"); id != "" {
		return id, automod.TargetUser, true
	}
	if id := m.id("role"); id != "" {
		return id, automod.TargetRole, true
	}
	if id := m.id("channel"); id != "" {
		return id, automod.TargetChannel, true
	}
	return "", "", false
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if interaction.GuildID == "" || interaction.Member == nil || interaction.Member.User == nil {
		b.respondError(session, interaction, "This command only works in a server.")
		return
	}
	if interaction.Member.Permissions&discordgo.PermissionManageGuild == 0 {
		b.respondError(session, interaction, "You need the Manage Server permission.")
		return
	}

	ctx := context.Background()
	data := interaction.ApplicationCommandData()
	switch data.Name {
	case "automod":
		b.handleAutoMod(ctx, session, interaction, data.Options)
	case "whitelist":
		b.handleWhitelist(ctx, session, interaction, data.Options)
	case "recovery":
		b.handleRecovery(ctx, session, interaction, data.Options)
	case "logs":
		b.handleLogs(ctx, session, interaction, data.Options)
	case "tempban":
		b.handleTempban(ctx, session, interaction, toOptionMap(data.Options))
	case "unban":
		b.handleUnban(ctx, session, interaction, toOptionMap(data.Options))
	case "case":
		b.handleCase(ctx, session, interaction, data.Options)
	case "warnings":
		b.handleWarnings(ctx, session, interaction, toOptionMap(data.Options))
	}
}

func subcommandOf(options []*discordgo.ApplicationCommandInteractionDataOption) (string, optionMap) {
	if len(options) == 0 {
		return "", optionMap{}
	}
	return options[0].Name, toOptionMap(options[0].Options)
}

func (b *Bot) handleAutoMod(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	guildID := interaction.GuildID
	name, opts := subcommandOf(options)

	var feature automod.Feature
	if raw := opts.stringValue("feature"); raw != "" {
		parsed, ok := automod.ParseFeature(raw)
		if !ok {
			b.respondError(session, interaction, "Unknown feature.")
			return
		}
		feature = parsed
	}

	var err error
	switch name {
	case "enable":
		err = b.configs.Enable(ctx, guildID, feature)
	case "disable":
		err = b.configs.Disable(ctx, guildID, feature)
	case "setup":
		err = b.configs.SetupAll(ctx, guildID)
	case "limits":
		err = b.configs.SetLimits(ctx, guildID, feature, automod.Limits{
			MaxMessages: opts.intPtr("max_messages"),
			TimeSpanMs:  opts.intPtr("time_span_ms"),
			MaxLines:    opts.intPtr("max_lines"),
			MaxMentions: opts.intPtr("max_mentions"),
		})
	case "action":
		err = b.configs.SetAction(ctx, guildID, feature,
			automod.ParseActionType(opts.stringValue("action")),
			automod.ParsePunishmentType(opts.stringValue("punishment")),
			opts.intPtr("duration_seconds"),
		)
	case "status":
		b.automodStatus(ctx, session, interaction)
		return
	case "report":
		b.automodReport(ctx, session, interaction, opts.stringValue("period"))
		return
	default:
		b.respondError(session, interaction, "Unknown subcommand.")
		return
	}
	if err != nil {
		b.logger.Warn("automod update failed", zap.String("guild_id", guildID), zap.String("subcommand", name), zap.Error(err))
		b.respondError(session, interaction, "Could not save the AutoMod settings.")
		return
	}

	desc := "AutoMod updated."
	if feature != "" {
		desc = fmt.Sprintf("%s updated.", feature.Label())
	}
	b.audit.Log(ctx, audit.LevelInfo, guildID, interaction.Member.User.ID, "automod_"+name, string(feature))
	b.respondEmbed(session, interaction, b.commandEmbed("AutoMod", desc, b.cfg.Notifications.EmbedColors.Action, nil), true)
}

func (b *Bot) automodStatus(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	fields := make([]*discordgo.MessageEmbedField, 0, len(automod.Features))
	for _, feature := range automod.Features {
		cfg, err := b.configs.Effective(ctx, interaction.GuildID, feature)
		if err != nil {
			b.respondError(session, interaction, "Could not load the AutoMod settings.")
			return
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: feature.Label(), Value: featureStatus(cfg)})
	}
	b.respondEmbed(session, interaction, b.commandEmbed("AutoMod status", "", b.cfg.Notifications.EmbedColors.Action, fields), true)
}

func featureStatus(cfg automod.FeatureConfig) string {
	state := "disabled"
	if cfg.Enabled {
		state = "enabled"
	}
	lines := []string{
		"State: " + state,
		"Action: " + cfg.Action.String() + ", " + cfg.Punishment.String(),
	}
	if cfg.Punishment == automod.PunishTimeout {
		lines = append(lines, "Timeout: "+utils.FormatDuration(cfg.PunishmentDuration))
	}
	switch cfg.Feature {
	case automod.FeatureAntiSpam:
		lines = append(lines,
			fmt.Sprintf("Limit: %d messages in %.1fs", cfg.MaxMessages, cfg.TimeSpan.Seconds()),
			fmt.Sprintf("Max lines: %d", cfg.MaxLines),
		)
	case automod.FeatureMassMention:
		lines = append(lines, fmt.Sprintf("Max mentions: %d", cfg.MaxMentions))
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) automodReport(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, period string) {
	since, err := b.analytics.PeriodStart(period)
	if err != nil {
		b.respondError(session, interaction, "Unknown period.")
		return
	}
	report, err := b.analytics.Report(ctx, interaction.GuildID, since)
	if err != nil {
		b.respondError(session, interaction, "Could not build the report.")
		return
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Moderation report", formatReport(report), b.cfg.Notifications.EmbedColors.Action, nil), true)
}

func formatReport(report analytics.Report) string {
	lines := []string{
		fmt.Sprintf("Total: %d | INFO: %d | WARN: %d | CRIT: %d", report.Total, report.ByLevel[audit.LevelInfo], report.ByLevel[audit.LevelWarn], report.ByLevel[audit.LevelCrit]),
		fmt.Sprintf("AutoMod actions: %d", report.AutoMod),
	}
	for _, ec := range report.TopEvents(5) {
		lines = append(lines, fmt.Sprintf("%s: %d", ec.Event, ec.Count))
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) handleWhitelist(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	guildID := interaction.GuildID
	name, opts := subcommandOf(options)

	if name == "list" {
		entries, err := b.whitelist.List(ctx, guildID)
		if err != nil {
			b.respondError(session, interaction, "Could not load the whitelist.")
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Whitelist", whitelistLines(entries), b.cfg.Notifications.EmbedColors.Action, nil), true)
		return
	}

	scope, ok := automod.ParseWhitelistScope(opts.stringValue("scope"))
	if !ok {
		b.respondError(session, interaction, "Unknown scope.")
		return
	}
	targetID, targetType, ok := whitelistTarget(opts)
	if !ok {
		b.respondError(session, interaction, "Pick a user, role or channel.")
		return
	}

	switch name {
	case "add":
		err := b.whitelist.Add(ctx, storage.WhitelistEntry{
			GuildID:    guildID,
			Feature:    scope,
			TargetID:   targetID,
			TargetType: string(targetType),
			CreatedBy:  interaction.Member.User.ID,
		})
		if err != nil {
			b.logger.Warn("whitelist add failed", zap.String("guild_id", guildID), zap.Error(err))
			b.respondError(session, interaction, "Could not update the whitelist.")
			return
		}
		b.audit.Log(ctx, audit.LevelInfo, guildID, interaction.Member.User.ID, "whitelist_add", scope+" "+string(targetType)+" "+targetID)
		b.respondEmbed(session, interaction, b.commandEmbed("Whitelist", fmt.Sprintf("%s is now exempt from %s.", mention(targetType, targetID), scope), b.cfg.Notifications.EmbedColors.Action, nil), true)
	case "remove":
		removed, err := b.whitelist.Remove(ctx, guildID, scope, targetID)
		if err != nil {
			b.respondError(session, interaction, "Could not update the whitelist.")
			return
		}
		if !removed {
			b.respondError(session, interaction, "No such whitelist entry.")
			return
		}
		b.audit.Log(ctx, audit.LevelInfo, guildID, interaction.Member.User.ID, "whitelist_remove", scope+" "+string(targetType)+" "+targetID)
		b.respondEmbed(session, interaction, b.commandEmbed("Whitelist", fmt.Sprintf("%s is no longer exempt from %s.", mention(targetType, targetID), scope), b.cfg.Notifications.EmbedColors.Action, nil), true)
	default:
		b.respondError(session, interaction, "Unknown subcommand.")
	}
}

func mention(kind automod.TargetType, id string) string {
	switch kind {
	case automod.TargetRole:
		return "<@&" + id + ">"
	case automod.TargetChannel:
		return "<#" + id + ">"
	default:
		return "<@" + id + ">"
	}
}

func whitelistLines(entries []storage.WhitelistEntry) string {
	if len(entries) == 0 {
		return "No exemptions."
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s: %s", e.Feature, mention(automod.TargetType(e.TargetType), e.TargetID)))
	}
	return truncate(strings.Join(lines, "\n"), 4000)
}

func (b *Bot) handleRecovery(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	guildID := interaction.GuildID
	name, opts := subcommandOf(options)
	colors := b.cfg.Notifications.EmbedColors

	switch name {
	case "preview":
		res := b.recovery.Restore(ctx, recovery.Request{GuildID: guildID, Preview: true})
		if !res.Success {
			b.respondError(session, interaction, "Could not count backups.")
			return
		}
		fields := []*discordgo.MessageEmbedField{
			{Name: "Role rows", Value: fmt.Sprintf("%d", res.RoleBackups), Inline: true},
			{Name: "Channel rows", Value: fmt.Sprintf("%d", res.ChannelBackups), Inline: true},
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Backup preview", "", colors.Action, fields), true)
		return
	}

	b.deferResponse(session, interaction)
	switch name {
	case "snapshot":
		res, err := b.recovery.Snapshot(ctx, guildID)
		if err != nil {
			b.logger.Warn("snapshot failed", zap.String("guild_id", guildID), zap.Error(err))
			b.editEmbed(session, interaction, b.commandEmbed("Snapshot", "Snapshot failed.", colors.Error, nil))
			return
		}
		b.editEmbed(session, interaction, b.commandEmbed("Snapshot", fmt.Sprintf("Saved %d roles and %d channels.", res.Roles, res.Channels), colors.Action, nil))
	case "restore":
		mode, ok := recovery.ParseMode(opts.stringValue("mode"))
		if !ok {
			b.editEmbed(session, interaction, b.commandEmbed("Restore", "Unknown mode.", colors.Error, nil))
			return
		}
		res := b.recovery.Restore(ctx, recovery.Request{GuildID: guildID, Mode: mode, OperatorID: interaction.Member.User.ID})
		b.editEmbed(session, interaction, restoreEmbed(res, colors.Action, colors.Error))
	case "cleanup":
		removed, err := b.recovery.Cleanup(ctx, b.cfg.Recovery.RetentionDays)
		if err != nil {
			b.editEmbed(session, interaction, b.commandEmbed("Cleanup", "Cleanup failed.", colors.Error, nil))
			return
		}
		b.editEmbed(session, interaction, b.commandEmbed("Cleanup", fmt.Sprintf("Removed %d backup rows older than %d days.", removed, b.cfg.Recovery.RetentionDays), colors.Action, nil))
	default:
		b.editEmbed(session, interaction, b.commandEmbed("Recovery", "Unknown subcommand.", colors.Error, nil))
	}
}

func restoreEmbed(res recovery.Result, okColor, errColor int) *discordgo.MessageEmbed {
	if !res.Success {
		desc := "Restore failed."
		if len(res.Errors) > 0 {
			desc += " " + res.Errors[0]
		}
		return &discordgo.MessageEmbed{Title: "Restore", Description: desc, Color: errColor}
	}
	embed := &discordgo.MessageEmbed{
		Title:       "Restore",
		Description: fmt.Sprintf("Restored %d roles and %d channels.", res.RolesRestored, res.ChannelsRestored),
		Color:       okColor,
	}
	if len(res.Errors) > 0 {
		shown := res.Errors
		if len(shown) > 5 {
			shown = shown[:5]
		}
		embed.Color = errColor
		embed.Fields = []*discordgo.MessageEmbedField{{
			Name:  fmt.Sprintf("Errors (%d)", len(res.Errors)),
			Value: truncate(strings.Join(shown, "\n"), 1024),
		}}
	}
	return embed
}

func (b *Bot) handleLogs(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	guildID := interaction.GuildID
	name, opts := subcommandOf(options)
	channelID := opts.id("channel")
	if channelID == "" {
		b.respondError(session, interaction, "Pick a channel.")
		return
	}

	settings, err := b.store.GetGuildSettings(ctx, guildID, storage.GuildSettings{GuildID: guildID})
	if err != nil {
		b.respondError(session, interaction, "Could not load the server settings.")
		return
	}
	switch name {
	case "modlog":
		settings.ModLogChannel = channelID
	case "security":
		settings.SecurityLogChannel = channelID
	default:
		b.respondError(session, interaction, "Unknown subcommand.")
		return
	}
	if err := b.store.UpsertGuildSettings(ctx, settings); err != nil {
		b.logger.Warn("log channel update failed", zap.String("guild_id", guildID), zap.Error(err))
		b.respondError(session, interaction, "Could not save the server settings.")
		return
	}
	fields := []*discordgo.MessageEmbedField{{Name: "Channel", Value: "<#" + channelID + ">", Inline: true}}
	b.respondEmbed(session, interaction, b.commandEmbed("Logs", "Log channel updated.", b.cfg.Notifications.EmbedColors.Action, fields), true)
}

func (b *Bot) handleTempban(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, opts optionMap) {
	guildID := interaction.GuildID
	userID := opts.id("user")
	minutes, _ := opts.intValue("minutes")
	if userID == "" || minutes <= 0 {
		b.respondError(session, interaction, "Give a user and a positive number of minutes.")
		return
	}
	duration := time.Duration(minutes) * time.Minute
	reason := opts.stringValue("reason")
	if reason == "" {
		reason = "Temporary ban"
	}
	moderatorID := interaction.Member.User.ID

	if err := b.gateway.Ban(ctx, guildID, userID, reason); err != nil {
		b.logger.Warn("tempban failed", zap.String("guild_id", guildID), zap.String("user_id", userID), zap.Error(err))
		b.respondError(session, interaction, "Could not ban that user.")
		return
	}
	b.scheduler.Schedule(scheduler.UnbanKey(guildID, userID), duration, func() {
		b.expireTempban(guildID, userID)
	})

	caseNumber, err := b.store.CreateCase(ctx, storage.NewCase{
		GuildID:     guildID,
		TargetID:    userID,
		ModeratorID: moderatorID,
		Action:      "tempban",
		Reason:      reason,
		Metadata:    map[string]any{"duration_seconds": int(duration / time.Second)},
	})
	if err != nil {
		b.logger.Warn("tempban case not recorded", zap.Error(err))
	}
	b.audit.Moderation(ctx, guildID, audit.ModerationEntry{
		Action:      "Tempban",
		TargetID:    userID,
		ModeratorID: moderatorID,
		Reason:      reason,
		CaseNumber:  caseNumber,
		Duration:    duration,
	})
	b.respondEmbed(session, interaction, b.commandEmbed("Tempban", fmt.Sprintf("<@%s> banned for %s.", userID, utils.FormatDuration(duration)), b.cfg.Notifications.EmbedColors.Action, nil), true)
}

func (b *Bot) expireTempban(guildID, userID string) {
	ctx := context.Background()
	if err := b.gateway.Unban(ctx, guildID, userID); err != nil {
		b.logger.Warn("scheduled unban failed", zap.String("guild_id", guildID), zap.String("user_id", userID), zap.Error(err))
		return
	}
	b.audit.Moderation(ctx, guildID, audit.ModerationEntry{
		Action:      "Unban",
		TargetID:    userID,
		ModeratorID: b.gateway.BotUserID(),
		Reason:      "Temporary ban expired",
	})
}

func (b *Bot) handleUnban(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, opts optionMap) {
	guildID := interaction.GuildID
	userID := opts.id("user")
	if userID == "" {
		b.respondError(session, interaction, "Pick a user.")
		return
	}
	b.scheduler.Cancel(scheduler.UnbanKey(guildID, userID))
	if err := b.gateway.Unban(ctx, guildID, userID); err != nil {
		b.respondError(session, interaction, "Could not unban that user.")
		return
	}
	moderatorID := interaction.Member.User.ID
	caseNumber, err := b.store.CreateCase(ctx, storage.NewCase{
		GuildID:     guildID,
		TargetID:    userID,
		ModeratorID: moderatorID,
		Action:      "unban",
	})
	if err != nil {
		b.logger.Warn("unban case not recorded", zap.Error(err))
	}
	b.audit.Moderation(ctx, guildID, audit.ModerationEntry{Action: "Unban", TargetID: userID, ModeratorID: moderatorID, CaseNumber: caseNumber})
	b.respondEmbed(session, interaction, b.commandEmbed("Unban", fmt.Sprintf("<@%s> unbanned.", userID), b.cfg.Notifications.EmbedColors.Action, nil), true)
}

func (b *Bot) handleCase(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	guildID := interaction.GuildID
	name, opts := subcommandOf(options)
	number, _ := opts.intValue("number")

	switch name {
	case "view":
		c, err := b.store.GetCase(ctx, guildID, number)
		if errors.Is(err, storage.ErrNotFound) {
			b.respondError(session, interaction, "No such case.")
			return
		}
		if err != nil {
			b.respondError(session, interaction, "Could not load the case.")
			return
		}
		b.respondEmbed(session, interaction, caseEmbed(c, b.cfg.Notifications.EmbedColors.Action), true)
	case "overturn":
		err := b.store.OverturnCase(ctx, guildID, number, interaction.Member.User.ID, time.Now())
		if errors.Is(err, storage.ErrNotFound) {
			b.respondError(session, interaction, "No open case with that number.")
			return
		}
		if err != nil {
			b.respondError(session, interaction, "Could not update the case.")
			return
		}
		b.audit.Log(ctx, audit.LevelInfo, guildID, interaction.Member.User.ID, "case_overturned", fmt.Sprintf("case=%d", number))
		b.respondEmbed(session, interaction, b.commandEmbed("Case", fmt.Sprintf("Case #%d overturned.", number), b.cfg.Notifications.EmbedColors.Action, nil), true)
	default:
		b.respondError(session, interaction, "Unknown subcommand.")
	}
}

func caseEmbed(c storage.Case, color int) *discordgo.MessageEmbed {
	reason := c.Reason
	if reason == "" {
		reason = "No reason provided"
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Action", Value: c.Action, Inline: true},
		{Name: "Target", Value: "<@" + c.TargetID + ">", Inline: true},
		{Name: "Moderator", Value: "<@" + c.ModeratorID + ">", Inline: true},
		{Name: "Reason", Value: reason},
	}
	if c.Overturned {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Overturned by", Value: "<@" + c.OverturnedBy + ">", Inline: true})
	}
	return &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("Case #%d", c.CaseNumber),
		Color:     color,
		Fields:    fields,
		Timestamp: time.Unix(c.CreatedAt, 0).Format(time.RFC3339),
	}
}

func (b *Bot) handleWarnings(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, opts optionMap) {
	userID := opts.id("user")
	warnings, err := b.store.ListWarnings(ctx, interaction.GuildID, userID)
	if err != nil {
		b.respondError(session, interaction, "Could not load warnings.")
		return
	}
	if len(warnings) == 0 {
		b.respondEmbed(session, interaction, b.commandEmbed("Warnings", fmt.Sprintf("<@%s> has no warnings.", userID), b.cfg.Notifications.EmbedColors.Action, nil), true)
		return
	}
	lines := make([]string, 0, len(warnings))
	for _, w := range warnings {
		lines = append(lines, fmt.Sprintf("<t:%d:d> %s", w.CreatedAt, w.Reason))
	}
	desc := fmt.Sprintf("<@%s> has %d warnings.\n%s", userID, len(warnings), strings.Join(lines, "\n"))
	b.respondEmbed(session, interaction, b.commandEmbed("Warnings", truncate(desc, 4000), b.cfg.Notifications.EmbedColors.Warning, nil), true)
}

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Fields:      fields,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

func (b *Bot) respondError(session *discordgo.Session, interaction *discordgo.InteractionCreate, message string) {
	b.respondEmbed(session, interaction, b.commandEmbed("Error", message, b.cfg.Notifications.EmbedColors.Error, nil), true)
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
}

func (b *Bot) deferResponse(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
}

func (b *Bot) editEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	embeds := []*discordgo.MessageEmbed{embed}
	if _, err := session.InteractionResponseEdit(interaction.Interaction, &discordgo.WebhookEdit{Embeds: &embeds}); err != nil {
		b.logger.Debug("interaction edit failed", zap.Error(err))
	}
}
