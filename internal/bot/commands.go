package bot

import (
	"modbot/internal/automod"
	"modbot/internal/recovery"

	"github.com/bwmarrin/discordgo"
)

var manageGuild int64 = discordgo.PermissionManageGuild

func featureChoices() []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(automod.Features))
	for _, f := range automod.Features {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: f.Label(), Value: string(f)})
	}
	return choices
}

func featureOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "feature",
		Description: "AutoMod feature",
		Required:    true,
		Choices:     featureChoices(),
	}
}

func scopeOption() *discordgo.ApplicationCommandOption {
	choices := append([]*discordgo.ApplicationCommandOptionChoice{{Name: "Global", Value: automod.ScopeGlobal}}, featureChoices()...)
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "scope",
		Description: "Feature to exempt from, or global",
		Required:    true,
		Choices:     choices,
	}
}

func targetOptions() []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User"},
		{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Role"},
		{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Channel"},
	}
}

func subcommand(name, description string, options ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        name,
		Description: description,
		Options:     options,
	}
}

func intOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        name,
		Description: description,
		Required:    required,
	}
}

func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:                     "automod",
			Description:              "Configure AutoMod",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("enable", "Enable a feature", featureOption()),
				subcommand("disable", "Disable a feature", featureOption()),
				subcommand("setup", "Enable every feature with default settings"),
				subcommand("limits", "Change a feature's limits",
					featureOption(),
					intOption("max_messages", "Messages allowed within the time span", false),
					intOption("time_span_ms", "Anti-spam window in milliseconds", false),
					intOption("max_lines", "Lines allowed per message", false),
					intOption("max_mentions", "Mentions allowed per message", false),
				),
				subcommand("action", "Change what happens on a violation",
					featureOption(),
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "action",
						Description: "Response to a violation",
						Required:    true,
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "Delete and punish", Value: "delete"},
							{Name: "Warn", Value: "warn"},
							{Name: "Delete, warn and punish", Value: "delete_warn"},
						},
					},
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "punishment",
						Description: "Punishment applied",
						Required:    true,
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "Timeout", Value: "timeout"},
							{Name: "Kick", Value: "kick"},
							{Name: "Ban", Value: "ban"},
						},
					},
					intOption("duration_seconds", "Timeout length in seconds", false),
				),
				subcommand("status", "Show AutoMod settings"),
				subcommand("report", "Summarise recent moderation activity",
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "period",
						Description: "day or week",
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "day", Value: "day"},
							{Name: "week", Value: "week"},
						},
					},
				),
			},
		},
		{
			Name:                     "whitelist",
			Description:              "Manage AutoMod exemptions",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("add", "Exempt a user, role or channel", append([]*discordgo.ApplicationCommandOption{scopeOption()}, targetOptions()...)...),
				subcommand("remove", "Remove an exemption", append([]*discordgo.ApplicationCommandOption{scopeOption()}, targetOptions()...)...),
				subcommand("list", "List exemptions"),
			},
		},
		{
			Name:                     "recovery",
			Description:              "Server backups",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("snapshot", "Back up roles and channels now"),
				subcommand("preview", "Show how many backup rows are stored"),
				subcommand("restore", "Recreate missing roles and channels",
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "mode",
						Description: "full or partial (critical roles only)",
						Required:    true,
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "full", Value: string(recovery.ModeFull)},
							{Name: "partial", Value: string(recovery.ModePartial)},
						},
					},
				),
				subcommand("cleanup", "Delete backups past the retention period"),
			},
		},
		{
			Name:                     "logs",
			Description:              "Set log channels",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("modlog", "Set the moderation log channel", &discordgo.ApplicationCommandOption{
					Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Channel", Required: true,
				}),
				subcommand("security", "Set the security log channel", &discordgo.ApplicationCommandOption{
					Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Channel", Required: true,
				}),
			},
		},
		{
			Name:                     "tempban",
			Description:              "Ban a user for a limited time",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User", Required: true},
				intOption("minutes", "Ban length in minutes", true),
				{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Reason"},
			},
		},
		{
			Name:                     "unban",
			Description:              "Lift a ban",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User", Required: true},
			},
		},
		{
			Name:                     "case",
			Description:              "Moderation cases",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("view", "Show a case", intOption("number", "Case number", true)),
				subcommand("overturn", "Mark a case as overturned", intOption("number", "Case number", true)),
			},
		},
		{
			Name:                     "warnings",
			Description:              "List a user's warnings",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User", Required: true},
			},
		},
	}
}

func (b *Bot) registerCommands() error {
	commands := commandDefinitions()

	appID := b.session.State.User.ID
	existing, err := b.session.ApplicationCommands(appID, "")
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
				return err
			}
		}
		return nil
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{})
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, "", current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		_ = b.session.ApplicationCommandDelete(appID, "", cmd.ID)
	}
	return nil
}
