package bot

import (
	"context"
	"errors"
	"time"

	"modbot/internal/automod"
	"modbot/internal/recovery"

	"github.com/bwmarrin/discordgo"
)

// Gateway adapts a discordgo session to the moderation and recovery
// ports. It works over REST alone, so the CLI can use it without opening
// the websocket.
type Gateway struct {
	session *discordgo.Session
}

func NewGateway(session *discordgo.Session) *Gateway {
	return &Gateway{session: session}
}

func (g *Gateway) BotUserID() string {
	if g.session.State != nil && g.session.State.User != nil {
		return g.session.State.User.ID
	}
	return ""
}

func (g *Gateway) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return g.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
}

func (g *Gateway) SendChannelMessage(ctx context.Context, channelID, content string) (string, error) {
	msg, err := g.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (g *Gateway) SendDirectMessage(ctx context.Context, userID, content string) error {
	channel, err := g.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}
	_, err = g.session.ChannelMessageSend(channel.ID, content, discordgo.WithContext(ctx))
	return err
}

func (g *Gateway) Timeout(ctx context.Context, guildID, userID string, d time.Duration, reason string) error {
	until := time.Now().Add(d)
	return g.session.GuildMemberTimeout(guildID, userID, &until, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
}

func (g *Gateway) Kick(ctx context.Context, guildID, userID, reason string) error {
	return g.session.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx))
}

func (g *Gateway) Ban(ctx context.Context, guildID, userID, reason string) error {
	return g.session.GuildBanCreateWithReason(guildID, userID, reason, 0, discordgo.WithContext(ctx))
}

func (g *Gateway) Unban(ctx context.Context, guildID, userID string) error {
	return g.session.GuildBanDelete(guildID, userID, discordgo.WithContext(ctx))
}

func (g *Gateway) Capabilities(ctx context.Context, guildID, userID string) (automod.Capabilities, error) {
	guild, err := g.guild(ctx, guildID)
	if err != nil {
		return automod.Capabilities{}, err
	}
	botID := g.BotUserID()
	if botID == "" {
		return automod.Capabilities{}, errors.New("bot user unknown")
	}
	self, err := g.member(ctx, guildID, botID)
	if err != nil {
		return automod.Capabilities{}, err
	}
	target, err := g.member(ctx, guildID, userID)
	if err != nil {
		return automod.Capabilities{}, err
	}
	return memberCapabilities(guild, self, target), nil
}

func (g *Gateway) guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if g.session.State != nil {
		if guild, err := g.session.State.Guild(guildID); err == nil && len(guild.Roles) > 0 {
			return guild, nil
		}
	}
	return g.session.Guild(guildID, discordgo.WithContext(ctx))
}

func (g *Gateway) member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	if g.session.State != nil {
		if member, err := g.session.State.Member(guildID, userID); err == nil {
			return member, nil
		}
	}
	return g.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
}

// memberCapabilities applies the platform's hierarchy rules: the bot needs
// the permission, the owner is untouchable, and the bot's highest role
// must sit above the member's. Administrators cannot be timed out.
func memberCapabilities(guild *discordgo.Guild, self, target *discordgo.Member) automod.Capabilities {
	if guild == nil || self == nil || target == nil || target.User == nil {
		return automod.Capabilities{}
	}
	if target.User.ID == guild.OwnerID {
		return automod.Capabilities{}
	}

	roles := make(map[string]*discordgo.Role, len(guild.Roles))
	for _, role := range guild.Roles {
		if role != nil {
			roles[role.ID] = role
		}
	}
	selfIsOwner := self.User != nil && self.User.ID == guild.OwnerID
	perms := memberPermissions(guild.ID, roles, self, selfIsOwner)
	above := selfIsOwner || highestPosition(roles, self) > highestPosition(roles, target)
	if !above {
		return automod.Capabilities{}
	}
	targetAdmin := memberPermissions(guild.ID, roles, target, false)&discordgo.PermissionAdministrator != 0

	return automod.Capabilities{
		Moderatable: perms&discordgo.PermissionModerateMembers != 0 && !targetAdmin,
		Kickable:    perms&discordgo.PermissionKickMembers != 0,
		Bannable:    perms&discordgo.PermissionBanMembers != 0,
	}
}

func memberPermissions(guildID string, roles map[string]*discordgo.Role, member *discordgo.Member, owner bool) int64 {
	if owner {
		return discordgo.PermissionAll
	}
	var perms int64
	if everyone, ok := roles[guildID]; ok {
		perms |= everyone.Permissions
	}
	for _, id := range member.Roles {
		if role, ok := roles[id]; ok {
			perms |= role.Permissions
		}
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return discordgo.PermissionAll
	}
	return perms
}

func highestPosition(roles map[string]*discordgo.Role, member *discordgo.Member) int {
	highest := 0
	for _, id := range member.Roles {
		if role, ok := roles[id]; ok && role.Position > highest {
			highest = role.Position
		}
	}
	return highest
}

// FetchGuild reads roles and channels over REST so the result reflects
// the live guild even when the state cache is cold.
func (g *Gateway) FetchGuild(ctx context.Context, guildID string) (recovery.GuildState, error) {
	guild, err := g.session.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return recovery.GuildState{}, err
	}
	channels, err := g.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return recovery.GuildState{}, err
	}
	guild.Channels = channels
	return guildState(guild), nil
}

func guildState(guild *discordgo.Guild) recovery.GuildState {
	state := recovery.GuildState{ID: guild.ID, Name: guild.Name}
	for _, r := range guild.Roles {
		if r == nil {
			continue
		}
		state.Roles = append(state.Roles, recovery.Role{
			ID:           r.ID,
			Name:         r.Name,
			Color:        r.Color,
			Position:     r.Position,
			Permissions:  r.Permissions,
			Hoist:        r.Hoist,
			Mentionable:  r.Mentionable,
			Icon:         r.Icon,
			UnicodeEmoji: r.UnicodeEmoji,
		})
	}
	for _, c := range guild.Channels {
		if c == nil {
			continue
		}
		channel := recovery.Channel{
			ID:               c.ID,
			Name:             c.Name,
			Type:             int(c.Type),
			Position:         c.Position,
			ParentID:         c.ParentID,
			Topic:            c.Topic,
			NSFW:             c.NSFW,
			RateLimitPerUser: c.RateLimitPerUser,
			Bitrate:          c.Bitrate,
			UserLimit:        c.UserLimit,
		}
		for _, ow := range c.PermissionOverwrites {
			if ow == nil {
				continue
			}
			channel.Overwrites = append(channel.Overwrites, recovery.Overwrite{
				ID:    ow.ID,
				Type:  int(ow.Type),
				Allow: ow.Allow,
				Deny:  ow.Deny,
			})
		}
		state.Channels = append(state.Channels, channel)
	}
	return state
}

// CreateRole recreates a role. Icons are stored as hashes and cannot be
// uploaded again, so only the unicode emoji is restored.
func (g *Gateway) CreateRole(ctx context.Context, guildID string, role recovery.Role) (string, error) {
	params := &discordgo.RoleParams{
		Name:        role.Name,
		Color:       &role.Color,
		Hoist:       &role.Hoist,
		Permissions: &role.Permissions,
		Mentionable: &role.Mentionable,
	}
	if role.UnicodeEmoji != "" {
		params.UnicodeEmoji = &role.UnicodeEmoji
	}
	created, err := g.session.GuildRoleCreate(guildID, params, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// ReorderRoles moves the given roles to their positions in one call.
func (g *Gateway) ReorderRoles(ctx context.Context, guildID string, positions []recovery.RolePosition) error {
	roles := make([]*discordgo.Role, 0, len(positions))
	for _, p := range positions {
		roles = append(roles, &discordgo.Role{ID: p.ID, Position: p.Position})
	}
	_, err := g.session.GuildRoleReorder(guildID, roles, discordgo.WithContext(ctx))
	return err
}

func (g *Gateway) CreateChannel(ctx context.Context, guildID string, channel recovery.Channel) (string, error) {
	data := discordgo.GuildChannelCreateData{
		Name:     channel.Name,
		Type:     discordgo.ChannelType(channel.Type),
		Topic:    channel.Topic,
		Position: channel.Position,
		ParentID: channel.ParentID,
		NSFW:     channel.NSFW,
	}
	switch discordgo.ChannelType(channel.Type) {
	case discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildStageVoice:
		data.Bitrate = channel.Bitrate
		data.UserLimit = channel.UserLimit
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews, discordgo.ChannelTypeGuildForum:
		data.RateLimitPerUser = channel.RateLimitPerUser
	}
	created, err := g.session.GuildChannelCreateComplex(guildID, data, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func (g *Gateway) SetPermissionOverwrite(ctx context.Context, channelID string, ow recovery.Overwrite) error {
	return g.session.ChannelPermissionSet(channelID, ow.ID, discordgo.PermissionOverwriteType(ow.Type), ow.Allow, ow.Deny, discordgo.WithContext(ctx))
}
