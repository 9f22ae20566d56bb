// Package automod evaluates guild messages against the configured AutoMod
// features and carries out the configured response.
package automod

import (
	"strings"
	"time"
)

type Feature string

const (
	FeatureAntiSpam     Feature = "anti_spam"
	FeatureMassMention  Feature = "mass_mention"
	FeatureServerInvite Feature = "server_invite"
	FeatureAntiLink     Feature = "anti_link"
)

// Whitelist scopes that exempt a target from every feature.
const (
	ScopeGlobal = "global"
	ScopeAll    = "all"
)

// Features lists every feature in evaluation order.
var Features = []Feature{FeatureAntiSpam, FeatureMassMention, FeatureServerInvite, FeatureAntiLink}

func ParseFeature(value string) (Feature, bool) {
	switch Feature(strings.ToLower(strings.TrimSpace(value))) {
	case FeatureAntiSpam:
		return FeatureAntiSpam, true
	case FeatureMassMention:
		return FeatureMassMention, true
	case FeatureServerInvite:
		return FeatureServerInvite, true
	case FeatureAntiLink:
		return FeatureAntiLink, true
	}
	return "", false
}

// ParseWhitelistScope accepts a feature name or one of the global scopes.
func ParseWhitelistScope(value string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(value))
	if lower == ScopeGlobal || lower == ScopeAll {
		return lower, true
	}
	if f, ok := ParseFeature(lower); ok {
		return string(f), true
	}
	return "", false
}

func (f Feature) Label() string {
	switch f {
	case FeatureAntiSpam:
		return "Anti-Spam"
	case FeatureMassMention:
		return "Mass Mention"
	case FeatureServerInvite:
		return "Server Invite"
	case FeatureAntiLink:
		return "Anti-Link"
	}
	return string(f)
}

type ActionType int

const (
	ActionDelete ActionType = iota
	ActionWarn
	ActionDeleteWarn
)

// ParseActionType maps unknown values to ActionDelete, which deletes and punishes.
func ParseActionType(value string) ActionType {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "warn":
		return ActionWarn
	case "delete_warn":
		return ActionDeleteWarn
	default:
		return ActionDelete
	}
}

func (a ActionType) String() string {
	switch a {
	case ActionWarn:
		return "warn"
	case ActionDeleteWarn:
		return "delete_warn"
	default:
		return "delete"
	}
}

func (a ActionType) deletes() bool { return a == ActionDelete || a == ActionDeleteWarn }
func (a ActionType) warns() bool { return a == ActionWarn || a == ActionDeleteWarn }
func (a ActionType) punishes() bool { return a == ActionDelete || a == ActionDeleteWarn }

type PunishmentType int

const (
	PunishTimeout PunishmentType = iota
	PunishKick
	PunishBan
)

// ParsePunishmentType maps unknown values to PunishTimeout.
func ParsePunishmentType(value string) PunishmentType {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "kick":
		return PunishKick
	case "ban":
		return PunishBan
	default:
		return PunishTimeout
	}
}

func (p PunishmentType) String() string {
	switch p {
	case PunishKick:
		return "kick"
	case PunishBan:
		return "ban"
	default:
		return "timeout"
	}
}

func (p PunishmentType) Label() string {
	switch p {
	case PunishKick:
		return "Kick"
	case PunishBan:
		return "Ban"
	default:
		return "Timeout"
	}
}

type TargetType string

const (
	TargetUser    TargetType = "user"
	TargetRole    TargetType = "role"
	TargetChannel TargetType = "channel"
)

// FeatureConfig is a guild's settings for one feature with every default filled in.
type FeatureConfig struct {
	Feature            Feature
	Enabled            bool
	Action             ActionType
	Punishment         PunishmentType
	PunishmentDuration time.Duration
	MaxMessages        int
	TimeSpan           time.Duration
	MaxLines           int
	MaxMentions        int
}

// Message is the platform-neutral view of one inbound chat message.
type Message struct {
	ID             string
	GuildID        string
	ChannelID      string
	AuthorID       string
	Content        string
	CreatedAt      time.Time
	AuthorRoleIDs  []string
	MentionUserIDs []string
	MentionRoleIDs []string
	IsBot          bool
	GuildOwnerID   string
}

// Violation describes a rule breach and the response it calls for.
type Violation struct {
	Feature    Feature
	Reason     string
	Action     ActionType
	Punishment PunishmentType
	Duration   time.Duration
}
