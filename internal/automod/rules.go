package automod

import (
	"fmt"
	"regexp"
	"strings"

	"modbot/internal/utils"
)

var invitePattern = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?(?:discord\.(?:gg|io|me|li)|discord(?:app)?\.com/invite)/[a-z0-9-]{2,32}`)

// LineCount is the number of newlines plus one.
func LineCount(text string) int {
	return strings.Count(text, "\n") + 1
}

func ContainsInvite(text string) bool {
	return invitePattern.MatchString(text)
}

// EvaluateAntiSpam checks the author's active message count and the
// message's line count against the limits.
func EvaluateAntiSpam(msg Message, cfg FeatureConfig, activeCount int) *Violation {
	if activeCount > cfg.MaxMessages {
		return newViolation(cfg, fmt.Sprintf("Sending messages too fast (more than %d in %.1fs)", cfg.MaxMessages, cfg.TimeSpan.Seconds()))
	}
	if lines := LineCount(msg.Content); lines > cfg.MaxLines {
		return newViolation(cfg, fmt.Sprintf("Message too long (%d lines, max %d)", lines, cfg.MaxLines))
	}
	return nil
}

func EvaluateMassMention(msg Message, cfg FeatureConfig) *Violation {
	mentions := countDistinct(msg.MentionUserIDs) + countDistinct(msg.MentionRoleIDs)
	if mentions > cfg.MaxMentions {
		return newViolation(cfg, fmt.Sprintf("Too many mentions (%d, max %d)", mentions, cfg.MaxMentions))
	}
	return nil
}

func EvaluateServerInvite(msg Message, cfg FeatureConfig) *Violation {
	if !ContainsInvite(msg.Content) {
		return nil
	}
	return newViolation(cfg, "Posting server invites")
}

// EvaluateAntiLink ignores messages carrying an invite; those belong to
// the server invite feature even when other links are present.
func EvaluateAntiLink(msg Message, cfg FeatureConfig) *Violation {
	if ContainsInvite(msg.Content) {
		return nil
	}
	links := utils.ExtractURLs(msg.Content)
	if len(links) == 0 {
		return nil
	}
	reason := "Posting links"
	if _, host, err := utils.NormalizeURL(links[0]); err == nil && host != "" {
		reason += " (" + host + ")"
	}
	return newViolation(cfg, reason)
}

func newViolation(cfg FeatureConfig, reason string) *Violation {
	return &Violation{
		Feature:    cfg.Feature,
		Reason:     reason,
		Action:     cfg.Action,
		Punishment: cfg.Punishment,
		Duration:   cfg.PunishmentDuration,
	}
}

func countDistinct(ids []string) int {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		seen[id] = struct{}{}
	}
	return len(seen)
}
