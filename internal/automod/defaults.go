package automod

import (
	"time"

	"modbot/internal/config"
	"modbot/internal/storage"
)

// MaxTimeout is the longest communication timeout the platform accepts.
const MaxTimeout = 28 * 24 * time.Hour

// Defaults fills in every tunable a stored config leaves unset.
type Defaults struct {
	MaxMessages               int
	TimeSpanMs                int
	MaxLines                  int
	MaxMentions               int
	PunishmentDurationSeconds int
	Action                    ActionType
	Punishment                PunishmentType
}

var DefaultFeatureDefaults = Defaults{
	MaxMessages:               5,
	TimeSpanMs:                5000,
	MaxLines:                  10,
	MaxMentions:               5,
	PunishmentDurationSeconds: 300,
	Action:                    ActionDelete,
	Punishment:                PunishTimeout,
}

// DefaultsFromConfig overlays the configured defaults on DefaultFeatureDefaults.
func DefaultsFromConfig(cfg config.FeatureDefaults) Defaults {
	d := DefaultFeatureDefaults
	d.MaxMessages = positiveOr(cfg.MaxMessages, d.MaxMessages)
	d.TimeSpanMs = positiveOr(cfg.TimeSpanMs, d.TimeSpanMs)
	d.MaxLines = positiveOr(cfg.MaxLines, d.MaxLines)
	d.MaxMentions = positiveOr(cfg.MaxMentions, d.MaxMentions)
	d.PunishmentDurationSeconds = positiveOr(cfg.PunishmentDurationSeconds, d.PunishmentDurationSeconds)
	if cfg.ActionType != "" {
		d.Action = ParseActionType(cfg.ActionType)
	}
	if cfg.PunishmentType != "" {
		d.Punishment = ParsePunishmentType(cfg.PunishmentType)
	}
	return d
}

// Apply converts a stored record into a FeatureConfig. Unset or
// non-positive tunables take the default.
func (d Defaults) Apply(feature Feature, rec *storage.FeatureConfigRecord) FeatureConfig {
	cfg := FeatureConfig{
		Feature:            feature,
		Action:             d.Action,
		Punishment:         d.Punishment,
		PunishmentDuration: time.Duration(d.PunishmentDurationSeconds) * time.Second,
		MaxMessages:        d.MaxMessages,
		TimeSpan:           time.Duration(d.TimeSpanMs) * time.Millisecond,
		MaxLines:           d.MaxLines,
		MaxMentions:        d.MaxMentions,
	}
	if rec == nil {
		return cfg
	}

	cfg.Enabled = rec.Enabled
	if rec.ActionType != "" {
		cfg.Action = ParseActionType(rec.ActionType)
	}
	if rec.PunishmentType != "" {
		cfg.Punishment = ParsePunishmentType(rec.PunishmentType)
	}
	if v := positivePtr(rec.PunishmentDuration); v > 0 {
		cfg.PunishmentDuration = time.Duration(v) * time.Second
	}
	if v := positivePtr(rec.MaxMessages); v > 0 {
		cfg.MaxMessages = v
	}
	if v := positivePtr(rec.TimeSpanMs); v > 0 {
		cfg.TimeSpan = time.Duration(v) * time.Millisecond
	}
	if v := positivePtr(rec.MaxLines); v > 0 {
		cfg.MaxLines = v
	}
	if v := positivePtr(rec.MaxMentions); v > 0 {
		cfg.MaxMentions = v
	}
	if cfg.PunishmentDuration > MaxTimeout && cfg.Punishment == PunishTimeout {
		cfg.PunishmentDuration = MaxTimeout
	}
	return cfg
}

func positiveOr(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}

func positivePtr(value *int) int {
	if value == nil || *value <= 0 {
		return 0
	}
	return *value
}
