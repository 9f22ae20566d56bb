package automod

import (
	"context"
	"time"

	"modbot/internal/storage"
)

type ConfigStore interface {
	GetFeatureConfig(ctx context.Context, guildID, feature string) (*storage.FeatureConfigRecord, error)
	UpsertFeatureConfig(ctx context.Context, rec storage.FeatureConfigRecord) error
}

// Limits are the tunables an operator may change. Nil fields are left as stored.
type Limits struct {
	MaxMessages *int
	TimeSpanMs  *int
	MaxLines    *int
	MaxMentions *int
}

// Configs reads feature settings through a cache and writes them through
// to the store.
type Configs struct {
	store    ConfigStore
	defaults Defaults
	cache    *guildCache[*storage.FeatureConfigRecord]
}

func NewConfigs(store ConfigStore, defaults Defaults, cacheSize int, cacheTTL time.Duration) *Configs {
	return &Configs{
		store:    store,
		defaults: defaults,
		cache:    newGuildCache[*storage.FeatureConfigRecord](cacheSize, cacheTTL),
	}
}

func (c *Configs) Defaults() Defaults {
	return c.defaults
}

// Get returns nil when the guild never configured the feature.
func (c *Configs) Get(ctx context.Context, guildID string, feature Feature) (*FeatureConfig, error) {
	rec, err := c.record(ctx, guildID, feature)
	if err != nil || rec == nil {
		return nil, err
	}
	cfg := c.defaults.Apply(feature, rec)
	return &cfg, nil
}

// Effective returns the settings in force, defaults included, even when
// nothing is stored.
func (c *Configs) Effective(ctx context.Context, guildID string, feature Feature) (FeatureConfig, error) {
	rec, err := c.record(ctx, guildID, feature)
	if err != nil {
		return FeatureConfig{}, err
	}
	return c.defaults.Apply(feature, rec), nil
}

func (c *Configs) Enable(ctx context.Context, guildID string, feature Feature) error {
	return c.update(ctx, guildID, feature, func(rec *storage.FeatureConfigRecord) {
		rec.Enabled = true
	})
}

func (c *Configs) Disable(ctx context.Context, guildID string, feature Feature) error {
	return c.update(ctx, guildID, feature, func(rec *storage.FeatureConfigRecord) {
		rec.Enabled = false
	})
}

// SetupAll enables every feature, keeping any tunables already stored.
func (c *Configs) SetupAll(ctx context.Context, guildID string) error {
	for _, feature := range Features {
		if err := c.Enable(ctx, guildID, feature); err != nil {
			return err
		}
	}
	return nil
}

func (c *Configs) SetLimits(ctx context.Context, guildID string, feature Feature, limits Limits) error {
	return c.update(ctx, guildID, feature, func(rec *storage.FeatureConfigRecord) {
		if limits.MaxMessages != nil {
			rec.MaxMessages = limits.MaxMessages
		}
		if limits.TimeSpanMs != nil {
			rec.TimeSpanMs = limits.TimeSpanMs
		}
		if limits.MaxLines != nil {
			rec.MaxLines = limits.MaxLines
		}
		if limits.MaxMentions != nil {
			rec.MaxMentions = limits.MaxMentions
		}
	})
}

// SetAction stores the response policy. A nil duration keeps the stored one.
func (c *Configs) SetAction(ctx context.Context, guildID string, feature Feature, action ActionType, punishment PunishmentType, durationSeconds *int) error {
	return c.update(ctx, guildID, feature, func(rec *storage.FeatureConfigRecord) {
		rec.ActionType = action.String()
		rec.PunishmentType = punishment.String()
		if durationSeconds != nil {
			rec.PunishmentDuration = durationSeconds
		}
	})
}

func (c *Configs) record(ctx context.Context, guildID string, feature Feature) (*storage.FeatureConfigRecord, error) {
	return c.cache.get(ctx, guildID, string(feature), func(ctx context.Context) (*storage.FeatureConfigRecord, error) {
		return c.store.GetFeatureConfig(ctx, guildID, string(feature))
	})
}

func (c *Configs) update(ctx context.Context, guildID string, feature Feature, mutate func(*storage.FeatureConfigRecord)) error {
	current, err := c.store.GetFeatureConfig(ctx, guildID, string(feature))
	if err != nil {
		return err
	}
	rec := storage.FeatureConfigRecord{GuildID: guildID, Feature: string(feature)}
	if current != nil {
		rec = *current
	}
	mutate(&rec)
	rec.UpdatedAt = 0
	if err := c.store.UpsertFeatureConfig(ctx, rec); err != nil {
		return err
	}
	c.cache.invalidate(guildID, string(feature))
	return nil
}
