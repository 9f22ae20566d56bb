package automod

import (
	"context"
	"fmt"

	"modbot/internal/ratewindow"
	"modbot/internal/scheduler"

	"go.uber.org/zap"
)

type ExemptionResolver interface {
	IsExempt(ctx context.Context, feature Feature, subject Subject) (bool, error)
}

type ViolationResponder interface {
	Respond(ctx context.Context, msg Message, v Violation) Outcome
}

type ConfigSource interface {
	Get(ctx context.Context, guildID string, feature Feature) (*FeatureConfig, error)
}

// Monitor runs every feature against every inbound guild message.
type Monitor struct {
	configs   ConfigSource
	whitelist ExemptionResolver
	tracker   ratewindow.Tracker
	responder ViolationResponder
	logger    *zap.Logger
	clock     scheduler.Clock
}

func NewMonitor(configs ConfigSource, whitelist ExemptionResolver, tracker ratewindow.Tracker, responder ViolationResponder, logger *zap.Logger) *Monitor {
	return &Monitor{
		configs:   configs,
		whitelist: whitelist,
		tracker:   tracker,
		responder: responder,
		logger:    logger,
		clock:     scheduler.RealClock(),
	}
}

func (m *Monitor) WithClock(clock scheduler.Clock) {
	m.clock = clock
}

// HandleMessage evaluates each feature independently. A failure in one
// feature is logged and the others still run.
func (m *Monitor) HandleMessage(ctx context.Context, msg Message) {
	if msg.IsBot || msg.GuildID == "" {
		return
	}
	for _, feature := range Features {
		m.runFeature(ctx, feature, msg)
	}
}

func (m *Monitor) runFeature(ctx context.Context, feature Feature, msg Message) {
	defer func() {
		if rec := recover(); rec != nil {
			featureErrorCount.WithLabelValues(string(feature)).Inc()
			m.logger.Error("automod feature panicked",
				zap.String("guild_id", msg.GuildID),
				zap.String("feature", string(feature)),
				zap.Any("panic", rec),
			)
		}
	}()

	if err := m.evaluate(ctx, feature, msg); err != nil {
		featureErrorCount.WithLabelValues(string(feature)).Inc()
		m.logger.Warn("automod feature failed",
			zap.String("guild_id", msg.GuildID),
			zap.String("user_id", msg.AuthorID),
			zap.String("feature", string(feature)),
			zap.Error(err),
		)
	}
}

func (m *Monitor) evaluate(ctx context.Context, feature Feature, msg Message) error {
	cfg, err := m.configs.Get(ctx, msg.GuildID, feature)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	exempt, err := m.whitelist.IsExempt(ctx, feature, SubjectOf(msg))
	if err != nil {
		return fmt.Errorf("whitelist: %w", err)
	}
	if exempt {
		exemptCount.WithLabelValues(string(feature)).Inc()
		return nil
	}

	var v *Violation
	switch feature {
	case FeatureAntiSpam:
		v, err = m.evaluateAntiSpam(ctx, msg, *cfg)
		if err != nil {
			return err
		}
	case FeatureMassMention:
		v = EvaluateMassMention(msg, *cfg)
	case FeatureServerInvite:
		v = EvaluateServerInvite(msg, *cfg)
	case FeatureAntiLink:
		v = EvaluateAntiLink(msg, *cfg)
	default:
		return fmt.Errorf("unknown feature %q", feature)
	}
	if v == nil {
		return nil
	}

	m.responder.Respond(ctx, msg, *v)
	return nil
}

func (m *Monitor) evaluateAntiSpam(ctx context.Context, msg Message, cfg FeatureConfig) (*Violation, error) {
	at := msg.CreatedAt
	if at.IsZero() {
		at = m.clock.Now()
	}
	key := ratewindow.Key(msg.GuildID, msg.AuthorID)
	count, err := m.tracker.Record(ctx, key, at, cfg.TimeSpan)
	if err != nil {
		return nil, fmt.Errorf("rate window: %w", err)
	}

	v := EvaluateAntiSpam(msg, cfg, count)
	if v != nil {
		if err := m.tracker.Reset(ctx, key); err != nil {
			m.logger.Warn("rate window reset failed", zap.String("key", key), zap.Error(err))
		}
	}
	return v, nil
}
