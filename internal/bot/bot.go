// Package bot wires the moderation core to a Discord session.
package bot

import (
	"context"
	"sync"
	"time"

	"modbot/internal/analytics"
	"modbot/internal/automod"
	"modbot/internal/config"
	"modbot/internal/modules/audit"
	"modbot/internal/ratewindow"
	"modbot/internal/recovery"
	"modbot/internal/scheduler"
	"modbot/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *storage.Store
	audit     *audit.Logger
	analytics *analytics.Service
	session   *discordgo.Session
	gateway   *Gateway
	tracker   ratewindow.Tracker
	configs   *automod.Configs
	whitelist *automod.Resolver
	monitor   *automod.Monitor
	recovery  *recovery.Manager
	scheduler *scheduler.Scheduler

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSession opens nothing; it only prepares a session with the intents
// the bot needs.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildBans |
		discordgo.IntentsMessageContent
	return session, nil
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, auditLogger *audit.Logger, analyticsService *analytics.Service, tracker ratewindow.Tracker) (*Bot, error) {
	session, err := NewSession(cfg.DiscordToken)
	if err != nil {
		return nil, err
	}
	gateway := NewGateway(session)

	cacheTTL := time.Duration(cfg.AutoMod.CacheTTLSeconds) * time.Second
	configs := automod.NewConfigs(store, automod.DefaultsFromConfig(cfg.AutoMod.Defaults), cfg.AutoMod.CacheSize, cacheTTL)
	whitelist := automod.NewResolver(store, cfg.AutoMod.CacheSize, cacheTTL)
	responder := automod.NewResponder(gateway, store, store, auditLogger, logger, time.Duration(cfg.AutoMod.NoticeTTLSeconds)*time.Second)

	b := &Bot{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		audit:     auditLogger,
		analytics: analyticsService,
		session:   session,
		gateway:   gateway,
		tracker:   tracker,
		configs:   configs,
		whitelist: whitelist,
		monitor:   automod.NewMonitor(configs, whitelist, tracker, responder, logger),
		recovery:  recovery.NewManager(gateway, store, store, auditLogger, logger, cfg.Recovery.RestoreRatePerSecond),
		scheduler: scheduler.New(logger),
	}

	auditLogger.SetNotifier(&channelNotifier{cfg: cfg, settings: store, sender: session, logger: logger})
	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onGuildBanRemove)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	if err := b.registerCommands(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.startJobs(ctx)
	return nil
}

func (b *Bot) Close(ctx context.Context) {
	if b.cancel != nil {
		b.cancel()
	}
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		b.logger.Warn("background jobs still running at shutdown")
	}
	b.scheduler.Stop()
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username), zap.Int("guilds", len(event.Guilds)))
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.GuildID == "" {
		return
	}
	ownerID := ""
	if guild, err := session.State.Guild(msg.GuildID); err == nil {
		ownerID = guild.OwnerID
	}
	botID := ""
	if session.State.User != nil {
		botID = session.State.User.ID
	}
	b.monitor.HandleMessage(context.Background(), automodMessage(msg.Message, ownerID, botID))
}

// onGuildBanRemove drops a pending tempban expiry once the ban is lifted
// by other means.
func (b *Bot) onGuildBanRemove(session *discordgo.Session, event *discordgo.GuildBanRemove) {
	if event.GuildID == "" || event.User == nil {
		return
	}
	if b.scheduler.Cancel(scheduler.UnbanKey(event.GuildID, event.User.ID)) {
		b.logger.Info("scheduled unban cancelled", zap.String("guild_id", event.GuildID), zap.String("user_id", event.User.ID))
	}
}

func automodMessage(msg *discordgo.Message, ownerID, botID string) automod.Message {
	out := automod.Message{
		ID:           msg.ID,
		GuildID:      msg.GuildID,
		ChannelID:    msg.ChannelID,
		Content:      msg.Content,
		CreatedAt:    msg.Timestamp,
		GuildOwnerID: ownerID,
	}
	if msg.Author != nil {
		out.AuthorID = msg.Author.ID
		out.IsBot = msg.Author.Bot || (botID != "" && msg.Author.ID == botID)
	}
	if msg.Member != nil {
		out.AuthorRoleIDs = msg.Member.Roles
	}
	for _, user := range msg.Mentions {
		if user != nil {
			out.MentionUserIDs = append(out.MentionUserIDs, user.ID)
		}
	}
	out.MentionRoleIDs = msg.MentionRoles
	return out
}

func (b *Bot) startJobs(ctx context.Context) {
	if mem, ok := b.tracker.(*ratewindow.MemoryTracker); ok {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			mem.Run(ctx, time.Duration(b.cfg.AutoMod.SweepIntervalSeconds)*time.Second)
		}()
	}
	if hours := b.cfg.Recovery.SnapshotIntervalHours; hours > 0 {
		b.every(ctx, time.Duration(hours)*time.Hour, b.snapshotAll)
	}
	if hours := b.cfg.Recovery.CleanupIntervalHours; hours > 0 {
		b.every(ctx, time.Duration(hours)*time.Hour, b.cleanup)
	}
}

func (b *Bot) every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}

func (b *Bot) snapshotAll(ctx context.Context) {
	if b.session.State == nil {
		return
	}
	b.session.State.RLock()
	ids := make([]string, 0, len(b.session.State.Guilds))
	for _, guild := range b.session.State.Guilds {
		if guild != nil {
			ids = append(ids, guild.ID)
		}
	}
	b.session.State.RUnlock()

	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		if _, err := b.recovery.Snapshot(ctx, id); err != nil {
			b.logger.Warn("scheduled snapshot failed", zap.String("guild_id", id), zap.Error(err))
		}
	}
}

func (b *Bot) cleanup(ctx context.Context) {
	if _, err := b.recovery.Cleanup(ctx, b.cfg.Recovery.RetentionDays); err != nil {
		b.logger.Warn("backup cleanup failed", zap.Error(err))
	}
	if err := b.store.CleanupAuditLogs(ctx, b.cfg.AuditRetentionDays); err != nil {
		b.logger.Warn("audit cleanup failed", zap.Error(err))
	}
}
