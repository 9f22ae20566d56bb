package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken              string         `yaml:"discord_token"`
	LogLevel                  string         `yaml:"log_level"`
	DefaultModLogChannel      string         `yaml:"default_mod_log_channel"`
	DefaultSecurityLogChannel string         `yaml:"default_security_log_channel"`
	AuditRetentionDays        int            `yaml:"audit_retention_days"`
	Storage                   StorageConfig  `yaml:"storage"`
	Redis                     RedisConfig    `yaml:"redis"`
	Health                    HealthConfig   `yaml:"health"`
	AutoMod                   AutoModConfig  `yaml:"automod"`
	Recovery                  RecoveryConfig `yaml:"recovery"`
	Notifications             NotifyConfig   `yaml:"notifications"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type AutoModConfig struct {
	RateWindowBackend    string          `yaml:"rate_window_backend"`
	SweepIntervalSeconds int             `yaml:"sweep_interval_seconds"`
	IdleTTLSeconds       int             `yaml:"idle_ttl_seconds"`
	NoticeTTLSeconds     int             `yaml:"notice_ttl_seconds"`
	CacheSize            int             `yaml:"cache_size"`
	CacheTTLSeconds      int             `yaml:"cache_ttl_seconds"`
	Defaults             FeatureDefaults `yaml:"defaults"`
}

// FeatureDefaults are the tunables a freshly enabled feature starts with.
type FeatureDefaults struct {
	MaxMessages               int    `yaml:"max_messages"`
	TimeSpanMs                int    `yaml:"time_span_ms"`
	MaxLines                  int    `yaml:"max_lines"`
	MaxMentions               int    `yaml:"max_mentions"`
	PunishmentDurationSeconds int    `yaml:"punishment_duration_seconds"`
	ActionType                string `yaml:"action_type"`
	PunishmentType            string `yaml:"punishment_type"`
}

type RecoveryConfig struct {
	RetentionDays         int     `yaml:"retention_days"`
	SnapshotIntervalHours int     `yaml:"snapshot_interval_hours"`
	CleanupIntervalHours  int     `yaml:"cleanup_interval_hours"`
	RestoreRatePerSecond  float64 `yaml:"restore_rate_per_second"`
}

type NotifyConfig struct {
	EmbedColors EmbedColors `yaml:"embed_colors"`
}

type EmbedColors struct {
	Action  int `yaml:"action"`
	Warning int `yaml:"warning"`
	Error   int `yaml:"error"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel:           "info",
		AuditRetentionDays: 30,
		Storage:            StorageConfig{Driver: "sqlite", DSN: "/data/modbot.db"},
		Health:             HealthConfig{Enabled: false, Addr: ":8080"},
		AutoMod: AutoModConfig{
			RateWindowBackend:    "memory",
			SweepIntervalSeconds: 60,
			IdleTTLSeconds:       60,
			NoticeTTLSeconds:     5,
			CacheSize:            4096,
			CacheTTLSeconds:      300,
			Defaults: FeatureDefaults{
				MaxMessages:               5,
				TimeSpanMs:                5000,
				MaxLines:                  10,
				MaxMentions:               5,
				PunishmentDurationSeconds: 300,
				ActionType:                "delete",
				PunishmentType:            "timeout",
			},
		},
		Recovery: RecoveryConfig{
			RetentionDays:         7,
			SnapshotIntervalHours: 24,
			CleanupIntervalHours:  24,
			RestoreRatePerSecond:  2,
		},
		Notifications: NotifyConfig{
			EmbedColors: EmbedColors{
				Action:  0xF59E0B,
				Warning: 0xEF4444,
				Error:   0xF97316,
			},
		},
	}
}

// Load reads .env, then the YAML file at CONFIG_PATH, then environment
// overrides. The token is checked by the commands that need a gateway.
func Load() (Config, error) {
	cfg := DefaultConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	normalize(&cfg)
	return cfg, nil
}

// RequireToken fails when no bot token was configured.
func (c Config) RequireToken() error {
	if c.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN is required")
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.DefaultModLogChannel = envString("DEFAULT_MOD_LOG_CHANNEL", cfg.DefaultModLogChannel)
	cfg.DefaultSecurityLogChannel = envString("DEFAULT_SECURITY_LOG_CHANNEL", cfg.DefaultSecurityLogChannel)
	cfg.AuditRetentionDays = envInt("AUDIT_RETENTION_DAYS", cfg.AuditRetentionDays)
	cfg.Storage.Driver = envString("STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.DSN = envString("DATABASE_URL", cfg.Storage.DSN)
	cfg.Redis.URL = envString("REDIS_URL", cfg.Redis.URL)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.AutoMod.RateWindowBackend = envString("RATE_WINDOW_BACKEND", cfg.AutoMod.RateWindowBackend)
	cfg.AutoMod.SweepIntervalSeconds = envInt("RATE_WINDOW_SWEEP_SECONDS", cfg.AutoMod.SweepIntervalSeconds)
	cfg.AutoMod.NoticeTTLSeconds = envInt("AUTOMOD_NOTICE_TTL_SECONDS", cfg.AutoMod.NoticeTTLSeconds)
	cfg.AutoMod.Defaults.MaxMessages = envInt("AUTOMOD_MAX_MESSAGES", cfg.AutoMod.Defaults.MaxMessages)
	cfg.AutoMod.Defaults.TimeSpanMs = envInt("AUTOMOD_TIME_SPAN_MS", cfg.AutoMod.Defaults.TimeSpanMs)
	cfg.AutoMod.Defaults.MaxLines = envInt("AUTOMOD_MAX_LINES", cfg.AutoMod.Defaults.MaxLines)
	cfg.AutoMod.Defaults.MaxMentions = envInt("AUTOMOD_MAX_MENTIONS", cfg.AutoMod.Defaults.MaxMentions)
	cfg.Recovery.RetentionDays = envInt("BACKUP_RETENTION_DAYS", cfg.Recovery.RetentionDays)
	cfg.Recovery.SnapshotIntervalHours = envInt("SNAPSHOT_INTERVAL_HOURS", cfg.Recovery.SnapshotIntervalHours)
	cfg.Recovery.CleanupIntervalHours = envInt("CLEANUP_INTERVAL_HOURS", cfg.Recovery.CleanupIntervalHours)
}

func normalize(cfg *Config) {
	cfg.Storage.Driver = normalizeDriver(cfg.Storage.Driver)
	switch strings.ToLower(cfg.AutoMod.RateWindowBackend) {
	case "redis":
		cfg.AutoMod.RateWindowBackend = "redis"
	default:
		cfg.AutoMod.RateWindowBackend = "memory"
	}
	if cfg.AutoMod.SweepIntervalSeconds <= 0 {
		cfg.AutoMod.SweepIntervalSeconds = 60
	}
	if cfg.AutoMod.IdleTTLSeconds <= 0 {
		cfg.AutoMod.IdleTTLSeconds = 60
	}
	if cfg.AutoMod.NoticeTTLSeconds <= 0 {
		cfg.AutoMod.NoticeTTLSeconds = 5
	}
	if cfg.Recovery.RetentionDays <= 0 {
		cfg.Recovery.RetentionDays = 7
	}
	if cfg.AuditRetentionDays <= 0 {
		cfg.AuditRetentionDays = 30
	}
}

func normalizeDriver(value string) string {
	switch strings.ToLower(value) {
	case "postgres", "postgresql", "pgx":
		return "pgx"
	default:
		return "sqlite"
	}
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(strings.ToLower(level)))
	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}
