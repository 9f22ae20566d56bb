package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("STORAGE_DRIVER", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "memory", cfg.AutoMod.RateWindowBackend)
	assert.Equal(t, 5, cfg.AutoMod.Defaults.MaxMessages)
	assert.Equal(t, 7, cfg.Recovery.RetentionDays)
	assert.Error(t, cfg.RequireToken())
}

func TestLoadYAMLThenEnv(t *testing.T) {
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
discord_token: from-file
storage:
  driver: postgres
  dsn: postgres://localhost/modbot
automod:
  rate_window_backend: REDIS
  defaults:
    max_messages: 8
recovery:
  retention_days: 0
`), 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("AUTOMOD_MAX_MESSAGES", "9")
	t.Setenv("DISCORD_TOKEN", "from-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.DiscordToken)
	assert.NoError(t, cfg.RequireToken())
	assert.Equal(t, "pgx", cfg.Storage.Driver)
	assert.Equal(t, "postgres://localhost/modbot", cfg.Storage.DSN)
	assert.Equal(t, "redis", cfg.AutoMod.RateWindowBackend)
	assert.Equal(t, 9, cfg.AutoMod.Defaults.MaxMessages)
	assert.Equal(t, 5000, cfg.AutoMod.Defaults.TimeSpanMs)
	assert.Equal(t, 7, cfg.Recovery.RetentionDays)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("automod: [unclosed"), 0o600))
	t.Setenv("CONFIG_PATH", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("MODBOT_TEST_INT", "nope")
	assert.Equal(t, 3, envInt("MODBOT_TEST_INT", 3))
	t.Setenv("MODBOT_TEST_BOOL", "YES")
	assert.True(t, envBool("MODBOT_TEST_BOOL", false))
	assert.Equal(t, "x", envString("MODBOT_TEST_UNSET", "x"))
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
