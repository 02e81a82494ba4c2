package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "TELEGRAM_API_URL", "TELEGRAM_PARSE_MODE",
		"COOLDOWN_BACKEND", "COOLDOWN_RETENTION", "COOLDOWN_MINUTES", "SQLITE_PATH",
		"LISTEN_ADDR", "PORT", "NODE_ENV", "LOG_LEVEL", "LOG_FORMAT", "TIMEZONE", "HTTPS_PROXY",
	} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 30*time.Minute, cfg.CooldownWindow())
	retention, err := cfg.Retention()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, retention)
	assert.Equal(t, "memory", cfg.Cooldown.Backend)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "/webhook", cfg.Server.Path)
	assert.Equal(t, "Markdown", cfg.Telegram.ParseMode)
	assert.Equal(t, "Asia/Taipei", cfg.Timezone)
	assert.Empty(t, cfg.Telegram.BotToken)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
telegram:
  bot_token: file-token
  chat_id: "-100"
  timeout: 5s
cooldown:
  minutes: 15
  backend: sqlite
  sqlite_path: data/cooldown.db
  retention: 1d
server:
  addr: ":9000"
log:
  level: debug
  format: json
`)
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("COOLDOWN_MINUTES", "45")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "env-token", cfg.Telegram.BotToken)
	assert.Equal(t, "-100", cfg.Telegram.ChatID)
	assert.Equal(t, 45*time.Minute, cfg.CooldownWindow())
	assert.Equal(t, "sqlite", cfg.Cooldown.Backend)

	retention, err := cfg.Retention()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, retention)

	timeout, err := cfg.TelegramTimeout()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, timeout)
}

func TestValidate_ParseModeCaseInsensitive(t *testing.T) {
	clearEnv(t)
	for _, mode := range []string{"markdown", "HTML", "html"} {
		cfg, err := Load("")
		require.NoError(t, err)
		cfg.Telegram.ParseMode = mode
		assert.NoError(t, cfg.Validate(), mode)
	}
}

func TestLoad_ParseModeFromFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, "telegram:\n  parse_mode: MarkdownV2\n"))
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())
}

func TestLoad_PortEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3000")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Server.Addr)
}

func TestLoad_BadInput(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, "telegram: [unclosed"))
	assert.Error(t, err)

	t.Setenv("COOLDOWN_MINUTES", "thirty")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero cooldown", func(c *Config) { c.Cooldown.Minutes = -1 }},
		{"unknown backend", func(c *Config) { c.Cooldown.Backend = "redis" }},
		{"sqlite without path", func(c *Config) { c.Cooldown.Backend = "sqlite" }},
		{"short retention", func(c *Config) { c.Cooldown.Retention = "10m" }},
		{"bad retention", func(c *Config) { c.Cooldown.Retention = "soon" }},
		{"bad timeout", func(c *Config) { c.Telegram.Timeout = "-1s" }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
		{"bad path", func(c *Config) { c.Server.Path = "webhook" }},
		{"markdown v2", func(c *Config) { c.Telegram.ParseMode = "MarkdownV2" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
