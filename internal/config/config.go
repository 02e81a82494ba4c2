package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	str2duration "github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken  string `yaml:"bot_token"`
		ChatID    string `yaml:"chat_id"`
		APIURL    string `yaml:"api_url"`
		ParseMode string `yaml:"parse_mode"`
		Timeout   string `yaml:"timeout"`
	} `yaml:"telegram"`
	Cooldown struct {
		Minutes int `yaml:"minutes"`
		// Backend is "memory" or "sqlite".
		Backend    string `yaml:"backend"`
		SQLitePath string `yaml:"sqlite_path"`
		// Retention bounds how long entries are kept; empty means 4x the window.
		Retention string `yaml:"retention"`
		PruneCron string `yaml:"prune_cron"`
	} `yaml:"cooldown"`
	Server struct {
		Addr            string `yaml:"addr"`
		Path            string `yaml:"path"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
		Environment     string `yaml:"environment"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Timezone string `yaml:"timezone"`
	Proxy    string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"TELEGRAM_BOT_TOKEN":  &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":    &c.Telegram.ChatID,
		"TELEGRAM_API_URL":    &c.Telegram.APIURL,
		"TELEGRAM_PARSE_MODE": &c.Telegram.ParseMode,
		"COOLDOWN_BACKEND":    &c.Cooldown.Backend,
		"COOLDOWN_RETENTION":  &c.Cooldown.Retention,
		"SQLITE_PATH":         &c.Cooldown.SQLitePath,
		"LISTEN_ADDR":         &c.Server.Addr,
		"NODE_ENV":            &c.Server.Environment,
		"LOG_LEVEL":           &c.Log.Level,
		"LOG_FORMAT":          &c.Log.Format,
		"TIMEZONE":            &c.Timezone,
		"HTTPS_PROXY":         &c.Proxy,
	}
	for name, dst := range strs {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("PORT"); v != "" && os.Getenv("LISTEN_ADDR") == "" {
		c.Server.Addr = ":" + v
	}
	if v := os.Getenv("COOLDOWN_MINUTES"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("COOLDOWN_MINUTES: %w", err)
		}
		c.Cooldown.Minutes = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Telegram.ParseMode == "" {
		c.Telegram.ParseMode = "Markdown"
	}
	if c.Telegram.Timeout == "" {
		c.Telegram.Timeout = "30s"
	}
	if c.Cooldown.Minutes == 0 {
		c.Cooldown.Minutes = 30
	}
	if c.Cooldown.Backend == "" {
		c.Cooldown.Backend = "memory"
	}
	if c.Cooldown.PruneCron == "" {
		c.Cooldown.PruneCron = "@every 10m"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.Path == "" {
		c.Server.Path = "/webhook"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.Server.Environment == "" {
		c.Server.Environment = "production"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Timezone == "" {
		c.Timezone = "Asia/Taipei"
	}
}

// Validate checks that all fields are usable. Missing Telegram secrets are
// allowed: they surface per request as configuration errors.
func (c *Config) Validate() error {
	if c.Cooldown.Minutes <= 0 {
		return fmt.Errorf("cooldown.minutes must be positive")
	}
	switch c.Cooldown.Backend {
	case "memory":
	case "sqlite":
		if c.Cooldown.SQLitePath == "" {
			return fmt.Errorf("cooldown.sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("cooldown.backend %q is not one of memory, sqlite", c.Cooldown.Backend)
	}
	retention, err := c.Retention()
	if err != nil {
		return err
	}
	if retention < c.CooldownWindow() {
		return fmt.Errorf("cooldown.retention %s is shorter than the %s window", retention, c.CooldownWindow())
	}
	if _, err := c.TelegramTimeout(); err != nil {
		return err
	}
	if _, err := c.ShutdownTimeout(); err != nil {
		return err
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(c.Telegram.ParseMode) {
	case "", "markdown", "html":
	default:
		return fmt.Errorf("telegram.parse_mode %q is not one of Markdown, HTML", c.Telegram.ParseMode)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format %q is not one of console, json", c.Log.Format)
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		return fmt.Errorf("server.path must start with /")
	}
	return nil
}

// CooldownWindow is the minimum time between two relays of one key.
func (c *Config) CooldownWindow() time.Duration {
	return time.Duration(c.Cooldown.Minutes) * time.Minute
}

// Retention is how long cooldown entries are kept before eviction.
func (c *Config) Retention() (time.Duration, error) {
	if c.Cooldown.Retention == "" {
		return 4 * c.CooldownWindow(), nil
	}
	return parseDuration("cooldown.retention", c.Cooldown.Retention)
}

func (c *Config) TelegramTimeout() (time.Duration, error) {
	return parseDuration("telegram.timeout", c.Telegram.Timeout)
}

func (c *Config) ShutdownTimeout() (time.Duration, error) {
	return parseDuration("server.shutdown_timeout", c.Server.ShutdownTimeout)
}

// parseDuration accepts Go durations plus day and week units ("1d", "1w2d").
func parseDuration(field, v string) (time.Duration, error) {
	d, err := str2duration.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", field, v)
	}
	return d, nil
}
