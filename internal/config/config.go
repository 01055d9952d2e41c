package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"

	"github.com/BatmanBruc/convert-menu-bot/internal/formats"
	"github.com/BatmanBruc/convert-menu-bot/internal/i18n"
	"github.com/BatmanBruc/convert-menu-bot/types"
)

// TelegramConfig holds the bot transport settings.
type TelegramConfig struct {
	Token       string        `envconfig:"BOT_TOKEN" required:"true"`
	PollTimeout time.Duration `envconfig:"POLL_TIMEOUT" default:"50s"`
	BotWorkers  int           `envconfig:"BOT_WORKERS" default:"4"`
	DefaultLang string        `envconfig:"DEFAULT_LANG" default:"ru"`
}

// ConvertConfig holds conversion limits and tool settings.
type ConvertConfig struct {
	TempDir        string        `envconfig:"CONVERT_TEMP_DIR"`
	Timeout        time.Duration `envconfig:"CONVERT_TIMEOUT" default:"2m"`
	Workers        int           `envconfig:"CONVERT_WORKERS" default:"2"`
	MaxUploadBytes int64         `envconfig:"MAX_UPLOAD_BYTES" default:"20971520"`
	DisabledModes  []string      `envconfig:"DISABLED_MODES"`
}

// StorageConfig points at the optional Redis and Postgres backends. Empty values disable them.
type StorageConfig struct {
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string `envconfig:"REDIS_PREFIX" default:"convert_menu_bot"`
	PostgresDSN   string `envconfig:"POSTGRES_DSN"`
}

type RateLimitConfig struct {
	PerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"20"`
}

type LoggingConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"text"`
}

// Config aggregates all settings. Groups are embedded so env keys stay unprefixed.
type Config struct {
	TelegramConfig
	ConvertConfig
	StorageConfig
	RateLimitConfig
	LoggingConfig
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	cfg.Token = strings.TrimSpace(cfg.Token)
	if cfg.Token == "" {
		return fmt.Errorf("telegram token is required")
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 50 * time.Second
	}
	if cfg.BotWorkers <= 0 {
		return fmt.Errorf("BOT_WORKERS must be > 0")
	}

	cfg.DefaultLang = strings.ToLower(strings.TrimSpace(cfg.DefaultLang))
	if cfg.DefaultLang == "" {
		cfg.DefaultLang = string(i18n.RU)
	}
	if !i18n.Valid(cfg.DefaultLang) {
		return fmt.Errorf("invalid DEFAULT_LANG %q; allowed: ru, en", cfg.DefaultLang)
	}

	if cfg.Workers <= 0 {
		return fmt.Errorf("CONVERT_WORKERS must be > 0")
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("CONVERT_TIMEOUT must be > 0")
	}
	if cfg.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be > 0")
	}

	disabled := make([]string, 0, len(cfg.DisabledModes))
	for _, m := range cfg.DisabledModes {
		m = strings.ToLower(strings.TrimSpace(m))
		if m == "" {
			continue
		}
		if !formats.IsMode(m) {
			return fmt.Errorf("invalid DISABLED_MODES value %q", m)
		}
		disabled = append(disabled, m)
	}
	cfg.DisabledModes = disabled

	if cfg.PerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be >= 0")
	}

	if _, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level)); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.Level, err)
	}
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	switch cfg.Format {
	case "", "text":
		cfg.Format = "text"
	case "json":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q; allowed: text, json", cfg.Format)
	}
	return nil
}

func (c *Config) Lang() i18n.Lang {
	return i18n.Parse(c.DefaultLang)
}

// Disabled returns the modes switched off by DISABLED_MODES.
func (c *Config) Disabled() map[types.Mode]bool {
	out := make(map[types.Mode]bool, len(c.DisabledModes))
	for _, m := range c.DisabledModes {
		out[types.Mode(m)] = true
	}
	return out
}

// NewLogger builds the process logger from the logging settings.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(strings.TrimSpace(c.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if c.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
