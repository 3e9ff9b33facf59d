// Package config loads the YAML configuration and applies environment
// overrides on top of it.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"WeEarn/internal/market"
	"WeEarn/internal/storage"
)

// DefaultPath is used when CONFIG_PATH is unset.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Market      MarketConfig      `yaml:"market"`
	AutoClicker AutoClickerConfig `yaml:"autoclicker"`
	Cashout     CashoutConfig     `yaml:"cashout"`
	Storage     StorageConfig     `yaml:"storage"`
	Database    DatabaseConfig    `yaml:"database"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Log         LogConfig         `yaml:"log"`
	Proxy       string            `yaml:"proxy" env:"HTTPS_PROXY"`
}

type MarketConfig struct {
	Interval    time.Duration `yaml:"interval" env:"WEEARN_MARKET_INTERVAL"`
	HistorySize int           `yaml:"history_size" env:"WEEARN_HISTORY_SIZE"`
	// Entropy selects the pricing source: "block" or "independent".
	Entropy string `yaml:"entropy" env:"WEEARN_ENTROPY"`
}

type AutoClickerConfig struct {
	Cadence  time.Duration `yaml:"cadence" env:"WEEARN_AUTOCLICKER_CADENCE"`
	Duration time.Duration `yaml:"duration" env:"WEEARN_AUTOCLICKER_DURATION"`
}

type CashoutConfig struct {
	SecretCode string        `yaml:"secret_code" env:"WEEARN_SECRET_CODE"`
	Delay      time.Duration `yaml:"delay" env:"WEEARN_CASHOUT_DELAY"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend" env:"WEEARN_STORAGE_BACKEND"`
	FilePath    string `yaml:"file_path" env:"WEEARN_STATE_FILE"`
	SQLitePath  string `yaml:"sqlite_path" env:"WEEARN_STATE_SQLITE"`
	PostgresDSN string `yaml:"postgres_dsn" env:"POSTGRES_DSN"`
	RedisAddr   string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisDB     int    `yaml:"redis_db" env:"REDIS_DB"`
	RedisKey    string `yaml:"redis_key" env:"WEEARN_REDIS_KEY"`
}

type DatabaseConfig struct {
	// SQLitePath is the recorder database. Empty disables recording.
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
	ChatID   string `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
}

type MetricsConfig struct {
	// ListenAddress is empty when the metrics endpoint is disabled.
	ListenAddress string `yaml:"listen_address" env:"WEEARN_METRICS_ADDR"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"WEEARN_LOG_LEVEL"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides and fills defaults. A missing file is not an error.
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

	// Load .env file if present.
	_ = godotenv.Load()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Market.Interval == 0 {
		c.Market.Interval = market.DefaultInterval
	}
	if c.Market.HistorySize == 0 {
		c.Market.HistorySize = market.DefaultHistorySize
	}
	if c.Market.Entropy == "" {
		c.Market.Entropy = market.EntropyBlock
	}
	if c.AutoClicker.Cadence == 0 {
		c.AutoClicker.Cadence = 200 * time.Millisecond
	}
	if c.AutoClicker.Duration == 0 {
		c.AutoClicker.Duration = 5 * time.Minute
	}
	if c.Cashout.Delay == 0 {
		c.Cashout.Delay = 2 * time.Second
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = storage.BackendFile
	}
	if c.Storage.FilePath == "" {
		c.Storage.FilePath = "data/weearn_state.json"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/weearn_state.db"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/weearn.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.Market.Interval <= 0 {
		return errors.New("market.interval must be positive")
	}
	if c.Market.HistorySize <= 0 {
		return errors.New("market.history_size must be positive")
	}
	if _, ok := market.NewSource(c.Market.Entropy); !ok {
		return fmt.Errorf("market.entropy: unknown mode %q", c.Market.Entropy)
	}
	if c.AutoClicker.Cadence <= 0 {
		return errors.New("autoclicker.cadence must be positive")
	}
	if c.AutoClicker.Duration <= 0 {
		return errors.New("autoclicker.duration must be positive")
	}
	if c.Cashout.SecretCode == "" {
		return errors.New("cashout.secret_code is required")
	}
	if c.Cashout.Delay < 0 {
		return errors.New("cashout.delay must not be negative")
	}
	switch c.Storage.Backend {
	case storage.BackendMemory, storage.BackendFile, storage.BackendSQLite:
	case storage.BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage.postgres_dsn is required for the postgres backend")
		}
	case storage.BackendRedis:
		if c.Storage.RedisAddr == "" {
			return errors.New("storage.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return errors.New("telegram.bot_token and telegram.chat_id must be set together")
	}
	if _, err := c.LogLevel(); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// LogLevel parses log.level.
func (c *Config) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(c.Log.Level))
	return lvl, err
}

// TelegramEnabled reports whether chat delivery is configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// StorageOptions maps the storage section to storage.Options.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:     c.Storage.Backend,
		FilePath:    c.Storage.FilePath,
		SQLitePath:  c.Storage.SQLitePath,
		PostgresDSN: c.Storage.PostgresDSN,
		RedisAddr:   c.Storage.RedisAddr,
		RedisDB:     c.Storage.RedisDB,
		RedisKey:    c.Storage.RedisKey,
	}
}
