// Package config loads the settings shared by the bot and the dashboard
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Session backends
const (
	SessionBackendMemory = "memory"
	SessionBackendSQLite = "sqlite"
)

// Config holds all application configuration
type Config struct {
	TelegramToken string `yaml:"telegram_token"`
	WeatherAPIKey string `yaml:"weather_api_key"`
	WeatherAPIURL string `yaml:"weather_api_url"`
	OpenAIAPIKey  string `yaml:"openai_api_key"`

	MaxMessageLength int   `yaml:"max_message_length"`
	ParallelFetch    *bool `yaml:"parallel_fetch"`

	SessionBackend       string        `yaml:"session_backend"`
	SQLiteDSN            string        `yaml:"sqlite_dsn"`
	SessionTTL           time.Duration `yaml:"session_ttl"`
	SessionSweepSchedule string        `yaml:"session_sweep_schedule"`

	DashboardAddr string `yaml:"dashboard_addr"`
}

// GetConfigPath returns the config file path from environment or default
func GetConfigPath() string {
	if path := os.Getenv("ROUTE_WEATHER_CONFIG"); path != "" {
		return path
	}
	return "./config.yaml"
}

// Load reads the YAML file at path (a missing file is fine), loads .env into the
// environment, then applies environment overrides and defaults
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Printf("Config file %s not found, using environment and defaults", path)
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	applyEnvironmentOverrides(cfg)
	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func applyEnvironmentOverrides(cfg *Config) {
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.TelegramToken = token
	} else if token := os.Getenv("BOT_TOKEN"); token != "" {
		cfg.TelegramToken = token
	}
	if key := os.Getenv("WEATHER_API_KEY"); key != "" {
		cfg.WeatherAPIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.OpenAIAPIKey = key
	}
	if addr := os.Getenv("DASHBOARD_ADDR"); addr != "" {
		cfg.DashboardAddr = addr
	}
}

func applyDefaults(cfg *Config) {
	if cfg.WeatherAPIURL == "" {
		cfg.WeatherAPIURL = "https://api.openweathermap.org/data/2.5"
	}
	if cfg.MaxMessageLength == 0 {
		cfg.MaxMessageLength = 4096
	}
	if cfg.ParallelFetch == nil {
		parallel := true
		cfg.ParallelFetch = &parallel
	}
	if cfg.SessionBackend == "" {
		cfg.SessionBackend = SessionBackendMemory
	}
	if cfg.SQLiteDSN == "" {
		cfg.SQLiteDSN = "file:sessions?mode=memory&cache=shared"
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.SessionSweepSchedule == "" {
		cfg.SessionSweepSchedule = "@every 1m"
	}
	if cfg.DashboardAddr == "" {
		cfg.DashboardAddr = ":5000"
	}
}

func validate(cfg *Config) error {
	if cfg.MaxMessageLength < 0 {
		return fmt.Errorf("max_message_length must not be negative, got %d", cfg.MaxMessageLength)
	}
	if cfg.SessionBackend != SessionBackendMemory && cfg.SessionBackend != SessionBackendSQLite {
		return fmt.Errorf("session_backend must be %q or %q, got %q", SessionBackendMemory, SessionBackendSQLite, cfg.SessionBackend)
	}
	if cfg.SessionTTL < 0 {
		return fmt.Errorf("session_ttl must not be negative, got %s", cfg.SessionTTL)
	}
	return nil
}

// Parallel reports whether the cities of a route are fetched concurrently
func (c *Config) Parallel() bool {
	return c.ParallelFetch == nil || *c.ParallelFetch
}

// ValidateBot checks the secrets the Telegram bot needs
func (c *Config) ValidateBot() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("telegram token is required (TELEGRAM_BOT_TOKEN or BOT_TOKEN)")
	}
	if c.WeatherAPIKey == "" {
		return fmt.Errorf("weather API key is required (WEATHER_API_KEY)")
	}
	return nil
}

// ValidateDashboard checks the secrets the dashboard needs
func (c *Config) ValidateDashboard() error {
	if c.WeatherAPIKey == "" {
		return fmt.Errorf("weather API key is required (WEATHER_API_KEY)")
	}
	return nil
}
