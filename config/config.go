// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Billing  BillingConfig  `yaml:"billing"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig configures the invoice and player store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite", "mongo" or "memory"
	DSN    string `yaml:"dsn"`    // sqlite file path or mongodb:// URI
	Name   string `yaml:"name"`   // mongo database name
}

// BillingConfig configures plan billing and the due-invoice sweep.
type BillingConfig struct {
	Timezone      string        `yaml:"timezone"`       // IANA zone that decides "today"
	SweepSchedule string        `yaml:"sweep_schedule"` // cron spec
	SweepOnStart  bool          `yaml:"sweep_on_start"`
	SweepCatchUp  bool          `yaml:"sweep_catch_up"`
	SweepTimeout  time.Duration `yaml:"sweep_timeout"`
	SweepEnabled  *bool         `yaml:"sweep_enabled,omitempty"` // default true
	Currency      string        `yaml:"currency"`
}

// Location resolves Timezone. Validated configs always resolve.
func (b BillingConfig) Location() (*time.Location, error) {
	return time.LoadLocation(b.Timezone)
}

// SweepScheduled reports whether the sweep runs on its schedule.
func (b BillingConfig) SweepScheduled() bool {
	return b.SweepEnabled == nil || *b.SweepEnabled
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references and
// applying environment overrides and defaults.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return finish(&cfg)
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	CLUBDUES_SERVER_HOST           - Server host (default: 0.0.0.0)
//	CLUBDUES_SERVER_PORT           - Server port (default: 8080)
//	CLUBDUES_DATABASE_DRIVER       - sqlite, mongo or memory (default: sqlite)
//	CLUBDUES_DATABASE_DSN          - SQLite path or MongoDB URI (default: clubdues.db)
//	CLUBDUES_DATABASE_NAME         - MongoDB database (default: clubdues)
//	CLUBDUES_BILLING_TIMEZONE      - Club timezone (default: UTC)
//	CLUBDUES_BILLING_SWEEP_SCHEDULE - Cron spec (default: @daily)
//	CLUBDUES_BILLING_SWEEP_CATCH_UP - Create missed months too (default: false)
//	CLUBDUES_LOG_LEVEL             - debug, info, warn, error (default: info)
//	CLUBDUES_LOG_FORMAT            - json or console (default: json)
//	CLUBDUES_METRICS_ENABLED       - Enable /metrics endpoint (default: false)
func LoadFromEnv() (*Config, error) {
	return finish(&Config{})
}

// LoadWithFallback loads path when it exists, otherwise the environment.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

func finish(cfg *Config) (*Config, error) {
	// Environment variables always override file-based configuration.
	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies CLUBDUES_* environment variables to the config.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("CLUBDUES_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("CLUBDUES_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CLUBDUES_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("CLUBDUES_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	// Database configuration
	if v := os.Getenv("CLUBDUES_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("CLUBDUES_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("CLUBDUES_DATABASE_NAME"); v != "" {
		cfg.Database.Name = v
	}

	// Billing configuration
	if v := os.Getenv("CLUBDUES_BILLING_TIMEZONE"); v != "" {
		cfg.Billing.Timezone = v
	}
	if v := os.Getenv("CLUBDUES_BILLING_SWEEP_SCHEDULE"); v != "" {
		cfg.Billing.SweepSchedule = v
	}
	if v := os.Getenv("CLUBDUES_BILLING_SWEEP_ON_START"); v != "" {
		cfg.Billing.SweepOnStart = parseBool(v)
	}
	if v := os.Getenv("CLUBDUES_BILLING_SWEEP_CATCH_UP"); v != "" {
		cfg.Billing.SweepCatchUp = parseBool(v)
	}
	if v := os.Getenv("CLUBDUES_BILLING_SWEEP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Billing.SweepTimeout = d
		}
	}
	if v := os.Getenv("CLUBDUES_BILLING_SWEEP_ENABLED"); v != "" {
		enabled := parseBool(v)
		cfg.Billing.SweepEnabled = &enabled
	}

	// Logging configuration
	if v := os.Getenv("CLUBDUES_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CLUBDUES_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("CLUBDUES_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("CLUBDUES_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		switch cfg.Database.Driver {
		case "sqlite":
			cfg.Database.DSN = "clubdues.db"
		case "mongo":
			cfg.Database.DSN = "mongodb://localhost:27017"
		}
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = "clubdues"
	}

	if cfg.Billing.Timezone == "" {
		cfg.Billing.Timezone = "UTC"
	}
	if cfg.Billing.SweepSchedule == "" {
		cfg.Billing.SweepSchedule = "@daily"
	}
	if cfg.Billing.SweepTimeout == 0 {
		cfg.Billing.SweepTimeout = time.Minute
	}
	if cfg.Billing.Currency == "" {
		cfg.Billing.Currency = "EUR"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	validDrivers := map[string]bool{"sqlite": true, "mongo": true, "memory": true}
	if !validDrivers[cfg.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: sqlite, mongo, memory, got %q", cfg.Database.Driver)
	}

	if _, err := cfg.Billing.Location(); err != nil {
		return fmt.Errorf("billing.timezone %q: %w", cfg.Billing.Timezone, err)
	}
	if _, err := cron.ParseStandard(cfg.Billing.SweepSchedule); err != nil {
		return fmt.Errorf("billing.sweep_schedule %q: %w", cfg.Billing.SweepSchedule, err)
	}
	if cfg.Billing.SweepTimeout < 0 {
		return fmt.Errorf("billing.sweep_timeout must not be negative")
	}
	if len(cfg.Billing.Currency) != 3 {
		return fmt.Errorf("billing.currency must be a 3-letter code, got %q", cfg.Billing.Currency)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	return nil
}
