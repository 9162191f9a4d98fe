// Package config handles configuration loading for whale-watcher.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/whalewatch/whale-watcher/internal/apperrors"
)

// Config holds all configuration for the application.
type Config struct {
	UserAgent string          `mapstructure:"user_agent"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	DateRange DateRangeConfig `mapstructure:"date_range"`
	Whales    []WhaleConfig   `mapstructure:"whales"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// RateLimitConfig bounds outbound traffic to the SEC EDGAR archive.
type RateLimitConfig struct {
	RequestsPerSecond int `mapstructure:"requests_per_second"`
	MaxRetries        int `mapstructure:"max_retries"`
}

// DateRangeConfig limits which reporting years are ingested.
type DateRangeConfig struct {
	StartYear int `mapstructure:"start_year"`
	EndYear   int `mapstructure:"end_year"`
}

// WhaleConfig describes one tracked institutional investor.
type WhaleConfig struct {
	CIK         string `mapstructure:"cik"`
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Category    string `mapstructure:"category"`
	Enabled     bool   `mapstructure:"enabled"`
}

// DatabaseConfig holds database-specific configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig holds the query API server configuration.
type ServerConfig struct {
	Host        string   `mapstructure:"host"`
	Port        string   `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"` // "debug", "info", "warn", "error"
}

// Addr returns the combined host:port for the API server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

// Load reads configuration from the given YAML file, with
// WHALEWATCHER_-prefixed environment variables taking precedence.
// A .env file in the working directory is loaded first if present.
// If path is empty, ./config/whales.yaml is tried and defaults apply
// when no file exists.
func Load(path string) (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("whales")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("WHALEWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file found in the search path: defaults + env vars.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the loaded configuration for values the pipeline cannot
// work with. Whale CIKs are normalized in place.
func (c *Config) Validate() error {
	if c.UserAgent == "" {
		return fmt.Errorf("%w: user_agent", apperrors.ErrMissingRequiredField)
	}
	if c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("%w: rate_limit.requests_per_second must be positive", apperrors.ErrMissingRequiredField)
	}
	if c.DateRange.StartYear > c.DateRange.EndYear {
		return fmt.Errorf("%w: %d-%d", apperrors.ErrInvalidYearRange, c.DateRange.StartYear, c.DateRange.EndYear)
	}
	for i := range c.Whales {
		cik, err := NormalizeCIK(c.Whales[i].CIK)
		if err != nil {
			return fmt.Errorf("whale %q: %w", c.Whales[i].Name, err)
		}
		c.Whales[i].CIK = cik
	}
	return nil
}

// EnabledWhales returns the whales with the enabled flag set.
func (c *Config) EnabledWhales() []WhaleConfig {
	enabled := make([]WhaleConfig, 0, len(c.Whales))
	for _, w := range c.Whales {
		if w.Enabled {
			enabled = append(enabled, w)
		}
	}
	return enabled
}

// WhaleByCIK returns the whale configured with the given CIK, matching with
// or without leading zeros. Returns nil if no whale matches.
func (c *Config) WhaleByCIK(cik string) *WhaleConfig {
	normalized, err := NormalizeCIK(cik)
	if err != nil {
		return nil
	}
	for i := range c.Whales {
		if c.Whales[i].CIK == normalized {
			return &c.Whales[i]
		}
	}
	return nil
}

// WhaleByName returns the whale with the given name, case-insensitive.
// Returns nil if no whale matches.
func (c *Config) WhaleByName(name string) *WhaleConfig {
	for i := range c.Whales {
		if strings.EqualFold(c.Whales[i].Name, name) {
			return &c.Whales[i]
		}
	}
	return nil
}

// NormalizeCIK pads a CIK to the canonical ten-digit zero-padded form.
func NormalizeCIK(cik string) (string, error) {
	trimmed := strings.TrimSpace(cik)
	if trimmed == "" || len(trimmed) > 10 {
		return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidCIK, cik)
	}
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidCIK, cik)
		}
	}
	return strings.Repeat("0", 10-len(trimmed)) + trimmed, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("user_agent", "")
	v.SetDefault("rate_limit.requests_per_second", 5)
	v.SetDefault("rate_limit.max_retries", 3)
	v.SetDefault("date_range.start_year", 2024)
	v.SetDefault("date_range.end_year", 2025)
	v.SetDefault("database.path", "./data/whale_watcher.db")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "5002")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("logging.level", "info")
}
