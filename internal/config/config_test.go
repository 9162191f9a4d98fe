package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/whalewatch/whale-watcher/internal/apperrors"
	"github.com/whalewatch/whale-watcher/internal/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "whales.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

// TestLoad tests YAML loading, defaults, and validation.
func TestLoad(t *testing.T) {
	t.Run("loads a full config file", func(t *testing.T) {
		path := writeConfigFile(t, `
user_agent: "Research admin@example.com"
rate_limit:
  requests_per_second: 8
  max_retries: 5
date_range:
  start_year: 2023
  end_year: 2025
database:
  path: /tmp/test.db
whales:
  - cik: "1067983"
    name: Berkshire Hathaway
    category: conglomerate
    enabled: true
  - cik: "1649339"
    name: Scion Asset Management
    category: hedge_fund
    enabled: false
`)

		cfg, err := config.Load(path)
		if err != nil {
			t.Fatalf("Load() returned unexpected error: %v", err)
		}

		if cfg.UserAgent != "Research admin@example.com" {
			t.Errorf("Unexpected user agent: %q", cfg.UserAgent)
		}
		if cfg.RateLimit.RequestsPerSecond != 8 || cfg.RateLimit.MaxRetries != 5 {
			t.Errorf("Unexpected rate limit config: %+v", cfg.RateLimit)
		}
		if cfg.DateRange.StartYear != 2023 || cfg.DateRange.EndYear != 2025 {
			t.Errorf("Unexpected date range: %+v", cfg.DateRange)
		}
		if len(cfg.Whales) != 2 {
			t.Fatalf("Expected 2 whales, got %d", len(cfg.Whales))
		}
		// CIKs are normalized at load time.
		if cfg.Whales[0].CIK != "0001067983" {
			t.Errorf("Expected normalized CIK, got %q", cfg.Whales[0].CIK)
		}
	})

	t.Run("applies defaults for unset values", func(t *testing.T) {
		path := writeConfigFile(t, `user_agent: "Research admin@example.com"`)

		cfg, err := config.Load(path)
		if err != nil {
			t.Fatalf("Load() returned unexpected error: %v", err)
		}

		if cfg.RateLimit.RequestsPerSecond != 5 {
			t.Errorf("Expected default 5 requests per second, got %d", cfg.RateLimit.RequestsPerSecond)
		}
		if cfg.Database.Path != "./data/whale_watcher.db" {
			t.Errorf("Unexpected default database path: %q", cfg.Database.Path)
		}
		if cfg.Server.Addr() != "localhost:5002" {
			t.Errorf("Unexpected default server address: %q", cfg.Server.Addr())
		}
	})

	t.Run("rejects a missing user agent", func(t *testing.T) {
		path := writeConfigFile(t, `
rate_limit:
  requests_per_second: 5
`)

		_, err := config.Load(path)
		if !errors.Is(err, apperrors.ErrMissingRequiredField) {
			t.Errorf("Expected ErrMissingRequiredField, got %v", err)
		}
	})

	t.Run("rejects an inverted year range", func(t *testing.T) {
		path := writeConfigFile(t, `
user_agent: "Research admin@example.com"
date_range:
  start_year: 2025
  end_year: 2024
`)

		_, err := config.Load(path)
		if !errors.Is(err, apperrors.ErrInvalidYearRange) {
			t.Errorf("Expected ErrInvalidYearRange, got %v", err)
		}
	})

	t.Run("rejects an invalid whale CIK", func(t *testing.T) {
		path := writeConfigFile(t, `
user_agent: "Research admin@example.com"
whales:
  - cik: "not-a-cik"
    name: Broken
    enabled: true
`)

		_, err := config.Load(path)
		if !errors.Is(err, apperrors.ErrInvalidCIK) {
			t.Errorf("Expected ErrInvalidCIK, got %v", err)
		}
	})
}

// TestNormalizeCIK tests CIK canonicalization.
//
// WHY: CIKs arrive from config, CLI flags and the SEC in different widths.
// Every boundary relies on the ten-digit zero-padded form being canonical.
func TestNormalizeCIK(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "short cik is padded", input: "1067983", want: "0001067983"},
		{name: "already normalized", input: "0001067983", want: "0001067983"},
		{name: "surrounding whitespace", input: " 1067983 ", want: "0001067983"},
		{name: "empty", input: "", wantErr: true},
		{name: "non-digits", input: "106X983", wantErr: true},
		{name: "too long", input: "12345678901", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := config.NormalizeCIK(tt.input)
			if tt.wantErr {
				if !errors.Is(err, apperrors.ErrInvalidCIK) {
					t.Errorf("Expected ErrInvalidCIK, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeCIK(%q) returned unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeCIK(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestConfig_WhaleLookups tests name and CIK lookup helpers.
func TestConfig_WhaleLookups(t *testing.T) {
	cfg := &config.Config{
		Whales: []config.WhaleConfig{
			{CIK: "0001067983", Name: "Berkshire Hathaway", Enabled: true},
			{CIK: "0001649339", Name: "Scion Asset Management", Enabled: false},
		},
	}

	t.Run("finds a whale by unpadded CIK", func(t *testing.T) {
		w := cfg.WhaleByCIK("1067983")
		if w == nil || w.Name != "Berkshire Hathaway" {
			t.Errorf("Unexpected lookup result: %+v", w)
		}
	})

	t.Run("finds a whale by name case-insensitively", func(t *testing.T) {
		w := cfg.WhaleByName("berkshire hathaway")
		if w == nil || w.CIK != "0001067983" {
			t.Errorf("Unexpected lookup result: %+v", w)
		}
	})

	t.Run("returns nil for unknown whales", func(t *testing.T) {
		if w := cfg.WhaleByCIK("42"); w != nil {
			t.Errorf("Expected nil, got %+v", w)
		}
		if w := cfg.WhaleByName("Unknown"); w != nil {
			t.Errorf("Expected nil, got %+v", w)
		}
	})

	t.Run("enabled whales excludes disabled ones", func(t *testing.T) {
		enabled := cfg.EnabledWhales()
		if len(enabled) != 1 || enabled[0].Name != "Berkshire Hathaway" {
			t.Errorf("Unexpected enabled set: %+v", enabled)
		}
	})
}
