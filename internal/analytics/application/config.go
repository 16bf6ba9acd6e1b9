package application

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config tunes the summary pipeline.
type Config struct {
	// Timezone is the IANA zone used for today/yesterday bucketing.
	Timezone string `yaml:"timezone"`
	// Currency is the label attached to exported monetary figures.
	Currency string `yaml:"currency"`
	// CacheTTLSeconds bounds how stale a cached summary may get.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Timezone:        "UTC",
		Currency:        "GHS",
		CacheTTLSeconds: 60,
	}
}

// LoadConfig starts from defaults, overlays an optional yaml file and
// then env vars. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("analytics config: parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("analytics config: read %s: %w", path, err)
		}
	}
	if v := os.Getenv("ANALYTICS_TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv("ANALYTICS_CURRENCY"); v != "" {
		cfg.Currency = v
	}
	if v := os.Getenv("ANALYTICS_CACHE_TTL_SECONDS"); v != "" {
		ttl, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("analytics config: ANALYTICS_CACHE_TTL_SECONDS: %w", err)
		}
		cfg.CacheTTLSeconds = ttl
	}
	if cfg.CacheTTLSeconds < 0 {
		cfg.CacheTTLSeconds = 0
	}
	return cfg, nil
}

// Location resolves the configured timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CacheTTL returns the TTL as a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}
