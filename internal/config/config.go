// Package config loads server configuration from a YAML file with
// environment variable overrides. A missing file is not an error; the
// built-in defaults apply and the environment can override them, so the
// server runs with no configuration at all.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full server configuration.
type Config struct {
	Port string `yaml:"port"`

	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`

	Cache struct {
		URL string `yaml:"url"`
		TTL string `yaml:"ttl"` // Go duration string, e.g. "30s"
	} `yaml:"cache"`

	Solver struct {
		Guess     float64 `yaml:"guess"`
		Tolerance float64 `yaml:"tolerance"`
	} `yaml:"solver"`

	Limits struct {
		MaxSeriesLen   int     `yaml:"max_series_len"`
		MaxAmount      float64 `yaml:"max_amount"`
		MaxTermPeriods int     `yaml:"max_term_periods"`
	} `yaml:"limits"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{Port: "8080"}
	cfg.Cache.TTL = "30s"
	cfg.Solver.Guess = 0.1
	cfg.Solver.Tolerance = 1e-7
	cfg.Limits.MaxSeriesLen = 10000
	cfg.Limits.MaxAmount = 1e12
	cfg.Limits.MaxTermPeriods = 1200
	return cfg
}

// Load reads the YAML file at path, applies environment overrides, and
// validates the result. An empty path or missing file falls back to
// defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read config: %w", err)
			}
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("unmarshal config: %w", err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Cache.URL = v
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		c.Cache.TTL = v
	}
}

func (c *Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if _, err := time.ParseDuration(c.Cache.TTL); err != nil {
		return fmt.Errorf("parse cache ttl: %w", err)
	}
	if c.Solver.Tolerance <= 0 {
		return fmt.Errorf("solver tolerance must be positive")
	}
	if c.Solver.Guess <= -1 {
		return fmt.Errorf("solver guess must be greater than -1")
	}
	if c.Limits.MaxSeriesLen < 2 {
		return fmt.Errorf("max_series_len must be at least 2")
	}
	if c.Limits.MaxAmount <= 0 {
		return fmt.Errorf("max_amount must be positive")
	}
	if c.Limits.MaxTermPeriods < 1 {
		return fmt.Errorf("max_term_periods must be at least 1")
	}
	return nil
}

// CacheTTL returns the parsed cache TTL. Call after Load has validated
// the configuration.
func (c *Config) CacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 30 * time.Second
	}
	return d
}
