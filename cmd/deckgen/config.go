package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tushar1003/deckgen/perfcache"
)

// AppConfig is the top-level service configuration.
type AppConfig struct {
	Cache         perfcache.Config `json:"cache"`
	NATS          NATSConfig       `json:"nats"`
	HTTPPort      int              `json:"http_port"`
	MetricsPort   int              `json:"metrics_port"`
	StatsInterval time.Duration    `json:"stats_interval"`
}

// NATSConfig configures the optional shared cache tier.
type NATSConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Bucket  string `json:"bucket"`
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Cache: perfcache.DefaultConfig(),
		NATS: NATSConfig{
			Enabled: false,
			URL:     "nats://localhost:4222",
			Bucket:  "deckgen-cache",
		},
		HTTPPort:      8080,
		MetricsPort:   9090,
		StatsInterval: 5 * time.Minute,
	}
}

// loadConfig reads the configuration file, layering it over the defaults.
// An empty path yields the defaults unchanged.
func loadConfig(path string) (AppConfig, error) {
	cfg := defaultAppConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *AppConfig) Validate() error {
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port: %d", c.HTTPPort)
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.MetricsPort)
	}
	if c.MetricsPort != 0 && c.MetricsPort == c.HTTPPort {
		return fmt.Errorf("metrics port %d collides with http port", c.MetricsPort)
	}
	if c.NATS.Enabled {
		if c.NATS.URL == "" {
			return fmt.Errorf("nats url is required when nats is enabled")
		}
		if c.NATS.Bucket == "" {
			return fmt.Errorf("nats bucket is required when nats is enabled")
		}
	}
	if c.StatsInterval < 0 {
		return fmt.Errorf("stats interval cannot be negative")
	}
	return nil
}

// UnmarshalJSON accepts stats_interval as a Go duration string in addition
// to a nanosecond integer.
func (c *AppConfig) UnmarshalJSON(data []byte) error {
	type Alias AppConfig
	aux := &struct {
		StatsInterval any `json:"stats_interval"`
		*Alias
	}{Alias: (*Alias)(c)}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	switch v := aux.StatsInterval.(type) {
	case nil:
		// keep the default
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration for stats_interval: %w", err)
		}
		c.StatsInterval = d
	case float64:
		c.StatsInterval = time.Duration(v)
	default:
		return fmt.Errorf("invalid type for stats_interval: expected duration string or number")
	}
	return nil
}
