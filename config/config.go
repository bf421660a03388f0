// Package config loads client configuration from an optional YAML file and
// the environment, with environment values taking precedence.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults applied when neither file nor environment provides a value.
const (
	DefaultFeedURL            = "ws://localhost:8000/ws/live"
	DefaultReconnectFloorMS   = 3000
	DefaultReconnectCeilingMS = 30000
	DefaultReconnectGrowth    = 1.5
	DefaultMetricsAddr        = ":9109"
)

// FeedConfig controls the live feed channel.
type FeedConfig struct {
	URL                string  `yaml:"url" validate:"omitempty,uri"`
	ReconnectFloorMS   int     `yaml:"reconnect_floor_ms" validate:"omitempty,gt=0"`
	ReconnectCeilingMS int     `yaml:"reconnect_ceiling_ms" validate:"omitempty,gtefield=ReconnectFloorMS"`
	ReconnectGrowth    float64 `yaml:"reconnect_growth" validate:"omitempty,gt=1"`
}

// ReconnectFloor returns the initial reconnect delay.
func (c FeedConfig) ReconnectFloor() time.Duration {
	return time.Duration(c.ReconnectFloorMS) * time.Millisecond
}

// ReconnectCeiling returns the maximum reconnect delay.
func (c FeedConfig) ReconnectCeiling() time.Duration {
	return time.Duration(c.ReconnectCeilingMS) * time.Millisecond
}

// MetricsConfig controls the local metrics endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port|startswith=:"`
}

// AppConfig is the root configuration document.
type AppConfig struct {
	Feed    FeedConfig    `yaml:"feed"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// Load reads configuration in three layers: a .env file when present, the
// YAML file at path when path is non-empty, then environment overrides.
// Missing files are not errors; defaults fill any remaining gaps.
func Load(path string) (*AppConfig, error) {
	// .env is a developer convenience; absence is the normal case.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *AppConfig) {
	if v := os.Getenv("FEED_URL"); v != "" {
		cfg.Feed.URL = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Feed.URL == "" {
		cfg.Feed.URL = DefaultFeedURL
	}
	if cfg.Feed.ReconnectFloorMS == 0 {
		cfg.Feed.ReconnectFloorMS = DefaultReconnectFloorMS
	}
	if cfg.Feed.ReconnectCeilingMS == 0 {
		cfg.Feed.ReconnectCeilingMS = DefaultReconnectCeilingMS
	}
	if cfg.Feed.ReconnectGrowth == 0 {
		cfg.Feed.ReconnectGrowth = DefaultReconnectGrowth
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = DefaultMetricsAddr
	}
}
