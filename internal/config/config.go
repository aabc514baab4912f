// Package config loads engine tuning parameters from an optional YAML file
// with environment variable overrides. Every knob has a default; a missing
// file is not an error.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config carries the engine tuning knobs.
type Config struct {
	// PromotionThreshold is the interpreted invocation count after which a
	// stable call site becomes a compilation candidate.
	PromotionThreshold int `yaml:"promotion_threshold" env:"SFEX_PROMOTION_THRESHOLD"`

	// ObserverCeiling bounds observer invocations within one propagation
	// pass before the recursion guard fires.
	ObserverCeiling int `yaml:"observer_ceiling" env:"SFEX_OBSERVER_CEILING"`

	// Workers is the background task pool size.
	Workers int `yaml:"workers" env:"SFEX_WORKERS"`

	// ProfileStore is the path of the persistent call-site profile
	// database. Empty disables persistence.
	ProfileStore string `yaml:"profile_store" env:"SFEX_PROFILE_STORE"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"SFEX_LOG_LEVEL"`
}

// Default returns the documented defaults.
func Default() Config {
	return Config{
		PromotionThreshold: 100,
		ObserverCeiling:    1000,
		Workers:            4,
		LogLevel:           "warn",
	}
}

// Load reads path (when non-empty and present), then applies environment
// overrides on top.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
