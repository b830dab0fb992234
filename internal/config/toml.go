// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Scoring ScoringConfig      `toml:"scoring"`
	Samples SamplesConfig      `toml:"samples"`
	Weights map[string]float64 `toml:"weights"`
}

// ScoringConfig maps scoring-related settings.
type ScoringConfig struct {
	MaxLengthMultiplier *float64 `toml:"max-length-multiplier"`
	Seed                *int64   `toml:"seed"`
	Workers             *int     `toml:"workers"`
	ParallelMetrics     *bool    `toml:"parallel-metrics"`
}

// SamplesConfig maps sample input settings.
type SamplesConfig struct {
	File   *string `toml:"file"`
	Random *int    `toml:"random"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
