package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// Decode overlays the TOML in data on the defaults and validates the result.
func Decode(data []byte) (*Config, error) {
	cfg := NewDefaultConfig()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config: unknown keys %v", undecoded)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Load reads the TOML file at path. An empty path yields the defaults.
func Load(path string, logger *slog.Logger) (*Config, error) {
	if path == "" {
		cfg := NewDefaultConfig()
		return cfg, Validate(cfg)
	}

	logger.Info("loading configuration", "path", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	cfg, err := Decode(data)
	if err != nil {
		logger.Error("failed to load configuration", "path", path, "error", err)
		return nil, err
	}
	cfg.Source = path
	return cfg, nil
}
