package config

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Provider hands out the current configuration and allows swapping it at
// runtime. Databases already initialized keep the settings they started with.
type Provider struct {
	current atomic.Pointer[Config]
}

func NewProvider(cfg *Config) *Provider {
	p := &Provider{}
	p.current.Store(cfg)
	return p
}

func (p *Provider) Get() *Config { return p.current.Load() }

func (p *Provider) Update(cfg *Config) { p.current.Store(cfg) }

// Reload reads the file the current configuration came from and, if it is
// valid, installs it in provider.
func Reload(provider *Provider, logger *slog.Logger) error {
	source := provider.Get().Source
	if source == "" {
		return fmt.Errorf("config: current configuration has no source file")
	}

	logger.Debug("Reload: Attempting to read configuration", "path", source)
	newCfg, err := Load(source, logger)
	if err != nil {
		logger.Error("Reload: Failed to load configuration", "path", source, "error", err)
		return fmt.Errorf("failed to reload configuration from %s: %w", source, err)
	}

	provider.Update(newCfg)
	logger.Info("Reload: Configuration successfully reloaded and updated in provider", "path", source)
	return nil
}
