package config

import (
	"fmt"
	"strings"
	"time"
)

var cacheLevels = map[string]bool{"small": true, "medium": true, "large": true, "very-large": true}

func Validate(cfg *Config) error {
	if err := validateStorage(&cfg.Storage); err != nil {
		return fmt.Errorf("storage config validation failed: %w", err)
	}
	if err := validateEngine(&cfg.Engine); err != nil {
		return fmt.Errorf("engine config validation failed: %w", err)
	}
	if err := validateRetry(&cfg.Retry, cfg.Engine.BusyTimeout.Duration); err != nil {
		return fmt.Errorf("retry config validation failed: %w", err)
	}
	if err := validateCache(&cfg.Cache); err != nil {
		return fmt.Errorf("cache config validation failed: %w", err)
	}
	if err := validateLog(&cfg.Log); err != nil {
		return fmt.Errorf("log config validation failed: %w", err)
	}
	return nil
}

func validateStorage(s *Storage) error {
	if s.Dir == "" {
		return fmt.Errorf("dir cannot be empty")
	}
	return nil
}

func validateEngine(e *Engine) error {
	if e.Driver == "" {
		return fmt.Errorf("driver cannot be empty")
	}
	if e.BusyTimeout.Duration < 0 {
		return fmt.Errorf("busy_timeout cannot be negative, got %s", e.BusyTimeout)
	}
	return nil
}

// validateRetry bounds the worst-case stall of a busy statement. The engine
// waits up to busyTimeout on every attempt.
func validateRetry(r *Retry, busyTimeout time.Duration) error {
	if r.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", r.MaxAttempts)
	}
	if r.Backoff.Duration < 0 {
		return fmt.Errorf("backoff cannot be negative, got %s", r.Backoff)
	}
	worst := time.Duration(r.MaxAttempts)*busyTimeout + time.Duration(r.MaxAttempts-1)*r.Backoff.Duration
	if worst > time.Minute {
		return fmt.Errorf("max_attempts * (busy_timeout + backoff) allows a %s stall, limit is 1m", worst)
	}
	return nil
}

func validateCache(c *Cache) error {
	if !c.Enabled {
		return nil
	}
	if !cacheLevels[c.Level] {
		return fmt.Errorf("unknown level %q", c.Level)
	}
	if c.TTL.Duration <= 0 {
		return fmt.Errorf("ttl must be positive when the cache is enabled")
	}
	return nil
}

func validateLog(l *Log) error {
	switch l.Format {
	case LogFormatJSON, LogFormatText:
	default:
		return fmt.Errorf("unknown format %q", l.Format)
	}
	if l.Database == "" {
		return nil
	}
	if i := strings.LastIndexByte(l.Database, '.'); i <= 0 || i == len(l.Database)-1 {
		return fmt.Errorf("database must be name.ext, got %q", l.Database)
	}
	if l.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1, got %d", l.BatchSize)
	}
	if l.FlushInterval.Duration <= 0 {
		return fmt.Errorf("flush_interval must be positive")
	}
	return nil
}
