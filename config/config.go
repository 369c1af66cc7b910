package config

import (
	"fmt"
	"log/slog"
	"time"
)

type Config struct {
	Storage Storage `toml:"storage"`
	Engine  Engine  `toml:"engine"`
	Retry   Retry   `toml:"retry"`
	Cache   Cache   `toml:"cache"`
	Log     Log     `toml:"log"`

	// Source is the file the config was loaded from, empty for defaults.
	Source string `toml:"-"`
}

type Storage struct {
	// Dir is the writable directory holding the database files.
	Dir string `toml:"dir"`
	// SeedDir holds seed databases copied on first use. Optional.
	SeedDir           string `toml:"seed_dir"`
	ExcludeFromBackup bool   `toml:"exclude_from_backup"`
}

type Engine struct {
	Driver      string   `toml:"driver"`
	BusyTimeout Duration `toml:"busy_timeout"`
}

type Retry struct {
	MaxAttempts int      `toml:"max_attempts"`
	Backoff     Duration `toml:"backoff"`
}

type Cache struct {
	Enabled bool `toml:"enabled"`
	// Level is one of small, medium, large, very-large.
	Level string   `toml:"level"`
	TTL   Duration `toml:"ttl"`
}

type Log struct {
	Level LogLevel `toml:"level"`
	// Format is json or text.
	Format string `toml:"format"`
	// Trace enables per-statement logging for new databases.
	Trace bool `toml:"trace"`

	// Database, when set, is a "name.ext" identity in the pool that also
	// receives log records, written in batches.
	Database      string   `toml:"database"`
	BatchSize     int      `toml:"batch_size"`
	FlushInterval Duration `toml:"flush_interval"`
}

// Duration is a time.Duration written as a string ("500ms") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LogLevel is a slog.Level written by name ("info") in TOML.
type LogLevel struct {
	slog.Level
}

func (l *LogLevel) UnmarshalText(text []byte) error {
	return l.Level.UnmarshalText(text)
}

func (l LogLevel) MarshalText() ([]byte, error) {
	return l.Level.MarshalText()
}
