package config

import (
	"log/slog"
	"time"
)

const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// NewDefaultConfig creates a new Config with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Storage: Storage{
			Dir:               "data",
			SeedDir:           "",
			ExcludeFromBackup: true,
		},
		Engine: Engine{
			Driver:      "zombiezen",
			BusyTimeout: Duration{Duration: 5 * time.Second},
		},
		Retry: Retry{
			MaxAttempts: 10,
			Backoff:     Duration{Duration: 50 * time.Millisecond},
		},
		Cache: Cache{
			Enabled: false,
			Level:   "small",
			TTL:     Duration{Duration: 1 * time.Minute},
		},
		Log: Log{
			Level:  LogLevel{Level: slog.LevelInfo},
			Format: LogFormatJSON,
			Trace:  false,

			Database:      "",
			BatchSize:     100,
			FlushInterval: Duration{Duration: 1 * time.Second},
		},
	}
}
