package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
	if cfg.Log.Trace {
		t.Error("statement tracing should be off by default")
	}
	if cfg.Engine.Driver != "zombiezen" {
		t.Errorf("default driver = %q, want zombiezen", cfg.Engine.Driver)
	}
}

func TestDecodeOverlaysDefaults(t *testing.T) {
	data := []byte(`
[storage]
dir = "/var/lib/app"
seed_dir = "seeds"

[engine]
busy_timeout = "250ms"

[retry]
max_attempts = 3
backoff = "10ms"

[cache]
enabled = true
level = "medium"
ttl = "30s"

[log]
level = "debug"
format = "text"
trace = true
`)

	cfg, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}

	if cfg.Storage.Dir != "/var/lib/app" || cfg.Storage.SeedDir != "seeds" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if !cfg.Storage.ExcludeFromBackup {
		t.Error("unset exclude_from_backup should keep the default true")
	}
	if cfg.Engine.Driver != "zombiezen" {
		t.Errorf("unset driver should keep the default, got %q", cfg.Engine.Driver)
	}
	if cfg.Engine.BusyTimeout.Duration != 250*time.Millisecond {
		t.Errorf("busy_timeout = %v", cfg.Engine.BusyTimeout)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.Backoff.Duration != 10*time.Millisecond {
		t.Errorf("retry = %+v", cfg.Retry)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Level != "medium" || cfg.Cache.TTL.Duration != 30*time.Second {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Log.Level.Level != slog.LevelDebug || cfg.Log.Format != LogFormatText || !cfg.Log.Trace {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestDecodeErrors(t *testing.T) {
	testCases := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"BadDuration", "[engine]\nbusy_timeout = \"soon\"", "invalid duration"},
		{"BadLevel", "[log]\nlevel = \"loud\"", "unmarshal"},
		{"UnknownKey", "[storage]\npath = \"x\"", "unknown keys"},
		{"InvalidValue", "[retry]\nmax_attempts = 0", "max_attempts"},
		{"Syntax", "[storage", "unmarshal"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.data))
			if err == nil {
				t.Fatal("Decode() should fail")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not contain %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load("", discardLogger())
	if err != nil || cfg.Source != "" {
		t.Fatalf("Load(\"\") = %+v, %v; want defaults", cfg, err)
	}

	path := filepath.Join(t.TempDir(), "sqlitemanager.toml")
	if err := os.WriteFile(path, []byte("[storage]\ndir = \"db\"\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	cfg, err = Load(path, discardLogger())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Source != path || cfg.Storage.Dir != "db" {
		t.Errorf("Load() = source %q dir %q", cfg.Source, cfg.Storage.Dir)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml"), discardLogger()); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}

func TestReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sqlitemanager.toml")
	write := func(content string) {
		t.Helper()
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("WriteFile() failed: %v", err)
		}
	}

	write("[log]\ntrace = false\n")
	cfg, err := Load(path, discardLogger())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	provider := NewProvider(cfg)

	write("[log]\ntrace = true\n")
	if err := Reload(provider, discardLogger()); err != nil {
		t.Fatalf("Reload() failed: %v", err)
	}
	if !provider.Get().Log.Trace {
		t.Error("Reload() did not install the new configuration")
	}

	write("[log]\nformat = \"xml\"\n")
	if err := Reload(provider, discardLogger()); err == nil {
		t.Fatal("Reload() of an invalid file should fail")
	}
	if !provider.Get().Log.Trace || provider.Get().Log.Format != LogFormatJSON {
		t.Error("failed Reload() replaced the configuration")
	}

	if err := Reload(NewProvider(NewDefaultConfig()), discardLogger()); err == nil {
		t.Error("Reload() without a source file should fail")
	}
}
