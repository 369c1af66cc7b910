package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/chamira/SQLiteManager/config"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(config.Log{Level: config.LogLevel{Level: slog.LevelInfo}, Format: config.LogFormatJSON}, &buf)

	l.Debug("hidden")
	l.Info("query", "sql", "SELECT 1", "rows", 1)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("output is not JSON: %v: %q", err, lines[0])
	}
	if rec["sql"] != "SELECT 1" {
		t.Errorf("sql = %v, want SELECT 1", rec["sql"])
	}
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	l := New(config.Log{Level: config.LogLevel{Level: slog.LevelDebug}, Format: config.LogFormatText}, &buf)

	l.Debug("opened", "db", "app.db")
	out := buf.String()
	if !strings.Contains(out, "db=app.db") || !strings.Contains(out, "level=DEBUG") {
		t.Errorf("unexpected text output %q", out)
	}
	if strings.Contains(out, "time=") {
		t.Errorf("time attribute should be removed: %q", out)
	}
}

func TestDiscard(t *testing.T) {
	if Discard().Enabled(context.Background(), slog.LevelError) {
		t.Error("Discard() logger should not be enabled at any level")
	}
}

func TestMessageFormatter(t *testing.T) {
	testCases := []struct {
		name          string
		componentName string
		message       string
		method        func(*MessageFormatter, string) string
	}{
		{"Ok", "query", "1 row", (*MessageFormatter).Ok},
		{"Fail", "batch", "statement 3 failed", (*MessageFormatter).Fail},
		{"Warn", "provision", "backup exclusion unsupported", (*MessageFormatter).Warn},
		{"Seed", "provision", "copied app.db", (*MessageFormatter).Seed},
		{"EmptyComponent", "", "a message without a component", (*MessageFormatter).Ok},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			formatter := NewMessageFormatter().WithComponent(tc.componentName, "")
			got := tc.method(formatter, tc.message)
			if tc.componentName != "" && !strings.Contains(got, tc.componentName) {
				t.Errorf("output %q does not contain component %q", got, tc.componentName)
			}
			if !strings.Contains(got, tc.message) {
				t.Errorf("output %q does not contain message %q", got, tc.message)
			}
		})
	}
}
