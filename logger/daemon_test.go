package logger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type memWriter struct {
	mu      sync.Mutex
	batches [][]Entry
	err     error
}

func (w *memWriter) WriteLogBatch(_ context.Context, entries []Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batches = append(w.batches, append([]Entry(nil), entries...))
	return w.err
}

func (w *memWriter) entries() []Entry {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []Entry
	for _, b := range w.batches {
		out = append(out, b...)
	}
	return out
}

func TestDaemonFlushesOnBatchSize(t *testing.T) {
	w := &memWriter{}
	d := NewDaemon(w, Discard(), 2, time.Hour)
	d.Start()
	l := slog.New(d.Handler(slog.LevelInfo, ""))

	l.Info("one")
	l.Info("two", "db", "app.db", "rows", 3)

	deadline := time.Now().Add(5 * time.Second)
	for len(w.entries()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	got := w.entries()
	if len(got) != 2 {
		t.Fatalf("entries = %d, want 2", len(got))
	}
	if got[1].Msg != "two" || got[1].Level != "INFO" || got[1].Attrs["db"] != "app.db" || got[1].Attrs["rows"] != int64(3) {
		t.Errorf("entry = %+v", got[1])
	}
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
}

func TestDaemonStopFlushes(t *testing.T) {
	w := &memWriter{}
	d := NewDaemon(w, Discard(), 100, time.Hour)
	d.Start()
	l := slog.New(d.Handler(slog.LevelInfo, ""))

	l.Debug("below level")
	l.Warn("pending")
	l.Error("pending too", "err", errors.New("boom"))

	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	got := w.entries()
	if len(got) != 2 {
		t.Fatalf("entries = %d, want 2 flushed on stop", len(got))
	}
	if got[1].Attrs["err"] != "boom" {
		t.Errorf("error attr = %#v, want its message", got[1].Attrs["err"])
	}
	if err := d.Stop(context.Background()); err != nil {
		t.Errorf("second Stop() = %v, want nil", err)
	}
}

func TestDaemonWriterErrorIsLogged(t *testing.T) {
	w := &memWriter{err: errors.New("disk full")}
	d := NewDaemon(w, Discard(), 1, time.Hour)
	d.Start()
	slog.New(d.Handler(slog.LevelInfo, "")).Info("lost")
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
}

func TestBatchHandlerSkipsDatabase(t *testing.T) {
	ch := make(chan slog.Record, 10)
	l := slog.New(NewBatchHandler(slog.LevelInfo, ch, "logs.db"))

	l.Info("kept", "db", "app.db")
	l.Info("dropped by record attr", "db", "logs.db")
	l.With("db", "logs.db").Info("dropped by handler attr")
	l.WithGroup("g").With("db", "logs.db").Info("kept in group")

	var msgs []string
	for len(ch) > 0 {
		msgs = append(msgs, (<-ch).Message)
	}
	if len(msgs) != 2 || msgs[0] != "kept" || msgs[1] != "kept in group" {
		t.Errorf("messages = %q", msgs)
	}
}

func TestBatchHandlerGroupsAndAttrs(t *testing.T) {
	ch := make(chan slog.Record, 1)
	l := slog.New(NewBatchHandler(slog.LevelInfo, ch, "")).With("component", "conn").WithGroup("stmt")
	l.Info("prepared", "sql", "SELECT 1")

	e := toEntry(<-ch)
	if e.Attrs["component"] != "conn" {
		t.Errorf("component = %v", e.Attrs["component"])
	}
	group, ok := e.Attrs["stmt"].(map[string]any)
	if !ok || group["sql"] != "SELECT 1" {
		t.Errorf("stmt group = %#v", e.Attrs["stmt"])
	}
}

func TestBatchHandlerDropsWhenFull(t *testing.T) {
	ch := make(chan slog.Record, 1)
	l := slog.New(NewBatchHandler(slog.LevelInfo, ch, ""))
	l.Info("first")
	l.Info("second")
	if len(ch) != 1 || (<-ch).Message != "first" {
		t.Error("full channel should drop new records without blocking")
	}
}

func TestTee(t *testing.T) {
	a := make(chan slog.Record, 1)
	b := make(chan slog.Record, 1)
	l := slog.New(Tee(NewBatchHandler(slog.LevelInfo, a, ""), NewBatchHandler(slog.LevelError, b, "")))

	l.Info("info")
	if len(a) != 1 || len(b) != 0 {
		t.Fatalf("info delivered to a=%d b=%d, want 1 and 0", len(a), len(b))
	}
	<-a
	l.With("k", "v").Error("error")
	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("error delivered to a=%d b=%d, want 1 and 1", len(a), len(b))
	}
	if slog.New(Tee(Discard().Handler())).Enabled(context.Background(), slog.LevelError) {
		t.Error("tee of disabled handlers should be disabled")
	}
}
