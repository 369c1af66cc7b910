package logger

import (
	"context"
	"log/slog"
)

// BatchHandler is a slog.Handler that hands records to a Daemon. Records are
// dropped when the daemon's channel is full, and records attributed to the
// skipped database are dropped so writing logs never produces more logs.
type BatchHandler struct {
	level      slog.Leveler
	recordChan chan<- slog.Record
	skip       string

	attrs  []slog.Attr
	groups []string
	muted  bool
}

func NewBatchHandler(level slog.Leveler, recordChan chan<- slog.Record, skip string) *BatchHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &BatchHandler{level: level, recordChan: recordChan, skip: skip}
}

func (h *BatchHandler) Enabled(_ context.Context, level slog.Level) bool {
	return !h.muted && level >= h.level.Level()
}

// Handle sends r without blocking.
func (h *BatchHandler) Handle(_ context.Context, r slog.Record) error {
	if h.muted || h.skipped(r) {
		return nil
	}
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	out.AddAttrs(h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.qualify(a))
		return true
	})

	select {
	case h.recordChan <- out:
	default:
	}
	return nil
}

func (h *BatchHandler) skipped(r slog.Record) bool {
	if h.skip == "" {
		return false
	}
	skip := false
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "db" && a.Value.String() == h.skip {
			skip = true
			return false
		}
		return true
	})
	return skip
}

func (h *BatchHandler) qualify(a slog.Attr) slog.Attr {
	for i := len(h.groups) - 1; i >= 0; i-- {
		a = slog.Attr{Key: h.groups[i], Value: slog.GroupValue(a)}
	}
	return a
}

func (h *BatchHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		if h.skip != "" && len(h.groups) == 0 && a.Key == "db" && a.Value.String() == h.skip {
			c.muted = true
		}
		c.attrs = append(c.attrs, h.qualify(a))
	}
	return &c
}

func (h *BatchHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.groups = append(append([]string(nil), h.groups...), name)
	return &c
}

// Tee returns a handler that passes every record to each of handlers.
func Tee(handlers ...slog.Handler) slog.Handler {
	return teeHandler(handlers)
}

type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range t {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
