package logger

import (
	"context"
	"log/slog"
	"time"
)

// Entry is a log record flattened for storage.
type Entry struct {
	Time  time.Time
	Level string
	Msg   string
	Attrs map[string]any
}

// BatchWriter persists a batch of entries.
type BatchWriter interface {
	WriteLogBatch(ctx context.Context, entries []Entry) error
}

// Daemon consumes records sent by its BatchHandlers and writes them through
// a BatchWriter when a batch fills up or the flush interval elapses.
type Daemon struct {
	recordChan    chan slog.Record
	writer        BatchWriter
	opLogger      *slog.Logger
	batchSize     int
	flushInterval time.Duration

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownDone chan struct{}
}

// NewDaemon creates a daemon. opLogger reports the daemon's own failures and
// must not feed back into the daemon.
func NewDaemon(writer BatchWriter, opLogger *slog.Logger, batchSize int, flushInterval time.Duration) *Daemon {
	if batchSize < 1 {
		batchSize = 1
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		recordChan:    make(chan slog.Record, batchSize*4),
		writer:        writer,
		opLogger:      opLogger.With("component", "log_daemon"),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		ctx:           ctx,
		cancel:        cancel,
		shutdownDone:  make(chan struct{}),
	}
}

// Handler returns a handler feeding this daemon. Records attributed to the
// database identity skip are dropped.
func (d *Daemon) Handler(level slog.Leveler, skip string) *BatchHandler {
	return NewBatchHandler(level, d.recordChan, skip)
}

func (d *Daemon) Start() {
	go d.processLogs()
}

// Stop flushes pending records and waits for the daemon goroutine to exit.
func (d *Daemon) Stop(ctx context.Context) error {
	d.cancel()
	select {
	case <-d.shutdownDone:
		return nil
	case <-ctx.Done():
		d.opLogger.Error("log daemon shutdown timed out", "error", ctx.Err())
		return ctx.Err()
	}
}

func (d *Daemon) processLogs() {
	defer close(d.shutdownDone)

	ticker := time.NewTicker(d.flushInterval)
	defer ticker.Stop()

	batch := make([]Entry, 0, d.batchSize)
	flush := func(reason string) {
		if len(batch) == 0 {
			return
		}
		if err := d.writer.WriteLogBatch(context.Background(), batch); err != nil {
			d.opLogger.Error("failed to write log batch", "error", err, "batch_size", len(batch), "reason", reason)
		}
		batch = batch[:0]
	}

	for {
		select {
		case r := <-d.recordChan:
			batch = append(batch, toEntry(r))
			if len(batch) >= d.batchSize {
				flush("batch_full")
			}
		case <-ticker.C:
			flush("ticker")
		case <-d.ctx.Done():
		drain:
			for {
				select {
				case r := <-d.recordChan:
					batch = append(batch, toEntry(r))
					if len(batch) >= d.batchSize {
						flush("shutdown_batch_full")
					}
				default:
					break drain
				}
			}
			flush("shutdown")
			return
		}
	}
}

func toEntry(r slog.Record) Entry {
	e := Entry{
		Time:  r.Time,
		Level: r.Level.String(),
		Msg:   r.Message,
		Attrs: make(map[string]any, r.NumAttrs()),
	}
	r.Attrs(func(a slog.Attr) bool {
		insertAttr(e.Attrs, a)
		return true
	})
	return e
}

func insertAttr(m map[string]any, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		attrs := v.Group()
		if len(attrs) == 0 {
			return
		}
		if a.Key == "" {
			for _, ga := range attrs {
				insertAttr(m, ga)
			}
			return
		}
		sub := make(map[string]any, len(attrs))
		for _, ga := range attrs {
			insertAttr(sub, ga)
		}
		m[a.Key] = sub
		return
	}
	if a.Key == "" {
		return
	}
	switch v.Kind() {
	case slog.KindDuration:
		m[a.Key] = v.Duration().String()
	case slog.KindTime:
		m[a.Key] = v.Time().UTC().Format(time.RFC3339Nano)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			m[a.Key] = err.Error()
			return
		}
		m[a.Key] = v.Any()
	default:
		m[a.Key] = v.Any()
	}
}
