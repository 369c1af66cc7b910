package sqlitemanager

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chamira/SQLiteManager/config"
	"github.com/chamira/SQLiteManager/logger"
)

const (
	createLogTable = "CREATE TABLE IF NOT EXISTS logs (id INTEGER PRIMARY KEY, created REAL NOT NULL, level TEXT NOT NULL, message TEXT NOT NULL, attrs TEXT)"
	insertLog      = "INSERT INTO logs (created, level, message, attrs) VALUES (?, ?, ?, ?)"
)

// logWriter stores log batches in a database of the pool. It is only called
// from the daemon goroutine.
type logWriter struct {
	pool      *Pool
	name, ext string
	ready     bool
}

func (w *logWriter) WriteLogBatch(ctx context.Context, entries []logger.Entry) error {
	db, err := w.pool.Initialize(w.name, w.ext, true)
	if err != nil {
		return err
	}
	if !w.ready {
		if _, err := db.Query(ctx, createLogTable); err != nil {
			return err
		}
		w.ready = true
	}
	for _, e := range entries {
		if _, err := db.BindQuery(ctx, insertLog, e.Time, e.Level, e.Msg, encodeAttrs(e.Attrs)); err != nil {
			return err
		}
	}
	return nil
}

func encodeAttrs(attrs map[string]any) any {
	if len(attrs) == 0 {
		return nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		flat := make(map[string]string, len(attrs))
		for k, v := range attrs {
			flat[k] = fmt.Sprint(v)
		}
		b, _ = json.Marshal(flat)
	}
	return string(b)
}

// startLogDaemon tees the pool logger into cfg.Database. Records from that
// database's own components are not persisted.
func (p *Pool) startLogDaemon(cfg config.Log) {
	i := strings.LastIndexByte(cfg.Database, '.')
	w := &logWriter{pool: p, name: cfg.Database[:i], ext: cfg.Database[i+1:]}

	p.logDaemon = logger.NewDaemon(w, p.logger, cfg.BatchSize, cfg.FlushInterval.Duration)
	p.logger = slog.New(logger.Tee(p.logger.Handler(), p.logDaemon.Handler(cfg.Level.Level, cfg.Database)))
	p.logDaemon.Start()
}
