package sqlitemanager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chamira/SQLiteManager/conn"
	"github.com/chamira/SQLiteManager/engine"
	"github.com/chamira/SQLiteManager/executor"
	"github.com/chamira/SQLiteManager/scheduler"
	"github.com/chamira/SQLiteManager/sqlerror"
	"github.com/chamira/SQLiteManager/value"
)

type lanes struct {
	read, write, batch *scheduler.Lane
}

func newLanes(name string, logger *slog.Logger) *lanes {
	return &lanes{
		read:  scheduler.NewLane(name+"/read", logger),
		write: scheduler.NewLane(name+"/write", logger),
		batch: scheduler.NewLane(name+"/batch", logger),
	}
}

func (l *lanes) stop(ctx context.Context) error {
	return errors.Join(l.read.Stop(ctx), l.write.Stop(ctx), l.batch.Stop(ctx))
}

// Database is one pooled SQLite file. SELECT statements run on the read lane,
// every other statement on the write lane and batches on the batch lane.
// Lanes run concurrently with each other.
type Database struct {
	name   string
	create bool
	conns  *conn.Manager
	exec   *executor.Executor
	cache  *resultCache
	logger *slog.Logger

	dispatcher scheduler.Dispatcher

	mu    sync.Mutex
	lanes *lanes
}

func newDatabase(name string, create bool, conns *conn.Manager, exec *executor.Executor, cache *resultCache, d scheduler.Dispatcher, logger *slog.Logger) *Database {
	return &Database{
		name:       name,
		create:     create,
		conns:      conns,
		exec:       exec,
		cache:      cache,
		logger:     logger,
		dispatcher: d,
		lanes:      newLanes(name, logger),
	}
}

// Name returns the identity "name.ext".
func (d *Database) Name() string { return d.name }

// Path returns the absolute path of the database file.
func (d *Database) Path() string { return d.conns.Path() }

// CreateIfNotExist reports the flag the database was initialized with.
func (d *Database) CreateIfNotExist() bool { return d.create }

func (d *Database) String() string {
	return fmt.Sprintf("%s (%s)", d.name, d.conns.Path())
}

// SetLog toggles tracing of every statement and its outcome.
func (d *Database) SetLog(on bool) { d.exec.SetTrace(on) }
func (d *Database) Log() bool      { return d.exec.Trace() }

func (d *Database) current() *lanes {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lanes
}

func (d *Database) route(sql string) *scheduler.Lane {
	if executor.IsSelect(sql) {
		return d.current().read
	}
	return d.current().write
}

// Query runs sql and waits for its result. Cancelling ctx withdraws a query
// that has not started yet; a running query is always waited for.
func (d *Database) Query(ctx context.Context, sql string) (executor.Result, error) {
	res, err := scheduler.Run(ctx, d.route(sql), d.task(sql, nil, false))
	return res, d.wrap(err)
}

// QueryAsync runs sql in the background and delivers the outcome to exactly
// one of onSuccess or onError through the pool's dispatcher.
func (d *Database) QueryAsync(sql string, onSuccess func(executor.Result), onError func(error)) {
	scheduler.Async(d.route(sql), d.dispatcher, d.task(sql, nil, false), onSuccess, d.onError(onError))
}

// BindQuery runs sql with args bound to its placeholders in order. Each arg
// is converted with value.Of.
func (d *Database) BindQuery(ctx context.Context, sql string, args ...any) (executor.Result, error) {
	vals, err := value.Values(args...)
	if err != nil {
		return executor.Result{}, sqlerror.Unknown(d.name, err)
	}
	res, err := scheduler.Run(ctx, d.route(sql), d.task(sql, vals, true))
	return res, d.wrap(err)
}

func (d *Database) BindQueryAsync(sql string, args []any, onSuccess func(executor.Result), onError func(error)) {
	vals, err := value.Values(args...)
	if err != nil {
		err = sqlerror.Unknown(d.name, err)
		go d.dispatcher.Dispatch(func() {
			if onError != nil {
				onError(err)
			}
		})
		return
	}
	scheduler.Async(d.route(sql), d.dispatcher, d.task(sql, vals, true), onSuccess, d.onError(onError))
}

// Batch runs sqls in order inside one transaction on a dedicated connection.
// Either every statement is committed or none is.
func (d *Database) Batch(ctx context.Context, sqls []string) (executor.BatchResult, error) {
	res, err := scheduler.Run(ctx, d.current().batch, d.batchTask(sqls))
	return res, d.wrap(err)
}

func (d *Database) BatchAsync(sqls []string, onSuccess func(executor.BatchResult), onError func(error)) {
	scheduler.Async(d.current().batch, d.dispatcher, d.batchTask(sqls), onSuccess, d.onError(onError))
}

func (d *Database) task(sql string, args []value.Value, bound bool) func() (executor.Result, error) {
	if executor.IsSelect(sql) {
		return func() (executor.Result, error) {
			return d.read(sql, args, bound)
		}
	}
	return func() (executor.Result, error) {
		return d.write(sql, args, bound)
	}
}

func (d *Database) read(sql string, args []value.Value, bound bool) (executor.Result, error) {
	var key string
	if d.cache != nil {
		key = d.cache.key(d.cache.generation(), sql, args)
		if res, ok := d.cache.get(key); ok {
			return res, nil
		}
	}

	c, err := d.conns.Read()
	if err != nil {
		return executor.Result{}, err
	}
	res, err := d.run(c, sql, args, bound)
	if err != nil {
		return executor.Result{}, err
	}
	if d.cache != nil {
		d.cache.set(key, res)
	}
	return res, nil
}

func (d *Database) write(sql string, args []value.Value, bound bool) (executor.Result, error) {
	c, err := d.conns.Write()
	if err != nil {
		return executor.Result{}, err
	}
	res, err := d.run(c, sql, args, bound)
	if err != nil {
		return executor.Result{}, err
	}
	if d.cache != nil {
		d.cache.invalidate()
	}
	return res, nil
}

func (d *Database) run(c engine.Conn, sql string, args []value.Value, bound bool) (executor.Result, error) {
	if bound {
		return d.exec.ExecuteBound(c, sql, args)
	}
	return d.exec.Execute(c, sql)
}

func (d *Database) batchTask(sqls []string) func() (executor.BatchResult, error) {
	return func() (executor.BatchResult, error) {
		res, err := d.exec.ExecuteBatch(sqls)
		if err != nil {
			return executor.BatchResult{}, err
		}
		if d.cache != nil {
			d.cache.invalidate()
		}
		return res, nil
	}
}

// wrap maps scheduler failures onto the error taxonomy. Context errors are
// returned unchanged.
func (d *Database) wrap(err error) error {
	if errors.Is(err, scheduler.ErrPanic) || errors.Is(err, scheduler.ErrLaneClosed) {
		return sqlerror.Unknown(d.name, err)
	}
	return err
}

func (d *Database) onError(fn func(error)) func(error) {
	if fn == nil {
		return nil
	}
	return func(err error) { fn(d.wrap(err)) }
}

// Close drains the lanes and closes both connections. New work is rejected
// while closing. If a connection fails to close the database stays usable;
// if ctx expires first the lanes stay closed and Close may be called again.
func (d *Database) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.lanes.stop(ctx); err != nil {
		return err
	}
	if err := d.conns.Close(); err != nil {
		d.lanes = newLanes(d.name, d.logger)
		return err
	}
	if d.cache != nil {
		d.cache.close()
		d.cache = nil
	}
	d.logger.Info("database closed", "path", d.conns.Path())
	return nil
}
