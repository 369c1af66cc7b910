// Package conn owns the native connections of one database file: a read
// connection, a write connection and, for the duration of a single batch, a
// transient batch connection. It also exposes the statement primitives the
// executor drives, translating engine failures into sqlerror values and
// retrying busy conditions according to a RetryPolicy.
package conn

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chamira/SQLiteManager/engine"
	"github.com/chamira/SQLiteManager/sqlerror"
)

var ErrNotOpen = errors.New("conn: connections are not open")

const DefaultBusyTimeout = 5 * time.Second

type Options struct {
	// Name is the database identity ("name.ext") used in errors and logs.
	Name   string
	Path   string
	Driver engine.Driver
	// BusyTimeout is applied to every connection before a statement runs.
	BusyTimeout time.Duration
	Retry       RetryPolicy
	Logger      *slog.Logger
}

type Manager struct {
	name        string
	path        string
	driver      engine.Driver
	busyTimeout time.Duration
	retry       RetryPolicy
	logger      *slog.Logger

	mu    sync.Mutex
	read  engine.Conn
	write engine.Conn
}

func New(opts Options) *Manager {
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = DefaultBusyTimeout
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Manager{
		name:        opts.Name,
		path:        opts.Path,
		driver:      opts.Driver,
		busyTimeout: opts.BusyTimeout,
		retry:       opts.Retry,
		logger:      opts.Logger.With("component", "conn", "db", opts.Name),
	}
}

func (m *Manager) Name() string { return m.name }
func (m *Manager) Path() string { return m.path }

// Open opens the read connection, then the write connection. It is a no-op
// when both are already open. On failure nothing stays open.
func (m *Manager) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.read != nil && m.write != nil {
		return nil
	}
	if m.driver == nil {
		return sqlerror.Unknown(m.name, errors.New("no engine driver configured"))
	}

	read := m.read
	if read == nil {
		c, err := m.driver.Open(m.path)
		if err != nil {
			return m.openError("read", err)
		}
		read = c
	}
	write := m.write
	if write == nil {
		c, err := m.driver.Open(m.path)
		if err != nil {
			if m.read == nil {
				read.Close()
			}
			return m.openError("write", err)
		}
		write = c
	}

	m.read, m.write = read, write
	m.logger.Debug("connections opened", "path", m.path, "driver", m.driver.Name())
	return nil
}

func (m *Manager) openError(side string, err error) error {
	return sqlerror.Engine(m.name, engine.Code(err), "", 2, fmt.Errorf("%s connection: %w", side, err))
}

// Close closes the write connection, then the read connection. A side that
// fails to close keeps its handle and the error is returned.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.write != nil {
		if err := m.write.Close(); err != nil {
			return sqlerror.Engine(m.name, engine.Code(err), "", 1, fmt.Errorf("write connection: %w", err))
		}
		m.write = nil
	}
	if m.read != nil {
		if err := m.read.Close(); err != nil {
			return sqlerror.Engine(m.name, engine.Code(err), "", 1, fmt.Errorf("read connection: %w", err))
		}
		m.read = nil
	}
	m.logger.Debug("connections closed")
	return nil
}

func (m *Manager) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read != nil && m.write != nil
}

// Read returns the read connection. Callers must serialize its use.
func (m *Manager) Read() (engine.Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.read == nil {
		return nil, ErrNotOpen
	}
	return m.read, nil
}

// Write returns the write connection. Callers must serialize its use.
func (m *Manager) Write() (engine.Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.write == nil {
		return nil, ErrNotOpen
	}
	return m.write, nil
}

// OpenBatch opens a connection owned by a single batch call. The caller must
// release it with CloseBatch on every exit path.
func (m *Manager) OpenBatch() (engine.Conn, error) {
	c, err := m.driver.Open(m.path)
	if err != nil {
		return nil, m.openError("batch", err)
	}
	return c, nil
}

func (m *Manager) CloseBatch(c engine.Conn) error {
	if c == nil {
		return nil
	}
	if err := c.Close(); err != nil {
		m.logger.Error("failed to close batch connection", "err", err)
		return sqlerror.Engine(m.name, engine.Code(err), "", 1, fmt.Errorf("batch connection: %w", err))
	}
	return nil
}

func (m *Manager) SetBusyTimeout(c engine.Conn) {
	c.SetBusyTimeout(m.busyTimeout)
}

func (m *Manager) Begin(c engine.Conn) error    { return m.exec(c, "BEGIN") }
func (m *Manager) Commit(c engine.Conn) error   { return m.exec(c, "COMMIT") }
func (m *Manager) Rollback(c engine.Conn) error { return m.exec(c, "ROLLBACK") }

func (m *Manager) exec(c engine.Conn, sql string) error {
	attempts, err := m.retry.Do(func() error { return engine.Exec(c, sql) })
	if err != nil {
		return sqlerror.Engine(m.name, engine.Code(err), sql, 2, err)
	}
	m.logRetries(sql, attempts)
	return nil
}

// Prepare compiles sql on c, retrying while the engine reports busy.
func (m *Manager) Prepare(c engine.Conn, sql string) (engine.Stmt, error) {
	var stmt engine.Stmt
	attempts, err := m.retry.Do(func() error {
		var err error
		stmt, err = c.Prepare(sql)
		return err
	})
	if err != nil {
		return nil, sqlerror.Engine(m.name, engine.Code(err), sql, 1, err)
	}
	m.logRetries(sql, attempts)
	return stmt, nil
}

// Step advances stmt, retrying while the engine reports busy. Use it only
// before any row of stmt has been consumed; use Next afterwards.
func (m *Manager) Step(stmt engine.Stmt, sql string) (bool, error) {
	var row bool
	attempts, err := m.retry.Do(func() error {
		var err error
		row, err = stmt.Step()
		return err
	})
	if err != nil {
		return false, sqlerror.Engine(m.name, engine.Code(err), sql, 1, err)
	}
	m.logRetries(sql, attempts)
	return row, nil
}

// Next advances stmt without retrying.
func (m *Manager) Next(stmt engine.Stmt, sql string) (bool, error) {
	row, err := stmt.Step()
	if err != nil {
		return false, sqlerror.Engine(m.name, engine.Code(err), sql, 1, err)
	}
	return row, nil
}

func (m *Manager) Finalize(stmt engine.Stmt) error {
	if stmt == nil {
		return nil
	}
	if err := stmt.Finalize(); err != nil {
		return sqlerror.Engine(m.name, engine.Code(err), "", 1, err)
	}
	return nil
}

func (m *Manager) Changes(c engine.Conn) int {
	return c.Changes()
}

func (m *Manager) logRetries(sql string, attempts int) {
	if attempts > 1 {
		m.logger.Warn("statement succeeded after busy retries", "sql", sql, "attempts", attempts)
	}
}
