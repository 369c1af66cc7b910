// Package crawshaw registers the "crawshaw" engine driver, backed by the cgo
// crawshaw.io/sqlite bindings.
package crawshaw

import (
	"time"

	"crawshaw.io/sqlite"
	"github.com/chamira/SQLiteManager/engine"
)

const Name = "crawshaw"

const defaultFlags = sqlite.SQLITE_OPEN_READWRITE | sqlite.SQLITE_OPEN_WAL | sqlite.SQLITE_OPEN_URI | sqlite.SQLITE_OPEN_NOMUTEX

func init() {
	engine.Register(Driver{})
}

type Driver struct {
	Flags sqlite.OpenFlags
}

func (Driver) Name() string { return Name }

func (d Driver) Open(path string) (engine.Conn, error) {
	flags := d.Flags
	if flags == 0 {
		flags = defaultFlags
	}
	c, err := sqlite.OpenConn(path, flags)
	if err != nil {
		return nil, wrap(err)
	}
	return &conn{c: c}, nil
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return engine.NewError(int(sqlite.ErrCode(err)), err)
}

type conn struct {
	c *sqlite.Conn
}

func (c *conn) SetBusyTimeout(d time.Duration) { c.c.SetBusyTimeout(d) }

func (c *conn) Prepare(sql string) (engine.Stmt, error) {
	s, _, err := c.c.PrepareTransient(sql)
	if err != nil {
		return nil, wrap(err)
	}
	if s == nil {
		return nil, engine.ErrEmptyStatement
	}
	return &stmt{s: s}, nil
}

func (c *conn) Changes() int { return c.c.Changes() }

func (c *conn) Close() error { return wrap(c.c.Close()) }

type stmt struct {
	s *sqlite.Stmt
}

func (s *stmt) Step() (bool, error) {
	row, err := s.s.Step()
	return row, wrap(err)
}

func (s *stmt) Finalize() error { return wrap(s.s.Finalize()) }

func (s *stmt) BindParamCount() int                { return s.s.BindParamCount() }
func (s *stmt) BindText(param int, value string)   { s.s.BindText(param, value) }
func (s *stmt) BindInt64(param int, value int64)   { s.s.BindInt64(param, value) }
func (s *stmt) BindFloat(param int, value float64) { s.s.BindFloat(param, value) }
func (s *stmt) BindBytes(param int, value []byte)  { s.s.BindBytes(param, value) }
func (s *stmt) BindNull(param int)                 { s.s.BindNull(param) }

func (s *stmt) ColumnCount() int            { return s.s.ColumnCount() }
func (s *stmt) ColumnName(col int) string   { return s.s.ColumnName(col) }
func (s *stmt) ColumnText(col int) string   { return s.s.ColumnText(col) }
func (s *stmt) ColumnInt64(col int) int64   { return s.s.ColumnInt64(col) }
func (s *stmt) ColumnFloat(col int) float64 { return s.s.ColumnFloat(col) }

func (s *stmt) ColumnType(col int) engine.ColumnType {
	switch s.s.ColumnType(col) {
	case sqlite.SQLITE_INTEGER:
		return engine.TypeInteger
	case sqlite.SQLITE_FLOAT:
		return engine.TypeFloat
	case sqlite.SQLITE_TEXT:
		return engine.TypeText
	case sqlite.SQLITE_BLOB:
		return engine.TypeBlob
	}
	return engine.TypeNull
}

func (s *stmt) ColumnBytes(col int) []byte {
	buf := make([]byte, s.s.ColumnLen(col))
	n := s.s.ColumnBytes(col, buf)
	return buf[:n]
}
