// Package zombiezen registers the "zombiezen" engine driver, backed by the
// pure Go zombiezen.com/go/sqlite implementation. It is the default driver.
package zombiezen

import (
	"time"

	"github.com/chamira/SQLiteManager/engine"
	"zombiezen.com/go/sqlite"
)

const Name = "zombiezen"

// defaultFlags opens an existing file only; provisioning creates it.
const defaultFlags = sqlite.OpenReadWrite | sqlite.OpenWAL | sqlite.OpenURI | sqlite.OpenNoMutex

func init() {
	engine.Register(Driver{})
}

type Driver struct {
	// Flags overrides the open flags. Zero means defaultFlags.
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
	case sqlite.TypeInteger:
		return engine.TypeInteger
	case sqlite.TypeFloat:
		return engine.TypeFloat
	case sqlite.TypeText:
		return engine.TypeText
	case sqlite.TypeBlob:
		return engine.TypeBlob
	}
	return engine.TypeNull
}

func (s *stmt) ColumnBytes(col int) []byte {
	buf := make([]byte, s.s.ColumnLen(col))
	n := s.s.ColumnBytes(col, buf)
	return buf[:n]
}
