// Package engine describes the capability the manager needs from an embedded
// SQLite implementation: open/close, prepare/step/finalize, positional bind,
// column access, change count and result codes. Concrete drivers live in
// sub-packages and register themselves by name, like database/sql drivers.
package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Primary result codes used by the manager.
const (
	ResultOK     = 0
	ResultError  = 1
	ResultBusy   = 5
	ResultLocked = 6
	ResultMisuse = 21
	ResultRow    = 100
	ResultDone   = 101
)

// ColumnType is the storage class of a single cell.
type ColumnType int

const (
	TypeInteger ColumnType = 1
	TypeFloat   ColumnType = 2
	TypeText    ColumnType = 3
	TypeBlob    ColumnType = 4
	TypeNull    ColumnType = 5
)

func (t ColumnType) String() string {
	switch t {
	case TypeInteger:
		return "INTEGER"
	case TypeFloat:
		return "FLOAT"
	case TypeText:
		return "TEXT"
	case TypeBlob:
		return "BLOB"
	case TypeNull:
		return "NULL"
	}
	return fmt.Sprintf("ColumnType(%d)", int(t))
}

// Driver opens connections to a database file.
type Driver interface {
	Name() string
	Open(path string) (Conn, error)
}

// Conn is a single native connection. It is not safe for concurrent use.
type Conn interface {
	SetBusyTimeout(d time.Duration)
	// Prepare compiles the first statement of sql. The returned statement is
	// owned by the caller and must be finalized.
	Prepare(sql string) (Stmt, error)
	// Changes reports the rows modified by the most recent INSERT, UPDATE or DELETE.
	Changes() int
	Close() error
}

// Stmt is a prepared statement. Bind and column indexes follow SQLite:
// bind parameters are 1-based, columns are 0-based.
type Stmt interface {
	Step() (rowReturned bool, err error)
	Finalize() error

	BindParamCount() int
	BindText(param int, value string)
	BindInt64(param int, value int64)
	BindFloat(param int, value float64)
	// BindBytes copies value; the engine keeps no reference after the call.
	BindBytes(param int, value []byte)
	BindNull(param int)

	ColumnCount() int
	ColumnName(col int) string
	ColumnType(col int) ColumnType
	ColumnText(col int) string
	ColumnInt64(col int) int64
	ColumnFloat(col int) float64
	ColumnBytes(col int) []byte
}

// Error is an engine failure carrying its extended result code.
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("sqlite: result code %d", e.Code)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps a driver error with its result code.
func NewError(code int, err error) *Error {
	return &Error{Code: code, Err: err}
}

// Code returns the extended result code carried by err, ResultOK for nil and
// ResultError for errors that did not come from a driver.
func Code(err error) int {
	if err == nil {
		return ResultOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ResultError
}

// Primary strips the extended bits of a result code.
func Primary(code int) int {
	return code & 0xff
}

// IsBusy reports whether err is a transient SQLITE_BUSY or SQLITE_LOCKED condition.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	switch Primary(Code(err)) {
	case ResultBusy, ResultLocked:
		return true
	}
	return false
}

var ErrUnknownDriver = errors.New("engine: unknown driver")

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a driver available by name. It panics on duplicates.
func Register(d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if d == nil {
		panic("engine: Register driver is nil")
	}
	if _, dup := drivers[d.Name()]; dup {
		panic("engine: Register called twice for driver " + d.Name())
	}
	drivers[d.Name()] = d
}

func Lookup(name string) (Driver, error) {
	driversMu.RLock()
	defer driversMu.RUnlock()
	d, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownDriver, name, driverNames())
	}
	return d, nil
}

// Drivers returns the sorted names of the registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	return driverNames()
}

func driverNames() []string {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
