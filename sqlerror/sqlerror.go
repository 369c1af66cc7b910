// Package sqlerror defines the typed errors reported by every layer of the
// manager. Codes are stable integers within a single error domain; engine
// failures carry the engine's own extended result code.
package sqlerror

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// Domain identifies errors produced by this module.
const Domain = "lib.SQLiteManager.error"

const (
	CodeUnknown           = 10000
	CodeSeedFileMissing   = 10001
	CodePathUnresolved    = 10002
	CodeBindCountMismatch = 10003
)

// Sentinels for errors.Is. They match any *Error with the same code.
var (
	ErrUnknown           = &Error{Code: CodeUnknown}
	ErrSeedFileMissing   = &Error{Code: CodeSeedFileMissing}
	ErrPathUnresolved    = &Error{Code: CodePathUnresolved}
	ErrBindCountMismatch = &Error{Code: CodeBindCountMismatch}
)

// Error is a failure reported by a database instance.
type Error struct {
	Code     int
	Database string
	Message  string
	// RecoverySuggestion is only set for errors the operator can fix.
	RecoverySuggestion string
	// SQL is the statement that failed, if any.
	SQL string
	// Statement is the 1-based position of SQL inside a batch, 0 otherwise.
	Statement int
	// Location is the source locator (file:line) where the failure was observed.
	Location string
	Err      error
}

func (e *Error) Domain() string { return Domain }

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Message == "" {
		fmt.Fprintf(&b, "%s error %d", Domain, e.Code)
	}
	if e.Statement > 0 {
		fmt.Fprintf(&b, " (batch statement %d)", e.Statement)
	}
	if e.SQL != "" {
		fmt.Fprintf(&b, " SQL:%s", e.SQL)
	}
	if e.Location != "" {
		fmt.Fprintf(&b, " at %s", e.Location)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Code extracts the numeric code of err, or CodeUnknown if err carries none.
func Code(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

func Unknown(database string, cause error) *Error {
	return &Error{
		Code:     CodeUnknown,
		Database: database,
		Message:  fmt.Sprintf("%s Unknown error", database),
		Location: Locate(1),
		Err:      cause,
	}
}

func SeedFileMissing(database string) *Error {
	return &Error{
		Code:               CodeSeedFileMissing,
		Database:           database,
		Message:            fmt.Sprintf("%s file does not exist in seed resources to copy to the data dir", database),
		RecoverySuggestion: fmt.Sprintf("Add %s to the seed resources, or initialize with createIfNotExist", database),
	}
}

func PathUnresolved(database string) *Error {
	return &Error{
		Code:     CodePathUnresolved,
		Database: database,
		Message:  fmt.Sprintf("%s file path could not be resolved", database),
	}
}

func BindCountMismatch(database, sql string, expected, actual int) *Error {
	return &Error{
		Code:     CodeBindCountMismatch,
		Database: database,
		Message:  fmt.Sprintf("%s, query has %d binding params, but binding array has %d values", database, expected, actual),
		SQL:      sql,
		Location: Locate(1),
	}
}

// Engine wraps a non-OK status reported by the embedded engine.
// skip is passed to Locate so the locator names the caller of the helper
// that observed the failure.
func Engine(database string, code int, sql string, skip int, cause error) *Error {
	msg := "undefined engine error"
	if cause != nil && cause.Error() != "" {
		msg = cause.Error()
	}
	return &Error{
		Code:     code,
		Database: database,
		Message:  msg,
		SQL:      sql,
		Location: Locate(skip + 1),
		Err:      cause,
	}
}

// Locate returns "file.go:line" for the caller skip frames above Locate.
func Locate(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
