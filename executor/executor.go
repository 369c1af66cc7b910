// Package executor runs SQL against connections handed out by a conn.Manager.
// Every call is bracketed by its own transaction and every prepared statement
// is finalized on every exit path.
package executor

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/chamira/SQLiteManager/conn"
	"github.com/chamira/SQLiteManager/engine"
	"github.com/chamira/SQLiteManager/sqlerror"
	"github.com/chamira/SQLiteManager/value"
)

// Result is the outcome of one statement. Rows is nil for statements that are
// not SELECT and for a SELECT that matched nothing; for a SELECT, Affected is
// len(Rows), otherwise it is the engine's change counter.
type Result struct {
	Status   int         `json:"status"`
	Affected int         `json:"affected"`
	Rows     []value.Row `json:"rows,omitempty"`
}

type BatchResult struct {
	Elapsed time.Duration `json:"elapsed"`
	Results []Result      `json:"results"`
}

type Executor struct {
	conns  *conn.Manager
	logger *slog.Logger
	trace  atomic.Bool
}

func New(conns *conn.Manager, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		conns:  conns,
		logger: logger.With("component", "executor", "db", conns.Name()),
	}
}

// SetTrace toggles per-statement logging of SQL text and outcome.
func (e *Executor) SetTrace(on bool) { e.trace.Store(on) }
func (e *Executor) Trace() bool      { return e.trace.Load() }

// Execute runs sql on c.
func (e *Executor) Execute(c engine.Conn, sql string) (Result, error) {
	return e.run(c, sql, nil, false)
}

// ExecuteBound runs sql on c with args bound positionally. The number of args
// must equal the number of placeholders in sql.
func (e *Executor) ExecuteBound(c engine.Conn, sql string, args []value.Value) (Result, error) {
	return e.run(c, sql, args, true)
}

func (e *Executor) run(c engine.Conn, sql string, args []value.Value, bound bool) (Result, error) {
	e.conns.SetBusyTimeout(c)
	if err := e.conns.Begin(c); err != nil {
		return Result{}, err
	}
	res, err := e.exec(c, sql, args, bound)
	if err != nil {
		e.rollback(c)
		return Result{}, err
	}
	if err := e.conns.Commit(c); err != nil {
		e.rollback(c)
		return Result{}, err
	}
	e.traceResult(sql, res)
	return res, nil
}

// ExecuteBatch runs sqls in order on a dedicated connection inside a single
// transaction. The first failing statement rolls back the whole batch and its
// 1-based position is recorded in the returned *sqlerror.Error.
func (e *Executor) ExecuteBatch(sqls []string) (res BatchResult, err error) {
	start := time.Now()

	c, err := e.conns.OpenBatch()
	if err != nil {
		return BatchResult{}, err
	}
	defer func() {
		if cerr := e.conns.CloseBatch(c); cerr != nil && err == nil {
			res, err = BatchResult{}, cerr
		}
	}()

	e.conns.SetBusyTimeout(c)
	if err := e.conns.Begin(c); err != nil {
		return BatchResult{}, err
	}

	results := make([]Result, 0, len(sqls))
	for i, sql := range sqls {
		r, err := e.exec(c, sql, nil, false)
		if err != nil {
			e.rollback(c)
			return BatchResult{}, atStatement(e.conns.Name(), err, i+1)
		}
		e.traceResult(sql, r)
		results = append(results, r)
	}

	if err := e.conns.Commit(c); err != nil {
		e.rollback(c)
		return BatchResult{}, err
	}

	res = BatchResult{Elapsed: time.Since(start), Results: results}
	if e.trace.Load() {
		e.logger.Info("batch", "statements", len(sqls), "elapsed", res.Elapsed)
	}
	return res, nil
}

// exec prepares, runs and finalizes one statement inside the caller's
// transaction.
func (e *Executor) exec(c engine.Conn, sql string, args []value.Value, bound bool) (res Result, err error) {
	stmt, err := e.conns.Prepare(c, sql)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if ferr := e.conns.Finalize(stmt); ferr != nil && err == nil {
			res, err = Result{}, ferr
		}
	}()

	if bound {
		if n := stmt.BindParamCount(); n != len(args) {
			return Result{}, sqlerror.BindCountMismatch(e.conns.Name(), sql, n, len(args))
		}
		value.BindAll(stmt, args)
	}

	if IsSelect(sql) {
		return e.collect(stmt, sql)
	}

	row, err := e.conns.Step(stmt, sql)
	if err != nil {
		return Result{}, err
	}
	if row && bound {
		return Result{}, sqlerror.Engine(e.conns.Name(), engine.ResultRow, sql, 0,
			errors.New("bound statement returned a row, expected done"))
	}
	for row {
		if row, err = e.conns.Next(stmt, sql); err != nil {
			return Result{}, err
		}
	}
	return Result{Status: engine.ResultOK, Affected: e.conns.Changes(c)}, nil
}

func (e *Executor) collect(stmt engine.Stmt, sql string) (Result, error) {
	var (
		rows  []value.Row
		names []string
	)
	row, err := e.conns.Step(stmt, sql)
	for err == nil && row {
		if names == nil {
			names = value.ColumnNames(stmt)
		}
		rows = append(rows, value.DecodeRow(stmt, names))
		row, err = e.conns.Next(stmt, sql)
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Status: engine.ResultOK, Affected: len(rows), Rows: rows}, nil
}

func (e *Executor) rollback(c engine.Conn) {
	if err := e.conns.Rollback(c); err != nil {
		e.logger.Warn("rollback failed", "err", err)
	}
}

func (e *Executor) traceResult(sql string, res Result) {
	if !e.trace.Load() {
		return
	}
	if res.Rows != nil {
		e.logger.Info("query", "sql", sql, "rows", res.Affected, "result", res.Rows)
		return
	}
	e.logger.Info("query", "sql", sql, "affected", res.Affected)
}

func atStatement(database string, err error, k int) error {
	var e *sqlerror.Error
	if errors.As(err, &e) {
		withIndex := *e
		withIndex.Statement = k
		return &withIndex
	}
	unknown := sqlerror.Unknown(database, err)
	unknown.Statement = k
	return unknown
}
