package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	sqlitemanager "github.com/chamira/SQLiteManager"
	"github.com/chamira/SQLiteManager/executor"
	"github.com/chamira/SQLiteManager/logger"
)

type cli struct {
	db        *sqlitemanager.Database
	async     bool
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	formatter *logger.MessageFormatter
}

func (c *cli) query(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: sql", ErrMissingArgument)
	}
	if len(args) > 1 {
		return ErrTooManyArguments
	}
	sql := args[0]

	var res executor.Result
	var err error
	if c.async {
		res, err = await(func(ok func(executor.Result), fail func(error)) {
			c.db.QueryAsync(sql, ok, fail)
		})
	} else {
		res, err = c.db.Query(context.Background(), sql)
	}
	if err != nil {
		fmt.Fprintln(c.stderr, c.formatter.Fail(err.Error()))
		return err
	}
	c.status(res)
	return c.write(res)
}

func (c *cli) bind(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: sql and json-array", ErrMissingArgument)
	}
	if len(args) > 2 {
		return ErrTooManyArguments
	}
	sql := args[0]
	vals, err := parseBindArgs(args[1])
	if err != nil {
		return err
	}

	var res executor.Result
	if c.async {
		res, err = await(func(ok func(executor.Result), fail func(error)) {
			c.db.BindQueryAsync(sql, vals, ok, fail)
		})
	} else {
		res, err = c.db.BindQuery(context.Background(), sql, vals...)
	}
	if err != nil {
		fmt.Fprintln(c.stderr, c.formatter.Fail(err.Error()))
		return err
	}
	c.status(res)
	return c.write(res)
}

func (c *cli) batch(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: file", ErrMissingArgument)
	}
	if len(args) > 1 {
		return ErrTooManyArguments
	}

	var r io.Reader
	if args[0] == "-" {
		r = c.stdin
	} else {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open batch file: %w", err)
		}
		defer f.Close()
		r = f
	}
	sqls, err := readStatements(r)
	if err != nil {
		return err
	}

	var res executor.BatchResult
	if c.async {
		res, err = await(func(ok func(executor.BatchResult), fail func(error)) {
			c.db.BatchAsync(sqls, ok, fail)
		})
	} else {
		res, err = c.db.Batch(context.Background(), sqls)
	}
	if err != nil {
		fmt.Fprintln(c.stderr, c.formatter.Fail(err.Error()))
		return err
	}
	fmt.Fprintln(c.stderr, c.formatter.Ok(fmt.Sprintf("%d statements in %s", len(res.Results), res.Elapsed)))
	return c.write(res)
}

func (c *cli) status(res executor.Result) {
	if res.Rows != nil {
		fmt.Fprintln(c.stderr, c.formatter.Ok(fmt.Sprintf("%d rows", res.Affected)))
		return
	}
	fmt.Fprintln(c.stderr, c.formatter.Ok(fmt.Sprintf("%d changed", res.Affected)))
}

func (c *cli) write(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	return nil
}

// await blocks until one of the callbacks handed to submit fires.
func await[T any](submit func(onSuccess func(T), onError func(error))) (T, error) {
	type outcome struct {
		v   T
		err error
	}
	ch := make(chan outcome, 1)
	submit(
		func(v T) { ch <- outcome{v: v} },
		func(err error) { ch <- outcome{err: err} },
	)
	o := <-ch
	return o.v, o.err
}

// parseBindArgs decodes a JSON array. Integral numbers bind as integers, other
// numbers as floats.
func parseBindArgs(s string) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBindArgs, err)
	}
	for i, v := range raw {
		n, ok := v.(json.Number)
		if !ok {
			continue
		}
		if iv, err := n.Int64(); err == nil {
			raw[i] = iv
			continue
		}
		fv, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: value %d: %v", ErrInvalidBindArgs, i+1, err)
		}
		raw[i] = fv
	}
	return raw, nil
}

// readStatements returns one statement per non-blank line. Lines starting
// with "--" are skipped.
func readStatements(r io.Reader) ([]string, error) {
	var sqls []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		sqls = append(sqls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read statements: %w", err)
	}
	return sqls, nil
}
