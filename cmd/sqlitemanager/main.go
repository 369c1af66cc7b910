package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	sqlitemanager "github.com/chamira/SQLiteManager"
	"github.com/chamira/SQLiteManager/config"
	_ "github.com/chamira/SQLiteManager/engine/crawshaw"
	"github.com/chamira/SQLiteManager/logger"
)

const stopTimeout = 10 * time.Second

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("sqlitemanager", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "Path to a TOML configuration file")
	dir := fs.String("dir", "", "Directory holding the database files (overrides storage.dir)")
	seeds := fs.String("seeds", "", "Directory holding seed databases (overrides storage.seed_dir)")
	driver := fs.String("driver", "", "Engine driver: zombiezen or crawshaw (overrides engine.driver)")
	create := fs.Bool("create", false, "Create an empty database when no seed exists")
	trace := fs.Bool("trace", false, "Log every statement and its outcome")
	async := fs.Bool("async", false, "Run through the asynchronous API")

	fs.Usage = func() {
		help := CommandHelp{
			Usage:       "sqlitemanager [options] <name.ext> <command> [arguments]",
			Description: "Runs SQL against a pooled SQLite database and prints the result as JSON.",
			Commands: []Command{
				{"query <sql>", "Run one statement"},
				{"bind <sql> <json-array>", "Run one statement with positional bind values"},
				{"batch <file|->", "Run one statement per line in a single transaction"},
			},
			Options: fs,
			Examples: []string{
				"sqlitemanager -create app.db query 'CREATE TABLE t (a TEXT)'",
				`sqlitemanager app.db bind 'INSERT INTO t (a) VALUES (?)' '["hello"]'`,
				"sqlitemanager app.db batch migrations.sql",
			},
		}
		help.Print(stderr)
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrInvalidFlag, err)
	}

	rest := fs.Args()
	if len(rest) < 1 {
		fs.Usage()
		return ErrMissingDatabase
	}
	if len(rest) < 2 {
		fs.Usage()
		return ErrMissingCommand
	}
	name, ext, err := splitIdentity(rest[0])
	if err != nil {
		return err
	}
	command, commandArgs := rest[1], rest[2:]

	cfg, err := config.Load(*configPath, logger.New(config.NewDefaultConfig().Log, stderr))
	if err != nil {
		return err
	}
	if *dir != "" {
		cfg.Storage.Dir = *dir
	}
	if *seeds != "" {
		cfg.Storage.SeedDir = *seeds
	}
	if *driver != "" {
		cfg.Engine.Driver = *driver
	}
	if *trace {
		cfg.Log.Trace = true
	}

	log := logger.New(cfg.Log, stderr)
	pool, err := sqlitemanager.NewPool(sqlitemanager.WithConfig(cfg), sqlitemanager.WithLogger(log))
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := pool.Stop(ctx); err != nil {
			fmt.Fprintf(stderr, "Error: failed to close databases: %v\n", err)
		}
	}()

	db, err := pool.Initialize(name, ext, *create)
	if err != nil {
		return err
	}

	c := &cli{
		db:        db,
		async:     *async,
		stdin:     stdin,
		stdout:    stdout,
		stderr:    stderr,
		formatter: logger.NewMessageFormatter().WithComponent(db.Name(), "🗄️"),
	}

	switch command {
	case "query":
		return c.query(commandArgs)
	case "bind":
		return c.bind(commandArgs)
	case "batch":
		return c.batch(commandArgs)
	default:
		fs.Usage()
		return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
}

// splitIdentity splits "name.ext" at its last dot.
func splitIdentity(id string) (name, ext string, err error) {
	i := strings.LastIndexByte(id, '.')
	if i <= 0 || i == len(id)-1 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidDatabase, id)
	}
	return id[:i], id[i+1:], nil
}
