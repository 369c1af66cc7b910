package sqlitemanager

import (
	"io/fs"
	"log/slog"

	"github.com/chamira/SQLiteManager/config"
	"github.com/chamira/SQLiteManager/engine"
	"github.com/chamira/SQLiteManager/provision"
	"github.com/chamira/SQLiteManager/scheduler"
)

type Option func(*Pool)

// WithConfigProvider sets the configuration read each time a database is
// initialized.
func WithConfigProvider(p *config.Provider) Option {
	return func(pool *Pool) {
		pool.provider = p
	}
}

// WithConfig is WithConfigProvider for a fixed configuration.
func WithConfig(cfg *config.Config) Option {
	return WithConfigProvider(config.NewProvider(cfg))
}

// WithLogger sets the logger implementation
func WithLogger(l *slog.Logger) Option {
	return func(pool *Pool) {
		pool.logger = l
	}
}

// WithSeeds sets the bundle seed databases are copied from. It takes
// precedence over storage.seed_dir.
func WithSeeds(seeds fs.FS) Option {
	return func(pool *Pool) {
		pool.seeds = seeds
	}
}

// WithDriver overrides engine.driver with a concrete driver.
func WithDriver(d engine.Driver) Option {
	return func(pool *Pool) {
		pool.driver = d
	}
}

// WithDispatcher sets where async callbacks are delivered. The pool does not
// stop a dispatcher it did not create.
func WithDispatcher(d scheduler.Dispatcher) Option {
	return func(pool *Pool) {
		pool.dispatcher = d
	}
}

// WithExcluder replaces the platform backup exclusion. It is only applied
// when storage.exclude_from_backup is set.
func WithExcluder(e provision.Excluder) Option {
	return func(pool *Pool) {
		pool.excluder = e
	}
}
