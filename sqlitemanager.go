// Package sqlitemanager pools SQLite database instances by identity and
// exposes plain, bound and batched SQL execution through synchronous and
// asynchronous calls. Each database has a read lane, a write lane and a batch
// lane; a lane runs at most one statement at a time in submission order.
package sqlitemanager

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/chamira/SQLiteManager/cache/ristretto"
	"github.com/chamira/SQLiteManager/config"
	"github.com/chamira/SQLiteManager/conn"
	"github.com/chamira/SQLiteManager/engine"
	_ "github.com/chamira/SQLiteManager/engine/zombiezen"
	"github.com/chamira/SQLiteManager/executor"
	"github.com/chamira/SQLiteManager/logger"
	"github.com/chamira/SQLiteManager/provision"
	"github.com/chamira/SQLiteManager/scheduler"
)

// Pool is the registry of database instances. At most one instance exists per
// identity "name.ext".
type Pool struct {
	provider   *config.Provider
	logger     *slog.Logger
	seeds      fs.FS
	driver     engine.Driver
	dispatcher scheduler.Dispatcher
	excluder   provision.Excluder

	ownDispatcher *scheduler.SerialDispatcher
	logDaemon     *logger.Daemon

	group     singleflight.Group
	mu        sync.RWMutex
	instances map[string]*Database
}

func NewPool(opts ...Option) (*Pool, error) {
	p := &Pool{instances: make(map[string]*Database)}
	for _, opt := range opts {
		opt(p)
	}

	if p.provider == nil {
		p.provider = config.NewProvider(config.NewDefaultConfig())
	}
	if err := config.Validate(p.provider.Get()); err != nil {
		return nil, fmt.Errorf("sqlitemanager: %w", err)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if cfg := p.provider.Get(); cfg.Log.Database != "" {
		p.startLogDaemon(cfg.Log)
	}
	if p.dispatcher == nil {
		p.ownDispatcher = scheduler.NewSerialDispatcher(p.logger)
		p.dispatcher = p.ownDispatcher
	}
	if p.excluder == nil {
		p.excluder = provision.XattrExcluder{}
	}
	return p, nil
}

// Initialize returns the instance for name.ext, creating, provisioning and
// opening it on first use. For an existing instance create is ignored.
// Concurrent first calls for the same identity share one construction.
func (p *Pool) Initialize(name, ext string, create bool) (*Database, error) {
	if db, ok := p.Instance(name, ext); ok {
		return db, nil
	}

	id := provision.Identity(name, ext)
	v, err, _ := p.group.Do(id, func() (any, error) {
		if db, ok := p.Instance(name, ext); ok {
			return db, nil
		}
		db, err := p.open(name, ext, create)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.instances[id] = db
		p.mu.Unlock()
		p.logger.Info("database initialized", "db", id, "path", db.Path())
		return db, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Database), nil
}

func (p *Pool) open(name, ext string, create bool) (*Database, error) {
	cfg := p.provider.Get()
	id := provision.Identity(name, ext)
	logger := p.logger.With("db", id)

	driver := p.driver
	if driver == nil {
		d, err := engine.Lookup(cfg.Engine.Driver)
		if err != nil {
			return nil, fmt.Errorf("sqlitemanager: %w", err)
		}
		driver = d
	}

	prov := &provision.Provisioner{
		Dir:    cfg.Storage.Dir,
		Seeds:  p.seeds,
		Logger: logger,
	}
	if prov.Seeds == nil && cfg.Storage.SeedDir != "" {
		prov.Seeds = os.DirFS(cfg.Storage.SeedDir)
	}
	if cfg.Storage.ExcludeFromBackup {
		prov.Excluder = p.excluder
	}
	path, err := prov.Provision(name, ext, create)
	if err != nil {
		return nil, err
	}

	conns := conn.New(conn.Options{
		Name:        id,
		Path:        path,
		Driver:      driver,
		BusyTimeout: cfg.Engine.BusyTimeout.Duration,
		Retry: conn.RetryPolicy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Backoff:     cfg.Retry.Backoff.Duration,
		},
		Logger: logger,
	})
	if err := conns.Open(); err != nil {
		return nil, err
	}

	exec := executor.New(conns, logger)
	exec.SetTrace(cfg.Log.Trace)

	var results *resultCache
	if cfg.Cache.Enabled {
		c, err := ristretto.New[executor.Result](cfg.Cache.Level)
		if err != nil {
			conns.Close()
			return nil, fmt.Errorf("sqlitemanager: %w", err)
		}
		results = newResultCache(c, cfg.Cache.TTL.Duration)
	}

	return newDatabase(id, create, conns, exec, results, p.dispatcher, logger), nil
}

// Instance looks up an initialized database without side effects.
func (p *Pool) Instance(name, ext string) (*Database, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	db, ok := p.instances[provision.Identity(name, ext)]
	return db, ok
}

func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.instances)
}

// Instances returns the registered databases ordered by name.
func (p *Pool) Instances() []*Database {
	p.mu.RLock()
	dbs := make([]*Database, 0, len(p.instances))
	for _, db := range p.instances {
		dbs = append(dbs, db)
	}
	p.mu.RUnlock()
	sort.Slice(dbs, func(i, j int) bool { return dbs[i].Name() < dbs[j].Name() })
	return dbs
}

// Dispose closes name.ext and removes it from the pool. A database that fails
// to close stays registered.
func (p *Pool) Dispose(ctx context.Context, name, ext string) error {
	db, ok := p.Instance(name, ext)
	if !ok {
		return nil
	}
	if err := db.Close(ctx); err != nil {
		return err
	}
	p.remove(db)
	return nil
}

// CloseAll closes every registered database concurrently and empties the
// registry. Databases that fail to close stay registered and the first
// failure is returned.
func (p *Pool) CloseAll(ctx context.Context) error {
	var g errgroup.Group
	for _, db := range p.Instances() {
		db := db
		g.Go(func() error {
			if err := db.Close(ctx); err != nil {
				p.logger.Error("failed to close database", "db", db.Name(), "err", err)
				return err
			}
			p.remove(db)
			return nil
		})
	}
	return g.Wait()
}

// Stop flushes the log database, closes all databases and stops the pool's
// own callback dispatcher. Every step runs even if an earlier one fails.
func (p *Pool) Stop(ctx context.Context) error {
	var errs []error
	if p.logDaemon != nil {
		if err := p.logDaemon.Stop(ctx); err != nil {
			p.logger.Error("failed to stop log daemon", "err", err)
			errs = append(errs, err)
		}
	}
	errs = append(errs, p.CloseAll(ctx))
	if p.ownDispatcher != nil {
		errs = append(errs, p.ownDispatcher.Stop(ctx))
	}
	return errors.Join(errs...)
}

func (p *Pool) remove(db *Database) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.instances[db.Name()] == db {
		delete(p.instances, db.Name())
	}
}
