// Package provision makes sure a database file exists in the data directory,
// either by copying a same-named seed file or by creating an empty one.
package provision

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/chamira/SQLiteManager/sqlerror"
)

// Excluder marks a file as excluded from cloud backup.
type Excluder interface {
	Exclude(path string) error
}

type ExcluderFunc func(path string) error

func (f ExcluderFunc) Exclude(path string) error { return f(path) }

type Provisioner struct {
	// Dir is the writable directory holding database files.
	Dir string
	// Seeds holds seed databases keyed by "name.ext". May be nil.
	Seeds fs.FS
	// Excluder is applied to every file the provisioner writes. May be nil.
	Excluder Excluder
	Logger   *slog.Logger
}

func Identity(name, ext string) string {
	return name + "." + ext
}

// Resolve returns the absolute path of the database file. The identity must
// be a plain file name inside Dir.
func (p *Provisioner) Resolve(name, ext string) (string, error) {
	id := Identity(name, ext)
	if p.Dir == "" || name == "" || filepath.Base(id) != id {
		return "", sqlerror.PathUnresolved(id)
	}
	dir, err := filepath.Abs(p.Dir)
	if err != nil {
		e := sqlerror.PathUnresolved(id)
		e.Err = err
		return "", e
	}
	return filepath.Join(dir, id), nil
}

// Provision makes sure the database file exists and returns its path. An
// existing file is never modified. Otherwise the seed file is copied, or an
// empty file is created when create is true.
func (p *Provisioner) Provision(name, ext string, create bool) (string, error) {
	path, err := p.Resolve(name, ext)
	if err != nil {
		return "", err
	}
	logger := p.logger().With("db", Identity(name, ext), "path", path)

	if _, err := os.Stat(path); err == nil {
		logger.Debug("database already provisioned")
		return path, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("provision %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("provision %s: %w", path, err)
	}

	copied, err := p.copySeed(Identity(name, ext), path)
	if err != nil {
		return "", fmt.Errorf("provision %s: %w", path, err)
	}
	switch {
	case copied:
		logger.Info("database copied from seed")
	case create:
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			return "", fmt.Errorf("provision %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("provision %s: %w", path, err)
		}
		logger.Info("empty database created")
	default:
		return "", sqlerror.SeedFileMissing(Identity(name, ext))
	}

	if p.Excluder != nil {
		if err := p.Excluder.Exclude(path); err != nil {
			logger.Warn("failed to exclude database from backup", "err", err)
		}
	}
	return path, nil
}

// copySeed copies the seed named id to dst through a temporary file in the
// destination directory. It reports false when there is no such seed.
func (p *Provisioner) copySeed(id, dst string) (bool, error) {
	if p.Seeds == nil {
		return false, nil
	}
	src, err := p.Seeds.Open(id)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer src.Close()

	if info, err := src.Stat(); err == nil && info.IsDir() {
		return false, nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".tmp-*")
	if err != nil {
		return false, err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Close(); err != nil {
		return false, err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return false, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provisioner) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}
