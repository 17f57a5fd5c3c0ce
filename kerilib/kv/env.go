package kv

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/erigontech/mdbx-go/mdbx"
	"github.com/gofrs/flock"
)

// Options configures Open. Temp mirrors spec.md §4.G's "headless/temp
// root" mode: a fresh directory is created under os.TempDir() and removed
// on Close when Clear is set, instead of requiring the caller to manage a
// durable path.
type Options struct {
	Path     string
	Temp     bool
	Clear    bool
	MapSize  int64
	MaxTables int
}

// Env is the scoped handle on one MDBX environment: one writer, zero or
// more snapshot readers, per spec.md §5. Open/Close bracket every file
// lock and memory map the environment holds; Close is safe to call more
// than once and safe to call on all exit paths including after a failed
// Open.
type Env struct {
	env    *mdbx.Env
	path   string
	clear  bool
	lock   *flock.Flock
	tables TableCfg
}

// Open creates (or attaches to) an MDBX environment at opts.Path, or at a
// freshly allocated temp directory when opts.Temp is set, and creates the
// sub-databases named in cfg. The advisory file lock (gofrs/flock) is
// independent of MDBX's own reader/writer lock file: it guards the
// process-level open/close lifecycle described in spec.md §5 so that two
// goroutines in the same process cannot race to Open/Close the same path
// while a headless temp environment is being torn down.
func Open(cfg TableCfg, opts Options) (*Env, error) {
	path := opts.Path
	if opts.Temp {
		dir, err := os.MkdirTemp("", "kerigo-baser-*")
		if err != nil {
			return nil, fmt.Errorf("kv: create temp dir: %w", err)
		}
		path = dir
	}
	if path == "" {
		return nil, fmt.Errorf("kv: empty path and Temp not set")
	}
	if err := os.MkdirAll(path, 0o750); err != nil {
		return nil, fmt.Errorf("kv: mkdir %s: %w", path, err)
	}

	lk := flock.New(filepath.Join(path, ".kerigo.lock"))
	if err := lk.Lock(); err != nil {
		return nil, fmt.Errorf("kv: acquire process lock: %w", err)
	}

	env, err := mdbx.NewEnv()
	if err != nil {
		lk.Unlock()
		return nil, fmt.Errorf("kv: new env: %w", err)
	}
	maxTables := opts.MaxTables
	if maxTables == 0 {
		maxTables = 32
	}
	if err := env.SetOption(mdbx.OptMaxDB, uint64(maxTables)); err != nil {
		lk.Unlock()
		return nil, fmt.Errorf("kv: set max dbs: %w", err)
	}
	mapSize := opts.MapSize
	if mapSize == 0 {
		mapSize = 1 << 30 // 1GiB default, grows lazily via MDBX geometry
	}
	if err := env.SetGeometry(-1, -1, int(mapSize), -1, -1, -1); err != nil {
		lk.Unlock()
		return nil, fmt.Errorf("kv: set geometry: %w", err)
	}
	if err := env.Open(path, 0, 0o640); err != nil {
		lk.Unlock()
		return nil, fmt.Errorf("kv: open %s: %w", path, err)
	}

	e := &Env{env: env, path: path, clear: opts.Temp && opts.Clear, lock: lk, tables: cfg}

	if err := e.createTables(cfg); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Env) createTables(cfg TableCfg) error {
	return e.env.Update(func(txn *mdbx.Txn) error {
		for name, item := range cfg {
			flags := mdbx.Create
			if item.Flags&DupSort != 0 {
				flags |= mdbx.DupSort
			}
			if item.Flags&DupFixed != 0 {
				flags |= mdbx.DupFixed
			}
			if item.Flags&IntegerKey != 0 {
				flags |= mdbx.IntegerKey
			}
			if item.Flags&ReverseKey != 0 {
				flags |= mdbx.ReverseKey
			}
			if _, err := txn.OpenDBI(name, flags, nil, nil); err != nil {
				return fmt.Errorf("kv: create table %q: %w", name, err)
			}
		}
		return nil
	})
}

// Close releases the environment and the process lock on every path,
// including when called after a partially failed Open. If the
// environment was opened with Temp and Clear it also removes the backing
// directory.
func (e *Env) Close() error {
	if e == nil {
		return nil
	}
	var firstErr error
	if e.env != nil {
		e.env.Close(false)
		e.env = nil
	}
	if e.clear && e.path != "" {
		if err := os.RemoveAll(e.path); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.lock != nil {
		if err := e.lock.Unlock(); err != nil && firstErr == nil {
			firstErr = err
		}
		e.lock = nil
	}
	return firstErr
}

// Path reports the directory the environment is backed by, useful for
// diagnostics and for tests asserting temp-path cleanup.
func (e *Env) Path() string { return e.path }
