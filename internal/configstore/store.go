// Package configstore loads the game data bundle and hot-reloads it when files change.
// Running sessions keep the bundle they started with; new sessions pick up the latest good one.
package configstore

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"overburnt.game/internal/sim/catalogs"
	"overburnt.game/internal/sim/levels"
	"overburnt.game/internal/sim/tuning"
)

type Bundle struct {
	Dir      string
	Catalogs *catalogs.Catalogs
	Tuning   tuning.Tuning
	Layout   *levels.Layout
	Levels   *levels.Set
	Version  uint64
	LoadedAt time.Time
}

// Load reads and cross-checks every data file under dir.
func Load(dir string) (*Bundle, error) {
	cats, err := catalogs.Load(dir)
	if err != nil {
		return nil, err
	}
	tun, err := tuning.Load(filepath.Join(dir, "tuning.yaml"))
	if err != nil {
		return nil, err
	}
	layout, err := levels.LoadLayout(filepath.Join(dir, "layout.yaml"), cats)
	if err != nil {
		return nil, err
	}
	set, err := levels.LoadLevels(filepath.Join(dir, "levels.yaml"), layout, cats)
	if err != nil {
		return nil, err
	}
	return &Bundle{Dir: dir, Catalogs: cats, Tuning: tun, Layout: layout, Levels: set, LoadedAt: time.Now()}, nil
}

type Store struct {
	dir      string
	logger   *log.Logger
	debounce time.Duration

	cur      atomic.Pointer[Bundle]
	versions atomic.Uint64

	onReload func(*Bundle)
}

// Open loads dir once. A failure here is fatal to the caller; later reload failures are not.
func Open(dir string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Store{dir: dir, logger: logger, debounce: 250 * time.Millisecond}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Current() *Bundle { return s.cur.Load() }

func (s *Store) SetDebounce(d time.Duration) { s.debounce = d }

// OnReload registers fn to run after every successful reload, on the watcher goroutine.
func (s *Store) OnReload(fn func(*Bundle)) { s.onReload = fn }

// Reload swaps in a fresh bundle. On error the current bundle stays.
func (s *Store) Reload() error {
	b, err := Load(s.dir)
	if err != nil {
		return fmt.Errorf("configstore: %w", err)
	}
	b.Version = s.versions.Add(1)
	s.cur.Store(b)
	return nil
}

// Watch reloads on changes to data files until ctx is done. Bursts of events within the
// debounce window collapse into one reload.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			timer.Reset(s.debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Printf("fsnotify error=%v", err)
		case <-timer.C:
			if err := s.Reload(); err != nil {
				s.logger.Printf("reload failed, keeping version %d: %v", s.Current().Version, err)
				continue
			}
			b := s.Current()
			s.logger.Printf("reloaded %s version=%d levels=%d", s.dir, b.Version, b.Levels.Len())
			if s.onReload != nil {
				s.onReload(b)
			}
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	switch strings.ToLower(filepath.Ext(ev.Name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}
