package gate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/gatebridge/internal/loop"
)

const DefaultDebounce = 20 * time.Millisecond

// FeedFile is the on-disk format read by FileFeed.
type FeedFile struct {
	Values []float64 `yaml:"values"`
	// Count defaults to len(Values).
	Count *int `yaml:"count,omitempty"`
}

func ReadFeedFile(path string) (*FeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f FeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(f.Values) == 0 {
		return nil, fmt.Errorf("%s: no values", path)
	}
	for i, v := range f.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%s: value %d is not finite", path, i)
		}
	}
	return &f, nil
}

func (f *FeedFile) count() int {
	if f.Count != nil {
		return *f.Count
	}
	return len(f.Values)
}

type FeedConfig struct {
	Path     string
	Debounce time.Duration
	// Refresh republishes the last values with a fresh tick at this
	// interval. Zero publishes only on change.
	Refresh time.Duration
}

// FileFeed watches a YAML file and submits its values, stamped with the loop
// clock, each time it changes. The parent directory is watched so editors
// that replace the file are followed.
type FileFeed struct {
	cfg   FeedConfig
	to    Submitter
	clock loop.Clock
	log   logr.Logger

	mu     sync.Mutex
	last   *FeedFile
	paused bool
}

func NewFileFeed(cfg FeedConfig, to Submitter, clock loop.Clock, log logr.Logger) *FileFeed {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	return &FileFeed{cfg: cfg, to: to, clock: clock, log: log.WithName("feed")}
}

func (f *FileFeed) Pause() {
	f.mu.Lock()
	f.paused = true
	f.mu.Unlock()
}

func (f *FileFeed) Resume() {
	f.mu.Lock()
	f.paused = false
	f.mu.Unlock()
}

// Run watches until ctx is done. The file is read once at start if present.
func (f *FileFeed) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	path, err := filepath.Abs(f.cfg.Path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	if _, statErr := os.Stat(path); statErr == nil {
		f.reload(path)
	}

	f.log.Info("setpoint feed started", "path", path, "debounce", f.cfg.Debounce, "refresh", f.cfg.Refresh)

	var refresh <-chan time.Time
	if f.cfg.Refresh > 0 {
		t := time.NewTicker(f.cfg.Refresh)
		defer t.Stop()
		refresh = t.C
	}

	debounce := time.NewTimer(f.cfg.Debounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(f.cfg.Debounce)

		case <-debounce.C:
			f.reload(path)

		case <-refresh:
			f.republish()

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			f.log.Error(err, "setpoint feed watcher error")
		}
	}
}

func (f *FileFeed) reload(path string) {
	file, err := ReadFeedFile(path)
	if err != nil {
		f.log.Error(err, "setpoint feed read failed", "path", path)
		return
	}
	f.mu.Lock()
	f.last = file
	f.mu.Unlock()
	f.republish()
}

func (f *FileFeed) republish() {
	f.mu.Lock()
	file, paused := f.last, f.paused
	f.mu.Unlock()
	if file == nil || paused {
		return
	}
	tick := f.clock.NowMs()
	if err := f.to.Submit(file.Values, file.count(), tick); err != nil {
		f.log.V(1).Info("feed submission rejected", "tick", tick, "error", err.Error())
	}
}
