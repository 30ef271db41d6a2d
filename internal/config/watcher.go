package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hammamikhairi/ottospeak/internal/logger"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 500 * time.Millisecond

// WatcherOption configures the ProfileWatcher.
type WatcherOption func(*ProfileWatcher)

// WithDebounce sets the delay between the last file event and the reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *ProfileWatcher) {
		w.debounce = d
	}
}

// ProfileWatcher reloads a profile file when it changes on disk.
type ProfileWatcher struct {
	path     string
	debounce time.Duration
	onReload func(*Profile, error)
	log      *logger.Logger

	mu      sync.RWMutex
	current *Profile
	reloads atomic.Uint32
}

// NewProfileWatcher loads the profile once and prepares to watch it.
// onReload runs after every reload attempt, with the error when the new
// content is invalid; the previous snapshot is kept in that case.
func NewProfileWatcher(path string, log *logger.Logger, onReload func(*Profile, error), opts ...WatcherOption) (*ProfileWatcher, error) {
	w := &ProfileWatcher{
		path:     path,
		debounce: DefaultDebounce,
		onReload: onReload,
		log:      log,
	}
	for _, opt := range opts {
		opt(w)
	}

	p, err := LoadProfile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial profile: %w", err)
	}
	w.current = p
	return w, nil
}

// Run watches the profile's directory until ctx ends. The directory is
// watched instead of the file so editors that save by rename are seen.
func (w *ProfileWatcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch dir %q: %w", dir, err)
	}
	target := filepath.Clean(w.path)
	w.log.Debug("profile watcher: watching %s", target)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(w.debounce, w.reload)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("profile watcher: %v", err)
		}
	}
}

// reload reloads the profile file.
func (w *ProfileWatcher) reload() {
	count := w.reloads.Add(1)
	w.log.Info("reloading profile %s (#%d)", w.path, count)

	p, err := LoadProfile(w.path)
	if err != nil {
		w.log.Error("profile reload failed: %v", err)
		w.onReload(nil, err)
		return
	}

	w.mu.Lock()
	w.current = p
	w.mu.Unlock()

	w.onReload(p, nil)
}

// Snapshot returns the last successfully loaded profile.
func (w *ProfileWatcher) Snapshot() *Profile {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// ReloadCount returns the number of reload attempts.
func (w *ProfileWatcher) ReloadCount() uint32 {
	return w.reloads.Load()
}
