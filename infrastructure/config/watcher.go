package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	pkgerrors "wikigraph-backend/pkg/errors"
)

// Watcher hot-reloads the configuration file. Change events are debounced
// so editors that write in several bursts trigger one reload; a reload that
// fails to parse or validate keeps the current configuration.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *zap.Logger
	stopCh  chan struct{}

	mu       sync.RWMutex
	current  Config
	onChange []func(Config)
}

const debounceWindow = 100 * time.Millisecond

// NewWatcher loads the initial configuration and sets up the file watch.
// The directory is watched too, for editors that save via rename.
func NewWatcher(path string, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	initial, err := Load(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "creating file watcher")
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, pkgerrors.Wrap(err, "watching config file")
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		logger.Warn("Failed to watch config directory", zap.Error(err))
	}

	return &Watcher{
		path:    path,
		watcher: fw,
		logger:  logger,
		stopCh:  make(chan struct{}),
		current: initial,
	}, nil
}

// Start begins watching for changes
func (w *Watcher) Start() {
	go w.watchLoop()
	w.logger.Info("Configuration watcher started", zap.String("path", w.path))
}

// Stop ends the watch
func (w *Watcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
	w.logger.Info("Configuration watcher stopped")
}

// Current returns the live configuration
func (w *Watcher) Current() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a reload callback; callbacks run on their own goroutine
func (w *Watcher) OnChange(fn func(Config)) {
	w.mu.Lock()
	w.onChange = append(w.onChange, fn)
	w.mu.Unlock()
}

func (w *Watcher) watchLoop() {
	var debounce *time.Timer

	for {
		select {
		case <-w.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceWindow, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

// reload re-reads the file and swaps the live configuration on success
func (w *Watcher) reload() {
	next, err := Load(w.path)
	if err != nil {
		w.logger.Error("Invalid configuration, keeping current", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.current = next
	handlers := append([]func(Config){}, w.onChange...)
	w.mu.Unlock()

	w.logger.Info("Configuration reloaded", zap.String("path", w.path))
	for _, fn := range handlers {
		go fn(next)
	}
}
