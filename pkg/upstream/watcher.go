package upstream

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// endpointsFile is the on-disk registration format consumed by the
// Watcher. An external supervisor rewrites this file when backend
// replicas come and go.
type endpointsFile struct {
	Upstreams []struct {
		Name string `yaml:"name"`
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"upstreams"`
}

// WatcherConfig contains configuration for the endpoints file watcher.
type WatcherConfig struct {
	// Path is the endpoints YAML file to watch.
	Path string

	// DebounceInterval is the time to wait after a change before
	// reconciling, to coalesce editor/supervisor write storms.
	// Default: 100ms.
	DebounceInterval time.Duration
}

// Watcher keeps a Pool reconciled against an endpoints file on disk.
// It watches the file's directory (not the file itself) so atomic
// rename-into-place writes are observed.
type Watcher struct {
	pool    *Pool
	config  WatcherConfig
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewWatcher creates a watcher for the given pool. The initial file
// contents are applied immediately; watching does not start until Start
// is called.
func NewWatcher(pool *Pool, config WatcherConfig, logger *slog.Logger) (*Watcher, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("watcher: path must not be empty")
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = 100 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}

	w := &Watcher{
		pool:    pool,
		config:  config,
		watcher: fsw,
		logger:  logger.With("component", "upstream.watcher"),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	if err := w.reconcileFromFile(); err != nil {
		fsw.Close()
		return nil, err
	}

	return w, nil
}

// Start begins watching the endpoints file for changes.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher: already running")
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.config.Path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watcher: watch %s: %w", dir, err)
	}

	go w.run()

	w.logger.Info("endpoints watcher started",
		"path", w.config.Path,
		"debounce", w.config.DebounceInterval,
	)
	return nil
}

// Stop stops watching and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.stopCh)
	w.watcher.Close()
	<-w.doneCh
}

// run is the fsnotify event loop.
func (w *Watcher) run() {
	defer close(w.doneCh)

	target := filepath.Clean(w.config.Path)

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.scheduleReconcile()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("endpoints watcher error", "error", err)
		}
	}
}

// scheduleReconcile debounces bursts of file events into one reconcile.
func (w *Watcher) scheduleReconcile() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.config.DebounceInterval, func() {
		if err := w.reconcileFromFile(); err != nil {
			// A malformed or missing file never tears down the pool;
			// the last good membership stays in effect.
			w.logger.Warn("endpoints reconcile failed", "error", err)
		}
	})
}

// reconcileFromFile loads the endpoints file and reconciles the pool.
func (w *Watcher) reconcileFromFile() error {
	endpoints, err := LoadEndpointsFile(w.config.Path)
	if err != nil {
		return err
	}

	w.pool.Reconcile(endpoints)
	w.logger.Debug("pool reconciled from file",
		"path", w.config.Path,
		"endpoints", len(endpoints),
	)
	return nil
}

// LoadEndpointsFile parses an endpoints YAML file into a validated
// endpoint list.
func LoadEndpointsFile(path string) ([]Endpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read endpoints file %q: %w", path, err)
	}

	var file endpointsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse endpoints file %q: %w", path, err)
	}

	endpoints := make([]Endpoint, 0, len(file.Upstreams))
	for _, u := range file.Upstreams {
		e := Endpoint{Name: u.Name, Host: u.Host, Port: u.Port}
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("endpoints file %q: %w", path, err)
		}
		endpoints = append(endpoints, e)
	}
	return endpoints, nil
}
