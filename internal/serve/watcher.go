package serve

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Change is a detected file change.
type Change struct {
	Path    string
	Removed bool
}

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// Paths are the files and directories to watch.
	Paths []string

	// Ignore lists base names and globs to skip.
	Ignore []string

	// Interval is the polling interval.
	Interval time.Duration
}

// DefaultIgnore contains default patterns to ignore.
var DefaultIgnore = []string{
	"*_test.go",
	".git",
	"vendor",
	"testdata",
	"node_modules",
	"*.tmp",
	"*.swp",
	"*~",
}

// Watcher polls files for changes.
type Watcher struct {
	config     WatcherConfig
	onChange   func([]Change)
	mu         sync.Mutex
	running    bool
	scanned    bool
	stopCh     chan struct{}
	timestamps map[string]time.Time
}

// NewWatcher creates a new file watcher.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Interval == 0 {
		config.Interval = 500 * time.Millisecond
	}
	if len(config.Ignore) == 0 {
		config.Ignore = DefaultIgnore
	}

	return &Watcher{
		config:     config,
		timestamps: make(map[string]time.Time),
	}
}

// OnChange sets the callback for a batch of changes.
func (w *Watcher) OnChange(fn func([]Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start polls until ctx is canceled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	w.mu.Unlock()

	w.Scan()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			if changes := w.Scan(); len(changes) > 0 {
				w.mu.Lock()
				callback := w.onChange
				w.mu.Unlock()
				if callback != nil {
					callback(changes)
				}
			}
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		close(w.stopCh)
		w.running = false
	}
}

// IsRunning returns whether the watcher is running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Scan records current modification times and returns the changes since
// the previous scan, sorted by path. The first scan reports nothing.
func (w *Watcher) Scan() []Change {
	current := make(map[string]time.Time)
	for _, root := range w.config.Paths {
		filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if w.shouldIgnore(p) {
				if info.IsDir() && p != root {
					return filepath.SkipDir
				}
				return nil
			}
			if !info.IsDir() {
				current[p] = info.ModTime()
			}
			return nil
		})
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	previous := w.timestamps
	w.timestamps = current
	if !w.scanned {
		w.scanned = true
		return nil
	}

	var changes []Change
	for p, mod := range current {
		if last, ok := previous[p]; !ok || mod.After(last) {
			changes = append(changes, Change{Path: p})
		}
	}
	for p := range previous {
		if _, ok := current[p]; !ok {
			changes = append(changes, Change{Path: p, Removed: true})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes
}

// shouldIgnore checks if a path should be ignored.
func (w *Watcher) shouldIgnore(fullPath string) bool {
	name := filepath.Base(fullPath)
	for _, pattern := range w.config.Ignore {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if name == pattern {
			return true
		}
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}
