package dev

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ChangeType classifies a detected file change.
type ChangeType int

const (
	ChangeTemplate ChangeType = iota
	ChangeStatic
)

// Change is one detected file change.
type Change struct {
	Path string
	Type ChangeType
}

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// Paths are the directories to watch.
	Paths []string

	// Ignore patterns to skip (globs or bare names).
	Ignore []string

	// Interval is the polling period.
	Interval time.Duration
}

// DefaultIgnore contains default patterns to ignore.
var DefaultIgnore = []string{
	".git",
	"node_modules",
	"dist",
	"*.tmp",
	"*.swp",
	"*~",
}

// Watcher polls the watched directories for modified, added, or
// deleted files. Polling keeps the watcher portable and dependency
// free; the interval is short enough for an edit-refresh loop.
type Watcher struct {
	config   WatcherConfig
	onChange func(Change)

	mu         sync.Mutex
	running    bool
	stopCh     chan struct{}
	timestamps map[string]time.Time
}

// NewWatcher creates a watcher over the given paths.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Interval == 0 {
		config.Interval = 200 * time.Millisecond
	}
	if len(config.Ignore) == 0 {
		config.Ignore = DefaultIgnore
	}
	return &Watcher{
		config:     config,
		timestamps: make(map[string]time.Time),
	}
}

// OnChange sets the callback for file changes.
func (w *Watcher) OnChange(fn func(Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start begins watching and blocks until the context is canceled or
// Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.mu.Unlock()

	w.scanInitial()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case <-ticker.C:
			w.checkForChanges()
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

// scanInitial records the starting timestamps so the first poll does
// not report every existing file as changed.
func (w *Watcher) scanInitial() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, root := range w.config.Paths {
		filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() {
				if w.shouldIgnore(p) {
					return filepath.SkipDir
				}
				return nil
			}
			if !w.shouldIgnore(p) {
				w.timestamps[p] = info.ModTime()
			}
			return nil
		})
	}
}

// checkForChanges scans for modified and deleted files, reporting at
// most one change per change type per poll.
func (w *Watcher) checkForChanges() {
	w.mu.Lock()
	callback := w.onChange
	w.mu.Unlock()

	if callback == nil {
		return
	}

	var changes []Change

	for _, root := range w.config.Paths {
		filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() {
				if w.shouldIgnore(p) {
					return filepath.SkipDir
				}
				return nil
			}
			if w.shouldIgnore(p) {
				return nil
			}

			w.mu.Lock()
			lastMod, exists := w.timestamps[p]
			modTime := info.ModTime()
			if !exists || modTime.After(lastMod) {
				w.timestamps[p] = modTime
				changes = append(changes, Change{Path: p, Type: classifyChange(p)})
			}
			w.mu.Unlock()
			return nil
		})
	}

	w.mu.Lock()
	for p := range w.timestamps {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			delete(w.timestamps, p)
			changes = append(changes, Change{Path: p, Type: classifyChange(p)})
		}
	}
	w.mu.Unlock()

	reported := make(map[ChangeType]bool)
	for _, change := range changes {
		if !reported[change.Type] {
			reported[change.Type] = true
			callback(change)
		}
	}
}

// shouldIgnore checks a path against the ignore patterns.
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
		if strings.ContainsAny(pattern, "*?[") {
			if matched, _ := filepath.Match(pattern, name); matched {
				return true
			}
		}
	}
	return false
}

// classifyChange assigns a change type from the file extension.
func classifyChange(path string) ChangeType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return ChangeTemplate
	default:
		return ChangeStatic
	}
}

// IsRunning reports whether the watcher loop is active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
