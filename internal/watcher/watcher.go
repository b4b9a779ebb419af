// Package watcher provides file system watching with debouncing for language
// definition directories and viewed files.
package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/novic/internal/log"
)

// Watcher monitors a file or directory and signals after changes settle.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	dir       string
	match     func(path string) bool
	debounce  time.Duration
	onChange  chan struct{}
	done      chan struct{}
}

// Config holds watcher configuration options.
type Config struct {
	// Path is a file or a directory. For a file, only events on that file
	// count; for a directory, events on entries accepted by Filter.
	Path string

	// Filter selects relevant entries of a watched directory by path.
	// Nil accepts every entry.
	Filter func(path string) bool

	DebounceDur time.Duration
}

// DefaultConfig returns sensible defaults for the watcher.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		DebounceDur: 200 * time.Millisecond,
	}
}

// New creates a watcher. Path must exist.
func New(cfg Config) (*Watcher, error) {
	info, err := os.Stat(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("watching %s: %w", cfg.Path, err)
	}

	w := &Watcher{
		debounce: cfg.DebounceDur,
		onChange: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	if info.IsDir() {
		w.dir = cfg.Path
		w.match = cfg.Filter
		if w.match == nil {
			w.match = func(string) bool { return true }
		}
	} else {
		// Editors often replace files by rename, so watch the parent and
		// match on the file name.
		w.dir = filepath.Dir(cfg.Path)
		target := filepath.Base(cfg.Path)
		w.match = func(p string) bool { return filepath.Base(p) == target }
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	w.fsWatcher = fsw
	return w, nil
}

// Start begins watching. Returns a channel that receives a signal when the
// watched path changes.
func (w *Watcher) Start() (<-chan struct{}, error) {
	if err := w.fsWatcher.Add(w.dir); err != nil {
		return nil, fmt.Errorf("watching directory %s: %w", w.dir, err)
	}
	log.Debug(log.CatWatcher, "watching", "dir", w.dir, "debounce", w.debounce)

	go w.loop()

	return w.onChange, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

// loop processes file system events with debouncing.
func (w *Watcher) loop() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.isRelevantEvent(event) {
				continue
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			// Non-blocking send - drop if a signal is already queued
			select {
			case w.onChange <- struct{}{}:
			default:
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatWatcher, "watch error", err, "dir", w.dir)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// isRelevantEvent checks if the event should trigger a signal.
func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return w.match(event.Name)
}
