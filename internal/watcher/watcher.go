// Package watcher reports changes to a script directory tree, debounced.
package watcher

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/devscripts/internal/log"
)

// Watcher monitors a directory tree for script file changes.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	dir       string
	ext       string
	debounce  time.Duration
	onChange  chan struct{}
	done      chan struct{}
}

// Config holds watcher configuration options.
type Config struct {
	Dir         string
	Extension   string // only files with this extension are reported, e.g. ".lua"
	DebounceDur time.Duration
}

// DefaultConfig returns defaults for watching Lua scripts in dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:         dir,
		Extension:   ".lua",
		DebounceDur: 300 * time.Millisecond,
	}
}

// New creates a watcher. Nothing is watched until Start.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	return &Watcher{
		fsWatcher: fsw,
		dir:       cfg.Dir,
		ext:       cfg.Extension,
		debounce:  cfg.DebounceDur,
		onChange:  make(chan struct{}, 1),
		done:      make(chan struct{}),
	}, nil
}

// Start watches the directory and every subdirectory below it. The returned
// channel receives one signal per burst of changes.
func (w *Watcher) Start() (<-chan struct{}, error) {
	err := filepath.WalkDir(w.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsWatcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("watching directory %s: %w", w.dir, err)
	}

	go w.loop()

	return w.onChange, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		pending bool
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			w.followNewDir(event)
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
			pending = true

		case <-func() <-chan time.Time {
			if timer != nil {
				return timer.C
			}
			return nil
		}():
			if pending {
				// Drop the signal if one is already queued.
				select {
				case w.onChange <- struct{}{}:
				default:
				}
				pending = false
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn(log.CatScript, "Script watcher error", "dir", w.dir, "error", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// followNewDir starts watching directories created after Start.
func (w *Watcher) followNewDir(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.fsWatcher.Add(event.Name); err != nil {
		log.Warn(log.CatScript, "Failed to watch new directory", "dir", event.Name, "error", err)
	}
}

func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return w.ext == "" || strings.EqualFold(filepath.Ext(event.Name), w.ext)
}
