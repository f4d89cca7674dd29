// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509crl

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/H0llyW00dzZ/netconf-tls-client/src/logger"
)

// DefaultDebounce is the quiet period a Watcher waits for before reporting a change.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reports changes to a CRL file or to the contents of a CRL directory.
//
// The parent directory of the file is watched rather than the file itself,
// so CRLs replaced by rename are still noticed.
type Watcher struct {
	watcher  *fsnotify.Watcher
	file     string
	dir      string
	onChange func()
	debounce time.Duration
	logger   logger.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before onChange runs.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithWatcherLogger sets the logger for watch errors.
func WithWatcherLogger(l logger.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// NewWatcher starts watching file and dir. Either may be empty, not both.
// onChange is called after a burst of events has settled.
func NewWatcher(file, dir string, onChange func(), opts ...WatcherOption) (*Watcher, error) {
	if file == "" && dir == "" {
		return nil, errors.New("x509crl: nothing to watch")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		onChange: onChange,
		debounce: DefaultDebounce,
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(w)
	}

	if file != "" {
		w.file = filepath.Clean(file)
		if err := fw.Add(filepath.Dir(w.file)); err != nil {
			fw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", w.file, err)
		}
	}
	if dir != "" {
		w.dir = filepath.Clean(dir)
		if err := fw.Add(w.dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", w.dir, err)
		}
	}

	return w, nil
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stopTimer()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.relevant(event) {
				w.schedule()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warnf("CRL watcher: %v", err)
		}
	}
}

// Close stops watching. A running Run returns.
func (w *Watcher) Close() error { return w.watcher.Close() }

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Clean(event.Name)
	if w.file != "" && name == w.file {
		return true
	}
	return w.dir != "" && filepath.Dir(name) == w.dir
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.fire)
		return
	}
	w.timer.Reset(w.debounce)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	w.timer = nil
	w.mu.Unlock()

	w.onChange()
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
