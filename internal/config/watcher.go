// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// CONFIG WATCHER
// =============================================================================

// DefaultDebounce coalesces the write bursts editors produce when
// saving a file.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads the config file when it changes on disk and hands
// the result to a callback. Reload failures are swallowed: the running
// configuration stays in effect until the file parses again.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(*Config)

	watcher *fsnotify.Watcher
	mu      sync.Mutex
	pending time.Time
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewWatcher creates a watcher for the config file at path. onChange
// runs on the watcher goroutine with each successfully reloaded config.
func NewWatcher(path string, onChange func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		path:     path,
		debounce: DefaultDebounce,
		onChange: onChange,
		watcher:  fw,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Watch starts watching. The parent directory is watched rather than
// the file itself: atomic saves replace the inode and would silently
// detach a file-level watch.
func (w *Watcher) Watch() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	go w.processEvents()
	go w.processPending()
	return nil
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	return w.watcher.Close()
}

// processEvents marks the config as pending on relevant events.
func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			w.pending = time.Now()
			w.mu.Unlock()
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal; the next poll tick retries.
		}
	}
}

// processPending fires the reload once the debounce window has passed.
func (w *Watcher) processPending() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.mu.Lock()
			due := !w.pending.IsZero() && time.Since(w.pending) >= w.debounce
			if due {
				w.pending = time.Time{}
			}
			w.mu.Unlock()

			if !due {
				continue
			}
			cfg, err := LoadFromPath(w.path)
			if err != nil {
				continue
			}
			w.onChange(cfg)
		}
	}
}
