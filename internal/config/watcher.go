// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for taskchat.
//
// This file implements live configuration reload. The watcher observes the
// config directory and reloads the configuration when the config file is
// written, with debouncing since editors fire several events per save.
package config

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce is how long after the last write event a reload fires.
const reloadDebounce = 250 * time.Millisecond

// Watcher reloads the configuration when the config file changes on disk.
type Watcher struct {
	watcher  *fsnotify.Watcher
	onReload func(*Config)

	mu          sync.Mutex
	lastChange  time.Time
	pendingLoad bool

	ctx    context.Context
	cancel context.CancelFunc
}

// Watch starts watching the config directory for changes. The callback is
// invoked with the freshly loaded config after each change; the global
// config is replaced as well. Callback may be nil.
func Watch(onReload func(*Config)) (*Watcher, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	if err := EnsureConfigDir(); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory, not the file: editors replace the file on save
	// and a file watch would be lost after the first rename.
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		watcher:  fsw,
		onReload: onReload,
		ctx:      ctx,
		cancel:   cancel,
	}

	go w.processEvents()
	go w.processPending()

	return w, nil
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	return w.watcher.Close()
}

// processEvents marks config file writes as pending reloads.
func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isConfigFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			w.mu.Lock()
			w.lastChange = time.Now()
			w.pendingLoad = true
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("config watcher error: %v", err)
		}
	}
}

// processPending reloads once events have settled for the debounce window.
func (w *Watcher) processPending() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			w.mu.Lock()
			due := w.pendingLoad && time.Since(w.lastChange) >= reloadDebounce
			if due {
				w.pendingLoad = false
			}
			w.mu.Unlock()

			if due {
				w.reload()
			}
		}
	}
}

// reload loads the config and publishes it. A config that fails to load or
// validate is ignored; the previous config stays active.
func (w *Watcher) reload() {
	cfg, err := Load()
	if err != nil {
		log.Printf("config reload skipped: %v", err)
		return
	}

	SetGlobal(cfg)
	log.Printf("config reloaded")

	if w.onReload != nil {
		w.onReload(cfg)
	}
}

// isConfigFile reports whether the path is one of the config files.
func isConfigFile(path string) bool {
	base := filepath.Base(path)
	return base == "config.toml" || base == "config.json"
}
