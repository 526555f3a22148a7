// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/jeranaias/cashdesk/internal/logging"
)

// =============================================================================
// FILE WATCHER
// =============================================================================

// Watcher reloads a config file when it changes on disk and hands the new
// Config to a callback. Bursts of events are collapsed with a debounce.
//
// The parent directory is watched rather than the file so editors that save
// by rename (vim, atomic writers) are still seen.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(*Config)

	watcher *fsnotify.Watcher
	log     zerolog.Logger

	mu      sync.Mutex
	pending time.Time // zero when nothing is waiting

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a watcher for path. Call Start to begin watching.
func NewWatcher(path string, debounce time.Duration, onChange func(*Config)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		path:     abs,
		debounce: debounce,
		onChange: onChange,
		watcher:  fw,
		log:      logging.Component("config"),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start begins watching. The config directory must exist.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	w.wg.Add(2)
	go w.processEvents()
	go w.processPending()
	return nil
}

// Close stops watching and waits for the goroutines to exit.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			w.log.Error().Interface("panic", r).Msg("CONFIG_WATCH_PANIC")
		}
	}()

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.mu.Lock()
				w.pending = time.Now()
				w.mu.Unlock()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("CONFIG_WATCH_ERROR")
		}
	}
}

func (w *Watcher) processPending() {
	defer w.wg.Done()

	tick := w.debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
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

			if due {
				w.reload()
			}
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadFromPath(w.path)
	if err != nil {
		// Keep running on the previous config; a half-saved file is common.
		w.log.Warn().Err(err).Str("path", w.path).Msg("CONFIG_RELOAD_FAILED")
		return
	}
	w.log.Info().Str("path", w.path).Msg("CONFIG_RELOADED")
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
