// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package schema

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a registry from a schema directory when its files change.
//
// # Description
//
// Editors write schema files in bursts (temp file, rename, chmod), so raw
// fsnotify events are debounced: the reload fires only after the directory
// has been quiet for the debounce window. Reload failures keep the previous
// registry and are logged, never fatal; the service keeps validating with
// the rules it already trusts.
//
// # Thread Safety
//
// Safe for concurrent use. Reloads run on a single goroutine.
type Watcher struct {
	registry *Registry
	dir      string
	debounce time.Duration
	log      *slog.Logger

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOptions configures the schema watcher.
type WatcherOptions struct {
	// DebounceWindow is how long the directory must stay quiet before a
	// reload fires. Default: 250ms.
	DebounceWindow time.Duration

	// Logger receives reload outcomes. Default: slog.Default().
	Logger *slog.Logger
}

// NewWatcher creates a watcher that reloads registry from dir on change.
// Call Start to begin watching and Stop (or cancel the context) to end it.
func NewWatcher(registry *Registry, dir string, opts *WatcherOptions) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		registry: registry,
		dir:      dir,
		debounce: 250 * time.Millisecond,
		log:      slog.Default(),
		watcher:  fsw,
		done:     make(chan struct{}),
	}
	if opts != nil {
		if opts.DebounceWindow > 0 {
			w.debounce = opts.DebounceWindow
		}
		if opts.Logger != nil {
			w.log = opts.Logger
		}
	}
	return w, nil
}

// Start performs an initial load of the directory and begins watching it.
// The initial load is strict: a broken override directory at startup is a
// configuration error the operator should see immediately.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.registry.LoadDir(w.dir); err != nil {
		return err
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}

	go w.loop(ctx)
	return nil
}

// Stop stops watching. Idempotent.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()
	})
}

// loop debounces events and triggers reloads.
func (w *Watcher) loop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isSchemaFile(event.Name) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("schema watcher error", "error", err)
		case <-timerC:
			timer = nil
			timerC = nil
			if err := w.registry.LoadDir(w.dir); err != nil {
				w.log.Error("schema reload failed, keeping previous registry",
					"dir", w.dir, "error", err)
				continue
			}
			w.log.Info("schema registry reloaded",
				"dir", w.dir, "schemas", w.registry.Len())
		}
	}
}

// isSchemaFile reports whether a path looks like a schema definition.
func isSchemaFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
