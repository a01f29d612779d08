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
	"testing"
	"time"
)

// waitForMaxLength polls the registry until the section's max length matches
// or the deadline passes. Reloads are asynchronous behind a debounce window,
// so assertions must poll rather than sleep a fixed amount.
func waitForMaxLength(t *testing.T, reg *Registry, sectionType string, want int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if reg.Get(sectionType).MaxLength == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("registry never observed %s max_length=%d (got %d)",
		sectionType, want, reg.Get(sectionType).MaxLength)
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	reg := mustRegistry(t)
	dir := t.TempDir()

	writeSchemaFile(t, dir, "override.yaml", `
version: "2.0.0"
schemas:
  - type: objeto
    max_length: 7000
    min_length: 100
    max_retries: 2
`)

	w, err := NewWatcher(reg, dir, &WatcherOptions{DebounceWindow: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewWatcher() error: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	// Initial load happened synchronously in Start.
	if got := reg.Get("objeto").MaxLength; got != 7000 {
		t.Fatalf("initial load: objeto max_length = %d, want 7000", got)
	}

	// A new higher-version file triggers a debounced reload.
	writeSchemaFile(t, dir, "override2.yaml", `
version: "3.0.0"
schemas:
  - type: objeto
    max_length: 9000
    min_length: 100
    max_retries: 2
`)

	waitForMaxLength(t, reg, "objeto", 9000)
}

func TestWatcher_BrokenReloadKeepsRegistry(t *testing.T) {
	reg := mustRegistry(t)
	dir := t.TempDir()

	writeSchemaFile(t, dir, "override.yaml", `
version: "2.0.0"
schemas:
  - type: objeto
    max_length: 7000
    min_length: 100
    max_retries: 2
`)

	w, err := NewWatcher(reg, dir, &WatcherOptions{DebounceWindow: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewWatcher() error: %v", err)
	}
	defer w.Stop()

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	// Break the directory, then confirm the registry held its state long
	// past the debounce window.
	writeSchemaFile(t, dir, "broken.yaml", `schemas: [}`)

	time.Sleep(300 * time.Millisecond)
	if got := reg.Get("objeto").MaxLength; got != 7000 {
		t.Errorf("objeto max_length = %d after broken reload, want 7000", got)
	}
}

func TestWatcher_StartFailsOnBrokenDir(t *testing.T) {
	reg := mustRegistry(t)
	dir := t.TempDir()

	writeSchemaFile(t, dir, "broken.yaml", `
version: "1.0.0"
schemas:
  - type: bad
    max_length: 1
    min_length: 100
    max_retries: 2
`)

	w, err := NewWatcher(reg, dir, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error: %v", err)
	}
	defer w.Stop()

	if err := w.Start(context.Background()); err == nil {
		t.Error("Start() should fail when the initial directory load fails")
	}
}

func TestWatcher_StopIdempotent(t *testing.T) {
	reg := mustRegistry(t)
	dir := t.TempDir()

	w, err := NewWatcher(reg, dir, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error: %v", err)
	}

	w.Stop()
	w.Stop() // must not panic
}
