// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package retention

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// purgeLogFileMode restricts the purge log to its owner. Purge events
// reveal which generation runs existed and when they were destroyed, which
// is itself audit-sensitive information.
const purgeLogFileMode = 0600

// =============================================================================
// Audit Sink
// =============================================================================

// PurgeEvent describes one completed purge cycle.
//
// # Fields
//
//   - Timestamp: When the cycle ran.
//   - Cutoff: Records created before this instant were eligible.
//   - RunsExpired: Eligible records found at cycle start.
//   - RunsDeleted: Records actually deleted this cycle.
//   - RunsRemaining: Eligible records still present after deletion.
//   - Verified: True when the post-delete recount matched expectations.
//   - DurationMs: Wall time of the cycle.
type PurgeEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	Cutoff        time.Time `json:"cutoff"`
	RunsExpired   int64     `json:"runs_expired"`
	RunsDeleted   int64     `json:"runs_deleted"`
	RunsRemaining int64     `json:"runs_remaining"`
	Verified      bool      `json:"verified"`
	DurationMs    int64     `json:"duration_ms"`
}

// AuditSink receives purge events for compliance tracking.
//
// # Error Handling
//
// Sink errors must not block retention: the sweeper logs them and carries
// on. Implementations handle their own retries if delivery matters.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type AuditSink interface {
	OnRunsPurged(ctx context.Context, event PurgeEvent) error
}

// noopSink discards events. Default when no sink is configured.
type noopSink struct{}

func (noopSink) OnRunsPurged(context.Context, PurgeEvent) error { return nil }

// NewNoopSink returns a sink that discards all events.
func NewNoopSink() AuditSink {
	return noopSink{}
}

// =============================================================================
// File Sink
// =============================================================================

// FileSink appends purge events to a JSONL file.
//
// One JSON object per line, file created owner-only. Rotation is left to
// the host (logrotate); the sink reopens nothing and only appends.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// NewFileSink opens (or creates) the purge log at path in append mode.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, purgeLogFileMode)
	if err != nil {
		return nil, fmt.Errorf("failed to open purge log %s: %w", path, err)
	}
	return &FileSink{file: f, path: path}, nil
}

// OnRunsPurged writes the event as one JSON line.
func (s *FileSink) OnRunsPurged(_ context.Context, event PurgeEvent) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal purge event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return fmt.Errorf("purge log %s is closed", s.path)
	}
	if _, err := s.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write purge event: %w", err)
	}
	return nil
}

// Close flushes and closes the purge log. Safe to call more than once.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
