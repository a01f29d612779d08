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
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/LicitaAI/LicitaCore/services/drafter/store"
)

// =============================================================================
// Configuration
// =============================================================================

// Defaults for the retention sweeper.
const (
	DefaultInterval  = 1 * time.Hour
	DefaultTTL       = 90 * 24 * time.Hour
	DefaultBatchSize = 500
)

// Config holds the retention sweeper settings.
//
// # Fields
//
//   - Interval: How often to run a purge cycle.
//   - TTL: Age beyond which a generation run is expired.
//   - BatchSize: Maximum runs deleted per cycle; the remainder waits for
//     the next cycle so one sweep never monopolizes the database.
type Config struct {
	Interval  time.Duration
	TTL       time.Duration
	BatchSize int
}

// DefaultConfig returns production defaults: hourly sweeps, 90-day
// retention, 500 runs per batch.
func DefaultConfig() Config {
	return Config{
		Interval:  DefaultInterval,
		TTL:       DefaultTTL,
		BatchSize: DefaultBatchSize,
	}
}

func (c *Config) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
}

// =============================================================================
// Sweeper
// =============================================================================

// Sweeper periodically deletes expired generation runs from the audit store.
//
// # Description
//
// Each cycle counts the expired runs, deletes a bounded batch, recounts to
// verify the deletion actually happened, and reports the cycle to the audit
// sink. Cycles are skipped entirely when the clock fails its sanity check.
//
// # Thread Safety
//
// All public methods are safe for concurrent use. Only one background loop
// runs at a time; Start while running is an error.
type Sweeper struct {
	store  store.AuditStore
	clock  Clock
	sink   AuditSink
	config Config

	done    chan struct{}
	mu      sync.Mutex
	running bool
}

// NewSweeper creates a retention sweeper over the audit store.
//
// A nil clock gets the guarded system clock; a nil sink discards events.
func NewSweeper(auditStore store.AuditStore, clock Clock, sink AuditSink, config Config) (*Sweeper, error) {
	if auditStore == nil {
		return nil, fmt.Errorf("retention sweeper requires an audit store")
	}
	if clock == nil {
		clock = NewGuardedClock()
	}
	if sink == nil {
		sink = NewNoopSink()
	}
	config.applyDefaults()

	return &Sweeper{
		store:  auditStore,
		clock:  clock,
		sink:   sink,
		config: config,
		done:   make(chan struct{}),
	}, nil
}

// Start launches the background purge loop. An initial cycle runs
// immediately, then one per interval until Stop or context cancellation.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("retention sweeper is already running")
	}
	s.running = true
	s.done = make(chan struct{})
	s.mu.Unlock()

	slog.Info("Retention sweeper starting",
		"interval", s.config.Interval.String(),
		"ttl", s.config.TTL.String(),
		"batch_size", s.config.BatchSize,
	)

	go s.runLoop(ctx)
	return nil
}

// Stop signals the background loop to exit. Safe to call more than once.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	slog.Info("Retention sweeper stopping")
	close(s.done)
	s.running = false
}

// RunNow performs one purge cycle immediately, outside the schedule.
func (s *Sweeper) RunNow(ctx context.Context) (PurgeEvent, error) {
	return s.runCycle(ctx)
}

// =============================================================================
// Internal
// =============================================================================

func (s *Sweeper) runLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.executeCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Retention sweeper stopped (context canceled)")
			return
		case <-s.done:
			slog.Info("Retention sweeper stopped (stop requested)")
			return
		case <-ticker.C:
			s.executeCycle(ctx)
		}
	}
}

// executeCycle wraps runCycle so a failing cycle never kills the loop.
func (s *Sweeper) executeCycle(ctx context.Context) {
	event, err := s.runCycle(ctx)
	if err != nil {
		slog.Error("Retention cycle failed", "error", err)
		return
	}
	if event.RunsExpired == 0 {
		slog.Debug("Retention cycle completed (no expired runs)")
		return
	}
	slog.Info("Retention cycle completed",
		"runs_expired", event.RunsExpired,
		"runs_deleted", event.RunsDeleted,
		"runs_remaining", event.RunsRemaining,
		"verified", event.Verified,
		"duration_ms", event.DurationMs,
	)
}

func (s *Sweeper) runCycle(ctx context.Context) (PurgeEvent, error) {
	now, err := s.clock.Now()
	if err != nil {
		return PurgeEvent{}, fmt.Errorf("refusing to purge: %w", err)
	}
	start := time.Now()
	cutoff := now.Add(-s.config.TTL)

	expired, err := s.store.CountRunsBefore(ctx, cutoff)
	if err != nil {
		return PurgeEvent{}, fmt.Errorf("failed to count expired runs: %w", err)
	}

	event := PurgeEvent{Timestamp: now, Cutoff: cutoff, RunsExpired: expired, Verified: true}
	if expired == 0 {
		event.DurationMs = time.Since(start).Milliseconds()
		return event, nil
	}

	deleted, err := s.store.DeleteRunsBefore(ctx, cutoff, s.config.BatchSize)
	if err != nil {
		return PurgeEvent{}, fmt.Errorf("failed to delete expired runs: %w", err)
	}
	event.RunsDeleted = deleted

	remaining, err := s.store.CountRunsBefore(ctx, cutoff)
	if err != nil {
		return PurgeEvent{}, fmt.Errorf("failed to verify deletion: %w", err)
	}
	event.RunsRemaining = remaining

	// Leftover rows are acceptable only when the batch limit was the cause.
	event.Verified = remaining == expired-deleted &&
		(remaining == 0 || deleted == int64(s.config.BatchSize))
	if !event.Verified {
		slog.Error("Retention verification failed",
			"expired", expired,
			"deleted", deleted,
			"remaining", remaining,
		)
	}

	event.DurationMs = time.Since(start).Milliseconds()
	if err := s.sink.OnRunsPurged(ctx, event); err != nil {
		slog.Warn("Purge audit sink failed", "error", err)
	}
	return event, nil
}
