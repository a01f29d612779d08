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
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LicitaAI/LicitaCore/services/drafter/store"
)

// =============================================================================
// Fixtures
// =============================================================================

// manualClock returns a fixed time.
type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() (time.Time, error) { return c.now, nil }

// brokenClock always fails its sanity check.
type brokenClock struct{}

func (brokenClock) Now() (time.Time, error) {
	return time.Time{}, fmt.Errorf("clock sanity: test failure")
}

// recordingSink captures every purge event.
type recordingSink struct {
	mu     sync.Mutex
	events []PurgeEvent
}

func (s *recordingSink) OnRunsPurged(_ context.Context, event PurgeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) all() []PurgeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PurgeEvent(nil), s.events...)
}

func newTestStore(t *testing.T) store.AuditStore {
	t.Helper()
	db, err := store.Open(":memory:")
	require.NoError(t, err, "In-memory database should open")
	return store.New(db)
}

func seedRun(t *testing.T, s store.AuditStore, responseID string, createdAt time.Time) {
	t.Helper()
	err := s.SaveRun(context.Background(), &store.GenerationRecord{
		ResponseID:  responseID,
		RequestID:   "req-" + responseID,
		SectionType: "objeto",
		Outcome:     "accepted",
		CreatedAt:   createdAt,
	})
	require.NoError(t, err, "Seeding %s should succeed", responseID)
}

// =============================================================================
// Test: Sweeper Cycles
// =============================================================================

// TestNewSweeper_RequiresStore verifies constructor guards.
func TestNewSweeper_RequiresStore(t *testing.T) {
	_, err := NewSweeper(nil, nil, nil, Config{})
	assert.Error(t, err, "Nil store should be rejected")

	sw, err := NewSweeper(newTestStore(t), nil, nil, Config{})
	require.NoError(t, err, "Nil clock and sink get working defaults")
	assert.NotNil(t, sw, "Sweeper should be built")
}

// TestSweeper_RunNow_PurgesExpired verifies the full purge cycle.
//
// # Description
//
// Two runs older than the TTL and one fresh run: the cycle deletes exactly
// the expired pair, verifies the deletion, and reports it to the sink.
func TestSweeper_RunNow_PurgesExpired(t *testing.T) {
	auditStore := newTestStore(t)
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	seedRun(t, auditStore, "old-1", now.Add(-100*24*time.Hour))
	seedRun(t, auditStore, "old-2", now.Add(-91*24*time.Hour))
	seedRun(t, auditStore, "fresh", now.Add(-time.Hour))

	sink := &recordingSink{}
	sw, err := NewSweeper(auditStore, &manualClock{now: now}, sink, Config{TTL: 90 * 24 * time.Hour})
	require.NoError(t, err, "Sweeper should be built")

	event, err := sw.RunNow(context.Background())
	require.NoError(t, err, "Cycle should succeed")

	assert.Equal(t, int64(2), event.RunsExpired, "Two runs should be expired")
	assert.Equal(t, int64(2), event.RunsDeleted, "Both expired runs should be deleted")
	assert.Zero(t, event.RunsRemaining, "Nothing expired should remain")
	assert.True(t, event.Verified, "Verification should pass")
	assert.Equal(t, now.Add(-90*24*time.Hour), event.Cutoff, "Cutoff should be now minus TTL")

	total, err := auditStore.CountRuns(context.Background())
	require.NoError(t, err, "Count should succeed")
	assert.Equal(t, int64(1), total, "The fresh run should survive")

	events := sink.all()
	require.Len(t, events, 1, "Sink should receive the purge event")
	assert.Equal(t, int64(2), events[0].RunsDeleted, "Sink event should carry the deletion count")
}

// TestSweeper_RunNow_RespectsBatchSize verifies bounded purging.
func TestSweeper_RunNow_RespectsBatchSize(t *testing.T) {
	auditStore := newTestStore(t)
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		seedRun(t, auditStore, fmt.Sprintf("old-%d", i), now.Add(-time.Duration(100+i)*24*time.Hour))
	}

	sw, err := NewSweeper(auditStore, &manualClock{now: now}, nil,
		Config{TTL: 90 * 24 * time.Hour, BatchSize: 2})
	require.NoError(t, err, "Sweeper should be built")

	event, err := sw.RunNow(context.Background())
	require.NoError(t, err, "Cycle should succeed")

	assert.Equal(t, int64(3), event.RunsExpired, "Three runs should be expired")
	assert.Equal(t, int64(2), event.RunsDeleted, "Batch size should bound the deletion")
	assert.Equal(t, int64(1), event.RunsRemaining, "The remainder waits for the next cycle")
	assert.True(t, event.Verified, "A batch-limited purge still verifies")

	event, err = sw.RunNow(context.Background())
	require.NoError(t, err, "Second cycle should succeed")
	assert.Equal(t, int64(1), event.RunsDeleted, "Next cycle should finish the job")
	assert.Zero(t, event.RunsRemaining, "Nothing expired should remain")
}

// TestSweeper_RunNow_NothingExpired verifies the quiet cycle.
func TestSweeper_RunNow_NothingExpired(t *testing.T) {
	auditStore := newTestStore(t)
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	seedRun(t, auditStore, "fresh", now.Add(-time.Hour))

	sink := &recordingSink{}
	sw, err := NewSweeper(auditStore, &manualClock{now: now}, sink, Config{TTL: 90 * 24 * time.Hour})
	require.NoError(t, err, "Sweeper should be built")

	event, err := sw.RunNow(context.Background())
	require.NoError(t, err, "Cycle should succeed")

	assert.Zero(t, event.RunsExpired, "Nothing should be expired")
	assert.Zero(t, event.RunsDeleted, "Nothing should be deleted")
	assert.Empty(t, sink.all(), "Quiet cycles are not audit events")
}

// TestSweeper_RunNow_RefusesOnInsaneClock verifies the clock gate.
//
// # Description
//
// A failing clock sanity check must abort the cycle before any deletion;
// purging against a wrong clock destroys records that are not expired.
func TestSweeper_RunNow_RefusesOnInsaneClock(t *testing.T) {
	auditStore := newTestStore(t)
	seedRun(t, auditStore, "old", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))

	sw, err := NewSweeper(auditStore, brokenClock{}, nil, Config{})
	require.NoError(t, err, "Sweeper should be built")

	_, err = sw.RunNow(context.Background())
	require.Error(t, err, "Insane clock should abort the cycle")
	assert.Contains(t, err.Error(), "refusing to purge", "Error should name the refusal")

	total, err := auditStore.CountRuns(context.Background())
	require.NoError(t, err, "Count should succeed")
	assert.Equal(t, int64(1), total, "Nothing may be deleted on a refused cycle")
}

// TestSweeper_StartStop verifies the lifecycle guards.
func TestSweeper_StartStop(t *testing.T) {
	sw, err := NewSweeper(newTestStore(t), &manualClock{now: time.Now()}, nil,
		Config{Interval: time.Hour})
	require.NoError(t, err, "Sweeper should be built")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, sw.Start(ctx), "First start should succeed")
	assert.Error(t, sw.Start(ctx), "Second start while running should fail")

	sw.Stop()
	sw.Stop()

	require.NoError(t, sw.Start(ctx), "Restart after stop should succeed")
	sw.Stop()
}

// =============================================================================
// Test: Guarded Clock
// =============================================================================

// TestGuardedClock_AcceptsValidTime verifies the happy path.
func TestGuardedClock_AcceptsValidTime(t *testing.T) {
	clock := NewGuardedClock()

	first, err := clock.Now()
	require.NoError(t, err, "A sane system clock should pass")
	second, err := clock.Now()
	require.NoError(t, err, "Consecutive reads should pass")
	assert.False(t, second.Before(first), "Reads should not go backward")
}

// TestGuardedClock_RejectsPastClock verifies the lower bound.
func TestGuardedClock_RejectsPastClock(t *testing.T) {
	clock := NewGuardedClockWithConfig(ClockConfig{
		MinValidTime:    time.Now().Add(1 * time.Hour),
		MaxValidTime:    time.Now().Add(10 * time.Hour),
		MaxBackwardJump: time.Hour,
		MaxForwardJump:  2 * time.Hour,
	})

	_, err := clock.Now()
	require.Error(t, err, "A clock before the minimum valid time should fail")
	assert.Contains(t, err.Error(), "before minimum valid time", "Error should name the bound")
}

// TestGuardedClock_RejectsFutureClock verifies the upper bound.
func TestGuardedClock_RejectsFutureClock(t *testing.T) {
	clock := NewGuardedClockWithConfig(ClockConfig{
		MinValidTime:    time.Now().Add(-10 * time.Hour),
		MaxValidTime:    time.Now().Add(-1 * time.Hour),
		MaxBackwardJump: time.Hour,
		MaxForwardJump:  2 * time.Hour,
	})

	_, err := clock.Now()
	require.Error(t, err, "A clock after the maximum valid time should fail")
	assert.Contains(t, err.Error(), "after maximum valid time", "Error should name the bound")
}

// TestGuardedClock_DetectsBackwardJump verifies jump detection.
func TestGuardedClock_DetectsBackwardJump(t *testing.T) {
	clock := &guardedClock{
		config:    DefaultClockConfig(),
		lastGood:  time.Now().Add(2 * time.Hour),
		readCount: 1,
	}

	_, err := clock.Now()
	require.Error(t, err, "A backward jump beyond tolerance should fail")
	assert.Contains(t, err.Error(), "backward jump", "Error should name the jump")
}

// TestGuardedClock_DetectsForwardJump verifies jump detection.
func TestGuardedClock_DetectsForwardJump(t *testing.T) {
	clock := &guardedClock{
		config:    DefaultClockConfig(),
		lastGood:  time.Now().Add(-3 * time.Hour),
		readCount: 1,
	}

	_, err := clock.Now()
	require.Error(t, err, "A forward jump beyond tolerance should fail")
	assert.Contains(t, err.Error(), "forward jump", "Error should name the jump")
}

// =============================================================================
// Test: File Sink
// =============================================================================

// TestFileSink_AppendsEvents verifies the JSONL purge log.
func TestFileSink_AppendsEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "purge.log")
	sink, err := NewFileSink(path)
	require.NoError(t, err, "Sink should open")
	defer sink.Close()

	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	require.NoError(t, sink.OnRunsPurged(context.Background(), PurgeEvent{
		Timestamp: now, RunsExpired: 2, RunsDeleted: 2, Verified: true,
	}), "First write should succeed")
	require.NoError(t, sink.OnRunsPurged(context.Background(), PurgeEvent{
		Timestamp: now.Add(time.Hour), RunsExpired: 1, RunsDeleted: 1, Verified: true,
	}), "Second write should succeed")

	data, err := os.ReadFile(path)
	require.NoError(t, err, "Purge log should be readable")
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2, "One JSON line per event")

	var event PurgeEvent
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &event), "Lines should be valid JSON")
	assert.Equal(t, int64(2), event.RunsDeleted, "Event fields should roundtrip")
	assert.True(t, event.Verified, "Event fields should roundtrip")

	info, err := os.Stat(path)
	require.NoError(t, err, "Purge log should stat")
	assert.Equal(t, os.FileMode(purgeLogFileMode), info.Mode().Perm(),
		"Purge log must be owner-only")
}

// TestFileSink_CloseIsIdempotent verifies closing behavior.
func TestFileSink_CloseIsIdempotent(t *testing.T) {
	sink, err := NewFileSink(filepath.Join(t.TempDir(), "purge.log"))
	require.NoError(t, err, "Sink should open")

	require.NoError(t, sink.Close(), "First close should succeed")
	require.NoError(t, sink.Close(), "Second close should be a no-op")

	err = sink.OnRunsPurged(context.Background(), PurgeEvent{})
	require.Error(t, err, "Writes after close should fail")
	assert.Contains(t, err.Error(), "closed", "Error should say the log is closed")
}
