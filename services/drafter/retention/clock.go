// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package retention expires audit records after a configurable age.
//
// A background sweeper deletes generation runs older than the TTL in
// bounded batches, verifies the deletion against the store, and reports
// every purge cycle to an audit sink. Deletion is gated on a clock sanity
// check: a manipulated or badly drifted system clock must not be allowed
// to purge records prematurely.
package retention

import (
	"fmt"
	"sync"
	"time"
)

// =============================================================================
// Clock
// =============================================================================

// Clock supplies the current time to the sweeper.
//
// The error return is the point: implementations may refuse to answer when
// the system clock looks wrong, and the sweeper skips the cycle rather than
// delete against a bad timestamp.
type Clock interface {
	Now() (time.Time, error)
}

// ClockConfig bounds what the guarded clock accepts as a sane system time.
//
// # Fields
//
//   - MinValidTime: Earliest acceptable time. A clock before this was
//     reset to the past and would keep expired records alive forever.
//   - MaxValidTime: Latest acceptable time. A clock after this was set to
//     the future and would purge records prematurely.
//   - MaxBackwardJump: Largest tolerated backward step between reads.
//   - MaxForwardJump: Largest tolerated forward step between reads.
type ClockConfig struct {
	MinValidTime    time.Time
	MaxValidTime    time.Time
	MaxBackwardJump time.Duration
	MaxForwardJump  time.Duration
}

// DefaultClockConfig returns production bounds: a decade-wide validity
// window and jump tolerances generous enough for NTP corrections.
func DefaultClockConfig() ClockConfig {
	return ClockConfig{
		MinValidTime:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		MaxValidTime:    time.Date(2036, 12, 31, 23, 59, 59, 0, time.UTC),
		MaxBackwardJump: 1 * time.Hour,
		MaxForwardJump:  2 * time.Hour,
	}
}

// guardedClock validates the system clock on every read.
//
// The first read establishes the jump-detection baseline; subsequent reads
// reject steps larger than the configured tolerances in either direction.
type guardedClock struct {
	config ClockConfig

	mu        sync.Mutex
	lastGood  time.Time
	readCount int64
}

// NewGuardedClock returns a sanity-checking clock with default bounds.
func NewGuardedClock() Clock {
	return NewGuardedClockWithConfig(DefaultClockConfig())
}

// NewGuardedClockWithConfig returns a sanity-checking clock with custom
// bounds.
func NewGuardedClockWithConfig(config ClockConfig) Clock {
	return &guardedClock{config: config}
}

func (c *guardedClock) Now() (time.Time, error) {
	now := time.Now()

	if now.Before(c.config.MinValidTime) {
		return time.Time{}, fmt.Errorf("clock sanity: %s is before minimum valid time %s (clock set to past?)",
			now.Format(time.RFC3339), c.config.MinValidTime.Format(time.RFC3339))
	}
	if now.After(c.config.MaxValidTime) {
		return time.Time{}, fmt.Errorf("clock sanity: %s is after maximum valid time %s (clock set to future?)",
			now.Format(time.RFC3339), c.config.MaxValidTime.Format(time.RFC3339))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.readCount > 0 {
		step := now.Sub(c.lastGood)
		if step < -c.config.MaxBackwardJump {
			return time.Time{}, fmt.Errorf("clock sanity: backward jump of %s detected (max allowed %s)",
				-step, c.config.MaxBackwardJump)
		}
		if step > c.config.MaxForwardJump {
			return time.Time{}, fmt.Errorf("clock sanity: forward jump of %s detected (max allowed %s)",
				step, c.config.MaxForwardJump)
		}
	}

	c.lastGood = now
	c.readCount++
	return now, nil
}
