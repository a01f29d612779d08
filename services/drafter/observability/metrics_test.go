// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package observability

import (
	"testing"
)

func TestInitMetrics_Multiple(t *testing.T) {
	// Should be safe to call multiple times
	m1 := InitMetrics()
	m2 := InitMetrics()
	m3 := InitMetrics()

	if m1 == nil {
		t.Fatal("InitMetrics() returned nil")
	}

	// All should return the same instance (due to sync.Once)
	if m1 != m2 || m2 != m3 {
		t.Error("InitMetrics should return the same instance on multiple calls")
	}

	if DefaultMetrics != m1 {
		t.Error("DefaultMetrics should be the instance InitMetrics returned")
	}
}

func TestRecordHelpers_AfterInit(t *testing.T) {
	m := InitMetrics()

	// Every helper records without panicking on registered vectors
	m.RecordRun("objeto", "accepted", 1.5)
	m.RecordAttempt("objeto", "retry")
	m.RecordStateDuration("scoring", 0.2)
	m.RecordAgent("legal", 0.05)
	m.RecordAgentUnavailable("clareza")
	m.RecordSanitizerViolation("prompt_injection")
	m.RecordEmbedCacheEvent(true)
	m.RecordEmbedCacheEvent(false)
}
