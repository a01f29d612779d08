// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LicitaAI/LicitaCore/services/drafter/datatypes"
)

// TestConfigFromEnv_Defaults verifies the fallback configuration.
func TestConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("INFLUXDB_URL", "")
	t.Setenv("INFLUXDB_TOKEN", "")
	t.Setenv("INFLUXDB_ORG", "")
	t.Setenv("INFLUXDB_BUCKET", "")

	cfg := ConfigFromEnv()
	assert.Equal(t, "http://influxdb:8086", cfg.URL, "URL should default")
	assert.Empty(t, cfg.Token, "Token has no default: analytics stays opt-in")
	assert.Equal(t, "licita", cfg.Org, "Org should default")
	assert.Equal(t, "drafter-analytics", cfg.Bucket, "Bucket should default")
}

// TestConfigFromEnv_Overrides verifies environment wins over defaults.
func TestConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("INFLUXDB_URL", "http://localhost:9999")
	t.Setenv("INFLUXDB_TOKEN", "secret")
	t.Setenv("INFLUXDB_ORG", "prefeitura")
	t.Setenv("INFLUXDB_BUCKET", "runs")

	cfg := ConfigFromEnv()
	assert.Equal(t, "http://localhost:9999", cfg.URL, "URL should come from the environment")
	assert.Equal(t, "secret", cfg.Token, "Token should come from the environment")
	assert.Equal(t, "prefeitura", cfg.Org, "Org should come from the environment")
	assert.Equal(t, "runs", cfg.Bucket, "Bucket should come from the environment")
}

// TestRecorder_DisabledWithoutToken verifies the no-op mode.
//
// # Description
//
// Without a token the recorder must be inert: writes succeed silently,
// queries fail with ErrDisabled, and Close is safe. The drafter never
// branches on analytics availability anywhere else.
func TestRecorder_DisabledWithoutToken(t *testing.T) {
	r := New(Config{})

	assert.False(t, r.Enabled(), "No token means disabled")
	assert.NoError(t, r.RecordRun(context.Background(), &datatypes.GenerateSectionResponse{}),
		"Disabled writes are silent no-ops")

	_, err := r.Stats(context.Background(), 24)
	assert.ErrorIs(t, err, ErrDisabled, "Disabled queries should say so")
	assert.ErrorIs(t, r.Ping(context.Background()), ErrDisabled, "Disabled ping should say so")

	r.Close()

	var nilRecorder *Recorder
	assert.False(t, nilRecorder.Enabled(), "Nil recorder counts as disabled")
	assert.NoError(t, nilRecorder.RecordRun(context.Background(), nil),
		"Nil recorder writes are silent no-ops")
}

// TestBuildPoint verifies the measurement layout.
func TestBuildPoint(t *testing.T) {
	at := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	resp := &datatypes.GenerateSectionResponse{
		SectionType:      "objeto",
		Outcome:          datatypes.OutcomeAccepted,
		AttemptsUsed:     2,
		ProcessingTimeMs: 840,
		Findings: []datatypes.Finding{
			{AgentName: datatypes.AgentClareza, Severity: datatypes.SeverityWarning, Message: "long sentence"},
			{AgentName: datatypes.AgentClareza, Severity: datatypes.SeverityInfo, Message: "passive voice"},
		},
	}

	p := buildPoint(resp, at)
	assert.Equal(t, generationMeasurement, p.Name(), "Measurement should be generation")
	assert.Equal(t, at, p.Time(), "Point should carry the completion time")

	tags := make(map[string]string)
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, "objeto", tags["section_type"], "Section type should be a tag")
	assert.Equal(t, "accepted", tags["outcome"], "Outcome should be a tag")

	fields := make(map[string]interface{})
	for _, field := range p.FieldList() {
		fields[field.Key] = field.Value
	}
	require.Len(t, fields, 5, "Five fields should be written")
	assert.EqualValues(t, 2, fields["attempts"], "Attempts should be a field")
	assert.EqualValues(t, 840, fields["duration_ms"], "Duration should be a field")
	assert.EqualValues(t, 0, fields["critical_count"], "Critical count should be a field")
	assert.EqualValues(t, 1, fields["warning_count"], "Warning count should be a field")
	assert.EqualValues(t, 1, fields["info_count"], "Info count should be a field")
}
