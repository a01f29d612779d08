// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analytics writes generation outcomes to InfluxDB.
//
// Entirely optional: without INFLUXDB_TOKEN the recorder is a no-op and
// the rest of the drafter never notices. The audit store remains the
// source of truth; Influx only serves aggregate dashboards and the
// analytics endpoint.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/LicitaAI/LicitaCore/services/drafter/datatypes"
)

// generationMeasurement is the Influx measurement for completed runs.
const generationMeasurement = "generation"

// ErrDisabled is returned by query operations when no token is configured.
var ErrDisabled = errors.New("analytics disabled: INFLUXDB_TOKEN not set")

// =============================================================================
// Configuration
// =============================================================================

// Config holds the InfluxDB connection settings.
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// ConfigFromEnv reads INFLUXDB_URL, INFLUXDB_TOKEN, INFLUXDB_ORG, and
// INFLUXDB_BUCKET. An empty token disables analytics; the other values
// get service defaults.
func ConfigFromEnv() Config {
	cfg := Config{
		URL:    os.Getenv("INFLUXDB_URL"),
		Token:  os.Getenv("INFLUXDB_TOKEN"),
		Org:    os.Getenv("INFLUXDB_ORG"),
		Bucket: os.Getenv("INFLUXDB_BUCKET"),
	}
	if cfg.URL == "" {
		cfg.URL = "http://influxdb:8086"
	}
	if cfg.Org == "" {
		cfg.Org = "licita"
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "drafter-analytics"
	}
	return cfg
}

// =============================================================================
// Recorder
// =============================================================================

// Recorder writes run outcomes and answers aggregate queries.
//
// # Thread Safety
//
// Safe for concurrent use; the underlying client serializes writes.
type Recorder struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
	query  api.QueryAPI
	bucket string
}

// New builds a recorder from config. Without a token it returns a disabled
// recorder whose writes are no-ops and whose queries return ErrDisabled.
func New(cfg Config) *Recorder {
	if cfg.Token == "" {
		slog.Info("Analytics disabled (INFLUXDB_TOKEN not set)")
		return &Recorder{}
	}

	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	slog.Info("Analytics enabled",
		"influx_url", cfg.URL,
		"influx_org", cfg.Org,
		"influx_bucket", cfg.Bucket,
	)
	return &Recorder{
		client: client,
		write:  client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		query:  client.QueryAPI(cfg.Org),
		bucket: cfg.Bucket,
	}
}

// Enabled reports whether a token was configured.
func (r *Recorder) Enabled() bool {
	return r != nil && r.client != nil
}

// Ping checks the InfluxDB health endpoint.
func (r *Recorder) Ping(ctx context.Context) error {
	if !r.Enabled() {
		return ErrDisabled
	}
	health, err := r.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("influx health check failed: %w", err)
	}
	if health.Status != "pass" {
		msg := "unknown"
		if health.Message != nil {
			msg = *health.Message
		}
		return fmt.Errorf("influx unhealthy: %s", msg)
	}
	return nil
}

// Close releases the client. Safe on a disabled recorder.
func (r *Recorder) Close() {
	if r.Enabled() {
		r.client.Close()
	}
}

// =============================================================================
// Writes
// =============================================================================

// buildPoint maps a terminal response to its Influx point.
func buildPoint(resp *datatypes.GenerateSectionResponse, at time.Time) *write.Point {
	counts := datatypes.CountBySeverity(resp.Findings)
	return influxdb2.NewPoint(
		generationMeasurement,
		map[string]string{
			"section_type": resp.SectionType,
			"outcome":      string(resp.Outcome),
		},
		map[string]interface{}{
			"attempts":       resp.AttemptsUsed,
			"duration_ms":    resp.ProcessingTimeMs,
			"critical_count": counts[datatypes.SeverityCritical],
			"warning_count":  counts[datatypes.SeverityWarning],
			"info_count":     counts[datatypes.SeverityInfo],
		},
		at,
	)
}

// RecordRun writes one completed run. No-op when disabled; write failures
// are returned but callers are expected to log rather than fail the run.
func (r *Recorder) RecordRun(ctx context.Context, resp *datatypes.GenerateSectionResponse) error {
	if !r.Enabled() || resp == nil {
		return nil
	}
	if err := r.write.WritePoint(ctx, buildPoint(resp, time.Now())); err != nil {
		return fmt.Errorf("failed to write generation point: %w", err)
	}
	return nil
}

// =============================================================================
// Queries
// =============================================================================

// GenerationStats aggregates recent runs.
//
// # Fields
//
//   - WindowHours: Look-back window the stats cover.
//   - TotalRuns: Runs recorded in the window.
//   - ByOutcome: Run counts keyed by terminal outcome.
//   - MeanAttempts: Average attempts per run.
//   - MeanDurationMs: Average wall time per run.
type GenerationStats struct {
	WindowHours    int              `json:"window_hours"`
	TotalRuns      int64            `json:"total_runs"`
	ByOutcome      map[string]int64 `json:"by_outcome"`
	MeanAttempts   float64          `json:"mean_attempts"`
	MeanDurationMs float64          `json:"mean_duration_ms"`
}

// Stats queries aggregate numbers over the last windowHours hours.
//
// Two Flux queries: run counts grouped by outcome tag, then field means.
// The window is an integer formatted server-side, so no user-controlled
// text reaches the Flux source.
func (r *Recorder) Stats(ctx context.Context, windowHours int) (*GenerationStats, error) {
	if !r.Enabled() {
		return nil, ErrDisabled
	}
	if windowHours <= 0 {
		windowHours = 24
	}

	stats := &GenerationStats{
		WindowHours: windowHours,
		ByOutcome:   make(map[string]int64),
	}

	countQuery := fmt.Sprintf(`
        from(bucket: "%s")
          |> range(start: -%dh)
          |> filter(fn: (r) => r._measurement == "%s")
          |> filter(fn: (r) => r._field == "attempts")
          |> group(columns: ["outcome"])
          |> count()
    `, r.bucket, windowHours, generationMeasurement)

	result, err := r.query.Query(ctx, countQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query run counts: %w", err)
	}
	for result.Next() {
		outcome, _ := result.Record().ValueByKey("outcome").(string)
		count, ok := result.Record().Value().(int64)
		if !ok {
			continue
		}
		stats.ByOutcome[outcome] = count
		stats.TotalRuns += count
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("run count query failed: %w", result.Err())
	}

	meanQuery := fmt.Sprintf(`
        from(bucket: "%s")
          |> range(start: -%dh)
          |> filter(fn: (r) => r._measurement == "%s")
          |> filter(fn: (r) => r._field == "attempts" or r._field == "duration_ms")
          |> group(columns: ["_field"])
          |> mean()
    `, r.bucket, windowHours, generationMeasurement)

	result, err = r.query.Query(ctx, meanQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query run means: %w", err)
	}
	for result.Next() {
		mean, ok := result.Record().Value().(float64)
		if !ok {
			continue
		}
		switch result.Record().Field() {
		case "attempts":
			stats.MeanAttempts = mean
		case "duration_ms":
			stats.MeanDurationMs = mean
		}
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("run mean query failed: %w", result.Err())
	}

	return stats, nil
}
