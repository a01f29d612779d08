// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the drafter service.
//
// # Description
//
// Metrics cover the generation pipeline end to end:
//   - Run and attempt counters by section type and outcome
//   - State and run duration histograms
//   - Per-agent latency and unavailability
//   - Sanitizer violations by pattern family
//   - Embedding cache hit/miss events
//
// # Integration
//
// Exposed via /metrics. Callers nil-check DefaultMetrics so the pipeline
// works in tests and tools that never call InitMetrics.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "licita"

// Subsystem for generation pipeline metrics
const pipelineSubsystem = "pipeline"

// GenerationMetrics holds all Prometheus metrics for the generation pipeline.
//
// Initialize once at startup via InitMetrics; every helper is a no-op path
// for callers when DefaultMetrics is nil.
type GenerationMetrics struct {
	// RunsTotal counts completed generation runs.
	// Labels: section_type, outcome (accepted, failed)
	RunsTotal *prometheus.CounterVec

	// AttemptsTotal counts individual drafting attempts.
	// Labels: section_type, outcome (accepted, rejected_sanitizer,
	// rejected_agents, provider_error)
	AttemptsTotal *prometheus.CounterVec

	// RunDurationSeconds measures wall time of a whole run.
	// Labels: section_type, outcome
	RunDurationSeconds *prometheus.HistogramVec

	// StateDurationSeconds measures time spent per pipeline state.
	// Labels: state (drafting, sanitizing, scoring, deciding)
	StateDurationSeconds *prometheus.HistogramVec

	// AgentDurationSeconds measures one agent evaluation.
	// Labels: agent
	AgentDurationSeconds *prometheus.HistogramVec

	// AgentUnavailableTotal counts agent failures and timeouts that degraded
	// to a warning finding.
	// Labels: agent
	AgentUnavailableTotal *prometheus.CounterVec

	// SanitizerViolationsTotal counts sanitizer rejections.
	// Labels: family (injection, self_disclosure, bounds, structure, schema)
	SanitizerViolationsTotal *prometheus.CounterVec

	// EmbedCacheEventsTotal counts embedding cache lookups.
	// Labels: event (hit, miss)
	EmbedCacheEventsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of GenerationMetrics.
// Initialized by InitMetrics.
var DefaultMetrics *GenerationMetrics

var initMetricsOnce sync.Once

// InitMetrics creates and registers all pipeline metrics on the default
// Prometheus registry. Idempotent: repeated calls return the same
// singleton, so a service constructed twice in one process does not
// trip duplicate registration.
func InitMetrics() *GenerationMetrics {
	initMetricsOnce.Do(registerMetrics)
	return DefaultMetrics
}

func registerMetrics() {
	DefaultMetrics = &GenerationMetrics{
		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "runs_total",
				Help:      "Completed generation runs by section type and outcome",
			},
			[]string{"section_type", "outcome"},
		),

		AttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "attempts_total",
				Help:      "Drafting attempts by section type and attempt outcome",
			},
			[]string{"section_type", "outcome"},
		),

		RunDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "run_duration_seconds",
				Help:      "Wall time of a generation run in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"section_type", "outcome"},
		),

		StateDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "state_duration_seconds",
				Help:      "Time spent per pipeline state in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"state"},
		),

		AgentDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "agent_duration_seconds",
				Help:      "One agent evaluation in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"agent"},
		),

		AgentUnavailableTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "agent_unavailable_total",
				Help:      "Agent failures and timeouts degraded to a warning finding",
			},
			[]string{"agent"},
		),

		SanitizerViolationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "sanitizer_violations_total",
				Help:      "Sanitizer violations by pattern family",
			},
			[]string{"family"},
		),

		EmbedCacheEventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "embed_cache_events_total",
				Help:      "Embedding cache lookups by event",
			},
			[]string{"event"},
		),
	}
}

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRun records one completed generation run.
func (m *GenerationMetrics) RecordRun(sectionType, outcome string, seconds float64) {
	m.RunsTotal.WithLabelValues(sectionType, outcome).Inc()
	m.RunDurationSeconds.WithLabelValues(sectionType, outcome).Observe(seconds)
}

// RecordAttempt records one drafting attempt.
func (m *GenerationMetrics) RecordAttempt(sectionType, outcome string) {
	m.AttemptsTotal.WithLabelValues(sectionType, outcome).Inc()
}

// RecordStateDuration records time spent in one pipeline state.
func (m *GenerationMetrics) RecordStateDuration(state string, seconds float64) {
	m.StateDurationSeconds.WithLabelValues(state).Observe(seconds)
}

// RecordAgent records one agent evaluation.
func (m *GenerationMetrics) RecordAgent(agent string, seconds float64) {
	m.AgentDurationSeconds.WithLabelValues(agent).Observe(seconds)
}

// RecordAgentUnavailable records an agent failure or timeout.
func (m *GenerationMetrics) RecordAgentUnavailable(agent string) {
	m.AgentUnavailableTotal.WithLabelValues(agent).Inc()
}

// RecordSanitizerViolation records one sanitizer violation.
func (m *GenerationMetrics) RecordSanitizerViolation(family string) {
	m.SanitizerViolationsTotal.WithLabelValues(family).Inc()
}

// RecordEmbedCacheEvent records an embedding cache hit or miss.
func (m *GenerationMetrics) RecordEmbedCacheEvent(hit bool) {
	event := "miss"
	if hit {
		event = "hit"
	}
	m.EmbedCacheEventsTotal.WithLabelValues(event).Inc()
}
