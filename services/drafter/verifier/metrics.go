// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package verifier

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for reference verification operations.
var (
	tracer = otel.Tracer("licita.drafter.verifier")
	meter  = otel.Meter("licita.drafter.verifier")
)

// Verification outcomes used as metric attributes.
const (
	outcomeExact      = "exact"
	outcomeSuggestion = "suggestion"
	outcomeMiss       = "miss"
	outcomeError      = "error"
)

// Metrics for reference verification operations.
var (
	verifyLatency      metric.Float64Histogram
	verifyTotal        metric.Int64Counter
	nearMissSimilarity metric.Float64Histogram
	searchLatency      metric.Float64Histogram
	searchMatches      metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		verifyLatency, err = meter.Float64Histogram(
			"verifier_verify_duration_seconds",
			metric.WithDescription("Duration of reference verification operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		verifyTotal, err = meter.Int64Counter(
			"verifier_verify_total",
			metric.WithDescription("Total reference verifications by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		nearMissSimilarity, err = meter.Float64Histogram(
			"verifier_near_miss_similarity",
			metric.WithDescription("Similarity of near misses that produced a suggestion"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		searchLatency, err = meter.Float64Histogram(
			"verifier_search_duration_seconds",
			metric.WithDescription("Duration of similarity search operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		searchMatches, err = meter.Int64Histogram(
			"verifier_search_matches",
			metric.WithDescription("Matches returned per similarity search"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startVerifySpan creates a span for a reference verification.
func startVerifySpan(ctx context.Context, reference string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Verifier.VerifyReference",
		trace.WithAttributes(
			attribute.String("verifier.reference", reference),
		),
	)
}

// setVerifySpanResult sets the result attributes on a verification span.
func setVerifySpanResult(span trace.Span, outcome string) {
	span.SetAttributes(attribute.String("verifier.outcome", outcome))
}

// recordVerifyMetrics records metrics for one reference verification.
func recordVerifyMetrics(ctx context.Context, duration time.Duration, outcome string) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("outcome", outcome),
	)

	verifyLatency.Record(ctx, duration.Seconds(), attrs)
	verifyTotal.Add(ctx, 1, attrs)
}

// recordNearMiss records the similarity of a suggestion-producing near miss.
func recordNearMiss(ctx context.Context, similarity float64) {
	if err := initMetrics(); err != nil {
		return
	}
	nearMissSimilarity.Record(ctx, similarity)
}

// recordSearchMetrics records metrics for one similarity search.
func recordSearchMetrics(ctx context.Context, duration time.Duration, matches int) {
	if err := initMetrics(); err != nil {
		return
	}
	searchLatency.Record(ctx, duration.Seconds())
	searchMatches.Record(ctx, int64(matches))
}
