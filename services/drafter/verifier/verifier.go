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
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/LicitaAI/LicitaCore/pkg/validation"
	"github.com/LicitaAI/LicitaCore/services/drafter/datatypes"
	"github.com/LicitaAI/LicitaCore/services/llm"
)

// DefaultSimilarityThreshold is the minimum similarity for a near-miss to
// produce a "did you mean" suggestion.
const DefaultSimilarityThreshold = 0.7

// DefaultTopK is how many candidates a similarity probe retrieves.
const DefaultTopK = 5

// EmbeddingProviderError marks a verification failure caused by the
// embedding backend rather than by the reference itself. Callers use it to
// convert infrastructure faults into warnings instead of rejecting drafts.
type EmbeddingProviderError struct {
	Err error
}

func (e *EmbeddingProviderError) Error() string {
	return fmt.Sprintf("embedding provider: %v", e.Err)
}

func (e *EmbeddingProviderError) Unwrap() error {
	return e.Err
}

// Config tunes the similarity stage.
type Config struct {
	// SimilarityThreshold gates suggestions. Zero uses the default 0.7.
	SimilarityThreshold float64

	// TopK is the candidate pool size for a probe. Zero uses the default 5.
	TopK int
}

func (c *Config) applyDefaults() {
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
}

// Verifier resolves claimed legal references against the corpus.
//
// # Description
//
// Verification runs in two stages. An exact lookup on the normalized
// (type, number, year) triple settles real references immediately with
// confidence 1.0. Anything else is embedded in its canonical textual form
// ("lei 14.133/2021") and compared against the corpus vectors; a near match
// above the threshold yields a correction suggestion, so a hallucinated
// "Lei 14.333/2021" points the drafter back to 14.133.
//
// # Thread Safety
//
// Verifier is safe for concurrent use when its store and embedder are.
type Verifier struct {
	store    LegislationStore
	embedder llm.EmbeddingProvider
	cfg      Config
}

// NewVerifier wires a verifier over the given store and embedding provider.
func NewVerifier(store LegislationStore, embedder llm.EmbeddingProvider, cfg Config) (*Verifier, error) {
	if store == nil {
		return nil, fmt.Errorf("store must not be nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder must not be nil")
	}
	cfg.applyDefaults()
	return &Verifier{
		store:    store,
		embedder: embedder,
		cfg:      cfg,
	}, nil
}

// VerifyReference checks one normalized reference against the corpus.
//
// # Description
//
// Exact matches return Exists=true with Confidence 1.0 and the matched
// record. Misses are embedded and probed for near matches: the best
// candidate at or above the similarity threshold produces Exists=false,
// Confidence 0, and a human-readable suggestion quoting the similarity.
// With no candidate above the threshold the result is an unadorned miss.
//
// # Inputs
//
//   - ctx: Context for cancellation and timeout.
//   - ref: A reference already normalized by pkg/validation.
//
// # Outputs
//
//   - datatypes.VerificationResult: The verdict; see datatypes for shapes.
//   - error: *EmbeddingProviderError when the embedding backend fails,
//     otherwise store errors. A miss is not an error.
func (v *Verifier) VerifyReference(ctx context.Context, ref validation.Reference) (datatypes.VerificationResult, error) {
	ctx, span := startVerifySpan(ctx, ref.String())
	defer span.End()
	start := time.Now()

	rec, found, err := v.store.Get(ctx, string(ref.Type), ref.Number, ref.Year)
	if err != nil {
		recordVerifyMetrics(ctx, time.Since(start), outcomeError)
		return datatypes.VerificationResult{}, fmt.Errorf("corpus lookup: %w", err)
	}
	if found {
		setVerifySpanResult(span, outcomeExact)
		recordVerifyMetrics(ctx, time.Since(start), outcomeExact)
		return datatypes.VerificationResult{
			Exists:        true,
			Confidence:    1.0,
			MatchedRecord: &rec,
		}, nil
	}

	vector, err := v.embedder.Embed(ctx, ref.Canonical())
	if err != nil {
		slog.Warn("embedding failed during reference verification",
			"reference", ref.String(), "error", err)
		recordVerifyMetrics(ctx, time.Since(start), outcomeError)
		return datatypes.VerificationResult{}, &EmbeddingProviderError{Err: err}
	}

	matches, err := v.store.SearchSimilar(ctx, vector, v.cfg.TopK)
	if err != nil {
		recordVerifyMetrics(ctx, time.Since(start), outcomeError)
		return datatypes.VerificationResult{}, fmt.Errorf("similarity probe: %w", err)
	}

	if len(matches) == 0 || matches[0].Similarity < v.cfg.SimilarityThreshold {
		setVerifySpanResult(span, outcomeMiss)
		recordVerifyMetrics(ctx, time.Since(start), outcomeMiss)
		return datatypes.VerificationResult{Exists: false, Confidence: 0}, nil
	}

	// A near match is still a miss: Confidence stays 0 and the similarity
	// is only quoted inside the suggestion. Reporting the raw similarity as
	// confidence would let callers treat "83% match" as "83% verified".
	best := matches[0]
	display := validation.Reference{
		Type:   validation.ReferenceType(best.Record.Type),
		Number: best.Record.Number,
		Year:   best.Record.Year,
	}
	setVerifySpanResult(span, outcomeSuggestion)
	recordVerifyMetrics(ctx, time.Since(start), outcomeSuggestion)
	recordNearMiss(ctx, best.Similarity)
	return datatypes.VerificationResult{
		Exists:        false,
		Confidence:    0,
		MatchedRecord: &best.Record,
		Suggestion: fmt.Sprintf("Did you mean %s (%d%% match)?",
			display.String(), int(math.Round(best.Similarity*100))),
	}, nil
}

// FindSimilar embeds free text and returns corpus records at or above
// minSimilarity, best first, at most limit entries. Used by the search
// endpoint; unlike VerifyReference the query need not parse as a reference.
func (v *Verifier) FindSimilar(ctx context.Context, text string, limit int, minSimilarity float64) ([]datatypes.SimilarMatch, error) {
	ctx, span := tracer.Start(ctx, "Verifier.FindSimilar")
	defer span.End()
	start := time.Now()

	if limit <= 0 {
		limit = v.cfg.TopK
	}

	vector, err := v.embedder.Embed(ctx, text)
	if err != nil {
		return nil, &EmbeddingProviderError{Err: err}
	}

	matches, err := v.store.SearchSimilar(ctx, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("similarity probe: %w", err)
	}

	filtered := matches[:0]
	for _, m := range matches {
		if m.Similarity >= minSimilarity {
			filtered = append(filtered, m)
		}
	}
	recordSearchMetrics(ctx, time.Since(start), len(filtered))
	return filtered, nil
}
