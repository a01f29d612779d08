// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package verifier checks claimed legal references against an indexed
// legislation corpus: exact key lookups first, embedding similarity for
// near-misses.
package verifier

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/LicitaAI/LicitaCore/services/drafter/datatypes"
	"github.com/LicitaAI/LicitaCore/services/llm"
)

// LegislationStore persists the corpus the verifier queries.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type LegislationStore interface {
	// Upsert inserts or replaces the record identified by its Key().
	Upsert(ctx context.Context, rec datatypes.LegislationRecord) error

	// Get returns the record exactly matching the canonical components,
	// with found=false when the corpus has no such norm.
	Get(ctx context.Context, lawType, number string, year int) (datatypes.LegislationRecord, bool, error)

	// SearchSimilar returns the records closest to the query vector,
	// highest similarity first, at most limit entries. Similarities are
	// cosine values clamped to [0,1].
	SearchSimilar(ctx context.Context, vector []float32, limit int) ([]datatypes.SimilarMatch, error)

	// Count reports how many records the corpus holds.
	Count(ctx context.Context) (int, error)
}

// ChunkUpserter is implemented by stores that index content excerpts
// alongside canonical records, so topical searches can land on the exact
// passage of a long statute. The ingest path feature-detects it; stores
// without it (the in-memory store) ingest whole records only.
type ChunkUpserter interface {
	// UpsertChunks writes one excerpt object per chunk for the given
	// record and returns how many were written. Chunks and vectors must
	// be the same length.
	UpsertChunks(ctx context.Context, rec datatypes.LegislationRecord, chunks []string, vectors [][]float32) (int, error)
}

// =============================================================================
// In-Memory Store
// =============================================================================

// MemoryStore keeps the corpus in process memory. It preserves insertion
// order, which makes similarity ties deterministic: when two records score
// equally, the earlier-ingested one ranks first.
//
// # Thread Safety
//
// MemoryStore is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	records []datatypes.LegislationRecord
	index   map[string]int
}

var _ LegislationStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		index: make(map[string]int),
	}
}

// Upsert replaces an existing record in place, keeping its original
// insertion position, or appends a new one.
func (s *MemoryStore) Upsert(ctx context.Context, rec datatypes.LegislationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.Type == "" || rec.Number == "" || rec.Year == 0 {
		return fmt.Errorf("incomplete legislation record: %q", rec.Key())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := rec.Key()
	if i, ok := s.index[key]; ok {
		s.records[i] = rec
		return nil
	}
	s.index[key] = len(s.records)
	s.records = append(s.records, rec)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, lawType, number string, year int) (datatypes.LegislationRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return datatypes.LegislationRecord{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	probe := datatypes.LegislationRecord{Type: lawType, Number: number, Year: year}
	i, ok := s.index[probe.Key()]
	if !ok {
		return datatypes.LegislationRecord{}, false, nil
	}
	return s.records[i], true, nil
}

func (s *MemoryStore) SearchSimilar(ctx context.Context, vector []float32, limit int) ([]datatypes.SimilarMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []datatypes.SimilarMatch{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]datatypes.SimilarMatch, 0, len(s.records))
	for _, rec := range s.records {
		if len(rec.Embedding) == 0 {
			continue
		}
		matches = append(matches, datatypes.SimilarMatch{
			Record:     rec,
			Similarity: clampSimilarity(llm.CosineSimilarity(vector, rec.Embedding)),
		})
	}

	// Stable sort keeps insertion order among equal scores.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// clampSimilarity bounds a cosine value to [0,1]. Negative similarity means
// "nothing alike", which reports as zero rather than a negative confidence.
func clampSimilarity(sim float64) float64 {
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
