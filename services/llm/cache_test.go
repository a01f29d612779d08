// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"fmt"
	"testing"
)

func newTestCache(t *testing.T, inner EmbeddingProvider) *CachedEmbedder {
	t.Helper()
	db, err := OpenEmbedCache("")
	if err != nil {
		t.Fatalf("OpenEmbedCache() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewCachedEmbedder(inner, db, 0)
}

func TestCachedEmbedder_SecondCallHitsCache(t *testing.T) {
	inner := &countingEmbedder{}
	cache := newTestCache(t, inner)
	ctx := context.Background()

	first, err := cache.Embed(ctx, "lei 14.133/2021")
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	second, err := cache.Embed(ctx, "lei 14.133/2021")
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}

	if inner.embedCalls != 1 {
		t.Errorf("inner embed calls = %d, want 1", inner.embedCalls)
	}
	if len(first) != len(second) {
		t.Errorf("cached vector length %d differs from original %d", len(second), len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("cached vector differs at index %d", i)
		}
	}
}

func TestCachedEmbedder_DistinctTextsDistinctEntries(t *testing.T) {
	inner := &countingEmbedder{}
	cache := newTestCache(t, inner)
	ctx := context.Background()

	if _, err := cache.Embed(ctx, "lei 14.133/2021"); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Embed(ctx, "lei 8.666/1993"); err != nil {
		t.Fatal(err)
	}

	if inner.embedCalls != 2 {
		t.Errorf("inner embed calls = %d, want 2", inner.embedCalls)
	}
}

func TestCachedEmbedder_BatchFillsOnlyMisses(t *testing.T) {
	inner := &countingEmbedder{}
	cache := newTestCache(t, inner)
	ctx := context.Background()

	// Preload one of the three texts.
	if _, err := cache.Embed(ctx, "decreto 10.024/2019"); err != nil {
		t.Fatal(err)
	}

	vectors, err := cache.BatchEmbed(ctx, []string{
		"lei 14.133/2021",
		"decreto 10.024/2019",
		"lei complementar 123/2006",
	})
	if err != nil {
		t.Fatalf("BatchEmbed() error: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("got %d vectors, want 3", len(vectors))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			t.Errorf("vector %d is empty", i)
		}
	}
	// The provider should only have been asked for the two misses.
	if inner.lastBatchSize != 2 {
		t.Errorf("provider batch size = %d, want 2", inner.lastBatchSize)
	}
}

func TestCachedEmbedder_OnEventSeesHitsAndMisses(t *testing.T) {
	inner := &countingEmbedder{}
	cache := newTestCache(t, inner)
	ctx := context.Background()

	var hits, misses int
	cache.OnEvent = func(hit bool) {
		if hit {
			hits++
		} else {
			misses++
		}
	}

	if _, err := cache.Embed(ctx, "lei 14.133/2021"); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Embed(ctx, "lei 14.133/2021"); err != nil {
		t.Fatal(err)
	}

	if misses != 1 {
		t.Errorf("misses = %d, want 1", misses)
	}
	if hits != 1 {
		t.Errorf("hits = %d, want 1", hits)
	}
}

func TestCachedEmbedder_ProviderErrorPropagates(t *testing.T) {
	inner := &countingEmbedder{err: fmt.Errorf("backend down")}
	cache := newTestCache(t, inner)

	if _, err := cache.Embed(context.Background(), "lei 14.133/2021"); err == nil {
		t.Error("expected provider error to propagate")
	}
}

// countingEmbedder returns a deterministic vector per text and counts calls.
type countingEmbedder struct {
	embedCalls    int
	lastBatchSize int
	err           error
}

func (m *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.embedCalls++
	if m.err != nil {
		return nil, m.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (m *countingEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	m.embedCalls++
	m.lastBatchSize = len(texts)
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}
