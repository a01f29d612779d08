// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// =============================================================================
// Embedding Cache
// =============================================================================

// CachedEmbedder wraps an EmbeddingProvider with a BadgerDB lookaside cache.
//
// # Description
//
// Legal references repeat heavily across sections of the same document
// ("lei 14.133/2021" appears in nearly every ETP), so embedding them once
// per text is enough. Keys are sha256 digests of the input text; values are
// the JSON-encoded vectors with a TTL so model upgrades age out naturally.
//
// Cache failures never fail the embedding call: a read or write error logs
// a warning and falls through to the wrapped provider.
//
// # Thread Safety
//
// CachedEmbedder is safe for concurrent use.
type CachedEmbedder struct {
	inner EmbeddingProvider
	db    *badger.DB
	ttl   time.Duration

	// OnEvent, when set, observes every lookup as a hit or miss. Set once
	// before first use; called synchronously and must be cheap.
	OnEvent func(hit bool)
}

// DefaultEmbedCacheTTL keeps cached vectors for a week.
const DefaultEmbedCacheTTL = 7 * 24 * time.Hour

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenEmbedCache opens the BadgerDB instance backing the embedding cache.
// An empty path opens an in-memory database, used by tests and by
// deployments that prefer no disk state.
func OpenEmbedCache(path string) (*badger.DB, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", path, err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithNumVersionsToKeep(1)
	opts = opts.WithLogger(&badgerLogger{logger: slog.Default()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}
	return db, nil
}

// NewCachedEmbedder wraps inner with the given cache database. A zero ttl
// uses DefaultEmbedCacheTTL.
func NewCachedEmbedder(inner EmbeddingProvider, db *badger.DB, ttl time.Duration) *CachedEmbedder {
	if ttl <= 0 {
		ttl = DefaultEmbedCacheTTL
	}
	return &CachedEmbedder{
		inner: inner,
		db:    db,
		ttl:   ttl,
	}
}

func cacheKey(text string) []byte {
	sum := sha256.Sum256([]byte(text))
	return []byte("emb:" + hex.EncodeToString(sum[:]))
}

func (c *CachedEmbedder) lookup(text string) ([]float32, bool) {
	var vector []float32
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(text))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &vector)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			slog.Warn("embedding cache read failed", "error", err)
		}
		c.observe(false)
		return nil, false
	}
	c.observe(true)
	return vector, true
}

func (c *CachedEmbedder) observe(hit bool) {
	if c.OnEvent != nil {
		c.OnEvent(hit)
	}
}

func (c *CachedEmbedder) store(text string, vector []float32) {
	data, err := json.Marshal(vector)
	if err != nil {
		slog.Warn("embedding cache encode failed", "error", err)
		return
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(cacheKey(text), data).WithTTL(c.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		slog.Warn("embedding cache write failed", "error", err)
	}
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vector, ok := c.lookup(text); ok {
		return vector, nil
	}
	vector, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.store(text, vector)
	return vector, nil
}

func (c *CachedEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts is empty")
	}

	vectors := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if vector, ok := c.lookup(text); ok {
			vectors[i] = vector
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return vectors, nil
	}

	fresh, err := c.inner.BatchEmbed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missing) {
		return nil, fmt.Errorf("provider returned %d embeddings for %d texts", len(fresh), len(missing))
	}
	for j, vector := range fresh {
		vectors[missingIdx[j]] = vector
		c.store(missing[j], vector)
	}
	return vectors, nil
}
