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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"
)

// =============================================================================
// Model Warmer
// =============================================================================

// ModelWarmer pre-loads the Ollama models a drafting run alternates between.
//
// # Description
//
// A section draft interleaves generation calls (the drafting model) with
// embedding calls (the legislation verifier's model). Ollama unloads a model
// when a different one is requested, so alternating between the two on a
// single GPU causes constant reload thrashing. ModelWarmer loads both with
// keep_alive set so they stay resident for the whole run.
//
// # Thread Safety
//
// ModelWarmer is safe for concurrent use.
type ModelWarmer struct {
	baseURL    string
	httpClient *http.Client
	models     map[string]*ModelStatus
	mu         sync.RWMutex
	logger     *slog.Logger
}

// ModelStatus tracks a warmed model's lifecycle state.
type ModelStatus struct {
	// Name is the model identifier (e.g., "llama3.1").
	Name string `json:"name"`

	// KeepAlive is the keep_alive setting for this model.
	// "-1" = infinite, "5m" = 5 minutes, "0" = unload immediately.
	KeepAlive string `json:"keep_alive"`

	// IsLoaded indicates whether the warmup request succeeded.
	IsLoaded bool `json:"is_loaded"`

	// LoadedAt is when the model was loaded.
	LoadedAt time.Time `json:"loaded_at"`

	// LoadDuration is how long the warmup took.
	LoadDuration time.Duration `json:"load_duration"`

	// WarmupError holds the failure, if any.
	WarmupError error `json:"-"`
}

// WarmupConfig specifies one model to warm.
type WarmupConfig struct {
	// Model is the model name (e.g., "nomic-embed-text").
	Model string

	// KeepAlive controls how long the model stays loaded.
	// "-1" keeps it resident indefinitely.
	KeepAlive string

	// Priority determines loading order. Higher = load first.
	Priority int

	// NumCtx is the context window size, 0 for the server default.
	NumCtx int

	// Embedding marks models warmed through the embed endpoint.
	Embedding bool
}

func NewModelWarmer(baseURL string) *ModelWarmer {
	return &ModelWarmer{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute, // Long timeout for model loading
		},
		models: make(map[string]*ModelStatus),
		logger: slog.Default(),
	}
}

// WarmAll loads the configured models sequentially, highest priority first.
// Sequential loading avoids VRAM contention; a failure aborts the remaining
// loads and is recorded on the model's status.
func (m *ModelWarmer) WarmAll(ctx context.Context, configs []WarmupConfig) error {
	if len(configs) == 0 {
		return nil
	}

	sorted := make([]WarmupConfig, len(configs))
	copy(sorted, configs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})

	m.logger.Info("Warming models", slog.Int("count", len(configs)))

	for _, cfg := range sorted {
		if err := m.Warm(ctx, cfg); err != nil {
			m.logger.Error("Failed to warm model",
				slog.String("model", cfg.Model),
				slog.String("error", err.Error()),
			)
			m.mu.Lock()
			m.models[cfg.Model] = &ModelStatus{
				Name:        cfg.Model,
				KeepAlive:   cfg.KeepAlive,
				WarmupError: err,
			}
			m.mu.Unlock()
			return fmt.Errorf("warming model %s: %w", cfg.Model, err)
		}
	}

	return nil
}

// Warm loads a single model with keep_alive set. Generation models are
// pinged through /api/generate, embedding models through /api/embed.
func (m *ModelWarmer) Warm(ctx context.Context, cfg WarmupConfig) error {
	startTime := time.Now()

	m.logger.Info("Warming model",
		slog.String("model", cfg.Model),
		slog.String("keep_alive", cfg.KeepAlive),
		slog.Int("num_ctx", cfg.NumCtx),
	)

	var payload any
	endpoint := "/api/generate"
	if cfg.Embedding {
		endpoint = "/api/embed"
		payload = struct {
			Model     string   `json:"model"`
			Input     []string `json:"input"`
			KeepAlive string   `json:"keep_alive,omitempty"`
		}{Model: cfg.Model, Input: []string{"ping"}, KeepAlive: cfg.KeepAlive}
	} else {
		options := make(map[string]interface{})
		if cfg.NumCtx > 0 {
			options["num_ctx"] = cfg.NumCtx
		}
		options["num_predict"] = 1
		payload = struct {
			Model     string                 `json:"model"`
			Prompt    string                 `json:"prompt"`
			Stream    bool                   `json:"stream"`
			KeepAlive string                 `json:"keep_alive,omitempty"`
			Options   map[string]interface{} `json:"options,omitempty"`
		}{Model: cfg.Model, Prompt: "ping", KeepAlive: cfg.KeepAlive, Options: options}
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling warmup request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", m.baseURL+endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("creating warmup request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending warmup request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("warmup failed with status %d: %s", resp.StatusCode, string(body))
	}
	_, _ = io.ReadAll(resp.Body)

	loadDuration := time.Since(startTime)

	m.mu.Lock()
	m.models[cfg.Model] = &ModelStatus{
		Name:         cfg.Model,
		KeepAlive:    cfg.KeepAlive,
		IsLoaded:     true,
		LoadedAt:     time.Now(),
		LoadDuration: loadDuration,
	}
	m.mu.Unlock()

	m.logger.Info("Model warmed successfully",
		slog.String("model", cfg.Model),
		slog.Duration("load_duration", loadDuration),
	)

	return nil
}

// Status returns a snapshot of every tracked model, sorted by name.
// Used by the health endpoint to report which models are resident.
func (m *ModelWarmer) Status() []ModelStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ModelStatus, 0, len(m.models))
	for _, st := range m.models {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
