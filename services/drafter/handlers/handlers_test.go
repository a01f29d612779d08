// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Shared fixtures for handler tests: a scripted LLM client, a stub embedding
// provider, and seeded stores, so every endpoint runs without a model server
// or Weaviate.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/LicitaAI/LicitaCore/services/drafter/agents"
	"github.com/LicitaAI/LicitaCore/services/drafter/datatypes"
	"github.com/LicitaAI/LicitaCore/services/drafter/pipeline"
	"github.com/LicitaAI/LicitaCore/services/drafter/sanitizer"
	"github.com/LicitaAI/LicitaCore/services/drafter/schema"
	"github.com/LicitaAI/LicitaCore/services/drafter/verifier"
	"github.com/LicitaAI/LicitaCore/services/lgpd"
	"github.com/LicitaAI/LicitaCore/services/llm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// =============================================================================
// Pipeline Fixtures
// =============================================================================

const handlerTestSchemas = `version: "1.0.0"
schemas:
  - type: objeto
    version: "1.0.0"
    max_length: 5000
    min_length: 50
    max_retries: 1
`

const handlerTestPatterns = `families:
  - name: script_injection
    description: executable content in drafts
    priority: 10
    patterns:
      - id: html-script
        description: draft embeds executable content
        regex: "<script"
`

const handlerCleanDraft = "A presente contratação tem por objeto a prestação de serviços " +
	"continuados de limpeza predial, conforme este estudo técnico preliminar."

// scriptedClient returns scripted generations in call order.
type scriptedClient struct {
	mu    sync.Mutex
	texts []string
	calls int
}

func (c *scriptedClient) Generate(ctx context.Context, _ string, _ llm.GenerationParams) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls >= len(c.texts) {
		return "", fmt.Errorf("unscripted generation call %d", c.calls)
	}
	text := c.texts[c.calls]
	c.calls++
	return text, nil
}

// passAgent never raises findings.
type passAgent struct{}

func (passAgent) Name() string { return datatypes.AgentClareza }

func (passAgent) Evaluate(context.Context, string, datatypes.DocumentContext) ([]datatypes.Finding, error) {
	return nil, nil
}

// newScriptedPipeline builds a pipeline that serves the given drafts in
// order, with a one-retry schema and a panel that always passes.
func newScriptedPipeline(t *testing.T, drafts ...string) *pipeline.Pipeline {
	t.Helper()

	san, err := sanitizer.NewFromBytes([]byte(handlerTestPatterns))
	require.NoError(t, err)
	reg, err := schema.NewRegistryFromBytes([]byte(handlerTestSchemas))
	require.NoError(t, err)
	panel := agents.NewPanel([]agents.Agent{passAgent{}}, time.Second)

	p, err := pipeline.New(&scriptedClient{texts: drafts}, san, reg, panel, nil, pipeline.Config{
		RetryDelay: time.Millisecond,
	})
	require.NoError(t, err)
	return p
}

func generateBody(sectionType string) map[string]any {
	return map[string]any{
		"section_type": sectionType,
		"context": map[string]any{
			"document_title": "ETP 42/2026",
			"document_type":  "etp",
			"organization":   "Prefeitura de Teresina",
			"objective":      "Contratação de serviços de limpeza predial",
		},
	}
}

// =============================================================================
// Legislation Fixtures
// =============================================================================

// stubEmbedder serves canned vectors by text, defaulting to the zero vector.
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0}, nil
}

func (s *stubEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// seededLegislation returns a memory store holding Lei 14.133/2021 (active)
// and Lei 8.666/1993 (revoked), with orthogonal unit embeddings.
func seededLegislation(t *testing.T) *verifier.MemoryStore {
	t.Helper()
	store := verifier.NewMemoryStore()
	for _, rec := range []datatypes.LegislationRecord{
		{
			Type: "LEI", Number: "14.133", Year: 2021,
			Title:     "Lei de Licitações e Contratos Administrativos",
			Embedding: []float32{1, 0},
			IsActive:  true,
		},
		{
			Type: "LEI", Number: "8.666", Year: 1993,
			Title:     "Antiga Lei de Licitações (revogada)",
			Embedding: []float32{0, 1},
			IsActive:  false,
		},
	} {
		require.NoError(t, store.Upsert(context.Background(), rec))
	}
	return store
}

func newTestVerifier(t *testing.T, store verifier.LegislationStore, embedder llm.EmbeddingProvider) *verifier.Verifier {
	t.Helper()
	v, err := verifier.NewVerifier(store, embedder, verifier.Config{})
	require.NoError(t, err)
	return v
}

// testScanner compiles the embedded classification catalog, same as the
// service does at startup.
func testScanner(t *testing.T) *lgpd.Engine {
	t.Helper()
	scanner, err := lgpd.NewEngine()
	require.NoError(t, err)
	return scanner
}

// =============================================================================
// HTTP Helpers
// =============================================================================

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doRawJSON(t *testing.T, router *gin.Engine, method, path, raw string) *httptest.ResponseRecorder {
	t.Helper()

	req, err := http.NewRequest(method, path, bytes.NewBufferString(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "response should be JSON: %s", w.Body.String())
	return body
}
