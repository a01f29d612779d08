// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// VerifyLegislation Tests
// =============================================================================

func TestVerifyLegislation_ExactMatch(t *testing.T) {
	v := newTestVerifier(t, seededLegislation(t), &stubEmbedder{})
	router := gin.New()
	router.POST("/v1/legislation/verify", VerifyLegislation(v))

	w := doJSON(t, router, "POST", "/v1/legislation/verify", map[string]any{
		"type":   "lei",
		"number": "14133",
		"year":   2021,
	})

	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "lei 14.133/2021", body["reference"])

	result, ok := body["result"].(map[string]any)
	require.True(t, ok, "result should be an object")
	assert.Equal(t, true, result["exists"])
}

func TestVerifyLegislation_UnknownReference(t *testing.T) {
	v := newTestVerifier(t, seededLegislation(t), &stubEmbedder{})
	router := gin.New()
	router.POST("/v1/legislation/verify", VerifyLegislation(v))

	w := doJSON(t, router, "POST", "/v1/legislation/verify", map[string]any{
		"type":   "lei",
		"number": "99999",
		"year":   2020,
	})

	require.Equal(t, http.StatusOK, w.Code)
	result := decodeBody(t, w)["result"].(map[string]any)
	assert.Equal(t, false, result["exists"])
}

func TestVerifyLegislation_UnparseableType(t *testing.T) {
	v := newTestVerifier(t, seededLegislation(t), &stubEmbedder{})
	router := gin.New()
	router.POST("/v1/legislation/verify", VerifyLegislation(v))

	w := doJSON(t, router, "POST", "/v1/legislation/verify", map[string]any{
		"type":   "alvará",
		"number": "123",
		"year":   2021,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyLegislation_EmbedderDownOnSuggestionPath(t *testing.T) {
	// An unknown reference needs an embedding for the did-you-mean lookup;
	// a dead backend surfaces as 502, not 500.
	v := newTestVerifier(t, seededLegislation(t), &stubEmbedder{err: errors.New("connection refused")})
	router := gin.New()
	router.POST("/v1/legislation/verify", VerifyLegislation(v))

	w := doJSON(t, router, "POST", "/v1/legislation/verify", map[string]any{
		"type":   "lei",
		"number": "99999",
		"year":   2020,
	})

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

// =============================================================================
// SearchLegislation Tests
// =============================================================================

func TestSearchLegislation_RanksByCosine(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"normas de licitação": {1, 0},
	}}
	v := newTestVerifier(t, seededLegislation(t), embedder)
	router := gin.New()
	router.POST("/v1/legislation/search", SearchLegislation(v))

	w := doJSON(t, router, "POST", "/v1/legislation/search", map[string]any{
		"text": "normas de licitação",
	})

	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	body := decodeBody(t, w)
	matches, ok := body["matches"].([]any)
	require.True(t, ok, "matches should be an array")
	require.NotEmpty(t, matches)

	top := matches[0].(map[string]any)
	record := top["record"].(map[string]any)
	assert.Equal(t, "14.133", record["number"])
	assert.Equal(t, float64(len(matches)), body["count"])
}

func TestSearchLegislation_MissingText(t *testing.T) {
	v := newTestVerifier(t, seededLegislation(t), &stubEmbedder{})
	router := gin.New()
	router.POST("/v1/legislation/search", SearchLegislation(v))

	w := doJSON(t, router, "POST", "/v1/legislation/search", map[string]any{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// =============================================================================
// IngestLegislation Tests
// =============================================================================

func TestIngestLegislation_StoresNormalizedRecords(t *testing.T) {
	legis := seededLegislation(t)
	router := gin.New()
	router.POST("/v1/legislation/ingest", IngestLegislation(legis, &stubEmbedder{}, testScanner(t)))

	w := doJSON(t, router, "POST", "/v1/legislation/ingest", map[string]any{
		"records": []map[string]any{
			{
				"type":    "decreto",
				"number":  "10024",
				"year":    2019,
				"title":   "Pregão Eletrônico",
				"content": "Regulamenta a licitação na modalidade pregão.",
			},
		},
	})

	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, float64(1), body["ingested"])
	assert.Nil(t, body["errors"])

	rec, found, err := legis.Get(context.Background(), "DECRETO", "10.024", 2019)
	require.NoError(t, err)
	require.True(t, found, "normalized record should be retrievable")
	assert.Equal(t, "Pregão Eletrônico", rec.Title)
	assert.True(t, rec.IsActive)
}

func TestIngestLegislation_ReportsPerRecordErrors(t *testing.T) {
	legis := seededLegislation(t)
	router := gin.New()
	router.POST("/v1/legislation/ingest", IngestLegislation(legis, &stubEmbedder{}, testScanner(t)))

	w := doJSON(t, router, "POST", "/v1/legislation/ingest", map[string]any{
		"records": []map[string]any{
			{"type": "alvará", "number": "1", "year": 2021, "title": "x", "content": "y"},
			{"type": "lei", "number": "13709", "year": 2018, "title": "LGPD", "content": "Dispõe sobre a proteção de dados pessoais."},
		},
	})

	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, float64(1), body["ingested"])

	errs, ok := body["errors"].([]any)
	require.True(t, ok, "errors should be present")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "record 0")
}

func TestIngestLegislation_AllRecordsRejected(t *testing.T) {
	legis := seededLegislation(t)
	router := gin.New()
	router.POST("/v1/legislation/ingest", IngestLegislation(legis, &stubEmbedder{}, testScanner(t)))

	w := doJSON(t, router, "POST", "/v1/legislation/ingest", map[string]any{
		"records": []map[string]any{
			{"type": "alvará", "number": "1", "year": 2021, "title": "x", "content": "y"},
		},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestIngestLegislation_BlocksPersonalData(t *testing.T) {
	// 111.444.777-35 carries valid check digits, so the scan reports the
	// match at high confidence and the record must not reach the corpus.
	legis := seededLegislation(t)
	router := gin.New()
	router.POST("/v1/legislation/ingest", IngestLegislation(legis, &stubEmbedder{}, testScanner(t)))

	w := doJSON(t, router, "POST", "/v1/legislation/ingest", map[string]any{
		"records": []map[string]any{
			{
				"type":    "portaria",
				"number":  "55",
				"year":    2026,
				"title":   "Designação de fiscal de contrato",
				"content": "Designa o servidor portador do CPF 111.444.777-35 como fiscal.",
			},
		},
	})

	require.Equal(t, http.StatusUnprocessableEntity, w.Code, "body: %s", w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, float64(0), body["ingested"])

	errs, ok := body["errors"].([]any)
	require.True(t, ok, "errors should be present")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "dados_pessoais")
	assert.Contains(t, errs[0], "CPF")

	_, found, err := legis.Get(context.Background(), "PORTARIA", "55", 2026)
	require.NoError(t, err)
	assert.False(t, found, "blocked record must not be stored")
}

func TestIngestLegislation_InvalidChecksumProceeds(t *testing.T) {
	// A CPF-shaped number with broken check digits stays at medium
	// confidence; statute text quotes such sequences legitimately.
	legis := seededLegislation(t)
	router := gin.New()
	router.POST("/v1/legislation/ingest", IngestLegislation(legis, &stubEmbedder{}, testScanner(t)))

	w := doJSON(t, router, "POST", "/v1/legislation/ingest", map[string]any{
		"records": []map[string]any{
			{
				"type":    "decreto",
				"number":  "11246",
				"year":    2022,
				"title":   "Regulamento de cadastro",
				"content": "O formato do registro segue o padrão 123.456.789-00 do anexo único.",
			},
		},
	})

	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, float64(1), body["ingested"])
	assert.Nil(t, body["errors"])
}

func TestIngestLegislation_EmbedderDownIs502(t *testing.T) {
	legis := seededLegislation(t)
	router := gin.New()
	router.POST("/v1/legislation/ingest", IngestLegislation(legis, &stubEmbedder{err: errors.New("connection refused")}, testScanner(t)))

	w := doJSON(t, router, "POST", "/v1/legislation/ingest", map[string]any{
		"records": []map[string]any{
			{"type": "lei", "number": "13709", "year": 2018, "title": "LGPD", "content": "Dispõe sobre a proteção de dados pessoais."},
		},
	})

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestIngestLegislation_EmptyBatch(t *testing.T) {
	legis := seededLegislation(t)
	router := gin.New()
	router.POST("/v1/legislation/ingest", IngestLegislation(legis, &stubEmbedder{}, testScanner(t)))

	w := doJSON(t, router, "POST", "/v1/legislation/ingest", map[string]any{
		"records": []map[string]any{},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
