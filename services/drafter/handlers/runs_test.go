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
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LicitaAI/LicitaCore/services/drafter/store"
)

func seededAuditStore(t *testing.T) store.AuditStore {
	t.Helper()

	db, err := store.Open(":memory:")
	require.NoError(t, err)
	auditStore := store.New(db)

	for _, rec := range []*store.GenerationRecord{
		{ResponseID: "resp-1", RequestID: "req-1", SectionType: "objeto", Outcome: "accepted"},
		{ResponseID: "resp-2", RequestID: "req-2", SectionType: "justificativa", Outcome: "failed"},
	} {
		require.NoError(t, auditStore.SaveRun(context.Background(), rec))
	}
	return auditStore
}

func runsRouter(auditStore store.AuditStore) *gin.Engine {
	router := gin.New()
	router.GET("/v1/runs", ListRuns(auditStore))
	router.GET("/v1/runs/:responseId", GetRun(auditStore))
	return router
}

// =============================================================================
// ListRuns Tests
// =============================================================================

func TestListRuns_ReturnsAll(t *testing.T) {
	router := runsRouter(seededAuditStore(t))

	w := doJSON(t, router, "GET", "/v1/runs", nil)

	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, float64(2), body["count"])
}

func TestListRuns_FiltersByOutcome(t *testing.T) {
	router := runsRouter(seededAuditStore(t))

	w := doJSON(t, router, "GET", "/v1/runs?outcome=failed", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, float64(1), body["count"])

	runs := body["runs"].([]any)
	first := runs[0].(map[string]any)
	assert.Equal(t, "resp-2", first["response_id"])
}

func TestListRuns_RejectsBadLimit(t *testing.T) {
	router := runsRouter(seededAuditStore(t))

	w := doJSON(t, router, "GET", "/v1/runs?limit=zero", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListRuns_WithoutStore(t *testing.T) {
	router := runsRouter(nil)

	w := doJSON(t, router, "GET", "/v1/runs", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// =============================================================================
// GetRun Tests
// =============================================================================

func TestGetRun_ByResponseID(t *testing.T) {
	router := runsRouter(seededAuditStore(t))

	w := doJSON(t, router, "GET", "/v1/runs/resp-1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "req-1", body["request_id"])
	assert.Equal(t, "accepted", body["outcome"])
}

func TestGetRun_Missing(t *testing.T) {
	router := runsRouter(seededAuditStore(t))

	w := doJSON(t, router, "GET", "/v1/runs/resp-999", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
