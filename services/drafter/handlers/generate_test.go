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

	"github.com/LicitaAI/LicitaCore/services/drafter/datatypes"
	"github.com/LicitaAI/LicitaCore/services/drafter/store"
)

// =============================================================================
// GenerateSection Tests
// =============================================================================

func TestGenerateSection_AcceptedDraft(t *testing.T) {
	pipe := newScriptedPipeline(t, handlerCleanDraft)
	router := gin.New()
	router.POST("/v1/sections/generate", GenerateSection(pipe, nil, nil))

	w := doJSON(t, router, "POST", "/v1/sections/generate", generateBody("objeto"))

	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "accepted", body["outcome"])
	assert.Equal(t, handlerCleanDraft, body["content"])
	assert.Equal(t, "objeto", body["section_type"])
	assert.NotEmpty(t, body["response_id"])
	assert.NotEmpty(t, body["request_id"])
	assert.Equal(t, float64(1), body["attempts_used"])
}

func TestGenerateSection_FailedRunStillReturns200(t *testing.T) {
	// Both attempts trip the sanitizer; the run fails soft and the caller
	// still receives the last draft with its findings.
	tainted := handlerCleanDraft + " <script>alert(1)</script>"
	pipe := newScriptedPipeline(t, tainted, tainted)
	router := gin.New()
	router.POST("/v1/sections/generate", GenerateSection(pipe, nil, nil))

	w := doJSON(t, router, "POST", "/v1/sections/generate", generateBody("objeto"))

	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "failed", body["outcome"])
	assert.NotEmpty(t, body["failure_reason"])
	assert.Equal(t, float64(2), body["attempts_used"])
}

func TestGenerateSection_MalformedJSON(t *testing.T) {
	pipe := newScriptedPipeline(t)
	router := gin.New()
	router.POST("/v1/sections/generate", GenerateSection(pipe, nil, nil))

	w := doRawJSON(t, router, "POST", "/v1/sections/generate", `{"section_type": `)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestGenerateSection_MissingSectionType(t *testing.T) {
	pipe := newScriptedPipeline(t)
	router := gin.New()
	router.POST("/v1/sections/generate", GenerateSection(pipe, nil, nil))

	body := generateBody("objeto")
	delete(body, "section_type")
	w := doJSON(t, router, "POST", "/v1/sections/generate", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "SectionType")
}

// =============================================================================
// persistRun Tests
// =============================================================================

func TestPersistRun_WritesAuditRecord(t *testing.T) {
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	auditStore := store.New(db)

	pipe := newScriptedPipeline(t, handlerCleanDraft)
	req := &datatypes.GenerateSectionRequest{SectionType: "objeto"}
	req.EnsureDefaults()
	result, err := pipe.Run(context.Background(), req)
	require.NoError(t, err)

	persistRun(auditStore, nil, req, result)

	rec, err := auditStore.GetRun(context.Background(), result.Response.ResponseID)
	require.NoError(t, err)
	assert.Equal(t, req.RequestID, rec.RequestID)
	assert.Equal(t, "accepted", rec.Outcome)
}

func TestPersistRun_NilStoreIsNoop(t *testing.T) {
	pipe := newScriptedPipeline(t, handlerCleanDraft)
	req := &datatypes.GenerateSectionRequest{SectionType: "objeto"}
	req.EnsureDefaults()
	result, err := pipe.Run(context.Background(), req)
	require.NoError(t, err)

	// Must not panic with neither sink configured.
	persistRun(nil, nil, req, result)
}
