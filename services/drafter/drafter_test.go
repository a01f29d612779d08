// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package drafter

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/LicitaAI/LicitaCore/pkg/extensions"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Setup
// =============================================================================

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

// =============================================================================
// Config Tests
// =============================================================================

// TestApplyConfigDefaults_AllDefaults verifies default values are applied.
func TestApplyConfigDefaults_AllDefaults(t *testing.T) {
	// Arrange
	cfg := Config{}

	// Act
	result := applyConfigDefaults(cfg)

	// Assert
	assert.Equal(t, 12310, result.Port, "default port should be 12310")
	assert.Equal(t, "local", result.LLMBackend, "default LLM backend should be local")
	assert.Equal(t, "ollama", result.EmbeddingBackend, "default embedding backend should be ollama")
	assert.Equal(t, "licita-otel-collector:4317", result.OTelEndpoint,
		"default OTel endpoint should be licita-otel-collector:4317")
	assert.Equal(t, "./data/licita_audit.db", result.AuditDBPath,
		"default audit path should be applied")
	assert.Equal(t, 1*time.Hour, result.RetentionInterval,
		"default retention interval should be hourly")
	assert.Equal(t, 90*24*time.Hour, result.RetentionTTL,
		"default retention TTL should be 90 days")
	assert.False(t, result.DisableMetrics, "metrics should be enabled by default")
	assert.False(t, result.DisableRetention, "retention should be enabled by default")
}

// TestApplyConfigDefaults_PreservesCustomValues verifies custom values are not overwritten.
func TestApplyConfigDefaults_PreservesCustomValues(t *testing.T) {
	// Arrange
	cfg := Config{
		Port:             8080,
		LLMBackend:       "openai",
		EmbeddingBackend: "openai",
		OTelEndpoint:     "custom-collector:4317",
		WeaviateURL:      "http://weaviate:8080",
		AuditDBPath:      ":memory:",
		RetentionTTL:     24 * time.Hour,
	}

	// Act
	result := applyConfigDefaults(cfg)

	// Assert
	assert.Equal(t, 8080, result.Port, "custom port should be preserved")
	assert.Equal(t, "openai", result.LLMBackend, "custom LLM backend should be preserved")
	assert.Equal(t, "openai", result.EmbeddingBackend, "custom embedding backend should be preserved")
	assert.Equal(t, "custom-collector:4317", result.OTelEndpoint,
		"custom OTel endpoint should be preserved")
	assert.Equal(t, "http://weaviate:8080", result.WeaviateURL,
		"custom Weaviate URL should be preserved")
	assert.Equal(t, ":memory:", result.AuditDBPath, "custom audit path should be preserved")
	assert.Equal(t, 24*time.Hour, result.RetentionTTL, "custom retention TTL should be preserved")
}

// TestApplyConfigDefaults_PartialConfig verifies partial configs are handled.
func TestApplyConfigDefaults_PartialConfig(t *testing.T) {
	// Arrange
	cfg := Config{
		Port: 9999,
		// LLMBackend and OTelEndpoint left empty
	}

	// Act
	result := applyConfigDefaults(cfg)

	// Assert
	assert.Equal(t, 9999, result.Port, "custom port should be preserved")
	assert.Equal(t, "local", result.LLMBackend, "default LLM backend should be applied")
	assert.Equal(t, "licita-otel-collector:4317", result.OTelEndpoint,
		"default OTel endpoint should be applied")
}

// =============================================================================
// ServiceOptions Tests
// =============================================================================

// TestServiceOptions_WithNilUseDefaults verifies nil opts uses defaults.
func TestServiceOptions_WithNilUseDefaults(t *testing.T) {
	// Arrange
	var opts *extensions.ServiceOptions = nil

	// Act - simulate what New() does
	var actualOpts extensions.ServiceOptions
	if opts != nil {
		actualOpts = *opts
	} else {
		actualOpts = extensions.DefaultOptions()
	}

	// Assert
	assert.NotNil(t, actualOpts.AuthProvider, "default AuthProvider should be set")
	assert.NotNil(t, actualOpts.AuthzProvider, "default AuthzProvider should be set")
	assert.NotNil(t, actualOpts.AuditLogger, "default AuditLogger should be set")
	assert.NotNil(t, actualOpts.DraftFilter, "default DraftFilter should be set")

	// Verify they are the Nop implementations
	_, isNopAuth := actualOpts.AuthProvider.(*extensions.NopAuthProvider)
	assert.True(t, isNopAuth, "AuthProvider should be NopAuthProvider")

	_, isNopAuthz := actualOpts.AuthzProvider.(*extensions.NopAuthzProvider)
	assert.True(t, isNopAuthz, "AuthzProvider should be NopAuthzProvider")

	_, isNopAudit := actualOpts.AuditLogger.(*extensions.NopAuditLogger)
	assert.True(t, isNopAudit, "AuditLogger should be NopAuditLogger")

	_, isNopFilter := actualOpts.DraftFilter.(*extensions.NopDraftFilter)
	assert.True(t, isNopFilter, "DraftFilter should be NopDraftFilter")
}

// TestServiceOptions_WithCustomProviders verifies custom providers are used.
func TestServiceOptions_WithCustomProviders(t *testing.T) {
	// Arrange
	customAuth := &mockAuthProvider{}
	customAudit := &mockAuditLogger{}

	opts := &extensions.ServiceOptions{
		AuthProvider: customAuth,
		AuditLogger:  customAudit,
		// Leave others nil
	}

	// Act - simulate what New() would do with partial custom opts
	var actualOpts extensions.ServiceOptions
	if opts != nil {
		actualOpts = *opts
	}

	// Assert - custom providers should be used
	assert.Same(t, customAuth, actualOpts.AuthProvider,
		"custom AuthProvider should be used")
	assert.Same(t, customAudit, actualOpts.AuditLogger,
		"custom AuditLogger should be used")

	// Nil fields remain nil (would need explicit handling in real code)
	assert.Nil(t, actualOpts.AuthzProvider,
		"unset AuthzProvider should be nil")
	assert.Nil(t, actualOpts.DraftFilter,
		"unset DraftFilter should be nil")
}

// =============================================================================
// Constructor Tests
// =============================================================================

// TestNew_InMemory builds the full service with hermetic backends.
//
// Every external dependency has an in-process fallback: in-memory corpus,
// in-memory audit database, in-memory embed cache, telemetry exporters
// off. Construction must succeed without any network service running.
func TestNew_InMemory(t *testing.T) {
	t.Setenv("LLM_SERVICE_URL_BASE", "http://localhost:18080")
	t.Setenv("OLLAMA_BASE_URL", "http://localhost:11434")

	cfg := Config{
		GinMode:        gin.TestMode,
		TraceExporter:  "none",
		MetricExporter: "none",
		AuditDBPath:    ":memory:",
		DisableWarmup:  true,
	}

	svc, err := New(cfg, nil)
	require.NoError(t, err, "hermetic construction should succeed")
	require.NotNil(t, svc.Router(), "router should be configured")

	impl, ok := svc.(*service)
	require.True(t, ok)
	defer impl.cleanup()

	// The health endpoint answers through the assembled router
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	svc.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	// Authenticated routes pass with the Nop auth provider
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/schemas", nil)
	svc.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "objeto",
		"embedded section schemas should be served")
}

// TestNew_FailsWithoutLLMEnvironment verifies the fatal path.
func TestNew_FailsWithoutLLMEnvironment(t *testing.T) {
	t.Setenv("LLM_SERVICE_URL_BASE", "")
	t.Setenv("OLLAMA_BASE_URL", "http://localhost:11434")

	cfg := Config{
		GinMode:        gin.TestMode,
		TraceExporter:  "none",
		MetricExporter: "none",
		AuditDBPath:    ":memory:",
		DisableWarmup:  true,
	}

	_, err := New(cfg, nil)
	require.Error(t, err, "local backend without LLM_SERVICE_URL_BASE must fail")
	assert.Contains(t, err.Error(), "LLM client")
}

// TestConfig_ZeroValue verifies Config zero value is usable.
func TestConfig_ZeroValue(t *testing.T) {
	// Arrange
	var cfg Config

	// Act
	result := applyConfigDefaults(cfg)

	// Assert - should have valid defaults
	assert.Greater(t, result.Port, 0, "port should be positive")
	assert.NotEmpty(t, result.LLMBackend, "LLM backend should not be empty")
	assert.NotEmpty(t, result.OTelEndpoint, "OTel endpoint should not be empty")
}

// =============================================================================
// Mock Implementations for Testing
// =============================================================================

// mockAuthProvider is a test double for AuthProvider.
type mockAuthProvider struct {
	extensions.NopAuthProvider
}

// mockAuditLogger is a test double for AuditLogger.
type mockAuditLogger struct {
	extensions.NopAuditLogger
}
