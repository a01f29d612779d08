// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LicitaAI/LicitaCore/pkg/extensions"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubProvider hands back a fixed result and records the token it saw.
type stubProvider struct {
	info  *extensions.AuthInfo
	err   error
	token string
}

func (s *stubProvider) Validate(_ context.Context, token string) (*extensions.AuthInfo, error) {
	s.token = token
	if s.err != nil {
		return nil, s.err
	}
	return s.info, nil
}

// protectedRouter mounts a probe handler behind the middleware that echoes
// the authenticated user.
func protectedRouter(provider extensions.AuthProvider) *gin.Engine {
	router := gin.New()
	router.GET("/protected", AuthMiddleware(provider), func(c *gin.Context) {
		info := GetAuthInfo(c)
		if info == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no auth info"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": info.UserID})
	})
	return router
}

func get(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// =============================================================================
// AuthMiddleware Tests
// =============================================================================

func TestAuthMiddleware_NopProviderAdmitsEveryone(t *testing.T) {
	router := protectedRouter(&extensions.NopAuthProvider{})

	w := get(router, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "local-user")
}

func TestAuthMiddleware_PassesTokenToProvider(t *testing.T) {
	provider := &stubProvider{info: &extensions.AuthInfo{UserID: "maria.souza"}}
	router := protectedRouter(provider)

	w := get(router, "Bearer tok-123")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok-123", provider.token)
	assert.Contains(t, w.Body.String(), "maria.souza")
}

func TestAuthMiddleware_RejectsInvalidToken(t *testing.T) {
	provider := &stubProvider{err: extensions.ErrUnauthorized}
	router := protectedRouter(provider)

	w := get(router, "Bearer expired")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "unauthorized")
}

func TestAuthMiddleware_ProviderFailure(t *testing.T) {
	provider := &stubProvider{err: errors.New("identity backend timeout")}
	router := protectedRouter(provider)

	w := get(router, "Bearer tok-123")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "authentication failed")
}

func TestAuthMiddleware_WrappedUnauthorized(t *testing.T) {
	provider := &stubProvider{err: fmt.Errorf("session store: %w", extensions.ErrUnauthorized)}
	router := protectedRouter(provider)

	w := get(router, "Bearer revoked")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "unauthorized")
}

// =============================================================================
// Token Extraction Tests
// =============================================================================

func TestExtractBearerToken_Formats(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"standard", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"missing header", "", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz", ""},
		{"scheme only", "Bearer", ""},
		{"padded token", "Bearer   abc123  ", "abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &stubProvider{info: &extensions.AuthInfo{UserID: "u"}}
			router := protectedRouter(provider)

			get(router, tt.header)

			assert.Equal(t, tt.want, provider.token)
		})
	}
}

// =============================================================================
// Context Helper Tests
// =============================================================================

func TestGetAuthInfo_AbsentIsNil(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, GetAuthInfo(c))
}

func TestSetGetAuthInfo_RoundTrip(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	info := &extensions.AuthInfo{UserID: "u1", OrgUnit: "SEFAZ-PI"}

	SetAuthInfo(c, info)

	got := GetAuthInfo(c)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "SEFAZ-PI", got.OrgUnit)
}
