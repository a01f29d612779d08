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
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialStream starts the router on a test server and opens the websocket.
func dialStream(t *testing.T, router *gin.Engine) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/sections/generate/stream"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

// readUntilFinal collects transition events until the final response
// arrives. Events carry a "state" key; the final message is the generation
// response itself, recognizable by its response_id.
func readUntilFinal(t *testing.T, ws *websocket.Conn) (states []string, final map[string]any) {
	t.Helper()

	for {
		var msg map[string]any
		require.NoError(t, ws.ReadJSON(&msg))
		if _, ok := msg["response_id"]; ok {
			return states, msg
		}
		state, _ := msg["state"].(string)
		states = append(states, state)
	}
}

// =============================================================================
// GenerateSectionStream Tests
// =============================================================================

func TestGenerateSectionStream_EmitsTransitionsThenResult(t *testing.T) {
	pipe := newScriptedPipeline(t, handlerCleanDraft)
	router := gin.New()
	router.GET("/v1/sections/generate/stream", GenerateSectionStream(pipe, nil, nil))

	ws := dialStream(t, router)
	require.NoError(t, ws.WriteJSON(generateBody("objeto")))

	states, final := readUntilFinal(t, ws)

	assert.Equal(t, "accepted", final["outcome"])
	assert.Equal(t, handlerCleanDraft, final["content"])
	assert.Contains(t, states, "drafting")
	assert.Contains(t, states, "sanitizing")
	assert.Contains(t, states, "accepted")
}

func TestGenerateSectionStream_RetryVisibleInEvents(t *testing.T) {
	tainted := handlerCleanDraft + " <script>alert(1)</script>"
	pipe := newScriptedPipeline(t, tainted, handlerCleanDraft)
	router := gin.New()
	router.GET("/v1/sections/generate/stream", GenerateSectionStream(pipe, nil, nil))

	ws := dialStream(t, router)
	require.NoError(t, ws.WriteJSON(generateBody("objeto")))

	states, final := readUntilFinal(t, ws)

	assert.Equal(t, "accepted", final["outcome"])
	assert.Equal(t, float64(2), final["attempts_used"])
	assert.Contains(t, states, "retrying")
}

func TestGenerateSectionStream_InvalidRequestSendsError(t *testing.T) {
	pipe := newScriptedPipeline(t)
	router := gin.New()
	router.GET("/v1/sections/generate/stream", GenerateSectionStream(pipe, nil, nil))

	ws := dialStream(t, router)
	require.NoError(t, ws.WriteJSON(map[string]any{"context": map[string]any{}}))

	var msg map[string]any
	require.NoError(t, ws.ReadJSON(&msg))
	assert.Contains(t, msg["error"], "SectionType")
}
