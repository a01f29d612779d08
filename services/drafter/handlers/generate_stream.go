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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/LicitaAI/LicitaCore/services/drafter/analytics"
	"github.com/LicitaAI/LicitaCore/services/drafter/datatypes"
	"github.com/LicitaAI/LicitaCore/services/drafter/pipeline"
	"github.com/LicitaAI/LicitaCore/services/drafter/store"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	// 1MB read buffer: requests carry prior sections as context.
	ReadBufferSize: 1 * 1024 * 1024,
	// 64KB write buffer: events and responses are single sections at most.
	WriteBufferSize: 64 * 1024,
}

// streamEvent is one state transition pushed to the client while a run is
// in flight. The final message on the socket is the GenerateSectionResponse
// itself, distinguishable by its response_id field.
type streamEvent struct {
	State   string `json:"state"`
	Attempt int    `json:"attempt"`
	Detail  string `json:"detail,omitempty"`
}

func sendJSON(ws *websocket.Conn, v interface{}) error {
	err := ws.WriteJSON(v)
	if err != nil {
		slog.Warn("Failed to write WebSocket JSON", "error", err)
	}
	return err
}

// GenerateSectionStream creates the gin handler for
// GET /v1/sections/generate/stream.
//
// # Description
//
// Upgrades the connection to a websocket, reads one generation request, and
// emits one JSON event per pipeline state transition before sending the
// final response payload. The observer runs on the pipeline goroutine, so
// event writes and the final write are naturally serialized.
//
// The socket serves one run per connection. Clients that want another run
// reconnect; that keeps event streams and responses trivially correlated.
func GenerateSectionStream(pipe *pipeline.Pipeline, auditStore store.AuditStore, recorder *analytics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("Failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()
		slog.Info("Generation stream client connected")

		var req datatypes.GenerateSectionRequest
		if err := ws.ReadJSON(&req); err != nil {
			slog.Info("Generation stream client disconnected before request", "error", err.Error())
			return
		}

		req.EnsureDefaults()
		if err := req.Validate(); err != nil {
			_ = sendJSON(ws, gin.H{"error": err.Error()})
			return
		}

		slog.Info("Received streaming generation request",
			"requestId", req.RequestID,
			"sectionType", req.SectionType,
		)

		var dropped bool
		observer := func(state pipeline.State, attempt int, detail string) {
			if dropped {
				return
			}
			if err := sendJSON(ws, streamEvent{
				State:   string(state),
				Attempt: attempt,
				Detail:  detail,
			}); err != nil {
				// The run keeps going for the audit trail; only the
				// event stream stops.
				dropped = true
			}
		}

		result, err := pipe.RunWithObserver(c.Request.Context(), &req, observer)
		if err != nil {
			slog.Error("Streaming pipeline run failed", "requestId", req.RequestID, "error", err)
			_ = sendJSON(ws, gin.H{"error": "generation failed", "request_id": req.RequestID})
			return
		}

		go persistRun(auditStore, recorder, &req, result)

		slog.Info("Streaming generation complete",
			"requestId", req.RequestID,
			"outcome", result.Response.Outcome,
			"attempts", result.Response.AttemptsUsed,
		)

		if dropped {
			return
		}
		_ = sendJSON(ws, result.Response)
	}
}
