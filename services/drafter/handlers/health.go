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
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LicitaAI/LicitaCore/services/drafter/analytics"
	"github.com/LicitaAI/LicitaCore/services/drafter/pipeline"
	"github.com/LicitaAI/LicitaCore/services/drafter/verifier"
	"github.com/LicitaAI/LicitaCore/services/llm"
)

// HealthCheck creates the gin handler for GET /health.
//
// The default probe is local-only so liveness checks stay cheap: process
// status, secure-memory state, and which models the warmer holds resident.
// Passing ?deep=true additionally round-trips the legislation store and the
// analytics backend, reporting "degraded" with a 503 when either fails.
func HealthCheck(warmer *llm.ModelWarmer, legisStore verifier.LegislationStore, recorder *analytics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		mlockOK, mlockLimitKB := pipeline.SecureMemoryAvailable()
		body := gin.H{
			"status": "ok",
			"secure_memory": gin.H{
				"available":      mlockOK,
				"mlock_limit_kb": mlockLimitKB,
			},
		}
		if warmer != nil {
			body["models"] = warmer.Status()
		}

		if c.Query("deep") != "true" {
			c.JSON(http.StatusOK, body)
			return
		}

		status := http.StatusOK
		ctx := c.Request.Context()

		if legisStore != nil {
			if n, err := legisStore.Count(ctx); err != nil {
				body["status"] = "degraded"
				body["corpus"] = gin.H{"status": "error", "error": err.Error()}
				status = http.StatusServiceUnavailable
			} else {
				body["corpus"] = gin.H{"status": "ok", "records": n}
			}
		}

		// A deployment without analytics is healthy; only a configured
		// backend that stops answering degrades the probe.
		switch err := recorder.Ping(ctx); {
		case err == nil:
			body["analytics"] = "ok"
		case !recorder.Enabled():
			body["analytics"] = "disabled"
		default:
			body["status"] = "degraded"
			body["analytics"] = "error: " + err.Error()
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, body)
	}
}
