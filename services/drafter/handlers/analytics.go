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
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/LicitaAI/LicitaCore/services/drafter/analytics"
)

const defaultStatsWindowHours = 24

// GenerationStats creates the gin handler for GET /v1/analytics/generation.
//
// # Description
//
// Aggregates generation outcomes over a trailing window (default 24h,
// override with ?window_hours=N, capped at 30 days). Returns 503 when the
// deployment runs without an analytics backend so dashboards can tell
// "disabled" apart from "broken".
func GenerationStats(recorder *analytics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		windowHours := defaultStatsWindowHours
		if raw := c.Query("window_hours"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 || parsed > 24*30 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "window_hours must be an integer between 1 and 720"})
				return
			}
			windowHours = parsed
		}

		stats, err := recorder.Stats(c.Request.Context(), windowHours)
		if err != nil {
			if errors.Is(err, analytics.ErrDisabled) {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analytics backend not configured"})
				return
			}
			slog.Error("Failed to query generation stats", "error", err, "window_hours", windowHours)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query generation stats"})
			return
		}

		c.JSON(http.StatusOK, stats)
	}
}
