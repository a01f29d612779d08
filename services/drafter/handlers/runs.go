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

	"github.com/LicitaAI/LicitaCore/services/drafter/schema"
	"github.com/LicitaAI/LicitaCore/services/drafter/store"
)

// ListRuns creates the gin handler for GET /v1/runs. Supports filtering by
// ?section_type= and ?outcome=, newest first, with ?limit= capped by the
// store's default.
func ListRuns(auditStore store.AuditStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auditStore == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit store not configured"})
			return
		}
		filter := store.ListFilter{
			SectionType: schema.NormalizeType(c.Query("section_type")),
			Outcome:     c.Query("outcome"),
		}
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			filter.Limit = parsed
		}

		records, err := auditStore.ListRuns(c.Request.Context(), filter)
		if err != nil {
			slog.Error("Failed to list generation runs", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"runs":  records,
			"count": len(records),
		})
	}
}

// GetRun creates the gin handler for GET /v1/runs/:responseId, serving one
// audit record by the response ID returned from generation.
func GetRun(auditStore store.AuditStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auditStore == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit store not configured"})
			return
		}
		responseID := c.Param("responseId")
		record, err := auditStore.GetRun(c.Request.Context(), responseID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "no run with response id " + responseID})
				return
			}
			slog.Error("Failed to load generation run", "error", err, "response_id", responseID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load run"})
			return
		}
		c.JSON(http.StatusOK, record)
	}
}
