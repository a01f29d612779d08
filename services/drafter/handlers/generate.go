// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers provides HTTP request handlers for the drafter service.
//
// This file implements the section generation endpoint, the entry point of
// the drafting pipeline.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/LicitaAI/LicitaCore/services/drafter/analytics"
	"github.com/LicitaAI/LicitaCore/services/drafter/datatypes"
	"github.com/LicitaAI/LicitaCore/services/drafter/pipeline"
	"github.com/LicitaAI/LicitaCore/services/drafter/store"
)

var generateTracer = otel.Tracer("licita.drafter.handlers")

// persistTimeout bounds the background audit write so a wedged database
// cannot accumulate goroutines behind completed requests.
const persistTimeout = 10 * time.Second

// GenerateSection creates the gin handler for POST /v1/sections/generate.
//
// # Description
//
// Binds and validates the request, drives the pipeline to a terminal state,
// and responds with the fail-soft result: failed runs return 200 with the
// last attempt's content and findings, not an error status. The audit record
// and analytics point are written in the background after the response.
//
// auditStore and recorder may be nil; persistence is skipped for whichever
// is absent.
//
// # Inputs
//
//   - pipe: The generation pipeline. Must not be nil.
//   - auditStore: Run audit store, or nil to skip audit records.
//   - recorder: Analytics recorder, nil-safe (disabled recorder no-ops).
//
// # Outputs
//
//   - gin.HandlerFunc: HTTP handler function
func GenerateSection(pipe *pipeline.Pipeline, auditStore store.AuditStore, recorder *analytics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := generateTracer.Start(c.Request.Context(), "GenerateSection")
		defer span.End()

		var req datatypes.GenerateSectionRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the generate request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		req.EnsureDefaults()
		if err := req.Validate(); err != nil {
			span.RecordError(err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		span.SetAttributes(
			attribute.String("request.id", req.RequestID),
			attribute.String("section.type", req.SectionType),
			attribute.Bool("request.confidential", req.Confidential),
		)
		slog.Info("Received section generation request",
			"requestId", req.RequestID,
			"sectionType", req.SectionType,
			"confidential", req.Confidential,
		)

		result, err := pipe.Run(ctx, &req)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				slog.Info("Generation abandoned by client", "requestId", req.RequestID)
				return
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Pipeline run failed", "requestId", req.RequestID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":      "generation failed",
				"request_id": req.RequestID,
			})
			return
		}

		go persistRun(auditStore, recorder, &req, result)

		span.SetAttributes(
			attribute.String("run.outcome", string(result.Response.Outcome)),
			attribute.Int("run.attempts", result.Response.AttemptsUsed),
		)
		slog.Info("Section generation complete",
			"requestId", req.RequestID,
			"outcome", result.Response.Outcome,
			"attempts", result.Response.AttemptsUsed,
		)

		c.JSON(http.StatusOK, result.Response)
	}
}

// persistRun writes the audit record and analytics point for one completed
// run. Runs in the background: persistence failures are logged, never
// surfaced to the client whose draft already succeeded.
func persistRun(auditStore store.AuditStore, recorder *analytics.Recorder, req *datatypes.GenerateSectionRequest, result *pipeline.RunResult) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if auditStore != nil {
		if record := store.NewGenerationRecord(req, result); record != nil {
			if err := auditStore.SaveRun(ctx, record); err != nil {
				slog.Error("Failed to save generation audit record",
					"requestId", req.RequestID, "error", err)
			}
		}
	}

	if recorder.Enabled() && !req.Confidential {
		if err := recorder.RecordRun(ctx, result.Response); err != nil {
			slog.Warn("Failed to record analytics point",
				"requestId", req.RequestID, "error", err)
		}
	}
}
