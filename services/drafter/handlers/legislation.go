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

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/LicitaAI/LicitaCore/pkg/validation"
	"github.com/LicitaAI/LicitaCore/services/drafter/datatypes"
	"github.com/LicitaAI/LicitaCore/services/drafter/verifier"
)

var legislationTracer = otel.Tracer("licita.drafter.handlers")

// VerifyLegislation creates the gin handler for POST /v1/legislation/verify.
//
// Normalizes the claimed reference, checks it against the corpus, and
// returns the verification result with a near-match suggestion when the
// exact norm is absent. Malformed references are a client error; a corpus
// or embedding failure is a server error.
func VerifyLegislation(v *verifier.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := legislationTracer.Start(c.Request.Context(), "VerifyLegislation")
		defer span.End()

		var req datatypes.VerifyReferenceRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ref, err := validation.ValidateReference(req.Type, req.Number, req.Year)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		span.SetAttributes(attribute.String("reference", ref.Canonical()))

		result, err := v.VerifyReference(ctx, ref)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Reference verification failed", "reference", ref.Canonical(), "error", err)
			c.JSON(providerStatus(err), gin.H{"error": "failed to verify reference"})
			return
		}

		span.SetAttributes(attribute.Bool("reference.exists", result.Exists))

		c.JSON(http.StatusOK, datatypes.VerifyReferenceResponse{
			Reference: ref.Canonical(),
			Result:    result,
		})
	}
}

// SearchLegislation creates the gin handler for POST /v1/legislation/search.
//
// Embeds the query text and returns corpus records above the requested
// similarity floor, best match first.
func SearchLegislation(v *verifier.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := legislationTracer.Start(c.Request.Context(), "SearchLegislation")
		defer span.End()

		var req datatypes.SearchLegislationRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		req.EnsureDefaults()
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		span.SetAttributes(attribute.Int("search.limit", req.Limit))

		matches, err := v.FindSimilar(ctx, req.Text, req.Limit, req.MinSimilarity)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Legislation search failed", "error", err)
			c.JSON(providerStatus(err), gin.H{"error": "failed to search legislation"})
			return
		}

		span.SetAttributes(attribute.Int("search.matches", len(matches)))

		c.JSON(http.StatusOK, datatypes.SearchLegislationResponse{
			Matches: matches,
			Count:   len(matches),
		})
	}
}

// providerStatus maps an embedding provider failure to 502 so callers can
// tell an unreachable model apart from a drafter bug.
func providerStatus(err error) int {
	var provErr *verifier.EmbeddingProviderError
	if errors.As(err, &provErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
