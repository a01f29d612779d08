// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LicitaAI/LicitaCore/pkg/extensions"
	"github.com/LicitaAI/LicitaCore/services/drafter/analytics"
	"github.com/LicitaAI/LicitaCore/services/drafter/handlers"
	"github.com/LicitaAI/LicitaCore/services/drafter/middleware"
	"github.com/LicitaAI/LicitaCore/services/drafter/pipeline"
	"github.com/LicitaAI/LicitaCore/services/drafter/schema"
	"github.com/LicitaAI/LicitaCore/services/drafter/store"
	"github.com/LicitaAI/LicitaCore/services/drafter/verifier"
	"github.com/LicitaAI/LicitaCore/services/lgpd"
	"github.com/LicitaAI/LicitaCore/services/llm"
)

// Deps carries everything the route table wires into handlers. Optional
// fields (AuditStore, Recorder, Warmer, Scanner) may be nil; the handlers
// degrade rather than the router.
type Deps struct {
	Pipeline    *pipeline.Pipeline
	Registry    *schema.Registry
	Verifier    *verifier.Verifier
	Legislation verifier.LegislationStore
	Embedder    llm.EmbeddingProvider
	Scanner     *lgpd.Engine
	AuditStore  store.AuditStore
	Recorder    *analytics.Recorder
	Warmer      *llm.ModelWarmer
	Options     extensions.ServiceOptions
}

func SetupRoutes(router *gin.Engine, deps Deps) {
	router.GET("/health", handlers.HealthCheck(deps.Warmer, deps.Legislation, deps.Recorder))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(deps.Options.AuthProvider))
	{
		sections := v1.Group("/sections")
		{
			sections.POST("/generate", handlers.GenerateSection(deps.Pipeline, deps.AuditStore, deps.Recorder))
			sections.GET("/generate/stream", handlers.GenerateSectionStream(deps.Pipeline, deps.AuditStore, deps.Recorder))
		}
		legislation := v1.Group("/legislation")
		{
			legislation.POST("/verify", handlers.VerifyLegislation(deps.Verifier))
			legislation.POST("/search", handlers.SearchLegislation(deps.Verifier))
			legislation.POST("/ingest", handlers.IngestLegislation(deps.Legislation, deps.Embedder, deps.Scanner))
		}
		schemas := v1.Group("/schemas")
		{
			schemas.GET("", handlers.ListSchemas(deps.Registry))
			schemas.GET("/:type", handlers.GetSchema(deps.Registry))
		}
		runs := v1.Group("/runs")
		{
			runs.GET("", handlers.ListRuns(deps.AuditStore))
			runs.GET("/:responseId", handlers.GetRun(deps.AuditStore))
		}
		v1.GET("/analytics/generation", handlers.GenerationStats(deps.Recorder))
	}
}
