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

	"github.com/LicitaAI/LicitaCore/services/drafter/schema"
)

// ListSchemas creates the gin handler for GET /v1/schemas. It returns every
// registered section schema so document editors can discover which section
// types the drafter knows how to generate and validate.
func ListSchemas(registry *schema.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		schemas := registry.All()
		c.JSON(http.StatusOK, gin.H{
			"schemas": schemas,
			"count":   len(schemas),
		})
	}
}

// GetSchema creates the gin handler for GET /v1/schemas/:type. The path
// parameter is normalized the same way generation requests are, so
// "Justificativa", "justificativa " and "JUSTIFICATIVA" all resolve to the
// same schema.
func GetSchema(registry *schema.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		sectionType := schema.NormalizeType(c.Param("type"))
		if !registry.Has(sectionType) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown section type: " + sectionType})
			return
		}
		c.JSON(http.StatusOK, registry.Get(sectionType))
	}
}
