// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/LicitaAI/LicitaCore/pkg/ux"
)

func runSchemaList(cmd *cobra.Command, args []string) {
	start := time.Now()
	baseURL := getDrafterBaseURL()
	client := &http.Client{Timeout: 30 * time.Second}

	var result SchemaListResult
	err := getJSON(context.Background(), client, baseURL+"/v1/schemas", &result)

	if jsonOutput {
		os.Exit(OutputResult(OutputConfig{JSON: true}, "schema list", start, result, false, err))
	}
	if err != nil {
		log.Fatalf("Failed to list schemas: %v", err)
	}

	ux.Title(fmt.Sprintf("Section Schemas (%d)", result.Count))
	for _, s := range result.Schemas {
		fmt.Printf("  %-26s %5d-%d chars, %d retries\n",
			s.Type, s.MinLength, s.MaxLength, s.MaxRetries)
		if s.Description != "" {
			ux.Muted("      " + s.Description)
		}
	}
}

func runSchemaShow(cmd *cobra.Command, args []string) {
	start := time.Now()
	sectionType := args[0]
	baseURL := getDrafterBaseURL()
	client := &http.Client{Timeout: 30 * time.Second}

	var schema SchemaInfo
	err := getJSON(context.Background(), client, baseURL+"/v1/schemas/"+sectionType, &schema)

	if jsonOutput {
		os.Exit(OutputResult(OutputConfig{JSON: true}, "schema show", start, schema, false, err))
	}
	if err != nil {
		log.Fatalf("Failed to fetch schema %q: %v", sectionType, err)
	}

	title := schema.Type
	if schema.Version != "" {
		title = fmt.Sprintf("%s (v%s)", schema.Type, schema.Version)
	}
	ux.Title(title)
	if schema.Description != "" {
		fmt.Println(schema.Description)
		fmt.Println()
	}
	fmt.Printf("  Length:     %d-%d characters\n", schema.MinLength, schema.MaxLength)
	fmt.Printf("  Retries:    up to %d redrafts\n", schema.MaxRetries)
	if schema.ExpectStructured {
		fmt.Println("  Structure:  itemized (lists or numbered items expected)")
	}
	if len(schema.ForbiddenPatterns) > 0 {
		fmt.Printf("  Forbidden:  %d patterns\n", len(schema.ForbiddenPatterns))
		for _, p := range schema.ForbiddenPatterns {
			ux.Muted("    - " + p)
		}
	}
}
