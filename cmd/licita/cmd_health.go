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
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/LicitaAI/LicitaCore/pkg/ux"
)

func runHealthCommand(cmd *cobra.Command, args []string) {
	start := time.Now()
	baseURL := getDrafterBaseURL()

	url := baseURL + "/health"
	if deepHealth {
		url += "?deep=true"
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		if jsonOutput {
			os.Exit(OutputResult(OutputConfig{JSON: true}, "health", start, nil, false, err))
		}
		ux.Error(fmt.Sprintf("Drafter unreachable at %s: %v", baseURL, err))
		os.Exit(CLIExitError)
	}
	defer resp.Body.Close()

	// The probe answers 200 when healthy and 503 when a deep dependency
	// is degraded; both carry the same body shape.
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if jsonOutput {
			os.Exit(OutputResult(OutputConfig{JSON: true}, "health", start, nil, false, err))
		}
		ux.Error(fmt.Sprintf("Unexpected health response: %v", err))
		os.Exit(CLIExitError)
	}

	degraded := resp.StatusCode != http.StatusOK
	if jsonOutput {
		os.Exit(OutputResult(OutputConfig{JSON: true}, "health", start, body, degraded, nil))
	}

	renderHealth(baseURL, body, degraded)
	if degraded {
		os.Exit(CLIExitFindings)
	}
}

// renderHealth prints the probe body for humans.
func renderHealth(baseURL string, body map[string]interface{}, degraded bool) {
	status, _ := body["status"].(string)
	if degraded {
		ux.Warning(fmt.Sprintf("Drafter at %s is %s", baseURL, status))
	} else {
		ux.Success(fmt.Sprintf("Drafter at %s is healthy", baseURL))
	}

	if secure, ok := body["secure_memory"].(map[string]interface{}); ok {
		if available, _ := secure["available"].(bool); available {
			ux.Muted("  secure memory: available")
		} else {
			ux.Warning("  secure memory: unavailable (confidential drafts will be refused)")
		}
	}

	if models, ok := body["models"].(map[string]interface{}); ok {
		for name, state := range models {
			ux.Muted(fmt.Sprintf("  model %s: %v", name, state))
		}
	}

	if corpus, ok := body["corpus"].(map[string]interface{}); ok {
		if errMsg, isErr := corpus["error"].(string); isErr {
			ux.Error("  corpus: " + errMsg)
		} else if records, hasCount := corpus["records"].(float64); hasCount {
			ux.Muted(fmt.Sprintf("  corpus: %d legislation records", int64(records)))
		}
	}

	if analytics, ok := body["analytics"].(string); ok {
		if analytics == "ok" || analytics == "disabled" {
			ux.Muted("  analytics: " + analytics)
		} else {
			ux.Error("  analytics: " + analytics)
		}
	}
}
