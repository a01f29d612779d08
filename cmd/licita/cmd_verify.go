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
	"github.com/LicitaAI/LicitaCore/pkg/validation"
	"github.com/LicitaAI/LicitaCore/services/drafter/datatypes"
)

func runVerifyCommand(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		log.Fatalf("Usage: licita verify \"Lei 14.133/2021\" [reference ...]")
	}

	start := time.Now()
	baseURL := getDrafterBaseURL()
	client := &http.Client{Timeout: 30 * time.Second}
	ctx := context.Background()

	var result VerifyRunResult
	for _, raw := range args {
		report := verifyOne(ctx, client, baseURL, raw)
		result.Reports = append(result.Reports, report)
		result.Checked++
		if !report.Exists {
			result.Missing++
		}
	}

	hasFindings := result.Missing > 0
	if jsonOutput {
		os.Exit(OutputResult(OutputConfig{JSON: true}, "verify", start, result, hasFindings, nil))
	}

	for _, report := range result.Reports {
		renderVerifyReport(report)
	}
	if hasFindings {
		os.Exit(CLIExitFindings)
	}
}

// verifyOne parses one raw reference locally and checks it against the
// drafter's corpus. Parse failures and transport failures are reported
// in the Error field rather than aborting the batch.
func verifyOne(ctx context.Context, client *http.Client, baseURL, raw string) VerifyReport {
	report := VerifyReport{Input: raw}

	ref, err := validation.ParseReference(raw)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	report.Reference = ref.String()

	req := datatypes.VerifyReferenceRequest{
		Type:   string(ref.Type),
		Number: ref.Number,
		Year:   ref.Year,
	}
	var resp datatypes.VerifyReferenceResponse
	if err := postJSON(ctx, client, baseURL+"/v1/legislation/verify", req, &resp); err != nil {
		report.Error = err.Error()
		return report
	}

	report.Exists = resp.Result.Exists
	report.Confidence = resp.Result.Confidence
	report.Suggestion = resp.Result.Suggestion
	if resp.Result.MatchedRecord != nil {
		report.Title = resp.Result.MatchedRecord.Title
		active := resp.Result.MatchedRecord.IsActive
		report.Active = &active
	}
	return report
}

// renderVerifyReport prints one verification outcome.
func renderVerifyReport(report VerifyReport) {
	switch {
	case report.Error != "":
		ux.Error(fmt.Sprintf("%s: %s", report.Input, report.Error))
	case report.Exists:
		line := fmt.Sprintf("%s (%.0f%% confidence)", report.Reference, report.Confidence*100)
		if report.Title != "" {
			line += " - " + report.Title
		}
		ux.Success(line)
		if report.Active != nil && !*report.Active {
			ux.Warning(fmt.Sprintf("%s is revoked or no longer in force", report.Reference))
		}
	case report.Suggestion != "":
		ux.Warning(fmt.Sprintf("%s not found. %s", report.Reference, report.Suggestion))
	default:
		ux.Error(fmt.Sprintf("%s not found in the legislation corpus", report.Reference))
	}
}
