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
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

// TestSchemaListResultJSON tests that SchemaListResult serializes correctly.
func TestSchemaListResultJSON(t *testing.T) {
	result := SchemaListResult{
		Schemas: []SchemaInfo{
			{
				Type:        "objeto",
				Version:     "1.0",
				Description: "Object of the procurement",
				MaxLength:   2000,
				MinLength:   100,
				MaxRetries:  2,
			},
			{
				Type:             "especificacoes_tecnicas",
				MaxLength:        8000,
				MinLength:        300,
				ExpectStructured: true,
				MaxRetries:       3,
			},
		},
		Count: 2,
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Failed to marshal SchemaListResult: %v", err)
	}

	var decoded SchemaListResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal SchemaListResult: %v", err)
	}

	if decoded.Count != result.Count {
		t.Errorf("Count = %d, want %d", decoded.Count, result.Count)
	}
	if len(decoded.Schemas) != len(result.Schemas) {
		t.Errorf("Schemas len = %d, want %d", len(decoded.Schemas), len(result.Schemas))
	}
	if decoded.Schemas[0].Type != result.Schemas[0].Type {
		t.Errorf("Schemas[0].Type = %s, want %s", decoded.Schemas[0].Type, result.Schemas[0].Type)
	}
	if decoded.Schemas[1].ExpectStructured != result.Schemas[1].ExpectStructured {
		t.Errorf("Schemas[1].ExpectStructured = %v, want %v", decoded.Schemas[1].ExpectStructured, result.Schemas[1].ExpectStructured)
	}
}

// TestVerifyRunResultJSON tests that VerifyRunResult serializes correctly.
func TestVerifyRunResultJSON(t *testing.T) {
	active := true
	result := VerifyRunResult{
		Reports: []VerifyReport{
			{
				Input:      "lei 14.133/2021",
				Reference:  "Lei 14.133/2021",
				Exists:     true,
				Confidence: 0.97,
				Title:      "Lei de Licitações e Contratos Administrativos",
				Active:     &active,
			},
			{
				Input:      "lei 8.667/1993",
				Reference:  "Lei 8.667/1993",
				Exists:     false,
				Suggestion: "Did you mean Lei 8.666/1993 (83% match)?",
			},
		},
		Checked: 2,
		Missing: 1,
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Failed to marshal VerifyRunResult: %v", err)
	}

	var decoded VerifyRunResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal VerifyRunResult: %v", err)
	}

	if decoded.Checked != result.Checked {
		t.Errorf("Checked = %d, want %d", decoded.Checked, result.Checked)
	}
	if decoded.Missing != result.Missing {
		t.Errorf("Missing = %d, want %d", decoded.Missing, result.Missing)
	}
	if len(decoded.Reports) != len(result.Reports) {
		t.Fatalf("Reports len = %d, want %d", len(decoded.Reports), len(result.Reports))
	}
	if decoded.Reports[0].Reference != result.Reports[0].Reference {
		t.Errorf("Reports[0].Reference = %s, want %s", decoded.Reports[0].Reference, result.Reports[0].Reference)
	}
	if decoded.Reports[0].Active == nil || !*decoded.Reports[0].Active {
		t.Error("Reports[0].Active should be true")
	}
	if decoded.Reports[1].Suggestion != result.Reports[1].Suggestion {
		t.Errorf("Reports[1].Suggestion = %s, want %s", decoded.Reports[1].Suggestion, result.Reports[1].Suggestion)
	}
}

// TestVerifyReportJSON_OmitsEmpty tests that optional fields are omitted.
func TestVerifyReportJSON_OmitsEmpty(t *testing.T) {
	report := VerifyReport{
		Input:  "portaria 99/2020",
		Exists: false,
	}

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("Failed to marshal VerifyReport: %v", err)
	}

	if bytes.Contains(data, []byte("suggestion")) {
		t.Errorf("Empty suggestion should be omitted, got: %s", data)
	}
	if bytes.Contains(data, []byte("active")) {
		t.Errorf("Nil active should be omitted, got: %s", data)
	}
	if bytes.Contains(data, []byte(`"error"`)) {
		t.Errorf("Empty error should be omitted, got: %s", data)
	}
}

// TestCorpusLoadResultJSON tests that CorpusLoadResult serializes correctly.
func TestCorpusLoadResultJSON(t *testing.T) {
	result := CorpusLoadResult{
		Records:  150,
		Ingested: 148,
		Chunks:   512,
		Errors:   []string{"records 101-150: 2 rejected"},
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Failed to marshal CorpusLoadResult: %v", err)
	}

	var decoded CorpusLoadResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal CorpusLoadResult: %v", err)
	}

	if decoded.Ingested != result.Ingested {
		t.Errorf("Ingested = %d, want %d", decoded.Ingested, result.Ingested)
	}
	if decoded.Chunks != result.Chunks {
		t.Errorf("Chunks = %d, want %d", decoded.Chunks, result.Chunks)
	}
	if len(decoded.Errors) != len(result.Errors) {
		t.Errorf("Errors len = %d, want %d", len(decoded.Errors), len(result.Errors))
	}
}

// TestCommandResultJSON tests that CommandResult serializes correctly.
func TestCommandResultJSON(t *testing.T) {
	result := CommandResult{
		APIVersion: "1.0",
		Command:    "verify",
		Timestamp:  time.Now(),
		DurationMs: 100,
		Success:    true,
		Data:       map[string]string{"key": "value"},
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Failed to marshal CommandResult: %v", err)
	}

	var decoded CommandResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal CommandResult: %v", err)
	}

	if decoded.APIVersion != result.APIVersion {
		t.Errorf("APIVersion = %s, want %s", decoded.APIVersion, result.APIVersion)
	}
	if decoded.Success != result.Success {
		t.Errorf("Success = %v, want %v", decoded.Success, result.Success)
	}
}

// TestOutputResult_Success tests OutputResult with no error and no findings.
func TestOutputResult_Success(t *testing.T) {
	cfg := OutputConfig{JSON: false, Quiet: true}
	start := time.Now()
	data := map[string]string{"test": "value"}

	exitCode := OutputResult(cfg, "test", start, data, false, nil)

	if exitCode != CLIExitSuccess {
		t.Errorf("Exit code = %d, want %d", exitCode, CLIExitSuccess)
	}
}

// TestOutputResult_Findings tests OutputResult with findings.
func TestOutputResult_Findings(t *testing.T) {
	cfg := OutputConfig{JSON: false, Quiet: true}
	start := time.Now()
	data := map[string]string{"test": "value"}

	exitCode := OutputResult(cfg, "test", start, data, true, nil)

	if exitCode != CLIExitFindings {
		t.Errorf("Exit code = %d, want %d", exitCode, CLIExitFindings)
	}
}

// TestOutputResult_Error tests OutputResult with error.
func TestOutputResult_Error(t *testing.T) {
	cfg := OutputConfig{JSON: false, Quiet: true}
	start := time.Now()

	exitCode := OutputResult(cfg, "test", start, nil, false, bytes.ErrTooLarge)

	if exitCode != CLIExitError {
		t.Errorf("Exit code = %d, want %d", exitCode, CLIExitError)
	}
}

// TestExitCodeConstants tests exit code constant values.
func TestExitCodeConstants(t *testing.T) {
	if CLIExitSuccess != 0 {
		t.Errorf("CLIExitSuccess = %d, want 0", CLIExitSuccess)
	}
	if CLIExitFindings != 1 {
		t.Errorf("CLIExitFindings = %d, want 1", CLIExitFindings)
	}
	if CLIExitError != 2 {
		t.Errorf("CLIExitError = %d, want 2", CLIExitError)
	}
}
