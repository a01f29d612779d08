// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"strings"
	"testing"
	"time"
)

// =============================================================================
// GenerateSectionRequest Validation Tests
// =============================================================================

func validRequest() *GenerateSectionRequest {
	return &GenerateSectionRequest{
		RequestID:   "550e8400-e29b-41d4-a716-446655440000",
		Timestamp:   time.Now().UnixMilli(),
		SectionType: "justificativa",
		Context: DocumentContext{
			DocumentTitle: "ETP 042/2026",
			DocumentType:  "etp",
			Organization:  "Prefeitura de Teresina",
			Objective:     "Contratação de serviços de limpeza predial",
		},
	}
}

func TestGenerateSectionRequest_Validate_Success(t *testing.T) {
	req := validRequest()

	if err := req.Validate(); err != nil {
		t.Errorf("expected valid request, got error: %v", err)
	}
}

func TestGenerateSectionRequest_Validate_MissingRequestID(t *testing.T) {
	req := validRequest()
	req.RequestID = ""

	if err := req.Validate(); err == nil {
		t.Error("expected error for missing request_id, got nil")
	}
}

func TestGenerateSectionRequest_Validate_InvalidRequestID(t *testing.T) {
	req := validRequest()
	req.RequestID = "not-a-uuid"

	if err := req.Validate(); err == nil {
		t.Error("expected error for invalid request_id, got nil")
	}
}

func TestGenerateSectionRequest_Validate_MissingTimestamp(t *testing.T) {
	req := validRequest()
	req.Timestamp = 0

	if err := req.Validate(); err == nil {
		t.Error("expected error for missing timestamp, got nil")
	}
}

func TestGenerateSectionRequest_Validate_MissingSectionType(t *testing.T) {
	req := validRequest()
	req.SectionType = ""

	if err := req.Validate(); err == nil {
		t.Error("expected error for missing section_type, got nil")
	}
}

func TestGenerateSectionRequest_Validate_SectionTypeTooLong(t *testing.T) {
	req := validRequest()
	req.SectionType = strings.Repeat("x", 101)

	if err := req.Validate(); err == nil {
		t.Error("expected error for over-long section_type, got nil")
	}
}

func TestGenerateSectionRequest_Validate_InstructionsTooLarge(t *testing.T) {
	req := validRequest()
	req.UserInstructions = strings.Repeat("a", MaxFieldBytes+1)

	if err := req.Validate(); err == nil {
		t.Errorf("expected error for instructions > %d bytes, got nil", MaxFieldBytes)
	}
}

func TestGenerateSectionRequest_Validate_InstructionsExactlyMax(t *testing.T) {
	req := validRequest()
	req.UserInstructions = strings.Repeat("a", MaxFieldBytes)

	if err := req.Validate(); err != nil {
		t.Errorf("expected instructions of exactly %d bytes to pass, got: %v", MaxFieldBytes, err)
	}
}

func TestGenerateSectionRequest_Validate_InvalidDocumentType(t *testing.T) {
	req := validRequest()
	req.Context.DocumentType = "contrato"

	if err := req.Validate(); err == nil {
		t.Error("expected error for unknown document_type, got nil")
	}
}

func TestGenerateSectionRequest_Validate_EmptyDocumentTypeAllowed(t *testing.T) {
	req := validRequest()
	req.Context.DocumentType = ""

	if err := req.Validate(); err != nil {
		t.Errorf("expected empty document_type to pass, got: %v", err)
	}
}

func TestGenerateSectionRequest_Validate_TooManyPriorSections(t *testing.T) {
	req := validRequest()
	sections := make([]PriorSection, MaxPriorSections+1)
	for i := range sections {
		sections[i] = PriorSection{SectionType: "objeto", Content: "texto"}
	}
	req.Context.PriorSections = sections

	if err := req.Validate(); err == nil {
		t.Errorf("expected error for %d prior sections (max is %d), got nil",
			len(sections), MaxPriorSections)
	}
}

func TestGenerateSectionRequest_Validate_PriorSectionMissingType(t *testing.T) {
	req := validRequest()
	req.Context.PriorSections = []PriorSection{{Content: "texto sem tipo"}}

	if err := req.Validate(); err == nil {
		t.Error("expected error for prior section without section_type, got nil")
	}
}

// =============================================================================
// EnsureDefaults Tests
// =============================================================================

func TestGenerateSectionRequest_EnsureDefaults_PopulatesEmpty(t *testing.T) {
	req := &GenerateSectionRequest{SectionType: "objeto"}

	req.EnsureDefaults()

	if req.RequestID == "" {
		t.Error("EnsureDefaults should populate RequestID")
	}
	if req.Timestamp == 0 {
		t.Error("EnsureDefaults should populate Timestamp")
	}
	if err := req.Validate(); err != nil {
		t.Errorf("request should validate after EnsureDefaults, got: %v", err)
	}
}

func TestGenerateSectionRequest_EnsureDefaults_PreservesExisting(t *testing.T) {
	req := validRequest()
	originalID := req.RequestID
	originalTS := req.Timestamp

	req.EnsureDefaults()

	if req.RequestID != originalID {
		t.Errorf("EnsureDefaults overwrote RequestID: %q -> %q", originalID, req.RequestID)
	}
	if req.Timestamp != originalTS {
		t.Errorf("EnsureDefaults overwrote Timestamp: %d -> %d", originalTS, req.Timestamp)
	}
}

// =============================================================================
// GenerateSectionResponse Tests
// =============================================================================

func TestNewGenerateSectionResponse(t *testing.T) {
	before := time.Now().UnixMilli()
	resp := NewGenerateSectionResponse("550e8400-e29b-41d4-a716-446655440000", "objeto")
	after := time.Now().UnixMilli()

	if resp.ResponseID == "" {
		t.Error("ResponseID should be generated")
	}
	if resp.RequestID != "550e8400-e29b-41d4-a716-446655440000" {
		t.Errorf("RequestID = %q, want echo of request", resp.RequestID)
	}
	if resp.SectionType != "objeto" {
		t.Errorf("SectionType = %q, want %q", resp.SectionType, "objeto")
	}
	if resp.Timestamp < before || resp.Timestamp > after {
		t.Errorf("Timestamp %d outside [%d, %d]", resp.Timestamp, before, after)
	}
}

func TestNewGenerateSectionResponse_UniqueResponseIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		resp := NewGenerateSectionResponse("req", "objeto")
		if seen[resp.ResponseID] {
			t.Fatalf("duplicate ResponseID generated: %s", resp.ResponseID)
		}
		seen[resp.ResponseID] = true
	}
}

// =============================================================================
// generateUUID Tests
// =============================================================================

func TestGenerateUUID_Format(t *testing.T) {
	id := generateUUID()

	if len(id) != 36 {
		t.Errorf("generateUUID() length = %d, want 36", len(id))
	}
	if strings.Count(id, "-") != 4 {
		t.Errorf("generateUUID() = %q, want 4 hyphens", id)
	}
}

func TestGenerateUUID_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := generateUUID()
		if seen[id] {
			t.Fatalf("duplicate UUID generated: %s", id)
		}
		seen[id] = true
	}
}
