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
)

// =============================================================================
// LegislationRecord Tests
// =============================================================================

func TestLegislationRecord_Key(t *testing.T) {
	rec := &LegislationRecord{Type: "LEI", Number: "14.133", Year: 2021}

	if got := rec.Key(); got != "LEI|14.133|2021" {
		t.Errorf("Key() = %q, want %q", got, "LEI|14.133|2021")
	}
}

func TestLegislationRecord_Key_DistinctPerField(t *testing.T) {
	a := &LegislationRecord{Type: "LEI", Number: "8.666", Year: 1993}
	b := &LegislationRecord{Type: "DECRETO", Number: "8.666", Year: 1993}
	c := &LegislationRecord{Type: "LEI", Number: "8.666", Year: 1994}

	if a.Key() == b.Key() {
		t.Error("records differing by type should have distinct keys")
	}
	if a.Key() == c.Key() {
		t.Error("records differing by year should have distinct keys")
	}
}

// =============================================================================
// VerifyReferenceRequest Tests
// =============================================================================

func TestVerifyReferenceRequest_Validate_Success(t *testing.T) {
	req := &VerifyReferenceRequest{Type: "lei", Number: "14.133", Year: 2021}

	if err := req.Validate(); err != nil {
		t.Errorf("expected valid request, got error: %v", err)
	}
}

func TestVerifyReferenceRequest_Validate_MissingType(t *testing.T) {
	req := &VerifyReferenceRequest{Number: "14.133", Year: 2021}

	if err := req.Validate(); err == nil {
		t.Error("expected error for missing type, got nil")
	}
}

func TestVerifyReferenceRequest_Validate_MissingNumber(t *testing.T) {
	req := &VerifyReferenceRequest{Type: "lei", Year: 2021}

	if err := req.Validate(); err == nil {
		t.Error("expected error for missing number, got nil")
	}
}

func TestVerifyReferenceRequest_Validate_YearBeforeEmpire(t *testing.T) {
	req := &VerifyReferenceRequest{Type: "lei", Number: "1", Year: 1500}

	if err := req.Validate(); err == nil {
		t.Error("expected error for year before 1824, got nil")
	}
}

// =============================================================================
// SearchLegislationRequest Tests
// =============================================================================

func TestSearchLegislationRequest_Validate_Success(t *testing.T) {
	req := &SearchLegislationRequest{Text: "licitação de obras", Limit: 10, MinSimilarity: 0.7}

	if err := req.Validate(); err != nil {
		t.Errorf("expected valid request, got error: %v", err)
	}
}

func TestSearchLegislationRequest_Validate_MissingText(t *testing.T) {
	req := &SearchLegislationRequest{Limit: 10}

	if err := req.Validate(); err == nil {
		t.Error("expected error for missing text, got nil")
	}
}

func TestSearchLegislationRequest_Validate_LimitTooHigh(t *testing.T) {
	req := &SearchLegislationRequest{Text: "licitação", Limit: 51}

	if err := req.Validate(); err == nil {
		t.Error("expected error for limit > 50, got nil")
	}
}

func TestSearchLegislationRequest_Validate_SimilarityOutOfRange(t *testing.T) {
	req := &SearchLegislationRequest{Text: "licitação", MinSimilarity: 1.5}

	if err := req.Validate(); err == nil {
		t.Error("expected error for min_similarity > 1, got nil")
	}
}

func TestSearchLegislationRequest_EnsureDefaults(t *testing.T) {
	req := &SearchLegislationRequest{Text: "licitação"}

	req.EnsureDefaults()

	if req.Limit != 5 {
		t.Errorf("default Limit = %d, want 5", req.Limit)
	}
	if req.MinSimilarity != 0 {
		t.Errorf("MinSimilarity = %f, want 0 (no default floor)", req.MinSimilarity)
	}
}

func TestSearchLegislationRequest_EnsureDefaults_PreservesLimit(t *testing.T) {
	req := &SearchLegislationRequest{Text: "licitação", Limit: 20}

	req.EnsureDefaults()

	if req.Limit != 20 {
		t.Errorf("EnsureDefaults overwrote Limit: got %d, want 20", req.Limit)
	}
}

// =============================================================================
// Ingest Types Tests
// =============================================================================

func TestIngestRecord_Active(t *testing.T) {
	yes := true
	no := false

	tests := []struct {
		name string
		ptr  *bool
		want bool
	}{
		{"nil defaults to active", nil, true},
		{"explicit true", &yes, true},
		{"explicit false", &no, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &IngestRecord{IsActive: tt.ptr}
			if got := rec.Active(); got != tt.want {
				t.Errorf("Active() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIngestLegislationRequest_Validate_Success(t *testing.T) {
	req := &IngestLegislationRequest{
		Records: []IngestRecord{
			{
				Type:    "lei",
				Number:  "14.133",
				Year:    2021,
				Title:   "Lei de Licitações e Contratos Administrativos",
				Content: "Art. 1º Esta Lei estabelece normas gerais de licitação...",
			},
		},
	}

	if err := req.Validate(); err != nil {
		t.Errorf("expected valid request, got error: %v", err)
	}
}

func TestIngestLegislationRequest_Validate_EmptyRecords(t *testing.T) {
	req := &IngestLegislationRequest{Records: []IngestRecord{}}

	if err := req.Validate(); err == nil {
		t.Error("expected error for empty records, got nil")
	}
}

func TestIngestLegislationRequest_Validate_MissingContent(t *testing.T) {
	req := &IngestLegislationRequest{
		Records: []IngestRecord{
			{Type: "lei", Number: "14.133", Year: 2021},
		},
	}

	if err := req.Validate(); err == nil {
		t.Error("expected error for record without content, got nil")
	}
}

func TestIngestLegislationRequest_Validate_ContentTooLarge(t *testing.T) {
	req := &IngestLegislationRequest{
		Records: []IngestRecord{
			{
				Type:    "lei",
				Number:  "14.133",
				Year:    2021,
				Content: strings.Repeat("a", MaxIngestContentBytes+1),
			},
		},
	}

	if err := req.Validate(); err == nil {
		t.Errorf("expected error for content > %d bytes, got nil", MaxIngestContentBytes)
	}
}
