// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides data structures for the drafter service.
//
// This file contains request and response types for section generation
// endpoints. For legislation verification types, see verify.go; for
// finding and attempt types, see findings.go.
package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// =============================================================================
// Size Limits
// =============================================================================

const (
	// MaxFieldBytes is the maximum size of a single free-text request field
	// (objective, instructions, a prior section's content). Byte length, not
	// rune count, to bound memory use on malicious payloads.
	MaxFieldBytes = 32 * 1024 // 32KB

	// MaxPriorSections is the maximum number of prior sections a request may
	// carry as context. An ETP has on the order of 15 sections; 40 leaves
	// room for annex material without allowing unbounded history.
	MaxPriorSections = 40
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// draftValidate is the validator instance for drafter datatypes.
// Initialized in init() with custom validators.
var draftValidate *validator.Validate

func init() {
	draftValidate = validator.New()

	_ = draftValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes validates that a string field does not exceed MaxFieldBytes.
func validateMaxBytes(fl validator.FieldLevel) bool {
	content := fl.Field().String()
	return len(content) <= MaxFieldBytes
}

// generateUUID returns a new UUID v4 string for request/response identifiers.
func generateUUID() string {
	return uuid.New().String()
}

// =============================================================================
// Document Context Types
// =============================================================================

// PriorSection is one already-written section of the document under drafting,
// supplied as context so new sections stay consistent with it.
type PriorSection struct {
	SectionType string `json:"section_type" validate:"required,min=1,max=100"`
	Content     string `json:"content" validate:"maxbytes"`
}

// DocumentContext carries everything the pipeline knows about the document a
// section is being drafted for.
//
// # Description
//
// The context is supplied by the caller and threaded through prompt building,
// the scoring agents, and the anti-hallucination checks. Agents treat it as
// the set of ground-truth facts: numeric claims in generated text that cannot
// be traced back to a context field are flagged.
//
// # Fields
//
//   - DocumentTitle: Title of the document (e.g. "ETP 042/2026 - Limpeza Predial").
//   - DocumentType: Document kind: "etp", "tr" (termo de referência), "edital".
//   - Organization: The contracting organ's name.
//   - Objective: The procurement objective (objeto) in the requester's words.
//   - PriorSections: Sections already drafted for this document, in document order.
//   - FocusField: Optional hint naming the aspect this section should emphasize.
type DocumentContext struct {
	DocumentTitle string         `json:"document_title" validate:"maxbytes"`
	DocumentType  string         `json:"document_type" validate:"omitempty,oneof=etp tr edital"`
	Organization  string         `json:"organization" validate:"maxbytes"`
	Objective     string         `json:"objective" validate:"maxbytes"`
	PriorSections []PriorSection `json:"prior_sections,omitempty" validate:"max=40,dive"`
	FocusField    string         `json:"focus_field,omitempty" validate:"maxbytes"`
}

// =============================================================================
// Generate Section Request
// =============================================================================

// GenerateSectionRequest is the request body for POST /v1/sections/generate.
//
// # Description
//
// One request asks for one section of one document. The pipeline resolves the
// section type against the schema registry, drafts with the configured LLM,
// validates and scores the draft, and retries within the schema's budget.
// Every request includes a unique ID and timestamp for audit trails.
//
// # Fields
//
//   - RequestID: Required. Unique identifier for this request (UUID v4).
//     Used for tracing, audit logging, and run correlation. Generated by
//     EnsureDefaults when the client omits it.
//   - Timestamp: Required. Unix timestamp in milliseconds (UTC) when the
//     request was created. Generated by EnsureDefaults when zero.
//   - SectionType: Required. The section to draft ("justificativa", "objeto",
//     ...). Unknown types fall back to the default schema rather than
//     failing, so typos degrade instead of erroring.
//   - Context: The document context. May be sparse; agents degrade to
//     weaker checks when fields are missing.
//   - UserInstructions: Optional free-text constraints from the requester,
//     appended to the drafting prompt.
//   - Confidential: When true, draft text is held in locked memory during
//     the run and never written to logs or analytics (pre-publication
//     budget secrecy under Lei 14.133/2021 art. 24).
//
// # Validation
//
// Call EnsureDefaults before Validate. Uses go-playground/validator:
//   - RequestID: required, must be valid UUID v4
//   - Timestamp: required, must be > 0
//   - SectionType: required, 1-100 characters
//   - Free-text fields: max 32KB each per validateMaxBytes
//
// # Examples
//
//	req := GenerateSectionRequest{
//	    SectionType: "justificativa",
//	    Context: DocumentContext{
//	        Organization: "Prefeitura de Teresina",
//	        Objective:    "Contratação de serviços de limpeza predial",
//	    },
//	}
//	req.EnsureDefaults()
//	if err := req.Validate(); err != nil { ... }
type GenerateSectionRequest struct {
	RequestID        string          `json:"request_id" validate:"required,uuid4"`
	Timestamp        int64           `json:"timestamp" validate:"required,gt=0"`
	SectionType      string          `json:"section_type" validate:"required,min=1,max=100"`
	Context          DocumentContext `json:"context"`
	UserInstructions string          `json:"user_instructions,omitempty" validate:"maxbytes"`
	Confidential     bool            `json:"confidential"`
}

// Validate validates the GenerateSectionRequest fields.
func (r *GenerateSectionRequest) Validate() error {
	return draftValidate.Struct(r)
}

// EnsureDefaults populates RequestID and Timestamp when the client omitted
// them, so every request is traceable.
func (r *GenerateSectionRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = generateUUID()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
}

// =============================================================================
// Generate Section Response
// =============================================================================

// Outcome is the terminal result of a generation run.
type Outcome string

const (
	// OutcomeAccepted means the final attempt passed the sanitizer and
	// carried no critical findings.
	OutcomeAccepted Outcome = "accepted"

	// OutcomeFailed means the retry budget was exhausted without an
	// acceptable attempt. The response still carries the last attempt's
	// content and findings (fail-soft).
	OutcomeFailed Outcome = "failed"
)

// GenerateSectionResponse is the response body for POST /v1/sections/generate.
//
// # Description
//
// Returned for both accepted and failed runs. A failed run is not an HTTP
// error: the caller receives the last attempt's content plus the full
// finding list so a human can repair the draft instead of starting over.
//
// # Fields
//
//   - ResponseID: Unique identifier for this response (UUID v4), server-generated.
//   - RequestID: Echo of the request ID for correlation.
//   - Timestamp: Unix timestamp in milliseconds (UTC) when the response was built.
//   - SectionType: Echo of the requested section type.
//   - Content: The generated section text (last attempt on failure).
//   - Findings: All findings from the final attempt, ordered by agent.
//   - AttemptsUsed: Number of drafting attempts consumed (1-based).
//   - Outcome: "accepted" or "failed".
//   - FailureReason: Terse machine-readable reason when Outcome is "failed".
//   - ProcessingTimeMs: Wall time for the whole run in milliseconds.
type GenerateSectionResponse struct {
	ResponseID       string    `json:"response_id"`
	RequestID        string    `json:"request_id"`
	Timestamp        int64     `json:"timestamp"`
	SectionType      string    `json:"section_type"`
	Content          string    `json:"content"`
	Findings         []Finding `json:"findings"`
	AttemptsUsed     int       `json:"attempts_used"`
	Outcome          Outcome   `json:"outcome"`
	FailureReason    string    `json:"failure_reason,omitempty"`
	ProcessingTimeMs int64     `json:"processing_time_ms,omitempty"`
}

// NewGenerateSectionResponse creates a response with auto-generated ID and
// timestamp, echoing the request for correlation.
func NewGenerateSectionResponse(requestID, sectionType string) *GenerateSectionResponse {
	return &GenerateSectionResponse{
		ResponseID:  generateUUID(),
		RequestID:   requestID,
		Timestamp:   time.Now().UnixMilli(),
		SectionType: sectionType,
	}
}
