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

import "fmt"

// =============================================================================
// Legislation Corpus Types
// =============================================================================

// MaxIngestContentBytes bounds one legislation document's content on ingest.
// Full statute texts run to a few hundred KB; 2MB covers consolidated acts
// with annexes.
const MaxIngestContentBytes = 2 * 1024 * 1024

// LegislationRecord is one indexed law, decree, or normative instruction.
//
// Records are long-lived and owned by the indexing subsystem; the pipeline
// reads them but never mutates them. Type holds the canonical uppercase
// reference type ("LEI", "DECRETO"), Number the dotted form ("14.133").
type LegislationRecord struct {
	Type      string    `json:"type"`
	Number    string    `json:"number"`
	Year      int       `json:"year"`
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"`
	IsActive  bool      `json:"is_active"`
}

// Key returns the exact-match lookup key for this record. Case-sensitive on
// purpose: Type is already canonical when records enter a store.
func (r *LegislationRecord) Key() string {
	return fmt.Sprintf("%s|%s|%d", r.Type, r.Number, r.Year)
}

// VerificationResult is the outcome of checking one claimed legal reference
// against the corpus. Ephemeral; computed per query.
//
//   - Exists true with Confidence 1.0: exact match. The record may still be
//     revoked; callers check MatchedRecord.IsActive.
//   - Exists false with a Suggestion: a near match was found above the
//     similarity threshold ("Did you mean Lei 14.133/2021 (92% match)?").
//   - Exists false without a Suggestion: nothing close enough in the corpus.
//
// Confidence is 1.0 only on an exact match and 0 on every miss; a near
// match's similarity appears inside the Suggestion text, never as
// Confidence.
type VerificationResult struct {
	Exists        bool               `json:"exists"`
	Confidence    float64            `json:"confidence"`
	MatchedRecord *LegislationRecord `json:"matched_record,omitempty"`
	Suggestion    string             `json:"suggestion,omitempty"`
}

// SimilarMatch pairs a corpus record with its similarity to a query,
// reported in [0,1].
type SimilarMatch struct {
	Record     LegislationRecord `json:"record"`
	Similarity float64           `json:"similarity"`
}

// =============================================================================
// Verify Endpoint Types
// =============================================================================

// VerifyReferenceRequest is the request body for POST /v1/legislation/verify.
// Type accepts any alias the reference parser understands ("lei", "LC",
// "medida provisória"); normalization happens server-side.
type VerifyReferenceRequest struct {
	Type   string `json:"type" validate:"required,min=1,max=60"`
	Number string `json:"number" validate:"required,min=1,max=20"`
	Year   int    `json:"year" validate:"required,gte=1824,lte=2100"`
}

// Validate validates the VerifyReferenceRequest fields.
func (r *VerifyReferenceRequest) Validate() error {
	return draftValidate.Struct(r)
}

// VerifyReferenceResponse echoes the canonical form of the queried reference
// alongside the verification result.
type VerifyReferenceResponse struct {
	Reference string             `json:"reference"`
	Result    VerificationResult `json:"result"`
}

// =============================================================================
// Search Endpoint Types
// =============================================================================

// SearchLegislationRequest is the request body for POST /v1/legislation/search.
type SearchLegislationRequest struct {
	Text          string  `json:"text" validate:"required,min=1,maxbytes"`
	Limit         int     `json:"limit" validate:"gte=0,lte=50"`
	MinSimilarity float64 `json:"min_similarity" validate:"gte=0,lte=1"`
}

// Validate validates the SearchLegislationRequest fields.
func (r *SearchLegislationRequest) Validate() error {
	return draftValidate.Struct(r)
}

// EnsureDefaults applies the default result limit. MinSimilarity zero is a
// valid value (no floor), so only Limit gets a default.
func (r *SearchLegislationRequest) EnsureDefaults() {
	if r.Limit == 0 {
		r.Limit = 5
	}
}

// SearchLegislationResponse is the response body for POST /v1/legislation/search.
type SearchLegislationResponse struct {
	Matches []SimilarMatch `json:"matches"`
	Count   int            `json:"count"`
}

// =============================================================================
// Ingest Endpoint Types
// =============================================================================

// IngestRecord is one legislation document submitted for indexing.
// IsActive is a pointer so "omitted" (defaults to true) is distinguishable
// from an explicit false used to index revoked norms.
type IngestRecord struct {
	Type     string `json:"type" validate:"required,min=1,max=60"`
	Number   string `json:"number" validate:"required,min=1,max=20"`
	Year     int    `json:"year" validate:"required,gte=1824,lte=2100"`
	Title    string `json:"title,omitempty" validate:"maxbytes"`
	Content  string `json:"content" validate:"required"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// Active resolves the IsActive pointer, defaulting to true.
func (r *IngestRecord) Active() bool {
	return r.IsActive == nil || *r.IsActive
}

// IngestLegislationRequest is the request body for POST /v1/legislation/ingest.
type IngestLegislationRequest struct {
	Records []IngestRecord `json:"records" validate:"required,min=1,max=100,dive"`
}

// Validate validates the IngestLegislationRequest, including the per-record
// content size bound that tag validation cannot express.
func (r *IngestLegislationRequest) Validate() error {
	if err := draftValidate.Struct(r); err != nil {
		return err
	}
	for i := range r.Records {
		if len(r.Records[i].Content) > MaxIngestContentBytes {
			return fmt.Errorf("record %d: content exceeds %d bytes", i, MaxIngestContentBytes)
		}
	}
	return nil
}

// IngestLegislationResponse reports what the ingest run accomplished.
// Errors holds one message per rejected record; accepted records are
// counted even when others fail.
type IngestLegislationResponse struct {
	Ingested int      `json:"ingested"`
	Chunks   int      `json:"chunks,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}
