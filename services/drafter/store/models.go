// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"time"

	"github.com/LicitaAI/LicitaCore/services/drafter/datatypes"
	"github.com/LicitaAI/LicitaCore/services/drafter/pipeline"
)

// =============================================================================
// Models
// =============================================================================

// GenerationRecord is the persisted audit row for one generation run.
//
// # Description
//
// One record per call to the pipeline, accepted or failed. The record keeps
// every attempt (not just the accepted one) so later review or best-of-N
// selection can work from the full history. Confidential runs persist
// metadata and hashes only; the text columns stay empty.
//
// # Fields
//
//   - ResponseID: Unique identifier of the run, echoed to the caller.
//   - RequestID: Caller-supplied correlation identifier.
//   - SectionType: Requested section type as received, pre-normalization.
//   - DocumentType / DocumentTitle / Organization: Request context captured
//     for audit queries.
//   - UserInstructions: Free-form steering text; withheld when confidential.
//   - Confidential: Whether text columns were withheld.
//   - Outcome / FailureReason: Terminal result of the run.
//   - Content: Final served content; empty for confidential runs.
//   - CriticalCount / WarningCount / InfoCount: Finding tallies from the
//     final attempt.
//   - FinalState: Terminal pipeline state ("accepted" or "failed").
type GenerationRecord struct {
	ID               uint            `json:"id" gorm:"primaryKey"`
	ResponseID       string          `json:"response_id" gorm:"size:64;uniqueIndex;not null"`
	RequestID        string          `json:"request_id" gorm:"size:64;index;not null"`
	SectionType      string          `json:"section_type" gorm:"size:100;index;not null"`
	DocumentType     string          `json:"document_type" gorm:"size:50"`
	DocumentTitle    string          `json:"document_title" gorm:"size:255"`
	Organization     string          `json:"organization" gorm:"size:255"`
	UserInstructions string          `json:"user_instructions" gorm:"size:2000"`
	Confidential     bool            `json:"confidential"`
	Outcome          string          `json:"outcome" gorm:"size:20;index"`
	FailureReason    string          `json:"failure_reason" gorm:"size:50"`
	Content          string          `json:"content" gorm:"type:text"`
	AttemptsUsed     int             `json:"attempts_used"`
	CriticalCount    int             `json:"critical_count"`
	WarningCount     int             `json:"warning_count"`
	InfoCount        int             `json:"info_count"`
	ProcessingTimeMs int64           `json:"processing_time_ms"`
	FinalState       string          `json:"final_state" gorm:"size:20"`
	CreatedAt        time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Attempts         []AttemptRecord `json:"attempts,omitempty" gorm:"foreignKey:GenerationID"`
}

// AttemptRecord is one drafting attempt within a run.
type AttemptRecord struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	GenerationID  uint            `json:"generation_id" gorm:"index;not null"`
	AttemptNumber int             `json:"attempt_number" gorm:"not null"`
	Outcome       string          `json:"outcome" gorm:"size:30"`
	Content       string          `json:"content" gorm:"type:text"`
	ContentHash   string          `json:"content_hash" gorm:"size:64"`
	DurationMs    int64           `json:"duration_ms"`
	CreatedAt     time.Time       `json:"created_at"`
	Findings      []FindingRecord `json:"findings,omitempty" gorm:"foreignKey:AttemptID"`
}

// FindingRecord is one agent finding attached to an attempt.
type FindingRecord struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	AttemptID    uint   `json:"attempt_id" gorm:"index;not null"`
	AgentName    string `json:"agent_name" gorm:"size:50"`
	Severity     string `json:"severity" gorm:"size:10"`
	Message      string `json:"message" gorm:"size:2000"`
	SuggestedFix string `json:"suggested_fix" gorm:"size:2000"`
}

// =============================================================================
// Conversion
// =============================================================================

// NewGenerationRecord maps a finished pipeline run to its audit record.
//
// # Description
//
// Copies the response, every attempt, and every finding into persistable
// rows. For confidential runs the text columns are force-emptied here, not
// merely trusted to be empty upstream, so a bug in the pipeline's custody
// handling cannot leak draft text into the audit database.
//
// # Inputs
//
//   - req: The request that started the run.
//   - result: The terminal run result. Nil result or response yields nil.
//
// # Outputs
//
//   - *GenerationRecord: Ready to pass to AuditStore.SaveRun, or nil.
func NewGenerationRecord(req *datatypes.GenerateSectionRequest, result *pipeline.RunResult) *GenerationRecord {
	if req == nil || result == nil || result.Response == nil {
		return nil
	}
	resp := result.Response
	counts := datatypes.CountBySeverity(resp.Findings)

	record := &GenerationRecord{
		ResponseID:       resp.ResponseID,
		RequestID:        resp.RequestID,
		SectionType:      resp.SectionType,
		DocumentType:     req.Context.DocumentType,
		DocumentTitle:    req.Context.DocumentTitle,
		Organization:     req.Context.Organization,
		UserInstructions: req.UserInstructions,
		Confidential:     req.Confidential,
		Outcome:          string(resp.Outcome),
		FailureReason:    resp.FailureReason,
		Content:          resp.Content,
		AttemptsUsed:     resp.AttemptsUsed,
		CriticalCount:    counts[datatypes.SeverityCritical],
		WarningCount:     counts[datatypes.SeverityWarning],
		InfoCount:        counts[datatypes.SeverityInfo],
		ProcessingTimeMs: resp.ProcessingTimeMs,
		FinalState:       string(result.FinalState),
	}
	if req.Confidential {
		record.Content = ""
		record.UserInstructions = ""
	}

	record.Attempts = make([]AttemptRecord, 0, len(result.Attempts))
	for _, att := range result.Attempts {
		row := AttemptRecord{
			AttemptNumber: att.AttemptNumber,
			Outcome:       string(att.Outcome),
			Content:       att.SanitizedText,
			ContentHash:   att.ContentHash,
			DurationMs:    att.DurationMs,
		}
		if row.Content == "" {
			row.Content = att.RawText
		}
		if req.Confidential {
			row.Content = ""
		}
		row.Findings = make([]FindingRecord, 0, len(att.Findings))
		for _, f := range att.Findings {
			row.Findings = append(row.Findings, FindingRecord{
				AgentName:    f.AgentName,
				Severity:     string(f.Severity),
				Message:      f.Message,
				SuggestedFix: f.SuggestedFix,
			})
		}
		record.Attempts = append(record.Attempts, row)
	}
	return record
}
