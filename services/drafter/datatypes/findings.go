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

// =============================================================================
// Severity
// =============================================================================

// Severity classifies how serious a finding is for the Deciding gate.
// Only Critical findings can force a retry or failure.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// rank maps severities to a total order for comparisons. Unknown severities
// rank below info so malformed data never forces a retry.
func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s is as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return s.rank() >= other.rank()
}

// =============================================================================
// Agent Names
// =============================================================================

// Canonical agent names as they appear in Finding.AgentName, metrics labels,
// and span names.
const (
	AgentLegal          = "legal"
	AgentFundamentacao  = "fundamentacao"
	AgentClareza        = "clareza"
	AgentSimplificacao  = "simplificacao"
	AgentAntiAlucinacao = "anti_alucinacao"
)

// =============================================================================
// Finding
// =============================================================================

// Finding is one structured observation emitted by a scoring agent.
//
// Findings are immutable after creation: agents append to their own slice
// and the pipeline aggregates by copying, never by mutating.
type Finding struct {
	AgentName    string   `json:"agent_name"`
	Severity     Severity `json:"severity"`
	Message      string   `json:"message"`
	SuggestedFix string   `json:"suggested_fix,omitempty"`
}

// HasCritical reports whether any finding in the slice is critical.
func HasCritical(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// CountBySeverity tallies findings per severity. Severities with no findings
// are present with a zero count so callers can index unconditionally.
func CountBySeverity(findings []Finding) map[Severity]int {
	counts := map[Severity]int{
		SeverityInfo:     0,
		SeverityWarning:  0,
		SeverityCritical: 0,
	}
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}

// =============================================================================
// Generation Attempt
// =============================================================================

// AttemptOutcome is the terminal state of one drafting attempt.
type AttemptOutcome string

const (
	// AttemptAccepted means the attempt passed the sanitizer and carried no
	// critical findings.
	AttemptAccepted AttemptOutcome = "accepted"

	// AttemptRejectedSanitizer means the sanitizer found violations; the
	// attempt was never forwarded to the scoring agents.
	AttemptRejectedSanitizer AttemptOutcome = "rejected_sanitizer"

	// AttemptRejectedAgents means the scoring agents raised at least one
	// critical finding.
	AttemptRejectedAgents AttemptOutcome = "rejected_agents"

	// AttemptRetrying means the attempt failed but the retry budget allowed
	// another pass.
	AttemptRetrying AttemptOutcome = "retrying"

	// AttemptProviderError means drafting itself failed (provider error or
	// timeout); the attempt carries no text. Recorded for audit trails.
	AttemptProviderError AttemptOutcome = "provider_error"
)

// GenerationAttempt is one pass through the pipeline for one request.
//
// Owned exclusively by the pipeline invocation that created it; attempts are
// discarded after the run except the final accepted or last failed one,
// which the audit store keeps.
//
// Confidential runs leave RawText and SanitizedText empty and set
// ContentHash instead, so audit trails prove what was generated without
// retaining the text.
type GenerationAttempt struct {
	AttemptNumber int            `json:"attempt_number"`
	RawText       string         `json:"raw_text,omitempty"`
	SanitizedText string         `json:"sanitized_text,omitempty"`
	ContentHash   string         `json:"content_hash,omitempty"`
	Findings      []Finding      `json:"findings"`
	Outcome       AttemptOutcome `json:"outcome"`
	DurationMs    int64          `json:"duration_ms,omitempty"`
}
