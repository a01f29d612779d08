// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agents

import (
	"context"
	"fmt"

	"github.com/LicitaAI/LicitaCore/services/drafter/datatypes"
)

// LegalAgent verifies every legal reference the draft cites.
//
// # Description
//
// References are extracted from the draft, normalized, and checked against
// the legislation corpus one by one. An exact match produces no finding. A
// near match produces a Warning carrying the verifier's correction
// suggestion. A reference matching nothing is Critical: the draft cites a
// norm that does not exist.
//
// A verifier backend failure aborts the review with an error so the panel
// degrades to "agent unavailable" instead of rejecting the draft over an
// infrastructure fault.
type LegalAgent struct {
	verifier ReferenceVerifier
}

func NewLegalAgent(verifier ReferenceVerifier) *LegalAgent {
	return &LegalAgent{verifier: verifier}
}

func (a *LegalAgent) Name() string { return datatypes.AgentLegal }

func (a *LegalAgent) Evaluate(ctx context.Context, content string, docCtx datatypes.DocumentContext) ([]datatypes.Finding, error) {
	ctx, span := tracer.Start(ctx, "LegalAgent.Evaluate")
	defer span.End()

	var findings []datatypes.Finding
	for _, cand := range ExtractReferences(content) {
		if cand.Err != nil {
			findings = append(findings, datatypes.Finding{
				AgentName: a.Name(),
				Severity:  datatypes.SeverityCritical,
				Message:   fmt.Sprintf("reference %q cannot name a real norm: %v", cand.Raw, cand.Err),
			})
			continue
		}

		result, err := a.verifier.VerifyReference(ctx, cand.Ref)
		if err != nil {
			return nil, fmt.Errorf("verifying %s: %w", cand.Ref.String(), err)
		}

		switch {
		case result.Exists && result.MatchedRecord != nil && !result.MatchedRecord.IsActive:
			findings = append(findings, datatypes.Finding{
				AgentName:    a.Name(),
				Severity:     datatypes.SeverityWarning,
				Message:      fmt.Sprintf("%s is revoked or superseded; confirm the citation is intentional", cand.Ref.String()),
				SuggestedFix: "cite the norm currently in force, or make the historical reference explicit",
			})
		case result.Exists:
			// Verified at confidence 1.0; nothing to report.
		case result.Suggestion != "":
			findings = append(findings, datatypes.Finding{
				AgentName:    a.Name(),
				Severity:     datatypes.SeverityWarning,
				Message:      fmt.Sprintf("%s was not found in the legislation corpus", cand.Ref.String()),
				SuggestedFix: result.Suggestion,
			})
		default:
			findings = append(findings, datatypes.Finding{
				AgentName: a.Name(),
				Severity:  datatypes.SeverityCritical,
				Message:   fmt.Sprintf("%s matches no known norm, not even approximately", cand.Ref.String()),
			})
		}
	}
	return findings, nil
}
