// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package agents implements the scoring panel that reviews drafted sections.
//
// Five independent evaluators each examine the sanitized draft and emit
// structured findings: legal-reference verification, argumentative
// completeness, readability, plain-language substitutions, and
// anti-hallucination checks. Agents are stateless and never see one
// another's findings; the panel runs them concurrently and aggregates.
package agents

import (
	"context"

	"go.opentelemetry.io/otel"

	"github.com/LicitaAI/LicitaCore/pkg/validation"
	"github.com/LicitaAI/LicitaCore/services/drafter/datatypes"
)

var tracer = otel.Tracer("licita.drafter.agents")

// Agent is one evaluator in the scoring panel.
//
// # Description
//
// Evaluate examines content (already sanitized) in the light of the document
// context and returns zero or more findings. A non-nil error means the agent
// could not complete its review at all (backend failure, timeout); the panel
// converts that into a Warning finding instead of failing the attempt.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; the panel runs all agents
// in parallel and may score multiple attempts over the same instances.
type Agent interface {
	// Name returns the agent's canonical name (datatypes.Agent* constants).
	Name() string

	// Evaluate reviews content and returns findings. Findings must carry
	// the agent's own name. Partial reviews return an error, not partial
	// findings.
	Evaluate(ctx context.Context, content string, docCtx datatypes.DocumentContext) ([]datatypes.Finding, error)
}

// ReferenceVerifier resolves one legal reference against the corpus. The
// verifier service implements it; tests substitute fixtures.
type ReferenceVerifier interface {
	VerifyReference(ctx context.Context, ref validation.Reference) (datatypes.VerificationResult, error)
}
