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
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LicitaAI/LicitaCore/services/drafter/datatypes"
	"github.com/LicitaAI/LicitaCore/services/drafter/observability"
)

// DefaultAgentTimeout bounds one agent's run within a scoring pass.
const DefaultAgentTimeout = 10 * time.Second

// Panel fans a draft out to every agent and aggregates their findings.
//
// # Description
//
// All agents run concurrently, each under its own timeout. An agent that
// errors or times out contributes a single Warning finding ("agent
// unavailable") instead of blocking or failing the pass: scoring degrades,
// it never rejects a draft over infrastructure. Aggregation preserves panel
// order, so findings group by agent deterministically regardless of which
// goroutine finished first.
//
// # Thread Safety
//
// Safe for concurrent use. Multiple attempts may score simultaneously.
type Panel struct {
	agents  []Agent
	timeout time.Duration
}

// NewPanel builds a panel over the given agents. A non-positive timeout
// falls back to DefaultAgentTimeout.
func NewPanel(agents []Agent, timeout time.Duration) *Panel {
	if timeout <= 0 {
		timeout = DefaultAgentTimeout
	}
	return &Panel{agents: agents, timeout: timeout}
}

// DefaultAgents returns the five standard evaluators in canonical panel
// order, sharing one verifier.
func DefaultAgents(verifier ReferenceVerifier) []Agent {
	return []Agent{
		NewLegalAgent(verifier),
		NewFundamentacaoAgent(),
		NewClarezaAgent(),
		NewSimplificacaoAgent(),
		NewAntiAlucinacaoAgent(verifier),
	}
}

// Score runs every agent over the draft and returns the aggregated findings.
func (p *Panel) Score(ctx context.Context, content string, docCtx datatypes.DocumentContext) []datatypes.Finding {
	ctx, span := tracer.Start(ctx, "Panel.Score")
	defer span.End()

	perAgent := make([][]datatypes.Finding, len(p.agents))

	g, gCtx := errgroup.WithContext(ctx)
	for i, agent := range p.agents {
		i, agent := i, agent // Capture loop variables

		g.Go(func() error {
			agentCtx, cancel := context.WithTimeout(gCtx, p.timeout)
			defer cancel()

			start := time.Now()
			findings, err := agent.Evaluate(agentCtx, content, docCtx)
			duration := time.Since(start)

			if m := observability.DefaultMetrics; m != nil {
				m.RecordAgent(agent.Name(), duration.Seconds())
			}

			if err != nil {
				slog.Warn("scoring agent unavailable",
					"agent", agent.Name(),
					"error", err,
					"duration_ms", duration.Milliseconds())
				if m := observability.DefaultMetrics; m != nil {
					m.RecordAgentUnavailable(agent.Name())
				}
				perAgent[i] = []datatypes.Finding{{
					AgentName: agent.Name(),
					Severity:  datatypes.SeverityWarning,
					Message:   fmt.Sprintf("agent unavailable: %v", err),
				}}
				return nil // Agent failures are non-fatal
			}

			slog.Debug("scoring agent finished",
				"agent", agent.Name(),
				"findings", len(findings),
				"duration_ms", duration.Milliseconds())
			perAgent[i] = findings
			return nil
		})
	}
	_ = g.Wait()

	var aggregated []datatypes.Finding
	for _, findings := range perAgent {
		aggregated = append(aggregated, findings...)
	}
	return aggregated
}
