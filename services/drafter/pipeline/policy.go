// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/LicitaAI/LicitaCore/services/drafter/datatypes"
)

// celCostLimit bounds expression evaluation cost; acceptance expressions are
// small arithmetic over five ints, anything near this limit is a bug.
const celCostLimit = 1000000

// DecisionPolicy decides whether a scored draft is accepted.
//
// The builtin gate accepts any draft with zero critical findings. Deployments
// that want a different bar (e.g. reject on too many warnings, loosen the
// gate on the final attempt) supply a CEL expression via DECISION_POLICY_CEL
// evaluating to a bool over:
//
//	critical_count  number of critical findings
//	warning_count   number of warning findings
//	info_count      number of info findings
//	attempt         1-based attempt number
//	max_retries     retry budget for the section
//
// An expression that fails at runtime falls back to the builtin gate so a
// bad policy degrades to the safe default instead of blocking generation.
type DecisionPolicy struct {
	expr string
	prg  cel.Program
}

// NewDecisionPolicy compiles expr into an acceptance gate. An empty
// expression yields the builtin gate. Compilation errors are returned so the
// caller can fail at startup rather than silently running the wrong policy.
func NewDecisionPolicy(expr string) (*DecisionPolicy, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return &DecisionPolicy{}, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("critical_count", cel.IntType),
		cel.Variable("warning_count", cel.IntType),
		cel.Variable("info_count", cel.IntType),
		cel.Variable("attempt", cel.IntType),
		cel.Variable("max_retries", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("creating decision policy environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compiling decision policy %q: %w", expr, issues.Err())
	}

	prg, err := env.Program(ast, cel.EvalOptions(cel.OptTrackState), cel.CostLimit(celCostLimit))
	if err != nil {
		return nil, fmt.Errorf("building decision policy program: %w", err)
	}

	return &DecisionPolicy{expr: expr, prg: prg}, nil
}

// Expression returns the configured CEL expression, empty for the builtin
// gate. Exposed for health reporting.
func (p *DecisionPolicy) Expression() string {
	if p == nil {
		return ""
	}
	return p.expr
}

// Accept reports whether a draft with the given panel verdict should be
// accepted on this attempt.
func (p *DecisionPolicy) Accept(findings []datatypes.Finding, attempt, maxRetries int) bool {
	counts := datatypes.CountBySeverity(findings)
	builtin := counts[datatypes.SeverityCritical] == 0

	if p == nil || p.prg == nil {
		return builtin
	}

	out, _, err := p.prg.Eval(map[string]any{
		"critical_count": int64(counts[datatypes.SeverityCritical]),
		"warning_count":  int64(counts[datatypes.SeverityWarning]),
		"info_count":     int64(counts[datatypes.SeverityInfo]),
		"attempt":        int64(attempt),
		"max_retries":    int64(maxRetries),
	})
	if err != nil {
		slog.Warn("Decision policy evaluation failed, using builtin gate",
			"expression", p.expr,
			"error", err)
		return builtin
	}

	accepted, ok := out.Value().(bool)
	if !ok {
		slog.Warn("Decision policy returned non-boolean, using builtin gate",
			"expression", p.expr,
			"value", out.Value())
		return builtin
	}
	return accepted
}
