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
	"regexp"

	"github.com/LicitaAI/LicitaCore/services/drafter/datatypes"
)

// fundamentacaoElements are the argumentative elements a justification is
// expected to carry under Lei 14.133/2021 art. 18. Detection is lexical:
// each element has a vocabulary of Portuguese keywords (accented and
// unaccented spellings) whose presence counts as coverage.
var fundamentacaoElements = []struct {
	name    string
	hint    string
	pattern *regexp.Regexp
}{
	{
		name:    "stated need",
		hint:    "state the concrete need driving the contracting (\"a contratação é necessária para...\")",
		pattern: regexp.MustCompile(`(?i)necessidade|necess[áa]ri[oa]|demanda|car[êe]ncia|insufici[êe]nte|suprir`),
	},
	{
		name:    "public interest",
		hint:    "tie the contracting to the public interest it serves (\"atende ao interesse público ao...\")",
		pattern: regexp.MustCompile(`(?i)interesse p[úu]blico|coletividade|popula[çc][ãa]o|sociedade|cidad[ãa]|usu[áa]rios? do servi[çc]o`),
	},
	{
		name:    "expected benefit",
		hint:    "name the expected benefit or gain (\"espera-se como benefício...\")",
		pattern: regexp.MustCompile(`(?i)benef[íi]cio|ganho|economi|efici[êe]ncia|melhoria|vantagem|aprimorar|otimiza`),
	},
	{
		name:    "identified risk",
		hint:    "identify the risk of not contracting (\"a ausência da contratação acarretaria...\")",
		pattern: regexp.MustCompile(`(?i)risco|preju[íi]zo|comprometimento|descontinuidade|paralisa[çc]|interrup[çc]`),
	},
}

// FundamentacaoAgent checks that a section argues its case: need, public
// interest, expected benefit, and risk. Each missing element is one Warning.
type FundamentacaoAgent struct{}

func NewFundamentacaoAgent() *FundamentacaoAgent { return &FundamentacaoAgent{} }

func (a *FundamentacaoAgent) Name() string { return datatypes.AgentFundamentacao }

func (a *FundamentacaoAgent) Evaluate(ctx context.Context, content string, docCtx datatypes.DocumentContext) ([]datatypes.Finding, error) {
	_, span := tracer.Start(ctx, "FundamentacaoAgent.Evaluate")
	defer span.End()

	var findings []datatypes.Finding
	for _, elem := range fundamentacaoElements {
		if elem.pattern.MatchString(content) {
			continue
		}
		findings = append(findings, datatypes.Finding{
			AgentName:    a.Name(),
			Severity:     datatypes.SeverityWarning,
			Message:      "missing argumentative element: " + elem.name,
			SuggestedFix: elem.hint,
		})
	}
	return findings, nil
}
