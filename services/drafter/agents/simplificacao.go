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
	"regexp"

	"github.com/LicitaAI/LicitaCore/services/drafter/datatypes"
)

// jargonLexicon maps bureaucratic and Latin boilerplate to plain Portuguese.
// The agent proposes the substitution; it never rewrites the draft.
var jargonLexicon = []struct {
	jargon string
	plain  string
}{
	{"outrossim", "além disso"},
	{"destarte", "assim"},
	{"dessarte", "assim"},
	{"mormente", "principalmente"},
	{"porquanto", "porque"},
	{"no bojo de", "dentro de"},
	{"com fulcro no", "com base no"},
	{"com fulcro na", "com base na"},
	{"com espeque em", "com base em"},
	{"ad referendum", "sujeito a aprovação"},
	{"data venia", "com o devido respeito"},
	{"ex vi", "por força de"},
	{"in casu", "neste caso"},
	{"supramencionado", "mencionado acima"},
	{"supracitado", "citado acima"},
	{"retromencionado", "mencionado acima"},
	{"epigrafado", "citado no título"},
	{"exarar", "registrar"},
	{"colacionar", "juntar"},
	{"fazer jus a", "ter direito a"},
}

type jargonEntry struct {
	jargon  string
	plain   string
	pattern *regexp.Regexp
}

var compiledJargon = compileJargon()

func compileJargon() []jargonEntry {
	entries := make([]jargonEntry, 0, len(jargonLexicon))
	for _, e := range jargonLexicon {
		entries = append(entries, jargonEntry{
			jargon:  e.jargon,
			plain:   e.plain,
			pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(e.jargon) + `\b`),
		})
	}
	return entries
}

// SimplificacaoAgent proposes plain-language substitutions for bureaucratic
// jargon. One Info finding per distinct term found.
type SimplificacaoAgent struct{}

func NewSimplificacaoAgent() *SimplificacaoAgent { return &SimplificacaoAgent{} }

func (a *SimplificacaoAgent) Name() string { return datatypes.AgentSimplificacao }

func (a *SimplificacaoAgent) Evaluate(ctx context.Context, content string, docCtx datatypes.DocumentContext) ([]datatypes.Finding, error) {
	_, span := tracer.Start(ctx, "SimplificacaoAgent.Evaluate")
	defer span.End()

	var findings []datatypes.Finding
	for _, entry := range compiledJargon {
		if !entry.pattern.MatchString(content) {
			continue
		}
		findings = append(findings, datatypes.Finding{
			AgentName:    a.Name(),
			Severity:     datatypes.SeverityInfo,
			Message:      fmt.Sprintf("bureaucratic jargon %q; prefer %q", entry.jargon, entry.plain),
			SuggestedFix: entry.plain,
		})
	}
	return findings, nil
}
