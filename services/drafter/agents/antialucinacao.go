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
	"strings"

	"github.com/LicitaAI/LicitaCore/services/drafter/datatypes"
)

// Claim-class patterns, applied in order with masking between passes so a
// date's year is never re-reported as a standalone year. The classes are
// deliberately conservative (R$-prefixed money, dd/mm/yyyy dates, percent
// signs, four-digit years): bare quantities like "3 parcelas" stay unflagged.
var (
	moneyPattern   = regexp.MustCompile(`R\$\s*[0-9]{1,3}(?:\.[0-9]{3})*(?:,[0-9]{2})?`)
	datePattern    = regexp.MustCompile(`\b[0-3]?[0-9]/[0-1]?[0-9]/[0-9]{4}\b`)
	percentPattern = regexp.MustCompile(`\b[0-9]+(?:,[0-9]+)?\s*%`)
	yearPattern    = regexp.MustCompile(`\b(?:18|19|20)[0-9]{2}\b`)

	// legalStructureRef masks article/paragraph/item numbering, which is
	// document structure rather than a data claim.
	legalStructureRef = regexp.MustCompile(
		`(?i)\b(?:art(?:igo)?s?\.?|par[áa]grafos?|incisos?|al[íi]neas?|itens|item|inc\.?)\s*[0-9]+[ºo°]?|§\s*[0-9]+[ºo°]?`)

	// contextNumber harvests numeric tokens from the document context.
	contextNumber = regexp.MustCompile(`[0-9][0-9.,/]*`)

	// zeroCents drops an all-zero decimal part ("150.000,00" → "150.000")
	// so default-cents money matches its plain form in the context.
	zeroCents = regexp.MustCompile(`,0+\b`)
)

// AntiAlucinacaoAgent hunts fabricated facts.
//
// # Description
//
// Two checks run over every draft. First, legal references are re-extracted
// and re-verified independently of the Legal agent, so a fabricated norm is
// caught even if that agent was unavailable; only stone-cold misses (no
// near match) are flagged here, near-misses are the Legal agent's Warning.
// Second, every numeric claim (money, dates, percentages, years) must trace
// back to some field of the document context; figures the model invented
// are Critical. Reference spans and article numbering are masked before the
// numeric scan so citations are not mistaken for claims.
type AntiAlucinacaoAgent struct {
	verifier ReferenceVerifier
}

func NewAntiAlucinacaoAgent(verifier ReferenceVerifier) *AntiAlucinacaoAgent {
	return &AntiAlucinacaoAgent{verifier: verifier}
}

func (a *AntiAlucinacaoAgent) Name() string { return datatypes.AgentAntiAlucinacao }

func (a *AntiAlucinacaoAgent) Evaluate(ctx context.Context, content string, docCtx datatypes.DocumentContext) ([]datatypes.Finding, error) {
	ctx, span := tracer.Start(ctx, "AntiAlucinacaoAgent.Evaluate")
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
		if !result.Exists && result.Suggestion == "" {
			findings = append(findings, datatypes.Finding{
				AgentName: a.Name(),
				Severity:  datatypes.SeverityCritical,
				Message:   fmt.Sprintf("%s matches nothing in the legislation corpus (possible hallucination)", cand.Ref.String()),
			})
		}
	}

	masked := finderPattern.ReplaceAllString(content, " ")
	masked = legalStructureRef.ReplaceAllString(masked, " ")

	allowed := contextNumericSet(docCtx)
	seen := make(map[string]bool)
	for _, pat := range []*regexp.Regexp{moneyPattern, datePattern, percentPattern, yearPattern} {
		for _, claim := range pat.FindAllString(masked, -1) {
			norm := normalizeNumeric(claim)
			if norm == "" || allowed[norm] || seen[norm] {
				continue
			}
			seen[norm] = true
			findings = append(findings, datatypes.Finding{
				AgentName:    a.Name(),
				Severity:     datatypes.SeverityCritical,
				Message:      fmt.Sprintf("numeric claim %q has no source in the document context", strings.TrimSpace(claim)),
				SuggestedFix: "confirm the figure with the requesting unit or remove it",
			})
		}
		masked = pat.ReplaceAllString(masked, " ")
	}

	return findings, nil
}

// contextNumericSet collects every numeric token the caller's context
// carries, in normalized form. A claim matching any of them is traceable.
func contextNumericSet(docCtx datatypes.DocumentContext) map[string]bool {
	fields := []string{
		docCtx.DocumentTitle,
		docCtx.Organization,
		docCtx.Objective,
		docCtx.FocusField,
	}
	for _, prior := range docCtx.PriorSections {
		fields = append(fields, prior.Content)
	}

	allowed := make(map[string]bool)
	for _, field := range fields {
		for _, tok := range contextNumber.FindAllString(field, -1) {
			if norm := normalizeNumeric(tok); norm != "" {
				allowed[norm] = true
			}
		}
	}
	return allowed
}

// normalizeNumeric reduces a numeric token to its digit string, dropping
// all-zero cents first so "R$ 150.000,00" and "150.000" compare equal.
func normalizeNumeric(s string) string {
	s = zeroCents.ReplaceAllString(s, "")
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
