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
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/LicitaAI/LicitaCore/pkg/validation"
	"github.com/LicitaAI/LicitaCore/services/drafter/datatypes"
)

// =============================================================================
// Test Helpers
// =============================================================================

// fixtureVerifier returns canned verification results keyed by the
// reference's display form ("Lei 14.133/2021"). Unknown references are
// plain misses. Calls are recorded for assertion.
type fixtureVerifier struct {
	results map[string]datatypes.VerificationResult
	err     error

	mu    sync.Mutex
	calls []string
}

func (f *fixtureVerifier) VerifyReference(ctx context.Context, ref validation.Reference) (datatypes.VerificationResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, ref.String())
	f.mu.Unlock()

	if f.err != nil {
		return datatypes.VerificationResult{}, f.err
	}
	if result, ok := f.results[ref.String()]; ok {
		return result, nil
	}
	return datatypes.VerificationResult{Exists: false, Confidence: 0}, nil
}

func (f *fixtureVerifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func exactMatch(isActive bool) datatypes.VerificationResult {
	rec := datatypes.LegislationRecord{
		Type: "LEI", Number: "14.133", Year: 2021,
		Title: "Lei de Licitações e Contratos Administrativos", IsActive: isActive,
	}
	return datatypes.VerificationResult{Exists: true, Confidence: 1.0, MatchedRecord: &rec}
}

func severitiesOf(findings []datatypes.Finding) []datatypes.Severity {
	out := make([]datatypes.Severity, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Severity)
	}
	return out
}

// =============================================================================
// Legal Agent Tests
// =============================================================================

func TestLegalAgent_VerifiedReferencePasses(t *testing.T) {
	verifier := &fixtureVerifier{results: map[string]datatypes.VerificationResult{
		"Lei 14.133/2021": exactMatch(true),
	}}
	agent := NewLegalAgent(verifier)

	findings, err := agent.Evaluate(context.Background(),
		"A contratação observa a Lei 14.133/2021.", datatypes.DocumentContext{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("got findings for a verified reference: %+v", findings)
	}
	if verifier.callCount() != 1 {
		t.Errorf("verifier called %d times, want 1", verifier.callCount())
	}
}

func TestLegalAgent_NearMissIsWarningWithSuggestion(t *testing.T) {
	suggestion := "Did you mean Lei 14.133/2021 (87% match)?"
	verifier := &fixtureVerifier{results: map[string]datatypes.VerificationResult{
		"Lei 14.333/2021": {Exists: false, Suggestion: suggestion},
	}}
	agent := NewLegalAgent(verifier)

	findings, err := agent.Evaluate(context.Background(),
		"nos termos da Lei 14.333/2021", datatypes.DocumentContext{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	f := findings[0]
	if f.Severity != datatypes.SeverityWarning {
		t.Errorf("severity = %s, want warning", f.Severity)
	}
	if f.SuggestedFix != suggestion {
		t.Errorf("suggested fix = %q, want the verifier suggestion", f.SuggestedFix)
	}
	if f.AgentName != datatypes.AgentLegal {
		t.Errorf("agent name = %q", f.AgentName)
	}
}

func TestLegalAgent_PlainMissIsCritical(t *testing.T) {
	agent := NewLegalAgent(&fixtureVerifier{})

	findings, err := agent.Evaluate(context.Background(),
		"com base na Lei 9.999/1999", datatypes.DocumentContext{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	if findings[0].Severity != datatypes.SeverityCritical {
		t.Errorf("severity = %s, want critical", findings[0].Severity)
	}
	if !strings.Contains(findings[0].Message, "Lei 9.999/1999") {
		t.Errorf("message %q does not name the reference", findings[0].Message)
	}
}

func TestLegalAgent_RevokedNormIsWarning(t *testing.T) {
	rec := datatypes.LegislationRecord{
		Type: "LEI", Number: "8.666", Year: 1993,
		Title: "Antiga Lei de Licitações", IsActive: false,
	}
	verifier := &fixtureVerifier{results: map[string]datatypes.VerificationResult{
		"Lei 8.666/1993": {Exists: true, Confidence: 1.0, MatchedRecord: &rec},
	}}
	agent := NewLegalAgent(verifier)

	findings, err := agent.Evaluate(context.Background(),
		"aplicando-se a Lei 8.666/1993", datatypes.DocumentContext{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(findings) != 1 || findings[0].Severity != datatypes.SeverityWarning {
		t.Fatalf("findings = %+v, want one warning", findings)
	}
	if !strings.Contains(findings[0].Message, "revoked") {
		t.Errorf("message %q should mention revocation", findings[0].Message)
	}
}

func TestLegalAgent_MalformedReferenceSkipsVerifier(t *testing.T) {
	verifier := &fixtureVerifier{}
	agent := NewLegalAgent(verifier)

	findings, err := agent.Evaluate(context.Background(),
		"conforme a Lei 1.234/9999", datatypes.DocumentContext{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(findings) != 1 || findings[0].Severity != datatypes.SeverityCritical {
		t.Fatalf("findings = %+v, want one critical", findings)
	}
	if verifier.callCount() != 0 {
		t.Errorf("verifier called %d times for a malformed reference", verifier.callCount())
	}
}

func TestLegalAgent_VerifierFailureReturnsError(t *testing.T) {
	verifier := &fixtureVerifier{err: fmt.Errorf("embedding provider: connection refused")}
	agent := NewLegalAgent(verifier)

	findings, err := agent.Evaluate(context.Background(),
		"conforme a Lei 14.133/2021", datatypes.DocumentContext{})
	if err == nil {
		t.Fatal("expected error when verifier fails")
	}
	if findings != nil {
		t.Errorf("got partial findings %+v, want none on failure", findings)
	}
}

// =============================================================================
// Fundamentação Agent Tests
// =============================================================================

func TestFundamentacaoAgent_CompleteArgumentPasses(t *testing.T) {
	content := "A contratação decorre da necessidade de manter os serviços. " +
		"Atende ao interesse público ao garantir a continuidade do atendimento. " +
		"O principal benefício esperado é a economia de recursos. " +
		"A ausência do serviço acarretaria risco de descontinuidade."

	findings, err := NewFundamentacaoAgent().Evaluate(context.Background(),
		content, datatypes.DocumentContext{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("got findings for a complete argument: %+v", findings)
	}
}

func TestFundamentacaoAgent_EmptyArgumentWarnsPerElement(t *testing.T) {
	findings, err := NewFundamentacaoAgent().Evaluate(context.Background(),
		"Texto vago que não fundamenta nada.", datatypes.DocumentContext{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(findings) != len(fundamentacaoElements) {
		t.Fatalf("got %d findings, want %d", len(findings), len(fundamentacaoElements))
	}
	for i, f := range findings {
		if f.Severity != datatypes.SeverityWarning {
			t.Errorf("finding[%d] severity = %s, want warning", i, f.Severity)
		}
		if !strings.Contains(f.Message, fundamentacaoElements[i].name) {
			t.Errorf("finding[%d] message %q does not name element %q",
				i, f.Message, fundamentacaoElements[i].name)
		}
		if f.SuggestedFix == "" {
			t.Errorf("finding[%d] has no suggested fix", i)
		}
	}
}

func TestFundamentacaoAgent_PartialCoverage(t *testing.T) {
	content := "Há clara necessidade do serviço; sua falta traria risco de paralisação."

	findings, err := NewFundamentacaoAgent().Evaluate(context.Background(),
		content, datatypes.DocumentContext{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("got %d findings, want 2 (public interest, expected benefit): %+v",
			len(findings), findings)
	}
	for _, f := range findings {
		if strings.Contains(f.Message, "stated need") || strings.Contains(f.Message, "identified risk") {
			t.Errorf("covered element flagged: %q", f.Message)
		}
	}
}

// =============================================================================
// Clareza Agent Tests
// =============================================================================

func TestClarezaAgent_ShortSentencesPass(t *testing.T) {
	content := "A contratação é necessária. O prazo de vigência será de doze meses."

	findings, err := NewClarezaAgent().Evaluate(context.Background(),
		content, datatypes.DocumentContext{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("got findings for short sentences: %+v", findings)
	}
}

func TestClarezaAgent_LongSentenceFlaggedAsInfo(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("palavra ", maxSentenceWords+5)) + "."

	findings, err := NewClarezaAgent().Evaluate(context.Background(),
		long, datatypes.DocumentContext{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	f := findings[0]
	if f.Severity != datatypes.SeverityInfo {
		t.Errorf("severity = %s, want info", f.Severity)
	}
	if !strings.Contains(f.Message, fmt.Sprintf("%d words", maxSentenceWords+5)) {
		t.Errorf("message %q does not state the word count", f.Message)
	}
	if f.SuggestedFix == "" {
		t.Error("expected the offending sentence as suggested fix")
	}
}

func TestClarezaAgent_DenseLongWordsFlagged(t *testing.T) {
	content := strings.TrimSpace(strings.Repeat("responsabilização ", minDenseWords+1)) + "."

	findings, err := NewClarezaAgent().Evaluate(context.Background(),
		content, datatypes.DocumentContext{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	if !strings.Contains(findings[0].Message, "dense") {
		t.Errorf("message = %q, want a density finding", findings[0].Message)
	}
}

func TestClarezaAgent_SuggestedFixTruncated(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("palavra ", 60)) + "."

	findings, err := NewClarezaAgent().Evaluate(context.Background(),
		long, datatypes.DocumentContext{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	fix := findings[0].SuggestedFix
	if !strings.HasSuffix(fix, "...") {
		t.Errorf("fix %q not truncated", fix)
	}
	if got := utf8.RuneCountInString(fix); got != maxFixRunes+3 {
		t.Errorf("fix length = %d runes, want %d", got, maxFixRunes+3)
	}
}

// =============================================================================
// Simplificação Agent Tests
// =============================================================================

func TestSimplificacaoAgent_PlainTextPasses(t *testing.T) {
	content := "A contratação atende à demanda da rede municipal de ensino."

	findings, err := NewSimplificacaoAgent().Evaluate(context.Background(),
		content, datatypes.DocumentContext{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("got findings for plain text: %+v", findings)
	}
}

func TestSimplificacaoAgent_JargonFlaggedWithSubstitution(t *testing.T) {
	content := "Outrossim, com fulcro no entendimento vigente, destarte se decide."

	findings, err := NewSimplificacaoAgent().Evaluate(context.Background(),
		content, datatypes.DocumentContext{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(findings) != 3 {
		t.Fatalf("got %d findings, want 3: %+v", len(findings), findings)
	}
	for _, f := range findings {
		if f.Severity != datatypes.SeverityInfo {
			t.Errorf("severity = %s, want info", f.Severity)
		}
		if f.SuggestedFix == "" {
			t.Errorf("finding %q carries no substitution", f.Message)
		}
	}
}

func TestSimplificacaoAgent_MatchesCaseInsensitively(t *testing.T) {
	findings, err := NewSimplificacaoAgent().Evaluate(context.Background(),
		"OUTROSSIM, prossiga-se.", datatypes.DocumentContext{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	if findings[0].SuggestedFix != "além disso" {
		t.Errorf("fix = %q, want %q", findings[0].SuggestedFix, "além disso")
	}
}

// =============================================================================
// Anti-Hallucination Agent Tests
// =============================================================================

func TestAntiAlucinacaoAgent_HallucinatedNormIsCritical(t *testing.T) {
	agent := NewAntiAlucinacaoAgent(&fixtureVerifier{})

	findings, err := agent.Evaluate(context.Background(),
		"conforme previsto na Lei 9.876/1999", datatypes.DocumentContext{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(findings) != 1 || findings[0].Severity != datatypes.SeverityCritical {
		t.Fatalf("findings = %+v, want one critical", findings)
	}
	if !strings.Contains(findings[0].Message, "hallucination") {
		t.Errorf("message = %q", findings[0].Message)
	}
}

func TestAntiAlucinacaoAgent_NearMissLeftToLegalAgent(t *testing.T) {
	verifier := &fixtureVerifier{results: map[string]datatypes.VerificationResult{
		"Lei 14.333/2021": {
			Exists:     false,
			Suggestion: "Did you mean Lei 14.133/2021 (87% match)?",
		},
	}}
	agent := NewAntiAlucinacaoAgent(verifier)

	findings, err := agent.Evaluate(context.Background(),
		"segundo a Lei 14.333/2021", datatypes.DocumentContext{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("near miss should be the Legal agent's warning, got %+v", findings)
	}
}

func TestAntiAlucinacaoAgent_UntraceableMoneyIsCritical(t *testing.T) {
	agent := NewAntiAlucinacaoAgent(&fixtureVerifier{})
	docCtx := datatypes.DocumentContext{
		Objective: "Contratação de serviços de limpeza predial",
	}

	findings, err := agent.Evaluate(context.Background(),
		"O valor estimado da contratação é de R$ 980.000,00.", docCtx)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(findings) != 1 || findings[0].Severity != datatypes.SeverityCritical {
		t.Fatalf("findings = %+v, want one critical", findings)
	}
	if !strings.Contains(findings[0].Message, "980.000,00") {
		t.Errorf("message %q does not quote the claim", findings[0].Message)
	}
}

func TestAntiAlucinacaoAgent_TraceableFiguresPass(t *testing.T) {
	agent := NewAntiAlucinacaoAgent(&fixtureVerifier{})
	docCtx := datatypes.DocumentContext{
		Objective: "Orçamento estimado de R$ 150.000,00 com vigência até 31/12/2026 " +
			"e reajuste anual limitado a 5%",
	}

	findings, err := agent.Evaluate(context.Background(),
		"O valor de R$ 150.000,00 vigorará até 31/12/2026, com reajuste de 5%.", docCtx)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("traceable figures flagged: %+v", findings)
	}
}

func TestAntiAlucinacaoAgent_ZeroCentsMatchPlainContextForm(t *testing.T) {
	agent := NewAntiAlucinacaoAgent(&fixtureVerifier{})
	docCtx := datatypes.DocumentContext{
		Objective: "valor de referência de 150.000 reais",
	}

	findings, err := agent.Evaluate(context.Background(),
		"Estima-se o custo em R$ 150.000,00.", docCtx)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("default-cents figure flagged against its plain form: %+v", findings)
	}
}

func TestAntiAlucinacaoAgent_CitationNumbersAreNotClaims(t *testing.T) {
	verifier := &fixtureVerifier{results: map[string]datatypes.VerificationResult{
		"Lei 14.133/2021": exactMatch(true),
	}}
	agent := NewAntiAlucinacaoAgent(verifier)

	findings, err := agent.Evaluate(context.Background(),
		"Nos termos do art. 75, inciso II, da Lei 14.133/2021, dispensa-se a licitação.",
		datatypes.DocumentContext{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("citation numbering flagged as claims: %+v", findings)
	}
}

func TestAntiAlucinacaoAgent_VerifierFailureReturnsError(t *testing.T) {
	agent := NewAntiAlucinacaoAgent(&fixtureVerifier{err: fmt.Errorf("backend down")})

	_, err := agent.Evaluate(context.Background(),
		"conforme a Lei 14.133/2021", datatypes.DocumentContext{})
	if err == nil {
		t.Fatal("expected error when verifier fails")
	}
}
