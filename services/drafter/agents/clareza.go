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
	"unicode/utf8"

	"github.com/LicitaAI/LicitaCore/services/drafter/datatypes"
)

// Readability thresholds. Administrative Portuguese tolerates long periods,
// so the word limit sits well above plain-language guidance.
const (
	maxSentenceWords   = 45
	longWordRunes      = 13
	denseLongWordShare = 0.4
	minDenseWords      = 15
	maxFixRunes        = 160
)

// sentenceEnd splits on terminal punctuation followed by whitespace, which
// keeps dotted numbers ("14.133") and most abbreviations intact.
var sentenceEnd = regexp.MustCompile(`[.!?]+(\s+|$)`)

// ClarezaAgent flags sentences a reader will struggle through: too many
// words, or a high share of long words. Findings are Info; style never
// blocks acceptance.
type ClarezaAgent struct{}

func NewClarezaAgent() *ClarezaAgent { return &ClarezaAgent{} }

func (a *ClarezaAgent) Name() string { return datatypes.AgentClareza }

func (a *ClarezaAgent) Evaluate(ctx context.Context, content string, docCtx datatypes.DocumentContext) ([]datatypes.Finding, error) {
	_, span := tracer.Start(ctx, "ClarezaAgent.Evaluate")
	defer span.End()

	var findings []datatypes.Finding
	for _, sentence := range splitSentences(content) {
		words := strings.Fields(sentence)
		if len(words) > maxSentenceWords {
			findings = append(findings, datatypes.Finding{
				AgentName: a.Name(),
				Severity:  datatypes.SeverityInfo,
				Message: fmt.Sprintf("sentence with %d words exceeds the %d-word readability limit; split it",
					len(words), maxSentenceWords),
				SuggestedFix: truncateForFix(sentence),
			})
			continue
		}

		if len(words) >= minDenseWords && longWordShare(words) > denseLongWordShare {
			findings = append(findings, datatypes.Finding{
				AgentName:    a.Name(),
				Severity:     datatypes.SeverityInfo,
				Message:      "sentence is dense with long words; prefer shorter terms or split the idea",
				SuggestedFix: truncateForFix(sentence),
			})
		}
	}
	return findings, nil
}

func splitSentences(text string) []string {
	parts := sentenceEnd.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func longWordShare(words []string) float64 {
	long := 0
	for _, w := range words {
		if utf8.RuneCountInString(w) >= longWordRunes {
			long++
		}
	}
	return float64(long) / float64(len(words))
}

// truncateForFix bounds the quoted sentence so findings stay readable.
func truncateForFix(sentence string) string {
	if utf8.RuneCountInString(sentence) <= maxFixRunes {
		return sentence
	}
	runes := []rune(sentence)
	return string(runes[:maxFixRunes]) + "..."
}
