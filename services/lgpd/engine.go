// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lgpd classifies text against the personal-data and budget-secrecy
// categories that matter when feeding public procurement corpora: dados
// pessoais under Lei 13.709/2018 (LGPD) and pre-publication estimated values
// under Lei 14.133/2021 art. 24. Legislation text itself is public, but
// scanned annexes and pasted records routinely drag in CPF numbers, contact
// details, and unredacted budget figures that must be reviewed before they
// enter a shared corpus.
package lgpd

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/LicitaAI/LicitaCore/services/lgpd/enforcement"
)

// Engine is the entry point for data classification operations. It holds the
// compiled rule set and provides methods to scan content against those rules.
type Engine struct {
	Classifiers []Classification
}

// NewEngine initializes an Engine from the pattern catalog embedded in the
// binary via the enforcement package.
//
// It performs the following operations:
// 1. Unmarshals the embedded YAML data.
// 2. Compiles all regex patterns.
// 3. Sorts classifications by priority.
//
// Returns an error if the embedded YAML is malformed or contains invalid regex.
func NewEngine() (*Engine, error) {
	var file ClassificationFile
	if err := yaml.Unmarshal(enforcement.DataClassificationPatterns, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the embedded pattern file: %w", err)
	}

	if err := file.CompileRegexes(); err != nil {
		return nil, fmt.Errorf("failed to compile a regex: %w", err)
	}

	file.SortByPriority()

	return &Engine{Classifiers: file.ClassificationPatterns}, nil
}

// ClassifyData performs a quick boolean check on a byte slice to determine
// its classification.
//
// It iterates through classifications by priority and returns the name of the
// *first* classification that matches the data. If no match is found, it
// returns "public".
//
// This is optimized for high-throughput categorization rather than detailed
// auditing.
func (e *Engine) ClassifyData(data []byte) string {
	for _, classifier := range e.Classifiers {
		for _, re := range classifier.CompiledPatterns {
			if re.Match(data) {
				return classifier.Name
			}
		}
	}
	return "public"
}

// ScanContent performs a comprehensive audit of a string.
//
// It splits the content into lines and checks every line against every
// pattern in the engine, capturing line numbers and the matched text for each
// hit. Matches whose structure can be arithmetically verified (CPF and CNPJ
// check digits) have their confidence upgraded, so a formatted but invalid
// number stays at the pattern's base confidence while a checksum-valid one is
// reported high.
//
// This function is intended for the ingestion review flow where detailed
// feedback is required.
func (e *Engine) ScanContent(content string) []ScanFinding {
	var findings []ScanFinding
	lines := strings.Split(content, "\n")
	for lineNum, line := range lines {
		for _, classifier := range e.Classifiers {
			for _, pattern := range classifier.Patterns {
				match := pattern.compiledPattern.FindString(line)
				if match == "" {
					continue
				}
				findings = append(findings, ScanFinding{
					LineNumber:         lineNum + 1,
					MatchedContent:     strings.TrimSpace(match),
					ClassificationName: classifier.Name,
					PatternID:          pattern.ID,
					PatternDescription: pattern.Description,
					Confidence:         refineConfidence(pattern.ID, match, pattern.Confidence),
				})
			}
		}
	}
	return findings
}

// refineConfidence upgrades a match's confidence when its check digits
// verify. Only CPF and CNPJ carry verifiable structure.
func refineConfidence(patternID, match string, base ConfidenceLevel) ConfidenceLevel {
	switch patternID {
	case "CPF":
		if IsValidCPF(match) {
			return High
		}
	case "CNPJ":
		if IsValidCNPJ(match) {
			return High
		}
	}
	return base
}

// onlyDigits strips every non-digit rune from s.
func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// allSameDigit reports whether every byte of a digit string is identical.
// Sequences like 111.111.111-11 satisfy the CPF arithmetic but are not
// issuable numbers.
func allSameDigit(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}

// IsValidCPF verifies the two check digits of a CPF (Cadastro de Pessoas
// Físicas). Formatting characters are ignored; the input must contain
// exactly 11 digits.
func IsValidCPF(s string) bool {
	digits := onlyDigits(s)
	if len(digits) != 11 || allSameDigit(digits) {
		return false
	}

	d := func(i int) int { return int(digits[i] - '0') }

	sum := 0
	for i := 0; i < 9; i++ {
		sum += d(i) * (10 - i)
	}
	if checkDigit(sum) != d(9) {
		return false
	}

	sum = 0
	for i := 0; i < 10; i++ {
		sum += d(i) * (11 - i)
	}
	return checkDigit(sum) == d(10)
}

// cnpjWeights are the multiplier sequences for the first and second CNPJ
// check digits. The second sequence is the first shifted right with a
// leading 6.
var (
	cnpjWeightsFirst  = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjWeightsSecond = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// IsValidCNPJ verifies the two check digits of a CNPJ (Cadastro Nacional da
// Pessoa Jurídica). Formatting characters are ignored; the input must
// contain exactly 14 digits.
func IsValidCNPJ(s string) bool {
	digits := onlyDigits(s)
	if len(digits) != 14 || allSameDigit(digits) {
		return false
	}

	d := func(i int) int { return int(digits[i] - '0') }

	sum := 0
	for i, w := range cnpjWeightsFirst {
		sum += d(i) * w
	}
	if checkDigit(sum) != d(12) {
		return false
	}

	sum = 0
	for i, w := range cnpjWeightsSecond {
		sum += d(i) * w
	}
	return checkDigit(sum) == d(13)
}

// checkDigit applies the modulo-11 rule shared by CPF and CNPJ: remainders
// below 2 yield 0, anything else yields the complement to 11.
func checkDigit(sum int) int {
	r := sum % 11
	if r < 2 {
		return 0
	}
	return 11 - r
}
