// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that end up in
// vector-store queries, Flux queries, or file paths. Using these validators
// prevents injection attacks (GraphQL/Flux injection, path traversal) and
// keeps legal references in a single canonical shape across the codebase.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ReferenceType is the normalized kind of a Brazilian legal norm.
type ReferenceType string

const (
	TypeLei                ReferenceType = "LEI"
	TypeLeiComplementar    ReferenceType = "LEI_COMPLEMENTAR"
	TypeDecreto            ReferenceType = "DECRETO"
	TypeDecretoLei         ReferenceType = "DECRETO_LEI"
	TypeMedidaProvisoria   ReferenceType = "MEDIDA_PROVISORIA"
	TypeInstrucaoNormativa ReferenceType = "INSTRUCAO_NORMATIVA"
	TypePortaria           ReferenceType = "PORTARIA"
	TypeResolucao          ReferenceType = "RESOLUCAO"
)

// typeAliases maps user-facing spellings to normalized types. Keys are
// lowercase with accents stripped the way stripAccents produces them.
var typeAliases = map[string]ReferenceType{
	"lei":                 TypeLei,
	"lei federal":         TypeLei,
	"lei complementar":    TypeLeiComplementar,
	"lc":                  TypeLeiComplementar,
	"decreto":             TypeDecreto,
	"decreto federal":     TypeDecreto,
	"decreto-lei":         TypeDecretoLei,
	"decreto lei":         TypeDecretoLei,
	"medida provisoria":   TypeMedidaProvisoria,
	"mp":                  TypeMedidaProvisoria,
	"instrucao normativa": TypeInstrucaoNormativa,
	"in":                  TypeInstrucaoNormativa,
	"portaria":            TypePortaria,
	"resolucao":           TypeResolucao,
}

// displayNames maps normalized types back to the spelling used in drafted
// documents and suggestions.
var displayNames = map[ReferenceType]string{
	TypeLei:                "Lei",
	TypeLeiComplementar:    "Lei Complementar",
	TypeDecreto:            "Decreto",
	TypeDecretoLei:         "Decreto-Lei",
	TypeMedidaProvisoria:   "Medida Provisória",
	TypeInstrucaoNormativa: "Instrução Normativa",
	TypePortaria:           "Portaria",
	TypeResolucao:          "Resolução",
}

// numberPattern matches norm numbers like "14133", "14.133", "10.024".
// Up to nine digits with optional thousands separators.
var numberPattern = regexp.MustCompile(`^[0-9]{1,3}(\.?[0-9]{3})*$`)

// firstLegalYear is the earliest year accepted for a norm. The Imperial
// Constitution of 1824 is the oldest norm anyone cites in procurement text.
const firstLegalYear = 1824

// Reference is a parsed, normalized legal reference.
type Reference struct {
	Type   ReferenceType
	Number string
	Year   int
}

// String formats the reference the way it appears in documents,
// e.g. "Lei 14.133/2021".
func (r Reference) String() string {
	name, ok := displayNames[r.Type]
	if !ok {
		name = string(r.Type)
	}
	return fmt.Sprintf("%s %s/%d", name, r.Number, r.Year)
}

// Canonical returns the query string used for embedding lookups,
// e.g. "lei 14.133/2021". Lowercase so equal references embed equally.
func (r Reference) Canonical() string {
	return strings.ToLower(r.String())
}

// NormalizeType resolves a user-facing norm type spelling ("Lei", "LEI",
// "decreto-lei", "IN") to its ReferenceType.
//
// Returns an error for unknown spellings. Matching ignores case, accents,
// and surrounding whitespace.
func NormalizeType(s string) (ReferenceType, error) {
	key := strings.ToLower(strings.TrimSpace(stripAccents(s)))
	if key == "" {
		return "", fmt.Errorf("norm type cannot be empty")
	}
	if t, ok := typeAliases[key]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown norm type: %q", s)
}

// ValidateNumber validates a norm number to keep it safe for store queries.
//
// Valid numbers:
//   - 1-9 digits
//   - optional "." thousands separators ("14.133")
//
// Returns an error if the number is invalid.
//
// Example:
//
//	if err := validation.ValidateNumber(number); err != nil {
//	    return nil, fmt.Errorf("invalid norm number: %w", err)
//	}
func ValidateNumber(number string) error {
	if number == "" {
		return fmt.Errorf("norm number cannot be empty")
	}
	if !numberPattern.MatchString(number) {
		return fmt.Errorf("invalid norm number format: %q (digits with optional thousands separators)", number)
	}
	return nil
}

// ValidateYear validates a norm year. Accepts 1824 through next year;
// norms are occasionally cited before they enter into force.
func ValidateYear(year int) error {
	max := time.Now().Year() + 1
	if year < firstLegalYear || year > max {
		return fmt.Errorf("invalid norm year: %d (expected %d-%d)", year, firstLegalYear, max)
	}
	return nil
}

// NormalizeNumber strips thousands separators and re-inserts them in the
// standard position, so "14133" and "14.133" compare equal.
func NormalizeNumber(number string) string {
	digits := strings.ReplaceAll(strings.TrimSpace(number), ".", "")
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	rem := len(digits) % 3
	if rem > 0 {
		b.WriteString(digits[:rem])
	}
	for i := rem; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// referencePattern parses free-form references like "Lei 14.133/2021",
// "lei nº 14.133, de 2021", "Decreto-Lei 200/1967", "IN 65/2021".
var referencePattern = regexp.MustCompile(
	`(?i)^\s*([a-zà-ú][a-zà-ú .\-]*?)\s+(?:n[º°o.]*\s*)?([0-9]{1,3}(?:\.?[0-9]{3})*)\s*(?:/|,?\s*de\s+)\s*([0-9]{4})\s*$`)

// ParseReference parses a single textual reference into its normalized form.
//
// Returns an error when the text does not look like a reference, names an
// unknown norm type, or carries an invalid number or year.
//
// Example:
//
//	ref, err := validation.ParseReference("Lei nº 14.133, de 2021")
//	// ref == Reference{Type: TypeLei, Number: "14.133", Year: 2021}
func ParseReference(text string) (Reference, error) {
	m := referencePattern.FindStringSubmatch(text)
	if m == nil {
		return Reference{}, fmt.Errorf("not a legal reference: %q", text)
	}

	refType, err := NormalizeType(m[1])
	if err != nil {
		return Reference{}, err
	}

	number := NormalizeNumber(m[2])
	if err := ValidateNumber(number); err != nil {
		return Reference{}, err
	}

	year, err := strconv.Atoi(m[3])
	if err != nil {
		return Reference{}, fmt.Errorf("invalid norm year: %q", m[3])
	}
	if err := ValidateYear(year); err != nil {
		return Reference{}, err
	}

	return Reference{Type: refType, Number: number, Year: year}, nil
}

// ValidateReference checks all three components of an already-split
// reference. Use this on handler inputs before they reach a store query.
func ValidateReference(refType string, number string, year int) (Reference, error) {
	t, err := NormalizeType(refType)
	if err != nil {
		return Reference{}, err
	}
	number = NormalizeNumber(number)
	if err := ValidateNumber(number); err != nil {
		return Reference{}, err
	}
	if err := ValidateYear(year); err != nil {
		return Reference{}, err
	}
	return Reference{Type: t, Number: number, Year: year}, nil
}

// accentReplacer folds the accented characters that appear in norm type
// names. Full Unicode folding is not needed for this fixed vocabulary.
var accentReplacer = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "ô", "o", "õ", "o",
	"ú", "u",
	"ç", "c",
	"Á", "A", "À", "A", "Â", "A", "Ã", "A",
	"É", "E", "Ê", "E",
	"Í", "I",
	"Ó", "O", "Ô", "O", "Õ", "O",
	"Ú", "U",
	"Ç", "C",
)

func stripAccents(s string) string {
	return accentReplacer.Replace(s)
}
