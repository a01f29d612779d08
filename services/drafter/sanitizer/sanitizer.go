// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sanitizer validates raw generated text against length bounds and
// forbidden-pattern families before the costlier scoring agents run.
//
// The sanitizer is a pure function over (text, schema): no I/O, no state
// mutation after construction, safe for concurrent use. All violations are
// collected in one pass rather than short-circuiting, so a failed attempt
// yields a complete diagnostic list for the retry prompt.
package sanitizer

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/LicitaAI/LicitaCore/services/drafter/schema"
	"gopkg.in/yaml.v3"
)

// embeddedPatterns holds the generic forbidden-pattern families baked into
// the binary at compile time, so the rules are immutable at runtime and
// travel with the executable.
//
//go:embed patterns.yaml
var embeddedPatterns []byte

// =============================================================================
// Pattern Configuration Types
// =============================================================================

// patternFile is the on-disk shape of a pattern definition file.
type patternFile struct {
	Families []Family `yaml:"families"`
}

// Family groups related forbidden patterns under one name. The name prefixes
// every violation message the family produces.
type Family struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Priority    int       `yaml:"priority"`
	Patterns    []Pattern `yaml:"patterns"`
}

// Pattern is one forbidden signature. Regexes compile case-insensitively.
type Pattern struct {
	Id          string `yaml:"id"`
	Description string `yaml:"description"`
	Regex       string `yaml:"regex"`

	compiled *regexp.Regexp
}

// compileFamilies compiles every pattern and sorts families from highest to
// lowest priority so violation lists keep a stable, severity-ish order.
func (f *patternFile) compileFamilies() error {
	for i := range f.Families {
		for j := range f.Families[i].Patterns {
			p := &f.Families[i].Patterns[j]
			re, err := regexp.Compile("(?i)" + p.Regex)
			if err != nil {
				return fmt.Errorf("family %q pattern %q: %w", f.Families[i].Name, p.Id, err)
			}
			p.compiled = re
		}
	}
	sort.SliceStable(f.Families, func(i, j int) bool {
		return f.Families[i].Priority > f.Families[j].Priority
	})
	return nil
}

// =============================================================================
// Sanitizer
// =============================================================================

// Outcome is the result of validating one piece of generated text.
// OK is true only when Violations is empty.
type Outcome struct {
	OK         bool     `json:"ok"`
	Violations []string `json:"violations,omitempty"`
}

// Sanitizer checks generated text against the generic pattern families plus
// a schema's own bounds and patterns.
//
// # Thread Safety
//
// Immutable after construction; safe for concurrent use.
type Sanitizer struct {
	families []Family
}

// New initializes a sanitizer from the embedded pattern file.
//
// Returns an error if the embedded YAML is malformed or a regex does not
// compile, which is a build defect and should abort startup.
func New() (*Sanitizer, error) {
	return NewFromBytes(embeddedPatterns)
}

// NewFromBytes initializes a sanitizer from caller-supplied YAML, letting
// tests and enterprise deployments substitute alternate pattern sets.
func NewFromBytes(data []byte) (*Sanitizer, error) {
	var file patternFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the pattern file: %w", err)
	}
	if len(file.Families) == 0 {
		return nil, fmt.Errorf("pattern file defines no families")
	}
	if err := file.compileFamilies(); err != nil {
		return nil, fmt.Errorf("failed to compile a pattern: %w", err)
	}
	return &Sanitizer{families: file.Families}, nil
}

// Families returns the loaded family names in priority order, for
// diagnostics and registry-style inspection endpoints.
func (s *Sanitizer) Families() []string {
	names := make([]string, 0, len(s.families))
	for _, f := range s.families {
		names = append(names, f.Name)
	}
	return names
}

// Validate checks text against the schema's length window, the generic
// pattern families, the schema's extra patterns, and the structural
// expectation. Every check runs; nothing short-circuits.
//
// Length is measured in runes, not bytes: Portuguese text is full of
// multi-byte characters and the bounds are meant for readers.
func (s *Sanitizer) Validate(text string, sch schema.SectionSchema) Outcome {
	var violations []string

	length := utf8.RuneCountInString(text)
	if length < sch.MinLength {
		violations = append(violations,
			fmt.Sprintf("content length %d below minimum %d", length, sch.MinLength))
	}
	if length > sch.MaxLength {
		violations = append(violations,
			fmt.Sprintf("content length %d exceeds maximum %d", length, sch.MaxLength))
	}

	for _, family := range s.families {
		for _, p := range family.Patterns {
			if p.compiled.MatchString(text) {
				violations = append(violations,
					fmt.Sprintf("%s: %s", family.Name, p.Description))
			}
		}
	}

	for i, re := range sch.CompiledPatterns() {
		if re.MatchString(text) {
			violations = append(violations,
				fmt.Sprintf("schema %s: forbidden pattern %q matched",
					sch.Type, sch.ForbiddenPatterns[i]))
		}
	}

	if sch.ExpectStructured && !looksStructured(text) {
		violations = append(violations,
			"structured content expected: use multiple paragraphs or an enumerated list")
	}

	return Outcome{OK: len(violations) == 0, Violations: violations}
}

// enumerationMarker matches list markers at line start: "1.", "2)", "a)",
// "I -", bullets, or the legal article form "Art. 5º".
var enumerationMarker = regexp.MustCompile(`(?mi)^\s*([0-9]+[.)]|[a-z]\)|[ivx]+\s*[-–]|[-•*]\s|art\.?\s*[0-9])`)

// looksStructured reports whether text shows visible structure: more than
// one non-empty paragraph, or at least one enumerated item.
func looksStructured(text string) bool {
	paragraphs := 0
	for _, block := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(block) != "" {
			paragraphs++
		}
	}
	if paragraphs > 1 {
		return true
	}
	return enumerationMarker.MatchString(text)
}
