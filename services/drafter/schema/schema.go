// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package schema maps section-type identifiers to validation rules.
//
// Schemas ship embedded in the binary and can be overridden from a schema
// directory. The registry is read-only after load; reloads build a complete
// candidate set, validate it, and swap it atomically, so readers never see
// a partially loaded registry.
package schema

import (
	"fmt"
	"regexp"
)

// Bounds every schema must satisfy. Violations are startup errors, never
// runtime errors: a registry with a bad schema refuses to load.
const (
	MinRetryBudget = 1
	MaxRetryBudget = 5
)

// SectionSchema holds the validation rules for one section type.
//
// # Description
//
// A schema bounds the generated text (length window), contributes
// section-specific forbidden patterns on top of the sanitizer's generic
// families, states whether the section is expected to carry visible
// structure (enumerations, paragraphs), and budgets the retry loop.
//
// Immutable once loaded. The registry hands out copies by value.
//
// # Fields
//
//   - Type: Section-type identifier, stored normalized (lowercase, trimmed).
//   - Version: Semantic version of the definition ("1.2.0"). When two files
//     define the same type, the higher version wins.
//   - Description: Human-readable description for registry inspection.
//   - MaxLength: Maximum content length in runes.
//   - MinLength: Minimum content length in runes.
//   - ForbiddenPatterns: Extra regex patterns rejected in this section's
//     content, compiled case-insensitively at load time.
//   - ExpectStructured: When true, content must show visible structure
//     (more than one paragraph, or an enumerated list).
//   - MaxRetries: Retry budget for the generation pipeline (1-5).
type SectionSchema struct {
	Type              string   `yaml:"type" json:"type"`
	Version           string   `yaml:"version,omitempty" json:"version,omitempty"`
	Description       string   `yaml:"description,omitempty" json:"description,omitempty"`
	MaxLength         int      `yaml:"max_length" json:"max_length"`
	MinLength         int      `yaml:"min_length" json:"min_length"`
	ForbiddenPatterns []string `yaml:"forbidden_patterns,omitempty" json:"forbidden_patterns,omitempty"`
	ExpectStructured  bool     `yaml:"expect_structured,omitempty" json:"expect_structured"`
	MaxRetries        int      `yaml:"max_retries" json:"max_retries"`

	// compiled holds the compiled ForbiddenPatterns, populated at load time
	// so validation never compiles regexes on the hot path.
	compiled []*regexp.Regexp
}

// Validate checks the schema invariants:
//
//	MaxLength > MinLength > 0
//	MinRetryBudget <= MaxRetries <= MaxRetryBudget
//	every forbidden pattern compiles
//
// Returns a descriptive error naming the schema type on the first violation.
func (s *SectionSchema) Validate() error {
	if s.Type == "" {
		return fmt.Errorf("schema with empty type")
	}
	if s.MinLength <= 0 {
		return fmt.Errorf("schema %q: min_length must be > 0, got %d", s.Type, s.MinLength)
	}
	if s.MaxLength <= s.MinLength {
		return fmt.Errorf("schema %q: max_length (%d) must be > min_length (%d)",
			s.Type, s.MaxLength, s.MinLength)
	}
	if s.MaxRetries < MinRetryBudget || s.MaxRetries > MaxRetryBudget {
		return fmt.Errorf("schema %q: max_retries must be in [%d,%d], got %d",
			s.Type, MinRetryBudget, MaxRetryBudget, s.MaxRetries)
	}
	for _, p := range s.ForbiddenPatterns {
		if _, err := regexp.Compile("(?i)" + p); err != nil {
			return fmt.Errorf("schema %q: invalid forbidden pattern %q: %w", s.Type, p, err)
		}
	}
	return nil
}

// compilePatterns compiles ForbiddenPatterns case-insensitively.
// Call after Validate; compile errors were already rejected there.
func (s *SectionSchema) compilePatterns() error {
	s.compiled = s.compiled[:0]
	for _, p := range s.ForbiddenPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return fmt.Errorf("schema %q: pattern %q: %w", s.Type, p, err)
		}
		s.compiled = append(s.compiled, re)
	}
	return nil
}

// CompiledPatterns returns the compiled per-schema forbidden patterns.
// Empty for schemas that declare none, never nil-unsafe to range over.
func (s *SectionSchema) CompiledPatterns() []*regexp.Regexp {
	return s.compiled
}

// DefaultSchema returns the fallback schema used for unknown section types.
//
// Unknown types degrade to generous bounds instead of erroring, so a typo
// in a section type still produces reviewable text. The generic forbidden
// families live in the sanitizer and apply regardless, hence no extra
// patterns here.
func DefaultSchema() SectionSchema {
	return SectionSchema{
		Type:        "default",
		Version:     "1.0.0",
		Description: "Fallback rules for unknown section types",
		MaxLength:   10000,
		MinLength:   50,
		MaxRetries:  2,
	}
}
