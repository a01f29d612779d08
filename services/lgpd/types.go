// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.
package lgpd

import (
	"fmt"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

type ConfidenceLevel string

const (
	Low    ConfidenceLevel = "low"
	Medium ConfidenceLevel = "medium"
	High   ConfidenceLevel = "high"
)

// ClassificationFile is the root of the embedded pattern catalog.
type ClassificationFile struct {
	ClassificationPatterns []Classification `yaml:"classifications"`
}

// Classification groups related detection patterns under one data category
// (e.g. dados_pessoais, sigilo_orcamentario). Higher priority categories are
// checked first by ClassifyData.
type Classification struct {
	Name             string           `yaml:"name"`
	Description      string           `yaml:"description"`
	Priority         int              `yaml:"priority"`
	Patterns         []Pattern        `yaml:"patterns"`
	CompiledPatterns []*regexp.Regexp `yaml:"-"`
}

// Pattern is one detection signature inside a classification.
type Pattern struct {
	ID              string          `yaml:"id"`
	Description     string          `yaml:"description"`
	Regex           string          `yaml:"regex"`
	Confidence      ConfidenceLevel `yaml:"confidence"`
	compiledPattern *regexp.Regexp  `yaml:"-"`
}

func (c *ConfidenceLevel) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	incoming := ConfidenceLevel(s)
	switch incoming {
	case High, Medium, Low:
		*c = incoming
		return nil
	default:
		return fmt.Errorf("invalid value for Confidence: %q", incoming)
	}
}

func (f *ClassificationFile) CompileRegexes() error {
	for i := range f.ClassificationPatterns {
		for j := range f.ClassificationPatterns[i].Patterns {
			pattern := &f.ClassificationPatterns[i].Patterns[j]
			re, err := regexp.Compile(pattern.Regex)
			if err != nil {
				return fmt.Errorf("failed to compile the regex %s: %w", pattern.Regex, err)
			}
			f.ClassificationPatterns[i].CompiledPatterns = append(f.ClassificationPatterns[i].
				CompiledPatterns, re)
			pattern.compiledPattern = re
		}
	}
	return nil
}

func (f *ClassificationFile) SortByPriority() {
	sort.Slice(f.ClassificationPatterns, func(i, j int) bool {
		return f.ClassificationPatterns[i].Priority > f.ClassificationPatterns[j].Priority
	})
}

// ScanFinding is one match produced by Engine.ScanContent, carrying enough
// context for a reviewer to decide whether the record may be ingested. The
// review fields (ReviewTimestamp, UserDecision, Reviewer) are filled in by
// the caller after the human decision, so the scan log doubles as an LGPD
// processing record.
type ScanFinding struct {
	Source             string          `json:"source"`
	LineNumber         int             `json:"line_number"`
	MatchedContent     string          `json:"matched_content"`
	ClassificationName string          `json:"classification_name"`
	PatternID          string          `json:"pattern_id"`
	PatternDescription string          `json:"pattern_description"`
	Confidence         ConfidenceLevel `json:"confidence"`
	ReviewTimestamp    int64           `json:"review_timestamp"`
	UserDecision       string          `json:"user_decision"`
	Reviewer           string          `json:"reviewer"`
}
