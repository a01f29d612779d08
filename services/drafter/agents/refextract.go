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
	"regexp"
	"strconv"
	"strings"

	"github.com/LicitaAI/LicitaCore/pkg/validation"
)

// Candidate is one reference-looking substring found in draft text.
//
// Ref is meaningful only when Err is nil. A non-nil Err means the substring
// has the shape of a reference but cannot name a real norm (unknown type
// spelling, impossible year), which is itself a finding for the agents.
type Candidate struct {
	Raw string
	Ref validation.Reference
	Err error
}

// finderPattern locates reference-looking substrings in running prose.
// Longer type spellings come first: Go regexps are leftmost-first, so "lei"
// must not shadow "lei complementar". The optional long-date form accepts
// "nº 65, de 7 de julho de 2021".
var finderPattern = regexp.MustCompile(
	`(?i)\b(lei complementar|instru[çc][ãa]o normativa|medida provis[óo]ria` +
		`|decreto[- ]lei|lei federal|decreto federal|resolu[çc][ãa]o|portaria` +
		`|decreto|lei|mp|lc|in)` +
		`\s+(?:n[º°o.]*\s*)?` +
		`([0-9]{1,3}(?:\.?[0-9]{3})*)` +
		`\s*(?:/|,?\s*de(?:\s+[0-9]{1,2}º?\s+de\s+[a-zà-ú]+\s+de)?\s+)\s*` +
		`([0-9]{4})\b`)

// ExtractReferences finds legal references in text, normalized and deduped,
// in order of first occurrence.
//
// # Description
//
// Each match is validated component-wise: the type spelling resolved to its
// canonical form, the number re-dotted, the year bounds-checked. Valid
// candidates dedupe by normalized reference, so "Lei 14.133/2021" and
// "lei nº 14.133, de 2021" count once. Malformed candidates (Err set)
// dedupe by their lowercased raw text.
func ExtractReferences(text string) []Candidate {
	matches := finderPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	var (
		out       []Candidate
		seenRefs  = make(map[validation.Reference]bool)
		seenBroke = make(map[string]bool)
	)
	for _, m := range matches {
		raw := strings.TrimSpace(m[0])

		year, convErr := strconv.Atoi(m[3])
		if convErr != nil {
			// Unreachable with the pattern above; guard anyway.
			continue
		}

		ref, err := validation.ValidateReference(m[1], m[2], year)
		if err != nil {
			key := strings.ToLower(raw)
			if seenBroke[key] {
				continue
			}
			seenBroke[key] = true
			out = append(out, Candidate{Raw: raw, Err: err})
			continue
		}

		if seenRefs[ref] {
			continue
		}
		seenRefs[ref] = true
		out = append(out, Candidate{Raw: raw, Ref: ref})
	}
	return out
}
