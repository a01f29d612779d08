// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux provides user experience components for the Licita CLI.
//
// This file contains interactive prompts built on charmbracelet/huh.
// The sensitive-content prompt runs before document context leaves the
// machine: fields that look like they carry personal data or sealed
// budget figures are surfaced so the user can redact them, send them
// anyway, or skip the field.
package ux

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
)

// =============================================================================
// Theme
// =============================================================================

// licitaTheme returns a huh theme styled with the Licita palette.
//
// Built on ThemeBase so unstyled elements keep huh's defaults; only the
// brand-relevant styles are overridden.
func licitaTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = t.Focused.Title.Foreground(ColorVerdeBright).Bold(true)
	t.Focused.Description = t.Focused.Description.Foreground(ColorGrafite)
	t.Focused.SelectSelector = t.Focused.SelectSelector.Foreground(ColorVerdePrimary)
	t.Focused.SelectedOption = t.Focused.SelectedOption.Foreground(ColorVerdeBright)
	t.Focused.FocusedButton = t.Focused.FocusedButton.Background(ColorVerdePrimary)
	t.Focused.ErrorMessage = t.Focused.ErrorMessage.Foreground(ColorError)

	t.Blurred.Title = t.Blurred.Title.Foreground(ColorGrafite)

	return t
}

// truncate shortens s to at most maxLen runes, appending "..." when
// content was cut. maxLen below 4 collapses to bare "...".
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}

// =============================================================================
// Generic Select Prompt
// =============================================================================

// PromptOption is one choice in a select prompt.
//
// Fields:
//   - Label: Display text for the option.
//   - Description: Optional secondary line shown under the label.
//   - Value: The value returned when this option is chosen.
//   - Recommended: Marks the option the CLI suggests; rendered with a
//     suffix and sorted first by callers that care.
type PromptOption struct {
	Label       string
	Description string
	Value       string
	Recommended bool
}

// SelectOption presents a styled select prompt and returns the chosen
// value.
//
// Returns an error when the terminal is non-interactive; callers should
// fall back to defaults or flags in that case.
func SelectOption(title string, options []PromptOption) (string, error) {
	if !IsInteractive() {
		return "", fmt.Errorf("cannot prompt: not an interactive terminal")
	}

	huhOptions := make([]huh.Option[string], 0, len(options))
	for _, opt := range options {
		label := opt.Label
		if opt.Recommended {
			label += " (recommended)"
		}
		if opt.Description != "" {
			label = fmt.Sprintf("%s - %s", label, opt.Description)
		}
		huhOptions = append(huhOptions, huh.NewOption(label, opt.Value))
	}

	var selected string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(title).
				Options(huhOptions...).
				Value(&selected),
		),
	).WithTheme(licitaTheme())

	if err := form.Run(); err != nil {
		return "", err
	}
	return selected, nil
}

// =============================================================================
// Sensitive Content Prompt
// =============================================================================

// SensitiveAction is the user's decision about a flagged context field.
type SensitiveAction string

const (
	// SensitiveActionSkip omits the flagged field from the request.
	SensitiveActionSkip SensitiveAction = "skip"

	// SensitiveActionRedact sends the field with flagged spans masked.
	SensitiveActionRedact SensitiveAction = "redact"

	// SensitiveActionProceed sends the field unchanged.
	SensitiveActionProceed SensitiveAction = "proceed"

	// SensitiveActionShowMore displays the full finding list before
	// asking again.
	SensitiveActionShowMore SensitiveAction = "show"
)

// SensitiveFinding is one flagged span inside a context field.
//
// Fields:
//   - LineNumber: 1-based line of the match within the field.
//   - PatternID: Stable identifier ("CPF", "CNPJ", "VALOR_SIGILOSO").
//   - PatternName: Human-readable pattern name.
//   - Confidence: "HIGH", "MEDIUM", or "LOW".
//   - Match: The matched text, possibly shortened for display.
//   - Reason: Why the pattern fired (checksum valid, keyword context).
type SensitiveFinding struct {
	LineNumber  int
	PatternID   string
	PatternName string
	Confidence  string
	Match       string
	Reason      string
}

// SensitivePromptOptions configures the sensitive-content prompt.
//
// Fields:
//   - FieldName: The context field being questioned ("objective",
//     "user_instructions", a prior section's name).
//   - ShowRedact: Offer the redact action.
//   - ShowForceSend: Offer sending the field unchanged.
//   - Findings: The flagged spans, in line order.
type SensitivePromptOptions struct {
	FieldName     string
	ShowRedact    bool
	ShowForceSend bool
	Findings      []SensitiveFinding
}

// PromptSensitiveField asks the user what to do with a flagged field.
//
// Non-interactive terminals get SensitiveActionSkip without prompting,
// so scripted runs never leak flagged content by default.
func PromptSensitiveField(opts SensitivePromptOptions) (SensitiveAction, error) {
	if !IsInteractive() {
		return SensitiveActionSkip, nil
	}

	summary := summarizeFindings(opts.Findings)

	actions := []huh.Option[string]{
		huh.NewOption("Skip this field", string(SensitiveActionSkip)),
	}
	if opts.ShowRedact {
		actions = append(actions, huh.NewOption("Redact flagged spans and send", string(SensitiveActionRedact)))
	}
	if opts.ShowForceSend {
		actions = append(actions, huh.NewOption("Send unchanged", string(SensitiveActionProceed)))
	}
	actions = append(actions, huh.NewOption("Show all findings", string(SensitiveActionShowMore)))

	var choice string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Sensitive content in %q", opts.FieldName)).
				Description(summary).
				Options(actions...).
				Value(&choice),
		),
	).WithTheme(licitaTheme())

	if err := form.Run(); err != nil {
		return SensitiveActionSkip, err
	}
	return SensitiveAction(choice), nil
}

// summarizeFindings builds the short description line shown above the
// action select: the first few findings, one per line.
func summarizeFindings(findings []SensitiveFinding) string {
	const maxShown = 3

	var b strings.Builder
	for i, f := range findings {
		if i >= maxShown {
			b.WriteString(fmt.Sprintf("...and %d more", len(findings)-maxShown))
			break
		}
		b.WriteString(fmt.Sprintf("line %d: %s (%s) %s\n",
			f.LineNumber, f.PatternName, f.Confidence, truncate(f.Match, 24)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatFindings renders the full finding list for the show-more path.
func FormatFindings(findings []SensitiveFinding) string {
	var b strings.Builder
	for _, f := range findings {
		b.WriteString(fmt.Sprintf("  line %-4d %-18s %-6s %s\n",
			f.LineNumber, f.PatternID, f.Confidence, truncate(f.Match, 40)))
		if f.Reason != "" {
			b.WriteString(fmt.Sprintf("            %s\n", f.Reason))
		}
	}
	return b.String()
}
