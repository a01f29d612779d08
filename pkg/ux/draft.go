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
// This file contains the drafting session UI: the header, prompts, and
// session summary shown around individual section generations. The
// per-section stream rendering lives in renderer.go; DraftUI owns the
// session-level chrome.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// =============================================================================
// Session Types
// =============================================================================

// HeaderConfig contains configuration for displaying the session header.
//
// # Description
//
// HeaderConfig groups all optional parameters for the drafting session
// header. This allows extending the header with new fields without
// breaking existing callers.
//
// # Fields
//
//   - ServerURL: The drafter endpoint being used.
//   - DocumentTitle: Title of the document under drafting. May be empty.
//   - DocumentType: Document kind ("etp", "tr", "edital"). May be empty.
//   - Organization: The contracting organ's name. May be empty.
//   - SchemaCount: Number of section schemas the server advertises (0 = unknown).
//   - Confidential: True when drafts are held under pre-publication secrecy.
type HeaderConfig struct {
	ServerURL     string
	DocumentTitle string
	DocumentType  string
	Organization  string
	SchemaCount   int
	Confidential  bool
}

// SessionStats aggregates metrics from a drafting session for display.
//
// # Description
//
// SessionStats captures accumulated metrics across all sections drafted
// in one session. It is displayed when the session ends, giving users
// visibility into acceptance rates and retry costs.
//
// # Fields
//
//   - SectionsDrafted: Number of sections generated
//   - Accepted: Sections whose runs ended accepted
//   - Failed: Sections whose runs exhausted the retry budget
//   - TotalAttempts: Drafting attempts consumed across all sections
//   - CriticalFindings: Critical findings across final attempts
//   - WarningFindings: Warning findings across final attempts
//   - Duration: Total session duration
//   - FirstDraftLatency: Time to the first completed section
type SessionStats struct {
	SectionsDrafted   int
	Accepted          int
	Failed            int
	TotalAttempts     int
	CriticalFindings  int
	WarningFindings   int
	Duration          time.Duration
	FirstDraftLatency time.Duration
}

// AddResult folds one completed generation run into the session stats.
func (s *SessionStats) AddResult(result *DraftResult) {
	if result == nil {
		return
	}
	s.SectionsDrafted++
	if result.Accepted() {
		s.Accepted++
	} else {
		s.Failed++
	}
	s.TotalAttempts += result.AttemptsUsed
	critical, warning, _ := result.CountFindings()
	s.CriticalFindings += critical
	s.WarningFindings += warning
}

// =============================================================================
// Draft UI Interface
// =============================================================================

// DraftUI defines the interface for drafting session UI operations.
// Implementations handle rendering session elements to different outputs.
type DraftUI interface {
	// HeaderWithConfig displays the session header with full configuration.
	HeaderWithConfig(config HeaderConfig)

	// Prompt returns the styled input prompt string for the next
	// section type to draft.
	Prompt() string

	// SectionQueued announces which section is about to be generated.
	SectionQueued(sectionType string)

	// Tip displays a drafting tip. Suppressed when the personality's
	// ShowTips is off or in machine mode.
	Tip(text string)

	// Error displays a session error message.
	Error(err error)

	// SessionEnd displays session end information without stats.
	SessionEnd()

	// SessionEndRich displays rich session end information with stats.
	//
	// Shows sections drafted, acceptance counts, attempts consumed, and
	// finding totals. Use this instead of SessionEnd when you have
	// accumulated stats.
	SessionEndRich(stats *SessionStats)
}

// terminalDraftUI implements DraftUI for terminal output
type terminalDraftUI struct {
	writer      io.Writer
	personality PersonalityLevel
	showTips    bool
}

// write is a helper that writes formatted output and handles errors.
// Errors are silently ignored as there's no meaningful recovery for
// terminal output.
func (u *terminalDraftUI) write(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(u.writer, format, args...); err != nil {
		return
	}
}

// writeln is a helper that writes a line and handles errors.
func (u *terminalDraftUI) writeln(args ...interface{}) {
	if _, err := fmt.Fprintln(u.writer, args...); err != nil {
		return
	}
}

// NewDraftUI creates a new terminal-based DraftUI
func NewDraftUI() DraftUI {
	p := GetPersonality()
	return &terminalDraftUI{
		writer:      os.Stdout,
		personality: p.Level,
		showTips:    p.ShowTips,
	}
}

// NewDraftUIWithWriter creates a DraftUI with a custom writer (for testing)
func NewDraftUIWithWriter(w io.Writer, personality PersonalityLevel) DraftUI {
	return &terminalDraftUI{
		writer:      w,
		personality: personality,
		showTips:    true,
	}
}

// =============================================================================
// Header
// =============================================================================

// HeaderWithConfig displays the drafting session header.
//
// # Description
//
// Renders the session header box with server, document metadata, and
// the confidentiality marker. Adapts output based on personality level.
func (u *terminalDraftUI) HeaderWithConfig(config HeaderConfig) {
	if u.personality == PersonalityMachine {
		u.headerMachine(config)
		return
	}

	if u.personality == PersonalityMinimal {
		u.headerMinimal(config)
		return
	}

	u.headerFull(config)
}

// headerMachine renders the header in machine-readable format.
func (u *terminalDraftUI) headerMachine(config HeaderConfig) {
	parts := []string{fmt.Sprintf("server=%s", config.ServerURL)}
	if config.DocumentType != "" {
		parts = append(parts, fmt.Sprintf("document_type=%s", config.DocumentType))
	}
	if config.DocumentTitle != "" {
		parts = append(parts, fmt.Sprintf("document=%q", config.DocumentTitle))
	}
	if config.Organization != "" {
		parts = append(parts, fmt.Sprintf("organization=%q", config.Organization))
	}
	if config.SchemaCount > 0 {
		parts = append(parts, fmt.Sprintf("schemas=%d", config.SchemaCount))
	}
	if config.Confidential {
		parts = append(parts, "confidential=true")
	}
	u.write("DRAFT_START: %s\n", strings.Join(parts, " "))
}

// headerMinimal renders the header in minimal format.
func (u *terminalDraftUI) headerMinimal(config HeaderConfig) {
	u.write("Licita drafting session (%s)\n", config.ServerURL)
	if config.DocumentTitle != "" {
		u.write("Document: %s\n", config.DocumentTitle)
	}
	if config.Confidential {
		u.writeln("Confidential: draft content is never logged.")
	}
	u.writeln("Type 'exit' to end.")
}

// headerFull renders the header with full styling.
func (u *terminalDraftUI) headerFull(config HeaderConfig) {
	var content strings.Builder
	content.WriteString(Styles.Highlight.Render("Licita Drafting Session"))
	content.WriteString("\n")
	content.WriteString(fmt.Sprintf("Server: %s", Styles.Success.Render(config.ServerURL)))

	if config.DocumentTitle != "" {
		content.WriteString("\n")
		if config.DocumentType != "" {
			content.WriteString(fmt.Sprintf("Document: %s %s",
				Styles.Success.Render(config.DocumentTitle),
				Styles.Muted.Render("("+strings.ToUpper(config.DocumentType)+")")))
		} else {
			content.WriteString(fmt.Sprintf("Document: %s", Styles.Success.Render(config.DocumentTitle)))
		}
	}

	if config.Organization != "" {
		content.WriteString("\n")
		content.WriteString(fmt.Sprintf("Organization: %s", Styles.Success.Render(config.Organization)))
	}

	if config.SchemaCount > 0 {
		content.WriteString("\n")
		content.WriteString(Styles.Muted.Render(fmt.Sprintf("%d section schemas available", config.SchemaCount)))
	}

	if config.Confidential {
		content.WriteString("\n")
		content.WriteString(fmt.Sprintf("%s %s", string(IconStamp),
			Styles.Warning.Render("Confidential: drafts held in locked memory, never logged")))
	}

	boxStyle := Styles.Box.Width(68)
	u.writeln(boxStyle.Render(content.String()))
	u.writeln()
	u.writeln(Styles.Muted.Render("Type a section name to draft it, 'exit' to end."))
	u.writeln()
}

// =============================================================================
// Prompts and Progress
// =============================================================================

// Prompt returns the styled input prompt string
func (u *terminalDraftUI) Prompt() string {
	if u.personality == PersonalityMachine {
		return "> "
	}
	return Styles.Highlight.Render(string(IconParagraph) + " ")
}

// SectionQueued announces the section about to be generated.
func (u *terminalDraftUI) SectionQueued(sectionType string) {
	switch u.personality {
	case PersonalityMachine:
		u.write("SECTION: %s\n", sectionType)
	case PersonalityMinimal:
		u.write("Drafting: %s\n", sectionType)
	default:
		u.write("%s %s\n", IconArrow.Render(),
			Styles.Subtitle.Render("Drafting "+sectionTitle(sectionType)))
	}
}

// Tip displays a drafting tip when tips are enabled.
func (u *terminalDraftUI) Tip(text string) {
	if u.personality == PersonalityMachine || !u.showTips {
		return
	}
	u.writeln(Styles.Muted.Render("tip: " + text))
}

// Error displays a session error message.
func (u *terminalDraftUI) Error(err error) {
	if err == nil {
		return
	}
	if u.personality == PersonalityMachine {
		u.write("ERROR: %s\n", err.Error())
		return
	}
	u.write("%s %s\n", IconError.Render(), Styles.Error.Render(err.Error()))
}

// =============================================================================
// Session End
// =============================================================================

// SessionEnd displays session end information without stats.
func (u *terminalDraftUI) SessionEnd() {
	if u.personality == PersonalityMachine {
		u.writeln("DRAFT_END")
		return
	}
	u.writeln("Session closed.")
}

// SessionEndRich displays rich session end information with statistics.
//
// # Description
//
// Displays a session summary including sections drafted, acceptance
// counts, attempts consumed, and finding totals. Falls back to
// SessionEnd when stats is nil.
func (u *terminalDraftUI) SessionEndRich(stats *SessionStats) {
	if stats == nil {
		u.SessionEnd()
		return
	}

	if u.personality == PersonalityMachine {
		u.write("DRAFT_END: sections=%d accepted=%d failed=%d attempts=%d duration=%s\n",
			stats.SectionsDrafted, stats.Accepted, stats.Failed,
			stats.TotalAttempts, stats.Duration.Round(time.Millisecond))
		return
	}

	if u.personality == PersonalityMinimal {
		u.writeln()
		u.write("Sections: %d | Accepted: %d | Failed: %d | Attempts: %d | Duration: %s\n",
			stats.SectionsDrafted, stats.Accepted, stats.Failed,
			stats.TotalAttempts, formatDuration(stats.Duration))
		u.writeln("Session closed.")
		return
	}

	u.writeln()

	var content strings.Builder
	content.WriteString(Styles.Subtitle.Render("Session Summary"))
	content.WriteString("\n\n")

	content.WriteString(fmt.Sprintf("  %s  %d sections drafted\n",
		string(IconParagraph), stats.SectionsDrafted))
	content.WriteString(fmt.Sprintf("  %s  %d accepted\n",
		IconSuccess.Render(), stats.Accepted))
	if stats.Failed > 0 {
		content.WriteString(fmt.Sprintf("  %s  %d needing manual repair\n",
			IconWarning.Render(), stats.Failed))
	}
	content.WriteString(fmt.Sprintf("  %s  %d drafting attempts consumed\n",
		IconBullet.Render(), stats.TotalAttempts))

	if stats.CriticalFindings > 0 || stats.WarningFindings > 0 {
		content.WriteString(fmt.Sprintf("  %s  %d critical, %d warning findings outstanding\n",
			string(IconScale), stats.CriticalFindings, stats.WarningFindings))
	}

	content.WriteString(fmt.Sprintf("  %s  %s session duration\n",
		IconPending.Render(), formatDuration(stats.Duration)))

	if stats.FirstDraftLatency > 0 {
		content.WriteString(fmt.Sprintf("  %s  %s to first completed section\n",
			IconPending.Render(), formatDuration(stats.FirstDraftLatency)))
	}

	boxStyle := Styles.Box.Width(68)
	u.writeln(boxStyle.Render(content.String()))
	u.writeln()
	u.writeln(Styles.Highlight.Render("Session closed."))
}

// =============================================================================
// Formatting Helpers
// =============================================================================

// formatDuration formats a duration for human-readable display.
//
// Adapts the format to the magnitude: "500ms", "5.0s", "1m 30s", "2h 0m".
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		secs := int(d.Seconds()) % 60
		if secs == 0 {
			return fmt.Sprintf("%dm", mins)
		}
		return fmt.Sprintf("%dm %ds", mins, secs)
	}
	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, mins)
}

// formatRelativeTime converts a Unix milliseconds timestamp to a
// relative time string like "2h ago" or "3 days ago". Times within the
// last minute return "just now"; times older than a month return the
// date.
func formatRelativeTime(unixMs int64) string {
	if unixMs == 0 {
		return "unknown"
	}

	t := time.UnixMilli(unixMs)
	diff := time.Since(t)

	if diff < time.Minute {
		return "just now"
	}
	if diff < time.Hour {
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 min ago"
		}
		return fmt.Sprintf("%d mins ago", mins)
	}
	if diff < 24*time.Hour {
		hours := int(diff.Hours())
		if hours == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hours)
	}
	if diff < 7*24*time.Hour {
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
	if diff < 30*24*time.Hour {
		weeks := int(diff.Hours() / (24 * 7))
		if weeks == 1 {
			return "1 week ago"
		}
		return fmt.Sprintf("%d weeks ago", weeks)
	}

	return t.Format("Jan 2, 2006")
}

// =============================================================================
// Compile-time Interface Check
// =============================================================================

var _ DraftUI = (*terminalDraftUI)(nil)
