// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux provides rich terminal output styling for the Licita CLI.
package ux

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Licita color palette - institutional greens and document golds
var (
	// Primary palette (brightest to darkest)
	ColorVerdeBright  = lipgloss.Color("#2EC27E") // Bright green - highlights, success
	ColorVerdePrimary = lipgloss.Color("#26A269") // Primary green - main brand color
	ColorVerdeDeep    = lipgloss.Color("#1F8554") // Deep green - borders, accents
	ColorVerdeForest  = lipgloss.Color("#186B44") // Forest green - subtle accents

	// Accent palette (seals, signatures, stamped text)
	ColorOuro     = lipgloss.Color("#E5A50A") // Gold - attention, seals
	ColorOuroDeep = lipgloss.Color("#C88F06") // Deep gold - warning borders
	ColorAzul     = lipgloss.Color("#1A5FB4") // Blue - links, references

	// Dark palette (for backgrounds, muted elements)
	ColorGrafite = lipgloss.Color("#3D4A4D") // Graphite - muted text, borders
	ColorCarvao  = lipgloss.Color("#1E2426") // Charcoal - near black

	// Semantic colors (keeping standard conventions for clarity)
	ColorSuccess = lipgloss.Color("#2EC27E") // Bright green for success
	ColorWarning = lipgloss.Color("#E5A50A") // Gold for warnings
	ColorError   = lipgloss.Color("#C01C28") // Red for errors
	ColorMuted   = lipgloss.Color("#3D4A4D") // Graphite for muted text
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	// Text styles
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	// Box styles
	Box        lipgloss.Style
	InfoBox    lipgloss.Style
	WarningBox lipgloss.Style
	ErrorBox   lipgloss.Style

	// Status indicators
	StatusOK      lipgloss.Style
	StatusWarning lipgloss.Style
	StatusError   lipgloss.Style
	StatusPending lipgloss.Style
}{
	// Text styles
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorVerdeBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorVerdePrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorGrafite),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorVerdeBright).Bold(true),

	// Box styles
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorVerdeDeep).
		Padding(0, 1),
	InfoBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorVerdePrimary).
		Padding(0, 1),
	WarningBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorOuroDeep).
		Padding(0, 1),
	ErrorBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorError).
		Padding(0, 1),

	// Status indicators
	StatusOK:      lipgloss.NewStyle().SetString("✓").Foreground(ColorSuccess),
	StatusWarning: lipgloss.NewStyle().SetString("⚠").Foreground(ColorWarning),
	StatusError:   lipgloss.NewStyle().SetString("✗").Foreground(ColorError),
	StatusPending: lipgloss.NewStyle().SetString("○").Foreground(ColorGrafite),
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess   Icon = "✓"
	IconWarning   Icon = "⚠"
	IconError     Icon = "✗"
	IconPending   Icon = "○"
	IconArrow     Icon = "→"
	IconBullet    Icon = "•"
	IconScale     Icon = "⚖"
	IconParagraph Icon = "§"
	IconStamp     Icon = "◈"
)

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconPending:
		return Styles.Muted.Render(string(i))
	default:
		return string(i)
	}
}

// SeverityIcon maps a finding severity string to its status icon.
// Unknown severities render as pending.
func SeverityIcon(severity string) Icon {
	switch severity {
	case "critical":
		return IconError
	case "warning":
		return IconWarning
	case "info":
		return IconBullet
	default:
		return IconPending
	}
}

// Print helpers that respect personality level

// Title prints a styled title
func Title(text string) {
	if GetPersonality().Level == PersonalityMachine {
		return
	}
	fmt.Println(Styles.Title.Render(text))
}

// Success prints a success message with checkmark
func Success(text string) {
	p := GetPersonality()
	switch p.Level {
	case PersonalityMachine:
		fmt.Fprintf(os.Stdout, "OK: %s\n", text)
	case PersonalityMinimal:
		fmt.Printf("%s %s\n", IconSuccess.Render(), text)
	default:
		fmt.Printf("%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
	}
}

// Warning prints a warning message
func Warning(text string) {
	p := GetPersonality()
	switch p.Level {
	case PersonalityMachine:
		fmt.Fprintf(os.Stderr, "WARN: %s\n", text)
	case PersonalityMinimal:
		fmt.Printf("%s %s\n", IconWarning.Render(), text)
	default:
		fmt.Printf("%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
	}
}

// Error prints an error message
func Error(text string) {
	p := GetPersonality()
	switch p.Level {
	case PersonalityMachine:
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", text)
	case PersonalityMinimal:
		fmt.Printf("%s %s\n", IconError.Render(), text)
	default:
		fmt.Printf("%s %s\n", IconError.Render(), Styles.Error.Render(text))
	}
}

// Info prints an informational message
func Info(text string) {
	p := GetPersonality()
	switch p.Level {
	case PersonalityMachine:
		fmt.Println(text)
	default:
		fmt.Printf("%s %s\n", Styles.Muted.Render("│"), text)
	}
}

// Muted prints muted/secondary text
func Muted(text string) {
	if GetPersonality().Level == PersonalityMachine {
		return
	}
	fmt.Println(Styles.Muted.Render(text))
}

// Box prints text in a rounded box
func Box(title, content string) {
	if GetPersonality().Level == PersonalityMachine {
		fmt.Printf("%s: %s\n", title, content)
		return
	}
	boxStyle := Styles.Box.Width(72)
	titleLine := Styles.Title.Render(title)
	fmt.Println(boxStyle.Render(titleLine + "\n" + content))
}

// WarningBox prints text in a warning-styled box
func WarningBox(title, content string) {
	if GetPersonality().Level == PersonalityMachine {
		fmt.Fprintf(os.Stderr, "WARN %s: %s\n", title, content)
		return
	}
	boxStyle := Styles.WarningBox.Width(72)
	titleLine := Styles.Warning.Bold(true).Render(title)
	fmt.Println(boxStyle.Render(titleLine + "\n" + content))
}

// FindingStatus prints one validation finding as an agent-prefixed line
func FindingStatus(agent, severity, message string) {
	p := GetPersonality()
	icon := SeverityIcon(severity)
	switch p.Level {
	case PersonalityMachine:
		fmt.Printf("%s\t%s\t%s\n", severity, agent, message)
	case PersonalityMinimal:
		fmt.Printf("%s [%s] %s\n", icon.Render(), agent, message)
	default:
		fmt.Printf("%s %s %s\n", icon.Render(), Styles.Bold.Render("["+agent+"]"), message)
	}
}

// Summary prints a finding-count summary line for a generation run
func Summary(critical, warning, info int) {
	p := GetPersonality()
	switch p.Level {
	case PersonalityMachine:
		fmt.Printf("SUMMARY: critical=%d warning=%d info=%d\n", critical, warning, info)
	default:
		fmt.Printf("\n%s %s  %s %s  %s %s\n",
			Styles.Error.Render(fmt.Sprintf("%d", critical)), Styles.Muted.Render("critical"),
			Styles.Warning.Render(fmt.Sprintf("%d", warning)), Styles.Muted.Render("warning"),
			Styles.Bold.Render(fmt.Sprintf("%d", info)), Styles.Muted.Render("info"),
		)
	}
}

// ProgressBar renders a simple progress bar
func ProgressBar(current, total int, width int) string {
	if GetPersonality().Level == PersonalityMachine {
		return fmt.Sprintf("%d/%d", current, total)
	}
	pct := float64(current) / float64(total)
	filled := int(pct * float64(width))
	empty := width - filled

	bar := Styles.Success.Render(repeatChar('█', filled)) +
		Styles.Muted.Render(repeatChar('░', empty))

	return fmt.Sprintf("%s %3.0f%%", bar, pct*100)
}

func repeatChar(c rune, n int) string {
	if n <= 0 {
		return ""
	}
	result := make([]rune, n)
	for i := range result {
		result[i] = c
	}
	return string(result)
}
