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
// This file contains renderers that display generation stream events.
//
// Single Responsibility:
//
//	Renderers ONLY render. They receive parsed events and produce
//	terminal output. Reading and parsing live in reader.go/parser.go,
//	which keeps renderers trivially testable against a bytes.Buffer.
package ux

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Stream Renderer Interface
// =============================================================================

// StreamRenderer displays generation stream events as they arrive.
//
// The typical lifecycle is:
//
//	renderer := NewTerminalStreamRenderer(os.Stdout, GetPersonality().Level)
//	defer renderer.Finalize()
//
//	reader.Read(ctx, conn, func(event StreamEvent) error {
//	    switch event.Type {
//	    case StreamEventState:
//	        renderer.OnState(ctx, event.State, event.Attempt, event.Detail)
//	    case StreamEventResult:
//	        renderer.OnResult(ctx, event.Result)
//	    case StreamEventError:
//	        renderer.OnError(ctx, errors.New(event.Error))
//	    }
//	    return nil
//	})
//
//	result := renderer.Result()
type StreamRenderer interface {
	// OnState renders a pipeline state transition.
	//
	// In interactive mode, starts or updates a spinner with a
	// human-readable message for the state. In machine mode, prints
	// "STATE: {state} attempt={n}".
	//
	// Thread-safe. May be called concurrently with other methods.
	OnState(ctx context.Context, state string, attempt int, detail string)

	// OnResult renders the final section response.
	//
	// Stops spinners and displays the draft content, findings, and run
	// summary. This is typically the last On* method called (unless
	// OnError).
	OnResult(ctx context.Context, result *DraftResult)

	// OnError renders an error that occurred during streaming.
	//
	// Stops spinners and displays the error message.
	// After OnError, only Finalize() should be called.
	OnError(ctx context.Context, err error)

	// Finalize performs cleanup (stop spinners, flush output).
	//
	// MUST be called when streaming ends, even if abnormally.
	// Safe to call multiple times; subsequent calls are no-ops.
	// Typically called with defer immediately after creating renderer.
	Finalize()

	// Result returns the accumulated result after streaming completes.
	//
	// Contains the state trail, final draft, and timing metadata.
	// May be called before Finalize() to get partial results.
	Result() *StreamResult
}

// =============================================================================
// Terminal Stream Renderer
// =============================================================================

// terminalStreamRenderer renders generation events to an interactive
// terminal.
//
// This is the primary renderer for user-facing output. It provides a
// rich experience with spinners during pipeline states and a styled
// result display when the draft arrives.
//
// Personality Modes:
//
//   - PersonalityFull: Rich styling with colors, boxes, and icons
//   - PersonalityMinimal: Plain text with basic formatting
//   - PersonalityMachine: KEY: value format for scripting
//
// Thread Safety:
//
//	All methods are protected by a mutex. Safe for concurrent calls.
type terminalStreamRenderer struct {
	writer      io.Writer
	personality PersonalityLevel
	spinner     *Spinner
	result      *StreamResult
	mu          sync.Mutex
	finalized   bool
}

// NewTerminalStreamRenderer creates a renderer for interactive terminal
// output.
//
// Parameters:
//   - w: The output writer. If nil, defaults to os.Stdout.
//   - personality: Controls output styling. Use GetPersonality().Level
//     for the user's configured personality, or hardcode for specific
//     behavior.
//
// Returns:
//
//	A StreamRenderer that displays events interactively. The returned
//	renderer has an Id and CreatedAt already set on its internal result.
//
// Example:
//
//	// Use the user's configured personality
//	renderer := NewTerminalStreamRenderer(os.Stdout, GetPersonality().Level)
//	defer renderer.Finalize()
//
//	// Force machine-readable output
//	renderer := NewTerminalStreamRenderer(os.Stdout, PersonalityMachine)
func NewTerminalStreamRenderer(w io.Writer, personality PersonalityLevel) StreamRenderer {
	if w == nil {
		w = os.Stdout
	}
	return &terminalStreamRenderer{
		writer:      w,
		personality: personality,
		result: &StreamResult{
			Id:        uuid.New().String(),
			CreatedAt: time.Now().UnixMilli(),
		},
	}
}

// stateMessage converts a pipeline state to a human-readable progress
// message. Unknown states fall through as-is so new server states
// degrade to something displayable.
func stateMessage(state string, attempt int, detail string) string {
	var msg string
	switch state {
	case "drafting":
		if attempt > 1 {
			msg = fmt.Sprintf("Redrafting section (attempt %d)...", attempt)
		} else {
			msg = "Drafting section..."
		}
	case "sanitizing":
		msg = "Sanitizing draft..."
	case "scoring":
		msg = "Scoring draft with validation agents..."
	case "deciding":
		msg = "Evaluating findings..."
	case "retrying":
		msg = "Preparing retry with corrective guidance..."
	case "accepted":
		msg = "Draft accepted"
	case "failed":
		msg = "Retry budget exhausted"
	default:
		msg = state
	}
	if detail != "" {
		msg = fmt.Sprintf("%s (%s)", msg, detail)
	}
	return msg
}

// OnState renders a pipeline state transition.
//
// Behavior by personality:
//   - PersonalityFull/Minimal: Starts or updates a spinner with the
//     state's progress message. The spinner runs until the result or an
//     error arrives.
//   - PersonalityMachine: Prints "STATE: {state} attempt={n}\n"
//     immediately, with detail appended when present.
//
// Side Effects:
//   - Appends the state to result.States and bumps MaxAttempt
//   - Increments TotalEvents in result
//   - May start/update spinner (interactive modes)
func (r *terminalStreamRenderer) OnState(ctx context.Context, state string, attempt int, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return
	}

	r.result.TotalEvents++
	r.result.States = append(r.result.States, state)
	if attempt > r.result.MaxAttempt {
		r.result.MaxAttempt = attempt
	}
	if r.result.FirstEventAt == 0 {
		r.result.FirstEventAt = time.Now().UnixMilli()
	}

	if r.personality == PersonalityMachine {
		if detail != "" {
			fmt.Fprintf(r.writer, "STATE: %s attempt=%d detail=%s\n", state, attempt, detail)
		} else {
			fmt.Fprintf(r.writer, "STATE: %s attempt=%d\n", state, attempt)
		}
		return
	}

	message := stateMessage(state, attempt, detail)
	if r.spinner == nil {
		r.spinner = NewSpinner(message)
		r.spinner.Start()
	} else {
		r.spinner.UpdateMessage(message)
	}
}

// OnResult renders the final section response.
//
// Behavior by personality:
//   - PersonalityFull: Draft content in a box titled with the section
//     type, findings as icon-prefixed lines, then a severity summary
//     and attempt count.
//   - PersonalityMinimal: Plain content followed by finding lines.
//   - PersonalityMachine: "OUTCOME:", "ATTEMPTS:", one "FINDING:" line
//     per finding, then "CONTENT:" with the draft on a single logical
//     block, then "DONE".
//
// Side Effects:
//   - Stops spinner (interactive modes)
//   - Sets result.Result and CompletedAt
//   - Increments TotalEvents
func (r *terminalStreamRenderer) OnResult(ctx context.Context, result *DraftResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized || result == nil {
		return
	}

	r.result.TotalEvents++
	r.result.Result = result
	r.result.CompletedAt = time.Now().UnixMilli()

	r.stopSpinnerLocked()

	if r.personality == PersonalityMachine {
		fmt.Fprintf(r.writer, "OUTCOME: %s\n", result.Outcome)
		fmt.Fprintf(r.writer, "ATTEMPTS: %d\n", result.AttemptsUsed)
		if result.FailureReason != "" {
			fmt.Fprintf(r.writer, "FAILURE_REASON: %s\n", result.FailureReason)
		}
		for _, f := range result.Findings {
			fmt.Fprintf(r.writer, "FINDING: %s\t%s\t%s\n", f.Severity, f.AgentName, f.Message)
		}
		fmt.Fprintf(r.writer, "CONTENT: %s\n", result.Content)
		fmt.Fprintln(r.writer, "DONE")
		return
	}

	fmt.Fprintln(r.writer)

	if r.personality == PersonalityMinimal {
		fmt.Fprintln(r.writer, result.Content)
		r.renderFindingsLocked(result)
		return
	}

	// Full personality: boxed content with outcome in the title.
	outcomeIcon := IconSuccess
	if !result.Accepted() {
		outcomeIcon = IconWarning
	}
	title := fmt.Sprintf("%s %s", outcomeIcon.Render(),
		Styles.Title.Render(sectionTitle(result.SectionType)))

	boxStyle := Styles.Box.Width(76)
	fmt.Fprintln(r.writer, boxStyle.Render(title+"\n\n"+result.Content))

	r.renderFindingsLocked(result)
}

// sectionTitle renders a schema section type as a display title,
// capitalizing the first rune ("justificativa" -> "Justificativa").
func sectionTitle(sectionType string) string {
	if sectionType == "" {
		return "Section"
	}
	runes := []rune(sectionType)
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}

// renderFindingsLocked prints the finding list and the run summary.
// Caller must hold r.mu.
func (r *terminalStreamRenderer) renderFindingsLocked(result *DraftResult) {
	if len(result.Findings) > 0 {
		fmt.Fprintln(r.writer)
		for _, f := range result.Findings {
			icon := SeverityIcon(f.Severity)
			if r.personality == PersonalityMinimal {
				fmt.Fprintf(r.writer, "%s [%s] %s\n", icon.Render(), f.AgentName, f.Message)
				continue
			}
			fmt.Fprintf(r.writer, "%s %s %s\n", icon.Render(),
				Styles.Bold.Render("["+f.AgentName+"]"), f.Message)
			if f.SuggestedFix != "" {
				fmt.Fprintf(r.writer, "  %s %s\n", Styles.Muted.Render("fix:"),
					Styles.Muted.Render(f.SuggestedFix))
			}
		}
	}

	critical, warning, info := result.CountFindings()
	fmt.Fprintf(r.writer, "\n%s %s  %s %s  %s %s  %s\n",
		Styles.Error.Render(fmt.Sprintf("%d", critical)), Styles.Muted.Render("critical"),
		Styles.Warning.Render(fmt.Sprintf("%d", warning)), Styles.Muted.Render("warning"),
		Styles.Bold.Render(fmt.Sprintf("%d", info)), Styles.Muted.Render("info"),
		Styles.Muted.Render(fmt.Sprintf("(%d attempt(s))", result.AttemptsUsed)),
	)

	if !result.Accepted() && result.FailureReason != "" {
		fmt.Fprintf(r.writer, "%s %s\n", IconWarning.Render(),
			Styles.Warning.Render("Not accepted: "+result.FailureReason))
	}
}

// OnError renders an error that occurred during streaming.
//
// Behavior by personality:
//   - PersonalityFull/Minimal: Stops spinner, prints styled error line.
//   - PersonalityMachine: Prints "ERROR: {message}\n".
//
// Side Effects:
//   - Stops spinner (interactive modes)
//   - Sets result.Error and CompletedAt
//   - Increments TotalEvents
func (r *terminalStreamRenderer) OnError(ctx context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized || err == nil {
		return
	}

	r.result.TotalEvents++
	r.result.Error = err.Error()
	r.result.CompletedAt = time.Now().UnixMilli()

	r.stopSpinnerLocked()

	if r.personality == PersonalityMachine {
		fmt.Fprintf(r.writer, "ERROR: %s\n", err.Error())
		return
	}

	fmt.Fprintf(r.writer, "\n%s %s\n", IconError.Render(),
		Styles.Error.Render(err.Error()))
}

// Finalize performs cleanup.
//
// Stops any running spinner and marks the renderer finished. Subsequent
// On* calls become no-ops. Safe to call multiple times.
func (r *terminalStreamRenderer) Finalize() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return
	}
	r.finalized = true

	r.stopSpinnerLocked()

	if r.result.CompletedAt == 0 {
		r.result.CompletedAt = time.Now().UnixMilli()
	}
}

// Result returns the accumulated stream result.
func (r *terminalStreamRenderer) Result() *StreamResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// stopSpinnerLocked stops and clears the spinner. Caller must hold r.mu.
func (r *terminalStreamRenderer) stopSpinnerLocked() {
	if r.spinner != nil {
		r.spinner.Stop()
		r.spinner = nil
	}
}

// =============================================================================
// Compile-time Interface Check
// =============================================================================

var _ StreamRenderer = (*terminalStreamRenderer)(nil)
