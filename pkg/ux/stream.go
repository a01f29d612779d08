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
// This file contains the client-side event model for the drafter's
// generation stream. The drafter pushes one JSON message per pipeline
// state transition over a websocket, then a final message carrying the
// full section response (or an error object). The types here mirror
// the wire format so the CLI does not import server packages.
package ux

import (
	"fmt"
	"strings"
)

// =============================================================================
// Stream Event Types
// =============================================================================

// StreamEventType identifies the kind of message received on a
// generation stream.
type StreamEventType string

const (
	// StreamEventState is a pipeline state transition (drafting,
	// sanitizing, scoring, deciding, retrying, accepted, failed).
	StreamEventState StreamEventType = "state"

	// StreamEventResult is the final section response. Terminal.
	StreamEventResult StreamEventType = "result"

	// StreamEventError is a server-reported failure. Terminal.
	StreamEventError StreamEventType = "error"
)

// =============================================================================
// Client-Side Response Mirror
// =============================================================================

// FindingInfo is one validation finding attached to a draft, as reported
// by the drafter's scoring agents.
type FindingInfo struct {
	AgentName    string `json:"agent_name"`
	Severity     string `json:"severity"`
	Message      string `json:"message"`
	SuggestedFix string `json:"suggested_fix,omitempty"`
}

// DraftResult is the final payload of a generation run.
//
// Field names and JSON tags mirror the drafter's section response so
// the same struct decodes both the streaming final message and the
// plain POST response body.
type DraftResult struct {
	ResponseID       string        `json:"response_id"`
	RequestID        string        `json:"request_id"`
	Timestamp        int64         `json:"timestamp"`
	SectionType      string        `json:"section_type"`
	Content          string        `json:"content"`
	Findings         []FindingInfo `json:"findings"`
	AttemptsUsed     int           `json:"attempts_used"`
	Outcome          string        `json:"outcome"`
	FailureReason    string        `json:"failure_reason,omitempty"`
	ProcessingTimeMs int64         `json:"processing_time_ms,omitempty"`
}

// Accepted reports whether the run ended with an accepted draft.
func (r *DraftResult) Accepted() bool {
	return r.Outcome == "accepted"
}

// CountFindings tallies the result's findings per severity. The returned
// counts are critical, warning, info in that order.
func (r *DraftResult) CountFindings() (critical, warning, info int) {
	for _, f := range r.Findings {
		switch f.Severity {
		case "critical":
			critical++
		case "warning":
			warning++
		case "info":
			info++
		}
	}
	return critical, warning, info
}

// =============================================================================
// Stream Event
// =============================================================================

// StreamEvent is one parsed message from a generation stream.
//
// Exactly one of the payload field groups is populated, selected by Type:
//
//   - StreamEventState: State, Attempt, Detail
//   - StreamEventResult: Result
//   - StreamEventError: Error
//
// Fields:
//   - Type: The event kind.
//   - Index: Zero-based position in the stream, assigned by the reader.
//   - State: Pipeline state name for state events.
//   - Attempt: One-based drafting attempt the state belongs to.
//   - Detail: Optional human-readable detail for state events.
//   - Result: The final section response for result events.
//   - Error: Server error message for error events.
type StreamEvent struct {
	Type    StreamEventType
	Index   int
	State   string
	Attempt int
	Detail  string
	Result  *DraftResult
	Error   string
}

// IsTerminal returns true if this event ends the stream.
func (e *StreamEvent) IsTerminal() bool {
	return e.Type == StreamEventResult || e.Type == StreamEventError
}

// StreamCallback is invoked for each parsed stream event.
// Returning an error stops the stream read.
type StreamCallback func(event StreamEvent) error

// =============================================================================
// Aggregated Stream Result
// =============================================================================

// StreamResult aggregates a complete generation stream.
//
// Produced by StreamReader.ReadAll. Captures the state transitions seen,
// the final draft (when the run completed), and timing metadata for
// diagnostics.
//
// Fields:
//   - Id: Client-generated identifier for this stream consumption.
//   - CreatedAt: Unix milliseconds when reading started.
//   - FirstEventAt: Unix milliseconds when the first event arrived (0 if none).
//   - CompletedAt: Unix milliseconds when the stream ended.
//   - TotalEvents: Number of events received, terminal included.
//   - States: Pipeline state names in arrival order.
//   - MaxAttempt: Highest attempt number observed (0 if no state events).
//   - Result: The final draft, nil when the stream ended in error.
//   - Error: Server error message, empty on success.
type StreamResult struct {
	Id           string
	CreatedAt    int64
	FirstEventAt int64
	CompletedAt  int64
	TotalEvents  int
	States       []string
	MaxAttempt   int
	Result       *DraftResult
	Error        string
}

// Succeeded reports whether the stream delivered a final draft.
// A failed run outcome still counts as a delivered draft; only a missing
// result or a server error makes the stream itself unsuccessful.
func (r *StreamResult) Succeeded() bool {
	return r.Error == "" && r.Result != nil
}

// StatePath returns the state transitions as a comma-separated trail,
// e.g. "drafting, sanitizing, scoring, deciding, accepted".
func (r *StreamResult) StatePath() string {
	return strings.Join(r.States, ", ")
}

// DurationMs returns the stream's wall time in milliseconds, or 0 when
// timing was not captured.
func (r *StreamResult) DurationMs() int64 {
	if r.CompletedAt == 0 || r.CreatedAt == 0 {
		return 0
	}
	return r.CompletedAt - r.CreatedAt
}

// String renders a one-line diagnostic summary.
func (r *StreamResult) String() string {
	status := "ok"
	if r.Error != "" {
		status = "error"
	}
	return fmt.Sprintf("stream %s: %d events, states=[%s], %s",
		r.Id, r.TotalEvents, r.StatePath(), status)
}
