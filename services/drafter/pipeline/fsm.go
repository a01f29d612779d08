// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/LicitaAI/LicitaCore/services/drafter/observability"
)

// =============================================================================
// States
// =============================================================================

// State is one phase of a generation run.
type State string

const (
	// StateDrafting builds the prompt and calls the generation backend.
	StateDrafting State = "drafting"

	// StateSanitizing validates the draft against the schema and the
	// forbidden-pattern families.
	StateSanitizing State = "sanitizing"

	// StateScoring fans the draft out to the agent panel.
	StateScoring State = "scoring"

	// StateDeciding applies the acceptance gate to the findings.
	StateDeciding State = "deciding"

	// StateRetrying re-enters drafting with an augmented prompt.
	StateRetrying State = "retrying"

	// StateAccepted is the successful terminal state.
	StateAccepted State = "accepted"

	// StateFailed is the exhausted terminal state. The run still returns the
	// last attempt's content and findings.
	StateFailed State = "failed"
)

// =============================================================================
// Transitions
// =============================================================================

type transition struct {
	from State
	to   State
}

// allowedTransitions enumerates every legal state change.
//
// Drafting can fail straight past Sanitizing when the provider errors.
// Only Deciding, Drafting, and Sanitizing may abort the run; Scoring always
// reaches Deciding because agent failures degrade to findings.
var allowedTransitions = buildTransitions()

func buildTransitions() map[transition]bool {
	transitions := []transition{
		{StateDrafting, StateSanitizing},
		{StateDrafting, StateRetrying},
		{StateDrafting, StateFailed},

		{StateSanitizing, StateScoring},
		{StateSanitizing, StateRetrying},
		{StateSanitizing, StateFailed},

		{StateScoring, StateDeciding},

		{StateDeciding, StateAccepted},
		{StateDeciding, StateRetrying},
		{StateDeciding, StateFailed},

		{StateRetrying, StateDrafting},
	}

	allowed := make(map[transition]bool, len(transitions))
	for _, t := range transitions {
		allowed[t] = true
	}
	return allowed
}

// CanTransition reports whether from -> to is a legal state change.
// Self-transitions are never legal.
func CanTransition(from, to State) bool {
	if from == to {
		return false
	}
	return allowedTransitions[transition{from: from, to: to}]
}

// IsTerminal reports whether the state ends the run.
func IsTerminal(s State) bool {
	return s == StateAccepted || s == StateFailed
}

// InvalidTransitionError reports an illegal state change. Reaching it means
// a pipeline bug, not bad input.
type InvalidTransitionError struct {
	From State
	To   State
}

// Error implements the error interface for InvalidTransitionError.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid pipeline transition: %s -> %s", e.From, e.To)
}

// =============================================================================
// Run-Scoped Machine
// =============================================================================

// Observer receives every state transition of one run as it happens. Used by
// the streaming handler to emit progress events. Called synchronously from
// the pipeline goroutine; implementations must not block.
type Observer func(state State, attempt int, detail string)

// machine tracks the current state of one generation run and notifies the
// observer on each transition. Owned by a single goroutine; not safe for
// concurrent use.
type machine struct {
	requestID string
	current   State
	enteredAt time.Time
	observer  Observer
}

func newMachine(requestID string, observer Observer) *machine {
	m := &machine{
		requestID: requestID,
		current:   StateDrafting,
		enteredAt: time.Now(),
		observer:  observer,
	}
	m.notify(1, "run started")
	return m
}

// to moves the machine to the next state, logging and notifying the
// observer. An illegal transition returns InvalidTransitionError and leaves
// the state unchanged.
func (m *machine) to(next State, attempt int, detail string) error {
	if !CanTransition(m.current, next) {
		return &InvalidTransitionError{From: m.current, To: next}
	}

	if metrics := observability.DefaultMetrics; metrics != nil {
		metrics.RecordStateDuration(string(m.current), time.Since(m.enteredAt).Seconds())
	}

	slog.Debug("pipeline transition",
		"request_id", m.requestID,
		"from", m.current,
		"to", next,
		"attempt", attempt,
		"detail", detail)

	m.current = next
	m.enteredAt = time.Now()
	m.notify(attempt, detail)
	return nil
}

func (m *machine) notify(attempt int, detail string) {
	if m.observer != nil {
		m.observer(m.current, attempt, detail)
	}
}
