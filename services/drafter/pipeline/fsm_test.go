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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStates = []State{
	StateDrafting, StateSanitizing, StateScoring, StateDeciding,
	StateRetrying, StateAccepted, StateFailed,
}

// =============================================================================
// Test: Transition Table
// =============================================================================

// TestCanTransition_AllowedPaths verifies every legal state change.
func TestCanTransition_AllowedPaths(t *testing.T) {
	allowed := []struct {
		from State
		to   State
	}{
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

	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to),
			"%s -> %s should be legal", tc.from, tc.to)
	}
}

// TestCanTransition_DeniedPaths verifies representative illegal changes.
//
// # Description
//
// Scoring may not abort the run (agent failures degrade to findings), no
// state skips ahead, and terminal states have no exits.
func TestCanTransition_DeniedPaths(t *testing.T) {
	denied := []struct {
		from State
		to   State
	}{
		{StateScoring, StateRetrying},
		{StateScoring, StateFailed},
		{StateDrafting, StateScoring},
		{StateDrafting, StateAccepted},
		{StateSanitizing, StateDeciding},
		{StateSanitizing, StateAccepted},
		{StateRetrying, StateSanitizing},
		{StateAccepted, StateDrafting},
		{StateFailed, StateDrafting},
		{StateAccepted, StateFailed},
	}

	for _, tc := range denied {
		assert.False(t, CanTransition(tc.from, tc.to),
			"%s -> %s should be illegal", tc.from, tc.to)
	}
}

// TestCanTransition_SelfTransitionsAreIllegal verifies no state loops on
// itself.
func TestCanTransition_SelfTransitionsAreIllegal(t *testing.T) {
	for _, s := range allStates {
		assert.False(t, CanTransition(s, s), "%s -> %s should be illegal", s, s)
	}
}

// TestIsTerminal verifies only Accepted and Failed end the run.
func TestIsTerminal(t *testing.T) {
	for _, s := range allStates {
		expected := s == StateAccepted || s == StateFailed
		assert.Equal(t, expected, IsTerminal(s), "IsTerminal(%s)", s)
	}
}

// =============================================================================
// Test: Run-Scoped Machine
// =============================================================================

type recordedEvent struct {
	state   State
	attempt int
	detail  string
}

// recordEvents returns an observer that appends every notification.
func recordEvents(events *[]recordedEvent) Observer {
	return func(state State, attempt int, detail string) {
		*events = append(*events, recordedEvent{state: state, attempt: attempt, detail: detail})
	}
}

// TestMachine_StartsInDrafting verifies initial state and notification.
func TestMachine_StartsInDrafting(t *testing.T) {
	var events []recordedEvent
	m := newMachine("req-1", recordEvents(&events))

	assert.Equal(t, StateDrafting, m.current, "Machine should start in drafting")
	require.Len(t, events, 1, "Construction should notify once")
	assert.Equal(t, recordedEvent{StateDrafting, 1, "run started"}, events[0],
		"Initial event should announce the run")
}

// TestMachine_To_LegalTransition verifies state change and notification.
func TestMachine_To_LegalTransition(t *testing.T) {
	var events []recordedEvent
	m := newMachine("req-1", recordEvents(&events))

	err := m.to(StateSanitizing, 1, "draft complete")
	require.NoError(t, err, "Legal transition should succeed")
	assert.Equal(t, StateSanitizing, m.current, "State should advance")

	require.Len(t, events, 2, "Transition should notify")
	assert.Equal(t, recordedEvent{StateSanitizing, 1, "draft complete"}, events[1],
		"Event should carry the new state and detail")
}

// TestMachine_To_IllegalTransition verifies rejection semantics.
//
// # Description
//
// An illegal transition returns InvalidTransitionError, leaves the state
// unchanged, and does not notify the observer.
func TestMachine_To_IllegalTransition(t *testing.T) {
	var events []recordedEvent
	m := newMachine("req-1", recordEvents(&events))

	err := m.to(StateAccepted, 1, "skipping ahead")
	require.Error(t, err, "Illegal transition should fail")

	var invalidErr *InvalidTransitionError
	require.True(t, errors.As(err, &invalidErr), "Error should be InvalidTransitionError")
	assert.Equal(t, StateDrafting, invalidErr.From, "Error should carry the from state")
	assert.Equal(t, StateAccepted, invalidErr.To, "Error should carry the to state")
	assert.Equal(t, "invalid pipeline transition: drafting -> accepted", err.Error(),
		"Error message should name both states")

	assert.Equal(t, StateDrafting, m.current, "State should be unchanged")
	assert.Len(t, events, 1, "Observer should not see the rejected transition")
}

// TestMachine_To_NilObserverIsSafe verifies observers are optional.
func TestMachine_To_NilObserverIsSafe(t *testing.T) {
	m := newMachine("req-1", nil)

	require.NoError(t, m.to(StateSanitizing, 1, "draft complete"))
	require.NoError(t, m.to(StateScoring, 1, "sanitizer passed"))
	assert.Equal(t, StateScoring, m.current, "State should advance without an observer")
}

// TestMachine_FullRetryWalk verifies a complete two-attempt run.
//
// # Description
//
// Walks drafting through a rejection, a retry, and acceptance, asserting the
// observer sees every hop in order with the right attempt numbers.
func TestMachine_FullRetryWalk(t *testing.T) {
	var events []recordedEvent
	m := newMachine("req-1", recordEvents(&events))

	steps := []struct {
		next    State
		attempt int
	}{
		{StateSanitizing, 1},
		{StateScoring, 1},
		{StateDeciding, 1},
		{StateRetrying, 1},
		{StateDrafting, 2},
		{StateSanitizing, 2},
		{StateScoring, 2},
		{StateDeciding, 2},
		{StateAccepted, 2},
	}
	for _, step := range steps {
		require.NoError(t, m.to(step.next, step.attempt, "step"),
			"Transition to %s should succeed", step.next)
	}

	assert.Equal(t, StateAccepted, m.current, "Walk should end accepted")
	require.Len(t, events, len(steps)+1, "Observer should see construction plus every hop")
	for i, step := range steps {
		assert.Equal(t, step.next, events[i+1].state, "Event %d state", i+1)
		assert.Equal(t, step.attempt, events[i+1].attempt, "Event %d attempt", i+1)
	}
}
