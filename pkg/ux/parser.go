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
// This file contains the parser for generation stream messages.
// Parsers are responsible for converting raw websocket payloads into
// StreamEvent structs.
//
// Single Responsibility:
//
//	Parsers ONLY parse. They do not perform I/O, rendering, or state
//	management. This separation enables easy testing and format
//	extensibility.
package ux

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// Message Parser Interface
// =============================================================================

// MessageParser classifies and parses one generation stream message.
//
// Wire Format:
//
// The drafter sends three message shapes on a generation stream, all
// plain JSON objects:
//
//	{"state":"drafting","attempt":1}              state transition
//	{"response_id":"...","content":"...", ...}    final section response
//	{"error":"generation failed", ...}            server-side failure
//
// A message carrying a non-empty "response_id" is the final response;
// a message carrying "error" is a failure; everything else with a
// "state" field is a transition. The final response always terminates
// the stream.
//
// Thread Safety:
//
//	MessageParser implementations must be safe for concurrent use.
//	The default implementation is stateless and inherently thread-safe.
//
// Example:
//
//	parser := NewMessageParser()
//	event, err := parser.ParseMessage([]byte(`{"state":"scoring","attempt":2}`))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(event.State) // "scoring"
type MessageParser interface {
	// ParseMessage parses a single websocket message payload.
	//
	// Parameters:
	//   - data: One complete JSON message from the stream.
	//
	// Returns:
	//   - *StreamEvent: The parsed event, or nil for empty payloads.
	//   - error: Non-nil if the payload is not valid JSON or matches
	//     none of the known message shapes.
	ParseMessage(data []byte) (*StreamEvent, error)
}

// =============================================================================
// JSON Message Parser Implementation
// =============================================================================

// jsonMessageParser implements MessageParser for the drafter's JSON
// message shapes. Stateless and safe for concurrent use.
type jsonMessageParser struct{}

// NewMessageParser creates a parser for generation stream messages.
//
// The returned parser is stateless and can be safely shared across
// goroutines.
func NewMessageParser() MessageParser {
	return &jsonMessageParser{}
}

// probe is the superset of fields used to classify a message before
// committing to a shape. Only the discriminating fields are decoded
// here; result messages are re-decoded in full.
type probe struct {
	State      string `json:"state"`
	Attempt    int    `json:"attempt"`
	Detail     string `json:"detail"`
	ResponseID string `json:"response_id"`
	Error      string `json:"error"`
}

// ParseMessage classifies and parses one stream message.
//
// Classification order matters: a final response could in principle
// carry an "error"-named finding field in content, so response_id is
// checked first, then the error shape, then state transitions.
func (p *jsonMessageParser) ParseMessage(data []byte) (*StreamEvent, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var pr probe
	if err := json.Unmarshal(data, &pr); err != nil {
		return nil, fmt.Errorf("malformed stream message: %w", err)
	}

	// Final response: re-decode the full payload.
	if pr.ResponseID != "" {
		var result DraftResult
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("malformed final response: %w", err)
		}
		return &StreamEvent{
			Type:   StreamEventResult,
			Result: &result,
		}, nil
	}

	// Server-reported failure.
	if pr.Error != "" {
		return &StreamEvent{
			Type:  StreamEventError,
			Error: pr.Error,
		}, nil
	}

	// State transition.
	if pr.State != "" {
		return &StreamEvent{
			Type:    StreamEventState,
			State:   pr.State,
			Attempt: pr.Attempt,
			Detail:  pr.Detail,
		}, nil
	}

	return nil, fmt.Errorf("unrecognized stream message: %s", truncateForError(data))
}

// truncateForError bounds message payloads quoted in errors so a large
// response body does not explode the error string.
func truncateForError(data []byte) string {
	const limit = 120
	if len(data) <= limit {
		return string(data)
	}
	return string(data[:limit]) + "..."
}

// =============================================================================
// Compile-time Interface Check
// =============================================================================

var _ MessageParser = (*jsonMessageParser)(nil)
