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
// This file contains stream readers that consume websocket message
// sources and emit parsed events via callbacks.
//
// Single Responsibility:
//
//	Readers handle I/O and event sequencing. They use parsers to convert
//	bytes to events, but do not render output. This separation enables
//	flexible composition with different renderers.
//
// Context Support:
//
//	Readers accept context.Context for cancellation. Cancellation is
//	checked between messages; a source blocked in ReadMessage is
//	released by closing the underlying connection, which the caller
//	owns.
package ux

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// =============================================================================
// Message Source
// =============================================================================

// MessageSource yields complete messages from a generation stream.
//
// *websocket.Conn satisfies this interface directly, so production code
// passes the dialed connection while tests supply scripted sources.
type MessageSource interface {
	// ReadMessage returns the next complete message payload.
	// messageType follows the websocket convention (TextMessage,
	// BinaryMessage); this package only consumes text messages.
	ReadMessage() (messageType int, p []byte, err error)
}

var _ MessageSource = (*websocket.Conn)(nil)

// =============================================================================
// Stream Reader Interface
// =============================================================================

// StreamReader reads generation streams and invokes callbacks.
//
// Implementations consume messages from a MessageSource, parse them,
// and emit StreamEvent structs until a terminal event or the stream
// closes.
//
// Thread Safety:
//
//	StreamReader implementations must be safe for concurrent use.
//	However, a single Read/ReadAll operation should not be called
//	concurrently on the same source.
//
// Example:
//
//	reader := NewStreamReader(NewMessageParser())
//
//	err := reader.Read(ctx, conn, func(event StreamEvent) error {
//	    switch event.Type {
//	    case StreamEventState:
//	        fmt.Printf("%s (attempt %d)\n", event.State, event.Attempt)
//	    case StreamEventError:
//	        return errors.New(event.Error)
//	    }
//	    return nil
//	})
type StreamReader interface {
	// Read processes a stream, invoking callback for each event.
	//
	// Parameters:
	//   - ctx: Context for cancellation. Checked between messages.
	//   - src: The source to read from. Caller is responsible for closing.
	//   - callback: Invoked for each parsed event. Return error to stop.
	//
	// Returns:
	//   - error: nil on successful completion, otherwise the error that
	//     stopped reading (context cancellation, parse error, or
	//     callback error)
	//
	// The stream is considered complete when:
	//   - A terminal event (result/error) is received
	//   - The source reports a normal websocket closure or EOF
	//   - Context is cancelled
	//   - Callback returns an error
	Read(ctx context.Context, src MessageSource, callback StreamCallback) error

	// ReadAll reads the entire stream and returns an aggregated result.
	//
	// This is a convenience method that collects all events into a
	// StreamResult. Use Read() when you need real-time event processing.
	//
	// Parameters:
	//   - ctx: Context for cancellation.
	//   - src: The source to read from. Caller is responsible for closing.
	//
	// Returns:
	//   - *StreamResult: Aggregated result with states, final draft, etc.
	//   - error: nil on success, otherwise the error that stopped reading.
	//
	// Note: If the stream ends with a server error event, the error is
	// captured in StreamResult.Error and this method returns nil (not an
	// error).
	ReadAll(ctx context.Context, src MessageSource) (*StreamResult, error)
}

// =============================================================================
// Websocket Stream Reader
// =============================================================================

// wsStreamReader implements StreamReader for the drafter's websocket
// generation stream.
type wsStreamReader struct {
	parser MessageParser
}

// NewStreamReader creates a reader over a message parser.
//
// Parameters:
//   - parser: The parser to use for message classification.
//
// Example:
//
//	reader := NewStreamReader(NewMessageParser())
func NewStreamReader(parser MessageParser) StreamReader {
	return &wsStreamReader{
		parser: parser,
	}
}

// Read processes a generation stream, invoking callback for each event.
//
// Binary and control messages are skipped; the drafter only sends text
// frames. A close frame with CloseNormalClosure or CloseGoingAway, or a
// plain EOF from a non-websocket source, ends the stream without error.
func (r *wsStreamReader) Read(ctx context.Context, src MessageSource, callback StreamCallback) error {
	eventIndex := 0

	for {
		// Check for context cancellation between messages
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msgType, data, err := src.ReadMessage()
		if err != nil {
			if isStreamEnd(err) {
				return nil
			}
			return err
		}

		if msgType != websocket.TextMessage {
			continue
		}

		event, err := r.parser.ParseMessage(data)
		if err != nil {
			return err
		}

		// Skip empty payloads
		if event == nil {
			continue
		}

		event.Index = eventIndex
		eventIndex++

		if err := callback(*event); err != nil {
			return err
		}

		if event.IsTerminal() {
			return nil
		}
	}
}

// isStreamEnd reports whether a read error means the peer finished the
// stream rather than something breaking.
func isStreamEnd(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return true
	}
	// A closed connection surfaces as net.ErrClosed once the caller's
	// deferred Close races the final read.
	return errors.Is(err, net.ErrClosed)
}

// ReadAll reads the entire stream and returns an aggregated result.
//
// Collects state transitions into States, tracks the highest attempt
// seen, and captures the final draft or server error.
func (r *wsStreamReader) ReadAll(ctx context.Context, src MessageSource) (*StreamResult, error) {
	result := &StreamResult{
		Id:        uuid.New().String(),
		CreatedAt: time.Now().UnixMilli(),
	}

	err := r.Read(ctx, src, func(event StreamEvent) error {
		result.TotalEvents++
		if result.FirstEventAt == 0 {
			result.FirstEventAt = time.Now().UnixMilli()
		}

		switch event.Type {
		case StreamEventState:
			result.States = append(result.States, event.State)
			if event.Attempt > result.MaxAttempt {
				result.MaxAttempt = event.Attempt
			}

		case StreamEventResult:
			result.Result = event.Result
			result.CompletedAt = time.Now().UnixMilli()

		case StreamEventError:
			result.Error = event.Error
			result.CompletedAt = time.Now().UnixMilli()
		}

		return nil
	})

	// Ensure CompletedAt is set even if no terminal event
	if result.CompletedAt == 0 {
		result.CompletedAt = time.Now().UnixMilli()
	}

	return result, err
}

// =============================================================================
// Compile-time Interface Check
// =============================================================================

var _ StreamReader = (*wsStreamReader)(nil)
