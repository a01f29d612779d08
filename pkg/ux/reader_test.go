// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/gorilla/websocket"
)

// =============================================================================
// Scripted Message Source
// =============================================================================

// scriptedSource feeds canned messages to the reader. After the script
// is exhausted it returns finalErr (io.EOF when unset).
type scriptedSource struct {
	frames   []scriptedFrame
	idx      int
	finalErr error
}

type scriptedFrame struct {
	msgType int
	data    []byte
}

func (s *scriptedSource) ReadMessage() (int, []byte, error) {
	if s.idx >= len(s.frames) {
		if s.finalErr != nil {
			return 0, nil, s.finalErr
		}
		return 0, nil, io.EOF
	}
	f := s.frames[s.idx]
	s.idx++
	msgType := f.msgType
	if msgType == 0 {
		msgType = websocket.TextMessage
	}
	return msgType, f.data, nil
}

func textFrames(payloads ...string) []scriptedFrame {
	frames := make([]scriptedFrame, 0, len(payloads))
	for _, p := range payloads {
		frames = append(frames, scriptedFrame{data: []byte(p)})
	}
	return frames
}

// =============================================================================
// Read Tests
// =============================================================================

func TestStreamReader_Read_FullRun(t *testing.T) {
	src := &scriptedSource{frames: textFrames(
		`{"state":"drafting","attempt":1}`,
		`{"state":"sanitizing","attempt":1}`,
		`{"state":"scoring","attempt":1}`,
		`{"state":"deciding","attempt":1}`,
		`{"state":"accepted","attempt":1}`,
		`{"response_id":"resp-1","section_type":"objeto","content":"O objeto...","outcome":"accepted","attempts_used":1}`,
	)}

	reader := NewStreamReader(NewMessageParser())

	var events []StreamEvent
	err := reader.Read(context.Background(), src, func(event StreamEvent) error {
		events = append(events, event)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(events) != 6 {
		t.Fatalf("expected 6 events, got %d", len(events))
	}
	for i, e := range events {
		if e.Index != i {
			t.Errorf("event %d has index %d", i, e.Index)
		}
	}
	last := events[len(events)-1]
	if last.Type != StreamEventResult {
		t.Errorf("expected final result event, got %q", last.Type)
	}
	if last.Result.ResponseID != "resp-1" {
		t.Errorf("unexpected response id: %q", last.Result.ResponseID)
	}
}

func TestStreamReader_Read_StopsAtTerminal(t *testing.T) {
	// Frames after the terminal response must never be consumed.
	src := &scriptedSource{frames: textFrames(
		`{"response_id":"resp-1","section_type":"objeto","content":"x","outcome":"accepted"}`,
		`{"state":"drafting","attempt":99}`,
	)}

	reader := NewStreamReader(NewMessageParser())

	count := 0
	err := reader.Read(context.Background(), src, func(event StreamEvent) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("expected read to stop after terminal event, saw %d events", count)
	}
}

func TestStreamReader_Read_ServerErrorIsTerminal(t *testing.T) {
	src := &scriptedSource{frames: textFrames(
		`{"state":"drafting","attempt":1}`,
		`{"error":"generation failed"}`,
	)}

	reader := NewStreamReader(NewMessageParser())

	var last StreamEvent
	err := reader.Read(context.Background(), src, func(event StreamEvent) error {
		last = event
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if last.Type != StreamEventError {
		t.Errorf("expected error event last, got %q", last.Type)
	}
	if last.Error != "generation failed" {
		t.Errorf("unexpected error payload: %q", last.Error)
	}
}

func TestStreamReader_Read_NormalClosureEndsStream(t *testing.T) {
	src := &scriptedSource{
		frames:   textFrames(`{"state":"drafting","attempt":1}`),
		finalErr: &websocket.CloseError{Code: websocket.CloseNormalClosure},
	}

	reader := NewStreamReader(NewMessageParser())

	err := reader.Read(context.Background(), src, func(event StreamEvent) error {
		return nil
	})
	if err != nil {
		t.Errorf("normal closure should end the stream cleanly, got %v", err)
	}
}

func TestStreamReader_Read_AbnormalClosureIsError(t *testing.T) {
	closeErr := &websocket.CloseError{Code: websocket.CloseAbnormalClosure}
	src := &scriptedSource{finalErr: closeErr}

	reader := NewStreamReader(NewMessageParser())

	err := reader.Read(context.Background(), src, func(event StreamEvent) error {
		return nil
	})
	if err == nil {
		t.Fatal("expected abnormal closure to surface as error")
	}
}

func TestStreamReader_Read_SkipsBinaryFrames(t *testing.T) {
	src := &scriptedSource{frames: []scriptedFrame{
		{msgType: websocket.BinaryMessage, data: []byte{0x01, 0x02}},
		{data: []byte(`{"state":"drafting","attempt":1}`)},
	}}

	reader := NewStreamReader(NewMessageParser())

	count := 0
	err := reader.Read(context.Background(), src, func(event StreamEvent) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("binary frame should be skipped, saw %d events", count)
	}
}

func TestStreamReader_Read_CallbackErrorStops(t *testing.T) {
	src := &scriptedSource{frames: textFrames(
		`{"state":"drafting","attempt":1}`,
		`{"state":"sanitizing","attempt":1}`,
	)}

	reader := NewStreamReader(NewMessageParser())

	wantErr := errors.New("stop here")
	err := reader.Read(context.Background(), src, func(event StreamEvent) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected callback error, got %v", err)
	}
}

func TestStreamReader_Read_ContextCancelled(t *testing.T) {
	src := &scriptedSource{frames: textFrames(`{"state":"drafting","attempt":1}`)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := NewStreamReader(NewMessageParser())

	err := reader.Read(ctx, src, func(event StreamEvent) error {
		t.Error("callback should not run after cancellation")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestStreamReader_Read_ParseErrorStops(t *testing.T) {
	src := &scriptedSource{frames: textFrames(`{"state":`)}

	reader := NewStreamReader(NewMessageParser())

	err := reader.Read(context.Background(), src, func(event StreamEvent) error {
		return nil
	})
	if err == nil {
		t.Fatal("expected parse error")
	}
}

// =============================================================================
// ReadAll Tests
// =============================================================================

func TestStreamReader_ReadAll_Aggregates(t *testing.T) {
	src := &scriptedSource{frames: textFrames(
		`{"state":"drafting","attempt":1}`,
		`{"state":"scoring","attempt":1}`,
		`{"state":"retrying","attempt":1}`,
		`{"state":"drafting","attempt":2}`,
		`{"state":"accepted","attempt":2}`,
		`{"response_id":"resp-7","section_type":"justificativa","content":"...","outcome":"accepted","attempts_used":2}`,
	)}

	reader := NewStreamReader(NewMessageParser())

	result, err := reader.ReadAll(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.TotalEvents != 6 {
		t.Errorf("expected 6 events, got %d", result.TotalEvents)
	}
	if len(result.States) != 5 {
		t.Errorf("expected 5 states, got %d (%v)", len(result.States), result.States)
	}
	if result.MaxAttempt != 2 {
		t.Errorf("expected max attempt 2, got %d", result.MaxAttempt)
	}
	if result.Result == nil || result.Result.ResponseID != "resp-7" {
		t.Errorf("final draft not captured: %+v", result.Result)
	}
	if !result.Succeeded() {
		t.Error("expected stream to succeed")
	}
	if result.Id == "" {
		t.Error("expected generated stream id")
	}
	if result.CompletedAt == 0 {
		t.Error("expected CompletedAt to be set")
	}
}

func TestStreamReader_ReadAll_CapturesServerError(t *testing.T) {
	src := &scriptedSource{frames: textFrames(
		`{"state":"drafting","attempt":1}`,
		`{"error":"generation failed"}`,
	)}

	reader := NewStreamReader(NewMessageParser())

	result, err := reader.ReadAll(context.Background(), src)
	if err != nil {
		t.Fatalf("server error should not surface as read error, got %v", err)
	}
	if result.Error != "generation failed" {
		t.Errorf("expected captured error, got %q", result.Error)
	}
	if result.Succeeded() {
		t.Error("errored stream should not report success")
	}
}

func TestStreamReader_ReadAll_EmptyStream(t *testing.T) {
	src := &scriptedSource{}

	reader := NewStreamReader(NewMessageParser())

	result, err := reader.ReadAll(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalEvents != 0 {
		t.Errorf("expected 0 events, got %d", result.TotalEvents)
	}
	if result.CompletedAt == 0 {
		t.Error("CompletedAt should be set even for empty streams")
	}
}
