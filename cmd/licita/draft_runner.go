// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package main contains the DraftRunner implementation.
//
// This file implements the interactive drafting session loop. It
// coordinates between the drafter service (HTTP and websocket), the
// session UI (header, prompts, summary), the per-section stream
// renderer, and user input.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/LicitaAI/LicitaCore/pkg/ux"
	"github.com/LicitaAI/LicitaCore/services/drafter/datatypes"
)

// maxPriorSections mirrors the drafter's bound on prior-section context.
// Older accepted sections fall off the front once the cap is reached.
const maxPriorSections = 40

// =============================================================================
// DraftRunner
// =============================================================================

// DraftRunnerConfig holds configuration for creating a DraftRunner.
//
// # Fields
//
//   - BaseURL: Required. Drafter URL without trailing slash.
//   - DocumentTitle, DocumentType, Organization, Objective: Document
//     context sent with every section request. All optional.
//   - Instructions: Extra drafting instructions applied to every section.
//   - Confidential: Marks all drafts as pre-publication secret.
//   - NoStream: Use the plain HTTP endpoint instead of the websocket
//     progress stream.
//   - Personality: Output styling level. Defaults to the configured
//     personality when empty.
type DraftRunnerConfig struct {
	BaseURL       string
	DocumentTitle string
	DocumentType  string
	Organization  string
	Objective     string
	Instructions  string
	Confidential  bool
	NoStream      bool
	Personality   ux.PersonalityLevel
}

// DraftRunner manages the interactive drafting session loop.
//
// # Description
//
// DraftRunner coordinates the session: it reads section names from the
// user, sends generation requests to the drafter, renders pipeline
// progress, and accumulates accepted sections as document context for
// subsequent requests. Display formatting is delegated to ux.DraftUI
// and ux.StreamRenderer; input to InputReader.
//
// # Thread Safety
//
// Run is single-use and not safe for concurrent calls. Close is
// idempotent and safe from any goroutine.
type DraftRunner struct {
	cfg       DraftRunnerConfig
	ui        ux.DraftUI
	input     InputReader
	client    *http.Client
	parser    ux.MessageParser
	writer    io.Writer
	prior     []datatypes.PriorSection
	stats     ux.SessionStats
	startTime time.Time
	closed    bool
	mu        sync.Mutex
}

// NewDraftRunner creates a drafting session runner with production
// dependencies: terminal UI, interactive stdin reader, and a shared
// HTTP client sized for long generations.
func NewDraftRunner(config DraftRunnerConfig) *DraftRunner {
	if config.Personality == "" {
		config.Personality = ux.GetPersonality().Level
	}

	return &DraftRunner{
		cfg:    config,
		ui:     ux.NewDraftUI(),
		input:  NewInteractiveInputReader(50), // Keep last 50 section names in history
		client: &http.Client{Timeout: 5 * time.Minute},
		parser: ux.NewMessageParser(),
		writer: os.Stdout,
	}
}

// NewDraftRunnerWithDeps creates a DraftRunner with injected dependencies
// for testing.
func NewDraftRunnerWithDeps(
	config DraftRunnerConfig,
	ui ux.DraftUI,
	input InputReader,
	client *http.Client,
	writer io.Writer,
) *DraftRunner {
	if config.Personality == "" {
		config.Personality = ux.PersonalityMachine
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if writer == nil {
		writer = io.Discard
	}

	return &DraftRunner{
		cfg:    config,
		ui:     ui,
		input:  input,
		client: client,
		parser: ux.NewMessageParser(),
		writer: writer,
	}
}

// Run executes the interactive drafting loop.
//
// # Description
//
// The loop:
//  1. Displays the session header with document metadata
//  2. Prompts for the next section type
//  3. Checks for exit commands ("exit", "quit")
//  4. Generates the section, rendering pipeline progress
//  5. Folds the result into session stats and document context
//  6. Repeats until exit, EOF, or context cancellation
//
// Accepted sections are carried as prior-section context so later
// sections can reference them.
//
// # Outputs
//
//   - error: nil on normal exit ("exit"/"quit" or EOF), the context's
//     error on cancellation, or an error on fatal input failure
func (r *DraftRunner) Run(ctx context.Context) error {
	r.startTime = time.Now()

	r.ui.HeaderWithConfig(ux.HeaderConfig{
		ServerURL:     r.cfg.BaseURL,
		DocumentTitle: r.cfg.DocumentTitle,
		DocumentType:  r.cfg.DocumentType,
		Organization:  r.cfg.Organization,
		SchemaCount:   r.fetchSchemaCount(ctx),
		Confidential:  r.cfg.Confidential,
	})

	for {
		// Check for context cancellation before blocking on input
		select {
		case <-ctx.Done():
			return r.handleShutdown(ctx)
		default:
		}

		// Display prompt and read input. Interactive readers render
		// their own prompt; print it manually otherwise.
		if p, ok := r.input.(PromptingInputReader); ok {
			p.SetPrompt(r.ui.Prompt())
		} else {
			fmt.Print(r.ui.Prompt())
		}
		input, err := r.input.ReadLine()
		if err != nil {
			if err == io.EOF {
				// Input exhausted (e.g., piped input ended)
				r.endSession()
				return nil
			}
			slog.Error("failed to read input", "error", err)
			return fmt.Errorf("read input: %w", err)
		}

		if input == "" {
			continue
		}

		// Bubbletea clears its rendering area on exit, so restore the
		// visual line for interactive readers
		if _, isInteractive := r.input.(*InteractiveInputReader); isInteractive {
			fmt.Printf("%s%s\n", r.ui.Prompt(), input)
		}

		if isExitCommand(input) {
			r.endSession()
			return nil
		}

		if err := r.handleSection(ctx, input); err != nil {
			if ctx.Err() != nil {
				return r.handleShutdown(ctx)
			}
			// Non-fatal error: display and continue
			r.ui.Error(err)
			continue
		}
	}
}

// handleSection generates one section and folds the result into the
// session state.
func (r *DraftRunner) handleSection(ctx context.Context, input string) error {
	sectionType := strings.ToLower(strings.TrimSpace(input))
	r.ui.SectionQueued(sectionType)

	result, err := r.DraftSection(ctx, sectionType)
	if err != nil {
		return err
	}

	r.recordResult(result)
	return nil
}

// DraftSection generates a single section, rendering progress as it
// arrives. Streaming is the default; with NoStream set the plain HTTP
// endpoint is used and only the final result is rendered.
func (r *DraftRunner) DraftSection(ctx context.Context, sectionType string) (*ux.DraftResult, error) {
	req := r.buildRequest(sectionType)

	if r.cfg.NoStream {
		result, err := r.FetchSection(ctx, req)
		if err != nil {
			return nil, err
		}
		renderer := ux.NewTerminalStreamRenderer(r.writer, r.cfg.Personality)
		renderer.OnResult(ctx, result)
		renderer.Finalize()
		return result, nil
	}

	return r.draftStreaming(ctx, req)
}

// FetchSection sends one generation request over plain HTTP without
// rendering anything. Used by the no-stream path and by one-shot JSON
// output.
func (r *DraftRunner) FetchSection(ctx context.Context, req *datatypes.GenerateSectionRequest) (*ux.DraftResult, error) {
	var result ux.DraftResult
	url := r.cfg.BaseURL + "/v1/sections/generate"
	if err := postJSON(ctx, r.client, url, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// draftStreaming runs one generation over the websocket progress stream.
//
// The drafter expects the request as the first client message, then
// emits one JSON event per pipeline state transition and a final
// message carrying the full section response (or an error object).
func (r *DraftRunner) draftStreaming(ctx context.Context, req *datatypes.GenerateSectionRequest) (*ux.DraftResult, error) {
	streamURL, err := drafterStreamURL(r.cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, streamURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial stream (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial stream: %w", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	renderer := ux.NewTerminalStreamRenderer(r.writer, r.cfg.Personality)
	reader := ux.NewStreamReader(r.parser)
	readErr := reader.Read(ctx, conn, func(event ux.StreamEvent) error {
		switch event.Type {
		case ux.StreamEventState:
			renderer.OnState(ctx, event.State, event.Attempt, event.Detail)
		case ux.StreamEventResult:
			renderer.OnResult(ctx, event.Result)
		case ux.StreamEventError:
			renderer.OnError(ctx, errors.New(event.Error))
		}
		return nil
	})
	renderer.Finalize()
	if readErr != nil {
		return nil, readErr
	}

	stream := renderer.Result()
	if stream.Error != "" {
		return nil, errors.New(stream.Error)
	}
	if stream.Result == nil {
		return nil, errors.New("stream ended without a result")
	}
	return stream.Result, nil
}

// buildRequest assembles a generation request carrying the session's
// document context, including previously accepted sections.
func (r *DraftRunner) buildRequest(sectionType string) *datatypes.GenerateSectionRequest {
	req := &datatypes.GenerateSectionRequest{
		SectionType: sectionType,
		Context: datatypes.DocumentContext{
			DocumentTitle: r.cfg.DocumentTitle,
			DocumentType:  r.cfg.DocumentType,
			Organization:  r.cfg.Organization,
			Objective:     r.cfg.Objective,
			PriorSections: append([]datatypes.PriorSection(nil), r.prior...),
		},
		UserInstructions: r.cfg.Instructions,
		Confidential:     r.cfg.Confidential,
	}
	req.EnsureDefaults()
	return req
}

// recordResult folds one completed generation into session stats and,
// for accepted drafts, into the prior-section context.
func (r *DraftRunner) recordResult(result *ux.DraftResult) {
	if result == nil {
		return
	}

	if r.stats.SectionsDrafted == 0 {
		r.stats.FirstDraftLatency = time.Since(r.startTime)
	}
	r.stats.AddResult(result)

	if result.Accepted() {
		r.prior = append(r.prior, datatypes.PriorSection{
			SectionType: result.SectionType,
			Content:     result.Content,
		})
		if len(r.prior) > maxPriorSections {
			r.prior = r.prior[len(r.prior)-maxPriorSections:]
		}
	}
}

// fetchSchemaCount asks the drafter how many section schemas it carries,
// for the session header. Best effort; the header omits the count on
// failure.
func (r *DraftRunner) fetchSchemaCount(ctx context.Context) int {
	var payload struct {
		Count int `json:"count"`
	}
	if err := getJSON(ctx, r.client, r.cfg.BaseURL+"/v1/schemas", &payload); err != nil {
		slog.Warn("failed to fetch schema list, continuing without",
			"error", err,
		)
		return 0
	}
	return payload.Count
}

// endSession finalizes duration and displays the session summary.
func (r *DraftRunner) endSession() {
	r.stats.Duration = time.Since(r.startTime)
	r.ui.SessionEndRich(&r.stats)
}

// handleShutdown performs graceful shutdown after context cancellation.
func (r *DraftRunner) handleShutdown(ctx context.Context) error {
	slog.Info("drafting session interrupted",
		"sections_drafted", r.stats.SectionsDrafted,
	)

	fmt.Println() // New line after interrupted input
	r.endSession()

	return ctx.Err()
}

// Close releases the runner's resources. Safe to call multiple times.
func (r *DraftRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true
	r.client.CloseIdleConnections()
	return nil
}

// Stats returns a copy of the accumulated session statistics.
func (r *DraftRunner) Stats() ux.SessionStats {
	return r.stats
}
