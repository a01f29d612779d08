// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/LicitaAI/LicitaCore/pkg/ux"
)

func runDraftCommand(cmd *cobra.Command, args []string) {
	baseURL := getDrafterBaseURL()

	runner := NewDraftRunner(DraftRunnerConfig{
		BaseURL:       baseURL,
		DocumentTitle: documentTitle,
		DocumentType:  documentType,
		Organization:  organization,
		Objective:     objective,
		Instructions:  instructions,
		Confidential:  confidential,
		NoStream:      noStream,
	})
	defer runner.Close()

	// Set up graceful shutdown with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// Single-section mode: draft the named section and exit
	if len(args) > 0 {
		runDraftOnce(ctx, runner, strings.Join(args, " "))
		return
	}

	// Interactive session
	if err := runner.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Drafting error: %v", err)
	}
}

// runDraftOnce drafts a single named section and exits with a code
// reflecting the outcome: 0 accepted, 1 rejected, 2 failure.
func runDraftOnce(ctx context.Context, runner *DraftRunner, input string) {
	start := time.Now()
	sectionType := strings.ToLower(strings.TrimSpace(input))

	if jsonOutput {
		// JSON mode skips rendering and emits the raw section response
		result, err := runner.FetchSection(ctx, runner.buildRequest(sectionType))
		exitCode := OutputResult(OutputConfig{JSON: true}, "draft", start, result, resultRejected(result), err)
		os.Exit(exitCode)
	}

	result, err := runner.DraftSection(ctx, sectionType)
	if err != nil {
		OutputError(false, "Drafting failed", err)
		os.Exit(CLIExitError)
	}
	if !result.Accepted() {
		os.Exit(CLIExitFindings)
	}
}

// resultRejected reports whether a completed run ended without an
// accepted draft.
func resultRejected(result *ux.DraftResult) bool {
	return result != nil && !result.Accepted()
}
