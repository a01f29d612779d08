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
	"github.com/LicitaAI/LicitaCore/pkg/ux"
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	serverURL        string // --server override for the drafter endpoint
	personalityLevel string // UX personality level (full/standard/minimal/machine)
	documentTitle    string
	documentType     string
	organization     string
	objective        string
	instructions     string
	confidential     bool
	noStream         bool
	jsonOutput       bool
	deepHealth       bool
	corpusPrefix     string
	loadBatchSize    int
	loadForce        bool

	rootCmd = &cobra.Command{
		Use:   "licita",
		Short: "A cli for drafting and validating public procurement documents",
		Long: `Licita drafts sections of Brazilian public procurement documents
				(ETP, TR, edital) against a running drafter service. Every draft
				passes schema validation, sanitization, legislation verification,
				and agent scoring before it is accepted.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize UX personality from flag or environment
			if personalityLevel != "" {
				ux.SetPersonalityLevel(ux.ParsePersonalityLevel(personalityLevel))
			} else {
				ux.InitPersonality()
			}
		},
	}

	// --- Drafting ---
	draftCmd = &cobra.Command{
		Use:   "draft [section_type]",
		Short: "Draft document sections interactively, or one section when named",
		Run:   runDraftCommand, // Defined in cmd_draft.go
	}

	// --- Schemas ---
	schemaCmd = &cobra.Command{
		Use:   "schema",
		Short: "Inspect the section schemas the drafter enforces",
	}
	schemaListCmd = &cobra.Command{
		Use:   "list",
		Short: "List all section schemas the drafter carries",
		Run:   runSchemaList, // Defined in cmd_schema.go
	}
	schemaShowCmd = &cobra.Command{
		Use:   "show [section_type]",
		Short: "Show one section schema in full",
		Args:  cobra.ExactArgs(1),
		Run:   runSchemaShow, // Defined in cmd_schema.go
	}

	// --- Legislation ---
	verifyCmd = &cobra.Command{
		Use:   "verify [reference ...]",
		Short: "Verify legal references against the legislation corpus",
		Long: `Verify parses each argument as a Brazilian legal reference
				(e.g. "Lei 14.133/2021", "Decreto 10.024/2019") and checks it
				against the drafter's legislation corpus. Near misses come back
				with a correction suggestion.`,
		Run: runVerifyCommand, // Defined in cmd_verify.go
	}

	// --- Corpus ---
	corpusCmd = &cobra.Command{
		Use:   "corpus",
		Short: "Manage legislation corpus snapshots",
	}
	corpusPushCmd = &cobra.Command{
		Use:   "push [file or directory]",
		Short: "Upload corpus snapshot files to Google Cloud Storage (GCS)",
		Run:   runCorpusPush, // Defined in cmd_corpus.go
	}
	corpusPullCmd = &cobra.Command{
		Use:   "pull [local_directory]",
		Short: "Download corpus snapshot files from GCS",
		Run:   runCorpusPull, // Defined in cmd_corpus.go
	}
	corpusLoadCmd = &cobra.Command{
		Use:   "load [snapshot.jsonl]",
		Short: "Load a JSONL snapshot into the drafter's legislation corpus",
		Run:   runCorpusLoad, // Defined in cmd_corpus.go
	}

	// --- Health ---
	healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Check the drafter service health",
		Run:   runHealthCommand, // Defined in cmd_health.go
	}
)

// init runs when the Go program starts
func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "",
		"Output style: full (default), standard, minimal, or machine (scripting)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "",
		"Drafter base URL (default: LICITA_DRAFTER_URL or http://localhost:12310)")

	// draft command
	rootCmd.AddCommand(draftCmd)
	draftCmd.Flags().StringVar(&documentTitle, "title", "", "Title of the document under drafting")
	draftCmd.Flags().StringVar(&documentType, "type", "", "Document kind: etp, tr, or edital")
	draftCmd.Flags().StringVar(&organization, "org", "", "Contracting organ name")
	draftCmd.Flags().StringVar(&objective, "objective", "", "What the contracting intends to accomplish")
	draftCmd.Flags().StringVar(&instructions, "instructions", "",
		"Extra drafting instructions applied to every section")
	draftCmd.Flags().BoolVar(&confidential, "confidential", false,
		"Hold draft content under pre-publication secrecy (locked memory, never logged)")
	draftCmd.Flags().BoolVar(&noStream, "no-stream", false,
		"Use the plain HTTP endpoint instead of streaming progress")
	draftCmd.Flags().BoolVar(&jsonOutput, "json", false,
		"Output the final section as JSON (single-section mode only)")

	// schema commands
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.AddCommand(schemaListCmd)
	schemaCmd.AddCommand(schemaShowCmd)
	schemaListCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	schemaShowCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	// verify command
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	// corpus snapshot commands
	rootCmd.AddCommand(corpusCmd)
	corpusCmd.AddCommand(corpusPushCmd)
	corpusCmd.AddCommand(corpusPullCmd)
	corpusCmd.AddCommand(corpusLoadCmd)
	corpusPushCmd.Flags().StringVar(&corpusPrefix, "prefix", "corpus",
		"GCS object prefix for snapshot files")
	corpusPullCmd.Flags().StringVar(&corpusPrefix, "prefix", "corpus",
		"GCS object prefix for snapshot files")
	corpusLoadCmd.Flags().IntVar(&loadBatchSize, "batch", 100, "Records per ingest request (1-100)")
	corpusLoadCmd.Flags().BoolVar(&loadForce, "force", false,
		"Load every record without the sensitive-content review")
	corpusLoadCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	// health command
	rootCmd.AddCommand(healthCmd)
	healthCmd.Flags().BoolVar(&deepHealth, "deep", false,
		"Also round-trip the corpus store and analytics backend")
	healthCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
}
