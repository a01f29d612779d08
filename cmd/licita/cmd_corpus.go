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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/LicitaAI/LicitaCore/cmd/licita/gcs"
	"github.com/LicitaAI/LicitaCore/pkg/ux"
	"github.com/LicitaAI/LicitaCore/services/drafter/datatypes"
	"github.com/LicitaAI/LicitaCore/services/lgpd"
)

// maxSnapshotLineBytes bounds one JSONL snapshot line: the drafter's
// per-record content cap plus headroom for the JSON envelope.
const maxSnapshotLineBytes = datatypes.MaxIngestContentBytes + 64*1024

// corpusGCSClient builds a GCS client from the corpus sync environment.
func corpusGCSClient(ctx context.Context) (*gcs.Client, error) {
	projectID := os.Getenv("LICITA_GCS_PROJECT_ID")
	bucketName := os.Getenv("LICITA_GCS_BUCKET")
	saKeyPath := os.Getenv("LICITA_GCS_SA_KEY_PATH")

	if bucketName == "" || saKeyPath == "" {
		return nil, fmt.Errorf("corpus sync requires LICITA_GCS_BUCKET and LICITA_GCS_SA_KEY_PATH to be set")
	}

	return gcs.NewClient(ctx, projectID, bucketName, saKeyPath)
}

func runCorpusPush(cmd *cobra.Command, args []string) {
	if len(args) < 1 {
		log.Fatalf("Usage: licita corpus push [file or directory]")
	}
	localPath := args[0]
	ctx := context.Background()

	client, err := corpusGCSClient(ctx)
	if err != nil {
		log.Fatalf("GCS setup failed: %v", err)
	}
	defer client.Close()

	info, err := os.Stat(localPath)
	if err != nil {
		log.Fatalf("Cannot access %s: %v", localPath, err)
	}

	if info.IsDir() {
		err = client.UploadDir(ctx, localPath, corpusPrefix)
	} else {
		err = client.UploadFile(ctx, localPath, filepath.Join(corpusPrefix, filepath.Base(localPath)))
	}
	if err != nil {
		log.Fatalf("Upload failed: %v", err)
	}

	ux.Success("Corpus snapshot uploaded.")
}

func runCorpusPull(cmd *cobra.Command, args []string) {
	localDir := "."
	if len(args) > 0 {
		localDir = args[0]
	}
	ctx := context.Background()

	client, err := corpusGCSClient(ctx)
	if err != nil {
		log.Fatalf("GCS setup failed: %v", err)
	}
	defer client.Close()

	files, err := client.DownloadPrefix(ctx, corpusPrefix, localDir)
	if err != nil {
		log.Fatalf("Download failed: %v", err)
	}
	if len(files) == 0 {
		ux.Warning(fmt.Sprintf("No snapshot objects under gs://%s/%s", client.BucketName, corpusPrefix))
		return
	}

	ux.Success(fmt.Sprintf("Downloaded %d snapshot files to %s", len(files), localDir))
}

func runCorpusLoad(cmd *cobra.Command, args []string) {
	if len(args) < 1 {
		log.Fatalf("Usage: licita corpus load [snapshot.jsonl]")
	}
	if loadBatchSize < 1 || loadBatchSize > 100 {
		log.Fatalf("--batch must be between 1 and 100, got %d", loadBatchSize)
	}

	start := time.Now()
	baseURL := getDrafterBaseURL()

	records, err := readSnapshot(args[0])
	if err != nil {
		log.Fatalf("Failed to read snapshot: %v", err)
	}
	if len(records) == 0 {
		log.Fatalf("Snapshot %s holds no records", args[0])
	}

	skipped := 0
	if !loadForce {
		records, skipped = screenRecords(records)
		if len(records) == 0 {
			log.Fatalf("Every record was skipped during the sensitive-content review; " +
				"clean the snapshot or rerun with --force")
		}
	}

	client := &http.Client{Timeout: 5 * time.Minute}
	ctx := context.Background()
	result := loadRecords(ctx, client, baseURL+"/v1/legislation/ingest", records, loadBatchSize)
	result.Skipped = skipped

	hasFindings := len(result.Errors) > 0
	if jsonOutput {
		os.Exit(OutputResult(OutputConfig{JSON: true}, "corpus load", start, result, hasFindings, nil))
	}

	ux.Success(fmt.Sprintf("Ingested %d of %d records (%d chunks)",
		result.Ingested, result.Records, result.Chunks))
	if skipped > 0 {
		ux.Warning(fmt.Sprintf("%d record(s) skipped during the sensitive-content review", skipped))
	}
	for _, msg := range result.Errors {
		ux.Warning(msg)
	}
	if hasFindings {
		os.Exit(CLIExitFindings)
	}
}

// screenRecords runs the LGPD scanner over snapshot records before they
// leave the machine. Flagged records are put to the user: send unchanged,
// skip, or show the full finding list first. Non-interactive runs skip
// flagged records without asking, so scripted loads never push personal
// data by accident; --force bypasses the review entirely.
func screenRecords(records []datatypes.IngestRecord) ([]datatypes.IngestRecord, int) {
	engine, err := lgpd.NewEngine()
	if err != nil {
		log.Fatalf("Failed to load the data classification catalog: %v", err)
	}

	kept := records[:0]
	skipped := 0
	for _, record := range records {
		findings := engine.ScanContent(record.Content)
		if len(findings) == 0 {
			kept = append(kept, record)
			continue
		}

		if reviewRecord(recordLabel(record), findings) {
			kept = append(kept, record)
		} else {
			skipped++
		}
	}
	return kept, skipped
}

// reviewRecord asks what to do with one flagged record. Returns true when
// the record should still be loaded.
func reviewRecord(label string, findings []lgpd.ScanFinding) bool {
	sensitive := make([]ux.SensitiveFinding, len(findings))
	for i, f := range findings {
		sensitive[i] = ux.SensitiveFinding{
			LineNumber:  f.LineNumber,
			PatternID:   f.PatternID,
			PatternName: f.PatternDescription,
			Confidence:  strings.ToUpper(string(f.Confidence)),
			Match:       f.MatchedContent,
			Reason:      f.ClassificationName,
		}
	}

	for {
		action, err := ux.PromptSensitiveField(ux.SensitivePromptOptions{
			FieldName:     label,
			ShowForceSend: true,
			Findings:      sensitive,
		})
		if err != nil {
			return false
		}
		switch action {
		case ux.SensitiveActionProceed:
			return true
		case ux.SensitiveActionShowMore:
			fmt.Print(ux.FormatFindings(sensitive))
		default:
			return false
		}
	}
}

// recordLabel names a record in the review prompt.
func recordLabel(record datatypes.IngestRecord) string {
	return fmt.Sprintf("%s %s/%d", record.Type, record.Number, record.Year)
}

// readSnapshot parses a JSONL corpus snapshot into ingest records.
// Blank lines and lines starting with '#' are skipped.
func readSnapshot(path string) ([]datatypes.IngestRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []datatypes.IngestRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSnapshotLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var record datatypes.IngestRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// loadRecords posts records to the ingest endpoint in batches,
// accumulating what each batch accomplished. A failed batch is reported
// and the rest still load.
func loadRecords(ctx context.Context, client *http.Client, url string, records []datatypes.IngestRecord, batchSize int) CorpusLoadResult {
	result := CorpusLoadResult{Records: len(records)}

	for batchStart := 0; batchStart < len(records); batchStart += batchSize {
		end := batchStart + batchSize
		if end > len(records) {
			end = len(records)
		}

		resp, err := postIngest(ctx, client, url, datatypes.IngestLegislationRequest{
			Records: records[batchStart:end],
		})
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("records %d-%d: %v", batchStart+1, end, err))
			continue
		}

		result.Ingested += resp.Ingested
		result.Chunks += resp.Chunks
		result.Errors = append(result.Errors, resp.Errors...)
	}

	return result
}

// postIngest sends one ingest batch. The drafter answers 201 when at
// least one record landed and 422 when every record was rejected; both
// carry the same response shape.
func postIngest(ctx context.Context, client *http.Client, url string, req datatypes.IngestLegislationRequest) (*datatypes.IngestLegislationResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusUnprocessableEntity {
		return nil, apiError(resp.StatusCode, respBody)
	}

	var ingest datatypes.IngestLegislationResponse
	if err := json.Unmarshal(respBody, &ingest); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &ingest, nil
}
