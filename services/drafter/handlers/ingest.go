// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tmc/langchaingo/textsplitter"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/LicitaAI/LicitaCore/pkg/validation"
	"github.com/LicitaAI/LicitaCore/services/drafter/datatypes"
	"github.com/LicitaAI/LicitaCore/services/drafter/verifier"
	"github.com/LicitaAI/LicitaCore/services/lgpd"
	"github.com/LicitaAI/LicitaCore/services/llm"
)

var ingestTracer = otel.Tracer("licita.drafter.handlers")

var (
	chunkSize    = 1000
	chunkOverlap = chunkSize / 10

	// Statute text separates articles and paragraphs with blank lines;
	// split there first so excerpts follow the norm's own structure.
	statuteSeparators = []string{"\n\n", "\n", " ", ""}
)

// IngestLegislation creates the gin handler for POST /v1/legislation/ingest.
//
// # Description
//
// Accepts up to 100 legislation documents, normalizes each reference,
// embeds the canonical citations in one batch, and upserts the records.
// Stores that index content excerpts additionally get each document's
// content split and embedded chunk by chunk.
//
// Per-record problems (unknown norm type, blocked content, store rejection)
// are reported in the response's errors list while the remaining records
// proceed; only a malformed request or an embedding backend failure aborts
// the whole call.
func IngestLegislation(legisStore verifier.LegislationStore, embedder llm.EmbeddingProvider, scanner *lgpd.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := ingestTracer.Start(c.Request.Context(), "IngestLegislation")
		defer span.End()

		var req datatypes.IngestLegislationRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		span.SetAttributes(attribute.Int("ingest.records", len(req.Records)))
		slog.Info("Received legislation ingest request", "records", len(req.Records))

		resp, err := RunLegislationIngest(ctx, legisStore, embedder, scanner, req)
		if err != nil {
			span.RecordError(err)
			slog.Error("Legislation ingest failed", "error", err)
			c.JSON(providerStatus(err), gin.H{"error": err.Error()})
			return
		}

		span.SetAttributes(
			attribute.Int("ingest.ingested", resp.Ingested),
			attribute.Int("ingest.chunks", resp.Chunks),
		)
		slog.Info("Legislation ingest complete",
			"ingested", resp.Ingested,
			"chunks", resp.Chunks,
			"errors", len(resp.Errors),
		)

		status := http.StatusCreated
		if resp.Ingested == 0 {
			// Nothing made it in; the errors list says why.
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, resp)
	}
}

// RunLegislationIngest is the reusable ingest logic behind the endpoint,
// also driven by corpus snapshot loads.
//
// When a scanner is provided, each record's content is checked against the
// embedded classification catalog before anything is embedded. The corpus is
// shared across every drafting session, so records carrying personal data or
// sealed budget values are rejected rather than stored. A nil scanner skips
// the check.
//
// Returns an error only for failures that invalidate the whole batch (the
// embedding backend being down); everything per-record lands in the
// response's errors list.
func RunLegislationIngest(ctx context.Context, legisStore verifier.LegislationStore, embedder llm.EmbeddingProvider, scanner *lgpd.Engine, req datatypes.IngestLegislationRequest) (*datatypes.IngestLegislationResponse, error) {
	resp := &datatypes.IngestLegislationResponse{}

	var records []datatypes.LegislationRecord
	var citations []string
	for i := range req.Records {
		in := &req.Records[i]
		ref, err := validation.ValidateReference(in.Type, in.Number, in.Year)
		if err != nil {
			resp.Errors = append(resp.Errors, fmt.Sprintf("record %d: %v", i, err))
			continue
		}
		if scanner != nil {
			findings := scanner.ScanContent(in.Content)
			if blocked, ok := blockingFinding(findings); ok {
				resp.Errors = append(resp.Errors, fmt.Sprintf(
					"%s: content blocked: %s/%s at line %d (%s)",
					ref, blocked.ClassificationName, blocked.PatternID,
					blocked.LineNumber, blocked.PatternDescription,
				))
				continue
			}
			if len(findings) > 0 {
				slog.Warn("Classification scan matched below blocking confidence, record proceeds",
					"reference", ref.String(),
					"matches", len(findings),
				)
			}
		}
		records = append(records, datatypes.LegislationRecord{
			Type:     string(ref.Type),
			Number:   ref.Number,
			Year:     ref.Year,
			Title:    in.Title,
			Content:  in.Content,
			IsActive: in.Active(),
		})
		citations = append(citations, citationText(ref, in.Title))
	}
	if len(records) == 0 {
		return resp, nil
	}

	// One batch for all canonical citations; chunk embeddings follow per
	// record since long statutes can dwarf the citation batch.
	vectors, err := embedder.BatchEmbed(ctx, citations)
	if err != nil {
		return nil, &verifier.EmbeddingProviderError{Err: err}
	}
	if len(vectors) != len(records) {
		return nil, fmt.Errorf("embedding backend returned %d vectors for %d records", len(vectors), len(records))
	}

	chunker, canChunk := legisStore.(verifier.ChunkUpserter)
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
		textsplitter.WithSeparators(statuteSeparators),
	)

	for i := range records {
		rec := records[i]
		rec.Embedding = vectors[i]

		if err := legisStore.Upsert(ctx, rec); err != nil {
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: %v", rec.Key(), err))
			continue
		}
		resp.Ingested++

		if !canChunk {
			continue
		}
		written, err := ingestExcerpts(ctx, chunker, embedder, splitter, rec)
		if err != nil {
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: excerpts: %v", rec.Key(), err))
			var provErr *verifier.EmbeddingProviderError
			if errors.As(err, &provErr) {
				// Backend went away mid-batch; the canonical records are
				// already in, so finish those and skip further excerpts.
				canChunk = false
			}
			continue
		}
		resp.Chunks += written
	}

	return resp, nil
}

// ingestExcerpts splits one record's content, batch-embeds the chunks, and
// writes them through the store's excerpt path. Content that fits in a
// single chunk writes no excerpts; the canonical record already carries it.
func ingestExcerpts(ctx context.Context, chunker verifier.ChunkUpserter, embedder llm.EmbeddingProvider, splitter textsplitter.TextSplitter, rec datatypes.LegislationRecord) (int, error) {
	chunks, err := splitter.SplitText(rec.Content)
	if err != nil {
		return 0, fmt.Errorf("splitting content: %w", err)
	}
	if len(chunks) <= 1 {
		return 0, nil
	}

	chunkVectors, err := embedder.BatchEmbed(ctx, chunks)
	if err != nil {
		return 0, &verifier.EmbeddingProviderError{Err: err}
	}

	return chunker.UpsertChunks(ctx, rec, chunks, chunkVectors)
}

// citationText is what a canonical record embeds as: the lowercase citation
// plus the title, so both "lei 14.133/2021" and "lei de licitações" style
// queries land near it.
func citationText(ref validation.Reference, title string) string {
	if title == "" {
		return ref.Canonical()
	}
	return ref.Canonical() + ": " + strings.ToLower(strings.TrimSpace(title))
}

// blockingFinding returns the first scan finding severe enough to keep a
// record out of the shared corpus. Only high-confidence matches block;
// statute text quotes CNPJ-shaped article numbers often enough that lower
// confidence hits would reject legitimate norms.
func blockingFinding(findings []lgpd.ScanFinding) (lgpd.ScanFinding, bool) {
	for _, f := range findings {
		if f.Confidence == lgpd.High {
			return f, true
		}
	}
	return lgpd.ScanFinding{}, false
}
