// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package verifier

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/LicitaAI/LicitaCore/services/drafter/datatypes"
)

// LegislationClassName is the Weaviate class holding one object per norm.
const LegislationClassName = "Legislation"

// WeaviateStore persists the corpus in Weaviate. Object IDs derive from the
// record key, so re-ingesting a norm overwrites it instead of duplicating.
// Query results carry properties only; stored vectors stay in Weaviate.
//
// # Thread Safety
//
// WeaviateStore is safe for concurrent use; the underlying client is.
type WeaviateStore struct {
	client *weaviate.Client
}

var _ LegislationStore = (*WeaviateStore)(nil)
var _ ChunkUpserter = (*WeaviateStore)(nil)

// NewWeaviateStore wraps an already-connected Weaviate client.
func NewWeaviateStore(client *weaviate.Client) (*WeaviateStore, error) {
	if client == nil {
		return nil, fmt.Errorf("weaviate client must not be nil")
	}
	return &WeaviateStore{client: client}, nil
}

// legislationClass returns the schema for the Legislation class.
func legislationClass() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       LegislationClassName,
		Description: "One object per Brazilian federal norm, vectorized by its canonical reference",
		Vectorizer:  "none",
		InvertedIndexConfig: &models.InvertedIndexConfig{
			IndexTimestamps: true,
		},
		Properties: []*models.Property{
			{
				Name:            "law_type",
				DataType:        []string{"text"},
				Description:     "Normalized norm type (LEI, DECRETO, ...)",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "number",
				DataType:        []string{"text"},
				Description:     "Norm number with thousands separators (14.133)",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "year",
				DataType:        []string{"int"},
				Description:     "Publication year",
				IndexFilterable: indexFilterable,
			},
			{
				Name:         "title",
				DataType:     []string{"text"},
				Description:  "Official title (ementa)",
				Tokenization: "word",
			},
			{
				Name:         "content",
				DataType:     []string{"text"},
				Description:  "Full or partial statute text",
				Tokenization: "word",
			},
			{
				Name:            "is_active",
				DataType:        []string{"boolean"},
				Description:     "False once revoked or superseded",
				IndexFilterable: indexFilterable,
			},
			{
				Name:            "chunk_index",
				DataType:        []string{"int"},
				Description:     "0 for the canonical record, 1..n for content excerpts",
				IndexFilterable: indexFilterable,
			},
			{
				Name:        "ingested_at",
				DataType:    []string{"int"},
				Description: "Ingestion time in Unix milliseconds",
			},
		},
	}
}

// EnsureSchema creates the Legislation class if it doesn't exist.
// This operation is idempotent.
func (s *WeaviateStore) EnsureSchema(ctx context.Context) error {
	_, err := s.client.Schema().ClassGetter().WithClassName(LegislationClassName).Do(ctx)
	if err == nil {
		slog.Debug("Legislation schema already exists")
		return nil
	}

	slog.Info("Creating Legislation schema")
	if err := s.client.Schema().ClassCreator().WithClass(legislationClass()).Do(ctx); err != nil {
		return fmt.Errorf("creating Legislation schema: %w", err)
	}
	return nil
}

// recordID derives a stable object ID from the record key, which is what
// makes Upsert overwrite rather than duplicate.
func recordID(rec datatypes.LegislationRecord) strfmt.UUID {
	hash := sha256.Sum256([]byte(rec.Key()))
	id, _ := uuid.FromBytes(hash[:16])
	return strfmt.UUID(id.String())
}

func (s *WeaviateStore) Upsert(ctx context.Context, rec datatypes.LegislationRecord) error {
	if rec.Type == "" || rec.Number == "" || rec.Year == 0 {
		return fmt.Errorf("incomplete legislation record: %q", rec.Key())
	}

	obj := &models.Object{
		Class:  LegislationClassName,
		ID:     recordID(rec),
		Vector: rec.Embedding,
		Properties: map[string]interface{}{
			"law_type":    rec.Type,
			"number":      rec.Number,
			"year":        rec.Year,
			"title":       rec.Title,
			"content":     rec.Content,
			"is_active":   rec.IsActive,
			"chunk_index": 0,
			"ingested_at": time.Now().UnixMilli(),
		},
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(obj).Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate upsert failed: %w", err)
	}
	for _, item := range resp {
		if item.Result != nil && item.Result.Status != nil && *item.Result.Status == "SUCCESS" {
			continue
		}
		if item.Result != nil && item.Result.Errors != nil && len(item.Result.Errors.Error) > 0 {
			return fmt.Errorf("weaviate rejected %s: %s", rec.Key(), item.Result.Errors.Error[0].Message)
		}
		return fmt.Errorf("weaviate rejected %s with no error detail", rec.Key())
	}
	return nil
}

// chunkID derives a stable object ID for one excerpt, so re-ingesting a
// norm rewrites its excerpts in place.
func chunkID(rec datatypes.LegislationRecord, index int) strfmt.UUID {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s|chunk|%d", rec.Key(), index)))
	id, _ := uuid.FromBytes(hash[:16])
	return strfmt.UUID(id.String())
}

// UpsertChunks writes one excerpt object per chunk, indexed 1..n, and
// removes excerpts beyond n left over from a previous, longer ingestion.
func (s *WeaviateStore) UpsertChunks(ctx context.Context, rec datatypes.LegislationRecord, chunks []string, vectors [][]float32) (int, error) {
	if len(chunks) != len(vectors) {
		return 0, fmt.Errorf("chunk/vector count mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	now := time.Now().UnixMilli()
	objects := make([]*models.Object, len(chunks))
	for i, chunk := range chunks {
		objects[i] = &models.Object{
			Class:  LegislationClassName,
			ID:     chunkID(rec, i+1),
			Vector: vectors[i],
			Properties: map[string]interface{}{
				"law_type":    rec.Type,
				"number":      rec.Number,
				"year":        rec.Year,
				"title":       rec.Title,
				"content":     chunk,
				"is_active":   rec.IsActive,
				"chunk_index": i + 1,
				"ingested_at": now,
			},
		}
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("weaviate chunk upsert failed: %w", err)
	}

	written := 0
	for _, item := range resp {
		if item.Result != nil && item.Result.Status != nil && *item.Result.Status == "SUCCESS" {
			written++
			continue
		}
		if item.Result != nil && item.Result.Errors != nil && len(item.Result.Errors.Error) > 0 {
			slog.Warn("Weaviate rejected excerpt", "key", rec.Key(),
				"error", item.Result.Errors.Error[0].Message)
		}
	}

	s.deleteStaleChunks(ctx, rec, len(chunks))

	return written, nil
}

// deleteStaleChunks removes excerpts with index above keep. Best effort:
// a leftover excerpt degrades search slightly, it does not corrupt the
// corpus, so failures log and move on.
func (s *WeaviateStore) deleteStaleChunks(ctx context.Context, rec datatypes.LegislationRecord, keep int) {
	where := filters.Where().
		WithOperator(filters.And).
		WithOperands([]*filters.WhereBuilder{
			filters.Where().
				WithPath([]string{"law_type"}).
				WithOperator(filters.Equal).
				WithValueString(rec.Type),
			filters.Where().
				WithPath([]string{"number"}).
				WithOperator(filters.Equal).
				WithValueString(rec.Number),
			filters.Where().
				WithPath([]string{"year"}).
				WithOperator(filters.Equal).
				WithValueInt(int64(rec.Year)),
			filters.Where().
				WithPath([]string{"chunk_index"}).
				WithOperator(filters.GreaterThan).
				WithValueInt(int64(keep)),
		})

	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(LegislationClassName).
		WithWhere(where).
		WithOutput("minimal").
		Do(ctx)
	if err != nil {
		slog.Warn("Failed to delete stale excerpts", "key", rec.Key(), "error", err)
	}
}

func (s *WeaviateStore) Get(ctx context.Context, lawType, number string, year int) (datatypes.LegislationRecord, bool, error) {
	// chunk_index 0 keeps content excerpts from shadowing the canonical
	// record.
	where := filters.Where().
		WithOperator(filters.And).
		WithOperands([]*filters.WhereBuilder{
			filters.Where().
				WithPath([]string{"law_type"}).
				WithOperator(filters.Equal).
				WithValueString(lawType),
			filters.Where().
				WithPath([]string{"number"}).
				WithOperator(filters.Equal).
				WithValueString(number),
			filters.Where().
				WithPath([]string{"year"}).
				WithOperator(filters.Equal).
				WithValueInt(int64(year)),
			filters.Where().
				WithPath([]string{"chunk_index"}).
				WithOperator(filters.Equal).
				WithValueInt(0),
		})

	result, err := s.client.GraphQL().Get().
		WithClassName(LegislationClassName).
		WithFields(legislationFields()...).
		WithWhere(where).
		WithLimit(1).
		Do(ctx)
	if err != nil {
		return datatypes.LegislationRecord{}, false, fmt.Errorf("weaviate lookup failed: %w", err)
	}

	parsed, err := parseGraphQL[legislationQueryResponse](result)
	if err != nil {
		return datatypes.LegislationRecord{}, false, err
	}
	if len(parsed.Get.Legislation) == 0 {
		return datatypes.LegislationRecord{}, false, nil
	}
	return parsed.Get.Legislation[0].toRecord(), true, nil
}

func (s *WeaviateStore) SearchSimilar(ctx context.Context, vector []float32, limit int) ([]datatypes.SimilarMatch, error) {
	if limit <= 0 {
		return []datatypes.SimilarMatch{}, nil
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector)

	// Request certainty (always [0,1]) instead of distance which varies
	// by metric.
	fields := append(legislationFields(), graphql.Field{
		Name: "_additional", Fields: []graphql.Field{
			{Name: "certainty"},
		},
	})

	result, err := s.client.GraphQL().Get().
		WithClassName(LegislationClassName).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate similarity search failed: %w", err)
	}

	parsed, err := parseGraphQL[legislationQueryResponse](result)
	if err != nil {
		return nil, err
	}

	matches := make([]datatypes.SimilarMatch, 0, len(parsed.Get.Legislation))
	for _, item := range parsed.Get.Legislation {
		// Certainty is (1+cosine)/2; undo it so scores line up with the
		// in-memory store.
		matches = append(matches, datatypes.SimilarMatch{
			Record:     item.toRecord(),
			Similarity: clampSimilarity(2*item.Additional.Certainty - 1),
		})
	}
	return matches, nil
}

// Count reports canonical records only; content excerpts are an index
// detail, not corpus size.
func (s *WeaviateStore) Count(ctx context.Context) (int, error) {
	result, err := s.client.GraphQL().Aggregate().
		WithClassName(LegislationClassName).
		WithWhere(filters.Where().
			WithPath([]string{"chunk_index"}).
			WithOperator(filters.Equal).
			WithValueInt(0)).
		WithFields(graphql.Field{
			Name: "meta",
			Fields: []graphql.Field{
				{Name: "count"},
			},
		}).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("aggregate query failed: %w", err)
	}

	parsed, err := parseGraphQL[legislationAggregateResponse](result)
	if err != nil {
		return 0, err
	}
	if len(parsed.Aggregate.Legislation) == 0 {
		return 0, nil
	}
	return parsed.Aggregate.Legislation[0].Meta.Count, nil
}

// legislationFields lists the properties every query retrieves.
func legislationFields() []graphql.Field {
	return []graphql.Field{
		{Name: "law_type"},
		{Name: "number"},
		{Name: "year"},
		{Name: "title"},
		{Name: "content"},
		{Name: "is_active"},
	}
}

// =============================================================================
// Response Parsing
// =============================================================================

// legislationQueryResponse mirrors the GraphQL Get response shape.
type legislationQueryResponse struct {
	Get struct {
		Legislation []legislationResult `json:"Legislation"`
	} `json:"Get"`
}

// legislationResult is a single Legislation object from a query.
type legislationResult struct {
	LawType    string `json:"law_type"`
	Number     string `json:"number"`
	Year       int    `json:"year"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	IsActive   bool   `json:"is_active"`
	Additional struct {
		Certainty float64 `json:"certainty"`
	} `json:"_additional"`
}

func (r legislationResult) toRecord() datatypes.LegislationRecord {
	return datatypes.LegislationRecord{
		Type:     r.LawType,
		Number:   r.Number,
		Year:     r.Year,
		Title:    r.Title,
		Content:  r.Content,
		IsActive: r.IsActive,
	}
}

// legislationAggregateResponse mirrors the GraphQL Aggregate response shape.
type legislationAggregateResponse struct {
	Aggregate struct {
		Legislation []struct {
			Meta struct {
				Count int `json:"count"`
			} `json:"meta"`
		} `json:"Legislation"`
	} `json:"Aggregate"`
}

// parseGraphQL converts Weaviate's dynamic response into a typed struct via
// the marshal/unmarshal round trip. The target type's json tags must match
// the response shape.
func parseGraphQL[T any](resp *models.GraphQLResponse) (*T, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil GraphQL response")
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", resp.Errors[0].Message)
	}

	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("marshaling response data: %w", err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}
	return &out, nil
}
