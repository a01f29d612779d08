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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/LicitaAI/LicitaCore/pkg/validation"
	"github.com/gin-gonic/gin"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

const (
	NUM_WORKERS = 4 // Number of parallel upstream fetches per API request
)

// HTTPClient interface allows injecting mock HTTP clients for testing
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Server struct holds all dependencies
type Server struct {
	WriteAPI    api.WriteAPIBlocking
	QueryAPI    api.QueryAPI
	HTTPClient  HTTPClient
	UpstreamURL string
	DrafterURL  string
}

// --- Upstream Norm API Structs ---
type UpstreamNormResponse struct {
	Norm  *UpstreamNorm `json:"norm"`
	Error string        `json:"error,omitempty"`
}

type UpstreamNorm struct {
	Urn       string `json:"urn"`
	Title     string `json:"title"`
	Situation string `json:"situation"` // e.g. "em vigor", "revogada"
	FullText  string `json:"full_text"`
}

// --- Drafter Ingest Structs ---
// Wire mirror of the drafter's /v1/legislation/ingest contract; kept local so
// this service depends only on pkg/validation.
type IngestRecord struct {
	Type     string `json:"type"`
	Number   string `json:"number"`
	Year     int    `json:"year"`
	Title    string `json:"title,omitempty"`
	Content  string `json:"content"`
	IsActive *bool  `json:"is_active,omitempty"`
}

type IngestRequest struct {
	Records []IngestRecord `json:"records"`
}

type IngestResponse struct {
	Ingested int      `json:"ingested"`
	Chunks   int      `json:"chunks,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// --- API Request/Response Structs ---
type NormFetchRequest struct {
	References []string `json:"references"` // e.g. "Lei 14.133/2021", "IN 65/2021"
}

type NormFetchResponse struct {
	Status       string            `json:"status"`
	Message      string            `json:"message"`
	Ingested     int               `json:"ingested"`
	Details      map[string]string `json:"details"`
	IngestErrors []string          `json:"ingest_errors,omitempty"`
}

type NormStatsRequest struct {
	Days int `json:"days"` // Look-back window (defaults to 7)
}

type NormStatsResponse struct {
	Days   int              `json:"days"`
	Counts map[string]int64 `json:"counts"`
}

// fetchResult is one worker's outcome for a single reference.
type fetchResult struct {
	raw     string
	ref     validation.Reference
	record  *IngestRecord
	errMsg  string
	elapsed time.Duration
}

// InfluxDB configuration from environment
var (
	influxURL    = os.Getenv("INFLUXDB_URL")
	influxToken  = os.Getenv("INFLUXDB_TOKEN")
	influxOrg    = os.Getenv("INFLUXDB_ORG")
	influxBucket = os.Getenv("INFLUXDB_BUCKET")
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Set defaults if not provided
	if influxURL == "" {
		influxURL = "http://influxdb:8086"
	}
	if influxToken == "" {
		slog.Error("INFLUXDB_TOKEN environment variable is required")
		os.Exit(1)
	}
	if influxOrg == "" {
		influxOrg = "licita"
	}
	if influxBucket == "" {
		influxBucket = "legislation-data"
	}

	upstreamURL := os.Getenv("UPSTREAM_NORMS_URL")
	if upstreamURL == "" {
		upstreamURL = "http://normas-api:8090"
	}
	drafterURL := os.Getenv("DRAFTER_URL")
	if drafterURL == "" {
		drafterURL = "http://drafter:12310"
	}

	slog.Info("Starting Licita Legislation Fetcher",
		"influx_url", influxURL,
		"influx_org", influxOrg,
		"influx_bucket", influxBucket,
		"upstream_url", upstreamURL,
		"drafter_url", drafterURL)

	// Create InfluxDB client
	influxClient := influxdb2.NewClient(influxURL, influxToken)
	defer influxClient.Close()

	// Wait for InfluxDB to be ready
	var influxReady bool
	slog.Info("Waiting for InfluxDB to be ready...")
	for i := 0; i < 10; i++ {
		health, err := influxClient.Health(context.Background())
		if err == nil && health.Status == "pass" {
			influxReady = true
			break
		}

		var errMsg string
		if err != nil {
			errMsg = err.Error()
		} else if health != nil && health.Message != nil {
			errMsg = *health.Message
		}
		slog.Warn("InfluxDB not ready, retrying...", "attempt", i+1, "error", errMsg)
		time.Sleep(3 * time.Second)
	}

	if !influxReady {
		slog.Error("Failed to connect to InfluxDB after all retries")
		os.Exit(1)
	}

	slog.Info("Successfully connected to InfluxDB")

	// Create Server instance
	server := &Server{
		WriteAPI:    influxClient.WriteAPIBlocking(influxOrg, influxBucket),
		QueryAPI:    influxClient.QueryAPI(influxOrg),
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
		UpstreamURL: upstreamURL,
		DrafterURL:  drafterURL,
	}

	// Start Gin server
	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "licita-legis-fetcher"})
	})

	// Norm endpoints
	router.POST("/v1/norms/fetch", server.handleFetchNorms)
	router.POST("/v1/norms/stats", server.handleFetchStats)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8002"
	}

	slog.Info("Starting legislation fetcher API server", "port", port)
	if err := router.Run(":" + port); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// handleFetchNorms fetches norms from the upstream API and submits them to
// the drafter's legislation ingest endpoint
func (s *Server) handleFetchNorms(c *gin.Context) {
	var req NormFetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if len(req.References) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No references provided"})
		return
	}

	slog.Info("Handling norm fetch request", "references", len(req.References))

	var wg sync.WaitGroup
	refJobs := make(chan string, len(req.References))
	results := make(chan fetchResult, len(req.References))

	// Create worker goroutines
	for i := 0; i < NUM_WORKERS; i++ {
		wg.Add(1)
		go s.fetchWorker(i, &wg, refJobs, results)
	}

	// Send jobs
	for _, ref := range req.References {
		refJobs <- ref
	}
	close(refJobs)

	// Wait for all workers
	wg.Wait()
	close(results)

	// Collect results
	details := make(map[string]string)
	var records []IngestRecord
	var collected []fetchResult
	for res := range results {
		collected = append(collected, res)
		if res.errMsg != "" {
			details[res.raw] = "Error: " + res.errMsg
			continue
		}
		details[res.raw] = fmt.Sprintf("fetched (%d chars)", len(res.record.Content))
		records = append(records, *res.record)
	}

	// Submit everything fetched to the drafter in one batch
	resp := NormFetchResponse{
		Status:  "success",
		Message: fmt.Sprintf("Fetch completed for %d references", len(req.References)),
		Details: details,
	}
	if len(records) > 0 {
		ingestResp, err := s.postIngest(c.Request.Context(), records)
		if err != nil {
			slog.Error("Failed to submit norms to drafter", "error", err)
			s.writeFetchPoints(collected)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Drafter ingest failed", "details": err.Error()})
			return
		}
		resp.Ingested = ingestResp.Ingested
		resp.IngestErrors = ingestResp.Errors
	}

	s.writeFetchPoints(collected)

	slog.Info("Norm fetch complete",
		"references", len(req.References),
		"fetched", len(records),
		"ingested", resp.Ingested)
	c.JSON(http.StatusOK, resp)
}

// fetchWorker processes a single reference
func (s *Server) fetchWorker(id int, wg *sync.WaitGroup,
	jobs <-chan string, results chan<- fetchResult) {

	defer wg.Done()
	for raw := range jobs {
		slog.Info("Worker processing", "worker_id", id, "reference", raw)
		start := time.Now()

		// 1. Parse and validate the reference (also keeps it safe for the
		// upstream URL and the Flux stats tags)
		ref, err := validation.ParseReference(raw)
		if err != nil {
			slog.Error("Invalid reference", "worker_id", id, "reference", raw, "error", err)
			results <- fetchResult{raw: raw, errMsg: err.Error(), elapsed: time.Since(start)}
			continue
		}

		// 2. Fetch the norm from the upstream API
		record, err := s.fetchUpstreamNorm(ref)
		if err != nil {
			slog.Error("Failed to fetch norm", "worker_id", id, "reference", ref.String(), "error", err)
			results <- fetchResult{raw: raw, ref: ref, errMsg: err.Error(), elapsed: time.Since(start)}
			continue
		}

		results <- fetchResult{raw: raw, ref: ref, record: record, elapsed: time.Since(start)}
	}
}

// fetchUpstreamNorm fetches one norm's metadata and text from the upstream API
func (s *Server) fetchUpstreamNorm(ref validation.Reference) (*IngestRecord, error) {
	reqURL := fmt.Sprintf(
		"%s/v1/norms?type=%s&number=%s&year=%d",
		s.UpstreamURL,
		url.QueryEscape(strings.ToLower(string(ref.Type))),
		url.QueryEscape(ref.Number),
		ref.Year,
	)

	req, err := http.NewRequest("GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "licita-legis-fetcher/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call upstream API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("norm not found upstream: %s", ref.String())
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream API returned status %s", resp.Status)
	}

	var normResp UpstreamNormResponse
	if err := json.NewDecoder(resp.Body).Decode(&normResp); err != nil {
		return nil, fmt.Errorf("failed to decode upstream JSON: %w", err)
	}

	if normResp.Error != "" {
		return nil, fmt.Errorf("upstream API error: %s", normResp.Error)
	}
	if normResp.Norm == nil {
		return nil, fmt.Errorf("upstream returned no norm for %s", ref.String())
	}
	if strings.TrimSpace(normResp.Norm.FullText) == "" {
		return nil, fmt.Errorf("upstream returned empty text for %s", ref.String())
	}

	record := &IngestRecord{
		Type:    string(ref.Type),
		Number:  ref.Number,
		Year:    ref.Year,
		Title:   normResp.Norm.Title,
		Content: normResp.Norm.FullText,
	}
	if !situationActive(normResp.Norm.Situation) {
		inactive := false
		record.IsActive = &inactive
	}
	return record, nil
}

// situationActive maps the upstream's free-text situation to the ingest
// is_active flag. Upstream spells situations inconsistently ("Revogada",
// "revogado pelo Decreto..."), so matching is on the lowercased prefix.
func situationActive(situation string) bool {
	s := strings.ToLower(strings.TrimSpace(situation))
	switch {
	case s == "":
		return true
	case strings.HasPrefix(s, "revogad"),
		strings.HasPrefix(s, "sem efic"),
		strings.HasPrefix(s, "suspens"):
		return false
	}
	return true
}

// postIngest submits fetched records to the drafter's ingest endpoint
func (s *Server) postIngest(ctx context.Context, records []IngestRecord) (*IngestResponse, error) {
	body, err := json.Marshal(IngestRequest{Records: records})
	if err != nil {
		return nil, fmt.Errorf("failed to encode ingest request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		s.DrafterURL+"/v1/legislation/ingest", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create ingest request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call drafter ingest: %w", err)
	}
	defer resp.Body.Close()

	// 422 still carries a response body listing why each record was refused
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusUnprocessableEntity {
		return nil, fmt.Errorf("drafter ingest returned status %s", resp.Status)
	}

	var ingestResp IngestResponse
	if err := json.NewDecoder(resp.Body).Decode(&ingestResp); err != nil {
		return nil, fmt.Errorf("failed to decode ingest response: %w", err)
	}
	return &ingestResp, nil
}

// writeFetchPoints records one InfluxDB point per processed reference
func (s *Server) writeFetchPoints(results []fetchResult) {
	for _, res := range results {
		status := "fetched"
		normType := string(res.ref.Type)
		if res.errMsg != "" {
			status = "error"
		}
		if normType == "" {
			normType = "invalid"
		}

		p := influxdb2.NewPoint(
			"norm_fetches",
			map[string]string{
				"type":   normType,
				"status": status,
			},
			map[string]interface{}{
				"count":       1,
				"duration_ms": res.elapsed.Milliseconds(),
			},
			time.Now(),
		)
		if err := s.WriteAPI.WritePoint(context.Background(), p); err != nil {
			slog.Error("Failed to write fetch stats to InfluxDB", "reference", res.raw, "error", err)
		}
	}
}

// handleFetchStats queries fetch counts by status from InfluxDB
func (s *Server) handleFetchStats(c *gin.Context) {
	var req NormStatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if req.Days <= 0 {
		req.Days = 7
	}

	// Days is an int formatted server-side, so no caller text reaches Flux
	query := fmt.Sprintf(`
        from(bucket: "%s")
          |> range(start: -%dd)
          |> filter(fn: (r) => r._measurement == "norm_fetches")
          |> filter(fn: (r) => r._field == "count")
          |> group(columns: ["status"])
          |> sum()
    `, influxBucket, req.Days)

	result, err := s.QueryAPI.Query(context.Background(), query)
	if err != nil {
		slog.Error("Stats query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Query failed", "details": err.Error()})
		return
	}

	counts := make(map[string]int64)

	// Guard against nil result (can happen with empty query results)
	if result != nil {
		for result.Next() {
			record := result.Record()
			status, _ := record.ValueByKey("status").(string)
			if status == "" {
				continue
			}
			switch v := record.Value().(type) {
			case int64:
				counts[status] += v
			case float64:
				counts[status] += int64(v)
			}
		}
		if result.Err() != nil {
			slog.Error("Stats result iteration error", "error", result.Err())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Query result error", "details": result.Err().Error()})
			return
		}
	}

	slog.Info("Stats query complete", "days", req.Days, "statuses", len(counts))
	c.JSON(http.StatusOK, NormStatsResponse{Days: req.Days, Counts: counts})
}
