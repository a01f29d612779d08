// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command drafter starts the LicitaCore drafter HTTP server.
//
// This is the main entry point for the containerized drafter service.
// It reads configuration from environment variables and starts the server.
//
// # Environment Variables
//
//   - DRAFTER_PORT: HTTP server port (default: 12310)
//   - LLM_BACKEND_TYPE: LLM provider - local, openai, ollama, claude (default: local)
//   - EMBEDDING_BACKEND_TYPE: embedding provider - ollama, openai (default: ollama)
//   - WEAVIATE_SERVICE_URL: Weaviate vector DB URL (optional)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: licita-otel-collector:4317)
//   - DRAFTER_SCHEMA_DIR: section schema directory with hot reload (optional)
//   - DRAFTER_CORPUS_SNAPSHOT: JSONL legislation snapshot loaded at startup (optional)
//   - DRAFTER_AUDIT_DB: SQLite audit database path (default: ./data/licita_audit.db)
//   - DRAFTER_EMBED_CACHE_DIR: BadgerDB embedding cache directory (default: in-memory)
//   - DECISION_POLICY_CEL: CEL expression overriding the accept/retry decision (optional)
//   - VERIFIER_SIMILARITY_THRESHOLD: near-miss suggestion threshold (default: 0.7)
//   - VERIFIER_TOP_K: verifier candidate pool size (default: 5)
//   - LLM_RATE_LIMIT: drafting calls per second, 0 disables (default: 0)
//   - EMBED_RATE_LIMIT: embedding calls per second, 0 disables (default: 0)
//   - RETENTION_TTL_DAYS: audit retention in days (default: 90)
//   - RETENTION_LOG_PATH: purge audit log (default: ./logs/retention_audit.log)
//
// # Usage
//
//	# Build
//	go build -o drafter ./cmd/drafter
//
//	# Run
//	./drafter
//
//	# Or via container
//	podman-compose up drafter
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/LicitaAI/LicitaCore/services/drafter"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Build configuration from environment variables
	cfg := drafter.Config{
		Port:                getEnvInt("DRAFTER_PORT", 12310),
		LLMBackend:          getEnvString("LLM_BACKEND_TYPE", "local"),
		EmbeddingBackend:    getEnvString("EMBEDDING_BACKEND_TYPE", "ollama"),
		WeaviateURL:         os.Getenv("WEAVIATE_SERVICE_URL"),
		OTelEndpoint:        getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "licita-otel-collector:4317"),
		SchemaDir:           os.Getenv("DRAFTER_SCHEMA_DIR"),
		CorpusSnapshot:      os.Getenv("DRAFTER_CORPUS_SNAPSHOT"),
		AuditDBPath:         getEnvString("DRAFTER_AUDIT_DB", "./data/licita_audit.db"),
		EmbedCacheDir:       os.Getenv("DRAFTER_EMBED_CACHE_DIR"),
		DecisionPolicy:      os.Getenv("DECISION_POLICY_CEL"),
		SimilarityThreshold: getEnvFloat("VERIFIER_SIMILARITY_THRESHOLD", 0),
		TopK:                getEnvInt("VERIFIER_TOP_K", 0),
		LLMRateLimit:        getEnvFloat("LLM_RATE_LIMIT", 0),
		EmbedRateLimit:      getEnvFloat("EMBED_RATE_LIMIT", 0),
		RetentionTTL:        time.Duration(getEnvInt("RETENTION_TTL_DAYS", 90)) * 24 * time.Hour,
		RetentionLogPath:    getEnvString("RETENTION_LOG_PATH", "./logs/retention_audit.log"),
	}

	slog.Info("Starting drafter",
		"port", cfg.Port,
		"llm_backend", cfg.LLMBackend,
		"embedding_backend", cfg.EmbeddingBackend,
		"weaviate_url", cfg.WeaviateURL,
	)

	// Create drafter with default (no-op) extension options
	// Enterprise builds will pass custom ServiceOptions here
	svc, err := drafter.New(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to create drafter: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Drafter error: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns the environment variable as float64 or a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
