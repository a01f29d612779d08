// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package drafter provides the core document drafting service for LicitaCore.
//
// This package contains the main service type that coordinates all
// components: HTTP routing, the generation pipeline, the scoring agent
// panel, the citation verifier, the legislation corpus, the audit store,
// and observability infrastructure.
//
// # Enterprise Integration
//
// The drafter supports dependency injection via extensions.ServiceOptions,
// enabling LicitaEnterprise to provide custom implementations of:
//   - AuthProvider: Custom authentication (JWT, API keys)
//   - AuthzProvider: Role-based access control
//   - AuditLogger: Compliance audit logging
//   - DraftFilter: PII detection and redaction
//
// # Usage
//
// Open source (uses no-op defaults):
//
//	cfg := drafter.Config{Port: 12310}
//	svc, err := drafter.New(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svc.Run()
//
// Enterprise (with custom implementations):
//
//	opts := &extensions.ServiceOptions{
//	    AuthProvider: enterpriseAuth,
//	    AuditLogger:  enterpriseAudit,
//	}
//	svc, err := drafter.New(cfg, opts)
//
// # Import Path
//
// Enterprise imports this package as:
//
//	import "github.com/LicitaAI/LicitaCore/services/drafter"
package drafter

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/LicitaAI/LicitaCore/pkg/extensions"
	"github.com/LicitaAI/LicitaCore/services/drafter/agents"
	"github.com/LicitaAI/LicitaCore/services/drafter/analytics"
	"github.com/LicitaAI/LicitaCore/services/drafter/observability"
	"github.com/LicitaAI/LicitaCore/services/drafter/pipeline"
	"github.com/LicitaAI/LicitaCore/services/drafter/retention"
	"github.com/LicitaAI/LicitaCore/services/drafter/routes"
	"github.com/LicitaAI/LicitaCore/services/drafter/sanitizer"
	"github.com/LicitaAI/LicitaCore/services/drafter/schema"
	"github.com/LicitaAI/LicitaCore/services/drafter/store"
	"github.com/LicitaAI/LicitaCore/services/drafter/telemetry"
	"github.com/LicitaAI/LicitaCore/services/drafter/verifier"
	"github.com/LicitaAI/LicitaCore/services/lgpd"
	"github.com/LicitaAI/LicitaCore/services/llm"
	"github.com/dgraph-io/badger/v4"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the drafter service.
//
// # Description
//
// Service abstracts the drafter lifecycle, enabling testing and
// alternative implementations. The interface follows the minimal surface
// area principle - only essential lifecycle methods are exposed.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and should
// only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	//
	// Should not be used to modify routes after construction.
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds drafter configuration options.
//
// # Description
//
// Config centralizes all configuration for the drafter service. Values can
// be populated from environment variables, config files, or
// programmatically for testing.
//
// # Required Fields
//
// None - all fields have sensible defaults.
//
// # Examples
//
//	// Minimal config (uses all defaults)
//	cfg := Config{}
//
//	// Custom port and LLM backend
//	cfg := Config{
//	    Port:       8080,
//	    LLMBackend: "claude",
//	}
type Config struct {
	// Port is the HTTP server port. Default: 12310
	Port int

	// LLMBackend specifies the drafting LLM provider.
	// Valid values: "local", "openai", "ollama", "claude", "anthropic"
	// Default: "local"
	LLMBackend string

	// EmbeddingBackend specifies the embedding provider used for
	// legislation verification.
	// Valid values: "ollama", "openai"
	// Default: "ollama"
	EmbeddingBackend string

	// WeaviateURL is the Weaviate vector database URL. If empty, the
	// legislation corpus runs on the in-memory store.
	// Example: "http://localhost:8080"
	WeaviateURL string

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "licita-otel-collector:4317"
	OTelEndpoint string

	// TraceExporter selects the trace exporter: "otlp", "stdout", "none".
	// Default: "otlp"
	TraceExporter string

	// MetricExporter selects the metric exporter: "prometheus", "stdout",
	// "none". Default: "prometheus"
	MetricExporter string

	// GinMode sets the Gin framework mode.
	// Valid values: "debug", "release", "test"
	// Default: uses GIN_MODE env var or "debug"
	GinMode string

	// SchemaDir is a directory of section schema JSON files watched for
	// hot reload. If empty, only the embedded schemas are served.
	SchemaDir string

	// CorpusSnapshot is a JSONL legislation snapshot loaded into the
	// corpus at startup. Optional.
	CorpusSnapshot string

	// AuditDBPath is the SQLite audit database path. ":memory:" keeps the
	// audit trail ephemeral. Default: "./data/licita_audit.db"
	AuditDBPath string

	// EmbedCacheDir is the BadgerDB directory backing the embedding
	// cache. If empty the cache is held in memory.
	EmbedCacheDir string

	// DecisionPolicy is a CEL expression overriding the built-in
	// accept/retry decision. Empty uses the built-in policy.
	DecisionPolicy string

	// SimilarityThreshold gates verifier suggestions. Zero uses the
	// verifier default (0.7).
	SimilarityThreshold float64

	// TopK is the verifier candidate pool size. Zero uses the default (5).
	TopK int

	// AgentTimeout bounds each scoring agent. Zero uses the panel
	// default (10s).
	AgentTimeout time.Duration

	// GenerationTimeout bounds a single drafting call. Zero uses the
	// pipeline default (90s).
	GenerationTimeout time.Duration

	// LLMRateLimit caps drafting calls per second. Zero disables the
	// limiter.
	LLMRateLimit float64

	// LLMRateBurst is the drafting limiter burst size. Default: 1
	LLMRateBurst int

	// EmbedRateLimit caps embedding calls per second. Zero disables the
	// limiter.
	EmbedRateLimit float64

	// EmbedRateBurst is the embedding limiter burst size. Default: 4
	EmbedRateBurst int

	// RetentionInterval is how often the audit retention sweeper runs.
	// Default: 1 hour
	RetentionInterval time.Duration

	// RetentionTTL is how long audit runs are kept. Default: 90 days
	RetentionTTL time.Duration

	// RetentionLogPath is the purge audit log file.
	// Default: "./logs/retention_audit.log"
	RetentionLogPath string

	// DisableMetrics turns off Prometheus metrics. Metrics are on by
	// default.
	DisableMetrics bool

	// DisableRetention turns off the audit retention sweeper. The sweeper
	// runs by default whenever the audit store is available.
	DisableRetention bool

	// DisableWarmup skips model warmup for Ollama backends.
	DisableWarmup bool
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// # Description
//
// service is the main implementation that coordinates:
//   - HTTP routing via Gin
//   - The generation pipeline (draft, sanitize, score, decide)
//   - The five-agent scoring panel
//   - Legislation verification against Weaviate or the in-memory corpus
//   - SQLite audit persistence with TTL retention
//   - InfluxDB generation analytics
//   - OpenTelemetry tracing and Prometheus metrics
//
// # Thread Safety
//
// Thread-safe after construction. All fields are read-only after New()
// returns.
type service struct {
	config         Config
	opts           extensions.ServiceOptions
	router         *gin.Engine
	llmClient      llm.LLMClient
	embedder       llm.EmbeddingProvider
	embedCache     *badger.DB
	weaviateClient *weaviate.Client
	legisStore     verifier.LegislationStore
	verifier       *verifier.Verifier
	sanitizer      *sanitizer.Sanitizer
	registry       *schema.Registry
	schemaWatcher  *schema.Watcher
	pipeline       *pipeline.Pipeline
	scanner        *lgpd.Engine
	auditDB        *gorm.DB
	auditStore     store.AuditStore
	sweeper        *retention.Sweeper
	retentionSink  *retention.FileSink
	recorder       *analytics.Recorder
	warmer         *llm.ModelWarmer
	tracerCleanup  func(context.Context)
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a new drafter Service with the given configuration.
//
// # Description
//
// New initializes all drafter components:
//  1. Applies default configuration for missing values
//  2. Initializes OpenTelemetry tracing and metrics
//  3. Connects the legislation corpus (Weaviate, or in-memory fallback)
//  4. Loads the prompt sanitizer and the section schema registry
//  5. Creates the LLM client and the embedding provider
//  6. Builds the verifier, the agent panel, and the pipeline
//  7. Opens the audit store and starts the retention sweeper
//  8. Sets up HTTP routes with extension options
//
// If opts is nil, DefaultOptions() is used (no-op implementations).
//
// Failures split two ways. Components the pipeline cannot run without
// (sanitizer, registry, LLM client, embedder, decision policy) abort
// construction. Everything else (Weaviate, embed cache, audit store,
// retention, analytics, warmup) logs a warning and degrades: generation
// keeps working with reduced capability.
//
// # Inputs
//
//   - cfg: Service configuration. Zero values use defaults.
//   - opts: Extension options for enterprise features. May be nil.
//
// # Outputs
//
//   - Service: Ready-to-run drafter service
//   - error: Non-nil if initialization fails
func New(cfg Config, opts *extensions.ServiceOptions) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	// Apply extension options (use defaults if nil)
	if opts != nil {
		s.opts = *opts
	} else {
		s.opts = extensions.DefaultOptions()
	}

	// Initialize OpenTelemetry tracing and metrics
	cleanup, err := s.initTelemetry()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	s.tracerCleanup = cleanup

	// Initialize Prometheus pipeline metrics
	if !s.config.DisableMetrics {
		observability.InitMetrics()
		slog.Info("Initialized Prometheus metrics for generation pipeline")
	}

	// Connect the legislation corpus (optional Weaviate)
	if err := s.initLegislationStore(); err != nil {
		slog.Warn("Weaviate initialization failed, using in-memory corpus",
			"error", err)
		s.legisStore = verifier.NewMemoryStore()
	}

	// Seed the corpus from a snapshot file (optional)
	s.seedCorpus()

	// Load the prompt sanitizer rules
	s.sanitizer, err = sanitizer.New()
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize sanitizer: %w", err)
	}

	// Load the section schema registry
	if err := s.initRegistry(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize schema registry: %w", err)
	}

	// Initialize LLM client
	if err := s.initLLMClient(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	// Initialize embedding provider with cache and rate limiting
	if err := s.initEmbedder(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	// Build the verifier and the generation pipeline
	if err := s.initPipeline(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	// Compile the ingest classification scanner (optional)
	s.scanner, err = lgpd.NewEngine()
	if err != nil {
		slog.Warn("Classification scanner initialization failed, ingest will accept unscanned content",
			"error", err)
		s.scanner = nil
	}

	// Open the audit store (optional)
	if err := s.initAuditStore(); err != nil {
		slog.Warn("Audit store initialization failed, runs will not be persisted",
			"error", err)
	}

	// Start the retention sweeper (only with an audit store)
	if s.auditStore != nil && !s.config.DisableRetention {
		if err := s.initRetention(); err != nil {
			slog.Warn("Retention sweeper initialization failed",
				"error", err)
		}
	}

	// Initialize generation analytics (disabled without INFLUXDB_TOKEN)
	s.recorder = analytics.New(analytics.ConfigFromEnv())
	if s.recorder.Enabled() {
		slog.Info("Generation analytics enabled")
	}

	// Warm Ollama models in the background
	s.initWarmup()

	// Setup HTTP router
	s.initRouter()

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
// Cleanup is automatic on return.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting drafter server", "port", s.config.Port)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12310
	}
	if cfg.LLMBackend == "" {
		cfg.LLMBackend = "local"
	}
	if cfg.EmbeddingBackend == "" {
		cfg.EmbeddingBackend = "ollama"
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "licita-otel-collector:4317"
	}
	if cfg.AuditDBPath == "" {
		cfg.AuditDBPath = "./data/licita_audit.db"
	}
	if cfg.LLMRateBurst == 0 {
		cfg.LLMRateBurst = 1
	}
	if cfg.EmbedRateBurst == 0 {
		cfg.EmbedRateBurst = 4
	}
	if cfg.RetentionInterval == 0 {
		cfg.RetentionInterval = 1 * time.Hour
	}
	if cfg.RetentionTTL == 0 {
		cfg.RetentionTTL = 90 * 24 * time.Hour
	}
	if cfg.RetentionLogPath == "" {
		cfg.RetentionLogPath = "./logs/retention_audit.log"
	}
	return cfg
}

// initTelemetry initializes OpenTelemetry tracing and metrics.
//
// Runs in degraded mode rather than failing startup when the collector is
// unreachable: drafting must not depend on observability infrastructure.
func (s *service) initTelemetry() (func(context.Context), error) {
	tcfg := telemetry.DefaultConfig()
	tcfg.OTLPEndpoint = s.config.OTelEndpoint
	tcfg.AllowDegraded = true
	if s.config.TraceExporter != "" {
		tcfg.TraceExporter = s.config.TraceExporter
	}
	if s.config.MetricExporter != "" {
		tcfg.MetricExporter = s.config.MetricExporter
	}
	if s.config.DisableMetrics {
		tcfg.MetricExporter = "none"
	}

	shutdown, err := telemetry.Init(context.Background(), tcfg)
	if err != nil {
		return nil, err
	}

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			slog.Error("failed to shutdown telemetry", "error", err)
		}
	}

	return cleanup, nil
}

// initLegislationStore connects the Weaviate-backed corpus.
//
// Returns nil with the in-memory store when no URL is configured. Returns
// an error when a URL is configured but unusable; the caller falls back to
// the in-memory store.
func (s *service) initLegislationStore() error {
	weaviateURL := strings.Trim(s.config.WeaviateURL, "\"' ")

	if weaviateURL == "" || !strings.Contains(weaviateURL, "http") {
		slog.Info("Weaviate URL not configured, using in-memory corpus")
		s.legisStore = verifier.NewMemoryStore()
		return nil
	}

	parsedURL, err := url.Parse(weaviateURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return fmt.Errorf("invalid Weaviate URL: %s", weaviateURL)
	}

	clientConf := weaviate.Config{
		Host:   parsedURL.Host,
		Scheme: parsedURL.Scheme,
	}

	s.weaviateClient, err = weaviate.NewClient(clientConf)
	if err != nil {
		return fmt.Errorf("failed to create Weaviate client: %w", err)
	}

	ws, err := verifier.NewWeaviateStore(s.weaviateClient)
	if err != nil {
		return fmt.Errorf("failed to create Weaviate corpus store: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := ws.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure Weaviate schema: %w", err)
	}

	s.legisStore = ws
	slog.Info("Weaviate corpus initialized", "url", weaviateURL)

	return nil
}

// seedCorpus loads the configured JSONL snapshot into the corpus.
// Upserts are keyed on (type, number, year), so reloading the same
// snapshot is idempotent.
func (s *service) seedCorpus() {
	if s.config.CorpusSnapshot == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	count, err := verifier.LoadSnapshotFile(ctx, s.legisStore, s.config.CorpusSnapshot)
	if err != nil {
		slog.Warn("Corpus snapshot load failed",
			"path", s.config.CorpusSnapshot,
			"error", err)
		return
	}
	slog.Info("Corpus snapshot loaded",
		"path", s.config.CorpusSnapshot,
		"records", count)
}

// initRegistry loads the embedded section schemas and, when a schema
// directory is configured, overlays it and starts the hot-reload watcher.
func (s *service) initRegistry() error {
	reg, err := schema.NewRegistry()
	if err != nil {
		return err
	}
	s.registry = reg

	if s.config.SchemaDir == "" {
		return nil
	}

	if err := reg.LoadDir(s.config.SchemaDir); err != nil {
		slog.Warn("Schema directory load failed, serving embedded schemas",
			"dir", s.config.SchemaDir,
			"error", err)
		return nil
	}

	watcher, err := schema.NewWatcher(reg, s.config.SchemaDir, nil)
	if err != nil {
		slog.Warn("Schema watcher creation failed, hot reload disabled",
			"error", err)
		return nil
	}
	if err := watcher.Start(context.Background()); err != nil {
		slog.Warn("Schema watcher start failed, hot reload disabled",
			"error", err)
		return nil
	}
	s.schemaWatcher = watcher
	slog.Info("Schema hot reload active", "dir", s.config.SchemaDir)

	return nil
}

// initLLMClient initializes the drafting LLM client.
func (s *service) initLLMClient() error {
	var client llm.LLMClient
	var err error

	switch s.config.LLMBackend {
	case "local":
		client, err = llm.NewLocalLlamaCppClient()
		slog.Info("Using Local Llama.cpp LLM backend")
	case "openai":
		client, err = llm.NewOpenAIClient()
		slog.Info("Using OpenAI LLM backend")
	case "ollama":
		client, err = llm.NewOllamaClient()
		slog.Info("Using Ollama LLM backend")
	case "claude", "anthropic":
		client, err = llm.NewAnthropicClient()
		slog.Info("Using Anthropic (Claude) LLM backend")
	default:
		slog.Warn("Unknown LLM backend, defaulting to local", "backend", s.config.LLMBackend)
		client, err = llm.NewLocalLlamaCppClient()
	}
	if err != nil {
		return err
	}

	if s.config.LLMRateLimit > 0 {
		client = llm.NewRateLimitedClient(client, s.config.LLMRateLimit, s.config.LLMRateBurst)
		slog.Info("LLM rate limiter active",
			"rps", s.config.LLMRateLimit,
			"burst", s.config.LLMRateBurst)
	}

	s.llmClient = client
	return nil
}

// initEmbedder initializes the embedding provider chain.
//
// The chain is inner provider -> rate limiter -> cache, so cache hits
// consume neither rate budget nor backend capacity.
func (s *service) initEmbedder() error {
	var embedder llm.EmbeddingProvider
	var err error

	switch s.config.EmbeddingBackend {
	case "openai":
		embedder, err = llm.NewOpenAIEmbedder()
		slog.Info("Using OpenAI embedding backend")
	case "ollama":
		embedder, err = llm.NewOllamaEmbedder()
		slog.Info("Using Ollama embedding backend")
	default:
		slog.Warn("Unknown embedding backend, defaulting to ollama",
			"backend", s.config.EmbeddingBackend)
		embedder, err = llm.NewOllamaEmbedder()
	}
	if err != nil {
		return err
	}

	if s.config.EmbedRateLimit > 0 {
		embedder = llm.NewRateLimitedEmbedder(embedder, s.config.EmbedRateLimit, s.config.EmbedRateBurst)
	}

	cache, err := llm.OpenEmbedCache(s.config.EmbedCacheDir)
	if err != nil {
		slog.Warn("Embedding cache unavailable, every citation check hits the backend",
			"error", err)
	} else {
		s.embedCache = cache
		embedder = llm.NewCachedEmbedder(embedder, cache, 0)
	}

	s.embedder = embedder
	return nil
}

// initPipeline builds the verifier, the agent panel, the decision policy,
// and the generation pipeline.
func (s *service) initPipeline() error {
	v, err := verifier.NewVerifier(s.legisStore, s.embedder, verifier.Config{
		SimilarityThreshold: s.config.SimilarityThreshold,
		TopK:                s.config.TopK,
	})
	if err != nil {
		return fmt.Errorf("verifier: %w", err)
	}
	s.verifier = v

	panel := agents.NewPanel(agents.DefaultAgents(v), s.config.AgentTimeout)

	policy, err := pipeline.NewDecisionPolicy(s.config.DecisionPolicy)
	if err != nil {
		return fmt.Errorf("decision policy: %w", err)
	}
	if s.config.DecisionPolicy != "" {
		slog.Info("Custom decision policy compiled")
	}

	p, err := pipeline.New(s.llmClient, s.sanitizer, s.registry, panel, policy, pipeline.Config{
		GenerationTimeout: s.config.GenerationTimeout,
	})
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	s.pipeline = p

	return nil
}

// initAuditStore opens the SQLite audit database.
func (s *service) initAuditStore() error {
	path := s.config.AuditDBPath
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return fmt.Errorf("create audit directory: %w", err)
		}
	}

	db, err := store.Open(path)
	if err != nil {
		return err
	}
	s.auditDB = db
	s.auditStore = store.New(db)
	slog.Info("Audit store opened", "path", path)

	return nil
}

// initRetention starts the background audit retention sweeper.
func (s *service) initRetention() error {
	sink, err := retention.NewFileSink(s.config.RetentionLogPath)
	if err != nil {
		slog.Warn("Failed to create retention audit log, purges will not be recorded to file",
			"log_path", s.config.RetentionLogPath,
			"error", err)
	} else {
		s.retentionSink = sink
	}

	var auditSink retention.AuditSink = retention.NewNoopSink()
	if s.retentionSink != nil {
		auditSink = s.retentionSink
	}

	sweeper, err := retention.NewSweeper(s.auditStore, retention.NewGuardedClock(), auditSink, retention.Config{
		Interval: s.config.RetentionInterval,
		TTL:      s.config.RetentionTTL,
	})
	if err != nil {
		return err
	}
	if err := sweeper.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start retention sweeper: %w", err)
	}
	s.sweeper = sweeper

	slog.Info("Audit retention sweeper started",
		"interval", s.config.RetentionInterval.String(),
		"ttl", s.config.RetentionTTL.String(),
	)

	return nil
}

// initWarmup preloads Ollama models in the background so the first draft
// request does not pay the model load penalty.
func (s *service) initWarmup() {
	if s.config.DisableWarmup {
		return
	}
	if s.config.LLMBackend != "ollama" && s.config.EmbeddingBackend != "ollama" {
		return
	}

	baseURL := os.Getenv("OLLAMA_BASE_URL")
	if baseURL == "" {
		slog.Warn("OLLAMA_BASE_URL not set, skipping model warmup")
		return
	}

	var configs []llm.WarmupConfig
	if s.config.EmbeddingBackend == "ollama" {
		model := os.Getenv("OLLAMA_EMBEDDING_MODEL")
		if model == "" {
			model = "nomic-embed-text"
		}
		configs = append(configs, llm.WarmupConfig{
			Model:     model,
			KeepAlive: "-1",
			Priority:  20,
			Embedding: true,
		})
	}
	if s.config.LLMBackend == "ollama" {
		model := os.Getenv("OLLAMA_MODEL")
		if model == "" {
			model = "llama3.1"
		}
		configs = append(configs, llm.WarmupConfig{
			Model:     model,
			KeepAlive: "-1",
			Priority:  10,
		})
	}
	if len(configs) == 0 {
		return
	}

	s.warmer = llm.NewModelWarmer(baseURL)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := s.warmer.WarmAll(ctx, configs); err != nil {
			slog.Warn("Model warmup incomplete", "error", err)
		}
	}()
}

// initRouter sets up the Gin HTTP router with all routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}

	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("licita-drafter"))
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	routes.SetupRoutes(s.router, routes.Deps{
		Pipeline:    s.pipeline,
		Registry:    s.registry,
		Verifier:    s.verifier,
		Legislation: s.legisStore,
		Embedder:    s.embedder,
		Scanner:     s.scanner,
		AuditStore:  s.auditStore,
		Recorder:    s.recorder,
		Warmer:      s.warmer,
		Options:     s.opts,
	})
}

// cleanup releases all resources held by the service.
//
// Called when Run() exits or on initialization failure. Safe to call with
// partially initialized state.
func (s *service) cleanup() {
	// Stop the schema watcher
	if s.schemaWatcher != nil {
		s.schemaWatcher.Stop()
	}

	// Stop the retention sweeper before closing its store
	if s.sweeper != nil {
		s.sweeper.Stop()
	}
	if s.retentionSink != nil {
		if err := s.retentionSink.Close(); err != nil {
			slog.Warn("Retention sink close error", "error", err)
		}
	}

	// Flush pending analytics points
	if s.recorder != nil {
		s.recorder.Close()
	}

	// Close the embedding cache
	if s.embedCache != nil {
		if err := s.embedCache.Close(); err != nil {
			slog.Warn("Embedding cache close error", "error", err)
		}
	}

	// Close the audit database
	if s.auditDB != nil {
		if sqlDB, err := s.auditDB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				slog.Warn("Audit database close error", "error", err)
			}
		}
	}

	// Shutdown tracer
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
