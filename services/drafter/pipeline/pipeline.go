// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline orchestrates section generation end to end: it drafts with
// the configured LLM backend, validates drafts against the section schema,
// scores them with the agent panel, and retries with an augmented prompt
// until a draft is accepted or the retry budget runs out.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/LicitaAI/LicitaCore/services/drafter/agents"
	"github.com/LicitaAI/LicitaCore/services/drafter/datatypes"
	"github.com/LicitaAI/LicitaCore/services/drafter/observability"
	"github.com/LicitaAI/LicitaCore/services/drafter/sanitizer"
	"github.com/LicitaAI/LicitaCore/services/drafter/schema"
	"github.com/LicitaAI/LicitaCore/services/llm"
)

var tracer = otel.Tracer("licita.drafter.pipeline")

// sanitizerAgentName labels findings synthesized from sanitizer violations,
// so rejected drafts report every problem through one findings list.
const sanitizerAgentName = "sanitizer"

// Pipeline defaults; any non-positive Config field takes these.
const (
	DefaultGenerationTimeout = 90 * time.Second
	DefaultRetryDelay        = 500 * time.Millisecond
	DefaultMaxTokens         = 4096
	DefaultTemperature       = 0.3
)

// =============================================================================
// Configuration
// =============================================================================

// Config tunes one pipeline instance.
type Config struct {
	// GenerationTimeout bounds a single LLM drafting call.
	GenerationTimeout time.Duration

	// RetryDelay is the backoff before the second attempt; it doubles after
	// every retry.
	RetryDelay time.Duration

	// MaxTokens caps the backend generation length.
	MaxTokens int

	// Temperature is the drafting sampling temperature. Administrative prose
	// wants low variance.
	Temperature float32
}

func (c *Config) applyDefaults() {
	if c.GenerationTimeout <= 0 {
		c.GenerationTimeout = DefaultGenerationTimeout
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Temperature <= 0 {
		c.Temperature = DefaultTemperature
	}
}

// =============================================================================
// Pipeline
// =============================================================================

// Pipeline generates one section per Run call.
//
// # Thread Safety
//
// Safe for concurrent use; every run keeps its own state machine and attempt
// records.
type Pipeline struct {
	llm       llm.LLMClient
	sanitizer *sanitizer.Sanitizer
	registry  *schema.Registry
	panel     *agents.Panel
	policy    *DecisionPolicy
	families  []string
	cfg       Config
}

// New builds a pipeline over its collaborators. A nil policy means the
// builtin acceptance gate (no critical findings).
func New(client llm.LLMClient, san *sanitizer.Sanitizer, reg *schema.Registry, panel *agents.Panel, policy *DecisionPolicy, cfg Config) (*Pipeline, error) {
	if client == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	if san == nil {
		return nil, fmt.Errorf("sanitizer is required")
	}
	if reg == nil {
		return nil, fmt.Errorf("schema registry is required")
	}
	if panel == nil {
		return nil, fmt.Errorf("agent panel is required")
	}
	cfg.applyDefaults()

	return &Pipeline{
		llm:       client,
		sanitizer: san,
		registry:  reg,
		panel:     panel,
		policy:    policy,
		families:  san.Families(),
		cfg:       cfg,
	}, nil
}

// RunResult is everything one run produced: the client-facing response plus
// the per-attempt records the caller hands to the audit store.
type RunResult struct {
	Response   *datatypes.GenerateSectionResponse
	Attempts   []datatypes.GenerationAttempt
	FinalState State
}

// Run drives one request to a terminal state. See RunWithObserver.
func (p *Pipeline) Run(ctx context.Context, req *datatypes.GenerateSectionRequest) (*RunResult, error) {
	return p.RunWithObserver(ctx, req, nil)
}

// RunWithObserver drives one request through draft, sanitize, score, decide,
// retrying until a draft is accepted or the schema's retry budget is spent.
//
// # Description
//
// The run always ends in Accepted or Failed; a failed run is a result, not an
// error. Failed responses are fail-soft: they carry the final attempt's
// content and findings so a human can repair the draft. The only errors
// returned are a canceled parent context, a refused confidential run, and
// internal state-machine bugs.
//
// Confidential requests hold each draft in an mlocked vault. Retried drafts
// are wiped, so a confidential run that ends in a provider error serves no
// content; attempt records carry a content hash instead of text.
//
// The observer, when non-nil, receives every state transition synchronously;
// it must not block.
func (p *Pipeline) RunWithObserver(ctx context.Context, req *datatypes.GenerateSectionRequest, obs Observer) (*RunResult, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	req.EnsureDefaults()

	sch := p.registry.Get(req.SectionType)
	maxAttempts := sch.MaxRetries + 1
	runStart := time.Now()

	ctx, span := tracer.Start(ctx, "Pipeline.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("request_id", req.RequestID),
		attribute.String("section_type", sch.Type),
		attribute.String("schema_version", sch.Version),
		attribute.Bool("confidential", req.Confidential),
		attribute.Int("max_attempts", maxAttempts),
	)

	slog.Info("Section generation starting",
		"request_id", req.RequestID,
		"section_type", sch.Type,
		"schema_version", sch.Version,
		"confidential", req.Confidential,
		"max_attempts", maxAttempts)

	result := &RunResult{Response: datatypes.NewGenerateSectionResponse(req.RequestID, req.SectionType)}
	resp := result.Response
	fsm := newMachine(req.RequestID, obs)

	retryDelay := p.cfg.RetryDelay
	var priorViolations []string

	// Fail-soft bookkeeping for a terminal provider error: the most recent
	// completed draft and the most recent diagnostics.
	var lastContent string
	var lastFindings []datatypes.Finding

	for attemptNum := 1; attemptNum <= maxAttempts; attemptNum++ {
		if attemptNum > 1 {
			span.AddEvent("retry_attempt")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
			retryDelay *= 2

			if err := fsm.to(StateDrafting, attemptNum, "starting attempt"); err != nil {
				return nil, err
			}
		}

		attemptStart := time.Now()
		attempt := datatypes.GenerationAttempt{AttemptNumber: attemptNum}
		budgetLeft := attemptNum < maxAttempts

		var vault DraftVault
		if req.Confidential {
			v, err := NewDraftVault(req.RequestID)
			if err != nil {
				span.RecordError(err)
				return nil, fmt.Errorf("confidential run refused: %w", err)
			}
			vault = v
		}

		// ------------------------------------------------------------ Draft
		raw, genErr := p.generate(ctx, buildPrompt(sch, req, priorViolations))
		if genErr != nil {
			if vault != nil {
				vault.Destroy()
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			provErr := classifyProviderError(genErr)
			span.RecordError(genErr)
			slog.Warn("Draft generation failed",
				"request_id", req.RequestID,
				"attempt", attemptNum,
				"timeout", provErr.Timeout,
				"retryable", provErr.Retryable,
				"error", genErr)

			attempt.DurationMs = time.Since(attemptStart).Milliseconds()
			if provErr.Retryable && budgetLeft {
				attempt.Outcome = datatypes.AttemptRetrying
				p.recordAttempt(sch.Type, attempt.Outcome)
				result.Attempts = append(result.Attempts, attempt)
				if err := fsm.to(StateRetrying, attemptNum, provErr.Error()); err != nil {
					return nil, err
				}
				continue
			}

			attempt.Outcome = datatypes.AttemptProviderError
			p.recordAttempt(sch.Type, attempt.Outcome)
			result.Attempts = append(result.Attempts, attempt)
			if err := fsm.to(StateFailed, attemptNum, provErr.Error()); err != nil {
				return nil, err
			}
			resp.Outcome = datatypes.OutcomeFailed
			resp.FailureReason = provErr.FailureReason()
			resp.Content = lastContent
			resp.Findings = lastFindings
			return p.seal(result, fsm, sch, runStart, span), nil
		}

		if err := fsm.to(StateSanitizing, attemptNum, "draft complete"); err != nil {
			if vault != nil {
				vault.Destroy()
			}
			return nil, err
		}

		// Custody: confidential drafts go straight into the vault; everything
		// else is recorded on the attempt.
		var custodyViolation string
		if vault != nil {
			if werr := vault.Write(raw); werr != nil {
				vault.Destroy()
				vault = nil
				custodyViolation = fmt.Sprintf("confidential custody: %v", werr)
			}
		} else {
			attempt.RawText = raw
		}

		// --------------------------------------------------------- Sanitize
		verdict := p.sanitizer.Validate(raw, sch)
		violations := verdict.Violations
		if custodyViolation != "" {
			violations = append([]string{custodyViolation}, violations...)
		}

		if len(violations) > 0 {
			p.recordViolations(violations)
			findings := sanitizerFindings(violations)
			attempt.Findings = findings
			attempt.DurationMs = time.Since(attemptStart).Milliseconds()
			lastFindings = findings
			if vault == nil {
				lastContent = raw
			}

			slog.Info("Draft rejected by sanitizer",
				"request_id", req.RequestID,
				"attempt", attemptNum,
				"violations", len(violations),
				"retrying", budgetLeft)

			if budgetLeft {
				if vault != nil {
					vault.Destroy()
				}
				attempt.Outcome = datatypes.AttemptRetrying
				p.recordAttempt(sch.Type, attempt.Outcome)
				result.Attempts = append(result.Attempts, attempt)
				priorViolations = violations
				if err := fsm.to(StateRetrying, attemptNum, fmt.Sprintf("%d schema violations", len(violations))); err != nil {
					return nil, err
				}
				continue
			}

			content := raw
			if vault != nil {
				content = p.finalizeVault(vault, raw, &attempt)
			}
			attempt.Outcome = datatypes.AttemptRejectedSanitizer
			p.recordAttempt(sch.Type, attempt.Outcome)
			result.Attempts = append(result.Attempts, attempt)
			if err := fsm.to(StateFailed, attemptNum, "retry budget exhausted"); err != nil {
				return nil, err
			}
			resp.Outcome = datatypes.OutcomeFailed
			resp.FailureReason = FailureSchemaViolation
			resp.Content = content
			resp.Findings = findings
			return p.seal(result, fsm, sch, runStart, span), nil
		}

		if vault == nil {
			attempt.SanitizedText = raw
		}

		// ------------------------------------------------------------ Score
		if err := fsm.to(StateScoring, attemptNum, "sanitizer passed"); err != nil {
			if vault != nil {
				vault.Destroy()
			}
			return nil, err
		}

		findings := p.panel.Score(ctx, raw, req.Context)
		if ctx.Err() != nil {
			if vault != nil {
				vault.Destroy()
			}
			return nil, ctx.Err()
		}

		if err := fsm.to(StateDeciding, attemptNum, fmt.Sprintf("%d findings", len(findings))); err != nil {
			if vault != nil {
				vault.Destroy()
			}
			return nil, err
		}

		// ----------------------------------------------------------- Decide
		attempt.Findings = findings
		attempt.DurationMs = time.Since(attemptStart).Milliseconds()
		lastFindings = findings
		if vault == nil {
			lastContent = raw
		}

		if p.policy.Accept(findings, attemptNum, sch.MaxRetries) {
			content := raw
			if vault != nil {
				content = p.finalizeVault(vault, raw, &attempt)
			}
			attempt.Outcome = datatypes.AttemptAccepted
			p.recordAttempt(sch.Type, attempt.Outcome)
			result.Attempts = append(result.Attempts, attempt)
			if err := fsm.to(StateAccepted, attemptNum, "draft accepted"); err != nil {
				return nil, err
			}
			resp.Outcome = datatypes.OutcomeAccepted
			resp.Content = content
			resp.Findings = findings
			return p.seal(result, fsm, sch, runStart, span), nil
		}

		constraints := retryConstraints(findings)
		slog.Info("Draft rejected by decision policy",
			"request_id", req.RequestID,
			"attempt", attemptNum,
			"findings", len(findings),
			"constraints", len(constraints),
			"retrying", budgetLeft)

		if budgetLeft {
			if vault != nil {
				vault.Destroy()
			}
			attempt.Outcome = datatypes.AttemptRetrying
			p.recordAttempt(sch.Type, attempt.Outcome)
			result.Attempts = append(result.Attempts, attempt)
			priorViolations = constraints
			if err := fsm.to(StateRetrying, attemptNum, fmt.Sprintf("%d blocking findings", len(constraints))); err != nil {
				return nil, err
			}
			continue
		}

		content := raw
		if vault != nil {
			content = p.finalizeVault(vault, raw, &attempt)
		}
		attempt.Outcome = datatypes.AttemptRejectedAgents
		p.recordAttempt(sch.Type, attempt.Outcome)
		result.Attempts = append(result.Attempts, attempt)
		if err := fsm.to(StateFailed, attemptNum, "retry budget exhausted"); err != nil {
			return nil, err
		}
		resp.Outcome = datatypes.OutcomeFailed
		resp.FailureReason = FailureCriticalFindings
		resp.Content = content
		resp.Findings = findings
		return p.seal(result, fsm, sch, runStart, span), nil
	}

	// Unreachable: every loop path accepts, fails, or continues.
	return nil, fmt.Errorf("generation loop exited without a terminal state")
}

// generate calls the backend under the per-attempt timeout.
func (p *Pipeline) generate(ctx context.Context, prompt string) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, p.cfg.GenerationTimeout)
	defer cancel()

	temperature := p.cfg.Temperature
	maxTokens := p.cfg.MaxTokens
	return p.llm.Generate(genCtx, prompt, llm.GenerationParams{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
}

// finalizeVault extracts the vault's draft and stamps the content hash on the
// attempt. A finalize failure falls back to the in-process copy so the
// response still carries content; only the audit hash is lost.
func (p *Pipeline) finalizeVault(vault DraftVault, raw string, attempt *datatypes.GenerationAttempt) string {
	content, contentHash, err := vault.Finalize()
	if err != nil {
		slog.Error("Draft vault finalize failed, serving the in-process copy", "error", err)
		return raw
	}
	attempt.ContentHash = contentHash
	return content
}

// seal stamps the shared terminal fields and emits run telemetry.
func (p *Pipeline) seal(result *RunResult, fsm *machine, sch schema.SectionSchema, runStart time.Time, span trace.Span) *RunResult {
	resp := result.Response
	resp.AttemptsUsed = len(result.Attempts)
	resp.ProcessingTimeMs = time.Since(runStart).Milliseconds()
	result.FinalState = fsm.current

	if m := observability.DefaultMetrics; m != nil {
		m.RecordRun(sch.Type, string(resp.Outcome), time.Since(runStart).Seconds())
	}
	span.SetAttributes(
		attribute.Int("attempts_used", resp.AttemptsUsed),
		attribute.String("outcome", string(resp.Outcome)),
	)
	if resp.Outcome == datatypes.OutcomeFailed {
		span.SetStatus(codes.Error, resp.FailureReason)
	}

	slog.Info("Section generation finished",
		"request_id", resp.RequestID,
		"section_type", resp.SectionType,
		"outcome", resp.Outcome,
		"attempts", resp.AttemptsUsed,
		"duration_ms", resp.ProcessingTimeMs)
	return result
}

func (p *Pipeline) recordAttempt(sectionType string, outcome datatypes.AttemptOutcome) {
	if m := observability.DefaultMetrics; m != nil {
		m.RecordAttempt(sectionType, string(outcome))
	}
}

func (p *Pipeline) recordViolations(violations []string) {
	m := observability.DefaultMetrics
	if m == nil {
		return
	}
	for _, v := range violations {
		m.RecordSanitizerViolation(violationFamily(v, p.families))
	}
}

// sanitizerFindings lifts violation messages into critical findings so the
// response reports sanitizer rejections and agent findings uniformly.
func sanitizerFindings(violations []string) []datatypes.Finding {
	findings := make([]datatypes.Finding, 0, len(violations))
	for _, v := range violations {
		findings = append(findings, datatypes.Finding{
			AgentName: sanitizerAgentName,
			Severity:  datatypes.SeverityCritical,
			Message:   v,
		})
	}
	return findings
}

// retryConstraints turns blocking findings into negative constraints for the
// next prompt: critical findings when present, otherwise warnings (a custom
// decision policy can reject on warnings alone).
func retryConstraints(findings []datatypes.Finding) []string {
	constraints := constraintsAt(findings, datatypes.SeverityCritical)
	if len(constraints) == 0 {
		constraints = constraintsAt(findings, datatypes.SeverityWarning)
	}
	return constraints
}

func constraintsAt(findings []datatypes.Finding, severity datatypes.Severity) []string {
	var out []string
	for _, f := range findings {
		if f.Severity != severity {
			continue
		}
		if f.SuggestedFix != "" {
			out = append(out, fmt.Sprintf("%s (sugestão: %s)", f.Message, f.SuggestedFix))
			continue
		}
		out = append(out, f.Message)
	}
	return out
}

// violationFamily maps a violation message to its metrics label: the pattern
// family name when the message names one, otherwise a coarse class.
func violationFamily(v string, families []string) string {
	switch {
	case strings.HasPrefix(v, "content length"):
		return "length"
	case strings.HasPrefix(v, "structured content"):
		return "structure"
	case strings.HasPrefix(v, "schema "):
		return "schema_pattern"
	case strings.HasPrefix(v, "confidential custody"):
		return "custody"
	}
	if idx := strings.Index(v, ":"); idx > 0 {
		prefix := v[:idx]
		for _, f := range families {
			if f == prefix {
				return f
			}
		}
	}
	return "other"
}
