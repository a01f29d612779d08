// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/LicitaAI/LicitaCore/services/drafter/datatypes"
)

// =============================================================================
// Failure Reasons
// =============================================================================

// Machine-readable reasons recorded on a failed run's response. One of these
// lands in GenerateSectionResponse.FailureReason; they double as metrics and
// analytics labels.
const (
	FailureProviderError    = "provider_error"
	FailureProviderTimeout  = "provider_timeout"
	FailureSchemaViolation  = "schema_violation"
	FailureCriticalFindings = "critical_findings"
)

// =============================================================================
// Error Types
// =============================================================================

// ProviderError wraps a generation backend failure.
//
// # Description
//
// ProviderError classifies what went wrong when calling the LLM so the retry
// loop can decide whether another attempt makes sense. Timeouts and transport
// faults are retryable; a canceled parent request is not.
//
// # Fields
//
//   - Message: Description of the underlying failure.
//   - Timeout: True when the generation call exceeded its deadline.
//   - Retryable: Whether a retry within the same run may succeed.
//   - Err: The wrapped provider error, if any.
type ProviderError struct {
	Message   string
	Timeout   bool
	Retryable bool
	Err       error
}

// Error implements the error interface for ProviderError.
func (e *ProviderError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("generation timed out: %s", e.Message)
	}
	return fmt.Sprintf("generation failed: %s", e.Message)
}

// Unwrap exposes the underlying provider error to errors.Is/As.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// FailureReason maps the error to its terminal failure-reason label.
func (e *ProviderError) FailureReason() string {
	if e.Timeout {
		return FailureProviderTimeout
	}
	return FailureProviderError
}

// IsProviderError checks if an error is a *ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// classifyProviderError wraps an error from the generation call.
//
// A deadline hit on the per-attempt timeout is a retryable timeout. A
// canceled context means the caller abandoned the request, so retrying is
// pointless. Everything else is treated as a transient provider fault.
func classifyProviderError(err error) *ProviderError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &ProviderError{Message: err.Error(), Timeout: true, Retryable: true, Err: err}
	case errors.Is(err, context.Canceled):
		return &ProviderError{Message: err.Error(), Retryable: false, Err: err}
	default:
		return &ProviderError{Message: err.Error(), Retryable: true, Err: err}
	}
}

// SchemaViolationError carries the sanitizer's full violation list for one
// rejected attempt. The list is complete, never truncated to the first hit,
// so a retry prompt can name every problem at once.
type SchemaViolationError struct {
	Violations []string
}

// Error implements the error interface for SchemaViolationError.
func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("schema violation: %d violations", len(e.Violations))
}

// IsSchemaViolation checks if an error is a *SchemaViolationError.
func IsSchemaViolation(err error) bool {
	var sve *SchemaViolationError
	return errors.As(err, &sve)
}

// CriticalFindingsError carries the critical findings that rejected one
// scored attempt.
type CriticalFindingsError struct {
	Findings []datatypes.Finding
}

// Error implements the error interface for CriticalFindingsError.
func (e *CriticalFindingsError) Error() string {
	return fmt.Sprintf("critical findings: %d findings", len(e.Findings))
}

// IsCriticalFindings checks if an error is a *CriticalFindingsError.
func IsCriticalFindings(err error) bool {
	var cfe *CriticalFindingsError
	return errors.As(err, &cfe)
}
