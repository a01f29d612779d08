// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"time"
)

// AuditEvent represents a compliance-relevant event.
//
// Procurement drafting is subject to control-organ review (TCU, CGU) and
// LGPD data handling rules; this struct captures what those audits need:
// who did what to which resource, when, and with what outcome.
//
// # Event Categories
//
// Events are categorized by type for filtering and alerting:
//   - Authentication: "auth.login", "auth.failed"
//   - Generation: "section.generate", "section.accepted", "section.failed"
//   - Corpus: "legislation.ingest", "legislation.verify"
//   - Retention: "retention.purge"
//   - System: "system.start", "system.stop"
//
// Example:
//
//	event := AuditEvent{
//	    EventType:    "section.generate",
//	    Timestamp:    time.Now().UTC(),
//	    UserID:       authInfo.UserID,
//	    Action:       "generate",
//	    ResourceType: "section",
//	    ResourceID:   requestID,
//	    Outcome:      "accepted",
//	    Metadata: map[string]any{
//	        "section_type": "justificativa",
//	        "attempts":     2,
//	    },
//	}
type AuditEvent struct {
	// EventType categorizes the event, formatted "category.action".
	EventType string

	// Timestamp is when the event occurred (always UTC). Implementations
	// set it to time.Now().UTC() when zero.
	Timestamp time.Time

	// UserID identifies who performed the action. Use "system" for
	// automated actions such as retention purges.
	UserID string

	// Action describes the operation attempted.
	Action string

	// ResourceType is the category of resource involved
	// ("section", "legislation", "schema").
	ResourceType string

	// ResourceID is the specific resource instance (optional).
	ResourceID string

	// Outcome indicates the result: "success", "failure", "blocked",
	// "accepted", "retried", "error".
	Outcome string

	// Metadata holds additional event-specific data. Never put draft
	// content for confidential requests here; counts and identifiers only.
	Metadata map[string]any
}

// AuditFilter defines criteria for querying audit events.
//
// All fields are optional; only non-zero values filter, combined with AND.
type AuditFilter struct {
	// EventTypes limits results to specific event types.
	EventTypes []string

	// UserID limits results to a specific user.
	UserID string

	// StartTime is the earliest timestamp to include (inclusive).
	StartTime time.Time

	// EndTime is the latest timestamp to include (exclusive).
	EndTime time.Time

	// ResourceType limits results to a resource category.
	ResourceType string

	// ResourceID limits results to a specific resource.
	ResourceID string

	// Outcome limits results to a specific outcome.
	Outcome string

	// Limit caps the number of returned events; zero means the
	// implementation default.
	Limit int

	// Offset skips events for pagination.
	Offset int
}

// AuditLogger records compliance-relevant events.
//
// Implementations must be safe for concurrent use and should return
// quickly; buffer internally if persistence is slow. The default
// NopAuditLogger discards everything, which is appropriate for local
// single-user deployments. Enterprise versions ship events to SIEM
// systems or compliance databases.
type AuditLogger interface {
	// Log records one event. Implementations set Timestamp when zero
	// and validate EventType and UserID before persisting.
	Log(ctx context.Context, event AuditEvent) error

	// Query retrieves events matching the filter, ordered by Timestamp
	// descending.
	Query(ctx context.Context, filter AuditFilter) ([]AuditEvent, error)

	// Flush persists any buffered events. Call before shutdown.
	Flush(ctx context.Context) error
}

// NopAuditLogger is the default audit logger for open source.
// It discards all events. Thread-safe: no mutable state.
type NopAuditLogger struct{}

// Log discards the event.
func (l *NopAuditLogger) Log(ctx context.Context, event AuditEvent) error {
	return nil
}

// Query returns an empty slice; nothing is stored.
func (l *NopAuditLogger) Query(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	return []AuditEvent{}, nil
}

// Flush is a no-op; nothing is buffered.
func (l *NopAuditLogger) Flush(ctx context.Context) error {
	return nil
}

// Compile-time interface compliance check.
var _ AuditLogger = (*NopAuditLogger)(nil)
