// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"errors"
)

// ErrDraftBlocked is returned when a filter blocks content entirely.
// Handlers translate this into a 422 rather than a 500.
var ErrDraftBlocked = errors.New("draft blocked by content filter")

// Detection describes one item found by a content filter.
type Detection struct {
	// Type identifies what was detected ("cpf", "cnpj", "email",
	// "bid_value", "server_name").
	Type string

	// Location is where in the text it was found (byte offset).
	Location int

	// Action is what was done: "redacted", "masked", "blocked", "flagged".
	Action string

	// Original is the detected text. Only populated when the deployment
	// permits storing it; otherwise empty.
	Original string

	// Replacement is what the text was changed to, if modified.
	Replacement string
}

// FilterResult describes the outcome of filtering a piece of text.
type FilterResult struct {
	// Original is the input text as received.
	Original string

	// Filtered is the text after modifications. Equal to Original when
	// nothing matched.
	Filtered string

	// WasModified is true when Filtered differs from Original.
	WasModified bool

	// WasBlocked is true when the text must not be used at all.
	// When set, Filtered is empty.
	WasBlocked bool

	// BlockReason explains a block in operator-readable terms.
	BlockReason string

	// Detections lists everything found, including items that were
	// flagged but not modified.
	Detections []Detection
}

// DraftFilter inspects text crossing the service boundary.
//
// # Description
//
// Requests arriving from users can carry personal data that LGPD says
// must not reach a third-party model provider (CPF numbers, emails),
// and generated drafts can leak infrastructure details when the corpus
// was ingested carelessly. A DraftFilter sees both directions:
// FilterPrompt runs before any text is sent to an LLM provider, and
// FilterDraft runs before generated text is returned to the caller.
//
// The open source default (NopDraftFilter) passes everything through.
// Enterprise deployments plug in DLP-backed implementations via
// ServiceOptions.WithFilter.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type DraftFilter interface {
	// FilterPrompt inspects user-supplied text before it is embedded in
	// a model prompt. Returns ErrDraftBlocked (wrapped) when the text
	// must not be forwarded.
	FilterPrompt(ctx context.Context, text string) (*FilterResult, error)

	// FilterDraft inspects generated text before it is returned to the
	// caller or persisted.
	FilterDraft(ctx context.Context, text string) (*FilterResult, error)
}

// NopDraftFilter passes all text through unchanged.
// Thread-safe: no mutable state.
type NopDraftFilter struct{}

// FilterPrompt returns the text unchanged with no detections.
func (f *NopDraftFilter) FilterPrompt(ctx context.Context, text string) (*FilterResult, error) {
	return &FilterResult{
		Original: text,
		Filtered: text,
	}, nil
}

// FilterDraft returns the text unchanged with no detections.
func (f *NopDraftFilter) FilterDraft(ctx context.Context, text string) (*FilterResult, error) {
	return &FilterResult{
		Original: text,
		Filtered: text,
	}, nil
}

// Compile-time interface compliance check.
var _ DraftFilter = (*NopDraftFilter)(nil)
