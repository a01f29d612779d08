// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package extensions defines interfaces for enterprise functionality.
//
// This package provides the extension points that allow LicitaEnterprise to
// add capabilities without modifying the core LicitaCore codebase. The open
// source version uses no-op defaults for everything.
//
// # Design Philosophy
//
// LicitaCore is a fully functional drafting pipeline for a single organ
// running on its own infrastructure. Multi-organ deployments (identity
// providers, SIEM audit trails, content policies imposed by a central
// controladoria) are implemented by providing concrete implementations of
// these interfaces and injecting them via ServiceOptions.
//
// # Extension Categories
//
//   - auth.go: Authentication and authorization (AuthProvider, AuthzProvider)
//   - audit.go: Compliance audit logging (AuditLogger)
//   - filter.go: Draft transformation and redaction (DraftFilter)
//
// # Usage in LicitaCore (Open Source)
//
//	opts := extensions.DefaultOptions()
//	service := drafter.New(config, opts)
//
// # Usage in LicitaEnterprise
//
//	opts := extensions.ServiceOptions{
//	    AuthProvider: enterprise.NewGovBRProvider(config),
//	    AuditLogger:  enterprise.NewSIEMAuditor(config),
//	    DraftFilter:  enterprise.NewRedactionFilter(policy),
//	}
//	service := drafter.New(config, opts)
//
// # Thread Safety
//
// All interface implementations must be safe for concurrent use.
package extensions

// ServiceOptions groups all extension points for service configuration.
//
// Pass this to service constructors. All fields are optional; nil values
// are replaced with no-op defaults by DefaultOptions() or by services
// checking for nil.
type ServiceOptions struct {
	// AuthProvider validates authentication tokens.
	// Default: NopAuthProvider (always returns a valid local user)
	AuthProvider AuthProvider

	// AuthzProvider checks authorization permissions.
	// Default: NopAuthzProvider (always allows all actions)
	AuthzProvider AuthzProvider

	// AuditLogger records compliance-relevant events.
	// Default: NopAuditLogger (discards all events)
	AuditLogger AuditLogger

	// DraftFilter transforms drafts before they reach the caller.
	// Default: NopDraftFilter (passes through unchanged)
	DraftFilter DraftFilter
}

// DefaultOptions returns ServiceOptions with no-op defaults.
//
// This is the configuration used by the open source version: all
// operations allowed, no audit trail, no draft filtering.
func DefaultOptions() ServiceOptions {
	return ServiceOptions{
		AuthProvider:  &NopAuthProvider{},
		AuthzProvider: &NopAuthzProvider{},
		AuditLogger:   &NopAuditLogger{},
		DraftFilter:   &NopDraftFilter{},
	}
}

// WithAuth returns a copy of opts with the given AuthProvider.
func (opts ServiceOptions) WithAuth(provider AuthProvider) ServiceOptions {
	opts.AuthProvider = provider
	return opts
}

// WithAuthz returns a copy of opts with the given AuthzProvider.
func (opts ServiceOptions) WithAuthz(provider AuthzProvider) ServiceOptions {
	opts.AuthzProvider = provider
	return opts
}

// WithAudit returns a copy of opts with the given AuditLogger.
func (opts ServiceOptions) WithAudit(logger AuditLogger) ServiceOptions {
	opts.AuditLogger = logger
	return opts
}

// WithFilter returns a copy of opts with the given DraftFilter.
func (opts ServiceOptions) WithFilter(filter DraftFilter) ServiceOptions {
	opts.DraftFilter = filter
	return opts
}
