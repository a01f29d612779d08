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

// ErrUnauthorized is returned when authentication or authorization fails.
// Enterprise implementations should wrap this error with additional context.
//
// Example:
//
//	if !validToken {
//	    return nil, fmt.Errorf("invalid token format: %w", extensions.ErrUnauthorized)
//	}
var ErrUnauthorized = errors.New("unauthorized")

// AuthInfo contains identity information returned after successful
// authentication.
//
// Required fields (always populated):
//   - UserID: unique identifier for the user
//
// Optional fields (may be empty):
//   - Email: user's email address
//   - OrgUnit: the organ or unit the user drafts for ("SEGES/ME")
//   - Roles: roles the user holds
//   - Metadata: arbitrary provider-specific claims
type AuthInfo struct {
	// UserID is the unique identifier for the authenticated user.
	// The only required field; must never be empty.
	UserID string

	// Email is the user's email address, when the provider supplies one.
	Email string

	// OrgUnit identifies the contracting organ or unit the user belongs
	// to. Drafts and audit events are attributed to this unit.
	OrgUnit string

	// Roles contains role memberships for authorization decisions.
	// Common roles: "admin", "redator", "revisor", "auditor"
	Roles []string

	// Metadata holds additional claims from the identity provider, so
	// enterprise integrations can carry provider-specific data without
	// changing this struct.
	Metadata map[string]any
}

// HasRole checks if the user has a specific role.
//
//	if !authInfo.HasRole("revisor") {
//	    return ErrUnauthorized
//	}
func (a *AuthInfo) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthProvider validates authentication tokens and returns user identity.
//
// Implementations must be safe for concurrent use.
//
// # Open Source Behavior
//
// The default NopAuthProvider always returns a valid "local-user" with
// admin privileges, so a single-organ deployment works with no identity
// infrastructure at all.
//
// # Enterprise Implementation
//
// Enterprise versions validate tokens against identity providers
// (gov.br SSO, Keycloak, Azure AD):
//
//	type GovBRProvider struct {
//	    client *oidc.Client
//	}
//
//	func (p *GovBRProvider) Validate(ctx context.Context, token string) (*AuthInfo, error) {
//	    claims, err := p.client.Verify(ctx, token)
//	    if err != nil {
//	        return nil, fmt.Errorf("sso validation failed: %w", ErrUnauthorized)
//	    }
//	    return &AuthInfo{UserID: claims.Subject, Email: claims.Email, Roles: claims.Groups}, nil
//	}
type AuthProvider interface {
	// Validate checks the token and returns the user's identity.
	//
	// Returns ErrUnauthorized (possibly wrapped) for invalid tokens;
	// other errors indicate provider failures. The token format is
	// implementation-specific (JWT, API key, session ID).
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// AuthzRequest describes an authorization check as
// (subject, action, resource).
type AuthzRequest struct {
	// User is the authenticated user, from AuthProvider.Validate().
	User *AuthInfo

	// Action is the operation being attempted.
	// Common actions: "generate", "ingest", "read", "delete"
	Action string

	// ResourceType is the category of resource being accessed.
	// Examples: "section", "schema", "legislation", "analytics"
	ResourceType string

	// ResourceID is the specific resource instance; empty means the
	// check is for the resource type in general.
	ResourceID string
}

// AuthzProvider checks if a user is authorized to perform an action.
//
// Implementations must be safe for concurrent use. The default
// NopAuthzProvider allows everything, which is appropriate for
// single-organ local deployments.
type AuthzProvider interface {
	// Authorize returns nil when the action is permitted and
	// ErrUnauthorized (possibly wrapped) when denied.
	Authorize(ctx context.Context, req AuthzRequest) error
}

// NopAuthProvider is the default authentication provider for open source.
//
// It always returns a valid local user with admin privileges; the token
// is ignored, including the empty string. Thread-safe: no mutable state.
type NopAuthProvider struct{}

// Validate always returns a valid local user with admin privileges.
func (p *NopAuthProvider) Validate(_ context.Context, _ string) (*AuthInfo, error) {
	return &AuthInfo{
		UserID: "local-user",
		Roles:  []string{"admin"},
	}, nil
}

// NopAuthzProvider is the default authorization provider for open source.
// It allows all actions. Thread-safe: no mutable state.
type NopAuthzProvider struct{}

// Authorize always returns nil, allowing the action.
func (p *NopAuthzProvider) Authorize(_ context.Context, _ AuthzRequest) error {
	return nil
}

// Compile-time interface compliance checks.
var (
	_ AuthProvider  = (*NopAuthProvider)(nil)
	_ AuthzProvider = (*NopAuthzProvider)(nil)
)
