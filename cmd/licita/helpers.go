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
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// Default drafter endpoint, matching cmd/drafter's DRAFTER_PORT default.
const (
	DefaultDrafterHost = "localhost"
	DefaultDrafterPort = 12310
)

// streamPath is the websocket endpoint for generation progress.
const streamPath = "/v1/sections/generate/stream"

// getDrafterBaseURL returns the drafter address, without a trailing slash.
func getDrafterBaseURL() string {
	// 1. Priority: --server flag
	if serverURL != "" {
		return strings.TrimSuffix(serverURL, "/")
	}
	// 2. Environment variable (used by tests and container overrides)
	if envURL := os.Getenv("LICITA_DRAFTER_URL"); envURL != "" {
		return strings.TrimSuffix(envURL, "/")
	}
	// 3. Default: standard host/port
	return fmt.Sprintf("http://%s:%d", DefaultDrafterHost, DefaultDrafterPort)
}

// drafterStreamURL converts the drafter base URL into the websocket URL
// for the generation stream (http becomes ws, https becomes wss).
func drafterStreamURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid drafter URL %q: %w", baseURL, err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported drafter URL scheme %q", u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + streamPath
	return u.String(), nil
}

// apiError turns a non-2xx drafter response into an error, preferring the
// server's {"error": ...} message when the body carries one.
func apiError(status int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return fmt.Errorf("drafter returned status %d: %s", status, payload.Error)
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Errorf("drafter returned status %d", status)
	}
	return fmt.Errorf("drafter returned status %d: %s", status, msg)
}

// postJSON sends a JSON payload and decodes the JSON response into out.
// A non-2xx status is returned as an error; pass a nil out to discard
// the response body.
func postJSON(ctx context.Context, client *http.Client, url string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// getJSON fetches a URL and decodes the JSON response into out.
func getJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
