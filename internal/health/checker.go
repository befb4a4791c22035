// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package health verifies that the collector is reachable and accepts the
// configured API key.
package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mibo-ai/mibo-cli/pkg/httpclient"
)

var (
	// ErrUnauthorized is returned when the collector rejects the API key.
	ErrUnauthorized = errors.New("API key rejected")

	// ErrHealthCheckFailed is returned when the health endpoint returns an error.
	ErrHealthCheckFailed = errors.New("health check failed")
)

// Path is appended to the server URL.
const Path = "/health"

// Checker calls the collector health endpoint.
type Checker struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// Result contains the result of a health check.
type Result struct {
	Endpoint      string
	Reachable     bool
	Authenticated bool
	StatusCode    int
	Latency       time.Duration
	Error         error
}

// OK reports whether the collector is reachable and accepted the key.
func (r *Result) OK() bool {
	return r.Reachable && r.Authenticated && r.Error == nil
}

// Options configures a Checker.
type Options struct {
	// Timeout bounds the whole check including retries. Default: 10s.
	Timeout time.Duration

	// Retries for transient failures. The request is a GET, so retrying is safe.
	Retries int

	Logger *slog.Logger
}

// NewChecker creates a checker for serverURL (without the /health suffix).
func NewChecker(serverURL, apiKey string, opts Options) (*Checker, error) {
	cfg := httpclient.DefaultConfig()
	if opts.Timeout > 0 {
		cfg.Timeout = opts.Timeout
	} else {
		cfg.Timeout = 10 * time.Second
	}
	cfg.RetryAttempts = opts.Retries
	cfg.Logger = opts.Logger

	client, err := httpclient.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("create health client: %w", err)
	}
	return &Checker{
		endpoint: serverURL + Path,
		apiKey:   apiKey,
		client:   client,
	}, nil
}

// WithHTTPClient sets a custom HTTP client.
func (c *Checker) WithHTTPClient(client *http.Client) *Checker {
	c.client = client
	return c
}

// Check performs a single health check. It never returns nil.
func (c *Checker) Check(ctx context.Context) *Result {
	result := &Result{Endpoint: c.endpoint}
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		result.Error = fmt.Errorf("failed to create request: %w", err)
		return result
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	result.Latency = time.Since(start)
	if err != nil {
		result.Error = fmt.Errorf("request failed: %w", err)
		return result
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	result.Reachable = true
	result.StatusCode = resp.StatusCode

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		result.Authenticated = true
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		result.Error = fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	default:
		result.Error = fmt.Errorf("%w: status %d", ErrHealthCheckFailed, resp.StatusCode)
	}
	return result
}
