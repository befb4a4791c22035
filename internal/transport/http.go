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

package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mibo-ai/mibo-cli/pkg/httpclient"
)

// DefaultTimeout applies when neither the request nor the transport sets one.
const DefaultTimeout = 30 * time.Second

// maxErrorBody bounds how much of an error response is quoted in messages.
const maxErrorBody = 512

// maxResponseBody bounds how much of any response is read.
const maxResponseBody = 10 << 20

// HTTPTransport implements Transport over HTTP/HTTPS.
type HTTPTransport struct {
	client      *http.Client
	timeout     time.Duration
	rateLimiter RateLimiter
}

// HTTPTransportConfig configures the HTTP transport.
type HTTPTransportConfig struct {
	// Timeout is the default request timeout (default: 30s).
	Timeout time.Duration

	// Client overrides the HTTP client. When nil one is built with
	// pkg/httpclient with retries disabled.
	Client *http.Client

	// UserAgent overrides httpclient.DefaultUserAgent.
	UserAgent string
}

// NewHTTPTransport creates a new HTTP transport.
func NewHTTPTransport(cfg HTTPTransportConfig) (*HTTPTransport, error) {
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be non-negative, got %v", cfg.Timeout)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	client := cfg.Client
	if client == nil {
		hc := httpclient.DefaultConfig()
		// Deliveries are sent exactly once. The per-request deadline bounds
		// the exchange, so the client-wide timeout is left off.
		hc.RetryAttempts = 0
		hc.Timeout = timeout
		if cfg.UserAgent != "" {
			hc.UserAgent = cfg.UserAgent
		}
		var err error
		client, err = httpclient.New(hc)
		if err != nil {
			return nil, fmt.Errorf("build http client: %w", err)
		}
		client.Timeout = 0
	}

	return &HTTPTransport{client: client, timeout: timeout}, nil
}

// Name returns "http".
func (t *HTTPTransport) Name() string {
	return "http"
}

// SetRateLimiter configures rate limiting for this transport.
func (t *HTTPTransport) SetRateLimiter(limiter RateLimiter) {
	t.rateLimiter = limiter
}

// Execute sends one HTTP request. It never retries.
func (t *HTTPTransport) Execute(ctx context.Context, req *Request) (*Response, error) {
	if err := validateRequest(req); err != nil {
		return nil, &TransportError{
			Type:    ErrorTypeInvalidReq,
			Message: fmt.Sprintf("invalid request: %s", err.Error()),
			Cause:   err,
		}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = t.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if t.rateLimiter != nil {
		if err := t.rateLimiter.Wait(ctx); err != nil {
			return nil, classifyContextError(ctx, err, timeout, "waiting for rate limiter")
		}
	}

	httpReq, err := buildHTTPRequest(ctx, req)
	if err != nil {
		return nil, &TransportError{
			Type:    ErrorTypeInvalidReq,
			Message: fmt.Sprintf("failed to build HTTP request: %s", err.Error()),
			Cause:   err,
		}
	}

	start := time.Now()
	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, classifyHTTPError(ctx, err, timeout)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		if ctx.Err() != nil {
			return nil, classifyContextError(ctx, err, timeout, "reading response")
		}
		return nil, &TransportError{
			Type:      ErrorTypeConnection,
			Message:   fmt.Sprintf("failed to read response body: %s", err.Error()),
			Retryable: true,
			Cause:     err,
		}
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
		Metadata: map[string]interface{}{
			MetadataDurationMS: time.Since(start).Milliseconds(),
		},
	}
	requestID := httpResp.Header.Get("X-Request-Id")
	if requestID != "" {
		resp.Metadata[MetadataRequestID] = requestID
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		te := classifyHTTPStatusError(httpResp.StatusCode, body)
		te.RequestID = requestID
		return nil, te
	}
	return resp, nil
}

func validateRequest(req *Request) error {
	if req == nil {
		return errors.New("request is nil")
	}
	if req.Method == "" {
		return errors.New("method is required")
	}
	if req.URL == "" {
		return errors.New("URL is required")
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("URL must include host")
	}
	return nil
}

func buildHTTPRequest(ctx context.Context, req *Request) (*http.Request, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}

func classifyContextError(ctx context.Context, err error, timeout time.Duration, during string) *TransportError {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TransportError{
			Type:      ErrorTypeTimeout,
			Message:   fmt.Sprintf("timeout of %dms exceeded while %s", timeout.Milliseconds(), during),
			Retryable: true,
			Cause:     err,
		}
	}
	return &TransportError{
		Type:    ErrorTypeCancelled,
		Message: "request cancelled",
		Cause:   err,
	}
}

func classifyHTTPError(ctx context.Context, err error, timeout time.Duration) *TransportError {
	if ctx.Err() != nil {
		return classifyContextError(ctx, err, timeout, "sending request")
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransportError{
			Type:      ErrorTypeTimeout,
			Message:   fmt.Sprintf("timeout of %dms exceeded", timeout.Milliseconds()),
			Retryable: true,
			Cause:     err,
		}
	}

	msg := err.Error()
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		msg = urlErr.Err.Error()
	}
	return &TransportError{
		Type:      ErrorTypeConnection,
		Message:   msg,
		Retryable: true,
		Cause:     err,
	}
}

func classifyHTTPStatusError(statusCode int, body []byte) *TransportError {
	var errorType ErrorType
	var retryable bool

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		errorType = ErrorTypeAuth
	case statusCode == http.StatusTooManyRequests:
		errorType, retryable = ErrorTypeRateLimit, true
	case statusCode == http.StatusRequestTimeout:
		errorType, retryable = ErrorTypeTimeout, true
	case statusCode >= 500:
		errorType, retryable = ErrorTypeServer, true
	default:
		errorType = ErrorTypeClient
	}

	message := fmt.Sprintf("Request failed with status code %d", statusCode)
	if detail := strings.TrimSpace(string(body)); detail != "" && len(detail) <= maxErrorBody {
		message = fmt.Sprintf("%s: %s", message, detail)
	}

	return &TransportError{
		Type:       errorType,
		StatusCode: statusCode,
		Message:    message,
		Retryable:  retryable,
	}
}
