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

// Package transport sends trace payloads to the collector.
//
// The delivery pipeline talks to a Transport rather than an http.Client so
// that tests can substitute a recording fake and so that protocol concerns
// (timeouts, header handling, error classification, rate limiting) stay out
// of the result-mapping logic.
package transport

import (
	"context"
	"time"
)

// Transport executes requests with protocol-specific handling.
type Transport interface {
	// Execute sends a request and returns a response. Non-2xx responses and
	// network failures come back as *TransportError.
	Execute(ctx context.Context, req *Request) (*Response, error)

	// Name returns the transport identifier (e.g., "http").
	Name() string

	// SetRateLimiter configures rate limiting for this transport.
	SetRateLimiter(limiter RateLimiter)
}

// Request is a transport-agnostic request.
type Request struct {
	// Method is the HTTP method. Required.
	Method string

	// URL is the full request URL. Required.
	URL string

	// Headers are request headers. Names are case-insensitive on the wire.
	Headers map[string]string

	// Body is the request body.
	Body []byte

	// Timeout bounds this request. Zero means the transport default.
	Timeout time.Duration
}

// TimeoutMillis returns the timeout in milliseconds, for logging.
func (r *Request) TimeoutMillis() int64 {
	return r.Timeout.Milliseconds()
}

// Response is a transport-agnostic response.
type Response struct {
	StatusCode int
	Headers    map[string][]string
	Body       []byte

	// Metadata holds transport details such as the collector request id.
	Metadata map[string]interface{}
}

// Standard metadata keys used across transports
const (
	// MetadataRequestID is the collector's request id, when it sends one.
	MetadataRequestID = "request_id"

	// MetadataDurationMS is the wall time of the exchange.
	MetadataDurationMS = "duration_ms"
)

// RateLimiter provides rate limiting for transport requests.
// *rate.Limiter from golang.org/x/time/rate satisfies it.
type RateLimiter interface {
	// Wait blocks until a request is allowed or ctx is done.
	Wait(ctx context.Context) error
}
