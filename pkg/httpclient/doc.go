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

// Package httpclient builds the HTTP clients used to talk to the Mibo
// collector.
//
// Every client gets the same layers:
//   - User-Agent injection
//   - Correlation ID and W3C trace context propagation
//   - Request logging with sanitized URLs (headers are never logged, so the
//     X-API-Key value cannot leak)
//   - Optional retries with exponential backoff and jitter
//   - TLS 1.2 minimum with connection pooling
//
// # Retry Behavior
//
// Retries apply to 5xx, 408, 429 and transient network errors, and only to
// GET, HEAD and OPTIONS unless AllowNonIdempotentRetry is set. Trace
// delivery is a POST and is sent exactly once; the credential health check
// is a GET and may be retried.
//
//	cfg := httpclient.DefaultConfig()
//	cfg.RetryAttempts = 0
//	client, err := httpclient.New(cfg)
package httpclient
