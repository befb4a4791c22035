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

package httpclient

import (
	"fmt"
	"log/slog"
	"time"
)

// DefaultUserAgent identifies the CLI to the collector.
const DefaultUserAgent = "mibo-cli/1.0"

// Config configures the HTTP client.
type Config struct {
	// Timeout bounds a whole request including retries. Default: 30s.
	Timeout time.Duration

	// RetryAttempts is the number of retries after the first attempt.
	// Default: 3. Zero disables the retry layer.
	RetryAttempts int

	// RetryBackoff is the delay before the first retry. Default: 100ms.
	RetryBackoff time.Duration

	// MaxBackoff caps the exponential backoff. Default: 10s.
	MaxBackoff time.Duration

	// UserAgent is sent on every request unless the caller sets one.
	UserAgent string

	// AllowNonIdempotentRetry enables retries for POST, PUT, PATCH, DELETE.
	AllowNonIdempotentRetry bool

	// Logger receives one line per request. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:       30 * time.Second,
		RetryAttempts: 3,
		RetryBackoff:  100 * time.Millisecond,
		MaxBackoff:    10 * time.Second,
		UserAgent:     DefaultUserAgent,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0, got %v", c.Timeout)
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry_attempts must be >= 0, got %d", c.RetryAttempts)
	}
	if c.RetryAttempts > 0 {
		if c.RetryBackoff <= 0 {
			return fmt.Errorf("retry_backoff must be > 0 when retry_attempts > 0, got %v", c.RetryBackoff)
		}
		if c.MaxBackoff < c.RetryBackoff {
			return fmt.Errorf("max_backoff (%v) must be >= retry_backoff (%v)", c.MaxBackoff, c.RetryBackoff)
		}
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user_agent is required and must be non-empty")
	}
	return nil
}
