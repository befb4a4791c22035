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
	"errors"
	"fmt"
)

// ErrorType classifies transport errors.
type ErrorType string

const (
	// ErrorTypeConnection indicates network or DNS errors
	ErrorTypeConnection ErrorType = "connection"

	// ErrorTypeTimeout indicates the request timeout elapsed
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeAuth indicates a rejected API key (401, 403)
	ErrorTypeAuth ErrorType = "auth"

	// ErrorTypeRateLimit indicates rate limiting (429 Too Many Requests)
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeServer indicates server errors (5xx)
	ErrorTypeServer ErrorType = "server"

	// ErrorTypeClient indicates other 4xx responses
	ErrorTypeClient ErrorType = "client"

	// ErrorTypeInvalidReq indicates a request that could not be built
	ErrorTypeInvalidReq ErrorType = "invalid_request"

	// ErrorTypeCancelled indicates the caller cancelled the context
	ErrorTypeCancelled ErrorType = "cancelled"
)

// TransportError is the structured failure of one exchange. Message is safe
// to show to users and to store in record annotations; it never contains the
// API key.
type TransportError struct {
	Type ErrorType

	// StatusCode is the HTTP status, zero for network failures.
	StatusCode int

	Message string

	// RequestID is the collector's request id, for support requests.
	RequestID string

	// Retryable reports whether a later attempt could succeed. Nothing in
	// this module retries deliveries; the flag is informational.
	Retryable bool

	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// IsRetryable implements errors.ErrorClassifier.
func (e *TransportError) IsRetryable() bool {
	return e.Retryable
}

// ErrorType implements errors.ErrorClassifier.
func (e *TransportError) ErrorType() string {
	return string(e.Type)
}

// IsType reports whether err is a TransportError of type t.
func IsType(err error, t ErrorType) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Type == t
}
