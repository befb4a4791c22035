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

package delivery

import (
	"errors"

	"github.com/mibo-ai/mibo-cli/internal/transport"
)

const (
	deliveryErrorPrefix = "Failed to send trace to Mibo Testing: "
	deliverySuggestion  = "Check your API key and server URL in the credentials"
)

// ErrNoRecords is returned for a batch with a nil record.
var ErrNoRecords = errors.New("delivery: batch contains a nil record")

// DeliveryError is the batch-level failure raised under FailFast.
type DeliveryError struct {
	// Message is the underlying failure as shown to users.
	Message string
	Cause   error
}

func newDeliveryError(cause error) *DeliveryError {
	return &DeliveryError{Message: failureMessage(cause), Cause: cause}
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	return deliveryErrorPrefix + e.Message
}

// Unwrap returns the transport failure.
func (e *DeliveryError) Unwrap() error {
	return e.Cause
}

// IsUserVisible implements errors.UserVisibleError.
func (e *DeliveryError) IsUserVisible() bool { return true }

// UserMessage implements errors.UserVisibleError.
func (e *DeliveryError) UserMessage() string { return e.Error() }

// Suggestion implements errors.UserVisibleError.
func (e *DeliveryError) Suggestion() string { return deliverySuggestion }

// ErrorType implements errors.ErrorClassifier.
func (e *DeliveryError) ErrorType() string { return "delivery" }

// IsRetryable implements errors.ErrorClassifier.
func (e *DeliveryError) IsRetryable() bool {
	var te *transport.TransportError
	return errors.As(e.Cause, &te) && te.Retryable
}

// failureMessage is the text stored in annotations and error messages.
// Transport errors contribute their user-safe message only.
func failureMessage(err error) string {
	var te *transport.TransportError
	if errors.As(err, &te) && te.Message != "" {
		return te.Message
	}
	return err.Error()
}
