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

// Package delivery runs one batch of records through redaction, payload
// assembly and a single POST to the collector, then maps the outcome back
// onto every input record.
package delivery

import (
	"strings"
)

// State is the position of a batch in the delivery state machine:
// Built -> Sending -> {Delivered | Failed}.
type State int

const (
	StateBuilt State = iota
	StateSending
	StateDelivered
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateBuilt:
		return "built"
	case StateSending:
		return "sending"
	case StateDelivered:
		return "delivered"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Strategy decides what a failed delivery does to the batch.
type Strategy int

const (
	// FailFast returns a single *DeliveryError and no records.
	FailFast Strategy = iota
	// AnnotateAndContinue marks every record as unsent and returns normally.
	AnnotateAndContinue
)

func (s Strategy) String() string {
	if s == AnnotateAndContinue {
		return "annotate-and-continue"
	}
	return "fail-fast"
}

// StrategyFor maps the continue-on-fail flag to a strategy.
func StrategyFor(continueOnFail bool) Strategy {
	if continueOnFail {
		return AnnotateAndContinue
	}
	return FailFast
}

// DefaultServerURL is the collector used when neither an override nor a
// credential URL is configured.
const DefaultServerURL = "https://api.mibo-ai.com"

// ResolveServerURL picks the override, then the credential URL, then
// DefaultServerURL, and trims one trailing slash.
func ResolveServerURL(override, credential string) string {
	u := strings.TrimSpace(override)
	if u == "" {
		u = strings.TrimSpace(credential)
	}
	if u == "" {
		u = DefaultServerURL
	}
	return strings.TrimSuffix(u, "/")
}
