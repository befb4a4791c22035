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

package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/gowebpki/jcs"

	"github.com/mibo-ai/mibo-cli/internal/jsonvalue"
)

// Payload is the trace envelope for one batch. Its wire form is
//
//	{"data":{"input":[...],"workflowId":..,"workflowName":..},
//	 "externalMetadata":{"workflowId":..,"executionId":..},
//	 "metadata":{...},"platformId":..,"externalId":..}
//
// with platformId and externalId omitted when empty.
type Payload struct {
	Input        []jsonvalue.Value
	WorkflowID   string
	WorkflowName string
	ExecutionID  string
	Metadata     *jsonvalue.Object
	PlatformID   string
	ExternalID   string

	// Timestamp is the formatted capture time shared by the metadata and the
	// per-record annotations.
	Timestamp string
}

// Value returns the payload as an ordered JSON object.
func (p *Payload) Value() *jsonvalue.Object {
	input := make(jsonvalue.Array, len(p.Input))
	copy(input, p.Input)

	obj := jsonvalue.ObjectOf(
		"data", jsonvalue.ObjectOf(
			"input", input,
			"workflowId", jsonvalue.String(p.WorkflowID),
			"workflowName", jsonvalue.String(p.WorkflowName),
		),
		"externalMetadata", jsonvalue.ObjectOf(
			"workflowId", jsonvalue.String(p.WorkflowID),
			"executionId", jsonvalue.String(p.ExecutionID),
		),
		"metadata", p.Metadata,
	)
	if p.PlatformID != "" {
		obj.Set("platformId", jsonvalue.String(p.PlatformID))
	}
	if p.ExternalID != "" {
		obj.Set("externalId", jsonvalue.String(p.ExternalID))
	}
	return obj
}

// Encode returns the compact JSON body. Equal payloads encode to identical
// bytes.
func (p *Payload) Encode() ([]byte, error) {
	return jsonvalue.Marshal(p.Value())
}

// MarshalJSON implements json.Marshaler.
func (p *Payload) MarshalJSON() ([]byte, error) {
	return p.Encode()
}

// Digest returns the sha256 hex digest of the RFC 8785 canonical form of the
// payload. Two payloads that differ only in key order share a digest.
func (p *Payload) Digest() (string, error) {
	body, err := p.Encode()
	if err != nil {
		return "", err
	}
	return DigestJSON(body)
}

// DigestJSON canonicalizes JSON (RFC 8785) and returns its sha256 hex digest.
func DigestJSON(body []byte) (string, error) {
	canonical, err := jcs.Transform(body)
	if err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
