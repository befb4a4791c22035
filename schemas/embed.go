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

// Package schemas provides access to embedded JSON schemas.
package schemas

import (
	_ "embed"
)

// Embed the trace payload JSON Schema into the binary. It describes the
// envelope only; `mibo send --dry-run` checks previews against it.
//
//go:embed trace-payload.schema.json
var tracePayloadSchema []byte

// GetTracePayloadSchema returns the embedded trace payload JSON Schema as raw bytes.
func GetTracePayloadSchema() []byte {
	return tracePayloadSchema
}

// GetTracePayloadSchemaString returns the embedded trace payload JSON Schema as a string.
func GetTracePayloadSchemaString() string {
	return string(tracePayloadSchema)
}
