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

// Package trace assembles the payload sent to the collector for one batch of
// workflow step records.
package trace

import (
	"strings"
	"time"

	"github.com/mibo-ai/mibo-cli/internal/jsonvalue"
	"github.com/mibo-ai/mibo-cli/pkg/errors"
)

const (
	// UnknownWorkflowID is used when the host does not supply a workflow id.
	UnknownWorkflowID = "unknown"
	// UnnamedWorkflow is used when the host does not supply a workflow name.
	UnnamedWorkflow = "Unnamed Workflow"
	// UnknownExecutionID is used when the host does not supply an execution id.
	UnknownExecutionID = "unknown"

	// TimestampFormat is ISO-8601 UTC with millisecond precision.
	TimestampFormat = "2006-01-02T15:04:05.000Z"
)

// Workflow identifies the automation workflow that produced a batch.
type Workflow struct {
	ID   string
	Name string
}

// ResolvedID returns the workflow id or UnknownWorkflowID.
func (w Workflow) ResolvedID() string {
	if w.ID == "" {
		return UnknownWorkflowID
	}
	return w.ID
}

// ResolvedName returns the workflow name or UnnamedWorkflow.
func (w Workflow) ResolvedName() string {
	if w.Name == "" {
		return UnnamedWorkflow
	}
	return w.Name
}

// MetadataFields are the operator-supplied metadata extensions. They are
// only applied when metadata inclusion is enabled, which callers express by
// passing a non-nil *MetadataFields.
type MetadataFields struct {
	Environment string
	Version     string
	// AdditionalFields is a JSON object as text, merged shallowly into the
	// metadata after everything else.
	AdditionalFields string
}

// BuildInput is everything Build needs for one batch. Records must already
// be redacted.
type BuildInput struct {
	Records     []jsonvalue.Value
	Workflow    Workflow
	ExecutionID string
	Metadata    *MetadataFields
	PlatformID  string
	ExternalID  string
	Timestamp   time.Time
}

// FormatTimestamp renders t in TimestampFormat.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// Build assembles the payload for one batch. It performs no I/O; the only
// error it returns is a ConfigurationError for unparseable additional fields.
func Build(in BuildInput) (*Payload, error) {
	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	stamp := FormatTimestamp(ts)

	executionID := in.ExecutionID
	if executionID == "" {
		executionID = UnknownExecutionID
	}

	metadata, err := buildMetadata(in.Workflow, stamp, in.Metadata)
	if err != nil {
		return nil, err
	}

	records := make([]jsonvalue.Value, len(in.Records))
	copy(records, in.Records)

	return &Payload{
		Input:        records,
		WorkflowID:   in.Workflow.ResolvedID(),
		WorkflowName: in.Workflow.ResolvedName(),
		ExecutionID:  executionID,
		Metadata:     metadata,
		PlatformID:   in.PlatformID,
		ExternalID:   in.ExternalID,
		Timestamp:    stamp,
	}, nil
}

// buildMetadata merges base fields, then environment and version, then the
// additional fields object. Later sources win on key collisions.
func buildMetadata(w Workflow, stamp string, fields *MetadataFields) (*jsonvalue.Object, error) {
	md := jsonvalue.ObjectOf(
		"workflowId", jsonvalue.String(w.ResolvedID()),
		"workflowName", jsonvalue.String(w.ResolvedName()),
		"timestamp", jsonvalue.String(stamp),
	)
	if fields == nil {
		return md, nil
	}

	if fields.Environment != "" {
		md.Set("environment", jsonvalue.String(fields.Environment))
	}
	if fields.Version != "" {
		md.Set("version", jsonvalue.String(fields.Version))
	}

	if strings.TrimSpace(fields.AdditionalFields) != "" {
		extra, err := ParseAdditionalFields(fields.AdditionalFields)
		if err != nil {
			return nil, err
		}
		md.Merge(extra)
	}
	return md, nil
}

// ParseAdditionalFields parses operator-supplied metadata. Text that is not
// JSON is a configuration error. Valid JSON other than an object (null, an
// array, a string, a number) contributes no fields.
func ParseAdditionalFields(text string) (*jsonvalue.Object, error) {
	v, err := jsonvalue.Decode([]byte(text))
	if err != nil {
		return nil, &errors.ConfigurationError{
			Key:    "trace.metadata.additional_fields",
			Reason: "Invalid JSON in Additional Fields",
			Hint:   "Please ensure the Additional Fields contains valid JSON",
			Cause:  err,
		}
	}
	if obj, ok := jsonvalue.AsObject(v); ok {
		return obj, nil
	}
	return jsonvalue.NewObject(), nil
}
