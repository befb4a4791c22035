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
	"github.com/mibo-ai/mibo-cli/internal/jsonvalue"
)

// AnnotationKey is the field added to every output record.
const AnnotationKey = "_miboTrace"

const (
	unknownTraceID        = "unknown"
	resolvedFromMetadata  = "resolved-from-metadata"
	unknownFailedPlatform = "unknown"
)

func deliveredAnnotation(traceID, platformID, timestamp string) *jsonvalue.Object {
	if platformID == "" {
		platformID = resolvedFromMetadata
	}
	return jsonvalue.ObjectOf(
		"sent", jsonvalue.Bool(true),
		"traceId", jsonvalue.String(traceID),
		"platformId", jsonvalue.String(platformID),
		"timestamp", jsonvalue.String(timestamp),
	)
}

func failedAnnotation(message, platformID, timestamp string) *jsonvalue.Object {
	if platformID == "" {
		platformID = unknownFailedPlatform
	}
	return jsonvalue.ObjectOf(
		"sent", jsonvalue.Bool(false),
		"error", jsonvalue.String(message),
		"platformId", jsonvalue.String(platformID),
		"timestamp", jsonvalue.String(timestamp),
	)
}

// annotate returns shallow clones of records with ann attached. An existing
// annotation key is overwritten where it stands.
func annotate(records []*jsonvalue.Object, ann *jsonvalue.Object) []*jsonvalue.Object {
	out := make([]*jsonvalue.Object, len(records))
	for i, rec := range records {
		c := rec.Clone()
		c.Set(AnnotationKey, ann.Clone())
		out[i] = c
	}
	return out
}

// extractTraceID reads traceId, then id, from a collector response.
// Non-object or unparseable bodies yield "unknown".
func extractTraceID(body []byte) string {
	obj, err := jsonvalue.DecodeObject(body)
	if err != nil {
		return unknownTraceID
	}
	for _, key := range []string{"traceId", "id"} {
		v, ok := obj.Get(key)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case jsonvalue.String:
			if t != "" {
				return string(t)
			}
		case jsonvalue.Number:
			return string(t)
		}
	}
	return unknownTraceID
}

// requestIDFrom lifts an inbound request id from the first record: the
// headers object first, then the record itself.
func requestIDFrom(records []*jsonvalue.Object) string {
	if len(records) == 0 {
		return ""
	}
	first := records[0]

	var candidates []jsonvalue.Value
	if h, ok := first.Get("headers"); ok {
		if headers, ok := jsonvalue.AsObject(h); ok {
			for _, k := range []string{"x-request-id", "X-Request-Id"} {
				if v, ok := headers.Get(k); ok {
					candidates = append(candidates, v)
				}
			}
		}
	}
	for _, k := range []string{"x-request-id", "X-Request-Id"} {
		if v, ok := first.Get(k); ok {
			candidates = append(candidates, v)
		}
	}

	for _, v := range candidates {
		if s, ok := jsonvalue.AsString(v); ok && s != "" {
			return s
		}
	}
	return ""
}
