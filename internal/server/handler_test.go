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

package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mibo-ai/mibo-cli/internal/delivery"
	"github.com/mibo-ai/mibo-cli/internal/jsonvalue"
	"github.com/mibo-ai/mibo-cli/internal/trace"
	"github.com/mibo-ai/mibo-cli/internal/tracing/redact"
	"github.com/mibo-ai/mibo-cli/internal/transport"
)

type stubTransport struct {
	mu     sync.Mutex
	bodies []string
	resp   *transport.Response
	err    error
}

func (s *stubTransport) Execute(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies = append(s.bodies, string(req.Body))
	if s.err != nil {
		return nil, s.err
	}
	if s.resp != nil {
		return s.resp, nil
	}
	return &transport.Response{StatusCode: 200, Body: []byte(`{"traceId":"tr-1"}`)}, nil
}

func (s *stubTransport) Name() string                         { return "stub" }
func (s *stubTransport) SetRateLimiter(transport.RateLimiter) {}

func (s *stubTransport) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bodies)
}

func newHandler(tr transport.Transport, defaults Defaults) *BatchHandler {
	p := &delivery.Pipeline{Transport: tr, Credentials: delivery.Credentials{APIKey: "k"}}
	return NewBatchHandler(p, defaults, 1024, nil)
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, BatchesPath, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) *jsonvalue.Object {
	t.Helper()
	obj, err := jsonvalue.DecodeObject(rec.Body.Bytes())
	require.NoError(t, err)
	return obj
}

func TestBatchHandler_Delivered(t *testing.T) {
	tr := &stubTransport{}
	h := newHandler(tr, Defaults{RedactKeys: redact.ParseKeys("email"), PlatformID: "default-plat"})

	rec := post(h, `{"workflow":{"id":"wf","name":"Flow"},"executionId":"ex","records":[{"email":"a@b.c","z":1}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decodeBody(t, rec)
	recs, ok := body.Get("records")
	require.True(t, ok)
	arr := recs.(jsonvalue.Array)
	require.Len(t, arr, 1)

	out := arr[0].(*jsonvalue.Object)
	assert.Equal(t, []string{"email", "z", "_miboTrace"}, out.Keys())
	email, _ := out.Get("email")
	assert.Equal(t, jsonvalue.String("a@b.c"), email, "annotated record keeps original values")

	require.Equal(t, 1, tr.calls())
	assert.Contains(t, tr.bodies[0], `"email":"[REDACTED]"`)
	assert.Contains(t, tr.bodies[0], `"platformId":"default-plat"`)
	assert.Contains(t, tr.bodies[0], `"workflowId":"wf"`)
}

func TestBatchHandler_RequestOverridesDefaults(t *testing.T) {
	tr := &stubTransport{}
	h := newHandler(tr, Defaults{PlatformID: "default-plat", ExternalID: "ext-default"})

	rec := post(h, `{"records":[{}],"platformId":"p2","externalId":"e2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, tr.bodies[0], `"platformId":"p2"`)
	assert.Contains(t, tr.bodies[0], `"externalId":"e2"`)
}

func TestBatchHandler_DeliveryFailure(t *testing.T) {
	failing := &transport.TransportError{Type: transport.ErrorTypeConnection, Message: "connect ECONNREFUSED"}

	t.Run("fail fast is a bad gateway", func(t *testing.T) {
		h := newHandler(&stubTransport{err: failing}, Defaults{})
		rec := post(h, `{"records":[{"a":1}]}`)
		assert.Equal(t, http.StatusBadGateway, rec.Code)

		body := decodeBody(t, rec)
		msg, _ := body.Get("error")
		assert.Equal(t, jsonvalue.String("Failed to send trace to Mibo Testing: connect ECONNREFUSED"), msg)
		sug, _ := body.Get("suggestion")
		assert.Equal(t, jsonvalue.String("Check your API key and server URL in the credentials"), sug)
	})

	t.Run("continueOnFail annotates", func(t *testing.T) {
		h := newHandler(&stubTransport{err: failing}, Defaults{})
		rec := post(h, `{"records":[{"a":1},{"b":2}],"continueOnFail":true}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"sent":false`)
	})
}

func TestBatchHandler_ConfigurationError(t *testing.T) {
	tr := &stubTransport{}
	h := newHandler(tr, Defaults{Metadata: &trace.MetadataFields{AdditionalFields: "{not json"}})

	rec := post(h, `{"records":[{"a":1}],"continueOnFail":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid JSON in Additional Fields")
	assert.Equal(t, 0, tr.calls())
}

func TestBatchHandler_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"not json", `nope`, "request body must be a JSON object"},
		{"array body", `[]`, "request body must be a JSON object"},
		{"missing records", `{}`, "records is required"},
		{"records not array", `{"records":{}}`, "records must be an array"},
		{"record not object", `{"records":[1]}`, "records[0] must be an object"},
		{"workflow not object", `{"records":[],"workflow":"x"}`, "workflow must be an object"},
		{"execution id not string", `{"records":[],"executionId":5}`, "executionId must be a string"},
		{"continueOnFail not bool", `{"records":[],"continueOnFail":"yes"}`, "continueOnFail must be a boolean"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &stubTransport{}
			rec := post(newHandler(tr, Defaults{}), tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
			assert.Equal(t, 0, tr.calls())
		})
	}
}

func TestBatchHandler_BodyLimit(t *testing.T) {
	tr := &stubTransport{}
	rec := post(newHandler(tr, Defaults{}), `{"records":[{"pad":"`+strings.Repeat("x", 2048)+`"}]}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, 0, tr.calls())
}
