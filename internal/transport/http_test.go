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
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransport(t *testing.T) *HTTPTransport {
	t.Helper()
	tr, err := NewHTTPTransport(HTTPTransportConfig{})
	require.NoError(t, err)
	return tr
}

func TestHTTPTransport_Success(t *testing.T) {
	var gotHeaders http.Header
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("X-Request-Id", "srv-1")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"traceId":"t1"}`))
	}))
	defer server.Close()

	resp, err := newTestTransport(t).Execute(context.Background(), &Request{
		Method:  http.MethodPost,
		URL:     server.URL + "/traces",
		Headers: map[string]string{"x-api-key": "k"},
		Body:    []byte(`{"a":1}`),
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"traceId":"t1"}`, string(resp.Body))
	assert.Equal(t, "srv-1", resp.Metadata[MetadataRequestID])
	assert.Equal(t, "k", gotHeaders.Get("X-API-Key"))
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, gotBody)
}

func TestHTTPTransport_StatusErrors(t *testing.T) {
	tests := []struct {
		status    int
		wantType  ErrorType
		retryable bool
	}{
		{http.StatusUnauthorized, ErrorTypeAuth, false},
		{http.StatusForbidden, ErrorTypeAuth, false},
		{http.StatusBadRequest, ErrorTypeClient, false},
		{http.StatusTooManyRequests, ErrorTypeRateLimit, true},
		{http.StatusInternalServerError, ErrorTypeServer, true},
		{http.StatusServiceUnavailable, ErrorTypeServer, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			_, err := newTestTransport(t).Execute(context.Background(), &Request{
				Method: http.MethodPost,
				URL:    server.URL + "/traces",
				Body:   []byte(`{}`),
			})

			var te *TransportError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, tt.wantType, te.Type)
			assert.Equal(t, tt.status, te.StatusCode)
			assert.Equal(t, tt.retryable, te.IsRetryable())
			assert.Contains(t, te.Message, "status code")
			assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "deliveries are never retried")
		})
	}
}

func TestHTTPTransport_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := newTestTransport(t).Execute(context.Background(), &Request{
		Method:  http.MethodPost,
		URL:     server.URL + "/traces",
		Body:    []byte(`{}`),
		Timeout: 50 * time.Millisecond,
	})

	assert.True(t, IsType(err, ErrorTypeTimeout), "got %v", err)
	assert.Contains(t, err.Error(), "timeout of 50ms exceeded")
}

func TestHTTPTransport_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestTransport(t).Execute(ctx, &Request{
		Method: http.MethodPost,
		URL:    "http://127.0.0.1:1/traces",
	})
	assert.True(t, IsType(err, ErrorTypeCancelled), "got %v", err)
}

func TestHTTPTransport_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newTestTransport(t).Execute(context.Background(), &Request{
		Method: http.MethodPost,
		URL:    url + "/traces",
		Body:   []byte(`{}`),
	})
	assert.True(t, IsType(err, ErrorTypeConnection), "got %v", err)
}

func TestHTTPTransport_InvalidRequest(t *testing.T) {
	tr := newTestTransport(t)
	for _, req := range []*Request{
		nil,
		{URL: "https://api.mibo-ai.com/traces"},
		{Method: http.MethodPost},
		{Method: http.MethodPost, URL: "ftp://host/traces"},
		{Method: http.MethodPost, URL: "https:///traces"},
	} {
		_, err := tr.Execute(context.Background(), req)
		assert.True(t, IsType(err, ErrorTypeInvalidReq), "req %+v: got %v", req, err)
	}
}

type blockingLimiter struct{ err error }

func (l blockingLimiter) Wait(ctx context.Context) error { return l.err }

func TestHTTPTransport_RateLimiterError(t *testing.T) {
	tr := newTestTransport(t)
	tr.SetRateLimiter(blockingLimiter{err: errors.New("limiter closed")})

	_, err := tr.Execute(context.Background(), &Request{Method: http.MethodPost, URL: "https://example.invalid/traces"})
	assert.True(t, IsType(err, ErrorTypeCancelled), "got %v", err)
}

func TestNewRateLimiter(t *testing.T) {
	assert.Nil(t, NewRateLimiter(0, 1))

	lim := NewRateLimiter(1000, 0)
	require.NotNil(t, lim)
	assert.NoError(t, lim.Wait(context.Background()))
}

func TestRequest_TimeoutMillis(t *testing.T) {
	r := &Request{Timeout: 30 * time.Second}
	assert.EqualValues(t, 30000, r.TimeoutMillis())
}

func TestNewHTTPTransport_RejectsNegativeTimeout(t *testing.T) {
	_, err := NewHTTPTransport(HTTPTransportConfig{Timeout: -time.Second})
	assert.Error(t, err)
}
