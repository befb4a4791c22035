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

package send

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/mibo-ai/mibo-cli/internal/commands/shared"
	"github.com/mibo-ai/mibo-cli/internal/jsonvalue"
)

type collector struct {
	mu     sync.Mutex
	bodies []string
	keys   []string
	status int
	reply  string
}

func newCollector(t *testing.T, status int, reply string) (*collector, *httptest.Server) {
	t.Helper()
	c := &collector{status: status, reply: reply}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.bodies = append(c.bodies, string(body))
		c.keys = append(c.keys, r.Header.Get("X-API-Key"))
		c.mu.Unlock()
		assert.Equal(t, "/traces", r.URL.Path)
		w.WriteHeader(c.status)
		_, _ = w.Write([]byte(c.reply))
	}))
	t.Cleanup(srv.Close)
	return c, srv
}

func (c *collector) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bodies)
}

// setup isolates configuration, credentials and history for one test.
func setup(t *testing.T, serverURL string) {
	t.Helper()
	for _, k := range []string{"MIBO_DEBUG", "MIBO_LOG_LEVEL", "LOG_LEVEL", "LOG_FORMAT", "MIBO_CONFIG",
		"MIBO_SERVER_URL", "MIBO_CLEAN_PII", "MIBO_PII_KEYS", "MIBO_CONTINUE_ON_FAIL", "MIBO_HISTORY_PATH",
		"MIBO_PLATFORM_ID", "MIBO_EXTERNAL_ID", "MIBO_TIMEOUT"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("MIBO_API_KEY", "test-key")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	keyring.MockInit()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "credentials:\n  server_url: " + serverURL + "\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	shared.SetConfigPathForTest(path)
	t.Cleanup(func() { shared.SetConfigPathForTest("") })
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func decodeRecords(t *testing.T, out string) jsonvalue.Array {
	t.Helper()
	v, err := jsonvalue.Decode([]byte(out))
	require.NoError(t, err)
	arr, ok := v.(jsonvalue.Array)
	require.True(t, ok, "output is not an array: %s", out)
	return arr
}

func traceOf(t *testing.T, rec jsonvalue.Value) *jsonvalue.Object {
	t.Helper()
	obj, ok := jsonvalue.AsObject(rec)
	require.True(t, ok)
	ann, ok := obj.Get("_miboTrace")
	require.True(t, ok)
	annObj, ok := jsonvalue.AsObject(ann)
	require.True(t, ok)
	return annObj
}

func TestSend_Delivered(t *testing.T) {
	c, srv := newCollector(t, http.StatusOK, `{"traceId":"abc"}`)
	setup(t, srv.URL)

	out, err := execute(t, `[{"email":"a@b.c","n":1},{"n":2}]`,
		"--workflow-id", "wf-1", "--workflow-name", "Checkout", "--execution-id", "ex-1",
		"--clean-pii", "--pii-keys", "email")
	require.NoError(t, err)

	arr := decodeRecords(t, out)
	require.Len(t, arr, 2)
	for _, rec := range arr {
		ann := traceOf(t, rec)
		sent, _ := ann.Get("sent")
		assert.Equal(t, jsonvalue.Bool(true), sent)
		id, _ := ann.Get("traceId")
		assert.Equal(t, jsonvalue.String("abc"), id)
	}
	first, _ := jsonvalue.AsObject(arr[0])
	email, _ := first.Get("email")
	assert.Equal(t, jsonvalue.String("a@b.c"), email)

	require.Equal(t, 1, c.calls())
	assert.Contains(t, c.bodies[0], `"email":"[REDACTED]"`)
	assert.Contains(t, c.bodies[0], `"workflowId":"wf-1"`)
	assert.Contains(t, c.bodies[0], `"executionId":"ex-1"`)
	assert.Equal(t, "test-key", c.keys[0])
}

func TestSend_NDJSONOutput(t *testing.T) {
	_, srv := newCollector(t, http.StatusOK, `{"id":7}`)
	setup(t, srv.URL)

	out, err := execute(t, "{\"a\":1}\n{\"a\":2}\n", "--ndjson")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"traceId":"7"`)
}

func TestSend_FailFast(t *testing.T) {
	_, srv := newCollector(t, http.StatusInternalServerError, `oops`)
	setup(t, srv.URL)

	out, err := execute(t, `[{"a":1}]`)
	require.Error(t, err)
	assert.Empty(t, out)
	assert.Equal(t, shared.ExitDeliveryFailed, shared.ExitCode(err))
	assert.Contains(t, err.Error(), "Failed to send trace to Mibo Testing: Request failed with status code 500")
}

func TestSend_ContinueOnFail(t *testing.T) {
	_, srv := newCollector(t, http.StatusUnauthorized, `{"message":"bad key"}`)
	setup(t, srv.URL)

	out, err := execute(t, `[{"a":1},{"b":2}]`, "--continue-on-fail", "--platform-id", "plat-9")
	require.NoError(t, err)

	arr := decodeRecords(t, out)
	require.Len(t, arr, 2)
	ann := traceOf(t, arr[1])
	sent, _ := ann.Get("sent")
	assert.Equal(t, jsonvalue.Bool(false), sent)
	plat, _ := ann.Get("platformId")
	assert.Equal(t, jsonvalue.String("plat-9"), plat)
	msg, _ := ann.Get("error")
	s, _ := jsonvalue.AsString(msg)
	assert.Contains(t, s, "401")
}

func TestSend_ConfigurationErrorSendsNothing(t *testing.T) {
	c, srv := newCollector(t, http.StatusOK, `{}`)
	setup(t, srv.URL)

	_, err := execute(t, `[{"a":1}]`, "--include-metadata", "--additional-fields", "{bad", "--continue-on-fail")
	require.Error(t, err)
	assert.Equal(t, shared.ExitConfigError, shared.ExitCode(err))
	assert.Equal(t, 0, c.calls())
}

func TestSend_InvalidFlagValue(t *testing.T) {
	c, srv := newCollector(t, http.StatusOK, `{}`)
	setup(t, srv.URL)

	_, err := execute(t, `[{"a":1}]`, "--server-url", "ftp://nowhere")
	assert.Equal(t, shared.ExitConfigError, shared.ExitCode(err))
	assert.Equal(t, 0, c.calls())
}

func TestSend_InputErrors(t *testing.T) {
	c, srv := newCollector(t, http.StatusOK, `{}`)
	setup(t, srv.URL)

	_, err := execute(t, `[1,2]`)
	assert.Equal(t, shared.ExitInputError, shared.ExitCode(err))

	_, err = execute(t, ``, filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, shared.ExitInputError, shared.ExitCode(err))

	assert.Equal(t, 0, c.calls())
}

func TestSend_FromFileWithSelect(t *testing.T) {
	c, srv := newCollector(t, http.StatusOK, `{"traceId":"t"}`)
	setup(t, srv.URL)

	path := filepath.Join(t.TempDir(), "in.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"items":[{"a":1},{"a":2},{"a":3}]}`), 0600))

	out, err := execute(t, "", path, "--select", ".items[]")
	require.NoError(t, err)
	assert.Len(t, decodeRecords(t, out), 3)
	assert.Equal(t, 1, c.calls())
}

func TestSend_DryRun(t *testing.T) {
	c, srv := newCollector(t, http.StatusOK, `{}`)
	setup(t, srv.URL)
	t.Setenv("MIBO_API_KEY", "")

	out, err := execute(t, `[{"password":"p","x":1}]`, "--dry-run", "--clean-pii", "--workflow-id", "wf")
	require.NoError(t, err)
	assert.Equal(t, 0, c.calls())

	payload, err := jsonvalue.DecodeObject([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, []string{"data", "externalMetadata", "metadata"}, payload.Keys())
	assert.Contains(t, out, `"password":"[REDACTED]"`)
}

func TestSend_MissingAPIKey(t *testing.T) {
	c, srv := newCollector(t, http.StatusOK, `{}`)
	setup(t, srv.URL)
	t.Setenv("MIBO_API_KEY", "")

	_, err := execute(t, `[{"a":1}]`)
	assert.Equal(t, shared.ExitConfigError, shared.ExitCode(err))
	assert.Equal(t, 0, c.calls())
}
