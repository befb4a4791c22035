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

package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/mibo-ai/mibo-cli/internal/commands/shared"
	"github.com/mibo-ai/mibo-cli/internal/secrets"
)

func isolate(t *testing.T) {
	t.Helper()
	for _, k := range []string{"MIBO_API_KEY", "MIBO_CONFIG", "MIBO_SERVER_URL", "MIBO_DEBUG", "MIBO_LOG_LEVEL", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	keyring.MockInit()
	shared.SetConfigPathForTest("")
}

func execute(t *testing.T, stdin string, asJSON bool, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "mibo", SilenceUsage: true, SilenceErrors: true}
	_, _, jsonPtr, _ := shared.RegisterFlagPointers()
	root.PersistentFlags().BoolVar(jsonPtr, "json", false, "JSON output")
	t.Cleanup(func() { *jsonPtr = false })
	root.AddCommand(NewCommand())

	if asJSON {
		args = append([]string{"--json"}, args...)
	}
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"auth"}, args...))
	err := root.Execute()
	return out.String(), err
}

func storedKey(t *testing.T) (string, error) {
	t.Helper()
	return keyring.Get(secrets.KeychainService, secrets.APIKeyName)
}

func TestLogin_StoresKey(t *testing.T) {
	isolate(t)

	out, err := execute(t, "sk-live-abcdef\n", false, "login")
	require.NoError(t, err)
	assert.Contains(t, out, "...cdef")
	assert.NotContains(t, out, "sk-live-abcdef")

	got, err := storedKey(t)
	require.NoError(t, err)
	assert.Equal(t, "sk-live-abcdef", got)
}

func TestLogin_EmptyKey(t *testing.T) {
	isolate(t)

	_, err := execute(t, "\n", false, "login")
	assert.Equal(t, shared.ExitInputError, shared.ExitCode(err))
}

func TestLogin_KeychainUnavailable(t *testing.T) {
	isolate(t)
	keyring.MockInitWithError(errors.New("dbus: secret service not running"))

	_, err := execute(t, "sk-live-abcdef\n", false, "login")
	assert.Equal(t, shared.ExitConfigError, shared.ExitCode(err))
}

func TestLogin_Verify(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "good-key-1234" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := execute(t, "bad-key-1234\n", false, "login", "--verify", "--server-url", srv.URL)
	assert.Equal(t, shared.ExitDeliveryFailed, shared.ExitCode(err))
	_, getErr := storedKey(t)
	assert.ErrorIs(t, getErr, keyring.ErrNotFound)

	_, err = execute(t, "good-key-1234\n", false, "login", "--verify", "--server-url", srv.URL)
	require.NoError(t, err)
	got, err := storedKey(t)
	require.NoError(t, err)
	assert.Equal(t, "good-key-1234", got)
}

func TestLogout(t *testing.T) {
	isolate(t)
	require.NoError(t, keyring.Set(secrets.KeychainService, secrets.APIKeyName, "to-remove"))

	out, err := execute(t, "", false, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "removed")

	out, err = execute(t, "", false, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "no API key stored")
}

func TestStatus_SourcePrecedence(t *testing.T) {
	isolate(t)
	require.NoError(t, keyring.Set(secrets.KeychainService, secrets.APIKeyName, "keychain-key-1111"))

	out, err := execute(t, "", true, "status")
	require.NoError(t, err)
	var resp StatusResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "keychain", resp.Source)
	assert.Equal(t, "...1111", resp.Key)

	t.Setenv("MIBO_API_KEY", "env-key-2222")
	out, err = execute(t, "", true, "status")
	require.NoError(t, err)
	resp = StatusResponse{}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "env", resp.Source)
}

func TestStatus_NotConfigured(t *testing.T) {
	isolate(t)

	out, err := execute(t, "", true, "status")
	assert.Equal(t, shared.ExitConfigError, shared.ExitCode(err))

	var resp StatusResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.Configured)
	assert.False(t, resp.Success)
}
