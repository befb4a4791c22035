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

package config

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/mibo-ai/mibo-cli/internal/commands/shared"
	"github.com/mibo-ai/mibo-cli/internal/config"
)

func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range []string{"MIBO_CONFIG", "MIBO_SERVER_URL", "MIBO_API_KEY", "MIBO_CLEAN_PII", "MIBO_PII_KEYS",
		"MIBO_TIMEOUT", "MIBO_LISTEN_ADDR", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	return filepath.Join(t.TempDir(), "config.yaml")
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	shared.SetConfigPathForTest(path)
	t.Cleanup(func() { shared.SetConfigPathForTest("") })
}

func execute(t *testing.T, asJSON bool, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "mibo", SilenceUsage: true, SilenceErrors: true}
	_, _, jsonPtr, _ := shared.RegisterFlagPointers()
	root.PersistentFlags().BoolVar(jsonPtr, "json", false, "JSON output")
	t.Cleanup(func() { *jsonPtr = false })
	root.AddCommand(NewConfigCommand())

	if asJSON {
		args = append([]string{"--json"}, args...)
	}
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"config"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestConfigShowMasksAPIKey(t *testing.T) {
	path := isolate(t)
	writeConfig(t, path, "credentials:\n  api_key: sk-1234567890abcd\ntrace:\n  platform_id: plat\n")

	out, err := execute(t, false, "show")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if strings.Contains(out, "sk-1234567890abcd") {
		t.Error("API key should be masked")
	}
	if !strings.Contains(out, "sk-1*********abcd") {
		t.Errorf("expected masked key in output:\n%s", out)
	}
	if !strings.Contains(out, "platform_id: plat") {
		t.Errorf("expected platform_id in output:\n%s", out)
	}
}

func TestConfigShowJSON(t *testing.T) {
	path := isolate(t)
	writeConfig(t, path, "options:\n  continue_on_fail: true\n")

	out, err := execute(t, true)
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	options, ok := doc["options"].(map[string]any)
	if !ok {
		t.Fatalf("expected options object, got %v", doc["options"])
	}
	if options["continue_on_fail"] != true {
		t.Errorf("expected continue_on_fail true, got %v", options["continue_on_fail"])
	}
	if options["timeout"] != float64(30) {
		t.Errorf("expected default timeout 30, got %v", options["timeout"])
	}
}

func TestConfigShowInvalid(t *testing.T) {
	path := isolate(t)
	writeConfig(t, path, "options:\n  timeout: -1\n")

	_, err := execute(t, false, "show")
	if shared.ExitCode(err) != shared.ExitConfigError {
		t.Errorf("expected config exit code, got %v", err)
	}
}

func TestConfigPathAndInit(t *testing.T) {
	path := isolate(t)
	shared.SetConfigPathForTest(path)
	defer shared.SetConfigPathForTest("")

	out, err := execute(t, false, "path")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != path {
		t.Errorf("expected %s, got %q", path, out)
	}

	if _, err := execute(t, false, "init"); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if cfg.Trace.PIIKeys != config.DefaultPIIKeys {
		t.Errorf("expected default pii keys, got %q", cfg.Trace.PIIKeys)
	}

	_, err = execute(t, false, "init")
	if shared.ExitCode(err) != shared.ExitConfigError {
		t.Errorf("expected refusal to overwrite, got %v", err)
	}
	if _, err := execute(t, false, "init", "--force"); err != nil {
		t.Errorf("init --force failed: %v", err)
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := map[string]string{
		"":                  "",
		"short":             "****",
		"12345678":          "****",
		"sk-1234567890abcd": "sk-1*********abcd",
	}
	for in, want := range tests {
		if got := maskAPIKey(in); got != want {
			t.Errorf("maskAPIKey(%q) = %q, want %q", in, got, want)
		}
	}
}
