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
	"encoding/json"
	"strings"
	"testing"

	"github.com/mibo-ai/mibo-cli/internal/commands/shared"
	"github.com/mibo-ai/mibo-cli/internal/config"
)

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(*config.Config)
		wantValid    bool
		wantWarnings int
		contains     string
	}{
		{
			name:      "defaults",
			mutate:    func(*config.Config) {},
			wantValid: true,
		},
		{
			name:      "invalid additional fields",
			mutate:    func(c *config.Config) { c.Trace.Metadata.AdditionalFields = `{"a":` },
			wantValid: false,
			contains:  "trace.metadata.additional_fields",
		},
		{
			name:         "additional fields not an object",
			mutate:       func(c *config.Config) { c.Trace.Metadata.AdditionalFields = `[1]` },
			wantValid:    true,
			wantWarnings: 1,
			contains:     "not an object",
		},
		{
			name: "clean pii without keys",
			mutate: func(c *config.Config) {
				c.Trace.CleanPII = true
				c.Trace.PIIKeys = " , "
			},
			wantValid:    true,
			wantWarnings: 1,
		},
		{
			name:         "plain text api key",
			mutate:       func(c *config.Config) { c.Credentials.APIKey = "k" },
			wantValid:    true,
			wantWarnings: 1,
		},
		{
			name:         "public listen address",
			mutate:       func(c *config.Config) { c.Server.Addr = "0.0.0.0:8787" },
			wantValid:    true,
			wantWarnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			result := validateConfig(cfg)

			if result.Valid != tt.wantValid {
				t.Errorf("expected valid=%v, got %+v", tt.wantValid, result)
			}
			if len(result.Warnings) != tt.wantWarnings {
				t.Errorf("expected %d warnings, got %v", tt.wantWarnings, result.Warnings)
			}
			messages := strings.Join(append(result.Errors, result.Warnings...), "\n")
			if tt.contains != "" && !strings.Contains(messages, tt.contains) {
				t.Errorf("expected messages to mention %q, got %v", tt.contains, messages)
			}
		})
	}
}

func TestValidateCommand(t *testing.T) {
	path := isolate(t)
	writeConfig(t, path, "credentials:\n  api_key: sk-plain\n")

	out, err := execute(t, true, "validate")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	var result ValidationResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if !result.Valid || len(result.Warnings) != 1 {
		t.Errorf("unexpected result %+v", result)
	}

	_, err = execute(t, false, "validate", "--strict")
	if shared.ExitCode(err) != shared.ExitConfigError {
		t.Errorf("expected strict failure, got %v", err)
	}
}

func TestValidateCommand_LoadError(t *testing.T) {
	path := isolate(t)
	writeConfig(t, path, "log:\n  level: loud\n")

	out, err := execute(t, false, "validate")
	if shared.ExitCode(err) != shared.ExitConfigError {
		t.Errorf("expected config exit code, got %v", err)
	}
	if !strings.Contains(out, "log.level") {
		t.Errorf("expected log.level in output:\n%s", out)
	}
}
