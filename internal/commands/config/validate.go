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
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mibo-ai/mibo-cli/internal/commands/shared"
	"github.com/mibo-ai/mibo-cli/internal/config"
	"github.com/mibo-ai/mibo-cli/internal/jsonvalue"
	"github.com/mibo-ai/mibo-cli/internal/trace"
	pkgerrors "github.com/mibo-ai/mibo-cli/pkg/errors"
)

// ValidationResult represents the result of config validation.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewValidateCommand creates the 'config validate' subcommand.
func NewValidateCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		Long: `Validate the effective configuration.

Checks performed:
  - YAML syntax and structure
  - Server URLs, timeout, rate limits and log settings
  - trace.metadata.additional_fields is a JSON object
  - PII cleaning has keys to clean
  - The API key is not stored in plain text in the config file

With --strict, warnings are treated as errors.`,
		Example: `  mibo config validate
  mibo config validate --strict --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.ResolvePath(shared.GetConfigPath()))
			var result ValidationResult
			if err != nil {
				result = ValidationResult{Errors: []string{describe(err)}}
			} else {
				result = validateConfig(cfg)
			}
			return outputValidationResult(cmd, result, strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")
	return cmd
}

// validateConfig checks what Load does not: settings that only fail once a
// batch is built, and risky choices.
func validateConfig(cfg *config.Config) ValidationResult {
	var errs, warnings []string

	if text := cfg.Trace.Metadata.AdditionalFields; strings.TrimSpace(text) != "" {
		if _, err := trace.ParseAdditionalFields(text); err != nil {
			errs = append(errs, describe(err))
		} else if v, _ := jsonvalue.Decode([]byte(text)); v.Kind() != jsonvalue.KindObject {
			warnings = append(warnings, fmt.Sprintf("trace.metadata.additional_fields is a JSON %s, not an object; it adds no metadata", v.Kind()))
		}
	}

	if cfg.Trace.CleanPII && len(cfg.RedactKeys()) == 0 {
		warnings = append(warnings, "trace.clean_pii is on but trace.pii_keys is empty; nothing will be redacted")
	}
	if cfg.Credentials.APIKey != "" {
		warnings = append(warnings, "credentials.api_key is stored in plain text; prefer 'mibo auth login' or MIBO_API_KEY")
	}
	if cfg.Options.Timeout > 300 {
		warnings = append(warnings, fmt.Sprintf("options.timeout of %ds is unusually long", cfg.Options.Timeout))
	}
	if !strings.HasPrefix(cfg.Server.Addr, "127.0.0.1:") && !strings.HasPrefix(cfg.Server.Addr, "localhost:") {
		warnings = append(warnings, fmt.Sprintf("server.addr %s is reachable from other hosts and has no authentication", cfg.Server.Addr))
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs, Warnings: warnings}
}

func describe(err error) string {
	var cfgErr *pkgerrors.ConfigurationError
	if pkgerrors.As(err, &cfgErr) && cfgErr.Key != "" {
		msg := cfgErr.Key + ": " + cfgErr.Reason
		if cfgErr.Cause != nil {
			msg += ": " + cfgErr.Cause.Error()
		}
		return msg
	}
	return err.Error()
}

// outputValidationResult prints the result and returns a configuration exit
// error when it is invalid, or has warnings under --strict.
func outputValidationResult(cmd *cobra.Command, result ValidationResult, strict bool) error {
	out := cmd.OutOrStdout()

	if shared.GetJSON() {
		if err := shared.EmitJSON(out, result); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
	} else {
		if result.Valid {
			fmt.Fprintln(out, shared.RenderOK("Configuration is valid"))
		} else {
			fmt.Fprintln(out, shared.RenderError("Configuration validation failed"))
		}
		fmt.Fprintln(out)

		if len(result.Errors) > 0 {
			fmt.Fprintln(out, shared.Header.Render("Errors:"))
			for _, e := range result.Errors {
				fmt.Fprintf(out, "  %s %s\n", shared.StatusError.Render(shared.SymbolError), e)
			}
			fmt.Fprintln(out)
		}
		if len(result.Warnings) > 0 {
			fmt.Fprintln(out, shared.Header.Render("Warnings:"))
			for _, w := range result.Warnings {
				fmt.Fprintf(out, "  %s %s\n", shared.StatusWarn.Render(shared.SymbolWarn), w)
			}
			fmt.Fprintln(out)
		}
		if result.Valid && len(result.Warnings) == 0 {
			fmt.Fprintln(out, "No issues found.")
		}
	}

	if !result.Valid {
		return &shared.ExitError{Code: shared.ExitConfigError, Message: "configuration is invalid"}
	}
	if strict && len(result.Warnings) > 0 {
		return &shared.ExitError{Code: shared.ExitConfigError, Message: "validation failed (strict mode: warnings treated as errors)"}
	}
	return nil
}
