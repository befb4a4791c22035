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

// Package config implements `mibo config`.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mibo-ai/mibo-cli/internal/commands/shared"
	"github.com/mibo-ai/mibo-cli/internal/config"
)

// NewConfigCommand creates the config command with subcommands
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and manage configuration",
		Long: `View and manage mibo configuration.

Settings are read from the config file, then overridden by MIBO_* and LOG_*
environment variables, then by command flags.

Subcommands:
  show     - Display the effective configuration
  path     - Show config file location
  init     - Write a config file with default values
  validate - Check the configuration for problems`,
	}

	cmd.AddCommand(newConfigShowCommand(), newConfigPathCommand(), newConfigInitCommand(), NewValidateCommand())

	// If no subcommand provided, default to 'show'
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runConfigShow(cmd, args)
	}

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Long: `Display the effective configuration after defaults and environment
overrides are applied.

The API key is masked. Use --json for machine-readable output.`,
		Args: cobra.NoArgs,
		RunE: runConfigShow,
	}
}

func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return shared.NewConfigurationExitError(fmt.Errorf("config file already exists at %s (use --force to overwrite)", path))
			}
			if err := config.Default().Save(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK("wrote "+path))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	path := config.ResolvePath(shared.GetConfigPath())
	cfg, err := config.Load(path)
	if err != nil {
		return shared.NewConfigurationExitError(err)
	}

	masked := *cfg
	masked.Credentials.APIKey = maskAPIKey(cfg.Credentials.APIKey)

	out := cmd.OutOrStdout()
	if shared.GetJSON() {
		doc, err := toDocument(&masked)
		if err != nil {
			return err
		}
		return shared.EmitJSON(out, doc)
	}

	source := path
	if source == "" {
		source = "(defaults, no config file)"
	}
	fmt.Fprintf(out, "Configuration: %s\n", source)
	fmt.Fprintln(out, strings.Repeat("=", 50))
	fmt.Fprintln(out)
	return writeYAML(out, &masked)
}

// configPath is the file that --config names, or the default location.
func configPath() (string, error) {
	if p := shared.GetConfigPath(); p != "" {
		return p, nil
	}
	if p := os.Getenv("MIBO_CONFIG"); p != "" {
		return p, nil
	}
	p, err := config.ConfigPath()
	if err != nil {
		return "", fmt.Errorf("failed to determine config path: %w", err)
	}
	return p, nil
}

// maskAPIKey masks an API key for display
func maskAPIKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

func writeYAML(w io.Writer, cfg *config.Config) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return encoder.Close()
}

// toDocument converts the config to a generic map keyed by its YAML names,
// so JSON output uses the same snake_case keys as the file.
func toDocument(cfg *config.Config) (map[string]any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.New("failed to convert config")
	}
	return doc, nil
}
