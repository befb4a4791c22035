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

// Package auth implements `mibo auth`, which manages the collector API key
// in the OS keychain.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mibo-ai/mibo-cli/internal/commands/shared"
	healthcheck "github.com/mibo-ai/mibo-cli/internal/health"
	"github.com/mibo-ai/mibo-cli/internal/log"
	"github.com/mibo-ai/mibo-cli/internal/secrets"
	pkgerrors "github.com/mibo-ai/mibo-cli/pkg/errors"
)

// StatusResponse is the --json output of `auth status`.
type StatusResponse struct {
	shared.JSONResponse
	Configured bool   `json:"configured"`
	Source     string `json:"source,omitempty"`
	Key        string `json:"key,omitempty"`
}

// NewCommand creates the auth command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the Mibo Testing API key",
		Long: `Manage the API key used to authenticate with Mibo Testing.

The key is looked up in this order:
  1. MIBO_API_KEY environment variable
  2. OS keychain (stored by 'mibo auth login')
  3. credentials.api_key in the config file`,
	}
	cmd.AddCommand(newLoginCommand(), newLogoutCommand(), newStatusCommand())
	return cmd
}

func newLoginCommand() *cobra.Command {
	var (
		verify    bool
		serverURL string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API key in the OS keychain",
		Long: `Store an API key in the OS keychain.

On a terminal the key is prompted for without echo. Otherwise the first line
of stdin is read, e.g.:

  echo "$KEY" | mibo auth login`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			key, err := shared.ReadSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Mibo API key: ")
			if err != nil {
				return shared.NewInputError("failed to read API key", err)
			}
			if key == "" {
				return shared.NewInputError("API key must not be empty", nil)
			}

			if verify {
				rt, err := shared.LoadRuntime()
				if err != nil {
					return err
				}
				checker, err := healthcheck.NewChecker(rt.Config.ResolveServerURL(serverURL), key, healthcheck.Options{Logger: rt.Logger})
				if err != nil {
					return err
				}
				if result := checker.Check(ctx); !result.OK() {
					return &shared.ExitError{Code: shared.ExitDeliveryFailed, Message: "API key verification failed", Cause: result.Error}
				}
			}

			backend := secrets.NewKeychainBackend()
			if err := secrets.NewResolver(backend).Set(ctx, secrets.APIKeyName, key, backend.Name()); err != nil {
				return shared.NewConfigurationExitError(&pkgerrors.ConfigurationError{
					Key:    "credentials.api_key",
					Reason: "could not store API key in the OS keychain",
					Hint:   "Set MIBO_API_KEY or credentials.api_key instead",
					Cause:  err,
				})
			}

			if !shared.GetQuiet() {
				fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK("API key "+log.SanitizeAPIKey(key)+" stored in keychain"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "Check the key against the collector before storing it")
	cmd.Flags().StringVar(&serverURL, "server-url", "", "Collector URL used by --verify")
	return cmd
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the API key from the OS keychain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := secrets.NewResolver(secrets.NewKeychainBackend()).Delete(commandContext(cmd), secrets.APIKeyName)
			switch {
			case errors.Is(err, secrets.ErrSecretNotFound):
				fmt.Fprintln(cmd.OutOrStdout(), shared.RenderWarn("no API key stored in keychain"))
				return nil
			case err != nil:
				return fmt.Errorf("failed to remove API key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK("API key removed from keychain"))
			return nil
		},
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where the API key is read from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := shared.LoadRuntime()
			if err != nil {
				return err
			}
			key, source, keyErr := rt.ResolveAPIKey(commandContext(cmd))

			resp := StatusResponse{
				JSONResponse: shared.JSONResponse{Version: "1.0", Command: "auth status", Success: keyErr == nil},
				Configured:   keyErr == nil,
				Source:       source,
			}
			if keyErr == nil {
				resp.Key = log.SanitizeAPIKey(key)
			}

			out := cmd.OutOrStdout()
			if shared.GetJSON() {
				if err := shared.EmitJSON(out, resp); err != nil {
					return err
				}
			} else if keyErr == nil {
				fmt.Fprintln(out, shared.RenderOK("API key configured"))
				fmt.Fprintln(out, shared.RenderKV("Key", resp.Key))
				fmt.Fprintln(out, shared.RenderKV("Source", source))
			}

			if keyErr != nil {
				return shared.NewConfigurationExitError(keyErr)
			}
			return nil
		},
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
