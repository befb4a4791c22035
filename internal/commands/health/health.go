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

// Package health implements `mibo health`.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mibo-ai/mibo-cli/internal/commands/shared"
	healthcheck "github.com/mibo-ai/mibo-cli/internal/health"
	"github.com/mibo-ai/mibo-cli/internal/log"
)

// Response is the --json output.
type Response struct {
	shared.JSONResponse
	Endpoint      string `json:"endpoint"`
	KeySource     string `json:"key_source"`
	Reachable     bool   `json:"reachable"`
	Authenticated bool   `json:"authenticated"`
	StatusCode    int    `json:"status_code,omitempty"`
	LatencyMS     int64  `json:"latency_ms"`
	Error         string `json:"error,omitempty"`
}

// NewCommand creates the health command.
func NewCommand() *cobra.Command {
	var (
		serverURL string
		retries   int
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the collector is reachable and accepts your API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			rt, err := shared.LoadRuntime()
			if err != nil {
				return err
			}
			apiKey, source, err := rt.ResolveAPIKey(ctx)
			if err != nil {
				return shared.NewConfigurationExitError(err)
			}

			checker, err := healthcheck.NewChecker(rt.Config.ResolveServerURL(serverURL), apiKey, healthcheck.Options{
				Timeout: timeout,
				Retries: retries,
				Logger:  rt.Logger,
			})
			if err != nil {
				return err
			}
			result := checker.Check(ctx)

			resp := Response{
				JSONResponse:  shared.JSONResponse{Version: "1.0", Command: "health", Success: result.OK()},
				Endpoint:      result.Endpoint,
				KeySource:     source,
				Reachable:     result.Reachable,
				Authenticated: result.Authenticated,
				StatusCode:    result.StatusCode,
				LatencyMS:     result.Latency.Milliseconds(),
			}
			if result.Error != nil {
				resp.Error = result.Error.Error()
			}

			if shared.GetJSON() {
				if err := shared.EmitJSON(cmd.OutOrStdout(), resp); err != nil {
					return err
				}
			} else {
				printHuman(cmd, resp, apiKey)
			}

			if !result.OK() {
				return &shared.ExitError{Code: shared.ExitDeliveryFailed, Message: "health check failed", Cause: result.Error}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "server-url", "", "Override the collector URL")
	cmd.Flags().IntVar(&retries, "retries", 2, "Retries for transient failures")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Overall timeout")
	return cmd
}

func printHuman(cmd *cobra.Command, r Response, apiKey string) {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, shared.Header.Render("Mibo Testing"))
	fmt.Fprintln(w, shared.RenderKV("Endpoint", r.Endpoint))
	fmt.Fprintln(w, shared.RenderKV("API key", fmt.Sprintf("%s (%s)", log.SanitizeAPIKey(apiKey), r.KeySource)))

	switch {
	case !r.Reachable:
		fmt.Fprintln(w, shared.RenderError("unreachable: "+r.Error))
	case !r.Authenticated:
		fmt.Fprintln(w, shared.RenderWarn(fmt.Sprintf("reachable but not healthy (status %d): %s", r.StatusCode, r.Error)))
	default:
		fmt.Fprintln(w, shared.RenderOK(fmt.Sprintf("healthy (status %d, %dms)", r.StatusCode, r.LatencyMS)))
	}
}
