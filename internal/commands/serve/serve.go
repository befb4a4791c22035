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

// Package serve implements `mibo serve`, a long-running HTTP front end to
// the delivery pipeline.
package serve

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mibo-ai/mibo-cli/internal/commands/shared"
	"github.com/mibo-ai/mibo-cli/internal/log"
	"github.com/mibo-ai/mibo-cli/internal/metrics"
	"github.com/mibo-ai/mibo-cli/internal/server"
	"github.com/mibo-ai/mibo-cli/internal/transport"
)

// NewCommand creates the serve command.
func NewCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept batches over HTTP and forward them to Mibo Testing",
		Long: `Start an HTTP server that accepts record batches on POST /v1/batches
and delivers each one through the same pipeline as 'mibo send'.

The server also exposes GET /healthz and Prometheus metrics on GET /metrics.
It stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := shared.LoadRuntime()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				rt.Config.Server.Addr = addr
			}

			apiKey, _, err := rt.ResolveAPIKey(ctx)
			if err != nil {
				return shared.NewConfigurationExitError(err)
			}

			handler, closeFn, err := newHandler(ctx, rt, apiKey, nil)
			if err != nil {
				return err
			}
			defer closeFn()

			srv := server.New(server.Config{
				Addr:            rt.Config.Server.Addr,
				ShutdownTimeout: rt.Config.Server.ShutdownTimeout,
			}, handler, rt.Logger)

			if !shared.GetQuiet() {
				fmt.Fprintln(cmd.ErrOrStderr(), shared.RenderOK("listening on "+rt.Config.Server.Addr))
			}
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, 127.0.0.1:8787)")
	return cmd
}

// newHandler assembles the pipeline and router. A nil gatherer uses the
// default Prometheus registry that metrics.Recorder writes to.
func newHandler(ctx context.Context, rt *shared.Runtime, apiKey string, gatherer prometheus.Gatherer) (http.Handler, func(), error) {
	p, tr, closeFn, err := rt.NewPipeline(ctx, apiKey)
	if err != nil {
		return nil, nil, err
	}
	p.Metrics = metrics.Recorder{}

	cfg := rt.Config
	if limiter := transport.NewRateLimiter(cfg.Options.RateLimit, cfg.Options.RateBurst); limiter != nil {
		tr.SetRateLimiter(limiter)
		rt.Logger.Debug("rate limiting deliveries",
			"per_second", cfg.Options.RateLimit,
			"burst", cfg.Options.RateBurst)
	}

	batches := server.NewBatchHandler(p, server.Defaults{
		RedactKeys: cfg.RedactKeys(),
		Metadata:   cfg.MetadataFields(),
		PlatformID: cfg.Trace.PlatformID,
		ExternalID: cfg.Trace.ExternalID,
		Options:    cfg.DeliveryOptions(),
	}, cfg.Server.MaxBodyBytes, rt.Logger)

	rt.Logger.Info("delivery configured",
		"server_url", cfg.ResolveServerURL(""),
		"strategy", cfg.DeliveryOptions().Strategy.String(),
		"api_key", log.SanitizeAPIKey(apiKey))

	return server.NewRouter(server.RouterConfig{
		Batches:  batches,
		Gatherer: gatherer,
		Logger:   rt.Logger,
	}), closeFn, nil
}
