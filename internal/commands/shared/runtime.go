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

package shared

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/mibo-ai/mibo-cli/internal/config"
	"github.com/mibo-ai/mibo-cli/internal/delivery"
	"github.com/mibo-ai/mibo-cli/internal/history"
	"github.com/mibo-ai/mibo-cli/internal/log"
	"github.com/mibo-ai/mibo-cli/internal/secrets"
	"github.com/mibo-ai/mibo-cli/internal/tracing"
	"github.com/mibo-ai/mibo-cli/internal/transport"
	pkgerrors "github.com/mibo-ai/mibo-cli/pkg/errors"
)

// Runtime bundles the configuration and logger a command runs with.
type Runtime struct {
	Config *config.Config
	Logger *slog.Logger
}

// LoadRuntime loads configuration from --config (or the default file) and
// builds the process logger. It also installs the logger as slog's default.
func LoadRuntime() (*Runtime, error) {
	cfg, err := config.Load(config.ResolvePath(GetConfigPath()))
	if err != nil {
		return nil, NewConfigurationExitError(err)
	}

	logger := log.New(loggerConfig(cfg))
	slog.SetDefault(logger)
	return &Runtime{Config: cfg, Logger: logger}, nil
}

// loggerConfig starts from the log environment and lets the config file
// fill what the environment left unset. --verbose and --quiet win.
func loggerConfig(cfg *config.Config) *log.Config {
	lc := log.FromEnv()
	if os.Getenv("MIBO_DEBUG") == "" && os.Getenv("MIBO_LOG_LEVEL") == "" {
		lc.Level = cfg.Log.Level
	}
	if os.Getenv("LOG_FORMAT") == "" {
		lc.Format = log.Format(cfg.Log.Format)
	}
	switch {
	case GetVerbose():
		lc.Level = "debug"
	case GetQuiet():
		lc.Level = "error"
	}
	return lc
}

// ResolveAPIKey finds the collector API key: MIBO_API_KEY, then the OS
// keychain, then credentials.api_key. It returns the backend that supplied it.
func (rt *Runtime) ResolveAPIKey(ctx context.Context) (key, source string, err error) {
	key, source, err = secrets.NewDefaultResolver(rt.Config.Credentials.APIKey).Lookup(ctx, secrets.APIKeyName)
	if err == nil {
		return key, source, nil
	}
	if errors.Is(err, secrets.ErrSecretNotFound) {
		return "", "", &pkgerrors.ConfigurationError{
			Key:    "credentials.api_key",
			Reason: "no API key configured",
			Hint:   "Run 'mibo auth login' or set MIBO_API_KEY",
		}
	}
	return "", "", &pkgerrors.ConfigurationError{
		Key:    "credentials.api_key",
		Reason: "failed to read API key",
		Cause:  err,
	}
}

// OpenHistory opens the attempt log and prunes entries past retention.
// It returns nil without error when history is disabled.
func (rt *Runtime) OpenHistory(ctx context.Context) (*history.Store, error) {
	if !rt.Config.History.Enabled {
		return nil, nil
	}
	path, err := rt.Config.HistoryPath()
	if err != nil {
		return nil, err
	}
	store, err := history.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	if rt.Config.History.Retention > 0 {
		if n, err := store.DeleteOlderThan(ctx, time.Now().Add(-rt.Config.History.Retention)); err != nil {
			rt.Logger.Warn("failed to prune history", log.Error(err))
		} else if n > 0 {
			rt.Logger.Debug("pruned history", "removed", n)
		}
	}
	return store, nil
}

// telemetryFlushTimeout bounds the final span export when a command exits.
const telemetryFlushTimeout = 5 * time.Second

// StartTelemetry installs trace propagation and the configured span
// exporter. The returned function flushes and stops the exporter.
func (rt *Runtime) StartTelemetry(ctx context.Context) (func(), error) {
	tc := rt.Config.Telemetry
	provider, err := tracing.NewProvider(ctx, tracing.ProviderConfig{
		Exporter:       tc.Exporter,
		Endpoint:       tc.Endpoint,
		URLPath:        tc.URLPath,
		Insecure:       tc.Insecure,
		Headers:        tc.Headers,
		ServiceVersion: info.version,
	})
	if err != nil {
		return nil, NewConfigurationExitError(&pkgerrors.ConfigurationError{
			Key:    "telemetry",
			Reason: "failed to start span exporter",
			Cause:  err,
		})
	}
	if provider.Enabled() {
		rt.Logger.Debug("span export enabled", "exporter", tc.Exporter, "endpoint", tc.Endpoint)
	}

	return func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), telemetryFlushTimeout)
		defer cancel()
		if err := provider.Shutdown(flushCtx); err != nil {
			rt.Logger.Warn("failed to flush spans", log.Error(err))
		}
	}, nil
}

// NewPipeline builds a delivery pipeline over HTTP. History is attached when
// enabled; a history database that cannot be opened is logged and skipped.
// Telemetry is started first. The returned close function flushes spans and
// releases the history store.
func (rt *Runtime) NewPipeline(ctx context.Context, apiKey string) (*delivery.Pipeline, *transport.HTTPTransport, func(), error) {
	opts := rt.Config.DeliveryOptions()
	tr, err := transport.NewHTTPTransport(transport.HTTPTransportConfig{
		Timeout:   opts.Timeout,
		UserAgent: UserAgent(),
	})
	if err != nil {
		return nil, nil, nil, err
	}

	stopTelemetry, err := rt.StartTelemetry(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	p := &delivery.Pipeline{
		Transport: tr,
		Credentials: delivery.Credentials{
			APIKey:    apiKey,
			ServerURL: rt.Config.Credentials.ServerURL,
		},
		Logger: rt.Logger,
	}

	closeFn := stopTelemetry
	store, err := rt.OpenHistory(ctx)
	if err != nil {
		rt.Logger.Warn("history disabled", log.Error(err))
	} else if store != nil {
		p.Recorder = store
		closeFn = func() {
			stopTelemetry()
			_ = store.Close()
		}
	}
	return p, tr, closeFn, nil
}
