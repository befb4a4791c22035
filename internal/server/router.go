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

package server

import (
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mibo-ai/mibo-cli/internal/jsonvalue"
	"github.com/mibo-ai/mibo-cli/internal/log"
	"github.com/mibo-ai/mibo-cli/internal/tracing"
)

// Routes served by NewRouter.
const (
	BatchesPath = "/v1/batches"
	HealthPath  = "/healthz"
	MetricsPath = "/metrics"
)

// RouterConfig configures NewRouter.
type RouterConfig struct {
	Batches http.Handler

	// Gatherer backs /metrics. Nil uses the default Prometheus registry.
	Gatherer prometheus.Gatherer

	Logger *slog.Logger
}

// NewRouter wires the batch, health and metrics endpoints behind the
// correlation, trace-context and access-log middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	started := time.Now()
	mux := http.NewServeMux()
	mux.Handle("POST "+BatchesPath, cfg.Batches)
	mux.HandleFunc("GET "+HealthPath, func(w http.ResponseWriter, r *http.Request) {
		writeValue(w, http.StatusOK, jsonvalue.ObjectOf(
			"status", jsonvalue.String("healthy"),
			"timestamp", jsonvalue.String(time.Now().UTC().Format(time.RFC3339)),
			"uptime", jsonvalue.String(time.Since(started).Round(time.Second).String()),
			"runtime", jsonvalue.String(runtime.Version()),
		))
	})
	mux.Handle("GET "+MetricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	var h http.Handler = mux
	h = log.HTTPMiddleware(log.WithComponent(logger, "http"))(h)
	h = tracing.HTTPMiddleware(h)
	h = tracing.CorrelationMiddleware(h)
	return h
}
