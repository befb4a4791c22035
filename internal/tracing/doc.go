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

/*
Package tracing carries request identity across the delivery path.

Two mechanisms are provided:

  - Correlation IDs: a UUID per batch, taken from an inbound X-Correlation-ID
    header when valid, stored in the context and sent on every outbound
    request. The same ID is written to logs and the history store.
  - W3C trace context: when the process installs a propagator, inbound
    traceparent headers are extracted, each batch runs in a span, and the
    span context is injected into the POST to the collector.

NewProvider installs the propagator and, when telemetry.exporter names one,
an SDK TracerProvider that batches spans to an OTLP/HTTP collector
("otlp-http") or writes them as JSON ("console"). With the default "none"
spans stay no-ops and only propagation takes effect.

# Usage

	p, err := tracing.NewProvider(ctx, tracing.ProviderConfig{Exporter: tracing.ExporterOTLPHTTP})
	defer p.Shutdown(context.Background())
	handler := tracing.CorrelationMiddleware(tracing.HTTPMiddleware(mux))

	ctx, id := tracing.EnsureContext(ctx)
	ctx, span := tracing.StartBatchSpan(ctx, workflowID, executionID, len(records))
	defer tracing.EndSpan(span, err)
*/
package tracing
